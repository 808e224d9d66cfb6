package directory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
)

func TestRESTDirectoryUserIDsByRoles(t *testing.T) {
	t.Parallel()

	var gotBody lookupRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("failed to decode request body: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"userIds":["u1","u2"]}`))
	}))
	defer server.Close()

	d, err := NewRESTDirectory(server.URL)
	if err != nil {
		t.Fatalf("NewRESTDirectory() error = %v", err)
	}

	ids, err := d.UserIDsByRoles(context.Background(), []string{"admin"})
	if err != nil {
		t.Fatalf("UserIDsByRoles() unexpected error = %v", err)
	}

	if !reflect.DeepEqual(gotBody.Roles, []string{"admin"}) {
		t.Fatalf("request roles = %v, want [admin]", gotBody.Roles)
	}
	if !reflect.DeepEqual(ids, []string{"u1", "u2"}) {
		t.Fatalf("UserIDsByRoles() = %v, want [u1 u2]", ids)
	}
}

func TestRESTDirectoryEmptyRolesSkipsCall(t *testing.T) {
	t.Parallel()

	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer server.Close()

	d, err := NewRESTDirectory(server.URL)
	if err != nil {
		t.Fatalf("NewRESTDirectory() error = %v", err)
	}

	ids, err := d.UserIDsByRoles(context.Background(), nil)
	if err != nil {
		t.Fatalf("UserIDsByRoles() unexpected error = %v", err)
	}
	if ids != nil {
		t.Fatalf("UserIDsByRoles() = %v, want nil", ids)
	}
	if calls != 0 {
		t.Fatalf("directory was called %d times, want 0", calls)
	}
}

func TestRESTDirectoryNonOKStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer server.Close()

	d, err := NewRESTDirectory(server.URL)
	if err != nil {
		t.Fatalf("NewRESTDirectory() error = %v", err)
	}

	_, err = d.UserIDsByRoles(context.Background(), []string{"admin"})
	if err == nil {
		t.Fatal("expected error for non-200 status")
	}
}

func TestNewRESTDirectoryValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewRESTDirectory(""); err == nil {
		t.Fatal("expected error for empty endpoint")
	}
	if _, err := NewRESTDirectory("not a url"); err == nil {
		t.Fatal("expected error for invalid endpoint")
	}
}
