package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pavra/push-dispatch/internal/audience"
)

const defaultLookupTimeout = 5 * time.Second

var _ audience.Directory = (*RESTDirectory)(nil)

type lookupRequest struct {
	Roles []string `json:"roles"`
}

type lookupResponse struct {
	UserIDs []string `json:"userIds"`
}

// RESTDirectory queries an external user-directory endpoint for role-based
// audience resolution. Used when the directory does not share the
// notification store's database.
type RESTDirectory struct {
	client   *resty.Client
	endpoint string
}

func NewRESTDirectory(endpoint string) (*RESTDirectory, error) {
	client := resty.New()
	client.SetTimeout(defaultLookupTimeout)
	client.SetRetryCount(0)

	return NewRESTDirectoryWithClient(endpoint, client)
}

func NewRESTDirectoryWithClient(endpoint string, client *resty.Client) (*RESTDirectory, error) {
	trimmedEndpoint := strings.TrimSpace(endpoint)
	if trimmedEndpoint == "" {
		return nil, fmt.Errorf("directory endpoint is required")
	}
	if _, err := url.ParseRequestURI(trimmedEndpoint); err != nil {
		return nil, fmt.Errorf("invalid directory endpoint: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	return &RESTDirectory{
		client:   client,
		endpoint: trimmedEndpoint,
	}, nil
}

func (d *RESTDirectory) UserIDsByRoles(ctx context.Context, roles []string) ([]string, error) {
	if d == nil || d.client == nil {
		return nil, fmt.Errorf("directory is not initialized")
	}
	if len(roles) == 0 {
		return nil, nil
	}

	response, err := d.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(lookupRequest{Roles: roles}).
		Post(d.endpoint)
	if err != nil {
		return nil, fmt.Errorf("directory request failed: %w", err)
	}

	if response.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("directory returned status %d: %s", response.StatusCode(), strings.TrimSpace(response.String()))
	}

	var parsed lookupResponse
	if err := json.Unmarshal(response.Body(), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse directory response: %w", err)
	}

	return parsed.UserIDs, nil
}
