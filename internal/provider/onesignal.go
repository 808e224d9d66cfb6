package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pavra/push-dispatch/internal/domain"
)

const defaultSendTimeout = 10 * time.Second

// DefaultEndpoint is the OneSignal create-notification endpoint.
const DefaultEndpoint = "https://api.onesignal.com/notifications"

type oneSignalResponse struct {
	ID         string `json:"id"`
	Recipients *int   `json:"recipients"`
}

// OneSignalProvider performs the authenticated create-notification call.
// One attempt per invocation; retry policy belongs to the caller.
type OneSignalProvider struct {
	client   *resty.Client
	endpoint string
	apiKey   string
}

func NewOneSignalProvider(endpoint, apiKey string) (*OneSignalProvider, error) {
	client := resty.New()
	client.SetTimeout(defaultSendTimeout)
	client.SetRetryCount(0)

	return NewOneSignalProviderWithClient(endpoint, apiKey, client)
}

func NewOneSignalProviderWithClient(endpoint, apiKey string, client *resty.Client) (*OneSignalProvider, error) {
	trimmedEndpoint := strings.TrimSpace(endpoint)
	if trimmedEndpoint == "" {
		trimmedEndpoint = DefaultEndpoint
	}
	if _, err := url.ParseRequestURI(trimmedEndpoint); err != nil {
		return nil, fmt.Errorf("invalid provider endpoint: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultSendTimeout)
	}
	client.SetRetryCount(0)

	return &OneSignalProvider{
		client:   client,
		endpoint: trimmedEndpoint,
		apiKey:   strings.TrimSpace(apiKey),
	}, nil
}

// Send submits the payload to OneSignal. The credentials check happens before
// any network traffic.
func (p *OneSignalProvider) Send(ctx context.Context, payload *Payload) (*Result, error) {
	if p == nil || p.client == nil {
		return nil, fmt.Errorf("provider is not initialized")
	}
	if payload == nil {
		return nil, fmt.Errorf("payload is required")
	}
	if p.apiKey == "" {
		return nil, fmt.Errorf("%w: ONESIGNAL_REST_API_KEY is not configured", domain.ErrMissingCredentials)
	}
	if strings.TrimSpace(payload.AppID) == "" {
		return nil, fmt.Errorf("%w: ONESIGNAL_APP_ID is not configured", domain.ErrMissingCredentials)
	}

	response, err := p.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Authorization", "Basic "+p.apiKey).
		SetBody(payload).
		Post(p.endpoint)
	if err != nil {
		return nil, &ProviderError{Cause: err}
	}
	if response == nil {
		return nil, &ProviderError{Cause: fmt.Errorf("empty response")}
	}

	statusCode := response.StatusCode()
	responseBody := strings.TrimSpace(response.String())

	if statusCode < http.StatusOK || statusCode >= http.StatusMultipleChoices {
		return nil, &ProviderError{
			StatusCode: statusCode,
			Body:       responseBody,
		}
	}

	var parsed oneSignalResponse
	if err := json.Unmarshal(response.Body(), &parsed); err != nil {
		return nil, &ProviderError{
			StatusCode: statusCode,
			Body:       responseBody,
			Cause:      fmt.Errorf("failed to parse provider response: %w", err),
		}
	}

	recipients := 0
	if parsed.Recipients != nil {
		recipients = *parsed.Recipients
	}

	return &Result{
		ProviderID: parsed.ID,
		Recipients: recipients,
	}, nil
}
