package remoteapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	bridge "github.com/goliatone/go-auth-bridge"
)

// Name is the registry key of this provider.
const Name = bridge.ProviderRemoteAPI

const maxBodySize = 1 << 20

// Provider resolves tokens against a remote user endpoint.
type Provider struct {
	endpoint string
	timeout  time.Duration
	client   *http.Client
	logger   bridge.Logger
}

// New creates a provider. BaseURL is required.
func New(cfg Config) (*Provider, error) {
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	if cfg.BaseURL == "" {
		return nil, bridge.ConfigError("remote_api: base_url is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = bridge.DefaultHTTPTimeout * time.Second
	}

	client := cfg.HTTPClient
	if client == nil {
		client = bridge.NewHTTPClient(timeout, cfg.ConnectTimeout)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = bridge.NopLogger()
	}

	return &Provider{
		endpoint: cfg.endpoint(),
		timeout:  timeout,
		client:   client,
		logger:   logger,
	}, nil
}

// Authenticate implements bridge.Provider.
func (p *Provider) Authenticate(ctx context.Context, token string, headers map[string]string) (*bridge.Payload, error) {
	ctx, span := otel.Tracer("github.com/goliatone/go-auth-bridge/provider/remoteapi").Start(ctx, "remoteapi.authenticate")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint, nil)
	if err != nil {
		return nil, p.rejected("unable to build user request", err, 0)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	for name, value := range headers {
		if value != "" {
			req.Header.Set(name, value)
		}
	}

	res, err := p.client.Do(req)
	if err != nil {
		span.RecordError(err)
		return nil, p.rejected("user endpoint unreachable", err, 0)
	}
	defer res.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", res.StatusCode))

	if res.StatusCode < 200 || res.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, maxBodySize))
		return nil, p.rejected(fmt.Sprintf("user endpoint returned %d", res.StatusCode), nil, res.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, maxBodySize))
	if err != nil {
		return nil, p.rejected("unable to read user response", err, res.StatusCode)
	}

	user, err := decodeUser(body)
	if err != nil {
		return nil, p.rejected("unexpected user payload shape", err, res.StatusCode)
	}

	return bridge.PayloadFromMap(user)
}

// CacheKeyPrefix implements bridge.Provider.
func (p *Provider) CacheKeyPrefix() string {
	return bridge.ProviderRemoteAPI
}

// Endpoint returns the resolved user endpoint.
func (p *Provider) Endpoint() string {
	return p.endpoint
}

// decodeUser accepts {"data": {...}} or a bare object. Anything else,
// including a non object envelope, is rejected. Numbers are kept as
// json.Number so 64 bit ids survive intact.
func decodeUser(body []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var decoded any
	if err := dec.Decode(&decoded); err != nil {
		return nil, err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after user object")
	}

	object, ok := decoded.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected JSON object, got %T", decoded)
	}

	envelope, ok := object["data"]
	if !ok {
		return object, nil
	}

	data, ok := envelope.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected data to be an object, got %T", envelope)
	}

	return data, nil
}

func (p *Provider) rejected(reason string, cause error, status int) error {
	meta := map[string]any{"endpoint": p.endpoint}
	if status > 0 {
		meta["status"] = status
	}
	p.logger.Debug("remote authentication rejected: %s", reason)
	return bridge.AuthFailure(bridge.ErrRemoteAuthRejected, reason, cause, meta)
}

var _ bridge.Provider = (*Provider)(nil)
