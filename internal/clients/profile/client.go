// Package profile pushes progress snapshots to the external profile service
package profile

//go:generate mockgen -destination=mock/mock_client.go -package=profilemock github.com/KirkDiggler/cyber-arena/internal/clients/profile Client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/KirkDiggler/cyber-arena/internal/entities"
	"github.com/KirkDiggler/cyber-arena/internal/errors"
)

// Client defines the profile service operations
type Client interface {
	// PushSnapshot replaces the stored progress document for a player
	PushSnapshot(ctx context.Context, snapshot *entities.ProgressSnapshot) error
}

// Config contains configuration options for the profile client.
type Config struct {
	// BaseURL of the profile service, e.g. http://localhost:5000
	BaseURL string
	// HTTPTimeout for requests (optional, defaults to 10 seconds)
	HTTPTimeout time.Duration
	// HTTPClient overrides the default client (optional)
	HTTPClient *http.Client
}

// Validate validates the Config and sets defaults if not provided.
func (cfg *Config) Validate() error {
	vb := errors.NewValidationBuilder()
	errors.ValidateRequired("BaseURL", cfg.BaseURL, vb)
	if cfg.BaseURL != "" {
		if _, err := url.Parse(cfg.BaseURL); err != nil {
			vb.Fieldf("BaseURL", "invalid url: %v", err)
		}
	}
	if err := vb.Build(); err != nil {
		return err
	}

	if cfg.HTTPTimeout == 0 {
		cfg.HTTPTimeout = 10 * time.Second
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.HTTPTimeout}
	}
	return nil
}

type client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new profile client with the given configuration.
func New(cfg *Config) (Client, error) {
	if cfg == nil {
		return nil, errors.InvalidArgument("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	return &client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: cfg.HTTPClient,
	}, nil
}

// SnapshotPath returns the request path for a player's progress document
func SnapshotPath(playerID string) string {
	return "/api/profile/" + url.PathEscape(playerID) + "/progress"
}

func (c *client) PushSnapshot(ctx context.Context, snapshot *entities.ProgressSnapshot) error {
	if snapshot == nil || snapshot.PlayerID == "" {
		return errors.InvalidArgument("snapshot with player ID is required")
	}

	body, err := json.Marshal(snapshot)
	if err != nil {
		return errors.Wrap(err, "failed to encode snapshot")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+SnapshotPath(snapshot.PlayerID), bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "failed to build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.WrapWithCode(err, errors.CodeUnavailable, "profile service unreachable")
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return errors.NotFoundf("profile for player %s not found", snapshot.PlayerID)
	case resp.StatusCode >= 500:
		return errors.Unavailablef("profile service returned %d", resp.StatusCode)
	default:
		return errors.InvalidArgumentf("profile service rejected snapshot: %d", resp.StatusCode)
	}
}
