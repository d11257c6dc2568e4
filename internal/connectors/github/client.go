package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v80/github"
	"golang.org/x/oauth2"

	"github.com/custodia-labs/coworker/internal/core/domain"
	"github.com/custodia-labs/coworker/internal/core/ports/driven"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 30 * time.Second

var _ driven.DiffSource = (*Client)(nil)

// Config configures the GitHub client.
type Config struct {
	// Token is a GitHub access token (required).
	Token string

	// BaseURL overrides the API endpoint, e.g. for GitHub Enterprise.
	BaseURL string

	Timeout time.Duration
}

// Client wraps the go-github client.
type Client struct {
	gh *gh.Client
}

// NewClient creates a GitHub client authenticated with a static token.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("%w: github token is required", domain.ErrValidation)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
	tc := oauth2.NewClient(context.Background(), ts)
	tc.Timeout = cfg.Timeout
	client := gh.NewClient(tc)

	if cfg.BaseURL != "" {
		base := cfg.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid github base url: %w", domain.ErrValidation, err)
		}
		client.BaseURL = u
	}

	return &Client{gh: client}, nil
}

// PullRequestDiff returns the unified diff of a pull request.
func (c *Client) PullRequestDiff(ctx context.Context, owner, repo string, number int) (string, error) {
	if owner == "" || repo == "" || number <= 0 {
		return "", fmt.Errorf("%w: owner, repo and a positive pull number are required", domain.ErrValidation)
	}
	diff, _, err := c.gh.PullRequests.GetRaw(ctx, owner, repo, number, gh.RawOptions{Type: gh.Diff})
	if err != nil {
		return "", mapError(err)
	}
	return diff, nil
}

// mapError translates go-github errors into domain errors.
func mapError(err error) error {
	var rateErr *gh.RateLimitError
	if errors.As(err, &rateErr) {
		return fmt.Errorf("github: %w, resets at %s", domain.ErrRateLimited,
			rateErr.Rate.Reset.Format(time.RFC3339))
	}
	var abuseErr *gh.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return fmt.Errorf("github: %w (secondary limit)", domain.ErrRateLimited)
	}
	var respErr *gh.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		switch respErr.Response.StatusCode {
		case http.StatusNotFound:
			return fmt.Errorf("github: pull request %w", domain.ErrNotFound)
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("github: %w: access denied (%d)", domain.ErrUpstream, respErr.Response.StatusCode)
		}
	}
	return fmt.Errorf("github: %w: %w", domain.ErrUpstream, err)
}
