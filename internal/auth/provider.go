package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Provider resolves a bearer token to a caller identity. Resolution happens on
// every request; providers must not cache role lookups.
type Provider interface {
	Resolve(ctx context.Context, token string) (Caller, error)
}

// ChainProvider tries providers in order and returns the first successful
// resolution. A token unknown to every provider resolves to Anonymous.
type ChainProvider []Provider

// Resolve implements Provider.
func (p ChainProvider) Resolve(ctx context.Context, token string) (Caller, error) {
	for _, provider := range p {
		caller, err := provider.Resolve(ctx, token)
		if err != nil {
			return Anonymous, err
		}
		if caller != Anonymous {
			return caller, nil
		}
	}
	return Anonymous, nil
}

// StaticTokenProvider recognizes pre-shared service tokens from configuration.
// Matching tokens resolve to a trusted service identity.
type StaticTokenProvider struct {
	tokens map[string]struct{}
}

// NewStaticTokenProvider creates a provider over the given service tokens.
func NewStaticTokenProvider(tokens []string) *StaticTokenProvider {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if t != "" {
			set[t] = struct{}{}
		}
	}
	return &StaticTokenProvider{tokens: set}
}

// Resolve implements Provider.
func (p *StaticTokenProvider) Resolve(_ context.Context, token string) (Caller, error) {
	if _, ok := p.tokens[token]; ok {
		return Caller{Subject: "service", IsService: true}, nil
	}
	return Anonymous, nil
}

// HTTPProvider resolves tokens against the external auth/role provider's
// profile endpoint.
type HTTPProvider struct {
	client *resty.Client
}

// profileResponse is the auth provider's profile payload.
type profileResponse struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role"`
}

// NewHTTPProvider creates a provider bound to the auth service base URL.
func NewHTTPProvider(baseURL string, timeout time.Duration) *HTTPProvider {
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(timeout)
	client.SetHeader("Content-Type", "application/json")

	return &HTTPProvider{client: client}
}

// Resolve implements Provider. Unknown or expired tokens resolve to Anonymous
// rather than an error, so the permission gate decides the outcome.
func (p *HTTPProvider) Resolve(ctx context.Context, token string) (Caller, error) {
	if token == "" {
		return Anonymous, nil
	}

	var profile profileResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetResult(&profile).
		Get("/v1/profile")
	if err != nil {
		return Anonymous, fmt.Errorf("auth provider request failed: %w", err)
	}

	if resp.StatusCode() == 401 || resp.StatusCode() == 403 || resp.StatusCode() == 404 {
		return Anonymous, nil
	}
	if resp.IsError() {
		return Anonymous, fmt.Errorf("auth provider returned status %d", resp.StatusCode())
	}

	return Caller{Subject: profile.ID, Role: Role(profile.Role)}, nil
}
