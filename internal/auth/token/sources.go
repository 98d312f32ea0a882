package token

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/pysugar/ads-account-gateway/internal/util"
	"golang.org/x/oauth2"
)

// ErrRevoked marks a refresh token the identity provider will never accept
// again. The user has to consent again.
var ErrRevoked = errors.New("refresh token revoked or invalid")

// Sources hands out access tokens for refresh tokens, reusing each token
// until shortly before it expires.
type Sources struct {
	config     *oauth2.Config
	httpClient *http.Client

	mu      sync.Mutex
	sources map[string]oauth2.TokenSource
}

// NewSources creates a Sources for the OAuth client in config.
func NewSources(config *oauth2.Config) *Sources {
	return &Sources{
		config:  config,
		sources: make(map[string]oauth2.TokenSource),
	}
}

// WithHTTPClient sets the client used for token endpoint calls.
func (s *Sources) WithHTTPClient(c *http.Client) *Sources {
	s.httpClient = c
	return s
}

// AccessToken returns a valid bearer token for refreshToken.
func (s *Sources) AccessToken(ctx context.Context, refreshToken string) (string, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return "", fmt.Errorf("refresh token is empty")
	}

	tok, err := s.source(refreshToken).Token()
	if err != nil {
		if isPermanentRefreshError(err) {
			s.Forget(refreshToken)
			log.Printf("🔒 Refresh token %s rejected permanently: %v", util.MaskSecret(refreshToken), err)
			return "", fmt.Errorf("%w: %v", ErrRevoked, err)
		}
		log.Printf("⏳ Transient refresh failure for %s: %v", util.MaskSecret(refreshToken), err)
		return "", fmt.Errorf("refresh access token: %w", err)
	}
	return tok.AccessToken, nil
}

// Check exchanges refreshToken for a fresh access token, bypassing the cache.
func (s *Sources) Check(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	tok, err := s.config.TokenSource(s.tokenContext(ctx), &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		if isPermanentRefreshError(err) {
			return nil, fmt.Errorf("%w: %v", ErrRevoked, err)
		}
		return nil, err
	}
	return tok, nil
}

// Forget drops the cached source for refreshToken.
func (s *Sources) Forget(refreshToken string) {
	s.mu.Lock()
	delete(s.sources, refreshToken)
	s.mu.Unlock()
}

func (s *Sources) source(refreshToken string) oauth2.TokenSource {
	s.mu.Lock()
	defer s.mu.Unlock()
	if src, ok := s.sources[refreshToken]; ok {
		return src
	}
	// Refreshes outlive any single request, so the source is bound to a
	// background context.
	src := s.config.TokenSource(s.tokenContext(context.Background()), &oauth2.Token{RefreshToken: refreshToken})
	s.sources[refreshToken] = src
	return src
}

func (s *Sources) tokenContext(ctx context.Context) context.Context {
	if s.httpClient != nil {
		return context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	}
	return ctx
}

func isPermanentRefreshError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	permanentMarkers := []string{
		"invalid_grant",
		"invalid_client",
		"unauthorized_client",
		"token has been expired or revoked",
		"revoked",
	}
	for _, marker := range permanentMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
