package recognition

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"itemcam/internal/logger"
	"itemcam/internal/retry"

	"golang.org/x/sync/singleflight"
)

const (
	tokenFetchTimeout  = 5 * time.Second
	tokenRefreshMargin = 5 * time.Minute
	defaultTokenTTL    = 3600
)

// TokenSource caches the provider access token and refreshes it 5 minutes
// before it expires. Concurrent callers share a single in-flight refresh.
type TokenSource struct {
	httpClient *http.Client
	tokenURL   string
	apiKey     string
	secretKey  string
	now        func() time.Time
	logger     *logger.Logger

	group singleflight.Group

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

func NewTokenSource(httpClient *http.Client, tokenURL, apiKey, secretKey string, logger *logger.Logger) *TokenSource {
	return &TokenSource{
		httpClient: httpClient,
		tokenURL:   tokenURL,
		apiKey:     apiKey,
		secretKey:  secretKey,
		now:        time.Now,
		logger:     logger,
	}
}

type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	ExpiresIn        int    `json:"expires_in"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (s *TokenSource) cached() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && s.now().Before(s.expiresAt) {
		return s.token, true
	}
	return "", false
}

func (s *TokenSource) Token(ctx context.Context) (string, error) {
	if token, ok := s.cached(); ok {
		return token, nil
	}
	if s.apiKey == "" || s.secretKey == "" {
		return "", ErrNotConfigured
	}

	ch := s.group.DoChan("token", func() (interface{}, error) {
		if token, ok := s.cached(); ok {
			return token, nil
		}
		// The refresh outlives any single caller, it is shared.
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), tokenFetchTimeout)
		defer cancel()
		return s.fetch(fctx)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (s *TokenSource) fetch(ctx context.Context) (string, error) {
	start := time.Now()

	q := url.Values{}
	q.Set("grant_type", "client_credentials")
	q.Set("client_id", s.apiKey)
	q.Set("client_secret", s.secretKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", &retry.StatusError{Op: "token", Code: resp.StatusCode, Body: string(body)}
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("%w: token: %v", ErrMalformed, err)
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("token rejected: %s %s", tr.Error, tr.ErrorDescription)
	}

	expiresIn := tr.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = defaultTokenTTL
	}

	s.mu.Lock()
	s.token = tr.AccessToken
	s.expiresAt = s.now().Add(time.Duration(expiresIn)*time.Second - tokenRefreshMargin)
	s.mu.Unlock()

	s.logger.Info("🔑 Recognition token refreshed in %v", time.Since(start).Round(time.Millisecond))
	return tr.AccessToken, nil
}

// Invalidate forgets the cached token so the next call refreshes it.
func (s *TokenSource) Invalidate() {
	s.mu.Lock()
	s.token = ""
	s.expiresAt = time.Time{}
	s.mu.Unlock()
}
