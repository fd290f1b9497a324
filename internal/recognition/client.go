package recognition

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"itemcam/internal/logger"
	"itemcam/internal/retry"
)

const (
	defaultAttemptTimeout = 10 * time.Second
	defaultTimeoutStep    = 2 * time.Second
)

// Provider error codes that are worth another attempt.
const (
	codeInvalidToken = 110
	codeExpiredToken = 111
	codeQPSLimit     = 18
)

// Classifier returns ranked labels for an encoded image.
type Classifier interface {
	Classify(ctx context.Context, image []byte) ([]Label, error)
}

type Client struct {
	httpClient  *http.Client
	classifyURL string
	tokens      *TokenSource
	policy      retry.Policy
	logger      *logger.Logger

	attemptTimeout time.Duration
	timeoutStep    time.Duration
}

func NewClient(httpClient *http.Client, classifyURL string, tokens *TokenSource, policy retry.Policy, logger *logger.Logger) *Client {
	return &Client{
		httpClient:  httpClient,
		classifyURL: classifyURL,
		tokens:      tokens,
		policy:      policy,
		logger:      logger,

		attemptTimeout: defaultAttemptTimeout,
		timeoutStep:    defaultTimeoutStep,
	}
}

type classifyResponse struct {
	LogID     int64 `json:"log_id"`
	ResultNum int   `json:"result_num"`
	Result    []struct {
		Keyword   string  `json:"keyword"`
		Score     float64 `json:"score"`
		Root      string  `json:"root"`
		BaikeInfo struct {
			Description string `json:"description"`
		} `json:"baike_info"`
	} `json:"result"`
	ErrorCode int    `json:"error_code"`
	ErrorMsg  string `json:"error_msg"`
}

// Classify sends the image to the provider with bounded retry. Attempt n
// (from zero) gets 10s + 2s*n. Exhausted retriable failures come back as
// ErrTimeout or ErrUnavailable; permanent failures are returned unchanged.
func (c *Client) Classify(ctx context.Context, image []byte) ([]Label, error) {
	encoded := base64.StdEncoding.EncodeToString(image)

	var labels []Label
	err := c.policy.Do(ctx, func(ctx context.Context, attempt int) error {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return err
		}

		actx, cancel := context.WithTimeout(ctx, c.attemptTimeout+time.Duration(attempt)*c.timeoutStep)
		defer cancel()

		labels, err = c.classifyOnce(actx, token, encoded)
		if err != nil {
			c.logger.Warning("🔍 Recognition attempt %d failed: %v", attempt+1, err)
		}
		return err
	})
	if err == nil {
		return labels, nil
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
	case retry.IsRetriable(err):
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	default:
		return nil, err
	}
}

func (c *Client) classifyOnce(ctx context.Context, token, encoded string) ([]Label, error) {
	form := url.Values{}
	form.Set("image", encoded)
	form.Set("baike_num", "1")

	endpoint := c.classifyURL + "?access_token=" + url.QueryEscape(token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build classify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &retry.StatusError{Op: "classify", Code: resp.StatusCode, Body: string(body)}
	}

	var cr classifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if cr.ErrorCode != 0 {
		perr := &ProviderError{Code: cr.ErrorCode, Message: cr.ErrorMsg}
		switch cr.ErrorCode {
		case codeInvalidToken, codeExpiredToken:
			c.tokens.Invalidate()
			return nil, retry.Temporary(perr)
		case codeQPSLimit:
			return nil, retry.Temporary(perr)
		default:
			return nil, perr
		}
	}

	labels := make([]Label, 0, len(cr.Result))
	for _, r := range cr.Result {
		labels = append(labels, Label{
			Keyword:     r.Keyword,
			Score:       r.Score,
			Root:        r.Root,
			Description: r.BaikeInfo.Description,
		})
	}
	return labels, nil
}
