package llmrest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/park285/llm-kakao-bots/bondhu-go/internal/common/httpclient"
)

const maxErrorBodyBytes = 4 << 10

// Config: LLM 서버 HTTP 통신 설정입니다.
type Config struct {
	BaseURL           string
	APIKey            string
	Timeout           time.Duration
	ConnectTimeout    time.Duration
	RequestsPerSecond float64 // 0 이하면 제한 없음
	EnableOTel        bool
}

// Client: LLM 서버와 HTTP(JSON)로 통신하기 위한 클라이언트입니다.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
	limiter *rate.Limiter
}

// HTTPError: LLM 서버가 2xx가 아닌 상태 코드로 응답했을 때의 에러입니다.
type HTTPError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("llm server %s %s returned %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// IsRetryable: 5xx/429 응답처럼 재시도할 가치가 있는 에러인지 판정합니다.
func IsRetryable(err error) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == http.StatusTooManyRequests || httpErr.StatusCode >= 500
	}
	return err != nil && !errors.Is(err, context.Canceled)
}

// New: 새로운 Client 인스턴스를 생성합니다. BaseURL 스킴은 http:// 또는 https:// 이어야 합니다.
func New(cfg Config) (*Client, error) {
	baseURL := strings.TrimSuffix(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	lower := strings.ToLower(baseURL)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return nil, fmt.Errorf("unsupported scheme: base url must start with http:// or https://, got %q", baseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &Client{
		http: httpclient.New(httpclient.Config{
			Timeout:        timeout,
			ConnectTimeout: cfg.ConnectTimeout,
			Traced:         cfg.EnableOTel,
		}),
		baseURL: baseURL,
		apiKey:  strings.TrimSpace(cfg.APIKey),
		limiter: limiter,
	}, nil
}

// Post: JSON 본문으로 POST 요청을 보내고 응답을 out에 디코딩합니다.
func (c *Client) Post(ctx context.Context, path string, in any, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request failed: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, bytes.NewReader(body), out)
}

// Get: GET 요청을 보내고 응답을 out에 디코딩합니다.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) do(ctx context.Context, method string, path string, body io.Reader, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("llm rate limiter wait failed: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request failed: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	if reqID := extractRequestID(ctx); reqID != "" {
		req.Header.Set("X-Request-Id", reqID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("llm request %s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return &HTTPError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode llm response failed: %w", err)
	}
	return nil
}

// requestIDKey: Context에서 Request ID를 저장하는 키 타입
type requestIDKey struct{}

func extractRequestID(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}

// WithRequestID: Context에 Request ID를 추가합니다. 요청 헤더(X-Request-Id)로 전파됩니다.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}
