// Package client is a Go client for the docfs command endpoints.
//
// Requests go through resty on top of a retryablehttp transport. Only
// connection failures and 429/502/503/504 are retried: a 500 from docfs
// describes a filesystem fault that will not go away on its own. With
// BreakerThreshold set, a server that stays unavailable after retries trips
// a circuit and further calls fail fast with ErrCircuitOpen.
//
// Example Usage:
//
//	c, err := client.New(client.Config{BaseURL: "http://localhost:8080"})
//	if err := c.Write(ctx, "tmp/a.txt", []byte("hello")); err != nil {
//		return err
//	}
//	content, err := c.Read(ctx, "tmp/a.txt")
//	if errors.Is(err, client.ErrNotFound) {
//		// 404
//	}
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/GriffinCanCode/docfs/internal/infrastructure/logging"
	"github.com/GriffinCanCode/docfs/internal/infrastructure/tracing"
)

// ErrNotFound matches any error for a 404 response.
var ErrNotFound = errors.New("not found")

// Config configures a Client.
type Config struct {
	BaseURL      string
	Timeout      time.Duration
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	// RequestsPerSecond throttles outgoing requests when positive.
	RequestsPerSecond float64
	UserAgent         string
	// BreakerThreshold is the number of consecutive unavailable responses
	// that open the circuit. Zero disables the circuit.
	BreakerThreshold int
	BreakerCooldown  time.Duration
	Logger           *logging.Logger
}

// DefaultConfig returns the settings used for zero fields.
func DefaultConfig() Config {
	return Config{
		BaseURL:      "http://localhost:8080",
		Timeout:      30 * time.Second,
		RetryMax:     3,
		RetryWaitMin: 100 * time.Millisecond,
		RetryWaitMax: 5 * time.Second,
		UserAgent:    "docfs-client/1.0",

		BreakerCooldown: 30 * time.Second,
	}
}

// Content is the result of a read.
type Content struct {
	Body        []byte
	ContentType string
}

// StatusError reports a non-200 response. The body is the server's
// plain-text description.
type StatusError struct {
	Command    string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: %d %s: %s",
		e.Command, e.Path, e.StatusCode, http.StatusText(e.StatusCode), e.Body)
}

// Is makes errors.Is(err, ErrNotFound) true for 404 responses.
func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// Client talks to a docfs server.
type Client struct {
	resty   *resty.Client
	limiter *rate.Limiter
	circuit *circuit
	logger  *logging.Logger
}

// New creates a client. Zero Config fields take DefaultConfig values.
func New(cfg Config) (*Client, error) {
	def := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.RetryWaitMin == 0 {
		cfg.RetryWaitMin = def.RetryWaitMin
	}
	if cfg.RetryWaitMax == 0 {
		cfg.RetryWaitMax = def.RetryWaitMax
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	if cfg.BreakerCooldown == 0 {
		cfg.BreakerCooldown = def.BreakerCooldown
	}
	if cfg.RetryMax < 0 {
		return nil, fmt.Errorf("invalid retry count %d", cfg.RetryMax)
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNop()
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", cfg.BaseURL)
	}

	logger := cfg.Logger.Named("client")

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.RetryMax
	retryClient.RetryWaitMin = cfg.RetryWaitMin
	retryClient.RetryWaitMax = cfg.RetryWaitMax
	retryClient.CheckRetry = retryPolicy
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	retryClient.Logger = leveledLogger{logger.Sugar()}

	restyClient := resty.NewWithClient(retryClient.StandardClient()).
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", cfg.UserAgent)

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	var cb *circuit
	if cfg.BreakerThreshold > 0 {
		cb = newCircuit(cfg.BreakerThreshold, cfg.BreakerCooldown, logger)
	}

	return &Client{
		resty:   restyClient,
		limiter: limiter,
		circuit: cb,
		logger:  logger,
	}, nil
}

// Mkdir creates a directory and its parents.
func (c *Client) Mkdir(ctx context.Context, path string) error {
	_, err := c.do(ctx, http.MethodGet, "mkdir", path, nil)
	return err
}

// Read returns a file, or an entry inside a .zip or .docx file.
func (c *Client) Read(ctx context.Context, path string) (*Content, error) {
	resp, err := c.do(ctx, http.MethodGet, "read", path, nil)
	if err != nil {
		return nil, err
	}
	return &Content{
		Body:        resp.Body(),
		ContentType: resp.Header().Get("Content-Type"),
	}, nil
}

// Write replaces the file at path with data.
func (c *Client) Write(ctx context.Context, path string, data []byte) error {
	if data == nil {
		data = []byte{}
	}
	_, err := c.do(ctx, http.MethodPost, "write", path, data)
	return err
}

// Remove deletes a file or empty directory. Missing targets are not errors.
func (c *Client) Remove(ctx context.Context, path string) error {
	_, err := c.do(ctx, http.MethodPost, "remove", path, nil)
	return err
}

// Mkdocx asks the server to package the directory at path.
func (c *Client) Mkdocx(ctx context.Context, path string) error {
	_, err := c.do(ctx, http.MethodPost, "mkdocx", path, nil)
	return err
}

func (c *Client) do(ctx context.Context, method, command, path string, body []byte) (*resty.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	if err := c.circuit.allow(); err != nil {
		return nil, fmt.Errorf("%s %s: %w", command, path, err)
	}

	headers := map[string]string{}
	tracing.InjectTraceContext(ctx, headers)

	req := c.resty.R().
		SetContext(ctx).
		SetHeaders(headers)
	if body != nil {
		req.SetHeader("Content-Type", "application/octet-stream").SetBody(body)
	}

	resp, err := req.Execute(method, "/"+command+"/"+EscapePath(path))
	if err != nil {
		if ctx.Err() != nil {
			c.circuit.release()
		} else {
			c.circuit.record(true)
		}
		return nil, fmt.Errorf("%s %s: %w", command, path, err)
	}

	c.logger.Debug("Request completed",
		zap.String("command", command),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode()),
		zap.String("trace_id", resp.Header().Get(tracing.TraceHeader)))
	c.circuit.record(unavailable(resp.StatusCode(), nil))

	if resp.StatusCode() != http.StatusOK {
		return resp, &StatusError{
			Command:    command,
			Path:       path,
			StatusCode: resp.StatusCode(),
			Body:       string(resp.Body()),
		}
	}
	return resp, nil
}

// EscapePath escapes each segment of a slash-separated path.
func EscapePath(path string) string {
	segments := strings.Split(path, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}

// retryPolicy retries connection errors and overload statuses only.
func retryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}
	switch resp.StatusCode {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true, nil
	}
	return false, nil
}

// leveledLogger adapts zap to retryablehttp.LeveledLogger.
type leveledLogger struct {
	s *zap.SugaredLogger
}

func (l leveledLogger) Error(msg string, kv ...interface{}) { l.s.Errorw(msg, kv...) }
func (l leveledLogger) Info(msg string, kv ...interface{})  { l.s.Debugw(msg, kv...) }
func (l leveledLogger) Debug(msg string, kv ...interface{}) { l.s.Debugw(msg, kv...) }
func (l leveledLogger) Warn(msg string, kv ...interface{})  { l.s.Warnw(msg, kv...) }
