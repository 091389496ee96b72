// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 flagdeck Contributors

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/flagdeck/flagdeck/internal/observability"
)

var tracer = otel.Tracer("flagdeck/api")

// retryBase is the first backoff step between GET retries.
const retryBase = 100 * time.Millisecond

// maxErrorBody bounds how much of a failed response is read for its detail.
const maxErrorBody = 64 << 10

// TokenSource yields the current session token, if any.
type TokenSource interface {
	Token() (string, bool)
}

// Config configures a Gateway.
type Config struct {
	// BaseURL is the platform root, e.g. "http://localhost:8000".
	BaseURL string
	// Timeout bounds each attempt. Zero means no client-side timeout.
	Timeout time.Duration
	// Retries is how many extra attempts a GET gets after a transport failure.
	Retries uint64
}

// Option configures optional Gateway dependencies.
type Option func(*Gateway)

// WithHTTPClient replaces the HTTP client. Its Timeout is overridden by Config.Timeout.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Gateway) { g.client = c }
}

// WithLogger sets the gateway logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Gateway) { g.logger = l }
}

// WithMetrics records request counts and latency.
func WithMetrics(m *observability.Metrics) Option {
	return func(g *Gateway) { g.metrics = m }
}

// Gateway performs requests against the platform.
type Gateway struct {
	base    *url.URL
	tokens  TokenSource
	client  *http.Client
	retries uint64
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New creates a Gateway. tokens supplies the bearer token for authenticated requests.
func New(cfg Config, tokens TokenSource, opts ...Option) (*Gateway, error) {
	if tokens == nil {
		return nil, oops.Code(CodeInvalidConfig).Errorf("token source is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, oops.Code(CodeInvalidConfig).With("base_url", cfg.BaseURL).Wrap(err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, oops.Code(CodeInvalidConfig).
			With("base_url", cfg.BaseURL).
			Errorf("base url must be http or https")
	}

	g := &Gateway{
		base:    base,
		tokens:  tokens,
		client:  &http.Client{},
		retries: cfg.Retries,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.client == nil {
		g.client = &http.Client{}
	}
	if g.logger == nil {
		g.logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Timeout > 0 {
		client := *g.client
		client.Timeout = cfg.Timeout
		g.client = &client
	}
	return g, nil
}

// BaseURL returns the platform root the gateway talks to.
func (g *Gateway) BaseURL() string {
	return g.base.String()
}

// Get sends a GET and decodes a 2xx body into out.
func (g *Gateway) Get(ctx context.Context, path string, authenticated bool, out any) error {
	return g.do(ctx, http.MethodGet, path, nil, "", authenticated, out)
}

// PostJSON sends body as JSON.
func (g *Gateway) PostJSON(ctx context.Context, path string, body any, authenticated bool, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return oops.Code(CodeRequestFailed).With("path", path).Wrapf(err, "encode request body")
	}
	return g.do(ctx, http.MethodPost, path, payload, "application/json", authenticated, out)
}

// PostForm sends form as application/x-www-form-urlencoded.
func (g *Gateway) PostForm(ctx context.Context, path string, form url.Values, authenticated bool, out any) error {
	return g.do(ctx, http.MethodPost, path, []byte(form.Encode()),
		"application/x-www-form-urlencoded", authenticated, out)
}

// Delete sends a DELETE.
func (g *Gateway) Delete(ctx context.Context, path string, authenticated bool, out any) error {
	return g.do(ctx, http.MethodDelete, path, nil, "", authenticated, out)
}

func (g *Gateway) do(
	ctx context.Context,
	method, path string,
	body []byte,
	contentType string,
	authenticated bool,
	out any,
) (err error) {
	ctx, span := tracer.Start(ctx, "api."+strings.ToLower(method),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", path),
			attribute.Bool("flagdeck.authenticated", authenticated),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	var (
		status int
		data   []byte
	)
	attempt := func(ctx context.Context) error {
		start := time.Now()
		var sendErr error
		status, data, sendErr = g.send(ctx, method, path, body, contentType, authenticated)
		if sendErr != nil {
			g.metrics.ObserveRequest(method, "network_error", time.Since(start))
			return sendErr
		}
		g.metrics.ObserveRequest(method, strconv.Itoa(status), time.Since(start))
		return nil
	}

	if method == http.MethodGet && g.retries > 0 {
		backoff := retry.WithMaxRetries(g.retries, retry.NewExponential(retryBase))
		err = retry.Do(ctx, backoff, func(ctx context.Context) error {
			if sendErr := attempt(ctx); sendErr != nil {
				g.logger.DebugContext(ctx, "request attempt failed", "method", method, "path", path, "error", sendErr)
				return retry.RetryableError(sendErr)
			}
			return nil
		})
	} else {
		err = attempt(ctx)
	}
	if err != nil {
		netErr := &NetworkError{Method: method, Path: path, Err: err}
		g.logger.WarnContext(ctx, "request failed", "method", method, "path", path, "error", err)
		return oops.Code(CodeNetworkFailed).With("method", method).With("path", path).Wrap(netErr)
	}

	span.SetAttributes(attribute.Int("http.response.status_code", status))

	if status < 200 || status > 299 {
		reqErr := newRequestError(status, data)
		g.logger.DebugContext(ctx, "request rejected",
			"method", method, "path", path, "status", status, "detail", reqErr.Detail)
		return oops.Code(CodeRequestFailed).
			With("method", method).
			With("path", path).
			With("status", status).
			Wrap(reqErr)
	}

	g.logger.DebugContext(ctx, "request ok", "method", method, "path", path, "status", status)

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if decodeErr := json.Unmarshal(data, out); decodeErr != nil {
		return oops.Code(CodeRequestFailed).
			With("method", method).
			With("path", path).
			With("status", status).
			Wrapf(decodeErr, "decode response")
	}
	return nil
}

// send performs one HTTP round trip and returns the status and full body.
func (g *Gateway) send(
	ctx context.Context,
	method, path string,
	body []byte,
	contentType string,
	authenticated bool,
) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, g.resolve(path), reader)
	if err != nil {
		return 0, nil, err //nolint:wrapcheck // wrapped as NetworkError by caller
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if authenticated {
		if token, ok := g.tokens.Token(); ok {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return 0, nil, err //nolint:wrapcheck // wrapped as NetworkError by caller
	}
	defer func() { _ = resp.Body.Close() }()

	reader = resp.Body
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		reader = io.LimitReader(resp.Body, maxErrorBody)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return 0, nil, err //nolint:wrapcheck // wrapped as NetworkError by caller
	}
	return resp.StatusCode, data, nil
}

func (g *Gateway) resolve(path string) string {
	return g.base.String() + "/" + strings.TrimLeft(path, "/")
}
