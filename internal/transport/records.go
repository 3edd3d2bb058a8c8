// Package transport issues calls to the remote user service.
// Every operation performs exactly one HTTP round trip: no retries,
// no caching, no batching.
package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/userdash/userdash/internal/metrics"
	"github.com/userdash/userdash/internal/model"
)

// UserAgent is sent with every request to the user service.
const UserAgent = "userdash/1.0"

// tracerName identifies spans created by this package.
const tracerName = "github.com/userdash/userdash/internal/transport"

// maxDrainBytes bounds how much of an unread body is consumed before close.
const maxDrainBytes = 64 << 10

// Endpoints holds one URL per remote operation.
type Endpoints struct {
	List    string
	GetByID string
	Create  string
	Update  string
	Delete  string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets the logger used for call diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(recorder metrics.Recorder) Option {
	return func(c *Client) {
		if recorder != nil {
			c.metrics = recorder
		}
	}
}

// WithTracerProvider sets the tracer provider. The global provider is used otherwise.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) {
		if tp != nil {
			c.tracer = tp.Tracer(tracerName)
		}
	}
}

// Client calls the remote user service.
type Client struct {
	endpoints Endpoints
	http      *http.Client
	logger    *slog.Logger
	metrics   metrics.Recorder
	tracer    trace.Tracer
	validate  *validator.Validate
}

// New creates a Client for the given endpoints.
func New(endpoints Endpoints, opts ...Option) *Client {
	c := &Client{
		endpoints: endpoints,
		http:      NewHTTPClient(0),
		logger:    slog.Default(),
		metrics:   metrics.NewNoop(),
		tracer:    otel.Tracer(tracerName),
		validate:  validator.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "transport")
	return c
}

// ListAll fetches every user record, in service order.
func (c *Client) ListAll(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := c.do(ctx, OpList, http.MethodGet, c.endpoints.List, "", nil, &users); err != nil {
		return nil, err
	}
	if users == nil {
		users = []model.User{}
	}
	return users, nil
}

// GetByID fetches a single user. A missing user surfaces as an Error with status 404.
func (c *Client) GetByID(ctx context.Context, id string) (*model.User, error) {
	if err := c.checkID(id); err != nil {
		return nil, err
	}

	var user model.User
	if err := c.do(ctx, OpGetByID, http.MethodGet, c.endpoints.GetByID, id, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Create asks the service to create a user and returns it with its
// service-assigned id and creation time.
func (c *Client) Create(ctx context.Context, in model.UserInput) (*model.User, error) {
	var user model.User
	if err := c.do(ctx, OpCreate, http.MethodPost, c.endpoints.Create, "", in, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Update applies a partial update to the user with the given id.
func (c *Client) Update(ctx context.Context, id string, patch model.UserPatch) (*model.User, error) {
	if err := c.checkID(id); err != nil {
		return nil, err
	}

	var user model.User
	if err := c.do(ctx, OpUpdate, http.MethodPut, c.endpoints.Update, id, patch, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Delete removes the user with the given id.
func (c *Client) Delete(ctx context.Context, id string) error {
	if err := c.checkID(id); err != nil {
		return err
	}
	return c.do(ctx, OpDelete, http.MethodDelete, c.endpoints.Delete, id, nil, nil)
}

func (c *Client) checkID(id string) error {
	if err := c.validate.Var(id, "required"); err != nil {
		return fmt.Errorf("%w: id is required", ErrInvalidArgument)
	}
	return nil
}

// do performs one round trip. body is encoded as JSON when non-nil; out is
// decoded from a 2xx response when non-nil.
func (c *Client) do(ctx context.Context, op Op, method, base, id string, body, out any) (err error) {
	ctx, span := c.tracer.Start(ctx, "users."+string(op),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("users.op", string(op)),
			attribute.String("http.request.method", method),
		),
	)

	start := time.Now()
	status := 0
	defer func() {
		duration := time.Since(start)
		outcome := metrics.OutcomeSuccess
		if status != 0 {
			span.SetAttributes(attribute.Int("http.response.status_code", status))
		}
		if err != nil {
			outcome = metrics.OutcomeFailure
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			c.logger.Debug("user service call failed",
				slog.String("op", string(op)),
				slog.Int("status", status),
				slog.Duration("duration", duration),
				slog.String("error", err.Error()),
			)
		}
		span.End()
		c.metrics.ObserveTransportCall(string(op), outcome, duration)
	}()

	target, err := withID(base, id)
	if err != nil {
		return &Error{Op: op, Err: err}
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &Error{Op: op, Err: fmt.Errorf("encode request: %w", err)}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return &Error{Op: op, Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", UserAgent)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Op: op, Err: err}
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))
		resp.Body.Close()
	}()

	status = resp.StatusCode
	if status < 200 || status > 299 {
		// The failure body is never inspected.
		return &Error{Op: op, Status: status}
	}

	if out == nil || status == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Op: op, Status: status, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// withID appends ?id=<id> to base, keeping any query it already carries.
func withID(base, id string) (string, error) {
	if id == "" {
		return base, nil
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}
	q := u.Query()
	q.Set("id", id)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
