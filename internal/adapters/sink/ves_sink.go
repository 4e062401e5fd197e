package sink

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ghalamif/vesagent/internal/ports"
	"github.com/ghalamif/vesagent/internal/ves"
)

// DefaultSendTimeout bounds a single POST to the event listener.
const DefaultSendTimeout = time.Second

// ErrListenerUnreachable wraps transport failures (DNS, refused, timeout).
var ErrListenerUnreachable = errors.New("sink: event listener unreachable")

// ListenerError is a non-2xx response from the event listener.
type ListenerError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *ListenerError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("sink: event listener returned %s", e.Status)
	}
	return fmt.Sprintf("sink: event listener returned %s: %s", e.Status, e.Body)
}

// Failure reasons used to label send failures.
const (
	ReasonHTTPStatus  = "http_status"
	ReasonUnreachable = "unreachable"
	ReasonOther       = "other"
)

// FailureReason classifies an error returned by VESSink.Send.
func FailureReason(err error) string {
	var le *ListenerError
	switch {
	case errors.As(err, &le):
		return ReasonHTTPStatus
	case errors.Is(err, ErrListenerUnreachable):
		return ReasonUnreachable
	default:
		return ReasonOther
	}
}

type VESSinkOptions struct {
	URL      string
	Username string
	Password string
	// Timeout defaults to DefaultSendTimeout.
	Timeout time.Duration
	// Client defaults to a client without its own timeout.
	Client *http.Client
}

// VESSink posts events to a VES event listener.
type VESSink struct {
	url      string
	username string
	password string
	timeout  time.Duration
	client   *http.Client
}

func NewVESSink(opts VESSinkOptions) *VESSink {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultSendTimeout
	}
	if opts.Client == nil {
		opts.Client = &http.Client{}
	}
	return &VESSink{
		url:      opts.URL,
		username: opts.Username,
		password: opts.Password,
		timeout:  opts.Timeout,
		client:   opts.Client,
	}
}

func (s *VESSink) Name() string { return "ves-listener" }

func (s *VESSink) URL() string { return s.url }

func (s *VESSink) Send(ctx context.Context, e ves.Event) error {
	payload, err := ves.Marshal(e)
	if err != nil {
		return fmt.Errorf("sink: marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("sink: build request: %w", err)
	}
	req.SetBasicAuth(s.username, s.password)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrListenerUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &ListenerError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(bytes.TrimSpace(body)),
		}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

var _ ports.Sink = (*VESSink)(nil)
