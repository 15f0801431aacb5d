package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/time/rate"
)

const DefaultURL = "https://api.notifier.engineering.test.com/events"

const DefaultTimeout = 10 * time.Second

const (
	StatusFailure = 0
	StatusSuccess = 1
)

// Event is the payload accepted by the notifier service.
type Event struct {
	Name   string `json:"name"`
	Status int    `json:"status"`
}

type Notifier interface {
	// Notify delivers the event, returning the status code the notifier
	// responded with.
	Notify(ctx context.Context, ev Event) (int, error)
}

type Config struct {
	URL     string
	Timeout time.Duration
	// EventsPerSecond limits how fast events are sent. Zero means unlimited.
	EventsPerSecond float64
}

func DefaultConfig() Config {
	return Config{
		URL:     DefaultURL,
		Timeout: DefaultTimeout,
	}
}

func (c Config) Verify() error {
	if c.URL == "" {
		return errors.Newf("notifier url must be set")
	}
	if c.Timeout < 0 {
		return errors.Newf("notifier timeout must be >= 0, got %s", c.Timeout)
	}
	if c.EventsPerSecond < 0 {
		return errors.Newf("notifier events per second must be >= 0, got %v", c.EventsPerSecond)
	}
	return nil
}

func (c Config) rateLimit() rate.Limit {
	if c.EventsPerSecond == 0 {
		return rate.Inf
	}
	return rate.Limit(c.EventsPerSecond)
}

// HTTPNotifier posts events as JSON to the notifier service.
type HTTPNotifier struct {
	url     string
	client  *http.Client
	limiter *rate.Limiter
}

var _ Notifier = (*HTTPNotifier)(nil)

func NewHTTPNotifier(cfg Config) (*HTTPNotifier, error) {
	if err := cfg.Verify(); err != nil {
		return nil, err
	}
	return &HTTPNotifier{
		url:     cfg.URL,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(cfg.rateLimit(), 1),
	}, nil
}

func (n *HTTPNotifier) Notify(ctx context.Context, ev Event) (int, error) {
	if err := n.limiter.Wait(ctx); err != nil {
		return 0, errors.Wrapf(err, "error waiting to send event %s", ev.Name)
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return 0, errors.Wrapf(err, "error encoding event %s", ev.Name)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return 0, errors.Wrapf(err, "error creating request for event %s", ev.Name)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := n.client.Do(req)
	if err != nil {
		return 0, errors.Wrapf(err, "error sending event %s", ev.Name)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}
