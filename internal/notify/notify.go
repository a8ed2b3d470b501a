// Package notify publishes generation events to NATS.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/sitepress/internal/config"
	serrors "git.home.luguber.info/inful/sitepress/internal/errors"
	"git.home.luguber.info/inful/sitepress/internal/logfields"
	"git.home.luguber.info/inful/sitepress/internal/retry"
)

// Event announces the end of a generation pass.
type Event struct {
	BuildID    string    `json:"build_id"`
	Outcome    string    `json:"outcome"`
	Stage      string    `json:"stage,omitempty"`
	Error      string    `json:"error,omitempty"`
	Outputs    int       `json:"outputs"`
	Added      int       `json:"added"`
	Changed    int       `json:"changed"`
	Removed    int       `json:"removed"`
	DurationMS int64     `json:"duration_ms"`
	Timestamp  time.Time `json:"timestamp"`
}

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close()
}

// NoopPublisher drops events (default when notify is not configured).
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }
func (NoopPublisher) Close()                               {}

// conn is the subset of *nats.Conn used here.
type conn interface {
	Publish(subject string, data []byte) error
	FlushTimeout(timeout time.Duration) error
	Close()
}

// NATSPublisher publishes events as JSON on a subject.
type NATSPublisher struct {
	conn    conn
	url     string
	subject string
	timeout time.Duration
	retry   retry.Policy
}

// NewNATSPublisher connects to the NATS server configured in cfg.
func NewNATSPublisher(cfg config.NotifyConfig) (*NATSPublisher, error) {
	nc, err := nats.Connect(cfg.NATSURL, nats.Name("sitepress"), nats.Timeout(cfg.Timeout))
	if err != nil {
		return nil, serrors.NotifyFailed(cfg.NATSURL, fmt.Errorf("failed to connect to NATS: %w", err))
	}
	slog.Info("NATS publisher initialized", "url", cfg.NATSURL, "subject", cfg.Subject)
	p := newNATSPublisher(nc, cfg.NATSURL, cfg.Subject, cfg.Timeout)
	p.retry = retry.FromNotify(cfg)
	return p, nil
}

func newNATSPublisher(c conn, url, subject string, timeout time.Duration) *NATSPublisher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &NATSPublisher{conn: c, url: url, subject: subject, timeout: timeout}
}

// Publish sends e and waits for the server to acknowledge the flush,
// retrying transient failures per the configured policy.
func (p *NATSPublisher) Publish(ctx context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return p.retry.Do(ctx, func(attempt int) error {
		if attempt > 0 {
			slog.Debug("Retrying generation event", logfields.BuildID(e.BuildID), slog.Int("attempt", attempt))
		}
		return p.publishOnce(ctx, e, data)
	})
}

func (p *NATSPublisher) publishOnce(ctx context.Context, e Event, data []byte) error {
	if err := p.conn.Publish(p.subject, data); err != nil {
		return serrors.NotifyFailed(p.url, fmt.Errorf("failed to publish event: %w", err))
	}

	timeout := p.timeout
	if dl, ok := ctx.Deadline(); ok {
		if until := time.Until(dl); until < timeout {
			timeout = until
		}
	}
	if err := p.conn.FlushTimeout(timeout); err != nil {
		return serrors.NotifyFailed(p.url, fmt.Errorf("failed to flush event: %w", err))
	}

	slog.Debug("Published generation event",
		logfields.BuildID(e.BuildID),
		slog.String("subject", p.subject),
		slog.String("outcome", e.Outcome))
	return nil
}

// Close closes the connection.
func (p *NATSPublisher) Close() { p.conn.Close() }
