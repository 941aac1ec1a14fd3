// Package notify publishes a pass-completed event for every synchronization pass so
// downstream consumers (cache purgers, deployers) can react without polling.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/statique/internal/mirror"
)

// PassEvent is the JSON payload published after a pass.
type PassEvent struct {
	PassID      string    `json:"pass_id"`
	Site        string    `json:"site,omitempty"`
	Source      string    `json:"source"`
	Destination string    `json:"destination"`
	Revision    string    `json:"revision,omitempty"`
	Outcome     string    `json:"outcome"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	DurationMS  int64     `json:"duration_ms"`
	Copied      int       `json:"copied"`
	Transpiled  int       `json:"transpiled"`
	Skipped     int       `json:"skipped"`
	Failures    int       `json:"failures"`
}

// NewPassEvent summarizes report. site is the manifest title, if known.
func NewPassEvent(report *mirror.Report, site string) PassEvent {
	return PassEvent{
		PassID:      report.PassID,
		Site:        site,
		Source:      report.Source,
		Destination: report.Destination,
		Revision:    report.Revision,
		Outcome:     string(report.Outcome()),
		Start:       report.Start,
		End:         report.End,
		DurationMS:  report.Duration().Milliseconds(),
		Copied:      report.Copied,
		Transpiled:  report.Transpiled,
		Skipped:     report.Skipped,
		Failures:    len(report.Failures),
	}
}

// Publisher delivers pass events.
type Publisher interface {
	Publish(ctx context.Context, event PassEvent) error
	Close()
}

// Noop discards events (default when no NATS URL is configured).
type Noop struct{}

func (Noop) Publish(context.Context, PassEvent) error { return nil }
func (Noop) Close()                                   {}

// NATSPublisher publishes events on a core NATS subject.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
}

// NewNATSPublisher connects to url.
func NewNATSPublisher(url, subject string) (*NATSPublisher, error) {
	if subject == "" {
		return nil, fmt.Errorf("notify subject is required")
	}
	conn, err := nats.Connect(url, nats.Name("statique"), nats.Timeout(5*time.Second))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	slog.Info("NATS publisher initialized", "url", url, "subject", subject)
	return &NATSPublisher{conn: conn, subject: subject}, nil
}

// Publish sends event and waits for the server to acknowledge the flush.
func (p *NATSPublisher) Publish(ctx context.Context, event PassEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("failed to flush event: %w", err)
	}
	slog.Debug("Published pass event", "subject", p.subject, "pass_id", event.PassID)
	return nil
}

func (p *NATSPublisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}
