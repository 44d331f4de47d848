package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/assetflow/internal/config"
	foundationerrors "git.home.luguber.info/inful/assetflow/internal/foundation/errors"
	"git.home.luguber.info/inful/assetflow/internal/logfields"
	"git.home.luguber.info/inful/assetflow/internal/orchestrator"
	"git.home.luguber.info/inful/assetflow/internal/retry"
)

// Conn is the subset of *nats.Conn the publisher needs.
type Conn interface {
	Publish(subject string, data []byte) error
	Flush() error
	Close()
}

// NATSPublisher publishes build events on one subject.
type NATSPublisher struct {
	conn    Conn
	subject string
	logger  *slog.Logger
	now     func() time.Time
}

// Connect dials the NATS server named in cfg, retrying transient failures with the
// default retry policy.
func Connect(ctx context.Context, cfg config.NotifyConfig, logger *slog.Logger) (*NATSPublisher, error) {
	if cfg.NATSURL == "" {
		return nil, foundationerrors.ConfigError("notify.nats_url is not set").Build()
	}
	var conn *nats.Conn
	err := retry.DefaultPolicy().Do(ctx, func() error {
		c, err := nats.Connect(cfg.NATSURL,
			nats.Name("assetflow"),
			nats.Timeout(5*time.Second),
		)
		conn = c
		return err
	}, transient)
	if err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryNetwork, "failed to connect to NATS").
			WithContext("url", cfg.NATSURL).
			Build()
	}
	p := NewPublisher(conn, cfg.Subject, logger)
	p.logger.Info("NATS notifications enabled", logfields.URL(cfg.NATSURL), slog.String("subject", cfg.Subject))
	return p, nil
}

func transient(err error) bool {
	return !errors.Is(err, nats.ErrAuthorization) && !errors.Is(err, nats.ErrAuthExpired)
}

// NewPublisher wraps an existing connection.
func NewPublisher(conn Conn, subject string, logger *slog.Logger) *NATSPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &NATSPublisher{conn: conn, subject: subject, logger: logger, now: time.Now}
}

// Publish sends one event.
func (p *NATSPublisher) Publish(e Event) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = p.now().UTC()
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryNetwork, "failed to publish event").
			WithContext("subject", p.subject).
			Build()
	}
	p.logger.Debug("Published build event",
		logfields.BuildID(e.BuildID),
		logfields.Task(e.Task),
		logfields.Status(e.Status))
	return nil
}

// Observer publishes task and plan completions. Failures are logged and never fail
// the build.
func (p *NATSPublisher) Observer() orchestrator.Observer {
	return orchestrator.Observer{
		OnTaskComplete: func(ev orchestrator.TaskEvent) {
			if err := p.Publish(TaskEvent(ev)); err != nil {
				p.logger.Warn("Build notification failed", logfields.Task(ev.Record.Name), logfields.Error(err))
			}
		},
		OnPlanComplete: func(r *orchestrator.Report) {
			if err := p.Publish(PlanEvent(r)); err != nil {
				p.logger.Warn("Build notification failed", logfields.Plan(r.Plan), logfields.Error(err))
			}
		},
	}
}

// Close flushes pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	if p.conn == nil {
		return nil
	}
	err := p.conn.Flush()
	p.conn.Close()
	if err != nil {
		return fmt.Errorf("failed to flush NATS connection: %w", err)
	}
	return nil
}
