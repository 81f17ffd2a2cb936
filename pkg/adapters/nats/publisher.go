// Package nats publishes conversation lifecycle notifications to NATS subjects.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nats-io/nats.go"

	"github.com/aretw0/parley/internal/logging"
	"github.com/aretw0/parley/pkg/domain"
)

// DefaultPrefix is the first subject token of every published message.
const DefaultPrefix = "parley"

// Conn is the subset of *nats.Conn the publisher needs.
type Conn interface {
	Publish(subject string, data []byte) error
}

// Publisher turns lifecycle hooks into NATS messages on
// "<prefix>.<dialogue>.<hook type>", with the event as JSON payload.
type Publisher struct {
	conn   Conn
	prefix string
	logger *slog.Logger
}

type Option func(*Publisher)

// WithPrefix sets the subject prefix.
func WithPrefix(prefix string) Option {
	return func(p *Publisher) {
		p.prefix = prefix
	}
}

// WithLogger configures the logger used for publish failures.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// NewPublisher wraps an existing connection.
func NewPublisher(conn Conn, opts ...Option) *Publisher {
	p := &Publisher{
		conn:   conn,
		prefix: DefaultPrefix,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Connect dials url and returns a publisher owning the connection.
func Connect(url string, opts ...Option) (*Publisher, error) {
	nc, err := nats.Connect(url, nats.Name("parley"))
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return NewPublisher(nc, opts...), nil
}

// Close drains the connection when the publisher owns a *nats.Conn.
func (p *Publisher) Close() error {
	if nc, ok := p.conn.(*nats.Conn); ok {
		return nc.Drain()
	}
	return nil
}

// Subject returns the subject used for a dialogue and hook type.
func (p *Publisher) Subject(dialogueID string, t domain.HookType) string {
	return fmt.Sprintf("%s.%s.%s", p.prefix, token(dialogueID), t)
}

// Hooks returns lifecycle hooks that publish every notification.
// Publish errors are logged; they never interrupt the conversation.
func (p *Publisher) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			p.publish(ctx, e.HookBase, e)
		},
		OnOptionChosen: func(ctx context.Context, e *domain.ChoiceEvent) {
			p.publish(ctx, e.HookBase, e)
		},
		OnFinished: func(ctx context.Context, e *domain.FinishEvent) {
			p.publish(ctx, e.HookBase, e)
		},
	}
}

func (p *Publisher) publish(ctx context.Context, base domain.HookBase, payload any) {
	subject := p.Subject(base.DialogueID, base.Type)
	data, err := json.Marshal(payload)
	if err != nil {
		p.logger.ErrorContext(ctx, "nats: marshal event", "subject", subject, "err", err)
		return
	}
	if err := p.conn.Publish(subject, data); err != nil {
		p.logger.WarnContext(ctx, "nats: publish failed", "subject", subject, "err", err)
	}
}

// token makes s safe to use as a single subject token.
func token(s string) string {
	if s == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\n', '\r':
			return '_'
		}
		return r
	}, s)
}
