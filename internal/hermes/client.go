package hermes

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// SubjectRunCompleted is the NATS subject a corpus run reports on when it
// has written its output.
const SubjectRunCompleted = "corpus.delex.run.completed"

// RunCompleted summarizes a finished corpus run for downstream consumers
// such as training jobs waiting on a fresh corpus.
type RunCompleted struct {
	RunID         string `json:"run_id"`
	Mode          string `json:"mode"`
	SourceDir     string `json:"source_dir"`
	TargetDir     string `json:"target_dir"`
	Dialogues     int    `json:"dialogues"`
	Substitutions int    `json:"substitutions"`
	Collisions    int    `json:"collisions"`
	Collapsed     int    `json:"collapsed"`
	DurationMS    int64  `json:"duration_ms"`
	Errors        int    `json:"errors"`
}

type Client struct {
	conn   *nats.Conn
	subs   []*nats.Subscription
	logger *slog.Logger
}

func NewClient(ctx context.Context, url, token string, logger *slog.Logger) (*Client, error) {
	opts := []nats.Option{
		nats.Name("delex"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return &Client{conn: nc, logger: logger}, nil
}

func (c *Client) Publish(subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return c.conn.Publish(subject, payload)
}

const flushTimeout = 5 * time.Second

// PublishRunCompleted publishes ev and waits for the server to acknowledge
// the flush, so a short-lived CLI process does not exit with it buffered.
func (c *Client) PublishRunCompleted(ctx context.Context, ev RunCompleted) error {
	if err := c.Publish(SubjectRunCompleted, ev); err != nil {
		return fmt.Errorf("publish run completed: %w", err)
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, flushTimeout)
		defer cancel()
	}
	if err := c.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}

func (c *Client) Subscribe(subject string, handler func(subject string, data []byte)) error {
	sub, err := c.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Subject, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	c.subs = append(c.subs, sub)
	c.logger.Info("subscribed", "subject", subject)
	return nil
}

// OnRunCompleted decodes run-completed events and hands them to fn.
// Malformed payloads are logged and dropped.
func (c *Client) OnRunCompleted(fn func(RunCompleted)) error {
	return c.Subscribe(SubjectRunCompleted, func(_ string, data []byte) {
		ev, err := DecodeRunCompleted(data)
		if err != nil {
			c.logger.Warn("dropping malformed run event", "error", err)
			return
		}
		fn(ev)
	})
}

// DecodeRunCompleted parses a run-completed payload.
func DecodeRunCompleted(data []byte) (RunCompleted, error) {
	var ev RunCompleted
	if err := json.Unmarshal(data, &ev); err != nil {
		return RunCompleted{}, fmt.Errorf("decode run completed: %w", err)
	}
	if ev.RunID == "" {
		return RunCompleted{}, fmt.Errorf("decode run completed: missing run_id")
	}
	return ev, nil
}

func (c *Client) Close() {
	for _, sub := range c.subs {
		_ = sub.Unsubscribe()
	}
	c.conn.Close()
}
