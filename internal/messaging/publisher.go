package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/lifecycled/internal/logging"
	"github.com/fyrsmithlabs/lifecycled/pkg/lifecycle"
)

// Publisher forwards engine events to the broker as JSON on
// <prefix>.<run_id>.<event_type> subjects. It implements lifecycle.Sink:
// publish failures are logged and dropped so a broker outage never fails a
// pass, and events raised before the connection exists are dropped the
// same way.
type Publisher struct {
	conn   *Conn
	prefix string
	logger *logging.Logger
}

// NewPublisher creates a Publisher over conn. An empty prefix defaults to
// "lifecycle".
func NewPublisher(conn *Conn, prefix string, logger *logging.Logger) (*Publisher, error) {
	if conn == nil {
		return nil, fmt.Errorf("conn cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if prefix == "" {
		prefix = "lifecycle"
	}
	return &Publisher{conn: conn, prefix: prefix, logger: logger}, nil
}

var _ lifecycle.Sink = (*Publisher)(nil)

// Publish sends one engine event.
func (p *Publisher) Publish(ctx context.Context, ev lifecycle.Event) {
	nc := p.conn.NATS()
	if nc == nil {
		return
	}

	data, err := json.Marshal(ev)
	if err != nil {
		p.logger.Warn(ctx, "marshal lifecycle event", zap.Error(err))
		return
	}

	subject := fmt.Sprintf("%s.%s.%s", p.prefix, ev.RunID, ev.Type)
	if err := nc.Publish(subject, data); err != nil {
		p.logger.Warn(ctx, "publish lifecycle event",
			zap.String("subject", subject),
			zap.Error(err),
		)
	}
}
