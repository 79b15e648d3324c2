// internal/notify/nats.go
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"

	"github.com/valpere/klresults/pkg/types"
)

// DefaultSubject is the subject draw events are published on.
const DefaultSubject = "klresults.draw.written"

// DrawEvent announces a written draw record.
type DrawEvent struct {
	FileName    string    `json:"file_name"`
	LotteryName string    `json:"lottery_name"`
	LotteryCode string    `json:"lottery_code"`
	DrawNumber  string    `json:"draw_number"`
	DrawDate    string    `json:"draw_date"`
	HasResults  bool      `json:"has_results"`
	SourceURL   string    `json:"source_url,omitempty"`
	WrittenAt   time.Time `json:"written_at"`
}

// NewDrawEvent builds the event for rec.
func NewDrawEvent(rec *types.DrawRecord, fileName string, at time.Time) DrawEvent {
	return DrawEvent{
		FileName:    fileName,
		LotteryName: rec.LotteryName,
		LotteryCode: rec.LotteryCode,
		DrawNumber:  rec.DrawNumber,
		DrawDate:    rec.DrawDate,
		HasResults:  rec.HasActualResults(),
		SourceURL:   rec.SourceURL,
		WrittenAt:   at.UTC(),
	}
}

// headerCarrier adapts nats.Msg headers for OTel propagation.
type headerCarrier nats.Msg

func (c *headerCarrier) Get(key string) string {
	if c.Header == nil {
		return ""
	}
	return c.Header.Get(key)
}

func (c *headerCarrier) Set(key, val string) {
	if c.Header == nil {
		c.Header = make(nats.Header)
	}
	c.Header.Set(key, val)
}

func (c *headerCarrier) Keys() []string {
	if c.Header == nil {
		return nil
	}
	keys := make([]string, 0, len(c.Header))
	for k := range c.Header {
		keys = append(keys, k)
	}
	return keys
}

// Message encodes v as JSON on subject and injects the trace context of ctx.
func Message(ctx context.Context, subject string, v any) (*nats.Msg, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	msg := &nats.Msg{Subject: subject, Data: data}
	otel.GetTextMapPropagator().Inject(ctx, (*headerCarrier)(msg))
	return msg, nil
}

// Publisher sends a DrawEvent for every stored record. It satisfies
// output.Sink so the output manager drives it.
type Publisher struct {
	conn    *nats.Conn
	subject string
	now     func() time.Time
}

// Connect dials url and returns a publisher on subject.
func Connect(url, subject string) (*Publisher, error) {
	if url == "" {
		return nil, fmt.Errorf("NATS url is required")
	}
	conn, err := nats.Connect(url,
		nats.Name("klresults"),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return NewPublisher(conn, subject), nil
}

// NewPublisher wraps an existing connection.
func NewPublisher(conn *nats.Conn, subject string) *Publisher {
	if subject == "" {
		subject = DefaultSubject
	}
	return &Publisher{conn: conn, subject: subject, now: time.Now}
}

func (p *Publisher) Name() string { return "nats" }

// Subject returns the publish subject.
func (p *Publisher) Subject() string { return p.subject }

// Store publishes the event for rec.
func (p *Publisher) Store(ctx context.Context, rec *types.DrawRecord, fileName string) error {
	msg, err := Message(ctx, p.subject, NewDrawEvent(rec, fileName, p.now()))
	if err != nil {
		return fmt.Errorf("failed to encode draw event: %w", err)
	}
	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("failed to publish draw event: %w", err)
	}
	return nil
}

// Close flushes pending messages and drains the connection.
func (p *Publisher) Close() error {
	if p.conn == nil {
		return nil
	}
	if err := p.conn.Flush(); err != nil {
		p.conn.Close()
		return err
	}
	p.conn.Close()
	return nil
}
