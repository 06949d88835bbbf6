package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"calendar-booking/logger"
	"calendar-booking/metrics"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	// ServiceName tags every event envelope with its origin.
	ServiceName = "calendar-service"

	// DefaultFallbackCapacity bounds the in-memory fallback queue.
	DefaultFallbackCapacity = 1000

	publishTimeout = 5 * time.Second
)

// Publisher announces reservation lifecycle transitions to the rest of the
// platform. Publish must never fail the caller's business transaction: it
// reports success as long as the event was either delivered to the broker or
// captured in the local fallback queue.
type Publisher interface {
	Publish(eventType string, payload map[string]any, routingKey string) bool
}

// Envelope is the wire shape of every published event.
type Envelope struct {
	EventType  string         `json:"event_type"`
	EventData  map[string]any `json:"event_data"`
	EntityID   string         `json:"entity_id,omitempty"`
	EntityType string         `json:"entity_type,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
	Service    string         `json:"service"`
	Version    string         `json:"version"`
}

// deriveEntity extracts the subject of an event from the routing key
// convention "calendar.<entity>.<action>" and the matching "<entity>_id"
// payload field.
func deriveEntity(routingKey string, payload map[string]any) (id, typ string) {
	parts := strings.Split(routingKey, ".")
	if len(parts) != 3 {
		return "", ""
	}
	typ = parts[1]
	if v, ok := payload[typ+"_id"].(string); ok {
		id = v
	}
	return id, typ
}

// StoredEvent is an envelope held in the fallback queue together with the
// routing key it should eventually be delivered with.
type StoredEvent struct {
	Envelope   Envelope  `json:"envelope"`
	RoutingKey string    `json:"routing_key"`
	StoredAt   time.Time `json:"stored_at"`
}

// fallbackRing is a bounded FIFO of undelivered events; when full, the
// oldest event is evicted.
type fallbackRing struct {
	mu  sync.Mutex
	buf []StoredEvent
	cap int
}

func newFallbackRing(capacity int) *fallbackRing {
	if capacity <= 0 {
		capacity = DefaultFallbackCapacity
	}
	return &fallbackRing{cap: capacity}
}

func (r *fallbackRing) push(ev StoredEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.buf) >= r.cap {
		r.buf = r.buf[1:]
	}
	r.buf = append(r.buf, ev)
}

func (r *fallbackRing) drain() []StoredEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.buf
	r.buf = nil
	return out
}

func (r *fallbackRing) requeue(evs []StoredEvent) {
	for _, ev := range evs {
		r.push(ev)
	}
}

func (r *fallbackRing) snapshot() []StoredEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]StoredEvent, len(r.buf))
	copy(out, r.buf)
	return out
}

func (r *fallbackRing) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buf)
}

// AMQPPublisher publishes events to a durable RabbitMQ topic exchange with a
// bounded in-memory fallback for when the broker is unreachable.
type AMQPPublisher struct {
	url      string
	exchange string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel

	fallback *fallbackRing
}

// NewAMQPPublisher connects to the broker. A failed connection is not an
// error: the publisher starts in fallback-only mode and may be reconnected
// later via Redrain.
func NewAMQPPublisher(url, exchange string) *AMQPPublisher {
	p := &AMQPPublisher{
		url:      url,
		exchange: exchange,
		fallback: newFallbackRing(DefaultFallbackCapacity),
	}
	if err := p.connect(); err != nil {
		logger.Warning(fmt.Sprintf("Failed to connect to event broker, using in-memory fallback: %v", err))
	} else {
		logger.Success("Event broker connection established")
	}
	return p
}

func (p *AMQPPublisher) connect() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("dial broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("declare exchange: %w", err)
	}
	p.mu.Lock()
	p.conn = conn
	p.ch = ch
	p.mu.Unlock()
	return nil
}

// Publish delivers the event to the broker, or captures it in the fallback
// queue when delivery is impossible. It always reports success; the caller's
// storage transaction has already committed and must not be failed over a
// publication problem.
func (p *AMQPPublisher) Publish(eventType string, payload map[string]any, routingKey string) bool {
	entityID, entityType := deriveEntity(routingKey, payload)
	env := Envelope{
		EventType:  eventType,
		EventData:  payload,
		EntityID:   entityID,
		EntityType: entityType,
		Timestamp:  time.Now().UTC(),
		Service:    ServiceName,
		Version:    "1.0.0",
	}

	if err := p.deliver(env, routingKey); err != nil {
		logger.Warning(fmt.Sprintf("Event %s not delivered (%v), stored in fallback", eventType, err))
		p.fallback.push(StoredEvent{Envelope: env, RoutingKey: routingKey, StoredAt: time.Now().UTC()})
		metrics.IncFallbackEvent()
	}
	return true
}

func (p *AMQPPublisher) deliver(env Envelope, routingKey string) error {
	p.mu.Lock()
	ch := p.ch
	p.mu.Unlock()
	if ch == nil {
		return fmt.Errorf("broker not connected")
	}

	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	return ch.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    env.Timestamp,
		Type:         env.EventType,
		Body:         body,
	})
}

// Connected reports whether a broker channel is currently open.
func (p *AMQPPublisher) Connected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ch != nil
}

// FallbackEvents returns a snapshot of the undelivered events.
func (p *AMQPPublisher) FallbackEvents() []StoredEvent {
	return p.fallback.snapshot()
}

// FallbackLen returns the number of undelivered events held locally.
func (p *AMQPPublisher) FallbackLen() int {
	return p.fallback.len()
}

// Redrain re-checks the broker connection and retries every event in the
// fallback queue. Events that still cannot be delivered are requeued. This
// is triggered explicitly (operational endpoint), never automatically.
func (p *AMQPPublisher) Redrain() (delivered int, remaining int) {
	if !p.Connected() {
		if err := p.connect(); err != nil {
			return 0, p.fallback.len()
		}
		logger.Success("Event broker reconnected")
	}

	pending := p.fallback.drain()
	for i, ev := range pending {
		if err := p.deliver(ev.Envelope, ev.RoutingKey); err != nil {
			p.fallback.requeue(pending[i:])
			return delivered, p.fallback.len()
		}
		delivered++
	}
	return delivered, p.fallback.len()
}

// Close shuts down the broker connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		err := p.conn.Close()
		p.conn = nil
		return err
	}
	return nil
}
