package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

const (
	// clientName identifies adverthide connections in NATS monitoring.
	clientName = "adverthide"

	closeFlushTimeout = 2 * time.Second
	subscribeBuffer   = 64
)

// connect dials url with reconnection enabled. opts are applied after the
// defaults and may override them.
func connect(url, name string, opts []nats.Option) (*nats.Conn, error) {
	base := []nats.Option{
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	}
	nc, err := nats.Connect(url, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("nats connect %s: %w", url, err)
	}
	return nc, nil
}

// NATSPublisher publishes JSON-encoded events with the topic as subject.
type NATSPublisher struct {
	conn *nats.Conn
}

func NewNATSPublisher(url string, opts ...nats.Option) (*NATSPublisher, error) {
	nc, err := connect(url, clientName, opts)
	if err != nil {
		return nil, err
	}
	return &NATSPublisher{conn: nc}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, topic string, event any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg, err := encodeMsg(topic, event)
	if err != nil {
		return err
	}
	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Close flushes what is buffered and closes the connection.
func (p *NATSPublisher) Close() error {
	defer p.conn.Close()
	if err := p.conn.FlushTimeout(closeFlushTimeout); err != nil {
		return fmt.Errorf("flush on close: %w", err)
	}
	return nil
}

func encodeMsg(topic string, event any) (*nats.Msg, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", topic, err)
	}
	msg := nats.NewMsg(topic)
	msg.Data = data
	if id := TickOf(event); id != "" {
		msg.Header.Set(HeaderTickID, id)
	}
	return msg, nil
}

func decodeMsg(m *nats.Msg) Message {
	return Message{Topic: m.Subject, TickID: m.Header.Get(HeaderTickID), Data: m.Data}
}

// NATSSubscriber delivers events published on NATS.
type NATSSubscriber struct {
	conn *nats.Conn
}

// NewNATSSubscriber connects to url. opts can add disconnect and reconnect
// handlers.
func NewNATSSubscriber(url string, opts ...nats.Option) (*NATSSubscriber, error) {
	nc, err := connect(url, clientName+"-watch", opts)
	if err != nil {
		return nil, err
	}
	return &NATSSubscriber{conn: nc}, nil
}

// Subscribe accepts NATS wildcards such as TopicAll. A reader that falls
// behind loses messages rather than stalling the connection.
func (s *NATSSubscriber) Subscribe(topic string) (<-chan Message, func(), error) {
	in := make(chan *nats.Msg, subscribeBuffer)
	sub, err := s.conn.ChanSubscribe(topic, in)
	if err != nil {
		return nil, nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}
	// The server must know the interest before we return, or events
	// published right after would not be routed to us.
	if err := s.conn.Flush(); err != nil {
		_ = sub.Unsubscribe()
		return nil, nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}

	out := make(chan Message, subscribeBuffer)
	done := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		defer close(out)
		for {
			select {
			case <-done:
				return
			case m := <-in:
				select {
				case out <- decodeMsg(m):
				default:
				}
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			_ = sub.Unsubscribe()
			close(done)
			<-exited
			for range out {
			}
		})
	}
	return out, cancel, nil
}

func (s *NATSSubscriber) Close() error {
	s.conn.Close()
	return nil
}
