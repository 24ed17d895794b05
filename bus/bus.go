// Package bus is the Redis publish/subscribe transport: encoded clips go out
// on one channel, transcript fragments come back on a channel pattern.
package bus

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"hark/config"
	"hark/log"
)

// NewClient connects lazily; the first command dials. Commands are never
// retried.
func NewClient(cfg config.Redis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:       cfg.Addr(),
		Password:   cfg.Password,
		DB:         cfg.DB,
		MaxRetries: -1,
	})
}

type Publisher struct {
	client  *redis.Client
	channel string
}

func NewPublisher(client *redis.Client, channel string) *Publisher {
	return &Publisher{client: client, channel: channel}
}

func (p *Publisher) Channel() string { return p.channel }

// Publish sends payload once. It does not wait for, or check, receivers.
func (p *Publisher) Publish(ctx context.Context, payload []byte) error {
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish to %q: %w", p.channel, err)
	}
	return nil
}

// Message is one inbound payload.
type Message struct {
	Channel string
	Payload []byte
}

// Subscription is a long-lived PSUBSCRIBE.
type Subscription struct {
	ps      *redis.PubSub
	pattern string
	out     chan Message
	once    sync.Once
	done    chan struct{}
}

// Subscribe registers the pattern and waits for the server to confirm it, so
// an unreachable server fails here rather than later.
func Subscribe(ctx context.Context, client *redis.Client, pattern string) (*Subscription, error) {
	ps := client.PSubscribe(ctx, pattern)
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("subscribe to %q: %w", pattern, err)
	}

	s := &Subscription{
		ps:      ps,
		pattern: pattern,
		out:     make(chan Message),
		done:    make(chan struct{}),
	}
	go s.forward(ps.Channel())
	return s, nil
}

func (s *Subscription) forward(in <-chan *redis.Message) {
	defer close(s.out)
	for {
		select {
		case <-s.done:
			return
		case msg, ok := <-in:
			if !ok {
				return
			}
			select {
			case s.out <- Message{Channel: msg.Channel, Payload: []byte(msg.Payload)}:
			case <-s.done:
				return
			}
		}
	}
}

func (s *Subscription) Pattern() string { return s.pattern }

// Messages yields payloads in delivery order and is closed after Close.
func (s *Subscription) Messages() <-chan Message { return s.out }

// Close ends the subscription. It is safe to call more than once, and any
// error from an already broken connection is discarded.
func (s *Subscription) Close() {
	s.once.Do(func() {
		close(s.done)
		if err := s.ps.Close(); err != nil {
			log.Infof("subscription %q already ended: %v", s.pattern, err)
		}
	})
}
