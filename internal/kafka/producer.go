package kafka

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

var ErrClosed = errors.New("kafka: producer closed")

const defaultCloseTimeout = 5 * time.Second

// Publisher sends one keyed message to the event stream.
type Publisher interface {
	Publish(ctx context.Context, key string, value []byte) error
	Close() error
}

// Producer buffers messages and writes them from a single goroutine so callers never wait on the broker.
type Producer struct {
	w     *kafka.Writer
	inbox chan kafka.Message
	done  chan struct{}

	// writeCtx is cancelled when Close runs out of time draining the inbox
	writeCtx     context.Context
	cancelWrites context.CancelFunc
	closeTimeout time.Duration

	mu     sync.RWMutex
	closed bool
}

func NewProducer(brokers []string, topic string, buf int) *Producer {
	if buf <= 0 {
		buf = 64
	}
	writeCtx, cancel := context.WithCancel(context.Background())
	p := &Producer{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			WriteTimeout: 10 * time.Second,
		},
		inbox:        make(chan kafka.Message, buf),
		done:         make(chan struct{}),
		writeCtx:     writeCtx,
		cancelWrites: cancel,
		closeTimeout: defaultCloseTimeout,
	}
	go p.loop()
	return p
}

func (p *Producer) loop() {
	defer close(p.done)
	for m := range p.inbox {
		if err := p.w.WriteMessages(p.writeCtx, m); err != nil {
			log.Printf("kafka: write %s to %s: %v", m.Key, p.w.Topic, err)
		}
	}
	if err := p.w.Close(); err != nil {
		log.Printf("kafka: close writer: %v", err)
	}
}

func (p *Producer) Publish(ctx context.Context, key string, value []byte) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	select {
	case p.inbox <- kafka.Message{Key: []byte(key), Value: value, Time: time.Now()}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close flushes buffered messages and closes the writer. Messages still unwritten after
// closeTimeout are dropped and context.DeadlineExceeded is returned.
func (p *Producer) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.inbox)
	p.mu.Unlock()

	timer := time.NewTimer(p.closeTimeout)
	defer timer.Stop()
	select {
	case <-p.done:
		p.cancelWrites()
		return nil
	case <-timer.C:
		log.Printf("kafka: close timed out after %v, dropping %d buffered messages", p.closeTimeout, len(p.inbox))
		p.cancelWrites()
		<-p.done
		return context.DeadlineExceeded
	}
}

// Noop discards everything. Used when no brokers are configured.
type Noop struct{}

func (Noop) Publish(context.Context, string, []byte) error { return nil }
func (Noop) Close() error                                  { return nil }

// New returns a Producer for brokers, or Noop when brokers is empty.
func New(brokers []string, topic string) Publisher {
	if len(brokers) == 0 {
		return Noop{}
	}
	return NewProducer(brokers, topic, 0)
}
