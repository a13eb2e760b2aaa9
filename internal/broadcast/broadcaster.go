// Package broadcast fans recorded scans out to live dashboard subscribers.
//
// Every subscriber owns a bounded queue. Publish never blocks: when a queue is
// full its oldest undelivered message is dropped to make room.
package broadcast

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

const (
	TypeScanUpdate   = "scan-update"
	DefaultQueueSize = 64
)

// Message is the envelope delivered to live subscribers.
type Message struct {
	Type string     `json:"type"`
	Data ScanUpdate `json:"data"`
}

type ScanUpdate struct {
	CodeID       string      `json:"code_id"`
	ShortCode    string      `json:"short_code"`
	CounterValue int64       `json:"counter_value"`
	ScanSummary  ScanSummary `json:"scan_summary"`
}

type ScanSummary struct {
	Timestamp   time.Time `json:"timestamp"`
	DeviceClass string    `json:"device_class"`
	Country     string    `json:"country"`
	City        string    `json:"city"`
}

// NewScanUpdate wraps u in a scan-update envelope.
func NewScanUpdate(u ScanUpdate) Message {
	return Message{Type: TypeScanUpdate, Data: u}
}

// Publisher accepts messages for fanout. Implementations must not block.
type Publisher interface {
	Publish(msg Message)
}

// Subscriber is one live consumer. Receive from C until it is closed.
type Subscriber struct {
	ID string

	mu        sync.Mutex
	queue     chan Message
	closeOnce sync.Once
	dropped   atomic.Uint64
}

func (s *Subscriber) C() <-chan Message { return s.queue }

// Dropped reports how many messages were discarded for this subscriber.
func (s *Subscriber) Dropped() uint64 { return s.dropped.Load() }

func (s *Subscriber) enqueue(msg Message) (dropped bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for {
		select {
		case s.queue <- msg:
			return dropped
		default:
		}

		select {
		case <-s.queue:
			dropped = true
			s.dropped.Add(1)
		default:
		}
	}
}

func (s *Subscriber) close() {
	s.closeOnce.Do(func() { close(s.queue) })
}

// Config holds configuration for a Broadcaster.
type Config struct {
	QueueSize int    // per-subscriber queue capacity (default: 64)
	OnDrop    func() // called once per dropped message
}

type Broadcaster struct {
	mu        sync.RWMutex
	subs      map[*Subscriber]struct{}
	closed    bool
	queueSize int
	onDrop    func()
}

func New(cfg Config) *Broadcaster {
	size := cfg.QueueSize
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Broadcaster{
		subs:      make(map[*Subscriber]struct{}),
		queueSize: size,
		onDrop:    cfg.OnDrop,
	}
}

// Subscribe registers a new subscriber. It receives only messages published
// after this call returns. After Close the returned subscriber is already
// closed.
func (b *Broadcaster) Subscribe() *Subscriber {
	sub := &Subscriber{
		ID:    uuid.NewString(),
		queue: make(chan Message, b.queueSize),
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		sub.close()
		return sub
	}
	b.subs[sub] = struct{}{}
	return sub
}

// Unsubscribe removes sub and closes its queue. Safe to call more than once.
func (b *Broadcaster) Unsubscribe(sub *Subscriber) {
	if sub == nil {
		return
	}

	b.mu.Lock()
	delete(b.subs, sub)
	b.mu.Unlock()

	sub.close()
}

// Publish enqueues msg for every current subscriber and returns immediately.
func (b *Broadcaster) Publish(msg Message) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subs {
		if sub.enqueue(msg) && b.onDrop != nil {
			b.onDrop()
		}
	}
}

func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close disconnects every subscriber. Later publishes are discarded.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for sub := range b.subs {
		sub.close()
	}
	clear(b.subs)
}
