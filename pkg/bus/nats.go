package bus

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	// queueSubjectPrefix and queueStreamPrefix shape the JetStream names a
	// task queue occupies on the broker.
	queueSubjectPrefix = "loom.queue."
	queueStreamPrefix  = "LOOM_QUEUE_"
)

// NATSBus is the broker-backed MessageBus: plain NATS for pub/sub and
// request/reply between agents, JetStream for the durable task queues the
// worker pool pulls from.
type NATSBus struct {
	conn   *nats.Conn
	js     jetstream.JetStream
	config Config
	mu     sync.RWMutex
	queues map[string]*natsQueue
	closed atomic.Bool
}

// NewNATSBus connects to the broker and initializes JetStream.
func NewNATSBus(cfg Config) (*NATSBus, error) {
	if cfg.URL == "" {
		cfg.URL = nats.DefaultURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	conn, err := nats.Connect(cfg.URL,
		nats.Name(cfg.Name),
		nats.Timeout(cfg.Timeout),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	bus, err := NewNATSBusFromConn(conn)
	if err != nil {
		conn.Close()
		return nil, err
	}
	bus.config = cfg
	return bus, nil
}

// NewNATSBusFromConn wraps an existing connection, e.g. an embedded test
// server's.
func NewNATSBusFromConn(conn *nats.Conn) (*NATSBus, error) {
	js, err := jetstream.New(conn)
	if err != nil {
		return nil, fmt.Errorf("jetstream init: %w", err)
	}

	return &NATSBus{
		conn:   conn,
		js:     js,
		config: DefaultConfig(),
		queues: make(map[string]*natsQueue),
	}, nil
}

func (b *NATSBus) Publish(ctx context.Context, subject string, data []byte) error {
	if b.closed.Load() {
		return ErrClosed
	}
	return b.conn.Publish(subject, data)
}

// handlerAdapter bridges a MessageHandler onto the NATS callback shape,
// answering the reply subject when the handler returns data.
func handlerAdapter(handler MessageHandler) nats.MsgHandler {
	return func(msg *nats.Msg) {
		reply := handler(&Message{
			Subject: msg.Subject,
			Data:    msg.Data,
			ReplyTo: msg.Reply,
		})
		if reply != nil && msg.Reply != "" {
			_ = msg.Respond(reply)
		}
	}
}

func (b *NATSBus) Subscribe(ctx context.Context, subject string, handler MessageHandler) (Subscription, error) {
	if b.closed.Load() {
		return nil, ErrClosed
	}
	sub, err := b.conn.Subscribe(subject, handlerAdapter(handler))
	if err != nil {
		return nil, err
	}
	return &natsSubscription{sub: sub}, nil
}

func (b *NATSBus) QueueSubscribe(ctx context.Context, subject, queue string, handler MessageHandler) (Subscription, error) {
	if b.closed.Load() {
		return nil, ErrClosed
	}
	sub, err := b.conn.QueueSubscribe(subject, queue, handlerAdapter(handler))
	if err != nil {
		return nil, err
	}
	return &natsSubscription{sub: sub}, nil
}

func (b *NATSBus) Request(ctx context.Context, subject string, data []byte, timeout time.Duration) ([]byte, error) {
	if b.closed.Load() {
		return nil, ErrClosed
	}

	msg, err := b.conn.RequestWithContext(ctx, subject, data)
	switch err {
	case nil:
		return msg.Data, nil
	case nats.ErrNoResponders:
		return nil, ErrNoResponders
	case nats.ErrTimeout, context.DeadlineExceeded:
		return nil, ErrTimeout
	default:
		return nil, err
	}
}

func (b *NATSBus) Queue(name string) TaskQueue {
	b.mu.Lock()
	defer b.mu.Unlock()

	if q, ok := b.queues[name]; ok {
		return q
	}
	q := &natsQueue{
		name:    name,
		js:      b.js,
		pending: make(map[string]jetstream.Msg),
	}
	b.queues[name] = q
	return q
}

func (b *NATSBus) Close() error {
	if b.closed.Swap(true) {
		return ErrClosed
	}
	b.conn.Close()
	return nil
}

// Conn exposes the raw connection for operations the MessageBus interface
// doesn't cover.
func (b *NATSBus) Conn() *nats.Conn {
	return b.conn
}

// JetStream exposes the JetStream context.
func (b *NATSBus) JetStream() jetstream.JetStream {
	return b.js
}

type natsSubscription struct {
	sub *nats.Subscription
}

func (s *natsSubscription) Unsubscribe() error {
	return s.sub.Unsubscribe()
}

func (s *natsSubscription) Subject() string {
	return s.sub.Subject
}

// natsQueue is a JetStream work queue. Pulled messages are parked in
// pending until the worker acks or nacks them by task id; unacked messages
// redeliver after the consumer's ack wait.
type natsQueue struct {
	name     string
	js       jetstream.JetStream
	stream   jetstream.Stream
	consumer jetstream.Consumer
	mu       sync.Mutex
	pending  map[string]jetstream.Msg
	init     sync.Once
	initErr  error
}

func (q *natsQueue) subject() string {
	return queueSubjectPrefix + q.name
}

// ensureStream lazily provisions the queue's stream and durable consumer on
// first use, so merely holding a TaskQueue handle costs nothing on the
// broker.
func (q *natsQueue) ensureStream(ctx context.Context) error {
	q.init.Do(func() {
		q.stream, q.initErr = q.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
			Name:        queueStreamPrefix + q.name,
			Subjects:    []string{q.subject()},
			Retention:   jetstream.WorkQueuePolicy,
			MaxMsgs:     100000,
			MaxBytes:    1024 * 1024 * 1024, // 1GB
			Discard:     jetstream.DiscardOld,
			MaxAge:      24 * time.Hour,
			Storage:     jetstream.FileStorage,
			Replicas:    1,
			AllowDirect: true,
		})
		if q.initErr != nil {
			return
		}

		q.consumer, q.initErr = q.stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
			Durable:       "loom_worker_" + q.name,
			AckPolicy:     jetstream.AckExplicitPolicy,
			AckWait:       5 * time.Minute,
			MaxDeliver:    5,
			MaxAckPending: 1000,
		})
	})
	return q.initErr
}

func (q *natsQueue) Push(ctx context.Context, data []byte) error {
	if err := q.ensureStream(ctx); err != nil {
		return err
	}
	_, err := q.js.Publish(ctx, q.subject(), data)
	return err
}

func (q *natsQueue) Pull(ctx context.Context) (*Task, error) {
	if err := q.ensureStream(ctx); err != nil {
		return nil, err
	}

	msgs, err := q.consumer.Fetch(1, jetstream.FetchMaxWait(30*time.Second))
	if err != nil {
		return nil, err
	}

	for msg := range msgs.Messages() {
		meta, err := msg.Metadata()
		if err != nil {
			continue
		}
		id := fmt.Sprintf("%d:%d", meta.Sequence.Stream, meta.Sequence.Consumer)

		q.mu.Lock()
		q.pending[id] = msg
		q.mu.Unlock()

		return &Task{ID: id, Data: msg.Data()}, nil
	}

	if msgs.Error() != nil {
		return nil, msgs.Error()
	}
	return nil, ErrQueueEmpty
}

// takePending removes and returns the in-flight message for a task id.
func (q *natsQueue) takePending(taskID string) (jetstream.Msg, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	msg, ok := q.pending[taskID]
	if ok {
		delete(q.pending, taskID)
	}
	return msg, ok
}

func (q *natsQueue) Ack(ctx context.Context, taskID string) error {
	msg, ok := q.takePending(taskID)
	if !ok {
		return fmt.Errorf("no in-flight task %s to ack", taskID)
	}
	return msg.Ack()
}

func (q *natsQueue) Nack(ctx context.Context, taskID string) error {
	msg, ok := q.takePending(taskID)
	if !ok {
		return fmt.Errorf("no in-flight task %s to nack", taskID)
	}
	return msg.Nak()
}

func (q *natsQueue) Len(ctx context.Context) (int, error) {
	if err := q.ensureStream(ctx); err != nil {
		return 0, err
	}
	info, err := q.stream.Info(ctx)
	if err != nil {
		return 0, err
	}
	return int(info.State.Msgs), nil
}

func (q *natsQueue) Name() string {
	return q.name
}
