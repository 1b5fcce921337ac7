package notify

import (
	"context"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/Skotchmaster/edu_shop/pkg/logging"
)

// Publisher delivers one event to a topic. Implementations must be safe for
// concurrent use.
type Publisher interface {
	PublishEvent(ctx context.Context, topic, key string, event any) error
}

type job struct {
	topic   string
	key     string
	payload any
}

// Dispatcher fans events out to a Publisher from bounded queues. Request
// paths never wait on delivery: a full queue drops the event. Every key is
// owned by one worker, so events sharing a key are published in order.
type Dispatcher struct {
	pub     Publisher
	queues  []chan job
	workers int
	timeout time.Duration
	log     *slog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
	start  sync.Once
}

func NewDispatcher(pub Publisher, workers, queueSize int, timeout time.Duration, log *slog.Logger) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if log == nil {
		log = logging.Discard()
	}
	// queueSize bounds the whole dispatcher, split evenly between workers
	perWorker := (queueSize + workers - 1) / workers
	queues := make([]chan job, workers)
	for i := range queues {
		queues[i] = make(chan job, perWorker)
	}
	return &Dispatcher{
		pub:     pub,
		queues:  queues,
		workers: workers,
		timeout: timeout,
		log:     log.With("component", "notify"),
	}
}

// Enqueue hands an event to the workers. It reports false when the event was
// dropped because the queue is full or the dispatcher is closed.
func (d *Dispatcher) Enqueue(topic, key string, payload any) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.log.Warn("event_dropped", "topic", topic, "key", key, "reason", "dispatcher closed")
		return false
	}

	select {
	case d.queueFor(key) <- job{topic: topic, key: key, payload: payload}:
		return true
	default:
		d.log.Warn("event_dropped", "topic", topic, "key", key, "reason", "queue full")
		return false
	}
}

// Start launches the workers. Calling it more than once has no effect.
func (d *Dispatcher) Start() {
	d.start.Do(func() {
		for i := 0; i < d.workers; i++ {
			d.wg.Add(1)
			go d.workerLoop(i, d.queues[i])
		}
	})
}

// Close stops accepting events and waits until the queued ones are delivered.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, q := range d.queues {
		close(q)
	}
	d.mu.Unlock()

	d.Start()
	d.wg.Wait()
}

func (d *Dispatcher) queueFor(key string) chan job {
	if len(d.queues) == 1 {
		return d.queues[0]
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return d.queues[h.Sum32()%uint32(len(d.queues))]
}

func (d *Dispatcher) workerLoop(id int, queue <-chan job) {
	defer d.wg.Done()

	for j := range queue {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		err := d.pub.PublishEvent(ctx, j.topic, j.key, j.payload)
		cancel()

		if err != nil {
			d.log.Error("publish_event_error", "worker", id, "topic", j.topic, "key", j.key, "error", err)
			continue
		}
		d.log.Debug("publish_event_success", "worker", id, "topic", j.topic, "key", j.key)
	}
}
