package suspension

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"nextmavens/warden/pkg/cache"
)

// TaskKind identifies a side-effect task.
type TaskKind string

const (
	// TaskInvalidateCache drops the project's cached snapshot.
	TaskInvalidateCache TaskKind = "invalidate_cache"

	// TaskAudit appends an audit-trail entry.
	TaskAudit TaskKind = "audit"

	// TaskNotify sends a stakeholder notification.
	TaskNotify TaskKind = "notify"
)

// Task is one outbound side effect detached from the suspension
// transaction. Tasks are retried with backoff; exhausted tasks land in the
// dead-letter list instead of affecting the committed transition.
type Task struct {
	Kind       TaskKind
	ProjectID  string
	Audit      AuditEntry
	Notice     Notice
	Attempts   int
	LastError  string
	EnqueuedAt time.Time
}

// OutboxConfig configures the side-effect outbox.
type OutboxConfig struct {
	// QueueSize is the task channel capacity. Default: 256.
	QueueSize int

	// MaxAttempts is the per-task delivery budget. Default: 3.
	MaxAttempts int

	// RetryBackoff is the base delay between attempts; attempt n waits
	// n times this. Default: 250ms.
	RetryBackoff time.Duration

	// BreakerFailureThreshold is the consecutive notification failures
	// that open the circuit. Default: 5.
	BreakerFailureThreshold uint32

	// BreakerTimeout is how long the circuit stays open. Default: 30s.
	BreakerTimeout time.Duration
}

// Outbox executes suspension side effects (cache invalidation, audit
// append, notification dispatch) asynchronously. Failures are logged,
// retried within the attempt budget, and dead-lettered; they never roll
// back or block a committed transition. Notification dispatch runs behind
// a circuit breaker so a dead mail relay cannot stall the queue.
type Outbox struct {
	config   OutboxConfig
	cache    cache.ProjectCache
	audit    AuditLogger
	notifier NotificationDispatcher
	breaker  *gobreaker.CircuitBreaker[interface{}]
	logger   *slog.Logger

	tasks   chan *Task
	pending atomic.Int64
	dropped atomic.Int64

	deadMu sync.Mutex
	dead   []*Task

	stopOnce sync.Once
	stop     chan struct{}
	wg       sync.WaitGroup
}

// NewOutbox creates an outbox. Any nil collaborator turns its task kind
// into a no-op, so deployments without Redis or a mail relay still work.
func NewOutbox(config OutboxConfig, projectCache cache.ProjectCache, audit AuditLogger, notifier NotificationDispatcher) *Outbox {
	if config.QueueSize <= 0 {
		config.QueueSize = 256
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	if config.RetryBackoff <= 0 {
		config.RetryBackoff = 250 * time.Millisecond
	}
	if config.BreakerFailureThreshold == 0 {
		config.BreakerFailureThreshold = 5
	}
	if config.BreakerTimeout <= 0 {
		config.BreakerTimeout = 30 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:    "suspension-notify",
		Timeout: config.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= config.BreakerFailureThreshold
		},
	})

	return &Outbox{
		config:   config,
		cache:    projectCache,
		audit:    audit,
		notifier: notifier,
		breaker:  breaker,
		logger:   slog.Default().With("component", "suspension.outbox"),
		tasks:    make(chan *Task, config.QueueSize),
		stop:     make(chan struct{}),
	}
}

// Start launches the worker goroutine.
func (o *Outbox) Start() {
	o.wg.Add(1)
	go o.run()
}

// Stop drains queued tasks and stops the worker.
func (o *Outbox) Stop() {
	o.stopOnce.Do(func() {
		close(o.stop)
	})
	o.wg.Wait()
}

// Enqueue queues a task without blocking. When the queue is full the task
// goes straight to the dead-letter list; enqueueing never fails the
// transition that produced the task.
func (o *Outbox) Enqueue(task *Task) {
	task.EnqueuedAt = time.Now()
	o.pending.Add(1)

	select {
	case o.tasks <- task:
	default:
		o.pending.Add(-1)
		o.dropped.Add(1)
		task.LastError = "outbox queue full"
		o.deadLetter(task)
	}
}

// Dropped returns how many tasks were dropped due to a full queue.
func (o *Outbox) Dropped() int64 {
	return o.dropped.Load()
}

// DeadLetters returns a copy of the dead-letter list.
func (o *Outbox) DeadLetters() []*Task {
	o.deadMu.Lock()
	defer o.deadMu.Unlock()
	out := make([]*Task, len(o.dead))
	copy(out, o.dead)
	return out
}

// Drain blocks until all enqueued tasks have been processed or the timeout
// elapses. Intended for tests and shutdown paths.
func (o *Outbox) Drain(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if o.pending.Load() == 0 {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return o.pending.Load() == 0
}

// run is the worker loop. On stop it drains what is already queued before
// exiting.
func (o *Outbox) run() {
	defer o.wg.Done()

	for {
		select {
		case <-o.stop:
			for {
				select {
				case task := <-o.tasks:
					o.process(task)
				default:
					return
				}
			}
		case task := <-o.tasks:
			o.process(task)
		}
	}
}

// process dispatches one task with retries, dead-lettering on exhaustion.
func (o *Outbox) process(task *Task) {
	defer o.pending.Add(-1)

	ctx := context.Background()
	for task.Attempts < o.config.MaxAttempts {
		task.Attempts++

		err := o.dispatch(ctx, task)
		if err == nil {
			return
		}
		task.LastError = err.Error()
		o.logger.Warn("side-effect dispatch failed",
			"kind", task.Kind,
			"project_id", task.ProjectID,
			"attempt", task.Attempts,
			"error", err,
		)

		if task.Attempts >= o.config.MaxAttempts {
			break
		}
		select {
		case <-time.After(o.config.RetryBackoff * time.Duration(task.Attempts)):
		case <-o.stop:
			// Shutting down; give up retrying but keep the record.
			o.deadLetter(task)
			return
		}
	}

	o.deadLetter(task)
}

// dispatch executes one attempt of a task.
func (o *Outbox) dispatch(ctx context.Context, task *Task) error {
	switch task.Kind {
	case TaskInvalidateCache:
		if o.cache == nil {
			return nil
		}
		return o.cache.Invalidate(ctx, task.ProjectID)

	case TaskAudit:
		if o.audit == nil {
			return nil
		}
		return o.audit.Append(ctx, task.Audit)

	case TaskNotify:
		if o.notifier == nil {
			return nil
		}
		_, err := o.breaker.Execute(func() (interface{}, error) {
			return nil, o.notifier.SendSuspensionNotice(ctx, task.Notice)
		})
		return err

	default:
		return fmt.Errorf("unknown task kind %q", task.Kind)
	}
}

func (o *Outbox) deadLetter(task *Task) {
	o.deadMu.Lock()
	o.dead = append(o.dead, task)
	o.deadMu.Unlock()

	o.logger.Error("side-effect task dead-lettered",
		"kind", task.Kind,
		"project_id", task.ProjectID,
		"attempts", task.Attempts,
		"last_error", task.LastError,
	)
}
