package activity

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/smsrelay/smsrelay/internal/config"
)

// Recorder mirrors message events into the CRM on a bounded worker pool. It
// is a one-way channel out of the delivery path: Record never blocks, never
// returns an error, and a full queue drops the event with a log line. Sync
// failures stop at this boundary.
type Recorder struct {
	logger  *slog.Logger
	sink    Log
	queue   chan Event
	workers int
	timeout time.Duration

	startOnce sync.Once
	wg        sync.WaitGroup
}

// NewRecorder creates a recorder draining into sink. A nil sink means the CRM
// is unconfigured and Record becomes a no-op.
func NewRecorder(log *slog.Logger, sink Log, queueSize, workers int) *Recorder {
	if log == nil {
		log = slog.Default()
	}
	if queueSize <= 0 {
		queueSize = config.DefaultSyncQueueSize
	}
	if workers <= 0 {
		workers = config.DefaultSyncWorkers
	}
	return &Recorder{
		logger:  log.With(slog.String("component", "activity")),
		sink:    sink,
		queue:   make(chan Event, queueSize),
		workers: workers,
		timeout: 10 * time.Second,
	}
}

// Start launches the worker pool. Workers exit when ctx is cancelled.
func (r *Recorder) Start(ctx context.Context) {
	if r == nil || r.sink == nil {
		return
	}
	r.startOnce.Do(func() {
		for i := 0; i < r.workers; i++ {
			r.wg.Add(1)
			go func() {
				defer r.wg.Done()
				for {
					select {
					case <-ctx.Done():
						return
					case event := <-r.queue:
						r.process(event)
					}
				}
			}()
		}
	})
}

// Close waits for in-flight workers to finish, bounded by ctx.
func (r *Recorder) Close(ctx context.Context) error {
	if r == nil || r.sink == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Record enqueues an event for background sync. Cheap no-op when the CRM is
// unconfigured; drop-and-log when the queue is full.
func (r *Recorder) Record(event Event) {
	if r == nil || r.sink == nil {
		return
	}
	select {
	case r.queue <- event:
	default:
		r.logger.Warn("activity queue full, dropping event",
			slog.String("identity", event.Identity),
			slog.String("direction", string(event.Direction)))
	}
}

// process runs the contact-then-note protocol for one event. Any step failure
// aborts the remaining steps for this event only; there is no retry.
func (r *Recorder) process(event Event) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	contactID, found, err := r.sink.FindContact(ctx, event.Identity)
	if err != nil {
		r.logger.Warn("contact lookup failed",
			slog.String("identity", event.Identity),
			slog.Any("error", err))
		return
	}
	if !found {
		contactID, err = r.sink.CreateContact(ctx, event.Identity)
		if err != nil {
			r.logger.Warn("contact create failed",
				slog.String("identity", event.Identity),
				slog.Any("error", err))
			return
		}
	}
	if err := r.sink.AddNote(ctx, contactID, event); err != nil {
		r.logger.Warn("note create failed",
			slog.String("identity", event.Identity),
			slog.String("contact_id", contactID),
			slog.Any("error", err))
	}
}
