package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/nehalDIU/NestTask-V8.5-Depertment-sub001/internal/metrics"
	"github.com/nehalDIU/NestTask-V8.5-Depertment-sub001/internal/model"
	"github.com/nehalDIU/NestTask-V8.5-Depertment-sub001/internal/push"
	"github.com/nehalDIU/NestTask-V8.5-Depertment-sub001/internal/store"
)

// ErrAudienceResolution marks a dispatch that aborted before any send
// because the audience could not be computed. It is the only dispatcher
// error the caller sees as a whole-dispatch failure; everything past
// resolution degrades into delivery-log rows instead.
var ErrAudienceResolution = errors.New("dispatch: audience resolution failed")

// Store is the slice of the data layer the dispatcher needs.
type Store interface {
	ResolveAudience(ctx context.Context, sectionID string, category model.Category, now time.Time) ([]store.Recipient, error)
	CreateRecord(ctx context.Context, rec *model.NotificationRecord) error
	DeactivateToken(ctx context.Context, token string) error
}

// TaskEvent is the task-creation trigger, fired by the academic CRUD layer
// after a section-scoped task insert commits.
type TaskEvent struct {
	TaskID    string
	SectionID string
	Title     string
	Body      string
	DueDate   *time.Time
	Category  model.Category
	RelatedID string
}

// Summary is the aggregate outcome of one dispatch.
type Summary struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
	Total  int `json:"total"`
}

// Dispatcher fans one task event out to every eligible device token through
// a fixed-size worker pool shared by all dispatches, capping concurrent
// in-flight gateway sends.
type Dispatcher struct {
	store       Store
	sender      push.Sender
	size        int
	sendTimeout time.Duration
	jobs        chan sendJob
}

// sendJob is one gateway send on behalf of one dispatch.
type sendJob struct {
	ctx context.Context
	msg *push.Message
	rec model.NotificationRecord
	col *collector
	wg  *sync.WaitGroup
}

// collector accumulates send outcomes for a single dispatch. The mutex at
// the point of insertion is the only shared state between that dispatch's
// jobs.
type collector struct {
	mu     sync.Mutex
	sent   int
	failed int
}

func (c *collector) add(ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ok {
		c.sent++
	} else {
		c.failed++
	}
}

// NewDispatcher creates a dispatcher with the given pool size and per-send
// timeout.
func NewDispatcher(s Store, sender push.Sender, size int, sendTimeout time.Duration) *Dispatcher {
	if size <= 0 {
		size = 1
	}
	if sendTimeout <= 0 {
		sendTimeout = 10 * time.Second
	}
	return &Dispatcher{
		store:       s,
		sender:      sender,
		size:        size,
		sendTimeout: sendTimeout,
		jobs:        make(chan sendJob, size),
	}
}

// Start launches the worker goroutines. They run until ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.size; i++ {
		go d.worker(ctx, i)
	}
}

func (d *Dispatcher) worker(ctx context.Context, id int) {
	log.Printf("dispatch worker %d started", id)
	for {
		select {
		case job := <-d.jobs:
			d.process(job)
		case <-ctx.Done():
			log.Printf("dispatch worker %d shutting down", id)
			return
		}
	}
}

// Dispatch resolves the event's audience and sends one notification per
// (user, token) pair. Audience-resolution failure aborts the whole dispatch
// with zero writes; every later failure is recorded per token and never
// blocks sibling sends. Dispatch returns once all of its own sends have
// completed.
func (d *Dispatcher) Dispatch(ctx context.Context, ev TaskEvent) (Summary, error) {
	if ev.RelatedID == "" {
		ev.RelatedID = ev.TaskID
	}
	if ev.Body == "" {
		ev.Body = synthesizeBody(ev)
	}

	recipients, err := d.store.ResolveAudience(ctx, ev.SectionID, ev.Category, time.Now().UTC())
	if err != nil {
		metrics.DispatchesTotal.WithLabelValues("resolution_failed").Inc()
		return Summary{}, fmt.Errorf("%w: %v", ErrAudienceResolution, err)
	}
	if len(recipients) == 0 {
		metrics.DispatchesTotal.WithLabelValues("empty").Inc()
		return Summary{}, nil
	}

	payload, err := json.Marshal(eventData(ev))
	if err != nil {
		metrics.DispatchesTotal.WithLabelValues("resolution_failed").Inc()
		return Summary{}, fmt.Errorf("%w: marshal payload: %v", ErrAudienceResolution, err)
	}

	col := &collector{}
	var wg sync.WaitGroup
	for _, r := range recipients {
		wg.Add(1)
		d.jobs <- sendJob{
			ctx: ctx,
			msg: &push.Message{
				Token:       r.Token,
				DeviceClass: r.DeviceClass,
				Title:       ev.Title,
				Body:        ev.Body,
				Data:        eventData(ev),
				Priority:    categoryPriority(ev.Category),
			},
			rec: model.NotificationRecord{
				UserID:    r.UserID,
				Title:     ev.Title,
				Body:      ev.Body,
				Payload:   payload,
				Category:  ev.Category,
				RelatedID: ev.RelatedID,
				Token:     r.Token,
			},
			col: col,
			wg:  &wg,
		}
	}
	wg.Wait()

	metrics.DispatchesTotal.WithLabelValues("ok").Inc()
	return Summary{Sent: col.sent, Failed: col.failed, Total: len(recipients)}, nil
}

// process performs one send, writes its delivery-log row, and deactivates
// the token when the gateway reported it permanently invalid.
func (d *Dispatcher) process(job sendJob) {
	defer job.wg.Done()

	sendCtx, cancel := context.WithTimeout(job.ctx, d.sendTimeout)
	started := time.Now()
	err := d.sender.Send(sendCtx, job.msg)
	cancel()
	metrics.SendDuration.Observe(time.Since(started).Seconds())

	rec := job.rec
	if err != nil {
		rec.Status = model.StatusFailed
		rec.Error = err.Error()
		if push.IsPermanent(err) {
			if derr := d.store.DeactivateToken(job.ctx, rec.Token); derr != nil {
				log.Printf("failed to deactivate invalid token for user %s: %v", rec.UserID, derr)
			} else {
				metrics.TokensDeactivated.Inc()
			}
		}
	} else {
		rec.Status = model.StatusSent
	}
	metrics.SendsTotal.WithLabelValues(string(rec.Category), string(rec.Status)).Inc()

	if cerr := d.store.CreateRecord(job.ctx, &rec); cerr != nil {
		log.Printf("failed to write delivery record for user %s: %v", rec.UserID, cerr)
	}

	job.col.add(err == nil)
}

// eventData is the structured payload clients use to deep-link into the
// task that triggered the notification.
func eventData(ev TaskEvent) map[string]string {
	return map[string]string{
		"type":         string(ev.Category),
		"taskId":       ev.TaskID,
		"sectionId":    ev.SectionID,
		"relatedId":    ev.RelatedID,
		"click_action": "/tasks/" + ev.TaskID,
	}
}

// categoryPriority maps task notifications to high priority so devices wake
// immediately; everything else rides normal priority.
func categoryPriority(c model.Category) push.Priority {
	if c == model.CategoryTask {
		return push.PriorityHigh
	}
	return push.PriorityNormal
}

// synthesizeBody builds a body for triggers that carry only a due date.
func synthesizeBody(ev TaskEvent) string {
	if ev.DueDate != nil {
		return fmt.Sprintf("%s is due %s", ev.Title, ev.DueDate.Format("Mon, Jan 2 15:04"))
	}
	return fmt.Sprintf("A new %s was posted to your section", ev.Category)
}
