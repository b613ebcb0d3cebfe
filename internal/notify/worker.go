package notify

import (
	"context"
	"io"
	"time"

	"github.com/juju/errors"
	"github.com/sirupsen/logrus"

	"schoolattend/internal/attendance"
	"schoolattend/internal/metrics"
	"schoolattend/internal/queue"
)

// EventSource provides the rows for a daily report.
type EventSource interface {
	EventsOnDate(ctx context.Context, date, group string) ([]attendance.EventRow, error)
}

// Worker consumes notification jobs and delivers them. Failures are logged and
// counted, never retried here.
type Worker struct {
	q       queue.Queue
	sender  Sender
	events  EventSource
	timeout time.Duration
	log     *logrus.Entry
}

// NewWorker creates a worker. timeout bounds the handling of each job.
func NewWorker(q queue.Queue, sender Sender, events EventSource, timeout time.Duration, log *logrus.Logger) *Worker {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if log == nil {
		log = logrus.New()
		log.Out = io.Discard
	}
	return &Worker{
		q:       q,
		sender:  sender,
		events:  events,
		timeout: timeout,
		log:     log.WithFields(logrus.Fields{"module": "notify", "scope": "worker"}),
	}
}

// Run processes jobs until ctx is done.
func (w *Worker) Run(ctx context.Context) error {
	messages, err := w.q.Consume(ctx)
	if err != nil {
		return errors.Annotate(err, "queue consume init failed")
	}
	w.log.Info("worker started, waiting for messages")
	for msg := range messages {
		result := "sent"
		if err := w.Handle(ctx, msg); err != nil {
			result = "failed"
			w.log.WithFields(logrus.Fields{"job": msg.ID, "type": msg.Type}).WithError(err).Error("notification failed")
		}
		metrics.Notifications.WithLabelValues(msg.Type, result).Inc()
	}
	w.log.Info("worker stopped")
	return nil
}

// Handle processes a single job within the worker timeout.
func (w *Worker) Handle(ctx context.Context, msg queue.Message) error {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	switch msg.Type {
	case TypeDailyReport:
		var job DailyReportJob
		if err := msg.Decode(&job); err != nil {
			return err
		}
		rows, err := w.events.EventsOnDate(ctx, job.Date, "")
		if err != nil {
			return errors.Annotatef(err, "load events for %s", job.Date)
		}
		if err := w.sender.SendText(ctx, BuildReport(job.Date, rows)); err != nil {
			return errors.Trace(err)
		}
		w.log.WithFields(logrus.Fields{"job": msg.ID, "date": job.Date, "rows": len(rows)}).Info("daily report sent")
		return nil
	case TypeScanNotice:
		var job ScanNoticeJob
		if err := msg.Decode(&job); err != nil {
			return err
		}
		return errors.Trace(w.sender.SendText(ctx, ScanLine(job.Name, job.Kind, job.Time)))
	default:
		return errors.NotSupportedf("job type %q", msg.Type)
	}
}
