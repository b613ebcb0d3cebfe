package notify

import (
	"context"
	"time"

	"github.com/juju/errors"

	"schoolattend/internal/attendance"
	"schoolattend/internal/queue"
)

// Job types carried on the queue.
const (
	TypeDailyReport = "daily_report"
	TypeScanNotice  = "scan_notice"
)

// DailyReportJob asks the worker to send the report for Date.
type DailyReportJob struct {
	Date string `json:"date"`
}

// ScanNoticeJob announces a single accepted scan.
type ScanNoticeJob struct {
	Name string          `json:"name"`
	Kind attendance.Kind `json:"kind"`
	Time string          `json:"time"`
}

// Dispatcher enqueues notification jobs. It never sends anything itself.
type Dispatcher struct {
	q       queue.Queue
	timeout time.Duration
}

// NewDispatcher creates a dispatcher publishing to q with a bounded timeout.
func NewDispatcher(q queue.Queue, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Dispatcher{q: q, timeout: timeout}
}

func (d *Dispatcher) publish(ctx context.Context, typ string, body interface{}) (string, error) {
	msg, err := queue.NewMessage(typ, body)
	if err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	if err := d.q.Publish(ctx, msg); err != nil {
		return "", errors.Annotatef(err, "enqueue %s", typ)
	}
	return msg.ID, nil
}

// EnqueueReport schedules the daily report for date and returns the job id.
func (d *Dispatcher) EnqueueReport(ctx context.Context, date string) (string, error) {
	return d.publish(ctx, TypeDailyReport, DailyReportJob{Date: date})
}

// EnqueueScan schedules a notice for an accepted scan.
func (d *Dispatcher) EnqueueScan(ctx context.Context, job ScanNoticeJob) (string, error) {
	return d.publish(ctx, TypeScanNotice, job)
}
