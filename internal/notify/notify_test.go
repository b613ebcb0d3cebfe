package notify_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"schoolattend/internal/attendance"
	"schoolattend/internal/notify"
	"schoolattend/internal/queue"
)

func TestBuildReport(t *testing.T) {
	rows := []attendance.EventRow{
		{Name: "Alice", Time: "08:47:00", Kind: attendance.KindClockIn},
		{Name: "Alice", Time: "15:02:10", Kind: attendance.KindClockOut},
	}
	want := "Attendance Report for 2024-01-10\n\nAlice - Clock In at 08:47 AM\nAlice - Clock Out at 03:02 PM\n"
	if got := notify.BuildReport("2024-01-10", rows); got != want {
		t.Errorf("BuildReport() = %q, want %q", got, want)
	}

	empty := "Attendance Report for 2024-01-10\nNo attendance records for today."
	if got := notify.BuildReport("2024-01-10", nil); got != empty {
		t.Errorf("BuildReport(empty) = %q, want %q", got, empty)
	}
}

func TestTelegramSendText(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/botTOKEN/sendMessage" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	tg := notify.NewTelegram(srv.URL, "TOKEN", "42", time.Second)
	if err := tg.SendText(context.Background(), "hello"); err != nil {
		t.Fatalf("SendText() error = %v", err)
	}
	if got["chat_id"] != "42" || got["text"] != "hello" {
		t.Errorf("payload = %v", got)
	}
}

func TestTelegramFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"http error", func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, `{"ok":false}`, http.StatusUnauthorized)
		}},
		{"not ok", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"ok":false,"description":"chat not found"}`))
		}},
		{"timeout", func(w http.ResponseWriter, _ *http.Request) {
			time.Sleep(200 * time.Millisecond)
			_, _ = w.Write([]byte(`{"ok":true}`))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()
			tg := notify.NewTelegram(srv.URL, "TOKEN", "42", 50*time.Millisecond)
			err := tg.SendText(context.Background(), "hello")
			if err == nil {
				t.Fatal("expected error")
			}
			if strings.Contains(err.Error(), "TOKEN") {
				t.Errorf("error leaks token: %v", err)
			}
		})
	}
}

type recordingSender struct {
	mu    sync.Mutex
	texts []string
	err   error
	sent  chan struct{}
}

func (s *recordingSender) SendText(_ context.Context, text string) error {
	s.mu.Lock()
	s.texts = append(s.texts, text)
	s.mu.Unlock()
	s.sent <- struct{}{}
	return s.err
}

type staticEvents []attendance.EventRow

func (e staticEvents) EventsOnDate(context.Context, string, string) ([]attendance.EventRow, error) {
	return e, nil
}

func TestWorkerDeliversJobs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := queue.NewInMemory(8)
	sender := &recordingSender{sent: make(chan struct{}, 8), err: errors.New("first fails")}
	events := staticEvents{{Name: "Bob", Time: "07:05:00", Kind: attendance.KindClockIn}}
	w := notify.NewWorker(q, sender, events, time.Second, nil)
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	d := notify.NewDispatcher(q, time.Second)
	if _, err := d.EnqueueScan(ctx, notify.ScanNoticeJob{Name: "Bob", Kind: attendance.KindClockIn, Time: "07:05:00"}); err != nil {
		t.Fatal(err)
	}
	if _, err := d.EnqueueReport(ctx, "2024-01-10"); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		select {
		case <-sender.sent:
		case <-time.After(2 * time.Second):
			t.Fatalf("job %d not delivered", i)
		}
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	sender.mu.Lock()
	defer sender.mu.Unlock()
	if sender.texts[0] != "Bob - Clock In at 07:05 AM" {
		t.Errorf("scan notice = %q", sender.texts[0])
	}
	if !strings.HasPrefix(sender.texts[1], "Attendance Report for 2024-01-10\n\nBob - Clock In at 07:05 AM") {
		t.Errorf("report = %q", sender.texts[1])
	}
}

func TestWorkerRejectsUnknownJob(t *testing.T) {
	w := notify.NewWorker(queue.NewInMemory(1), notify.LogSender{}, staticEvents{}, time.Second, nil)
	if err := w.Handle(context.Background(), queue.Message{Type: "mystery"}); err == nil {
		t.Fatal("expected error for unknown job type")
	}
}
