package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"schoolattend/internal/api"
	"schoolattend/internal/attendance"
	"schoolattend/internal/attendance/attendancetest"
	"schoolattend/internal/auth"
	"schoolattend/internal/live"
	"schoolattend/internal/notify"
	"schoolattend/internal/roster"
)

type staticRoster roster.Roster

func (r staticRoster) Roster(context.Context) (roster.Roster, error) { return roster.Roster(r), nil }

type fakeNotifier struct {
	mu      sync.Mutex
	reports []string
	scans   []notify.ScanNoticeJob
	err     error
}

func (n *fakeNotifier) EnqueueReport(_ context.Context, date string) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reports = append(n.reports, date)
	return "job-1", n.err
}

func (n *fakeNotifier) EnqueueScan(_ context.Context, job notify.ScanNoticeJob) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.scans = append(n.scans, job)
	return "job-2", n.err
}

type fakeLive struct {
	mu   sync.Mutex
	msgs []live.Message
}

func (l *fakeLive) Broadcast(msg live.Message) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.msgs = append(l.msgs, msg)
}

func (l *fakeLive) ServeWS(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTeapot) }

type fixture struct {
	router   *gin.Engine
	store    *attendancetest.Store
	notifier *fakeNotifier
	live     *fakeLive
	now      time.Time
	token    string
	alice    attendance.Person
	bob      attendance.Person
}

func newFixture(t *testing.T, opts ...func(*api.Deps)) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	f := &fixture{
		store:    attendancetest.New(),
		notifier: &fakeNotifier{},
		live:     &fakeLive{},
		now:      time.Date(2024, 1, 10, 7, 0, 0, 0, time.UTC),
	}
	f.alice = f.store.AddPerson(attendance.Person{Name: "Alice", Group: "3A", CardID: "CARD-A"})
	f.bob = f.store.AddPerson(attendance.Person{Name: "Bob", Group: "3A", CardID: "CARD-B", Note: "part time"})

	svc := attendance.NewService(f.store, attendance.Options{
		Location: time.UTC,
		Now:      func() time.Time { return f.now },
	})
	hash, err := auth.HashPassword("s3cret")
	if err != nil {
		t.Fatal(err)
	}
	tokens := auth.NewTokens("test", "key", time.Hour, 2*time.Hour)
	pair, err := tokens.Issue("admin", auth.RoleAdmin)
	if err != nil {
		t.Fatal(err)
	}
	f.token = pair.AccessToken

	deps := api.Deps{
		Service: svc,
		Roster: staticRoster{Entries: []roster.Entry{
			{Seq: 1, Name: "Alice"},
			{Seq: 2, Name: "Bob"},
		}},
		Notifier:        f.notifier,
		Live:            f.live,
		Tokens:          tokens,
		Credentials:     auth.NewCredentials("admin", hash),
		Health:          map[string]api.HealthCheck{"db": func(context.Context) bool { return true }},
		NotifyOnScan:    true,
		RateLimitPerMin: 1000,
	}
	for _, opt := range opts {
		opt(&deps)
	}
	f.router = api.NewRouter(deps)
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body interface{}, authed bool) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}

func TestScanFlow(t *testing.T) {
	f := newFixture(t)

	steps := []struct {
		clock  time.Duration
		card   string
		status int
		want   map[string]interface{}
	}{
		{7 * time.Hour, "card-a", http.StatusOK, map[string]interface{}{"status": "success", "kind": "clock_in", "time": "07:00 AM", "name": "Alice"}},
		{8 * time.Hour, "CARD-A", http.StatusOK, map[string]interface{}{"status": "warning", "reason": "already_clocked_in"}},
		{8*time.Hour + 47*time.Minute, "CARD-B", http.StatusOK, map[string]interface{}{"status": "success", "time": "08:47 AM"}},
		{15 * time.Hour, "CARD-A", http.StatusOK, map[string]interface{}{"status": "success", "kind": "clock_out", "time": "03:00 PM"}},
		{16 * time.Hour, "CARD-A", http.StatusOK, map[string]interface{}{"status": "warning", "reason": "already_complete"}},
		{16 * time.Hour, "NOPE", http.StatusNotFound, map[string]interface{}{"status": "error", "reason": "unknown_card"}},
	}
	for _, st := range steps {
		f.now = time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC).Add(st.clock)
		w := f.do(t, http.MethodPost, "/v1/scans", map[string]string{"card_id": st.card}, false)
		if w.Code != st.status {
			t.Fatalf("%s at %s: status = %d, body %s", st.card, st.clock, w.Code, w.Body.String())
		}
		got := decode(t, w)
		for k, v := range st.want {
			if got[k] != v {
				t.Errorf("%s at %s: %s = %v, want %v", st.card, st.clock, k, got[k], v)
			}
		}
	}

	if len(f.live.msgs) != 3 {
		t.Errorf("broadcast %d messages, want 3", len(f.live.msgs))
	}
	if len(f.notifier.scans) != 3 || f.notifier.scans[1].Name != "Bob" {
		t.Errorf("scan notices = %+v", f.notifier.scans)
	}

	if w := f.do(t, http.MethodPost, "/v1/scans", map[string]string{"card_id": "  "}, false); w.Code != http.StatusBadRequest {
		t.Errorf("blank card status = %d", w.Code)
	}
}

func TestScanStoreUnavailable(t *testing.T) {
	f := newFixture(t)
	f.store.Err = errors.New("connection refused")
	w := f.do(t, http.MethodPost, "/v1/scans", map[string]string{"card_id": "CARD-A"}, false)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
}

func TestNotificationFailureDoesNotAffectScan(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("queue down")
	w := f.do(t, http.MethodPost, "/v1/scans", map[string]string{"card_id": "CARD-A"}, false)
	if w.Code != http.StatusOK || decode(t, w)["status"] != "success" {
		t.Fatalf("scan = %d %s", w.Code, w.Body.String())
	}
}

func TestAdminRequiresToken(t *testing.T) {
	f := newFixture(t)
	for _, path := range []string{"/v1/admin/summary", "/v1/admin/persons", "/v1/admin/export?group=3A"} {
		if w := f.do(t, http.MethodGet, path, nil, false); w.Code != http.StatusUnauthorized {
			t.Errorf("%s without token: %d", path, w.Code)
		}
	}
	if w := f.do(t, http.MethodGet, "/ws/activity", nil, false); w.Code != http.StatusUnauthorized {
		t.Errorf("ws without token: %d", w.Code)
	}
	if w := f.do(t, http.MethodGet, "/ws/activity?token="+f.token, nil, false); w.Code != http.StatusTeapot {
		t.Errorf("ws with query token: %d", w.Code)
	}
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodPost, "/v1/auth/login", map[string]string{"username": "admin", "password": "wrong"}, false)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bad login status = %d", w.Code)
	}
	w = f.do(t, http.MethodPost, "/v1/auth/login", map[string]string{"username": "admin", "password": "s3cret"}, false)
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d %s", w.Code, w.Body.String())
	}
	body := decode(t, w)
	refresh, _ := body["refresh_token"].(string)
	if body["access_token"] == "" || refresh == "" {
		t.Fatalf("tokens missing: %v", body)
	}
	w = f.do(t, http.MethodPost, "/v1/auth/refresh", map[string]string{"refresh_token": refresh}, false)
	if w.Code != http.StatusOK {
		t.Errorf("refresh status = %d", w.Code)
	}
}

func TestExport(t *testing.T) {
	f := newFixture(t)
	f.store.AddEvent(attendance.ScanEvent{PersonID: f.alice.ID, Date: "2024-01-10", Time: "08:00:00", Kind: attendance.KindClockIn})
	f.store.AddEvent(attendance.ScanEvent{PersonID: f.alice.ID, Date: "2024-01-10", Time: "15:00:00", Kind: attendance.KindClockOut})

	w := f.do(t, http.MethodGet, "/v1/admin/export/preview?date=2024-01-10&group=3A", nil, true)
	if w.Code != http.StatusOK {
		t.Fatalf("preview status = %d %s", w.Code, w.Body.String())
	}
	var sheet struct {
		Rows []struct {
			Seq     int    `json:"seq"`
			Name    string `json:"name"`
			TimeIn  string `json:"time_in"`
			TimeOut string `json:"time_out"`
			Note    string `json:"note"`
		} `json:"rows"`
		Warnings []string `json:"warnings"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &sheet); err != nil {
		t.Fatal(err)
	}
	if len(sheet.Rows) != 2 || sheet.Rows[0].TimeIn != "08:00 AM" || sheet.Rows[0].TimeOut != "03:00 PM" ||
		sheet.Rows[1].Name != "Bob" || sheet.Rows[1].TimeIn != "" || sheet.Rows[1].Note != "part time" {
		t.Errorf("rows = %+v", sheet.Rows)
	}
	if len(sheet.Warnings) != 0 {
		t.Errorf("warnings = %v", sheet.Warnings)
	}

	f.store.AddPerson(attendance.Person{Name: "Charlie", Group: "3A", CardID: "CARD-C"})
	w = f.do(t, http.MethodGet, "/v1/admin/export?date=2024-01-10&group=3A", nil, true)
	if w.Code != http.StatusOK {
		t.Fatalf("export status = %d %s", w.Code, w.Body.String())
	}
	if got := w.Header().Get("X-Export-Warnings"); got != "CHARLIE" {
		t.Errorf("warnings header = %q", got)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "attendance_2024-01-10_3A.xlsx") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	wb, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer wb.Close()
	if v, _ := wb.GetCellValue("Attendance", "C4"); v != "08:00 AM" {
		t.Errorf("C4 = %q", v)
	}

	if w := f.do(t, http.MethodGet, "/v1/admin/export?date=2024-01-10", nil, true); w.Code != http.StatusBadRequest {
		t.Errorf("missing group status = %d", w.Code)
	}
	if w := f.do(t, http.MethodGet, "/v1/admin/export?date=10-01-2024&group=3A", nil, true); w.Code != http.StatusBadRequest {
		t.Errorf("bad date status = %d", w.Code)
	}
}

func TestPersonsCRUD(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/v1/admin/persons", map[string]string{"name": "Dana", "group": "4B", "card_id": "card-a"}, true)
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate card status = %d", w.Code)
	}
	w = f.do(t, http.MethodPost, "/v1/admin/persons", map[string]string{"name": "", "group": "4B", "card_id": "D"}, true)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("invalid person status = %d", w.Code)
	}
	w = f.do(t, http.MethodPost, "/v1/admin/persons", map[string]string{"name": "Dana", "group": "4B", "card_id": "D"}, true)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d %s", w.Code, w.Body.String())
	}
	id, _ := decode(t, w)["id"].(string)

	w = f.do(t, http.MethodPatch, "/v1/admin/persons/"+id, map[string]string{"group": "3A"}, true)
	if w.Code != http.StatusOK || decode(t, w)["group"] != "3A" {
		t.Fatalf("update = %d %s", w.Code, w.Body.String())
	}

	w = f.do(t, http.MethodGet, "/v1/admin/persons?group=3A", nil, true)
	var list struct {
		Persons []attendance.Person `json:"persons"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if len(list.Persons) != 3 {
		t.Errorf("persons in 3A = %d, want 3", len(list.Persons))
	}

	if w := f.do(t, http.MethodDelete, "/v1/admin/persons/"+id, nil, true); w.Code != http.StatusNoContent {
		t.Errorf("delete status = %d", w.Code)
	}
	if w := f.do(t, http.MethodGet, "/v1/admin/persons/"+id, nil, true); w.Code != http.StatusNotFound {
		t.Errorf("get deleted status = %d", w.Code)
	}
}

func TestDashboardEndpoints(t *testing.T) {
	f := newFixture(t)
	f.store.AddEvent(attendance.ScanEvent{PersonID: f.alice.ID, Date: "2024-01-10", Time: "06:45:00", Kind: attendance.KindClockIn})
	f.store.AddEvent(attendance.ScanEvent{PersonID: f.alice.ID, Date: "2024-01-09", Time: "06:50:00", Kind: attendance.KindClockIn})
	f.store.AddEvent(attendance.ScanEvent{PersonID: f.alice.ID, Date: "2024-01-09", Time: "15:10:00", Kind: attendance.KindClockOut})

	w := f.do(t, http.MethodGet, "/v1/admin/summary", nil, true)
	if w.Code != http.StatusOK {
		t.Fatalf("summary status = %d", w.Code)
	}
	s := decode(t, w)
	if s["persons"] != float64(2) || s["scanned_today"] != float64(1) || s["pending"] != float64(1) || s["events"] != float64(3) {
		t.Errorf("summary = %v", s)
	}

	w = f.do(t, http.MethodGet, "/v1/admin/recent", nil, true)
	var recent []map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &recent); err != nil {
		t.Fatal(err)
	}
	if len(recent) != 3 || recent[0]["status"] != "CLOCK IN" || recent[0]["time"] != "06:45 AM" {
		t.Errorf("recent = %v", recent)
	}

	w = f.do(t, http.MethodGet, "/v1/admin/attendance?from=2024-01-09&to=2024-01-10", nil, true)
	var daily struct {
		Records []map[string]string `json:"records"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &daily); err != nil {
		t.Fatal(err)
	}
	if len(daily.Records) != 2 || daily.Records[0]["clock_out"] != "03:10 PM" {
		t.Errorf("daily = %v", daily.Records)
	}
	if w := f.do(t, http.MethodGet, "/v1/admin/attendance?from=2024-01-10&to=2024-01-09", nil, true); w.Code != http.StatusBadRequest {
		t.Errorf("reversed range status = %d", w.Code)
	}

	w = f.do(t, http.MethodGet, "/v1/admin/live", nil, true)
	var lv struct {
		Date    string              `json:"date"`
		Entries []map[string]string `json:"entries"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &lv); err != nil {
		t.Fatal(err)
	}
	if lv.Date != "2024-01-10" || len(lv.Entries) != 1 || lv.Entries[0]["name"] != "Alice" {
		t.Errorf("live = %+v", lv)
	}

	if w := f.do(t, http.MethodGet, "/v1/admin/statistics?days=2", nil, true); w.Code != http.StatusOK {
		t.Errorf("statistics status = %d", w.Code)
	}
	if w := f.do(t, http.MethodGet, "/v1/admin/statistics?days=0", nil, true); w.Code != http.StatusBadRequest {
		t.Errorf("statistics days=0 status = %d", w.Code)
	}
}

func TestSendReportAndImport(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodPost, "/v1/admin/reports/telegram", nil, true)
	if w.Code != http.StatusAccepted {
		t.Fatalf("report status = %d %s", w.Code, w.Body.String())
	}
	if len(f.notifier.reports) != 1 || f.notifier.reports[0] != "2024-01-10" {
		t.Errorf("reports = %v", f.notifier.reports)
	}

	f.notifier.err = errors.New("queue down")
	if w := f.do(t, http.MethodPost, "/v1/admin/reports/telegram", map[string]string{"date": "2024-01-09"}, true); w.Code != http.StatusServiceUnavailable {
		t.Errorf("failed enqueue status = %d", w.Code)
	}

	w = f.do(t, http.MethodPost, "/v1/admin/roster/import", nil, true)
	if w.Code != http.StatusOK {
		t.Fatalf("import status = %d", w.Code)
	}
	if created := decode(t, w)["created"]; created != float64(0) {
		t.Errorf("created = %v, want 0 for an already imported roster", created)
	}
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodGet, "/healthz", nil, false)
	if w.Code != http.StatusOK || decode(t, w)["db"] != true {
		t.Errorf("health = %d %s", w.Code, w.Body.String())
	}
}

func TestExportWithStoredRoster(t *testing.T) {
	f := newFixture(t, func(d *api.Deps) {
		d.Roster = roster.NewProvider("", d.Service, nil)
	})
	twin := f.store.AddPerson(attendance.Person{Name: "alice", Group: "3A", CardID: "CARD-A2"})
	f.store.AddPerson(attendance.Person{Name: "Alice", Group: "4B", CardID: "CARD-A4"})
	f.store.AddEvent(attendance.ScanEvent{PersonID: twin.ID, Date: "2024-01-10", Time: "07:10:00", Kind: attendance.KindClockIn})

	w := f.do(t, http.MethodGet, "/v1/admin/export/preview?date=2024-01-10&group=3A", nil, true)
	if w.Code != http.StatusOK {
		t.Fatalf("preview status = %d %s", w.Code, w.Body.String())
	}
	var sheet struct {
		Rows []struct {
			Seq    int    `json:"seq"`
			Name   string `json:"name"`
			TimeIn string `json:"time_in"`
		} `json:"rows"`
		Warnings []string `json:"warnings"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &sheet); err != nil {
		t.Fatal(err)
	}
	if len(sheet.Rows) != 3 {
		t.Fatalf("rows = %+v, want one per 3A member", sheet.Rows)
	}
	scanned := 0
	for i, r := range sheet.Rows {
		if r.Seq != i+1 {
			t.Errorf("row %d seq = %d", i, r.Seq)
		}
		if r.TimeIn != "" {
			scanned++
		}
	}
	if scanned != 1 {
		t.Errorf("rows with a clock-in = %d, want 1: %+v", scanned, sheet.Rows)
	}
	if len(sheet.Warnings) != 0 {
		t.Errorf("warnings = %v", sheet.Warnings)
	}
}
