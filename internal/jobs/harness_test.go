package jobs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kosavsech/SchoolDiary-sub000/internal/db"
	"github.com/kosavsech/SchoolDiary-sub000/internal/events"
	"github.com/kosavsech/SchoolDiary-sub000/internal/identity"
	"github.com/kosavsech/SchoolDiary-sub000/internal/models"
	"github.com/kosavsech/SchoolDiary-sub000/internal/notify"
	"github.com/kosavsech/SchoolDiary-sub000/internal/portal"
	"github.com/kosavsech/SchoolDiary-sub000/internal/scheduler"
)

var testNow = time.Date(2024, 9, 1, 9, 0, 0, 0, time.UTC)

type page struct {
	status int
	body   string
	delay  time.Duration
}

// harness wires jobs to a fake portal, a temp database and an in-memory
// notification sink.
type harness struct {
	t      *testing.T
	srv    *httptest.Server
	client *portal.Client
	store  *db.DB
	sink   *notify.MemorySink
	bus    *events.Bus
	evs    <-chan events.Event
	allow  atomic.Bool
	deps   *Deps
	reg    *scheduler.Registry

	mu    sync.Mutex
	pages map[string]page
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{t: t, pages: make(map[string]page)}
	h.allow.Store(true)

	h.srv = httptest.NewServer(http.HandlerFunc(h.serve))
	t.Cleanup(h.srv.Close)

	store, err := db.Open(t.TempDir())
	if err != nil {
		t.Fatalf("db.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	h.store = store

	h.client = portal.New(h.srv.URL, "test-session")
	h.sink = &notify.MemorySink{}
	h.bus = events.NewBus()
	var cancel func()
	h.evs, cancel = h.bus.Subscribe(256)
	t.Cleanup(cancel)

	h.deps = &Deps{
		Fetcher:  h.client,
		Store:    store,
		Notifier: notify.New(h.sink, notify.PermissionFunc(h.allow.Load)),
		Events:   h.bus,
		Config: Config{
			UpcomingDays:    7,
			TaskTitleMaxLen: 20,
			Now:             func() time.Time { return testNow },
		},
	}
	h.reg = scheduler.NewRegistry()
	RegisterAll(h.reg, h.deps, true)
	return h
}

func (h *harness) serve(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Path
	if term := r.URL.Query().Get("term"); term != "" {
		key += "?term=" + term
	}
	h.mu.Lock()
	p, ok := h.pages[key]
	h.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-r.Context().Done():
			return
		}
	}
	if p.status != 0 && p.status != http.StatusOK {
		w.WriteHeader(p.status)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(p.body))
}

func (h *harness) set(path, body string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pages[path] = page{body: body}
}

func (h *harness) setPage(path string, p page) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pages[path] = p
}

func (h *harness) run(name string) scheduler.Report {
	h.t.Helper()
	job, err := h.reg.Resolve(name)
	if err != nil {
		h.t.Fatalf("Resolve(%s): %v", name, err)
	}
	return job.Run(context.Background())
}

func (h *harness) mustSucceed(name string) scheduler.Report {
	h.t.Helper()
	rep := h.run(name)
	if rep.Result != scheduler.Success {
		h.t.Fatalf("%s: result = %s, err = %v", name, rep.Result, rep.Err)
	}
	return rep
}

func (h *harness) seedSubjects(names ...string) {
	h.t.Helper()
	for _, n := range names {
		s := &models.Subject{ID: identity.SubjectID(n), FullName: n, CreatedAt: testNow}
		if err := h.store.UpsertSubject(context.Background(), s); err != nil {
			h.t.Fatalf("seed subject %s: %v", n, err)
		}
	}
}

// drain returns events published so far
func (h *harness) drain() []events.Event {
	var out []events.Event
	for {
		select {
		case e := <-h.evs:
			out = append(out, e)
		default:
			return out
		}
	}
}

func kinds(evs []events.Event, k events.Kind) []events.Event {
	var out []events.Event
	for _, e := range evs {
		if e.Kind == k {
			out = append(out, e)
		}
	}
	return out
}

func count(t *testing.T, fn func(context.Context) (int, error)) int {
	t.Helper()
	n, err := fn(context.Background())
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func date(day, month, year int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}
