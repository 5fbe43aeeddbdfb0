package sync

import (
	"context"
	"encoding/json"
	stdsync "sync"
	"time"

	"github.com/google/uuid"

	"github.com/lumenlabs/webinsight/internal/models"
	"github.com/lumenlabs/webinsight/internal/provider"
)

// fixedClock pins Now() for deterministic buffer and deadline math.
type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func timePtr(t time.Time) *time.Time { return &t }

func intPtr(n int) *int { return &n }

func jsonNumber(s string) json.Number { return json.Number(s) }

// fakePastAPI serves canned past-webinar payloads keyed by identifier and
// records every lookup. Guarded because enhancement batches call in
// parallel.
type fakePastAPI struct {
	responses map[string]*provider.PastWebinar
	errs      map[string]error

	mu    stdsync.Mutex
	calls []string
}

func (f *fakePastAPI) GetPastWebinar(_ context.Context, _, idOrUUID string) (*provider.PastWebinar, error) {
	f.mu.Lock()
	f.calls = append(f.calls, idOrUUID)
	f.mu.Unlock()
	if err, ok := f.errs[idOrUUID]; ok {
		return nil, err
	}
	if pw, ok := f.responses[idOrUUID]; ok {
		return pw, nil
	}
	return nil, &provider.APIError{StatusCode: 404, Code: 3001, Message: "not found", Endpoint: "/past_webinars/" + idOrUUID}
}

// fakeCollectorAPI serves canned list results for both endpoints plus the
// range scan, recording range-call bounds.
type fakeCollectorAPI struct {
	upcoming   []provider.StandardWebinar
	upErr      error
	historical []provider.ReportWebinar
	histErr    error
	ranged     []provider.StandardWebinar
	rangeErr   error
	rangeCalls [][2]time.Time
	listCalls  int
}

func (f *fakeCollectorAPI) ListWebinars(context.Context, string, string) ([]provider.StandardWebinar, error) {
	f.listCalls++
	return f.upcoming, f.upErr
}

func (f *fakeCollectorAPI) ListWebinarsRange(_ context.Context, _, _ string, from, to time.Time) ([]provider.StandardWebinar, error) {
	f.rangeCalls = append(f.rangeCalls, [2]time.Time{from, to})
	return f.ranged, f.rangeErr
}

func (f *fakeCollectorAPI) ListReportWebinars(context.Context, string, string, time.Time, time.Time) ([]provider.ReportWebinar, error) {
	return f.historical, f.histErr
}

// fakeInstancesAPI serves occurrences keyed by webinar id.
type fakeInstancesAPI struct {
	occurrences map[string][]provider.Occurrence
	err         error
}

func (f *fakeInstancesAPI) GetWebinarInstances(_ context.Context, _, id string) ([]provider.Occurrence, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.occurrences[id], nil
}

// fakeOrchAPI backs the orchestrator's credential probe and single-webinar
// lookups.
type fakeOrchAPI struct {
	me         *provider.User
	meErr      error
	meCalls    int
	webinar    *provider.StandardWebinar
	webinarErr error
}

func (f *fakeOrchAPI) GetMe(context.Context, string) (*provider.User, error) {
	f.meCalls++
	return f.me, f.meErr
}

func (f *fakeOrchAPI) GetWebinar(context.Context, string, string) (*provider.StandardWebinar, error) {
	return f.webinar, f.webinarErr
}

// memStore is an in-memory Store with per-id injectable upsert failures.
type memStore struct {
	webinars   map[string]models.Webinar
	instances  map[string]models.WebinarInstance
	listErr    error
	upsertErrs map[string]error
}

func newMemStore() *memStore {
	return &memStore{
		webinars:  make(map[string]models.Webinar),
		instances: make(map[string]models.WebinarInstance),
	}
}

func (m *memStore) ListWebinars(context.Context, uuid.UUID) ([]models.Webinar, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]models.Webinar, 0, len(m.webinars))
	for _, w := range m.webinars {
		out = append(out, w)
	}
	return out, nil
}

func (m *memStore) UpsertWebinar(_ context.Context, w *models.Webinar) error {
	if err := m.upsertErrs[w.WebinarID]; err != nil {
		return err
	}
	m.webinars[w.WebinarID] = *w
	return nil
}

func (m *memStore) ListInstances(_ context.Context, _ uuid.UUID, webinarID string) ([]models.WebinarInstance, error) {
	var out []models.WebinarInstance
	for _, inst := range m.instances {
		if inst.WebinarID == webinarID {
			out = append(out, inst)
		}
	}
	return out, nil
}

func (m *memStore) UpsertInstance(_ context.Context, inst *models.WebinarInstance) error {
	if err := m.upsertErrs[inst.InstanceID]; err != nil {
		return err
	}
	m.instances[inst.WebinarID+"/"+inst.InstanceID] = *inst
	return nil
}

// memHistory accumulates appended audit rows.
type memHistory struct {
	rows []models.SyncHistory
}

func (m *memHistory) Append(_ context.Context, h *models.SyncHistory) error {
	m.rows = append(m.rows, *h)
	return nil
}

// recordingProgress captures published stages in order.
type recordingProgress struct {
	stages []string
}

func (r *recordingProgress) PublishProgress(_ uuid.UUID, stage string, _ map[string]interface{}) {
	r.stages = append(r.stages, stage)
}
