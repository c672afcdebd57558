package schedule_test

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/mutker/telemetry/config"
	"codeberg.org/mutker/telemetry/errors"
	"codeberg.org/mutker/telemetry/schedule"
)

type storedPing struct {
	documentID string
	uploadPath string
	payload    []byte
}

type fakeStore struct {
	mu         sync.Mutex
	pings      map[string][]storedPing
	typesCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{pings: map[string][]storedPing{}}
}

func (s *fakeStore) add(pingType, documentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pings[pingType] = append(s.pings[pingType], storedPing{
		documentID: documentID,
		uploadPath: "/submit/telemetry/" + documentID,
		payload:    []byte(`{}`),
	})
}

func (s *fakeStore) count(pingType string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.pings[pingType])
}

func (s *fakeStore) typesCallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.typesCalls
}

func (s *fakeStore) Types(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.typesCalls++
	var types []string
	for pingType, pings := range s.pings {
		if len(pings) > 0 {
			types = append(types, pingType)
		}
	}
	sort.Strings(types)

	return types, nil
}

func (s *fakeStore) Process(_ context.Context, pingType string, process func(documentID, uploadPath string, payload []byte) bool) (bool, error) {
	for {
		s.mu.Lock()
		pings := s.pings[pingType]
		if len(pings) == 0 {
			s.mu.Unlock()

			return true, nil
		}
		head := pings[0]
		s.mu.Unlock()

		if !process(head.documentID, head.uploadPath, head.payload) {
			return false, nil
		}

		s.mu.Lock()
		s.pings[pingType] = s.pings[pingType][1:]
		s.mu.Unlock()
	}
}

type fakeUploader struct {
	mu       sync.Mutex
	gate     chan struct{}
	declined map[string]bool
	attempts []string
}

func (u *fakeUploader) Upload(_ context.Context, _ *config.Configuration, path string, _ []byte) (bool, error) {
	u.mu.Lock()
	u.attempts = append(u.attempts, path)
	declined := u.declined[path]
	u.mu.Unlock()

	if u.gate != nil {
		<-u.gate
	}

	return !declined, nil
}

func (u *fakeUploader) attemptCount() int {
	u.mu.Lock()
	defer u.mu.Unlock()

	return len(u.attempts)
}

func (u *fakeUploader) attempted() []string {
	u.mu.Lock()
	defer u.mu.Unlock()

	return append([]string(nil), u.attempts...)
}

func testConfig() *config.Configuration {
	cfg := config.DefaultConfig()
	cfg.UploadInterval = time.Hour

	return cfg
}

func startScheduler(t *testing.T, store *fakeStore, uploader *fakeUploader, cfg *config.Configuration) *schedule.CronScheduler {
	t.Helper()
	s := schedule.NewCronScheduler(store, uploader)
	require.NoError(t, s.Start(cfg), "start scheduler")
	t.Cleanup(func() {
		_ = s.Close()
	})

	return s
}

func TestScheduleUploadRequiresStart(t *testing.T) {
	s := schedule.NewCronScheduler(newFakeStore(), &fakeUploader{})

	err := s.ScheduleUpload(context.Background(), testConfig())
	assert.True(t, errors.HasCode(err, schedule.ErrNotStarted), "expected not-started code")
}

func TestLifecycle(t *testing.T) {
	cfg := testConfig()
	s := schedule.NewCronScheduler(newFakeStore(), &fakeUploader{})

	require.NoError(t, s.Start(cfg), "start")
	require.NoError(t, s.Start(cfg), "second start is a no-op")
	require.NoError(t, s.Close(), "close")
	require.NoError(t, s.Close(), "second close is a no-op")

	err := s.ScheduleUpload(context.Background(), cfg)
	assert.True(t, errors.HasCode(err, schedule.ErrNotStarted), "expected not-started after close")
}

func TestStartAfterCloseReturnsError(t *testing.T) {
	cfg := testConfig()
	s := schedule.NewCronScheduler(newFakeStore(), &fakeUploader{})

	require.NoError(t, s.Start(cfg), "start")
	require.NoError(t, s.Close(), "close")

	err := s.Start(cfg)
	require.Error(t, err, "expected restart to fail")
	assert.True(t, errors.HasCode(err, schedule.ErrClosed), "expected closed code from restart")
}

func TestScheduleUploadDrainsStore(t *testing.T) {
	store := newFakeStore()
	store.add("core", "d1")
	store.add("core", "d2")
	store.add("mobile-events", "d3")
	uploader := &fakeUploader{}
	cfg := testConfig()
	s := startScheduler(t, store, uploader, cfg)

	require.NoError(t, s.ScheduleUpload(context.Background(), cfg), "schedule upload")
	require.Eventually(t, func() bool {
		return store.count("core") == 0 && store.count("mobile-events") == 0
	}, 5*time.Second, 10*time.Millisecond, "expected the store drained")

	assert.ElementsMatch(t,
		[]string{"/submit/telemetry/d1", "/submit/telemetry/d2", "/submit/telemetry/d3"},
		uploader.attempted(), "expected every stored ping uploaded once")
}

func TestPassStopsAtDeclinedPing(t *testing.T) {
	store := newFakeStore()
	store.add("core", "d1")
	store.add("core", "d2")
	store.add("core", "d3")
	uploader := &fakeUploader{declined: map[string]bool{"/submit/telemetry/d2": true}}
	cfg := testConfig()
	s := startScheduler(t, store, uploader, cfg)

	require.NoError(t, s.ScheduleUpload(context.Background(), cfg), "schedule upload")
	require.Eventually(t, func() bool {
		return uploader.attemptCount() == 2 && store.count("core") == 2
	}, 5*time.Second, 10*time.Millisecond, "expected the pass to stop at the declined ping")

	assert.Equal(t, []string{"/submit/telemetry/d1", "/submit/telemetry/d2"}, uploader.attempted(),
		"expected uploads in stored order up to the declined ping")
}

func TestPendingRequestsCoalesce(t *testing.T) {
	store := newFakeStore()
	store.add("core", "d1")
	gate := make(chan struct{})
	uploader := &fakeUploader{gate: gate}
	cfg := testConfig()
	s := startScheduler(t, store, uploader, cfg)

	ctx := context.Background()
	require.NoError(t, s.ScheduleUpload(ctx, cfg), "first request")
	require.Eventually(t, func() bool {
		return uploader.attemptCount() == 1
	}, 5*time.Second, 10*time.Millisecond, "expected the first pass to start")

	// One of these queues as the pending pass, the rest ride along.
	for i := 0; i < 5; i++ {
		require.NoError(t, s.ScheduleUpload(ctx, cfg), "burst request")
	}
	close(gate)

	require.Eventually(t, func() bool {
		return store.count("core") == 0
	}, 5*time.Second, 10*time.Millisecond, "expected the store drained")
	assert.Equal(t, 1, uploader.attemptCount(), "expected no duplicate upload")
	assert.LessOrEqual(t, store.typesCallCount(), 2, "expected the burst coalesced into one pending pass")
}

func TestUploadDisabledSkipsPass(t *testing.T) {
	store := newFakeStore()
	store.add("core", "d1")
	uploader := &fakeUploader{}
	cfg := testConfig()
	cfg.SetUploadEnabled(false)
	s := startScheduler(t, store, uploader, cfg)

	require.NoError(t, s.ScheduleUpload(context.Background(), cfg), "schedule upload")
	assert.Never(t, func() bool {
		return uploader.attemptCount() > 0
	}, 200*time.Millisecond, 20*time.Millisecond, "expected no upload attempts while upload is disabled")
	assert.Equal(t, 1, store.count("core"), "expected the ping kept")
}
