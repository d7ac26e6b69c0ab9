package pipeline

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"clipforge/internal/jobstore"
	"clipforge/internal/models"
	"clipforge/internal/platform"
	"clipforge/internal/storage"
	"clipforge/internal/transcode"
)

// fakeTranscoder is a deterministic stand-in for the ffmpeg collaborator.
// It can be told to fail, panic, or delay per platform.
type fakeTranscoder struct {
	dir      string
	fail     map[string]bool
	panicOn  map[string]bool
	delay    map[string]time.Duration
	outBytes int
}

func newFakeTranscoder(dir string) *fakeTranscoder {
	return &fakeTranscoder{
		dir:      dir,
		fail:     make(map[string]bool),
		panicOn:  make(map[string]bool),
		delay:    make(map[string]time.Duration),
		outBytes: 2048,
	}
}

func (f *fakeTranscoder) Transcode(ctx context.Context, inputPath string, profile platform.Profile) (*transcode.Result, error) {
	if d := f.delay[profile.ID]; d > 0 {
		time.Sleep(d)
	}
	if f.panicOn[profile.ID] {
		panic("simulated transform panic: " + profile.ID)
	}
	if f.fail[profile.ID] {
		return nil, errors.New("simulated transform fault: " + profile.ID)
	}

	outPath := filepath.Join(f.dir, profile.ID+".mp4")
	if err := os.WriteFile(outPath, bytes.Repeat([]byte{0xAB}, f.outBytes), 0644); err != nil {
		return nil, err
	}
	return &transcode.Result{
		OutputPath: outPath,
		Width:      profile.Width,
		Height:     profile.Height,
	}, nil
}

type testEnv struct {
	db           *storage.DB
	jobs         *jobstore.Store
	contents     *storage.ContentRepository
	variants     *storage.VariantRepository
	orchestrator *Orchestrator
	status       *StatusService
	transcoder   *fakeTranscoder
}

func newTestEnv(t *testing.T, retention time.Duration) *testEnv {
	t.Helper()

	dir := t.TempDir()
	db, err := storage.Open(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	jobs := jobstore.NewStore(retention)
	contents := storage.NewContentRepository(db)
	variants := storage.NewVariantRepository(db)
	transcoder := newFakeTranscoder(dir)
	worker := NewTargetWorker(transcoder, variants)
	records := NewRecordSync(contents)
	registry := platform.DefaultRegistry()

	return &testEnv{
		db:           db,
		jobs:         jobs,
		contents:     contents,
		variants:     variants,
		orchestrator: NewOrchestrator(jobs, worker, records, registry),
		status:       NewStatusService(jobs, contents),
		transcoder:   transcoder,
	}
}

func (e *testEnv) submit(t *testing.T, targets []string) string {
	t.Helper()
	content := &models.Content{
		UserID:    "user-1",
		Title:     "test",
		Platforms: targets,
	}
	if err := e.contents.Create(context.Background(), content); err != nil {
		t.Fatalf("failed to create content: %v", err)
	}
	e.orchestrator.Start(content.ID, "source.mp4", targets)
	return content.ID
}

// waitTerminal polls until the job reaches a terminal status, checking
// that progress never decreases along the way.
func (e *testEnv) waitTerminal(t *testing.T, id string) *jobstore.Job {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	lastProgress := -1
	for {
		job, ok := e.jobs.Get(id)
		if ok {
			if job.Progress < lastProgress {
				t.Fatalf("progress went backwards: %d -> %d", lastProgress, job.Progress)
			}
			lastProgress = job.Progress
			if job.Status == models.JobStatusCompleted || job.Status == models.JobStatusFailed {
				if job.Progress != 100 {
					t.Fatalf("terminal job has progress %d, want 100", job.Progress)
				}
				return job
			}
			if job.Progress == 100 {
				t.Fatalf("progress hit 100 before terminal status (%s)", job.Status)
			}
		}
		if time.Now().After(deadline) {
			t.Fatal("job did not reach a terminal status")
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func sameSet(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	g := append([]string(nil), got...)
	w := append([]string(nil), want...)
	sort.Strings(g)
	sort.Strings(w)
	for i := range g {
		if g[i] != w[i] {
			return false
		}
	}
	return true
}

func TestPipelinePartialSuccess(t *testing.T) {
	env := newTestEnv(t, time.Minute)
	env.transcoder.fail["twitter"] = true

	targets := []string{"tiktok", "instagram", "twitter"}
	id := env.submit(t, targets)
	job := env.waitTerminal(t, id)

	if job.Status != models.JobStatusCompleted {
		t.Errorf("status = %s, want completed", job.Status)
	}
	if !sameSet(job.Completed, []string{"tiktok", "instagram"}) {
		t.Errorf("completed = %v, want [tiktok instagram]", job.Completed)
	}
	if !sameSet(job.Failed, []string{"twitter"}) {
		t.Errorf("failed = %v, want [twitter]", job.Failed)
	}
	if len(job.Completed)+len(job.Failed) != len(targets) {
		t.Errorf("completed+failed = %d, want %d", len(job.Completed)+len(job.Failed), len(targets))
	}

	variants, err := env.variants.ListByContentID(context.Background(), id)
	if err != nil {
		t.Fatalf("failed to list variants: %v", err)
	}
	if len(variants) != 2 {
		t.Fatalf("expected 2 variant rows, got %d", len(variants))
	}
	registry := platform.DefaultRegistry()
	for _, v := range variants {
		p, _ := registry.Lookup(v.Platform)
		if v.Width != p.Width || v.Height != p.Height {
			t.Errorf("%s variant is %dx%d, want %dx%d", v.Platform, v.Width, v.Height, p.Width, p.Height)
		}
	}

	content, _ := env.contents.GetByID(context.Background(), id)
	if content.Status != models.ContentStatusReady {
		t.Errorf("record status = %s, want ready", content.Status)
	}
}

func TestPipelineTotalFailure(t *testing.T) {
	env := newTestEnv(t, time.Minute)
	env.transcoder.fail["tiktok"] = true

	id := env.submit(t, []string{"tiktok"})
	job := env.waitTerminal(t, id)

	if job.Status != models.JobStatusFailed {
		t.Errorf("status = %s, want failed", job.Status)
	}
	if len(job.Completed) != 0 {
		t.Errorf("completed = %v, want empty", job.Completed)
	}
	if !sameSet(job.Failed, []string{"tiktok"}) {
		t.Errorf("failed = %v, want [tiktok]", job.Failed)
	}

	variants, _ := env.variants.ListByContentID(context.Background(), id)
	if len(variants) != 0 {
		t.Errorf("expected no variant rows, got %d", len(variants))
	}

	content, _ := env.contents.GetByID(context.Background(), id)
	if content.Status != models.ContentStatusFailed {
		t.Errorf("record status = %s, want failed", content.Status)
	}
}

// A panic inside one worker must not abort or delay its siblings.
func TestWorkerPanicIsolated(t *testing.T) {
	env := newTestEnv(t, time.Minute)
	env.transcoder.panicOn["facebook"] = true
	env.transcoder.delay["tiktok"] = 20 * time.Millisecond

	id := env.submit(t, []string{"tiktok", "facebook"})
	job := env.waitTerminal(t, id)

	if job.Status != models.JobStatusCompleted {
		t.Errorf("status = %s, want completed", job.Status)
	}
	if !sameSet(job.Completed, []string{"tiktok"}) {
		t.Errorf("completed = %v, want [tiktok]", job.Completed)
	}
	if !sameSet(job.Failed, []string{"facebook"}) {
		t.Errorf("failed = %v, want [facebook]", job.Failed)
	}
}

func TestUndersizedOutputFails(t *testing.T) {
	env := newTestEnv(t, time.Minute)
	env.transcoder.outBytes = 16 // below the verification threshold

	id := env.submit(t, []string{"tiktok"})
	job := env.waitTerminal(t, id)

	if job.Status != models.JobStatusFailed {
		t.Errorf("status = %s, want failed", job.Status)
	}
	variants, _ := env.variants.ListByContentID(context.Background(), id)
	if len(variants) != 0 {
		t.Errorf("expected no variant rows for unverified output, got %d", len(variants))
	}
}

// A record store failure during admission must still drive the job to
// a terminal failed state with an error detail, not leave it stuck in
// running or vanish into a log line.
func TestFatalRecordSyncFailure(t *testing.T) {
	env := newTestEnv(t, time.Minute)

	// Every durable write fails from here on, starting with the
	// orchestrator's MarkAccepted call.
	env.db.Close()

	env.orchestrator.Start("doomed-job", "source.mp4", []string{"tiktok"})
	job := env.waitTerminal(t, "doomed-job")

	if job.Status != models.JobStatusFailed {
		t.Errorf("status = %s, want failed", job.Status)
	}
	if job.Progress != 100 {
		t.Errorf("progress = %d, want 100", job.Progress)
	}
	if job.Error == "" {
		t.Error("terminal failure carries no error detail")
	}
}

func TestStatusFallbackAfterEviction(t *testing.T) {
	env := newTestEnv(t, 20*time.Millisecond)

	id := env.submit(t, []string{"tiktok"})
	env.waitTerminal(t, id)

	// Wait for the retention timer to purge the entry.
	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, ok := env.jobs.Get(id); !ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("job entry not evicted")
		}
		time.Sleep(5 * time.Millisecond)
	}

	snapshot, err := env.status.Query(context.Background(), id)
	if err != nil {
		t.Fatalf("Query after eviction errored: %v", err)
	}
	if snapshot.Status != models.JobStatusCompleted {
		t.Errorf("fallback status = %s, want completed", snapshot.Status)
	}
	if snapshot.Progress != 100 {
		t.Errorf("fallback progress = %d, want 100", snapshot.Progress)
	}
}

func TestStatusUnknownForMissingRecord(t *testing.T) {
	env := newTestEnv(t, time.Minute)

	snapshot, err := env.status.Query(context.Background(), "never-created")
	if err != nil {
		t.Fatalf("Query errored: %v", err)
	}
	if snapshot.Status != models.JobStatusUnknown {
		t.Errorf("status = %s, want unknown", snapshot.Status)
	}
}

func TestStatusLiveSnapshot(t *testing.T) {
	env := newTestEnv(t, time.Minute)
	env.transcoder.delay["tiktok"] = 50 * time.Millisecond

	id := env.submit(t, []string{"tiktok"})

	snapshot, err := env.status.Query(context.Background(), id)
	if err != nil {
		t.Fatalf("Query errored: %v", err)
	}
	if snapshot.Status != models.JobStatusQueued && snapshot.Status != models.JobStatusRunning {
		t.Errorf("status = %s, want queued or running", snapshot.Status)
	}
	if snapshot.Progress == 100 {
		t.Error("progress is 100 before terminal status")
	}

	env.waitTerminal(t, id)
}

func TestRecordSyncIdempotent(t *testing.T) {
	env := newTestEnv(t, time.Minute)
	ctx := context.Background()

	content := &models.Content{UserID: "u", Title: "t", Platforms: []string{"tiktok"}}
	if err := env.contents.Create(ctx, content); err != nil {
		t.Fatalf("failed to create content: %v", err)
	}

	records := NewRecordSync(env.contents)
	for i := 0; i < 2; i++ {
		if err := records.MarkConcluded(ctx, content.ID, true); err != nil {
			t.Fatalf("MarkConcluded #%d failed: %v", i+1, err)
		}
	}
	got, _ := env.contents.GetByID(ctx, content.ID)
	if got.Status != models.ContentStatusReady {
		t.Errorf("status = %s, want ready", got.Status)
	}
}

// A variant insert failure after a successful transform must leave no
// durable trace: the target fails and the output file is removed.
func TestWorkerPersistFailureLeavesNothing(t *testing.T) {
	env := newTestEnv(t, time.Minute)
	ctx := context.Background()

	content := &models.Content{UserID: "u", Title: "t", Platforms: []string{"tiktok"}}
	if err := env.contents.Create(ctx, content); err != nil {
		t.Fatalf("failed to create content: %v", err)
	}

	registry := platform.DefaultRegistry()
	profile, _ := registry.Lookup("tiktok")
	worker := NewTargetWorker(env.transcoder, env.variants)

	// Occupy the (content, platform) slot so the insert collides.
	existing := &models.VideoVariant{
		ContentID: content.ID,
		Platform:  "tiktok",
		VideoURL:  "/processed/tiktok/existing.mp4",
		Width:     1080,
		Height:    1920,
	}
	if err := env.variants.Create(ctx, existing); err != nil {
		t.Fatalf("failed to seed variant: %v", err)
	}

	if err := worker.Run(ctx, content.ID, "source.mp4", profile); err == nil {
		t.Fatal("expected persistence failure")
	}

	outPath := filepath.Join(env.transcoder.dir, "tiktok.mp4")
	if _, err := os.Stat(outPath); !os.IsNotExist(err) {
		t.Error("transform output survived a failed persist")
	}

	variants, _ := env.variants.ListByContentID(ctx, content.ID)
	if len(variants) != 1 {
		t.Errorf("expected only the seeded variant row, got %d", len(variants))
	}
}
