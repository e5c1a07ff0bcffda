package processor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ZacxDev/shorts-splitter/internal/composer"
	"github.com/ZacxDev/shorts-splitter/internal/config"
	"github.com/ZacxDev/shorts-splitter/internal/fetcher"
	"github.com/ZacxDev/shorts-splitter/internal/ffmpeg"
	"github.com/ZacxDev/shorts-splitter/pkg/types"
	"github.com/pkg/errors"
)

type fakeFetcher struct {
	media *fetcher.Media
	calls int
}

func (f *fakeFetcher) Fetch(_ context.Context, locator, dest string) (*fetcher.Media, error) {
	f.calls++
	if f.media != nil {
		return f.media, nil
	}
	return &fetcher.Media{Path: dest}, nil
}

type fakeProber struct {
	duration float64
}

func (p fakeProber) GetVideoMetadata(string) (*ffmpeg.VideoMetadata, error) {
	return &ffmpeg.VideoMetadata{Duration: p.duration, Width: 1920, Height: 1080, HasAudio: true}, nil
}

type fakeSegmenter struct {
	segments     int
	segmentInput string
	cuts         []types.TimeRange
	trimmedTo    string
}

func (f *fakeSegmenter) Segment(_ context.Context, input, outDir string, _ int) ([]string, error) {
	f.segmentInput = input
	paths := make([]string, f.segments)
	for i := range paths {
		paths[i] = filepath.Join(outDir, fmt.Sprintf("clip_%03d.mp4", i))
	}
	return paths, nil
}

func (f *fakeSegmenter) RemoveRanges(_ context.Context, _, output string, cuts []types.TimeRange) error {
	f.cuts = cuts
	f.trimmedTo = output
	return nil
}

type fakeEngine struct {
	mu        sync.Mutex
	plans     []composer.CompositionPlan
	fail      map[string]bool
	active    int32
	maxActive int32
	delay     time.Duration
}

func (e *fakeEngine) Run(_ context.Context, plan composer.CompositionPlan) (*ffmpeg.Artifact, error) {
	n := atomic.AddInt32(&e.active, 1)
	defer atomic.AddInt32(&e.active, -1)

	e.mu.Lock()
	e.plans = append(e.plans, plan)
	if n > e.maxActive {
		e.maxActive = n
	}
	e.mu.Unlock()

	if e.delay > 0 {
		time.Sleep(e.delay)
	}
	if e.fail[plan.Target] {
		return nil, &ffmpeg.EngineError{Kind: plan.Kind, Target: plan.Target, Err: errors.New("exit status 1")}
	}
	return &ffmpeg.Artifact{Kind: plan.Kind, PartIndex: plan.PartIndex, Path: plan.Target, Size: 1}, nil
}

func (e *fakeEngine) calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.plans)
}

type recordingConfirmer struct {
	answer    bool
	questions []string
}

func (c *recordingConfirmer) Confirm(question string) (bool, error) {
	c.questions = append(c.questions, question)
	return c.answer, nil
}

type harness struct {
	opts      *config.RunOptions
	fetcher   *fakeFetcher
	segmenter *fakeSegmenter
	engine    *fakeEngine
	confirmer *recordingConfirmer
}

func newHarness(t *testing.T, segments int) *harness {
	t.Helper()
	dir := t.TempDir()
	return &harness{
		opts: &config.RunOptions{
			URL:           "https://youtu.be/abc",
			Title:         "The best goals of the season so far",
			ClipDuration:  60,
			WorkDir:       filepath.Join(dir, "vids"),
			ClipsDir:      filepath.Join(dir, "clips"),
			ThumbnailsDir: filepath.Join(dir, "thumbs"),
			Jobs:          2,
		},
		fetcher:   &fakeFetcher{},
		segmenter: &fakeSegmenter{segments: segments},
		engine:    &fakeEngine{fail: map[string]bool{}},
		confirmer: &recordingConfirmer{answer: true},
	}
}

func (h *harness) shorts(t *testing.T) *Shorts {
	t.Helper()
	s, err := NewShorts(h.opts, config.DefaultLayout(), Dependencies{
		Fetcher:   h.fetcher,
		Segmenter: h.segmenter,
		Prober:    fakeProber{duration: 200},
		Engine:    h.engine,
		Confirmer: h.confirmer,
	})
	if err != nil {
		t.Fatalf("NewShorts: %v", err)
	}
	return s
}

func TestPrepareBuildsEveryPlanBeforeRendering(t *testing.T) {
	h := newHarness(t, 3)
	s := h.shorts(t)

	batch, err := s.Prepare(context.Background())
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	if h.engine.calls() != 0 {
		t.Fatalf("engine ran %d plans during preparation", h.engine.calls())
	}
	if len(batch.Plans) != 6 {
		t.Fatalf("got %d plans, want 6", len(batch.Plans))
	}
	if batch.RunID == "" || !strings.Contains(batch.RunDir, batch.RunID[:8]) {
		t.Errorf("run dir %s does not carry run id %s", batch.RunDir, batch.RunID)
	}

	for i, plan := range batch.Plans[:3] {
		if plan.Kind != types.ArtifactClip {
			t.Fatalf("plan %d kind = %s", i, plan.Kind)
		}
		if want := filepath.Join(h.opts.ClipsDir, fmt.Sprintf("part_%d.mp4", i+1)); plan.Target != want {
			t.Errorf("clip target = %s, want %s", plan.Target, want)
		}
		if _, ok := plan.PartLabel(); !ok {
			t.Errorf("clip %d of 3 missing part label", i+1)
		}
	}
	for i, plan := range batch.Plans[3:] {
		if plan.Kind != types.ArtifactThumbnail {
			t.Fatalf("plan %d kind = %s", i+3, plan.Kind)
		}
		if want := filepath.Join(h.opts.ThumbnailsDir, fmt.Sprintf("thumbnail_part_%d.jpg", i+1)); plan.Target != want {
			t.Errorf("thumbnail target = %s, want %s", plan.Target, want)
		}
		if plan.Source != batch.Segments[i] {
			t.Errorf("thumbnail %d source = %s, want %s", i+1, plan.Source, batch.Segments[i])
		}
	}
}

func TestPrepareSingleClipHasNoPartLabel(t *testing.T) {
	h := newHarness(t, 1)
	batch, err := h.shorts(t).Prepare(context.Background())
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if _, ok := batch.Plans[0].PartLabel(); ok {
		t.Error("single clip should not carry a part label")
	}
	if _, ok := batch.Plans[1].PartLabel(); !ok {
		t.Error("thumbnail should always carry a part label")
	}
}

func TestPrepareAdvisory(t *testing.T) {
	t.Run("rejected", func(t *testing.T) {
		h := newHarness(t, 2)
		h.fetcher.media = &fetcher.Media{Path: "src.mp4", Advisory: "Requested format is not available"}
		h.confirmer.answer = false

		_, err := h.shorts(t).Prepare(context.Background())
		if err != ErrAborted {
			t.Fatalf("err = %v, want ErrAborted", err)
		}
		if h.segmenter.segmentInput != "" {
			t.Fatal("segmenter ran after the advisory was rejected")
		}
		if len(h.confirmer.questions) != 1 || !strings.Contains(h.confirmer.questions[0], "Requested format") {
			t.Fatalf("questions = %v", h.confirmer.questions)
		}
	})

	t.Run("accepted", func(t *testing.T) {
		h := newHarness(t, 2)
		h.fetcher.media = &fetcher.Media{Path: "src.mp4", Advisory: "age restricted"}

		batch, err := h.shorts(t).Prepare(context.Background())
		if err != nil {
			t.Fatalf("Prepare: %v", err)
		}
		if batch.Source != "src.mp4" {
			t.Fatalf("source = %s", batch.Source)
		}
	})
}

func TestPrepareRemovesSkipAndCuts(t *testing.T) {
	h := newHarness(t, 2)
	h.opts.Skip = "10s"
	h.opts.Cuts = []types.TimeRange{{Start: 30, End: 40}}

	batch, err := h.shorts(t).Prepare(context.Background())
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	want := []types.TimeRange{{Start: 0, End: 10}, {Start: 30, End: 40}}
	if !reflect.DeepEqual(h.segmenter.cuts, want) {
		t.Fatalf("cuts = %v, want %v", h.segmenter.cuts, want)
	}
	if batch.Source != h.segmenter.trimmedTo || h.segmenter.segmentInput != h.segmenter.trimmedTo {
		t.Fatalf("segmented %s, want trimmed %s", h.segmenter.segmentInput, h.segmenter.trimmedTo)
	}
}

func TestPrepareRejectsBadRanges(t *testing.T) {
	tests := map[string]func(*config.RunOptions){
		"skip past the end": func(o *config.RunOptions) { o.Skip = "5m" },
		"bad skip":          func(o *config.RunOptions) { o.Skip = "soon" },
		"inverted cut":      func(o *config.RunOptions) { o.Cuts = []types.TimeRange{{Start: 20, End: 10}} },
		"cut everything":    func(o *config.RunOptions) { o.Cuts = []types.TimeRange{{Start: 0, End: 500}} },
	}

	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t, 2)
			mutate(h.opts)
			if _, err := h.shorts(t).Prepare(context.Background()); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestExecuteContinueOnError(t *testing.T) {
	h := newHarness(t, 3)
	h.opts.ContinueOnError = true
	s := h.shorts(t)

	batch, err := s.Prepare(context.Background())
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	h.engine.fail[batch.Plans[1].Target] = true

	report, err := s.Execute(context.Background(), batch)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if h.engine.calls() != 6 {
		t.Fatalf("engine ran %d plans, want 6", h.engine.calls())
	}
	if report.Failed != 1 {
		t.Fatalf("failed = %d, want 1", report.Failed)
	}
	if len(report.Clips) != 3 || len(report.Thumbnails) != 3 {
		t.Fatalf("clips=%d thumbnails=%d", len(report.Clips), len(report.Thumbnails))
	}
	for i, r := range report.Clips {
		if want := i != 1; r.OK() != want {
			t.Errorf("clip %d ok = %v, want %v", i+1, r.OK(), want)
		}
	}
	for _, r := range report.Thumbnails {
		if !r.OK() {
			t.Errorf("thumbnail %d failed: %v", r.PartIndex, r.Err)
		}
	}

	var engineErr *ffmpeg.EngineError
	if !errors.As(report.Clips[1].Err, &engineErr) {
		t.Fatalf("clip 2 error %v is not an EngineError", report.Clips[1].Err)
	}
}

func TestExecuteAbortsOnFirstFailure(t *testing.T) {
	h := newHarness(t, 3)
	h.opts.Jobs = 1
	s := h.shorts(t)

	batch, err := s.Prepare(context.Background())
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	h.engine.fail[batch.Plans[0].Target] = true

	report, err := s.Execute(context.Background(), batch)
	if err == nil {
		t.Fatal("expected the batch to fail")
	}
	if h.engine.calls() != 1 {
		t.Fatalf("engine ran %d plans after the first failure", h.engine.calls())
	}
	if report.Failed != 6 {
		t.Fatalf("failed = %d, want 6", report.Failed)
	}
	if !errors.Is(report.Clips[1].Err, context.Canceled) {
		t.Fatalf("clip 2 err = %v, want context.Canceled", report.Clips[1].Err)
	}
}

func TestExecuteRespectsJobs(t *testing.T) {
	h := newHarness(t, 4)
	h.opts.Jobs = 2
	h.engine.delay = 5 * time.Millisecond
	s := h.shorts(t)

	batch, err := s.Prepare(context.Background())
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	report, err := s.Execute(context.Background(), batch)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if report.Failed != 0 || h.engine.calls() != 8 {
		t.Fatalf("failed=%d calls=%d", report.Failed, h.engine.calls())
	}
	if h.engine.maxActive > 2 {
		t.Fatalf("%d plans ran at once, limit is 2", h.engine.maxActive)
	}
}

func TestProcessCleansUp(t *testing.T) {
	tests := []struct {
		name     string
		keepTemp bool
		answer   bool
		remains  bool
	}{
		{name: "confirmed", answer: true, remains: false},
		{name: "declined", answer: false, remains: true},
		{name: "keep temp", keepTemp: true, answer: true, remains: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, 2)
			h.opts.KeepTemp = tt.keepTemp
			h.confirmer.answer = tt.answer
			s := h.shorts(t)

			report, err := s.Process(context.Background())
			if err != nil {
				t.Fatalf("Process: %v", err)
			}
			if report.Failed != 0 {
				t.Fatalf("failed = %d", report.Failed)
			}

			entries, err := os.ReadDir(h.opts.WorkDir)
			if err != nil {
				t.Fatal(err)
			}
			if remains := len(entries) > 0; remains != tt.remains {
				t.Fatalf("run dir remains = %v, want %v", remains, tt.remains)
			}
		})
	}
}

func TestNewShortsValidation(t *testing.T) {
	tests := map[string]func(*config.RunOptions){
		"no source":        func(o *config.RunOptions) { o.URL = "" },
		"unknown platform": func(o *config.RunOptions) { o.TargetPlatform = "vine" },
		"clip too long":    func(o *config.RunOptions) { o.TargetPlatform = "instagram-reel"; o.ClipDuration = 120 },
	}

	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			opts := &config.RunOptions{URL: "https://youtu.be/abc", ClipDuration: 60}
			mutate(opts)
			if _, err := NewShorts(opts, config.DefaultLayout(), Dependencies{}); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestNewShortsDefaults(t *testing.T) {
	opts := &config.RunOptions{InputPath: "in.mp4", AssumeYes: true}
	s, err := NewShorts(opts, config.DefaultLayout(), Dependencies{})
	if err != nil {
		t.Fatalf("NewShorts: %v", err)
	}
	if opts.ClipDuration != config.DefaultClipDuration || opts.Jobs != 1 || opts.WorkDir != config.DefaultWorkDir {
		t.Fatalf("defaults not applied: %+v", opts)
	}
	if _, ok := s.deps.Fetcher.(fetcher.Local); !ok {
		t.Errorf("fetcher = %T, want fetcher.Local", s.deps.Fetcher)
	}
	if c, ok := s.deps.Confirmer.(AutoConfirmer); !ok || !c.Answer {
		t.Errorf("confirmer = %#v, want AutoConfirmer{true}", s.deps.Confirmer)
	}
}

func TestParseSkipDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{in: "", want: 0},
		{in: "10s", want: 10},
		{in: "1m30s", want: 90},
		{in: "-5s", wantErr: true},
		{in: "ten", wantErr: true},
	}
	for _, tt := range tests {
		got, err := parseSkipDuration(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseSkipDuration(%q) err = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseSkipDuration(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"My Video (final).mp4": "My_Video_final",
		"clip.webm":            "clip",
		"___":                  "video",
		"already-fine_1":       "already-fine_1",
	}
	for in, want := range tests {
		if got := sanitizeFilename(in); got != want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPreparedPlansCompile(t *testing.T) {
	h := newHarness(t, 3)
	h.opts.Title = "Don't stop: 100% real, [wow]; ok"
	batch, err := h.shorts(t).Prepare(context.Background())
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	engine := ffmpeg.NewEngine(ffmpeg.NewProcessor(false), nil)
	for _, plan := range batch.Plans {
		stream, err := engine.Compile(plan, true)
		if err != nil {
			t.Fatalf("%s part %d: %v", plan.Kind, plan.PartIndex, err)
		}
		if args := stream.GetArgs(); !slices.Contains(args, plan.Target) {
			t.Errorf("%s part %d does not write %s: %v", plan.Kind, plan.PartIndex, plan.Target, args)
		}
	}
}

type recordingFetcher struct {
	dests []string
}

func (f *recordingFetcher) Fetch(_ context.Context, _, dest string) (*fetcher.Media, error) {
	f.dests = append(f.dests, dest)
	return &fetcher.Media{Path: dest}, nil
}

func TestDownloadPathFollowsLocator(t *testing.T) {
	rec := &recordingFetcher{}
	for _, url := range []string{"https://youtu.be/abc", "https://youtu.be/xyz", "https://youtu.be/abc"} {
		h := newHarness(t, 1)
		h.opts.URL = url
		s := h.shorts(t)
		s.deps.Fetcher = rec
		if _, err := s.Prepare(context.Background()); err != nil {
			t.Fatalf("Prepare(%s): %v", url, err)
		}
	}

	if len(rec.dests) != 3 {
		t.Fatalf("got %d fetches", len(rec.dests))
	}
	a, b, again := filepath.Base(rec.dests[0]), filepath.Base(rec.dests[1]), filepath.Base(rec.dests[2])
	if a == b {
		t.Errorf("different URLs share download %s", a)
	}
	if a != again {
		t.Errorf("same URL downloaded to %s and %s", a, again)
	}
	if !strings.HasPrefix(a, config.SourceFilePrefix) || filepath.Ext(a) != ".mp4" {
		t.Errorf("unexpected download name %s", a)
	}
}

func TestClipContexts(t *testing.T) {
	clips, frames := ClipContexts([]string{"seg/clip_000.mp4", "seg/clip_001.mp4"}, "out", "thumbs", "webm")

	if len(clips) != 2 || len(frames) != 2 {
		t.Fatalf("got %d clips and %d frames", len(clips), len(frames))
	}
	if want := filepath.Join("out", "part_2.webm"); clips[1].Target != want {
		t.Errorf("clip target = %s, want %s", clips[1].Target, want)
	}
	if want := filepath.Join("thumbs", "thumbnail_part_2.jpg"); frames[1].Target != want {
		t.Errorf("thumbnail target = %s, want %s", frames[1].Target, want)
	}
	if clips[1].TotalClips != 2 || frames[1].Source != "seg/clip_001.mp4" {
		t.Errorf("unexpected contexts %+v %+v", clips[1], frames[1])
	}
}
