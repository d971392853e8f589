package cli

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"vidstab/internal/config"
	"vidstab/internal/features"
	"vidstab/internal/motion"
	"vidstab/internal/pipeline"
	"vidstab/internal/stabilize"
)

// fakeService records requests and returns a canned result.
type fakeService struct {
	requests []stabilize.Request
	err      error
}

func (f *fakeService) Stabilize(ctx context.Context, req stabilize.Request) (*stabilize.Result, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &stabilize.Result{FramesWritten: 9, FramePairs: 9, MeanTrackedPoints: 150}, nil
}

func (f *fakeService) Process(ctx context.Context, job pipeline.Job) pipeline.Result {
	res, err := f.Stabilize(ctx, stabilize.Request{Input: job.InputPath, Output: job.Output})
	out := pipeline.Result{Job: job, Error: err}
	if res != nil {
		out.FramesWritten = res.FramesWritten
	}
	return out
}

func newTestRoot(t *testing.T) (*Root, *fakeService) {
	t.Helper()
	fake := &fakeService{}
	cfg := config.Default()
	cfg.Paths.DefaultOutput = t.TempDir()
	root := &Root{cfg: cfg, log: slog.Default(), svc: fake}
	return root, fake
}

func runStabilize(t *testing.T, root *Root, args ...string) (string, error) {
	t.Helper()
	cmd := newStabilizeCmd(root)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestStabilizeUsesConfigDefaults(t *testing.T) {
	root, fake := newTestRoot(t)

	if _, err := runStabilize(t, root, "shaky.mp4"); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(fake.requests) != 1 {
		t.Fatalf("expected one request, got %d", len(fake.requests))
	}
	req := fake.requests[0]
	if req.Input != "shaky.mp4" {
		t.Fatalf("input = %q", req.Input)
	}
	if req.Options.SmoothingRadius != 50 || req.Options.Mode != motion.ModeFlow || req.Options.Backend != features.BackendGFTT {
		t.Fatalf("unexpected options: %+v", req.Options)
	}
	if req.Output != filepath.Join(root.cfg.Paths.DefaultOutput, "shaky_stabilized.mp4") {
		t.Fatalf("unexpected default output: %q", req.Output)
	}
}

func TestStabilizeFlagOverrides(t *testing.T) {
	root, fake := newTestRoot(t)

	_, err := runStabilize(t, root, "shaky.mp4", "steady.mp4",
		"--smoothing-radius", "10", "--mode", "homography", "--features", "akaze", "--chart", "traj.html", "--no-store")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	req := fake.requests[0]
	if req.Output != "steady.mp4" {
		t.Fatalf("output = %q", req.Output)
	}
	if req.Options.SmoothingRadius != 10 {
		t.Fatalf("radius = %d", req.Options.SmoothingRadius)
	}
	if req.Options.Mode != motion.ModeHomography || req.Options.Backend != features.BackendAKAZE {
		t.Fatalf("unexpected options: %+v", req.Options)
	}
	if req.ChartPath != "traj.html" || !req.SkipStore {
		t.Fatalf("chart/no-store flags lost: %+v", req)
	}
}

func TestStabilizePrintsSummary(t *testing.T) {
	root, _ := newTestRoot(t)
	out, err := runStabilize(t, root, "shaky.mp4", "steady.mp4")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out, "wrote 9 frames") {
		t.Fatalf("summary missing from output: %q", out)
	}
}

func TestStabilizeRequiresInput(t *testing.T) {
	root, _ := newTestRoot(t)
	if _, err := runStabilize(t, root); err == nil {
		t.Fatalf("expected arg validation error")
	}
}

func TestDefaultOutputPathKeepsExtension(t *testing.T) {
	root, _ := newTestRoot(t)
	got := root.defaultOutputPath("/videos/holiday.mov")
	want := filepath.Join(root.cfg.Paths.DefaultOutput, "holiday_stabilized.mov")
	if got != want {
		t.Fatalf("defaultOutputPath = %q, want %q", got, want)
	}
}

func TestHistoryWithoutStore(t *testing.T) {
	root, _ := newTestRoot(t)
	cmd := newHistoryCmd(root)
	cmd.SetArgs(nil)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	if err := cmd.Execute(); err == nil {
		t.Fatalf("expected error when no store is configured")
	}
}

func TestVersionCmd(t *testing.T) {
	cmd := newVersionCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out.String(), "vidstab") {
		t.Fatalf("unexpected version output: %q", out.String())
	}
}

func TestConfigShow(t *testing.T) {
	root, _ := newTestRoot(t)
	cmd := newConfigCmd(root)
	cmd.SetArgs([]string{"show"})
	var out bytes.Buffer
	cmd.SetOut(&out)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out.String(), "smoothing_radius") {
		t.Fatalf("config show missing fields: %q", out.String())
	}
}
