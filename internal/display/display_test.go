package display

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matjam/slideframe/internal/types"
)

const xrandrOutput = `Screen 0: minimum 320 x 200, current 1280 x 720, maximum 8192 x 8192
HDMI-1 connected primary 1280x720+0+0 (normal left inverted right x axis y axis) 477mm x 268mm
   1920x1080     60.00 +  50.00    59.94
   1280x720      60.00*   50.00    59.94
   1280x720      60.00*+  50.00
   720x576       50.00
HDMI-2 disconnected (normal left inverted right x axis y axis)
`

func TestParseXRandr(t *testing.T) {
	g, err := ParseXRandr([]byte(xrandrOutput))
	if err != nil {
		t.Fatalf("ParseXRandr failed: %v", err)
	}
	if g != (types.Geometry{Width: 1280, Height: 720}) {
		t.Errorf("expected 1280x720, got %s", g)
	}
}

func TestParseXRandr_NoActiveMode(t *testing.T) {
	_, err := ParseXRandr([]byte("Screen 0: minimum 320 x 200\nHDMI-1 disconnected\n"))
	if !errors.Is(err, ErrNoActiveMode) {
		t.Errorf("expected ErrNoActiveMode, got %v", err)
	}
}

type failingProvider struct{}

func (failingProvider) Geometry(context.Context) (types.Geometry, error) {
	return types.Geometry{}, errors.New("no display")
}

func TestResolve(t *testing.T) {
	ctx := context.Background()

	if g := Resolve(ctx, failingProvider{}); g != types.DefaultGeometry {
		t.Errorf("expected default on failure, got %s", g)
	}
	if g := Resolve(ctx, nil); g != types.DefaultGeometry {
		t.Errorf("expected default for nil provider, got %s", g)
	}
	want := types.Geometry{Width: 800, Height: 480}
	if g := Resolve(ctx, Static{Size: want}); g != want {
		t.Errorf("expected %s, got %s", want, g)
	}
	if g := Resolve(ctx, Static{}); g != types.DefaultGeometry {
		t.Errorf("expected default for zero static geometry, got %s", g)
	}
}

func TestFehArgs(t *testing.T) {
	f := NewFeh(":0", true, "#000000")
	got := f.args("/tmp/x.jpg")
	want := []string{"--fullscreen", "--hide-pointer", "--no-menus", "--quiet", "--image-bg", "#000000", "/tmp/x.jpg"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("arg %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func fakeViewer(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "viewer")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFeh_PresentReplacesViewer(t *testing.T) {
	img := filepath.Join(t.TempDir(), "a.jpg")
	if err := os.WriteFile(img, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	f := NewFeh("", false, "")
	f.Binary = fakeViewer(t, "exec sleep 30")
	f.Grace = time.Second
	ctx := context.Background()

	if err := f.Present(ctx, img); err != nil {
		t.Fatalf("Present failed: %v", err)
	}
	first := f.proc
	if err := f.Present(ctx, img); err != nil {
		t.Fatalf("Present failed: %v", err)
	}

	select {
	case <-first.done:
	default:
		t.Error("expected the previous viewer to be terminated")
	}
	if !f.Running() {
		t.Error("expected the new viewer to be running")
	}

	if err := f.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if f.Running() {
		t.Error("expected no viewer after Close")
	}
}

func TestFeh_KillsStubbornViewer(t *testing.T) {
	img := filepath.Join(t.TempDir(), "a.jpg")
	if err := os.WriteFile(img, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	f := NewFeh("", false, "")
	f.Binary = fakeViewer(t, "trap '' TERM\nwhile true; do sleep 1; done")
	f.Grace = 100 * time.Millisecond

	if err := f.Present(context.Background(), img); err != nil {
		t.Fatalf("Present failed: %v", err)
	}
	// Give the shell time to install its trap.
	time.Sleep(200 * time.Millisecond)

	start := time.Now()
	f.Close()
	if time.Since(start) > 5*time.Second {
		t.Error("Close took too long")
	}
	if f.Running() {
		t.Error("expected the viewer to be killed")
	}
}

func TestFeh_MissingImage(t *testing.T) {
	f := NewFeh("", false, "")
	if err := f.Present(context.Background(), "/does/not/exist.jpg"); err == nil {
		t.Error("expected an error for a missing image")
	}
}
