package display

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/matjam/slideframe/internal/types"
)

var ErrNoActiveMode = errors.New("no active mode in xrandr output")

// Provider answers what the resolution of the active output is.
type Provider interface {
	Geometry(ctx context.Context) (types.Geometry, error)
}

// Static always reports the same geometry. Used when a resolution is
// configured explicitly.
type Static struct {
	Size types.Geometry
}

func (s Static) Geometry(context.Context) (types.Geometry, error) {
	if !s.Size.Valid() {
		return types.Geometry{}, fmt.Errorf("invalid geometry %s", s.Size)
	}
	return s.Size, nil
}

// XRandr queries xrandr on the given X display.
type XRandr struct {
	Display string
	Timeout time.Duration
}

func (x XRandr) Geometry(ctx context.Context) (types.Geometry, error) {
	timeout := x.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := []string{}
	if x.Display != "" {
		args = append(args, "-display", x.Display)
	}

	out, err := exec.CommandContext(ctx, "xrandr", args...).Output()
	if err != nil {
		return types.Geometry{}, fmt.Errorf("xrandr: %w", err)
	}
	return ParseXRandr(out)
}

// ParseXRandr returns the geometry of the first mode line that is both current
// ('*') and preferred or connected ('+').
func ParseXRandr(out []byte) (types.Geometry, error) {
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.Contains(line, "*") || !strings.Contains(line, "+") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		g, err := types.ParseGeometry(fields[0])
		if err != nil {
			continue
		}
		return g, nil
	}
	if err := scanner.Err(); err != nil {
		return types.Geometry{}, err
	}
	return types.Geometry{}, ErrNoActiveMode
}

// Resolve asks p for the geometry and falls back to the default 1920x1080 on
// any failure.
func Resolve(ctx context.Context, p Provider) types.Geometry {
	if p == nil {
		return types.DefaultGeometry
	}
	g, err := p.Geometry(ctx)
	if err != nil || !g.Valid() {
		log.Warn("could not determine display resolution, using default",
			"default", types.DefaultGeometry, "err", err)
		return types.DefaultGeometry
	}
	return g
}
