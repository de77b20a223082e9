package types

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type FitMode string

const (
	FitContain FitMode = "contain"
	FitCover   FitMode = "cover"
	FitFill    FitMode = "fill"
)

func ParseFitMode(s string) (FitMode, error) {
	switch mode := FitMode(strings.ToLower(strings.TrimSpace(s))); mode {
	case FitContain, FitCover, FitFill:
		return mode, nil
	default:
		return "", fmt.Errorf("unknown fit mode %q (want contain, cover or fill)", s)
	}
}

// Geometry is an output resolution in pixels.
type Geometry struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

var DefaultGeometry = Geometry{Width: 1920, Height: 1080}

func (g Geometry) String() string {
	return fmt.Sprintf("%dx%d", g.Width, g.Height)
}

func (g Geometry) Valid() bool {
	return g.Width > 0 && g.Height > 0
}

// ParseGeometry parses "WIDTHxHEIGHT".
func ParseGeometry(s string) (Geometry, error) {
	w, h, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return Geometry{}, fmt.Errorf("invalid geometry %q", s)
	}
	width, err := strconv.Atoi(strings.TrimSpace(w))
	if err != nil {
		return Geometry{}, fmt.Errorf("invalid geometry %q: %w", s, err)
	}
	height, err := strconv.Atoi(strings.TrimSpace(h))
	if err != nil {
		return Geometry{}, fmt.Errorf("invalid geometry %q: %w", s, err)
	}
	g := Geometry{Width: width, Height: height}
	if !g.Valid() {
		return Geometry{}, fmt.Errorf("invalid geometry %q", s)
	}
	return g, nil
}

// SourceImage is a snapshot of an image file taken at scan time. It goes stale
// silently when the file changes; only a rescan notices.
type SourceImage struct {
	Path    string    `json:"path"`
	ModTime time.Time `json:"mod_time"`
	Size    int64     `json:"size"`
	Ext     string    `json:"ext"`
}

func (s SourceImage) Equal(o SourceImage) bool {
	return s.Path == o.Path &&
		s.ModTime.Equal(o.ModTime) &&
		s.Size == o.Size &&
		s.Ext == o.Ext
}

// Artifact is a screen-ready bitmap written by the transformer.
type Artifact struct {
	Path string `json:"path"`
	Size int64  `json:"size"`
}
