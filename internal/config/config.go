// Package config turns viper settings into a validated Config.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/matjam/slideframe/internal/types"
	"github.com/spf13/viper"
)

type Config struct {
	ImagesDir        string
	DisplayDuration  time.Duration
	SupportedFormats []string
	MinFileSize      int64
	Recursive        bool
	RandomOrder      bool
	AutoRotate       bool
	FitMode          types.FitMode
	ImageQuality     int

	// Resolution is zero when the display should be asked.
	Resolution      types.Geometry
	Display         string
	Fullscreen      bool
	BackgroundColor string
	Sink            string

	EnableCache     bool
	CacheSize       int64
	CacheDir        string
	PreloadCount    int
	PreloadInterval time.Duration

	EmptyRetry      time.Duration
	ShutdownTimeout time.Duration

	LogDir      string
	LogLevel    log.Level
	LogRotation bool
	MaxLogSize  int64
	BackupCount int
	Debug       bool
}

const (
	SinkFeh  = "feh"
	SinkNone = "none"
)

// SetDefaults registers the built-in defaults on the global viper instance.
func SetDefaults() {
	viper.SetDefault("images_dir", "~/Pictures/slideshow")
	viper.SetDefault("display_duration", 10)
	viper.SetDefault("supported_formats", []string{"jpg", "jpeg", "png", "gif"})
	viper.SetDefault("min_file_size", 1024)
	viper.SetDefault("recursive", true)
	viper.SetDefault("random_order", true)
	viper.SetDefault("auto_rotate", true)
	viper.SetDefault("fit_mode", "contain")
	viper.SetDefault("image_quality", 95)

	viper.SetDefault("resolution", "")
	viper.SetDefault("display", ":0")
	viper.SetDefault("fullscreen", true)
	viper.SetDefault("background_color", "#000000")
	viper.SetDefault("sink", SinkFeh)

	viper.SetDefault("enable_cache", true)
	viper.SetDefault("cache_size", "500MiB")
	viper.SetDefault("cache_dir", "")
	viper.SetDefault("preload_count", 3)
	viper.SetDefault("preload_interval", 30)

	viper.SetDefault("empty_retry", 10)
	viper.SetDefault("shutdown_timeout", 5)

	viper.SetDefault("log_dir", "~/.local/share/slideframe")
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_rotation", true)
	viper.SetDefault("max_log_size", 10)
	viper.SetDefault("backup_count", 5)
	viper.SetDefault("debug", false)
}

// Load reads the global viper settings into a Config and validates them.
func Load() (Config, error) {
	var errs []error
	fail := func(key string, err error) {
		errs = append(errs, fmt.Errorf("%s: %w", key, err))
	}

	c := Config{
		ImagesDir:        ExpandPath(viper.GetString("images_dir")),
		DisplayDuration:  seconds(viper.GetFloat64("display_duration")),
		SupportedFormats: viper.GetStringSlice("supported_formats"),
		MinFileSize:      viper.GetInt64("min_file_size"),
		Recursive:        viper.GetBool("recursive"),
		RandomOrder:      viper.GetBool("random_order"),
		AutoRotate:       viper.GetBool("auto_rotate"),
		ImageQuality:     viper.GetInt("image_quality"),
		Display:          viper.GetString("display"),
		Fullscreen:       viper.GetBool("fullscreen"),
		BackgroundColor:  viper.GetString("background_color"),
		Sink:             strings.ToLower(strings.TrimSpace(viper.GetString("sink"))),
		EnableCache:      viper.GetBool("enable_cache"),
		CacheDir:         ExpandPath(viper.GetString("cache_dir")),
		PreloadCount:     viper.GetInt("preload_count"),
		PreloadInterval:  seconds(viper.GetFloat64("preload_interval")),
		EmptyRetry:       seconds(viper.GetFloat64("empty_retry")),
		ShutdownTimeout:  seconds(viper.GetFloat64("shutdown_timeout")),
		LogDir:           ExpandPath(viper.GetString("log_dir")),
		LogRotation:      viper.GetBool("log_rotation"),
		MaxLogSize:       viper.GetInt64("max_log_size"),
		BackupCount:      viper.GetInt("backup_count"),
		Debug:            viper.GetBool("debug"),
	}

	if c.ImagesDir == "" {
		fail("images_dir", errors.New("must be set"))
	}
	if c.DisplayDuration <= 0 {
		fail("display_duration", errors.New("must be positive"))
	}
	if len(c.SupportedFormats) == 0 {
		fail("supported_formats", errors.New("must list at least one extension"))
	}
	if c.MinFileSize < 0 {
		fail("min_file_size", errors.New("must not be negative"))
	}

	fit, err := types.ParseFitMode(viper.GetString("fit_mode"))
	if err != nil {
		fail("fit_mode", err)
	}
	c.FitMode = fit

	if c.ImageQuality < 1 || c.ImageQuality > 100 {
		fail("image_quality", fmt.Errorf("%d is outside 1-100", c.ImageQuality))
	}

	if r := strings.TrimSpace(viper.GetString("resolution")); r != "" {
		g, err := types.ParseGeometry(r)
		if err != nil {
			fail("resolution", err)
		}
		c.Resolution = g
	}

	switch c.Sink {
	case SinkFeh, SinkNone:
	default:
		fail("sink", fmt.Errorf("unknown sink %q", c.Sink))
	}

	size, err := ParseCacheSize(viper.GetString("cache_size"))
	if err != nil {
		fail("cache_size", err)
	}
	c.CacheSize = size

	if c.CacheDir == "" {
		c.CacheDir = filepath.Join(os.TempDir(), "slideframe")
	}
	if c.PreloadCount < 0 {
		fail("preload_count", errors.New("must not be negative"))
	}
	if c.PreloadInterval <= 0 {
		c.PreloadInterval = 30 * time.Second
	}
	if c.EmptyRetry <= 0 {
		c.EmptyRetry = 10 * time.Second
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 5 * time.Second
	}

	level, err := log.ParseLevel(viper.GetString("log_level"))
	if err != nil {
		fail("log_level", err)
		level = log.InfoLevel
	}
	if c.Debug {
		level = log.DebugLevel
	}
	c.LogLevel = level

	if len(errs) > 0 {
		return c, fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return c, nil
}

// ParseCacheSize accepts humanized sizes such as "500MB" or "1GiB". A bare
// number is megabytes.
func ParseCacheSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty size")
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("negative size %q", s)
		}
		return int64(n * 1024 * 1024), nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, err
	}
	return int64(n), nil
}

// ExpandPath replaces a leading ~ with $HOME.
func ExpandPath(path string) string {
	if path == "" {
		return ""
	}

	if path == "~" {
		return os.Getenv("HOME")
	}

	if strings.HasPrefix(path, "~/") {
		homeDir := os.Getenv("HOME")
		return strings.Replace(path, "~", homeDir, 1)
	}

	return path
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
