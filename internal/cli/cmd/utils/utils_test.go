package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/matjam/slideframe"
	"github.com/spf13/viper"
)

func TestDefaultConfigPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	if got := DefaultConfigPath(); got != "/xdg/slideframe/slideframe.toml" {
		t.Errorf("unexpected path %s", got)
	}

	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("HOME", "/home/frame")
	if got := DefaultConfigPath(); got != "/home/frame/.config/slideframe/slideframe.toml" {
		t.Errorf("unexpected path %s", got)
	}
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "slideframe.toml")

	if err := WriteDefaultConfig(path); err != nil {
		t.Fatalf("WriteDefaultConfig failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != slideframe.DefaultConfig {
		t.Error("installed config does not match the embedded default")
	}

	// An existing file is left alone.
	if err := os.WriteFile(path, []byte("images_dir = \"/srv\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := WriteDefaultConfig(path); err != nil {
		t.Fatalf("WriteDefaultConfig failed: %v", err)
	}
	data, _ = os.ReadFile(path)
	if string(data) != "images_dir = \"/srv\"\n" {
		t.Error("existing config was overwritten")
	}
}

func TestDefaultConfigParses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slideframe.toml")
	if err := WriteDefaultConfig(path); err != nil {
		t.Fatal(err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		t.Fatalf("default config does not parse: %v", err)
	}
	if v.GetString("fit_mode") != "contain" || v.GetInt("preload_count") != 3 {
		t.Errorf("unexpected values: fit_mode=%q preload_count=%d", v.GetString("fit_mode"), v.GetInt("preload_count"))
	}
}
