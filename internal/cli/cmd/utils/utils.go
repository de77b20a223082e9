package utils

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/matjam/slideframe"
	"github.com/tidwall/pretty"
)

func PrintJSONColored(data any) {
	j, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		log.Errorf("Error marshalling JSON: %v", err)
		return
	}

	jPretty := pretty.Color(j, nil)
	log.Info(string(jPretty))
}

// DefaultConfigPath is where --installconfig writes the config file.
func DefaultConfigPath() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(configDir, "slideframe", "slideframe.toml")
}

func InstallDefaultConfig() {
	if err := WriteDefaultConfig(DefaultConfigPath()); err != nil {
		log.Fatalf("%v", err)
	}
}

// WriteDefaultConfig writes the embedded default config to path unless a file
// already exists there.
func WriteDefaultConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		log.Warnf("Config file already exists at %v", path)
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	if err := os.WriteFile(path, []byte(slideframe.DefaultConfig), 0o644); err != nil {
		return err
	}

	log.Infof("Installed default config file at %v", path)
	return nil
}
