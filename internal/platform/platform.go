// Package platform reports what hardware slideframe is running on.
package platform

import (
	"bufio"
	"io"
	"os"
	"strings"
)

const Unknown = "Unknown"

// Model returns the board model from /proc/cpuinfo, e.g.
// "Raspberry Pi 4 Model B Rev 1.4", or Unknown.
func Model() string {
	f, err := os.Open("/proc/cpuinfo")
	if err != nil {
		return Unknown
	}
	defer f.Close()
	return ModelFrom(f)
}

func ModelFrom(r io.Reader) string {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), ":")
		if !ok || strings.TrimSpace(key) != "Model" {
			continue
		}
		if v := strings.TrimSpace(value); v != "" {
			return v
		}
	}
	return Unknown
}

// IsRaspberryPi reports whether the model string names a Raspberry Pi.
func IsRaspberryPi(model string) bool {
	return strings.Contains(model, "Raspberry Pi")
}
