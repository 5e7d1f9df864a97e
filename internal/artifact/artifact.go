// Package artifact locates the firmware ELF and the toolchain of a
// PlatformIO project.
package artifact

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

const (
	// BuildDir holds one sub-directory per PlatformIO environment.
	BuildDir = ".pio/build"
	// DefaultELFTemplate is expanded with the build name.
	DefaultELFTemplate = ".pio/build/{build}/firmware.elf"
	buildPlaceholder   = "{build}"
)

// ELFPath expands the {build} placeholder in template.
func ELFPath(template, build string) string {
	if template == "" {
		template = DefaultELFTemplate
	}
	return strings.ReplaceAll(template, buildPlaceholder, build)
}

// LatestBuild returns the name of the most recently modified build directory
// under dir, or "" when dir does not exist or is empty.
func LatestBuild(fs afero.Fs, dir string) (string, error) {
	if dir == "" {
		dir = BuildDir
	}
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}

	var latest os.FileInfo
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if latest == nil || e.ModTime().After(latest.ModTime()) {
			latest = e
		}
	}
	if latest == nil {
		return "", nil
	}
	return latest.Name(), nil
}

// DefaultToolsRoot is where PlatformIO installs the ESP32 toolchain.
func DefaultToolsRoot() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".platformio", "packages", "toolchain-xtensa-esp32")
	}
	return filepath.Join(home, ".platformio", "packages", "toolchain-xtensa-esp32")
}
