// Package fingerprint computes the SHA-256 digest of the ELF symbol file and
// compares it against the truncated digest printed by the device.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/afero"
)

// Size is the length of a Fingerprint in hex characters.
const Size = sha256.Size * 2

// Fingerprint is a lowercase hex SHA-256 digest.
type Fingerprint string

// Compute reads path from fs and returns its digest. On failure the empty
// Fingerprint is returned together with the error.
func Compute(fs afero.Fs, path string) (Fingerprint, error) {
	f, err := fs.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return Fingerprint(hex.EncodeToString(h.Sum(nil))), nil
}

// File computes the digest of a file on the OS filesystem.
func File(path string) (Fingerprint, error) {
	return Compute(afero.NewOsFs(), path)
}

// Matches reports whether the device-reported value is a prefix of fp.
// The device usually prints only the first 16 characters.
func (fp Fingerprint) Matches(reported string) bool {
	reported = strings.ToLower(strings.TrimSpace(reported))
	return strings.HasPrefix(string(fp), reported)
}

// Short returns the first 16 characters, the length ESP-IDF prints.
func (fp Fingerprint) Short() string {
	if len(fp) <= 16 {
		return string(fp)
	}
	return string(fp[:16])
}

func (fp Fingerprint) String() string { return string(fp) }
