// Package checksum produces and verifies SHA-256 sidecar files for release
// archives, in the conventional `<digest>  <filename>` format that
// sha256sum-style tools consume unmodified.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/relpack/internal/errors"
)

// Extension is the sidecar suffix appended to the archive path.
const Extension = ".sha256"

// chunkSize keeps large archives out of memory while hashing.
const chunkSize = 64 * 1024

// File streams the file through SHA-256 and returns the hex digest.
func File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrapf(err, errors.KindArchiveWrite, "failed to open %s for hashing", path)
	}
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, chunkSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", errors.Wrapf(err, errors.KindArchiveWrite, "failed to hash %s", path)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// WriteSidecar computes the digest of archivePath and writes the sidecar
// next to it, truncating any previous sidecar. The single line written is
// exactly `<hexdigest>  <bare-filename>\n` with two spaces.
func WriteSidecar(archivePath string) (string, error) {
	digest, err := File(archivePath)
	if err != nil {
		return "", err
	}

	sidecar := archivePath + Extension
	line := fmt.Sprintf("%s  %s\n", digest, filepath.Base(archivePath))
	if err := os.WriteFile(sidecar, []byte(line), 0o644); err != nil {
		return "", errors.Wrapf(err, errors.KindArchiveWrite, "failed to write checksum sidecar %s", sidecar)
	}
	return sidecar, nil
}

// ParseSidecar reads a sidecar file and returns the recorded digest and
// bare filename.
func ParseSidecar(sidecarPath string) (digest, filename string, err error) {
	data, err := os.ReadFile(sidecarPath)
	if err != nil {
		return "", "", errors.Wrapf(err, errors.KindArchiveWrite, "failed to read checksum sidecar %s", sidecarPath)
	}
	line := strings.TrimRight(string(data), "\n")
	digest, filename, ok := strings.Cut(line, "  ")
	if !ok || len(digest) != sha256.Size*2 {
		return "", "", errors.Newf(errors.KindArchiveWrite, "malformed checksum sidecar %s", sidecarPath)
	}
	return digest, filename, nil
}

// Verify recomputes the digest of archivePath and compares it against its
// sidecar.
func Verify(archivePath string) error {
	recorded, filename, err := ParseSidecar(archivePath + Extension)
	if err != nil {
		return err
	}
	if filename != filepath.Base(archivePath) {
		return errors.Newf(errors.KindArchiveWrite, "checksum sidecar names %s, not %s", filename, filepath.Base(archivePath))
	}
	actual, err := File(archivePath)
	if err != nil {
		return err
	}
	if actual != strings.ToLower(recorded) {
		return errors.Newf(errors.KindSignatureVerification, "checksum mismatch for %s: recorded %s, actual %s",
			filepath.Base(archivePath), recorded, actual)
	}
	return nil
}
