// Package platform maps the host operating system to the closed set of
// release platforms and resolves each platform's compilation targets.
package platform

import (
	"runtime"
	"strings"

	"git.home.luguber.info/inful/relpack/internal/errors"
)

// Tag identifies a release platform. Derived once per invocation and
// immutable afterwards.
type Tag string

const (
	MacOS   Tag = "macos"
	Linux   Tag = "linux"
	Windows Tag = "windows"
)

// Triple names a compilation target (CPU architecture + OS + ABI).
type Triple string

const (
	WindowsX64 Triple = "x86_64-pc-windows-msvc"
	DarwinX64  Triple = "x86_64-apple-darwin"
	DarwinArm  Triple = "aarch64-apple-darwin"
	LinuxX64   Triple = "x86_64-unknown-linux-gnu"
)

// Detect maps the executing host's OS identifier to a Tag. An unrecognized
// host is a hard error; silently defaulting to a "reasonable-looking"
// platform would mis-target compilation.
func Detect() (Tag, error) {
	return fromGOOS(runtime.GOOS)
}

func fromGOOS(goos string) (Tag, error) {
	switch goos {
	case "darwin":
		return MacOS, nil
	case "linux":
		return Linux, nil
	case "windows":
		return Windows, nil
	default:
		return "", errors.Newf(errors.KindUnsupportedPlatform, "unsupported host platform %q", goos)
	}
}

// Resolve returns the ordered fixed list of targets built for a platform.
// macOS builds two architectures; the first is primary for naming purposes.
func Resolve(tag Tag) ([]Triple, error) {
	switch tag {
	case Windows:
		return []Triple{WindowsX64}, nil
	case MacOS:
		return []Triple{DarwinX64, DarwinArm}, nil
	case Linux:
		return []Triple{LinuxX64}, nil
	default:
		return nil, errors.Newf(errors.KindUnsupportedPlatform, "unsupported platform tag %q", string(tag))
	}
}

// ExeSuffix returns the native executable suffix for the platform.
func (t Tag) ExeSuffix() string {
	if t == Windows {
		return ".exe"
	}
	return ""
}

// ArchiveExt returns the idiomatic archive extension for the platform's
// primary archive format.
func (t Tag) ArchiveExt() string {
	if t == Linux {
		return ".tar.gz"
	}
	return ".zip"
}

func (t Tag) String() string { return string(t) }

// Arch returns the short architecture label used in artifact names.
func (tr Triple) Arch() string {
	switch {
	case strings.HasPrefix(string(tr), "x86_64-"):
		return "x64"
	case strings.HasPrefix(string(tr), "aarch64-"), strings.HasPrefix(string(tr), "arm64-"):
		return "arm64"
	default:
		// Fall back to the first triple component.
		if i := strings.Index(string(tr), "-"); i > 0 {
			return string(tr)[:i]
		}
		return string(tr)
	}
}

func (tr Triple) String() string { return string(tr) }

// ParseTriples converts a caller-supplied override list. Entries are
// trimmed; empty entries are dropped.
func ParseTriples(raw []string) []Triple {
	var out []Triple
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		out = append(out, Triple(r))
	}
	return out
}
