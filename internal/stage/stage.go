// Package stage locates the compiler toolchain's output binary and copies
// it into the staging directory with platform-correct naming.
package stage

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/relpack/internal/config"
	"git.home.luguber.info/inful/relpack/internal/errors"
	"git.home.luguber.info/inful/relpack/internal/logfields"
	"git.home.luguber.info/inful/relpack/internal/platform"
)

// Stager resolves compiler output paths and stages binaries for packaging.
type Stager struct {
	cfg *config.Config
	tag platform.Tag
}

// NewStager creates a stager for one platform's builds.
func NewStager(cfg *config.Config, tag platform.Tag) *Stager {
	return &Stager{cfg: cfg, tag: tag}
}

// CompilerOutput returns the toolchain's conventional output path for a
// target: <build-root>/<target>/<release|debug>/<package><suffix>.
func (s *Stager) CompilerOutput(target platform.Triple, release bool) string {
	mode := "debug"
	if release {
		mode = "release"
	}
	return filepath.Join(s.cfg.Build.Root, target.String(), mode, s.cfg.Product.Package+s.tag.ExeSuffix())
}

// StagedPath returns the staging destination for a target:
// <staging-root>/bin/<outputName-or-package>-<target><suffix>.
func (s *Stager) StagedPath(target platform.Triple, outputName string) string {
	name := outputName
	if name == "" {
		name = s.cfg.Product.Package
	}
	return filepath.Join(s.cfg.StagingBinDir(), name+"-"+target.String()+s.tag.ExeSuffix())
}

// Stage copies the compiler output for target into the staging directory,
// removing any pre-existing file at the destination first. A missing
// compiler output means compilation did not happen or targeted a different
// triple; that is fatal and names the expected path.
func (s *Stager) Stage(target platform.Triple, release bool, outputName string) (string, error) {
	src := s.CompilerOutput(target, release)
	if _, err := os.Stat(src); err != nil {
		if os.IsNotExist(err) {
			return "", errors.Newf(errors.KindCompilerOutputMissing,
				"compiler output not found at %s", src).
				WithContext("target", target.String())
		}
		return "", errors.Wrapf(err, errors.KindCompilerOutputMissing, "cannot read compiler output %s", src)
	}

	dest := s.StagedPath(target, outputName)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", errors.Wrapf(err, errors.KindArchiveWrite, "failed to create staging directory %s", filepath.Dir(dest))
	}
	// Fresh copy every build; never reuse a stale staged file.
	if err := os.Remove(dest); err != nil && !os.IsNotExist(err) {
		return "", errors.Wrapf(err, errors.KindArchiveWrite, "failed to remove stale staged binary %s", dest)
	}

	if err := copyFile(src, dest); err != nil {
		return "", err
	}

	slog.Debug("Staged binary", logfields.Target(target.String()), logfields.Path(dest))
	return dest, nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return errors.Wrapf(err, errors.KindArchiveWrite, "failed to open %s", src)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return errors.Wrapf(err, errors.KindArchiveWrite, "failed to stat %s", src)
	}

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm()|0o755)
	if err != nil {
		return errors.Wrapf(err, errors.KindArchiveWrite, "failed to create %s", dest)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return errors.Wrapf(err, errors.KindArchiveWrite, "failed to copy %s to %s", src, dest)
	}
	if err := out.Close(); err != nil {
		return errors.Wrapf(err, errors.KindArchiveWrite, "failed to flush %s", dest)
	}
	return nil
}
