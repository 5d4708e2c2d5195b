package pipeline

import (
	"context"
	"log/slog"
	"path/filepath"

	"git.home.luguber.info/inful/relpack/internal/archive"
	"git.home.luguber.info/inful/relpack/internal/errors"
	"git.home.luguber.info/inful/relpack/internal/executor"
	"git.home.luguber.info/inful/relpack/internal/logfields"
	"git.home.luguber.info/inful/relpack/internal/platform"
	"git.home.luguber.info/inful/relpack/internal/stage"
)

// archiveEntry aliases the archive writer's entry type so variants read
// naturally.
type archiveEntry = archive.Entry

// variant is one platform's implementation of the staging and packaging
// steps. Selected once at the Detecting state and used uniformly after,
// which keeps each platform's behavior independently testable.
type variant interface {
	// checkTargets rejects a target list the platform cannot package, so
	// an invalid override fails before any compilation happens.
	checkTargets(targets []platform.Triple) error
	stageBinary(ctx context.Context, p *Pipeline, stager *stage.Stager, targets []platform.Triple, opts Options) (string, error)
	// archivePaths returns the deterministic artifact paths pack will
	// write, known before packaging so stale artifacts can be cleared.
	archivePaths(p *Pipeline, targets []platform.Triple) []string
	pack(p *Pipeline, binary string, targets []platform.Triple) ([]string, error)
}

func variantFor(tag platform.Tag) (variant, error) {
	switch tag {
	case platform.Windows:
		return windowsVariant{}, nil
	case platform.MacOS:
		return darwinVariant{}, nil
	case platform.Linux:
		return linuxVariant{}, nil
	default:
		return nil, errors.Newf(errors.KindUnsupportedPlatform, "no packaging variant for platform %q", string(tag))
	}
}

// windowsVariant stages the single PE binary and ships it in a zip.
type windowsVariant struct{}

func (windowsVariant) checkTargets(targets []platform.Triple) error {
	return requireSingleTarget(platform.Windows, targets)
}

func (windowsVariant) stageBinary(_ context.Context, _ *Pipeline, stager *stage.Stager, targets []platform.Triple, opts Options) (string, error) {
	return stager.Stage(targets[0], opts.Release, opts.OutputName)
}

func (windowsVariant) archivePaths(p *Pipeline, targets []platform.Triple) []string {
	return []string{p.archivePath(platform.Windows, targets[0].Arch(), ".zip")}
}

func (v windowsVariant) pack(p *Pipeline, binary string, targets []platform.Triple) ([]string, error) {
	dest := v.archivePaths(p, targets)[0]
	if err := archive.WriteZip(dest, p.archiveEntries(binary, platform.Windows)); err != nil {
		return nil, err
	}
	return []string{dest}, nil
}

// darwinVariant stages every darwin target and merges them into a single
// universal Mach-O with lipo before packaging.
type darwinVariant struct{}

func (darwinVariant) checkTargets(targets []platform.Triple) error {
	if len(targets) == 1 || len(targets) == 2 {
		return nil
	}
	return errors.Newf(errors.KindConfig,
		"macos packaging supports one or two targets, got %d", len(targets))
}

func (darwinVariant) stageBinary(ctx context.Context, p *Pipeline, stager *stage.Stager, targets []platform.Triple, opts Options) (string, error) {
	staged := make([]string, 0, len(targets))
	for _, target := range targets {
		path, err := stager.Stage(target, opts.Release, opts.OutputName)
		if err != nil {
			return "", err
		}
		staged = append(staged, path)
	}
	if len(staged) == 1 {
		return staged[0], nil
	}

	if _, err := executor.LookPath("lipo", "lipo ships with the Xcode command line tools"); err != nil {
		return "", err
	}

	name := opts.OutputName
	if name == "" {
		name = p.cfg.Product.Package
	}
	universal := filepath.Join(p.cfg.StagingBinDir(), name+"-universal")

	args := executor.Args("-create", "-output", universal)
	args = append(args, staged...)
	if err := p.runner.Run(ctx, executor.Spec{Command: "lipo", Args: args}); err != nil {
		return "", err
	}
	slog.Debug("Merged universal binary", logfields.Path(universal))
	return universal, nil
}

func (darwinVariant) archivePaths(p *Pipeline, targets []platform.Triple) []string {
	arch := "universal"
	if len(targets) == 1 {
		arch = targets[0].Arch()
	}
	return []string{p.archivePath(platform.MacOS, arch, ".zip")}
}

func (v darwinVariant) pack(p *Pipeline, binary string, targets []platform.Triple) ([]string, error) {
	dest := v.archivePaths(p, targets)[0]
	if err := archive.WriteZip(dest, p.archiveEntries(binary, platform.MacOS)); err != nil {
		return nil, err
	}
	return []string{dest}, nil
}

// linuxVariant stages the single ELF binary and ships a tar.gz, with a zip
// alongside for consumers that cannot take tarballs.
type linuxVariant struct{}

func (linuxVariant) checkTargets(targets []platform.Triple) error {
	return requireSingleTarget(platform.Linux, targets)
}

func (linuxVariant) stageBinary(_ context.Context, _ *Pipeline, stager *stage.Stager, targets []platform.Triple, opts Options) (string, error) {
	return stager.Stage(targets[0], opts.Release, opts.OutputName)
}

func (linuxVariant) archivePaths(p *Pipeline, targets []platform.Triple) []string {
	arch := targets[0].Arch()
	return []string{
		p.archivePath(platform.Linux, arch, ".tar.gz"),
		p.archivePath(platform.Linux, arch, ".zip"),
	}
}

func (v linuxVariant) pack(p *Pipeline, binary string, targets []platform.Triple) ([]string, error) {
	entries := p.archiveEntries(binary, platform.Linux)
	paths := v.archivePaths(p, targets)

	if err := archive.WriteTarGz(paths[0], entries); err != nil {
		return nil, err
	}
	if err := archive.WriteZip(paths[1], entries); err != nil {
		return nil, err
	}
	return paths, nil
}

func requireSingleTarget(tag platform.Tag, targets []platform.Triple) error {
	if len(targets) == 1 {
		return nil
	}
	return errors.Newf(errors.KindConfig,
		"%s packaging supports exactly one target, got %d", tag, len(targets))
}
