// Package pipeline is the build orchestrator: it detects the platform,
// resolves targets, drives the external compiler, then stages, optionally
// signs, packages, and checksums the release artifact.
//
// The pipeline is single-invocation, single-threaded, and strictly
// sequential. Any stage failure aborts the remaining stages; stale-output
// removal at the start of each stage guarantees a failed run never leaves
// artifacts that look successful.
package pipeline

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/relpack/internal/checksum"
	"git.home.luguber.info/inful/relpack/internal/config"
	"git.home.luguber.info/inful/relpack/internal/errors"
	"git.home.luguber.info/inful/relpack/internal/executor"
	"git.home.luguber.info/inful/relpack/internal/gitmeta"
	"git.home.luguber.info/inful/relpack/internal/logfields"
	"git.home.luguber.info/inful/relpack/internal/pgp"
	"git.home.luguber.info/inful/relpack/internal/platform"
	"git.home.luguber.info/inful/relpack/internal/sign"
	"git.home.luguber.info/inful/relpack/internal/stage"
)

// State names an orchestrator phase. Transitions are strictly sequential;
// StateFailed is terminal and reachable from any phase.
type State string

const (
	StateInit         State = "init"
	StateDetecting    State = "detecting"
	StateResolving    State = "resolving"
	StateCompiling    State = "compiling"
	StateStaging      State = "staging"
	StateSigning      State = "signing"
	StatePackaging    State = "packaging"
	StateChecksumming State = "checksumming"
	StateDone         State = "done"
	StateFailed       State = "failed"
)

// Options configures a single pipeline invocation.
type Options struct {
	// Release selects the toolchain's release profile (debug otherwise).
	Release bool
	// OutputName overrides the staged binary's base name.
	OutputName string
	// Targets, when non-empty, bypasses target resolution entirely. The
	// orchestrator always prefers an explicit override over detection.
	Targets []platform.Triple
	// Platform overrides host detection (cross-packaging, tests).
	Platform platform.Tag
	// Signer signs the staged binary before packaging. Nil means the build
	// ships unsigned; that is a valid, expected state, never an error.
	Signer sign.Signer
	// ChecksumSigner adds a detached PGP signature to each checksum
	// sidecar. Nil skips signing.
	ChecksumSigner *pgp.Signer
	// SourceDir is where release metadata (git tag, commit) is read from.
	// Empty means the current directory.
	SourceDir string
}

// Result describes the artifacts of a successful run.
type Result struct {
	BuildID    string
	Platform   platform.Tag
	Targets    []platform.Triple
	Archives   []string
	Checksums  []string
	Signatures []string
	Meta       gitmeta.Meta
}

// Pipeline runs the build orchestration for one invocation.
type Pipeline struct {
	cfg       *config.Config
	toolchain Toolchain
	runner    executor.Runner
	state     State
}

// New creates a pipeline. A nil toolchain selects the configured external
// compiler command.
func New(cfg *config.Config, toolchain Toolchain) *Pipeline {
	if toolchain == nil {
		toolchain = &CommandToolchain{cfg: cfg}
	}
	return &Pipeline{cfg: cfg, toolchain: toolchain, state: StateInit}
}

// State returns the orchestrator's current phase.
func (p *Pipeline) State() State { return p.state }

func (p *Pipeline) transition(s State, buildID string) {
	p.state = s
	slog.Debug("Pipeline state", logfields.BuildID(buildID), logfields.Stage(string(s)))
}

func (p *Pipeline) fail(stageName string, err error) error {
	p.state = StateFailed
	var pe *errors.PipelineError
	if errors.As(err, &pe) {
		return pe.WithStage(stageName)
	}
	return errors.Wrap(err, errors.KindInternal, "pipeline failed").WithStage(stageName)
}

// Run executes the whole pipeline: Detecting → Resolving → Compiling →
// Staging → Signing (optional) → Packaging → Checksumming.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Result, error) {
	buildID := uuid.NewString()
	meta := gitmeta.Describe(sourceDirOrCwd(opts.SourceDir))

	slog.Info("Starting release build",
		logfields.BuildID(buildID),
		logfields.Version(meta.Version),
		logfields.Commit(meta.Commit),
		slog.Bool("release", opts.Release))

	// Detecting. The one true branch point: after this, exactly one
	// platform's variant drives the rest of the invocation.
	p.transition(StateDetecting, buildID)
	tag := opts.Platform
	if tag == "" {
		detected, err := platform.Detect()
		if err != nil {
			return nil, p.fail(string(StateDetecting), err)
		}
		tag = detected
	}
	variant, err := variantFor(tag)
	if err != nil {
		return nil, p.fail(string(StateDetecting), err)
	}

	// Resolving. An explicit override always wins.
	p.transition(StateResolving, buildID)
	targets := opts.Targets
	if len(targets) == 0 {
		resolved, err := platform.Resolve(tag)
		if err != nil {
			return nil, p.fail(string(StateResolving), err)
		}
		targets = resolved
	}
	if err := variant.checkTargets(targets); err != nil {
		return nil, p.fail(string(StateResolving), err)
	}
	slog.Info("Resolved build targets", logfields.BuildID(buildID), logfields.Platform(tag.String()), slog.Any("targets", targets))

	// Compiling (external collaborator).
	p.transition(StateCompiling, buildID)
	for _, target := range targets {
		if err := p.toolchain.Compile(ctx, target, opts.Release); err != nil {
			return nil, p.fail(string(StateCompiling), err)
		}
	}

	// Staging. Artifacts from an earlier run are cleared now: from here on
	// any failure must not leave a dist/ that looks like a successful
	// (possibly unsigned) build.
	p.transition(StateStaging, buildID)
	if err := p.removeStaleArtifacts(variant, targets); err != nil {
		return nil, p.fail(string(StateStaging), err)
	}
	stager := stage.NewStager(p.cfg, tag)
	binary, err := variant.stageBinary(ctx, p, stager, targets, opts)
	if err != nil {
		return nil, p.fail(string(StateStaging), err)
	}

	// Signing. Skipped entirely without a signer; never a fatal condition.
	if opts.Signer != nil {
		p.transition(StateSigning, buildID)
		signed, err := opts.Signer.Sign(ctx, binary)
		if err != nil {
			return nil, p.fail(string(StateSigning), err)
		}
		binary = signed
	} else {
		slog.Debug("No signing credential supplied; shipping unsigned", logfields.BuildID(buildID))
	}

	// Packaging.
	p.transition(StatePackaging, buildID)
	if err := os.MkdirAll(p.cfg.Build.DistDir, 0o755); err != nil {
		return nil, p.fail(string(StatePackaging), errors.Wrapf(err, errors.KindArchiveWrite, "failed to create dist directory %s", p.cfg.Build.DistDir))
	}
	archives, err := variant.pack(p, binary, targets)
	if err != nil {
		return nil, p.fail(string(StatePackaging), err)
	}

	// Checksumming.
	p.transition(StateChecksumming, buildID)
	result := &Result{
		BuildID:  buildID,
		Platform: tag,
		Targets:  targets,
		Archives: archives,
		Meta:     meta,
	}
	for _, arc := range archives {
		sidecar, err := checksum.WriteSidecar(arc)
		if err != nil {
			return nil, p.fail(string(StateChecksumming), err)
		}
		result.Checksums = append(result.Checksums, sidecar)

		if opts.ChecksumSigner != nil {
			sig, err := opts.ChecksumSigner.SignFile(sidecar)
			if err != nil {
				return nil, p.fail(string(StateChecksumming), err)
			}
			result.Signatures = append(result.Signatures, sig)
		}
		slog.Info("Wrote release artifact", logfields.BuildID(buildID), logfields.Archive(arc), logfields.Path(sidecar))
	}

	p.transition(StateDone, buildID)
	return result, nil
}

// removeStaleArtifacts deletes the archives this invocation will produce,
// along with their checksum sidecars and signatures, if a previous run left
// them behind.
func (p *Pipeline) removeStaleArtifacts(v variant, targets []platform.Triple) error {
	for _, arc := range v.archivePaths(p, targets) {
		sidecar := arc + checksum.Extension
		for _, path := range []string{arc, sidecar, sidecar + pgp.SignatureExtension} {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				return errors.Wrapf(err, errors.KindArchiveWrite, "failed to remove stale artifact %s", path)
			}
		}
	}
	return nil
}

// archiveEntries lists the files going into an archive: the binary under
// its bare product name plus each configured extra file that exists on
// disk. Missing extras are silently omitted, never an error.
func (p *Pipeline) archiveEntries(binary string, tag platform.Tag) []archiveEntry {
	entries := []archiveEntry{{Source: binary, Name: p.cfg.Product.Name + tag.ExeSuffix()}}
	for _, extra := range p.cfg.Build.ExtraFiles {
		if _, err := os.Stat(extra); err != nil {
			continue
		}
		entries = append(entries, archiveEntry{Source: extra, Name: filepath.Base(extra)})
	}
	return entries
}

// archivePath builds the deterministic artifact path
// <dist>/<product>-<platform>-<arch><ext>.
func (p *Pipeline) archivePath(tag platform.Tag, arch, ext string) string {
	return filepath.Join(p.cfg.Build.DistDir, p.cfg.Product.Name+"-"+tag.String()+"-"+arch+ext)
}

func sourceDirOrCwd(dir string) string {
	if dir != "" {
		return dir
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return cwd
}
