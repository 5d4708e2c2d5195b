package pipeline

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/relpack/internal/config"
	"git.home.luguber.info/inful/relpack/internal/executor"
	"git.home.luguber.info/inful/relpack/internal/logfields"
	"git.home.luguber.info/inful/relpack/internal/platform"
)

// Toolchain compiles the product for one target. Compilation itself is an
// external collaborator; the pipeline only cares that the output binary
// lands at the conventional path afterwards.
type Toolchain interface {
	Compile(ctx context.Context, target platform.Triple, release bool) error
}

// CommandToolchain invokes the configured compiler command (cargo by
// default) with an explicit target triple and profile flag.
type CommandToolchain struct {
	cfg    *config.Config
	runner executor.Runner
}

// NewCommandToolchain builds the default toolchain for cfg.
func NewCommandToolchain(cfg *config.Config) *CommandToolchain {
	return &CommandToolchain{cfg: cfg}
}

// Compile runs `<command> build --target <triple> [--release] <extra...>`.
// The toolchain inherits the parent environment and runs in the current
// directory; target selection goes through the explicit flag only.
func (t *CommandToolchain) Compile(ctx context.Context, target platform.Triple, release bool) error {
	args := executor.Args("build", "--target", target)
	if release {
		args = append(args, "--release")
	}
	args = append(args, t.cfg.Toolchain.ExtraArgs...)

	slog.Info("Compiling", logfields.Command(t.cfg.Toolchain.Command), logfields.Target(target.String()))
	return t.runner.Run(ctx, executor.Spec{Command: t.cfg.Toolchain.Command, Args: args})
}
