package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"git.home.luguber.info/inful/relpack/internal/config"
	"git.home.luguber.info/inful/relpack/internal/logfields"
	"git.home.luguber.info/inful/relpack/internal/pgp"
	"git.home.luguber.info/inful/relpack/internal/pipeline"
	"git.home.luguber.info/inful/relpack/internal/platform"
	"git.home.luguber.info/inful/relpack/internal/sign"
)

// EnvPGPKey points at an armored private key file used to sign checksum
// sidecars. Like the code-signing credentials, it is supplied per
// invocation and never committed.
const (
	EnvPGPKey        = "RELPACK_PGP_KEY"
	EnvPGPPassphrase = "RELPACK_PGP_PASSPHRASE"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Debug      bool     `help:"Build the debug profile instead of release"`
	OutputName string   `short:"o" name:"output-name" help:"Override the staged binary's base name"`
	Targets    []string `short:"t" name:"target" help:"Explicit target triples (bypasses host platform resolution)"`
	Platform   string   `name:"platform" help:"Override host platform detection (windows|macos|linux)"`
	SourceDir  string   `name:"source-dir" help:"Directory whose git metadata stamps the build" default:"."`
}

func (b *BuildCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	opts := pipeline.Options{
		Release:    !b.Debug,
		OutputName: b.OutputName,
		Targets:    platform.ParseTriples(b.Targets),
		Platform:   platform.Tag(b.Platform),
		SourceDir:  b.SourceDir,
	}

	// Signing is strictly additive: absent credentials mean an unsigned,
	// still fully checksummed build.
	tag := opts.Platform
	if tag == "" {
		if detected, err := platform.Detect(); err == nil {
			tag = detected
		}
	}
	if signer, ok := sign.FromEnv(tag, cfg); ok {
		opts.Signer = signer
		slog.Info("Code signing enabled", slog.String("mechanism", signer.Name()))
	}
	if signer, err := checksumSignerFromEnv(); err != nil {
		return err
	} else if signer != nil {
		opts.ChecksumSigner = signer
		slog.Info("Checksum signing enabled")
	}

	result, err := pipeline.New(cfg, nil).Run(context.Background(), opts)
	if err != nil {
		return err
	}

	slog.Info("Release build complete",
		logfields.BuildID(result.BuildID),
		logfields.Platform(result.Platform.String()),
		logfields.Version(result.Meta.Version))
	for _, arc := range result.Archives {
		fmt.Println(arc)
	}
	return nil
}

// checksumSignerFromEnv loads the optional PGP signer for checksum
// sidecars. A configured-but-unreadable key is a hard error; silently
// shipping unsigned when the caller asked for signing would be worse.
func checksumSignerFromEnv() (*pgp.Signer, error) {
	keyPath := os.Getenv(EnvPGPKey)
	if keyPath == "" {
		return nil, nil
	}
	f, err := os.Open(keyPath)
	if err != nil {
		return nil, fmt.Errorf("open PGP key %s: %w", keyPath, err)
	}
	defer f.Close()
	return pgp.NewSigner(f, os.Getenv(EnvPGPPassphrase))
}
