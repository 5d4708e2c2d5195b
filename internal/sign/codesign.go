package sign

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/relpack/internal/errors"
	"git.home.luguber.info/inful/relpack/internal/executor"
	"git.home.luguber.info/inful/relpack/internal/logfields"
)

// CodesignSigner signs Mach-O binaries with Apple's codesign, optionally
// restricting the identity search to one keychain file.
type CodesignSigner struct {
	Identity string
	Keychain string

	runner executor.Runner
}

func (s *CodesignSigner) Name() string { return "codesign" }

// Sign signs the binary in place with a secure timestamp, then runs a
// strict verification pass.
func (s *CodesignSigner) Sign(ctx context.Context, binary string) (string, error) {
	if _, err := executor.LookPath("codesign", "codesign ships with the Xcode command line tools"); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, Timeout)
	defer cancel()

	args := []string{"-s", s.Identity, "--force", "--timestamp", "--options", "runtime"}
	if s.Keychain != "" {
		args = append(args, "--keychain", s.Keychain)
	}
	args = append(args, binary)

	slog.Info("Signing binary", logfields.Command("codesign"), logfields.Path(binary))
	if err := s.runner.Run(ctx, executor.Spec{Command: "codesign", Args: args}); err != nil {
		return "", err
	}

	if err := s.runner.Run(ctx, executor.Spec{
		Command: "codesign",
		Args:    []string{"--verify", "--strict", binary},
	}); err != nil {
		return "", errors.Wrapf(err, errors.KindSignatureVerification,
			"signature on %s failed verification", binary)
	}

	return binary, nil
}
