package sign

import (
	"context"
	"log/slog"
	"path/filepath"
	"sort"

	"git.home.luguber.info/inful/relpack/internal/errors"
	"git.home.luguber.info/inful/relpack/internal/executor"
	"git.home.luguber.info/inful/relpack/internal/logfields"
)

// defaultSigntoolPatterns is the fixed ordered probe list for signtool.exe
// under the known Windows SDK install roots. Versioned SDK directories
// (10\bin\<version>\x64) are probed before the unversioned fallbacks.
var defaultSigntoolPatterns = []string{
	`C:\Program Files (x86)\Windows Kits\10\bin\*\x64\signtool.exe`,
	`C:\Program Files (x86)\Windows Kits\10\bin\x64\signtool.exe`,
	`C:\Program Files\Windows Kits\10\bin\*\x64\signtool.exe`,
	`C:\Program Files (x86)\Windows Kits\8.1\bin\x64\signtool.exe`,
}

// SigntoolSigner signs PE binaries with the Windows SDK's signtool.exe,
// embedding a countersigned timestamp from a remote authority, then runs a
// verification pass before the binary may ship.
type SigntoolSigner struct {
	CertFile        string
	CertPassword    string
	TimestampURL    string
	DigestAlgorithm string

	// Patterns overrides the probe list; used by tests.
	Patterns []string

	runner executor.Runner
}

func (s *SigntoolSigner) Name() string { return "signtool" }

// Locate probes the SDK install roots for signtool.exe. Within a versioned
// pattern the newest SDK directory wins.
func (s *SigntoolSigner) Locate() (string, error) {
	patterns := s.Patterns
	if len(patterns) == 0 {
		patterns = defaultSigntoolPatterns
	}
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil || len(matches) == 0 {
			continue
		}
		sort.Sort(sort.Reverse(sort.StringSlice(matches)))
		return matches[0], nil
	}
	return "", errors.New(errors.KindToolNotFound,
		"signtool.exe not found under any Windows Kits install root").
		WithContext("hint", "install the Windows 10 SDK (or later) including the signing tools")
}

// Sign signs the binary in place, then verifies the result. A signature
// that signtool produced but cannot verify must not ship.
func (s *SigntoolSigner) Sign(ctx context.Context, binary string) (string, error) {
	tool, err := s.Locate()
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, Timeout)
	defer cancel()

	slog.Info("Signing binary", logfields.Command(tool), logfields.Path(binary))
	err = s.runner.Run(ctx, executor.Spec{
		Command: tool,
		Args: []string{
			"sign",
			"/f", s.CertFile,
			"/p", s.CertPassword,
			"/tr", s.TimestampURL,
			"/td", s.DigestAlgorithm,
			"/fd", s.DigestAlgorithm,
			binary,
		},
	})
	if err != nil {
		return "", err
	}

	if err := s.runner.Run(ctx, executor.Spec{
		Command: tool,
		Args:    []string{"verify", "/pa", "/v", binary},
	}); err != nil {
		return "", errors.Wrapf(err, errors.KindSignatureVerification,
			"signature on %s failed verification", binary)
	}

	return binary, nil
}
