// Package sign invokes the platform's external code-signing tool against a
// staged binary. Signing is strictly additive: without a credential no
// signer exists and builds ship unsigned.
package sign

import (
	"context"
	"os"
	"time"

	"git.home.luguber.info/inful/relpack/internal/config"
	"git.home.luguber.info/inful/relpack/internal/platform"
)

// Signer signs a staged binary and returns its (possibly relocated) path.
type Signer interface {
	// Sign signs the binary in place or at a new location and returns the
	// path subsequent stages must use.
	Sign(ctx context.Context, binary string) (string, error)
	// Name identifies the signing mechanism in logs.
	Name() string
}

// Timeout bounds every external signing-tool invocation. The tools talk to
// a remote timestamp authority; a network hang there must not stall builds
// indefinitely.
const Timeout = 3 * time.Minute

// Environment variables carrying per-invocation signing credentials.
// Credentials are never read from files committed to the repository.
const (
	EnvCertFile     = "RELPACK_SIGN_CERT"
	EnvCertPassword = "RELPACK_SIGN_CERT_PASSWORD"
	EnvIdentity     = "RELPACK_SIGN_IDENTITY"
	EnvKeychain     = "RELPACK_SIGN_KEYCHAIN"
)

// FromEnv builds the platform's signer from environment credentials.
// Absence of a credential is a first-class valid state, reported via the
// boolean rather than an error.
func FromEnv(tag platform.Tag, cfg *config.Config) (Signer, bool) {
	switch tag {
	case platform.Windows:
		cert := os.Getenv(EnvCertFile)
		if cert == "" {
			return nil, false
		}
		return &SigntoolSigner{
			CertFile:        cert,
			CertPassword:    os.Getenv(EnvCertPassword),
			TimestampURL:    cfg.Signing.TimestampURL,
			DigestAlgorithm: cfg.Signing.DigestAlgorithm,
		}, true
	case platform.MacOS:
		identity := os.Getenv(EnvIdentity)
		if identity == "" {
			return nil, false
		}
		return &CodesignSigner{
			Identity: identity,
			Keychain: os.Getenv(EnvKeychain),
		}, true
	default:
		// No native binary-signing tool on this platform; the checksum
		// sidecar can still carry a PGP signature.
		return nil, false
	}
}
