// Package pgp signs and verifies release checksum sidecars with armored
// detached OpenPGP signatures, using ProtonMail's maintained go-crypto fork.
package pgp

import (
	"io"
	"os"

	"github.com/ProtonMail/go-crypto/openpgp"

	"git.home.luguber.info/inful/relpack/internal/errors"
)

// SignatureExtension is appended to the signed file's path.
const SignatureExtension = ".asc"

// Signer holds a decrypted signing entity.
type Signer struct {
	entity *openpgp.Entity
}

// NewSigner reads an armored private key and prepares it for signing.
// An encrypted key is decrypted with the passphrase; an empty passphrase is
// valid for unprotected keys.
func NewSigner(key io.Reader, passphrase string) (*Signer, error) {
	entities, err := openpgp.ReadArmoredKeyRing(key)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindConfig, "failed to read PGP signing key")
	}
	for _, e := range entities {
		if e.PrivateKey == nil {
			continue
		}
		if e.PrivateKey.Encrypted {
			if err := e.PrivateKey.Decrypt([]byte(passphrase)); err != nil {
				return nil, errors.Wrap(err, errors.KindConfig, "failed to decrypt PGP signing key")
			}
		}
		return &Signer{entity: e}, nil
	}
	return nil, errors.New(errors.KindConfig, "no private key in PGP keyring")
}

// SignFile writes an armored detached signature next to path and returns
// the signature path. A stale signature from an earlier run is replaced.
func (s *Signer) SignFile(path string) (string, error) {
	in, err := os.Open(path)
	if err != nil {
		return "", errors.Wrapf(err, errors.KindArchiveWrite, "failed to open %s for signing", path)
	}
	defer in.Close()

	sigPath := path + SignatureExtension
	if err := os.Remove(sigPath); err != nil && !os.IsNotExist(err) {
		return "", errors.Wrapf(err, errors.KindArchiveWrite, "failed to remove stale signature %s", sigPath)
	}

	out, err := os.Create(sigPath)
	if err != nil {
		return "", errors.Wrapf(err, errors.KindArchiveWrite, "failed to create signature %s", sigPath)
	}
	defer out.Close()

	if err := openpgp.ArmoredDetachSign(out, s.entity, in, nil); err != nil {
		return "", errors.Wrapf(err, errors.KindToolExecFailed, "failed to sign %s", path)
	}
	if err := out.Close(); err != nil {
		return "", errors.Wrapf(err, errors.KindArchiveWrite, "failed to flush signature %s", sigPath)
	}
	return sigPath, nil
}

// Verify checks the armored detached signature at sigPath against path
// using the given armored public key.
func Verify(publicKey io.Reader, path, sigPath string) error {
	keyring, err := openpgp.ReadArmoredKeyRing(publicKey)
	if err != nil {
		return errors.Wrap(err, errors.KindConfig, "failed to read PGP public key")
	}

	signed, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, errors.KindArchiveWrite, "failed to open signed file %s", path)
	}
	defer signed.Close()

	sig, err := os.Open(sigPath)
	if err != nil {
		return errors.Wrapf(err, errors.KindArchiveWrite, "failed to open signature %s", sigPath)
	}
	defer sig.Close()

	if _, err := openpgp.CheckArmoredDetachedSignature(keyring, signed, sig, nil); err != nil {
		return errors.Wrapf(err, errors.KindSignatureVerification, "signature %s does not verify", sigPath)
	}
	return nil
}
