package commands

import (
	"fmt"
	"os"

	"git.home.luguber.info/inful/relpack/internal/checksum"
	"git.home.luguber.info/inful/relpack/internal/pgp"
)

// VerifyCmd implements the 'verify' command.
type VerifyCmd struct {
	Archive   string `arg:"" help:"Archive to verify against its .sha256 sidecar"`
	PublicKey string `short:"k" name:"public-key" help:"Armored PGP public key; verifies the sidecar's detached signature"`
}

func (v *VerifyCmd) Run(_ *Global) error {
	if err := checksum.Verify(v.Archive); err != nil {
		return err
	}
	fmt.Printf("%s: checksum OK\n", v.Archive)

	if v.PublicKey == "" {
		return nil
	}
	sidecar := v.Archive + checksum.Extension
	key, err := os.Open(v.PublicKey)
	if err != nil {
		return fmt.Errorf("open public key %s: %w", v.PublicKey, err)
	}
	defer key.Close()
	if err := pgp.Verify(key, sidecar, sidecar+pgp.SignatureExtension); err != nil {
		return err
	}
	fmt.Printf("%s: signature OK\n", sidecar)
	return nil
}
