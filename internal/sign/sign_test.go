package sign

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/relpack/internal/config"
	"git.home.luguber.info/inful/relpack/internal/errors"
	"git.home.luguber.info/inful/relpack/internal/platform"
)

func TestLocateProbesPatternsInOrder(t *testing.T) {
	root := t.TempDir()

	// Fake SDK layout with two versioned directories; the newest must win.
	for _, version := range []string{"10.0.19041.0", "10.0.22621.0"} {
		dir := filepath.Join(root, "10", "bin", version, "x64")
		require.NoError(t, os.MkdirAll(dir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "signtool.exe"), []byte("MZ"), 0o755))
	}

	s := &SigntoolSigner{Patterns: []string{
		filepath.Join(root, "10", "bin", "*", "x64", "signtool.exe"),
		filepath.Join(root, "8.1", "bin", "x64", "signtool.exe"),
	}}

	tool, err := s.Locate()
	require.NoError(t, err)
	require.Contains(t, tool, "10.0.22621.0")
}

func TestLocateFallsThroughToLaterPattern(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "8.1", "bin", "x64")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "signtool.exe"), []byte("MZ"), 0o755))

	s := &SigntoolSigner{Patterns: []string{
		filepath.Join(root, "10", "bin", "*", "x64", "signtool.exe"),
		filepath.Join(dir, "signtool.exe"),
	}}

	tool, err := s.Locate()
	require.NoError(t, err)
	require.Contains(t, tool, "8.1")
}

func TestLocateNotFoundNamesSDK(t *testing.T) {
	s := &SigntoolSigner{Patterns: []string{
		filepath.Join(t.TempDir(), "nowhere", "signtool.exe"),
	}}

	_, err := s.Locate()
	require.Error(t, err)
	require.True(t, errors.IsKind(err, errors.KindToolNotFound))

	var pe *errors.PipelineError
	require.True(t, errors.As(err, &pe))
	require.Contains(t, pe.Context["hint"], "Windows 10 SDK")
}

func TestFromEnvAbsentCredentialMeansNoSigner(t *testing.T) {
	cfg := &config.Config{}
	t.Setenv(EnvCertFile, "")
	t.Setenv(EnvIdentity, "")

	for _, tag := range []platform.Tag{platform.Windows, platform.MacOS, platform.Linux} {
		signer, ok := FromEnv(tag, cfg)
		require.False(t, ok, "no credential must mean no signer for %s", tag)
		require.Nil(t, signer)
	}
}

func TestFromEnvWindowsCredential(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	t.Setenv(EnvCertFile, `C:\certs\release.pfx`)
	t.Setenv(EnvCertPassword, "hunter2")

	signer, ok := FromEnv(platform.Windows, cfg)
	require.True(t, ok)

	st, isSigntool := signer.(*SigntoolSigner)
	require.True(t, isSigntool)
	require.Equal(t, `C:\certs\release.pfx`, st.CertFile)
	require.Equal(t, "hunter2", st.CertPassword)
	require.Equal(t, "http://timestamp.digicert.com", st.TimestampURL)
	require.Equal(t, "sha256", st.DigestAlgorithm)
}

func TestFromEnvMacOSCredential(t *testing.T) {
	cfg := &config.Config{}
	t.Setenv(EnvIdentity, "Developer ID Application: Example Corp")
	t.Setenv(EnvKeychain, "/tmp/build.keychain")

	signer, ok := FromEnv(platform.MacOS, cfg)
	require.True(t, ok)

	cs, isCodesign := signer.(*CodesignSigner)
	require.True(t, isCodesign)
	require.Equal(t, "Developer ID Application: Example Corp", cs.Identity)
	require.Equal(t, "/tmp/build.keychain", cs.Keychain)
}
