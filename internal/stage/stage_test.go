package stage

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/relpack/internal/config"
	"git.home.luguber.info/inful/relpack/internal/errors"
	"git.home.luguber.info/inful/relpack/internal/platform"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	cfg, err := config.Load(filepath.Join(root, "missing.yaml"))
	require.NoError(t, err)
	cfg.Build.Root = filepath.Join(root, "target")
	cfg.Build.StagingRoot = filepath.Join(root, "build")
	cfg.Build.DistDir = filepath.Join(root, "dist")
	return cfg
}

func placeCompilerOutput(t *testing.T, cfg *config.Config, target platform.Triple, mode, name, content string) string {
	t.Helper()
	dir := filepath.Join(cfg.Build.Root, target.String(), mode)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o755))
	return path
}

func TestCompilerOutputConvention(t *testing.T) {
	cfg := testConfig(t)

	s := NewStager(cfg, platform.Windows)
	got := s.CompilerOutput(platform.WindowsX64, true)
	want := filepath.Join(cfg.Build.Root, "x86_64-pc-windows-msvc", "release", "qchat.exe")
	require.Equal(t, want, got)

	got = s.CompilerOutput(platform.WindowsX64, false)
	require.Equal(t, filepath.Join(cfg.Build.Root, "x86_64-pc-windows-msvc", "debug", "qchat.exe"), got)

	s = NewStager(cfg, platform.Linux)
	got = s.CompilerOutput(platform.LinuxX64, true)
	require.Equal(t, filepath.Join(cfg.Build.Root, "x86_64-unknown-linux-gnu", "release", "qchat"), got)
}

func TestStageCopiesWithSuffix(t *testing.T) {
	cfg := testConfig(t)
	placeCompilerOutput(t, cfg, platform.WindowsX64, "release", "qchat.exe", "MZ")

	s := NewStager(cfg, platform.Windows)
	staged, err := s.Stage(platform.WindowsX64, true, "")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(cfg.StagingBinDir(), "qchat-x86_64-pc-windows-msvc.exe"), staged)

	data, err := os.ReadFile(staged)
	require.NoError(t, err)
	require.Equal(t, "MZ", string(data))
}

func TestStageOutputNameOverride(t *testing.T) {
	cfg := testConfig(t)
	placeCompilerOutput(t, cfg, platform.LinuxX64, "release", "qchat", "elf")

	s := NewStager(cfg, platform.Linux)
	staged, err := s.Stage(platform.LinuxX64, true, "qchat-nightly")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(cfg.StagingBinDir(), "qchat-nightly-x86_64-unknown-linux-gnu"), staged)
}

func TestStageReplacesStaleFile(t *testing.T) {
	cfg := testConfig(t)
	placeCompilerOutput(t, cfg, platform.LinuxX64, "release", "qchat", "fresh build")

	s := NewStager(cfg, platform.Linux)
	dest := s.StagedPath(platform.LinuxX64, "")
	require.NoError(t, os.MkdirAll(filepath.Dir(dest), 0o755))
	require.NoError(t, os.WriteFile(dest, []byte("stale build from yesterday"), 0o755))

	staged, err := s.Stage(platform.LinuxX64, true, "")
	require.NoError(t, err)

	data, err := os.ReadFile(staged)
	require.NoError(t, err)
	require.Equal(t, "fresh build", string(data))
}

func TestStageMissingCompilerOutput(t *testing.T) {
	cfg := testConfig(t)

	s := NewStager(cfg, platform.Linux)
	_, err := s.Stage(platform.LinuxX64, true, "")
	require.Error(t, err)
	require.True(t, errors.IsKind(err, errors.KindCompilerOutputMissing))
	// The error names the expected path so CI logs show what was probed.
	require.Contains(t, err.Error(), filepath.Join("x86_64-unknown-linux-gnu", "release", "qchat"))
}

func TestStagedBinaryIsExecutable(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("mode bits not meaningful on windows")
	}
	cfg := testConfig(t)
	placeCompilerOutput(t, cfg, platform.LinuxX64, "release", "qchat", "elf")

	s := NewStager(cfg, platform.Linux)
	staged, err := s.Stage(platform.LinuxX64, true, "")
	require.NoError(t, err)

	info, err := os.Stat(staged)
	require.NoError(t, err)
	require.NotZero(t, info.Mode()&0o111)
}
