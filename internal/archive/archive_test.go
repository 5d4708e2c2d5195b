package archive

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string, mode os.FileMode) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), mode))
	return path
}

func zipNames(t *testing.T, path string) []string {
	t.Helper()
	r, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer r.Close()

	var names []string
	for _, f := range r.File {
		names = append(names, f.Name)
	}
	sort.Strings(names)
	return names
}

func TestWriteZipRoundTrip(t *testing.T) {
	dir := t.TempDir()
	bin := writeFile(t, dir, "staged-binary.exe", "MZ fake pe", 0o755)
	lic := writeFile(t, dir, "LICENSE.MIT", "mit text", 0o644)

	dest := filepath.Join(dir, "qchat-windows-x64.zip")
	err := WriteZip(dest, []Entry{
		{Source: bin, Name: "qchat.exe"},
		{Source: lic, Name: "LICENSE.MIT"},
	})
	require.NoError(t, err)

	require.Equal(t, []string{"LICENSE.MIT", "qchat.exe"}, zipNames(t, dest))

	// Entry content survives the round trip.
	r, err := zip.OpenReader(dest)
	require.NoError(t, err)
	defer r.Close()
	for _, f := range r.File {
		if f.Name == "qchat.exe" {
			rc, err := f.Open()
			require.NoError(t, err)
			data, err := io.ReadAll(rc)
			rc.Close()
			require.NoError(t, err)
			require.Equal(t, "MZ fake pe", string(data))
		}
	}
}

func TestWriteZipRemovesStaleArchive(t *testing.T) {
	dir := t.TempDir()
	bin := writeFile(t, dir, "bin", "binary", 0o755)
	extra := writeFile(t, dir, "EXTRA", "extra", 0o644)
	dest := filepath.Join(dir, "qchat-windows-x64.zip")

	// First run with two entries.
	require.NoError(t, WriteZip(dest, []Entry{
		{Source: bin, Name: "qchat.exe"},
		{Source: extra, Name: "EXTRA"},
	}))
	require.Len(t, zipNames(t, dest), 2)

	// Second run with one entry: nothing from the first run may leak in.
	require.NoError(t, WriteZip(dest, []Entry{{Source: bin, Name: "qchat.exe"}}))
	require.Equal(t, []string{"qchat.exe"}, zipNames(t, dest))
}

func TestWriteTarGzPreservesExecutableBit(t *testing.T) {
	dir := t.TempDir()
	bin := writeFile(t, dir, "qchat-staged", "\x7fELF fake", 0o755)
	readme := writeFile(t, dir, "README.md", "# qchat", 0o644)

	dest := filepath.Join(dir, "qchat-linux-x64.tar.gz")
	require.NoError(t, WriteTarGz(dest, []Entry{
		{Source: bin, Name: "qchat"},
		{Source: readme, Name: "README.md"},
	}))

	f, err := os.Open(dest)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	tr := tar.NewReader(gz)

	seen := map[string]*tar.Header{}
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		seen[hdr.Name] = hdr
	}

	require.Len(t, seen, 2)
	require.Contains(t, seen, "qchat")
	require.Contains(t, seen, "README.md")
	require.NotZero(t, seen["qchat"].FileInfo().Mode()&0o111, "executable bit lost")
}

func TestWriteZipMissingSourceFails(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "out.zip")
	err := WriteZip(dest, []Entry{{Source: filepath.Join(dir, "absent"), Name: "x"}})
	require.Error(t, err)
}

func TestEntriesAreFlat(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "deep", "nested")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	bin := writeFile(t, sub, "binary", "data", 0o755)

	dest := filepath.Join(dir, "flat.zip")
	require.NoError(t, WriteZip(dest, []Entry{{Source: bin, Name: "qchat"}}))

	// The entry name carries no directory prefix regardless of source depth.
	require.Equal(t, []string{"qchat"}, zipNames(t, dest))
}
