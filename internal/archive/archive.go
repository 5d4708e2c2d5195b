// Package archive writes the release archives. Windows and macOS ship zip,
// Linux ships tar.gz (with a zip alongside, handled by the packager).
//
// Entries are flat: every file sits under its bare name with no directory
// prefix inside the archive.
package archive

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"io"
	"os"
	"time"

	"git.home.luguber.info/inful/relpack/internal/errors"
)

// Entry maps a file on disk to its bare name inside the archive.
type Entry struct {
	Source string
	Name   string
}

// archiveEpoch replaces file mtimes in archive headers so identical inputs
// produce byte-identical archives. 1980 is the earliest time zip can store.
var archiveEpoch = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

// WriteZip creates dest from scratch, removing any pre-existing archive at
// that path first so no stale entries survive a rerun.
func WriteZip(dest string, entries []Entry) error {
	if err := removeStale(dest); err != nil {
		return err
	}

	f, err := os.Create(dest)
	if err != nil {
		return errors.Wrapf(err, errors.KindArchiveWrite, "failed to create archive %s", dest)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for _, e := range entries {
		if err := addZipEntry(zw, e); err != nil {
			zw.Close()
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return errors.Wrapf(err, errors.KindArchiveWrite, "failed to finalize archive %s", dest)
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(err, errors.KindArchiveWrite, "failed to flush archive %s", dest)
	}
	return nil
}

func addZipEntry(zw *zip.Writer, e Entry) error {
	src, err := os.Open(e.Source)
	if err != nil {
		return errors.Wrapf(err, errors.KindArchiveWrite, "failed to open %s", e.Source)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return errors.Wrapf(err, errors.KindArchiveWrite, "failed to stat %s", e.Source)
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return errors.Wrapf(err, errors.KindArchiveWrite, "failed to build header for %s", e.Source)
	}
	header.Name = e.Name
	header.Method = zip.Deflate
	header.Modified = archiveEpoch

	w, err := zw.CreateHeader(header)
	if err != nil {
		return errors.Wrapf(err, errors.KindArchiveWrite, "failed to add %s", e.Name)
	}
	if _, err := io.Copy(w, src); err != nil {
		return errors.Wrapf(err, errors.KindArchiveWrite, "failed to write %s", e.Name)
	}
	return nil
}

// WriteTarGz creates dest from scratch, removing any pre-existing archive
// first. File modes are preserved so the binary's executable bit survives
// extraction.
func WriteTarGz(dest string, entries []Entry) error {
	if err := removeStale(dest); err != nil {
		return err
	}

	f, err := os.Create(dest)
	if err != nil {
		return errors.Wrapf(err, errors.KindArchiveWrite, "failed to create archive %s", dest)
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)

	for _, e := range entries {
		if err := addTarEntry(tw, e); err != nil {
			tw.Close()
			gz.Close()
			return err
		}
	}

	if err := tw.Close(); err != nil {
		return errors.Wrapf(err, errors.KindArchiveWrite, "failed to finalize archive %s", dest)
	}
	if err := gz.Close(); err != nil {
		return errors.Wrapf(err, errors.KindArchiveWrite, "failed to finalize archive %s", dest)
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(err, errors.KindArchiveWrite, "failed to flush archive %s", dest)
	}
	return nil
}

func addTarEntry(tw *tar.Writer, e Entry) error {
	src, err := os.Open(e.Source)
	if err != nil {
		return errors.Wrapf(err, errors.KindArchiveWrite, "failed to open %s", e.Source)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return errors.Wrapf(err, errors.KindArchiveWrite, "failed to stat %s", e.Source)
	}

	header, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return errors.Wrapf(err, errors.KindArchiveWrite, "failed to build header for %s", e.Source)
	}
	header.Name = e.Name
	header.ModTime = archiveEpoch
	header.AccessTime = time.Time{}
	header.ChangeTime = time.Time{}
	header.Uid = 0
	header.Gid = 0
	header.Uname = ""
	header.Gname = ""

	if err := tw.WriteHeader(header); err != nil {
		return errors.Wrapf(err, errors.KindArchiveWrite, "failed to add %s", e.Name)
	}
	if _, err := io.Copy(tw, src); err != nil {
		return errors.Wrapf(err, errors.KindArchiveWrite, "failed to write %s", e.Name)
	}
	return nil
}

func removeStale(dest string) error {
	if err := os.Remove(dest); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, errors.KindArchiveWrite, "failed to remove stale archive %s", dest)
	}
	return nil
}
