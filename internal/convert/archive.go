package convert

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Pack stores the directory tree at dir into dir+".zip" without compression
// (the images are already compressed; Store keeps archive reads seekable and
// cheap for the training dataloader). Entries are prefixed with the directory
// base name, mirroring a shell zip of the directory from its parent.
func Pack(dir string) (string, error) {
	archivePath := dir + ".zip"
	base := filepath.Base(dir)

	f, err := os.Create(archivePath)
	if err != nil {
		return "", fmt.Errorf("failed to create archive %s: %w", archivePath, err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	err = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}

		hdr, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(filepath.Join(base, rel))
		hdr.Method = zip.Store

		w, err := zw.CreateHeader(hdr)
		if err != nil {
			return err
		}

		in, err := os.Open(path)
		if err != nil {
			return err
		}
		defer in.Close()

		_, err = io.Copy(w, in)
		return err
	})
	if err != nil {
		zw.Close()
		return "", fmt.Errorf("failed to pack %s: %w", dir, err)
	}

	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("failed to finalise archive %s: %w", archivePath, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close archive %s: %w", archivePath, err)
	}
	return archivePath, nil
}
