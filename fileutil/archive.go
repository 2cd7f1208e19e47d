package fileutil

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
)

// TarArchive streams src (a file or directory tree) as a tar archive whose
// root entry is named destName. Entries use forward slashes.
func TarArchive(src, destName string) io.ReadCloser {
	r, w := io.Pipe()

	go func() {
		tw := tar.NewWriter(w)

		err := filepath.Walk(src, func(p string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}

			return writeTarEntry(tw, p, info, src, destName)
		})
		if err == nil {
			err = tw.Close()
		}

		_ = w.CloseWithError(err)
	}()

	return r
}

// entryName maps a walked path under src to its name inside the archive.
func entryName(p, src, destName string) (string, error) {
	if p == src {
		return destName, nil
	}

	rel, err := filepath.Rel(src, p)
	if err != nil {
		return "", err
	}

	return path.Join(destName, filepath.ToSlash(rel)), nil
}

func writeTarEntry(tw *tar.Writer, p string, info os.FileInfo, src, destName string) error {
	name, err := entryName(p, src, destName)
	if err != nil {
		return err
	}

	header, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}

	header.Name = name
	if info.IsDir() {
		header.Name += "/"
	}

	if err := tw.WriteHeader(header); err != nil {
		return err
	}

	if !info.Mode().IsRegular() {
		return nil
	}

	f, err := os.Open(p)
	if err != nil {
		return err
	}

	defer func() { _ = f.Close() }()

	_, err = io.Copy(tw, f)

	return err
}

// Untar extracts an archive into dst. When the first entry is a regular
// file it is written to dst itself; otherwise entries are created beneath
// dst with their root component stripped. Entries escaping dst are rejected.
func Untar(r io.Reader, dst string) error {
	tr := tar.NewReader(r)

	first, err := tr.Next()
	if errors.Is(err, io.EOF) {
		return nil
	}

	if err != nil {
		return err
	}

	if first.Typeflag == tar.TypeReg {
		return writeFile(dst, first, tr)
	}

	root := path.Clean(first.Name)

	if err := os.MkdirAll(dst, 0o755); err != nil {
		return err
	}

	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return err
		}

		rel, err := filepath.Rel(root, path.Clean(header.Name))
		if err != nil {
			return fmt.Errorf("illegal file path in tar: %s", header.Name)
		}

		if err := extractEntry(dst, rel, header, tr); err != nil {
			return err
		}
	}
}

func extractEntry(dstRoot, rel string, header *tar.Header, tr *tar.Reader) error {
	target := filepath.Join(dstRoot, rel)

	if err := Contained(dstRoot, target); err != nil {
		return fmt.Errorf("illegal file path in tar: %s", header.Name)
	}

	switch header.Typeflag {
	case tar.TypeDir:
		return os.MkdirAll(target, 0o755)
	case tar.TypeReg:
		return writeFile(target, header, tr)
	default:
		return nil
	}
}

func writeFile(target string, header *tar.Header, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(header.Mode).Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()

		return err
	}

	return f.Close()
}
