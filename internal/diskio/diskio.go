// Package diskio provides the atomic write-then-rename helper shared by the
// graph codec and the document store, so a crash mid-write never leaves a
// collection's on-disk files partially written (spec §1: persistence is
// snapshot-based, not journaled, so each snapshot write must itself be
// all-or-nothing).
package diskio

import (
	"bufio"
	"os"
	"path/filepath"
)

const bufferSize = 256 * 1024

// SaveToFile calls writeFunc with a buffered writer over a temp file in the
// same directory as filename, then atomically renames the temp file into
// place. The target is left untouched if writeFunc returns an error.
func SaveToFile(filename string, writeFunc func(w *bufio.Writer) error) error {
	dir := filepath.Dir(filename)
	base := filepath.Base(filename)

	tmp, err := os.CreateTemp(dir, base+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()
	_ = tmp.Chmod(0o644)

	buf := bufio.NewWriterSize(tmp, bufferSize)
	if err := writeFunc(buf); err != nil {
		return err
	}
	if err := buf.Flush(); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmpName, filename); err != nil {
		return err
	}
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}

	tmpName = ""
	return nil
}

// LoadFromFile opens filename and calls readFunc with a buffered reader.
func LoadFromFile(filename string, readFunc func(r *bufio.Reader) error) error {
	f, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	buf := bufio.NewReaderSize(f, bufferSize)
	return readFunc(buf)
}
