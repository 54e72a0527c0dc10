// Copyright (C) 2016  Lukas Lalinsky
// Distributed under the MIT license, see the LICENSE file for details.

package vfs

import (
	"bytes"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/dchest/safefile"
)

// InputFile is an open, readable, file-like handle that supports random access reads.
type InputFile interface {
	io.Reader
	io.ReaderAt
	io.Seeker
	io.Closer
}

// AtomicFile is a file that only becomes visible to readers once Commit is called.
type AtomicFile interface {
	io.Writer
	io.Closer
	Commit() error
}

// FileSystem is the storage abstraction used by the index package. It is implemented by a
// real on-disk directory (dirFileSystem) and by an in-memory directory (memFileSystem) used
// in tests.
type FileSystem interface {
	// OpenFile opens an existing file for reading.
	OpenFile(name string) (InputFile, error)

	// CreateAtomicFile creates a new file whose contents only become visible once Commit is called.
	CreateAtomicFile(name string) (AtomicFile, error)

	// Remove deletes a file. It is not an error to remove a file that does not exist.
	Remove(name string) error

	// ListFiles returns the names of all files in the filesystem.
	ListFiles() ([]string, error)

	// Close releases any resources held by the filesystem.
	Close() error
}

func IsNotExist(err error) bool { return os.IsNotExist(err) }
func IsExist(err error) bool    { return os.IsExist(err) }

type dirFileSystem struct {
	path string
}

// OpenDir opens a directory on disk as a FileSystem, optionally creating it if missing.
func OpenDir(path string, create bool) (FileSystem, error) {
	path, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		if create && os.IsNotExist(err) {
			if err := os.MkdirAll(path, 0750); err != nil {
				return nil, err
			}
		} else {
			return nil, err
		}
	} else if !stat.IsDir() {
		return nil, os.ErrInvalid
	}

	return &dirFileSystem{path: path}, nil
}

func (d *dirFileSystem) resolve(name string) string {
	return filepath.Join(d.path, name)
}

func (d *dirFileSystem) OpenFile(name string) (InputFile, error) {
	return os.Open(d.resolve(name))
}

func (d *dirFileSystem) CreateAtomicFile(name string) (AtomicFile, error) {
	return safefile.Create(d.resolve(name), 0644)
}

func (d *dirFileSystem) Remove(name string) error {
	err := os.Remove(d.resolve(name))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (d *dirFileSystem) ListFiles() ([]string, error) {
	infos, err := ioutil.ReadDir(d.path)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		if !info.IsDir() {
			names = append(names, info.Name())
		}
	}
	return names, nil
}

func (d *dirFileSystem) Close() error { return nil }

type memFileSystem struct {
	entries map[string][]byte
}

// CreateMemDir creates a FileSystem that only lives in memory, used by tests and by
// databases that are not backed by durable storage.
func CreateMemDir() FileSystem {
	return &memFileSystem{entries: make(map[string][]byte)}
}

type memInputFile struct {
	*bytes.Reader
}

func (f *memInputFile) Close() error { return nil }

type memAtomicFile struct {
	bytes.Buffer
	fs   *memFileSystem
	name string
}

func (f *memAtomicFile) Commit() error {
	f.fs.entries[f.name] = f.Bytes()
	return nil
}

func (f *memAtomicFile) Close() error { return nil }

func (d *memFileSystem) OpenFile(name string) (InputFile, error) {
	data, ok := d.entries[name]
	if !ok {
		return nil, os.ErrNotExist
	}
	return &memInputFile{Reader: bytes.NewReader(data)}, nil
}

func (d *memFileSystem) CreateAtomicFile(name string) (AtomicFile, error) {
	return &memAtomicFile{fs: d, name: name}, nil
}

func (d *memFileSystem) Remove(name string) error {
	delete(d.entries, name)
	return nil
}

func (d *memFileSystem) ListFiles() ([]string, error) {
	names := make([]string, 0, len(d.entries))
	for name := range d.entries {
		names = append(names, name)
	}
	return names, nil
}

func (d *memFileSystem) Close() error { return nil }
