// Package ramfs implements the writable in-memory filesystem spec §3
// describes: a lock-protected list of {name, bytes} files backing the
// shell's ls/cat/touch/write/rm commands. Grounded on the teacher's
// trust-logged, mutex-guarded list style used throughout src/joy for its
// own small owned collections.
package ramfs

import (
	"sort"
	"sync"

	"chronos/internal/kerr"
)

type file struct {
	name  string
	bytes []byte
}

// FS is the process-wide RAM filesystem singleton; spec §4 lists it behind
// "one lock" with no further structure.
type FS struct {
	mu    sync.Mutex
	files []*file
}

func New() *FS {
	return &FS{}
}

func (fs *FS) find(name string) *file {
	for _, f := range fs.files {
		if f.name == name {
			return f
		}
	}
	return nil
}

// List returns file names in sorted order, for `ls`.
func (fs *FS) List() []string {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	names := make([]string, len(fs.files))
	for i, f := range fs.files {
		names[i] = f.name
	}
	sort.Strings(names)
	return names
}

// Read returns a copy of a file's bytes, for `cat`.
func (fs *FS) Read(name string) ([]byte, kerr.Code) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	f := fs.find(name)
	if f == nil {
		return nil, kerr.New(kerr.RAMFS, kerr.RAMFSNotFound)
	}
	out := make([]byte, len(f.bytes))
	copy(out, f.bytes)
	return out, kerr.None
}

// Touch creates an empty file; it is an error for the name to already
// exist, matching the shell's `touch` semantics of "create", not
// "create-or-truncate" (that is `write`'s job).
func (fs *FS) Touch(name string) kerr.Code {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.find(name) != nil {
		return kerr.New(kerr.RAMFS, kerr.RAMFSExists)
	}
	fs.files = append(fs.files, &file{name: name})
	return kerr.None
}

// Write overwrites (or creates) name with the given bytes, for `write`.
func (fs *FS) Write(name string, data []byte) kerr.Code {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if f := fs.find(name); f != nil {
		f.bytes = append([]byte(nil), data...)
		return kerr.None
	}
	fs.files = append(fs.files, &file{name: name, bytes: append([]byte(nil), data...)})
	return kerr.None
}

// Remove deletes a file by name, for `rm`.
func (fs *FS) Remove(name string) kerr.Code {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	for i, f := range fs.files {
		if f.name == name {
			fs.files = append(fs.files[:i:i], fs.files[i+1:]...)
			return kerr.None
		}
	}
	return kerr.New(kerr.RAMFS, kerr.RAMFSNotFound)
}
