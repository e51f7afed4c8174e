package project

import (
	"fmt"
	"path"
	"strings"

	"github.com/mkorneva/ditakeeper/internal/apperr"
	"github.com/mkorneva/ditakeeper/internal/dita"
	"github.com/mkorneva/ditakeeper/internal/storage"
)

// File wraps one on-disk XML document. Identity is the slash-separated path
// relative to the project root; two Files are the same file iff their paths
// are equal. The parsed tree is owned by the File and is not flushed to
// disk until Write is called.
type File struct {
	store storage.Provider

	Path     string // relative path, e.g. "t_Install.dita"
	Dir      string // containing folder, "" for the project root
	Name     string // base name with extension
	Basename string
	Ext      string

	Content *dita.Content
}

// openFile reads and parses the document at relPath.
func openFile(store storage.Provider, relPath string) (*File, error) {
	if !store.Exists(relPath) {
		return nil, fmt.Errorf("%w: %s", apperr.ErrNotFound, relPath)
	}
	data, err := store.Read(relPath)
	if err != nil {
		return nil, err
	}
	content, err := dita.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", relPath, err)
	}
	f := &File{store: store, Content: content}
	f.setPath(relPath)
	return f, nil
}

// setPath updates the decomposed path fields.
func (f *File) setPath(relPath string) {
	f.Path = relPath
	dir, name := path.Split(relPath)
	f.Dir = strings.TrimSuffix(dir, "/")
	if f.Dir == "." {
		f.Dir = ""
	}
	f.Name = name
	f.Ext = path.Ext(name)
	f.Basename = strings.TrimSuffix(name, f.Ext)
}

// Write serializes the owned tree back to the file's own path. Callers must
// invoke it after mutations; nothing is flushed automatically.
func (f *File) Write() error {
	data, err := f.Content.Serialize()
	if err != nil {
		return err
	}
	return f.store.Write(f.Path, data)
}

// Equal reports path identity.
func (f *File) Equal(other *File) bool {
	return other != nil && f.Path == other.Path
}

// Less orders files lexicographically by path.
func (f *File) Less(other *File) bool {
	return f.Path < other.Path
}

func (f *File) String() string {
	return "<" + f.Name + ">"
}
