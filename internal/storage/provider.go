// Package storage defines the project file-system abstraction.
package storage

import "time"

// FileMetadata is a lightweight description of one project file on disk.
type FileMetadata struct {
	Path      string
	Checksum  string
	UpdatedAt time.Time
}

// Provider is the interface for project file operations. All paths are
// relative to the project root (the folder containing the ditamap).
type Provider interface {
	// List returns metadata for every file with the given extension
	// (e.g. ".dita") under dir. An empty ext matches every file.
	List(dir, ext string) ([]FileMetadata, error)
	// Entries returns the names of the direct children of dir,
	// without recursing.
	Entries(dir string) ([]string, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
	// Move renames oldPath to newPath.
	Move(oldPath, newPath string) error
	// Copy duplicates srcPath to dstPath.
	Copy(srcPath, dstPath string) error
	// Exists reports whether a file or directory exists at path.
	Exists(path string) bool
	// IsDir reports whether path exists and is a directory.
	IsDir(path string) bool
	// Abs resolves path against the project root.
	Abs(path string) (string, error)
}
