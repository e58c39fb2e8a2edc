package script

import (
	"io/fs"
	"os"
	"path"
	"strings"
	"time"
)

// SourceFS exposes the project to the interpreter as src/<module path>, so
// imports of local packages resolve without a GOPATH checkout.
type SourceFS struct {
	modPath string
	project fs.FS
}

var (
	_ fs.ReadDirFS  = (*SourceFS)(nil)
	_ fs.ReadFileFS = (*SourceFS)(nil)
	_ fs.StatFS     = (*SourceFS)(nil)
)

// NewSourceFS creates a SourceFS for the module at root.
func NewSourceFS(root, modPath string) *SourceFS {
	return &SourceFS{
		modPath: modPath,
		project: os.DirFS(root),
	}
}

// resolve maps an interpreter path to a project path. virtual is set for
// the directories above the module root.
func (s *SourceFS) resolve(name string) (rel string, virtual []string, err error) {
	name = strings.TrimPrefix(path.Clean("/"+name), "/")
	name = strings.TrimPrefix(name, "src")
	name = strings.TrimPrefix(name, "/")
	if s.modPath == "" {
		return "", nil, fs.ErrNotExist
	}

	if name == s.modPath {
		return ".", nil, nil
	}
	if rest, ok := strings.CutPrefix(name, s.modPath+"/"); ok {
		return rest, nil, nil
	}
	// Directories leading to the module root.
	if name == "" {
		return "", []string{strings.SplitN(s.modPath, "/", 2)[0]}, nil
	}
	if rest, ok := strings.CutPrefix(s.modPath, name+"/"); ok {
		return "", []string{strings.SplitN(rest, "/", 2)[0]}, nil
	}
	return "", nil, fs.ErrNotExist
}

func (s *SourceFS) Open(name string) (fs.File, error) {
	rel, virtual, err := s.resolve(name)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: err}
	}
	if virtual != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	return s.project.Open(rel)
}

func (s *SourceFS) ReadDir(name string) ([]fs.DirEntry, error) {
	rel, virtual, err := s.resolve(name)
	if err != nil {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: err}
	}
	if virtual != nil {
		return []fs.DirEntry{fs.FileInfoToDirEntry(dirInfo(virtual[0]))}, nil
	}
	return fs.ReadDir(s.project, rel)
}

func (s *SourceFS) ReadFile(name string) ([]byte, error) {
	rel, virtual, err := s.resolve(name)
	if err != nil {
		return nil, &fs.PathError{Op: "readfile", Path: name, Err: err}
	}
	if virtual != nil {
		return nil, &fs.PathError{Op: "readfile", Path: name, Err: fs.ErrInvalid}
	}
	return fs.ReadFile(s.project, rel)
}

func (s *SourceFS) Stat(name string) (fs.FileInfo, error) {
	rel, virtual, err := s.resolve(name)
	if err != nil {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: err}
	}
	if virtual != nil {
		return dirInfo(path.Base("/" + name)), nil
	}
	return fs.Stat(s.project, rel)
}

// dirInfo describes a virtual directory.
type dirInfo string

func (d dirInfo) Name() string       { return string(d) }
func (d dirInfo) Size() int64        { return 0 }
func (d dirInfo) Mode() fs.FileMode  { return fs.ModeDir | 0o555 }
func (d dirInfo) ModTime() time.Time { return time.Time{} }
func (d dirInfo) IsDir() bool        { return true }
func (d dirInfo) Sys() any           { return nil }
