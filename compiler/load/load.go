package load

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"
)

type (
	Loader interface {
		Load(ctx context.Context, path string) ([]byte, error)
	}

	// Dir reads files from the os file system.
	Dir struct{}

	// Map serves files from memory.
	Map map[string][]byte

	// Overlay serves paths under Root from FS and everything else from Files.
	Overlay struct {
		Root  string
		FS    fs.FS
		Files Loader
	}

	// Resolver turns import targets into loader paths.
	Resolver struct {
		StdDir string
		Ext    string
	}

	AnonymousImportError struct {
		Target string
	}
)

const (
	StdPrefix = "std@"

	DefaultExt    = ".functi"
	DefaultStdDir = "@std"
)

var ErrNotExist = fs.ErrNotExist

func (Dir) Load(ctx context.Context, path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	tlog.SpanFromContext(ctx).Printw("read file", "size", len(data), "name", path)

	return data, nil
}

func (m Map) Load(ctx context.Context, path string) ([]byte, error) {
	data, ok := m[filepath.Clean(path)]
	if !ok {
		return nil, errors.Wrap(ErrNotExist, "%v", path)
	}

	return data, nil
}

func (o Overlay) Load(ctx context.Context, path string) ([]byte, error) {
	rel, err := filepath.Rel(o.Root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		if o.Files == nil {
			return nil, errors.Wrap(ErrNotExist, "%v", path)
		}

		return o.Files.Load(ctx, path)
	}

	return fs.ReadFile(o.FS, filepath.ToSlash(rel))
}

func NewResolver(stdDir, ext string) Resolver {
	if stdDir == "" {
		stdDir = DefaultStdDir
	}

	if ext == "" {
		ext = DefaultExt
	}

	return Resolver{StdDir: stdDir, Ext: ext}
}

// Resolve resolves target imported from the file at path from.
// std@NAME is looked up in the standard library directory.
// Anything else is relative to the directory of from.
func (r Resolver) Resolve(from, target string) (string, error) {
	if name, ok := strings.CutPrefix(target, StdPrefix); ok {
		return filepath.Join(r.StdDir, name+r.Ext), nil
	}

	if from == "" {
		return "", AnonymousImportError{Target: target}
	}

	return filepath.Join(filepath.Dir(from), target), nil
}

func (e AnonymousImportError) Error() string {
	return "anonymous files cannot import from other than std: " + e.Target
}
