package patch

import (
	"bytes"
	"context"
	"os"

	"github.com/matzehuels/layouttune/pkg/errors"
	"github.com/matzehuels/layouttune/pkg/params"
)

// Provider makes a parameter set visible to the rendering engine.
//
// FileProvider does it by rewriting the engine source before a rebuild.
// Engines that accept parameters at construction time can implement Provider
// directly and skip the rebuild.
type Provider interface {
	Provide(ctx context.Context, set params.Set) error
}

// FileProvider patches the engine source file in place. It is the only
// writer of that file during a run.
type FileProvider struct {
	Path    string
	Patcher *Patcher
}

// NewFileProvider returns a provider that patches the file at path.
func NewFileProvider(path string, decls Declarations) (*FileProvider, error) {
	p, err := New(decls)
	if err != nil {
		return nil, err
	}
	return &FileProvider{Path: path, Patcher: p}, nil
}

// Provide rewrites the declarations in the source file for set.
//
// If any declaration is missing the file is left untouched and the
// PATCH_PATTERN_MISMATCH error is returned: building from a partially patched
// or stale source would score a configuration other than set.
// The file is only rewritten when its content changes.
func (f *FileProvider) Provide(ctx context.Context, set params.Set) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	src, err := os.ReadFile(f.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.Wrap(errors.ErrCodeFileNotFound, err, "engine source %s", f.Path)
		}
		return errors.Wrap(errors.ErrCodeInternal, err, "read engine source %s", f.Path)
	}

	out, err := f.Patcher.Apply(src, set)
	if err != nil {
		return errors.Wrap(errors.GetCode(err), err, "patch %s", f.Path)
	}
	if bytes.Equal(out, src) {
		return nil
	}

	mode := os.FileMode(0o644)
	if info, err := os.Stat(f.Path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := os.WriteFile(f.Path, out, mode); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write engine source %s", f.Path)
	}
	return nil
}

var _ Provider = (*FileProvider)(nil)
