package workspace

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	ferrors "git.home.luguber.info/inful/previewd/internal/foundation/errors"
	"git.home.luguber.info/inful/previewd/internal/logfields"
)

// Materialize creates dest and recursively copies every file and
// subdirectory from templateRoot into it, preserving relative structure.
//
// A missing template root is a degraded-but-non-fatal condition: the
// workspace directory is still created empty and a warning is logged. The
// result is a usable (if bare) workspace rather than a failed session.
func Materialize(templateRoot, dest string) error {
	if err := os.MkdirAll(dest, 0o750); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to create workspace directory").
			WithContext("path", dest).
			Build()
	}

	info, err := os.Stat(templateRoot)
	if err != nil || !info.IsDir() {
		slog.Warn("Template directory not found, workspace starts empty",
			logfields.Path(templateRoot))
		return nil
	}

	if err := copyTree(templateRoot, dest); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to copy template files").
			WithContext("template", templateRoot).
			WithContext("workspace", dest).
			Build()
	}
	return nil
}

func copyTree(src, dst string) error {
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())

		if entry.IsDir() {
			if err := os.MkdirAll(dstPath, 0o750); err != nil {
				return err
			}
			if err := copyTree(srcPath, dstPath); err != nil {
				return err
			}
			continue
		}
		if !entry.Type().IsRegular() {
			continue
		}
		if err := copyFile(srcPath, dstPath); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o640)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// FileInfo describes one file inside a workspace, with the path relative to
// the workspace root.
type FileInfo struct {
	Path     string    `json:"path"`
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// Dir is the file-operation surface of a single workspace. Every path given
// to its methods is resolved strictly inside the workspace root; anything
// that escapes is rejected before any filesystem access happens.
type Dir struct {
	root string
	// protected files cannot be deleted (the main markup and params files).
	protected map[string]struct{}
}

// NewDir wraps an existing workspace directory. Protected names are file
// names (relative to the root) that Delete refuses to remove.
func NewDir(root string, protected ...string) *Dir {
	p := make(map[string]struct{}, len(protected))
	for _, name := range protected {
		p[name] = struct{}{}
	}
	return &Dir{root: root, protected: p}
}

// Root returns the workspace root directory.
func (d *Dir) Root() string {
	return d.root
}

// Resolve maps a workspace-relative path to an absolute path, rejecting any
// path that resolves outside the workspace root.
func (d *Dir) Resolve(rel string) (string, error) {
	if rel == "" {
		return "", ferrors.ValidationError("file path must not be empty").Build()
	}

	abs := filepath.Join(d.root, filepath.FromSlash(rel))
	abs = filepath.Clean(abs)

	rootClean := filepath.Clean(d.root)
	if abs != rootClean && !strings.HasPrefix(abs, rootClean+string(filepath.Separator)) {
		return "", ferrors.PathError("path escapes workspace root").
			WithContext("path", rel).
			Build()
	}
	if abs == rootClean {
		return "", ferrors.PathError("path resolves to workspace root itself").
			WithContext("path", rel).
			Build()
	}
	return abs, nil
}

// List returns every regular file in the workspace, hidden files excluded.
func (d *Dir) List() ([]FileInfo, error) {
	var files []FileInfo
	err := filepath.WalkDir(d.root, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			if entry.IsDir() && path != d.root {
				return filepath.SkipDir
			}
			return nil
		}
		if entry.IsDir() {
			return nil
		}
		info, err := entry.Info()
		if err != nil {
			slog.Warn("Skipping unreadable workspace file", logfields.Path(path), logfields.Error(err))
			return nil
		}
		rel, err := filepath.Rel(d.root, path)
		if err != nil {
			return nil
		}
		files = append(files, FileInfo{
			Path:     filepath.ToSlash(rel),
			Name:     name,
			Size:     info.Size(),
			Modified: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ferrors.NotFoundError("workspace directory is gone").
				WithContext("path", d.root).
				Build()
		}
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to list workspace files").
			WithContext("path", d.root).
			Build()
	}
	return files, nil
}

// Read returns the content of a workspace file.
func (d *Dir) Read(rel string) ([]byte, error) {
	abs, err := d.Resolve(rel)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ferrors.NotFoundError("file not found").
				WithContext("path", rel).
				Build()
		}
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to read file").
			WithContext("path", rel).
			Build()
	}
	return data, nil
}

// Write stores content at a workspace-relative path, creating parent
// directories as needed.
func (d *Dir) Write(rel string, content []byte) error {
	abs, err := d.Resolve(rel)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o750); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to create parent directory").
			WithContext("path", rel).
			Build()
	}
	if err := os.WriteFile(abs, content, 0o640); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to write file").
			WithContext("path", rel).
			Build()
	}
	return nil
}

// Delete removes a workspace file. Protected files are refused.
func (d *Dir) Delete(rel string) error {
	abs, err := d.Resolve(rel)
	if err != nil {
		return err
	}
	// Protection is checked against the resolved path, not the caller's
	// spelling, so "./params.json" and "sub/../params.json" cannot slip by.
	canon, err := filepath.Rel(filepath.Clean(d.root), abs)
	if err != nil {
		return ferrors.PathError("failed to canonicalize path").
			WithContext("path", rel).
			Build()
	}
	if _, ok := d.protected[filepath.ToSlash(canon)]; ok {
		return ferrors.ValidationError("file is protected and cannot be deleted").
			WithContext("path", rel).
			Build()
	}
	if err := os.Remove(abs); err != nil {
		if os.IsNotExist(err) {
			return ferrors.NotFoundError("file not found").
				WithContext("path", rel).
				Build()
		}
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to delete file").
			WithContext("path", rel).
			Build()
	}
	return nil
}
