package dispatch

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/mcpagent/mcpagent/internal/model"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const (
	typeFile      = "file"
	typeDirectory = "directory"
)

// resolveParam reads a path parameter and routes it through the sandbox.
// An empty def marks the parameter as required.
func (d *Dispatcher) resolveParam(p Params, name, def string) (string, error) {
	if def != "" {
		return d.sandbox.Resolve(p.String(name, def))
	}
	raw, err := p.RequireString(name)
	if err != nil {
		return "", err
	}
	return d.sandbox.Resolve(raw)
}

func decodeContent(content, encoding string) ([]byte, error) {
	switch strings.ToLower(encoding) {
	case "", "utf-8", "utf8":
		return []byte(content), nil
	case "base64":
		return base64.StdEncoding.DecodeString(content)
	case "hex":
		return hex.DecodeString(content)
	default:
		return nil, fmt.Errorf("unsupported encoding: %s", encoding)
	}
}

func encodeContent(data []byte, encoding string) (string, error) {
	switch strings.ToLower(encoding) {
	case "", "utf-8", "utf8":
		return string(data), nil
	case "base64":
		return base64.StdEncoding.EncodeToString(data), nil
	case "hex":
		return hex.EncodeToString(data), nil
	default:
		return "", fmt.Errorf("unsupported encoding: %s", encoding)
	}
}

func (d *Dispatcher) readFile(_ context.Context, p Params) (model.Payload, error) {
	path, err := d.resolveParam(p, "path", "")
	if err != nil {
		return nil, err
	}
	encoding := p.String("encoding", "utf-8")

	info, err := d.fs.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("cannot read %s: is a directory", path)
	}
	data, err := afero.ReadFile(d.fs, path)
	if err != nil {
		return nil, err
	}
	content, err := encodeContent(data, encoding)
	if err != nil {
		return nil, err
	}
	return model.Payload{
		"path":     path,
		"content":  content,
		"size":     len(data),
		"encoding": strings.ToLower(encoding),
	}, nil
}

func (d *Dispatcher) writeFile(_ context.Context, p Params) (model.Payload, error) {
	path, err := d.resolveParam(p, "path", "")
	if err != nil {
		return nil, err
	}
	content, err := p.RequireString("content")
	if err != nil {
		return nil, err
	}
	data, err := decodeContent(content, p.String("encoding", "utf-8"))
	if err != nil {
		return nil, fmt.Errorf("failed to decode content: %w", err)
	}

	if err := d.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	if err := afero.WriteFile(d.fs, path, data, 0o644); err != nil {
		return nil, err
	}
	return model.Payload{
		"path": path,
		"size": len(data),
	}, nil
}

// listEntry is a single item of a directory listing.
type listEntry struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	FullPath    string `json:"fullPath"`
	Type        string `json:"type"`
	Size        int64  `json:"size"`
	Modified    string `json:"modified"`
	Permissions string `json:"permissions"`
}

// listError records a subdirectory that could not be read during a recursive listing.
type listError struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

func (d *Dispatcher) listDirectory(_ context.Context, p Params) (model.Payload, error) {
	root, err := d.resolveParam(p, "path", ".")
	if err != nil {
		return nil, err
	}
	l := &lister{
		fs:         d.fs,
		logger:     d.logger,
		recursive:  p.Bool("recursive", false),
		showHidden: p.Bool("showHidden", false),
		entries:    []listEntry{},
	}

	infos, err := afero.ReadDir(d.fs, root)
	if err != nil {
		return nil, err
	}
	l.walk(root, "", infos)

	payload := model.Payload{
		"path":    root,
		"entries": l.entries,
		"count":   len(l.entries),
	}
	if len(l.errors) > 0 {
		payload["errors"] = l.errors
	}
	return payload, nil
}

type lister struct {
	fs         afero.Fs
	logger     *zap.Logger
	recursive  bool
	showHidden bool

	entries []listEntry
	errors  []listError
}

// walk appends the entries of dir depth-first. Only real directories are descended into,
// so symlink cycles cannot make the traversal loop.
func (l *lister) walk(dir, prefix string, infos []os.FileInfo) {
	for _, info := range infos {
		name := info.Name()
		if !l.showHidden && strings.HasPrefix(name, ".") {
			continue
		}
		fullPath := filepath.Join(dir, name)
		relPath := filepath.Join(prefix, name)

		target := info
		if info.Mode()&os.ModeSymlink != 0 {
			if st, err := l.fs.Stat(fullPath); err == nil {
				target = st
			}
		}

		l.entries = append(l.entries, listEntry{
			Name:        name,
			Path:        relPath,
			FullPath:    fullPath,
			Type:        entryType(target),
			Size:        target.Size(),
			Modified:    formatTime(target.ModTime()),
			Permissions: formatMode(target.Mode()),
		})

		if !l.recursive || !info.IsDir() {
			continue
		}
		children, err := afero.ReadDir(l.fs, fullPath)
		if err != nil {
			l.logger.Warn("failed to list subdirectory", zap.String("path", fullPath), zap.Error(err))
			l.errors = append(l.errors, listError{Path: fullPath, Error: err.Error()})
			continue
		}
		l.walk(fullPath, relPath, children)
	}
}

func (d *Dispatcher) getInfo(_ context.Context, p Params) (model.Payload, error) {
	path, err := d.resolveParam(p, "path", "")
	if err != nil {
		return nil, err
	}
	info, err := d.fs.Stat(path)
	if err != nil {
		return nil, err
	}
	times := fileTimesOf(info)
	perm := info.Mode().Perm()
	return model.Payload{
		"path":        path,
		"type":        entryType(info),
		"size":        info.Size(),
		"created":     formatTime(times.created),
		"modified":    formatTime(times.modified),
		"accessed":    formatTime(times.accessed),
		"permissions": formatMode(info.Mode()),
		"isReadable":  perm&0o400 != 0,
		"isWritable":  perm&0o200 != 0,
	}, nil
}

func (d *Dispatcher) createDirectory(_ context.Context, p Params) (model.Payload, error) {
	path, err := d.resolveParam(p, "path", "")
	if err != nil {
		return nil, err
	}
	if p.Bool("recursive", true) {
		err = d.fs.MkdirAll(path, 0o755)
	} else {
		err = d.fs.Mkdir(path, 0o755)
	}
	if err != nil {
		return nil, err
	}
	return model.Payload{"path": path}, nil
}

// deletePath succeeds when the target does not exist.
func (d *Dispatcher) deletePath(_ context.Context, p Params) (model.Payload, error) {
	path, err := d.resolveParam(p, "path", "")
	if err != nil {
		return nil, err
	}
	if _, err := d.lstat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return model.Payload{"path": path, "existed": false}, nil
		}
		return nil, err
	}

	if p.Bool("recursive", true) {
		err = d.fs.RemoveAll(path)
	} else {
		err = d.fs.Remove(path)
	}
	if err != nil {
		return nil, err
	}
	return model.Payload{"path": path, "existed": true}, nil
}

func (d *Dispatcher) copyPath(_ context.Context, p Params) (model.Payload, error) {
	src, dst, err := d.resolvePair(p)
	if err != nil {
		return nil, err
	}
	info, err := d.fs.Stat(src)
	if err != nil {
		return nil, err
	}
	if info.IsDir() && strings.HasPrefix(dst, src+string(filepath.Separator)) {
		return nil, fmt.Errorf("cannot copy directory %s into itself", src)
	}
	if d.sameFile(src, info, dst) {
		return nil, fmt.Errorf("cannot copy %s onto itself", src)
	}
	if err := d.fs.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return nil, err
	}

	if info.IsDir() {
		err = d.copyDir(src, dst)
	} else {
		err = d.copyFile(src, dst, info.Mode().Perm())
	}
	if err != nil {
		return nil, err
	}
	return model.Payload{"source": src, "destination": dst}, nil
}

func (d *Dispatcher) movePath(_ context.Context, p Params) (model.Payload, error) {
	src, dst, err := d.resolvePair(p)
	if err != nil {
		return nil, err
	}
	info, err := d.lstat(src)
	if err != nil {
		return nil, err
	}
	if err := d.fs.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return nil, err
	}

	err = d.fs.Rename(src, dst)
	if errors.Is(err, syscall.EXDEV) {
		// crossing filesystems: fall back to copy and delete
		if info.IsDir() {
			err = d.copyDir(src, dst)
		} else {
			err = d.copyFile(src, dst, info.Mode().Perm())
		}
		if err == nil {
			err = d.fs.RemoveAll(src)
		}
	}
	if err != nil {
		return nil, err
	}
	return model.Payload{"source": src, "destination": dst}, nil
}

func (d *Dispatcher) resolvePair(p Params) (string, string, error) {
	src, err := d.resolveParam(p, "source", "")
	if err != nil {
		return "", "", err
	}
	dst, err := d.resolveParam(p, "destination", "")
	if err != nil {
		return "", "", err
	}
	return src, dst, nil
}

// sameFile reports whether dst refers to the same file as src, including through symlinks and hard links.
func (d *Dispatcher) sameFile(src string, srcInfo os.FileInfo, dst string) bool {
	if src == dst {
		return true
	}
	dstInfo, err := d.fs.Stat(dst)
	return err == nil && os.SameFile(srcInfo, dstInfo)
}

func (d *Dispatcher) lstat(path string) (os.FileInfo, error) {
	if lfs, ok := d.fs.(afero.Lstater); ok {
		info, _, err := lfs.LstatIfPossible(path)
		return info, err
	}
	return d.fs.Stat(path)
}

func (d *Dispatcher) copyFile(src, dst string, perm os.FileMode) error {
	in, err := d.fs.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := d.fs.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("failed to copy %s to %s: %w", src, dst, err)
	}
	return out.Close()
}

func (d *Dispatcher) copyDir(src, dst string) error {
	return afero.Walk(d.fs, src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		switch {
		case info.IsDir():
			return d.fs.MkdirAll(target, info.Mode().Perm()|0o700)
		case info.Mode()&os.ModeSymlink != 0:
			return d.copySymlink(path, target)
		default:
			return d.copyFile(path, target, info.Mode().Perm())
		}
	})
}

func (d *Dispatcher) copySymlink(src, dst string) error {
	reader, okRead := d.fs.(afero.LinkReader)
	linker, okLink := d.fs.(afero.Linker)
	if !okRead || !okLink {
		return fmt.Errorf("cannot copy symlink %s: not supported by filesystem", src)
	}
	link, err := reader.ReadlinkIfPossible(src)
	if err != nil {
		return err
	}
	return linker.SymlinkIfPossible(link, dst)
}
