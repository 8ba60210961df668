// Package walk is the filesystem-traversal collaborator §1 calls out as
// external to the core: directory walk, stat, and permission mapping.
// It has no archive-format knowledge of its own.
package walk

import (
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/pkg/errors"

	"github.com/jidac/jidac/internal/archfmt"
)

// Entry is one external file discovered by Walk, attributed the way the
// add transaction needs: a slash-normalized path (§9: "internally
// normalize to forward-slash UTF-8"), modification date at one-second
// resolution, and a platform attribute.
type Entry struct {
	Path    string // forward-slash, relative to the walk root
	AbsPath string
	Size    int64
	Date    archfmt.DecimalDate
	Attr    archfmt.Attr
}

// Walk traverses each root (file or directory) and returns every regular
// file found, sorted by Path. Symlinks are not followed, per the spec's
// Non-goals. not/only patterns are applied by the caller via
// archfmt.MatchAny over the returned Path field.
func Walk(roots []string) ([]Entry, error) {
	var entries []Entry
	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, errors.Wrapf(err, "walk: %s", root)
		}
		info, err := os.Lstat(abs)
		if err != nil {
			return nil, errors.Wrapf(err, "walk: %s", root)
		}
		if info.Mode()&os.ModeSymlink != 0 {
			continue
		}
		if !info.IsDir() {
			e, err := statEntry(abs, filepath.Base(abs))
			if err != nil {
				return nil, err
			}
			entries = append(entries, e)
			continue
		}
		base := abs
		err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			if d.Type()&os.ModeSymlink != 0 {
				return nil
			}
			rel, err := filepath.Rel(base, path)
			if err != nil {
				return err
			}
			e, err := statEntry(path, filepath.Join(filepath.Base(base), rel))
			if err != nil {
				return nil // I/O error on one file does not abort the walk
			}
			entries = append(entries, e)
			return nil
		})
		if err != nil {
			return nil, errors.Wrapf(err, "walk: %s", root)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

func statEntry(absPath, relPath string) (Entry, error) {
	info, err := os.Stat(absPath)
	if err != nil {
		return Entry{}, errors.Wrapf(err, "walk: stat %s", absPath)
	}
	return Entry{
		Path:    toSlash(relPath),
		AbsPath: absPath,
		Size:    info.Size(),
		Date:    archfmt.DateFromTime(info.ModTime()),
		Attr:    attrFor(info),
	}, nil
}

func toSlash(p string) string {
	return filepath.ToSlash(p)
}

func attrFor(info os.FileInfo) archfmt.Attr {
	if runtime.GOOS == "windows" {
		return archfmt.WindowsAttr(windowsAttrFlags(info))
	}
	return archfmt.PosixAttr(uint32(info.Mode().Perm()))
}

// windowsAttrFlags has no real attribute API available without cgo or
// x/sys/windows; it derives only the directory and read-only flags from
// the portable file mode, which still preserves the tagged-variant split
// of §9.
func windowsAttrFlags(info os.FileInfo) uint32 {
	var flags uint32
	if info.Mode().IsDir() {
		flags |= 0x10 // FILE_ATTRIBUTE_DIRECTORY
	}
	if info.Mode()&0200 == 0 {
		flags |= 0x1 // FILE_ATTRIBUTE_READONLY
	}
	return flags
}
