package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// Source looks up fragment documents by their slash-separated relative path.
// A missing document is reported with found == false and a nil error.
type Source interface {
	Lookup(name string) (data []byte, found bool, err error)
}

// CanonicalPath returns the form under which a fragment path is looked up
// and guarded against repeated inclusion. Leading slashes and "./" segments
// do not change the fragment a path names.
func CanonicalPath(name string) string {
	return strings.TrimPrefix(path.Clean("/"+name), "/")
}

// FileSource reads fragments from a filesystem rooted at the deployment root.
type FileSource struct {
	fs afero.Fs
}

// NewFileSource returns a FileSource reading from root on the OS filesystem.
func NewFileSource(root string) *FileSource {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	return &FileSource{fs: afero.NewBasePathFs(afero.NewOsFs(), root)}
}

// NewFileSourceFs returns a FileSource over an arbitrary afero filesystem.
// Fragment paths are looked up below its root directory "/".
func NewFileSourceFs(fsys afero.Fs) *FileSource {
	return &FileSource{fs: fsys}
}

// Lookup implements Source.
func (s *FileSource) Lookup(name string) ([]byte, bool, error) {
	p := filepath.FromSlash("/" + CanonicalPath(name))
	info, err := s.fs.Stat(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("stat %s: %w", name, err)
	}
	if info.IsDir() {
		return nil, false, nil
	}

	data, err := afero.ReadFile(s.fs, p)
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", name, err)
	}
	return data, true, nil
}

// DiscoverSites lists every site directory carrying an entry file.
func (s *FileSource) DiscoverSites(layout Layout) ([]string, error) {
	pattern := filepath.FromSlash("/" + layout.SiteEntryPath("*"))
	matches, err := afero.Glob(s.fs, pattern)
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", pattern, err)
	}

	sites := make([]string, 0, len(matches))
	for _, m := range matches {
		site := filepath.Base(filepath.Dir(m))
		if ValidateSite(site) != nil {
			continue
		}
		sites = append(sites, site)
	}
	sort.Strings(sites)
	return sites, nil
}

// MapSource serves fragments from memory. Keys are compared in their
// canonical form.
type MapSource map[string][]byte

// Lookup implements Source.
func (m MapSource) Lookup(name string) ([]byte, bool, error) {
	want := CanonicalPath(name)
	data, ok := m[want]
	if !ok {
		for key, v := range m {
			if CanonicalPath(key) == want {
				data, ok = v, true
				break
			}
		}
	}
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, true, nil
}
