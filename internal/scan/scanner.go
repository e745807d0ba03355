package scan

import (
	"errors"
	"io"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"picname/internal/services"
)

const readBatch = 64

// DefaultExtensions is the allowlist used when none is configured.
var DefaultExtensions = []string{".png", ".jpg", ".jpeg", ".webp"}

// Entry is one directory entry as seen by the scanner.
type Entry struct {
	Name string
	Path string
	// Extension is lower-cased and includes the leading dot.
	Extension string
	IsDir     bool
	// Eligible is true for regular entries whose extension is allowlisted.
	Eligible bool
}

// Scanner enumerates one directory, non-recursively, against an extension
// allowlist.
type Scanner struct {
	allow map[string]struct{}
}

// New builds a scanner for the given extensions. Extensions are compared
// case-insensitively and may be given with or without the leading dot.
func New(extensions []string) *Scanner {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	allow := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" || ext == "." {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		allow[ext] = struct{}{}
	}
	return &Scanner{allow: allow}
}

// Eligible reports whether name carries an allowlisted extension.
func (s *Scanner) Eligible(name string) bool {
	_, ok := s.allow[strings.ToLower(filepath.Ext(name))]
	return ok
}

// CheckDir fails with services.ErrDirectoryNotFound when dir is missing or
// is not a directory.
func CheckDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return services.Wrap(services.ErrDirectoryNotFound, "scan", "open", dir, nil)
		}
		return services.Wrap(services.ErrDirectoryNotFound, "scan", "stat", dir, err)
	}
	if !info.IsDir() {
		return services.Wrap(services.ErrDirectoryNotFound, "scan", "open", dir+" is not a directory", nil)
	}
	return nil
}

// Open starts a listing of dir. A missing path, or a path that is not a
// directory, fails with services.ErrDirectoryNotFound before any entry is
// read.
func (s *Scanner) Open(dir string) (*Listing, error) {
	if err := CheckDir(dir); err != nil {
		return nil, err
	}
	handle, err := os.Open(dir)
	if err != nil {
		return nil, services.Wrap(services.ErrDirectoryNotFound, "scan", "open", dir, err)
	}
	return &Listing{scanner: s, dir: dir, handle: handle}, nil
}

// Listing is a single-use, lazily read view of one directory. Re-open the
// directory to rescan it.
type Listing struct {
	scanner *Scanner
	dir     string

	mu     sync.Mutex
	handle *os.File
	used   bool
}

// Dir returns the directory being listed.
func (l *Listing) Dir() string {
	return l.dir
}

// Entries yields every entry of the directory in the order the filesystem
// returns them, reading in small batches. A read error is yielded once and
// ends the sequence. Calling Entries a second time yields nothing.
func (l *Listing) Entries() iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		l.mu.Lock()
		if l.used || l.handle == nil {
			l.mu.Unlock()
			return
		}
		l.used = true
		handle := l.handle
		l.mu.Unlock()
		defer l.Close()

		for {
			batch, err := handle.ReadDir(readBatch)
			for _, d := range batch {
				if !yield(l.entry(d), nil) {
					return
				}
			}
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(Entry{}, services.Wrap(nil, "scan", "read", l.dir, err))
				return
			}
			if len(batch) == 0 {
				return
			}
		}
	}
}

// Close releases the directory handle. It is safe to call more than once.
func (l *Listing) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.handle == nil {
		return nil
	}
	err := l.handle.Close()
	l.handle = nil
	l.used = true
	return err
}

func (l *Listing) entry(d fs.DirEntry) Entry {
	name := d.Name()
	ext := strings.ToLower(filepath.Ext(name))
	isDir := d.IsDir()
	eligible := false
	if !isDir {
		_, eligible = l.scanner.allow[ext]
	}
	return Entry{
		Name:      name,
		Path:      filepath.Join(l.dir, name),
		Extension: ext,
		IsDir:     isDir,
		Eligible:  eligible,
	}
}
