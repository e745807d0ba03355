package naming

import (
	"fmt"
	"path/filepath"
	"strconv"
	"sync"

	"picname/internal/fileutil"
	"picname/internal/services"
)

// DefaultAttemptLimit bounds the numbered suffixes tried for one file.
const DefaultAttemptLimit = 1000

// MaxNameBytes is the longest file name most filesystems accept (NAME_MAX).
const MaxNameBytes = 255

// ErrCollisionLimitExceeded is returned when every candidate up to the
// attempt limit is taken. It matches services.ErrCollisionLimit.
var ErrCollisionLimitExceeded = fmt.Errorf("%w: no free name", services.ErrCollisionLimit)

// ErrNameTooLong is returned when a candidate name is longer than
// MaxNameBytes. It matches services.ErrNameTooLong.
var ErrNameTooLong = fmt.Errorf("%w: exceeds %d bytes", services.ErrNameTooLong, MaxNameBytes)

// Resolve returns the first free path in dir for token+ext. It tries
// token+ext, then token_1+ext, token_2+ext and so on up to token_limit+ext.
// exists decides whether a candidate is taken. A limit <= 0 uses
// DefaultAttemptLimit. Names longer than MaxNameBytes fail with
// ErrNameTooLong without consulting exists.
func Resolve(dir, token, ext string, limit int, exists func(string) bool) (string, error) {
	if limit <= 0 {
		limit = DefaultAttemptLimit
	}
	if exists == nil {
		exists = fileutil.Exists
	}

	name := token + ext
	if len(name) > MaxNameBytes {
		return "", fmt.Errorf("%w: %d-byte name in %s", ErrNameTooLong, len(name), dir)
	}
	candidate := filepath.Join(dir, name)
	if !exists(candidate) {
		return candidate, nil
	}
	for n := 1; n <= limit; n++ {
		name = token + "_" + strconv.Itoa(n) + ext
		if len(name) > MaxNameBytes {
			return "", fmt.Errorf("%w: %s after %d attempts in %s", ErrNameTooLong, name, n-1, dir)
		}
		candidate = filepath.Join(dir, name)
		if !exists(candidate) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: %s%s in %s after %d attempts", ErrCollisionLimitExceeded, token, ext, dir, limit)
}

// Resolver hands out destination paths for one run in one directory. A path
// is taken when it exists on disk or was already handed out by this
// Resolver, so two files never receive the same destination even in preview
// mode. All methods are goroutine-safe.
type Resolver struct {
	dir    string
	limit  int
	exists func(string) bool

	mu      sync.Mutex
	claimed map[string]struct{}
}

// Option customizes a Resolver.
type Option func(*Resolver)

// WithExistsFunc overrides the on-disk existence check (useful for tests).
func WithExistsFunc(fn func(string) bool) Option {
	return func(r *Resolver) {
		if fn != nil {
			r.exists = fn
		}
	}
}

// NewResolver creates a resolver for dir. A limit <= 0 uses DefaultAttemptLimit.
func NewResolver(dir string, limit int, opts ...Option) *Resolver {
	if limit <= 0 {
		limit = DefaultAttemptLimit
	}
	r := &Resolver{
		dir:     dir,
		limit:   limit,
		exists:  fileutil.Exists,
		claimed: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Dir returns the directory destinations are resolved in.
func (r *Resolver) Dir() string {
	return r.dir
}

// Place resolves a free destination for token+ext and runs commit with it
// while holding the resolver lock, so resolution and the filesystem change
// form one critical section. The destination is claimed only when commit
// succeeds; a nil commit claims it unconditionally.
func (r *Resolver) Place(token, ext string, commit func(dest string) error) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	dest, err := Resolve(r.dir, token, ext, r.limit, r.taken)
	if err != nil {
		return "", err
	}
	if commit != nil {
		if err := commit(dest); err != nil {
			return dest, err
		}
	}
	r.claimed[dest] = struct{}{}
	return dest, nil
}

// Claimed returns how many destinations this resolver has handed out.
func (r *Resolver) Claimed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.claimed)
}

// IsClaimed reports whether path was handed out by this resolver.
func (r *Resolver) IsClaimed(path string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.claimed[path]
	return ok
}

func (r *Resolver) taken(path string) bool {
	if _, ok := r.claimed[path]; ok {
		return true
	}
	return r.exists(path)
}
