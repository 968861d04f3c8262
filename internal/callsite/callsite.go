// Package callsite locates the application frame responsible for a log call.
//
// Resolution is a best-effort heuristic over the goroutine stack. A frame is
// accepted when its file exists on disk, lies outside every configured
// library path, is not a reflective or runtime trampoline, and is not
// rejected by the injected skip predicate. Binaries built with -trimpath
// report module-relative file names, which never exist on disk, so no frame
// resolves for them.
package callsite

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// maxDepth bounds how many program counters are captured per lookup.
const maxDepth = 64

// Frame is one call-stack entry.
type Frame struct {
	File     string
	Line     int
	Function string // fully qualified, e.g. "gorm.io/gorm.(*DB).Find"
}

// SkipFunc reports whether a frame belongs to framework plumbing and should
// be passed over when looking for the caller.
type SkipFunc func(Frame) bool

// SkipPackages returns a SkipFunc that rejects frames whose function name
// starts with any of the given prefixes.
func SkipPackages(prefixes ...string) SkipFunc {
	return func(f Frame) bool {
		return hasAnyPrefix(f.Function, prefixes)
	}
}

// DefaultProxyPrefixes identify frames that only forward calls.
var DefaultProxyPrefixes = []string{"reflect.", "runtime."}

// Resolver finds the first application frame in a stack.
type Resolver struct {
	libraryPaths  []string
	proxyPrefixes []string
	skip          SkipFunc
	fileExists    func(string) bool
}

// Option customizes a Resolver.
type Option func(*Resolver)

// WithSkip installs the predicate used to reject framework frames.
func WithSkip(fn SkipFunc) Option {
	return func(r *Resolver) { r.skip = fn }
}

// WithProxyPrefixes replaces DefaultProxyPrefixes.
func WithProxyPrefixes(prefixes ...string) Option {
	return func(r *Resolver) { r.proxyPrefixes = prefixes }
}

// NewResolver builds a Resolver excluding the given library paths. Each path
// is made absolute and symlink-resolved; paths that cannot be resolved are
// kept in their absolute, cleaned form.
func NewResolver(libraryPaths []string, opts ...Option) *Resolver {
	r := &Resolver{
		proxyPrefixes: DefaultProxyPrefixes,
		fileExists:    isFile,
	}
	for _, p := range libraryPaths {
		if p = Normalize(p); p != "" {
			r.libraryPaths = append(r.libraryPaths, p)
		}
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Normalize returns the absolute, symlink-resolved form of path.
func Normalize(path string) string {
	if strings.TrimSpace(path) == "" {
		return ""
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		return real
	}
	return abs
}

// LibraryPaths returns the normalized library paths.
func (r *Resolver) LibraryPaths() []string {
	out := make([]string, len(r.libraryPaths))
	copy(out, r.libraryPaths)
	return out
}

// Resolve returns the first acceptable frame, or nil when none qualifies.
func (r *Resolver) Resolve(frames []Frame) *Frame {
	for _, f := range frames {
		if f.File == "" || !r.fileExists(f.File) {
			continue
		}
		if r.inLibrary(f.File) {
			continue
		}
		if hasAnyPrefix(f.Function, r.proxyPrefixes) {
			continue
		}
		if r.skip != nil && r.skip(f) {
			continue
		}
		found := f
		return &found
	}
	return nil
}

// Caller resolves against the current goroutine stack. skip counts frames
// above the caller of Caller, as in runtime.Callers.
func (r *Resolver) Caller(skip int) *Frame {
	return r.Resolve(Stack(skip + 1))
}

// Stack captures the current goroutine stack, omitting skip frames above the
// caller of Stack.
func Stack(skip int) []Frame {
	pcs := make([]uintptr, maxDepth)
	n := runtime.Callers(skip+2, pcs)
	if n == 0 {
		return nil
	}
	frames := runtime.CallersFrames(pcs[:n])
	var out []Frame
	for {
		fr, more := frames.Next()
		out = append(out, Frame{File: fr.File, Line: fr.Line, Function: fr.Function})
		if !more {
			break
		}
	}
	return out
}

func (r *Resolver) inLibrary(file string) bool {
	for _, lib := range r.libraryPaths {
		if strings.HasPrefix(file, lib+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
