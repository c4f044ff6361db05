/*
 * apkscope - Android APK static-analysis toolkit
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package diag implements the error taxonomy of §7: a small set of
// structured kinds, fatal errors returned to the caller and non-fatal
// diagnostics accumulated in a per-query sink.
//
// The shape follows jacobin classloader.go's cfe()/trace.Error pattern
// (a helper that stamps the call site onto every class-format error)
// but swaps free-form strings for a typed Kind + Location, and swaps
// string concatenation for zerolog's structured fields.
package diag

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Kind enumerates the non-overlapping failure categories of §7.
type Kind int

const (
	KindContainer Kind = iota
	KindFormat
	KindIndex
	KindResolution
	KindDecoder
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindContainer:
		return "container"
	case KindFormat:
		return "format"
	case KindIndex:
		return "index"
	case KindResolution:
		return "resolution"
	case KindDecoder:
		return "decoder"
	case KindCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Error is the structured failure record of §7: kind + location + a
// short message, never a free-form exception string.
type Error struct {
	Kind     Kind
	Location string // e.g. "classes2.dex:class#14", "AndroidManifest.xml"
	Message  string
	site     string // file:line of the call that raised it, for trace logs only
}

func (e *Error) Error() string {
	if e.Location != "" {
		return fmt.Sprintf("%s error at %s: %s", e.Kind, e.Location, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

// New builds a fatal Error, stamping the immediate caller's file:line
// the way jacobin's cfe() does with runtime.Caller.
func New(kind Kind, location, message string) *Error {
	site := ""
	if pc, _, _, ok := runtime.Caller(1); ok {
		if fn := runtime.FuncForPC(pc); fn != nil {
			file, line := fn.FileLine(pc)
			site = fmt.Sprintf("%s:%d", file, line)
		}
	}
	e := &Error{Kind: kind, Location: location, Message: message, site: site}
	log.Error().Str("kind", kind.String()).Str("location", location).Str("site", site).Msg(message)
	return e
}

// Entry is one non-fatal diagnostic accumulated during a query.
type Entry struct {
	Kind     Kind
	Location string
	Message  string
}

// Sink accumulates non-fatal diagnostics for one query (§7
// "non-fatal kinds accumulate in a per-query diagnostics list").
// Not safe for unsynchronized concurrent writes from multiple
// goroutines by default; callers needing that use NewConcurrentSink.
type Sink struct {
	entries []Entry
}

// NewSink returns an empty diagnostics sink.
func NewSink() *Sink { return &Sink{} }

// Warn records a non-fatal diagnostic and logs it at warn level.
func (s *Sink) Warn(kind Kind, location, message string) {
	s.entries = append(s.entries, Entry{Kind: kind, Location: location, Message: message})
	log.Warn().Str("kind", kind.String()).Str("location", location).Msg(message)
}

// Entries returns the accumulated diagnostics in insertion order.
func (s *Sink) Entries() []Entry {
	return s.entries
}

// Empty reports whether no diagnostics were recorded.
func (s *Sink) Empty() bool { return len(s.entries) == 0 }

// ConcurrentSink is a Sink guarded by a mutex, for the parallel
// call-graph builder's workers to share one diagnostics list (§5)
// instead of each needing its own merge step.
type ConcurrentSink struct {
	mu   sync.Mutex
	sink Sink
}

// NewConcurrentSink returns an empty, concurrency-safe diagnostics sink.
func NewConcurrentSink() *ConcurrentSink { return &ConcurrentSink{} }

// Warn records a non-fatal diagnostic. Safe for concurrent use.
func (s *ConcurrentSink) Warn(kind Kind, location, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sink.Warn(kind, location, message)
}

// Entries returns the accumulated diagnostics in insertion order.
func (s *ConcurrentSink) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.sink.entries))
	copy(out, s.sink.entries)
	return out
}

// SetLevel configures the package-level zerolog logger's verbosity;
// exposed so the CLI can wire -v/-q flags without each package
// importing zerolog directly.
func SetLevel(lvl zerolog.Level) {
	zerolog.SetGlobalLevel(lvl)
}
