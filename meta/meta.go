// Package meta implements format recognizers ("metas"): each one probes a
// streamfile.File for its container's signature and, on a match, parses
// headers into a fully populated Format.
//
// The dispatch shape generalizes the teacher's metadata-block parser
// (parse a small header, then switch on a declared type field to decide how
// to parse the body, tolerating reserved/unknown types as non-fatal) from a
// single FLAC stream's block list to an ordered list of independent
// container candidates: Registry.Open walks the list instead of switching
// on one type field, because the container family itself is unknown until
// a meta says otherwise.
package meta

import (
	"errors"
	"fmt"

	"github.com/farcloser/vgmgo/streamfile"
	"github.com/farcloser/vgmgo/vgmformat"
)

// ErrNotThisFormat is returned by Meta.TryOpen when the source does not
// match that meta's container signature. It mirrors spec.md §7's
// NotRecognized kind: the orchestrator tries the next meta instead of
// treating it as a failure.
var ErrNotThisFormat = errors.New("meta: not this format")

// Meta recognizes one container format and parses it into a vgmformat.Format.
type Meta interface {
	// Name identifies the meta for diagnostics and format_internal_id
	// short-circuiting.
	Name() string
	// TryOpen probes sf. It returns ErrNotThisFormat if the signature does
	// not match; any other error is a MalformedHeader-class failure once
	// the signature did match (spec.md §7: fatal for this meta, not for the
	// orchestrator).
	TryOpen(sf streamfile.File, opts Options) (*vgmformat.Format, error)
}

// Options carries the caller-supplied open() options relevant to
// meta-recognition and subsong selection (spec.md §6.1).
type Options struct {
	// Subsong is 1-based; 0 means "first".
	Subsong int
	// FormatInternalID short-circuits the registry straight to the named
	// meta, used when a container meta (CPK/ACB/AAX) re-opens a subfile it
	// already knows the exact inner format of.
	FormatInternalID string
	StereoTrack      int
}

// Registry holds an ordered, priority-first list of metas.
type Registry struct {
	metas []Meta
	byID  map[string]Meta
}

func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]Meta)}
}

// Register appends m to the priority list.
func (r *Registry) Register(m Meta) {
	r.metas = append(r.metas, m)
	r.byID[m.Name()] = m
}

// Open walks the registry in priority order, returning the first match. If
// opts.FormatInternalID names a registered meta, that meta alone is tried.
// A per-meta error after a signature match is fatal and is returned
// immediately (spec.md §7: "any failure after magic has matched is fatal
// for that meta"); an ErrNotThisFormat from one meta simply advances to the
// next.
func (r *Registry) Open(sf streamfile.File, opts Options) (*vgmformat.Format, error) {
	if opts.FormatInternalID != "" {
		m, ok := r.byID[opts.FormatInternalID]
		if !ok {
			return nil, fmt.Errorf("meta.Registry.Open: unknown format_internal_id %q", opts.FormatInternalID)
		}
		return m.TryOpen(sf, opts)
	}

	for _, m := range r.metas {
		format, err := m.TryOpen(sf, opts)
		if err == nil {
			return format, nil
		}
		if errors.Is(err, ErrNotThisFormat) {
			continue
		}
		return nil, fmt.Errorf("meta.Registry.Open: %s: %w", m.Name(), err)
	}
	return nil, fmt.Errorf("meta.Registry.Open: %w", ErrNotRecognized)
}

// ErrNotRecognized is the error surfaced to the public API when no
// registered meta matched (spec.md §7).
var ErrNotRecognized = errors.New("meta: no recognizer matched this source")
