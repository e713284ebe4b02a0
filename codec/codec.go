// Package codec dispatches coded item payloads to a registered decoder
// plugin and turns the result into an image.Image (§4.H). The plugin
// contract's shape — NewDecoder(opts...), Free, Reset, DecodeImage — is
// adapted from the teacher's cgo-wrapped dav1d.Decoder/libde265.Decoder,
// generalized into a pure-Go interface so this package never links against
// an external C codec library itself.
package codec

import (
	"fmt"
	"image"
	"sort"
	"sync"
)

// Plugin decodes one compression_format's coded bitstream into pixels. A
// plugin is stateful per Decoder instance but the Plugin value itself
// (the registry entry) must be safe for concurrent NewDecoder calls.
type Plugin interface {
	// Name identifies the plugin, e.g. in Registry.DecodeItem's error
	// messages.
	Name() string

	// Priority breaks ties when more than one registered plugin claims
	// the same compression format; higher wins.
	Priority() int

	// DoesSupportFormat reports whether this plugin can decode the given
	// item_type / compression_format FourCC.
	DoesSupportFormat(format [4]byte) bool

	// NewDecoder returns a fresh stateful decoder instance.
	NewDecoder(opts ...Option) (Decoder, error)
}

// Decoder is one decode session. Callers may Push coded data incrementally
// (e.g. per-tile for a grid) before calling DecodeImage, mirroring the
// teacher's Decoder.Push/DecodeImage split for streaming decoders.
type Decoder interface {
	// Push appends coded bytes (a NAL-prefixed HEVC frame, an AV1 OBU
	// sequence, ...) to the decoder's internal buffer.
	Push(data []byte) error

	// DecodeImage decodes everything pushed so far into an image.Image.
	DecodeImage() (image.Image, error)

	// SetStrictDecoding toggles whether non-conformant bitstreams are
	// rejected (true) or decoded best-effort (false, the default).
	SetStrictDecoding(strict bool)

	// Reset discards internal state so the Decoder can be reused for a
	// new item without reallocating.
	Reset()

	// Free releases any resources the decoder holds. Required even for
	// pure-Go plugins so external-library-backed plugins (not present in
	// this module, but satisfying the same interface) have a symmetric
	// lifecycle.
	Free()
}

// Option configures a Decoder at construction, matching the teacher's
// functional-options pattern (see dav1d.Option).
type Option func(any)

// Registry holds every Plugin known to this process, selecting among
// competing claimants for a format by Priority.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
}

// DefaultRegistry is pre-populated by this package's init with every
// built-in plugin (§4.H): the fully-implemented uncompressed and mask
// codecs, plus stub plugins for the codecs this module does not decode.
var DefaultRegistry = NewRegistry()

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry { return &Registry{} }

// Register adds p to the registry. Safe for concurrent use.
func (r *Registry) Register(p Plugin) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plugins = append(r.plugins, p)
}

// ForFormat returns the highest-priority registered plugin supporting
// format, or nil.
func (r *Registry) ForFormat(format [4]byte) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var candidates []Plugin
	for _, p := range r.plugins {
		if p.DoesSupportFormat(format) {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Priority() > candidates[j].Priority() })
	return candidates[0]
}

// ErrNoDecoderPlugin is the error DecodeItem returns when no registered
// plugin claims the item's compression format.
var ErrNoDecoderPlugin = fmt.Errorf("codec: no registered plugin supports this format")

// DecodeItem decodes a single coded payload for the given item_type,
// selecting a plugin from r.
func (r *Registry) DecodeItem(itemType [4]byte, data []byte) (image.Image, error) {
	p := r.ForFormat(itemType)
	if p == nil {
		return nil, ErrNoDecoderPlugin
	}
	dec, err := p.NewDecoder()
	if err != nil {
		return nil, fmt.Errorf("codec: %s: %w", p.Name(), err)
	}
	defer dec.Free()
	if err := dec.Push(data); err != nil {
		return nil, fmt.Errorf("codec: %s: push: %w", p.Name(), err)
	}
	return dec.DecodeImage()
}
