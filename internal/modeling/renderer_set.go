package modeling

import (
	"fmt"
	"time"

	"github.com/roach88/dbfuel/internal/objectpath"
)

// KeySet restricts rendering to a subset of attribute keys.
// An empty set places no restriction.
type KeySet struct {
	keys  map[string]struct{}
	order []string
}

// NewKeySet builds a set from keys, dropping duplicates and keeping the
// first-seen order.
func NewKeySet(keys ...string) KeySet {
	ks := KeySet{keys: make(map[string]struct{}, len(keys))}
	for _, k := range keys {
		if _, seen := ks.keys[k]; seen {
			continue
		}
		ks.keys[k] = struct{}{}
		ks.order = append(ks.order, k)
	}
	return ks
}

// Len returns the number of keys in the set.
func (ks KeySet) Len() int {
	return len(ks.order)
}

// Keys returns the keys in first-seen order.
func (ks KeySet) Keys() []string {
	return append([]string(nil), ks.order...)
}

// Allows reports whether key passes the restriction.
func (ks KeySet) Allows(key string) bool {
	if len(ks.keys) == 0 {
		return true
	}
	_, ok := ks.keys[key]
	return ok
}

// RendererSet owns the renderers built from a job's attribute list.
//
// The base renderer list never contains the synthesized timestamp
// renderers; WithCreatedAndUpdated and WithUpdated layer them on per call.
// A RendererSet is read-only after construction.
type RendererSet struct {
	resolver  objectpath.Resolver
	renderers []Renderer
	createdAt Renderer
	updatedAt Renderer
}

// NewRendererSet builds renderers for attributes.
func NewRendererSet(resolver objectpath.Resolver, attributes []Attribute) (*RendererSet, error) {
	set := &RendererSet{
		resolver:  resolver,
		createdAt: timestampRenderer(CreatedAt, resolver),
		updatedAt: timestampRenderer(UpdatedAt, resolver),
	}

	renderers, err := set.MakeRenderers(attributes)
	if err != nil {
		return nil, err
	}
	set.renderers = renderers

	return set, nil
}

// Resolver returns the key resolver shared by all renderers of the set.
func (s *RendererSet) Resolver() objectpath.Resolver {
	return s.resolver
}

// Renderers returns a copy of the base renderer list.
func (s *RendererSet) Renderers() []Renderer {
	return append([]Renderer(nil), s.renderers...)
}

// MakeRenderers builds renderers for another attribute list using the set's
// resolver. Used for unique attributes.
func (s *RendererSet) MakeRenderers(attributes []Attribute) ([]Renderer, error) {
	renderers := make([]Renderer, 0, len(attributes))
	for i, attr := range attributes {
		r, err := NewRenderer(attr, s.resolver)
		if err != nil {
			return nil, fmt.Errorf("attributes[%d]: %w", i, err)
		}
		renderers = append(renderers, r)
	}
	return renderers, nil
}

// WithCreatedAndUpdated prepends created_at and updated_at renderers.
func (s *RendererSet) WithCreatedAndUpdated(renderers []Renderer) []Renderer {
	out := make([]Renderer, 0, len(renderers)+2)
	out = append(out, s.createdAt, s.updatedAt)
	return append(out, renderers...)
}

// WithUpdated prepends the updated_at renderer.
func (s *RendererSet) WithUpdated(renderers []Renderer) []Renderer {
	out := make([]Renderer, 0, len(renderers)+1)
	out = append(out, s.updatedAt)
	return append(out, renderers...)
}

// Render evaluates renderers against row into a fresh map.
//
// Renderers run in order, so a later renderer with the same key overwrites
// an earlier one. Keys not allowed by keys are skipped; synthesized
// timestamps always pass the restriction. The row is never modified.
func (s *RendererSet) Render(renderers []Renderer, row any, now time.Time, keys KeySet) map[string]any {
	out := make(map[string]any, len(renderers))
	for _, r := range renderers {
		if !r.synthesized && !keys.Allows(r.key) {
			continue
		}
		s.resolver.Set(out, r.key, r.Transform(row, now))
	}
	return out
}
