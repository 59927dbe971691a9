// Package placeholder supplies stand-in street imagery when no real provider can.
package placeholder

import (
	"context"
	"encoding/binary"
	"hash/fnv"
	"math"

	"github.com/samirrijal/greenroute/internal/core/domain"
)

// DefaultPool is the fixed set of stand-in images.
var DefaultPool = []string{
	"https://placehold.co/600x400/jpg?text=Sidewalk",
	"https://placehold.co/600x400/jpg?text=Crosswalk",
	"https://placehold.co/600x400/jpg?text=Curb+ramp",
	"https://placehold.co/600x400/jpg?text=Plaza",
	"https://placehold.co/600x400/jpg?text=Stairway",
}

// Provider implements ports.ImageryProvider. It is always configured and
// always has coverage, so it terminates the imagery chain.
type Provider struct {
	pool []string
}

// New creates a new Provider. An empty pool falls back to DefaultPool.
func New(pool []string) *Provider {
	if len(pool) == 0 {
		pool = DefaultPool
	}
	return &Provider{pool: pool}
}

func (p *Provider) Name() domain.ImagerySource { return domain.SourcePlaceholder }

func (p *Provider) Configured() bool { return true }

// FindImage picks an image deterministically from the coordinate, so the same
// point always maps to the same placeholder.
func (p *Provider) FindImage(_ context.Context, at domain.Coordinate) (*domain.StreetImage, error) {
	return &domain.StreetImage{URL: p.Pick(at), Source: domain.SourcePlaceholder}, nil
}

// Pick returns the pool entry for at.
func (p *Provider) Pick(at domain.Coordinate) string {
	h := fnv.New64a()
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[:8], math.Float64bits(at.Lat))
	binary.LittleEndian.PutUint64(buf[8:], math.Float64bits(at.Lng))
	_, _ = h.Write(buf[:])
	return p.pool[h.Sum64()%uint64(len(p.pool))]
}

// Contains reports whether url is one of the pool images.
func (p *Provider) Contains(url string) bool {
	for _, u := range p.pool {
		if u == url {
			return true
		}
	}
	return false
}
