package rng

import (
	"context"
	"math/rand/v2"
)

// SeededAdapter implements ports.RNGPort with PCG streams
type SeededAdapter struct{}

// NewSeededAdapter creates a seeded RNG adapter
func NewSeededAdapter() *SeededAdapter {
	return &SeededAdapter{}
}

// Stream derives an independent stream from the run name, the unit index and the base seed.
// The same triple always yields the same sequence.
func (a *SeededAdapter) Stream(ctx context.Context, runName string, index int, baseSeed int64) (*rand.Rand, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	hi := uint64(baseSeed) ^ uint64(hashString(runName))<<32
	lo := uint64(index)*0x9e3779b97f4a7c15 + 1
	return rand.New(rand.NewPCG(hi, lo)), nil
}

// hashString creates a simple hash for deterministic seeding (djb2)
func hashString(s string) uint32 {
	var hash uint32 = 5381
	for _, c := range s {
		hash = ((hash << 5) + hash) + uint32(c)
	}
	return hash
}
