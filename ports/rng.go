package ports

import (
	"context"
	"math/rand/v2"
)

// RNGPort provides seeded random number generation for deterministic operations
type RNGPort interface {
	// Stream creates an independent deterministic stream for one unit of work
	// (e.g. a single scan point) so results do not depend on execution order
	Stream(ctx context.Context, runName string, index int, baseSeed int64) (*rand.Rand, error)
}
