package testkit

import (
	"math/rand/v2"
)

// ScoreGeneratorConfig configures a synthetic classifier-score sample
type ScoreGeneratorConfig struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Seed   uint64  `json:"seed"`
}

// DefaultScoreConfigs returns the two well separated populations used by the
// end-to-end scan tests: background around 0.3, signal around 0.7.
func DefaultScoreConfigs() (null, alt ScoreGeneratorConfig) {
	null = ScoreGeneratorConfig{Count: 10000, Mean: 0.3, StdDev: 0.05, Seed: 1}
	alt = ScoreGeneratorConfig{Count: 10000, Mean: 0.7, StdDev: 0.05, Seed: 2}
	return null, alt
}

// ScoreGenerator draws normally distributed scores
type ScoreGenerator struct {
	config ScoreGeneratorConfig
	rng    *rand.Rand
}

// NewScoreGenerator creates a generator with its own seeded stream
func NewScoreGenerator(config ScoreGeneratorConfig) *ScoreGenerator {
	return &ScoreGenerator{
		config: config,
		rng:    rand.New(rand.NewPCG(config.Seed, config.Seed^0x5bd1e995)),
	}
}

// Generate returns Count scores; values are not clipped to [0,1]
func (g *ScoreGenerator) Generate() []float64 {
	out := make([]float64, g.config.Count)
	for i := range out {
		out[i] = g.config.Mean + g.config.StdDev*g.rng.NormFloat64()
	}
	return out
}

// GaussianScores is a shorthand for a one-off sample
func GaussianScores(n int, mean, stdDev float64, seed uint64) []float64 {
	return NewScoreGenerator(ScoreGeneratorConfig{Count: n, Mean: mean, StdDev: stdDev, Seed: seed}).Generate()
}
