// Package scan evaluates the separation significance over a grid of
// luminosities or probability cuts.
package scan

import (
	"context"
	"runtime"
	"time"

	"llrscan/domain/core"
	domain "llrscan/domain/separation"
	"llrscan/internal"
	"llrscan/internal/analysis/separation"
	"llrscan/internal/analysis/significance"
	"llrscan/internal/config"
	"llrscan/internal/errors"
	"llrscan/ports"

	"golang.org/x/sync/errgroup"
)

// Stream names used to derive per-point random streams
const (
	StreamLuminosity = "luminosity"
	StreamThreshold  = "threshold"
)

// Scanner runs the per-point pipeline over a grid. Points are independent and
// are evaluated concurrently; results come back in grid order.
type Scanner struct {
	cfg       config.ScanConfig
	refs      References
	rng       ports.RNGPort
	estimator *separation.Estimator
	converter *significance.Converter
	logger    *internal.Logger
}

// NewScanner binds the reference densities and scan settings
func NewScanner(cfg config.ScanConfig, refs References, rng ports.RNGPort, logger *internal.Logger) (*Scanner, error) {
	if err := refs.Validate(); err != nil {
		return nil, err
	}
	if cfg.ToyCount < 0 {
		return nil, errors.ConfigInvalid("toy count cannot be negative")
	}
	if cfg.LLRBins < 2 {
		return nil, errors.ConfigInvalid("LLR histogram needs at least 2 edges")
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Scanner{
		cfg:       cfg,
		refs:      refs,
		rng:       rng,
		estimator: separation.NewEstimator(logger),
		converter: significance.NewConverter(),
		logger:    logger.With("scan"),
	}, nil
}

// Run scans the luminosity grid at the configured probability cut
func (s *Scanner) Run(ctx context.Context, grid []float64) (*domain.ScanResult, error) {
	points := make([]pointSpec, len(grid))
	for i, l := range grid {
		points[i] = pointSpec{luminosity: l, threshold: s.cfg.ProbabilityCut}
	}
	return s.evaluate(ctx, StreamLuminosity, points)
}

// ScanThresholds scans probability cuts at one fixed luminosity
func (s *Scanner) ScanThresholds(ctx context.Context, luminosity float64, thresholds []float64) (*domain.ScanResult, error) {
	points := make([]pointSpec, len(thresholds))
	for i, t := range thresholds {
		points[i] = pointSpec{luminosity: luminosity, threshold: t}
	}
	return s.evaluate(ctx, StreamThreshold, points)
}

type pointSpec struct {
	luminosity float64
	threshold  float64
}

func (s *Scanner) evaluate(ctx context.Context, stream string, specs []pointSpec) (*domain.ScanResult, error) {
	if len(specs) == 0 {
		return nil, errors.InvalidInput("scan grid is empty")
	}
	start := time.Now()
	workers := s.cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	s.logger.Info("scanning %d %s points with %d toys on %d workers", len(specs), stream, s.cfg.ToyCount, workers)

	points := make([]domain.LuminosityPoint, len(specs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, spec := range specs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := s.rng.Stream(gctx, stream, i, s.cfg.Seed)
			if err != nil {
				return err
			}
			p, err := s.Point(gctx, r, spec.luminosity, spec.threshold)
			if err != nil {
				return errors.Wrapf(err, "%s point %d (L=%g, Pcut=%g)", stream, i, spec.luminosity, spec.threshold)
			}
			points[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.logger.Info("scan finished in %s", time.Since(start).Round(time.Millisecond))
	return &domain.ScanResult{RunID: core.NewRunID(), Points: points}, nil
}
