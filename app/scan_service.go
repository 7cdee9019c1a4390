package app

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"llrscan/adapters/arrays"
	"llrscan/adapters/plot"
	"llrscan/adapters/samples"
	domain "llrscan/domain/separation"
	"llrscan/internal"
	"llrscan/internal/analysis/scan"
	"llrscan/internal/config"
	"llrscan/internal/errors"
	"llrscan/internal/profiling"
	"llrscan/ports"
)

// reference densities are always binned over the rescaled score range
const (
	referenceMin = 0.0
	referenceMax = 1.0
)

// ScanService runs a complete scan: load samples, build references, scan,
// persist the curves and optionally plot them
type ScanService struct {
	cfg     *config.Config
	rngPort ports.RNGPort
	store   *arrays.Store
	logger  *internal.Logger
}

// ScanRequest selects the optional outputs of a run
type ScanRequest struct {
	Plot bool
}

// ScanReport contains the complete output of one run
type ScanReport struct {
	Result     *domain.ScanResult `json:"result"`
	Study      arrays.Study       `json:"study"`
	Extension  string             `json:"extension"`
	ArrayPaths []string           `json:"array_paths"`
	PlotPaths  []string           `json:"plot_paths,omitempty"`
	Samples    SampleProfiles     `json:"samples"`
	RuntimeMs  int64              `json:"runtime_ms"`
}

// SampleProfiles describes the two rescaled score samples of a run
type SampleProfiles struct {
	SM  profiling.Profile `json:"sm"`
	EFT profiling.Profile `json:"eft"`
}

// NewScanService creates a scan service
func NewScanService(cfg *config.Config, rngPort ports.RNGPort, logger *internal.Logger) *ScanService {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &ScanService{
		cfg:     cfg,
		rngPort: rngPort,
		store:   arrays.NewStore(cfg.Output.ArrayDir, logger),
		logger:  logger.With("scan-service"),
	}
}

// LoadReferences reads both sample files and builds the reference densities
func (s *ScanService) LoadReferences() (scan.References, error) {
	refs, _, err := s.loadReferences()
	return refs, err
}

func (s *ScanService) loadReferences() (scan.References, SampleProfiles, error) {
	var profiles SampleProfiles
	sc := s.cfg.Samples
	if sc.SMPath == "" || sc.EFTPath == "" {
		return scan.References{}, profiles, errors.ConfigInvalid("both SM and EFT sample paths are required")
	}
	null, err := samples.Load(sc.SMPath, sc.Minimum, s.logger)
	if err != nil {
		return scan.References{}, profiles, errors.Wrap(err, "failed to load SM samples")
	}
	alt, err := samples.Load(sc.EFTPath, sc.Minimum, s.logger)
	if err != nil {
		return scan.References{}, profiles, errors.Wrap(err, "failed to load EFT samples")
	}

	if profiles.SM, err = s.profile("SM", null); err != nil {
		return scan.References{}, profiles, err
	}
	if profiles.EFT, err = s.profile("EFT", alt); err != nil {
		return scan.References{}, profiles, err
	}

	refs, err := scan.NewReferences(null, alt, referenceMin, referenceMax, s.cfg.Scan.Bins)
	return refs, profiles, err
}

// profile summarizes a rescaled sample; scores outside [0,1] fall out of the
// reference binning, so they are reported
func (s *ScanService) profile(name string, data []float64) (profiling.Profile, error) {
	p, err := profiling.Analyze(data, referenceMin, referenceMax)
	if err != nil {
		return p, errors.Wrapf(err, "failed to profile %s samples", name)
	}
	s.logger.Debug("%s samples: n=%d mean=%.4f sd=%.4f median=%.4f skew=%.3f", name, p.N, p.Mean, p.StdDev, p.Median, p.Skewness)
	if p.OutOfRange > 0 {
		s.logger.Warn("%d of %d %s scores fall outside [%g, %g] and are not binned",
			p.OutOfRange, p.N, name, referenceMin, referenceMax)
	}
	return p, nil
}

// RunLuminosityScan scans the configured luminosity grid
func (s *ScanService) RunLuminosityScan(ctx context.Context, req ScanRequest) (*ScanReport, error) {
	return s.run(arrays.StudyLuminosity, req, func(sc *scan.Scanner) (*domain.ScanResult, error) {
		return sc.Run(ctx, s.cfg.Scan.LuminosityGrid)
	})
}

// RunThresholdScan scans the configured probability cuts at one luminosity
func (s *ScanService) RunThresholdScan(ctx context.Context, luminosity float64, req ScanRequest) (*ScanReport, error) {
	if luminosity <= 0 {
		return nil, errors.InvalidInput(fmt.Sprintf("luminosity must be positive, got %g", luminosity))
	}
	if len(s.cfg.Scan.Thresholds) == 0 {
		return nil, errors.ConfigInvalid("threshold scan needs at least one probability cut")
	}
	return s.run(arrays.StudyThreshold, req, func(sc *scan.Scanner) (*domain.ScanResult, error) {
		return sc.ScanThresholds(ctx, luminosity, s.cfg.Scan.Thresholds)
	})
}

func (s *ScanService) run(study arrays.Study, req ScanRequest,
	exec func(*scan.Scanner) (*domain.ScanResult, error)) (*ScanReport, error) {
	startTime := time.Now()

	refs, profiles, err := s.loadReferences()
	if err != nil {
		return nil, err
	}
	scanner, err := scan.NewScanner(s.cfg.Scan, refs, s.rngPort, s.logger)
	if err != nil {
		return nil, err
	}
	result, err := exec(scanner)
	if err != nil {
		return nil, errors.Wrapf(err, "%s scan failed", study)
	}

	ext := s.cfg.Extension()
	curves := arrays.FromResult(study, result)
	paths, err := s.store.Save(study, ext, curves)
	if err != nil {
		return nil, err
	}

	report := &ScanReport{
		Result:     result,
		Study:      study,
		Extension:  ext,
		ArrayPaths: paths,
		Samples:    profiles,
	}
	if req.Plot {
		plotDir := filepath.Join(s.cfg.Output.PlotDir, ext)
		curvePath := filepath.Join(plotDir, string(study)+".pdf")
		if err := plot.Curves(study, curves, fmt.Sprintf("run %s", result.RunID), curvePath); err != nil {
			return nil, err
		}
		densityPath := filepath.Join(plotDir, "pdfs.pdf")
		if err := plot.Densities(refs.Null, refs.Alt, "reference densities", densityPath); err != nil {
			return nil, err
		}
		report.PlotPaths = []string{curvePath, densityPath}
	}

	report.RuntimeMs = time.Since(startTime).Milliseconds()
	s.logger.Info("run %s finished in %dms (%d points, ext %s)", result.RunID, report.RuntimeMs, len(result.Points), ext)
	return report, nil
}

// Replot renders previously saved curves without rerunning the scan
func (s *ScanService) Replot(study arrays.Study, ext, path string) error {
	curves, err := s.store.Load(study, ext)
	if err != nil {
		return err
	}
	if path == "" {
		path = filepath.Join(s.cfg.Output.PlotDir, ext, string(study)+".pdf")
	}
	return plot.Curves(study, curves, ext, path)
}
