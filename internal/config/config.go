package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"

	"llrscan/internal/errors"

	"github.com/go-playground/validator/v10"
	"gonum.org/v1/gonum/floats"
	"gopkg.in/yaml.v3"
)

// Shape sources for the toy generation step
const (
	ShapeSourceUncut = "uncut"
	ShapeSourceCut   = "cut"
)

// Config represents the complete run configuration
type Config struct {
	Samples SamplesConfig `yaml:"samples"`
	Scan    ScanConfig    `yaml:"scan"`
	Output  OutputConfig  `yaml:"output"`

	// cutSet records that the probability cut was given explicitly
	cutSet bool
}

// SamplesConfig locates the two score samples and how to rescale them
type SamplesConfig struct {
	SMPath  string `yaml:"sm_path"`
	EFTPath string `yaml:"eft_path"`
	// Minimum is subtracted before rescaling to [0,1]; 0 leaves samples untouched
	Minimum float64 `yaml:"minimum" validate:"gte=0,lt=1"`
}

// ScanConfig holds the physics and numerical settings of a scan
type ScanConfig struct {
	ProbabilityCut     float64   `yaml:"probability_cut" validate:"gte=0,lte=1"`
	ToyCount           int       `yaml:"toy_count" validate:"gte=0"`
	SMCrossSection     float64   `yaml:"sm_cross_section" validate:"gte=0"`
	EFTCrossSection    float64   `yaml:"eft_cross_section" validate:"gte=0"`
	LuminosityGrid     []float64 `yaml:"luminosity_grid" validate:"required,min=1,dive,gte=0"`
	Thresholds         []float64 `yaml:"thresholds" validate:"dive,gte=0,lte=1"`
	DetectorEfficiency float64   `yaml:"detector_efficiency" validate:"gt=0,lte=1"`
	Bins               int       `yaml:"bins" validate:"gte=3"`
	LLRBins            int       `yaml:"llr_bins" validate:"gte=2"`
	Seed               int64     `yaml:"seed"`
	Workers            int       `yaml:"workers" validate:"gte=0"`
	ShapeSource        string    `yaml:"shape_source" validate:"oneof=uncut cut"`
}

// OutputConfig holds output naming and locations
type OutputConfig struct {
	ArrayDir     string `yaml:"array_dir" validate:"required"`
	PlotDir      string `yaml:"plot_dir"`
	ExtensionTag string `yaml:"extension_tag" validate:"required"`
}

// Default returns the standard analysis settings (30 luminosity points up to 8 fb^-1)
func Default() *Config {
	return &Config{
		Scan: ScanConfig{
			ProbabilityCut:     0,
			ToyCount:           1000,
			SMCrossSection:     0.014009 * 1000,
			EFTCrossSection:    0.017125 * 1000,
			LuminosityGrid:     floats.Span(make([]float64, 30), 0.1, 8.0),
			Thresholds:         floats.Span(make([]float64, 4), 0, 0.8),
			DetectorEfficiency: 1,
			Bins:               50,
			LLRBins:            100,
			Seed:               42,
			Workers:            runtime.NumCPU(),
			ShapeSource:        ShapeSourceUncut,
		},
		Output: OutputConfig{
			ArrayDir:     "arrays",
			PlotDir:      "plots",
			ExtensionTag: "999",
		},
	}
}

// Load reads configuration from environment variables on top of the defaults and validates it
func Load() (*Config, error) {
	cfg := Default()
	if err := applyEnv(cfg); err != nil {
		return nil, errors.Wrap(err, "failed to load configuration from environment")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return cfg, nil
}

// LoadFile overlays a YAML file onto cfg. Keys absent from the file keep their current values.
func LoadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.IOError(path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return errors.Wrapf(errors.ConfigInvalid(err.Error()), "failed to parse %s", path)
	}

	var keys struct {
		Scan struct {
			ProbabilityCut *float64 `yaml:"probability_cut"`
		} `yaml:"scan"`
	}
	if err := yaml.Unmarshal(data, &keys); err == nil && keys.Scan.ProbabilityCut != nil {
		cfg.cutSet = true
	}
	return nil
}

var validate = validator.New()

// Validate checks field constraints
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.ConfigInvalid(err.Error())
	}
	return nil
}

// SetProbabilityCut sets the cut and marks it as explicitly given
func (c *Config) SetProbabilityCut(v float64) {
	c.Scan.ProbabilityCut = v
	c.cutSet = true
}

// Extension builds the output name suffix, e.g. with_poisson_0Pcut_1ktoys999.
// A cut that was never given renders as the integer default "0"; a given cut
// renders as a float ("0.0", "0.25").
func (c *Config) Extension() string {
	cut := formatPythonFloat(c.Scan.ProbabilityCut)
	if !c.cutSet && c.Scan.ProbabilityCut == 0 {
		cut = "0"
	}
	return fmt.Sprintf("with_poisson_%sPcut_%dktoys%s", cut, c.Scan.ToyCount/1000, c.Output.ExtensionTag)
}

func applyEnv(cfg *Config) error {
	cfg.Samples.SMPath = getEnvOrDefault("SM_SAMPLES", cfg.Samples.SMPath)
	cfg.Samples.EFTPath = getEnvOrDefault("EFT_SAMPLES", cfg.Samples.EFTPath)
	cfg.Samples.Minimum = getEnvFloatOrDefault("SAMPLE_MINIMUM", cfg.Samples.Minimum)

	s := &cfg.Scan
	if v := os.Getenv("PCUT"); v != "" {
		cut, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return errors.ConfigInvalid(fmt.Sprintf("invalid PCUT %q", v))
		}
		cfg.SetProbabilityCut(cut)
	}
	s.ToyCount = getEnvIntOrDefault("NTOYS", s.ToyCount)
	s.SMCrossSection = getEnvFloatOrDefault("SM_CROSS_SECTION", s.SMCrossSection)
	s.EFTCrossSection = getEnvFloatOrDefault("EFT_CROSS_SECTION", s.EFTCrossSection)
	s.DetectorEfficiency = getEnvFloatOrDefault("DETECTOR_EFFICIENCY", s.DetectorEfficiency)
	s.Bins = getEnvIntOrDefault("NBINS", s.Bins)
	s.LLRBins = getEnvIntOrDefault("LLR_BINS", s.LLRBins)
	s.Seed = int64(getEnvIntOrDefault("SEED", int(s.Seed)))
	s.Workers = getEnvIntOrDefault("WORKERS", s.Workers)
	s.ShapeSource = getEnvOrDefault("SHAPE_SOURCE", s.ShapeSource)

	if v := os.Getenv("LUMINOSITY_GRID"); v != "" {
		grid, err := ParseGrid(v)
		if err != nil {
			return err
		}
		s.LuminosityGrid = grid
	}
	if v := os.Getenv("PCUT_GRID"); v != "" {
		grid, err := ParseGrid(v)
		if err != nil {
			return err
		}
		s.Thresholds = grid
	}

	cfg.Output.ArrayDir = getEnvOrDefault("ARRAY_DIR", cfg.Output.ArrayDir)
	cfg.Output.PlotDir = getEnvOrDefault("PLOT_DIR", cfg.Output.PlotDir)
	cfg.Output.ExtensionTag = getEnvOrDefault("EXT_NUM", cfg.Output.ExtensionTag)
	return nil
}

// ParseGrid accepts either a comma separated list ("0.1,0.5,1") or
// "linspace:start:stop:n" and returns the ordered grid.
func ParseGrid(spec string) ([]float64, error) {
	spec = strings.TrimSpace(spec)
	if rest, ok := strings.CutPrefix(spec, "linspace:"); ok {
		parts := strings.Split(rest, ":")
		if len(parts) != 3 {
			return nil, errors.ConfigInvalid(fmt.Sprintf("linspace grid needs start:stop:n, got %q", spec))
		}
		start, err1 := strconv.ParseFloat(parts[0], 64)
		stop, err2 := strconv.ParseFloat(parts[1], 64)
		n, err3 := strconv.Atoi(parts[2])
		if err1 != nil || err2 != nil || err3 != nil || n < 1 {
			return nil, errors.ConfigInvalid(fmt.Sprintf("invalid linspace grid %q", spec))
		}
		if n == 1 {
			return []float64{start}, nil
		}
		return floats.Span(make([]float64, n), start, stop), nil
	}

	var grid []float64
	for _, field := range strings.Split(spec, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, errors.ConfigInvalid(fmt.Sprintf("invalid grid value %q", field))
		}
		grid = append(grid, v)
	}
	if len(grid) == 0 {
		return nil, errors.ConfigInvalid("empty grid")
	}
	return grid, nil
}

// formatPythonFloat renders v the way Python's str() does for ordinary values
func formatPythonFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
