package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"

	"llrscan/adapters/arrays"
	"llrscan/adapters/rng"
	"llrscan/app"
	"llrscan/internal"
	"llrscan/internal/analysis/significance"
	"llrscan/internal/config"
	"llrscan/internal/errors"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// overrides holds the command-line values that win over env and YAML
type overrides struct {
	configPath  string
	smPath      string
	eftPath     string
	minimum     float64
	pcut        float64
	ntoys       int
	extNum      string
	seed        int64
	workers     int
	lumiGrid    string
	pcutGrid    string
	shapeSource string
	arrayDir    string
	plotDir     string
	logLevel    string
}

func main() {
	_ = godotenv.Load()

	var o overrides
	rootCmd := &cobra.Command{
		Use:   "llrscan",
		Short: "LLR separation scans between the SM and SM+EFT hypotheses",
		Long: `Estimate how well two hypotheses can be separated with a log-likelihood-ratio
test on classifier scores, as a function of integrated luminosity.

Settings are read from the environment (and .env), then from --config YAML,
then from flags.`,
		SilenceUsage: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&o.configPath, "config", "", "YAML configuration file")
	pf.StringVar(&o.smPath, "sm", "", "SM score sample (txt, csv or xlsx)")
	pf.StringVar(&o.eftPath, "eft", "", "SM+EFT score sample (txt, csv or xlsx)")
	pf.Float64Var(&o.minimum, "sample-minimum", 0, "Score minimum used to rescale samples onto [0,1]")
	pf.Float64Var(&o.pcut, "pcut", 0, "Probability cut applied to the reference densities")
	pf.IntVar(&o.ntoys, "ntoys", 1000, "Toy experiments per point")
	pf.StringVar(&o.extNum, "ext-num", "999", "Extension tag appended to output names")
	pf.Int64Var(&o.seed, "seed", 42, "Random seed for deterministic operations")
	pf.IntVar(&o.workers, "workers", 0, "Concurrent scan points (0 = number of CPUs)")
	pf.StringVar(&o.lumiGrid, "lumi-grid", "", `Luminosity grid, "a,b,c" or "linspace:start:stop:n"`)
	pf.StringVar(&o.pcutGrid, "pcut-grid", "", `Probability cut grid for the threshold scan`)
	pf.StringVar(&o.shapeSource, "shape-source", "", "Density toys are drawn from: uncut|cut")
	pf.StringVar(&o.arrayDir, "array-dir", "", "Directory for output arrays")
	pf.StringVar(&o.plotDir, "plot-dir", "", "Directory for plots")
	pf.StringVar(&o.logLevel, "log-level", "", "ERROR|WARN|INFO|DEBUG|TRACE (default from LOG_LEVEL)")

	rootCmd.AddCommand(
		newScanCmd(&o),
		newThresholdsCmd(&o),
		newPlotCmd(&o),
		newSigmaCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newScanCmd(o *overrides) *cobra.Command {
	var plot bool

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan significance over the luminosity grid",
		Long: `Run the toy-based LLR scan over the luminosity grid and write the
luminosity and three n-sigma arrays.

Example: llrscan scan --sm dnn_outputs/sm.txt --eft dnn_outputs/eft.txt --sample-minimum 0.4688633680343628 --ntoys 10000 --plot`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd, o)
			if err != nil {
				return err
			}
			svc := app.NewScanService(cfg, rng.NewSeededAdapter(), logger)
			report, err := svc.RunLuminosityScan(cmd.Context(), app.ScanRequest{Plot: plot})
			if err != nil {
				return err
			}
			printReport(report)
			return nil
		},
	}
	cmd.Flags().BoolVar(&plot, "plot", false, "Also plot the curves and reference densities")
	return cmd
}

func newThresholdsCmd(o *overrides) *cobra.Command {
	var plot bool
	var luminosity float64

	cmd := &cobra.Command{
		Use:   "thresholds",
		Short: "Scan significance over probability cuts at a fixed luminosity",
		Long: `Evaluate the same pipeline at one luminosity for every probability cut in
the threshold grid.

Example: llrscan thresholds --luminosity 3 --pcut-grid linspace:0:0.8:9`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd, o)
			if err != nil {
				return err
			}
			svc := app.NewScanService(cfg, rng.NewSeededAdapter(), logger)
			report, err := svc.RunThresholdScan(cmd.Context(), luminosity, app.ScanRequest{Plot: plot})
			if err != nil {
				return err
			}
			printReport(report)
			return nil
		},
	}
	cmd.Flags().BoolVar(&plot, "plot", false, "Also plot the curves and reference densities")
	cmd.Flags().Float64Var(&luminosity, "luminosity", 3.0, "Integrated luminosity of every point")
	return cmd
}

func newPlotCmd(o *overrides) *cobra.Command {
	var study, ext, out string

	cmd := &cobra.Command{
		Use:   "plot",
		Short: "Plot previously saved arrays",
		Long: `Render the n-sigma curves stored in the array directory.

Example: llrscan plot --study luminosity --ext with_poisson_0Pcut_10ktoys999 --out z.png`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd, o)
			if err != nil {
				return err
			}
			var s arrays.Study
			switch study {
			case "luminosity":
				s = arrays.StudyLuminosity
			case "threshold":
				s = arrays.StudyThreshold
			default:
				return errors.InvalidInput(fmt.Sprintf("unknown study %q (luminosity|threshold)", study))
			}
			if ext == "" {
				ext = cfg.Extension()
			}
			return app.NewScanService(cfg, rng.NewSeededAdapter(), logger).Replot(s, ext, out)
		},
	}
	cmd.Flags().StringVar(&study, "study", "luminosity", "Which arrays to plot: luminosity|threshold")
	cmd.Flags().StringVar(&ext, "ext", "", "Array name extension (default derived from the configuration)")
	cmd.Flags().StringVar(&out, "out", "", "Output file; the extension selects the format")
	return cmd
}

func newSigmaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sigma [alpha...]",
		Short: "Convert one-sided error rates to n-sigma",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, arg := range args {
				alpha, err := strconv.ParseFloat(arg, 64)
				if err != nil {
					return errors.InvalidInput(fmt.Sprintf("invalid alpha %q", arg))
				}
				fmt.Printf("alpha=%g nsigma=%.6f\n", alpha, significance.ToSigma(alpha))
			}
			return nil
		},
	}
}

// loadConfig layers env, the optional YAML file and explicitly set flags
func loadConfig(cmd *cobra.Command, o *overrides) (*config.Config, *internal.Logger, error) {
	logger := internal.NewDefaultLogger()
	if o.logLevel != "" {
		logger = internal.NewLogger(internal.ParseLogLevel(o.logLevel))
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if o.configPath != "" {
		if err := config.LoadFile(cfg, o.configPath); err != nil {
			return nil, nil, err
		}
	}

	flags := cmd.Flags()
	set := func(name string, apply func()) {
		if flags.Changed(name) {
			apply()
		}
	}
	set("sm", func() { cfg.Samples.SMPath = o.smPath })
	set("eft", func() { cfg.Samples.EFTPath = o.eftPath })
	set("sample-minimum", func() { cfg.Samples.Minimum = o.minimum })
	set("pcut", func() { cfg.SetProbabilityCut(o.pcut) })
	set("ntoys", func() { cfg.Scan.ToyCount = o.ntoys })
	set("ext-num", func() { cfg.Output.ExtensionTag = o.extNum })
	set("seed", func() { cfg.Scan.Seed = o.seed })
	set("workers", func() { cfg.Scan.Workers = o.workers })
	set("shape-source", func() { cfg.Scan.ShapeSource = o.shapeSource })
	set("array-dir", func() { cfg.Output.ArrayDir = o.arrayDir })
	set("plot-dir", func() { cfg.Output.PlotDir = o.plotDir })

	if flags.Changed("lumi-grid") {
		grid, err := config.ParseGrid(o.lumiGrid)
		if err != nil {
			return nil, nil, err
		}
		cfg.Scan.LuminosityGrid = grid
	}
	if flags.Changed("pcut-grid") {
		grid, err := config.ParseGrid(o.pcutGrid)
		if err != nil {
			return nil, nil, err
		}
		cfg.Scan.Thresholds = grid
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, errors.Wrap(err, "configuration validation failed")
	}
	return cfg, logger, nil
}

func printReport(r *app.ScanReport) {
	fmt.Printf("\n📊 SCAN RESULTS (%s)\n", r.Study)
	fmt.Printf("Run: %s\n", r.Result.RunID)
	fmt.Printf("Runtime: %dms\n\n", r.RuntimeMs)

	xLabel := "L"
	if r.Study == arrays.StudyThreshold {
		xLabel = "Pcut"
	}
	fmt.Printf("%8s %8s %8s %10s %10s %10s\n", xLabel, "mu_sm", "mu_eft", "nsigma", "no_beta", "exact")
	for _, p := range r.Result.Points {
		x := p.Luminosity
		if r.Study == arrays.StudyThreshold {
			x = p.Threshold
		}
		fmt.Printf("%8.4g %8.0f %8.0f %10.4f %10.4f %10.4f\n",
			x, p.Expected.Null, p.Expected.Alt, p.NSigma, p.NSigmaNoBeta, p.NSigmaExact)
	}

	fmt.Printf("\nArrays:\n")
	for _, p := range r.ArrayPaths {
		fmt.Printf("  %s\n", p)
	}
	if len(r.PlotPaths) > 0 {
		fmt.Printf("Plots:\n")
		for _, p := range r.PlotPaths {
			fmt.Printf("  %s\n", p)
		}
	}
}
