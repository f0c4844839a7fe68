package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"goconform/adapters/excel"
	"goconform/adapters/simulation"
	"goconform/adapters/synth"
	"goconform/app"
	"goconform/domain/run"
	"goconform/internal/logx"
	"goconform/internal/testkit"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "goconform",
		Short: "Split conformal prediction for multi-class classifiers",
	}

	rootCmd.AddCommand(
		newDemoCmd(),
		newSweepCmd(),
		newValidateCmd(),
		newReportCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// demoFlags are the dataset and calibration knobs shared by most
// subcommands
type demoFlags struct {
	alpha      float64
	seed       int64
	classifier string
	neighbors  int
	samples    int
	classes    int
	spread     float64
}

func (f *demoFlags) register(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&f.alpha, "alpha", 0.1, "Target miscoverage level in (0,1)")
	cmd.Flags().Int64Var(&f.seed, "seed", 42, "Random seed for data generation and splitting")
	cmd.Flags().StringVar(&f.classifier, "classifier", "knn", "Base classifier: knn|centroid")
	cmd.Flags().IntVar(&f.neighbors, "neighbors", 10, "Neighbor count for the knn classifier")
	cmd.Flags().IntVar(&f.samples, "samples", 1200, "Synthetic dataset size")
	cmd.Flags().IntVar(&f.classes, "classes", 3, "Number of classes")
	cmd.Flags().Float64Var(&f.spread, "spread", 1.0, "Gaussian noise scale around class centers")
}

func (f *demoFlags) request() app.CalibrationRequest {
	req := app.DefaultCalibrationRequest()
	req.Alpha = f.alpha
	req.Seed = f.seed
	req.Classifier = f.classifier
	req.Neighbors = f.neighbors
	req.Dataset.Samples = f.samples
	req.Dataset.Classes = f.classes
	req.Dataset.Spread = f.spread
	return req
}

func newDemoCmd() *cobra.Command {
	var flags demoFlags
	var examples int

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Calibrate on synthetic data and print example prediction sets",
		Long: `Generate Gaussian blob data, split it three ways, calibrate a
conformal predictor and report the threshold, target vs achieved
coverage and a handful of example prediction sets.

Example: goconform demo --alpha 0.05 --classifier centroid --seed 7`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(cmd.Context(), flags, examples)
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVar(&examples, "examples", 5, "Number of example prediction sets to print")
	return cmd
}

func runDemo(ctx context.Context, flags demoFlags, examples int) error {
	kit := testkit.NewTestKit()
	service := app.NewCalibrationService(kit.RunRepository(), kit.RNGAdapter(), logx.NewDefault())

	fmt.Printf("🎯 Calibrating %s classifier at alpha=%.3f (seed %d)...\n", flags.classifier, flags.alpha, flags.seed)

	record, err := service.Calibrate(ctx, flags.request())
	if err != nil {
		return err
	}

	fmt.Printf("\n📊 CALIBRATION\n")
	fmt.Printf("Run ID:            %s\n", record.ID)
	fmt.Printf("Calibration size:  %d\n", record.CalibrationSize)
	fmt.Printf("Quantile level:    %.6f\n", record.QuantileLevel)
	fmt.Printf("Threshold:         %.6f\n", record.Threshold)

	eval := record.Evaluation
	fmt.Printf("\n📈 HELD-OUT EVALUATION (%d samples)\n", eval.TestSize)
	fmt.Printf("Target coverage:    %.4f\n", eval.TargetCoverage)
	fmt.Printf("Empirical coverage: %.4f (%+.4f)\n", eval.EmpiricalCoverage, eval.CoverageGap())
	fmt.Printf("Accuracy:           %.4f\n", eval.Accuracy)
	fmt.Printf("Avg set size:       %.3f\n", eval.AvgSetSize)
	fmt.Printf("Singleton rate:     %.4f\n", eval.SingletonRate)
	if eval.CoverageWithin(0) {
		fmt.Printf("✅ Coverage guarantee met on the test split\n")
	} else {
		fmt.Printf("⚠️  Coverage below target on this split (guarantee is marginal over draws)\n")
	}

	if examples > 0 {
		// Query points drawn from the same distribution with a shifted seed
		rng, err := kit.RNGAdapter().SeededStream(ctx, "demo-queries", flags.seed+1)
		if err != nil {
			return err
		}
		cfg := flags.request().Dataset
		cfg.Samples = examples
		ds, err := synth.NewBlobsGenerator().Generate(cfg, rng)
		if err != nil {
			return err
		}
		sets, threshold, err := service.PredictSets(ctx, record.ID, ds.X)
		if err != nil {
			return err
		}

		fmt.Printf("\n🔮 EXAMPLE PREDICTION SETS (probability cutoff %.4f)\n", 1-threshold)
		for i, set := range sets {
			fmt.Printf("%d. true=%d set=%v", i+1, ds.Y[i], []int(set))
			if set.Contains(ds.Y[i]) {
				fmt.Printf(" ✅\n")
			} else {
				fmt.Printf(" ❌\n")
			}
		}
	}
	return nil
}

func newSweepCmd() *cobra.Command {
	var flags demoFlags
	var alphas []float64
	var parallelism int

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Evaluate a grid of alpha values against one dataset",
		Long: `Run one calibration per alpha over a shared dataset and split, and
print how threshold, coverage and set size respond to the target
miscoverage level.

Example: goconform sweep --alphas 0.01,0.05,0.1,0.2 --parallelism 4`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSweep(cmd.Context(), flags, alphas, parallelism)
		},
	}

	flags.register(cmd)
	cmd.Flags().Float64SliceVar(&alphas, "alphas", []float64{0.01, 0.05, 0.1, 0.2}, "Alpha grid to evaluate")
	cmd.Flags().IntVar(&parallelism, "parallelism", 4, "Concurrent calibrations")
	return cmd
}

func runSweep(ctx context.Context, flags demoFlags, alphas []float64, parallelism int) error {
	kit := testkit.NewTestKit()
	service := app.NewSweepService(kit.RNGAdapter(), parallelism, logx.NewDefault())

	base := flags.request()
	req := app.SweepRequest{
		Alphas:     alphas,
		Classifier: base.Classifier,
		Neighbors:  base.Neighbors,
		Seed:       base.Seed,
		Dataset:    base.Dataset,
		Split:      base.Split,
	}

	fmt.Printf("🧮 Sweeping %d alphas with %s classifier (seed %d)...\n", len(alphas), base.Classifier, base.Seed)
	outcome, err := service.Run(ctx, req)
	if err != nil {
		return err
	}

	fmt.Printf("\nSweep %s finished in %dms\n\n", outcome.SweepID, outcome.RuntimeMs)
	fmt.Printf("%-8s %-10s %-10s %-10s %-10s %-9s %-9s\n",
		"alpha", "quantile", "threshold", "target", "coverage", "avg-set", "empty")
	for _, point := range outcome.Points {
		fmt.Printf("%-8.3f %-10.6f %-10.6f %-10.4f %-10.4f %-9.3f %-9.4f\n",
			point.Alpha, point.QuantileLevel, point.Threshold,
			point.TargetCoverage, point.EmpiricalCoverage,
			point.AvgSetSize, point.EmptySetRate)
	}
	return nil
}

func newValidateCmd() *cobra.Command {
	var flags demoFlags
	var trials int

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the marginal coverage guarantee with Monte Carlo trials",
		Long: `Repeat the full generate/split/calibrate/evaluate cycle on fresh
data and compare per-trial empirical coverage against the analytic
Beta coverage band for the configured calibration size.

Example: goconform validate --trials 100 --alpha 0.1`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd.Context(), flags, trials)
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVar(&trials, "trials", 50, "Number of independent trials (10-1000)")
	return cmd
}

func runValidate(ctx context.Context, flags demoFlags, trials int) error {
	kit := testkit.NewTestKit()
	runner := simulation.NewCoverageTrials(kit.RNGAdapter())
	runner.SetNumTrials(trials)

	cfg := simulation.DefaultTrialConfig()
	cfg.Alpha = flags.alpha
	cfg.BaseSeed = flags.seed
	cfg.Classifier = flags.classifier
	cfg.Neighbors = flags.neighbors
	cfg.Blobs.Samples = flags.samples
	cfg.Blobs.Classes = flags.classes
	cfg.Blobs.Spread = flags.spread

	fmt.Printf("🔁 Running %d coverage trials at alpha=%.3f...\n", runner.NumTrials(), cfg.Alpha)
	started := time.Now()
	result, err := runner.Run(ctx, cfg)
	if err != nil {
		return err
	}

	fmt.Printf("\n📊 COVERAGE OVER %d TRIALS (%.1fs)\n", result.Trials, time.Since(started).Seconds())
	fmt.Printf("Target coverage:    %.4f\n", result.TargetCoverage)
	fmt.Printf("Expected coverage:  %.4f (rank/(n+1) for n=%d)\n", result.ExpectedCoverage, result.CalibrationSize)
	fmt.Printf("Mean coverage:      %.4f ± %.4f\n", result.Distribution.Mean, result.Distribution.StdDev)
	fmt.Printf("Range:              [%.4f, %.4f]\n", result.Distribution.Min, result.Distribution.Max)
	fmt.Printf("5th-95th pct:       [%.4f, %.4f]\n", result.Distribution.Percentile05, result.Distribution.Percentile95)
	fmt.Printf("Avg set size:       %.3f\n", result.AvgSetSize)
	fmt.Printf("99%% Beta band:      [%.4f, %.4f]\n", result.Band.Lower, result.Band.Upper)

	if result.Band.Contains(result.Distribution.Mean) && result.Distribution.Mean >= result.TargetCoverage {
		fmt.Printf("✅ Mean coverage sits in the analytic band, at or above target\n")
	} else if result.Distribution.Mean >= result.TargetCoverage {
		fmt.Printf("✅ Mean coverage at or above target\n")
	} else {
		fmt.Printf("⚠️  Mean coverage below target, inspect the configuration\n")
	}
	return nil
}

func newReportCmd() *cobra.Command {
	var flags demoFlags
	var outPath string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Run one calibration and export an XLSX report",
		Long: `Calibrate on synthetic data, print the markdown report and save an
XLSX workbook with the run summary and set-size distribution.

Example: goconform report --alpha 0.1 --out calibration.xlsx`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd.Context(), flags, outPath)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&outPath, "out", "calibration-report.xlsx", "Output workbook path")
	return cmd
}

func runReport(ctx context.Context, flags demoFlags, outPath string) error {
	kit := testkit.NewTestKit()
	service := app.NewCalibrationService(kit.RunRepository(), kit.RNGAdapter(), logx.NewDefault())

	record, err := service.Calibrate(ctx, flags.request())
	if err != nil {
		return err
	}

	fmt.Print(app.NewReportBuilder().Markdown(record))

	writer := excel.NewReportWriter()
	if err := writer.WriteFile(outPath, []*run.Record{record}); err != nil {
		return err
	}
	fmt.Printf("\n💾 Workbook saved to %s\n", outPath)
	return nil
}
