package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/san-kum/trackprop/internal/actors"
	"github.com/san-kum/trackprop/internal/config"
	"github.com/san-kum/trackprop/internal/ensemble"
	"github.com/san-kum/trackprop/internal/experiment"
	"github.com/san-kum/trackprop/internal/export"
	"github.com/san-kum/trackprop/internal/logging"
	"github.com/san-kum/trackprop/internal/metrics"
	"github.com/san-kum/trackprop/internal/storage"
	"github.com/san-kum/trackprop/internal/telemetry"
)

var (
	dataDir  string
	logLevel string
	logger   = zap.NewNop()

	configFile string
	preset     string
	indexPath  string
	noSave     bool

	maxSteps  int
	maxPath   float64
	momentum  float64
	charge    float64
	direction string
	stepperID string
	seed      int64

	runs        int
	workers     int
	metricsAddr string

	outFile     string
	benchRepeat int
	projection  string

	filterName   string
	filterStatus string
	filterLimit  int
)

// main registers the trackprop commands and executes the root command.
// It exits with status 1 if the command returns an error.
func main() {
	rootCmd := &cobra.Command{
		Use:          "trackprop",
		Short:        "charged particle trajectory propagation",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := logging.New(logLevel)
			if err != nil {
				return err
			}
			logger = l
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".trackprop", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	runCmd := &cobra.Command{
		Use:   "run [preset]",
		Short: "propagate one track",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runPropagation,
	}
	addConfigFlags(runCmd)
	runCmd.Flags().StringVar(&indexPath, "index", "", "sqlite index to record the run in")
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")

	ensembleCmd := &cobra.Command{
		Use:   "ensemble [preset]",
		Short: "propagate a smeared ensemble of tracks",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runEnsemble,
	}
	addConfigFlags(ensembleCmd)
	ensembleCmd.Flags().IntVar(&runs, "runs", 0, "number of tracks (default from config)")
	ensembleCmd.Flags().IntVar(&workers, "workers", 0, "concurrent propagations (default GOMAXPROCS)")
	ensembleCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot run trajectory",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run metadata and steps to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	svgCmd := &cobra.Command{
		Use:   "svg [run_id]",
		Short: "render run trajectory as SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	svgCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")
	svgCmd.Flags().StringVar(&projection, "projection", "xy", "projection (xy, zx, rz)")

	benchCmd := &cobra.Command{
		Use:   "bench [preset...]",
		Short: "benchmark presets",
		RunE:  benchPresets,
	}
	benchCmd.Flags().IntVar(&benchRepeat, "repeat", 20, "propagations per preset")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "PRESET\tSTEPPER\tFIELD\tSURFACES\tACTIONS\tABORTERS")
			for _, name := range config.ListPresets() {
				cfg := config.GetPreset(name)
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
					name,
					cfg.Stepper,
					cfg.Field.Type,
					len(cfg.Navigator.Surfaces),
					memberTypes(cfg.Actions),
					memberTypes(cfg.Aborters),
				)
			}
			return w.Flush()
		},
	}

	membersCmd := &cobra.Command{
		Use:   "members",
		Short: "list registered steppers, actions and abort conditions",
		Run: func(cmd *cobra.Command, args []string) {
			reg := experiment.NewRegistry()
			fmt.Printf("steppers: %s\n", strings.Join(reg.ListSteppers(), ", "))
			fmt.Printf("actions:  %s\n", strings.Join(reg.ListActions(), ", "))
			fmt.Printf("aborters: %s\n", strings.Join(reg.ListAborters(), ", "))
		},
	}

	indexCmd := &cobra.Command{
		Use:   "index [path]",
		Short: "query the sqlite run index",
		Args:  cobra.ExactArgs(1),
		RunE:  queryIndex,
	}
	indexCmd.Flags().StringVar(&filterName, "name", "", "only runs with this name")
	indexCmd.Flags().StringVar(&filterStatus, "status", "", "only runs with this status")
	indexCmd.Flags().IntVar(&filterLimit, "limit", 20, "maximum rows")

	rootCmd.AddCommand(runCmd, ensembleCmd, listCmd, plotCmd, exportCmd, exportJSONCmd, svgCmd, benchCmd, presetsCmd, membersCmd, indexCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addConfigFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	cmd.Flags().IntVar(&maxSteps, "max-steps", config.DefaultMaxSteps, "maximum step count")
	cmd.Flags().Float64Var(&maxPath, "max-path", config.DefaultMaxPathLength, "maximum path length (mm)")
	cmd.Flags().Float64Var(&momentum, "momentum", config.DefaultMomentum, "start momentum (GeV)")
	cmd.Flags().Float64Var(&charge, "charge", 1, "particle charge (e)")
	cmd.Flags().StringVar(&direction, "direction", "forward", "propagation direction")
	cmd.Flags().StringVar(&stepperID, "stepper", config.DefaultStepper, "stepper")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed")
}

// loadConfig resolves preset, config file and flags in that order. Flags
// only override when set explicitly.
func loadConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	name := preset
	if len(args) > 0 {
		name = args[0]
	}

	cfg := config.DefaultConfig()
	if name != "" {
		cfg = config.GetPreset(name)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", name, config.ListPresets())
		}
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("max-steps") {
		cfg.Policy.MaxSteps = maxSteps
	}
	if flags.Changed("max-path") {
		cfg.Policy.MaxPathLength = maxPath
	}
	if flags.Changed("momentum") {
		cfg.Start.Momentum = momentum
	}
	if flags.Changed("charge") {
		cfg.Start.Charge = charge
	}
	if flags.Changed("direction") {
		cfg.Policy.Direction = direction
	}
	if flags.Changed("stepper") {
		cfg.Stepper = stepperID
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	return cfg, cfg.Validate()
}

func runPropagation(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}

	exp, err := experiment.New(cfg, experiment.WithLogger(logger))
	if err != nil {
		return err
	}

	start := time.Now()
	out := exp.Run(cmd.Context())
	elapsed := time.Since(start)

	values := metrics.Collect(out.Results)
	logger.Info("propagation done",
		zap.String("status", out.Status.String()),
		zap.Int("steps", out.Steps),
		zap.Duration("elapsed", elapsed),
	)

	var runID string
	if !noSave {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		var steps []actors.StepRecord
		if traj, ok := exp.Slots().Trajectory.Get(out.Results); ok {
			steps = traj.Steps
		}
		meta := storage.NewRunMetadata(cfg, out, values)
		if runID, err = st.Save(meta, steps); err != nil {
			return err
		}
		meta.ID = runID

		if indexPath != "" {
			idx, err := storage.OpenIndex(indexPath)
			if err != nil {
				return err
			}
			defer idx.Close()
			if err := idx.Record(cmd.Context(), meta); err != nil {
				return err
			}
		}
	}

	fmt.Println(renderOutcome(runID, out))
	fmt.Printf("completed in %v\n", elapsed)
	if len(values) > 0 {
		fmt.Println("\nmetrics:")
		for _, name := range sortedNames(values) {
			fmt.Printf("  %s: %.6g\n", name, values[name])
		}
	}

	if !out.OK() {
		return out.Err
	}
	return nil
}

func runEnsemble(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("workers") {
		cfg.Ensemble.Workers = workers
	}

	reg := prometheus.NewRegistry()
	collector, err := telemetry.NewCollector(reg)
	if err != nil {
		return err
	}

	if metricsAddr != "" {
		srv := &http.Server{Addr: metricsAddr, Handler: telemetry.Handler(reg)}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server", zap.Error(err))
			}
		}()
		defer srv.Close()
		logger.Info("serving metrics", zap.String("addr", metricsAddr))
	}

	exp, err := experiment.New(cfg,
		experiment.WithLogger(logger),
		experiment.WithHooks(collector.Hooks()),
	)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	start := time.Now()
	outcomes, err := exp.RunEnsemble(ctx, runs)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	stats := ensemble.Summarize(outcomes)
	fmt.Println(renderPanel("ensemble", []row{
		{"tracks", fmt.Sprintf("%d", stats.Runs)},
		{"mean steps", fmt.Sprintf("%.1f", stats.MeanSteps)},
		{"mean path", fmt.Sprintf("%.3f mm", stats.MeanPath)},
		{"max path", fmt.Sprintf("%.3f mm", stats.MaxPath)},
		{"elapsed", elapsed.String()},
	}))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STATUS\tCOUNT")
	for _, name := range sortedNames(stats.ByStatus) {
		fmt.Fprintf(w, "%s\t%d\n", name, stats.ByStatus[name])
	}
	fmt.Fprintln(w, "\t")
	fmt.Fprintln(w, "TRIGGER\tCOUNT")
	for _, name := range sortedNames(stats.ByTrigger) {
		fmt.Fprintf(w, "%s\t%d\n", name, stats.ByTrigger[name])
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if stats.FirstError != nil {
		fmt.Printf("\nfirst failure: %v\n", stats.FirstError)
	}
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	return writeRuns(runs)
}

func writeRuns(runs []storage.RunMetadata) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTIME\tSTEPPER\tSTATUS\tTRIGGER\tSTEPS\tPATH")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%d\t%.2fmm\n",
			run.ID,
			run.Name,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Stepper,
			run.Status,
			run.Trigger,
			run.Steps,
			run.PathLength,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	steps, err := st.LoadSteps(runID)
	if err != nil {
		return err
	}

	if len(steps) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("name: %s\n", meta.Name)
	fmt.Printf("samples: %d\n\n", len(steps))

	series := []struct {
		caption string
		value   func(actors.StepRecord) float64
	}{
		{"transverse radius (mm) vs step", func(s actors.StepRecord) float64 { return s.Position.Perp() }},
		{"z (mm) vs step", func(s actors.StepRecord) float64 { return s.Position[2] }},
		{"momentum (GeV) vs step", func(s actors.StepRecord) float64 { return s.Momentum }},
		{"step length (mm) vs step", func(s actors.StepRecord) float64 { return s.StepLength }},
	}

	for _, s := range series {
		data := make([]float64, len(steps))
		for i := range steps {
			data[i] = s.value(steps[i])
		}

		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(s.caption),
		)
		fmt.Println(graph)
		fmt.Println(separator(80))
	}

	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func exportJSON(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	if outFile == "" {
		return st.Export(os.Stdout, args[0])
	}

	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	steps, err := st.LoadSteps(args[0])
	if err != nil {
		return err
	}
	if err := storage.ExportJSONFile(outFile, *meta, steps); err != nil {
		return err
	}
	fmt.Printf("exported %d steps to %s\n", len(steps), outFile)
	return nil
}

func exportSVG(cmd *cobra.Command, args []string) error {
	proj, err := export.ParseProjection(projection)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	steps, err := st.LoadSteps(args[0])
	if err != nil {
		return err
	}

	opts := export.DefaultSVGOptions()
	opts.Projection = proj

	if outFile == "" {
		return export.TrajectorySVG(os.Stdout, steps, opts)
	}
	f, err := os.Create(outFile)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := export.TrajectorySVG(f, steps, opts); err != nil {
		return err
	}
	fmt.Printf("wrote %s projection of %d steps to %s\n", proj, len(steps), outFile)
	return nil
}

func benchPresets(cmd *cobra.Command, args []string) error {
	names := args
	if len(names) == 0 {
		names = config.ListPresets()
	}

	fmt.Printf("benchmarking %d presets, %d propagations each\n\n", len(names), benchRepeat)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PRESET\tSTATUS\tSTEPS\tTIME\tSTEPS/SEC")

	for _, name := range names {
		cfg := config.GetPreset(name)
		if cfg == nil {
			return fmt.Errorf("unknown preset: %s", name)
		}

		exp, err := experiment.New(cfg)
		if err != nil {
			return err
		}

		ctx := context.Background()
		total := 0
		status := ""
		start := time.Now()
		for i := 0; i < max(benchRepeat, 1); i++ {
			out := exp.Run(ctx)
			total += out.Steps
			status = out.Status.String()
		}
		elapsed := time.Since(start)

		stepsPerSec := float64(total) / elapsed.Seconds()
		fmt.Fprintf(w, "%s\t%s\t%d\t%v\t%.0f\n",
			name,
			status,
			total,
			elapsed.Round(time.Microsecond),
			stepsPerSec,
		)
	}

	return w.Flush()
}

func queryIndex(cmd *cobra.Command, args []string) error {
	idx, err := storage.OpenIndex(args[0])
	if err != nil {
		return err
	}
	defer idx.Close()

	ctx := cmd.Context()
	runs, err := idx.Runs(ctx, storage.Filter{
		Name:   filterName,
		Status: filterStatus,
		Limit:  filterLimit,
	})
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
	} else if err := writeRuns(runs); err != nil {
		return err
	}

	counts, err := idx.StatusCounts(ctx)
	if err != nil {
		return err
	}
	fmt.Println()
	for _, status := range sortedNames(counts) {
		fmt.Printf("%s: %d\n", status, counts[status])
	}
	return nil
}

func memberTypes(ms []config.MemberConfig) string {
	if len(ms) == 0 {
		return "-"
	}
	types := make([]string, len(ms))
	for i, m := range ms {
		types[i] = m.Type
	}
	return strings.Join(types, ",")
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
