package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mseidel/trak/internal/config"
	"github.com/mseidel/trak/internal/export"
	"github.com/mseidel/trak/internal/field"
	"github.com/mseidel/trak/internal/geometry"
	"github.com/mseidel/trak/internal/output"
	"github.com/mseidel/trak/internal/sim"
	"github.com/mseidel/trak/internal/species"
	"github.com/mseidel/trak/internal/track"
	"github.com/mseidel/trak/internal/viz"
)

var (
	configFile string
	preset     string
	particles  int
	workers    int
	seed       int64
	tmax       float64
	geomFile   string
	outDir     string
	live       bool
	verbose    bool
	particleNo int
	svgFile    string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "trak",
		Short: "single-particle trajectory tracker",
	}

	runCmd := &cobra.Command{
		Use:   "run [species]",
		Short: "run an ensemble",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runEnsemble,
	}
	runCmd.Flags().StringVar(&configFile, "config", "", "run configuration file (yaml)")
	runCmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	runCmd.Flags().IntVar(&particles, "particles", 0, "number of particles (overrides config)")
	runCmd.Flags().IntVar(&workers, "workers", 0, "worker count (overrides config)")
	runCmd.Flags().Int64Var(&seed, "seed", 0, "seed of the first particle (overrides config)")
	runCmd.Flags().Float64Var(&tmax, "tmax", 0, "simulation time limit [s] (overrides config)")
	runCmd.Flags().StringVar(&geomFile, "geometry", "", "geometry description file (overrides config)")
	runCmd.Flags().StringVar(&outDir, "out", "", "output base directory (overrides config)")
	runCmd.Flags().BoolVar(&live, "live", false, "live progress view")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}
	listCmd.Flags().StringVar(&outDir, "out", "runs", "output base directory")

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot one particle's track",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&outDir, "out", "runs", "output base directory")
	plotCmd.Flags().IntVar(&particleNo, "particle", 0, "particle number")
	plotCmd.Flags().StringVar(&svgFile, "svg", "", "also write the side view as SVG to this file")

	presetsCmd := &cobra.Command{
		Use:   "presets [species]",
		Short: "list available presets for a species",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			presets := config.ListPresets(args[0])
			if len(presets) == 0 {
				fmt.Printf("no presets for species: %s\n", args[0])
				return nil
			}
			fmt.Printf("presets for %s:\n", args[0])
			for _, p := range presets {
				fmt.Printf("  %s\n", p)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "per-particle log output")

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig(args []string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if len(args) > 0 {
		cfg.Species = args[0]
	}
	if preset != "" {
		p := config.GetPreset(cfg.Species, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(cfg.Species))
		}
		cfg = p
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if len(args) > 0 {
		cfg.Species = args[0]
	}
	if particles > 0 {
		cfg.Particles = particles
	}
	if workers > 0 {
		cfg.Workers = workers
	}
	if seed != 0 {
		cfg.Seed = seed
	}
	if tmax > 0 {
		cfg.TMax = tmax
	}
	if geomFile != "" {
		cfg.Geometry = geomFile
	}
	if outDir != "" {
		cfg.Output.Dir = outDir
	}
	return cfg, cfg.Validate()
}

func buildSpecies(name string) (species.Species, error) {
	switch name {
	case "neutron":
		return species.NewNeutron(), nil
	case "proton":
		return species.NewProton(), nil
	case "electron":
		return species.NewElectron(), nil
	case "tracer":
		return species.NewTracer(), nil
	default:
		return nil, fmt.Errorf("unknown species %q", name)
	}
}

func buildGeometry(cfg *config.Config) (*geometry.Geometry, error) {
	if cfg.Geometry == "" {
		return nil, fmt.Errorf("no geometry description configured")
	}
	def, solids, meshes, err := geometry.LoadDescription(cfg.Geometry)
	if err != nil {
		return nil, err
	}
	boxes := make(geometry.Boxes, 0, len(meshes))
	for id, mesh := range meshes {
		b, err := geometry.ParseBoxMesh(id, mesh)
		if err != nil {
			return nil, err
		}
		boxes = append(boxes, b)
	}
	return geometry.New(def, solids, boxes)
}

func buildField(cfg *config.Config) field.Field {
	fields := make(field.Composite, 0, len(cfg.Fields))
	for _, fc := range cfg.Fields {
		switch fc.Kind {
		case "uniform":
			fields = append(fields, field.Uniform{B: fc.B, E: fc.E, V: fc.V})
		case "linear":
			fields = append(fields, field.LinearB{B0: fc.B[2], G: fc.Grad[2]})
		}
	}
	var f field.Field = fields
	if cfg.Ramp != nil {
		f = field.Ramp{
			Inner:    f,
			NullTime: cfg.Ramp.NullTime,
			RampUp:   cfg.Ramp.RampUp,
			FullTime: cfg.Ramp.FullTime,
			RampDown: cfg.Ramp.RampDown,
		}
	}
	return f
}

// filteredLogger passes only the enabled row kinds on to the recorder.
type filteredLogger struct {
	rec         *output.Recorder
	track, hits bool
}

func (f filteredLogger) TrackPoint(rec *track.Record, t float64, y []float64, pol int, h, e float64) error {
	if !f.track {
		return nil
	}
	return f.rec.TrackPoint(rec, t, y, pol, h, e)
}

func (f filteredLogger) Hit(rec *track.Record, t float64, y1, y2 []float64, pol1, pol2 int, normal [3]float64, leavingID, enteringID int) error {
	if !f.hits {
		return nil
	}
	return f.rec.Hit(rec, t, y1, y2, pol1, pol2, normal, leavingID, enteringID)
}

func (f filteredLogger) Snapshot(rec *track.Record, t float64, y []float64, pol int, h, e float64) error {
	return f.rec.Snapshot(rec, t, y, pol, h, e)
}

func runEnsemble(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}

	logDest := io.Writer(os.Stderr)
	if live {
		// keep the TUI frame clean
		logDest = io.Discard
	}
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(logDest, &slog.HandlerOptions{Level: level}))

	sp, err := buildSpecies(cfg.Species)
	if err != nil {
		return err
	}
	geo, err := buildGeometry(cfg)
	if err != nil {
		return err
	}

	jobID := uuid.NewString()
	store := output.NewStore(cfg.Output.Dir)
	run, err := store.Open(output.RunMetadata{
		ID:        jobID,
		Timestamp: time.Now(),
		Species:   cfg.Species,
		Particles: cfg.Particles,
		Workers:   cfg.Workers,
		Seed:      cfg.Seed,
		TMax:      cfg.TMax,
		Geometry:  cfg.Geometry,
	})
	if err != nil {
		return err
	}

	sinks := []output.Sink{run}
	if cfg.Output.SQLite {
		db, err := output.OpenSQLite(filepath.Join(run.Dir(), "run.db"))
		if err != nil {
			return err
		}
		sinks = append(sinks, db)
	}
	recorder := output.NewRecorder(jobID, sinks...)

	driver := &track.Driver{
		Geometry:  geo,
		Field:     buildField(cfg),
		Species:   sp,
		Log:       logger,
		TMax:      cfg.TMax,
		Snapshots: cfg.Snapshots,
		Logger: filteredLogger{
			rec:   recorder,
			track: cfg.Output.Track,
			hits:  cfg.Output.Hits,
		},
	}

	ens := &sim.Ensemble{
		Driver: driver,
		Source: sim.Source{
			Min: cfg.Source.Min, Max: cfg.Source.Max,
			EMin: cfg.Source.EMin, EMax: cfg.Source.EMax,
			TStart: cfg.Source.TStart, TEnd: cfg.Source.TEnd,
			PolUp: cfg.Source.PolUp,
		},
		Particles: cfg.Particles,
		Workers:   cfg.Workers,
		SeedStart: cfg.Seed,
		MaxTraj:   cfg.MaxTraj,
		End:       recorder.End,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	begin := time.Now()
	if live {
		lv := viz.NewLive(cfg.Particles)
		ens.Progress = lv.Report
		var runErr error
		go func() {
			_, runErr = ens.Run(ctx)
			lv.Finish()
		}()
		if err := lv.Run(); err != nil {
			return err
		}
		err = runErr
	} else {
		_, err = ens.Run(ctx)
	}

	run.SetFates(recorder.Fates())
	if cerr := recorder.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}

	fmt.Printf("run %s: %d particles in %s\n", run.RunID(), cfg.Particles, time.Since(begin).Round(time.Millisecond))
	fmt.Print(viz.FateSummary(recorder.Fates(), cfg.Particles))
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	store := output.NewStore(outDir)
	runs, err := store.List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tSPECIES\tPARTICLES\tSEED\tTMAX\tTIMESTAMP")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%g\t%s\n",
			r.RunDir, r.Species, r.Particles, r.Seed, r.TMax, r.Timestamp.Format(time.RFC3339))
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	store := output.NewStore(outDir)
	rows, err := store.LoadTrack(args[0], particleNo)
	if err != nil {
		return err
	}
	fmt.Println(viz.PlotTrack(rows))
	fmt.Println(viz.ProjectTrack(rows))
	if svgFile != "" {
		if err := os.WriteFile(svgFile, []byte(export.TrackSVG(rows, 800, 500)), 0644); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", svgFile)
	}
	return nil
}
