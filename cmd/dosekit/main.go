package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"dosekit/internal/models"
	"dosekit/internal/store"
	"dosekit/pkg/analysis"
	"dosekit/pkg/config"
	"dosekit/pkg/profile"
	"dosekit/pkg/visualization"
)

const usage = `Usage: dosekit <command> [flags]

Commands:
  analyze      analyse an RT Dose file (and optional RT Structure Set)
  profile      measure a profile read from a CSV file
  history      show the recorded metrics of one profile across runs
  init-config  write a default configuration file
`

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var err error
	switch os.Args[1] {
	case "analyze":
		err = runAnalyze(ctx, os.Args[2:], os.Stdout)
	case "profile":
		err = runProfile(os.Args[2:], os.Stdout)
	case "history":
		err = runHistory(ctx, os.Args[2:], os.Stdout)
	case "init-config":
		err = runInitConfig(os.Args[2:], os.Stdout)
	case "-h", "--help", "help":
		fmt.Fprint(os.Stdout, usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		log.Fatal().Err(err).Str("command", os.Args[1]).Msg("dosekit failed")
	}
}

func runAnalyze(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	doseFile := fs.String("dose", "", "RT Dose file")
	structFile := fs.String("struct", "", "RT Structure Set file (enables DVHs)")
	configPath := fs.String("config", "", "YAML configuration file")
	outputDir := fs.String("out", "", "Directory for reports (overrides output.dir)")
	storePath := fs.String("store", "", "Results database (overrides store.path and enables the store)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *doseFile == "" {
		fs.Usage()
		return errors.New("-dose is required")
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return err
	}
	if *outputDir != "" {
		cfg.Output.Dir = *outputDir
	}
	if *storePath != "" {
		cfg.Store.Enabled = true
		cfg.Store.Path = *storePath
	}
	if cfg.Output.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	params, err := analysis.ParamsFromConfig(cfg, *doseFile, *structFile)
	if err != nil {
		return err
	}
	if cfg.Store.Enabled {
		s, err := store.OpenMigrated(cfg.Store.Path)
		if err != nil {
			return fmt.Errorf("failed to open results store: %w", err)
		}
		defer s.Close()
		params.Store = s
	}

	startTime := time.Now()
	run, err := analysis.NewAnalyzer(params).Process(ctx)
	if err != nil {
		return err
	}
	log.Info().Dur("elapsed", time.Since(startTime)).Str("run", run.ID).Msg("Analysis completed")

	printRun(out, run)
	return nil
}

func printRun(out io.Writer, run *models.AnalysisRun) {
	patient := run.PatientID
	if run.PatientName != "" {
		patient = fmt.Sprintf("%s (%s)", run.PatientID, run.PatientName)
	}
	fmt.Fprintf(out, "Run %s  patient %s  max dose %.4f Gy\n", run.ID, patient, run.MaxDose)
	ext := run.Extent
	fmt.Fprintf(out, "Grid %s  x [%.2f, %.2f]  y [%.2f, %.2f]  z [%.2f, %.2f] mm\n", run.Frame,
		ext.X.Min, ext.X.Max, ext.Y.Min, ext.Y.Max, ext.Z.Min, ext.Z.Max)
	fmt.Fprintf(out, "\n%-18s %9s %9s %9s %9s %6s\n", "Profile", "Left", "Right", "Flat %", "Sym %", "Wedge")
	for _, p := range run.Profiles {
		printProfile(out, p)
	}
	if len(run.DVHs) > 0 {
		fmt.Fprintf(out, "\n%-18s %8s %9s %9s\n", "Structure", "Voxels", "Max", "Mean")
		for _, d := range run.DVHs {
			if d.Error != "" {
				fmt.Fprintf(out, "%-18s %s\n", d.Structure, d.Error)
				continue
			}
			fmt.Fprintf(out, "%-18s %8d %9.4f %9.4f\n", d.Structure, d.Voxels, d.MaxDose, d.MeanDose)
		}
	}
}

func printProfile(out io.Writer, p models.ProfileResult) {
	if !p.OK() {
		fmt.Fprintf(out, "%-18s %s\n", p.Label(), p.Error)
		return
	}
	fmt.Fprintf(out, "%-18s %9.2f %9.2f %9.2f %9.2f %6t\n",
		p.Label(), p.Left, p.Right, p.Flatness, p.Symmetry, p.Wedged)
}

func runProfile(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("profile", flag.ContinueOnError)
	csvPath := fs.String("csv", "", "Profile CSV file with distance,dose columns")
	step := fs.Float64("step", profile.DefaultStep, "Resampling step in mm")
	pngPath := fs.String("png", "", "Write a plot of the profile to this file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *csvPath == "" {
		fs.Usage()
		return errors.New("-csv is required")
	}

	file, err := os.Open(*csvPath)
	if err != nil {
		return err
	}
	defer file.Close()
	p, err := profile.ReadCSV(file)
	if err != nil {
		return fmt.Errorf("%s: %w", *csvPath, err)
	}

	res, err := analysis.AnalyzeProfile(p, models.Imported, 0, *step)
	printProfile(out, res)
	if err != nil {
		return err
	}

	if *pngPath != "" {
		name := filepath.Base(*csvPath)
		series := visualization.Series{Name: name, X: res.Curve.X, Y: res.Curve.Y}
		if err := visualization.SaveCurvesPNG(*pngPath, name, "Distance (mm)", "Dose", series); err != nil {
			return err
		}
		log.Info().Str("file", *pngPath).Msg("Saved profile plot")
	}
	return nil
}

func runHistory(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	storePath := fs.String("store", "", "Results database (defaults to store.path)")
	configPath := fs.String("config", "", "YAML configuration file")
	label := fs.String("label", "", "Profile label, e.g. crossplane@100")
	limit := fs.Int("runs", 0, "List the most recent runs instead of a profile history")
	if err := fs.Parse(args); err != nil {
		return err
	}

	path := *storePath
	if path == "" {
		cfg, err := config.LoadConfig(*configPath)
		if err != nil {
			return err
		}
		path = cfg.Store.Path
	}
	s, err := store.OpenMigrated(path)
	if err != nil {
		return err
	}
	defer s.Close()

	if *label == "" {
		runs, err := s.ListRuns(ctx, *limit)
		if err != nil {
			return err
		}
		for _, r := range runs {
			fmt.Fprintf(out, "%s  %s  %-12s %s\n", r.CreatedAt.Format(time.RFC3339), r.ID, r.PatientID, r.DoseFile)
		}
		return nil
	}

	history, err := s.ProfileHistory(ctx, *label)
	if err != nil {
		return err
	}
	if len(history) == 0 {
		return fmt.Errorf("no runs recorded for profile %q", *label)
	}
	for _, h := range history {
		fmt.Fprintf(out, "%s  %s  ", h.CreatedAt.Format(time.RFC3339), h.RunID)
		printProfile(out, h.Profile)
	}
	return nil
}

func runInitConfig(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("init-config", flag.ContinueOnError)
	force := fs.Bool("force", false, "Overwrite an existing file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	path := "dosekit.yaml"
	if fs.NArg() > 0 {
		path = fs.Arg(0)
	}
	if _, err := os.Stat(path); err == nil && !*force {
		return fmt.Errorf("%s already exists (use -force to overwrite)", path)
	}
	if err := config.CreateDefaultConfigFile(path); err != nil {
		return err
	}
	fmt.Fprintf(out, "Wrote default configuration to %s\n", path)
	return nil
}
