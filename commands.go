package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/nodeadmin/snomed-dnf/config"
	"github.com/nodeadmin/snomed-dnf/normalform"
	"github.com/nodeadmin/snomed-dnf/ontology"
	"github.com/nodeadmin/snomed-dnf/reasoner"
)

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "dnf",
		Short: "Distribution normal form generator for classified terminologies",
		Long: `dnf reads a classified terminology snapshot (OBO stanzas with stated and
previously inferred facts), computes the normal form of every concept and
reports what changed.

Examples:
  dnf generate --input snapshot.obo --output changes.json
  dnf taxonomy --input snapshot.obo --pretty`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML config file")
	root.PersistentFlags().String("log-level", "", "debug, info, warn or error")
	root.PersistentFlags().String("log-format", "", "text or json")
	root.PersistentFlags().StringP("input", "i", "", "snapshot file (- for stdin)")
	root.PersistentFlags().StringP("output", "o", "", "output file (- for stdout)")
	root.PersistentFlags().Bool("pretty", false, "indent JSON output")

	root.AddCommand(newGenerateCmd(opts), newTaxonomyCmd(opts))
	return root
}

func newGenerateCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Compute normal forms and report changes against inferred facts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runGenerate(ctx, cfg, newLogger(cfg.Log, cmd.ErrOrStderr()), cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	f := cmd.Flags()
	f.Int("workers", 0, "concurrent concepts per layer")
	f.String("relationship-retention", "", "relationship cache retention: all, two-layers, until-children-done")
	f.String("concrete-domain-retention", "", "concrete domain cache retention: all, two-layers, until-children-done")
	f.String("metrics-textfile", "", "write Prometheus metrics to this file")
	f.Bool("progress", false, "show progress bars on stderr")
	return cmd
}

func newTaxonomyCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "taxonomy",
		Short: "Write the classified hierarchy of a snapshot as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			log := newLogger(cfg.Log, cmd.ErrOrStderr())
			snap, err := loadSnapshot(cfg.Input, cmd.InOrStdin(), log)
			if err != nil {
				return err
			}
			w, closeOut, err := createOutput(cfg.Output, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			summary := snap.taxonomy.Summary(snap.symbols, snap.parseTime, snap.buildTime)
			if err := reasoner.WriteClassifiedJSON(w, summary, cfg.Pretty); err != nil {
				closeOut()
				return fmt.Errorf("write taxonomy: %w", err)
			}
			return closeOut()
		},
	}
}

// loadConfig merges defaults, the config file, the environment and the
// flags that were set explicitly, in that order.
func loadConfig(cmd *cobra.Command, opts *rootOptions) (config.Config, error) {
	cfg, err := config.Read(opts.configPath)
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	str := func(name string, dst *string) {
		if flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}
	boolean := func(name string, dst *bool) {
		if flags.Changed(name) {
			*dst, _ = flags.GetBool(name)
		}
	}
	str("input", &cfg.Input)
	str("output", &cfg.Output)
	boolean("pretty", &cfg.Pretty)
	str("log-level", &cfg.Log.Level)
	str("log-format", &cfg.Log.Format)
	if flags.Lookup("workers") != nil {
		if flags.Changed("workers") {
			cfg.Generator.Workers, _ = flags.GetInt("workers")
		}
		str("relationship-retention", &cfg.Generator.RelationshipRetention)
		str("concrete-domain-retention", &cfg.Generator.ConcreteDomainRetention)
		str("metrics-textfile", &cfg.Metrics.Textfile)
		boolean("progress", &cfg.Progress)
	}
	return cfg, cfg.Validate()
}

func newLogger(c config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	_ = level.UnmarshalText([]byte(c.Level))
	hopts := &slog.HandlerOptions{Level: level}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, hopts))
	}
	return slog.New(slog.NewTextHandler(w, hopts))
}

type loadedSnapshot struct {
	ontology   *ontology.Ontology
	symbols    *reasoner.SymbolTable
	statements *reasoner.Statements
	taxonomy   *reasoner.Taxonomy
	parseTime  time.Duration
	buildTime  time.Duration
}

func loadSnapshot(path string, stdin io.Reader, log *slog.Logger) (*loadedSnapshot, error) {
	r := stdin
	name := "stdin"
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		r = f
		name = filepath.Base(path)
	}

	start := time.Now()
	ont, err := ontology.ParseOBO(r)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	parseTime := time.Since(start)
	log.Info("snapshot parsed",
		slog.String("input", name),
		slog.Int("terms", len(ont.Terms)),
		slog.Int("typedefs", len(ont.TypeDefs)),
		slog.Duration("elapsed", parseTime),
	)

	start = time.Now()
	snap, err := reasoner.FromOntology(ont)
	if err != nil {
		return nil, fmt.Errorf("index %s: %w", name, err)
	}
	tax, err := snap.Builder.Build()
	if err != nil {
		return nil, fmt.Errorf("build taxonomy: %w", err)
	}
	buildTime := time.Since(start)
	log.Info("taxonomy built",
		slog.Int("concepts", tax.ConceptCount()),
		slog.Int("layers", len(tax.Layers())),
		slog.Int("property_chains", len(tax.PropertyChains().All())),
		slog.Duration("elapsed", buildTime),
	)

	return &loadedSnapshot{
		ontology:   ont,
		symbols:    snap.Symbols,
		statements: snap.Statements,
		taxonomy:   tax,
		parseTime:  parseTime,
		buildTime:  buildTime,
	}, nil
}

func runGenerate(ctx context.Context, cfg config.Config, log *slog.Logger, stdin io.Reader, stdout, stderr io.Writer) error {
	snap, err := loadSnapshot(cfg.Input, stdin, log)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	metrics := normalform.NewMetrics(reg)
	report := newReportBuilder(snap.symbols)
	report.report.Ontology = snap.ontology.Ontology
	report.report.DataVersion = snap.ontology.DataVersion
	report.report.Stats = snap.taxonomy.Summary(snap.symbols, snap.parseTime, snap.buildTime).Stats

	options := func(name string) normalform.Options {
		o := normalform.Options{
			Name:    name,
			Workers: cfg.Generator.Workers,
			Logger:  log,
			Metrics: metrics,
		}
		if cfg.Progress {
			o.Monitor = newBarMonitor(stderr)
		}
		return o
	}

	relSource, err := normalform.NewRelationshipGenerator(snap.taxonomy, snap.statements, cfg.RelationshipPolicy())
	if err != nil {
		return fmt.Errorf("relationship generator: %w", err)
	}
	relCollector := &normalform.ChangeCollector[*normalform.Relationship]{
		Name:    "relationship",
		Sink:    report.addRelationshipChanges,
		Metrics: metrics,
	}
	res, err := normalform.NewGenerator[*normalform.Relationship](snap.taxonomy, relSource, options("relationship")).
		Run(ctx, relCollector, normalform.RelationshipOrdering)
	if err != nil {
		return fmt.Errorf("relationship pass: %w", err)
	}
	report.addPass("relationship", res, relCollector.Stats())

	if !res.Cancelled {
		cdSource := normalform.NewConcreteDomainGenerator(snap.taxonomy, snap.statements, cfg.ConcreteDomainPolicy())
		cdCollector := &normalform.ChangeCollector[*normalform.Value]{
			Name:    "concrete-domain",
			Reduce:  true,
			Sink:    report.addValueChanges,
			Metrics: metrics,
		}
		res, err = normalform.NewGenerator[*normalform.Value](snap.taxonomy, cdSource, options("concrete-domain")).
			Run(ctx, cdCollector, normalform.ValueOrdering)
		if err != nil {
			return fmt.Errorf("concrete domain pass: %w", err)
		}
		report.addPass("concrete-domain", res, cdCollector.Stats())
	}

	w, closeOut, err := createOutput(cfg.Output, stdout)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := writeReport(w, &report.report, cfg.Pretty); err != nil {
		closeOut()
		return fmt.Errorf("write report: %w", err)
	}
	if err := closeOut(); err != nil {
		return err
	}

	if cfg.Metrics.Textfile != "" {
		if err := prometheus.WriteToTextfile(cfg.Metrics.Textfile, reg); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	if res.Cancelled {
		log.Warn("run cancelled, report is partial")
	}
	return nil
}
