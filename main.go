package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"mc-integrator/cache"
	"mc-integrator/chart"
	"mc-integrator/config"
	"mc-integrator/domain"
	"mc-integrator/integrand"
	"mc-integrator/metrics"
	"mc-integrator/montecarlo"
	"mc-integrator/report"
	"mc-integrator/simulation"
	"mc-integrator/store"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s: %v\n", domain.Kind(err), err)
		os.Exit(1)
	}
}

// cliOptions holds flag values. Only flags the user set are applied over the
// config file.
type cliOptions struct {
	configPath string
	flags      config.Config
	// bound holds the root's flags; a subcommand flag of the same name
	// (history --limit) is not a config override.
	bound map[*pflag.Flag]bool
}

func newRootCmd() *cobra.Command {
	o := &cliOptions{flags: config.Default()}

	root := &cobra.Command{
		Use:   "mcint",
		Short: "Estimate a definite integral by Monte Carlo and check it against adaptive quadrature",
		Long: `mcint estimates the integral of f over [a, b] from uniformly drawn samples,
computes a high-accuracy quadrature reference, reports the relative error
and writes a plot and a Markdown summary.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := o.resolve(cmd.Flags())
			if err != nil {
				return err
			}
			return runIntegration(cmd.Context(), cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	f := &o.flags
	pf := root.PersistentFlags()
	pf.StringVar(&o.configPath, "config", "", "YAML config file; flags set on the command line override it")
	pf.StringVar(&f.Storage.History, "history", f.Storage.History, "SQLite run-history database")
	pf.StringVar(&f.Log.Level, "log-level", f.Log.Level, "log level: debug, info, warn or error")
	pf.StringVar(&f.Log.Format, "log-format", f.Log.Format, "log format: text or json")

	fs := root.Flags()
	fs.IntVarP(&f.Run.Samples, "samples", "n", f.Run.Samples, "number of random points")
	fs.StringVarP(&f.Output.Readme, "readme", "r", f.Output.Readme, "Markdown report path (empty to skip)")
	fs.StringVarP(&f.Output.Plot, "plot", "p", f.Output.Plot, "PNG plot path (empty to skip)")
	fs.Float64Var(&f.Run.A, "a", f.Run.A, "lower integration bound")
	fs.Float64Var(&f.Run.B, "b", f.Run.B, "upper integration bound")
	fs.StringVarP(&f.Run.Function, "function", "f", f.Run.Function, "integrand name or poly:c0,c1,...")
	fs.Uint64Var(&f.Run.Seed, "seed", f.Run.Seed, "random seed (0 picks one and reports it)")
	fs.IntVar(&f.Run.Workers, "workers", f.Run.Workers, "sampling workers")
	fs.Int64Var(&f.Run.MaxEvaluations, "max-evals", f.Run.MaxEvaluations, "evaluation budget for sampling (0 = unlimited)")
	fs.DurationVar(&f.Run.Timeout, "timeout", f.Run.Timeout, "deadline for the whole run (0 = none)")
	fs.StringVar(&f.Quadrature.Method, "method", f.Quadrature.Method, "quadrature method: gauss-legendre or romberg")
	fs.Float64Var(&f.Quadrature.AbsTol, "abs-tol", f.Quadrature.AbsTol, "quadrature absolute tolerance")
	fs.Float64Var(&f.Quadrature.RelTol, "rel-tol", f.Quadrature.RelTol, "quadrature relative tolerance")
	fs.IntVar(&f.Quadrature.Limit, "limit", f.Quadrature.Limit, "maximum number of subintervals")
	fs.IntVar(&f.Quadrature.MaxLevel, "max-level", f.Quadrature.MaxLevel, "maximum Romberg refinement level")
	fs.StringVar(&f.Output.Chart, "chart", f.Output.Chart, "interactive HTML chart path")
	fs.StringVar(&f.Output.JSON, "json", f.Output.JSON, "JSON result path")
	fs.StringVar(&f.Storage.Redis, "redis", f.Storage.Redis, "Redis address for the reference cache")
	fs.DurationVar(&f.Storage.CacheTTL, "cache-ttl", f.Storage.CacheTTL, "lifetime of cached reference values")
	fs.StringVar(&f.Output.MetricsFile, "metrics-file", f.Output.MetricsFile, "Prometheus textfile output")
	fs.StringVar(&f.Output.MetricsJSON, "export", f.Output.MetricsJSON, "path to export run metrics (JSON format)")
	fs.BoolVar(&f.Output.Summary, "verbose", f.Output.Summary, "print the run metrics summary")

	o.bound = make(map[*pflag.Flag]bool)
	mark := func(fl *pflag.Flag) { o.bound[fl] = true }
	fs.VisitAll(mark)
	pf.VisitAll(mark)

	root.AddCommand(newFunctionsCmd(), newHistoryCmd(o), newShowCmd(o))
	return root
}

// overrides maps each root flag to the config field it sets. Only config
// and help are left out.
var overrides = map[string]func(dst, src *config.Config){
	"samples":      func(d, s *config.Config) { d.Run.Samples = s.Run.Samples },
	"a":            func(d, s *config.Config) { d.Run.A = s.Run.A },
	"b":            func(d, s *config.Config) { d.Run.B = s.Run.B },
	"function":     func(d, s *config.Config) { d.Run.Function = s.Run.Function },
	"seed":         func(d, s *config.Config) { d.Run.Seed = s.Run.Seed },
	"workers":      func(d, s *config.Config) { d.Run.Workers = s.Run.Workers },
	"max-evals":    func(d, s *config.Config) { d.Run.MaxEvaluations = s.Run.MaxEvaluations },
	"timeout":      func(d, s *config.Config) { d.Run.Timeout = s.Run.Timeout },
	"method":       func(d, s *config.Config) { d.Quadrature.Method = s.Quadrature.Method },
	"abs-tol":      func(d, s *config.Config) { d.Quadrature.AbsTol = s.Quadrature.AbsTol },
	"rel-tol":      func(d, s *config.Config) { d.Quadrature.RelTol = s.Quadrature.RelTol },
	"limit":        func(d, s *config.Config) { d.Quadrature.Limit = s.Quadrature.Limit },
	"max-level":    func(d, s *config.Config) { d.Quadrature.MaxLevel = s.Quadrature.MaxLevel },
	"readme":       func(d, s *config.Config) { d.Output.Readme = s.Output.Readme },
	"plot":         func(d, s *config.Config) { d.Output.Plot = s.Output.Plot },
	"chart":        func(d, s *config.Config) { d.Output.Chart = s.Output.Chart },
	"json":         func(d, s *config.Config) { d.Output.JSON = s.Output.JSON },
	"metrics-file": func(d, s *config.Config) { d.Output.MetricsFile = s.Output.MetricsFile },
	"export":       func(d, s *config.Config) { d.Output.MetricsJSON = s.Output.MetricsJSON },
	"verbose":      func(d, s *config.Config) { d.Output.Summary = s.Output.Summary },
	"history":      func(d, s *config.Config) { d.Storage.History = s.Storage.History },
	"redis":        func(d, s *config.Config) { d.Storage.Redis = s.Storage.Redis },
	"cache-ttl":    func(d, s *config.Config) { d.Storage.CacheTTL = s.Storage.CacheTTL },
	"log-level":    func(d, s *config.Config) { d.Log.Level = s.Log.Level },
	"log-format":   func(d, s *config.Config) { d.Log.Format = s.Log.Format },
}

// resolve loads the config file, if any, and applies the flags that were set.
func (o *cliOptions) resolve(fs *pflag.FlagSet) (config.Config, error) {
	cfg := config.Default()
	if o.configPath != "" {
		var err error
		if cfg, err = config.Load(o.configPath); err != nil {
			return config.Config{}, err
		}
	}

	fs.Visit(func(fl *pflag.Flag) {
		if apply, ok := overrides[fl.Name]; ok && o.bound[fl] {
			apply(&cfg, &o.flags)
		}
	})

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func runIntegration(ctx context.Context, cfg config.Config, stdout, stderr io.Writer) error {
	logger, err := config.NewLogger(cfg.Log.Level, cfg.Log.Format, stderr)
	if err != nil {
		return err
	}
	in, err := integrand.Lookup(cfg.Run.Function)
	if err != nil {
		return err
	}

	if cfg.Run.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Run.Timeout)
		defer cancel()
	}

	collector := metrics.NewMetricsCollector()
	opts := []simulation.Option{simulation.WithCollector(collector), simulation.WithLogger(logger)}

	if cfg.Storage.Redis != "" {
		rc, err := cache.NewRedis(ctx, cfg.Storage.Redis, cfg.Storage.CacheTTL)
		if err != nil {
			logger.Warn("reference cache unavailable, continuing without it", "addr", cfg.Storage.Redis, "error", err)
		} else {
			defer rc.Close()
			opts = append(opts, simulation.WithCache(rc))
		}
	}
	if cfg.Storage.History != "" {
		st, err := store.Open(cfg.Storage.History)
		if err != nil {
			return err
		}
		defer st.Close()
		opts = append(opts, simulation.WithHistory(st))
	}

	collector.Start()
	collector.TakeSnapshot()
	r, err := simulation.New(opts...).Run(ctx, simulation.Config{
		Integrand: in,
		Interval:  domain.Interval{A: cfg.Run.A, B: cfg.Run.B},
		Samples:   cfg.Run.Samples,
		Sampler: montecarlo.Sampler{
			Seed:           cfg.Run.Seed,
			Workers:        cfg.Run.Workers,
			MaxEvaluations: cfg.Run.MaxEvaluations,
		},
		Quadrature: cfg.Quadrature,
	})
	collector.TakeSnapshot()
	collector.Stop()
	if err != nil {
		return err
	}

	report.Console(stdout, r)
	return writeOutputs(stdout, cfg.Output, in, r, collector)
}

// writeOutputs writes every requested file. It runs only after the run
// succeeded, so a failed run leaves existing files untouched.
func writeOutputs(stdout io.Writer, out config.OutputConfig, in integrand.Integrand, r domain.Report, collector *metrics.MetricsCollector) error {
	drawn := chart.Integrand{F: in.F, Expr: in.Expr, A: r.Interval.A, B: r.Interval.B}

	if out.Plot != "" {
		if err := chart.WritePNG(out.Plot, drawn); err != nil {
			return fmt.Errorf("plot: %w", err)
		}
		fmt.Fprintf(stdout, "Plot saved:  %s\n", out.Plot)
	}
	if out.Chart != "" {
		if err := chart.WriteHTML(out.Chart, drawn, r); err != nil {
			return fmt.Errorf("chart: %w", err)
		}
		fmt.Fprintf(stdout, "Chart saved: %s\n", out.Chart)
	}
	if out.Readme != "" {
		if err := report.WriteMarkdown(out.Readme, r, plotLink(out.Readme, out.Plot)); err != nil {
			return fmt.Errorf("readme: %w", err)
		}
		fmt.Fprintf(stdout, "README saved: %s\n", out.Readme)
	}
	if out.JSON != "" {
		if err := report.WriteJSON(out.JSON, r); err != nil {
			return fmt.Errorf("json: %w", err)
		}
		fmt.Fprintf(stdout, "JSON saved:  %s\n", out.JSON)
	}
	if out.MetricsFile != "" {
		if err := collector.WriteTextfile(out.MetricsFile); err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
	}
	if out.MetricsJSON != "" {
		data, err := collector.ExportToJSON()
		if err != nil {
			return fmt.Errorf("export metrics: %w", err)
		}
		if err := report.WriteFileAtomic(out.MetricsJSON, data); err != nil {
			return fmt.Errorf("export metrics: %w", err)
		}
		fmt.Fprintf(stdout, "Metrics exported to: %s\n", out.MetricsJSON)
	}
	if out.Summary {
		collector.PrintSummary(stdout)
	}
	return nil
}

// plotLink is the plot path relative to the README's directory.
func plotLink(readme, plot string) string {
	if plot == "" {
		return ""
	}
	absReadme, err1 := filepath.Abs(filepath.Dir(readme))
	absPlot, err2 := filepath.Abs(plot)
	if err1 != nil || err2 != nil {
		return plot
	}
	rel, err := filepath.Rel(absReadme, absPlot)
	if err != nil {
		return plot
	}
	return rel
}

func newFunctionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "functions",
		Short: "List the built-in integrands",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tf(x)\tCLOSED FORM")
			for _, name := range integrand.Names() {
				in, _ := integrand.Lookup(name)
				closed := "no"
				if in.Antiderivative != nil {
					closed = "yes"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", in.Name, in.Expr, closed)
			}
			fmt.Fprintln(tw, "poly:c0,c1,...\tc0 + c1*x + ...\tyes")
			tw.Flush()
		},
	}
}

func openHistory(o *cliOptions, fs *pflag.FlagSet) (*store.Store, error) {
	cfg, err := o.resolve(fs)
	if err != nil {
		return nil, err
	}
	if cfg.Storage.History == "" {
		return nil, errors.New("no run history configured (use --history or storage.history)")
	}
	return store.Open(cfg.Storage.History)
}

func newHistoryCmd(o *cliOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List stored runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := openHistory(o, cmd.Flags())
			if err != nil {
				return err
			}
			defer st.Close()

			runs, err := st.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "RUN ID\tCREATED\tINTEGRAND\tINTERVAL\tN\tESTIMATE\tREFERENCE\tREL. ERROR")
			for _, s := range runs {
				rel := "undefined"
				if s.RelativeError.Valid {
					rel = fmt.Sprintf("%.4f%%", s.RelativeError.Float64*100)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t[%g, %g]\t%d\t%.6f\t%.6f\t%s\n",
					s.RunID, s.CreatedAt.Local().Format(time.DateTime), s.Integrand,
					s.Interval.A, s.Interval.B, s.Samples, s.Estimate, s.Reference, rel)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to list (0 for all)")
	return cmd
}

func newShowCmd(o *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Print one stored run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openHistory(o, cmd.Flags())
			if err != nil {
				return err
			}
			defer st.Close()

			r, err := st.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(r)
		},
	}
}
