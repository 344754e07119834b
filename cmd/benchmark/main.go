package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime/pprof"

	"code.cloudfoundry.org/clock"
	"github.com/containerd/log"
	"github.com/delaneyj/fiberparty/config"
	"github.com/delaneyj/fiberparty/debug"
	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

const (
	configKey     = "config"
	scenarioKey   = "scenario"
	sizeKey       = "size"
	iterationsKey = "iterations"
	parallelKey   = "parallel"
	logLevelKey   = "log-level"
	logFormatKey  = "log-format"
	profileKey    = "profile"
	dumpKey       = "dump"
)

func main() {
	cmd := &cli.Command{
		Name:  "benchmark",
		Usage: "Reconcile generated keyed lists and report timings",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  configKey,
				Usage: "YAML scenario file; defaults are used when it does not exist",
				Value: "benchmark.yaml",
			},
			&cli.StringSliceFlag{
				Name:  scenarioKey,
				Usage: "Only run the named scenarios",
			},
			&cli.IntFlag{
				Name:  sizeKey,
				Usage: "Override the list size of every scenario",
			},
			&cli.IntFlag{
				Name:  iterationsKey,
				Usage: "Override the iteration count of every scenario",
			},
			&cli.IntFlag{
				Name:  parallelKey,
				Usage: "Scenarios run at once",
			},
			&cli.StringFlag{
				Name:  logLevelKey,
				Usage: "Log level (trace, debug, info, warn, error)",
			},
			&cli.StringFlag{
				Name:  logFormatKey,
				Usage: "Log format (text, json)",
				Value: string(log.TextFormat),
			},
			&cli.StringFlag{
				Name:  profileKey,
				Usage: "Write a CPU profile to this file",
			},
			&cli.BoolFlag{
				Name:  dumpKey,
				Usage: "Print the final tree and effect list of each scenario",
			},
		},
		Action: benchmark,
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.L.WithError(err).Fatal("benchmark failed")
	}
}

func benchmark(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String(configKey))
	if err != nil {
		return err
	}
	if err := applyFlags(cmd, cfg); err != nil {
		return err
	}
	if err := log.SetLevel(cfg.LogLevel); err != nil {
		return err
	}
	if err := log.SetFormat(log.OutputFormat(cmd.String(logFormatKey))); err != nil {
		return err
	}

	if path := cmd.String(profileKey); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			return err
		}
		defer pprof.StopCPUProfile()
	}

	scenarios := cfg.Scenarios
	if names := cmd.StringSlice(scenarioKey); len(names) > 0 {
		scenarios = scenarios[:0:0]
		for _, name := range names {
			sc, err := cfg.Scenario(name)
			if err != nil {
				return err
			}
			scenarios = append(scenarios, sc)
		}
	}

	log.G(ctx).WithField("scenarios", len(scenarios)).Info("warming up")
	results, err := runAll(ctx, scenarios, cfg.Parallel)
	if err != nil {
		return err
	}

	renderTimings(os.Stdout, results)
	renderSummary(os.Stdout, results)
	if cmd.Bool(dumpKey) {
		for _, res := range results {
			fmt.Fprintf(os.Stdout, "\n%s\n", res.scenario.Name)
			debug.WriteTree(os.Stdout, res.tree, res.tree.Get(res.root.Current))
			if res.effects != nil {
				debug.WriteEffects(os.Stdout, res.tree, res.effects)
			}
		}
	}
	return nil
}

func applyFlags(cmd *cli.Command, cfg *config.Config) error {
	if lvl := cmd.String(logLevelKey); lvl != "" {
		cfg.LogLevel = lvl
	}
	if p := int(cmd.Int(parallelKey)); p > 0 {
		cfg.Parallel = p
	}
	size, iterations := int(cmd.Int(sizeKey)), int(cmd.Int(iterationsKey))
	for i := range cfg.Scenarios {
		if size > 0 {
			cfg.Scenarios[i].Size = size
		}
		if iterations > 0 {
			cfg.Scenarios[i].Iterations = iterations
		}
	}
	return cfg.Validate()
}

// runAll runs the scenarios with at most parallel in flight. Each scenario
// owns its arena and writes only its own result slot.
func runAll(ctx context.Context, scenarios []config.Scenario, parallel int) ([]*result, error) {
	results := make([]*result, len(scenarios))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(parallel)
	for i, sc := range scenarios {
		eg.Go(func() error {
			res, err := runScenario(ctx, sc, clock.NewClock())
			if err != nil {
				return err
			}
			results[i] = res
			log.G(ctx).WithField("scenario", sc.Name).Debug("scenario finished")
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func renderTimings(w io.Writer, results []*result) {
	tbl := table.NewWriter()
	tbl.SetTitle("Reconcile")
	tbl.SetOutputMirror(w)
	tbl.AppendHeader(table.Row{"benchmark", "avg", "min", "p75", "p99", "max"})
	for _, res := range results {
		calc := res.metrics
		tbl.AppendRows([]table.Row{
			{
				fmt.Sprintf("%s: %d keys", res.scenario.Name, res.scenario.Size),
				calc.Time.Avg,
				calc.Time.Min,
				calc.Time.P75,
				calc.Time.P99,
				calc.Time.Max,
			},
		})
	}
	tbl.Render()
}

func renderSummary(w io.Writer, results []*result) {
	summary := tablewriter.NewWriter(w)
	summary.SetHeader([]string{
		"scenario",
		"mode",
		"iterations",
		"placements",
		"deletions",
		"nodes",
	})
	for _, res := range results {
		mode := "sync"
		if res.scenario.Concurrent {
			mode = "concurrent"
		}
		summary.Append([]string{
			res.scenario.Name,
			mode,
			humanize.Comma(int64(res.scenario.Iterations)),
			humanize.Comma(int64(res.placements)),
			humanize.Comma(int64(res.deletions)),
			humanize.Comma(int64(res.nodes)),
		})
	}
	summary.Render()
}
