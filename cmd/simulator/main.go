package main

import (
	"context"
	"encoding/json"
	"flag"
	"net/http"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/runwaylabs/arrival-simulator/core"
	"github.com/runwaylabs/arrival-simulator/fleet"
	"github.com/runwaylabs/arrival-simulator/internal/history"
	"github.com/runwaylabs/arrival-simulator/internal/logging"
	"github.com/runwaylabs/arrival-simulator/internal/observability"
	"github.com/runwaylabs/arrival-simulator/internal/report"
)

func main() {
	scenarioPath := flag.String("scenario", "", "path to a scenario file (.json or .yaml); defaults when empty")
	runs := flag.Int("runs", 1, "number of replications to run")
	seed := flag.Int64("seed", 0, "base seed; replication i runs with seed+i (0 uses the scenario seed)")
	metricsAddr := flag.String("metrics-addr", "", "listen address for Prometheus metrics (empty disables)")
	historyPath := flag.String("history", "", "write the first replication's trajectory archive to this path")
	historyJSON := flag.Bool("history-json", false, "export the trajectory archive as JSON instead of msgpack")

	flag.Parse()

	logger := logging.NewFromEnv()
	ctx := logging.ContextWithLogger(context.Background(), logger)

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), logger)
	if err != nil {
		logger.Warn(ctx, "tracing disabled", logging.Any("error", err.Error()))
	} else {
		defer observability.ShutdownWithTimeout(ctx, shutdownTracing, logger)
	}

	cfg := core.DefaultConfig()
	if *scenarioPath != "" {
		loaded, err := core.LoadScenarioFile(*scenarioPath)
		if err != nil {
			logger.Error(ctx, "loading scenario",
				logging.Any("error", err.Error()),
				logging.String("path", *scenarioPath))
			os.Exit(1)
		}
		cfg = loaded
	}

	collector, err := observability.NewSimCollector(nil)
	if err != nil {
		logger.Error(ctx, "registering metrics", logging.Any("error", err.Error()))
		os.Exit(1)
	}
	runMetrics, err := observability.NewRunCollector(nil)
	if err != nil {
		logger.Error(ctx, "registering run metrics", logging.Any("error", err.Error()))
		os.Exit(1)
	}
	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", collector.Handler())
			logger.Info(ctx, "serving metrics", logging.String("addr", *metricsAddr))
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				logger.Error(ctx, "metrics server stopped", logging.Any("error", err.Error()))
			}
		}()
	}

	engine, err := core.NewEngine(cfg,
		core.WithLogger(logger),
		core.WithMetricsRecorder(collector),
		core.WithFleetObserver(func(ev fleet.Event) {
			if ev.Type != fleet.EventLanded && ev.Type != fleet.EventDiverted {
				return
			}
			logger.Info(ctx, "aircraft "+ev.Type.String(),
				logging.Int("aircraft", ev.AircraftID),
				logging.Int("minute", ev.Minute),
				logging.Int("delay_min", ev.DelayMin),
			)
		}),
	)
	if err != nil {
		logger.Error(ctx, "invalid configuration", logging.Any("error", err.Error()))
		os.Exit(1)
	}

	baseSeed := *seed
	if baseSeed == 0 {
		baseSeed = cfg.Seed
	}

	tracer := otel.Tracer("cmd/simulator")
	results := make([]*core.RunResult, 0, *runs)
	for i := 0; i < *runs; i++ {
		runSeed := baseSeed + int64(i)
		runScoped, runLog := logging.WithRunLogger(ctx, logger, i)
		runCtx, span := tracer.Start(runScoped, "simulation.run",
			trace.WithAttributes(
				attribute.Int64("sim.seed", runSeed),
				attribute.Int("sim.replication", i),
			))

		runMetrics.RunStarted()
		started := time.Now()
		res, err := engine.RunSeeded(runCtx, runSeed)
		runMetrics.RunFinished(time.Since(started), err)
		span.End()
		if err != nil {
			runLog.Error(runCtx, "run failed",
				logging.Any("error", err.Error()),
				logging.Int64("seed", runSeed))
			os.Exit(1)
		}
		results = append(results, res)

		runLog.Info(runCtx, "run complete",
			logging.Int64("seed", runSeed),
			logging.Int("landed", res.Landed),
			logging.Int("diverted", res.Diverted),
			logging.Int("airborne_at_end", res.AirborneAtEnd),
		)
	}

	if *historyPath != "" && len(results) > 0 {
		ar := history.FromResult(results[0], baseSeed)
		if err := writeHistory(*historyPath, ar, *historyJSON); err != nil {
			logger.Error(ctx, "writing trajectory archive",
				logging.Any("error", err.Error()),
				logging.String("path", *historyPath))
			os.Exit(1)
		}
		logger.Info(ctx, "trajectory archive written", logging.String("path", *historyPath))
	}

	summary := report.Aggregate(results)
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		logger.Error(ctx, "printing summary", logging.Any("error", err.Error()))
		os.Exit(1)
	}
}

func writeHistory(path string, ar *history.Archive, asJSON bool) error {
	if !asJSON {
		return history.WriteArchiveFile(path, ar)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := history.ExportJSON(f, ar); err != nil {
		return err
	}
	return f.Close()
}
