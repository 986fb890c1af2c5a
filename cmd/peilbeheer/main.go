// Command peilbeheer wires up the polder water-level management
// subsystems (network simulation, pump-schedule optimization, the
// time-series store, and the alert rule engine) and runs the
// background job worker until interrupted. It carries no HTTP/REST
// surface; that layer is out of scope.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	peilbeheer "github.com/rijnland-waterbeheer/peilbeheer"
	"github.com/rijnland-waterbeheer/peilbeheer/internal/infrastructure/tracing"
)

func main() {
	var configPath = flag.String("config", "", "optional YAML tuning overlay")
	flag.Parse()

	cfg, err := peilbeheer.LoadConfig(*configPath)
	if err != nil {
		panic(err)
	}

	log := peilbeheer.NewLogger(cfg.LogLevel, cfg.Env)
	log.Info().Str("env", cfg.Env).Str("port", cfg.Port).Msg("starting peilbeheer")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var store peilbeheer.Store
	if cfg.DatabaseDSN != "" {
		pg, err := peilbeheer.NewPostgresStoreWithSchema(ctx, cfg.DatabaseDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize postgres schema")
		}
		defer pg.Close()
		store = pg
		log.Info().Msg("using postgres-backed store")
	} else {
		store = peilbeheer.NewMemoryStore(log, cfg.Tuning.DownsampleQueueDepth)
		log.Info().Msg("using in-memory store")
	}

	levelKey := peilbeheer.SeriesKey{LocationID: "p1", Parameter: "level"}
	if err := store.Register(ctx, peilbeheer.RegisterInput{Key: levelKey, Units: "m", RetentionDays: cfg.Tuning.DefaultRetentionDays}); err != nil {
		log.Error().Err(err).Msg("failed to register level series")
	}

	alertEngine := peilbeheer.NewAlertEngine(log, nil)
	if err := alertEngine.CreateRule(peilbeheer.AlertRule{
		ID:       "high-level-p1",
		Name:     "p1 level above band",
		Category: "level",
		Severity: "warning",
		Conditions: []peilbeheer.AlertCondition{
			{Field: "level_m", Operator: peilbeheer.OpGt, Expected: peilbeheer.ExpectedValue{Type: "number", Number: -0.3}},
		},
		Combinator:      "all",
		Enabled:         true,
		CooldownSeconds: 900,
		TitleTemplate:   "p1 level above band",
		MessageTemplate: "level {{level_m}}m exceeds the target band",
	}); err != nil {
		log.Error().Err(err).Msg("failed to install startup alert rule")
	}

	runtime := peilbeheer.NewJobRuntime(log, cfg.Tuning.JobQueueDepth)
	defer runtime.Shutdown()

	jobID, err := runtime.Submit(func(ctx context.Context) (any, error) {
		params := peilbeheer.OptimizerParams{
			TargetLevelM:    -0.55,
			MaxDischargeM3s: 0.5,
			AreaM2:          250000,
			HeadM:           1.2,
			Efficiency:      0.7,
			MarginM:         0.2,
			StorageFactor:   0.3,
		}
		return peilbeheer.Optimize(ctx, params)
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to submit startup optimization job")
	} else {
		log.Info().Str("job_id", jobID).Msg("submitted startup optimization job")
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	tracing.Disable()
	log.Info().Msg("peilbeheer exited gracefully")
}
