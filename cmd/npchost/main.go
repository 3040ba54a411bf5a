// Package main runs the NPC host: it loads the world and NPC definitions,
// spawns every NPC against the simulated host and drives their schedules
// from the game clock.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/npcmod/internal/config"
	"github.com/cory-johannsen/npcmod/internal/content"
	"github.com/cory-johannsen/npcmod/internal/game/clock"
	"github.com/cory-johannsen/npcmod/internal/game/npc"
	"github.com/cory-johannsen/npcmod/internal/host/sim"
	"github.com/cory-johannsen/npcmod/internal/observability"
	"github.com/cory-johannsen/npcmod/internal/scripting"
	"github.com/cory-johannsen/npcmod/internal/server"
	"github.com/cory-johannsen/npcmod/internal/storage/postgres"
)

// healthInterval is how often the inbox database is pinged.
const healthInterval = 30 * time.Second

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting npc host",
		zap.String("world", cfg.Host.WorldFile),
		zap.String("npc_dir", cfg.Content.NPCDir),
	)

	// Load world and definitions
	loadStart := time.Now()
	bundle, err := content.Load(cfg.Host.WorldFile, cfg.Content.NPCDir)
	if err != nil {
		logger.Fatal("loading content", zap.Error(err))
	}
	if err := bundle.Check(); err != nil {
		// Spawn isolates each broken NPC; the rest still run.
		logger.Warn("content references unresolved", zap.Error(err))
	}
	logger.Info("content loaded",
		zap.String("world", bundle.World.World().Name),
		zap.Int("buildings", bundle.World.BuildingCount()),
		zap.Int("npcs", len(bundle.Definitions)),
		zap.Duration("elapsed", time.Since(loadStart)),
	)

	// Optional message persistence
	var hostOpts []sim.Option
	hostOpts = append(hostOpts, sim.WithLogger(logger))
	var pool *postgres.Pool
	if cfg.Database.Enabled {
		dbStart := time.Now()
		pool, err = postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			logger.Fatal("connecting to database", zap.Error(err))
		}
		defer pool.Close()
		hostOpts = append(hostOpts, sim.WithInbox(pool.Inbox()))
		logger.Info("database connected",
			zap.String("host", cfg.Database.Host),
			zap.Duration("elapsed", time.Since(dbStart)),
		)
	}
	h := sim.New(bundle.World, hostOpts...)

	scriptMgr := scripting.NewManager(logger)
	defer scriptMgr.Close()

	npcMgr, err := npc.NewManager(h.Ports(), logger, npc.WithScripts(scriptMgr))
	if err != nil {
		logger.Fatal("creating npc manager", zap.Error(err))
	}
	if err := bundle.Register(npcMgr); err != nil {
		logger.Fatal("registering npc definitions", zap.Error(err))
	}
	if cfg.Content.ScriptDir != "" {
		if err := npcMgr.LoadScripts(cfg.Content.ScriptDir, cfg.Content.InstructionLimit); err != nil {
			logger.Fatal("loading npc scripts", zap.Error(err))
		}
	}
	if err := npcMgr.ResolveConnections(bundle.World.KnownNPC); err != nil {
		logger.Warn("unresolved relationship connections", zap.Error(err))
	}
	h.SetRoleDispatcher(npcMgr.Dispatch)

	spawnStart := time.Now()
	entities, err := npcMgr.SpawnAll()
	if err != nil {
		logger.Warn("some npcs failed setup", zap.Error(err))
	}
	logger.Info("npcs spawned",
		zap.Int("count", len(entities)),
		zap.Duration("elapsed", time.Since(spawnStart)),
	)

	// Clock and schedule driver
	gameClock := clock.NewGameClock(cfg.Host.Start(), cfg.Host.MinutesPerTick, cfg.Host.TickInterval)
	ticks := make(chan clock.MilitaryTime, 1)
	gameClock.Subscribe(ticks)
	tickDone := make(chan struct{})

	lifecycle := server.NewLifecycle(logger)
	lifecycle.Add("game-clock", server.NewBackgroundService(gameClock.Start))
	lifecycle.Add("npc-ticker", &server.FuncService{
		StartFn: func() error {
			runTicks(npcMgr, gameClock.Now(), ticks, tickDone, logger)
			return nil
		},
		StopFn: func() {
			gameClock.Unsubscribe(ticks)
			close(tickDone)
		},
	})
	if pool != nil {
		lifecycle.Add("inbox-health", server.NewLoopService(healthInterval, func(ctx context.Context) error {
			if err := pool.Health(ctx, 5*time.Second); err != nil {
				logger.Warn("inbox database unhealthy", zap.Error(err))
			}
			return nil
		}))
	}

	logger.Info("npc host ready",
		zap.Stringer("game_time", gameClock.Now()),
		zap.Strings("services", lifecycle.Names()),
		zap.Duration("startup", time.Since(start)),
	)
	if err := lifecycle.Run(ctx); err != nil {
		logger.Error("npc host stopped with error", zap.Error(err))
	}

	npcMgr.Shutdown()
	logger.Info("npc host stopped",
		zap.Int("messages_sent", len(h.Messages())),
		zap.Float64("balance", h.Balance()),
	)
}

// runTicks evaluates every NPC schedule at start and then on each game clock
// tick until done is closed.
func runTicks(mgr *npc.Manager, start clock.MilitaryTime, ticks <-chan clock.MilitaryTime, done <-chan struct{}, logger *zap.Logger) {
	tick := func(now clock.MilitaryTime) {
		for _, tr := range mgr.Tick(now) {
			fields := []zap.Field{
				zap.String("npc", tr.NPC),
				zap.String("instance", tr.InstanceID),
				zap.Stringer("at", now),
				zap.String("action", string(tr.Entry.Action.Kind())),
				zap.Stringer("until", tr.Until),
			}
			if tr.Entry.Resolved != nil {
				fields = append(fields, zap.String("target", tr.Entry.Resolved.Name))
			}
			logger.Info("npc schedule transition", fields...)
		}
	}
	tick(start)
	for {
		select {
		case <-done:
			return
		case now := <-ticks:
			tick(now)
		}
	}
}
