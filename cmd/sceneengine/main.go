package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AaronLay10/SceneEngine/internal/api"
	"github.com/AaronLay10/SceneEngine/internal/bus"
	"github.com/AaronLay10/SceneEngine/internal/config"
	"github.com/AaronLay10/SceneEngine/internal/events"
	"github.com/AaronLay10/SceneEngine/internal/mqtt"
	"github.com/AaronLay10/SceneEngine/internal/objects"
	"github.com/AaronLay10/SceneEngine/internal/orchestrator"
	"github.com/AaronLay10/SceneEngine/internal/override"
	"github.com/AaronLay10/SceneEngine/internal/scene"
	"github.com/AaronLay10/SceneEngine/internal/script"
	"github.com/AaronLay10/SceneEngine/internal/storage/postgres"
	"github.com/AaronLay10/SceneEngine/internal/storage/sqlite"
	"github.com/AaronLay10/SceneEngine/internal/task"
	"github.com/AaronLay10/SceneEngine/internal/trigger"
	"github.com/AaronLay10/SceneEngine/internal/version"
)

// journal is a persisted override command stream.
type journal interface {
	Load() ([]string, error)
	Append(command string) error
}

func main() {
	configPath := flag.String("config", "config/engine.yaml", "path to engine.yaml")
	flag.Parse()

	events.SetOutput(os.Stdout)

	cfg, err := config.LoadEngineConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load engine.yaml: %v", err)
	}

	hostname, _ := os.Hostname()
	events.Emit("info", "system.startup", "sceneengine starting", map[string]interface{}{
		"engine_id": cfg.Engine.ID,
		"edition":   string(cfg.Engine.Edition),
		"version":   version.Version,
		"hostname":  hostname,
		"pid":       os.Getpid(),
	})

	if err := api.InitAuth(); err != nil {
		log.Fatalf("failed to init auth: %v", err)
	}
	if err := api.InitTLS(); err != nil {
		log.Fatalf("failed to init tls: %v", err)
	}
	api.InitMetrics(cfg.Engine.ID)

	// Overrides: replay the slot, then journal new writes to it.
	store := override.NewStore()
	j, closeJournal := openJournal(cfg)
	defer closeJournal()
	restored, err := orchestrator.RestoreOverrides(j, store)
	if err != nil {
		log.Fatalf("failed to restore overrides: %v", err)
	}
	orchestrator.EmitStartupRestore(restored, cfg.Slot())
	if j != nil {
		store.SetJournal(j)
	}

	// Core.
	profile := cfg.Profile()
	profile.TriggerEffectiveTime = cfg.TriggerEffectiveTime()
	profile.StanceDuration = cfg.StanceDuration()

	b := bus.New()
	b.Register(&objects.PersistHandler{Store: store})
	sched := task.NewScheduler(time.Now())
	runner := script.NewRunner(cfg.ScriptsDir(), b, sched)
	b.Register(runner)

	factory, err := objects.NewFactory(objects.DefaultRegistrations(), profile.TypeAliases)
	if err != nil {
		log.Fatalf("failed to build object factory: %v", err)
	}

	dir := scene.Dir{Root: cfg.SceneDir()}
	rt := orchestrator.NewRuntime(orchestrator.Options{
		Dir:             dir,
		Bus:             b,
		Store:           store,
		Factory:         factory,
		Scripts:         runner,
		Sched:           sched,
		Hub:             trigger.NewHub(),
		Profile:         profile,
		InteractRadius:  cfg.InteractRadius(),
		RelevanceRadius: cfg.Timing.RelevanceRadius,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Collaborators over MQTT. The link is optional: the engine runs without it.
	mqttClient := mqtt.NewClient(cfg.Network.MQTTURL, "sceneengine-"+cfg.Engine.ID)
	monitor := mqtt.NewMonitor(2)
	bridge := mqtt.NewBridge(mqttClient, cfg.TopicPrefix(), rt, monitor)
	b.Register(bridge)
	mqttClient.OnConnect(func() {
		if err := bridge.Resubscribe(); err != nil {
			log.Printf("mqtt: failed to subscribe to %s: %v", bridge.NotifyTopic(), err)
		}
	})
	api.SetMQTTState(false, true)
	go bridge.Run(ctx)
	go mqttClient.Start()
	monitor.Start(time.Second)
	go watchLink(ctx, mqttClient)

	// Operator API.
	server := api.NewServer(rt, store)
	server.Start(cfg.APIPort())

	// Hot reload.
	var watcher *scene.Watcher
	if cfg.Scene.Watch {
		watcher = startWatcher(dir, cfg.ScriptsDir(), rt)
	}

	if err := rt.LoadScene(cfg.Scene.StartLocation, cfg.Scene.StartScene, orchestrator.NoSpawn); err != nil {
		log.Fatalf("failed to load start scene: %v", err)
	}
	api.SetRuntimeReady(true)

	rt.Run(ctx, cfg.FrameInterval())

	events.Emit("info", "system.shutdown", "sceneengine stopping", nil)
	api.SetRuntimeReady(false)
	if watcher != nil {
		_ = watcher.Close()
	}
	monitor.Stop()
	mqttClient.Disconnect()
	events.CloseAllSubscribers()
}

// openJournal opens the configured persistence backend. Memory returns a nil
// journal. Postgres also becomes the event log sink.
func openJournal(cfg *config.EngineConfig) (journal, func()) {
	switch cfg.Backend() {
	case config.BackendSQLite:
		db, err := sqlite.Open(cfg.Persistence.Path)
		if err != nil {
			log.Fatalf("failed to open sqlite save file: %v", err)
		}
		api.SetPostgresState(false, true)
		return db.Journal(cfg.Slot()), func() { _ = db.Close() }
	case config.BackendPostgres:
		pg, err := postgres.New(cfg.Engine.ID)
		if err != nil {
			log.Fatalf("failed to connect to postgres: %v", err)
		}
		events.SetPostgresClient(pg)
		api.SetPostgresState(true, false)
		return pg.Journal(cfg.Slot()), func() {
			events.SetPostgresClient(nil)
			_ = pg.Close()
		}
	default:
		api.SetPostgresState(false, true)
		return nil, func() {}
	}
}

// watchLink mirrors the broker connection into readiness.
func watchLink(ctx context.Context, c *mqtt.Client) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			api.SetMQTTState(c.IsConnected(), true)
		}
	}
}

// startWatcher watches every location directory plus the scripts directory
// and forwards changes to the game loop.
func startWatcher(dir scene.Dir, scriptsDir string, rt *orchestrator.Runtime) *scene.Watcher {
	dirs, err := dir.Locations()
	if err != nil {
		log.Printf("watch: %v", err)
		return nil
	}
	if _, err := os.Stat(scriptsDir); err == nil {
		dirs = append(dirs, scriptsDir)
	}
	w, err := scene.NewWatcher(scene.DefaultQuiet, dirs...)
	if err != nil {
		log.Printf("watch: failed to start: %v", err)
		return nil
	}
	go func() {
		for path := range w.Events {
			p := path
			rt.Post(func() { rt.FileChanged(p) })
		}
	}()
	go func() {
		for err := range w.Errors {
			log.Printf("watch: %v", err)
		}
	}()
	return w
}
