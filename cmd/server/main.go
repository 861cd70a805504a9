package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"zombie-horde/internal/api"
	"zombie-horde/internal/config"
	"zombie-horde/internal/horde"
	"zombie-horde/internal/host"
)

func main() {
	if err := godotenv.Load("../.env"); err != nil {
		if err := godotenv.Load(".env"); err != nil {
			log.Println("💡 No .env file found, using environment variables only")
		}
	} else {
		log.Println("✅ Loaded environment from ../.env")
	}

	log.Println("🧟 ================================")
	log.Println("🧟  ZOMBIE HORDE - SIM SERVER")
	log.Println("🧟 ================================")

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Config: %v", err)
	}
	simCfg := appConfig.Sim
	serverCfg := appConfig.Server

	log.Printf("🎮 Config: %d TPS, arena ±%.0f, hard max %d entities, seed %d",
		simCfg.TickRate, simCfg.Arena.HalfExtent, simCfg.Performance.HardMaxEntities, simCfg.Seed)

	// The demo player stands in for a real game client. DEMO_PLAYER=false
	// leaves the player to the HTTP API.
	var driver *host.Driver
	var hooks horde.Hooks = horde.NopHooks{}
	if os.Getenv("DEMO_PLAYER") != "false" {
		driver = host.New(host.DefaultConfig())
		hooks = driver
	}

	engine := horde.NewEngine(simCfg, hooks)
	engine.SetTickObserver(api.RecordTick)
	if driver != nil {
		driver.Attach(engine)
	}

	if serverCfg.EventLogPath != "" {
		if err := engine.StartJournal(serverCfg.EventLogPath); err != nil {
			log.Printf("⚠️ Event log disabled: %v", err)
		} else {
			log.Printf("📝 Event log: %s", serverCfg.EventLogPath)
		}
	}

	api.RegisterEngineMetrics(prometheus.DefaultRegisterer, engine)
	if appConfig.Observability.Enabled {
		if err := api.StartDebugServer(appConfig.Observability); err != nil {
			log.Printf("⚠️ Debug server disabled: %v", err)
		}
	}

	if serverCfg.AdminToken != "" {
		log.Println("🔐 Admin token required for wave reset")
	} else {
		log.Println("⚠️ ADMIN_TOKEN not set - wave reset is open")
	}

	server := api.NewServer(engine, serverCfg)

	engine.Start()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if driver != nil {
		go driver.Run(ctx, time.Second/30)
	}

	go func() {
		if err := server.Start(); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	log.Println("✅ Server ready! Press Ctrl+C to stop.")
	<-quit

	log.Println("🛑 Shutting down...")
	cancel()
	shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️ HTTP shutdown: %v", err)
	}
	engine.Stop()
	engine.StopJournal()
	if driver != nil {
		st := driver.Stats()
		log.Printf("📊 Demo player: %d shots, %d hits, %d deaths", st.Shots, st.Hits, st.Deaths)
	}
	log.Println("👋 Goodbye!")
}
