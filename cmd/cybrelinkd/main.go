package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cybrelink/server/internal/config"
	coresys "github.com/cybrelink/server/internal/core/system"
	"github.com/cybrelink/server/internal/data"
	"github.com/cybrelink/server/internal/handler"
	gonet "github.com/cybrelink/server/internal/net"
	"github.com/cybrelink/server/internal/net/packet"
	"github.com/cybrelink/server/internal/persist"
	"github.com/cybrelink/server/internal/system"
	"github.com/cybrelink/server/internal/world"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(serverName string) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m           Cybrelink  v0.1.0               \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m      多人駭客模擬 · Go 遊戲伺服器         \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1m伺服器:\033[0m %s\n\n", serverName)
}

func printSection(title string) {
	// Use rune count for CJK width calculation (each CJK char = 2 columns)
	displayWidth := 0
	for _, r := range title {
		if r > 0x7F {
			displayWidth += 2
		} else {
			displayWidth++
		}
	}
	lineLen := 46 - displayWidth - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	// Use display width for CJK characters
	displayWidth := 0
	for _, r := range label {
		if r > 0x7F {
			displayWidth += 2
		} else {
			displayWidth++
		}
	}
	dotsLen := 42 - displayWidth - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main server logic ─────────────────────────────────────────────

func run() error {
	// 1. Load config, then let flags override it
	cfgPath := "config/server.toml"
	if p := os.Getenv("CYBRELINK_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	port := flag.Int("port", 0, "listen port (overrides config)")
	maxPlayers := flag.Int("max-players", 0, "connection cap (overrides config)")
	supaURL := flag.String("url", "", "Supabase project URL (overrides config)")
	supaKey := flag.String("key", "", "Supabase anon key (overrides config)")
	seedFile := flag.String("seed", "", "YAML seed world (overrides config)")
	flag.Parse()

	if *port != 0 {
		cfg.Network.Port = *port
	}
	if *maxPlayers != 0 {
		cfg.Network.MaxPlayers = *maxPlayers
	}
	if *supaURL != "" {
		cfg.Supabase.URL = *supaURL
	}
	if *supaKey != "" {
		cfg.Supabase.AnonKey = *supaKey
	}
	if *seedFile != "" {
		cfg.World.SeedFile = *seedFile
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Server.Name)

	// 3. Backend adapter
	printSection("後端")
	store, err := persist.New(cfg.Supabase.URL, cfg.Supabase.AnonKey, log)
	if err != nil {
		return fmt.Errorf("supabase: %w", err)
	}
	if store.Enabled() {
		printOK("Supabase 連線設定完成")
	} else {
		printOK("離線模式 (未設定 Supabase)")
	}
	fmt.Println()

	// 4. Build the world
	printSection("世界載入")

	seed := cfg.World.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	worldState := world.NewState(seed)
	gameClock := world.NewClock()
	gameClock.Activate()

	agentHandles := world.DefaultAgentHandles()
	if cfg.World.SeedFile != "" {
		sw, err := data.LoadSeed(cfg.World.SeedFile)
		if err != nil {
			return fmt.Errorf("seed world: %w", err)
		}
		computers, accounts, missions := sw.Apply(worldState)
		printStat("主機 (種子)", computers)
		printStat("帳戶 (種子)", accounts)
		printStat("任務 (種子)", missions)
		if len(sw.AgentHandles) > 0 {
			agentHandles = sw.AgentHandles
		}
	}
	if store.Enabled() {
		computers, accounts, missions, err := persist.LoadWorld(store, worldState)
		if err != nil {
			log.Warn("後端世界載入失敗，使用現有資料", zap.Error(err))
		} else {
			printStat("主機 (後端)", computers)
			printStat("帳戶 (後端)", accounts)
			printStat("任務 (後端)", missions)
		}
	}

	npcCount := worldState.SpawnAgents(cfg.World.NPCCount, agentHandles)
	printStat("NPC 特工", npcCount)
	fmt.Println()

	// 5. Packet registry and handlers
	sessions := gonet.NewSessionStore()
	flusher := persist.NewFlusher(store, log)

	pktReg := packet.NewRegistry(log)
	deps := &handler.Deps{
		Config:   cfg,
		Log:      log,
		World:    worldState,
		Clock:    gameClock,
		Store:    store,
		Flusher:  flusher,
		Sessions: sessions,
	}
	handler.RegisterAll(pktReg, deps)

	// 6. Network server
	netServer, err := gonet.NewServer(
		fmt.Sprintf(":%d", cfg.Network.Port),
		cfg.Network.InQueueSize,
		cfg.Network.OutQueueSize,
		log,
	)
	if err != nil {
		return fmt.Errorf("net server: %w", err)
	}
	go netServer.AcceptLoop()

	// 7. Tick systems: game cadence simulates, network cadence talks
	clockSys := system.NewClockSystem(gameClock)

	gameRunner := coresys.NewRunner()
	gameRunner.Register(clockSys)
	gameRunner.Register(system.NewAgentSystem(deps, clockSys))
	gameRunner.Register(system.NewPersistenceSystem(deps))

	netRunner := coresys.NewRunner()
	netRunner.Register(system.NewInputSystem(deps, pktReg, netServer))
	netRunner.Register(system.NewTimeoutSystem(deps))
	netRunner.Register(system.NewSyncSystem(deps))

	// 8. Run the flush worker and the tick loop
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	gameTick := time.Second / time.Duration(cfg.Network.GameTickHz)
	netTick := time.Second / time.Duration(cfg.Network.NetworkTickHz)

	printSection("伺服器就緒")
	printReady(fmt.Sprintf("監聽位址 %s", netServer.Addr().String()))
	printReady(fmt.Sprintf("遊戲時間 %s", gameClock.String()))
	printReady(fmt.Sprintf("遊戲迴圈啟動 (game: %s / net: %s)", gameTick, netTick))
	fmt.Println()

	var eg errgroup.Group
	eg.Go(func() error {
		return flusher.Run(ctx)
	})
	eg.Go(func() error {
		defer cancel()
		return tickLoop(ctx, gameRunner, netRunner, gameTick, netTick, shutdownCh, deps, netServer)
	})
	return eg.Wait()
}

// tickLoop drives both runners from a single goroutine, which is what lets
// the world get away with one coarse lock: all game logic happens here.
func tickLoop(
	ctx context.Context,
	gameRunner, netRunner *coresys.Runner,
	gameTick, netTick time.Duration,
	shutdownCh <-chan os.Signal,
	deps *handler.Deps,
	netServer *gonet.Server,
) error {
	gameTicker := time.NewTicker(gameTick)
	defer gameTicker.Stop()
	netTicker := time.NewTicker(netTick)
	defer netTicker.Stop()

	for {
		select {
		case <-gameTicker.C:
			gameRunner.Tick(gameTick)
		case <-netTicker.C:
			netRunner.Tick(netTick)
		case sig := <-shutdownCh:
			deps.Log.Info("收到關閉信號", zap.String("signal", sig.String()))
			shutdown(deps, netServer)
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// shutdown notifies everyone, stops the listener, and writes the final save
// synchronously — the flush worker may already be winding down.
func shutdown(deps *handler.Deps, netServer *gonet.Server) {
	deps.Sessions.ForEach(func(sess *gonet.Session) {
		handler.Disconnect(deps, sess, "Server shutting down")
	})
	netServer.Shutdown()

	ds := deps.World.SnapshotDirty()
	if !ds.Empty() {
		deps.Flusher.Flush(ds)
	}
	deps.Log.Info("伺服器已停止")
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
