package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/gmsas95/medicinett/internal/adherence"
	"github.com/gmsas95/medicinett/internal/api"
	"github.com/gmsas95/medicinett/internal/config"
	"github.com/gmsas95/medicinett/internal/report"
	"github.com/gmsas95/medicinett/internal/scheduler"
	"github.com/gmsas95/medicinett/internal/store"
)

var (
	configPath = flag.String("config", "", "Path to config file")
	dataDir    = flag.String("data", "", "Path to data directory")
	version    = "dev"
)

// App holds the application components
type App struct {
	config    *config.Config
	store     *store.Store
	engine    *adherence.Engine
	builder   *report.Builder
	scheduler *scheduler.Trigger
	logger    *zap.Logger
}

func main() {
	// Handle subcommands before flag parsing
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "seed":
			handleSeedCommand(os.Args[2:])
			return
		case "sweep":
			handleSweepCommand(os.Args[2:])
			return
		case "report":
			handleReportCommand(os.Args[2:])
			return
		case "help", "--help", "-h":
			printExtendedHelp()
			return
		case "version", "--version", "-v":
			fmt.Printf("Medicinett version %s\n", version)
			return
		}
	}

	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Starting Medicinett", zap.String("version", version))

	cfg, err := config.Load(*configPath, *dataDir)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	st, err := store.Open(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize store", zap.Error(err))
	}
	defer st.Close()

	app := &App{
		config:  cfg,
		store:   st,
		engine:  adherence.New(st, logger),
		builder: report.New(st, logger),
		logger:  logger,
	}

	app.runServer()
}

func (app *App) runServer() {
	if app.config.Scheduler.Enabled {
		app.scheduler = scheduler.New(app.config.Scheduler, app.engine, app.builder, app.store, app.logger)
		if err := app.scheduler.Start(); err != nil {
			app.logger.Error("Failed to start scheduler", zap.Error(err))
		}
	}

	server := api.New(app.config, app.store, app.engine, app.builder, app.logger)

	go func() {
		if err := server.Start(); err != nil {
			app.logger.Fatal("Server error", zap.Error(err))
		}
	}()

	app.logger.Info("Server started",
		zap.String("address", app.config.Server.Address),
		zap.Int("port", app.config.Server.Port),
		zap.String("url", fmt.Sprintf("http://localhost:%d", app.config.Server.Port)),
	)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	app.logger.Info("Shutting down...")

	if app.scheduler != nil {
		app.scheduler.Stop()
	}

	if err := server.Shutdown(); err != nil {
		app.logger.Error("Server shutdown error", zap.Error(err))
	}
}

// handleSeedCommand resets the registry to the built-in seed medicines
func handleSeedCommand(args []string) {
	_, st, logger := bootstrap(args)
	defer st.Close()
	defer logger.Sync()

	if err := st.SeedMedicines(); err != nil {
		fmt.Printf("Error seeding medicines: %v\n", err)
		os.Exit(1)
	}

	meds, err := st.ListMedicines()
	if err != nil {
		fmt.Printf("Error listing medicines: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Seeded medicines:")
	for _, med := range meds {
		fmt.Printf("  %d. %s at %s (%s)\n", med.MedicineNo, med.Name, med.ScheduledTime, med.TimeSlot)
	}
}

// handleSweepCommand runs the missed sweep for a given day from the CLI
func handleSweepCommand(args []string) {
	fs := flag.NewFlagSet("sweep", flag.ExitOnError)
	date := fs.String("date", "", "Day to sweep, YYYY-MM-DD (default today)")
	fs.Parse(args)

	_, st, logger := bootstrap(fs.Args())
	defer st.Close()
	defer logger.Sync()

	engine := adherence.New(st, logger)
	result, err := engine.RunMissedSweep(context.Background(), *date)
	if err != nil {
		fmt.Printf("Error running sweep: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Sweep complete for %s\n", result.Date)
	fmt.Printf("  Created: %d | Flipped: %d | Untouched: %d | Errors: %d\n",
		result.Created, result.Flipped, result.Untouched, result.Errors)
}

// handleReportCommand prints the rendered daily report for a given day
func handleReportCommand(args []string) {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	date := fs.String("date", "", "Day to report on, YYYY-MM-DD (default today)")
	fs.Parse(args)

	_, st, logger := bootstrap(fs.Args())
	defer st.Close()
	defer logger.Sync()

	builder := report.New(st, logger)
	rep, err := builder.Build(*date)
	if err != nil {
		fmt.Printf("Error building report: %v\n", err)
		os.Exit(1)
	}

	fmt.Print(report.Render(rep))
}

// bootstrap loads config and opens the store for one-shot subcommands
func bootstrap(_ []string) (*config.Config, *store.Store, *zap.Logger) {
	logger, _ := zap.NewDevelopment()

	cfg, err := config.Load("", "")
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	st, err := store.Open(cfg)
	if err != nil {
		fmt.Printf("Error initializing store: %v\n", err)
		os.Exit(1)
	}

	return cfg, st, logger
}

func printExtendedHelp() {
	fmt.Println("Medicinett - Medicine Adherence Tracker")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  medicinett                        Run the HTTP server (default)")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  medicinett seed                   Reset registry to seed medicines")
	fmt.Println("  medicinett sweep [-date <day>]    Mark unrecorded doses as missed")
	fmt.Println("  medicinett report [-date <day>]   Print the daily adherence report")
	fmt.Println("  medicinett version                Show version")
	fmt.Println()
	fmt.Println("Flags:")
	fmt.Println("  --config <path>          Path to config file")
	fmt.Println("  --data <path>            Path to data directory")
	fmt.Println("  --help, -h               Show this help")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  medicinett                                # Start the server")
	fmt.Println("  medicinett sweep -date 2026-03-09         # Sweep a past day")
	fmt.Println("  medicinett report -date 2026-03-09        # Report on a past day")
}
