package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/redis/go-redis/v9"
	"github.com/tgienger/nudge/internal/config"
	"github.com/tgienger/nudge/internal/db"
	"github.com/tgienger/nudge/internal/notify"
	"github.com/tgienger/nudge/internal/reminder"
	"github.com/tgienger/nudge/internal/store"
	"github.com/tgienger/nudge/internal/ui"
)

// Version information set via ldflags
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: nudge [--config path] [watch]\n\n")
	fmt.Fprintf(os.Stderr, "  (no command)  open the task list\n")
	fmt.Fprintf(os.Stderr, "  watch         send reminders without the UI until interrupted\n\n")
	flag.PrintDefaults()
}

func main() {
	configPath := flag.String("config", "", "config file (default $XDG_CONFIG_HOME/nudge/config.yaml)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.BoolVar(showVersion, "v", false, "print version and exit")
	flag.Usage = usage
	flag.Parse()

	if *showVersion {
		fmt.Printf("nudge %s (commit: %s, built: %s)\n", version, commit, date)
		os.Exit(0)
	}

	command := flag.Arg(0)
	if command != "" && command != "watch" {
		usage()
		os.Exit(2)
	}

	if *configPath == "" {
		p, err := config.DefaultPath()
		if err != nil {
			fatal("locating config", err)
		}
		*configPath = p
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		fatal("loading config", err)
	}

	dataDir, err := config.DataDir()
	if err != nil {
		fatal("creating data directory", err)
	}

	// Initialize database
	database, err := db.New(dataDir)
	if err != nil {
		fatal("initializing database", err)
	}
	defer database.Close()

	slot, closeSlot, err := openSlot(cfg, database)
	if err != nil {
		fatal("opening task storage", err)
	}
	defer closeSlot()

	policy, err := reminder.ParsePolicy(cfg.Reminders.Policy)
	if err != nil {
		fatal("reading reminder policy", err)
	}

	perms := notify.LoadPermissions(database)
	tasks := store.New(slot)
	evaluator := reminder.NewEvaluator(tasks, buildDispatcher(cfg, perms), policy)

	if command == "watch" {
		log.SetPrefix("nudge ")
		tasks.Load(context.Background())
		if perms.Permission() != notify.Granted {
			log.Printf("notifications are %s; run nudge once to allow them", perms.Permission())
		}
		if err := runWatch(evaluator, reminder.Reloaders{tasks, perms}, cfg.Reminders.Interval()); err != nil {
			fatal("watching reminders", err)
		}
		return
	}

	logFile, err := tea.LogToFile(cfg.LogPath(dataDir), "nudge")
	if err != nil {
		fatal("opening log file", err)
	}
	defer logFile.Close()

	tasks.Load(context.Background())

	// Create and run the application
	app := ui.NewApp(ui.Options{
		Store:       tasks,
		Evaluator:   evaluator,
		Permissions: perms,
		Settings:    database,
		Clock:       reminder.RealClock{},
		Interval:    cfg.Reminders.Interval(),
	})
	p := tea.NewProgram(app, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		fatal("running application", err)
	}
}

func fatal(what string, err error) {
	fmt.Fprintf(os.Stderr, "Error %s: %v\n", what, err)
	os.Exit(1)
}

// openSlot picks the persistence backend for the task snapshot
func openSlot(cfg *config.Config, database *db.DB) (store.Slot, func(), error) {
	switch cfg.Storage.Backend {
	case config.BackendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr: cfg.Storage.RedisAddr,
			DB:   cfg.Storage.RedisDB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, nil, fmt.Errorf("redis %s: %w", cfg.Storage.RedisAddr, err)
		}
		return store.NewRedisSlot(rdb, cfg.Storage.Key), func() { rdb.Close() }, nil
	default:
		return database.Slot(cfg.Storage.Key), func() {}, nil
	}
}

// buildDispatcher assembles the enabled notification outputs behind the permission gate
func buildDispatcher(cfg *config.Config, perms *notify.Permissions) notify.Dispatcher {
	outputs := notify.Multi{notify.Logger{}}
	if cfg.Notifications.Desktop {
		outputs = append(outputs, notify.Desktop{})
	}
	if cfg.Notifications.Sound {
		outputs = append(outputs, &notify.Chime{Volume: cfg.Notifications.Volume})
	}
	return notify.Gate{Permissions: perms, Next: outputs}
}

// runWatch evaluates until interrupted. reloader refreshes tasks and the
// notification permission before every tick, so answers saved in the UI apply.
func runWatch(evaluator *reminder.Evaluator, reloader reminder.Reloader, interval time.Duration) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("watching reminders every %s", interval)
	w := reminder.NewWatcher(evaluator, reloader, reminder.RealClock{}, interval)
	return w.Run(ctx)
}
