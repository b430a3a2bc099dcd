package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"chronicler/internal/cmdlog"
	"chronicler/internal/config"
	"chronicler/internal/ledger"
	"chronicler/internal/lock"
	"chronicler/internal/schedule"
	"chronicler/internal/store/journal"
	"chronicler/internal/theme"
)

const defaultConfigPath = "./chronicler.yaml"

func main() {
	_ = godotenv.Load()

	cmd, args := "run", os.Args[1:]
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	var err error
	switch cmd {
	case "run":
		err = cmdRun(args)
	case "requests":
		err = cmdRequests(args)
	case "watch":
		err = cmdWatch(args)
	case "stats":
		err = cmdStats(args)
	case "init":
		err = cmdInit(args)
	case "help":
		printHelp()
	default:
		printHelp()
		os.Exit(2)
	}
	if err != nil {
		os.Exit(1)
	}
}

func printHelp() {
	theme.PrintBanner(os.Stdout)
	fmt.Println("Usage: chronicler [command] [options]")
	fmt.Println("Commands:")
	fmt.Println("  run         One pass over the followed users (default)")
	fmt.Println("  requests    Answer #screenshot and #ftb mentions once")
	fmt.Println("  watch       Run passes on the configured cron schedule")
	fmt.Println("  stats       Summarize the run journal")
	fmt.Println("  init        Write a default config and empty ledgers")
	fmt.Println("Options:")
	fmt.Println("  -config     config path (env CHRONICLER_CONFIG, default " + defaultConfigPath + ")")
}

func configFlag(fs *flag.FlagSet) *string {
	def := os.Getenv("CHRONICLER_CONFIG")
	if def == "" {
		def = defaultConfigPath
	}
	return fs.String("config", def, "config path")
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func cmdRun(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	cfgPath := configFlag(fs)
	_ = fs.Parse(args)

	a, err := newApp(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return err
	}
	defer a.Close()
	ctx, cancel := signalContext()
	defer cancel()

	return cmdlog.Run(a.logger, "run", func() error {
		return a.locked(ctx, func(ctx context.Context) error {
			_, err := a.runner.RunOnce(ctx)
			return err
		})
	})
}

func cmdRequests(args []string) error {
	fs := flag.NewFlagSet("requests", flag.ExitOnError)
	cfgPath := configFlag(fs)
	_ = fs.Parse(args)

	a, err := newApp(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return err
	}
	defer a.Close()
	ctx, cancel := signalContext()
	defer cancel()

	return cmdlog.Run(a.logger, "requests", func() error {
		return a.locked(ctx, func(ctx context.Context) error {
			_, err := a.requests.RunOnce(ctx)
			return err
		})
	})
}

func cmdWatch(args []string) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	cfgPath := configFlag(fs)
	spec := fs.String("cron", "", "cron spec, overrides schedule.cron")
	_ = fs.Parse(args)

	a, err := newApp(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return err
	}
	defer a.Close()
	if *spec == "" {
		*spec = a.cfg.Schedule.Cron
	}
	ctx, cancel := signalContext()
	defer cancel()

	s := schedule.New(a.logger, a.cfg.Schedule.Timeout)
	err = s.Add("run", *spec, func(ctx context.Context) error {
		return cmdlog.Run(a.logger, "run", func() error {
			return a.locked(ctx, func(ctx context.Context) error {
				_, err := a.runner.RunOnce(ctx)
				return err
			})
		})
	})
	if err == nil && a.cfg.Schedule.IncludeRequests {
		err = s.Add("requests", *spec, func(ctx context.Context) error {
			return cmdlog.Run(a.logger, "requests", func() error {
				return a.locked(ctx, func(ctx context.Context) error {
					_, err := a.requests.RunOnce(ctx)
					return err
				})
			})
		})
	}
	if err != nil {
		a.logger.Error("invalid schedule", "err", err)
		return err
	}
	return s.Run(ctx)
}

func cmdStats(args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	cfgPath := configFlag(fs)
	since := fs.Duration("since", 24*time.Hour, "window to summarize")
	list := fs.String("list", "", "also list events of this type (e.g. reply, capture_failed)")
	_ = fs.Parse(args)

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return err
	}
	db, err := journal.Open(cfg.Paths.DBPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return err
	}
	defer db.Close()

	ctx := context.Background()
	counts, err := db.CountByType(ctx, time.Now().Add(-*since))
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return err
	}
	types := make([]string, 0, len(counts))
	for t := range counts {
		types = append(types, t)
	}
	sort.Strings(types)
	fmt.Printf("Events in the last %s:\n", *since)
	for _, t := range types {
		fmt.Printf("  %-15s %d\n", t, counts[t])
	}
	if last, ok, err := db.LastEvent(ctx, journal.TypeRun); err == nil && ok {
		fmt.Printf("Last pass: %s (run %s) %v\n", last.TS.Format(time.RFC3339), last.RunID, last.Fields)
	}
	if *list == "" {
		return nil
	}
	now := time.Now()
	events, err := db.LoadEventsRange(ctx, now.Add(-*since), now.Add(time.Second), *list)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return err
	}
	for _, e := range events {
		fmt.Printf("%s  @%-16s %-20s %v\n", e.TS.Format(time.RFC3339), e.User, e.TweetID, e.Fields)
	}
	return nil
}

func cmdInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	path := fs.String("path", defaultConfigPath, "path to write config")
	_ = fs.Parse(args)

	cfg := config.Default()
	if err := config.Save(*path, cfg); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return err
	}
	for _, p := range []string{cfg.Paths.UsersFile, cfg.Paths.RepliedLedger, cfg.Paths.RequestsLedger} {
		f := ledger.Open(p)
		if f.Exists() {
			fmt.Println("Kept existing:", p)
			continue
		}
		if err := f.Touch(); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			return err
		}
	}
	if err := os.MkdirAll(cfg.Paths.CursorDir, 0o755); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return err
	}
	abs, _ := filepath.Abs(*path)
	theme.PrintBanner(os.Stdout)
	fmt.Println("Config written to:", abs)
	return nil
}

// isHeld reports a lock held by another instance, which is not a failure.
func isHeld(err error) bool { return errors.Is(err, lock.ErrHeld) }
