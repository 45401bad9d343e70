package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/larder/internal/calendar"
	"git.home.luguber.info/inful/larder/internal/config"
	"git.home.luguber.info/inful/larder/internal/daemon"
	"git.home.luguber.info/inful/larder/internal/ingredient"
	"git.home.luguber.info/inful/larder/internal/report"
	"git.home.luguber.info/inful/larder/internal/stats"
	"git.home.luguber.info/inful/larder/internal/store"
	"git.home.luguber.info/inful/larder/internal/version"
)

var CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"larder.yaml"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Daemon struct{} `cmd:"" help:"Run the larder daemon: change monitoring, notifications, cleanup sweeps and the admin API"`

	Init struct {
		Force bool `help:"Overwrite existing configuration file"`
	} `cmd:"" help:"Initialize a new configuration file"`

	Add struct {
		Name     string  `arg:"" help:"Ingredient name"`
		Category string  `help:"Category (dairy, produce, ...)" default:"other"`
		Location string  `help:"Storage location" default:"pantry"`
		Quantity float64 `help:"Quantity" default:"1"`
		Unit     string  `help:"Unit" default:"pc"`
		Bought   string  `help:"Purchase date (YYYY-MM-DD)"`
		Expires  string  `help:"Expiration date (YYYY-MM-DD)"`
	} `cmd:"" help:"Add an ingredient to the collection"`

	List struct{} `cmd:"" help:"List the collection with derived statuses"`

	Use struct {
		ID   string `arg:"" help:"Ingredient id"`
		Undo bool   `help:"Lift the used override and recompute status"`
	} `cmd:"" help:"Mark (or un-mark) an ingredient as used"`

	Remove struct {
		ID string `arg:"" help:"Ingredient id"`
	} `cmd:"" help:"Delete an ingredient"`

	Stats struct {
		Timeframe string `short:"t" help:"all, week, month, quarter or year" default:"all"`
	} `cmd:"" help:"Show collection statistics"`

	Trend struct {
		Timeframe string `short:"t" help:"week, month, quarter or year" default:"week"`
	} `cmd:"" help:"Show the recent freshness score trend"`

	Check struct{} `cmd:"" help:"Run a one-shot status check and print transitions"`

	Sweep struct{} `cmd:"" help:"Delete used items stale since before this week"`

	Report struct {
		Timeframe string `short:"t" help:"all, week, month, quarter or year" default:"week"`
		Output    string `short:"o" help:"Report output directory (defaults to config value)"`
	} `cmd:"" help:"Generate a freshness report (Markdown + HTML)"`

	Version struct{} `cmd:"" help:"Print version information"`
}

func main() {
	ctx := kong.Parse(&CLI)

	if ctx.Command() == "version" {
		fmt.Printf("larder %s (commit %s, built %s)\n", version.Version, version.GitCommit, version.BuildTime)
		return
	}

	cfg, err := config.Load(CLI.Config)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	setupLogging(cfg)

	var cmdErr error
	switch ctx.Command() {
	case "daemon":
		cmdErr = runDaemon(cfg)
	case "init":
		cmdErr = config.Init(CLI.Config, CLI.Init.Force)
	case "add <name>":
		cmdErr = runAdd(cfg)
	case "list":
		cmdErr = runList(cfg)
	case "use <id>":
		cmdErr = runUse(cfg)
	case "remove <id>":
		cmdErr = runRemove(cfg)
	case "stats":
		cmdErr = runStats(cfg)
	case "trend":
		cmdErr = runTrend(cfg)
	case "check":
		cmdErr = runCheck(cfg)
	case "sweep":
		cmdErr = runSweep(cfg)
	case "report":
		cmdErr = runReport(cfg)
	default:
		cmdErr = fmt.Errorf("unknown command: %s", ctx.Command())
	}

	if cmdErr != nil {
		slog.Error("Command failed", "command", ctx.Command(), "error", cmdErr)
		os.Exit(1)
	}
}

func setupLogging(cfg *config.Config) {
	level := slog.LevelInfo
	switch cfg.Log.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if CLI.Verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Log.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func runDaemon(cfg *config.Config) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	d, err := daemon.New(cfg)
	if err != nil {
		return err
	}
	if err := d.Start(ctx); err != nil {
		return err
	}
	if err := d.WatchSettings(ctx, CLI.Config); err != nil {
		slog.Warn("Settings hot-reload unavailable", "error", err)
	}

	slog.Info("Daemon running, waiting for shutdown signal")
	<-ctx.Done()
	slog.Info("Shutdown signal received, stopping daemon")

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	return d.Stop(stopCtx)
}

// openStore opens the configured SQLite store for one-shot commands.
func openStore(cfg *config.Config) (store.Store, error) {
	return store.NewSQLiteStore(cfg.Store.Path, cfg.Settings, nil)
}

func runAdd(cfg *config.Config) error {
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	item := ingredient.New(
		CLI.Add.Name,
		CLI.Add.Category,
		CLI.Add.Location,
		CLI.Add.Quantity,
		CLI.Add.Unit,
		ingredient.ParseDate(CLI.Add.Bought),
		ingredient.ParseDate(CLI.Add.Expires),
	)

	added, err := st.Add(context.Background(), item)
	if err != nil {
		return err
	}
	fmt.Printf("%s  %s (%s, %.4g %s) expires %s\n",
		added.ID, added.Name, added.Status, added.Quantity, added.Unit, formatDate(added.ExpirationDate))
	return nil
}

func runList(cfg *config.Config) error {
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	items, err := st.List(context.Background())
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Println("collection is empty")
		return nil
	}

	for _, item := range items {
		fmt.Printf("%s  %-20s %-11s score %.2f  expires %s  (%s, %s)\n",
			item.ID, item.Name, item.Status, item.FreshnessScore,
			formatDate(item.ExpirationDate), item.Category, item.Location)
	}
	return nil
}

func runUse(cfg *config.Config) error {
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	item, err := st.SetUsed(context.Background(), CLI.Use.ID, !CLI.Use.Undo)
	if err != nil {
		return err
	}
	fmt.Printf("%s  %s is now %s\n", item.ID, item.Name, item.Status)
	return nil
}

func runRemove(cfg *config.Config) error {
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	return st.Delete(context.Background(), CLI.Remove.ID)
}

func runStats(cfg *config.Config) error {
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	tf, err := parseTimeframe(CLI.Stats.Timeframe)
	if err != nil {
		return err
	}

	items, err := st.List(context.Background())
	if err != nil {
		return err
	}
	summary := stats.New(cfg.Settings).Aggregate(items, tf, time.Now())

	fmt.Printf("timeframe %s (%s to %s)\n", summary.Timeframe,
		formatDate(summary.Window.Start), formatDate(summary.Window.End))
	fmt.Printf("  total %d: %d fresh, %d near expiry, %d expired, %d used\n",
		summary.Total, summary.Fresh, summary.NearExpiry, summary.Expired, summary.Used)
	fmt.Printf("  freshness score %.2f, waste %.1f%%\n", summary.FreshnessScore, summary.WastePercentage)
	printBreakdown(os.Stdout, "category", summary.ByCategory)
	printBreakdown(os.Stdout, "location", summary.ByLocation)
	return nil
}

// printBreakdown writes a sorted label-count listing; empty maps print
// nothing.
func printBreakdown(w io.Writer, name string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	labels := make([]string, 0, len(counts))
	for label := range counts {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	fmt.Fprintf(w, "  by %s:\n", name)
	for _, label := range labels {
		fmt.Fprintf(w, "    %s: %d\n", label, counts[label])
	}
}

func runTrend(cfg *config.Config) error {
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	tf, err := parseTimeframe(CLI.Trend.Timeframe)
	if err != nil {
		return err
	}

	items, err := st.List(context.Background())
	if err != nil {
		return err
	}
	for _, p := range stats.New(cfg.Settings).Trend(items, tf, time.Now()) {
		fmt.Printf("%s  %3d items  score %.2f\n", formatDate(p.Window.Start), p.Items, p.Score)
	}
	return nil
}

func runCheck(cfg *config.Config) error {
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	svc, err := daemon.NewService(daemon.ServiceConfig{Store: st})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	changes, err := svc.CheckStored(ctx)
	if err != nil {
		return err
	}
	if len(changes) == 0 {
		fmt.Println("no status changes")
		return nil
	}
	for _, c := range changes {
		fmt.Printf("%s  %s: %s -> %s (%s)\n", c.ItemID, c.ItemName, c.OldStatus, c.NewStatus, c.ChangeType)
	}
	return nil
}

func runSweep(cfg *config.Config) error {
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	cutoff := calendar.WeekStart(time.Now())
	deleted, err := st.SweepUsed(context.Background(), cutoff)
	if err != nil {
		return err
	}
	fmt.Printf("deleted %d stale used item(s) older than %s\n", deleted, formatDate(cutoff))
	return nil
}

func runReport(cfg *config.Config) error {
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	tf, err := parseTimeframe(CLI.Report.Timeframe)
	if err != nil {
		return err
	}
	outDir := CLI.Report.Output
	if outDir == "" {
		outDir = cfg.Report.OutputDir
	}

	items, err := st.List(context.Background())
	if err != nil {
		return err
	}

	gen := report.NewGenerator(cfg.Settings, nil)
	rep, err := gen.Build(items, tf)
	if err != nil {
		return err
	}
	mdPath, htmlPath, err := gen.WriteFiles(rep, outDir)
	if err != nil {
		return err
	}
	fmt.Printf("report written: %s, %s\n", mdPath, htmlPath)
	return nil
}

func parseTimeframe(raw string) (calendar.Timeframe, error) {
	tf := calendar.Timeframe(strings.ToLower(raw))
	if !tf.Valid() {
		return "", fmt.Errorf("unknown timeframe %q (want all, week, month, quarter or year)", raw)
	}
	return tf, nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return t.Format(ingredient.DateLayout)
}
