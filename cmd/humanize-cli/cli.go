package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"
	"time"
	"unicode/utf8"

	"humanizer/internal/client"
	"humanizer/internal/history"
	"humanizer/internal/identity"
	"humanizer/internal/logger"
	"humanizer/internal/models"
	"humanizer/internal/version"
)

// Exit codes.
const (
	exitOK          = 0
	exitError       = 1
	exitUsage       = 2
	exitRateLimited = 3
)

const previewRunes = 40

type app struct {
	server     string
	historyDir string
	deviceKey  string
	timeout    time.Duration

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	log    *slog.Logger
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr}

	fs := flag.NewFlagSet("humanize-cli", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&a.server, "server", envOr("HUMANIZER_SERVER", "http://localhost:8080"), "Humanizer server base URL")
	fs.StringVar(&a.historyDir, "history-dir", os.Getenv("HUMANIZER_HISTORY_DIR"), "Directory for local history (default: user config dir)")
	fs.StringVar(&a.deviceKey, "key", "", "Device key to meter requests under (default: derived from this machine)")
	fs.DurationVar(&a.timeout, "timeout", 60*time.Second, "Request timeout")
	verbose := fs.Bool("verbose", false, "Enable debug logging")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: humanize-cli [flags] humanize|history|delete <id>|clear|status")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	a.log = logger.ForCLI(stderr, *verbose)

	if fs.NArg() == 0 {
		fs.Usage()
		return exitUsage
	}

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "humanize":
		return a.humanize(ctx, rest)
	case "history":
		return a.history(ctx)
	case "delete":
		if len(rest) != 1 {
			fmt.Fprintln(stderr, "usage: humanize-cli delete <id>")
			return exitUsage
		}
		return a.delete(ctx, rest[0])
	case "clear":
		return a.clear(ctx)
	case "status":
		return a.status(ctx)
	case "version":
		fmt.Fprintln(stdout, version.GetInfo())
		return exitOK
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", cmd)
		fs.Usage()
		return exitUsage
	}
}

func (a *app) humanize(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("humanize", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	tone := fs.String("tone", string(models.ToneNeutral), "Tone: neutral, professional, casual, academic, storytelling")
	intensity := fs.Int("intensity", 50, "Rewrite intensity, 0-100")
	text := fs.String("text", "", "Text to humanize (default: read stdin)")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	input := *text
	if input == "" {
		raw, err := io.ReadAll(io.LimitReader(a.stdin, 1<<20))
		if err != nil {
			a.log.Error("Failed to read stdin", "error", err)
			return exitError
		}
		input = string(raw)
	}

	c := a.client(ctx)
	a.checkServer(ctx, c)

	level := float64(*intensity)
	reqCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	resp, err := c.Humanize(reqCtx, models.HumanizeRequest{
		Text:      input,
		Tone:      *tone,
		Intensity: &level,
	})
	if err != nil {
		if apiErr, ok := client.AsAPIError(err); ok {
			fmt.Fprintln(a.stderr, apiErr.Message)
			if apiErr.RateLimited() {
				if apiErr.RetryAfter > 0 {
					fmt.Fprintf(a.stderr, "retry after: %ds\n", apiErr.RetryAfter)
				}
				return exitRateLimited
			}
			return exitError
		}
		a.log.Error("Humanize request failed", "error", err)
		return exitError
	}

	fmt.Fprintln(a.stdout, resp.HumanizedText)
	fmt.Fprintf(a.stderr, "AI detection score: %d%%\n", resp.AIScore)

	store, err := a.historyStore()
	if err != nil {
		a.log.Warn("History unavailable, result not saved", "error", err)
		return exitOK
	}
	aiScore := resp.AIScore
	if _, err := store.Add(ctx, models.HistoryItem{
		OriginalText:  strings.TrimSpace(input),
		HumanizedText: resp.HumanizedText,
		Tone:          models.Tone(*tone),
		Intensity:     *intensity,
		AIScore:       &aiScore,
	}); err != nil {
		a.log.Warn("Failed to save history", "error", err)
	}
	return exitOK
}

func (a *app) history(ctx context.Context) int {
	store, err := a.historyStore()
	if err != nil {
		a.log.Error("History unavailable", "error", err)
		return exitError
	}
	items, err := store.List(ctx)
	if err != nil {
		a.log.Error("Failed to read history", "error", err)
		return exitError
	}
	if len(items) == 0 {
		fmt.Fprintln(a.stdout, "No history.")
		return exitOK
	}

	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tAGE\tTONE\tINTENSITY\tSCORE\tTEXT")
	now := time.Now()
	for _, item := range items {
		scoreText := "-"
		if item.AIScore != nil {
			scoreText = fmt.Sprintf("%d%%", *item.AIScore)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			item.ID,
			now.Sub(item.CreatedAt).Truncate(time.Second),
			item.Tone,
			item.Intensity,
			scoreText,
			preview(item.HumanizedText),
		)
	}
	if err := tw.Flush(); err != nil {
		return exitError
	}
	return exitOK
}

func (a *app) delete(ctx context.Context, id string) int {
	store, err := a.historyStore()
	if err != nil {
		a.log.Error("History unavailable", "error", err)
		return exitError
	}
	removed, err := store.Delete(ctx, id)
	if err != nil {
		a.log.Error("Failed to delete history item", "error", err)
		return exitError
	}
	if !removed {
		fmt.Fprintf(a.stderr, "no history item %s\n", id)
		return exitError
	}
	return exitOK
}

func (a *app) clear(ctx context.Context) int {
	store, err := a.historyStore()
	if err != nil {
		a.log.Error("History unavailable", "error", err)
		return exitError
	}
	if err := store.Clear(ctx); err != nil {
		a.log.Error("Failed to clear history", "error", err)
		return exitError
	}
	return exitOK
}

func (a *app) status(ctx context.Context) int {
	reqCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	health, err := a.client(ctx).Health(reqCtx)
	if err != nil {
		a.log.Error("Server unreachable", "server", a.server, "error", err)
		return exitError
	}

	fmt.Fprintf(a.stdout, "server:  %s\n", a.server)
	fmt.Fprintf(a.stdout, "status:  %s\n", health.Status)
	fmt.Fprintf(a.stdout, "version: %s\n", health.Version)
	if variant, ok := health.Metrics["engine_variant"]; ok {
		fmt.Fprintf(a.stdout, "engine:  %v\n", variant)
	}
	compatible, err := version.Compatible(health.Version, version.ServerConstraint)
	switch {
	case err != nil:
		fmt.Fprintf(a.stdout, "compat:  unknown (%v)\n", err)
	case compatible:
		fmt.Fprintln(a.stdout, "compat:  ok")
	default:
		fmt.Fprintf(a.stdout, "compat:  outside %s\n", version.ServerConstraint)
	}
	return exitOK
}

func (a *app) client(ctx context.Context) *client.Client {
	key := a.deviceKey
	if key == "" {
		key = identity.DeviceFingerprint(ctx, identity.DefaultTimeout)
	}
	return client.New(a.server, client.WithDeviceKey(key))
}

// checkServer warns when the server's version is outside the supported range.
// It never blocks the request.
func (a *app) checkServer(ctx context.Context, c *client.Client) {
	healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	health, err := c.Health(healthCtx)
	if err != nil {
		a.log.Debug("Health check failed", "error", err)
		return
	}
	ok, err := version.Compatible(health.Version, version.ServerConstraint)
	if err != nil {
		a.log.Debug("Server version not comparable", "version", health.Version, "error", err)
		return
	}
	if !ok {
		a.log.Warn("Server version outside supported range",
			"server_version", health.Version,
			"supported", version.ServerConstraint)
	}
}

func (a *app) historyStore() (*history.Store, error) {
	dir := a.historyDir
	if dir == "" {
		var err error
		if dir, err = history.DefaultDir(); err != nil {
			return nil, err
		}
	}
	backend, err := history.NewFileBackend(dir)
	if err != nil {
		return nil, err
	}
	return history.NewStore(backend), nil
}

func preview(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= previewRunes {
		return s
	}
	return string([]rune(s)[:previewRunes-3]) + "..."
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
