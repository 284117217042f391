package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/k0kubun/go-ansi"
	"github.com/schollz/progressbar/v3"

	"github.com/tmx-tools/tmx-downloader/internal/config"
	"github.com/tmx-tools/tmx-downloader/internal/download"
	"github.com/tmx-tools/tmx-downloader/internal/tmx"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run executes the command with args and returns the exit status. Deferred
// cleanup finishes before main exits.
func run(args []string) int {
	fs := flag.NewFlagSet("tmx-dl", flag.ContinueOnError)
	// Command line flags
	var (
		urlFlag            = fs.String("url", "", "TMX search link or trackpack id")
		outputFlag         = fs.String("output", "", "Output directory (overrides config)")
		configFlag         = fs.String("config", "", "Path to config file (JSON or YAML, default $"+config.EnvConfigPath+")")
		siteFlag           = fs.String("site", "", "Exchange host or base URL, e.g. tmuf.exchange")
		limitFlag          = fs.String("limit", "", "Number of tracks to download, or \"all\"")
		shuffleFlag        = fs.Bool("shuffle", false, "Download tracks in random order")
		concurrencyFlag    = fs.Int("concurrency", 0, "Parallel downloads (overrides config)")
		playlistFlag       = fs.Bool("playlist", false, "Create playlist file")
		playlistFormatFlag = fs.String("playlist-format", "", "Playlist format: txt, csv or matchsettings")
		metadataFlag       = fs.Bool("metadata", false, "Save track metadata to tracks.json")
		verboseFlag        = fs.Bool("verbose", false, "Show verbose output")
		dryRunFlag         = fs.Bool("dry-run", false, "List tracks without downloading")
		helpQueryFlag      = fs.Bool("help-query", false, "Describe the search link keywords and exit")
	)

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if *helpQueryFlag {
		printQueryHelp()
		return 0
	}

	input := *urlFlag
	if input == "" && fs.NArg() > 0 {
		input = fs.Arg(0)
	}

	if input == "" {
		fmt.Println("TMX Downloader - Download tracks from TrackMania Exchange")
		fmt.Println()
		fmt.Println("Usage:")
		fmt.Println("  tmx-dl -url <search link | trackpack id> [options]")
		fmt.Println("  tmx-dl [options] <search link | trackpack id>")
		fmt.Println()
		fmt.Println("For interactive mode, use: tmx-tui")
		fmt.Println("For the search keywords, use: tmx-dl -help-query")
		fmt.Println()
		fs.PrintDefaults()
		return 1
	}

	level := slog.LevelInfo
	if *verboseFlag {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	_ = godotenv.Load()

	// Load config
	configPath := *configFlag
	if configPath == "" {
		configPath = config.DefaultPath()
	}
	settings, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		return 1
	}
	slog.Debug("settings loaded", "path", configPath)

	// Apply flags
	settings.SetOutputFolder(config.ExpandHome(*outputFlag))
	if *siteFlag != "" {
		settings.Exchange = *siteFlag
	}
	if *limitFlag != "" {
		n, err := config.ParseTrackCount(*limitFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		settings.MaxTracks = n
	}
	if *shuffleFlag {
		settings.Shuffle = true
	}
	if *concurrencyFlag > 0 {
		settings.MaxConcurrentDownloads = *concurrencyFlag
	}
	if *playlistFlag {
		settings.CreatePlaylist = true
	}
	if *playlistFormatFlag != "" {
		settings.PlaylistFormat = *playlistFormatFlag
	}
	if *metadataFlag {
		settings.SaveMetadata = true
	}

	if err := settings.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid settings:\n%v\n", err)
		return 1
	}

	// Handle interrupts
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := &console{verbose: *verboseFlag}
	manager := download.NewManager(settings, out.print)

	fmt.Println("TMX Downloader")
	fmt.Println()

	if err := manager.Initialize(ctx, input); err != nil {
		if ctx.Err() != nil {
			fmt.Println("\nCancelled.")
			return 130
		}
		if errors.Is(err, download.ErrNoTracks) {
			fmt.Println("No tracks match this search.")
			return 1
		}
		fmt.Fprintf(os.Stderr, "Error initializing: %v\n", err)
		return 1
	}

	pack := manager.Pack()
	if *dryRunFlag {
		fmt.Printf("\n[Dry run - %d tracks would be saved to %s]\n", len(pack.Tracks), pack.Path)
		for _, track := range pack.Tracks {
			fmt.Printf("  %8d  %s\n", track.ID, track.FileName())
		}
		return 0
	}

	fmt.Printf("\nDownloading %d tracks to %s\n\n", len(pack.Tracks), pack.Path)

	bar := newProgressBar(len(pack.Tracks))
	out.setBar(bar)

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(200 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				out.setProgress(manager.GetProgress().Done())
			}
		}
	}()

	err = manager.StartDownloads(ctx)
	close(done)
	out.setProgress(manager.GetProgress().Done())
	out.setBar(nil)

	if err != nil {
		if ctx.Err() != nil {
			fmt.Println("\nDownload cancelled.")
			return 130
		}
		fmt.Fprintf(os.Stderr, "\nError during download: %v\n", err)
		return 1
	}

	stats := manager.GetProgress()
	fmt.Println()
	fmt.Printf("Complete! %d downloaded, %d skipped, %d failed (%.2f MB)\n",
		stats.Downloaded, stats.Skipped, stats.Failed, float64(stats.ReceivedBytes)/1024/1024)
	if stats.Failed > 0 {
		return 1
	}
	return 0
}

func newProgressBar(total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(
		total,
		progressbar.OptionSetWriter(ansi.NewAnsiStdout()),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetTheme(progressbar.ThemeASCII),
		progressbar.OptionFullWidth(),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("[cyan]Downloading tracks...[reset]"),
	)
}

// console prints manager events above the progress bar.
type console struct {
	mu      sync.Mutex
	verbose bool
	bar     *progressbar.ProgressBar
}

func (c *console) setBar(bar *progressbar.ProgressBar) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if bar == nil && c.bar != nil {
		c.bar.Finish()
	}
	c.bar = bar
}

func (c *console) setProgress(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bar != nil {
		c.bar.Set(n)
	}
}

func (c *console) print(event download.ProgressEvent) {
	if event.Level == download.LevelVerbose && !c.verbose {
		return
	}

	prefix := ""
	switch event.Level {
	case download.LevelError:
		prefix = "[x] "
	case download.LevelWarning:
		prefix = "[!] "
	case download.LevelSuccess:
		prefix = "[+] "
	case download.LevelInfo:
		prefix = "[i] "
	default:
		prefix = "    "
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bar != nil {
		c.bar.Clear()
	}
	fmt.Println(prefix + event.Message)
	if c.bar != nil {
		c.bar.RenderBlank()
	}
}

func printQueryHelp() {
	fmt.Println("Search link keywords:")
	fmt.Println()
	for _, kw := range tmx.SearchHelp {
		fmt.Printf("  %-24s %s\n", kw.Keyword, kw.Description)
	}
	fmt.Println()
	fmt.Println("Examples:")
	for _, link := range tmx.ExampleLinks {
		fmt.Println("  " + link)
	}
	fmt.Println()
	fmt.Println("A number instead of a link downloads that trackpack.")
}
