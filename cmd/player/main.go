package main

import (
	"bufio"
	"context"
	"flag"
	"interactiveplayer/internal/clock"
	"interactiveplayer/internal/config"
	"interactiveplayer/internal/content"
	"interactiveplayer/internal/graph"
	"interactiveplayer/internal/logger"
	"interactiveplayer/internal/overlay"
	"interactiveplayer/internal/session"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"
)

// trailingMs keeps the simulated media running a little past the last moment.
const trailingMs = 1000

func main() {
	// 1. Parse command-line arguments
	configFile := flag.String("c", "", "Path to the YAML config file (optional)")
	mediaDir := flag.String("d", "", "Directory holding the video and its moments JSON (overrides config)")
	logLevel := flag.String("L", "", "Log level (error, warn, info, debug); overrides config")
	durationMs := flag.Int64("duration", 0, "Media length in ms (0 = last moment end + 1s)")
	flag.Parse()

	console := overlay.NewConsole(os.Stdout)

	// 2. Load configuration
	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.NewLogger("error", "json").Errorf("Failed to load configuration: %v", err)
		os.Exit(1)
	}
	if *mediaDir != "" {
		cfg.MediaDir = *mediaDir
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	// 3. Initialize logger
	log := logger.NewLogger(cfg.LogLevel, cfg.LogFormat)
	log.Infof("Starting interactive player in %s", cfg.MediaDir)

	// 4. Resolve and parse content
	pair, err := content.Resolve(cfg.MediaDir)
	if err != nil {
		log.Errorf("Failed to resolve content: %v", err)
		console.Fatal(err)
		os.Exit(1)
	}
	log.Infof("Playing %s with moments from %s", pair.VideoPath, pair.DocumentPath)

	res, err := graph.ParseFile(pair.DocumentPath, graph.Options{RequireSingleVideo: cfg.RequireSingleVideo})
	if err != nil {
		log.Errorf("Failed to parse moments: %v", err)
		console.Fatal(err)
		os.Exit(1)
	}
	for _, issue := range res.Issues {
		log.Warnf("Moment graph issue: %s", issue)
	}
	if len(res.VideoIDs) > 1 {
		log.Warnf("Document carries moments for %d videos (%s); playing them as one timeline", len(res.VideoIDs), strings.Join(res.VideoIDs, ", "))
	}

	if *durationMs <= 0 {
		*durationMs = res.Catalog.MaxEndMs() + trailingMs
	}

	// 5. Run the session until playback ends, the viewer quits or a signal arrives
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sess := session.New(log, session.Options{
		PollInterval:  cfg.PollInterval,
		Lookahead:     cfg.Lookahead,
		CommandBuffer: cfg.CommandBuffer,
	}, res, console)

	lines := make(chan string)
	go scanLines(os.Stdin, lines, ctx.Done())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return sess.Run(gctx, clock.FileSource{Path: pair.VideoPath, DurationMs: *durationMs})
	})
	g.Go(func() error {
		readCommands(gctx, lines, console, sess, log, cancel)
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Errorf("Session failed: %v", err)
		console.Fatal(err)
		os.Exit(1)
	}
	log.Infof("Player exited gracefully")
}

// scanLines forwards input lines until EOF or until done is closed.
// A read already in progress is not interrupted.
func scanLines(r io.Reader, out chan<- string, done <-chan struct{}) {
	defer close(out)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		select {
		case out <- scanner.Text():
		case <-done:
			return
		}
	}
}

// readCommands turns viewer input into session commands:
// a number picks a shown choice, "s <ms>" seeks, "q" quits.
func readCommands(ctx context.Context, lines <-chan string, console *overlay.Console, sess *session.Session, log logger.Logger, quit context.CancelFunc) {
	for {
		var line string
		var ok bool
		select {
		case <-ctx.Done():
			return
		case line, ok = <-lines:
			if !ok {
				return
			}
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch {
		case fields[0] == "q":
			quit()
			return
		case fields[0] == "s" && len(fields) == 2:
			ms, err := strconv.ParseInt(fields[1], 10, 64)
			if err != nil {
				log.Warnf("Invalid seek target %q", fields[1])
				continue
			}
			if err := sess.Seek(ms); err != nil {
				log.Warnf("Seek rejected: %v", err)
			}
		default:
			n, err := strconv.Atoi(fields[0])
			if err != nil {
				log.Warnf("Unknown command %q", line)
				continue
			}
			choice, found := console.Choice(n)
			if !found {
				log.Warnf("No choice %d on screen", n)
				continue
			}
			if err := sess.Choose(choice); err != nil {
				log.Warnf("Choice rejected: %v", err)
			}
		}
	}
}
