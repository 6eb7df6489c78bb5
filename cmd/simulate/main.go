// Command simulate posts scripted recognition traffic at a running rollcall
// instance and reports how the service classified it.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/rollcall/internal/simulate"
	"github.com/okian/rollcall/pkg/logger"
)

const (
	defaultWorkers = 4
	defaultTimeout = 10 * time.Second
	runTimeout     = 5 * time.Minute
)

func main() {
	var (
		baseURL  = flag.String("url", "http://localhost:8080", "base URL of the service")
		scenario = flag.String("scenario", "", "YAML scenario file (empty uses the built-in default)")
		workers  = flag.Int("workers", defaultWorkers, "number of concurrent submitters")
		timeout  = flag.Duration("timeout", defaultTimeout, "per-request HTTP timeout")
		logLevel = flag.String("log-level", "info", "log level: debug, info, warn, error")
		verbose  = flag.Bool("verbose", false, "log every submission")
	)
	flag.Parse()

	if err := logger.Init(*logLevel, "text"); err != nil {
		os.Stderr.WriteString("logger init failed: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	stats, err := simulate.Run(ctx, &simulate.Config{
		BaseURL:      *baseURL,
		ScenarioFile: *scenario,
		Workers:      *workers,
		Timeout:      *timeout,
		Verbose:      *verbose,
	})
	if err != nil {
		logger.Get().Error(ctx, "simulation failed", logger.Error(err))
		os.Exit(1)
	}
	if stats.Failed > 0 {
		os.Exit(1)
	}
}
