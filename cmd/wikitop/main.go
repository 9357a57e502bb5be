// Command wikitop fetches the most viewed articles of a Wikipedia project
// two days ago, downloads their plain-text extracts and writes them to a
// JSON file ordered by rank.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sternrassler/wikitop/pkg/client"
	"github.com/Sternrassler/wikitop/pkg/config"
	"github.com/Sternrassler/wikitop/pkg/logging"
	"github.com/Sternrassler/wikitop/pkg/metrics"
	"github.com/Sternrassler/wikitop/pkg/pagination"
	"github.com/Sternrassler/wikitop/pkg/pipeline"
	"github.com/Sternrassler/wikitop/pkg/wiki"
	"github.com/spf13/pflag"
)

// deps lets tests point the run at a mock server and pin the clock.
type deps struct {
	wikiOptions     []wiki.Option
	pipelineOptions []pipeline.Option
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr, deps{})
	stop()
	os.Exit(code)
}

// run executes one fetch and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer, d deps) int {
	start := time.Now()

	cfg, err := config.Load(args)
	if errors.Is(err, pflag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "wikitop: %v\n", err)
		return 1
	}

	logCfg := cfg.Logging()
	logCfg.Output = stderr
	logging.Setup(logCfg)
	logger := logging.NewLogger("main")

	p, err := newPipeline(cfg, d)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to set up")
		return 1
	}

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	_, runErr := p.Run(ctx)

	if cfg.MetricsFile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsFile, nil); err != nil {
			logger.Warn().Err(err).Msg("Failed to write metrics")
		}
	}

	if runErr != nil {
		logger.Error().Err(runErr).Msg("Run failed")
		return 1
	}

	fmt.Fprintf(stdout, "Done in %.2f seconds\n", time.Since(start).Seconds())
	return 0
}

func newPipeline(cfg *config.Config, d deps) (*pipeline.Pipeline, error) {
	gateway, err := client.New(cfg.Client())
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}

	wc := wiki.NewClient(gateway, d.wikiOptions...)
	fetcher := pagination.NewContentFetcher(wc, pagination.DefaultConfig())

	return pipeline.New(wc, fetcher, cfg.Pipeline(), d.pipelineOptions...)
}
