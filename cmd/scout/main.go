package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"jobscout-engine/internal/config"
	"jobscout-engine/internal/dedupe"
	"jobscout-engine/internal/domain"
	"jobscout-engine/internal/ledger"
	"jobscout-engine/internal/scrape"
	"jobscout-engine/internal/scrape/adzuna"
	"jobscout-engine/internal/scrape/authenticjobs"
	"jobscout-engine/internal/scrape/emailalerts"
	"jobscout-engine/internal/scrape/greenhouse"
	"jobscout-engine/internal/scrape/lever"
	"jobscout-engine/internal/scrape/remoteok"
	"jobscout-engine/internal/scrape/types"
	"jobscout-engine/internal/scrape/util"
	"jobscout-engine/internal/scrape/weworkremotely"
)

// output is the run report printed to stdout; everything else goes to stderr
// via log so the two streams stay separable.
type output struct {
	Jobs    []domain.Job   `json:"jobs"`
	Summary scrape.Summary `json:"summary"`
	Message string         `json:"message"`
}

func main() {
	dataDir := os.Getenv("JOBSCOUT_DATA_DIR")
	if dataDir == "" {
		dataDir = "."
	}

	defaultCfg := flag.String("defaults", filepath.Join("config", "config.yml"), "default config copied on first run")
	flag.Parse()

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		log.Fatal(err)
	}

	userCfgPath, err := config.EnsureUserConfig(dataDir, *defaultCfg)
	if err != nil {
		log.Fatalf("config bootstrap failed: %v", err)
	}

	raw, err := config.Load(userCfgPath)
	if err != nil {
		log.Fatalf("config load failed (%s): %v", userCfgPath, err)
	}
	cfg, res := config.NormalizeAndValidate(raw)
	for _, w := range res.Warnings {
		log.Printf("[config] warning: %s", w)
	}
	if !res.OK() {
		for _, e := range res.Errors {
			log.Printf("[config] error: %s", e)
		}
		os.Exit(1)
	}

	rules := ledger.LoadRules(cfg.Limits.OverridesPath)
	led, err := ledger.Open(filepath.Join(dataDir, "ratelimit"), rules)
	if err != nil {
		log.Fatalf("ledger open: %v", err)
	}
	defer func() {
		if err := led.Close(); err != nil {
			log.Printf("[scout] ledger close: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	jobs, summary := run(ctx, cfg, led)
	if jobs == nil {
		jobs = []domain.Job{}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(output{Jobs: jobs, Summary: summary, Message: summary.Message()}); err != nil {
		log.Printf("[scout] encode output: %v", err)
	}

	if summary.Status == scrape.StatusAllFailed {
		// os.Exit skips defers; Close is idempotent so the explicit call is safe
		if err := led.Close(); err != nil {
			log.Printf("[scout] ledger close: %v", err)
		}
		os.Exit(2)
	}
}

func run(ctx context.Context, cfg config.Config, led *ledger.Ledger) ([]domain.Job, scrape.Summary) {
	limiter := util.NewHostLimiter(2, 2)

	fetchers := []types.Fetcher{
		remoteok.New(limiter),
		weworkremotely.New(limiter),
		greenhouse.New(boards(cfg.Boards.Greenhouse), limiter),
		lever.New(leverBoards(cfg.Boards.Lever), limiter),
		adzuna.New(adzuna.Config{Country: cfg.Adzuna.Country, PageSize: cfg.Adzuna.PageSize}),
		authenticjobs.New(authenticjobs.Config{}),
	}
	if cfg.Email.Enabled {
		fetchers = append(fetchers, emailalerts.New(emailalerts.Config{
			Host:     cfg.Email.IMAPHost,
			Port:     cfg.Email.IMAPPort,
			Username: cfg.Email.Username,
			Mailbox:  cfg.Email.Mailbox,
			Subjects: cfg.Email.SearchSubjectAny,
			Max:      cfg.Email.MaxMessages,
		}))
	}

	queries := make([]types.Query, 0, len(cfg.Searches))
	for _, s := range cfg.Searches {
		queries = append(queries, types.Query{Source: s.Source, Terms: s.Terms, Location: s.Location})
	}

	o := scrape.New(led, dedupe.New(cfg.Dedupe), cfg.App.Workers, fetchers...)
	return o.Run(ctx, queries)
}

func boards(bs []config.Board) []greenhouse.Company {
	out := make([]greenhouse.Company, 0, len(bs))
	for _, b := range bs {
		out = append(out, greenhouse.Company{Slug: b.Slug, Name: b.Name})
	}
	return out
}

func leverBoards(bs []config.Board) []lever.Company {
	out := make([]lever.Company, 0, len(bs))
	for _, b := range bs {
		out = append(out, lever.Company{Slug: b.Slug, Name: b.Name})
	}
	return out
}
