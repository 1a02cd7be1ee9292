// Command extract runs the holdings extraction engine over a batch of
// filings, read from a local bundle directory or downloaded from SEC EDGAR,
// and publishes the unified records to an output directory and optionally
// Postgres.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"holdings_extract/pkg/core/config"
	"holdings_extract/pkg/core/ingest"
	"holdings_extract/pkg/core/pipeline"
	"holdings_extract/pkg/core/report"
	"holdings_extract/pkg/core/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env not found, using environment variables")
	}

	configPath := flag.String("config", "", "YAML config file")
	input := flag.String("input", "", "directory of filing bundles")
	ciks := flag.String("cik", "", "comma-separated CIKs to fetch from EDGAR")
	perIssuer := flag.Int("per-issuer", 1, "recent filings per CIK")
	outDir := flag.String("out", "output", "output directory")
	workers := flag.Int("workers", 0, "concurrent filings (default from config)")
	dbURL := flag.String("db", "", "Postgres URL (default DATABASE_URL)")
	useDB := flag.Bool("postgres", false, "also publish to Postgres")
	skipProcessed := flag.Bool("skip-processed", false, "skip filings that already have output")
	flag.Parse()

	if err := run(options{
		configPath:    *configPath,
		input:         *input,
		ciks:          *ciks,
		perIssuer:     *perIssuer,
		outDir:        *outDir,
		workers:       *workers,
		dbURL:         *dbURL,
		useDB:         *useDB || *dbURL != "",
		skipProcessed: *skipProcessed,
	}); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

type options struct {
	configPath    string
	input         string
	ciks          string
	perIssuer     int
	outDir        string
	workers       int
	dbURL         string
	useDB         bool
	skipProcessed bool
}

func run(opts options) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return err
	}
	if opts.workers > 0 {
		cfg.Workers = opts.workers
	}
	overrides, err := config.LoadOverrides(cfg.OverridesPath)
	if err != nil {
		return err
	}
	engine, err := pipeline.NewEngine(cfg, overrides)
	if err != nil {
		return err
	}

	src, err := openSource(cfg, opts)
	if err != nil {
		return err
	}
	refs, err := src.List(ctx)
	if err != nil {
		return fmt.Errorf("list filings: %w", err)
	}

	fileSink, err := store.NewFileSink(opts.outDir)
	if err != nil {
		return err
	}
	// Postgres first; MultiSink retracts earlier sinks when a later one fails.
	var sinks store.MultiSink
	var repo *store.PostgresRepo
	if opts.useDB {
		pool, err := store.OpenPool(ctx, opts.dbURL)
		if err != nil {
			return err
		}
		defer pool.Close()
		repo = store.NewPostgresRepo(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			return err
		}
		sinks = append(sinks, repo)
	}
	sinks = append(sinks, fileSink)

	if opts.skipProcessed {
		refs, err = pending(ctx, refs, fileSink, repo)
		if err != nil {
			return err
		}
	}
	if len(refs) == 0 {
		fmt.Println("Nothing to extract.")
		return nil
	}

	fmt.Printf("Extracting %d filings with %d workers...\n", len(refs), cfg.Workers)
	rep, runErr := engine.RunBatch(ctx, src, refs, sinks, cfg.Workers)
	if rep != nil {
		if err := writeBatchReport(opts.outDir, rep); err != nil {
			log.Printf("Warning: %v", err)
		}
		fmt.Printf("Published %d/%d, flagged %d, structural misses %d, failed %d\n",
			rep.Published, rep.Submitted, rep.Flagged, rep.Structural, len(rep.Failed))
	}
	return runErr
}

func openSource(cfg *config.Config, opts options) (ingest.Source, error) {
	switch {
	case opts.input != "" && opts.ciks != "":
		return nil, fmt.Errorf("use either -input or -cik, not both")
	case opts.input != "":
		return ingest.NewDirSource(opts.input), nil
	case opts.ciks != "":
		var list []string
		for _, c := range strings.Split(opts.ciks, ",") {
			if c = strings.TrimSpace(c); c != "" {
				list = append(list, c)
			}
		}
		return ingest.NewEDGARSource(ingest.EDGAROptions{
			UserAgent:         cfg.EDGAR.UserAgent,
			RequestsPerSecond: cfg.EDGAR.RequestsPerSecond,
			CacheDir:          cfg.EDGAR.CacheDir,
			CIKs:              list,
			PerIssuer:         opts.perIssuer,
		})
	default:
		return nil, fmt.Errorf("one of -input or -cik is required")
	}
}

// pending drops refs that already have output in every configured store.
func pending(ctx context.Context, refs []ingest.FilingRef, files *store.FileSink, repo *store.PostgresRepo) ([]ingest.FilingRef, error) {
	var inDB map[string]bool
	if repo != nil {
		ids := make([]string, len(refs))
		for i, r := range refs {
			ids[i] = r.ID
		}
		var err error
		if inDB, err = repo.Processed(ctx, ids); err != nil {
			return nil, err
		}
	}
	var out []ingest.FilingRef
	for _, r := range refs {
		if files.Processed(r.ID) && (repo == nil || inDB[r.ID]) {
			continue
		}
		out = append(out, r)
	}
	if skipped := len(refs) - len(out); skipped > 0 {
		log.Printf("[Extract] Skipping %d already processed filings", skipped)
	}
	return out, nil
}

func writeBatchReport(dir string, rep *pipeline.BatchReport) error {
	page, err := report.RenderBatchHTML(rep)
	if err != nil {
		return err
	}
	path := filepath.Join(dir, fmt.Sprintf("batch-%s.html", rep.RunID))
	if err := os.WriteFile(path, []byte(page), 0644); err != nil {
		return fmt.Errorf("write batch report: %w", err)
	}
	fmt.Printf("Batch report: %s\n", path)
	return nil
}
