// Command api serves the extraction engine over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"holdings_extract/pkg/api/extract"
	"holdings_extract/pkg/core/config"
	"holdings_extract/pkg/core/pipeline"
	"holdings_extract/pkg/core/store"
)

func main() {
	godotenv.Load()

	cfg, err := config.Load(os.Getenv("EXTRACT_CONFIG"))
	if err != nil {
		log.Fatalf("[FATAL] %v", err)
	}
	if err := cfg.ApplyEnv(); err != nil {
		log.Fatalf("[FATAL] %v", err)
	}
	overrides, err := config.LoadOverrides(cfg.OverridesPath)
	if err != nil {
		log.Fatalf("[FATAL] %v", err)
	}
	engine, err := pipeline.NewEngine(cfg, overrides)
	if err != nil {
		log.Fatalf("[FATAL] %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	handler := extract.NewHandler(engine, overrides)
	var sinks store.MultiSink
	if os.Getenv("DATABASE_URL") != "" {
		pool, err := store.OpenPool(ctx, "")
		if err != nil {
			log.Fatalf("[FATAL] %v", err)
		}
		defer pool.Close()
		handler.Repo = store.NewPostgresRepo(pool)
		if err := handler.Repo.EnsureSchema(ctx); err != nil {
			log.Fatalf("[FATAL] %v", err)
		}
		sinks = append(sinks, handler.Repo)
	} else {
		fmt.Println("[WARNING] DATABASE_URL not set, /api/report and /api/holdings disabled")
	}
	if dir := os.Getenv("EXTRACT_OUTPUT_DIR"); dir != "" {
		fileSink, err := store.NewFileSink(dir)
		if err != nil {
			log.Fatalf("[FATAL] %v", err)
		}
		sinks = append(sinks, fileSink)
	}
	if len(sinks) > 0 {
		handler.Sink = sinks
	}

	mux := http.NewServeMux()
	handler.Register(mux)

	addr := os.Getenv("EXTRACT_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	fmt.Printf("API server starting on %s...\n", addr)
	fmt.Println("  - POST   /api/extract")
	fmt.Println("  - GET    /api/report?id=")
	fmt.Println("  - GET    /api/holdings?entity=")
	fmt.Println("  - GET    /api/overrides")
	fmt.Println("  - POST   /api/overrides")
	fmt.Println("  - DELETE /api/overrides?cik=")

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		fmt.Printf("[FATAL] Server failed to start: %v\n", err)
		os.Exit(1)
	}
}
