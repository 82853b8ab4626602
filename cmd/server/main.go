package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"buf.build/go/protovalidate"
	"connectrpc.com/connect"

	"github.com/atlekbai/collection_search/internal/config"
	"github.com/atlekbai/collection_search/internal/db"
	"github.com/atlekbai/collection_search/internal/handler"
	"github.com/atlekbai/collection_search/internal/middleware"
	"github.com/atlekbai/collection_search/internal/schema"
	"github.com/atlekbai/collection_search/internal/search"
	"github.com/atlekbai/collection_search/internal/server"
	"github.com/atlekbai/collection_search/internal/service"
)

func fatal(log *slog.Logger, msg string, err error) {
	log.Error(msg, "error", err)
	os.Exit(1)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fatal(slog.Default(), "failed to load config", err)
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(log)

	session, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		fatal(log, "failed to connect to database", err)
	}
	defer session.Close()

	reg, err := schema.LoadFile(cfg.SchemaFile)
	if err != nil {
		fatal(log, "failed to load schema", err)
	}
	log.Info("schema loaded", "file", cfg.SchemaFile, "domains", reg.DomainCount(), "dialect", session.Dialect().Name)

	searcher, err := search.New(reg, session,
		search.WithPreferences(search.Preferences{
			ActiveOnly:    cfg.Search.ActiveOnly,
			MinTermLength: cfg.Search.MinTermLength,
			MaxTerms:      cfg.Search.MaxTerms,
			Dates:         search.DatePrefs{DayFirst: cfg.Search.DayFirst, YearFirst: cfg.Search.YearFirst},
		}),
		search.WithConfirm(search.ContextConfirm),
		search.WithLogger(log),
	)
	if err != nil {
		fatal(log, "failed to create searcher", err)
	}

	if _, err := service.RegisterDescriptor(); err != nil {
		fatal(log, "failed to register service descriptor", err)
	}

	validator, err := protovalidate.New()
	if err != nil {
		fatal(log, "failed to create validator", err)
	}

	interceptors := []connect.Interceptor{
		server.ValidationInterceptor(validator),
		server.LoggingInterceptor(log),
	}

	services := []server.ConnectService{
		service.NewSearchService(searcher, reg),
	}

	// Vanguard transcodes REST (google.api.http annotations) to Connect/gRPC.
	transcoder, err := server.NewTranscoder(services, interceptors...)
	if err != nil {
		fatal(log, "failed to build transcoder", err)
	}

	mux := http.NewServeMux()
	handler.New(searcher, reg).Routes(mux)
	mux.Handle("/", transcoder)

	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: middleware.Chain(mux, middleware.Logging(log), middleware.Recovery(log)),
	}

	go func() {
		<-ctx.Done()
		log.Info("shutting down...")
		srv.Shutdown(context.Background())
	}()

	log.Info("listening", "addr", cfg.Addr())
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		fatal(log, "server error", err)
	}
}
