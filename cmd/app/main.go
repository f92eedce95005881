package main

import (
    "context"
    "fmt"
    "net/http"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/rs/zerolog/log"

    cfgpkg "github.com/local/textextract/internal/config"
    "github.com/local/textextract/internal/extract"
    "github.com/local/textextract/internal/filetype"
    logpkg "github.com/local/textextract/internal/logger"
    "github.com/local/textextract/internal/metrics"
    "github.com/local/textextract/internal/notify"
    "github.com/local/textextract/internal/orchestrator"
    "github.com/local/textextract/internal/passwords"
    "github.com/local/textextract/internal/progress"
    "github.com/local/textextract/internal/queue"
    "github.com/local/textextract/internal/statuscheck"
    "github.com/local/textextract/internal/storage"
    web "github.com/local/textextract/internal/web"
)

func main() {
    cfg, _ := cfgpkg.Load()

    // Init logging
    _ = logpkg.Init(logpkg.Options{
        Level: cfg.Logging.Level,
        Pretty: cfg.Logging.Pretty,
        File: cfg.Logging.File,
        MaxSizeMB: cfg.Logging.MaxSizeMB,
        MaxBackups: cfg.Logging.MaxBackups,
        MaxAgeDays: cfg.Logging.MaxAgeDays,
        Compress: cfg.Logging.Compress,
        SendToAxiom: cfg.Axiom.Send && cfg.Axiom.APIKey != "",
        AxiomAPIKey: cfg.Axiom.APIKey,
        AxiomOrgID: cfg.Axiom.OrgID,
        AxiomDataset: cfg.Axiom.Dataset,
        AxiomFlush: cfg.Axiom.FlushInterval,
    })
    defer logpkg.Close()

    metrics.Init()

    ctx := context.Background()

    // Queue database
    qs, err := queue.New(ctx, cfg.Database.DSN())
    if err != nil {
        log.Fatal().Err(err).Msg("failed to connect to postgres")
    }
    defer qs.Close()

    // Object store (local dir or s3:// depending on output root)
    store, err := storage.Select(ctx, cfg.OutputRoot)
    if err != nil {
        log.Fatal().Err(err).Str("root", cfg.OutputRoot).Msg("failed to init object store")
    }

    // Extraction engine with password resolution
    resolver := passwords.NewResolver(cfg.DefaultPDFPassword)
    engine := extract.NewEngine(extract.NewTesseract(), cfg.Extraction.MaxPages, cfg.Extraction.MinTextLength)
    engine.OnPasswordSuccess(func(pdfPath, password string) {
        if err := resolver.SaveSuccessful(pdfPath, password); err != nil {
            log.Warn().Err(err).Str("pdf", pdfPath).Msg("failed to persist password")
        }
    })

    notifier := notify.New(cfg.Service2.Enabled, cfg.Service2.BaseURL, cfg.Service2.Endpoint, cfg.Service2.Timeout)
    tracker := progress.New()

    orch := orchestrator.New(orchestrator.Dependencies{
        Queue:        qs,
        Store:        store,
        Tracker:      tracker,
        Engine:       engine,
        Passwords:    resolver,
        Notifier:     notifier,
        Detector:     filetype.New(),
        DatalakeRoot: cfg.DatalakeRoot,
        Workers:      cfg.Worker.Concurrency,
    })

    s3Bucket := ""
    if s3s, ok := store.(*storage.S3Store); ok {
        s3Bucket = s3s.Bucket()
    }
    checker := statuscheck.New(statuscheck.Options{
        DB:           qs,
        S3Bucket:     s3Bucket,
        DatalakeRoot: cfg.DatalakeRoot,
        OutputRoot:   cfg.OutputRoot,
        Downstream:   cfg.Service2.BaseURL,
    })

    mux := http.NewServeMux()
    api := web.New(tracker, orch, checker)
    api.RegisterRoutes(mux)

    srv := &http.Server{Addr: ":" + cfg.Port, Handler: mux}

    go func(){
        log.Info().Msgf("HTTP server listening on :%s", cfg.Port)
        if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
            log.Fatal().Err(err).Msg("http server error")
        }
    }()

    // Graceful shutdown
    stop := make(chan os.Signal, 1)
    signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
    <-stop
    shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
    defer cancel()
    _ = srv.Shutdown(shutdownCtx)
    fmt.Println("shutdown complete")
}
