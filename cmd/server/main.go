// Package main initializes and starts the SERO-EST server: configuration,
// logging, the key-value store, services, handlers and optional TLS.
package main

import (
	"cmp"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/thunderdz19/sero-est/internal/access"
	"github.com/thunderdz19/sero-est/internal/activity"
	"github.com/thunderdz19/sero-est/internal/auth"
	"github.com/thunderdz19/sero-est/internal/config"
	"github.com/thunderdz19/sero-est/internal/db"
	"github.com/thunderdz19/sero-est/internal/export"
	"github.com/thunderdz19/sero-est/internal/logger"
	"github.com/thunderdz19/sero-est/internal/repository"
	"github.com/thunderdz19/sero-est/internal/server/handler/http"
	"github.com/thunderdz19/sero-est/internal/service"
	"github.com/thunderdz19/sero-est/internal/store"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

// openStore returns the configured key-value backend and a close func.
func openStore(ctx context.Context, o *config.Options) (store.KV, func() error, error) {
	noop := func() error { return nil }
	switch o.Store {
	case config.StoreMemory:
		return store.NewMemory(), noop, nil
	case config.StoreFile:
		fs, err := store.OpenFile(o.StorePath)
		return fs, noop, err
	case config.StorePostgres:
		pg, err := db.InitPostgres(o.DatabaseDSN)
		if err != nil {
			return nil, noop, err
		}
		return store.NewPostgres(pg), pg.Close, nil
	case config.StoreSQLite:
		lite, err := db.OpenSQLite(ctx, o.StorePath)
		if err != nil {
			return nil, noop, err
		}
		return store.NewSQLite(lite), lite.Close, nil
	}
	return nil, noop, fmt.Errorf("unknown store %q", o.Store)
}

// exportSink writes documents to ExportDir and, when configured, to MinIO.
func exportSink(ctx context.Context, o *config.Options) (export.Sink, error) {
	sinks := export.MultiSink{export.NewFSSink(afero.NewOsFs(), o.ExportDir)}
	if o.Minio.Enabled() {
		m, err := export.NewMinioSink(ctx, o.Minio.Endpoint, o.Minio.AccessKey, o.Minio.SecretKey, o.Minio.Bucket, o.Minio.UseSSL)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, m)
	}
	return sinks, nil
}

func main() {
	// Parse command-line, file and environment configuration.
	options := config.Parse()

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel); err != nil {
		log.Log.Fatal("failed to init logger", zap.Error(err))
	}
	zapLogger := log.Log

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	kv, closeStore, err := openStore(ctx, options)
	if err != nil {
		zapLogger.Fatal("cannot open store", zap.String("store", options.Store), zap.Error(err))
	}
	defer func() { _ = closeStore() }()

	repo := repository.New(kv, time.Now)
	seeded, err := repo.Init(ctx)
	if err != nil {
		zapLogger.Fatal("cannot seed store", zap.Error(err))
	}
	if len(seeded) > 0 {
		zapLogger.Info("seeded default data", zap.Strings("keys", seeded))
	}

	secret := []byte(options.JWTSecret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			zapLogger.Fatal("cannot generate token secret", zap.Error(err))
		}
		zapLogger.Warn("no jwt secret configured, sessions will not survive a restart")
	}
	tokens := auth.NewTokenManager(secret, time.Duration(options.TokenTTL), time.Now)
	revocations := auth.NewRevocations()
	auth.StartRevocationCleaner(ctx, revocations, 10*time.Minute, zapLogger)

	sink, err := exportSink(ctx, options)
	if err != nil {
		zapLogger.Fatal("cannot configure export sink", zap.Error(err))
	}

	policy := access.NewPolicy(options.MainAdmin)
	recorder := activity.NewRecorder(repo.Logs, time.Now, nil)
	deps := service.Deps{
		Data:   service.FromRepository(repo),
		Policy: policy,
		Log:    recorder,
		Now:    time.Now,
		Logger: zapLogger,
	}

	authService := service.NewAuthService(deps, tokens, revocations, repo)
	reportService := service.NewReportService(deps, &export.Archiver{Sink: sink})
	projectService := service.NewProjectService(deps)
	settingsService := service.NewSettingsService(deps)

	handlers := http.Handlers{
		Auth:    &http.AuthHandler{AuthService: authService},
		Reports: &http.ReportHandler{ReportService: reportService},
		Catalog: &http.CatalogHandler{ProjectService: projectService, SettingsService: settingsService},
		Admin: &http.AdminHandler{
			UserService:     service.NewUserService(deps),
			ProjectService:  projectService,
			SettingsService: settingsService,
			LogService:      service.NewLogService(policy, recorder),
		},
	}
	router := http.NewRouter(handlers, authService, options.CORSOrigins, zapLogger)

	server := &nethttp.Server{
		Addr:              options.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			zapLogger.Error("shutdown failed", zap.Error(err))
		}
	}()

	if options.TLSCert != "" {
		zapLogger.Info("starting HTTPS server", zap.String("addr", options.Port), zap.String("store", options.Store))
		err = server.ListenAndServeTLS(options.TLSCert, options.TLSKey)
	} else {
		zapLogger.Info("starting HTTP server", zap.String("addr", options.Port), zap.String("store", options.Store))
		err = server.ListenAndServe()
	}
	if err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
		zapLogger.Fatal("server failed", zap.Error(err))
	}
	zapLogger.Info("server stopped")
}
