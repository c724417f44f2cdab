// Package main initializes and starts the development staff auth server,
// setting up configuration, logging, database connections, repositories,
// services, handlers, and optional TLS.
package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"go.uber.org/zap"

	"github.com/staffdesk/staffdesk/internal/config"
	"github.com/staffdesk/staffdesk/internal/db"
	"github.com/staffdesk/staffdesk/internal/logger"
	"github.com/staffdesk/staffdesk/internal/middleware"
	"github.com/staffdesk/staffdesk/internal/repository"
	"github.com/staffdesk/staffdesk/internal/server/handler/http"
	"github.com/staffdesk/staffdesk/internal/service"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	// Parse command-line and environment configuration.
	options, err := config.ParseServer(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel); err != nil {
		fmt.Fprintln(os.Stderr, "failed to init logger:", err)
		os.Exit(1)
	}
	zapLogger := log.Log

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize PostgreSQL connection.
	postgresDB, err := db.InitPostgres(options.DatabaseDSN)
	if err != nil {
		zapLogger.Fatal("cannot init database", zap.Error(err))
	}
	defer postgresDB.Close()

	db.StartOTPCleaner(ctx, postgresDB,
		10*time.Minute, // interval
		24*time.Hour,   // retention of expired codes
		zapLogger.Named("cleaner"),
	)

	staffRepo := repository.NewPostgresStaffRepository(postgresDB)
	otpRepo := repository.NewPostgresOTPRepository(postgresDB)
	complaintRepo := repository.NewPostgresComplaintRepository(postgresDB)

	if options.SeedFile != "" {
		roster, err := db.LoadSeed(options.SeedFile)
		if err != nil {
			zapLogger.Fatal("cannot load staff roster", zap.Error(err))
		}
		for _, rec := range roster {
			if err := staffRepo.UpsertStaff(ctx, rec); err != nil {
				zapLogger.Fatal("cannot seed staff", zap.String("staff_id", rec.StaffID), zap.Error(err))
			}
		}
		zapLogger.Info("staff roster loaded", zap.Int("count", len(roster)))
	}

	authService := service.NewStaffAuthService(service.AuthOptions{
		Staff:      staffRepo,
		OTPs:       otpRepo,
		Complaints: complaintRepo,
		Tokens:     service.NewTokenManager(options.JWTSecret, options.AccessTTL, options.RefreshTTL),
		OTPTTL:     options.OTPTTL,
		Log:        zapLogger.Named("auth"),
	})
	complaintService := service.NewComplaintService(complaintRepo, staffRepo, zapLogger.Named("complaints"))

	router := http.NewRouter(
		&http.AuthHandler{AuthService: authService, Log: zapLogger},
		&http.ComplaintHandler{ComplaintService: complaintService, Log: zapLogger},
		authService,
		middleware.NewMetrics("staffdesk"),
		zapLogger,
	)

	server := &nethttp.Server{
		Addr:              options.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if options.CertFile != "" && options.KeyFile != "" {
		zapLogger.Info("starting HTTPS server", zap.String("addr", options.Addr))
		err = server.ListenAndServeTLS(options.CertFile, options.KeyFile)
	} else {
		zapLogger.Info("starting HTTP server", zap.String("addr", options.Addr))
		err = server.ListenAndServe()
	}
	if err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
		zapLogger.Fatal("server stopped", zap.Error(err))
	}
}
