// Package main runs the interactive staff desk client.
package main

import (
	"cmp"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/staffdesk/staffdesk/internal/client/credstore"
	"github.com/staffdesk/staffdesk/internal/client/desk"
	"github.com/staffdesk/staffdesk/internal/client/gateway"
	"github.com/staffdesk/staffdesk/internal/client/shell"
	"github.com/staffdesk/staffdesk/internal/config"
	"github.com/staffdesk/staffdesk/internal/logger"
	"github.com/staffdesk/staffdesk/internal/validation"
)

var (
	version   string
	buildDate string
)

// openBackend builds the credential backend selected by opts. The returned
// func releases it.
func openBackend(ctx context.Context, opts *config.ClientOptions) (credstore.Backend, func(), error) {
	switch opts.Store {
	case config.StoreRedis:
		rb, err := credstore.DialRedisBackend(ctx, opts.RedisAddr, opts.RedisPrefix)
		if err != nil {
			return nil, nil, err
		}
		return rb, func() { _ = rb.Close() }, nil
	case config.StorePostgres:
		pb, err := credstore.OpenPostgresBackend(ctx, opts.StoreDSN)
		if err != nil {
			return nil, nil, err
		}
		return pb, func() { _ = pb.Close() }, nil
	default:
		fb, err := credstore.OpenFileBackend(opts.StorePath)
		if err != nil {
			return nil, nil, err
		}
		return fb, func() {}, nil
	}
}

func main() {
	opts, err := config.ParseClient(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if opts.ShowVersion {
		fmt.Printf("Staff Desk Client\nVersion: %s\nBuild Date: %s\n", cmp.Or(version, "N/A"), cmp.Or(buildDate, "N/A"))
		return
	}

	log := logger.New()
	if err := log.InitToStderr(opts.LogLevel); err != nil {
		fmt.Fprintln(os.Stderr, "failed to init logger:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Log.Sync() }()
	zapLogger := log.Log

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, closeBackend, err := openBackend(ctx, opts)
	if err != nil {
		zapLogger.Fatal("cannot open credential store", zap.String("store", opts.Store), zap.Error(err))
	}
	defer closeBackend()

	store := credstore.New(backend, zapLogger.Named("credstore"))
	if err := store.Migrate(ctx); err != nil {
		zapLogger.Fatal("cannot migrate credential store", zap.Error(err))
	}

	httpClient, err := gateway.NewHTTPClient(opts.CAFile, opts.CertFile, opts.KeyFile, opts.Timeout)
	if err != nil {
		zapLogger.Fatal("cannot build http client", zap.Error(err))
	}
	gw := gateway.New(gateway.Options{
		BaseURL:    opts.BaseURL,
		HTTPClient: httpClient,
		Tokens:     store,
		Retries:    opts.Retries,
		Log:        zapLogger.Named("gateway"),
	})

	p := shell.NewPrompter(os.Stdin, os.Stdout)
	sh := shell.New(nil, p)
	d := desk.New(store, gw, desk.Options{
		Navigator: sh,
		Policy:    validation.PasswordPolicy{Strict: opts.StrictPasswordPolicy},
		Log:       zapLogger,
	})
	defer d.Close()
	sh.SetDesk(d)

	if err := d.Initialize(ctx); err != nil {
		zapLogger.Fatal("cannot restore session", zap.Error(err))
	}
	if u := d.CurrentUser(); u != nil {
		p.Printf("Signed in as %s\n", u.Name)
	}
	p.Println("Type 'help' for a list of commands.")
	sh.Run(ctx)
}
