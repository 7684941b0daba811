package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/alnah/go-eform"
	"github.com/alnah/go-eform/internal/assets"
	"github.com/alnah/go-eform/internal/callback"
	"github.com/alnah/go-eform/internal/server"
	"github.com/alnah/go-eform/internal/store"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 15 * time.Second
)

func newServeCmd(a *app) *cobra.Command {
	var (
		sf serveFlags
		rf renderFlags
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the document server callbacks",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			sf.apply(cmd.Flags(), a.cfg)
			rf.apply(cmd.Flags(), a.cfg)
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			ln, err := net.Listen("tcp", a.cfg.Server.Addr)
			if err != nil {
				return fmt.Errorf("listening on %s: %w", a.cfg.Server.Addr, err)
			}
			return a.serve(cmd.Context(), ln)
		},
	}
	addServeFlags(cmd.Flags(), &sf)
	addRenderFlags(cmd.Flags(), &rf)
	return cmd
}

// serve runs the API on ln until ctx is canceled, then drains in-flight
// requests.
func (a *app) serve(ctx context.Context, ln net.Listener) error {
	cfg := a.cfg

	loader, err := assets.NewResolver(cfg.Render.AssetsDir)
	if err != nil {
		_ = ln.Close()
		return err
	}
	pool := eform.NewGeneratorPool(eform.ResolvePoolSize(cfg.Render.Workers), a.generatorConfig(loader))
	defer func() {
		if err := pool.Close(); err != nil {
			a.logger.Warn("closing renderers", "error", err)
		}
	}()

	st, err := openStore(cfg.Storage.StoreFile)
	if err != nil {
		_ = ln.Close()
		return err
	}

	svc, err := eform.NewService(st, pool,
		eform.WithLogger(a.logger),
		eform.WithUploadDir(cfg.Storage.UploadDir),
		eform.WithMaxUploadSize(cfg.Server.MaxUploadSize),
		eform.WithSecret(cfg.OnlyOffice.JWTSecret),
		eform.WithEditor(eform.EditorSettings{
			PublicURL:         cfg.Server.PublicURL,
			DocumentServerURL: cfg.OnlyOffice.DocumentServerURL,
			Lang:              cfg.OnlyOffice.Lang,
			Author:            cfg.OnlyOffice.Author,
			GoBackText:        cfg.OnlyOffice.GoBackText,
		}),
		eform.WithFetcher(&callback.HTTPFetcher{
			Client:   &http.Client{Timeout: time.Duration(cfg.Callback.FetchTimeoutSeconds) * time.Second},
			MaxBytes: cfg.Callback.MaxDownloadSize,
		}),
	)
	if err != nil {
		_ = ln.Close()
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	watchDone := make(chan struct{})
	go func() {
		defer close(watchDone)
		if !cfg.Storage.Watch {
			return
		}
		if err := svc.WatchTemplates(ctx); err != nil {
			a.logger.Error("template watcher stopped", "error", err)
		}
	}()

	handler := server.New(svc,
		server.WithLogger(a.logger),
		server.WithMaxUploadSize(cfg.Server.MaxUploadSize),
		server.WithLang(cfg.OnlyOffice.Lang),
	)
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	a.logger.Info("listening",
		"addr", ln.Addr().String(),
		"workers", pool.Size(),
		"upload_dir", svc.UploadDir(),
		"signing", svc.SigningEnabled(),
		"watch", cfg.Storage.Watch,
	)

	select {
	case err := <-errc:
		cancel()
		<-watchDone
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving: %w", err)
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, stop := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer stop()
	err = srv.Shutdown(shutdownCtx)
	<-watchDone
	return err
}

// openStore returns a file-backed store when path is set.
func openStore(path string) (store.Store, error) {
	if path == "" {
		return store.NewMemory(), nil
	}
	f, err := store.OpenFile(path)
	if err != nil {
		return nil, err
	}
	return f, nil
}
