package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	httpAdapter "github.com/aretw0/ledgerchat/pkg/adapters/http"
)

// ShutdownTimeout bounds how long Serve waits for in-flight requests.
const ShutdownTimeout = 5 * time.Second

// Serve runs the webhook server on ln until ctx is cancelled, then shuts it
// down gracefully.
func Serve(ctx context.Context, app *App, ln net.Listener) error {
	handler := httpAdapter.NewHandler(app.Engine,
		httpAdapter.WithMetrics(app.Metrics),
		httpAdapter.WithLogger(app.Logger),
	)
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		app.Logger.Info("server listening", "addr", ln.Addr().String(), "backend", app.Config.Store.Backend)
		serverErrors <- srv.Serve(ln)
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err

	case <-ctx.Done():
		app.Logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.Logger.Error("graceful shutdown did not complete", "timeout", ShutdownTimeout, "error", err)
			return srv.Close()
		}
		app.Logger.Info("server stopped")
		return nil
	}
}

// ListenAndServe listens on addr and calls Serve.
func ListenAndServe(ctx context.Context, app *App, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return Serve(ctx, app, ln)
}
