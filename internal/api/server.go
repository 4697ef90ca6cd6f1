package api

import (
	"context"
	"net/http"
	"time"

	"tigdiff/internal/diff"
	"tigdiff/internal/errors"
	"tigdiff/internal/logging"
	"tigdiff/internal/middleware"

	"go.uber.org/zap"
)

// NewServer routes the API endpoints and wraps them in the request ID,
// access log and panic recovery middleware.
func NewServer(repo Repository, defaults diff.Options, logger *logging.Logger) http.Handler {
	if logger == nil {
		logger = logging.Nop()
	}
	h := NewDiffHandler(repo, defaults, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", Health)
	mux.HandleFunc("GET /api/diff", h.Diff)
	mux.HandleFunc("GET /api/status", h.Status)

	return middleware.Chain(
		mux,
		middleware.Recover(logger),
		middleware.Logger(logger),
		middleware.RequestID,
	)
}

// ListenAndServe serves h on addr until ctx is done, then shuts down,
// giving in-flight requests a few seconds to finish.
func ListenAndServe(ctx context.Context, addr string, h http.Handler, logger *logging.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("address", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	logger.Info("shutting down server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
