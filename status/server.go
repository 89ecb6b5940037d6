package status

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeti47/motioncam/ccc/logging"
)

const shutdownTimeout = 5 * time.Second

// Serve runs an HTTP server for router on addr until ctx is cancelled
func Serve(ctx context.Context, addr string, router *gin.Engine, logger logging.Logger) error {
	if logger == nil {
		logger = logging.NopLogger
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Status server listening", "address", addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("Status server stopped")
	return nil
}
