package web

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/openvdm/openvdm-web/internal/store/constants"
	"github.com/openvdm/openvdm-web/internal/syslog"
)

const shutdownTimeout = 10 * time.Second

func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:           addr,
		Handler:        handler,
		ReadTimeout:    constants.HTTPReadTimeout,
		WriteTimeout:   constants.HTTPWriteTimeout,
		IdleTimeout:    constants.HTTPIdleTimeout,
		MaxHeaderBytes: constants.HTTPMaxHeaderBytes,
	}
}

// Serve runs server on ln until ctx is done, then shuts it down, letting
// in-flight requests finish. ready is called once the listener accepts.
func Serve(ctx context.Context, server *http.Server, ln net.Listener, ready func()) error {
	errCh := make(chan error, 1)
	go func() {
		syslog.L.Info().WithMessage("starting API server").WithField("addr", ln.Addr().String()).Write()
		errCh <- server.Serve(ln)
	}()
	if ready != nil {
		ready()
	}

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
		syslog.L.Error(err).WithMessage("api server shutdown error").Write()
		return err
	}
	syslog.L.Info().WithMessage("API server stopped").Write()
	return nil
}

// ListenAndServe is Serve on a new TCP listener for server.Addr.
func ListenAndServe(ctx context.Context, server *http.Server, ready func()) error {
	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return err
	}
	return Serve(ctx, server, ln, ready)
}
