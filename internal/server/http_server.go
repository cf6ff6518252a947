package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	slogctx "github.com/veqryn/slog-context"
)

const readHeaderTimeout = 10 * time.Second

// NewRouter builds the routed, instrumented HTTP handler.
func NewRouter(h *Handler, tracer trace.Tracer, meter metric.Meter) (http.Handler, error) {
	in, err := newInstruments(tracer, meter)
	if err != nil {
		return nil, oops.In("HTTP Server").Wrapf(err, "creating request meters")
	}

	router := mux.NewRouter()
	router.Use(in.middleware)

	router.PathPrefix("/").HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodOptions)

	h.RegisterRoutes(router)

	return corsMiddleware(router), nil
}

// StartHTTPServer serves handler on addr until ctx is cancelled, then shuts
// down gracefully within shutdownTimeout. addr may be given as
// network://address to listen on something other than tcp.
func StartHTTPServer(ctx context.Context, addr string, shutdownTimeout time.Duration, handler http.Handler) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	slogctx.Info(ctx, "Starting a listener", "address", server.Addr)

	network := "tcp"
	if idx := strings.Index(server.Addr, "://"); idx != -1 {
		network = server.Addr[:idx]
		server.Addr = server.Addr[idx+3:]
	}

	listener, err := new(net.ListenConfig).Listen(ctx, network, server.Addr)
	if err != nil {
		return oops.In("HTTP Server").
			WithContext(ctx).
			Wrapf(err, "Failed to create a listener")
	}

	slogctx.Info(ctx, "A listener started", "address", listener.Addr().String())

	serveErr := make(chan error, 1)
	go func() {
		slogctx.Info(ctx, "Serving an HTTP server", "address", listener.Addr().String())
		err := server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slogctx.Error(ctx, "Failed to serve an HTTP server", "error", err)
			serveErr <- err
		}
		close(serveErr)
		slogctx.Info(ctx, "Stopped an HTTP server")
	}()

	select {
	case <-ctx.Done():
	case err, ok := <-serveErr:
		if ok {
			return oops.In("HTTP Server").
				WithContext(ctx).
				Wrapf(err, "Failed to serve an HTTP server")
		}
	}

	shutdownCtx, shutdownRelease := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer shutdownRelease()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return oops.In("HTTP Server").
			WithContext(ctx).
			Wrapf(err, "Failed shutting down HTTP server")
	}

	slogctx.Info(ctx, "Completed graceful shutdown of HTTP server")

	return nil
}
