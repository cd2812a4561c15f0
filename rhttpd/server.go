package rhttpd

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/advdv/rhttp"
)

// DispatchOptions are the engine options derived from the environment; pass
// them to every [rhttp.NewHandler] call so all resources share the host's
// encoding, detail-exposure policy and logger.
type DispatchOptions []rhttp.Option

// NewDispatchOptions derives engine options from the environment.
func NewDispatchOptions(env Environment, logs *zap.Logger) DispatchOptions {
	return DispatchOptions{
		rhttp.WithEncoding(env.encoding()),
		rhttp.WithExposeDetail(env.exposeErrorDetail()),
		rhttp.WithLogger(NewDispatchLogger(logs)),
	}
}

// ServerParams holds the dependencies for creating an HTTP server.
type ServerParams struct {
	fx.In

	Env    Environment
	Mux    *http.ServeMux
	Logger *zap.Logger
}

// NewServer creates an HTTP server with timeouts configured from the
// environment. Per-request deadlines surface inside handlers as context
// cancellation, which the dispatch engine routes to its cancellation branch.
func NewServer(params ServerParams) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf(":%d", params.Env.port()),
		Handler:      params.Mux,
		ReadTimeout:  params.Env.readTimeout(),
		WriteTimeout: params.Env.writeTimeout(),
		IdleTimeout:  params.Env.idleTimeout(),
	}
}

// startServerHook registers lifecycle hooks for the HTTP server.
func startServerHook(lc fx.Lifecycle, server *http.Server, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("starting server", zap.String("addr", server.Addr))
			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Error("server error", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("stopping server")
			return server.Shutdown(ctx)
		},
	})
}
