package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	logger "github.com/sirupsen/logrus"

	"tradeledger/src/handler"
	"tradeledger/src/portfolio"
	"tradeledger/src/settlement"
)

// StartServer runs the HTTP API until SIGINT/SIGTERM, then shuts down
// gracefully.
func StartServer(port string, engine *portfolio.Engine, workflow *settlement.Workflow) {
	r := chi.NewRouter()

	// Public routes
	r.Get("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.WithError(err).Error(" \"/health error")
		}
	})

	r.Get("/portfolio", handler.GetAggregatedPortfolioHandler(engine))
	r.Get("/models/{modelID}/portfolio", handler.GetModelPortfolioHandler(engine))
	r.Post("/models/{modelID}/positions/{symbol}/close", handler.ClosePositionHandler(workflow))

	// Graceful server
	addr := ":" + port
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	// Start server in goroutine
	go func() {
		logger.Infof("Listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server crashed")
		}
	}()

	// Shutdown on SIGINT or SIGTERM
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down gracefully...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Shutdown error")
	}
}
