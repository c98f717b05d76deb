package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	logger "github.com/sirupsen/logrus"

	"tradeledger/src/portfolio"
)

type portfolioReader interface {
	GetPortfolio(ctx context.Context, modelID uint) (*portfolio.Snapshot, error)
	GetAggregatedPortfolio(ctx context.Context) (*portfolio.Snapshot, error)
}

// GetModelPortfolioHandler returns the valuation snapshot for one model.
func GetModelPortfolioHandler(engine portfolioReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		modelID, err := strconv.ParseUint(chi.URLParam(r, "modelID"), 10, 64)
		if err != nil {
			http.Error(w, "invalid model id", http.StatusBadRequest)
			return
		}

		snapshot, err := engine.GetPortfolio(r.Context(), uint(modelID))
		if err != nil {
			if errors.Is(err, portfolio.ErrModelNotFound) {
				http.Error(w, "model not found", http.StatusNotFound)
				return
			}

			logger.WithError(err).WithField("model_id", modelID).Error("failed to build portfolio snapshot")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, snapshot)
	}
}

// GetAggregatedPortfolioHandler returns the cross-model rollup snapshot.
func GetAggregatedPortfolioHandler(engine portfolioReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snapshot, err := engine.GetAggregatedPortfolio(r.Context())
		if err != nil {
			logger.WithError(err).Error("failed to build aggregated portfolio snapshot")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, snapshot)
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.WithError(err).Error("failed to encode response")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
