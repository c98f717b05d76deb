package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	logger "github.com/sirupsen/logrus"

	"tradeledger/src/settlement"
)

type positionCloser interface {
	ClosePosition(ctx context.Context, modelID uint, symbol string) (*settlement.Result, error)
}

// ClosePositionHandler fully closes the open position for (model, symbol).
func ClosePositionHandler(workflow positionCloser) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		modelID, err := strconv.ParseUint(chi.URLParam(r, "modelID"), 10, 64)
		if err != nil {
			http.Error(w, "invalid model id", http.StatusBadRequest)
			return
		}

		symbol := chi.URLParam(r, "symbol")
		if symbol == "" {
			http.Error(w, "missing symbol", http.StatusBadRequest)
			return
		}

		result, err := workflow.ClosePosition(r.Context(), uint(modelID), symbol)
		if err != nil {
			switch {
			case errors.Is(err, settlement.ErrModelNotFound):
				http.Error(w, "model not found", http.StatusNotFound)
			case errors.Is(err, settlement.ErrPositionNotFound):
				http.Error(w, "position not found", http.StatusNotFound)
			case errors.Is(err, settlement.ErrPriceUnavailable):
				http.Error(w, "execution price unavailable", http.StatusBadGateway)
			default:
				logger.WithError(err).WithFields(map[string]interface{}{
					"model_id": modelID,
					"symbol":   symbol,
				}).Error("failed to close position")
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
			return
		}

		writeJSON(w, result)
	}
}
