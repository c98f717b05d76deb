// Package executors hosts the periodic background loops. Today that is
// the equity-curve sampler, which valuates every model on a fixed period
// and appends one EquityPoint per model per tick.
package executors

import (
	"context"
	"time"

	logger "github.com/sirupsen/logrus"

	"tradeledger/src/model"
	"tradeledger/src/portfolio"
)

type snapshotSource interface {
	GetPortfolio(ctx context.Context, modelID uint) (*portfolio.Snapshot, error)
}

type modelLister interface {
	FindAll(ctx context.Context) ([]model.TradingModel, error)
}

type equityWriter interface {
	Create(ctx context.Context, point *model.EquityPoint) error
}

// StartEquitySampler blocks, sampling every model each period until the
// context is cancelled. One model failing never stops the loop or skips
// the other models.
func StartEquitySampler(
	ctx context.Context,
	engine snapshotSource,
	models modelLister,
	equities equityWriter,
) error {

	config := GetConfig()

	ticker := time.NewTicker(config.SamplePeriod)
	defer ticker.Stop()

	log := logger.WithField("component", "EquitySampler")
	log.WithField("period", config.SamplePeriod.String()).Info("equity sampler started")

	for {
		select {
		case <-ctx.Done():
			log.Info("equity sampler stopped")
			return nil

		case <-ticker.C:
			SampleOnce(ctx, engine, models, equities)
		}
	}
}

// SampleOnce appends one equity point per model. Used by the loop and by
// the one-shot CLI command.
func SampleOnce(
	ctx context.Context,
	engine snapshotSource,
	models modelLister,
	equities equityWriter,
) {

	log := logger.WithField("component", "EquitySampler")

	all, err := models.FindAll(ctx)
	if err != nil {
		log.WithError(err).Error("Failed to list models for sampling")
		return
	}

	for i := range all {
		snapshot, err := engine.GetPortfolio(ctx, all[i].ID)
		if err != nil {
			log.WithError(err).
				WithField("model_id", all[i].ID).
				Error("Failed to valuate model, skipping sample")
			continue
		}

		point := &model.EquityPoint{
			ModelID:       snapshot.ModelID,
			TotalValue:    snapshot.TotalValue,
			Cash:          snapshot.Cash,
			UnrealizedPnl: snapshot.UnrealizedPnl,
			SampledAt:     snapshot.GeneratedAt,
		}

		if err := equities.Create(ctx, point); err != nil {
			log.WithError(err).
				WithField("model_id", all[i].ID).
				Error("Failed to append equity point")
			continue
		}

		log.WithFields(map[string]interface{}{
			"model_id":    snapshot.ModelID,
			"total_value": snapshot.TotalValue,
		}).Debug("equity point sampled")
	}
}
