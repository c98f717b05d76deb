package settlement

import (
	"context"
	"encoding/json"
	"runtime/debug"
	"time"

	logger "github.com/sirupsen/logrus"

	"tradeledger/src/model"
	"tradeledger/src/repository"
)

// capture records a swallowed failure: logs it and persists an exception
// row for later review. Used for the non-fatal side writes (algo status
// flips, audit log) that must never abort a settlement.
func capture(
	ctx context.Context,
	repo *repository.ExceptionRepository,
	method string,
	err error,
	contextData map[string]interface{},
) {

	if err == nil {
		return
	}

	var ctxJSON string
	if contextData != nil {
		if b, e := json.Marshal(contextData); e == nil {
			ctxJSON = string(b)
		}
	}

	exc := &model.Exception{
		Service:   "tradeledger",
		Module:    "settlement",
		Method:    method,
		Message:   err.Error(),
		Stack:     string(debug.Stack()),
		Level:     "warning",
		Context:   ctxJSON,
		CreatedAt: time.Now(),
	}

	logger.WithFields(map[string]interface{}{
		"module": "settlement",
		"method": method,
	}).WithError(err).Warn("Non-fatal settlement failure captured")

	if repo != nil {
		if e := repo.Create(ctx, exc); e != nil {
			logger.WithError(e).Error("Failed to persist exception")
		}
	}
}
