// Package settlement closes open positions: it cancels stale conditional
// orders, obtains a live execution price, submits (or simulates) a market
// order, and reconciles the position, trade and audit ledgers. It is the
// only writer that deletes a Position or appends a closing Trade.
package settlement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tradeledger/src/connectors"
	"tradeledger/src/model"
	"tradeledger/src/pricing"
	"tradeledger/src/repository"
)

var (
	// ErrModelNotFound is returned when the model does not exist.
	ErrModelNotFound = errors.New("trading model not found")
	// ErrPositionNotFound is returned when no open position exists for the
	// (model, symbol) pair; a second close of the same position lands here.
	ErrPositionNotFound = errors.New("position not found")
	// ErrPriceUnavailable is returned when no usable execution price could
	// be obtained. A close never runs on a stale or synthetic price.
	ErrPriceUnavailable = errors.New("execution price unavailable")
)

// Result reports one completed settlement. Success is true whenever the
// local ledgers were reconciled; an exchange-leg failure in real mode
// still succeeds locally, with zeroed financial fields and Error set,
// and the position kept open for a retry.
type Result struct {
	Success  bool    `json:"success"`
	TradeID  uint    `json:"trade_id"`
	Symbol   string  `json:"symbol"`
	Quantity float64 `json:"quantity"`
	Price    float64 `json:"price"`
	Pnl      float64 `json:"pnl"`
	Fee      float64 `json:"fee"`
	Error    string  `json:"error,omitempty"`
}

type modelFinder interface {
	FindByID(ctx context.Context, id uint) (*model.TradingModel, error)
}

// Workflow orchestrates position closes. Safe for concurrent use; closes
// of the same (model, symbol) are serialized internally.
type Workflow struct {
	log    *logger.Entry
	db     *gorm.DB
	config Config

	models     modelFinder
	positions  *repository.PositionRepository
	trades     *repository.TradeRepository
	algos      *repository.AlgoOrderRepository
	calls      *repository.ExchangeCallLogRepository
	exceptions *repository.ExceptionRepository

	clients ClientProvider
	locks   *pairLocks
}

func NewWorkflow(
	log *logger.Entry,
	config Config,
	db *gorm.DB,
	models modelFinder,
	clients ClientProvider,
) *Workflow {

	if log == nil {
		log = logger.NewEntry(logger.StandardLogger())
	}

	return &Workflow{
		log:        log,
		db:         db,
		config:     config,
		models:     models,
		positions:  repository.NewPositionRepositoryWithDB(db),
		trades:     repository.NewTradeRepositoryWithDB(db),
		algos:      repository.NewAlgoOrderRepositoryWithDB(db),
		calls:      repository.NewExchangeCallLogRepositoryWithDB(db),
		exceptions: repository.NewExceptionRepositoryWithDB(db),
		clients:    clients,
		locks:      newPairLocks(),
	}
}

// ClosePosition fully closes the open position for (model, symbol).
//
// The exchange order submit sits outside the local transaction and cannot
// be rolled back once the exchange accepts it, so the local commit happens
// immediately after the exchange call returns. In real mode a submit
// failure keeps the position open and records a zeroed error trade; in
// virtual mode reconciliation proceeds on the locally computed values.
func (w *Workflow) ClosePosition(ctx context.Context, modelID uint, symbol string) (*Result, error) {
	symbol = pricing.NormalizeSymbol(symbol)

	release := w.locks.acquire(modelID, symbol)
	defer release()

	log := w.log.WithFields(map[string]interface{}{
		"model_id": modelID,
		"symbol":   symbol,
	})

	m, err := w.models.FindByID(ctx, modelID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, ErrModelNotFound
	}

	client, err := w.clients.ClientFor(m)
	if err != nil {
		return nil, err
	}

	if err := w.cancelPendingAlgoOrders(ctx, m, client, symbol); err != nil {
		return nil, err
	}

	position, err := w.positions.FindByModelAndSymbol(ctx, modelID, symbol)
	if err != nil {
		return nil, err
	}
	if position == nil {
		return nil, ErrPositionNotFound
	}

	price, err := w.fetchExecutionPrice(ctx, client, symbol, position.Side)
	if err != nil {
		return nil, err
	}

	quantity := pricing.RoundQuantity(math.Abs(position.Quantity), price)
	gross := pricing.UnrealizedPnl(position.Side, quantity, position.AvgPrice, price)
	fee := pricing.Fee(quantity, price, w.config.FeeRate)

	side := model.TradeSideSell
	signal := model.SignalCloseLong
	if position.Side == model.PositionSideShort {
		side = model.TradeSideBuy
		signal = model.SignalCloseShort
	}

	fill, submitErr := client.SubmitMarketOrder(ctx, symbol, side, position.Side, quantity, m.IsVirtual())

	execQuantity, execPrice := quantity, price
	var exchangeOrderID *string
	if submitErr == nil && fill != nil {
		// Exchange-reported fill values take precedence over local ones.
		if fill.Quantity > 0 {
			execQuantity = fill.Quantity
		}
		if fill.AvgPrice > 0 {
			execPrice = fill.AvgPrice
		}
		if fill.OrderID != "" {
			id := fill.OrderID
			exchangeOrderID = &id
		}
		gross = pricing.UnrealizedPnl(position.Side, execQuantity, position.AvgPrice, execPrice)
		fee = pricing.Fee(execQuantity, execPrice, w.config.FeeRate)
	}

	trade := model.Trade{
		ModelID:         modelID,
		PositionID:      &position.ID,
		Symbol:          symbol,
		Signal:          signal,
		Side:            side,
		PosSide:         position.Side,
		Quantity:        execQuantity,
		Price:           execPrice,
		Pnl:             gross - fee,
		Fee:             fee,
		InitialMargin:   position.InitialMargin,
		ExchangeOrderID: exchangeOrderID,
		OrderType:       "Market",
	}

	deletePosition := true
	if submitErr != nil {
		msg := submitErr.Error()
		trade.Error = &msg

		if m.IsVirtual() {
			// No real exchange state to protect: reconcile on the
			// locally computed quantity and price.
			log.WithError(submitErr).Warn("simulated order submit failed, settling on local values")
		} else {
			// Never delete local state representing real exposure
			// unless the exchange confirmed the order.
			trade.Quantity = 0
			trade.Price = 0
			trade.Pnl = 0
			trade.Fee = 0
			deletePosition = false
			log.WithError(submitErr).Error("exchange order submit failed, keeping position open")
		}
	}

	txErr := w.db.Transaction(func(tx *gorm.DB) error {
		if err := w.trades.WithDB(tx).Create(ctx, &trade); err != nil {
			return err
		}
		if deletePosition {
			return w.positions.WithDB(tx).DeleteByID(ctx, position.ID)
		}
		return nil
	})

	// Forensic audit row, written whether or not the commit above held.
	w.recordAudit(ctx, modelID, symbol, side, position.Side, quantity, m.IsVirtual(), fill, submitErr)

	if txErr != nil {
		return nil, txErr
	}

	result := &Result{
		Success:  true,
		TradeID:  trade.ID,
		Symbol:   symbol,
		Quantity: trade.Quantity,
		Price:    trade.Price,
		Pnl:      trade.Pnl,
		Fee:      trade.Fee,
	}
	if submitErr != nil {
		result.Error = submitErr.Error()
	}

	log.WithFields(map[string]interface{}{
		"trade_id": trade.ID,
		"qty":      trade.Quantity,
		"price":    trade.Price,
		"pnl":      trade.Pnl,
		"deleted":  deletePosition,
	}).Info("position settled")

	return result, nil
}

// cancelPendingAlgoOrders disarms new-status conditional orders for the
// pair. In real mode the exchange's own list is authoritative and any
// exchange failure aborts the close: proceeding with a possibly still
// armed stop order is worse than not closing. In virtual mode the local
// rows are simply flipped.
func (w *Workflow) cancelPendingAlgoOrders(
	ctx context.Context,
	m *model.TradingModel,
	client ExchangeClient,
	symbol string,
) error {

	pending, err := w.algos.FindPendingByModelAndSymbol(ctx, m.ID, symbol)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}

	if !m.IsVirtual() {
		remote, err := client.ListPendingAlgoOrders(ctx, symbol)
		if err != nil {
			return fmt.Errorf("listing pending conditional orders: %w", err)
		}

		if len(remote) > 0 {
			if err := client.CancelAllAlgoOrders(ctx, symbol); err != nil {
				return fmt.Errorf("cancelling conditional orders: %w", err)
			}
		}
	}

	// Local status flip is a side table: a failure here must not abort
	// the close.
	if err := w.algos.MarkCancelledByModelAndSymbol(ctx, m.ID, symbol); err != nil {
		capture(ctx, w.exceptions, "cancelPendingAlgoOrders", err, map[string]interface{}{
			"model_id": m.ID,
			"symbol":   symbol,
		})
	}

	return nil
}

// fetchExecutionPrice asks the order book top: ask closes a long, bid
// closes a short. A zero quote means unavailable, never a real price.
func (w *Workflow) fetchExecutionPrice(
	ctx context.Context,
	client ExchangeClient,
	symbol, posSide string,
) (float64, error) {

	book, err := client.GetBestBidAsk(ctx, symbol)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPriceUnavailable, err)
	}

	price := book.Ask
	if posSide == model.PositionSideShort {
		price = book.Bid
	}

	if price <= 0 {
		return 0, ErrPriceUnavailable
	}

	return price, nil
}

// recordAudit appends the forensic exchange-call row. Failures are
// captured and swallowed: the audit log never aborts a settlement.
func (w *Workflow) recordAudit(
	ctx context.Context,
	modelID uint,
	symbol, side, posSide string,
	quantity float64,
	testMode bool,
	fill *connectors.Fill,
	submitErr error,
) {

	params, _ := json.Marshal(map[string]interface{}{
		"symbol":   symbol,
		"side":     side,
		"posSide":  posSide,
		"ordType":  "Market",
		"quantity": quantity,
		"testMode": testMode,
	})

	entry := &model.ExchangeCallLog{
		ModelID:  modelID,
		Endpoint: "/v1/orders",
		Params:   string(params),
		Status:   model.ExchangeCallStatusOK,
	}

	if submitErr != nil {
		entry.Status = model.ExchangeCallStatusError
		entry.Response = submitErr.Error()
	} else if fill != nil {
		if b, err := json.Marshal(fill); err == nil {
			entry.Response = string(b)
		}
	}

	if err := w.calls.Create(ctx, entry); err != nil {
		capture(ctx, w.exceptions, "recordAudit", err, map[string]interface{}{
			"model_id": modelID,
			"symbol":   symbol,
		})
	}
}
