package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"tradeledger/src/portfolio"
	"tradeledger/src/settlement"
)

type mockPortfolioReader struct {
	snapshot *portfolio.Snapshot
	err      error

	lastModelID uint
	calledCount int
}

func (m *mockPortfolioReader) GetPortfolio(_ context.Context, modelID uint) (*portfolio.Snapshot, error) {
	m.calledCount++
	m.lastModelID = modelID
	return m.snapshot, m.err
}

func (m *mockPortfolioReader) GetAggregatedPortfolio(_ context.Context) (*portfolio.Snapshot, error) {
	m.calledCount++
	return m.snapshot, m.err
}

type mockCloser struct {
	result *settlement.Result
	err    error

	lastModelID uint
	lastSymbol  string
}

func (m *mockCloser) ClosePosition(_ context.Context, modelID uint, symbol string) (*settlement.Result, error) {
	m.lastModelID = modelID
	m.lastSymbol = symbol
	return m.result, m.err
}

func newTestRouter(reader portfolioReader, closer positionCloser) *chi.Mux {
	r := chi.NewRouter()
	r.Get("/models/{modelID}/portfolio", GetModelPortfolioHandler(reader))
	r.Get("/portfolio", GetAggregatedPortfolioHandler(reader))
	r.Post("/models/{modelID}/positions/{symbol}/close", ClosePositionHandler(closer))
	return r
}

func TestGetModelPortfolioHandler_OK(t *testing.T) {
	reader := &mockPortfolioReader{snapshot: &portfolio.Snapshot{ModelID: 7, TotalValue: 10020}}
	router := newTestRouter(reader, &mockCloser{})

	req := httptest.NewRequest(http.MethodGet, "/models/7/portfolio", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.EqualValues(t, 7, reader.lastModelID)

	var snapshot portfolio.Snapshot
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &snapshot))
	assert.Equal(t, 10020.0, snapshot.TotalValue)
}

func TestGetModelPortfolioHandler_InvalidID(t *testing.T) {
	reader := &mockPortfolioReader{}
	router := newTestRouter(reader, &mockCloser{})

	req := httptest.NewRequest(http.MethodGet, "/models/abc/portfolio", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Zero(t, reader.calledCount)
}

func TestGetModelPortfolioHandler_NotFound(t *testing.T) {
	reader := &mockPortfolioReader{err: portfolio.ErrModelNotFound}
	router := newTestRouter(reader, &mockCloser{})

	req := httptest.NewRequest(http.MethodGet, "/models/404/portfolio", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestGetModelPortfolioHandler_InternalError(t *testing.T) {
	reader := &mockPortfolioReader{err: errors.New("db down")}
	router := newTestRouter(reader, &mockCloser{})

	req := httptest.NewRequest(http.MethodGet, "/models/1/portfolio", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestGetAggregatedPortfolioHandler_OK(t *testing.T) {
	reader := &mockPortfolioReader{snapshot: &portfolio.Snapshot{ModelName: "aggregate"}}
	router := newTestRouter(reader, &mockCloser{})

	req := httptest.NewRequest(http.MethodGet, "/portfolio", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var snapshot portfolio.Snapshot
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &snapshot))
	assert.Equal(t, "aggregate", snapshot.ModelName)
}

func TestClosePositionHandler_OK(t *testing.T) {
	closer := &mockCloser{result: &settlement.Result{
		Success: true, TradeID: 9, Symbol: "BTCUSDT", Quantity: 1, Price: 125, Pnl: 24.875, Fee: 0.125,
	}}
	router := newTestRouter(&mockPortfolioReader{}, closer)

	req := httptest.NewRequest(http.MethodPost, "/models/3/positions/BTCUSDT/close", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.EqualValues(t, 3, closer.lastModelID)
	assert.Equal(t, "BTCUSDT", closer.lastSymbol)

	var result settlement.Result
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	assert.True(t, result.Success)
	assert.Equal(t, 24.875, result.Pnl)
}

func TestClosePositionHandler_PositionNotFound(t *testing.T) {
	closer := &mockCloser{err: settlement.ErrPositionNotFound}
	router := newTestRouter(&mockPortfolioReader{}, closer)

	req := httptest.NewRequest(http.MethodPost, "/models/3/positions/BTCUSDT/close", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestClosePositionHandler_PriceUnavailable(t *testing.T) {
	closer := &mockCloser{err: settlement.ErrPriceUnavailable}
	router := newTestRouter(&mockPortfolioReader{}, closer)

	req := httptest.NewRequest(http.MethodPost, "/models/3/positions/BTCUSDT/close", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadGateway, rr.Code)
}

func TestClosePositionHandler_InvalidModelID(t *testing.T) {
	closer := &mockCloser{}
	router := newTestRouter(&mockPortfolioReader{}, closer)

	req := httptest.NewRequest(http.MethodPost, "/models/x/positions/BTCUSDT/close", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
