package settlement

import (
	"context"

	"tradeledger/src/connectors"
	"tradeledger/src/model"
)

// ExchangeClient is the slice of the exchange REST client the workflow
// needs. Tests substitute a fake; production passes *connectors.Client.
type ExchangeClient interface {
	GetBestBidAsk(ctx context.Context, symbol string) (*connectors.BookTop, error)
	SubmitMarketOrder(ctx context.Context, symbol, side, posSide string, quantity float64, testMode bool) (*connectors.Fill, error)
	ListPendingAlgoOrders(ctx context.Context, symbol string) ([]connectors.PendingAlgoOrder, error)
	CancelAllAlgoOrders(ctx context.Context, symbol string) error
}

// ClientProvider hands out the right exchange client for a model: an
// unauthenticated one for virtual models, a credentialed one for real.
type ClientProvider interface {
	ClientFor(m *model.TradingModel) (ExchangeClient, error)
}

type providerAdapter struct {
	provider *connectors.Provider
}

// NewClientProvider wraps the connectors provider behind the narrow
// interface the workflow consumes.
func NewClientProvider(provider *connectors.Provider) ClientProvider {
	return &providerAdapter{provider: provider}
}

func (a *providerAdapter) ClientFor(m *model.TradingModel) (ExchangeClient, error) {
	client, err := a.provider.ClientFor(m)
	if err != nil {
		return nil, err
	}
	return client, nil
}
