package connectors

import (
	"fmt"

	"tradeledger/src/model"
	"tradeledger/src/security"
)

// Provider builds exchange clients for trading models. Clients are built
// explicitly from injected configuration; there is no lazily-initialized
// shared client state.
type Provider struct {
	baseURL string
}

func NewProvider(baseURL string) *Provider {
	return &Provider{baseURL: baseURL}
}

// ClientFor returns an exchange client for the model. Real-mode models must
// carry encrypted credentials; virtual-mode models get a credential-less
// client used for market data and simulated submits only.
func (p *Provider) ClientFor(m *model.TradingModel) (*Client, error) {
	if m.IsVirtual() {
		return NewClient("", "", p.baseURL), nil
	}

	if !m.HasCredentials() {
		return nil, fmt.Errorf("model %d is in real mode but has no exchange credentials", m.ID)
	}

	apiKey, err := security.DecryptString(m.APIKeyHash)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt API key for model %d: %w", m.ID, err)
	}
	apiSecret, err := security.DecryptString(m.APISecretHash)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt API secret for model %d: %w", m.ID, err)
	}

	return NewClient(apiKey, apiSecret, p.baseURL), nil
}
