package wallet

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Signer produces exportable signing material for custodial wallets. The
// custody service owns key generation and storage; this boundary only
// exports material sufficient to authenticate a world session.
type Signer interface {
	ExportKey(ctx context.Context, custodialWallet string) (ed25519.PrivateKey, error)
}

// CustodyClient is an HTTP Signer backed by a custody service.
type CustodyClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *zap.Logger
}

// NewCustodyClient creates a custody service client.
func NewCustodyClient(baseURL, apiKey string, logger *zap.Logger) *CustodyClient {
	return &CustodyClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  logger,
	}
}

// ExportKey fetches the ed25519 seed for a custodial wallet.
func (c *CustodyClient) ExportKey(ctx context.Context, custodialWallet string) (ed25519.PrivateKey, error) {
	body, err := json.Marshal(map[string]string{"wallet": custodialWallet})
	if err != nil {
		return nil, fmt.Errorf("marshal export request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/keys/export", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("custody error %d: %s", resp.StatusCode, string(respBody))
	}

	var out struct {
		Seed string `json:"seed"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode export response: %w", err)
	}

	seed, err := base64.StdEncoding.DecodeString(out.Seed)
	if err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("bad seed length %d for %s", len(seed), custodialWallet)
	}
	return ed25519.NewKeyFromSeed(seed), nil
}
