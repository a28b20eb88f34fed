package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"time"

	"github.com/chainhaul/settlementd/models"
)

// TransactionStatus is the ledger's view of a submitted transaction.
type TransactionStatus struct {
	TxID          string `json:"txid"`
	Confirmed     bool   `json:"confirmed"`
	Confirmations int    `json:"confirmations"`
}

// LedgerClient is the interface to the on-chain ledger. The production
// implementation talks to the ledger node over HTTP; tests and the
// devnet command use the in-process mock.
type LedgerClient interface {
	GetUnspentOutputs(ctx context.Context, address string) ([]models.UnspentOutput, error)
	GetTransactionStatus(ctx context.Context, txid string) (*TransactionStatus, error)
	SubmitTransaction(ctx context.Context, raw []byte) (string, error)
}

// RPCClient is the HTTP JSON implementation of LedgerClient.
type RPCClient struct {
	baseURL string
	client  *http.Client
}

// NewRPCClient returns a client for the ledger node at baseURL.
func NewRPCClient(baseURL string) *RPCClient {
	return &RPCClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: time.Second * 30,
		},
	}
}

// GetUnspentOutputs returns the spendable outputs at address.
func (c *RPCClient) GetUnspentOutputs(ctx context.Context, address string) ([]models.UnspentOutput, error) {
	req, err := http.NewRequest(http.MethodGet, fmt.Sprintf("%s/utxos/%s", c.baseURL, address), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, unexpectedStatus(resp)
	}
	var utxos []models.UnspentOutput
	if err := json.NewDecoder(resp.Body).Decode(&utxos); err != nil {
		return nil, err
	}
	return utxos, nil
}

// GetTransactionStatus returns the ledger's view of txid.
func (c *RPCClient) GetTransactionStatus(ctx context.Context, txid string) (*TransactionStatus, error) {
	req, err := http.NewRequest(http.MethodGet, fmt.Sprintf("%s/transactions/%s", c.baseURL, txid), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, unexpectedStatus(resp)
	}
	status := new(TransactionStatus)
	if err := json.NewDecoder(resp.Body).Decode(status); err != nil {
		return nil, err
	}
	return status, nil
}

// SubmitTransaction posts the serialized transaction to the ledger and
// returns the transaction reference it was accepted under.
func (c *RPCClient) SubmitTransaction(ctx context.Context, raw []byte) (string, error) {
	req, err := http.NewRequest(http.MethodPost, fmt.Sprintf("%s/transactions", c.baseURL), bytes.NewReader(raw))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req.WithContext(ctx))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return "", unexpectedStatus(resp)
	}
	var ret struct {
		TxID string `json:"txid"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&ret); err != nil {
		return "", err
	}
	return ret.TxID, nil
}

func unexpectedStatus(resp *http.Response) error {
	body, _ := ioutil.ReadAll(resp.Body)
	return fmt.Errorf("ledger returned status %d: %s", resp.StatusCode, string(body))
}
