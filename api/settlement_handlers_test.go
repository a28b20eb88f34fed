package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/chainhaul/settlementd/database"
	"github.com/chainhaul/settlementd/models"
	"github.com/chainhaul/settlementd/repo"
	"github.com/chainhaul/settlementd/settlement"
	"github.com/chainhaul/settlementd/wallet"
)

func TestSettlementHandlers(t *testing.T) {
	db, err := repo.MockDB()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	record := models.Settlement{
		InvoiceID:   "invoice-1",
		State:       models.SettlementStateCompleted,
		TxReference: "tx-1",
	}
	decisionLog := models.DecisionLog{
		ID:           "log-1",
		InvoiceID:    "invoice-1",
		DecisionHash: "hash-1",
	}
	err = db.Update(func(tx database.Tx) error {
		if err := tx.Save(&record); err != nil {
			return err
		}
		return tx.Save(&decisionLog)
	})
	if err != nil {
		t.Fatal(err)
	}

	invoiceJSON, err := json.Marshal(models.Invoice{
		ID:        "invoice-1",
		Amount:    25,
		Recipient: "carrier",
		Method:    models.PaymentMethodChannel,
	})
	if err != nil {
		t.Fatal(err)
	}

	runAPITests(t, apiTests{
		{
			name:   "Post settle",
			path:   "/v1/settle",
			method: http.MethodPost,
			body:   invoiceJSON,
			setNodeMethods: func(n *mockNode) {
				n.settleFunc = func(ctx context.Context, invoice models.Invoice) (*settlement.Result, error) {
					return &settlement.Result{
						DecisionLog: &decisionLog,
						TxReference: "tx-1",
					}, nil
				}
			},
			statusCode: http.StatusOK,
			expectedResponse: func() ([]byte, error) {
				return marshalAndSanitizeJSON(settleResponse{
					InvoiceID:   "invoice-1",
					DecisionLog: decisionLog,
					TxReference: "tx-1",
				})
			},
		},
		{
			name:           "Post settle invalid body",
			path:           "/v1/settle",
			method:         http.MethodPost,
			body:           []byte("{"),
			setNodeMethods: func(n *mockNode) {},
			statusCode:     http.StatusBadRequest,
			expectedResponse: func() ([]byte, error) {
				return []byte(fmt.Sprintf(`{"error": "unexpected EOF"}%s`, "\n")), nil
			},
		},
		{
			name:           "Post settle missing amount",
			path:           "/v1/settle",
			method:         http.MethodPost,
			body:           []byte(`{"id": "invoice-1", "recipient": "carrier"}`),
			setNodeMethods: func(n *mockNode) {},
			statusCode:     http.StatusBadRequest,
			expectedResponse: func() ([]byte, error) {
				return []byte(fmt.Sprintf(`{"error": "invoice amount must be positive"}%s`, "\n")), nil
			},
		},
		{
			name:   "Post settle pipeline failure",
			path:   "/v1/settle",
			method: http.MethodPost,
			body:   invoiceJSON,
			setNodeMethods: func(n *mockNode) {
				n.settleFunc = func(ctx context.Context, invoice models.Invoice) (*settlement.Result, error) {
					return nil, errors.New("error")
				}
			},
			statusCode: http.StatusInternalServerError,
			expectedResponse: func() ([]byte, error) {
				return []byte(fmt.Sprintf(`{"error": "error"}%s`, "\n")), nil
			},
		},
		{
			name:   "Get settlement",
			path:   "/v1/settlements/invoice-1",
			method: http.MethodGet,
			setNodeMethods: func(n *mockNode) {
				n.dbFunc = func() database.Database { return db }
			},
			statusCode: http.StatusOK,
			expectedResponse: func() ([]byte, error) {
				var ret models.Settlement
				err := db.View(func(tx database.Tx) error {
					return tx.Read().Where("invoice_id = ?", "invoice-1").First(&ret).Error
				})
				if err != nil {
					return nil, err
				}
				return marshalAndSanitizeJSON(ret)
			},
		},
		{
			name:   "Get settlement not found",
			path:   "/v1/settlements/nosuchinvoice",
			method: http.MethodGet,
			setNodeMethods: func(n *mockNode) {
				n.dbFunc = func() database.Database { return db }
			},
			statusCode: http.StatusNotFound,
			expectedResponse: func() ([]byte, error) {
				return []byte(fmt.Sprintf(`{"error": "record not found"}%s`, "\n")), nil
			},
		},
		{
			name:   "Get decision log",
			path:   "/v1/decisionlogs/log-1",
			method: http.MethodGet,
			setNodeMethods: func(n *mockNode) {
				n.dbFunc = func() database.Database { return db }
			},
			statusCode: http.StatusOK,
			expectedResponse: func() ([]byte, error) {
				var ret models.DecisionLog
				err := db.View(func(tx database.Tx) error {
					return tx.Read().Where("id = ?", "log-1").First(&ret).Error
				})
				if err != nil {
					return nil, err
				}
				return marshalAndSanitizeJSON(ret)
			},
		},
		{
			name:   "Get address",
			path:   "/v1/address",
			method: http.MethodGet,
			setNodeMethods: func(n *mockNode) {
				n.addressFunc = func() string { return "addr-1" }
			},
			statusCode: http.StatusOK,
			expectedResponse: func() ([]byte, error) {
				return marshalAndSanitizeJSON(addressResponse{Address: "addr-1"})
			},
		},
	})
}

func TestSettleRetriesSubmission(t *testing.T) {
	var calls int
	node := &mockNode{
		settleFunc: func(ctx context.Context, invoice models.Invoice) (*settlement.Result, error) {
			calls++
			if calls == 1 {
				return nil, &wallet.SubmissionError{Err: errors.New("mempool full")}
			}
			return &settlement.Result{
				DecisionLog: &models.DecisionLog{ID: "log-1"},
				TxReference: "tx-1",
			}, nil
		},
	}
	gateway := &Gateway{
		node:   node,
		config: &GatewayConfig{SubmitRetries: 2},
	}

	ts := httptest.NewServer(gateway.newV1Router())
	defer ts.Close()

	body := []byte(`{"id": "invoice-1", "amount": 25, "recipient": "carrier"}`)
	res, err := http.Post(fmt.Sprintf("%s/v1/settle", ts.URL), "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", res.StatusCode)
	}
	if calls != 2 {
		t.Errorf("Expected the submission failure to be retried once, got %d calls", calls)
	}
}

func TestSettleDoesNotRetryOtherErrors(t *testing.T) {
	var calls int
	node := &mockNode{
		settleFunc: func(ctx context.Context, invoice models.Invoice) (*settlement.Result, error) {
			calls++
			return nil, errors.New("insufficient balance")
		},
	}
	gateway := &Gateway{
		node:   node,
		config: &GatewayConfig{SubmitRetries: 2},
	}

	ts := httptest.NewServer(gateway.newV1Router())
	defer ts.Close()

	body := []byte(`{"id": "invoice-1", "amount": 25, "recipient": "carrier"}`)
	res, err := http.Post(fmt.Sprintf("%s/v1/settle", ts.URL), "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusInternalServerError {
		t.Fatalf("Expected status 500, got %d", res.StatusCode)
	}
	if calls != 1 {
		t.Errorf("Expected no retry for a pipeline error, got %d calls", calls)
	}
}
