package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/avast/retry-go"
	"github.com/chainhaul/settlementd/database"
	"github.com/chainhaul/settlementd/models"
	"github.com/chainhaul/settlementd/settlement"
	"github.com/chainhaul/settlementd/wallet"
	"github.com/gorilla/mux"
	"github.com/jinzhu/gorm"
	pkgerrors "github.com/pkg/errors"
)

type settleResponse struct {
	InvoiceID   string             `json:"invoiceID"`
	DecisionLog models.DecisionLog `json:"decisionLog"`
	TxReference string             `json:"txReference"`
}

func (g *Gateway) handlePOSTSettle(w http.ResponseWriter, r *http.Request) {
	var invoice models.Invoice
	if err := json.NewDecoder(r.Body).Decode(&invoice); err != nil {
		http.Error(w, wrapError(err), http.StatusBadRequest)
		return
	}
	if invoice.ID == "" {
		http.Error(w, wrapError(errors.New("invoice id is required")), http.StatusBadRequest)
		return
	}
	if invoice.Amount <= 0 {
		http.Error(w, wrapError(errors.New("invoice amount must be positive")), http.StatusBadRequest)
		return
	}
	if invoice.Recipient == "" {
		http.Error(w, wrapError(errors.New("invoice recipient is required")), http.StatusBadRequest)
		return
	}

	// A submission failure burns the draft but not the funds, so the
	// settle call is safe to re-run from the top. Everything else is
	// surfaced to the caller on the first attempt.
	var result *settlement.Result
	err := retry.Do(
		func() error {
			var err error
			result, err = g.node.Settle(r.Context(), invoice)
			return err
		},
		retry.Attempts(g.config.SubmitRetries+1),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			_, ok := pkgerrors.Cause(err).(*wallet.SubmissionError)
			return ok
		}),
	)
	if err != nil {
		http.Error(w, wrapError(err), http.StatusInternalServerError)
		return
	}

	sanitizedJSONResponse(w, settleResponse{
		InvoiceID:   invoice.ID,
		DecisionLog: *result.DecisionLog,
		TxReference: result.TxReference,
	})
}

func (g *Gateway) handleGETSettlement(w http.ResponseWriter, r *http.Request) {
	invoiceID := mux.Vars(r)["invoiceID"]

	var record models.Settlement
	err := g.node.DB().View(func(tx database.Tx) error {
		return tx.Read().Where("invoice_id = ?", invoiceID).First(&record).Error
	})
	if gorm.IsRecordNotFoundError(err) {
		http.Error(w, wrapError(err), http.StatusNotFound)
		return
	} else if err != nil {
		http.Error(w, wrapError(err), http.StatusInternalServerError)
		return
	}

	sanitizedJSONResponse(w, record)
}

func (g *Gateway) handleGETDecisionLog(w http.ResponseWriter, r *http.Request) {
	logID := mux.Vars(r)["logID"]

	var record models.DecisionLog
	err := g.node.DB().View(func(tx database.Tx) error {
		return tx.Read().Where("id = ?", logID).First(&record).Error
	})
	if gorm.IsRecordNotFoundError(err) {
		http.Error(w, wrapError(err), http.StatusNotFound)
		return
	} else if err != nil {
		http.Error(w, wrapError(err), http.StatusInternalServerError)
		return
	}

	sanitizedJSONResponse(w, record)
}

type addressResponse struct {
	Address string `json:"address"`
}

func (g *Gateway) handleGETAddress(w http.ResponseWriter, r *http.Request) {
	sanitizedJSONResponse(w, addressResponse{Address: g.node.Address()})
}
