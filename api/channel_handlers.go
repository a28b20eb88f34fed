package api

import (
	"net/http"

	"github.com/chainhaul/settlementd/database"
	"github.com/chainhaul/settlementd/models"
	"github.com/gorilla/mux"
	"github.com/jinzhu/gorm"
)

func (g *Gateway) handleGETChannels(w http.ResponseWriter, r *http.Request) {
	var records []models.Channel
	err := g.node.DB().View(func(tx database.Tx) error {
		return tx.Read().Find(&records).Error
	})
	if err != nil {
		http.Error(w, wrapError(err), http.StatusInternalServerError)
		return
	}

	sanitizedJSONResponse(w, records)
}

func (g *Gateway) handleGETChannel(w http.ResponseWriter, r *http.Request) {
	channelID := mux.Vars(r)["channelID"]

	var record models.Channel
	err := g.node.DB().View(func(tx database.Tx) error {
		return tx.Read().Where("id = ?", channelID).First(&record).Error
	})
	if gorm.IsRecordNotFoundError(err) {
		http.Error(w, wrapError(err), http.StatusNotFound)
		return
	} else if err != nil {
		http.Error(w, wrapError(err), http.StatusInternalServerError)
		return
	}

	var payments []models.ChannelPayment
	err = g.node.DB().View(func(tx database.Tx) error {
		return tx.Read().Where("channel_id = ?", channelID).Find(&payments).Error
	})
	if err != nil {
		http.Error(w, wrapError(err), http.StatusInternalServerError)
		return
	}
	record.Payments = payments

	sanitizedJSONResponse(w, record)
}

func (g *Gateway) handlePOSTCloseChannel(w http.ResponseWriter, r *http.Request) {
	channelID := mux.Vars(r)["channelID"]

	if err := g.node.CloseChannel(r.Context(), channelID); err != nil {
		http.Error(w, wrapError(err), http.StatusInternalServerError)
		return
	}

	sanitizedJSONResponse(w, struct {
		ChannelID string `json:"channelID"`
		State     string `json:"state"`
	}{
		ChannelID: channelID,
		State:     string(models.ChannelStateFinal),
	})
}
