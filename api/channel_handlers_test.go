package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/chainhaul/settlementd/database"
	"github.com/chainhaul/settlementd/models"
	"github.com/chainhaul/settlementd/repo"
)

func TestChannelHandlers(t *testing.T) {
	db, err := repo.MockDB()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	channel := models.Channel{
		ID:             "channel-1",
		HeadID:         "head-1",
		ParticipantKey: "alice|bob",
		LocalParty:     "alice",
		RemoteParty:    "bob",
		State:          models.ChannelStateOpen,
		Balance:        75,
	}
	payment := models.ChannelPayment{
		ID:        "payment-1",
		ChannelID: "channel-1",
		InvoiceID: "invoice-1",
		Amount:    25,
		Status:    models.PaymentStatusConfirmed,
	}
	err = db.Update(func(tx database.Tx) error {
		if err := tx.Save(&channel); err != nil {
			return err
		}
		return tx.Save(&payment)
	})
	if err != nil {
		t.Fatal(err)
	}

	runAPITests(t, apiTests{
		{
			name:   "Get channels",
			path:   "/v1/channels",
			method: http.MethodGet,
			setNodeMethods: func(n *mockNode) {
				n.dbFunc = func() database.Database { return db }
			},
			statusCode: http.StatusOK,
			expectedResponse: func() ([]byte, error) {
				var ret []models.Channel
				err := db.View(func(tx database.Tx) error {
					return tx.Read().Find(&ret).Error
				})
				if err != nil {
					return nil, err
				}
				return marshalAndSanitizeJSON(ret)
			},
		},
		{
			name:   "Get channel",
			path:   "/v1/channels/channel-1",
			method: http.MethodGet,
			setNodeMethods: func(n *mockNode) {
				n.dbFunc = func() database.Database { return db }
			},
			statusCode: http.StatusOK,
			expectedResponse: func() ([]byte, error) {
				var ret models.Channel
				err := db.View(func(tx database.Tx) error {
					return tx.Read().Where("id = ?", "channel-1").First(&ret).Error
				})
				if err != nil {
					return nil, err
				}
				var payments []models.ChannelPayment
				err = db.View(func(tx database.Tx) error {
					return tx.Read().Where("channel_id = ?", "channel-1").Find(&payments).Error
				})
				if err != nil {
					return nil, err
				}
				ret.Payments = payments
				return marshalAndSanitizeJSON(ret)
			},
		},
		{
			name:   "Get channel not found",
			path:   "/v1/channels/nosuchchannel",
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
			name:   "Close channel",
			path:   "/v1/channels/channel-1/close",
			method: http.MethodPost,
			setNodeMethods: func(n *mockNode) {
				n.closeChannelFunc = func(ctx context.Context, channelID string) error {
					if channelID != "channel-1" {
						return errors.New("unexpected channel id")
					}
					return nil
				}
			},
			statusCode: http.StatusOK,
			expectedResponse: func() ([]byte, error) {
				return marshalAndSanitizeJSON(struct {
					ChannelID string `json:"channelID"`
					State     string `json:"state"`
				}{
					ChannelID: "channel-1",
					State:     string(models.ChannelStateFinal),
				})
			},
		},
		{
			name:   "Close channel failure",
			path:   "/v1/channels/channel-1/close",
			method: http.MethodPost,
			setNodeMethods: func(n *mockNode) {
				n.closeChannelFunc = func(ctx context.Context, channelID string) error {
					return errors.New("error")
				}
			},
			statusCode: http.StatusInternalServerError,
			expectedResponse: func() ([]byte, error) {
				return []byte(fmt.Sprintf(`{"error": "error"}%s`, "\n")), nil
			},
		},
	})
}
