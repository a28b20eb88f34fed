package channels

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chainhaul/settlementd/database"
	"github.com/chainhaul/settlementd/events"
	"github.com/chainhaul/settlementd/models"
	"github.com/google/uuid"
	"github.com/jinzhu/gorm"
)

// PaymentExecutor submits off-chain payments into open channels and
// awaits their confirmation. Balance updates for a given channel are
// serialized even though payments for different invoices may be
// issued concurrently.
type PaymentExecutor struct {
	gateway  Gateway
	listener *Listener
	db       database.Database
	bus      events.Bus
	timeout  time.Duration

	mtx   sync.Mutex
	locks map[string]*sync.Mutex
}

// NewPaymentExecutor returns an executor submitting payments over the
// given gateway connection.
func NewPaymentExecutor(gateway Gateway, listener *Listener, db database.Database, bus events.Bus, timeout time.Duration) *PaymentExecutor {
	return &PaymentExecutor{
		gateway:  gateway,
		listener: listener,
		db:       db,
		bus:      bus,
		timeout:  timeout,
		locks:    make(map[string]*sync.Mutex),
	}
}

func (e *PaymentExecutor) channelLock(channelID string) *sync.Mutex {
	e.mtx.Lock()
	defer e.mtx.Unlock()

	l, ok := e.locks[channelID]
	if !ok {
		l = &sync.Mutex{}
		e.locks[channelID] = l
	}
	return l
}

// Pay executes one off-chain payment settling the invoice inside the
// channel. The channel balance is decremented optimistically and
// reverted if the payment is rejected or times out. Payments are
// idempotent per invoice: if a pending or confirmed payment for the
// invoice already exists in the channel it is returned without
// resubmitting.
func (e *PaymentExecutor) Pay(ctx context.Context, channel *models.Channel, invoice models.Invoice) (*models.ChannelPayment, error) {
	lock := e.channelLock(channel.ID)
	lock.Lock()
	defer lock.Unlock()

	var existing models.ChannelPayment
	err := e.db.View(func(tx database.Tx) error {
		return tx.Read().
			Where("channel_id = ? AND invoice_id = ? AND status IN (?)",
				channel.ID, invoice.ID,
				[]models.PaymentStatus{models.PaymentStatusPending, models.PaymentStatusConfirmed}).
			First(&existing).Error
	})
	if err == nil {
		return &existing, nil
	}
	if !gorm.IsRecordNotFoundError(err) {
		return nil, err
	}

	// The caller's channel may be a stale snapshot. The state and
	// balance checks must run against the persisted row while the
	// channel lock is held or concurrent payments can overdraw.
	var current models.Channel
	err = e.db.View(func(tx database.Tx) error {
		return tx.Read().Where("id = ?", channel.ID).First(&current).Error
	})
	if err != nil {
		return nil, err
	}

	if current.State != models.ChannelStateOpen {
		return nil, &InvalidStateError{ChannelID: current.ID, State: current.State, Op: "pay"}
	}
	if current.Balance < invoice.Amount {
		return nil, &InsufficientBalanceError{
			ChannelID: current.ID,
			InvoiceID: invoice.ID,
			Balance:   current.Balance,
			Required:  invoice.Amount,
		}
	}

	payment := &models.ChannelPayment{
		ID:        uuid.New().String(),
		ChannelID: current.ID,
		InvoiceID: invoice.ID,
		Sender:    current.LocalParty,
		Recipient: invoice.Recipient,
		Amount:    invoice.Amount,
		Purpose:   fmt.Sprintf("invoice:%s", invoice.ID),
		Status:    models.PaymentStatusPending,
	}

	current.Balance -= invoice.Amount
	err = e.db.Update(func(tx database.Tx) error {
		if err := tx.Save(payment); err != nil {
			return err
		}
		return tx.Save(&current)
	})
	if err != nil {
		return nil, err
	}

	cmd := Command{
		Tag: CommandNewTx,
		Transaction: &OffChainTx{
			ID:        payment.ID,
			Sender:    payment.Sender,
			Recipient: payment.Recipient,
			Amount:    payment.Amount,
			Purpose:   payment.Purpose,
		},
	}
	if err := e.gateway.Send(ctx, cmd); err != nil {
		e.revert(&current, payment)
		return nil, err
	}

	n, err := e.listener.Await(ctx, e.timeout, func(n Notification) bool {
		if n.Transaction == nil {
			return false
		}
		if n.Tag != NotifTxValid && n.Tag != NotifTxInvalid {
			return false
		}
		return n.Transaction.ID == payment.ID
	})
	if err == errAwaitTimeout {
		if rerr := e.revert(&current, payment); rerr != nil {
			return nil, rerr
		}
		return nil, &PaymentTimeoutError{
			ChannelID: current.ID,
			InvoiceID: invoice.ID,
			PaymentID: payment.ID,
			Timeout:   e.timeout,
		}
	}
	if err != nil {
		return nil, err
	}
	if n.Tag == NotifTxInvalid {
		if rerr := e.revert(&current, payment); rerr != nil {
			return nil, rerr
		}
		return nil, &PaymentRejectedError{
			ChannelID: current.ID,
			InvoiceID: invoice.ID,
			PaymentID: payment.ID,
			Reason:    n.Reason,
		}
	}

	now := time.Now()
	payment.Status = models.PaymentStatusConfirmed
	payment.ConfirmedAt = &now
	err = e.db.Update(func(tx database.Tx) error {
		return tx.Save(payment)
	})
	if err != nil {
		return nil, err
	}

	log.Infof("Payment %s for invoice %s confirmed on channel %s", payment.ID, invoice.ID, current.ID)
	e.bus.Emit(&events.PaymentConfirmed{
		PaymentID: payment.ID,
		ChannelID: current.ID,
		InvoiceID: invoice.ID,
		Amount:    payment.Amount,
	})
	return payment, nil
}

// revert undoes the optimistic balance decrement and marks the
// payment failed.
func (e *PaymentExecutor) revert(channel *models.Channel, payment *models.ChannelPayment) error {
	channel.Balance += payment.Amount
	payment.Status = models.PaymentStatusFailed
	return e.db.Update(func(tx database.Tx) error {
		if err := tx.Save(payment); err != nil {
			return err
		}
		return tx.Save(channel)
	})
}
