package settlement

import (
	"context"
	"time"

	"github.com/chainhaul/settlementd/channels"
	"github.com/chainhaul/settlementd/database"
	"github.com/chainhaul/settlementd/events"
	"github.com/chainhaul/settlementd/models"
	"github.com/chainhaul/settlementd/wallet"
	"github.com/op/go-logging"
	"github.com/pkg/errors"
)

var log = logging.MustGetLogger("STLM")

// Result is what a completed settlement hands back to the caller.
type Result struct {
	DecisionLog *models.DecisionLog
	TxReference string
}

// Orchestrator drives an invoice through the settlement pipeline:
// open or reuse a payment head, execute the off-chain payment, record
// the decision log and publish the on-chain settlement transaction.
// Direct invoices skip the head pipeline and settle with a single
// on-chain transaction.
type Orchestrator struct {
	db        database.Database
	bus       events.Bus
	heads     *channels.HeadManager
	payments  *channels.PaymentExecutor
	publisher *wallet.Publisher

	escrowAddress string
	localParty    string
}

// NewOrchestrator returns an orchestrator settling on behalf of
// localParty, locking funds at escrowAddress.
func NewOrchestrator(db database.Database, bus events.Bus, heads *channels.HeadManager, payments *channels.PaymentExecutor, publisher *wallet.Publisher, escrowAddress, localParty string) *Orchestrator {
	return &Orchestrator{
		db:            db,
		bus:           bus,
		heads:         heads,
		payments:      payments,
		publisher:     publisher,
		escrowAddress: escrowAddress,
		localParty:    localParty,
	}
}

// Settle drives invoice through the pipeline to completion. Each step
// failure is recorded on the settlement record and returned wrapped
// with the step name; nothing is retried and nothing is rolled back.
// Cancelling ctx stops the in-flight waits.
func (o *Orchestrator) Settle(ctx context.Context, invoice models.Invoice) (*Result, error) {
	settlement := &models.Settlement{
		InvoiceID: invoice.ID,
		State:     models.SettlementStatePending,
	}
	err := o.db.Update(func(tx database.Tx) error {
		if err := tx.Save(&invoice); err != nil {
			return err
		}
		return tx.Save(settlement)
	})
	if err != nil {
		return nil, err
	}

	log.Infof("Settling invoice %s for %d (%s)", invoice.ID, invoice.Amount, invoice.Method)

	switch invoice.Method {
	case models.PaymentMethodDirect:
		return o.settleDirect(ctx, invoice, settlement)
	default:
		return o.settleChannel(ctx, invoice, settlement)
	}
}

func (o *Orchestrator) settleChannel(ctx context.Context, invoice models.Invoice, settlement *models.Settlement) (*Result, error) {
	channel, err := o.heads.OpenOrReuse(ctx, o.localParty, invoice.Recipient, invoice.Amount)
	if err != nil {
		return nil, o.fail(settlement, "open channel", err)
	}
	if err := o.setState(settlement, models.SettlementStateChannelReady); err != nil {
		return nil, err
	}

	payment, err := o.payments.Pay(ctx, channel, invoice)
	if err != nil {
		return nil, o.fail(settlement, "execute payment", err)
	}
	if err := o.setState(settlement, models.SettlementStatePaymentExecuted); err != nil {
		return nil, err
	}

	decisionLog, err := o.recordDecision(invoice, payment, settlement)
	if err != nil {
		return nil, o.fail(settlement, "record decision", err)
	}

	return o.publish(ctx, invoice, decisionLog, settlement)
}

func (o *Orchestrator) settleDirect(ctx context.Context, invoice models.Invoice, settlement *models.Settlement) (*Result, error) {
	decisionLog, err := o.recordDecision(invoice, nil, settlement)
	if err != nil {
		return nil, o.fail(settlement, "record decision", err)
	}
	return o.publish(ctx, invoice, decisionLog, settlement)
}

func (o *Orchestrator) recordDecision(invoice models.Invoice, payment *models.ChannelPayment, settlement *models.Settlement) (*models.DecisionLog, error) {
	decisionLog, err := BuildDecisionLog(invoice, payment, o.publisher.KeyRef(), time.Now())
	if err != nil {
		return nil, err
	}
	settlement.DecisionLogID = decisionLog.ID
	err = o.db.Update(func(tx database.Tx) error {
		if err := tx.Save(decisionLog); err != nil {
			return err
		}
		settlement.State = models.SettlementStateDecisionRecorded
		return tx.Save(settlement)
	})
	if err != nil {
		return nil, err
	}
	o.bus.Emit(&events.DecisionRecorded{
		DecisionLogID: decisionLog.ID,
		InvoiceID:     invoice.ID,
		DecisionHash:  decisionLog.DecisionHash,
	})
	return decisionLog, nil
}

func (o *Orchestrator) publish(ctx context.Context, invoice models.Invoice, decisionLog *models.DecisionLog, settlement *models.Settlement) (*Result, error) {
	txid, _, err := o.publisher.PublishFunding(ctx, o.escrowAddress, invoice.Amount, decisionLog.DecisionHash, invoice.Recipient)
	if err != nil {
		return nil, o.fail(settlement, "publish transaction", err)
	}
	settlement.TxReference = txid
	if err := o.setState(settlement, models.SettlementStatePublished); err != nil {
		return nil, err
	}
	o.bus.Emit(&events.SettlementPublished{
		InvoiceID:     invoice.ID,
		DecisionLogID: decisionLog.ID,
		TxReference:   txid,
	})

	if err := o.setState(settlement, models.SettlementStateCompleted); err != nil {
		return nil, err
	}
	log.Infof("Settled invoice %s in transaction %s", invoice.ID, txid)
	return &Result{DecisionLog: decisionLog, TxReference: txid}, nil
}

// CloseChannel settles a payment head on chain. Exposed so operators
// can wind down idle heads through the API.
func (o *Orchestrator) CloseChannel(ctx context.Context, channelID string) error {
	return o.heads.Close(ctx, channelID)
}

func (o *Orchestrator) setState(settlement *models.Settlement, state models.SettlementState) error {
	settlement.State = state
	return o.db.Update(func(tx database.Tx) error {
		return tx.Save(settlement)
	})
}

func (o *Orchestrator) fail(settlement *models.Settlement, step string, err error) error {
	wrapped := errors.Wrapf(err, "%s: invoice %s", step, settlement.InvoiceID)

	settlement.State = models.SettlementStateFailed
	settlement.FailureReason = wrapped.Error()
	dbErr := o.db.Update(func(tx database.Tx) error {
		return tx.Save(settlement)
	})
	if dbErr != nil {
		log.Errorf("Failed to persist settlement failure for invoice %s: %s", settlement.InvoiceID, dbErr)
	}
	o.bus.Emit(&events.SettlementFailed{
		InvoiceID: settlement.InvoiceID,
		Step:      step,
		Reason:    err.Error(),
	})
	log.Errorf("Settlement of invoice %s failed at %s: %s", settlement.InvoiceID, step, err)
	return wrapped
}
