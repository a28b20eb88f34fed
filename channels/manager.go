package channels

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/chainhaul/settlementd/database"
	"github.com/chainhaul/settlementd/events"
	"github.com/chainhaul/settlementd/models"
	"github.com/google/uuid"
	"github.com/jinzhu/gorm"
)

// legalTransitions is the strict head state transition table. Any
// transition not listed here is rejected.
var legalTransitions = map[models.ChannelState][]models.ChannelState{
	models.ChannelStateIdle:         {models.ChannelStateInitializing, models.ChannelStateFailed},
	models.ChannelStateInitializing: {models.ChannelStateOpen, models.ChannelStateFailed},
	models.ChannelStateOpen:         {models.ChannelStateClosed, models.ChannelStateFailed},
	models.ChannelStateClosed:       {models.ChannelStateFinal, models.ChannelStateFailed},
}

func canTransition(from, to models.ChannelState) bool {
	for _, s := range legalTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ParticipantKey returns the canonical identity of the channel shared
// by the given participant pair. The key is order independent.
func ParticipantKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return strings.Join([]string{a, b}, "|")
}

// ManagerConfig holds the head manager's tunables.
type ManagerConfig struct {
	// ContestationPeriod in seconds passed with the init command.
	ContestationPeriod uint64

	// FundingTarget is the balance a freshly opened channel starts
	// with, in minor units.
	FundingTarget int64

	// OpenTimeout bounds the wait for the head open notification.
	OpenTimeout time.Duration

	// CloseTimeout bounds the wait for each of the close and finalize
	// notifications.
	CloseTimeout time.Duration
}

// HeadManager tracks the lifecycle of payment heads. It issues
// lifecycle commands through the gateway and consumes the asynchronous
// notifications that drive the state machine. Only one lifecycle
// command may be in flight at a time per channel identity.
type HeadManager struct {
	gateway  Gateway
	listener *Listener
	db       database.Database
	bus      events.Bus
	cfg      ManagerConfig

	mtx  sync.Mutex
	busy map[string]struct{}
}

// NewHeadManager returns a manager driving heads over the given
// gateway connection.
func NewHeadManager(gateway Gateway, listener *Listener, db database.Database, bus events.Bus, cfg ManagerConfig) *HeadManager {
	return &HeadManager{
		gateway:  gateway,
		listener: listener,
		db:       db,
		bus:      bus,
		cfg:      cfg,
		busy:     make(map[string]struct{}),
	}
}

func (m *HeadManager) acquire(id string) bool {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	if _, ok := m.busy[id]; ok {
		return false
	}
	m.busy[id] = struct{}{}
	return true
}

func (m *HeadManager) release(id string) {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	delete(m.busy, id)
}

// OpenOrReuse returns an open channel between the two participants.
// If one already exists with at least the needed balance it is
// returned as is. Otherwise an init command is issued and the call
// waits, bounded by the configured timeout, for the head open
// notification.
func (m *HeadManager) OpenOrReuse(ctx context.Context, localParty, remoteParty string, needed int64) (*models.Channel, error) {
	key := ParticipantKey(localParty, remoteParty)
	if !m.acquire(key) {
		return nil, &BusyError{ChannelID: key}
	}
	defer m.release(key)

	var existing models.Channel
	err := m.db.View(func(tx database.Tx) error {
		return tx.Read().
			Where("participant_key = ? AND state = ?", key, models.ChannelStateOpen).
			First(&existing).Error
	})
	if err == nil && existing.Balance >= needed {
		return &existing, nil
	}
	if err != nil && !gorm.IsRecordNotFoundError(err) {
		return nil, err
	}

	channel := &models.Channel{
		ID:             uuid.New().String(),
		ParticipantKey: key,
		LocalParty:     localParty,
		RemoteParty:    remoteParty,
		State:          models.ChannelStateInitializing,
	}
	err = m.db.Update(func(tx database.Tx) error {
		return tx.Save(channel)
	})
	if err != nil {
		return nil, err
	}

	log.Infof("Initializing channel %s for participants %s", channel.ID, key)

	cmd := Command{Tag: CommandInit, ContestationPeriod: m.cfg.ContestationPeriod}
	if err := m.gateway.Send(ctx, cmd); err != nil {
		m.setState(channel, models.ChannelStateFailed)
		return nil, err
	}

	n, err := m.listener.Await(ctx, m.cfg.OpenTimeout, func(n Notification) bool {
		return n.Tag == NotifHeadIsOpen || n.Tag == NotifCommandFailed
	})
	if err == errAwaitTimeout {
		m.setState(channel, models.ChannelStateFailed)
		return nil, &OpenTimeoutError{ParticipantKey: key, Timeout: m.cfg.OpenTimeout}
	}
	if err != nil {
		return nil, err
	}
	if n.Tag == NotifCommandFailed {
		m.setState(channel, models.ChannelStateFailed)
		return nil, &OpenRejectedError{ParticipantKey: key, ClientError: n.ClientError}
	}

	channel.HeadID = n.HeadID
	channel.State = models.ChannelStateOpen
	channel.Balance = m.cfg.FundingTarget
	err = m.db.Update(func(tx database.Tx) error {
		return tx.Save(channel)
	})
	if err != nil {
		return nil, err
	}

	log.Infof("Channel %s is open with head id %s and balance %d", channel.ID, channel.HeadID, channel.Balance)
	m.bus.Emit(&events.ChannelOpened{
		ChannelID:      channel.ID,
		ParticipantKey: key,
		Balance:        channel.Balance,
	})
	return channel, nil
}

// Close issues a close command for an open channel and waits for the
// head to close and then finalize on the base ledger. A close timeout
// leaves the channel state untouched; a finalize timeout leaves it
// closed so finalization can be polled again later.
func (m *HeadManager) Close(ctx context.Context, channelID string) error {
	var channel models.Channel
	err := m.db.View(func(tx database.Tx) error {
		return tx.Read().Where("id = ?", channelID).First(&channel).Error
	})
	if err != nil {
		return err
	}

	// Serialize on the participant key so a concurrent OpenOrReuse
	// for the same pair is rejected, not interleaved.
	if !m.acquire(channel.ParticipantKey) {
		return &BusyError{ChannelID: channel.ParticipantKey}
	}
	defer m.release(channel.ParticipantKey)

	// Re-read under the lock; the row may have advanced while the
	// lock was contended.
	err = m.db.View(func(tx database.Tx) error {
		return tx.Read().Where("id = ?", channelID).First(&channel).Error
	})
	if err != nil {
		return err
	}
	if channel.State != models.ChannelStateOpen {
		return &InvalidStateError{ChannelID: channelID, State: channel.State, Op: "close"}
	}

	if err := m.gateway.Send(ctx, Command{Tag: CommandClose}); err != nil {
		return err
	}

	n, err := m.listener.Await(ctx, m.cfg.CloseTimeout, func(n Notification) bool {
		return n.Tag == NotifHeadIsClosed || n.Tag == NotifCommandFailed
	})
	if err == errAwaitTimeout {
		return &CloseTimeoutError{ChannelID: channelID, Phase: "close", Timeout: m.cfg.CloseTimeout}
	}
	if err != nil {
		return err
	}
	if n.Tag == NotifCommandFailed {
		return &InvalidStateError{ChannelID: channelID, State: channel.State, Op: "close"}
	}

	if err := m.setState(&channel, models.ChannelStateClosed); err != nil {
		return err
	}
	closed := events.ChannelClosed{ChannelID: channelID}
	if n.ContestationDeadline != nil {
		closed.ContestationDeadline = *n.ContestationDeadline
	}
	m.bus.Emit(&closed)

	_, err = m.listener.Await(ctx, m.cfg.CloseTimeout, func(n Notification) bool {
		return n.Tag == NotifHeadIsFinalized
	})
	if err == errAwaitTimeout {
		return &CloseTimeoutError{ChannelID: channelID, Phase: "finalize", Timeout: m.cfg.CloseTimeout}
	}
	if err != nil {
		return err
	}

	if err := m.setState(&channel, models.ChannelStateFinal); err != nil {
		return err
	}
	log.Infof("Channel %s finalized", channelID)
	m.bus.Emit(&events.ChannelFinalized{ChannelID: channelID})
	return nil
}

func (m *HeadManager) setState(channel *models.Channel, to models.ChannelState) error {
	if !canTransition(channel.State, to) {
		return &InvalidStateError{ChannelID: channel.ID, State: channel.State, Op: "enter state " + string(to)}
	}
	channel.State = to
	return m.db.Update(func(tx database.Tx) error {
		return tx.Save(channel)
	})
}
