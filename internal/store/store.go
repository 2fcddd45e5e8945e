// Package store owns the in-memory ledger state and is its single writer.
// Every mutation is applied atomically under the lock, run through the
// upgrade engine, persisted best-effort through the envelope, and only
// then announced to subscribers — observers never see a state that has
// not at least attempted durable storage. Readers get deep copies and
// must treat them as immutable snapshots.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tasosbeast/bill-split-sub001/internal/balance"
	"github.com/tasosbeast/bill-split-sub001/internal/models"
	"github.com/tasosbeast/bill-split-sub001/internal/money"
	"github.com/tasosbeast/bill-split-sub001/internal/restore"
	"github.com/tasosbeast/bill-split-sub001/internal/settlement"
	"github.com/tasosbeast/bill-split-sub001/internal/storage"
	"github.com/tasosbeast/bill-split-sub001/internal/upgrade"
)

// Structured reason codes for rejected writes.
var (
	ErrNotFound            = errors.New("not-found")
	ErrInvalidFriend       = errors.New("invalid-friend")
	ErrDuplicateEmail      = errors.New("duplicate-email")
	ErrNonZeroBalance      = errors.New("non-zero-balance")
	ErrInvalidTransaction  = errors.New("invalid-transaction")
	ErrSettlementImmutable = errors.New("settlement-immutable")
	ErrNoSelection         = errors.New("no-selection")
	ErrNoBalance           = errors.New("no-balance")
)

// Ledger is the application store: a constructible context object owning
// the snapshot state, so independent instances (e.g. in tests) never
// share globals.
type Ledger struct {
	mu          sync.RWMutex
	state       models.Snapshot
	envelope    *storage.Envelope
	subMu       sync.Mutex
	subscribers map[int]func()
	nextSub     int
}

// New builds a ledger on top of the given envelope, loading whatever
// state it holds. Stale transaction shapes are upgraded on the way in;
// a selection pointing at a missing friend is cleared.
func New(ctx context.Context, env *storage.Envelope) (*Ledger, error) {
	l := &Ledger{envelope: env, subscribers: make(map[int]func())}

	snap, err := env.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger state: %w", err)
	}
	if snap != nil {
		l.state = *snap
	}
	l.state.Transactions = upgrade.All(l.state.Transactions)
	if _, ok := l.state.FriendByID(l.state.SelectedID); !ok {
		l.state.SelectedID = ""
	}
	return l, nil
}

// Subscribe registers a listener called after every settled mutation.
// The returned function unsubscribes.
func (l *Ledger) Subscribe(fn func()) func() {
	l.subMu.Lock()
	defer l.subMu.Unlock()
	id := l.nextSub
	l.nextSub++
	l.subscribers[id] = fn
	return func() {
		l.subMu.Lock()
		defer l.subMu.Unlock()
		delete(l.subscribers, id)
	}
}

// FellBack reports whether persistence has degraded to the in-memory
// fallback store.
func (l *Ledger) FellBack() bool { return l.envelope.FellBack() }

// commit persists the current state best-effort and notifies subscribers.
// Persistence failures degrade durability, never the mutation itself.
func (l *Ledger) commit(ctx context.Context, op string) {
	l.mu.RLock()
	snap := l.state.Clone()
	l.mu.RUnlock()

	if err := l.envelope.Save(ctx, snap); err != nil {
		slog.Error("failed to persist ledger state", "op", op, "error", err)
	}
	mutationsTotal.WithLabelValues(op).Inc()

	l.subMu.Lock()
	listeners := make([]func(), 0, len(l.subscribers))
	for _, fn := range l.subscribers {
		listeners = append(listeners, fn)
	}
	l.subMu.Unlock()
	for _, fn := range listeners {
		fn()
	}
}

// Snapshot returns a deep copy of the full state.
func (l *Ledger) Snapshot() models.Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.Clone()
}

// Export serializes the snapshot as a backup file the restore pipeline
// accepts.
func (l *Ledger) Export() ([]byte, error) {
	snap := l.Snapshot()
	return json.MarshalIndent(snap, "", "  ")
}

// Balances recomputes net per-friend balances over the current list.
func (l *Ledger) Balances() map[string]float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return balance.Compute(l.state.Transactions)
}

// BalanceList is the user-facing view: nonzero balances ordered by
// descending magnitude.
func (l *Ledger) BalanceList() []balance.Entry {
	return balance.Sorted(l.Balances())
}

// Friends returns a copy of the friend list.
func (l *Ledger) Friends() []models.Friend {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]models.Friend(nil), l.state.Friends...)
}

// SelectedFriend returns the current selection id, empty if none.
func (l *Ledger) SelectedFriend() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.SelectedID
}

// TransactionsForFriend returns every transaction touching the friend,
// most recent first.
func (l *Ledger) TransactionsForFriend(friendID string) []models.Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []models.Transaction
	for _, t := range l.state.Transactions {
		if referencesFriend(t, friendID) {
			out = append(out, t.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt > out[j].CreatedAt
	})
	return out
}

// SettlementSummary is the per-friend view of the most recent settlement.
type SettlementSummary struct {
	Status    models.SettlementStatus `json:"status"`
	Balance   float64                 `json:"balance"`
	CreatedAt int64                   `json:"createdAt"`
	Payment   *models.PaymentMetadata `json:"payment,omitempty"`
}

// SettlementSummaries returns the most recent settlement per friend,
// keyed by friend id.
func (l *Ledger) SettlementSummaries() map[string]SettlementSummary {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make(map[string]SettlementSummary)
	latest := make(map[string]int64)
	for _, t := range l.state.Transactions {
		if t.Type != models.TypeSettlement {
			continue
		}
		friendID, bal := settlement.Extract(t)
		if friendID == "" {
			continue
		}
		ts := t.SettlementInitiatedAt
		if ts == 0 {
			ts = t.CreatedAt
		}
		if prev, ok := latest[friendID]; ok && prev > ts {
			continue
		}
		latest[friendID] = ts
		summary := SettlementSummary{
			Status:    t.SettlementStatus,
			Balance:   bal,
			CreatedAt: ts,
		}
		if t.Payment != nil {
			p := *t.Payment
			summary.Payment = &p
		}
		out[friendID] = summary
	}
	return out
}

// AddFriend creates a friend. Email uniqueness is enforced on the
// normalized form.
func (l *Ledger) AddFriend(ctx context.Context, name, email, tag string) (models.Friend, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Friend{}, ErrInvalidFriend
	}
	email = models.NormalizeEmail(email)

	l.mu.Lock()
	if email != "" {
		for _, f := range l.state.Friends {
			if models.NormalizeEmail(f.Email) == email {
				l.mu.Unlock()
				return models.Friend{}, ErrDuplicateEmail
			}
		}
	}
	friend := models.Friend{
		ID:        uuid.New().String(),
		Name:      name,
		Email:     email,
		Tag:       strings.TrimSpace(tag),
		Active:    true,
		CreatedAt: now(),
	}
	l.state.Friends = append(l.state.Friends, friend)
	l.mu.Unlock()

	l.commit(ctx, "add_friend")
	return friend, nil
}

// RemoveFriend deletes a friend and cascades to every transaction that
// references them. Blocked while the friend's net balance is nonzero
// (within epsilon).
func (l *Ledger) RemoveFriend(ctx context.Context, friendID string) error {
	l.mu.Lock()
	if _, ok := l.state.FriendByID(friendID); !ok {
		l.mu.Unlock()
		return ErrNotFound
	}
	if bal := balance.Compute(l.state.Transactions)[friendID]; !money.IsZero(bal) {
		l.mu.Unlock()
		return fmt.Errorf("%w: friend %s has balance %.2f", ErrNonZeroBalance, friendID, bal)
	}

	friends := l.state.Friends[:0]
	for _, f := range l.state.Friends {
		if f.ID != friendID {
			friends = append(friends, f)
		}
	}
	l.state.Friends = friends

	var transactions []models.Transaction
	for _, t := range l.state.Transactions {
		if !referencesFriend(t, friendID) {
			transactions = append(transactions, t)
		}
	}
	l.state.Transactions = upgrade.All(transactions)

	if l.state.SelectedID == friendID {
		l.state.SelectedID = ""
	}
	l.mu.Unlock()

	l.commit(ctx, "remove_friend")
	return nil
}

// SelectFriend updates the current selection; empty clears it.
func (l *Ledger) SelectFriend(ctx context.Context, friendID string) error {
	l.mu.Lock()
	if friendID != "" {
		if _, ok := l.state.FriendByID(friendID); !ok {
			l.mu.Unlock()
			return ErrNotFound
		}
	}
	l.state.SelectedID = friendID
	l.mu.Unlock()

	l.commit(ctx, "select_friend")
	return nil
}

// AddTransaction appends a transaction. Splits get their "you"
// participant synthesized and effects derived when absent; the whole
// collection then passes through the upgrade engine, which also rejects
// invalid records.
func (l *Ledger) AddTransaction(ctx context.Context, tx models.Transaction) (models.Transaction, error) {
	if tx.ID == "" {
		tx.ID = uuid.New().String()
	}
	if tx.CreatedAt == 0 {
		tx.CreatedAt = now()
	}
	tx.UpdatedAt = now()

	if tx.Type == models.TypeSplit {
		tx.Total = money.RoundToCents(tx.Total)
		if tx.Payer == "" {
			tx.Payer = models.You
		}
		if len(tx.Participants) > 0 {
			tx.Participants = upgrade.EnsureYou(tx.Participants)
			tx.Effects = upgrade.DeriveEffects(tx.Payer, tx.Participants)
			if !splitSumMatches(tx) {
				return models.Transaction{}, fmt.Errorf("%w: participant shares do not sum to total", ErrInvalidTransaction)
			}
		}
	}

	canonical, ok := upgrade.One(tx)
	if !ok {
		return models.Transaction{}, ErrInvalidTransaction
	}

	l.mu.Lock()
	l.state.Transactions = upgrade.All(append(l.state.Transactions, canonical))
	l.mu.Unlock()

	l.commit(ctx, "add_transaction")
	return canonical, nil
}

// UpdateTransaction replaces an existing split. Settlements are immutable
// except through their status transitions.
func (l *Ledger) UpdateTransaction(ctx context.Context, tx models.Transaction) (models.Transaction, error) {
	l.mu.Lock()
	i := l.state.TransactionByID(tx.ID)
	if i < 0 {
		l.mu.Unlock()
		return models.Transaction{}, ErrNotFound
	}
	if l.state.Transactions[i].Type == models.TypeSettlement {
		l.mu.Unlock()
		return models.Transaction{}, ErrSettlementImmutable
	}

	tx.CreatedAt = l.state.Transactions[i].CreatedAt
	tx.UpdatedAt = now()
	if tx.Type == models.TypeSplit && len(tx.Participants) > 0 {
		tx.Total = money.RoundToCents(tx.Total)
		tx.Participants = upgrade.EnsureYou(tx.Participants)
		tx.Effects = upgrade.DeriveEffects(tx.Payer, tx.Participants)
		if !splitSumMatches(tx) {
			l.mu.Unlock()
			return models.Transaction{}, fmt.Errorf("%w: participant shares do not sum to total", ErrInvalidTransaction)
		}
	}
	canonical, ok := upgrade.One(tx)
	if !ok {
		l.mu.Unlock()
		return models.Transaction{}, ErrInvalidTransaction
	}
	l.state.Transactions[i] = canonical
	l.state.Transactions = upgrade.All(l.state.Transactions)
	l.mu.Unlock()

	l.commit(ctx, "update_transaction")
	return canonical, nil
}

// RemoveTransaction deletes a transaction by id.
func (l *Ledger) RemoveTransaction(ctx context.Context, id string) error {
	l.mu.Lock()
	i := l.state.TransactionByID(id)
	if i < 0 {
		l.mu.Unlock()
		return ErrNotFound
	}
	l.state.Transactions = append(l.state.Transactions[:i], l.state.Transactions[i+1:]...)
	l.mu.Unlock()

	l.commit(ctx, "remove_transaction")
	return nil
}

// EnsureSettle evaluates the settle guard for the current selection.
func (l *Ledger) EnsureSettle() settlement.Guard {
	l.mu.RLock()
	selected := l.state.SelectedID
	balances := balance.Compute(l.state.Transactions)
	l.mu.RUnlock()
	return settlement.EnsureSettle(selected, balances)
}

// InitiateSettlement creates a settlement for the currently selected
// friend, covering their full outstanding balance.
func (l *Ledger) InitiateSettlement(ctx context.Context, payment *models.PaymentMetadata) (models.Transaction, error) {
	guard := l.EnsureSettle()
	if !guard.Allowed {
		switch guard.Reason {
		case "no-selection":
			return models.Transaction{}, ErrNoSelection
		default:
			return models.Transaction{}, ErrNoBalance
		}
	}

	tx, err := settlement.New(guard.FriendID, settlement.Params{
		Status:  models.StatusInitiated,
		Balance: &guard.Balance,
		Payment: payment,
	}, now())
	if err != nil {
		slog.Warn("settlement creation rejected", "friend", guard.FriendID, "error", err)
		return models.Transaction{}, err
	}

	l.mu.Lock()
	l.state.Transactions = upgrade.All(append(l.state.Transactions, tx))
	l.mu.Unlock()

	l.commit(ctx, "initiate_settlement")
	return tx, nil
}

// TransitionSettlement moves a settlement to the target status,
// re-deriving its amounts from the stored record.
func (l *Ledger) TransitionSettlement(ctx context.Context, id string, status models.SettlementStatus) (models.Transaction, error) {
	if !status.Valid() {
		return models.Transaction{}, ErrInvalidTransaction
	}

	l.mu.Lock()
	i := l.state.TransactionByID(id)
	if i < 0 || l.state.Transactions[i].Type != models.TypeSettlement {
		l.mu.Unlock()
		slog.Warn("settlement transition against unknown transaction", "id", id, "status", status)
		return models.Transaction{}, ErrNotFound
	}
	updated := settlement.Apply(l.state.Transactions[i], settlement.Params{Status: status}, now())
	l.state.Transactions[i] = updated
	l.mu.Unlock()

	l.commit(ctx, "transition_settlement")
	return updated, nil
}

// ConfirmSettlement marks the settlement as paid.
func (l *Ledger) ConfirmSettlement(ctx context.Context, id string) (models.Transaction, error) {
	return l.TransitionSettlement(ctx, id, models.StatusConfirmed)
}

// CancelSettlement abandons the settlement.
func (l *Ledger) CancelSettlement(ctx context.Context, id string) (models.Transaction, error) {
	return l.TransitionSettlement(ctx, id, models.StatusCancelled)
}

// ReopenSettlement moves a terminal settlement back to initiated,
// clearing both terminal timestamps.
func (l *Ledger) ReopenSettlement(ctx context.Context, id string) (models.Transaction, error) {
	return l.TransitionSettlement(ctx, id, models.StatusInitiated)
}

// Restore replaces the entire state with a sanitized import. Structural
// failures leave the current state untouched; per-record rejections come
// back in the result.
func (l *Ledger) Restore(ctx context.Context, payload []byte) (*restore.Result, error) {
	result, err := restore.Snapshot(payload)
	if err != nil {
		return nil, err
	}
	restoreSkippedTotal.Add(float64(len(result.Skipped)))

	l.mu.Lock()
	l.state = models.Snapshot{
		Friends:      result.Friends,
		SelectedID:   result.SelectedID,
		Transactions: result.Transactions,
		Templates:    result.Templates,
	}
	l.mu.Unlock()

	l.commit(ctx, "restore")
	return result, nil
}

// Templates returns a copy of the template list.
func (l *Ledger) Templates() []models.TransactionTemplate {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]models.TransactionTemplate, len(l.state.Templates))
	for i, t := range l.state.Templates {
		out[i] = t.Clone()
	}
	return out
}

// splitSumMatches enforces the split invariant: participant shares sum
// to the total, rounded to cents.
func splitSumMatches(t models.Transaction) bool {
	var sum float64
	for _, p := range t.Participants {
		sum = money.RoundToCents(sum + p.Amount)
	}
	return sum == t.Total
}

func referencesFriend(t models.Transaction, friendID string) bool {
	if friendID == "" {
		return false
	}
	if t.FriendID == friendID {
		return true
	}
	for _, id := range t.FriendIDs {
		if id == friendID {
			return true
		}
	}
	for _, e := range t.Effects {
		if e.FriendID == friendID {
			return true
		}
	}
	for _, p := range t.Participants {
		if p.ID == friendID {
			return true
		}
	}
	return false
}

func now() int64 {
	return time.Now().UnixMilli()
}
