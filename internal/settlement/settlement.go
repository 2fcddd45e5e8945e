// Package settlement implements the settlement lifecycle state machine:
// initiated → confirmed, initiated → cancelled, and reopen from either
// terminal state back to initiated. Amounts are re-derived on every
// transition so callers can change status without re-supplying them.
package settlement

import (
	"errors"
	"math"

	"github.com/google/uuid"

	"github.com/tasosbeast/bill-split-sub001/internal/models"
	"github.com/tasosbeast/bill-split-sub001/internal/money"
)

// Reason codes for synchronous invariant rejections.
var (
	// ErrInvalidBalance rejects settlement creation without a usable amount.
	ErrInvalidBalance = errors.New("invalid-balance")

	// ErrNotFound rejects a transition against an unknown transaction id.
	ErrNotFound = errors.New("not-found")
)

// Params carries the inputs of one transition. Balance is the amount the
// settlement corrects, signed from the user's perspective; the stored
// effect delta is its negation. Nil fields mean "derive or default".
type Params struct {
	Status      models.SettlementStatus
	Balance     *float64
	Payment     *models.PaymentMetadata
	InitiatedAt *int64
	ConfirmedAt *int64
	CancelledAt *int64
}

// New creates a settlement transaction for the given friend. A missing or
// non-finite balance is an invariant violation: no partial record is ever
// created.
func New(friendID string, p Params, now int64) (models.Transaction, error) {
	if friendID == "" || p.Balance == nil || math.IsNaN(*p.Balance) || math.IsInf(*p.Balance, 0) {
		return models.Transaction{}, ErrInvalidBalance
	}
	bal := money.RoundToCents(*p.Balance)

	t := models.Transaction{
		ID:       uuid.New().String(),
		Type:     models.TypeSettlement,
		FriendID: friendID,
		Payment:  p.Payment,
	}
	applyAmounts(&t, bal)

	t.SettlementInitiatedAt = now
	if p.InitiatedAt != nil {
		t.SettlementInitiatedAt = *p.InitiatedAt
	}
	t.CreatedAt = t.SettlementInitiatedAt

	status := p.Status
	if !status.Valid() {
		status = models.StatusInitiated
	}
	applyStatus(&t, status, p, now)
	return t, nil
}

// Apply transitions an existing settlement to the target status,
// recomputing shares from the supplied balance or, when omitted, from the
// record's previously derived delta. The initiated timestamp is set once
// at creation and survives every later transition unless explicitly
// overridden.
func Apply(existing models.Transaction, p Params, now int64) models.Transaction {
	t := existing.Clone()

	bal := Balance(t)
	if p.Balance != nil && !math.IsNaN(*p.Balance) && !math.IsInf(*p.Balance, 0) {
		bal = money.RoundToCents(*p.Balance)
	}
	applyAmounts(&t, bal)

	if p.Payment != nil {
		t.Payment = p.Payment
	}
	if p.InitiatedAt != nil {
		t.SettlementInitiatedAt = *p.InitiatedAt
	}

	status := p.Status
	if !status.Valid() {
		status = t.SettlementStatus
	}
	applyStatus(&t, status, p, now)
	return t
}

// applyAmounts rewrites participants and the single effect from the
// signed balance the settlement corrects.
func applyAmounts(t *models.Transaction, bal float64) {
	friendShare := math.Max(bal, 0)
	yourShare := math.Max(-bal, 0)

	t.Participants = []models.Participant{
		{ID: models.You, Amount: yourShare},
		{ID: t.FriendID, Amount: friendShare},
	}
	t.Effects = []models.Effect{
		{FriendID: t.FriendID, Delta: money.RoundToCents(-bal), Share: math.Abs(bal)},
	}
}

// applyStatus sets the target status and enforces the timestamp rules:
// terminal timestamps are mutually exclusive, and re-entering initiated
// clears both.
func applyStatus(t *models.Transaction, status models.SettlementStatus, p Params, now int64) {
	t.SettlementStatus = status
	switch status {
	case models.StatusConfirmed:
		ts := now
		if p.ConfirmedAt != nil {
			ts = *p.ConfirmedAt
		}
		t.SettlementConfirmedAt = &ts
		t.SettlementCancelledAt = nil
	case models.StatusCancelled:
		ts := now
		if p.CancelledAt != nil {
			ts = *p.CancelledAt
		}
		t.SettlementCancelledAt = &ts
		t.SettlementConfirmedAt = nil
	default:
		t.SettlementConfirmedAt = nil
		t.SettlementCancelledAt = nil
	}
	t.UpdatedAt = now
}

// Extract derives the counterparty and the balance a settlement corrects,
// tolerating partially-upgraded records: explicit friendId wins, then the
// legacy plural field, then the effect's friend reference. The delta comes
// from the first effect, falling back to the negated friend participant
// amount, else zero.
func Extract(t models.Transaction) (friendID string, bal float64) {
	switch {
	case t.FriendID != "":
		friendID = t.FriendID
	case len(t.FriendIDs) > 0:
		friendID = t.FriendIDs[0]
	case len(t.Effects) > 0:
		friendID = t.Effects[0].FriendID
	}

	var delta float64
	switch {
	case len(t.Effects) > 0:
		delta = t.Effects[0].Delta
	default:
		for _, p := range t.Participants {
			if p.ID != models.You {
				delta = -p.Amount
				break
			}
		}
	}
	return friendID, -delta
}

// Balance is the Extract shorthand when only the amount is needed.
func Balance(t models.Transaction) float64 {
	_, bal := Extract(t)
	return bal
}

// Guard is the result of the settle pre-check.
type Guard struct {
	Allowed  bool    `json:"allowed"`
	Reason   string  `json:"reason,omitempty"`
	FriendID string  `json:"friendId,omitempty"`
	Balance  float64 `json:"balance,omitempty"`
}

// EnsureSettle evaluates whether a new settlement makes sense: a friend
// must be selected and their current balance must be nonzero. Zero-amount
// settlements are meaningless and never created.
func EnsureSettle(selectedID string, balances map[string]float64) Guard {
	if selectedID == "" {
		return Guard{Reason: "no-selection"}
	}
	bal := balances[selectedID]
	if bal == 0 {
		return Guard{Reason: "no-balance"}
	}
	return Guard{Allowed: true, FriendID: selectedID, Balance: bal}
}
