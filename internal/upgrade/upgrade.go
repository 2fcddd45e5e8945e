// Package upgrade converts transactions written by historical schema
// versions into the canonical shape. Every write path runs All over the
// collection, which makes the store self-healing against stale records.
//
// Three historical split shapes are handled without a version field:
// already-canonical (participants + effects present), the friendId/half
// two-party shape, and the unassigned shape with no friend at all.
// Settlements may carry a bare delta instead of effects. Records with an
// unrecognized type pass through untouched.
package upgrade

import (
	"math"

	"github.com/tasosbeast/bill-split-sub001/internal/models"
	"github.com/tasosbeast/bill-split-sub001/internal/money"
)

// One upgrades a single record to canonical form. The second return is
// false when the record is invalid and must be dropped (e.g. a split with
// a non-positive total).
func One(t models.Transaction) (models.Transaction, bool) {
	switch t.Type {
	case models.TypeSplit:
		return upgradeSplit(t)
	case models.TypeSettlement:
		return upgradeSettlement(t), true
	default:
		// Forward compatibility: pass through shapes we do not understand.
		return t, true
	}
}

// All upgrades a collection, dropping records One rejects. The input is
// never mutated.
func All(list []models.Transaction) []models.Transaction {
	out := make([]models.Transaction, 0, len(list))
	for _, t := range list {
		if up, ok := One(t); ok {
			out = append(out, up)
		}
	}
	return out
}

func upgradeSplit(t models.Transaction) (models.Transaction, bool) {
	t = t.Clone()
	rederiveFriendID(&t)

	// Already-canonical records pass through with friendId re-derived.
	if len(t.Effects) > 0 && len(t.Participants) > 0 {
		return t, true
	}

	total := money.RoundToCents(t.Total)
	if total <= 0 {
		return models.Transaction{}, false
	}
	t.Total = total

	// Unassigned spend: nothing to reconcile against any friend.
	if t.FriendID == "" {
		t.Participants = []models.Participant{{ID: models.You, Amount: 0}}
		t.Effects = nil
		return t, true
	}

	half := money.RoundToCents(total / 2)
	if t.Half != nil {
		half = money.RoundToCents(*t.Half)
	}
	yourShare := money.RoundToCents(total - half)
	if yourShare < 0 {
		yourShare = 0
	}

	delta := half
	if t.Payer != models.You {
		delta = -yourShare
	}

	t.Participants = []models.Participant{
		{ID: models.You, Amount: yourShare},
		{ID: t.FriendID, Amount: half},
	}
	t.Effects = []models.Effect{
		{FriendID: t.FriendID, Delta: delta, Share: math.Abs(delta)},
	}
	return t, true
}

func upgradeSettlement(t models.Transaction) models.Transaction {
	t = t.Clone()
	rederiveFriendID(&t)

	if len(t.Effects) == 0 && t.FriendID != "" {
		var delta float64
		if t.Delta != nil {
			delta = money.RoundToCents(*t.Delta)
		}
		t.Effects = []models.Effect{
			{FriendID: t.FriendID, Delta: delta, Share: math.Abs(delta)},
		}
	}
	if t.SettlementStatus == "" {
		t.SettlementStatus = models.StatusInitiated
	}
	return t
}

// rederiveFriendID resolves the singular counterparty from the legacy
// plural field. Multi-friend splits have no single "the friend".
func rederiveFriendID(t *models.Transaction) {
	switch len(t.FriendIDs) {
	case 0:
	case 1:
		t.FriendID = t.FriendIDs[0]
	default:
		t.FriendID = ""
	}
}

// EnsureYou guarantees exactly one "you" participant, synthesizing a
// zero-amount entry when absent and collapsing duplicates.
func EnsureYou(participants []models.Participant) []models.Participant {
	out := make([]models.Participant, 0, len(participants)+1)
	seen := false
	for _, p := range participants {
		if p.ID == models.You {
			if seen {
				continue
			}
			seen = true
		}
		out = append(out, p)
	}
	if !seen {
		out = append(out, models.Participant{ID: models.You, Amount: 0})
	}
	return out
}

// DeriveEffects computes one effect per non-"you" participant of a split.
// If the user paid, each friend owes their share. If a friend paid, the
// user owes that friend the user's own share; other friends' debts run to
// the payer rather than the user, so their effect is zero.
func DeriveEffects(payer string, participants []models.Participant) []models.Effect {
	var yourShare float64
	for _, p := range participants {
		if p.ID == models.You {
			yourShare = p.Amount
		}
	}

	var effects []models.Effect
	for _, p := range participants {
		if p.ID == models.You {
			continue
		}
		var delta float64
		switch {
		case payer == models.You:
			delta = money.RoundToCents(p.Amount)
		case p.ID == payer:
			delta = money.RoundToCents(-yourShare)
		}
		effects = append(effects, models.Effect{
			FriendID: p.ID,
			Delta:    delta,
			Share:    math.Abs(delta),
		})
	}
	return effects
}
