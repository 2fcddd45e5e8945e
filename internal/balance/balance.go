// Package balance folds a transaction collection into net per-friend
// balances from the user's perspective.
package balance

import (
	"math"
	"sort"

	"github.com/tasosbeast/bill-split-sub001/internal/models"
	"github.com/tasosbeast/bill-split-sub001/internal/money"
)

// Compute folds every transaction's effects into a per-friend accumulator.
// Settlements count only once confirmed; every other record (including
// unknown types carrying effects) is always included. The accumulator is
// re-rounded after every addition so drift cannot compound across many
// small transactions. The fold is deterministic and order-independent.
// Friends that net out to exactly zero stay in the map as 0.
func Compute(transactions []models.Transaction) map[string]float64 {
	balances := make(map[string]float64)
	for _, t := range transactions {
		if t.Type == models.TypeSettlement && t.SettlementStatus != models.StatusConfirmed {
			continue
		}
		for _, e := range t.Effects {
			if e.FriendID == "" {
				continue
			}
			balances[e.FriendID] = money.RoundToCents(balances[e.FriendID] + e.Delta)
		}
	}
	return balances
}

// Entry is one row of a user-facing balance list.
type Entry struct {
	FriendID string  `json:"friendId"`
	Balance  float64 `json:"balance"`
}

// Sorted renders balances as a list ordered by descending magnitude,
// dropping zero entries. Ties break on friend id so the order is stable.
func Sorted(balances map[string]float64) []Entry {
	entries := make([]Entry, 0, len(balances))
	for id, b := range balances {
		if b == 0 {
			continue
		}
		entries = append(entries, Entry{FriendID: id, Balance: b})
	}
	sort.Slice(entries, func(i, j int) bool {
		ai, aj := math.Abs(entries[i].Balance), math.Abs(entries[j].Balance)
		if ai != aj {
			return ai > aj
		}
		return entries[i].FriendID < entries[j].FriendID
	})
	return entries
}
