package models

// TransactionType discriminates the two kinds of monetary events.
type TransactionType string

const (
	// TypeSplit is a shared expense divided among participants.
	TypeSplit TransactionType = "split"

	// TypeSettlement is a balance-clearing payment between the user and
	// exactly one friend.
	TypeSettlement TransactionType = "settlement"
)

// SettlementStatus is the lifecycle state of a settlement transaction.
type SettlementStatus string

const (
	// StatusInitiated means the settlement has been proposed but not
	// confirmed. It does not affect balances.
	StatusInitiated SettlementStatus = "initiated"

	// StatusPending is a legacy/import-only status treated like initiated.
	// It is accepted on read but never written.
	StatusPending SettlementStatus = "pending"

	// StatusConfirmed means the payment happened. Only confirmed
	// settlements count toward balances.
	StatusConfirmed SettlementStatus = "confirmed"

	// StatusCancelled means the settlement was abandoned.
	StatusCancelled SettlementStatus = "cancelled"
)

// Valid reports whether s is one of the known settlement statuses.
func (s SettlementStatus) Valid() bool {
	switch s {
	case StatusInitiated, StatusPending, StatusConfirmed, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether s is a terminal state (confirmed or cancelled).
func (s SettlementStatus) Terminal() bool {
	return s == StatusConfirmed || s == StatusCancelled
}

// Participant is one party's share of a split. ID is either the literal
// "you" sentinel or a friend id.
type Participant struct {
	ID     string  `json:"id"`
	Amount float64 `json:"amount"`
}

// Effect is the signed monetary impact of a transaction on one friend's
// balance with the user. Positive delta: the friend owes the user.
// Share is abs(delta), kept as a display/validation convenience.
type Effect struct {
	FriendID string  `json:"friendId"`
	Delta    float64 `json:"delta"`
	Share    float64 `json:"share"`
}

// PaymentMetadata is an opaque provider/url hint attached to a settlement.
type PaymentMetadata struct {
	Provider string `json:"provider,omitempty"`
	URL      string `json:"url,omitempty"`
	Note     string `json:"note,omitempty"`
}

// Transaction is the central monetary event. The canonical shape carries
// both participants and effects; legacy fields (Half, Delta, FriendIDs)
// remain so records written by older schema versions can be decoded and
// upgraded rather than rejected.
type Transaction struct {
	// ID is the unique identifier for the transaction (UUID format).
	ID string `json:"id"`

	// Type discriminates split vs settlement. Unknown values are passed
	// through untouched for forward compatibility.
	Type TransactionType `json:"type"`

	// Total is the full expense amount for splits. Invariant:
	// sum(participants.amount) == total, rounded to cents; total > 0.
	Total float64 `json:"total,omitempty"`

	// Payer is "you" or a friend id (splits only).
	Payer string `json:"payer,omitempty"`

	// Participants lists each party's share. Always contains exactly one
	// "you" entry in canonical form.
	Participants []Participant `json:"participants,omitempty"`

	// Effects hold one entry per non-"you" participant for splits, and
	// exactly one entry for settlements.
	Effects []Effect `json:"effects,omitempty"`

	Category string `json:"category,omitempty"`
	Note     string `json:"note,omitempty"`

	// FriendID is the single counterparty, when there is one. Nulled
	// (empty) for splits involving more than one friend.
	FriendID string `json:"friendId,omitempty"`

	// FriendIDs is a legacy plural form; the upgrade engine re-derives
	// FriendID from it when it holds exactly one entry.
	FriendIDs []string `json:"friendIds,omitempty"`

	// Half is the friend's share in the oldest split shape.
	Half *float64 `json:"half,omitempty"`

	// Delta is the bare signed amount in the oldest settlement shape.
	Delta *float64 `json:"delta,omitempty"`

	SettlementStatus      SettlementStatus `json:"settlementStatus,omitempty"`
	SettlementInitiatedAt int64            `json:"settlementInitiatedAt,omitempty"`

	// At most one of the terminal timestamps is non-nil at a time;
	// re-entering initiated clears both.
	SettlementConfirmedAt *int64 `json:"settlementConfirmedAt,omitempty"`
	SettlementCancelledAt *int64 `json:"settlementCancelledAt,omitempty"`

	Payment *PaymentMetadata `json:"payment,omitempty"`

	CreatedAt int64 `json:"createdAt,omitempty"`
	UpdatedAt int64 `json:"updatedAt,omitempty"`
}

// Clone returns a deep copy of the transaction.
func (t Transaction) Clone() Transaction {
	c := t
	if t.Participants != nil {
		c.Participants = append([]Participant(nil), t.Participants...)
	}
	if t.Effects != nil {
		c.Effects = append([]Effect(nil), t.Effects...)
	}
	if t.FriendIDs != nil {
		c.FriendIDs = append([]string(nil), t.FriendIDs...)
	}
	if t.Half != nil {
		v := *t.Half
		c.Half = &v
	}
	if t.Delta != nil {
		v := *t.Delta
		c.Delta = &v
	}
	if t.SettlementConfirmedAt != nil {
		v := *t.SettlementConfirmedAt
		c.SettlementConfirmedAt = &v
	}
	if t.SettlementCancelledAt != nil {
		v := *t.SettlementCancelledAt
		c.SettlementCancelledAt = &v
	}
	if t.Payment != nil {
		p := *t.Payment
		c.Payment = &p
	}
	return c
}

// Categories is the known expense category list. Matching is
// case-insensitive; unrecognized categories default to CategoryOther.
var Categories = []string{
	"Food",
	"Groceries",
	"Transport",
	"Travel",
	"Utilities",
	"Entertainment",
	"Rent",
	"Other",
}

// CategoryOther is the fallback category for unrecognized values.
const CategoryOther = "Other"
