package restore

import (
	"errors"
	"testing"

	"github.com/tasosbeast/bill-split-sub001/internal/models"
)

func TestSnapshotRejectsMalformedTopLevel(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"not json", `{{{`},
		{"friends missing", `{"transactions": []}`},
		{"friends null", `{"friends": null, "transactions": []}`},
		{"friends not array", `{"friends": {}, "transactions": []}`},
		{"transactions not array", `{"friends": [], "transactions": "nope"}`},
		{"selectedId not string", `{"friends": [], "transactions": [], "selectedId": 42}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Snapshot([]byte(tt.payload)); !errors.Is(err, ErrMalformedSnapshot) {
				t.Errorf("err = %v, want ErrMalformedSnapshot", err)
			}
		})
	}
}

func TestSnapshotSanitizesFriends(t *testing.T) {
	payload := `{
		"friends": [
			{"id": "f1", "name": "  Alex  ", "email": " ALEX@Example.com "},
			{"id": 42, "name": ""},
			{"id": "f2", "name": "Copycat", "email": "alex@example.com"}
		],
		"transactions": [],
		"selectedId": "f1"
	}`
	result, err := Snapshot([]byte(payload))
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	if len(result.Friends) != 2 {
		t.Fatalf("friends = %d, want 2 (email duplicate dropped)", len(result.Friends))
	}
	if result.Friends[0].Name != "Alex" || result.Friends[0].Email != "alex@example.com" {
		t.Errorf("friend[0] = %+v, want trimmed name and normalized email", result.Friends[0])
	}
	if result.Friends[1].Name != "Friend" {
		t.Errorf("blank name should default to Friend, got %q", result.Friends[1].Name)
	}
	if result.Friends[1].ID == "42" || result.Friends[1].ID == "" {
		t.Errorf("non-string id must be replaced with a generated one, got %q", result.Friends[1].ID)
	}
	if result.SelectedID != "f1" {
		t.Errorf("selectedId = %q, want f1", result.SelectedID)
	}
}

func TestSnapshotDedupDropsAllReferences(t *testing.T) {
	payload := `{
		"friends": [
			{"id": "keep", "name": "Alex", "email": "a@x.com"},
			{"id": "drop", "name": "Alex Again", "email": "A@X.COM"}
		],
		"transactions": [
			{"type": "split", "total": 10, "payer": "you", "friendId": "drop"}
		]
	}`
	result, err := Snapshot([]byte(payload))
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(result.Friends) != 1 || result.Friends[0].ID != "keep" {
		t.Fatalf("friends = %+v, want only the first", result.Friends)
	}
	if len(result.Transactions) != 0 {
		t.Errorf("transactions referencing the dropped friend must not survive: %+v", result.Transactions)
	}
	for _, tx := range result.Transactions {
		if tx.FriendID == "drop" {
			t.Error("dropped friend id leaked into transactions")
		}
	}
}

func TestSnapshotPartialFailure(t *testing.T) {
	payload := `{
		"friends": [{"id": "f1", "name": "Alex"}],
		"transactions": [
			null,
			{"type": "split", "total": 0, "friendId": "f1"},
			{"type": "split", "total": 30, "payer": "you", "friendId": "f1", "half": 15}
		]
	}`
	result, err := Snapshot([]byte(payload))
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(result.Transactions) != 1 {
		t.Fatalf("transactions = %d, want exactly 1 survivor", len(result.Transactions))
	}
	if len(result.Skipped) != 2 {
		t.Fatalf("skipped = %d, want 2", len(result.Skipped))
	}
	if result.Skipped[0].Reason != ReasonNotObject {
		t.Errorf("skipped[0].reason = %q, want %q", result.Skipped[0].Reason, ReasonNotObject)
	}
	if result.Skipped[1].Reason != ReasonBadTotal {
		t.Errorf("skipped[1].reason = %q, want %q", result.Skipped[1].Reason, ReasonBadTotal)
	}
}

func TestSnapshotV2Split(t *testing.T) {
	payload := `{
		"friends": [{"id": "f1", "name": "Alex"}, {"id": "f2", "name": "Sam"}],
		"transactions": [
			{
				"type": "split", "total": 100, "payer": "you",
				"participants": [
					{"id": "f1", "amount": 30},
					{"id": "f2", "amount": 45},
					{"id": "ghost", "amount": 10}
				],
				"category": "groceries"
			}
		]
	}`
	result, err := Snapshot([]byte(payload))
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(result.Transactions) != 1 {
		t.Fatalf("transactions = %d, want 1", len(result.Transactions))
	}
	tx := result.Transactions[0]

	// Unknown participant filtered; you share derived from the remainder.
	if len(tx.Participants) != 3 {
		t.Fatalf("participants = %+v, want you + 2 friends", tx.Participants)
	}
	if tx.Participants[0].ID != models.You || tx.Participants[0].Amount != 25 {
		t.Errorf("you share = %+v, want 25", tx.Participants[0])
	}
	if tx.Category != "Groceries" {
		t.Errorf("category = %q, want case-insensitive match Groceries", tx.Category)
	}
	if tx.FriendID != "" {
		t.Errorf("multi-friend split should have empty friendId, got %q", tx.FriendID)
	}
	if len(tx.Effects) != 2 {
		t.Errorf("effects = %+v, want one per friend participant", tx.Effects)
	}
}

func TestSnapshotV2SplitRejections(t *testing.T) {
	tests := []struct {
		name       string
		tx         string
		wantReason string
	}{
		{
			"no friend participants",
			`{"type": "split", "total": 10, "participants": [{"id": "ghost", "amount": 10}]}`,
			ReasonNoParticipants,
		},
		{
			"shares exceed total",
			`{"type": "split", "total": 10, "participants": [{"id": "f1", "amount": 15}]}`,
			ReasonTotalMismatch,
		},
		{
			"explicit you share conflicts",
			`{"type": "split", "total": 10, "participants": [{"id": "f1", "amount": 4}, {"id": "you", "amount": 5}]}`,
			ReasonTotalMismatch,
		},
		{
			"zero total",
			`{"type": "split", "total": 0, "participants": [{"id": "f1", "amount": 0}]}`,
			ReasonBadTotal,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := `{"friends": [{"id": "f1", "name": "Alex"}], "transactions": [` + tt.tx + `]}`
			result, err := Snapshot([]byte(payload))
			if err != nil {
				t.Fatalf("Snapshot: %v", err)
			}
			if len(result.Skipped) != 1 || result.Skipped[0].Reason != tt.wantReason {
				t.Errorf("skipped = %+v, want reason %q", result.Skipped, tt.wantReason)
			}
		})
	}
}

func TestSnapshotSettlement(t *testing.T) {
	payload := `{
		"friends": [{"id": "f1", "name": "Alex"}],
		"transactions": [
			{"type": "settlement", "friendId": "f1", "delta": -40, "settlementStatus": "confirmed",
			 "settlementConfirmedAt": 5000, "payment": {"provider": "paypal", "url": "https://pp/x"}},
			{"type": "settlement", "friendId": "missing", "delta": -1}
		]
	}`
	result, err := Snapshot([]byte(payload))
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(result.Transactions) != 1 {
		t.Fatalf("transactions = %d, want 1", len(result.Transactions))
	}
	tx := result.Transactions[0]
	if tx.SettlementStatus != models.StatusConfirmed {
		t.Errorf("status = %q, want confirmed", tx.SettlementStatus)
	}
	if tx.SettlementConfirmedAt == nil || *tx.SettlementConfirmedAt != 5000 {
		t.Errorf("confirmedAt = %v, want 5000", tx.SettlementConfirmedAt)
	}
	if len(tx.Effects) != 1 || tx.Effects[0].Delta != -40 {
		t.Errorf("effects = %+v, want delta -40", tx.Effects)
	}
	if tx.Payment == nil || tx.Payment.Provider != "paypal" {
		t.Errorf("payment = %+v, want provider paypal", tx.Payment)
	}

	if len(result.Skipped) != 1 || result.Skipped[0].Reason != ReasonSettlementFriend {
		t.Errorf("skipped = %+v, want unknown-friend settlement rejection", result.Skipped)
	}
}

func TestSnapshotMemoizesNonStringIDs(t *testing.T) {
	payload := `{
		"friends": [{"id": 7, "name": "Alex"}],
		"transactions": [
			{"type": "split", "total": 10, "payer": "you", "friendId": 7}
		]
	}`
	result, err := Snapshot([]byte(payload))
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(result.Friends) != 1 || len(result.Transactions) != 1 {
		t.Fatalf("want 1 friend and 1 transaction, got %d/%d", len(result.Friends), len(result.Transactions))
	}
	if result.Transactions[0].FriendID != result.Friends[0].ID {
		t.Errorf("numeric source id resolved inconsistently: friend %q vs transaction %q",
			result.Friends[0].ID, result.Transactions[0].FriendID)
	}
}

func TestSnapshotUnknownCategoryDefaults(t *testing.T) {
	payload := `{
		"friends": [{"id": "f1", "name": "Alex"}],
		"transactions": [{"type": "split", "total": 10, "friendId": "f1", "category": "lasers"}]
	}`
	result, err := Snapshot([]byte(payload))
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if result.Transactions[0].Category != models.CategoryOther {
		t.Errorf("category = %q, want %q", result.Transactions[0].Category, models.CategoryOther)
	}
}

func TestSnapshotSelectedIDNormalized(t *testing.T) {
	payload := `{"friends": [{"id": "f1", "name": "Alex"}], "transactions": [], "selectedId": "ghost"}`
	result, err := Snapshot([]byte(payload))
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if result.SelectedID != "" {
		t.Errorf("selectedId = %q, want cleared", result.SelectedID)
	}
}

func TestSnapshotTemplates(t *testing.T) {
	payload := `{
		"friends": [{"id": "f1", "name": "Alex"}],
		"transactions": [],
		"templates": [
			{"id": "t1", "name": "Rent", "total": 1200, "category": "rent",
			 "participants": [{"id": "f1", "amount": 600}, {"id": "ghost", "amount": 1}],
			 "recurrence": {"frequency": "Monthly", "nextOccurrence": "2026-10-01", "reminderDaysBefore": 3}},
			{"id": "t2", "name": "Broken", "recurrence": {"frequency": "daily", "nextOccurrence": "soon"}},
			"not an object"
		]
	}`
	result, err := Snapshot([]byte(payload))
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(result.Templates) != 2 {
		t.Fatalf("templates = %d, want 2 (non-object dropped)", len(result.Templates))
	}

	rent := result.Templates[0]
	if rent.Recurrence == nil || rent.Recurrence.Frequency != "monthly" || rent.Recurrence.NextOccurrence != "2026-10-01" {
		t.Errorf("recurrence = %+v, want normalized monthly schedule", rent.Recurrence)
	}
	if len(rent.Participants) != 1 || rent.Participants[0].ID != "f1" {
		t.Errorf("unknown template participants must be filtered: %+v", rent.Participants)
	}
	if result.Templates[1].Recurrence != nil {
		t.Errorf("invalid recurrence must be dropped, got %+v", result.Templates[1].Recurrence)
	}
}

func TestSnapshotUnknownTypePassesThrough(t *testing.T) {
	payload := `{
		"friends": [],
		"transactions": [{"type": "voucher", "note": "gift card"}]
	}`
	result, err := Snapshot([]byte(payload))
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(result.Transactions) != 1 || result.Transactions[0].Type != "voucher" {
		t.Errorf("unknown type must pass through, got %+v", result.Transactions)
	}
}
