package upgrade

import (
	"testing"

	"github.com/tasosbeast/bill-split-sub001/internal/models"
	"github.com/tasosbeast/bill-split-sub001/internal/money"
)

func f(v float64) *float64 { return &v }

func TestUpgradeLegacyHalfSplit(t *testing.T) {
	legacy := models.Transaction{
		ID:       "t1",
		Type:     models.TypeSplit,
		Total:    100,
		Payer:    models.You,
		FriendID: "alex",
		Half:     f(30),
	}

	got, ok := One(legacy)
	if !ok {
		t.Fatal("expected legacy split to upgrade")
	}
	if len(got.Participants) != 2 {
		t.Fatalf("expected 2 participants, got %d", len(got.Participants))
	}
	if got.Participants[0].ID != models.You || got.Participants[0].Amount != 70 {
		t.Errorf("your share = %+v, want you/70", got.Participants[0])
	}
	if got.Participants[1].ID != "alex" || got.Participants[1].Amount != 30 {
		t.Errorf("friend share = %+v, want alex/30", got.Participants[1])
	}
	if len(got.Effects) != 1 || got.Effects[0].Delta != 30 || got.Effects[0].Share != 30 {
		t.Errorf("effects = %+v, want one +30 effect", got.Effects)
	}
}

func TestUpgradeLegacySplitFriendPaid(t *testing.T) {
	legacy := models.Transaction{
		Type:     models.TypeSplit,
		Total:    80,
		Payer:    "alex",
		FriendID: "alex",
		Half:     f(50),
	}

	got, ok := One(legacy)
	if !ok {
		t.Fatal("expected upgrade to succeed")
	}
	// The user owes their own 30 share to the friend who paid.
	if got.Effects[0].Delta != -30 {
		t.Errorf("delta = %v, want -30", got.Effects[0].Delta)
	}
	if got.Effects[0].Share != 30 {
		t.Errorf("share = %v, want 30", got.Effects[0].Share)
	}
}

func TestUpgradeDefaultsHalfToHalfTotal(t *testing.T) {
	got, ok := One(models.Transaction{
		Type:     models.TypeSplit,
		Total:    33.33,
		Payer:    models.You,
		FriendID: "sam",
	})
	if !ok {
		t.Fatal("expected upgrade to succeed")
	}
	want := money.RoundToCents(33.33 / 2)
	if got.Participants[1].Amount != want {
		t.Errorf("half = %v, want %v", got.Participants[1].Amount, want)
	}
}

func TestUpgradeUnassignedSplit(t *testing.T) {
	got, ok := One(models.Transaction{Type: models.TypeSplit, Total: 12})
	if !ok {
		t.Fatal("expected upgrade to succeed")
	}
	if len(got.Participants) != 1 || got.Participants[0].ID != models.You || got.Participants[0].Amount != 0 {
		t.Errorf("participants = %+v, want single zero-amount you entry", got.Participants)
	}
	if len(got.Effects) != 0 {
		t.Errorf("effects = %+v, want none", got.Effects)
	}
}

func TestUpgradeInvalidSplitDropped(t *testing.T) {
	for _, total := range []float64{0, -5} {
		if _, ok := One(models.Transaction{Type: models.TypeSplit, Total: total, FriendID: "a"}); ok {
			t.Errorf("split with total %v should be dropped", total)
		}
	}
}

func TestUpgradeRederivesFriendID(t *testing.T) {
	canonical := models.Transaction{
		Type:         models.TypeSplit,
		Total:        20,
		FriendIDs:    []string{"alex"},
		Participants: []models.Participant{{ID: models.You, Amount: 10}, {ID: "alex", Amount: 10}},
		Effects:      []models.Effect{{FriendID: "alex", Delta: 10, Share: 10}},
	}
	got, ok := One(canonical)
	if !ok {
		t.Fatal("canonical record should pass through")
	}
	if got.FriendID != "alex" {
		t.Errorf("friendId = %q, want alex", got.FriendID)
	}

	canonical.FriendIDs = []string{"alex", "sam"}
	canonical.FriendID = "alex"
	got, _ = One(canonical)
	if got.FriendID != "" {
		t.Errorf("multi-friend split should null friendId, got %q", got.FriendID)
	}
}

func TestUpgradeSettlementBareDelta(t *testing.T) {
	got, ok := One(models.Transaction{
		Type:     models.TypeSettlement,
		FriendID: "alex",
		Delta:    f(-25),
	})
	if !ok {
		t.Fatal("expected settlement upgrade to succeed")
	}
	if len(got.Effects) != 1 {
		t.Fatalf("effects = %+v, want exactly one", got.Effects)
	}
	if got.Effects[0].Delta != -25 || got.Effects[0].Share != 25 {
		t.Errorf("effect = %+v, want delta -25 share 25", got.Effects[0])
	}
	if got.SettlementStatus != models.StatusInitiated {
		t.Errorf("status = %q, want initiated default", got.SettlementStatus)
	}
}

func TestUpgradeUnknownTypePassesThrough(t *testing.T) {
	raw := models.Transaction{ID: "x", Type: "voucher", Note: "keep me"}
	got, ok := One(raw)
	if !ok {
		t.Fatal("unknown type must not be dropped")
	}
	if got.ID != raw.ID || got.Type != raw.Type || got.Note != raw.Note {
		t.Errorf("unknown type mutated: %+v", got)
	}
}

func TestUpgradeIdempotent(t *testing.T) {
	records := []models.Transaction{
		{Type: models.TypeSplit, Total: 100, Payer: models.You, FriendID: "a", Half: f(40)},
		{Type: models.TypeSplit, Total: 9.99},
		{Type: models.TypeSettlement, FriendID: "a", Delta: f(12)},
		{Type: "mystery", Note: "n"},
	}
	for _, r := range records {
		once, ok := One(r)
		if !ok {
			t.Fatalf("first upgrade dropped %+v", r)
		}
		twice, ok := One(once)
		if !ok {
			t.Fatalf("second upgrade dropped %+v", once)
		}
		assertTransactionsEqual(t, once, twice)
	}
}

func TestUpgradeSplitSumInvariant(t *testing.T) {
	got, ok := One(models.Transaction{
		Type: models.TypeSplit, Total: 33.33, Payer: models.You, FriendID: "a",
	})
	if !ok {
		t.Fatal("expected upgrade to succeed")
	}
	var sum float64
	for _, p := range got.Participants {
		sum = money.RoundToCents(sum + p.Amount)
	}
	if sum != got.Total {
		t.Errorf("participants sum %v != total %v", sum, got.Total)
	}
}

func TestAllFiltersDropped(t *testing.T) {
	out := All([]models.Transaction{
		{Type: models.TypeSplit, Total: 0, FriendID: "a"},
		{Type: models.TypeSplit, Total: 10, FriendID: "a"},
	})
	if len(out) != 1 {
		t.Fatalf("expected 1 surviving record, got %d", len(out))
	}
}

func TestEnsureYou(t *testing.T) {
	got := EnsureYou([]models.Participant{{ID: "a", Amount: 5}})
	if len(got) != 2 || got[1].ID != models.You || got[1].Amount != 0 {
		t.Errorf("EnsureYou = %+v, want synthesized zero you entry", got)
	}

	got = EnsureYou([]models.Participant{
		{ID: models.You, Amount: 5}, {ID: models.You, Amount: 7},
	})
	count := 0
	for _, p := range got {
		if p.ID == models.You {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected exactly one you entry, got %d", count)
	}
}

func TestDeriveEffects(t *testing.T) {
	participants := []models.Participant{
		{ID: models.You, Amount: 20},
		{ID: "alex", Amount: 30},
		{ID: "sam", Amount: 50},
	}

	effects := DeriveEffects(models.You, participants)
	if len(effects) != 2 {
		t.Fatalf("expected 2 effects, got %d", len(effects))
	}
	if effects[0].Delta != 30 || effects[1].Delta != 50 {
		t.Errorf("effects = %+v, want +30/+50 when you paid", effects)
	}

	effects = DeriveEffects("alex", participants)
	if effects[0].Delta != -20 {
		t.Errorf("payer effect = %v, want -20 (your share owed to alex)", effects[0].Delta)
	}
	if effects[1].Delta != 0 || effects[1].Share != 0 {
		t.Errorf("third party effect = %+v, want zero", effects[1])
	}
}

func assertTransactionsEqual(t *testing.T, a, b models.Transaction) {
	t.Helper()
	if a.FriendID != b.FriendID || a.Total != b.Total || a.SettlementStatus != b.SettlementStatus {
		t.Errorf("transactions differ: %+v vs %+v", a, b)
	}
	if len(a.Participants) != len(b.Participants) || len(a.Effects) != len(b.Effects) {
		t.Fatalf("shape differs: %+v vs %+v", a, b)
	}
	for i := range a.Participants {
		if a.Participants[i] != b.Participants[i] {
			t.Errorf("participant %d differs: %+v vs %+v", i, a.Participants[i], b.Participants[i])
		}
	}
	for i := range a.Effects {
		if a.Effects[i] != b.Effects[i] {
			t.Errorf("effect %d differs: %+v vs %+v", i, a.Effects[i], b.Effects[i])
		}
	}
}
