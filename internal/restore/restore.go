// Package restore validates and repairs an externally-supplied backup
// payload (friends + transactions + templates), producing a clean
// in-memory snapshot plus a per-record rejection report. A malformed
// top-level shape fails hard; a single bad record never aborts the rest
// of the import.
package restore

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tasosbeast/bill-split-sub001/internal/models"
	"github.com/tasosbeast/bill-split-sub001/internal/money"
	"github.com/tasosbeast/bill-split-sub001/internal/settlement"
	"github.com/tasosbeast/bill-split-sub001/internal/upgrade"
)

// ErrMalformedSnapshot is returned when the top-level payload shape is
// unusable: friends/transactions not arrays, or selectedId neither null
// nor a string. Surfaced to the user as "restore failed".
var ErrMalformedSnapshot = errors.New("malformed snapshot payload")

// Rejection reasons recorded in the skip report.
const (
	ReasonNotObject        = "Transaction entry was not an object"
	ReasonNoParticipants   = "Split is missing friend participants"
	ReasonBadTotal         = "Split total must be a positive amount"
	ReasonTotalMismatch    = "Split total does not reconcile with participant shares"
	ReasonUnknownFriend    = "Split references an unknown friend"
	ReasonSettlementFriend = "Settlement references an unknown friend"
	ReasonUnparsable       = "Transaction could not be parsed"
)

// Skipped records one rejected transaction with the original payload so
// the user can inspect what was dropped.
type Skipped struct {
	Transaction json.RawMessage `json:"transaction"`
	Reason      string          `json:"reason"`
}

// Result is the sanitized snapshot plus the rejection report.
type Result struct {
	Friends      []models.Friend
	SelectedID   string
	Transactions []models.Transaction
	Templates    []models.TransactionTemplate
	Skipped      []Skipped
}

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Snapshot sanitizes an untrusted JSON backup. It returns
// ErrMalformedSnapshot (wrapped) for structural failures; per-record
// problems land in Result.Skipped instead.
func Snapshot(payload []byte) (*Result, error) {
	var raw struct {
		Friends      json.RawMessage `json:"friends"`
		Transactions json.RawMessage `json:"transactions"`
		SelectedID   any             `json:"selectedId"`
		Templates    json.RawMessage `json:"templates"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}

	var rawFriends []any
	if err := json.Unmarshal(raw.Friends, &rawFriends); err != nil || rawFriends == nil {
		return nil, fmt.Errorf("%w: friends is not an array", ErrMalformedSnapshot)
	}
	var rawTransactions []json.RawMessage
	if err := json.Unmarshal(raw.Transactions, &rawTransactions); err != nil || rawTransactions == nil {
		return nil, fmt.Errorf("%w: transactions is not an array", ErrMalformedSnapshot)
	}
	selectedID := ""
	switch v := raw.SelectedID.(type) {
	case nil:
	case string:
		selectedID = v
	default:
		return nil, fmt.Errorf("%w: selectedId is neither null nor a string", ErrMalformedSnapshot)
	}

	s := &sanitizer{
		ids:   make(map[string]string),
		known: make(map[string]bool),
		now:   time.Now().UnixMilli(),
	}

	result := &Result{}
	result.Friends = s.friends(rawFriends)
	for _, t := range rawTransactions {
		tx, reason := s.transaction(t)
		if reason != "" {
			result.Skipped = append(result.Skipped, Skipped{Transaction: t, Reason: reason})
			continue
		}
		result.Transactions = append(result.Transactions, tx)
	}

	if raw.Templates != nil {
		var rawTemplates []any
		if err := json.Unmarshal(raw.Templates, &rawTemplates); err == nil {
			result.Templates = s.templates(rawTemplates)
		} else {
			slog.Warn("restore: templates is not an array, dropping")
		}
	}

	// One more upgrade pass so every surviving record is canonical.
	result.Transactions = upgrade.All(result.Transactions)

	if selectedID != "" && !s.known[selectedID] {
		selectedID = ""
	}
	result.SelectedID = selectedID
	return result, nil
}

// sanitizer carries the per-call state: the non-string-id memo and the set
// of surviving friend ids. It is local to one restore call, never shared.
type sanitizer struct {
	ids   map[string]string
	known map[string]bool
	now   int64
}

// resolveID maps a source id to a stable string id. Non-string source ids
// get a fresh uuid, memoized so repeated references resolve consistently
// within this restore call.
func (s *sanitizer) resolveID(v any) string {
	if id, ok := v.(string); ok && strings.TrimSpace(id) != "" {
		return id
	}
	if v == nil {
		return ""
	}
	key := fmt.Sprintf("%T:%v", v, v)
	if id, ok := s.ids[key]; ok {
		return id
	}
	id := uuid.New().String()
	s.ids[key] = id
	return id
}

func (s *sanitizer) friends(raw []any) []models.Friend {
	var out []models.Friend
	byEmail := make(map[string]models.Friend)
	for _, entry := range raw {
		m, ok := entry.(map[string]any)
		if !ok {
			slog.Warn("restore: friend entry was not an object, dropping")
			continue
		}

		f := models.Friend{
			ID:        s.resolveID(m["id"]),
			Name:      strings.TrimSpace(stringOf(m["name"])),
			Email:     models.NormalizeEmail(stringOf(m["email"])),
			Tag:       strings.TrimSpace(stringOf(m["tag"])),
			Active:    true,
			CreatedAt: timestampOf(m["createdAt"], s.now),
		}
		if f.ID == "" {
			f.ID = uuid.New().String()
		}
		if f.Name == "" {
			f.Name = "Friend"
		}
		if active, ok := m["active"].(bool); ok {
			f.Active = active
		}

		if s.known[f.ID] {
			slog.Warn("restore: duplicate friend id, dropping", "id", f.ID)
			continue
		}
		if f.Email != "" {
			if kept, dup := byEmail[f.Email]; dup {
				slog.Warn("restore: duplicate friend email, dropping",
					"email", f.Email, "kept", kept.ID, "dropped", f.ID)
				continue
			}
			byEmail[f.Email] = f
		}

		s.known[f.ID] = true
		out = append(out, f)
	}
	return out
}

// transaction sanitizes one record. A non-empty reason means the record
// was rejected. Panics inside the per-record work are converted to a
// rejection so one broken entry cannot abort the whole restore.
func (s *sanitizer) transaction(raw json.RawMessage) (tx models.Transaction, reason string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("restore: transaction sanitizer panicked", "panic", r)
			tx, reason = models.Transaction{}, ReasonUnparsable
		}
	}()

	var entry any
	if err := json.Unmarshal(raw, &entry); err != nil {
		return models.Transaction{}, ReasonNotObject
	}
	m, ok := entry.(map[string]any)
	if !ok {
		return models.Transaction{}, ReasonNotObject
	}

	switch stringOf(m["type"]) {
	case string(models.TypeSettlement):
		return s.settlementRecord(m)
	case string(models.TypeSplit), "":
		// Records predating the type field are splits.
		return s.splitRecord(m)
	default:
		// Forward compatibility: keep shapes we do not understand.
		var passthrough models.Transaction
		if err := json.Unmarshal(raw, &passthrough); err != nil {
			return models.Transaction{}, ReasonUnparsable
		}
		if passthrough.ID == "" {
			passthrough.ID = uuid.New().String()
		}
		return passthrough, ""
	}
}

func (s *sanitizer) splitRecord(m map[string]any) (models.Transaction, string) {
	total := money.RoundToCents(money.Coerce(m["total"]))

	if rawParticipants, ok := m["participants"].([]any); ok {
		return s.splitV2(m, total, rawParticipants)
	}
	return s.splitV1(m, total)
}

// splitV2 parses the explicit-participants shape. Unknown friend ids are
// filtered out; the "you" share must reconcile exactly with the total.
func (s *sanitizer) splitV2(m map[string]any, total float64, rawParticipants []any) (models.Transaction, string) {
	if total <= 0 {
		return models.Transaction{}, ReasonBadTotal
	}

	var participants []models.Participant
	seen := make(map[string]bool)
	var friendSum float64
	var youShare *float64
	for _, entry := range rawParticipants {
		pm, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		id := s.resolveID(pm["id"])
		if id != models.You && !s.known[id] {
			continue
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		amount := money.RoundToCents(money.Coerce(pm["amount"]))
		if id == models.You {
			youShare = &amount
			continue
		}
		friendSum = money.RoundToCents(friendSum + amount)
		participants = append(participants, models.Participant{ID: id, Amount: amount})
	}
	if len(participants) == 0 {
		return models.Transaction{}, ReasonNoParticipants
	}

	derived := money.RoundToCents(total - friendSum)
	if derived < 0 {
		return models.Transaction{}, ReasonTotalMismatch
	}
	if youShare != nil && *youShare != derived {
		return models.Transaction{}, ReasonTotalMismatch
	}
	participants = append([]models.Participant{{ID: models.You, Amount: derived}}, participants...)

	payer := models.You
	if p := s.resolveID(m["payer"]); p == models.You || s.known[p] {
		if p != "" {
			payer = p
		}
	}

	friendID := ""
	if len(participants) == 2 {
		friendID = participants[1].ID
	}

	created := timestampOf(m["createdAt"], s.now)
	return models.Transaction{
		ID:           s.recordID(m["id"]),
		Type:         models.TypeSplit,
		Total:        total,
		Payer:        payer,
		Participants: participants,
		Effects:      upgrade.DeriveEffects(payer, participants),
		Category:     s.category(m["category"]),
		Note:         strings.TrimSpace(stringOf(m["note"])),
		FriendID:     friendID,
		CreatedAt:    created,
		UpdatedAt:    timestampOf(m["updatedAt"], created),
	}, ""
}

// splitV1 parses the legacy friendId/half/payer triple through the same
// total/half math the upgrade engine uses.
func (s *sanitizer) splitV1(m map[string]any, total float64) (models.Transaction, string) {
	legacy := models.Transaction{
		ID:        s.recordID(m["id"]),
		Type:      models.TypeSplit,
		Total:     total,
		Payer:     models.You,
		Category:  s.category(m["category"]),
		Note:      strings.TrimSpace(stringOf(m["note"])),
		CreatedAt: timestampOf(m["createdAt"], s.now),
	}
	legacy.UpdatedAt = timestampOf(m["updatedAt"], legacy.CreatedAt)
	if p := stringOf(m["payer"]); p != "" {
		legacy.Payer = p
	}

	if rawID, present := m["friendId"]; present && rawID != nil {
		id := s.resolveID(rawID)
		if !s.known[id] {
			return models.Transaction{}, ReasonUnknownFriend
		}
		legacy.FriendID = id
		if rawHalf, ok := m["half"]; ok {
			half := money.RoundToCents(money.Coerce(rawHalf))
			legacy.Half = &half
		}
	}

	tx, ok := upgrade.One(legacy)
	if !ok {
		return models.Transaction{}, ReasonBadTotal
	}
	return tx, ""
}

// settlementRecord resolves the counterparty and delta, then defaults
// status and timestamps through the same rules settlement creation uses.
func (s *sanitizer) settlementRecord(m map[string]any) (models.Transaction, string) {
	friendID := s.resolveID(m["friendId"])
	if friendID == "" {
		if ids, ok := m["friendIds"].([]any); ok && len(ids) > 0 {
			friendID = s.resolveID(ids[0])
		}
	}
	var effectDelta *float64
	if effects, ok := m["effects"].([]any); ok && len(effects) > 0 {
		if em, ok := effects[0].(map[string]any); ok {
			if friendID == "" {
				friendID = s.resolveID(em["friendId"])
			}
			d := money.Coerce(em["delta"])
			effectDelta = &d
		}
	}
	if !s.known[friendID] {
		return models.Transaction{}, ReasonSettlementFriend
	}

	delta := money.Coerce(m["delta"])
	if _, present := m["delta"]; !present && effectDelta != nil {
		delta = *effectDelta
	}
	bal := -money.RoundToCents(delta)

	status := models.SettlementStatus(stringOf(m["settlementStatus"]))
	if !status.Valid() {
		status = models.StatusInitiated
	}

	params := settlement.Params{Status: status, Balance: &bal}
	created := timestampOf(m["createdAt"], s.now)
	if ts := optionalTimestamp(m["settlementInitiatedAt"]); ts != nil {
		params.InitiatedAt = ts
	} else {
		params.InitiatedAt = &created
	}
	params.ConfirmedAt = optionalTimestamp(m["settlementConfirmedAt"])
	params.CancelledAt = optionalTimestamp(m["settlementCancelledAt"])
	if pm, ok := m["payment"].(map[string]any); ok {
		params.Payment = &models.PaymentMetadata{
			Provider: stringOf(pm["provider"]),
			URL:      stringOf(pm["url"]),
			Note:     stringOf(pm["note"]),
		}
	}

	tx, err := settlement.New(friendID, params, s.now)
	if err != nil {
		return models.Transaction{}, ReasonSettlementFriend
	}
	tx.ID = s.recordID(m["id"])
	tx.CreatedAt = created
	tx.Note = strings.TrimSpace(stringOf(m["note"]))
	tx.UpdatedAt = timestampOf(m["updatedAt"], created)
	return tx, ""
}

func (s *sanitizer) templates(raw []any) []models.TransactionTemplate {
	var out []models.TransactionTemplate
	for _, entry := range raw {
		m, ok := entry.(map[string]any)
		if !ok {
			slog.Warn("restore: template entry was not an object, dropping")
			continue
		}
		t := models.TransactionTemplate{
			ID:        s.recordID(m["id"]),
			Name:      strings.TrimSpace(stringOf(m["name"])),
			Total:     money.RoundToCents(money.Coerce(m["total"])),
			Category:  s.category(m["category"]),
			CreatedAt: timestampOf(m["createdAt"], s.now),
		}
		if p := s.resolveID(m["payer"]); p == models.You || s.known[p] {
			t.Payer = p
		}
		if rawParticipants, ok := m["participants"].([]any); ok {
			for _, pe := range rawParticipants {
				pm, ok := pe.(map[string]any)
				if !ok {
					continue
				}
				id := s.resolveID(pm["id"])
				if id != models.You && !s.known[id] {
					continue
				}
				t.Participants = append(t.Participants, models.Participant{
					ID:     id,
					Amount: money.RoundToCents(money.Coerce(pm["amount"])),
				})
			}
		}
		if rm, ok := m["recurrence"].(map[string]any); ok {
			if r := sanitizeRecurrence(rm); r != nil {
				t.Recurrence = r
			} else {
				slog.Warn("restore: invalid template recurrence, dropping", "template", t.ID)
			}
		}
		out = append(out, t)
	}
	return out
}

func sanitizeRecurrence(m map[string]any) *models.Recurrence {
	freq := strings.ToLower(strings.TrimSpace(stringOf(m["frequency"])))
	valid := false
	for _, f := range models.RecurrenceFrequencies {
		if f == freq {
			valid = true
			break
		}
	}
	next := strings.TrimSpace(stringOf(m["nextOccurrence"]))
	if !valid || !datePattern.MatchString(next) {
		return nil
	}
	reminder := int(money.Coerce(m["reminderDaysBefore"]))
	if reminder < 0 {
		reminder = 0
	}
	return &models.Recurrence{Frequency: freq, NextOccurrence: next, ReminderDaysBefore: reminder}
}

// category matches case-insensitively against the known list, defaulting
// to Other with a warning for unrecognized values.
func (s *sanitizer) category(v any) string {
	raw := strings.TrimSpace(stringOf(v))
	if raw == "" {
		return models.CategoryOther
	}
	for _, c := range models.Categories {
		if strings.EqualFold(c, raw) {
			return c
		}
	}
	slog.Warn("restore: unrecognized category, defaulting", "category", raw, "default", models.CategoryOther)
	return models.CategoryOther
}

// recordID keeps a string source id and mints a fresh one otherwise.
// Unlike friend ids, transaction ids are never cross-referenced, so the
// memo is not consulted.
func (s *sanitizer) recordID(v any) string {
	if id, ok := v.(string); ok && strings.TrimSpace(id) != "" {
		return id
	}
	return uuid.New().String()
}

func stringOf(v any) string {
	s, _ := v.(string)
	return s
}

func timestampOf(v any, fallback int64) int64 {
	if v == nil {
		return fallback
	}
	ts := money.Coerce(v)
	if ts <= 0 || math.IsNaN(ts) {
		return fallback
	}
	return int64(ts)
}

func optionalTimestamp(v any) *int64 {
	if v == nil {
		return nil
	}
	ts := money.Coerce(v)
	if ts <= 0 {
		return nil
	}
	out := int64(ts)
	return &out
}
