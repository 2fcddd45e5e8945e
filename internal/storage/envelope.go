package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tasosbeast/bill-split-sub001/internal/models"
)

var quotaFallbackTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "ledger_storage_quota_fallbacks_total",
	Help: "Number of times persistence fell back to the in-memory store.",
})

// Envelope serializes snapshots under a versioned key (name@v<N>) so
// future schema changes can coexist with or migrate past old keys. On a
// quota-exceeded write failure it swaps the active backend for an
// in-memory one, retries, and keeps operating: the application never
// crashes or loses in-session data because storage filled up.
type Envelope struct {
	mu       sync.Mutex
	name     string
	version  int
	backend  Backend
	fellBack bool
}

// envelopeRecord is the persisted wire shape.
type envelopeRecord struct {
	Version int          `json:"version"`
	Data    envelopeData `json:"data"`
}

// envelopeData mirrors models.Snapshot plus the legacy top-level
// settlements array some old payloads carry; load merges it into
// transactions.
type envelopeData struct {
	Friends      []models.Friend              `json:"friends"`
	SelectedID   string                       `json:"selectedId,omitempty"`
	Transactions []models.Transaction         `json:"transactions"`
	Templates    []models.TransactionTemplate `json:"templates,omitempty"`
	Settlements  []models.Transaction         `json:"settlements,omitempty"`
}

// NewEnvelope creates an envelope writing under name@v<version>.
func NewEnvelope(name string, version int, backend Backend) *Envelope {
	return &Envelope{name: name, version: version, backend: backend}
}

// Key is the namespaced, versioned storage key.
func (e *Envelope) Key() string {
	return fmt.Sprintf("%s@v%d", e.name, e.version)
}

// FellBack reports whether the envelope has degraded to the in-memory
// backend. Useful for surfacing a durability warning to the user.
func (e *Envelope) FellBack() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fellBack
}

// Save persists the snapshot. Quota exhaustion triggers the in-memory
// fallback and a retry; any other I/O error is returned to the caller.
func (e *Envelope) Save(ctx context.Context, snap models.Snapshot) error {
	payload, err := json.Marshal(envelopeRecord{
		Version: e.version,
		Data: envelopeData{
			Friends:      snap.Friends,
			SelectedID:   snap.SelectedID,
			Transactions: snap.Transactions,
			Templates:    snap.Templates,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	err = e.backend.Set(ctx, e.Key(), string(payload))
	if err == nil {
		return nil
	}
	if !IsQuotaExceeded(err) {
		return fmt.Errorf("failed to persist snapshot: %w", err)
	}

	slog.Warn("storage quota exceeded, falling back to in-memory store", "key", e.Key(), "error", err)
	fallback := NewMemoryBackend()
	if err := fallback.Set(ctx, e.Key(), string(payload)); err != nil {
		return fmt.Errorf("failed to persist snapshot to fallback store: %w", err)
	}
	e.backend.Close()
	e.backend = fallback
	e.fellBack = true
	quotaFallbackTotal.Inc()
	return nil
}

// Load reads the persisted snapshot. Absence, parse failures, and
// structurally invalid payloads all yield (nil, nil) with at most one
// warning, never an error: corrupted state must not block startup.
// Backend I/O errors are still returned.
func (e *Envelope) Load(ctx context.Context) (*models.Snapshot, error) {
	e.mu.Lock()
	backend := e.backend
	e.mu.Unlock()

	value, ok, err := backend.Get(ctx, e.Key())
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	if !ok {
		return nil, nil
	}

	var record envelopeRecord
	if err := json.Unmarshal([]byte(value), &record); err != nil {
		slog.Warn("persisted snapshot is corrupt, starting from defaults", "key", e.Key(), "error", err)
		return nil, nil
	}

	snap := models.Snapshot{
		Friends:      record.Data.Friends,
		SelectedID:   record.Data.SelectedID,
		Transactions: record.Data.Transactions,
		Templates:    record.Data.Templates,
	}
	// Old versions persisted settlements in their own array.
	snap.Transactions = append(snap.Transactions, record.Data.Settlements...)
	return &snap, nil
}

// Clear removes the persisted snapshot.
func (e *Envelope) Clear(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.backend.Delete(ctx, e.Key())
}
