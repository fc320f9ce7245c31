package models

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/ginoconcreto/estoque_backend/config"
	"github.com/google/uuid"
)

// HistoryDisplayLimit caps each usina's visible log. The cap is a read-side
// policy: older rows stay in the store, they just stop being listed.
const HistoryDisplayLimit = 50

type HistoryAction string

const (
	ActionEntrada        HistoryAction = "ENTRADA"
	ActionSaidaRelatorio HistoryAction = "SAÍDA_RELATÓRIO"
	ActionReset          HistoryAction = "RESET"
)

// HistoryEntry is an append-only audit record. Written exclusively by the
// reconciliation engine, and only after the stock write it describes has
// durably applied.
type HistoryEntry struct {
	ID        string        `gorm:"primary_key;size:36" json:"id"`
	Usina     string        `gorm:"size:100;not null;index" json:"usina"`
	Action    HistoryAction `gorm:"size:20;not null" json:"action"`
	Details   string        `gorm:"type:text" json:"details"`
	CreatedAt time.Time     `gorm:"autoCreateTime" json:"created_at"`
}

func AppendHistory(ctx context.Context, usina Usina, action HistoryAction, details string) (*HistoryEntry, error) {
	db := config.GetDB()
	if db == nil {
		return nil, ErrStoreUnavailable
	}
	entry := HistoryEntry{
		ID:      uuid.NewString(),
		Usina:   string(usina),
		Action:  action,
		Details: details,
	}
	if err := db.WithContext(ctx).Create(&entry).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return &entry, nil
}

// ListHistories returns one usina's log, newest first, capped for display.
func ListHistories(ctx context.Context, usina Usina) ([]*HistoryEntry, error) {
	db := config.GetDB()
	if db == nil {
		return nil, ErrStoreUnavailable
	}
	var entries []*HistoryEntry
	err := db.WithContext(ctx).
		Where("usina = ?", string(usina)).
		Order("created_at DESC, id DESC").
		Limit(HistoryDisplayLimit).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return entries, nil
}

// AllHistories returns every usina's capped log, newest first.
func AllHistories(ctx context.Context) (map[Usina][]*HistoryEntry, error) {
	db := config.GetDB()
	if db == nil {
		return nil, ErrStoreUnavailable
	}
	var entries []*HistoryEntry
	err := db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	history := make(map[Usina][]*HistoryEntry, len(Usinas))
	for _, u := range Usinas {
		history[u] = []*HistoryEntry{}
	}
	for _, entry := range entries {
		u := Usina(entry.Usina)
		if _, ok := history[u]; !ok {
			continue
		}
		history[u] = append(history[u], entry)
	}
	for u := range history {
		history[u] = TrimHistories(history[u])
	}
	return history, nil
}

// TrimHistories applies the display cap to an already newest-first log.
func TrimHistories(entries []*HistoryEntry) []*HistoryEntry {
	if len(entries) > HistoryDisplayLimit {
		return entries[:HistoryDisplayLimit]
	}
	return entries
}
