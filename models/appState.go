package models

import (
	"context"
	"time"

	"bitbucket.org/ginoconcreto/estoque_backend/config"
)

// stateCacheKey holds the last successfully read RemoteView so a store
// outage can degrade to recent numbers instead of an all-zero screen.
const stateCacheKey = "estoque:state:view"

type UserRole string

const (
	RoleAdmin  UserRole = "admin"
	RoleViewer UserRole = "viewer"
	RoleNone   UserRole = ""
)

// AppState is the in-memory view one session renders from. Inventory and
// history mirror the store; the remaining fields are session-local and are
// never touched by remote merges.
type AppState struct {
	CurrentUsina Usina                     `json:"current_usina"`
	Inventory    map[Usina]StockSnapshot   `json:"inventory"`
	History      map[Usina][]*HistoryEntry `json:"history"`
	UserRole     UserRole                  `json:"user_role,omitempty"`
	IsLoggedIn   bool                      `json:"is_logged_in"`
}

// RemoteView is the merge payload produced by a full reread of the store.
type RemoteView struct {
	Inventory map[Usina]StockSnapshot   `json:"inventory"`
	History   map[Usina][]*HistoryEntry `json:"history"`
}

// NewFallbackState builds the zero-filled total state used when the store is
// unreachable. Downstream rendering and estimation never see a partial or
// absent state.
func NewFallbackState() *AppState {
	inventory := make(map[Usina]StockSnapshot, len(Usinas))
	history := make(map[Usina][]*HistoryEntry, len(Usinas))
	for _, u := range Usinas {
		inventory[u] = NewZeroSnapshot()
		history[u] = []*HistoryEntry{}
	}
	return &AppState{
		CurrentUsina: DefaultUsina,
		Inventory:    inventory,
		History:      history,
		UserRole:     RoleNone,
		IsLoggedIn:   false,
	}
}

// LoadAppState reads the full inventory and history from the store. On any
// read failure it degrades to the last Redis-cached view, or to the
// zero-filled fallback when no cache exists either.
func LoadAppState(ctx context.Context) *AppState {
	state := NewFallbackState()

	items, err := ListStockItems(ctx)
	if err != nil {
		config.LogError(config.GetLogger(), "appState.go", "LoadAppState", "ListStockItems", nil, err)
		return mergeCachedView(state)
	}
	history, err := AllHistories(ctx)
	if err != nil {
		config.LogError(config.GetLogger(), "appState.go", "LoadAppState", "AllHistories", nil, err)
		return mergeCachedView(state)
	}

	state.Inventory = AllSnapshots(items)
	state.History = history

	if err := config.SetRedisObject(stateCacheKey, RemoteView{
		Inventory: state.Inventory,
		History:   state.History,
	}, time.Hour); err != nil {
		config.LogError(config.GetLogger(), "appState.go", "LoadAppState", "SetRedisObject", nil, err)
	}
	return state
}

func mergeCachedView(state *AppState) *AppState {
	var view RemoteView
	if found, err := config.GetRedisObject(stateCacheKey, &view); err == nil && found {
		state.MergeRemote(view)
	}
	return state
}

// InvalidateStateCache drops the cached view after out-of-band writes such
// as the maintenance tools.
func InvalidateStateCache() {
	if err := config.RemoveRedisKey(stateCacheKey); err != nil {
		config.LogError(config.GetLogger(), "appState.go", "InvalidateStateCache", "RemoveRedisKey", nil, err)
	}
}

// MergeRemote folds a reread view into the state. Empty collections keep the
// previous value (a reread that found nothing must not wipe the screen);
// CurrentUsina, UserRole and IsLoggedIn are pinned to their session-local
// values. Applying the same view twice yields the same state.
func (s *AppState) MergeRemote(view RemoteView) {
	if len(view.Inventory) > 0 {
		s.Inventory = view.Inventory
	}
	if len(view.History) > 0 {
		s.History = view.History
	}
}

// SnapshotFor never returns nil, even for an unknown usina.
func (s *AppState) SnapshotFor(usina Usina) StockSnapshot {
	if snapshot, ok := s.Inventory[usina]; ok {
		return snapshot
	}
	return NewZeroSnapshot()
}
