package livesync

import (
	"context"
	"testing"

	"bitbucket.org/ginoconcreto/estoque_backend/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestSynchronizerApplyViewMergesIntoState(t *testing.T) {
	s := NewSynchronizer(models.NewFallbackState(), NewLocalNotifier(), nil)

	s.ApplyView(models.RemoteView{
		Inventory: map[models.Usina]models.StockSnapshot{
			models.UsinaAngatuba: {models.MaterialBrita0: decimal.NewFromInt(105000)},
		},
	})

	state := s.StateView()
	require.True(t, state.Inventory[models.UsinaAngatuba][models.MaterialBrita0].Equal(decimal.NewFromInt(105000)))
	// Collections are replaced wholesale; usinas absent from the view read
	// as zero through SnapshotFor.
	require.Len(t, state.SnapshotFor(models.UsinaPiraju), len(models.Materials))
}

func TestSynchronizerApplyViewIdempotent(t *testing.T) {
	s := NewSynchronizer(nil, NewLocalNotifier(), nil)
	view := models.RemoteView{
		Inventory: map[models.Usina]models.StockSnapshot{
			models.UsinaAngatuba: {models.MaterialBrita0: decimal.NewFromInt(42)},
		},
	}

	s.ApplyView(view)
	first := s.StateView()
	s.ApplyView(view)
	second := s.StateView()

	require.Equal(t, first.Inventory, second.Inventory)
	require.Equal(t, first.History, second.History)
}

func TestSynchronizerStartStopCycle(t *testing.T) {
	s := NewSynchronizer(nil, NewLocalNotifier(), nil)
	ctx := context.Background()

	require.NoError(t, s.Start(ctx))
	require.Error(t, s.Start(ctx), "double start must be rejected")
	s.Stop()
	s.Stop() // second stop is a no-op

	require.NoError(t, s.Start(ctx), "restart after stop")
	s.Stop()
}

func TestSynchronizerHandleKeepsStateWhenStoreUnreachable(t *testing.T) {
	s := NewSynchronizer(models.NewFallbackState(), NewLocalNotifier(), nil)
	before := s.StateView()

	// No database in unit tests, so the reread fails; the previous state
	// must survive.
	s.Handle(context.Background(), models.ChangeEvent{Table: models.ChangeTableStock, Seq: 1})

	after := s.StateView()
	require.Equal(t, before.Inventory, after.Inventory)
	require.Equal(t, before.History, after.History)
}
