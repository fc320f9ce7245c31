package models

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTrimHistoriesCapsAtDisplayLimit(t *testing.T) {
	entries := make([]*HistoryEntry, 0, HistoryDisplayLimit+5)
	for i := 0; i < HistoryDisplayLimit+5; i++ {
		entries = append(entries, &HistoryEntry{ID: fmt.Sprintf("h%d", i)})
	}

	trimmed := TrimHistories(entries)
	require.Len(t, trimmed, HistoryDisplayLimit)
	// Newest-first order means the cap keeps the head.
	require.Equal(t, "h0", trimmed[0].ID)
	require.Equal(t, fmt.Sprintf("h%d", HistoryDisplayLimit-1), trimmed[HistoryDisplayLimit-1].ID)
}

func TestTrimHistoriesShortLogUntouched(t *testing.T) {
	entries := []*HistoryEntry{{ID: "a"}, {ID: "b"}}
	require.Equal(t, entries, TrimHistories(entries))
	require.Empty(t, TrimHistories(nil))
}
