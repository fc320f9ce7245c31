package models

import (
	"context"
	"sync"
	"sync/atomic"

	"bitbucket.org/ginoconcreto/estoque_backend/config"
)

const (
	ChangeTableStock   = "stock_items"
	ChangeTableHistory = "history_entries"

	ChangeKindInsert = "INSERT"
	ChangeKindUpdate = "UPDATE"

	changeSeqKey = "estoque:changes:seq"
)

// ChangeEvent tells subscribers that a table changed. Consumers react by
// rereading the store; the event never carries row data. Seq is a monotonic
// counter so late-delivered notifications can be recognized as stale.
type ChangeEvent struct {
	Table string `json:"table"`
	Kind  string `json:"kind"`
	Seq   int64  `json:"seq"`
}

var (
	publisherMu     sync.RWMutex
	changePublisher func(context.Context, ChangeEvent)

	localSeq atomic.Int64
)

// SetChangePublisher installs the transport the engine notifies through.
// Wired from main to avoid a models -> livesync dependency.
func SetChangePublisher(fn func(context.Context, ChangeEvent)) {
	publisherMu.Lock()
	defer publisherMu.Unlock()
	changePublisher = fn
}

func publishChange(ctx context.Context, table string, kind string) {
	seq, err := config.GetRedisCounter(ctx, changeSeqKey)
	if err != nil || seq == 0 {
		// No Redis: a process-local counter still gives subscribers ordering.
		seq = localSeq.Add(1)
	}

	publisherMu.RLock()
	fn := changePublisher
	publisherMu.RUnlock()
	if fn != nil {
		fn(ctx, ChangeEvent{Table: table, Kind: kind, Seq: seq})
	}
}
