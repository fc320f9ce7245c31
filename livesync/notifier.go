package livesync

import (
	"context"
	"encoding/json"
	"sync"

	"bitbucket.org/ginoconcreto/estoque_backend/config"
	"bitbucket.org/ginoconcreto/estoque_backend/models"
)

// ChangeChannel is the Redis pub/sub channel carrying store change events.
const ChangeChannel = "estoque:changes"

// Notifier delivers models.ChangeEvent to subscribers. Publish after a
// committed write; Subscribe returns a receive channel plus a cancel func
// that must be called exactly once to release the subscription.
type Notifier interface {
	Publish(ctx context.Context, ev models.ChangeEvent)
	Subscribe(ctx context.Context) (<-chan models.ChangeEvent, func(), error)
}

// NewNotifier picks the transport per call: Redis pub/sub once a client is
// connected, otherwise the in-process broadcaster. Redis comes up after the
// HTTP listener, so the choice cannot be fixed at construction time. The
// local fallback gives same-process consistency only, which mirrors how the
// dashboard degrades without its realtime channel.
func NewNotifier() Notifier {
	return &fallbackNotifier{local: NewLocalNotifier()}
}

type fallbackNotifier struct {
	redis RedisNotifier
	local *LocalNotifier
}

func (n *fallbackNotifier) Publish(ctx context.Context, ev models.ChangeEvent) {
	if config.GetRedisDB() != nil {
		n.redis.Publish(ctx, ev)
		return
	}
	n.local.Publish(ctx, ev)
}

func (n *fallbackNotifier) Subscribe(ctx context.Context) (<-chan models.ChangeEvent, func(), error) {
	if config.GetRedisDB() != nil {
		return n.redis.Subscribe(ctx)
	}
	return n.local.Subscribe(ctx)
}

// RedisNotifier fans change events out across all backend instances.
type RedisNotifier struct{}

func (n *RedisNotifier) Publish(ctx context.Context, ev models.ChangeEvent) {
	rdb := config.GetRedisDB()
	if rdb == nil {
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	// Detached context: the write already committed, so an aborted request
	// must not drop its notification.
	if err := rdb.Publish(config.GetRedisContext(), ChangeChannel, payload).Err(); err != nil {
		config.LogError(config.GetLogger(), "notifier.go", "Publish", "rdb.Publish", ev, err)
	}
}

func (n *RedisNotifier) Subscribe(ctx context.Context) (<-chan models.ChangeEvent, func(), error) {
	rdb := config.GetRedisDB()
	if rdb == nil {
		return nil, nil, models.ErrStoreUnavailable
	}

	pubsub := rdb.Subscribe(ctx, ChangeChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, nil, err
	}

	out := make(chan models.ChangeEvent, 16)
	done := make(chan struct{})
	go func() {
		defer close(out)
		ch := pubsub.Channel()
		for {
			select {
			case <-done:
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev models.ChangeEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					continue
				}
				select {
				case out <- ev:
				case <-done:
					return
				}
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			pubsub.Close()
		})
	}
	return out, cancel, nil
}

// LocalNotifier is the in-process fallback bus used when Redis is not
// configured.
type LocalNotifier struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan models.ChangeEvent
}

func NewLocalNotifier() *LocalNotifier {
	return &LocalNotifier{subs: make(map[int]chan models.ChangeEvent)}
}

func (n *LocalNotifier) Publish(ctx context.Context, ev models.ChangeEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, ch := range n.subs {
		select {
		case ch <- ev:
		default:
			// Slow subscriber: drop rather than block the write path. The
			// next event triggers a full reread anyway.
		}
	}
}

func (n *LocalNotifier) Subscribe(ctx context.Context) (<-chan models.ChangeEvent, func(), error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	id := n.nextID
	n.nextID++
	ch := make(chan models.ChangeEvent, 16)
	n.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			n.mu.Lock()
			defer n.mu.Unlock()
			delete(n.subs, id)
			close(ch)
		})
	}
	return ch, cancel, nil
}
