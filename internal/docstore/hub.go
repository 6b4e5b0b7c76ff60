package docstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"driftline/internal/observability"
	"driftline/internal/remote"
)

// subscriber holds one snapshot channel and the ordering it requested.
type subscriber struct {
	order remote.Order
	ch    chan remote.Snapshot
}

// Hub fans complete collection snapshots out to subscribers. Each subscriber
// channel holds at most one pending snapshot; when a subscriber lags, the
// stale snapshot is replaced by the newer one. Because every snapshot is the
// complete collection contents, dropping an intermediate one never loses
// information.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[*subscriber]struct{}
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[*subscriber]struct{})}
}

// Subscribe registers a snapshot channel for the collection and delivers the
// initial snapshot. The channel is closed when ctx is done.
func (h *Hub) Subscribe(ctx context.Context, collection string, order remote.Order, initial remote.Snapshot) <-chan remote.Snapshot {
	sub := &subscriber{
		order: order,
		ch:    make(chan remote.Snapshot, 1),
	}

	h.mu.Lock()
	m, ok := h.subs[collection]
	if !ok {
		m = make(map[*subscriber]struct{})
		h.subs[collection] = m
	}
	m[sub] = struct{}{}
	// Deliver the initial contents unless a write already published a newer
	// snapshot into the channel.
	select {
	case sub.ch <- applyOrder(initial, order):
	default:
	}
	h.mu.Unlock()

	observability.SubscribersActive.WithLabelValues(collection).Inc()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		if m, ok := h.subs[collection]; ok {
			if _, exists := m[sub]; exists {
				delete(m, sub)
				close(sub.ch)
			}
			if len(m) == 0 {
				delete(h.subs, collection)
			}
		}
		h.mu.Unlock()
		observability.SubscribersActive.WithLabelValues(collection).Dec()
	}()

	return sub.ch
}

// Publish delivers a new complete snapshot to every subscriber of the
// collection, coalescing over any undelivered previous snapshot.
func (h *Hub) Publish(collection string, snap remote.Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subs[collection] {
		ordered := applyOrder(snap, sub.order)
		for {
			select {
			case sub.ch <- ordered:
			default:
				select {
				case <-sub.ch:
					observability.SnapshotsCoalesced.WithLabelValues(collection).Inc()
				default:
				}
				continue
			}
			break
		}
	}

	observability.SnapshotsPublished.WithLabelValues(collection).Inc()
}

// applyOrder returns the snapshot sorted by the requested field, or the
// snapshot itself for the zero order.
func applyOrder(snap remote.Snapshot, order remote.Order) remote.Snapshot {
	if order.Field == "" {
		return snap
	}
	sorted := make(remote.Snapshot, len(snap))
	copy(sorted, snap)
	sort.SliceStable(sorted, func(i, j int) bool {
		less := fieldLess(sorted[i].Data[order.Field], sorted[j].Data[order.Field])
		if order.Desc {
			return fieldLess(sorted[j].Data[order.Field], sorted[i].Data[order.Field])
		}
		return less
	})
	return sorted
}

// fieldLess compares two JSON-decoded field values. Strings that parse as
// RFC 3339 timestamps are compared chronologically; lexicographic comparison
// mis-orders stamps whose fractional precision differs ("...00Z" vs
// "...00.5Z").
func fieldLess(a, b any) bool {
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		if !ok {
			return false
		}
		at, aerr := time.Parse(time.RFC3339Nano, av)
		bt, berr := time.Parse(time.RFC3339Nano, bv)
		if aerr == nil && berr == nil {
			return at.Before(bt)
		}
		return av < bv
	case float64:
		bv, ok := b.(float64)
		return ok && av < bv
	case bool:
		bv, ok := b.(bool)
		return ok && !av && bv
	case nil:
		return b != nil
	default:
		return false
	}
}
