package informer

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sky-shift/skyshift-sub001/pkg/client"
	"github.com/sky-shift/skyshift-sub001/pkg/log"
	"github.com/sky-shift/skyshift-sub001/pkg/types"
)

// DefaultResyncPeriod is spec.md §4.4's default cache_resync_period.
const DefaultResyncPeriod = 1800 * time.Second

// EventHandler receives ordered ADD/UPDATE*/DELETE? callbacks for one
// object's lifetime (spec.md §4.4). Any field may be nil.
type EventHandler struct {
	OnAdd    func(obj json.RawMessage)
	OnUpdate func(oldObj, newObj json.RawMessage)
	OnDelete func(obj json.RawMessage)
}

type metaOnly struct {
	Metadata types.Meta `json:"metadata"`
}

func objectKey(raw json.RawMessage) (string, error) {
	var m metaOnly
	if err := json.Unmarshal(raw, &m); err != nil {
		return "", err
	}
	return m.Metadata.Key(), nil
}

// Informer lists-then-watches one kind/namespace collection, maintaining a
// local cache and dispatching ordered callbacks from a single goroutine so
// handlers never observe events for the same object out of sequence.
type Informer struct {
	client    *client.Client
	kind      types.Kind
	namespace string
	resync    time.Duration
	logger    zerolog.Logger

	mu       sync.RWMutex
	cache    map[string]json.RawMessage
	handlers []EventHandler
}

// New builds an Informer for kind in namespace. A zero resync uses
// DefaultResyncPeriod.
func New(c *client.Client, kind types.Kind, namespace string, resync time.Duration) *Informer {
	if resync <= 0 {
		resync = DefaultResyncPeriod
	}
	return &Informer{
		client:    c,
		kind:      kind,
		namespace: namespace,
		resync:    resync,
		logger:    log.WithKind(string(kind)),
		cache:     make(map[string]json.RawMessage),
	}
}

// AddEventHandler registers h; call before Run.
func (inf *Informer) AddEventHandler(h EventHandler) {
	inf.mu.Lock()
	defer inf.mu.Unlock()
	inf.handlers = append(inf.handlers, h)
}

// Get returns the cached object for key ("name" or "namespace/name"), if any.
func (inf *Informer) Get(key string) (json.RawMessage, bool) {
	inf.mu.RLock()
	defer inf.mu.RUnlock()
	obj, ok := inf.cache[key]
	return obj, ok
}

// List returns every cached object.
func (inf *Informer) List() []json.RawMessage {
	inf.mu.RLock()
	defer inf.mu.RUnlock()
	out := make([]json.RawMessage, 0, len(inf.cache))
	for _, obj := range inf.cache {
		out = append(out, obj)
	}
	return out
}

// Run performs the initial list, then watches forever, relisting every
// resync period. It blocks until ctx is cancelled.
func (inf *Informer) Run(ctx context.Context) error {
	if err := inf.relist(ctx); err != nil {
		inf.logger.Error().Err(err).Msg("initial list failed")
	}

	events := inf.client.Watch(inf.kind, inf.namespace).Run(ctx)
	ticker := time.NewTicker(inf.resync)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			inf.handleEvent(ev)
		case <-ticker.C:
			if err := inf.relist(ctx); err != nil {
				inf.logger.Error().Err(err).Msg("resync list failed")
			}
		}
	}
}

func (inf *Informer) relist(ctx context.Context) error {
	items, err := inf.client.List(ctx, inf.kind, inf.namespace)
	if err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(items))
	for _, raw := range items {
		key, err := objectKey(raw)
		if err != nil {
			continue
		}
		seen[key] = struct{}{}
		inf.upsert(key, raw)
	}

	inf.mu.Lock()
	stale := make([]string, 0)
	for key := range inf.cache {
		if _, ok := seen[key]; !ok {
			stale = append(stale, key)
		}
	}
	inf.mu.Unlock()

	for _, key := range stale {
		inf.remove(key)
	}
	return nil
}

func (inf *Informer) handleEvent(ev client.WatchEvent) {
	key, err := objectKey(ev.Object)
	if err != nil {
		inf.logger.Warn().Err(err).Msg("dropping event with unparseable metadata")
		return
	}
	switch ev.Type {
	case "ADD", "UPDATE":
		inf.upsert(key, ev.Object)
	case "DELETE":
		inf.remove(key)
	}
}

func (inf *Informer) upsert(key string, raw json.RawMessage) {
	inf.mu.Lock()
	old, existed := inf.cache[key]
	inf.cache[key] = raw
	handlers := append([]EventHandler(nil), inf.handlers...)
	inf.mu.Unlock()

	for _, h := range handlers {
		if existed {
			if h.OnUpdate != nil {
				h.OnUpdate(old, raw)
			}
		} else if h.OnAdd != nil {
			h.OnAdd(raw)
		}
	}
}

func (inf *Informer) remove(key string) {
	inf.mu.Lock()
	old, existed := inf.cache[key]
	delete(inf.cache, key)
	handlers := append([]EventHandler(nil), inf.handlers...)
	inf.mu.Unlock()

	if !existed {
		return
	}
	for _, h := range handlers {
		if h.OnDelete != nil {
			h.OnDelete(old)
		}
	}
}
