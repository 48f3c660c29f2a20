package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/sky-shift/skyshift-sub001/pkg/log"
	"github.com/sky-shift/skyshift-sub001/pkg/metrics"
	"github.com/sky-shift/skyshift-sub001/pkg/types"
)

// WatchEvent mirrors pkg/api.WatchEvent on the wire: one ndjson line.
type WatchEvent struct {
	Type   string          `json:"type"`
	Object json.RawMessage `json:"object"`
}

const (
	watchInitialBackoff = time.Second
	watchMaxBackoff      = 16 * time.Second
)

// Watcher is a lazy, infinite sequence of WatchEvents for one kind/namespace
// collection (spec.md §4.3). It reconnects on any transport error with
// exponential backoff from 1s capped at 16s; a stream the server closes
// without error is reopened at once and the backoff is reset. It stops only
// when its context is cancelled.
type Watcher struct {
	client    *Client
	kind      types.Kind
	namespace string
	logger    zerolog.Logger
}

// Watch returns a Watcher for kind in namespace; call Run to start consuming.
func (c *Client) Watch(kind types.Kind, namespace string) *Watcher {
	return &Watcher{
		client:    c,
		kind:      kind,
		namespace: namespace,
		logger:    log.WithKind(string(kind)),
	}
}

// Run starts the watch loop and returns the event channel. The channel is
// closed when ctx is cancelled; callers should range over it.
func (w *Watcher) Run(ctx context.Context) <-chan WatchEvent {
	out := make(chan WatchEvent)
	go w.loop(ctx, out)
	return out
}

func (w *Watcher) loop(ctx context.Context, out chan<- WatchEvent) {
	defer close(out)
	backoff := watchInitialBackoff
	for {
		if ctx.Err() != nil {
			return
		}
		err := w.stream(ctx, out)
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			// Clean server-side close (e.g. shutdown); reconnect promptly.
			backoff = watchInitialBackoff
			continue
		}
		metrics.WatchReconnectsTotal.Inc()
		w.logger.Warn().Err(err).Dur("backoff", backoff).Msg("watch stream dropped, reconnecting")
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > watchMaxBackoff {
			backoff = watchMaxBackoff
		}
	}
}

func (w *Watcher) stream(ctx context.Context, out chan<- WatchEvent) error {
	path, err := objectPath(w.kind, w.namespace, "")
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.client.baseURL+path+"?watch=true", nil)
	if err != nil {
		return err
	}
	if w.client.token != "" {
		req.Header.Set("Authorization", "Bearer "+w.client.token)
	}
	resp, err := w.client.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("watch %s: unexpected status %s", path, resp.Status)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 4<<20)
	for scanner.Scan() {
		var ev WatchEvent
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			w.logger.Warn().Err(err).Msg("dropping malformed watch event")
			continue
		}
		select {
		case out <- ev:
		case <-ctx.Done():
			return nil
		}
	}
	return scanner.Err()
}
