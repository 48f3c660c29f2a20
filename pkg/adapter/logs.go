package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	skyerrors "github.com/sky-shift/skyshift-sub001/pkg/errors"
	"github.com/sky-shift/skyshift-sub001/pkg/registry"
	"github.com/sky-shift/skyshift-sub001/pkg/storage"
	"github.com/sky-shift/skyshift-sub001/pkg/types"
)

// ClusterRegistry maps a Cluster's name to the Adapter handle its Skylet
// Supervisor constructed for it. The API server's log endpoint
// (SPEC_FULL.md §12) and the Skylet controllers both resolve a cluster's
// adapter through this registry rather than holding their own maps.
type ClusterRegistry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
}

// NewClusterRegistry builds an empty ClusterRegistry.
func NewClusterRegistry() *ClusterRegistry {
	return &ClusterRegistry{adapters: make(map[string]Adapter)}
}

// Set registers a's Adapter under cluster. Called when a Skylet Supervisor
// starts for a Cluster transitioning to READY.
func (r *ClusterRegistry) Set(cluster string, a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[cluster] = a
}

// Remove unregisters cluster's Adapter. Called when its Supervisor is
// terminated (spec.md §4.6: Cluster DELETE).
func (r *ClusterRegistry) Remove(cluster string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.adapters, cluster)
}

// Get returns cluster's registered Adapter, if any.
func (r *ClusterRegistry) Get(cluster string) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[cluster]
	return a, ok
}

// LogProxy implements pkg/api.LogFetcher by reading a Job directly from the
// store and forwarding to whichever cluster's Adapter it is scheduled on
// (SPEC_FULL.md §12: "a thin GET .../logs endpoint that proxies to the
// owning Skylet's adapter call, completing the interface end-to-end instead
// of leaving it adapter-only").
type LogProxy struct {
	store    storage.Store
	registry *ClusterRegistry
}

// NewLogProxy builds a LogProxy over store and registry.
func NewLogProxy(store storage.Store, registry *ClusterRegistry) *LogProxy {
	return &LogProxy{store: store, registry: registry}
}

// GetJobLogs implements pkg/api.LogFetcher.
func (p *LogProxy) GetJobLogs(ctx context.Context, namespace, name string) (string, error) {
	desc := registry.MustLookup(types.KindJob)
	key := desc.Prefix(namespace) + name
	value, _, err := p.store.Read(ctx, key)
	if err != nil {
		return "", err
	}

	var job types.Job
	if err := json.Unmarshal(value, &job); err != nil {
		return "", skyerrors.Fatal(err)
	}
	if len(job.Status.ScheduledClusters) == 0 {
		return "", skyerrors.NotFound(fmt.Sprintf("job %s/%s is not yet scheduled", namespace, name))
	}

	cluster := job.Status.ScheduledClusters[0]
	a, ok := p.registry.Get(cluster)
	if !ok {
		return "", skyerrors.Adapter(fmt.Errorf("no adapter registered for cluster %q", cluster))
	}

	lines, err := a.GetJobLogs(ctx, &job)
	if err != nil {
		return "", skyerrors.Adapter(err)
	}
	return strings.Join(lines, "\n"), nil
}
