package skylet

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	skyerrors "github.com/sky-shift/skyshift-sub001/pkg/errors"
	"github.com/sky-shift/skyshift-sub001/pkg/adapter"
	"github.com/sky-shift/skyshift-sub001/pkg/informer"
	"github.com/sky-shift/skyshift-sub001/pkg/log"
	"github.com/sky-shift/skyshift-sub001/pkg/types"
)

// DefaultEndpointsHeartbeat is the default polling interval for
// EndpointsController.
const DefaultEndpointsHeartbeat = 5 * time.Second

// EndpointsController keeps a cross-cluster Endpoints record's
// num_endpoints[this_cluster] in sync with the count of RUNNING replicas
// backing each Service's selector. Optional: only forked for adapters
// implementing EndpointsAdapter with SupportsEndpoints()==true (spec.md
// §4.6; omitted for Slurm/Ray).
type EndpointsController struct {
	client      storeClient
	adapter     adapter.EndpointsAdapter
	clusterName string
	jobs        *informer.Informer
	services    *informer.Informer
	heartbeat   time.Duration
	logger      zerolog.Logger
}

// NewEndpointsController builds an EndpointsController for clusterName. A
// zero heartbeat uses DefaultEndpointsHeartbeat.
func NewEndpointsController(c storeClient, ad adapter.EndpointsAdapter, clusterName string, jobs, services *informer.Informer, heartbeat time.Duration) *EndpointsController {
	if heartbeat <= 0 {
		heartbeat = DefaultEndpointsHeartbeat
	}
	return &EndpointsController{
		client:      c,
		adapter:     ad,
		clusterName: clusterName,
		jobs:        jobs,
		services:    services,
		heartbeat:   heartbeat,
		logger:      log.WithCluster(clusterName).With().Str("controller", "endpoints").Logger(),
	}
}

// Run ticks every heartbeat interval until ctx is cancelled.
func (ec *EndpointsController) Run(ctx context.Context) error {
	ticker := time.NewTicker(ec.heartbeat)
	defer ticker.Stop()

	ec.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			ec.tick(ctx)
		}
	}
}

func (ec *EndpointsController) tick(ctx context.Context) {
	if !ec.adapter.SupportsEndpoints() {
		return
	}
	for _, raw := range ec.services.List() {
		var svc types.Service
		if err := json.Unmarshal(raw, &svc); err != nil {
			continue
		}
		ec.syncService(ctx, &svc, ec.countRunningReplicas(&svc))
	}
}

func (ec *EndpointsController) countRunningReplicas(svc *types.Service) int {
	var total int
	for _, raw := range ec.jobs.List() {
		var job types.Job
		if err := json.Unmarshal(raw, &job); err != nil {
			continue
		}
		if job.Metadata.Namespace != svc.Metadata.Namespace {
			continue
		}
		if !matchesSelector(svc.Spec.Selector, job.Spec.Labels) {
			continue
		}
		if rs, ok := job.Status.ReplicaStatus[ec.clusterName]; ok {
			total += rs[types.JobRunning]
		}
	}
	return total
}

func matchesSelector(selector, labels map[string]string) bool {
	for k, v := range selector {
		if labels[k] != v {
			return false
		}
	}
	return true
}

func (ec *EndpointsController) syncService(ctx context.Context, svc *types.Service, count int) {
	if err := ec.adapter.CreateOrUpdateService(ctx, svc); err != nil {
		ec.logger.Error().Err(err).Str("service", svc.Metadata.Key()).Msg("create_or_update_service failed")
		return
	}

	var ep types.Endpoints
	err := ec.client.Get(ctx, types.KindEndpoints, svc.Metadata.Namespace, svc.Metadata.Name, &ep)
	switch {
	case err == nil:
		if ep.Status.NumEndpoints[ec.clusterName] == count {
			return // suppress no-op write
		}
		if ep.Status.NumEndpoints == nil {
			ep.Status.NumEndpoints = make(map[string]int)
		}
		ep.Status.NumEndpoints[ec.clusterName] = count
		if uerr := ec.client.Update(ctx, &ep); uerr != nil {
			ec.logger.Error().Err(uerr).Msg("endpoints write failed")
			return
		}
	case skyerrors.Is(err, skyerrors.KindNotFound):
		ep = types.Endpoints{
			Kind:     types.KindEndpoints,
			Metadata: types.Meta{Name: svc.Metadata.Name, Namespace: svc.Metadata.Namespace},
			Status:   types.EndpointsStatus{NumEndpoints: map[string]int{ec.clusterName: count}},
		}
		if cerr := ec.client.Create(ctx, &ep); cerr != nil {
			ec.logger.Error().Err(cerr).Msg("endpoints create failed")
			return
		}
	default:
		ec.logger.Error().Err(err).Msg("endpoints fetch failed")
		return
	}

	if err := ec.adapter.CreateEndpointSlice(ctx, svc.Metadata.Namespace, svc.Metadata.Name, count); err != nil {
		ec.logger.Error().Err(err).Msg("create_endpoint_slice failed")
	}
}
