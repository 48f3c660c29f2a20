package skylet

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/sky-shift/skyshift-sub001/pkg/adapter"
	"github.com/sky-shift/skyshift-sub001/pkg/informer"
	"github.com/sky-shift/skyshift-sub001/pkg/log"
	"github.com/sky-shift/skyshift-sub001/pkg/types"
)

// storeClient is the subset of pkg/client.Client the skylet controllers
// write through.
type storeClient interface {
	Get(ctx context.Context, kind types.Kind, namespace, name string, out types.Object) error
	Update(ctx context.Context, obj types.Object) error
	Create(ctx context.Context, obj types.Object) error
}

// Supervisor runs one cluster's controllers in isolation (spec.md §4.6): a
// crash of one controller is logged and does not take down the others, and a
// crash of one cluster's Supervisor never reaches another cluster's.
type Supervisor struct {
	clusterCtl   *ClusterController
	flowCtl      *FlowController
	jobCtl       *JobController
	endpointsCtl *EndpointsController

	logger zerolog.Logger
}

// NewSupervisor builds the controller set for cluster, backed by ad. jobs,
// policies, and services are informers shared across every Supervisor the
// owning SkyletController has forked.
func NewSupervisor(c storeClient, ad adapter.Adapter, cluster types.Cluster, jobs, policies, services *informer.Informer) *Supervisor {
	name := cluster.Metadata.Name
	sup := &Supervisor{
		clusterCtl: NewClusterController(c, ad, name, 0, 0),
		flowCtl:    NewFlowController(c, ad, name, jobs, policies),
		jobCtl:     NewJobController(c, ad, name, jobs, 0),
		logger:     log.WithCluster(name),
	}
	if ea, ok := ad.(adapter.EndpointsAdapter); ok && ea.SupportsEndpoints() {
		sup.endpointsCtl = NewEndpointsController(c, ea, name, jobs, services, 0)
	}
	return sup
}

// Run starts every contained controller and blocks until ctx is cancelled
// and all of them have returned — the "join" half of fork/join (spec.md
// §4.6's Skylet Controller).
func (s *Supervisor) Run(ctx context.Context) {
	var wg sync.WaitGroup
	start := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error().Interface("panic", r).Str("controller", name).Msg("controller panicked")
				}
			}()
			if err := fn(ctx); err != nil {
				s.logger.Error().Err(err).Str("controller", name).Msg("controller exited")
			}
		}()
	}

	start("cluster", s.clusterCtl.Run)
	start("flow", s.flowCtl.Run)
	start("job", s.jobCtl.Run)
	if s.endpointsCtl != nil {
		start("endpoints", s.endpointsCtl.Run)
	}
	wg.Wait()
}
