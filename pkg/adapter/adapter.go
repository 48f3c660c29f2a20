// Package adapter defines SkyShift's Cluster Manager Adapter contract
// (spec.md §4.7): the uniform interface every backend (Kubernetes, Slurm,
// Ray) implements so the Skylet controllers never depend on backend
// internals. SkyShift itself ships only the interface plus an in-memory
// reference/test implementation (spec.md §1 Non-goals) — real backends are
// out of scope.
package adapter

import (
	"context"
	"time"

	"github.com/sky-shift/skyshift-sub001/pkg/types"
)

// DefaultClusterTimeout bounds every call into a native cluster manager
// (spec.md §5's CLUSTER_TIMEOUT suspension point).
const DefaultClusterTimeout = 30 * time.Second

// SubmitLabel is the label adapters use to key idempotent job submission:
// a job already bearing this label on the backend is the same submission
// (spec.md §4.7: "idempotent by label: if a job with label
// sky_job_id=job.name already exists, return its existing id").
const SubmitLabel = "sky_job_id"

// ClusterReport is the result of one GetClusterStatus call.
type ClusterReport struct {
	Status              types.ClusterStatusPhase
	Capacity            map[string]types.ResourceList
	AllocatableCapacity map[string]types.ResourceList
}

// JobsStatus maps job name -> task id -> observed status, as returned by
// GetJobsStatus.
type JobsStatus map[string]map[string]types.TaskStatus

// Adapter is the contract a cluster-native backend implements. All methods
// take a context bounded by the caller at DefaultClusterTimeout (or shorter);
// implementations must respect ctx cancellation rather than blocking past it.
type Adapter interface {
	// GetClusterStatus reports the backend's current phase and resource
	// capacity.
	GetClusterStatus(ctx context.Context) (ClusterReport, error)

	// SubmitJob submits job, returning the backend's job id. Idempotent: a
	// second call for the same job.Metadata.Name returns the existing id
	// rather than creating a duplicate.
	SubmitJob(ctx context.Context, job *types.Job) (managerJobID string, err error)

	// DeleteJob removes job's backend workload. Idempotent: deleting an
	// already-absent job is not an error.
	DeleteJob(ctx context.Context, job *types.Job) error

	// GetJobsStatus reports every job's per-task status known to the
	// backend.
	GetJobsStatus(ctx context.Context) (JobsStatus, error)

	// GetJobLogs returns job's log lines, most recent last.
	GetJobLogs(ctx context.Context, job *types.Job) ([]string, error)
}

// EndpointsAdapter is implemented by backends that expose pod-level
// selectors and can therefore drive SkyShift's EndpointsController (spec.md
// §4.6; optional, omitted for Slurm/Ray). A backend's main Adapter value may
// additionally implement this interface; the Skylet Supervisor probes for it
// with a type assertion and forks an EndpointsController only when
// SupportsEndpoints() also returns true.
type EndpointsAdapter interface {
	SupportsEndpoints() bool
	CreateOrUpdateService(ctx context.Context, svc *types.Service) error
	DeleteService(ctx context.Context, namespace, name string) error
	CreateEndpointSlice(ctx context.Context, namespace, name string, numEndpoints int) error
	DeleteEndpointSlice(ctx context.Context, namespace, name string) error
}
