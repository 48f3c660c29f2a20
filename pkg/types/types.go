package types

import "time"

// Kind identifies the type of a registered object.
type Kind string

const (
	KindCluster      Kind = "Cluster"
	KindNamespace    Kind = "Namespace"
	KindJob          Kind = "Job"
	KindFilterPolicy Kind = "FilterPolicy"
	KindService      Kind = "Service"
	KindEndpoints    Kind = "Endpoints"
	KindLink         Kind = "Link"
	KindRole         Kind = "Role"
	KindUser         Kind = "User"
)

// Meta is the metadata block shared by every object kind.
type Meta struct {
	Name              string            `json:"name"`
	Namespace         string            `json:"namespace,omitempty"`
	Labels            map[string]string `json:"labels,omitempty"`
	Annotations       map[string]string `json:"annotations,omitempty"`
	CreationTimestamp time.Time         `json:"creation_timestamp"`
	ResourceVersion   int64             `json:"resource_version"`
}

// Key returns the store key suffix for this object: "name" for cluster-scoped
// kinds, "namespace/name" for namespaced ones.
func (m Meta) Key() string {
	if m.Namespace == "" {
		return m.Name
	}
	return m.Namespace + "/" + m.Name
}

// ClusterStatusPhase is the lifecycle phase of a Cluster.
type ClusterStatusPhase string

const (
	ClusterInit         ClusterStatusPhase = "INIT"
	ClusterProvisioning ClusterStatusPhase = "PROVISIONING"
	ClusterReady        ClusterStatusPhase = "READY"
	ClusterError        ClusterStatusPhase = "ERROR"
	ClusterDeleting     ClusterStatusPhase = "DELETING"
)

// ResourceName is one of the fixed resource-vocabulary keys (spec.md §6).
type ResourceName string

const (
	ResourceCPU    ResourceName = "cpu"
	ResourceMemory ResourceName = "memory"
	ResourceDisk   ResourceName = "disk"
	ResourceGPU    ResourceName = "gpu"
)

// ResourceList maps a resource (or accelerator tag) to a quantity.
type ResourceList map[string]float64

// Condition is one entry in a Cluster's status history.
type Condition struct {
	Type               string    `json:"type"`
	Status             string    `json:"status"`
	Reason             string    `json:"reason,omitempty"`
	Message            string    `json:"message,omitempty"`
	LastTransitionTime time.Time `json:"last_transition_time"`
}

// ClusterSpec is the desired state of a registered cluster.
type ClusterSpec struct {
	Manager string `json:"manager"` // "k8s", "slurm", "ray"
}

// ClusterStatus is the observed state of a registered cluster.
type ClusterStatus struct {
	Status              ClusterStatusPhase      `json:"status"`
	Capacity            map[string]ResourceList `json:"capacity"`             // node -> resources
	AllocatableCapacity map[string]ResourceList `json:"allocatable_capacity"` // node -> resources
	Conditions          []Condition             `json:"conditions,omitempty"`
	NetworkEnabled      bool                    `json:"network_enabled"`
	ErrorMessage        string                  `json:"error_message,omitempty"`
}

// Cluster is one managed execution environment.
type Cluster struct {
	Kind     Kind          `json:"kind"`
	Metadata Meta          `json:"metadata"`
	Spec     ClusterSpec   `json:"spec"`
	Status   ClusterStatus `json:"status"`
}

// Namespace is a logical tenancy boundary for namespaced objects.
type Namespace struct {
	Kind     Kind `json:"kind"`
	Metadata Meta `json:"metadata"`
}

// RestartPolicyType controls Job restart behavior.
type RestartPolicyType string

const (
	RestartPolicyAlways    RestartPolicyType = "Always"
	RestartPolicyNever     RestartPolicyType = "Never"
	RestartPolicyOnFailure RestartPolicyType = "OnFailure"
)

// MatchExpression is a {key, operator, values} cluster-label selector term.
type MatchExpression struct {
	Key      string   `json:"key"`
	Operator string   `json:"operator"` // In, NotIn, Exists, DoesNotExist
	Values   []string `json:"values,omitempty"`
}

// PlacementFilter is one filter stanza; it is satisfied iff every MatchLabels
// entry equals a cluster label and every MatchExpressions entry evaluates true.
type PlacementFilter struct {
	MatchLabels      map[string]string `json:"match_labels,omitempty"`
	MatchExpressions []MatchExpression `json:"match_expressions,omitempty"`
}

// PlacementPreference is a weighted soft-affinity term.
type PlacementPreference struct {
	Weight           int               `json:"weight"` // [1,100]
	MatchLabels      map[string]string `json:"match_labels,omitempty"`
	MatchExpressions []MatchExpression `json:"match_expressions,omitempty"`
}

// Placement is the Job's scheduling configuration.
type Placement struct {
	Filters     []PlacementFilter     `json:"filters,omitempty"`
	Preferences []PlacementPreference `json:"preferences,omitempty"`
}

// JobSpec is the desired state of a Job.
type JobSpec struct {
	Image         string            `json:"image"`
	Resources     ResourceList       `json:"resources"`
	Replicas      int               `json:"replicas"`
	Placement     Placement         `json:"placement"`
	RestartPolicy RestartPolicyType `json:"restart_policy"`
	Labels        map[string]string `json:"labels,omitempty"`
}

// JobStatusPhase is the canonical Job lifecycle alphabet (SPEC_FULL.md §13).
type JobStatusPhase string

const (
	JobInit      JobStatusPhase = "INIT"
	JobScheduled JobStatusPhase = "SCHEDULED"
	JobPending   JobStatusPhase = "PENDING"
	JobRunning   JobStatusPhase = "RUNNING"
	JobCompleted JobStatusPhase = "COMPLETED"
	JobFailed    JobStatusPhase = "FAILED"
	JobEvicted   JobStatusPhase = "EVICTED"
	JobDeleted   JobStatusPhase = "DELETED"
)

// ReplicaStatus counts replicas of a Job on one cluster, by phase.
type ReplicaStatus map[JobStatusPhase]int

// JobStatus is the observed state of a Job.
type JobStatus struct {
	Status            JobStatusPhase           `json:"status"`
	ScheduledClusters []string                 `json:"scheduled_clusters,omitempty"`
	ReplicaStatus     map[string]ReplicaStatus `json:"replica_status,omitempty"` // cluster -> phase -> count
	JobIDs            map[string]string        `json:"job_ids,omitempty"`        // cluster -> manager job id
}

// Job is a user-declared workload.
type Job struct {
	Kind     Kind      `json:"kind"`
	Metadata Meta      `json:"metadata"`
	Spec     JobSpec   `json:"spec"`
	Status   JobStatus `json:"status"`
}

// FilterPolicySpec restricts which clusters labeled Jobs may land on.
type FilterPolicySpec struct {
	LabelsSelector map[string]string `json:"labels_selector"`
	Include        []string          `json:"include,omitempty"`
	Exclude        []string          `json:"exclude,omitempty"`
}

// FilterPolicy is a namespace-wide include/exclude rule over the cluster set.
type FilterPolicy struct {
	Kind     Kind             `json:"kind"`
	Metadata Meta             `json:"metadata"`
	Spec     FilterPolicySpec `json:"spec"`
}

// ServiceType is the exposure mode of a Service.
type ServiceType string

const (
	ServiceTypeClusterIP   ServiceType = "ClusterIP"
	ServiceTypeLoadBalancer ServiceType = "LoadBalancer"
)

// ServiceSpec is the desired state of a cross-cluster Service.
type ServiceSpec struct {
	Selector map[string]string `json:"selector"`
	Ports    []ServicePort     `json:"ports,omitempty"`
	Type     ServiceType       `json:"type"`
}

// ServicePort is one exposed port on a Service.
type ServicePort struct {
	Name       string `json:"name,omitempty"`
	Port       int    `json:"port"`
	TargetPort int    `json:"target_port"`
	Protocol   string `json:"protocol,omitempty"` // tcp, udp
}

// Service is a cross-cluster L4 service record.
type Service struct {
	Kind     Kind        `json:"kind"`
	Metadata Meta        `json:"metadata"`
	Spec     ServiceSpec `json:"spec"`
}

// EndpointsStatus holds the per-cluster replica-endpoint counts backing a Service.
type EndpointsStatus struct {
	NumEndpoints map[string]int `json:"num_endpoints"` // cluster -> count
}

// Endpoints is the per-cluster replica-count record for a Service.
type Endpoints struct {
	Kind     Kind            `json:"kind"`
	Metadata Meta            `json:"metadata"`
	Status   EndpointsStatus `json:"status"`
}

// LinkSpec declares a network link between two clusters.
type LinkSpec struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Link is a declared network link between two clusters.
type Link struct {
	Kind     Kind     `json:"kind"`
	Metadata Meta     `json:"metadata"`
	Spec     LinkSpec `json:"spec"`
}

// Role is an access-control principal/permission record. Peripheral — interfaces
// only (spec.md §1); SkyShift persists it but does not implement an RBAC engine.
type Role struct {
	Kind     Kind     `json:"kind"`
	Metadata Meta     `json:"metadata"`
	Verbs    []string `json:"verbs"`
	Kinds    []Kind   `json:"kinds"`
}

// User is an access-control principal. Peripheral — interfaces only.
type User struct {
	Kind        Kind     `json:"kind"`
	Metadata    Meta     `json:"metadata"`
	AccessToken string   `json:"access_token,omitempty"`
	Roles       []string `json:"roles,omitempty"`
}

// TaskStatus is the per-task state reported by a Cluster Manager Adapter.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "PENDING"
	TaskStatusRunning   TaskStatus = "RUNNING"
	TaskStatusCompleted TaskStatus = "COMPLETED"
	TaskStatusFailed    TaskStatus = "FAILED"
)

// AcceleratorCatalog is the fixed set of accelerator tags SkyShift understands
// (SPEC_FULL.md §12, resolving spec.md §9's Open Question on the fuzzy GPU matcher).
var AcceleratorCatalog = []string{"T4", "A100", "A100-80GB", "V100", "H100", "L4"}
