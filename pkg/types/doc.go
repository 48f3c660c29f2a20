/*
Package types defines SkyShift's federation-layer object model.

Every persisted entity shares the {kind, metadata, spec, status} shape described
in spec.md §3: Cluster, Namespace, Job, FilterPolicy, Service, Endpoints, Link,
Role, and User. Metadata carries a cluster-unique name, optional namespace,
free-form labels/annotations, a creation timestamp, and a store-assigned
resource_version.

# Namespacing

Cluster, Namespace, Link, Role, and User are cluster-scoped (keyed by name only).
Job, FilterPolicy, Service, and Endpoints are namespaced (keyed by namespace+name,
see Meta.Key).

# Resource versioning

ResourceVersion is opaque and monotonic per key; it is assigned and bumped only
by pkg/storage, never by callers. Clients treat it as a token for optimistic
concurrency (pkg/api's PUT endpoints) and watch resume.

# Ownership

The API Server owns persistence of all fields. Beyond that, field ownership is
split by controller (spec.md §3 "Lifecycle & ownership"):
  - The Scheduler owns Job.status.scheduled_clusters and the initial replica_status.
  - The FlowController owns Job.status.job_ids and submission/eviction transitions.
  - The JobController owns replica_status updates from observed cluster-native state.

No two controllers write the same field on the same cluster concurrently.

See also pkg/storage for persistence, pkg/api for the HTTP surface, pkg/scheduler
for placement, and pkg/skylet for per-cluster reconciliation.
*/
package types
