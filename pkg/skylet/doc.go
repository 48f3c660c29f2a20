/*
Package skylet implements the per-cluster Skylet Supervisor and its
controllers (spec.md §4.6): ClusterController heartbeats cluster capacity,
FlowController drives job submission/eviction/cleanup against the cluster's
adapter, JobController mirrors per-task status back into the Job's
replica_status, and the optional EndpointsController keeps a cross-cluster
Endpoints record in sync for mesh-capable backends.

SkyletController is the process-wide singleton: it watches Clusters and
forks one Supervisor per cluster on READY, joining it on DELETE. It owns the
Jobs/FilterPolicy/Services informers shared by every forked Supervisor, so N
clusters never mean N redundant watches of the same collections.
*/
package skylet
