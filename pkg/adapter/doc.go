/*
Package adapter defines the Cluster Manager Adapter contract (spec.md §4.7):
the uniform interface the Skylet controllers (pkg/skylet) consume for every
cluster-native backend. SkyShift's controllers never depend on a backend's
internals — Kubernetes, Slurm, and Ray implementations are out of scope
(spec.md §1); this package ships the interface, a ClusterRegistry for
looking up a running cluster's Adapter by name, a LogProxy that completes
the log-retrieval path end to end, and MemoryAdapter, an in-process
reference implementation used by the Skylet controllers' own tests.
*/
package adapter
