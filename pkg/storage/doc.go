/*
Package storage implements SkyShift's durable ordered object store (spec.md §4.1).

A single BoltDB (bbolt) bucket holds every persisted object keyed by its
kind-prefixed key ("clusters/k1", "default/jobs/j1", ...); values are the
JSON-encoded object body plus a per-key resource_version. Mutations are not
applied directly to bbolt — they are submitted as Raft log commands and applied
by storeFSM, the same "Command{Op,Data} through raft.Apply into a BoltDB-backed
state" shape the teacher's pkg/manager/fsm.go uses over pkg/storage/boltdb.go.
That gives the store:

  - A single linearizable order in which commands are applied; each key's
    resource_version is a per-key counter (1 on first write, +1 on every
    later write) bumped in that order, satisfying "the store must deliver per-key events in version order;
    across keys, order is preserved within a single watch stream" (spec.md §4.1).
  - A natural place to hang the watch fabric: every successful Apply publishes a
    WatchEvent on an in-process broker (pkg/storage/watch.go, adapted from the
    teacher's pkg/events broker) which Watch(prefix) subscribes to.

Replication topology beyond a single Raft peer is out of scope (spec.md §1
Non-goals: "multi-region data replication of the object store"); multi-peer
Raft is wired and usable, but SkyShift's own tests and default deployment run
the single-node degenerate case.
*/
package storage
