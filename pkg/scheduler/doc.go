/*
Package scheduler implements SkyShift's filter/score/select/assign pipeline
(spec.md §4.5): for each unscheduled Job, every registered FilterPlugin
evaluates every known Cluster; clusters that pass every filter are scored by
every registered ScorePlugin and summed; the highest scorer wins, ties broken
first by cluster name, then by resource_version.

The Scheduler is woken by any Cluster, Job, or FilterPolicy change observed
through its three Informers, and otherwise runs on a fixed fallback tick so a
missed or coalesced wake-up is never fatal. The assignment write is
compare-and-swap on the Job's resource_version; a conflict re-reads the Job
and restarts the pipeline from scratch, since a concurrent write may have
already placed or deleted it.
*/
package scheduler
