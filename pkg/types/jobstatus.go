package types

// DeriveJobStatus computes the canonical Job.status.status from its
// replica_status, per SPEC_FULL.md §13 (resolving spec.md §9's Open
// Question 1 on the source's mixed ACTIVE/SCHEDULED/RUNNING alphabet):
// RUNNING if any replica is RUNNING, else PENDING if any is PENDING or
// INIT, else FAILED if every terminal replica is FAILED, else COMPLETED if
// every replica is COMPLETED, else SCHEDULED.
func DeriveJobStatus(replicaStatus map[string]ReplicaStatus) JobStatusPhase {
	var anyRunning, anyPending, anyFailed, anyCompleted bool

	for _, rs := range replicaStatus {
		for phase, count := range rs {
			if count <= 0 {
				continue
			}
			switch phase {
			case JobRunning:
				anyRunning = true
			case JobPending, JobInit:
				anyPending = true
			case JobFailed:
				anyFailed = true
			case JobCompleted:
				anyCompleted = true
			}
		}
	}

	switch {
	case anyRunning:
		return JobRunning
	case anyPending:
		return JobPending
	case anyFailed && !anyCompleted:
		return JobFailed
	case anyCompleted && !anyFailed:
		return JobCompleted
	default:
		return JobScheduled
	}
}
