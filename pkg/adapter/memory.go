package adapter

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/sky-shift/skyshift-sub001/pkg/types"
)

// memJob is one job tracked by MemoryAdapter.
type memJob struct {
	managerID string
	status    map[string]types.TaskStatus // task id -> status
	deleted   bool
}

// MemoryAdapter is an in-process reference/test implementation of Adapter
// (spec.md §1: real backends are out of scope, SkyShift ships this one plus
// the interface). It simulates a single task per replica, all immediately
// RUNNING on submission, so Skylet controller tests can exercise the full
// submit/status/delete lifecycle without a real Kubernetes, Slurm, or Ray
// cluster.
type MemoryAdapter struct {
	mu       sync.Mutex
	capacity map[string]types.ResourceList
	status   types.ClusterStatusPhase
	jobs     map[string]*memJob // job name -> state
	logs     map[string][]string
}

// NewMemoryAdapter builds a MemoryAdapter reporting the given capacity as
// both total and allocatable, initially READY.
func NewMemoryAdapter(capacity map[string]types.ResourceList) *MemoryAdapter {
	return &MemoryAdapter{
		capacity: capacity,
		status:   types.ClusterReady,
		jobs:     make(map[string]*memJob),
		logs:     make(map[string][]string),
	}
}

// SetStatus overrides the reported cluster phase, for fault-injection tests.
func (m *MemoryAdapter) SetStatus(phase types.ClusterStatusPhase) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = phase
}

// SetLogs seeds the log lines returned for job by name.
func (m *MemoryAdapter) SetLogs(jobName string, lines []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs[jobName] = lines
}

func (m *MemoryAdapter) GetClusterStatus(_ context.Context) (ClusterReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return ClusterReport{
		Status:              m.status,
		Capacity:            m.capacity,
		AllocatableCapacity: m.capacity,
	}, nil
}

func (m *MemoryAdapter) SubmitJob(_ context.Context, job *types.Job) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	name := job.Metadata.Name
	if existing, ok := m.jobs[name]; ok && !existing.deleted {
		return existing.managerID, nil // idempotent by sky_job_id=name
	}

	statuses := make(map[string]types.TaskStatus, job.Spec.Replicas)
	for i := 0; i < job.Spec.Replicas; i++ {
		statuses[fmt.Sprintf("%s-task-%d", name, i)] = types.TaskStatusRunning
	}
	m.jobs[name] = &memJob{managerID: uuid.New().String(), status: statuses}
	return m.jobs[name].managerID, nil
}

func (m *MemoryAdapter) DeleteJob(_ context.Context, job *types.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.jobs[job.Metadata.Name]; ok {
		existing.deleted = true
	}
	return nil // idempotent: deleting an absent job is not an error
}

func (m *MemoryAdapter) GetJobsStatus(_ context.Context) (JobsStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(JobsStatus, len(m.jobs))
	for name, j := range m.jobs {
		if j.deleted {
			continue
		}
		tasks := make(map[string]types.TaskStatus, len(j.status))
		for id, st := range j.status {
			tasks[id] = st
		}
		out[name] = tasks
	}
	return out, nil
}

func (m *MemoryAdapter) GetJobLogs(_ context.Context, job *types.Job) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lines, ok := m.logs[job.Metadata.Name]
	if !ok {
		return nil, fmt.Errorf("adapter: no logs recorded for job %q", job.Metadata.Name)
	}
	return lines, nil
}

// CompleteTask marks a submitted task COMPLETED, for driving JobController
// tests through a full lifecycle.
func (m *MemoryAdapter) CompleteTask(jobName, taskID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j, ok := m.jobs[jobName]; ok {
		j.status[taskID] = types.TaskStatusCompleted
	}
}

var _ Adapter = (*MemoryAdapter)(nil)
