package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveJobStatus(t *testing.T) {
	cases := []struct {
		name string
		rs   map[string]ReplicaStatus
		want JobStatusPhase
	}{
		{"no replicas", nil, JobScheduled},
		{"running wins", map[string]ReplicaStatus{"k1": {JobRunning: 1, JobFailed: 1}}, JobRunning},
		{"pending over terminal", map[string]ReplicaStatus{"k1": {JobPending: 1, JobCompleted: 1}}, JobPending},
		{"init counts as pending", map[string]ReplicaStatus{"k1": {JobInit: 1}}, JobPending},
		{"all failed", map[string]ReplicaStatus{"k1": {JobFailed: 2}}, JobFailed},
		{"all completed", map[string]ReplicaStatus{"k1": {JobCompleted: 2}}, JobCompleted},
		{"mixed terminal falls back to scheduled", map[string]ReplicaStatus{"k1": {JobFailed: 1, JobCompleted: 1}}, JobScheduled},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, DeriveJobStatus(c.rs))
		})
	}
}
