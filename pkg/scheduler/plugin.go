package scheduler

import (
	"strings"

	"github.com/sky-shift/skyshift-sub001/pkg/types"
)

// Unschedulable is the reason a cluster failed one filter plugin.
type Unschedulable struct {
	Plugin string
	Reason string
}

// FilterPlugin decides whether cluster is eligible to run job at all.
// Returning a non-nil *Unschedulable disqualifies the cluster; filters are
// short-circuited in registration order (spec.md §4.5).
type FilterPlugin interface {
	Name() string
	Filter(cluster *types.Cluster, job *types.Job, ctx *PipelineContext) *Unschedulable
}

// ScorePlugin contributes a [0,100] score for an eligible cluster. Scores are
// combined by a documented weighted sum, never by plugin-internal weighting.
type ScorePlugin interface {
	Name() string
	Score(cluster *types.Cluster, job *types.Job, ctx *PipelineContext) float64
}

// PipelineContext carries the read-only inputs a scheduling pass needs beyond
// the single cluster/job pair: the job's namespace FilterPolicy set.
type PipelineContext struct {
	FilterPolicies []*types.FilterPolicy
}

// ClusterReadyFilter requires the cluster to have reported READY.
type ClusterReadyFilter struct{}

func (ClusterReadyFilter) Name() string { return "ClusterReadyFilter" }

func (ClusterReadyFilter) Filter(cluster *types.Cluster, _ *types.Job, _ *PipelineContext) *Unschedulable {
	if cluster.Status.Status != types.ClusterReady {
		return &Unschedulable{Plugin: "ClusterReadyFilter", Reason: "cluster is not READY"}
	}
	return nil
}

// isAccelerator reports whether name denotes an entry of the fixed
// accelerator catalog rather than a base resource (cpu/memory/disk/gpu).
func isAccelerator(name string) bool {
	switch strings.ToLower(name) {
	case "cpu", "memory", "disk", "gpu":
		return false
	default:
		return true
	}
}

// sumBaseCapacity adds every node's non-accelerator resources in m.
func sumBaseCapacity(m map[string]types.ResourceList) types.ResourceList {
	total := types.ResourceList{}
	for _, rl := range m {
		for res, qty := range rl {
			if !isAccelerator(res) {
				total[res] += qty
			}
		}
	}
	return total
}

// sumAccelerator adds every node's quantity for resource keys that fuzzily
// match requested across m.
func sumAccelerator(m map[string]types.ResourceList, requested string) float64 {
	var total float64
	for _, rl := range m {
		for res, qty := range rl {
			if isAccelerator(res) && types.FuzzyAcceleratorMatch(requested, res) {
				total += qty
			}
		}
	}
	return total
}

// ResourceFit requires every requested base resource, and every requested
// accelerator tag (matched fuzzily against the cluster's advertised tags),
// to fit within the cluster's summed allocatable capacity.
type ResourceFit struct{}

func (ResourceFit) Name() string { return "ResourceFit" }

func (ResourceFit) Filter(cluster *types.Cluster, job *types.Job, _ *PipelineContext) *Unschedulable {
	base := sumBaseCapacity(cluster.Status.AllocatableCapacity)
	for res, want := range job.Spec.Resources {
		needed := want * float64(job.Spec.Replicas)
		var have float64
		if isAccelerator(res) {
			have = sumAccelerator(cluster.Status.AllocatableCapacity, res)
		} else {
			have = base[res]
		}
		if needed > have {
			return &Unschedulable{
				Plugin: "ResourceFit",
				Reason: "insufficient " + res + " capacity",
			}
		}
	}
	return nil
}

// ResourceAvailabilityScore is the default scoring plugin: free capacity over
// total capacity, averaged across every requested resource and clamped to
// [0,100].
type ResourceAvailabilityScore struct{}

func (ResourceAvailabilityScore) Name() string { return "ResourceAvailabilityScore" }

func (ResourceAvailabilityScore) Score(cluster *types.Cluster, job *types.Job, _ *PipelineContext) float64 {
	totalBase := sumBaseCapacity(cluster.Status.Capacity)
	allocBase := sumBaseCapacity(cluster.Status.AllocatableCapacity)

	resources := job.Spec.Resources
	if len(resources) == 0 {
		resources = totalBase
	}
	if len(resources) == 0 {
		return 0
	}

	var sum float64
	var n int
	for res := range resources {
		var t, free float64
		if isAccelerator(res) {
			t = sumAccelerator(cluster.Status.Capacity, res)
			if t <= 0 {
				continue
			}
			free = sumAccelerator(cluster.Status.AllocatableCapacity, res) / t * 100
		} else {
			t = totalBase[res]
			if t <= 0 {
				continue
			}
			free = allocBase[res] / t * 100
		}
		sum += clamp(free, 0, 100)
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// matchExpression evaluates one MatchExpression against a cluster's labels.
func matchExpression(expr types.MatchExpression, labels map[string]string) bool {
	v, present := labels[expr.Key]
	switch expr.Operator {
	case "Exists":
		return present
	case "DoesNotExist":
		return !present
	case "In":
		if !present {
			return false
		}
		for _, want := range expr.Values {
			if v == want {
				return true
			}
		}
		return false
	case "NotIn":
		if !present {
			return true
		}
		for _, want := range expr.Values {
			if v == want {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// matchesFilter reports whether every match_labels entry and every
// match_expressions entry of f is satisfied by labels.
func matchesFilter(matchLabels map[string]string, matchExprs []types.MatchExpression, labels map[string]string) bool {
	for k, v := range matchLabels {
		if labels[k] != v {
			return false
		}
	}
	for _, expr := range matchExprs {
		if !matchExpression(expr, labels) {
			return false
		}
	}
	return true
}

// ClusterAffinity requires at least one placement filter stanza to match,
// when the job declares any.
type ClusterAffinity struct{}

func (ClusterAffinity) Name() string { return "ClusterAffinity" }

func (ClusterAffinity) Filter(cluster *types.Cluster, job *types.Job, _ *PipelineContext) *Unschedulable {
	filters := job.Spec.Placement.Filters
	if len(filters) == 0 {
		return nil
	}
	for _, f := range filters {
		if matchesFilter(f.MatchLabels, f.MatchExpressions, cluster.Metadata.Labels) {
			return nil
		}
	}
	return &Unschedulable{Plugin: "ClusterAffinity", Reason: "no placement filter stanza matched"}
}

// PlacementPreferenceScore sums the weight of every preference whose
// match_labels/match_expressions match the cluster, clamped to [0,100].
type PlacementPreferenceScore struct{}

func (PlacementPreferenceScore) Name() string { return "PlacementPreferenceScore" }

func (PlacementPreferenceScore) Score(cluster *types.Cluster, job *types.Job, _ *PipelineContext) float64 {
	var sum float64
	for _, p := range job.Spec.Placement.Preferences {
		if matchesFilter(p.MatchLabels, p.MatchExpressions, cluster.Metadata.Labels) {
			sum += float64(p.Weight)
		}
	}
	return clamp(sum, 0, 100)
}

// allowedClusters computes FilterPolicy's allowed set (include - exclude) for
// one policy, or nil if the policy's label selector doesn't match job.
func allowedClusters(policy *types.FilterPolicy, job *types.Job) (map[string]struct{}, bool) {
	for k, v := range policy.Spec.LabelsSelector {
		if job.Spec.Labels[k] != v {
			return nil, false
		}
	}
	excluded := make(map[string]struct{}, len(policy.Spec.Exclude))
	for _, c := range policy.Spec.Exclude {
		excluded[c] = struct{}{}
	}
	allowed := make(map[string]struct{})
	if len(policy.Spec.Include) == 0 {
		return nil, true // empty include means "no restriction from this policy"
	}
	for _, c := range policy.Spec.Include {
		if _, ok := excluded[c]; !ok {
			allowed[c] = struct{}{}
		}
	}
	return allowed, true
}

// FilterPolicyFilter intersects every matching namespace FilterPolicy's
// include-minus-exclude set; a cluster absent from any matching policy's
// allowed set is disqualified.
type FilterPolicyFilter struct{}

func (FilterPolicyFilter) Name() string { return "FilterPolicy" }

func (FilterPolicyFilter) Filter(cluster *types.Cluster, job *types.Job, ctx *PipelineContext) *Unschedulable {
	for _, policy := range ctx.FilterPolicies {
		allowed, matched := allowedClusters(policy, job)
		if !matched || allowed == nil {
			continue
		}
		if _, ok := allowed[cluster.Metadata.Name]; !ok {
			return &Unschedulable{
				Plugin: "FilterPolicy",
				Reason: "excluded by FilterPolicy " + policy.Metadata.Name,
			}
		}
	}
	return nil
}

// DefaultFilterPlugins is the built-in, fixed-order filter pipeline
// (spec.md §4.5).
func DefaultFilterPlugins() []FilterPlugin {
	return []FilterPlugin{
		ClusterReadyFilter{},
		ResourceFit{},
		ClusterAffinity{},
		FilterPolicyFilter{},
	}
}

// DefaultScorePlugins is the built-in scoring pipeline: resource availability
// plus weighted placement preferences.
func DefaultScorePlugins() []ScorePlugin {
	return []ScorePlugin{
		ResourceAvailabilityScore{},
		PlacementPreferenceScore{},
	}
}
