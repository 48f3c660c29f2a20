package types

import (
	"fmt"
	"regexp"
	"strings"
)

var nameRE = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)

// SanitizeClusterName applies spec.md §3's sanitization function: lowercase,
// "/" and whitespace replaced with "-". It is idempotent.
func SanitizeClusterName(name string) string {
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, "/", "-")
	fields := strings.Fields(name)
	name = strings.Join(fields, "-")
	name = strings.ReplaceAll(name, " ", "-")
	return name
}

// ValidationError is a machine-readable validation failure (spec.md §4.2: "never
// a 500", HTTP 400 with a detail field).
type ValidationError struct {
	Field  string
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Detail)
}

func validateName(field, name string) error {
	if name == "" {
		return &ValidationError{Field: field, Detail: "must not be empty"}
	}
	if !nameRE.MatchString(name) {
		return &ValidationError{Field: field, Detail: "must match " + nameRE.String()}
	}
	return nil
}

// ValidateCluster checks a Cluster against spec.md §3/§4.2's declarative
// constraints: name sanitization, enum membership, non-negative
// allocatable_capacity quantities (capacity is not checked).
func ValidateCluster(c *Cluster) error {
	if err := validateName("metadata.name", c.Metadata.Name); err != nil {
		return err
	}
	if c.Metadata.Name != SanitizeClusterName(c.Metadata.Name) {
		return &ValidationError{Field: "metadata.name", Detail: "not in sanitized form"}
	}
	switch c.Status.Status {
	case "", ClusterInit, ClusterProvisioning, ClusterReady, ClusterError, ClusterDeleting:
	default:
		return &ValidationError{Field: "status.status", Detail: "unknown cluster status " + string(c.Status.Status)}
	}
	if c.Status.Status == ClusterError && c.Status.ErrorMessage == "" {
		return &ValidationError{Field: "status.error_message", Detail: "required when status == ERROR"}
	}
	if c.Status.Status != ClusterError && c.Status.ErrorMessage != "" {
		return &ValidationError{Field: "status.error_message", Detail: "must be empty unless status == ERROR"}
	}
	for node, res := range c.Status.AllocatableCapacity {
		for k, v := range res {
			if v < 0 {
				return &ValidationError{Field: fmt.Sprintf("status.allocatable_capacity[%s][%s]", node, k), Detail: "must be >= 0"}
			}
		}
	}
	return nil
}

// ValidateJob checks a Job against spec.md §4.2/§4.5's declarative constraints.
func ValidateJob(j *Job) error {
	if err := validateName("metadata.name", j.Metadata.Name); err != nil {
		return err
	}
	if j.Metadata.Namespace == "" {
		return &ValidationError{Field: "metadata.namespace", Detail: "must not be empty"}
	}
	if j.Spec.Replicas <= 0 {
		return &ValidationError{Field: "spec.replicas", Detail: "must be > 0"}
	}
	if j.Spec.Image == "" {
		return &ValidationError{Field: "spec.image", Detail: "must not be empty"}
	}
	for k, v := range j.Spec.Resources {
		if v < 0 {
			return &ValidationError{Field: "spec.resources[" + k + "]", Detail: "must be >= 0"}
		}
	}
	switch j.Spec.RestartPolicy {
	case "", RestartPolicyAlways, RestartPolicyNever, RestartPolicyOnFailure:
	default:
		return &ValidationError{Field: "spec.restart_policy", Detail: "unknown restart policy"}
	}
	for i, pref := range j.Spec.Placement.Preferences {
		if pref.Weight < 1 || pref.Weight > 100 {
			return &ValidationError{Field: fmt.Sprintf("spec.placement.preferences[%d].weight", i), Detail: "must be in [1,100]"}
		}
	}
	for i, expr := range allExpressions(j.Spec.Placement) {
		switch expr.Operator {
		case "In", "NotIn", "Exists", "DoesNotExist":
		default:
			return &ValidationError{Field: fmt.Sprintf("spec.placement expression[%d].operator", i), Detail: "unknown operator " + expr.Operator}
		}
	}
	switch j.Status.Status {
	case "", JobInit, JobScheduled, JobPending, JobRunning, JobCompleted, JobFailed, JobEvicted, JobDeleted:
	default:
		return &ValidationError{Field: "status.status", Detail: "unknown job status " + string(j.Status.Status)}
	}
	return nil
}

func allExpressions(p Placement) []MatchExpression {
	var out []MatchExpression
	for _, f := range p.Filters {
		out = append(out, f.MatchExpressions...)
	}
	for _, pr := range p.Preferences {
		out = append(out, pr.MatchExpressions...)
	}
	return out
}

// ValidateFilterPolicy checks a FilterPolicy's declarative constraints.
func ValidateFilterPolicy(f *FilterPolicy) error {
	if err := validateName("metadata.name", f.Metadata.Name); err != nil {
		return err
	}
	if f.Metadata.Namespace == "" {
		return &ValidationError{Field: "metadata.namespace", Detail: "must not be empty"}
	}
	if len(f.Spec.LabelsSelector) == 0 {
		return &ValidationError{Field: "spec.labels_selector", Detail: "must not be empty"}
	}
	return nil
}

// ValidateService checks a Service's declarative constraints.
func ValidateService(s *Service) error {
	if err := validateName("metadata.name", s.Metadata.Name); err != nil {
		return err
	}
	switch s.Spec.Type {
	case "", ServiceTypeClusterIP, ServiceTypeLoadBalancer:
	default:
		return &ValidationError{Field: "spec.type", Detail: "unknown service type"}
	}
	for i, p := range s.Spec.Ports {
		if p.Port <= 0 || p.Port > 65535 {
			return &ValidationError{Field: fmt.Sprintf("spec.ports[%d].port", i), Detail: "must be in (0,65535]"}
		}
	}
	return nil
}

// ValidateLink checks a Link's declarative constraints.
func ValidateLink(l *Link) error {
	if err := validateName("metadata.name", l.Metadata.Name); err != nil {
		return err
	}
	if l.Spec.Source == "" || l.Spec.Target == "" {
		return &ValidationError{Field: "spec", Detail: "source and target are required"}
	}
	if l.Spec.Source == l.Spec.Target {
		return &ValidationError{Field: "spec", Detail: "source and target must differ"}
	}
	return nil
}

// MatchesAcceleratorCatalog reports whether tag is a recognized accelerator,
// case-insensitively (SPEC_FULL.md §12).
func MatchesAcceleratorCatalog(tag string) bool {
	tag = strings.ToUpper(tag)
	for _, known := range AcceleratorCatalog {
		if strings.ToUpper(known) == tag {
			return true
		}
	}
	return false
}

// FuzzyAcceleratorMatch reports whether a job's requested accelerator tag is
// satisfied by a cluster-advertised tag, using case-insensitive substring
// containment in either direction (SPEC_FULL.md §12). It does not itself
// consult AcceleratorCatalog.
func FuzzyAcceleratorMatch(requested, advertised string) bool {
	r, a := strings.ToUpper(requested), strings.ToUpper(advertised)
	if r == a {
		return true
	}
	return strings.Contains(a, r) || strings.Contains(r, a)
}
