// Package registry is the closed kind->(parse,validate,persist_prefix) table
// spec.md §9 calls for in place of the Python original's dynamic
// getattr-by-kind-string dispatch. The API server and clients look up a
// Descriptor by types.Kind; unknown kinds are rejected at the boundary.
package registry

import (
	"fmt"

	skytypes "github.com/sky-shift/skyshift-sub001/pkg/types"
)

// Descriptor binds one object kind to its allocation, validation, and storage
// layout.
type Descriptor struct {
	Kind       skytypes.Kind
	Namespaced bool
	// Plural is the lowercase path segment used to route this kind
	// ("jobs", "clusters", ...).
	Plural string
	// New returns a freshly zeroed instance to unmarshal into.
	New func() skytypes.Object
	// Validate checks declarative constraints (spec.md §4.2); returns a
	// *skytypes.ValidationError (or wraps one) on failure.
	Validate func(obj skytypes.Object) error
	// Prefix returns the store key prefix for every object of this kind
	// (namespaced kinds: "<namespace>/<plural>/"; cluster-scoped: "<plural>/").
	Prefix func(namespace string) string
}

// Key returns the full store key for obj under this descriptor.
func (d Descriptor) Key(obj skytypes.Object) string {
	m := obj.GetMeta()
	return d.Prefix(m.Namespace) + m.Name
}

var descriptors = map[skytypes.Kind]Descriptor{
	skytypes.KindCluster: {
		Kind:       skytypes.KindCluster,
		Plural:     "clusters",
		Namespaced: false,
		New:        func() skytypes.Object { return &skytypes.Cluster{} },
		Validate:   func(o skytypes.Object) error { return skytypes.ValidateCluster(o.(*skytypes.Cluster)) },
		Prefix:     func(string) string { return "clusters/" },
	},
	skytypes.KindNamespace: {
		Kind:       skytypes.KindNamespace,
		Plural:     "namespaces",
		Namespaced: false,
		New:        func() skytypes.Object { return &skytypes.Namespace{} },
		Validate:   func(skytypes.Object) error { return nil },
		Prefix:     func(string) string { return "namespaces/" },
	},
	skytypes.KindJob: {
		Kind:       skytypes.KindJob,
		Plural:     "jobs",
		Namespaced: true,
		New:        func() skytypes.Object { return &skytypes.Job{} },
		Validate:   func(o skytypes.Object) error { return skytypes.ValidateJob(o.(*skytypes.Job)) },
		Prefix:     func(ns string) string { return ns + "/jobs/" },
	},
	skytypes.KindFilterPolicy: {
		Kind:       skytypes.KindFilterPolicy,
		Plural:     "filterpolicies",
		Namespaced: true,
		New:        func() skytypes.Object { return &skytypes.FilterPolicy{} },
		Validate:   func(o skytypes.Object) error { return skytypes.ValidateFilterPolicy(o.(*skytypes.FilterPolicy)) },
		Prefix:     func(ns string) string { return ns + "/filterpolicies/" },
	},
	skytypes.KindService: {
		Kind:       skytypes.KindService,
		Plural:     "services",
		Namespaced: true,
		New:        func() skytypes.Object { return &skytypes.Service{} },
		Validate:   func(o skytypes.Object) error { return skytypes.ValidateService(o.(*skytypes.Service)) },
		Prefix:     func(ns string) string { return ns + "/services/" },
	},
	skytypes.KindEndpoints: {
		Kind:       skytypes.KindEndpoints,
		Plural:     "endpoints",
		Namespaced: true,
		New:        func() skytypes.Object { return &skytypes.Endpoints{} },
		Validate:   func(skytypes.Object) error { return nil },
		Prefix:     func(ns string) string { return ns + "/endpoints/" },
	},
	skytypes.KindLink: {
		Kind:       skytypes.KindLink,
		Plural:     "links",
		Namespaced: false,
		New:        func() skytypes.Object { return &skytypes.Link{} },
		Validate:   func(o skytypes.Object) error { return skytypes.ValidateLink(o.(*skytypes.Link)) },
		Prefix:     func(string) string { return "links/" },
	},
	skytypes.KindRole: {
		Kind:       skytypes.KindRole,
		Plural:     "roles",
		Namespaced: false,
		New:        func() skytypes.Object { return &skytypes.Role{} },
		Validate:   func(skytypes.Object) error { return nil },
		Prefix:     func(string) string { return "roles/" },
	},
	skytypes.KindUser: {
		Kind:       skytypes.KindUser,
		Plural:     "users",
		Namespaced: false,
		New:        func() skytypes.Object { return &skytypes.User{} },
		Validate:   func(skytypes.Object) error { return nil },
		Prefix:     func(string) string { return "users/" },
	},
}

var byPlural = func() map[string]Descriptor {
	m := make(map[string]Descriptor, len(descriptors))
	for _, d := range descriptors {
		m[d.Plural] = d
	}
	return m
}()

// Lookup returns the Descriptor for kind, or false if kind is not a registered
// object kind (the API boundary rejects such requests, spec.md §9).
func Lookup(kind skytypes.Kind) (Descriptor, bool) {
	d, ok := descriptors[kind]
	return d, ok
}

// LookupPlural returns the Descriptor whose URL path segment is plural, or
// false if no kind is routed at that segment.
func LookupPlural(plural string) (Descriptor, bool) {
	d, ok := byPlural[plural]
	return d, ok
}

// MustLookup is Lookup but panics on an unregistered kind; reserved for
// call sites that already validated the kind against Lookup.
func MustLookup(kind skytypes.Kind) Descriptor {
	d, ok := Lookup(kind)
	if !ok {
		panic(fmt.Sprintf("registry: unregistered kind %q", kind))
	}
	return d
}

// Kinds returns every registered kind, for routing table construction.
func Kinds() []skytypes.Kind {
	out := make([]skytypes.Kind, 0, len(descriptors))
	for k := range descriptors {
		out = append(out, k)
	}
	return out
}
