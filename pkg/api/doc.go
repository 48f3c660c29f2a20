/*
Package api implements SkyShift's HTTP/JSON control-plane API (spec.md §4.2).

The server exposes a uniform CRUD surface over every registered object kind
(pkg/registry), backed by pkg/storage.Store, plus a long-lived ndjson watch
stream per collection. Unlike the gRPC+mTLS transport of the system this
package is adapted from, the wire format here is plain HTTP/JSON: the spec
mandates it so any language can speak to the control plane without codegen.

# Routing

Cluster-scoped kinds (Cluster, Namespace, Link, Role, User):

	GET    /{kind}             list
	POST   /{kind}             create
	GET    /{kind}/{name}      get
	PUT    /{kind}/{name}      update (body metadata.resource_version is the CAS token)
	DELETE /{kind}/{name}      delete

Namespaced kinds (Job, FilterPolicy, Service, Endpoints):

	GET    /{namespace}/{kind}
	POST   /{namespace}/{kind}
	GET    /{namespace}/{kind}/{name}
	PUT    /{namespace}/{kind}/{name}
	DELETE /{namespace}/{kind}/{name}

Any collection GET accepts "?watch=true" and switches to an
application/x-ndjson stream of WatchEvent lines instead of a single JSON
array (spec.md §4.3); the connection stays open until the client
disconnects or the server shuts down.

SPEC_FULL.md §12 adds one job-specific endpoint:

	GET /{namespace}/jobs/{name}/logs

# Errors

Handlers never return a bare 500 for caller mistakes: pkg/errors.Kind is
mapped to a status code once, in writeError, so every handler can just
return an error.
*/
package api
