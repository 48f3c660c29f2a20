package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	skyerrors "github.com/sky-shift/skyshift-sub001/pkg/errors"
	"github.com/sky-shift/skyshift-sub001/pkg/log"
	"github.com/sky-shift/skyshift-sub001/pkg/metrics"
	"github.com/sky-shift/skyshift-sub001/pkg/registry"
	"github.com/sky-shift/skyshift-sub001/pkg/security"
	"github.com/sky-shift/skyshift-sub001/pkg/storage"
	"github.com/sky-shift/skyshift-sub001/pkg/types"
)

// LogFetcher serves the supplemented logs endpoint (SPEC_FULL.md §12). It is
// implemented by pkg/adapter's LogProxy, which forwards to the Cluster
// Manager Adapter registered for the Job's scheduled cluster.
type LogFetcher interface {
	GetJobLogs(ctx context.Context, namespace, name string) (string, error)
}

// Server is SkyShift's HTTP/JSON control-plane API server.
type Server struct {
	store  storage.Store
	tokens *security.TokenStore
	authz  security.Authorizer
	logs   LogFetcher
	mux    *http.ServeMux
}

// NewServer builds a Server. tokens and authz may be nil, in which case every
// request is treated as an anonymous, fully-authorized principal — useful for
// local development and tests (spec.md §6 leaves authn/z optional per-deployment).
func NewServer(store storage.Store, tokens *security.TokenStore, authz security.Authorizer, logs LogFetcher) *Server {
	s := &Server{store: store, tokens: tokens, authz: authz, logs: logs}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/", s.dispatch)
	s.mux = mux
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

// Start runs the server until ctx is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 0, // watch streams are long-lived
		IdleTimeout:  120 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

type route struct {
	namespace string
	desc      registry.Descriptor
	name      string
	logs      bool
}

// parseRoute splits the URL path into (namespace, kind, name), disambiguating
// "/{plural}/{name}" (cluster-scoped) from "/{namespace}/{plural}" (namespaced
// collection) by checking which segment names a registered kind.
func parseRoute(path string) (route, bool) {
	segs := strings.Split(strings.Trim(path, "/"), "/")
	if len(segs) == 0 || segs[0] == "" {
		return route{}, false
	}
	switch len(segs) {
	case 1:
		d, ok := registry.LookupPlural(segs[0])
		if !ok || d.Namespaced {
			return route{}, false
		}
		return route{desc: d}, true
	case 2:
		if d, ok := registry.LookupPlural(segs[0]); ok && !d.Namespaced {
			return route{desc: d, name: segs[1]}, true
		}
		if d, ok := registry.LookupPlural(segs[1]); ok && d.Namespaced {
			return route{namespace: segs[0], desc: d}, true
		}
		return route{}, false
	case 3:
		d, ok := registry.LookupPlural(segs[1])
		if !ok || !d.Namespaced {
			return route{}, false
		}
		return route{namespace: segs[0], desc: d, name: segs[2]}, true
	case 4:
		if segs[1] != "jobs" || segs[3] != "logs" {
			return route{}, false
		}
		d, _ := registry.LookupPlural("jobs")
		return route{namespace: segs[0], desc: d, name: segs[2], logs: true}, true
	default:
		return route{}, false
	}
}

func (s *Server) dispatch(w http.ResponseWriter, r *http.Request) {
	timer := metrics.NewTimer()
	status := "success"
	defer func() {
		metrics.APIRequestsTotal.WithLabelValues(r.Method, status).Inc()
		timer.ObserveDurationVec(metrics.APIRequestDuration, r.Method)
	}()

	rt, ok := parseRoute(r.URL.Path)
	if !ok {
		status = "not_found"
		http.NotFound(w, r)
		return
	}

	principal, err := s.authenticate(r)
	if err != nil {
		status = "unauthenticated"
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	if rt.logs {
		s.handleLogs(w, r, rt, principal)
		return
	}

	var verb security.Verb
	switch {
	case r.Method == http.MethodGet && rt.name == "" && r.URL.Query().Get("watch") == "true":
		verb = security.VerbWatch
	case r.Method == http.MethodGet && rt.name == "":
		verb = security.VerbList
	case r.Method == http.MethodGet:
		verb = security.VerbGet
	case r.Method == http.MethodPost && rt.name == "":
		verb = security.VerbCreate
	case r.Method == http.MethodPut && rt.name != "":
		verb = security.VerbUpdate
	case r.Method == http.MethodDelete && rt.name != "":
		verb = security.VerbDelete
	default:
		status = "method_not_allowed"
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if s.authz != nil && !s.authz.Authorize(principal, verb, rt.desc.Kind, rt.namespace) {
		status = "forbidden"
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	var handlerErr error
	switch verb {
	case security.VerbWatch:
		handlerErr = s.handleWatch(w, r, rt)
	case security.VerbList:
		handlerErr = s.handleList(w, r, rt)
	case security.VerbGet:
		handlerErr = s.handleGet(w, r, rt)
	case security.VerbCreate:
		handlerErr = s.handleCreate(w, r, rt)
	case security.VerbUpdate:
		handlerErr = s.handleUpdate(w, r, rt)
	case security.VerbDelete:
		handlerErr = s.handleDelete(w, r, rt)
	}
	if handlerErr != nil {
		status = "error"
		s.writeError(w, handlerErr)
	}
}

func (s *Server) authenticate(r *http.Request) (security.Principal, error) {
	if s.tokens == nil {
		return security.Principal{Name: "anonymous"}, nil
	}
	auth := r.Header.Get("Authorization")
	token := strings.TrimPrefix(auth, "Bearer ")
	if token == "" || token == auth {
		return security.Principal{}, skyerrors.NotFound("bearer token")
	}
	return s.tokens.Authenticate(token)
}

func decodeInto(r *http.Request, obj types.Object) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, 4<<20))
	if err != nil {
		return skyerrors.Validation(err)
	}
	if err := json.Unmarshal(body, obj); err != nil {
		return skyerrors.Validation(err)
	}
	return nil
}

func stamp(obj types.Object, version int64) types.Object {
	m := obj.GetMeta()
	m.ResourceVersion = version
	obj.SetMeta(m)
	return obj
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleList(w http.ResponseWriter, _ *http.Request, rt route) error {
	entries, err := s.store.ReadPrefix(context.Background(), rt.desc.Prefix(rt.namespace))
	if err != nil {
		return err
	}
	out := make([]types.Object, 0, len(entries))
	for _, e := range entries {
		obj := rt.desc.New()
		if err := json.Unmarshal(e.Value, obj); err != nil {
			return skyerrors.Fatal(err)
		}
		out = append(out, stamp(obj, e.Version))
	}
	writeJSON(w, http.StatusOK, out)
	return nil
}

func (s *Server) handleGet(w http.ResponseWriter, _ *http.Request, rt route) error {
	key := rt.desc.Prefix(rt.namespace) + rt.name
	value, version, err := s.store.Read(context.Background(), key)
	if err != nil {
		return err
	}
	obj := rt.desc.New()
	if err := json.Unmarshal(value, obj); err != nil {
		return skyerrors.Fatal(err)
	}
	writeJSON(w, http.StatusOK, stamp(obj, version))
	return nil
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request, rt route) error {
	ctx := context.Background()
	obj := rt.desc.New()
	if err := decodeInto(r, obj); err != nil {
		return err
	}
	m := obj.GetMeta()
	if rt.desc.Namespaced {
		m.Namespace = rt.namespace
	}
	m.CreationTimestamp = time.Now()
	m.ResourceVersion = 0
	obj.SetMeta(m)
	if err := rt.desc.Validate(obj); err != nil {
		return skyerrors.Validation(err)
	}
	key := rt.desc.Key(obj)
	if _, _, err := s.store.Read(ctx, key); err == nil {
		return skyerrors.AlreadyExists(key)
	} else if !skyerrors.Is(err, skyerrors.KindNotFound) {
		return err
	}
	value, err := json.Marshal(obj)
	if err != nil {
		return skyerrors.Fatal(err)
	}
	version, err := s.store.Write(ctx, key, value)
	if err != nil {
		return err
	}
	log.WithKind(string(rt.desc.Kind)).Info().Str("key", key).Msg("created object")
	writeJSON(w, http.StatusCreated, stamp(obj, version))
	return nil
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request, rt route) error {
	ctx := context.Background()
	obj := rt.desc.New()
	if err := decodeInto(r, obj); err != nil {
		return err
	}
	m := obj.GetMeta()
	expected := m.ResourceVersion
	m.Name = rt.name
	if rt.desc.Namespaced {
		m.Namespace = rt.namespace
	}
	obj.SetMeta(m)
	if err := rt.desc.Validate(obj); err != nil {
		return skyerrors.Validation(err)
	}
	key := rt.desc.Prefix(rt.namespace) + rt.name
	value, err := json.Marshal(obj)
	if err != nil {
		return skyerrors.Fatal(err)
	}
	var expectedPtr *int64
	if expected != 0 {
		expectedPtr = &expected
	}
	version, err := s.store.Update(ctx, key, value, expectedPtr)
	if err != nil {
		if skyerrors.Is(err, skyerrors.KindConflict) {
			metrics.StoreConflictsTotal.WithLabelValues(string(rt.desc.Kind)).Inc()
		}
		return err
	}
	writeJSON(w, http.StatusOK, stamp(obj, version))
	return nil
}

func (s *Server) handleDelete(w http.ResponseWriter, _ *http.Request, rt route) error {
	key := rt.desc.Prefix(rt.namespace) + rt.name
	value, version, err := s.store.Delete(context.Background(), key)
	if err != nil {
		return err
	}
	obj := rt.desc.New()
	if err := json.Unmarshal(value, obj); err != nil {
		return skyerrors.Fatal(err)
	}
	writeJSON(w, http.StatusOK, stamp(obj, version))
	return nil
}

// WatchEvent is one line of an ndjson watch stream (spec.md §4.3).
type WatchEvent struct {
	Type   storage.EventKind `json:"type"`
	Object json.RawMessage   `json:"object"`
}

func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request, rt route) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return skyerrors.Fatal(nil)
	}
	events, cancel, err := s.store.Watch(r.Context(), rt.desc.Prefix(rt.namespace))
	if err != nil {
		return err
	}
	defer cancel()

	metrics.WatchStreamsActive.Inc()
	defer metrics.WatchStreamsActive.Dec()

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	enc := json.NewEncoder(w)

	for {
		select {
		case <-r.Context().Done():
			return nil
		case ev, open := <-events:
			if !open {
				return nil
			}
			obj := rt.desc.New()
			if err := json.Unmarshal(ev.Value, obj); err != nil {
				continue
			}
			stamp(obj, ev.Version)
			objJSON, err := json.Marshal(obj)
			if err != nil {
				continue
			}
			if err := enc.Encode(WatchEvent{Type: ev.Kind, Object: objJSON}); err != nil {
				return nil
			}
			flusher.Flush()
		}
	}
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request, rt route, _ security.Principal) {
	if s.logs == nil {
		http.Error(w, "log fetching is not configured", http.StatusServiceUnavailable)
		return
	}
	text, err := s.logs.GetJobLogs(r.Context(), rt.namespace, rt.name)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(text))
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	kind, _ := skyerrors.KindOf(err)
	code := http.StatusInternalServerError
	switch kind {
	case skyerrors.KindValidation:
		code = http.StatusBadRequest
	case skyerrors.KindNotFound:
		code = http.StatusNotFound
	case skyerrors.KindAlreadyExists, skyerrors.KindConflict:
		code = http.StatusConflict
	case skyerrors.KindTransient:
		code = http.StatusServiceUnavailable
	case skyerrors.KindAdapter:
		code = http.StatusBadGateway
	case skyerrors.KindFatal:
		code = http.StatusInternalServerError
	}
	body := map[string]any{"error": err.Error()}
	if e, ok := err.(*skyerrors.Error); ok && e.Kind == skyerrors.KindConflict {
		body["current_resource_version"] = e.CurrentVersion
	}
	log.Logger.Error().Err(err).Int("status", code).Msg("api request failed")
	writeJSON(w, code, body)
}
