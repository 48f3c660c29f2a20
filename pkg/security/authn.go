// Package security implements SkyShift's bearer-token principal store and
// verb/kind/namespace authorization check (spec.md §4.2, §6). RBAC policy
// evaluation beyond "does this principal hold this role" is peripheral —
// interfaces only (spec.md §1) — so Authorizer is intentionally simple.
package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"sync"

	skyerrors "github.com/sky-shift/skyshift-sub001/pkg/errors"
	"github.com/sky-shift/skyshift-sub001/pkg/types"
)

// Principal is an authenticated caller.
type Principal struct {
	Name  string
	Roles []string
}

// TokenStore maps bearer tokens to principals. It is the config-file-driven
// analogue of spec.md §6's users[] list; tokens are opaque strings supplied at
// config load time, not minted or rotated by the server.
type TokenStore struct {
	mu     sync.RWMutex
	tokens map[string]Principal
}

// NewTokenStore builds an empty store.
func NewTokenStore() *TokenStore {
	return &TokenStore{tokens: make(map[string]Principal)}
}

// Register binds token to a principal, overwriting any prior binding.
func (s *TokenStore) Register(token string, p Principal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = p
}

// Revoke removes token's binding.
func (s *TokenStore) Revoke(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
}

// Authenticate resolves a bearer token to a Principal using constant-time
// comparison, or returns a NotFound error for an unrecognized token.
func (s *TokenStore) Authenticate(token string) (Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for candidate, p := range s.tokens {
		if subtle.ConstantTimeCompare([]byte(candidate), []byte(token)) == 1 {
			return p, nil
		}
	}
	return Principal{}, skyerrors.NotFound("token")
}

// GenerateAccessToken returns a random 32-byte hex token, for config
// bootstrapping and tests.
func GenerateAccessToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate access token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Verb is an API action.
type Verb string

const (
	VerbGet    Verb = "get"
	VerbList   Verb = "list"
	VerbWatch  Verb = "watch"
	VerbCreate Verb = "create"
	VerbUpdate Verb = "update"
	VerbDelete Verb = "delete"
)

// Authorizer decides whether a principal may perform verb on kind within
// namespace (cluster-scoped kinds pass namespace == "").
type Authorizer interface {
	Authorize(p Principal, verb Verb, kind types.Kind, namespace string) bool
}

// RoleStore is an in-memory Authorizer over named roles: a principal is
// authorized when one of its roles lists the verb and the kind (spec.md §1:
// RBAC policy evaluation is out of scope; this is the "interfaces only"
// stand-in — there is no policy language, and namespaces are not checked).
type RoleStore struct {
	mu    sync.RWMutex
	roles map[string]types.Role
}

// NewRoleStore builds an empty store.
func NewRoleStore() *RoleStore { return &RoleStore{roles: make(map[string]types.Role)} }

// Put upserts a role definition.
func (s *RoleStore) Put(r types.Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roles[r.Metadata.Name] = r
}

// Authorize implements Authorizer: a principal is authorized for (verb, kind)
// if any of its roles lists that verb and kind (or "*").
func (s *RoleStore) Authorize(p Principal, verb Verb, kind types.Kind, _ string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, roleName := range p.Roles {
		role, ok := s.roles[roleName]
		if !ok {
			continue
		}
		if !containsVerb(role.Verbs, verb) {
			continue
		}
		if containsKind(role.Kinds, kind) {
			return true
		}
	}
	return false
}

func containsVerb(verbs []string, v Verb) bool {
	for _, candidate := range verbs {
		if candidate == "*" || candidate == string(v) {
			return true
		}
	}
	return false
}

func containsKind(kinds []types.Kind, k types.Kind) bool {
	for _, candidate := range kinds {
		if candidate == "*" || candidate == k {
			return true
		}
	}
	return false
}
