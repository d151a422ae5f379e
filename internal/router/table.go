package router

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/vyrodovalexey/apiproxy/internal/config"
)

// Sentinel errors returned by NewTable.
var (
	ErrNoTargets          = errors.New("route table has no targets")
	ErrAuthTargetRequired = errors.New("auth target required by a target with useAuth")
)

// Target is one upstream and the inbound prefix routed to it.
type Target struct {
	Name         string
	Host         string
	Secure       bool
	SourcePath   string
	DestPath     string
	UseAuth      bool
	IgnoreErrors bool
}

// Scheme returns the upstream URL scheme.
func (t *Target) Scheme() string {
	if t.Secure {
		return "https"
	}
	return "http"
}

// AuthTarget is the endpoint that supplies credentials for targets with
// UseAuth set. Header names are stored in canonical form.
type AuthTarget struct {
	Host            string
	Secure          bool
	Path            string
	Method          string
	RequestHeaders  []string
	ResponseHeaders []string

	requestSet map[string]struct{}
}

// Scheme returns the auth URL scheme.
func (a *AuthTarget) Scheme() string {
	if a.Secure {
		return "https"
	}
	return "http"
}

// URL returns the full auth endpoint URL.
func (a *AuthTarget) URL() string {
	return a.Scheme() + "://" + a.Host + a.Path
}

// IsRequestHeader reports whether name is one of the headers sent to the
// auth endpoint. The comparison is case-insensitive.
func (a *AuthTarget) IsRequestHeader(name string) bool {
	_, ok := a.requestSet[http.CanonicalHeaderKey(name)]
	return ok
}

// Table is the ordered, immutable set of targets plus the optional auth
// target. It is safe for concurrent use.
type Table struct {
	targets []Target
	auth    *AuthTarget
}

// NewTable builds a Table from validated configuration.
func NewTable(cfg *config.Config) (*Table, error) {
	if cfg == nil {
		return nil, errors.New("route table: configuration is nil")
	}

	targets := make([]Target, 0, len(cfg.Targets))
	for i := range cfg.Targets {
		t := &cfg.Targets[i]
		name := t.Name
		if name == "" {
			name = t.SourcePath
		}
		targets = append(targets, Target{
			Name:         name,
			Host:         t.Host,
			Secure:       t.Secure,
			SourcePath:   t.SourcePath,
			DestPath:     t.DestPath,
			UseAuth:      t.UseAuth,
			IgnoreErrors: t.IgnoreErrors,
		})
	}

	var auth *AuthTarget
	if cfg.Auth != nil {
		auth = &AuthTarget{
			Host:            cfg.Auth.Host,
			Secure:          cfg.Auth.Secure,
			Path:            cfg.Auth.Path,
			Method:          cfg.Auth.Method,
			RequestHeaders:  cfg.Auth.RequestHeaders,
			ResponseHeaders: cfg.Auth.ResponseHeaders,
		}
	}

	return New(targets, auth)
}

// New builds a Table from already converted targets. The slices are
// copied so later changes by the caller do not affect the table.
func New(targets []Target, auth *AuthTarget) (*Table, error) {
	if len(targets) == 0 {
		return nil, ErrNoTargets
	}

	copied := make([]Target, len(targets))
	copy(copied, targets)

	for i := range copied {
		if copied[i].SourcePath == "" {
			return nil, fmt.Errorf("route table: target %d has an empty source path", i)
		}
		if copied[i].UseAuth && auth == nil {
			return nil, fmt.Errorf("route table: target %q: %w", copied[i].Name, ErrAuthTargetRequired)
		}
	}

	if auth != nil {
		auth = auth.normalized()
	}

	return &Table{targets: copied, auth: auth}, nil
}

// normalized returns a copy of a with canonical header names and an
// upper-case method.
func (a *AuthTarget) normalized() *AuthTarget {
	auth := &AuthTarget{
		Host:            a.Host,
		Secure:          a.Secure,
		Path:            a.Path,
		Method:          strings.ToUpper(a.Method),
		RequestHeaders:  canonicalNames(a.RequestHeaders),
		ResponseHeaders: canonicalNames(a.ResponseHeaders),
	}
	auth.requestSet = make(map[string]struct{}, len(auth.RequestHeaders))
	for _, name := range auth.RequestHeaders {
		auth.requestSet[name] = struct{}{}
	}
	return auth
}

// canonicalNames returns the canonical form of each header name.
func canonicalNames(names []string) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, http.CanonicalHeaderKey(name))
	}
	return out
}

// Match returns the first target whose source path is a literal prefix
// of path. The returned target is a copy.
func (t *Table) Match(path string) (*Target, bool) {
	for i := range t.targets {
		if strings.HasPrefix(path, t.targets[i].SourcePath) {
			target := t.targets[i]
			return &target, true
		}
	}
	return nil, false
}

// Auth returns the auth target, if configured. The returned value must
// be treated as read-only.
func (t *Table) Auth() (*AuthTarget, bool) {
	return t.auth, t.auth != nil
}

// Targets returns a copy of the targets in evaluation order.
func (t *Table) Targets() []Target {
	out := make([]Target, len(t.targets))
	copy(out, t.targets)
	return out
}

// Len returns the number of targets.
func (t *Table) Len() int {
	return len(t.targets)
}
