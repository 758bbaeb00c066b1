// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package router

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidPattern is returned for malformed route patterns.
var ErrInvalidPattern = errors.New("invalid route pattern")

// Rule decides whether an app is active for a path. rootPath is the part
// of the path the app owns; an empty rootPath means the router basename.
type Rule interface {
	Match(path string) (rootPath string, ok bool)
}

// RuleFunc adapts a predicate to the Rule interface.
type RuleFunc func(path string) bool

// Match calls f. Predicates do not claim a root path.
func (f RuleFunc) Match(path string) (string, bool) {
	return "", f(path)
}

// PathRule matches a segment-aligned path prefix.
// Patterns support:
// - "/orders" matches "/orders" and "/orders/42" but not "/orders-old"
// - "/users/:id" matches any single segment in place of ":id"
// - "/docs/*" matches "/docs" followed by anything
// - "/" matches every path
type PathRule struct {
	pattern  string
	segments []string
}

// Path compiles a route pattern.
func Path(pattern string) (*PathRule, error) {
	if !strings.HasPrefix(pattern, "/") {
		return nil, fmt.Errorf("%w %q: must start with /", ErrInvalidPattern, pattern)
	}

	segments := splitPath(pattern)
	for i, seg := range segments {
		if seg == "*" && i != len(segments)-1 {
			return nil, fmt.Errorf("%w %q: * must be the last segment", ErrInvalidPattern, pattern)
		}
		if seg == ":" {
			return nil, fmt.Errorf("%w %q: empty parameter name", ErrInvalidPattern, pattern)
		}
	}

	return &PathRule{pattern: pattern, segments: segments}, nil
}

// MustPath is like Path but panics on an invalid pattern.
func MustPath(pattern string) *PathRule {
	r, err := Path(pattern)
	if err != nil {
		panic(err)
	}
	return r
}

// String returns the source pattern.
func (r *PathRule) String() string {
	return r.pattern
}

// Match reports whether path starts with the pattern and returns the
// matched prefix.
func (r *PathRule) Match(path string) (string, bool) {
	parts := splitPath(path)

	for i, seg := range r.segments {
		if seg == "*" {
			return joinPath(parts[:i]), true
		}
		if i >= len(parts) {
			return "", false
		}
		if strings.HasPrefix(seg, ":") {
			continue
		}
		if seg != parts[i] {
			return "", false
		}
	}

	return joinPath(parts[:len(r.segments)]), true
}

func splitPath(path string) []string {
	raw := strings.Split(path, "/")
	parts := make([]string, 0, len(raw))
	for _, p := range raw {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

func joinPath(parts []string) string {
	return "/" + strings.Join(parts, "/")
}

// StripBasename removes basename from path. ok is false when path lies
// outside the basename.
func StripBasename(path, basename string) (string, bool) {
	base := strings.TrimSuffix(basename, "/")
	if base == "" {
		return path, true
	}
	if path == base {
		return "/", true
	}
	if strings.HasPrefix(path, base+"/") {
		return path[len(base):], true
	}
	return "", false
}

// JoinBasename prefixes an app root path with the router basename.
func JoinBasename(basename, rootPath string) string {
	base := strings.TrimSuffix(basename, "/")
	if rootPath == "" || rootPath == "/" {
		if base == "" {
			return "/"
		}
		return base
	}
	return base + rootPath
}
