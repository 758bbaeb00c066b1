// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package events

import (
	"fmt"
	"strings"
)

// Pattern selects event types by dot-separated segment. A "*" segment
// matches any one segment, except in last position where it matches the
// rest of the type. "*" alone matches every event.
//
//	app.*       app.mounted, app.failed
//	*.failed    app.failed
//	route.*     route.changed, route.notmatched
type Pattern struct {
	raw      string
	segments []string
}

// ParsePattern validates and compiles pattern.
func ParsePattern(pattern string) (Pattern, error) {
	if pattern == "" {
		return Pattern{}, fmt.Errorf("empty event pattern")
	}
	segments := strings.Split(pattern, ".")
	for _, seg := range segments {
		if seg == "" {
			return Pattern{}, fmt.Errorf("event pattern %q has an empty segment", pattern)
		}
		if seg != "*" && strings.Contains(seg, "*") {
			return Pattern{}, fmt.Errorf("event pattern %q: '*' must be a whole segment", pattern)
		}
	}
	return Pattern{raw: pattern, segments: segments}, nil
}

// MustPattern is ParsePattern that panics on error.
func MustPattern(pattern string) Pattern {
	p, err := ParsePattern(pattern)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the pattern as written.
func (p Pattern) String() string { return p.raw }

// Match reports whether eventType is selected by the pattern.
func (p Pattern) Match(eventType string) bool {
	if eventType == "" || len(p.segments) == 0 {
		return false
	}
	typ := strings.Split(eventType, ".")
	last := len(p.segments) - 1
	for i, seg := range p.segments {
		if i >= len(typ) {
			return false
		}
		if seg == "*" {
			if i == last {
				return true
			}
			continue
		}
		if seg != typ[i] {
			return false
		}
	}
	return len(typ) == len(p.segments)
}

// MatchAny reports whether eventType matches one of patterns. Invalid
// patterns never match.
func MatchAny(patterns []string, eventType string) bool {
	for _, raw := range patterns {
		p, err := ParsePattern(raw)
		if err != nil {
			continue
		}
		if p.Match(eventType) {
			return true
		}
	}
	return false
}
