// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func names(apps []AppDescriptor) []string {
	out := make([]string, 0, len(apps))
	for _, a := range apps {
		out = append(out, a.Name)
	}
	return out
}

func matchNames(matches []Match) []string {
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.App.Name)
	}
	return out
}

func TestClassify_Basic(t *testing.T) {
	apps := []AppDescriptor{app("a", "/a"), app("b", "/b")}

	result := Classify("/a/x", apps, nil)
	assert.Equal(t, []string{"a"}, matchNames(result.Matched))
	assert.Equal(t, []string{"a"}, matchNames(result.Activate))
	assert.Empty(t, result.Deactivate)
	assert.Equal(t, "/a", result.Activate[0].RootPath)

	result = Classify("/b", apps, map[string]bool{"a": true})
	assert.Equal(t, []string{"b"}, matchNames(result.Activate))
	assert.Equal(t, []string{"a"}, names(result.Deactivate))
}

func TestClassify_AlreadyActiveStays(t *testing.T) {
	apps := []AppDescriptor{app("a", "/a")}

	result := Classify("/a/other", apps, map[string]bool{"a": true})
	assert.Len(t, result.Matched, 1)
	assert.Empty(t, result.Activate)
	assert.Empty(t, result.Deactivate)
	assert.False(t, result.NoMatch())
}

func TestClassify_SkipsUnroutable(t *testing.T) {
	apps := []AppDescriptor{
		{Name: "headless", Entry: "http://localhost/headless"},
		app("a", "/"),
	}

	result := Classify("/", apps, map[string]bool{"headless": true})
	assert.Equal(t, []string{"a"}, matchNames(result.Matched))
	assert.Empty(t, result.Deactivate)
}

func TestClassify_NoMatch(t *testing.T) {
	apps := []AppDescriptor{app("a", "/a")}

	result := Classify("/c", apps, nil)
	assert.True(t, result.NoMatch())
	assert.Empty(t, result.Activate)
	assert.Empty(t, result.Deactivate)
}

func TestClassify_Idempotent(t *testing.T) {
	apps := []AppDescriptor{app("a", "/a"), app("b", "/b"), app("all", "/")}
	active := map[string]bool{"b": true}

	first := Classify("/a", apps, active)
	second := Classify("/a", apps, active)
	assert.Equal(t, first, second)
	assert.Equal(t, map[string]bool{"b": true}, active)
}

func TestClassify_DisjointAndCoversChanges(t *testing.T) {
	apps := []AppDescriptor{
		app("a", "/a"),
		app("b", "/b"),
		app("ab", "/a/b"),
		app("user", "/users/:id"),
		app("all", "/"),
		{Name: "fn", ActiveWhen: RuleFunc(func(p string) bool { return len(p)%2 == 0 })},
	}
	paths := []string{"/", "/a", "/a/b", "/a/b/c", "/b", "/users", "/users/1", "/zz"}
	actives := []map[string]bool{
		{},
		{"a": true},
		{"b": true, "all": true},
		{"ab": true, "user": true, "fn": true},
	}

	for _, path := range paths {
		for _, active := range actives {
			result := Classify(path, apps, active)

			activate := map[string]bool{}
			for _, m := range result.Activate {
				activate[m.App.Name] = true
			}
			deactivate := map[string]bool{}
			for _, d := range result.Deactivate {
				deactivate[d.Name] = true
				assert.False(t, activate[d.Name], "%s in both sets for %s", d.Name, path)
			}

			for _, a := range apps {
				_, now := a.ActiveWhen.Match(path)
				changed := now != active[a.Name]
				assert.Equal(t, changed, activate[a.Name] || deactivate[a.Name],
					"app %s path %s active %v", a.Name, path, active)
			}
		}
	}
}
