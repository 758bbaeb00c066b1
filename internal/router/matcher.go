// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package router

// Match pairs an app with the root path its rule claimed.
type Match struct {
	App      AppDescriptor
	RootPath string
}

// Result is the classification of a path against the routable apps.
type Result struct {
	Matched    []Match         // every app whose rule is true
	Activate   []Match         // matched now, not active before
	Deactivate []AppDescriptor // active before, not matched now
}

// NoMatch returns true if no app matched the path.
func (r Result) NoMatch() bool {
	return len(r.Matched) == 0
}

// Classify evaluates every routable app against path. active holds the
// names that were active before this navigation. Classify does not mutate
// its inputs and returns the same result for the same arguments.
func Classify(path string, apps []AppDescriptor, active map[string]bool) Result {
	var result Result

	for _, app := range apps {
		if !app.Routable() {
			continue
		}

		rootPath, ok := app.ActiveWhen.Match(path)
		switch {
		case ok:
			m := Match{App: app, RootPath: rootPath}
			result.Matched = append(result.Matched, m)
			if !active[app.Name] {
				result.Activate = append(result.Activate, m)
			}
		case active[app.Name]:
			result.Deactivate = append(result.Deactivate, app)
		}
	}

	return result
}
