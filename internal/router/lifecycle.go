// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package router

// Operation names the lifecycle call the adapter selected.
type Operation string

const (
	OpNone    Operation = ""
	OpMount   Operation = "mount"
	OpUnmount Operation = "unmount"
	OpShow    Operation = "show"
	OpHide    Operation = "hide"
)

// preserved reports whether the app keeps its instance across
// deactivations. Mounted is read at call time.
func preserved(app App, cache bool) bool {
	return cache && app.Mounted()
}

// Render makes app visible: Show for a cached app that is already
// mounted, Mount otherwise. A nil app is a no-op.
func Render(app App, cache bool) (Operation, error) {
	if app == nil {
		return OpNone, nil
	}
	if preserved(app, cache) {
		return OpShow, app.Show()
	}
	return OpMount, app.Mount()
}

// Derender removes app from view: Hide for a cached app that is mounted,
// Unmount otherwise. A nil app is a no-op.
func Derender(app App, cache bool) (Operation, error) {
	if app == nil {
		return OpNone, nil
	}
	if preserved(app, cache) {
		return OpHide, app.Hide()
	}
	return OpUnmount, app.Unmount()
}
