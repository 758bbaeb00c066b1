// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package router decides which micro-apps are active for the current
// navigation location and drives them through their lifecycle.
package router

import (
	"context"
	"errors"
)

var (
	// ErrNotRunning is returned when the router has not been bootstrapped.
	ErrNotRunning = errors.New("router is not running")

	// ErrDuplicateApp is returned when registering an app name twice.
	ErrDuplicateApp = errors.New("app already registered")

	// ErrNoInstance is returned when a loader resolves without an app.
	ErrNoInstance = errors.New("loader returned no app instance")
)

// App is a loaded micro-app instance.
type App interface {
	Mount() error
	Unmount() error
	Show() error
	Hide() error
	Mounted() bool
}

// Refresher is implemented by apps that want to hear about navigation
// inside their own route while they stay active.
type Refresher interface {
	Refresh(path string) error
}

// LoadOptions are passed to the Loader for every activation.
type LoadOptions struct {
	Basename  string
	Entry     string
	DOMGetter string
	Cache     bool
}

// Loader fetches and prepares an app instance. It is the only call in an
// activation that may block.
type Loader interface {
	Load(ctx context.Context, name string, opts LoadOptions) (App, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context, name string, opts LoadOptions) (App, error)

// Load calls f.
func (f LoaderFunc) Load(ctx context.Context, name string, opts LoadOptions) (App, error) {
	return f(ctx, name, opts)
}

// HookFunc replaces a built-in transition for a custom app. A hook may
// navigate; the new location is handled once the current one is done.
type HookFunc func(ctx context.Context, app AppDescriptor, rootPath string) error

// Custom holds host-defined transitions. A nil field keeps the built-in
// behavior for that transition.
type Custom struct {
	Active   HookFunc
	Deactive HookFunc
}

// Kind tells the coordinator which transition machinery an app uses.
type Kind int

const (
	KindDefault Kind = iota
	KindCustom
)

func (k Kind) String() string {
	switch k {
	case KindDefault:
		return "default"
	case KindCustom:
		return "custom"
	default:
		return "unknown"
	}
}

// AppDescriptor describes a registered micro-app.
type AppDescriptor struct {
	Name       string
	Entry      string
	ActiveWhen Rule // nil excludes the app from routing
	Cache      bool
	DOMGetter  string
	Custom     *Custom
}

// Kind reports whether the descriptor carries custom transitions.
func (d AppDescriptor) Kind() Kind {
	if d.Custom != nil {
		return KindCustom
	}
	return KindDefault
}

// Routable returns true if the app takes part in routing.
func (d AppDescriptor) Routable() bool {
	return d.ActiveWhen != nil
}

// Options configures one Bootstrap call.
type Options struct {
	Basename       string
	AutoRefreshApp *bool
	OnNotMatch     func(path string)
	DOMGetter      string // default mount target for apps without one
	Apps           []AppDescriptor
}

// IsAutoRefresh returns whether active apps are refreshed on in-app
// navigation.
func (o *Options) IsAutoRefresh() bool {
	if o.AutoRefreshApp == nil {
		return true // Default to true
	}
	return *o.AutoRefreshApp
}

// State is the activation state of one app.
type State int

const (
	StateInactive State = iota
	StateLoading
	StateActive
)

func (s State) String() string {
	switch s {
	case StateInactive:
		return "inactive"
	case StateLoading:
		return "loading"
	case StateActive:
		return "active"
	default:
		return "unknown"
	}
}

// MarshalJSON implements json.Marshaler to output the string representation.
func (s State) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// filterRoutable returns the descriptors with an activation rule.
func filterRoutable(apps []AppDescriptor) []AppDescriptor {
	result := make([]AppDescriptor, 0, len(apps))
	for _, app := range apps {
		if app.Routable() {
			result = append(result, app)
		}
	}
	return result
}
