// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_MirrorsHost(t *testing.T) {
	host := NewActiveApps()
	reg := NewRegistry(host)
	a := newFakeApp("a", &recorder{})

	called := false
	reg.Set("a", a, func() (Operation, error) {
		called = true
		return OpUnmount, nil
	})

	got, ok := host.Get("a")
	require.True(t, ok)
	assert.Same(t, a, got)
	assert.Equal(t, []string{"a"}, reg.Names())
	assert.Equal(t, 1, reg.Len())

	app, ok := reg.App("a")
	require.True(t, ok)
	assert.Same(t, a, app)

	unmount, ok := reg.Get("a")
	require.True(t, ok)
	op, err := unmount()
	require.NoError(t, err)
	assert.Equal(t, OpUnmount, op)
	assert.True(t, called)

	reg.Delete("a")
	_, ok = reg.Get("a")
	assert.False(t, ok)
	_, ok = host.Get("a")
	assert.False(t, ok)
	assert.Empty(t, host.Names())
}

func TestRegistry_Names(t *testing.T) {
	reg := NewRegistry(nil)
	noop := func() (Operation, error) { return OpNone, nil }

	reg.Set("zeta", nil, noop)
	reg.Set("alpha", nil, noop)
	reg.Set("mid", nil, noop)

	assert.Equal(t, []string{"alpha", "mid", "zeta"}, reg.Names())

	_, ok := reg.Get("missing")
	assert.False(t, ok)
	_, ok = reg.App("missing")
	assert.False(t, ok)
}
