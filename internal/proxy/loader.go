// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package proxy

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wingedpig/approuter/internal/router"
)

// LoaderConfig configures a Loader.
type LoaderConfig struct {
	Probe        bool          // GET the entry before returning the app
	ProbeTimeout time.Duration // zero means 5s
	Client       *http.Client  // nil uses http.DefaultClient
	Logger       logrus.FieldLogger
}

// Loader implements router.Loader for remote entries. Apps loaded with
// Cache are kept and returned again on the next load so they can be shown
// instead of remounted.
type Loader struct {
	probe   bool
	timeout time.Duration
	client  *http.Client
	log     logrus.FieldLogger

	mu     sync.Mutex
	cached map[string]*App
}

// NewLoader creates a loader.
func NewLoader(cfg LoaderConfig) *Loader {
	if cfg.ProbeTimeout == 0 {
		cfg.ProbeTimeout = 5 * time.Second
	}
	if cfg.Client == nil {
		cfg.Client = http.DefaultClient
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	return &Loader{
		probe:   cfg.Probe,
		timeout: cfg.ProbeTimeout,
		client:  cfg.Client,
		log:     cfg.Logger,
		cached:  make(map[string]*App),
	}
}

// Load implements router.Loader.
func (l *Loader) Load(ctx context.Context, name string, opts router.LoadOptions) (router.App, error) {
	entry, err := ParseEntry(opts.Entry)
	if err != nil {
		return nil, err
	}

	if opts.Cache {
		l.mu.Lock()
		app, ok := l.cached[name]
		l.mu.Unlock()
		if ok {
			app.setBasename(opts.Basename)
			return app, nil
		}
	}

	if l.probe {
		if err := l.probeEntry(ctx, entry); err != nil {
			return nil, err
		}
	}

	app := NewApp(name, entry, opts.Basename, opts.DOMGetter, l.log)
	if opts.Cache {
		l.mu.Lock()
		if existing, ok := l.cached[name]; ok {
			app = existing
		} else {
			l.cached[name] = app
		}
		l.mu.Unlock()
	}

	l.log.WithFields(logrus.Fields{
		"app":      name,
		"entry":    entry.String(),
		"basename": opts.Basename,
	}).Debug("App loaded")
	return app, nil
}

// Forget drops the cached instance for name.
func (l *Loader) Forget(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.cached, name)
}

func (l *Loader) probeEntry(ctx context.Context, entry *url.URL) error {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, entry.String(), nil)
	if err != nil {
		return fmt.Errorf("probe %s: %w", entry, err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return fmt.Errorf("probe %s: %w", entry, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("probe %s: status %d", entry, resp.StatusCode)
	}
	return nil
}

// ParseEntry parses an app entry. A bare host:port gets the http scheme.
func ParseEntry(entry string) (*url.URL, error) {
	if entry == "" {
		return nil, fmt.Errorf("entry is required")
	}
	raw := entry
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid entry %q: %w", entry, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid entry %q: missing host", entry)
	}
	return u, nil
}
