// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// approuter-ctl is a command-line tool for controlling a running approuter.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"

	"github.com/wingedpig/approuter/pkg/client"
)

var version = "0.1"

type ctl struct {
	client     *client.Client
	out        io.Writer
	jsonOutput bool
}

func main() {
	apiURL := "http://localhost:1000"
	if env := os.Getenv("APPROUTER_API"); env != "" {
		apiURL = strings.TrimSuffix(env, "/")
	}

	if err := run(os.Args[1:], apiURL, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(argv []string, apiURL string, out io.Writer) error {
	c := &ctl{out: out}

	// Parse global flags and filter them out
	var filteredArgs []string
	for _, arg := range argv {
		if arg == "-json" {
			c.jsonOutput = true
		} else {
			filteredArgs = append(filteredArgs, arg)
		}
	}

	c.client = client.New(apiURL)

	if len(filteredArgs) < 1 {
		c.printUsage()
		return fmt.Errorf("no command given")
	}

	cmd := filteredArgs[0]
	args := filteredArgs[1:]

	switch cmd {
	case "apps":
		return c.cmdApps(args)
	case "register":
		return c.cmdRegister(args)
	case "navigate", "nav":
		return c.cmdNavigate(args)
	case "back":
		return c.cmdHistory("back")
	case "forward":
		return c.cmdHistory("forward")
	case "redirect":
		return c.cmdHistory("redirect")
	case "location", "loc":
		return c.cmdLocation()
	case "events":
		return c.cmdEvents(args)
	case "watch":
		return c.cmdWatch(args)
	case "version", "-v", "--version":
		fmt.Fprintf(c.out, "approuter-ctl %s\n", version)
		return nil
	case "help", "-h", "--help":
		c.printUsage()
		return nil
	default:
		c.printUsage()
		return fmt.Errorf("unknown command: %s", cmd)
	}
}

func (c *ctl) printUsage() {
	fmt.Fprintln(c.out, `approuter-ctl - Control a running approuter

Usage:
  approuter-ctl [-json] <command> [arguments]

Global Flags:
  -json          Output in JSON format

Environment:
  APPROUTER_API  Base URL of the approuter API (default: http://localhost:1000)

Commands:
  apps [name]              List registered apps or show one app
  register <name> <entry> [options]
                           Register an app with the running router
    -when <pattern>        Route pattern (e.g., /orders, /billing/:tenant)
    -cache                 Hide instead of unmount when leaving the route
    -dom <selector>        Mount target
  navigate <path> [options]
    -replace               Replace the current history entry
    -wait                  Return after activations settle
  back                     Go back one history entry
  forward                  Go forward one history entry
  redirect                 Re-evaluate routing for the current location
  location                 Show the current location and active apps
  events [options]         Show recent events
    -n N                   Number of events (default: 50)
    -type <pattern>        Filter by event type (can repeat, e.g. app.*)
    -app <name>            Filter by app
    -path <prefix>         Filter by location (e.g. /orders)
  watch [options]          Stream live events until interrupted
    -type <pattern>        Event type pattern (default: all)
    -app <name>            Filter by app
    -count N               Exit after N events
  version                  Show version
  help                     Show this help`)
}

func (c *ctl) printJSON(v interface{}) {
	out, _ := json.MarshalIndent(v, "", "  ")
	fmt.Fprintln(c.out, string(out))
}

func (c *ctl) cmdApps(args []string) error {
	ctx := context.Background()

	var apps []client.App
	if len(args) > 0 {
		app, err := c.client.Apps.Get(ctx, args[0])
		if err != nil {
			return err
		}
		if c.jsonOutput {
			c.printJSON(app)
			return nil
		}
		apps = []client.App{*app}
	} else {
		list, err := c.client.Apps.List(ctx)
		if err != nil {
			return err
		}
		if c.jsonOutput {
			c.printJSON(list)
			return nil
		}
		apps = list
	}

	c.printApps(apps)
	return nil
}

func (c *ctl) printApps(apps []client.App) {
	fmt.Fprintf(c.out, "%-16s %-10s %-8s %-20s %s\n", "APP", "STATE", "MATCHED", "ACTIVE WHEN", "ENTRY")
	fmt.Fprintln(c.out, strings.Repeat("-", 80))
	for _, app := range apps {
		when := app.ActiveWhen
		if when == "" {
			when = "-"
		}
		if app.Cache {
			when += " (cache)"
		}
		fmt.Fprintf(c.out, "%-16s %-10s %-8s %-20s %s\n",
			app.Name,
			app.State,
			strconv.FormatBool(app.Matched),
			when,
			app.Entry,
		)
	}
}

func (c *ctl) cmdRegister(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: approuter-ctl register <name> <entry> [-when pattern] [-cache] [-dom selector]")
	}

	app := client.AppConfig{Name: args[0], Entry: args[1]}
	for i := 2; i < len(args); i++ {
		switch args[i] {
		case "-when", "--when":
			if i+1 >= len(args) {
				return fmt.Errorf("-when requires a pattern")
			}
			app.ActiveWhen = args[i+1]
			i++
		case "-dom", "--dom":
			if i+1 >= len(args) {
				return fmt.Errorf("-dom requires a selector")
			}
			app.DOMGetter = args[i+1]
			i++
		case "-cache", "--cache":
			app.Cache = true
		default:
			return fmt.Errorf("unknown option: %s", args[i])
		}
	}

	registered, err := c.client.Apps.Register(context.Background(), app)
	if err != nil {
		return err
	}
	if c.jsonOutput {
		c.printJSON(registered)
		return nil
	}
	for _, a := range registered {
		fmt.Fprintf(c.out, "Registered %s\n", a.Name)
	}
	return nil
}

func (c *ctl) cmdNavigate(args []string) error {
	var path string
	opts := &client.NavigateOptions{}
	for _, arg := range args {
		switch arg {
		case "-replace", "--replace":
			opts.Replace = true
		case "-wait", "--wait":
			opts.Wait = true
		default:
			if path != "" {
				return fmt.Errorf("unexpected argument: %s", arg)
			}
			path = arg
		}
	}
	if path == "" {
		return fmt.Errorf("usage: approuter-ctl navigate <path> [-replace] [-wait]")
	}

	loc, err := c.client.Navigation.Navigate(context.Background(), path, opts)
	if err != nil {
		return err
	}
	c.printLocation(loc)
	return nil
}

func (c *ctl) cmdHistory(op string) error {
	ctx := context.Background()

	var loc *client.Location
	var err error
	switch op {
	case "back":
		loc, err = c.client.Navigation.Back(ctx)
	case "forward":
		loc, err = c.client.Navigation.Forward(ctx)
	default:
		loc, err = c.client.Navigation.Redirect(ctx)
	}
	if err != nil {
		return err
	}
	c.printLocation(loc)
	return nil
}

func (c *ctl) cmdLocation() error {
	loc, err := c.client.Navigation.Location(context.Background())
	if err != nil {
		return err
	}
	c.printLocation(loc)
	return nil
}

func (c *ctl) printLocation(loc *client.Location) {
	if c.jsonOutput {
		c.printJSON(loc)
		return
	}

	active := "-"
	if len(loc.Active) > 0 {
		active = strings.Join(loc.Active, ", ")
	}
	matched := "-"
	if len(loc.Matched) > 0 {
		matched = strings.Join(loc.Matched, ", ")
	}
	fmt.Fprintf(c.out, "Path:    %s\n", loc.Path)
	fmt.Fprintf(c.out, "Active:  %s\n", active)
	fmt.Fprintf(c.out, "Matched: %s\n", matched)
	fmt.Fprintf(c.out, "History: %d of %d\n", loc.Index+1, len(loc.Entries))
}

func (c *ctl) cmdEvents(args []string) error {
	opts := &client.ListOptions{Limit: 50}

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-n":
			if i+1 < len(args) {
				n, err := strconv.Atoi(args[i+1])
				if err == nil && n > 0 {
					opts.Limit = n
				}
				i++
			}
		case "-type", "-t":
			if i+1 < len(args) {
				opts.Types = append(opts.Types, args[i+1])
				i++
			}
		case "-app":
			if i+1 < len(args) {
				opts.App = args[i+1]
				i++
			}
		case "-path":
			if i+1 < len(args) {
				opts.Path = args[i+1]
				i++
			}
		}
	}

	events, err := c.client.Events.List(context.Background(), opts)
	if err != nil {
		return err
	}

	if c.jsonOutput {
		c.printJSON(events)
		return nil
	}

	c.printEventHeader()
	for _, evt := range events {
		c.printEvent(evt)
	}
	return nil
}

func (c *ctl) printEventHeader() {
	fmt.Fprintf(c.out, "%-20s %-18s %-14s %-20s %s\n", "TIME", "TYPE", "APP", "PATH", "DETAILS")
	fmt.Fprintln(c.out, strings.Repeat("-", 100))
}

func (c *ctl) printEvent(evt client.Event) {
	details := ""
	if len(evt.Payload) > 0 {
		keys := make([]string, 0, len(evt.Payload))
		for k := range evt.Payload {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%v", k, evt.Payload[k]))
		}
		details = strings.Join(parts, " ")
	}
	app := evt.App
	if app == "" {
		app = "-"
	}
	path := evt.Path
	if path == "" {
		path = "-"
	}
	fmt.Fprintf(c.out, "%-20s %-18s %-14s %-20s %s\n",
		evt.Timestamp.Format("2006-01-02 15:04:05"),
		evt.Type,
		app,
		path,
		details,
	)
}

func (c *ctl) cmdWatch(args []string) error {
	opts := &client.StreamOptions{}
	count := 0
	for i := 0; i < len(args); i++ {
		if i+1 >= len(args) {
			return fmt.Errorf("%s requires a value", args[i])
		}
		switch args[i] {
		case "-type", "-t":
			opts.Pattern = args[i+1]
		case "-app":
			opts.App = args[i+1]
		case "-count":
			n, err := strconv.Atoi(args[i+1])
			if err != nil || n < 1 {
				return fmt.Errorf("invalid -count %q", args[i+1])
			}
			count = n
		default:
			return fmt.Errorf("unknown option: %s", args[i])
		}
		i++
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	stream, err := c.client.Events.Stream(ctx, opts)
	if err != nil {
		return err
	}
	defer stream.Close()

	// Unblock Recv on interrupt.
	go func() {
		<-ctx.Done()
		stream.Close()
	}()

	if !c.jsonOutput {
		c.printEventHeader()
	}
	for seen := 0; count == 0 || seen < count; {
		msg, err := stream.Recv()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if msg.Event == nil {
			continue
		}
		seen++
		if c.jsonOutput {
			out, _ := json.Marshal(msg.Event)
			fmt.Fprintln(c.out, string(out))
			continue
		}
		c.printEvent(*msg.Event)
	}
	return nil
}
