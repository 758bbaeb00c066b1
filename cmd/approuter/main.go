// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/wingedpig/approuter/internal/app"
	"github.com/wingedpig/approuter/internal/config"
)

var (
	version = "0.1.0"
)

func main() {
	// A missing .env is fine
	_ = godotenv.Load()

	// Check for subcommands before flag parsing
	if len(os.Args) > 1 && os.Args[1] == "init" {
		if err := runInit(os.Args[2:], os.Stdin, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	// Parse flags
	var (
		configPath  string
		host        string
		port        int
		initialPath string
		showVersion bool
		debug       bool
	)

	flag.StringVar(&configPath, "config", os.Getenv("APPROUTER_CONFIG"), "Path to config file (default: auto-detect)")
	flag.StringVar(&configPath, "c", os.Getenv("APPROUTER_CONFIG"), "Path to config file (short)")
	flag.StringVar(&host, "host", os.Getenv("APPROUTER_HOST"), "API server host (overrides config)")
	flag.IntVar(&port, "port", envInt("APPROUTER_PORT"), "API server port (overrides config)")
	flag.StringVar(&initialPath, "path", "", "Initial location (overrides config)")
	flag.BoolVar(&showVersion, "version", false, "Show version")
	flag.BoolVar(&showVersion, "v", false, "Show version (short)")
	flag.BoolVar(&debug, "debug", false, "Enable debug logging")
	flag.Parse()

	if showVersion {
		fmt.Printf("approuter %s\n", version)
		os.Exit(0)
	}

	// Find config file if not specified
	if configPath == "" {
		loader := config.NewLoader()
		found, err := loader.FindConfig()
		if err != nil {
			logrus.Fatalf("Error: %v", err)
		}
		configPath = found
	}

	logrus.WithField("config", configPath).Info("Using config")

	// Create and run app
	application, err := app.New(app.Options{
		ConfigPath:  configPath,
		Host:        host,
		Port:        port,
		InitialPath: initialPath,
		Debug:       debug,
		Version:     version,
	})
	if err != nil {
		logrus.Fatalf("Failed to create app: %v", err)
	}

	ctx := context.Background()
	if err := application.Run(ctx); err != nil {
		logrus.Fatalf("App error: %v", err)
	}
}

// envInt reads an integer environment variable, zero when unset or invalid.
func envInt(name string) int {
	n, err := strconv.Atoi(os.Getenv(name))
	if err != nil {
		return 0
	}
	return n
}

const initConfigFile = "approuter.hjson"

// runInit handles the "approuter init" command
func runInit(args []string, in io.Reader, out io.Writer) error {
	// Parse init-specific flags
	initFlags := flag.NewFlagSet("init", flag.ContinueOnError)
	initFlags.SetOutput(out)
	showHelp := initFlags.Bool("help", false, "Show help for init command")
	initFlags.BoolVar(showHelp, "h", false, "Show help for init command")
	dir := initFlags.String("dir", ".", "Directory to write the config into")
	if err := initFlags.Parse(args); err != nil {
		return err
	}

	if *showHelp {
		fmt.Fprintln(out, `Usage: approuter init [options]

Create a new approuter.hjson configuration file.

The command asks for the API port, an optional base path and the
micro-apps to route. The generated file is commented to help you
customize the remaining options.

Options:
  -dir string  Directory to write the config into (default ".")
  -h, -help    Show this help message

After running init:
  1. Review and edit approuter.hjson as needed
  2. Run: ./approuter
  3. Navigate: curl -X POST localhost:1000/api/v1/navigate -d '{"path":"/"}'`)
		return nil
	}

	configFile := strings.TrimRight(*dir, "/") + "/" + initConfigFile

	// Check if config file already exists
	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("%s already exists; remove it first or use a different directory", configFile)
	}

	reader := bufio.NewReader(in)

	fmt.Fprintln(out, "approuter Configuration Setup")
	fmt.Fprintln(out, "=============================")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Press Enter to accept defaults shown in [brackets].")
	fmt.Fprintln(out)

	portStr := prompt(reader, out, "API port", "1000")
	port, err := strconv.Atoi(portStr)
	if err != nil {
		port = 1000
	}

	basename := prompt(reader, out, "Base path for all apps (or empty for none)", "")

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Micro-apps are served from their own entry URL and mounted when the location matches.")
	var apps []initApp
	for {
		add := prompt(reader, out, "Add an app? (y/n)", "n")
		if strings.ToLower(add) != "y" {
			break
		}
		a := initApp{}
		a.Name = prompt(reader, out, "  App name", "home")
		a.Entry = prompt(reader, out, "  Entry URL", "http://localhost:3000")
		a.ActiveWhen = prompt(reader, out, "  Active when path starts with", "/"+a.Name)
		a.Cache = strings.ToLower(prompt(reader, out, "  Keep mounted when inactive? (y/n)", "n")) == "y"
		apps = append(apps, a)
		fmt.Fprintln(out)
	}

	fallback := ""
	if len(apps) > 0 {
		fallback = prompt(reader, out, "Fallback location for unmatched paths (or empty)", apps[0].ActiveWhen)
	}

	content := generateConfig(port, basename, fallback, apps)

	if err := os.WriteFile(configFile, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Created %s\n", configFile)
	return nil
}

type initApp struct {
	Name       string
	Entry      string
	ActiveWhen string
	Cache      bool
}

func prompt(reader *bufio.Reader, out io.Writer, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Fprintf(out, "%s [%s]: ", question, defaultVal)
	} else {
		fmt.Fprintf(out, "%s: ", question)
	}
	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)
	if input == "" {
		return defaultVal
	}
	return input
}

// escapeHJSONValue escapes a string for safe inclusion in an HJSON double-quoted value.
func escapeHJSONValue(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return s
}

func quoted(s string) string {
	return `"` + escapeHJSONValue(s) + `"`
}

func generateConfig(port int, basename, fallback string, apps []initApp) string {
	var sb strings.Builder

	sb.WriteString(`{
  // =============================================================================
  // approuter Configuration
  // =============================================================================
  //
  // This is an HJSON file (JSON with comments and relaxed syntax).
  // Strings may reference ${NAME} or ${NAME:-default}; values come from
  // env_file when set, then from the environment.

  version: "1.0"

  // env_file: ".env.approuter"

  // ---------------------------------------------------------------------------
  // API Server
  // ---------------------------------------------------------------------------
  server: {
    // Host to bind to (use "0.0.0.0" to allow remote access)
    host: "127.0.0.1"
    port: `)
	sb.WriteString(strconv.Itoa(port))
	sb.WriteString(`

    // For HTTPS, uncomment and set paths to your certificates:
    // tls_cert: "~/.approuter/cert.pem"
    // tls_key: "~/.approuter/key.pem"
  }

  // ---------------------------------------------------------------------------
  // Gateway
  // ---------------------------------------------------------------------------
  //
  // Serves the visible app for each request path. WebSocket upgrades are
  // tunneled.
  gateway: {
    listen: ":8080"

    // TLS via Tailscale (automatic certs from local daemon):
    // tls_tailscale: true

    // GET each entry before mounting it:
    // probe: true
    // probe_timeout: "5s"
  }

  // ---------------------------------------------------------------------------
  // Routing
  // ---------------------------------------------------------------------------
  router: {
`)
	if basename != "" {
		sb.WriteString("    basename: " + quoted(basename) + "\n")
	} else {
		sb.WriteString("    // basename: \"/portal\"\n")
	}
	sb.WriteString(`
    // Refresh active apps when the location changes inside their route
    auto_refresh_app: true

    initial_path: "/"
`)
	if fallback != "" {
		sb.WriteString("    fallback: " + quoted(fallback) + "\n")
	}
	sb.WriteString(`  }

  // ---------------------------------------------------------------------------
  // Apps
  // ---------------------------------------------------------------------------
  apps: [
`)
	for _, a := range apps {
		sb.WriteString("    {\n")
		sb.WriteString("      name: " + quoted(a.Name) + "\n")
		sb.WriteString("      entry: " + quoted(a.Entry) + "\n")
		if a.ActiveWhen != "" {
			sb.WriteString("      active_when: " + quoted(a.ActiveWhen) + "\n")
		}
		if a.Cache {
			sb.WriteString("      cache: true\n")
		}
		sb.WriteString("    }\n")
	}
	sb.WriteString(`  ]

  // Reload the config when it changes; added apps are registered live
  watch: {
    enabled: true
    debounce: "100ms"
  }

  logging: {
    level: "info"
    format: "text"
  }
}
`)
	return sb.String()
}
