package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/everydev1618/daobuilder"
)

// envFile is the per-user settings file written by init and read by serve.
func envFile() string {
	return filepath.Join(daobuilder.Home(), "env")
}

// initSetting is one prompt of the init dialogue.
type initSetting struct {
	key    string
	label  string
	help   string
	secret bool
	probe  bool
}

var initSettings = []initSetting{
	{key: "DAOBUILDER_VALIDATOR_URL", label: "Schema validation service URL", help: "Leave empty to skip schema validation", probe: true},
	{key: "DAOBUILDER_DEPLOY_URL", label: "Deployment service URL", help: "Leave empty to disable deployments", probe: true},
	{key: "DAOBUILDER_DEPLOY_TOKEN", label: "Deployment service token", help: "Sent as a bearer token", secret: true},
	{key: "GITHUB_CONFIG_REPO", label: "Template repository (owner/name)", help: "Remote imports are read from here"},
}

func initCmd(args []string) {
	if len(args) > 0 && (args[0] == "-h" || args[0] == "--help") {
		fmt.Printf("Usage: daobuilder init\n\nInteractively write %s, which 'daobuilder serve' loads on start.\n", envFile())
		return
	}

	fmt.Println(`
  daobuilder setup
  ─────────────────────────────`)

	path := envFile()
	existing, err := godotenv.Read(path)
	if err != nil {
		existing = map[string]string{}
	}
	if len(existing) > 0 {
		fmt.Println("\n  Found existing configuration at", path)
		for _, s := range initSettings {
			if v, ok := existing[s.key]; ok {
				if s.secret {
					v = maskKey(v)
				}
				fmt.Printf("    %s = %s\n", s.key, v)
			}
		}
		fmt.Println()
		if !confirm("  Reconfigure?") {
			fmt.Println("\n  Keeping existing configuration.")
			printNextSteps()
			return
		}
	}

	scanner := bufio.NewScanner(os.Stdin)
	for _, s := range initSettings {
		fmt.Printf("\n  %s (optional, press Enter to keep)\n", s.label)
		fmt.Printf("  %s\n", s.help)
		fmt.Printf("\n  %s: ", s.key)
		if !scanner.Scan() {
			break
		}
		v := strings.TrimSpace(scanner.Text())
		if v == "" {
			continue
		}
		if s.probe {
			if err := probeURL(v); err != nil {
				fmt.Printf("  Warning: %v (saved anyway)\n", err)
			} else {
				fmt.Println("  Reachable.")
			}
		}
		existing[s.key] = v
	}

	if err := daobuilder.EnsureHome(); err != nil {
		fmt.Fprintf(os.Stderr, "\n  Error creating %s: %v\n", daobuilder.Home(), err)
		os.Exit(1)
	}
	if err := godotenv.Write(existing, path); err != nil {
		fmt.Fprintf(os.Stderr, "\n  Error writing %s: %v\n", path, err)
		os.Exit(1)
	}

	fmt.Printf("\n  Configuration saved to %s\n", path)
	printNextSteps()
}

// probeURL checks that raw is an absolute http(s) URL with something
// listening behind it. Any HTTP status counts as reachable.
func probeURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%q is not an http(s) URL", raw)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, raw, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s is not reachable: %w", u.Host, err)
	}
	resp.Body.Close()
	return nil
}

func printNextSteps() {
	fmt.Print(`
  Next steps:
    daobuilder serve           Start the REST API server
    daobuilder check <file>    Check a config before deploying it
    daobuilder export <file>   Reformat a config, keeping its references
`)
}

func confirm(prompt string) bool {
	fmt.Printf("%s [y/N] ", prompt)
	scanner := bufio.NewScanner(os.Stdin)
	if scanner.Scan() {
		ans := strings.ToLower(strings.TrimSpace(scanner.Text()))
		return ans == "y" || ans == "yes"
	}
	return false
}

func maskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
