// Package main provides the daobuilder CLI.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"gopkg.in/yaml.v3"

	"github.com/everydev1618/daobuilder"
	"github.com/everydev1618/daobuilder/model"
	"github.com/everydev1618/daobuilder/serve"
	"github.com/everydev1618/daobuilder/session"
)

var (
	version = "dev"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "init":
		initCmd(args)
	case "export":
		exportCmd(args)
	case "refs":
		refsCmd(args)
	case "check":
		checkCmd(args)
	case "serve":
		serveCmd(args)
	case "reset":
		resetCmd(args)
	case "version":
		fmt.Printf("daobuilder %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`daobuilder - reference-preserving YAML for multi-agent configs

Usage:
  daobuilder <command> [options]

Commands:
  init      Write server settings to ~/.daobuilder/env
  export    Re-emit a config, keeping its anchors and aliases
  refs      List the anchors and aliases of a config
  check     Check a config for parse errors and deploy readiness
  serve     Start the REST API server
  reset     Delete export and deployment history
  version   Print version information
  help      Show this help message

Examples:
  daobuilder export agents.yaml --out agents.clean.yaml
  daobuilder export agents.yaml --set app.name=demo --override memory=shared
  daobuilder refs agents.yaml --json
  daobuilder check agents.yaml
  daobuilder serve --addr :3000

Run 'daobuilder <command> --help' for more information on a command.`)
}

// multiFlag collects a repeatable string flag.
type multiFlag []string

func (m *multiFlag) String() string     { return strings.Join(*m, ",") }
func (m *multiFlag) Set(v string) error { *m = append(*m, v); return nil }

// exportCmd imports a file, applies edits, and writes it back out.
func exportCmd(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	out := fs.String("out", "", "Write to this file instead of stdout")
	var sets, overrides multiFlag
	fs.Var(&sets, "set", "Set a value before export: path=value (repeatable)")
	fs.Var(&overrides, "override", "Rename a section's anchor: section=name (repeatable)")

	fs.Usage = func() {
		fmt.Println(`Usage: daobuilder export <file.yaml> [options]

Import a config and write it back out. Anchors and aliases from the input
are kept as long as the linked values still match; edits that break a link
write the value inline.

Values given to --set are parsed as YAML, so numbers and booleans keep
their type. Paths use dots for keys and [i] for list items.

Options:`)
		fs.PrintDefaults()
		fmt.Println(`
Examples:
  daobuilder export agents.yaml
  daobuilder export agents.yaml --set app.name=demo --out demo.yaml
  daobuilder export agents.yaml --set "agents.writer.llm.temperature=0.2"
  daobuilder export agents.yaml --override memory=shared_store`)
	}

	file := parseFileArg(fs, args)
	s := openOrExit(file)

	for _, kv := range sets {
		path, raw, ok := strings.Cut(kv, "=")
		if !ok {
			fatalf("invalid --set %q: expected path=value", kv)
		}
		p, err := model.ParsePath(path)
		if err != nil {
			fatalf("invalid --set path %q: %v", path, err)
		}
		v, err := parseValue(raw)
		if err != nil {
			fatalf("invalid --set value %q: %v", raw, err)
		}
		if err := s.Set(p, v); err != nil {
			fatalf("set %s: %v", path, err)
		}
	}
	for _, kv := range overrides {
		section, name, ok := strings.Cut(kv, "=")
		if !ok {
			fatalf("invalid --override %q: expected section=name", kv)
		}
		if err := s.SetSectionOverride(section, name); err != nil {
			fatalf("override %s: %v", section, err)
		}
	}

	data, err := s.Export()
	if err != nil {
		fatalf("generate yaml: %v", err)
	}
	if *out == "" {
		os.Stdout.Write(data)
		return
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		fatalf("write %s: %v", *out, err)
	}
	fmt.Fprintf(os.Stderr, "Wrote %s (%d bytes)\n", *out, len(data))
}

// parseValue reads a --set value as a single YAML scalar or collection.
func parseValue(raw string) (model.Node, error) {
	var v any
	if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
		return nil, err
	}
	return model.FromAny(v)
}

// refsCmd prints the reference structure of a file.
func refsCmd(args []string) {
	fs := flag.NewFlagSet("refs", flag.ExitOnError)
	asJSON := fs.Bool("json", false, "Output as JSON")
	dump := fs.Bool("dump", false, "Dump the raw reference map")

	fs.Usage = func() {
		fmt.Println(`Usage: daobuilder refs <file.yaml> [options]

List the anchors a config declares, the aliases that use them, and whether
each link still holds.

Options:`)
		fs.PrintDefaults()
	}

	file := parseFileArg(fs, args)
	s := openOrExit(file)
	rm := s.References()

	switch {
	case *dump:
		spew.Dump(rm)
	case *asJSON:
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(map[string]any{
			"anchors": rm.Anchors,
			"aliases": rm.Aliases,
			"links":   s.Drift(),
		})
	default:
		if rm.Empty() {
			fmt.Println("No anchors or aliases.")
			return
		}
		fmt.Printf("Anchors (%d):\n", len(rm.Anchors))
		for _, name := range rm.AnchorNames() {
			a := rm.Anchors[name]
			fmt.Printf("  &%-20s %s (line %d)\n", name, a.Path, a.Line)
		}
		fmt.Printf("\nAliases (%d):\n", len(rm.Aliases))
		for _, l := range s.Drift() {
			fmt.Printf("  *%-20s %s -> %s [%s]\n", l.Anchor, l.Alias, l.Definition, l.State)
		}
	}
}

// checkCmd reports parse errors and deploy readiness.
func checkCmd(args []string) {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	asJSON := fs.Bool("json", false, "Output as JSON")

	fs.Usage = func() {
		fmt.Println(`Usage: daobuilder check <file.yaml> [options]

Parse a config and check that it has what a deployment needs.
Exits non-zero when the config cannot be parsed or is not deployable.

Options:`)
		fs.PrintDefaults()
	}

	file := parseFileArg(fs, args)
	s, err := daobuilder.Open(file)
	if err != nil {
		var pe *model.ParseError
		if errors.As(err, &pe) {
			fmt.Fprintf(os.Stderr, "✗ %s: %s error", file, pe.Kind)
			if pe.Line > 0 {
				fmt.Fprintf(os.Stderr, " at line %d", pe.Line)
				if pe.Column > 0 {
					fmt.Fprintf(os.Stderr, ", column %d", pe.Column)
				}
			}
			fmt.Fprintf(os.Stderr, ": %s\n", pe.Message)
			os.Exit(1)
		}
		fatalf("%v", err)
	}

	clean, err := s.Sanitized()
	if err != nil {
		fatalf("sanitize: %v", err)
	}
	ready := serve.ReadinessOf(clean)

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(ready)
	} else {
		printReadiness(file, ready)
	}
	if !ready.Valid {
		os.Exit(1)
	}
}

func printReadiness(file string, r serve.Readiness) {
	if r.Valid {
		fmt.Printf("✓ %s is ready to deploy\n", file)
	} else {
		fmt.Printf("✗ %s is not ready to deploy\n", file)
	}
	if r.AppName != "" {
		fmt.Printf("  App:      %s\n", r.AppName)
	}
	if r.EndpointName != "" {
		fmt.Printf("  Endpoint: %s\n", r.EndpointName)
	}
	fmt.Printf("  Agents:   %d\n", r.AgentCount)

	for _, e := range r.Errors {
		fmt.Printf("  error:   %s\n", e)
	}
	for _, w := range r.Warnings {
		fmt.Printf("  warning: %s\n", w)
	}
	if len(r.Requirements) > 0 {
		reqs := append([]serve.Requirement(nil), r.Requirements...)
		sort.Slice(reqs, func(i, j int) bool { return reqs[i].Type < reqs[j].Type })
		fmt.Println("  Requires:")
		for _, req := range reqs {
			fmt.Printf("    %-14s %s (%d)\n", req.Type, req.Description, req.Count)
		}
	}
}

func parseFileArg(fs *flag.FlagSet, args []string) string {
	// Allow the file before or after the flags.
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		if err := fs.Parse(args[1:]); err != nil {
			os.Exit(1)
		}
		return args[0]
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: no YAML file specified")
		fs.Usage()
		os.Exit(1)
	}
	return fs.Arg(0)
}

func openOrExit(file string) *session.Session {
	s, err := daobuilder.Open(file)
	if err != nil {
		fatalf("%v", err)
	}
	return s
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
