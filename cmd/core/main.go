// cmd/core is a minimal embedding-style driver over package host, trimmed
// from cmd/sentra/main.go's command-dispatch-by-first-arg shape down to the
// handful of subcommands this module's embedding API actually supports:
// no scanner/loader is in scope, so there is no `run file` or REPL reading
// free-form source text. What remains is `do <scenario>`, which builds one
// of a handful of demo programs directly as pre-scanned cells (the same
// technique internal/host's own tests use) and evaluates it through the
// real embedding API, plus `list` and `version`.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/golang/glog"

	"corelang/internal/host"
)

const version = "0.1.0"

func main() {
	flag.Usage = usage
	flag.Parse()
	defer glog.Flush()
	args := flag.Args()

	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	switch args[0] {
	case "version", "--version", "-v":
		fmt.Println("core", version)
	case "help", "--help", "-h":
		usage()
	case "list":
		listScenarios()
	case "do":
		if len(args) < 2 {
			glog.Exit("usage: core do <scenario>")
		}
		if err := runScenario(args[1]); err != nil {
			glog.Exitf("error: %v", err)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", args[0])
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: core <command> [args]")
	fmt.Fprintln(os.Stderr, "  do <scenario>   evaluate one of the built-in demo programs and print its result")
	fmt.Fprintln(os.Stderr, "  list            list the available demo scenario names")
	fmt.Fprintln(os.Stderr, "  version         print the core version")
}

// runScenario looks up name in the demo table, evaluates its pre-built
// program through a fresh Host, and prints the resulting value (or
// propagates whatever error/thrown-label the evaluation produced).
func runScenario(name string) error {
	s, ok := scenarios[name]
	if !ok {
		return fmt.Errorf("no such scenario %q (see `core list`)", name)
	}

	h := host.Init(nil)
	defer h.Shutdown()

	glog.V(1).Infof("running scenario %s", name)
	prog := s.build(h)
	result, err := evalAndMold(h, prog)
	if err != nil {
		return err
	}
	fmt.Printf("%s => %s\n", name, result)
	return nil
}

func listScenarios() {
	for _, name := range scenarioOrder {
		fmt.Printf("%-28s %s\n", name, scenarios[name].doc)
	}
}
