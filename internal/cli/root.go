package cli

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/nonibytes/docwhere/internal/cli/commands"
	"github.com/nonibytes/docwhere/internal/cliopt"
	"github.com/nonibytes/docwhere/internal/config"
)

// Execute runs the CLI and returns an exit code.
func Execute(argv []string) int {
	return ExecuteWith(argv, os.Stdin, os.Stdout, os.Stderr)
}

// ExecuteWith runs the CLI on the given streams
func ExecuteWith(argv []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cfg, err := config.Load(configFile(argv))
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	globalFS := flag.NewFlagSet("docwhere", flag.ContinueOnError)
	globalFS.SetOutput(stderr)
	g := cliopt.FromConfig(cfg)
	g.Stdin, g.Stdout, g.Stderr = stdin, stdout, stderr
	cliopt.BindGlobalFlags(globalFS, &g)

	if err := globalFS.Parse(argv); err != nil {
		// flag package already printed the error
		return 2
	}

	args := globalFS.Args()
	if len(args) == 0 {
		PrintRootHelp(stdout)
		return 0
	}

	verb := args[0]
	rest := args[1:]

	switch verb {
	case "--help", "-h", "help":
		PrintRootHelp(stdout)
		return 0
	case "init":
		return commands.RunInit(g, rest)
	case "schema":
		return commands.RunSchema(g, rest)
	case "put":
		return commands.RunPut(g, rest)
	case "get":
		return commands.RunGet(g, rest)
	case "find":
		return commands.RunFind(g, rest)
	case "count":
		return commands.RunCount(g, rest)
	case "explain":
		return commands.RunExplain(g, rest)
	case "delete":
		return commands.RunDelete(g, rest)
	default:
		fmt.Fprintf(stderr, "unknown command: %s\n\n", verb)
		PrintRootHelp(stderr)
		return 2
	}
}

// configFile finds --config among the global flags before they are parsed,
// since the file supplies their defaults. Every global flag takes a value.
func configFile(argv []string) string {
	for i := 0; i < len(argv); i++ {
		a := argv[i]
		if !strings.HasPrefix(a, "-") {
			return ""
		}
		name, value, inline := strings.Cut(strings.TrimLeft(a, "-"), "=")
		if name == "config" {
			if inline {
				return value
			}
			if i+1 < len(argv) {
				return argv[i+1]
			}
			return ""
		}
		if !inline {
			i++
		}
	}
	return ""
}
