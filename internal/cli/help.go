package cli

import (
	"fmt"
	"io"
)

func PrintRootHelp(w io.Writer) {
	fmt.Fprintln(w, `docwhere: document store with CMS-style where filters

USAGE
  docwhere [global flags] <command> [args]

GLOBAL FLAGS
  --config <file>
  --backend sqlite|postgres
  --sqlite-path <file.db|dir>
  --sqlite-driver sqlite|sqlite3
  --pg-dsn <dsn>
  --pg-schema <name>
  --schema <definition.json>
  --locale <code>
  --max-depth <n>
  --log-level debug|info|warning|error
  --metrics-addr <host:port>

  Every global flag also reads DOCWHERE_<NAME> (DOCWHERE_SQLITE_PATH, ...).

COMMANDS
  init      create tables from a schema definition
  schema    print the stored schema definition
  put       -c <slug> (--set k=v... | --json | --import <file.jsonl>)
  get       -c <slug> --id <id>
  find      -c <slug> [-w <filter>] [--limit N] [--offset N] [--sort f] [--format pretty|ids|json]
  count     -c <slug> [-w <filter>]
  explain   -c <slug> [-w <filter>]
  delete    -c <slug> (--id <id> | -w <filter> | --all)

FILTERS
  -w '{"or":[{"title":{"like":"go"}},{"tags":{"in_array":["t1","t2"]}}]}'
  -w 'where[author.name][equals]=Ann&where[attributes.views][gte]=10'`)
}
