package commands

import (
	"flag"
	"fmt"

	"github.com/nonibytes/docwhere/docwhere"
	"github.com/nonibytes/docwhere/internal/cliopt"
)

func newFlagSet(g cliopt.GlobalOptions, name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(g.Stderr)
	return fs
}

// fail prints err and returns the exit code for it. Rejected input exits 2.
func fail(g cliopt.GlobalOptions, err error) int {
	fmt.Fprintln(g.Stderr, err)
	if docwhere.IsKind(err, docwhere.ErrQueryParse) || docwhere.IsKind(err, docwhere.ErrQueryRejected) {
		return 2
	}
	return 1
}

func bindCollection(fs *flag.FlagSet, slug *string) {
	fs.StringVar(slug, "collection", "", "collection slug")
	fs.StringVar(slug, "c", "", "collection slug")
}

func bindWhere(fs *flag.FlagSet, where *string) {
	fs.StringVar(where, "where", "", `filter as JSON ({"title":{"equals":"x"}}) or query string (where[title][equals]=x)`)
	fs.StringVar(where, "w", "", "filter (shorthand)")
}

type multiString []string

func (m *multiString) String() string { return "" }
func (m *multiString) Set(v string) error {
	*m = append(*m, v)
	return nil
}

func splitOnce(s string, sep byte) (string, string, bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == sep {
			return s[:i], s[i+1:], true
		}
	}
	return "", "", false
}
