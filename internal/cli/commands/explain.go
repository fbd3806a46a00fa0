package commands

import (
	"context"
	"fmt"

	"github.com/nonibytes/docwhere/docwhere"
	"github.com/nonibytes/docwhere/internal/cliopt"
	"github.com/nonibytes/docwhere/internal/cliutil"
)

// RunExplain prints the compilation steps and the SQL of a find
func RunExplain(g cliopt.GlobalOptions, argv []string) int {
	fs := newFlagSet(g, "explain")
	var slug, where, locale, sort, format string
	var limit, offset int
	bindCollection(fs, &slug)
	bindWhere(fs, &where)
	fs.StringVar(&locale, "locale", "", "locale of localized fields")
	fs.IntVar(&limit, "limit", g.Limit, "max results")
	fs.IntVar(&offset, "offset", 0, "skip results")
	fs.StringVar(&sort, "sort", "", "sort field, -field for descending")
	fs.StringVar(&format, "format", "pretty", "format: pretty|json")
	if err := fs.Parse(argv); err != nil {
		return 2
	}
	if slug == "" {
		fmt.Fprintln(g.Stderr, "missing --collection")
		return 2
	}

	expr, err := docwhere.ParseWhere(where)
	if err != nil {
		return fail(g, err)
	}

	st, sess, err := cliutil.OpenStore(context.Background(), g)
	if err != nil {
		return fail(g, err)
	}
	defer sess.Close()
	defer st.Close()

	res, err := st.Explain(slug, expr, docwhere.FindOptions{
		Locale: locale,
		Limit:  limit,
		Offset: offset,
		Sort:   sort,
	})
	if err != nil {
		return fail(g, err)
	}

	if cliutil.ParseOutputFormat(format) == cliutil.FormatJSON {
		cliutil.PrintJSON(g.Stdout, res)
		return 0
	}
	fmt.Fprintln(g.Stdout, "=== Plan ===")
	for _, step := range res.Steps {
		fmt.Fprintf(g.Stdout, "  %s\n", step)
	}
	fmt.Fprintln(g.Stdout, "\n=== SQL ===")
	fmt.Fprintln(g.Stdout, res.SQL)
	if len(res.Args) > 0 {
		fmt.Fprintf(g.Stdout, "args: %v\n", res.Args)
	}
	return 0
}
