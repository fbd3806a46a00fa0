package commands

import (
	"context"
	"fmt"

	"github.com/nonibytes/docwhere/docwhere"
	"github.com/nonibytes/docwhere/internal/cliopt"
	"github.com/nonibytes/docwhere/internal/cliutil"
)

func RunFind(g cliopt.GlobalOptions, argv []string) int {
	fs := newFlagSet(g, "find")
	var slug, where, locale, sort, format string
	var limit, offset int
	bindCollection(fs, &slug)
	bindWhere(fs, &where)
	fs.StringVar(&locale, "locale", "", "locale of localized fields")
	fs.IntVar(&limit, "limit", g.Limit, "max results")
	fs.IntVar(&offset, "offset", 0, "skip results")
	fs.StringVar(&sort, "sort", "", "sort field, -field for descending")
	fs.StringVar(&format, "format", "pretty", "format: pretty|ids|json")
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

	ctx := context.Background()
	st, sess, err := cliutil.OpenStore(ctx, g)
	if err != nil {
		return fail(g, err)
	}
	defer sess.Close()
	defer st.Close()

	docs, err := st.Find(ctx, slug, expr, docwhere.FindOptions{
		Locale: locale,
		Limit:  limit,
		Offset: offset,
		Sort:   sort,
	})
	if err != nil {
		return fail(g, err)
	}

	switch cliutil.ParseOutputFormat(format) {
	case cliutil.FormatJSON:
		cliutil.PrintJSON(g.Stdout, map[string]any{"docs": docs, "count": len(docs)})
	case cliutil.FormatIDs:
		for _, d := range docs {
			fmt.Fprintln(g.Stdout, d.ID)
		}
	default:
		for _, d := range docs {
			cliutil.PrintJSON(g.Stdout, d)
		}
		fmt.Fprintf(g.Stdout, "--- %d results ---\n", len(docs))
	}
	return 0
}

func RunCount(g cliopt.GlobalOptions, argv []string) int {
	fs := newFlagSet(g, "count")
	var slug, where, locale string
	bindCollection(fs, &slug)
	bindWhere(fs, &where)
	fs.StringVar(&locale, "locale", "", "locale of localized fields")
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

	ctx := context.Background()
	st, sess, err := cliutil.OpenStore(ctx, g)
	if err != nil {
		return fail(g, err)
	}
	defer sess.Close()
	defer st.Close()

	n, err := st.Count(ctx, slug, expr, locale)
	if err != nil {
		return fail(g, err)
	}
	fmt.Fprintln(g.Stdout, n)
	return 0
}
