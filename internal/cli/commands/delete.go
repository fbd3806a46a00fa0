package commands

import (
	"context"
	"fmt"

	"github.com/nonibytes/docwhere/docwhere"
	"github.com/nonibytes/docwhere/internal/cliopt"
	"github.com/nonibytes/docwhere/internal/cliutil"
)

func RunDelete(g cliopt.GlobalOptions, argv []string) int {
	fs := newFlagSet(g, "delete")
	var slug, id, where, locale string
	var all bool
	bindCollection(fs, &slug)
	bindWhere(fs, &where)
	fs.StringVar(&id, "id", "", "document id")
	fs.StringVar(&locale, "locale", "", "locale of localized fields")
	fs.BoolVar(&all, "all", false, "delete every document of the collection")
	if err := fs.Parse(argv); err != nil {
		return 2
	}
	if slug == "" {
		fmt.Fprintln(g.Stderr, "missing --collection")
		return 2
	}
	if id == "" && where == "" && !all {
		fmt.Fprintln(g.Stderr, "provide --id, --where or --all")
		return 2
	}

	ctx := context.Background()
	st, sess, err := cliutil.OpenStore(ctx, g)
	if err != nil {
		return fail(g, err)
	}
	defer sess.Close()
	defer st.Close()

	if id != "" {
		ok, err := st.Delete(ctx, slug, id)
		if err != nil {
			return fail(g, err)
		}
		if ok {
			fmt.Fprintln(g.Stdout, "deleted")
		} else {
			fmt.Fprintln(g.Stdout, "not found")
		}
		return 0
	}

	expr, err := docwhere.ParseWhere(where)
	if err != nil {
		return fail(g, err)
	}
	n, err := st.DeleteWhere(ctx, slug, expr, locale)
	if err != nil {
		return fail(g, err)
	}
	fmt.Fprintf(g.Stdout, "deleted %d\n", n)
	return 0
}
