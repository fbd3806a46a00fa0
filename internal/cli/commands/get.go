package commands

import (
	"context"
	"fmt"

	"github.com/nonibytes/docwhere/docwhere"
	"github.com/nonibytes/docwhere/internal/cliopt"
	"github.com/nonibytes/docwhere/internal/cliutil"
)

func RunGet(g cliopt.GlobalOptions, argv []string) int {
	fs := newFlagSet(g, "get")
	var slug, id, locale string
	bindCollection(fs, &slug)
	fs.StringVar(&id, "id", "", "document id")
	fs.StringVar(&locale, "locale", "", "locale of localized fields")
	if err := fs.Parse(argv); err != nil {
		return 2
	}
	if slug == "" || id == "" {
		fmt.Fprintln(g.Stderr, "missing --collection or --id")
		return 2
	}

	ctx := context.Background()
	st, sess, err := cliutil.OpenStore(ctx, g)
	if err != nil {
		return fail(g, err)
	}
	defer sess.Close()
	defer st.Close()

	doc, err := st.Get(ctx, slug, id, locale)
	if err != nil {
		if docwhere.IsKind(err, docwhere.ErrNotFound) {
			fmt.Fprintf(g.Stderr, "not found: %s\n", id)
			return 1
		}
		return fail(g, err)
	}
	cliutil.PrintJSON(g.Stdout, doc)
	return 0
}
