package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/nonibytes/docwhere/docwhere"
	"github.com/nonibytes/docwhere/docwhere/schema"
	"github.com/nonibytes/docwhere/internal/cliopt"
	"github.com/nonibytes/docwhere/internal/cliutil"
)

// RunInit creates the tables for a schema definition file
func RunInit(g cliopt.GlobalOptions, argv []string) int {
	fs := newFlagSet(g, "init")
	schemaFile := g.SchemaFile
	fs.StringVar(&schemaFile, "schema", schemaFile, "schema definition JSON file")
	if err := fs.Parse(argv); err != nil {
		return 2
	}
	if schemaFile == "" {
		fmt.Fprintln(g.Stderr, "missing --schema")
		return 2
	}

	data, err := os.ReadFile(schemaFile)
	if err != nil {
		return fail(g, err)
	}
	def, err := schema.DefinitionFromJSON(data)
	if err != nil {
		return fail(g, err)
	}

	sess, err := cliutil.NewSession(g)
	if err != nil {
		return fail(g, err)
	}
	defer sess.Close()
	adapter, err := cliutil.Adapter(g)
	if err != nil {
		return fail(g, err)
	}

	st, err := docwhere.Create(context.Background(), adapter, def, sess.StoreOptions(g))
	if err != nil {
		return fail(g, err)
	}
	defer st.Close()

	fmt.Fprintf(g.Stdout, "created %s\n", adapter.StoreID())
	for _, c := range st.Registry().Collections() {
		fmt.Fprintf(g.Stdout, "  %s (%d fields)\n", c.Slug, len(c.Fields))
	}
	return 0
}

// RunSchema prints the definition stored in the database
func RunSchema(g cliopt.GlobalOptions, argv []string) int {
	fs := newFlagSet(g, "schema")
	if err := fs.Parse(argv); err != nil {
		return 2
	}
	st, sess, err := cliutil.OpenStore(context.Background(), g)
	if err != nil {
		return fail(g, err)
	}
	defer sess.Close()
	defer st.Close()

	cliutil.PrintJSON(g.Stdout, st.Definition())
	return 0
}
