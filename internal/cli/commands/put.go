package commands

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/nonibytes/docwhere/internal/cliopt"
	"github.com/nonibytes/docwhere/internal/cliutil"
)

// RunPut writes one document from --set pairs, or JSON lines from stdin or a file
func RunPut(g cliopt.GlobalOptions, argv []string) int {
	fs := newFlagSet(g, "put")
	var slug, id, locale, importPath string
	var jsonStdin bool
	var sets multiString
	bindCollection(fs, &slug)
	fs.StringVar(&id, "id", "", "document id (with --set)")
	fs.StringVar(&locale, "locale", "", "locale of localized fields")
	fs.BoolVar(&jsonStdin, "json", false, "read JSON lines from stdin")
	fs.StringVar(&importPath, "import", "", "import JSONL file")
	fs.Var(&sets, "set", "set k=v (repeatable)")
	if err := fs.Parse(argv); err != nil {
		return 2
	}
	if slug == "" {
		fmt.Fprintln(g.Stderr, "missing --collection")
		return 2
	}

	var docs []map[string]any
	switch {
	case len(sets) > 0:
		doc := map[string]any{}
		if id != "" {
			doc["id"] = id
		}
		for _, kv := range sets {
			k, v, ok := splitOnce(kv, '=')
			if !ok {
				doc[kv] = true
				continue
			}
			doc[k] = setValue(v)
		}
		docs = append(docs, doc)

	case importPath != "" || jsonStdin:
		var r io.Reader = g.Stdin
		if importPath != "" {
			f, err := os.Open(importPath)
			if err != nil {
				return fail(g, err)
			}
			defer f.Close()
			r = f
		}
		var err error
		if docs, err = readLines(r); err != nil {
			return fail(g, err)
		}

	default:
		fmt.Fprintln(g.Stderr, "provide --set, --json or --import")
		return 2
	}

	ctx := context.Background()
	st, sess, err := cliutil.OpenStore(ctx, g)
	if err != nil {
		return fail(g, err)
	}
	defer sess.Close()
	defer st.Close()

	results, err := st.PutMany(ctx, slug, docs, locale)
	if err != nil {
		return fail(g, err)
	}
	if len(results) == 1 {
		fmt.Fprintf(g.Stdout, "put %s\n", results[0].ID)
		return 0
	}
	fmt.Fprintf(g.Stdout, "imported %d\n", len(results))
	return 0
}

// setValue decodes v as JSON when it parses, so numbers, booleans and arrays
// keep their type
func setValue(v string) any {
	var out any
	if err := json.Unmarshal([]byte(v), &out); err == nil {
		return out
	}
	return v
}

func readLines(r io.Reader) ([]map[string]any, error) {
	var docs []map[string]any
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		b := bytes.TrimSpace(scanner.Bytes())
		if len(b) == 0 {
			continue
		}
		var doc map[string]any
		if err := json.Unmarshal(b, &doc); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		docs = append(docs, doc)
	}
	return docs, scanner.Err()
}
