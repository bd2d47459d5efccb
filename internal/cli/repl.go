package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"bloomjoin/internal/harness"
	"bloomjoin/internal/hierarchy"
	"bloomjoin/internal/planner"
	"bloomjoin/internal/store"
)

// REPL drives the interactive query surface §6 names: JOIN(...) runs the
// multi-column DFS join (component E), SCAN(...) runs the single-hierarchy
// fallback planner (component F), and COMPARE(...) runs both against a
// naive whole-DB scan and reports whether all three agree.
type REPL struct {
	Store    store.Store
	Trees    map[string]*hierarchy.Hierarchy
	Join     *planner.JoinPlanner
	Fallback *planner.FallbackPlanner
	Limit    int

	In  io.Reader
	Out io.Writer
}

const replBanner = `bloomjoin ready.
Formats:
  JOIN(col1=value1,col2=value2,...)
  SCAN(col1=value1,col2=value2,...)
  COMPARE(col1=value1,col2=value2,...)
  EXIT
`

// Run reads CMD(...) lines from r.In until EXIT/QUIT or EOF, writing
// results to r.Out. Mirrors the teacher's cmd/kv main loop structure: one
// ParseCall per line, a switch over the command name.
func (r *REPL) Run() error {
	fmt.Fprint(r.Out, replBanner)

	sc := bufio.NewScanner(r.In)
	for {
		fmt.Fprint(r.Out, "> ")
		if !sc.Scan() {
			break
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		cmd, args, ok, errMsg := ParseCall(line)
		if !ok {
			if errMsg != "" {
				fmt.Fprintln(r.Out, "parse error:", errMsg)
			}
			continue
		}

		switch cmd {
		case "EXIT", "QUIT":
			return sc.Err()

		case "JOIN":
			r.runJoin(args)

		case "SCAN":
			r.runScan(args)

		case "COMPARE":
			r.runCompare(args)

		default:
			fmt.Fprintln(r.Out, "unknown command")
		}
	}
	return sc.Err()
}

// parseColumnEquals parses a list of "col=value" args into parallel
// columns/values slices, in the order given. Every referenced column must
// have a built hierarchy; JOIN and SCAN both need that to look up trees.
func (r *REPL) parseColumnEquals(args []string) (cols []string, trees []*hierarchy.Hierarchy, values [][]byte, errMsg string) {
	if len(args) == 0 {
		return nil, nil, nil, "expected at least one col=value pair"
	}
	for _, a := range args {
		eq := strings.IndexByte(a, '=')
		if eq <= 0 {
			return nil, nil, nil, fmt.Sprintf("malformed pair %q, expected col=value", a)
		}
		col := strings.TrimSpace(a[:eq])
		val := a[eq+1:]

		tree, ok := r.Trees[col]
		if !ok {
			return nil, nil, nil, fmt.Sprintf("unknown column %q", col)
		}
		cols = append(cols, col)
		trees = append(trees, tree)
		values = append(values, []byte(val))
	}
	return cols, trees, values, ""
}

func (r *REPL) runJoin(args []string) {
	cols, trees, values, errMsg := r.parseColumnEquals(args)
	if errMsg != "" {
		fmt.Fprintln(r.Out, "usage: JOIN(col1=value1,col2=value2,...):", errMsg)
		return
	}

	keys, err := r.Join.Join(context.Background(), cols, trees, values, "", "")
	if err != nil {
		fmt.Fprintln(r.Out, "error:", err)
		return
	}
	printKeys(r.Out, keys)
}

func (r *REPL) runScan(args []string) {
	cols, trees, values, errMsg := r.parseColumnEquals(args)
	if errMsg != "" {
		fmt.Fprintln(r.Out, "usage: SCAN(col1=value1,col2=value2,...):", errMsg)
		return
	}

	keys, err := r.Fallback.Scan(context.Background(), cols, trees[0], values)
	if err != nil {
		fmt.Fprintln(r.Out, "error:", err)
		return
	}
	printKeys(r.Out, keys)
}

func (r *REPL) runCompare(args []string) {
	cols, trees, values, errMsg := r.parseColumnEquals(args)
	if errMsg != "" {
		fmt.Fprintln(r.Out, "usage: COMPARE(col1=value1,col2=value2,...):", errMsg)
		return
	}

	res, err := harness.Compare(context.Background(), r.Store, cols, trees, values, r.Limit)
	if err != nil {
		fmt.Fprintln(r.Out, "error:", err)
		return
	}
	fmt.Fprintf(r.Out, "agree=%v join=%d fallback=%d naive=%d\n", res.Agree, len(res.JoinKeys), len(res.FallbackKeys), len(res.NaiveKeys))
	printKeys(r.Out, res.NaiveKeys)
}

func printKeys(w io.Writer, keys []string) {
	if len(keys) == 0 {
		fmt.Fprintln(w, "(no match)")
		return
	}
	for _, k := range keys {
		fmt.Fprintln(w, k)
	}
}
