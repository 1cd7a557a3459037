// Copyright 2024 The cgrind Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// cgls imports Callgrind trace files and lists the functions with the
// highest self cost.
package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/alecthomas/kong"
	"github.com/dustin/go-humanize"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/cgrind/cgrind/callfmt"
	"github.com/cgrind/cgrind/profile"
)

type flags struct {
	Event    string   `short:"e" help:"Event type to rank by. Defaults to the first declared type."`
	Top      int      `short:"n" default:"20" help:"Number of functions to list (0 for all)."`
	LogLevel string   `enum:"error,warn,info,debug" default:"warn" help:"Log level (error, warn, info, debug)."`
	Paths    []string `arg:"" name:"trace" type:"existingfile" help:"Callgrind trace files to import."`
}

func main() {
	var f flags
	kctx := kong.Parse(&f, kong.Name("cgls"),
		kong.Description("List the most expensive functions of Callgrind trace files."))

	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	switch f.LogLevel {
	case "error":
		logger = level.NewFilter(logger, level.AllowError())
	case "warn":
		logger = level.NewFilter(logger, level.AllowWarn())
	case "info":
		logger = level.NewFilter(logger, level.AllowInfo())
	case "debug":
		logger = level.NewFilter(logger, level.AllowDebug())
	}

	prof := profile.New()
	imp := callfmt.NewImporter(prof, logger, nil)

	parts, diags, err := imp.ImportAll(context.Background(), f.Paths)
	for _, d := range diags {
		level.Warn(logger).Log("msg", d.Msg, "file", d.FileName, "line", d.Line)
	}
	if err != nil {
		level.Error(logger).Log("msg", "import failed", "err", err)
	}
	if len(parts) == 0 {
		kctx.Exit(1)
	}

	types := prof.EventTypes()
	var event *profile.EventType
	if f.Event != "" {
		event = types.Type(f.Event)
		if event == nil {
			fmt.Fprintf(os.Stderr, "cgls: unknown event type %q\n", f.Event)
			kctx.Exit(1)
		}
	} else if ts := types.Types(); len(ts) > 0 {
		event = ts[0]
	} else {
		fmt.Fprintln(os.Stderr, "cgls: no event types declared")
		kctx.Exit(1)
	}

	type row struct {
		fn   *profile.Function
		cost uint64
	}
	var rows []row
	for _, fn := range prof.Functions() {
		v := prof.FunctionTotal(fn)
		cost, err := types.Value(event, v)
		if err != nil {
			level.Error(logger).Log("msg", "evaluating event type", "event", event.Name, "err", err)
			kctx.Exit(1)
		}
		if cost == 0 {
			continue
		}
		rows = append(rows, row{fn, cost})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].cost != rows[j].cost {
			return rows[i].cost > rows[j].cost
		}
		return rows[i].fn.Name < rows[j].fn.Name
	})
	if f.Top > 0 && len(rows) > f.Top {
		rows = rows[:f.Top]
	}

	if cmd := prof.Command(); cmd != "" {
		fmt.Printf("command: %s\n", cmd)
	}
	total, err := types.Value(event, prof.Total())
	if err != nil {
		level.Error(logger).Log("msg", "evaluating event type", "event", event.Name, "err", err)
		kctx.Exit(1)
	}
	fmt.Printf("parts: %d, total %s: %s\n\n", len(parts), event.Name, humanize.Comma(int64(total)))

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(w, "%s\t \tfunction\t\n", event.Name)
	for _, r := range rows {
		pct := 0.0
		if total > 0 {
			pct = 100 * float64(r.cost) / float64(total)
		}
		fmt.Fprintf(w, "%s\t%5.1f%%\t%s\t\n", humanize.Comma(int64(r.cost)), pct, r.fn.Name)
	}
	w.Flush()
}
