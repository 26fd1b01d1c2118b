package output

import (
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/ritzau/flow-editor/pkg/controller"
	"github.com/ritzau/flow-editor/pkg/model"
)

// PrintGraphSummary prints a colored overview of a graph: its nodes by kind,
// its edges and any node that is not connected to anything
func PrintGraphSummary(w io.Writer, origin string, snap model.Snapshot, stats controller.Stats) {
	// Color definitions
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)

	// Header
	bold.Fprintln(w, "Flow Editor - Graph Summary")
	bold.Fprintln(w, "===========================")
	fmt.Fprintf(w, "Seed: %s\n", origin)
	fmt.Fprintf(w, "Nodes: %d (%d sources, %d destinations)\n", stats.Nodes, stats.Sources, stats.Destinations)
	fmt.Fprintf(w, "Edges: %d\n", stats.Edges)
	fmt.Fprintln(w)

	degrees := make(map[string]controller.NodeDegree, len(stats.Degrees))
	for _, d := range stats.Degrees {
		degrees[d.ID] = d
	}

	bold.Fprintln(w, "NODES:")
	for _, n := range snap.Nodes {
		d := degrees[n.ID]
		cyan.Fprintf(w, "  %-12s", n.ID)
		fmt.Fprintf(w, " %-14s %-12s at (%g, %g)  in=%d out=%d\n",
			n.Label, n.Kind, n.Position.X, n.Position.Y, d.In, d.Out)
	}
	fmt.Fprintln(w)

	if len(snap.Edges) > 0 {
		bold.Fprintln(w, "EDGES:")
		for _, e := range snap.Edges {
			fmt.Fprintf(w, "  %-12s %s -> %s\n", e.ID, e.Source, e.Target)
		}
		fmt.Fprintln(w)
	}

	if len(stats.Isolated) > 0 {
		yellow.Fprintf(w, "Unconnected: %d node(s)\n", len(stats.Isolated))
		for _, id := range stats.Isolated {
			yellow.Fprintf(w, "  %s\n", id)
		}
		return
	}

	green.Fprintln(w, "✓ Every node is connected")
}

// PrintProblems lists every problem joined into err, one per line
func PrintProblems(w io.Writer, origin string, err error) {
	red := color.New(color.FgRed)
	bold := color.New(color.Bold)

	problems := []error{err}
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		problems = joined.Unwrap()
	}

	bold.Fprintf(w, "Seed %s is invalid\n", origin)
	for _, p := range problems {
		red.Fprintf(w, "  ✗ %v\n", p)
	}
	red.Fprintf(w, "%d problem(s)\n", len(problems))
}
