package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/JamesPrial/pokeflow/internal/browser"
	"github.com/JamesPrial/pokeflow/internal/panel"
)

func printGraph(w io.Writer, view browser.GraphView) {
	header := color.New(color.FgCyan, color.Bold)

	header.Fprintf(w, "Nodes (%d)\n", len(view.Nodes))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tLABEL\tTYPE\tX\tY")
	for _, n := range view.Nodes {
		label := n.Data.Label
		if n.IsStart() {
			label = color.YellowString(label)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%g\t%g\n", n.ID, label, n.Type, n.Position.X, n.Position.Y)
	}
	tw.Flush()

	header.Fprintf(w, "\nEdges (%d)\n", len(view.Edges))
	for _, e := range view.Edges {
		fmt.Fprintf(w, "%s  %s -> %s\n", e.ID, e.Source, e.Target)
	}
}

func printPanel(w io.Writer, view panel.View) {
	color.New(color.FgCyan, color.Bold).Fprintln(w, view.Title)
	if view.Name != "" {
		color.New(color.FgGreen, color.Bold).Fprintln(w, view.Name)
	}

	if view.Detail == nil {
		fmt.Fprintln(w, view.Prompt)
		return
	}

	d := view.Detail
	if d.ImageURL != "" {
		fmt.Fprintf(w, "%s %s\n", color.WhiteString("Image: "), d.ImageURL)
	}
	fmt.Fprintf(w, "%s %s\n", color.WhiteString("Height:"), d.Height)
	fmt.Fprintf(w, "%s %s\n", color.WhiteString("Weight:"), d.Weight)
	fmt.Fprintf(w, "%s %s\n", color.WhiteString("Types: "), d.Types)
}
