// Package report renders a human readable summary of a representation.
package report

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/robert-at-pretension-io/icecraft-rep/internal/chipdb"
	"github.com/robert-at-pretension-io/icecraft-rep/internal/policy"
	"github.com/robert-at-pretension-io/icecraft-rep/internal/representation"
)

// DefaultMaxGenes bounds the gene table.
const DefaultMaxGenes = 50

type Input struct {
	Title          string
	RunID          string
	Request        string
	Representation *representation.Representation
	// Lint is optional.
	Lint *policy.Result
	// MaxGenes limits the gene table, 0 selects DefaultMaxGenes and a
	// negative value lists every gene.
	MaxGenes int
}

// Markdown writes the report as GitHub flavoured markdown.
func Markdown(w io.Writer, in Input) error {
	var b strings.Builder
	rep := in.Representation
	stats := rep.Stats()

	title := in.Title
	if title == "" {
		title = "Representation"
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	if in.Request != "" {
		fmt.Fprintf(&b, "- request: `%s`\n", in.Request)
	}
	if in.RunID != "" {
		fmt.Fprintf(&b, "- run: `%s`\n", in.RunID)
	}
	if in.Request != "" || in.RunID != "" {
		b.WriteString("\n")
	}

	b.WriteString("## Overview\n\n")
	b.WriteString("| figure | value |\n|---|---|\n")
	fmt.Fprintf(&b, "| variable genes | %d |\n", stats.Genes)
	fmt.Fprintf(&b, "| constant genes | %d |\n", stats.ConstantGenes)
	fmt.Fprintf(&b, "| variable bits | %d |\n", stats.VariableBits)
	fmt.Fprintf(&b, "| constant bits | %d |\n", stats.ConstantBits)
	fmt.Fprintf(&b, "| search space (bits) | %.2f |\n", stats.SearchSpaceBits)
	fmt.Fprintf(&b, "| sections | %d |\n", stats.Sections)
	fmt.Fprintf(&b, "| column buffer controls | %d |\n", len(rep.ColBufCtrl))
	fmt.Fprintf(&b, "| outputs | %s |\n", positions(rep.Output))
	b.WriteString("\n")

	if len(rep.SectionLengths) > 0 {
		b.WriteString("## Sections\n\n")
		start := 0
		for i, l := range rep.SectionLengths {
			fmt.Fprintf(&b, "%d. %d genes in %s\n", i+1, l, tiles(rep.Genes[start].Tiles()))
			start += l
		}
		b.WriteString("\n")
	}

	b.WriteString("## Genes\n\n")
	limit := in.MaxGenes
	if limit == 0 {
		limit = DefaultMaxGenes
	}
	if len(rep.Genes) == 0 {
		b.WriteString("No variable genes.\n\n")
	} else {
		b.WriteString("| # | description | bits | alleles | tiles |\n|---|---|---|---|---|\n")
		for i, g := range rep.Genes {
			if limit > 0 && i >= limit {
				break
			}
			fmt.Fprintf(&b, "| %d | %s | %d | %d | %s |\n", i, escape(g.Description), len(g.Bits), g.Alleles.Len(), tiles(g.Tiles()))
		}
		if limit > 0 && len(rep.Genes) > limit {
			fmt.Fprintf(&b, "\n%d more genes not shown.\n", len(rep.Genes)-limit)
		}
		b.WriteString("\n")
	}

	if in.Lint != nil {
		b.WriteString("## Lint\n\n")
		if len(in.Lint.Violations) == 0 {
			b.WriteString("No violations.\n")
		} else {
			fmt.Fprintf(&b, "%d errors, %d warnings, %d info.\n\n", in.Lint.Summary.Errors, in.Lint.Summary.Warnings, in.Lint.Summary.Info)
			b.WriteString("| rule | severity | tile | message |\n|---|---|---|---|\n")
			for _, v := range in.Lint.Violations {
				fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", v.Rule, v.Severity, escape(v.Tile), escape(v.Message))
			}
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// HTML renders the markdown report to an HTML fragment.
func HTML(w io.Writer, in Input) error {
	var md bytes.Buffer
	if err := Markdown(&md, in); err != nil {
		return err
	}
	return Render(w, md.Bytes())
}

// Render converts markdown to HTML with table support.
func Render(w io.Writer, markdown []byte) error {
	conv := goldmark.New(goldmark.WithExtensions(extension.Table))
	if err := conv.Convert(markdown, w); err != nil {
		return fmt.Errorf("rendering report: %w", err)
	}
	return nil
}

func escape(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func tiles(ts []chipdb.Tile) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = t.String()
	}
	return strings.Join(parts, " ")
}

func positions(ps []chipdb.LUTPosition) string {
	if len(ps) == 0 {
		return "none"
	}
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = p.String()
	}
	return strings.Join(parts, " ")
}
