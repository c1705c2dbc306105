// Package extract flattens editor document trees into plain text for
// chunking and embedding.
package extract

import (
	"strings"

	"github.com/keepstack/keepstack/internal/core/domain"
)

// FromJSON extracts plain text from a raw note body. Nil, empty, or
// unparseable input yields an empty string.
func FromJSON(data []byte) string {
	return FromTree(domain.DecodeTree(data))
}

// FromTree extracts plain text from decoded tree nodes. Leaf texts are
// joined with single spaces; tables render as pipe-delimited rows wrapped
// in newlines so they stay visually separated from surrounding prose. The
// result is normalised (see Normalize) and the normalisation is idempotent.
func FromTree(nodes []domain.TreeNode) string {
	var pieces []string
	for i := range nodes {
		pieces = walkNode(&nodes[i], pieces)
	}
	return Normalize(strings.Join(pieces, " "))
}

// walkNode appends the node's text contributions to pieces, depth first.
// Unknown nodes contribute nothing; children are walked regardless of kind.
func walkNode(node *domain.TreeNode, pieces []string) []string {
	switch node.Kind {
	case domain.NodeText:
		pieces = append(pieces, node.Text)

	case domain.NodeTable:
		if table := renderTable(node.Table); table != "" {
			pieces = append(pieces, "\n"+table+"\n")
		}

	case domain.NodeContainer:
		for i := range node.Content {
			pieces = walkNode(&node.Content[i], pieces)
		}

	case domain.NodeUnknown:
		// No contribution.
	}

	for i := range node.Children {
		pieces = walkNode(&node.Children[i], pieces)
	}

	return pieces
}

// renderTable renders rows as cell texts joined by " | ", one row per line.
func renderTable(table domain.TableContent) string {
	var rows []string
	for _, row := range table.Rows {
		cells := make([]string, 0, len(row.Cells))
		for _, cell := range row.Cells {
			var cellPieces []string
			for i := range cell.Content {
				cellPieces = walkNode(&cell.Content[i], cellPieces)
			}
			cells = append(cells, strings.Join(cellPieces, " "))
		}
		if len(cells) > 0 {
			rows = append(rows, strings.Join(cells, " | "))
		}
	}
	return strings.Join(rows, "\n")
}

// Normalize collapses runs of spaces and tabs to one space, collapses runs
// of newlines to one newline, and trims the ends. Applying it to its own
// output changes nothing.
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	var lastSpace, lastNewline bool
	for _, r := range text {
		switch r {
		case ' ', '\t':
			lastSpace = true
		case '\n', '\r':
			lastNewline = true
			lastSpace = false
		default:
			if lastNewline {
				b.WriteByte('\n')
			} else if lastSpace {
				b.WriteByte(' ')
			}
			lastNewline = false
			lastSpace = false
			b.WriteRune(r)
		}
	}

	return strings.TrimSpace(b.String())
}
