package domain

import (
	"bytes"
	"encoding/json"
)

// NodeKind discriminates the closed set of document tree node variants.
type NodeKind string

const (
	// NodeText is a leaf carrying literal text.
	NodeText NodeKind = "text"

	// NodeTable carries tabular content as rows of cells.
	NodeTable NodeKind = "table"

	// NodeContainer holds an ordered list of child nodes in Content.
	NodeContainer NodeKind = "container"

	// NodeUnknown is any shape the decoder does not recognise.
	// Unknown nodes contribute no text but their Children still count.
	NodeUnknown NodeKind = "unknown"
)

// TreeNode is one node of the editor's document tree. The editor emits
// free-form JSON; decoding maps every value onto this closed union so the
// extractor never has to inspect raw JSON. Decoding is total: malformed or
// unrecognised shapes become NodeUnknown instead of failing.
type TreeNode struct {
	// Kind selects which of the remaining fields are meaningful.
	Kind NodeKind

	// Text is the literal text of a NodeText leaf.
	Text string

	// Table holds the rows of a NodeTable.
	Table TableContent

	// Content holds the ordered children of a NodeContainer.
	Content []TreeNode

	// Children holds nested nodes and is populated independently of Kind;
	// a node can contribute both its own content and its children's.
	Children []TreeNode
}

// TableContent is the payload of a table node.
type TableContent struct {
	Rows []TableRow `json:"rows"`
}

// TableRow is a single table row.
type TableRow struct {
	Cells []TableCell `json:"cells"`
}

// TableCell holds the nodes rendered inside one cell.
type TableCell struct {
	Content []TreeNode `json:"content"`
}

// rawNode mirrors the wire shape loosely. Content stays raw because its
// type depends on the node kind (object for tables, array otherwise).
type rawNode struct {
	Type     string          `json:"type"`
	Text     *string         `json:"text"`
	Content  json.RawMessage `json:"content"`
	Children json.RawMessage `json:"children"`
}

// UnmarshalJSON decodes a tree node, mapping unrecognised shapes to
// NodeUnknown. It never returns an error for valid JSON input.
func (n *TreeNode) UnmarshalJSON(data []byte) error {
	*n = TreeNode{Kind: NodeUnknown}

	var raw rawNode
	if err := json.Unmarshal(data, &raw); err != nil {
		// Not an object (string, number, ...): unknown contribution.
		return nil
	}

	// Children are decoded independently of the node kind.
	if len(raw.Children) > 0 {
		var children []TreeNode
		if err := json.Unmarshal(raw.Children, &children); err == nil {
			n.Children = children
		}
	}

	switch {
	case raw.Type == string(NodeText) && raw.Text != nil:
		n.Kind = NodeText
		n.Text = *raw.Text

	case raw.Type == string(NodeTable):
		n.Kind = NodeTable
		if len(raw.Content) > 0 {
			var table TableContent
			if err := json.Unmarshal(raw.Content, &table); err == nil {
				n.Table = table
			}
		}

	case len(raw.Content) > 0:
		var content []TreeNode
		if err := json.Unmarshal(raw.Content, &content); err == nil {
			n.Kind = NodeContainer
			n.Content = content
		}
	}

	return nil
}

// DecodeTree parses a raw note body into tree nodes. It accepts either a
// list of nodes or a single node object. Nil, empty, or unparseable input
// yields an empty tree rather than an error.
func DecodeTree(data []byte) []TreeNode {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	var nodes []TreeNode
	if err := json.Unmarshal(trimmed, &nodes); err == nil {
		return nodes
	}

	var node TreeNode
	if err := json.Unmarshal(trimmed, &node); err == nil {
		return []TreeNode{node}
	}

	return nil
}
