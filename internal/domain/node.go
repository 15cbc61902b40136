package domain

// Node is one ranked unit returned by the retrieval service.
//
// Inner returns the node that carries the metadata: a plain node returns
// itself, a scored wrapper returns the node it wraps.
type Node interface {
	Inner() Node
	Text() string
	Metadata() map[string]any
}

// TextNode is a chunk of text with its source metadata.
type TextNode struct {
	text     string
	metadata map[string]any
}

// NewTextNode creates a text node. metadata may be nil.
func NewTextNode(text string, metadata map[string]any) *TextNode {
	return &TextNode{text: text, metadata: metadata}
}

// Inner returns the node itself.
func (n *TextNode) Inner() Node { return n }

// Text returns the chunk text.
func (n *TextNode) Text() string { return n.text }

// Metadata returns the chunk metadata. Never nil.
func (n *TextNode) Metadata() map[string]any {
	if n.metadata == nil {
		return map[string]any{}
	}
	return n.metadata
}

// ScoredNode wraps a node with the relevance score assigned by the service.
type ScoredNode struct {
	node  Node
	score float64
}

// NewScoredNode wraps node with score.
func NewScoredNode(node Node, score float64) *ScoredNode {
	return &ScoredNode{node: node, score: score}
}

// Inner returns the wrapped node.
func (n *ScoredNode) Inner() Node {
	if n.node == nil {
		return n
	}
	return n.node
}

// Text proxies to the wrapped node.
func (n *ScoredNode) Text() string {
	if n.node == nil {
		return ""
	}
	return n.node.Text()
}

// Metadata of the wrapper itself is empty; use Inner().Metadata().
func (n *ScoredNode) Metadata() map[string]any { return map[string]any{} }

// Score returns the relevance score.
func (n *ScoredNode) Score() float64 { return n.score }
