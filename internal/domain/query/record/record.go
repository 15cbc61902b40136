// Package record turns retrieved nodes into the flat response shape.
package record

import "github.com/overlordausritter/thematicbeast/internal/domain"

// fileNameKeys are consulted in order; the first non-empty string wins.
var fileNameKeys = []string{"file_name", "filename", "document_title"}

// Record is one chunk in a /llamaquery response.
type Record struct {
	Text     string  `json:"text"`
	FileName *string `json:"file_name"`
	WebURL   *string `json:"web_url"`
}

// FromNode builds a record from a retrieved node. Text comes from the node
// itself, metadata from its inner node.
func FromNode(n domain.Node) Record {
	var meta map[string]any
	if inner := n.Inner(); inner != nil {
		meta = inner.Metadata()
	}

	r := Record{Text: n.Text()}
	for _, k := range fileNameKeys {
		if v := stringField(meta, k); v != nil && *v != "" {
			r.FileName = v
			break
		}
	}
	r.WebURL = stringField(meta, "web_url")
	return r
}

// Normalize converts nodes to records, preserving order.
func Normalize(nodes []domain.Node) []Record {
	out := make([]Record, 0, len(nodes))
	for _, n := range nodes {
		if n == nil {
			continue
		}
		out = append(out, FromNode(n))
	}
	return out
}

// FileNameOrEmpty returns the file name or "" when absent.
func (r Record) FileNameOrEmpty() string { return deref(r.FileName) }

// WebURLOrEmpty returns the web URL or "" when absent.
func (r Record) WebURLOrEmpty() string { return deref(r.WebURL) }

func stringField(meta map[string]any, key string) *string {
	v, ok := meta[key]
	if !ok {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		return nil
	}
	return &s
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
