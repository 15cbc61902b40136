package retrievalcache

import (
	"encoding/json"
	"fmt"

	"github.com/overlordausritter/thematicbeast/internal/domain"
)

type keyDTO struct {
	Pipeline string `json:"pipeline"`
	Query    string `json:"query"`
	TopK     int    `json:"top_k"`
}

type nodeDTO struct {
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Score    *float64       `json:"score,omitempty"`
}

// encodeNodes flattens nodes to the inner text/metadata plus the score of a
// scored wrapper, which is all the query path reads back.
func encodeNodes(nodes []domain.Node) ([]byte, error) {
	dtos := make([]nodeDTO, 0, len(nodes))
	for _, n := range nodes {
		if n == nil {
			continue
		}
		d := nodeDTO{Text: n.Text(), Metadata: n.Inner().Metadata()}
		if sn, ok := n.(*domain.ScoredNode); ok {
			score := sn.Score()
			d.Score = &score
		}
		dtos = append(dtos, d)
	}
	data, err := json.Marshal(dtos)
	if err != nil {
		return nil, fmt.Errorf("marshal nodes: %w", err)
	}
	return data, nil
}

func decodeNodes(data []byte) ([]domain.Node, error) {
	var dtos []nodeDTO
	if err := json.Unmarshal(data, &dtos); err != nil {
		return nil, fmt.Errorf("unmarshal nodes: %w", err)
	}
	nodes := make([]domain.Node, 0, len(dtos))
	for _, d := range dtos {
		var n domain.Node = domain.NewTextNode(d.Text, d.Metadata)
		if d.Score != nil {
			n = domain.NewScoredNode(n, *d.Score)
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}
