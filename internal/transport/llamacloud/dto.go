package llamacloud

// retrieveRequest is the body of POST /api/v1/pipelines/{id}/retrieve.
type retrieveRequest struct {
	Query                string `json:"query"`
	DenseSimilarityTopK  int    `json:"dense_similarity_top_k"`
	SparseSimilarityTopK int    `json:"sparse_similarity_top_k"`
	EnableReranking      bool   `json:"enable_reranking"`
	RerankTopN           int    `json:"rerank_top_n"`
	RetrievalMode        string `json:"retrieval_mode"`
}

type retrieveResponse struct {
	PipelineID     string          `json:"pipeline_id"`
	RetrievalNodes []retrievalNode `json:"retrieval_nodes"`
}

type retrievalNode struct {
	Node  textNode `json:"node"`
	Score *float64 `json:"score"`
}

type textNode struct {
	ID        string         `json:"id_"`
	Text      string         `json:"text"`
	Metadata  map[string]any `json:"metadata"`
	ExtraInfo map[string]any `json:"extra_info"`
}

type project struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	OrganizationID string `json:"organization_id"`
}

type pipeline struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ProjectID string `json:"project_id"`
}

type apiErrorBody struct {
	Detail any `json:"detail"`
}
