// Package thematicbeast runs company-filtered retrieval queries against a
// LlamaCloud index, in-process.
//
// Quick start:
//
//	client, err := thematicbeast.New(thematicbeast.WithAPIKey(os.Getenv("LLAMA_API_KEY")))
//	if err != nil { ... }
//	defer client.Close()
//
//	resp, err := client.Query(ctx, thematicbeast.Request{Query: "AI capex", Company: "Acme"})
package thematicbeast

import "github.com/overlordausritter/thematicbeast/internal/domain"

// Request is one query. Company is required in filtered mode.
type Request struct {
	Query   string
	Company string
	Mode    string // "" = client default
}

// Result is one retrieved chunk. FileName and WebURL are "" when unknown.
type Result struct {
	Text     string
	FileName string
	WebURL   string
}

// Response holds the chunks of one query in retrieval order.
type Response struct {
	Mode      string
	Company   string
	Results   []Result
	Retrieved int
	Message   string
}

// Errors returned by Query, usable with errors.Is.
var (
	ErrMissingQuery       = domain.ErrMissingQuery
	ErrMissingCompany     = domain.ErrMissingCompany
	ErrInvalidMode        = domain.ErrInvalidMode
	ErrRetrievalExhausted = domain.ErrRetrievalExhausted
	ErrRetrievalProvider  = domain.ErrRetrievalProvider
	ErrIndexNotFound      = domain.ErrIndexNotFound
)
