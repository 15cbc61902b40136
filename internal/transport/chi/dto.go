package chi

import "github.com/overlordausritter/thematicbeast/internal/domain/query/record"

type unfilteredResponse struct {
	Results []record.Record `json:"results"`
	Count   int             `json:"count"`
}

type filteredResponse struct {
	Company string          `json:"company"`
	Results []record.Record `json:"results"`
	Message string          `json:"message,omitempty"`
}

// errorBody is the {"error": ...} shape of /llamaquery failures.
type errorBody struct {
	Error string `json:"error"`
}

// errorResponse is the generic {"code", "message"} error shape.
type errorResponse struct {
	Code    errorCode `json:"code"`
	Message string    `json:"message"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
