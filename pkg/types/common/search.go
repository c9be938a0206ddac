package common

// IndexMapping is the settings+mappings body used to create a search index.
type IndexMapping struct {
	Settings map[string]interface{} `json:"settings,omitempty"`
	Mappings map[string]interface{} `json:"mappings,omitempty"`
}

// BulkResult reports the outcome of a bulk indexing run.
type BulkResult struct {
	Succeeded int             `json:"succeeded"`
	Failed    int             `json:"failed"`
	Errors    []BulkItemError `json:"errors,omitempty"`
}

// BulkItemError records a single failed document within a bulk run.
type BulkItemError struct {
	DocID     string `json:"doc_id"`
	ErrorType string `json:"error_type"`
	Reason    string `json:"reason"`
}
