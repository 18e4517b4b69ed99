package domain

// NoDocumentsAnswer is returned when retrieval finds nothing to answer from.
const NoDocumentsAnswer = "Sorry, I couldn't find any relevant documents to answer that question."

// SearchHit is one ranked result of a contract search.
type SearchHit struct {
	ID    string         `json:"id"`
	Score float64        `json:"score"`
	Data  map[string]any `json:"data"`
}

// SearchResult is the response of a hybrid contract search.
type SearchResult struct {
	SearchType string      `json:"search_type"`
	Query      string      `json:"query"`
	SearchPlan SearchPlan  `json:"search_plan"`
	Results    []SearchHit `json:"results"`
}

// DocumentAnswer is the answer produced for a single document.
type DocumentAnswer struct {
	ID             string   `json:"id"`
	SourceName     string   `json:"source_name"`
	S3URL          string   `json:"s3_url"`
	ViewableURL    string   `json:"viewable_url"`
	RetrievalScore *float64 `json:"retrieval_score,omitempty"`
	Collection     string   `json:"collection,omitempty"`
	Answer         string   `json:"answer"`
	Failed         bool     `json:"-"`
}

// AnswerResult is the response of question answering.
type AnswerResult struct {
	Results           []DocumentAnswer `json:"results"`
	ScopedSearch      bool             `json:"scoped_search,omitempty"`
	DocumentsSearched int              `json:"documents_searched,omitempty"`
	Answer            string           `json:"answer,omitempty"`
}

// SummaryResult is the response of a multi-document summary.
type SummaryResult struct {
	Summary            string   `json:"summary"`
	DocumentsProcessed int      `json:"documents_processed"`
	DocumentNames      []string `json:"document_names"`
}

// SetupReport lists what schema setup touched.
type SetupReport struct {
	Collections []string            `json:"collections"`
	Indexes     map[string][]string `json:"indexes"`
}
