package domain

import "strings"

// Payload keys stored next to the schema fields.
const (
	PayloadS3URL        = "s3_url"
	PayloadContractText = "contract_text"
	PayloadCategory     = "category"
)

// ContractRecord is one ingested document. It lives in exactly one collection, the one of its category.
type ContractRecord struct {
	ID           string
	Category     Category
	S3URL        string
	Fields       Fields
	ContractText string
}

// Collection names the collection the record belongs to.
func (r ContractRecord) Collection() string {
	return r.Category.Collection()
}

// Payload renders the stored payload: schema fields (null when missing) plus s3_url, contract_text and category.
func (r ContractRecord) Payload() map[string]any {
	fields := r.Fields
	if fields == nil {
		fields = EmptyFields(r.Category)
	}
	out := map[string]any{
		PayloadS3URL:        r.S3URL,
		PayloadContractText: r.ContractText,
		PayloadCategory:     string(r.Category),
	}
	if fields == nil {
		return out
	}
	for _, p := range fields.Pairs() {
		if p.Value == nil {
			out[p.Name] = nil
			continue
		}
		out[p.Name] = *p.Value
	}
	return out
}

// PublicPayload is the payload without the full contract text.
func (r ContractRecord) PublicPayload() map[string]any {
	out := r.Payload()
	delete(out, PayloadContractText)
	return out
}

// RecordFromPayload rebuilds a record read back from a collection. The category falls back to the
// collection's category when the payload carries none or an invalid one.
func RecordFromPayload(id, collection string, payload map[string]any) ContractRecord {
	category, _ := CategoryForCollection(collection)
	if raw, ok := payload[PayloadCategory].(string); ok {
		if parsed, err := ParseCategory(raw); err == nil {
			category = parsed
		}
	}
	rec := ContractRecord{
		ID:       id,
		Category: category,
		Fields:   FieldsFromValues(category, payload),
	}
	if v := StringValue(payload[PayloadS3URL]); v != nil {
		rec.S3URL = *v
	}
	if v, ok := payload[PayloadContractText].(string); ok {
		rec.ContractText = v
	}
	return rec
}

// ScoredContract is a search hit tagged with the collection it came from.
type ScoredContract struct {
	Record     ContractRecord
	Collection string
	Score      float64
}

// ContractSummary is one row of a contract listing. ViewableURL is never cached.
type ContractSummary struct {
	QdrantID    string   `json:"qdrant_id"`
	S3URL       string   `json:"s3_url"`
	ViewableURL string   `json:"viewable_url"`
	Category    Category `json:"category"`
	Collection  string   `json:"collection"`
	Name        string   `json:"name"`
	Date        string   `json:"date"`
}

var (
	summaryNameFields = []string{"employee_name", "borrower_name", "receiving_party"}
	summaryDateFields = []string{"start_date", "effective_date", "due_date"}
)

const notAvailable = "N/A"

// Summarize builds the listing row of a record.
func Summarize(r ContractRecord, collection string) ContractSummary {
	return ContractSummary{
		QdrantID:   r.ID,
		S3URL:      r.S3URL,
		Category:   r.Category,
		Collection: collection,
		Name:       firstNonEmpty(r.Fields, summaryNameFields, notAvailable),
		Date:       firstNonEmpty(r.Fields, summaryDateFields, notAvailable),
	}
}

func firstNonEmpty(f Fields, names []string, fallback string) string {
	for _, name := range names {
		if v := strings.TrimSpace(FieldValue(f, name)); v != "" {
			return v
		}
	}
	return fallback
}

// DocumentName derives a display name from a storage pointer.
func DocumentName(uri string) string {
	trimmed := strings.TrimRight(uri, "/")
	if idx := strings.Index(trimmed, "?"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	if idx := strings.LastIndex(trimmed, "/"); idx >= 0 {
		return trimmed[idx+1:]
	}
	return trimmed
}
