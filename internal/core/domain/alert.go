package domain

import "strings"

// DateTag names the kind of deadline a date field represents.
type DateTag string

const (
	DateTagEndDate DateTag = "END_DATE"
	DateTagRenewal DateTag = "RENEWAL"
	DateTagLoanDue DateTag = "LOAN_DUE"
)

// AlertKind is the client-facing form of a DateTag ("loan-due", "end-date", "renewal").
type AlertKind string

func (t DateTag) Kind() AlertKind {
	return AlertKind(strings.ReplaceAll(strings.ToLower(string(t)), "_", "-"))
}

const (
	AlertKindEndDate AlertKind = "end-date"
	AlertKindRenewal AlertKind = "renewal"
	AlertKindLoanDue AlertKind = "loan-due"
)

// DateField is one date-bearing payload field of a collection.
type DateField struct {
	Name string
	Tag  DateTag
}

// DateFields lists the date-bearing fields scanned per collection, in scan order.
func DateFields(collection string) []DateField {
	switch collection {
	case CollectionEmployeeContracts:
		return []DateField{{Name: "end_date", Tag: DateTagEndDate}, {Name: "renewal_date", Tag: DateTagRenewal}}
	case CollectionLoanAgreements:
		return []DateField{{Name: "due_date", Tag: DateTagLoanDue}}
	case CollectionNDAs:
		return []DateField{{Name: "end_date", Tag: DateTagEndDate}}
	default:
		return nil
	}
}

// AlertEntry is a derived, never persisted deadline notice.
type AlertEntry struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	DaysLeft    int       `json:"daysLeft"`
	Date        string    `json:"date"`
	Type        AlertKind `json:"type"`
	Collection  string    `json:"collection"`
	S3URL       string    `json:"s3_url"`
	ViewableURL string    `json:"viewable_url"`
}

// AlertsReport holds both buckets, each sorted ascending by DaysLeft.
type AlertsReport struct {
	Alerts    []AlertEntry `json:"alerts"`
	Reminders []AlertEntry `json:"reminders"`
}

// Clone copies both buckets so callers can attach URLs without touching cached data.
func (r AlertsReport) Clone() AlertsReport {
	out := AlertsReport{
		Alerts:    make([]AlertEntry, len(r.Alerts)),
		Reminders: make([]AlertEntry, len(r.Reminders)),
	}
	copy(out.Alerts, r.Alerts)
	copy(out.Reminders, r.Reminders)
	return out
}

var titleFields = []string{"employee_name", "borrower_name", "receiving_party"}

// AlertTitle picks the first present name-like field, else "Contract ID: <id>".
func AlertTitle(r ContractRecord) string {
	for _, name := range titleFields {
		if v := strings.TrimSpace(FieldValue(r.Fields, name)); v != "" {
			return v
		}
	}
	return "Contract ID: " + r.ID
}
