package domain

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Field is one named, nullable extracted value.
type Field struct {
	Name  string
	Value *string
}

// Fields is the per-category extracted schema. Implementations are fixed record types;
// Pairs always returns every schema key in declaration order.
type Fields interface {
	Category() Category
	Pairs() []Field
}

type LoanAgreementFields struct {
	LenderName   *string `json:"lender_name"`
	BorrowerName *string `json:"borrower_name"`
	LoanAmount   *string `json:"loan_amount"`
	InterestRate *string `json:"interest_rate"`
	DueDate      *string `json:"due_date"`
}

func (LoanAgreementFields) Category() Category { return CategoryLoanAgreement }

func (f LoanAgreementFields) Pairs() []Field {
	return []Field{
		{Name: "lender_name", Value: f.LenderName},
		{Name: "borrower_name", Value: f.BorrowerName},
		{Name: "loan_amount", Value: f.LoanAmount},
		{Name: "interest_rate", Value: f.InterestRate},
		{Name: "due_date", Value: f.DueDate},
	}
}

type NdaFields struct {
	DisclosingParty *string `json:"disclosing_party"`
	ReceivingParty  *string `json:"receiving_party"`
	EffectiveDate   *string `json:"effective_date"`
}

func (NdaFields) Category() Category { return CategoryNDA }

func (f NdaFields) Pairs() []Field {
	return []Field{
		{Name: "disclosing_party", Value: f.DisclosingParty},
		{Name: "receiving_party", Value: f.ReceivingParty},
		{Name: "effective_date", Value: f.EffectiveDate},
	}
}

type EmployeeContractFields struct {
	EmployerName *string `json:"employer_name"`
	EmployeeName *string `json:"employee_name"`
	JobTitle     *string `json:"job_title"`
	StartDate    *string `json:"start_date"`
	EndDate      *string `json:"end_date"`
	Salary       *string `json:"salary"`
	RenewalDate  *string `json:"renewal_date"`
}

func (EmployeeContractFields) Category() Category { return CategoryEmployeeContract }

func (f EmployeeContractFields) Pairs() []Field {
	return []Field{
		{Name: "employer_name", Value: f.EmployerName},
		{Name: "employee_name", Value: f.EmployeeName},
		{Name: "job_title", Value: f.JobTitle},
		{Name: "start_date", Value: f.StartDate},
		{Name: "end_date", Value: f.EndDate},
		{Name: "salary", Value: f.Salary},
		{Name: "renewal_date", Value: f.RenewalDate},
	}
}

// EmptyFields returns the all-null variant for a category.
func EmptyFields(c Category) Fields {
	switch c {
	case CategoryLoanAgreement:
		return LoanAgreementFields{}
	case CategoryNDA:
		return NdaFields{}
	case CategoryEmployeeContract:
		return EmployeeContractFields{}
	default:
		return nil
	}
}

// SchemaFields lists the extracted field names of a category.
func SchemaFields(c Category) []string {
	fields := EmptyFields(c)
	if fields == nil {
		return nil
	}
	pairs := fields.Pairs()
	names := make([]string, 0, len(pairs))
	for _, p := range pairs {
		names = append(names, p.Name)
	}
	return names
}

// FieldsFromValues builds the category variant from a loosely typed mapping.
// Keys outside the schema are ignored; scalars are converted to strings.
func FieldsFromValues(c Category, values map[string]any) Fields {
	get := func(name string) *string {
		return StringValue(values[name])
	}
	switch c {
	case CategoryLoanAgreement:
		return LoanAgreementFields{
			LenderName:   get("lender_name"),
			BorrowerName: get("borrower_name"),
			LoanAmount:   get("loan_amount"),
			InterestRate: get("interest_rate"),
			DueDate:      get("due_date"),
		}
	case CategoryNDA:
		return NdaFields{
			DisclosingParty: get("disclosing_party"),
			ReceivingParty:  get("receiving_party"),
			EffectiveDate:   get("effective_date"),
		}
	case CategoryEmployeeContract:
		return EmployeeContractFields{
			EmployerName: get("employer_name"),
			EmployeeName: get("employee_name"),
			JobTitle:     get("job_title"),
			StartDate:    get("start_date"),
			EndDate:      get("end_date"),
			Salary:       get("salary"),
			RenewalDate:  get("renewal_date"),
		}
	default:
		return nil
	}
}

// StringValue normalizes a decoded JSON value into a nullable string.
// Empty strings and the literal "null" are treated as absent.
func StringValue(v any) *string {
	var s string
	switch typed := v.(type) {
	case nil:
		return nil
	case string:
		s = typed
	case float64:
		s = strconv.FormatFloat(typed, 'f', -1, 64)
	case int:
		s = strconv.Itoa(typed)
	case int64:
		s = strconv.FormatInt(typed, 10)
	case bool:
		s = strconv.FormatBool(typed)
	case json.Number:
		s = typed.String()
	default:
		raw, err := json.Marshal(typed)
		if err != nil {
			return nil
		}
		s = string(raw)
	}
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "null") {
		return nil
	}
	return &s
}

// FieldValue returns the value of a named field, or "" when absent.
func FieldValue(f Fields, name string) string {
	if f == nil {
		return ""
	}
	for _, p := range f.Pairs() {
		if p.Name == name && p.Value != nil {
			return *p.Value
		}
	}
	return ""
}
