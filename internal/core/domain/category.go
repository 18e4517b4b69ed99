package domain

import (
	"fmt"
	"strings"
)

// Category is the closed set of supported contract types.
type Category string

const (
	CategoryLoanAgreement    Category = "loan_agreement"
	CategoryNDA              Category = "nda"
	CategoryEmployeeContract Category = "employee_contract"
)

const (
	CollectionLoanAgreements    = "loan_agreements"
	CollectionNDAs              = "ndas"
	CollectionEmployeeContracts = "employee_contracts"
)

var categories = []Category{CategoryLoanAgreement, CategoryNDA, CategoryEmployeeContract}

// AllCategories returns categories in their canonical order.
func AllCategories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// AllCollections returns the collection of every category, in canonical order.
func AllCollections() []string {
	out := make([]string, 0, len(categories))
	for _, c := range categories {
		out = append(out, c.Collection())
	}
	return out
}

// ParseCategory accepts the canonical tag plus loose variants such as "NDA" or "loan agreement".
func ParseCategory(raw string) (Category, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	normalized = strings.NewReplacer(" ", "_", "-", "_").Replace(normalized)
	for _, c := range categories {
		if normalized == string(c) {
			return c, nil
		}
	}
	return "", InvalidInput("parse category", fmt.Sprintf("invalid category %q, must be one of loan_agreement, nda, employee_contract", raw))
}

func (c Category) Valid() bool {
	return c.Collection() != ""
}

// Collection names the vector collection holding records of this category.
func (c Category) Collection() string {
	switch c {
	case CategoryLoanAgreement:
		return CollectionLoanAgreements
	case CategoryNDA:
		return CollectionNDAs
	case CategoryEmployeeContract:
		return CollectionEmployeeContracts
	default:
		return ""
	}
}

// CategoryForCollection is the inverse of Category.Collection.
func CategoryForCollection(collection string) (Category, bool) {
	for _, c := range categories {
		if c.Collection() == collection {
			return c, true
		}
	}
	return "", false
}

// IsContractCollection reports whether name is one of the per-category collections.
func IsContractCollection(name string) bool {
	_, ok := CategoryForCollection(name)
	return ok
}
