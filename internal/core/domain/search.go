package domain

// SearchPlan is the structured form of a natural-language query.
type SearchPlan struct {
	SemanticQuery string            `json:"semantic_query"`
	Filters       map[string]string `json:"filters"`
}

// FallbackPlan is the semantic-only plan used whenever planning fails.
func FallbackPlan(query string) SearchPlan {
	return SearchPlan{SemanticQuery: query, Filters: map[string]string{}}
}

// HasFilters reports whether the plan carries at least one payload filter.
func (p SearchPlan) HasFilters() bool {
	return len(p.Filters) > 0
}

// CategoryFilter returns the category the plan filters on, if any.
func (p SearchPlan) CategoryFilter() (Category, bool) {
	raw, ok := p.Filters[PayloadCategory]
	if !ok {
		return "", false
	}
	c, err := ParseCategory(raw)
	if err != nil {
		return "", false
	}
	return c, true
}

// MatchMode selects how a payload condition is compared.
type MatchMode string

const (
	MatchKeyword MatchMode = "keyword"
	MatchText    MatchMode = "text"
)

// FieldCondition is a single payload match condition.
type FieldCondition struct {
	Key   string
	Value string
	Mode  MatchMode
}

// PayloadFilter is a conjunction of field conditions.
type PayloadFilter struct {
	Must []FieldCondition
}

func (f PayloadFilter) Empty() bool {
	return len(f.Must) == 0
}

// FilterFromPlan converts plan filters: category is matched exactly, other fields by tokenized text.
func FilterFromPlan(plan SearchPlan, order []string) PayloadFilter {
	var out PayloadFilter
	seen := make(map[string]struct{}, len(plan.Filters))
	add := func(key string) {
		value, ok := plan.Filters[key]
		if !ok {
			return
		}
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		mode := MatchText
		if key == PayloadCategory {
			mode = MatchKeyword
		}
		out.Must = append(out.Must, FieldCondition{Key: key, Value: value, Mode: mode})
	}
	for _, key := range order {
		add(key)
	}
	return out
}
