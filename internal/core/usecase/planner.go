package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/kirillkom/contract-intelligence/internal/core/domain"
	"github.com/kirillkom/contract-intelligence/internal/core/ports"
)

// QueryPlanner turns free text into a search plan restricted to an allow-listed filter vocabulary.
type QueryPlanner struct {
	oracle ports.Oracle
}

func NewQueryPlanner(oracle ports.Oracle) *QueryPlanner {
	return &QueryPlanner{oracle: oracle}
}

// Plan never fails: oracle errors, unparsable replies and empty queries yield the fallback plan.
// category may be empty for an unscoped query.
func (p *QueryPlanner) Plan(ctx context.Context, query string, category domain.Category) domain.SearchPlan {
	query = strings.TrimSpace(query)
	fallback := domain.FallbackPlan(query)
	if query == "" || p.oracle == nil {
		return fallback
	}

	allowed := AllowedFilterKeys(category)
	raw, err := p.oracle.Complete(ctx, buildPlannerSystemPrompt(allowed), buildPlannerUserPrompt(query))
	if err != nil {
		slog.Warn("planner_fallback", "reason", "oracle_error", "error", err)
		return fallback
	}

	decoded, err := decodeOracleObject(raw)
	if err != nil {
		slog.Warn("planner_fallback", "reason", "unparsable_reply", "error", err)
		return fallback
	}

	plan := domain.SearchPlan{
		SemanticQuery: query,
		Filters:       sanitizeFilters(decoded["filters"], allowed, category),
	}
	if semantic := domain.StringValue(decoded["semantic_query"]); semantic != nil {
		plan.SemanticQuery = *semantic
	}
	return plan
}

// AllowedFilterKeys is the category's schema plus "category", or the union over all
// categories when category is empty. Order is stable.
func AllowedFilterKeys(category domain.Category) []string {
	scope := domain.AllCategories()
	if category.Valid() {
		scope = []domain.Category{category}
	}
	seen := make(map[string]struct{})
	keys := make([]string, 0, 16)
	for _, c := range scope {
		for _, name := range domain.SchemaFields(c) {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			keys = append(keys, name)
		}
	}
	return append(keys, domain.PayloadCategory)
}

func sanitizeFilters(raw any, allowed []string, scope domain.Category) map[string]string {
	out := map[string]string{}
	values, ok := raw.(map[string]any)
	if !ok {
		return out
	}
	permitted := make(map[string]struct{}, len(allowed))
	for _, key := range allowed {
		permitted[key] = struct{}{}
	}

	for key, value := range values {
		if _, ok := permitted[key]; !ok {
			slog.Debug("planner_filter_dropped", "key", key)
			continue
		}
		s := domain.StringValue(value)
		if s == nil {
			continue
		}
		if key == domain.PayloadCategory {
			c, err := domain.ParseCategory(*s)
			if err != nil {
				continue
			}
			if scope.Valid() && c != scope {
				continue
			}
			out[key] = string(c)
			continue
		}
		out[key] = *s
	}
	return out
}
