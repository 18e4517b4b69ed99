package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/kirillkom/contract-intelligence/internal/core/domain"
	"github.com/kirillkom/contract-intelligence/internal/core/ports"
)

// AlertBucket is the tier an alert rule assigns.
type AlertBucket int

const (
	BucketNone AlertBucket = iota
	BucketAlert
	BucketReminder
)

// AlertWindows holds the day-offset thresholds of the classification rules.
type AlertWindows struct {
	AlertMaxDays    int
	ReminderMinDays int
	ReminderMaxDays int
	LoanPaymentDays int
}

func DefaultAlertWindows() AlertWindows {
	return AlertWindows{
		AlertMaxDays:    20,
		ReminderMinDays: 21,
		ReminderMaxDays: 60,
		LoanPaymentDays: 5,
	}
}

// AlertCandidate is a record with one parsed deadline.
type AlertCandidate struct {
	Record     domain.ContractRecord
	Collection string
	Field      domain.DateField
	Date       string
	DaysLeft   int
}

// AlertRule assigns Bucket to candidates it matches.
type AlertRule struct {
	Name    string
	Bucket  AlertBucket
	Matches func(AlertCandidate) bool
}

// DefaultAlertRules is evaluated top-down and stops at the first match: the loan payment window
// comes before the generic windows so a loan due in a few days is never reclassified.
func DefaultAlertRules(w AlertWindows) []AlertRule {
	return []AlertRule{
		{
			Name:   "loan-payment",
			Bucket: BucketAlert,
			Matches: func(c AlertCandidate) bool {
				return c.Collection == domain.CollectionLoanAgreements &&
					c.Field.Tag.Kind() == domain.AlertKindLoanDue &&
					between(c.DaysLeft, 0, w.LoanPaymentDays)
			},
		},
		{
			Name:   "generic-alert",
			Bucket: BucketAlert,
			Matches: func(c AlertCandidate) bool {
				return between(c.DaysLeft, 0, w.AlertMaxDays)
			},
		},
		{
			Name:   "generic-reminder",
			Bucket: BucketReminder,
			Matches: func(c AlertCandidate) bool {
				return between(c.DaysLeft, w.ReminderMinDays, w.ReminderMaxDays)
			},
		},
	}
}

// ClassifyCandidate returns the bucket and name of the first matching rule.
func ClassifyCandidate(rules []AlertRule, c AlertCandidate) (AlertBucket, string) {
	for _, rule := range rules {
		if rule.Matches(c) {
			return rule.Bucket, rule.Name
		}
	}
	return BucketNone, ""
}

func between(v, lo, hi int) bool {
	return v >= lo && v <= hi
}

type AlertEngineOption func(*AlertEngine)

// WithClock overrides the source of "today".
func WithClock(now func() time.Time) AlertEngineOption {
	return func(e *AlertEngine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLocation sets the time zone "today" is computed in.
func WithLocation(loc *time.Location) AlertEngineOption {
	return func(e *AlertEngine) {
		if loc != nil {
			e.location = loc
		}
	}
}

// AlertEngine scans every date-bearing field of every collection and buckets deadlines.
type AlertEngine struct {
	store    ports.ContractStore
	rules    []AlertRule
	now      func() time.Time
	location *time.Location
}

func NewAlertEngine(store ports.ContractStore, windows AlertWindows, opts ...AlertEngineOption) *AlertEngine {
	e := &AlertEngine{
		store:    store,
		rules:    DefaultAlertRules(windows),
		now:      time.Now,
		location: time.UTC,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Compute returns alerts and reminders sorted ascending by days left. Entries carry no viewable URL.
func (e *AlertEngine) Compute(ctx context.Context) (domain.AlertsReport, error) {
	today := e.today()
	report := domain.AlertsReport{
		Alerts:    []domain.AlertEntry{},
		Reminders: []domain.AlertEntry{},
	}

	for _, collection := range domain.AllCollections() {
		exists, err := e.store.CollectionExists(ctx, collection)
		if err != nil {
			return domain.AlertsReport{}, fmt.Errorf("check collection %s: %w", collection, err)
		}
		if !exists {
			continue
		}

		candidates, err := e.collectCandidates(ctx, collection, today)
		if err != nil {
			return domain.AlertsReport{}, err
		}
		for _, c := range candidates {
			bucket, _ := ClassifyCandidate(e.rules, c)
			switch bucket {
			case BucketAlert:
				report.Alerts = append(report.Alerts, toAlertEntry(c))
			case BucketReminder:
				report.Reminders = append(report.Reminders, toAlertEntry(c))
			}
		}
	}

	sortAlertEntries(report.Alerts)
	sortAlertEntries(report.Reminders)
	return report, nil
}

// collectCandidates keeps, per record, the first date field in scan order whose deadline has not passed.
func (e *AlertEngine) collectCandidates(ctx context.Context, collection string, today time.Time) ([]AlertCandidate, error) {
	seen := make(map[string]struct{})
	var out []AlertCandidate
	for _, field := range domain.DateFields(collection) {
		records, err := e.store.ScrollWithField(ctx, collection, field.Name)
		if err != nil {
			return nil, fmt.Errorf("scan %s.%s: %w", collection, field.Name, err)
		}
		for _, rec := range records {
			if _, dup := seen[rec.ID]; dup {
				continue
			}
			raw := domain.FieldValue(rec.Fields, field.Name)
			date, ok := ParseContractDate(raw)
			if !ok {
				continue
			}
			daysLeft := int(date.Sub(today).Hours() / 24)
			if daysLeft < 0 {
				continue
			}
			seen[rec.ID] = struct{}{}
			out = append(out, AlertCandidate{
				Record:     rec,
				Collection: collection,
				Field:      field,
				Date:       raw,
				DaysLeft:   daysLeft,
			})
		}
	}
	return out, nil
}

func (e *AlertEngine) today() time.Time {
	now := e.now().In(e.location)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseContractDate reads M/D/YYYY, ignoring anything after the first space or 'T'.
func ParseContractDate(raw string) (time.Time, bool) {
	value := strings.TrimSpace(raw)
	if idx := strings.IndexAny(value, " T"); idx >= 0 {
		value = value[:idx]
	}
	if value == "" {
		return time.Time{}, false
	}
	parsed, err := time.Parse("1/2/2006", value)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}

func toAlertEntry(c AlertCandidate) domain.AlertEntry {
	return domain.AlertEntry{
		ID:         c.Record.ID,
		Title:      domain.AlertTitle(c.Record),
		DaysLeft:   c.DaysLeft,
		Date:       c.Date,
		Type:       c.Field.Tag.Kind(),
		Collection: c.Collection,
		S3URL:      c.Record.S3URL,
	}
}

func sortAlertEntries(entries []domain.AlertEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].DaysLeft != entries[j].DaysLeft {
			return entries[i].DaysLeft < entries[j].DaysLeft
		}
		if entries[i].Collection != entries[j].Collection {
			return entries[i].Collection < entries[j].Collection
		}
		return entries[i].ID < entries[j].ID
	})
}
