package core

import (
	"errors"
	"sort"
	"strings"
	"time"
)

type Granularity string

const (
	Day   Granularity = "day"
	Month Granularity = "month"
	Year  Granularity = "year"
)

var ErrInvalidGranularity = errors.New("granularity must be day, month or year")

type (
	Totals struct {
		Income  Money `json:"income"`
		Expense Money `json:"expense"`
		Balance Money `json:"balance"`
	}

	// AggregatePoint sums one calendar bucket. Balance is for that bucket only.
	AggregatePoint struct {
		Date    time.Time `json:"date"`
		Income  Money     `json:"income"`
		Expense Money     `json:"expense"`
		Balance Money     `json:"balance"`
	}

	BucketSpend struct {
		Bucket Bucket `json:"bucket"`
		Amount Money  `json:"amount"`
		Count  int    `json:"count"`
	}

	// calendarKey leaves month and day at zero when the granularity omits
	// them, so they sort below any present value.
	calendarKey struct {
		year, month, day int
	}

	flow struct {
		income, expense int64
	}
)

// ParseGranularity defaults to Day when s is empty.
func ParseGranularity(s string) (Granularity, error) {
	switch g := Granularity(strings.ToLower(strings.TrimSpace(s))); g {
	case "":
		return Day, nil
	case Day, Month, Year:
		return g, nil
	}
	return "", ErrInvalidGranularity
}

func keyFor(t time.Time, g Granularity) calendarKey {
	t = t.UTC()
	switch g {
	case Year:
		return calendarKey{year: t.Year()}
	case Month:
		return calendarKey{year: t.Year(), month: int(t.Month())}
	default:
		return calendarKey{year: t.Year(), month: int(t.Month()), day: t.Day()}
	}
}

func (k calendarKey) less(o calendarKey) bool {
	if k.year != o.year {
		return k.year < o.year
	}
	if k.month != o.month {
		return k.month < o.month
	}
	return k.day < o.day
}

func (k calendarKey) date() time.Time {
	return time.Date(k.year, time.Month(max(k.month, 1)), max(k.day, 1), 0, 0, 0, 0, time.UTC)
}

func (f *flow) add(t Transaction) {
	switch t.Type {
	case Income:
		f.income += t.Amount.Cents
	case Expense:
		f.expense += t.Amount.Cents
	}
}

func owned(t Transaction, userID string, r *Range) bool {
	return t.UserID == userID && r.Contains(t.Date)
}

// ComputeTotals sums income and expense of userID's transactions in r.
func ComputeTotals(txs []Transaction, userID string, r *Range) (Totals, error) {
	if userID == "" {
		return Totals{}, ErrMissingUser
	}
	var f flow
	for _, t := range txs {
		if owned(t, userID, r) {
			f.add(t)
		}
	}
	return Totals{
		Income:  Money{Cents: f.income},
		Expense: Money{Cents: f.expense},
		Balance: Money{Cents: f.income - f.expense},
	}, nil
}

// Summarize groups userID's transactions in r by calendar bucket and
// returns one point per bucket in ascending order. No matching
// transactions yields an empty, non-nil slice.
func Summarize(txs []Transaction, userID string, r *Range, g Granularity) ([]AggregatePoint, error) {
	if userID == "" {
		return nil, ErrMissingUser
	}
	if g == "" {
		g = Day
	}
	if g != Day && g != Month && g != Year {
		return nil, ErrInvalidGranularity
	}

	acc := make(map[calendarKey]*flow)
	for _, t := range txs {
		if !owned(t, userID, r) {
			continue
		}
		k := keyFor(t.Date, g)
		f, ok := acc[k]
		if !ok {
			f = &flow{}
			acc[k] = f
		}
		f.add(t)
	}

	keys := make([]calendarKey, 0, len(acc))
	for k := range acc {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].less(keys[j]) })

	points := make([]AggregatePoint, 0, len(keys))
	for _, k := range keys {
		f := acc[k]
		points = append(points, AggregatePoint{
			Date:    k.date(),
			Income:  Money{Cents: f.income},
			Expense: Money{Cents: f.expense},
			Balance: Money{Cents: f.income - f.expense},
		})
	}
	return points, nil
}

// SpendingByBucket sums userID's expenses in r per bucket. Buckets are
// reported in classifier order and empty ones are left out.
func SpendingByBucket(txs []Transaction, userID string, r *Range) ([]BucketSpend, error) {
	if userID == "" {
		return nil, ErrMissingUser
	}
	sums := make(map[Bucket]*BucketSpend)
	for _, t := range txs {
		if t.Type != Expense || !owned(t, userID, r) {
			continue
		}
		b := t.Bucket
		if b == "" {
			b = BucketMiscellaneous
		}
		s, ok := sums[b]
		if !ok {
			s = &BucketSpend{Bucket: b}
			sums[b] = s
		}
		s.Amount = s.Amount.Add(t.Amount)
		s.Count++
	}
	out := make([]BucketSpend, 0, len(sums))
	for _, b := range ExpenseBuckets() {
		if s, ok := sums[b]; ok {
			out = append(out, *s)
		}
	}
	return out, nil
}
