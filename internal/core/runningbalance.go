package core

import (
	"sort"
	"time"
)

type (
	// Event is a single signed movement used for the balance trace.
	Event struct {
		Type   TxType
		Amount Money
		Date   time.Time
	}

	RunningBalancePoint struct {
		Label             time.Time `json:"label"`
		CumulativeBalance Money     `json:"cumulativeBalance"`
		Delta             Money     `json:"delta"`
		// Seed marks the synthesized zero point; it carries no delta label.
		Seed bool `json:"seed,omitempty"`
	}
)

// EventsFrom projects transactions onto balance events.
func EventsFrom(txs []Transaction) []Event {
	out := make([]Event, 0, len(txs))
	for _, t := range txs {
		out = append(out, Event{Type: t.Type, Amount: t.Amount, Date: t.Date})
	}
	return out
}

func (e Event) delta() Money {
	if e.Type == Income {
		return e.Amount
	}
	return e.Amount.Neg()
}

// BuildRunningBalance derives the cumulative balance trace. Events win over
// aggregate points when both are given. Points are expected in ascending
// order already; events are sorted here without touching the caller's slice.
//
// A single resulting point gets a zero seed point before it, one minute
// earlier for events and one day earlier for aggregate points.
func BuildRunningBalance(events []Event, points []AggregatePoint) []RunningBalancePoint {
	var (
		out  []RunningBalancePoint
		bal  Money
		step time.Duration
	)
	if len(events) > 0 {
		sorted := make([]Event, len(events))
		copy(sorted, events)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

		out = make([]RunningBalancePoint, 0, len(sorted)+1)
		for _, e := range sorted {
			d := e.delta()
			bal = bal.Add(d)
			out = append(out, RunningBalancePoint{Label: e.Date, CumulativeBalance: bal, Delta: d})
		}
		step = time.Minute
	} else {
		out = make([]RunningBalancePoint, 0, len(points)+1)
		for _, p := range points {
			d := p.Income.Sub(p.Expense)
			bal = bal.Add(d)
			out = append(out, RunningBalancePoint{Label: p.Date, CumulativeBalance: bal, Delta: d})
		}
		step = 24 * time.Hour
	}

	if len(out) == 1 {
		seed := RunningBalancePoint{Label: out[0].Label.Add(-step), Seed: true}
		out = append([]RunningBalancePoint{seed}, out...)
	}
	return out
}
