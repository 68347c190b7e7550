package core

import "math"

// GoalProgress is the dashboard view of a yearly goal.
type GoalProgress struct {
	Goal        Goal  `json:"goal"`
	Income      Money `json:"income"`
	Expense     Money `json:"expense"`
	Balance     Money `json:"balance"`
	SavingsRate int   `json:"savingsRate"`
	Percent     int   `json:"percent"`
	Reached     bool  `json:"reached"`
}

// SavingsRate is the share of income kept, in whole percent, never negative.
// Income below one unit counts as one unit.
func SavingsRate(income, balance Money) int {
	denom := max(income.Cents, 100)
	rate := math.Round(float64(balance.Cents) / float64(denom) * 100)
	return int(max(rate, 0))
}

// Progress measures totals against goal. A goal with no amount is never
// reached.
func Progress(goal Goal, t Totals) GoalProgress {
	p := GoalProgress{
		Goal:        goal,
		Income:      t.Income,
		Expense:     t.Expense,
		Balance:     t.Balance,
		SavingsRate: SavingsRate(t.Income, t.Balance),
	}
	if goal.Amount.Cents > 0 {
		pct := math.Round(float64(t.Balance.Cents) / float64(goal.Amount.Cents) * 100)
		p.Percent = int(min(max(pct, 0), 100))
		p.Reached = t.Balance.Cents >= goal.Amount.Cents
	}
	return p
}
