package sheets

import (
	"testing"
	"time"

	"finpilot/internal/core"
)

func TestRowFollowsHeader(t *testing.T) {
	tx := core.Transaction{
		ID:       "t1",
		UserID:   "u1",
		Type:     core.Expense,
		Amount:   core.Money{Cents: 1250},
		Category: "Dinner",
		Bucket:   core.BucketFood,
		Note:     "friends",
		Date:     time.Date(2024, 5, 3, 22, 0, 0, 0, time.UTC),
	}
	row := Row(tx)
	if len(row) != len(Header) {
		t.Fatalf("row has %d cells, header %d", len(row), len(Header))
	}
	want := []any{"2024-05-03", "expense", "Dinner", "food", "friends", "12.50", "u1", "t1"}
	for i := range want {
		if row[i] != want[i] {
			t.Errorf("cell %s = %v, want %v", Header[i], row[i], want[i])
		}
	}
}
