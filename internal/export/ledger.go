// Package export renders a user's ledger as an XML statement.
package export

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/beevik/etree"

	"finpilot/internal/core"
)

// Statement is everything a ledger export contains.
type Statement struct {
	UserID       string
	Range        *core.Range
	GeneratedAt  time.Time
	Transactions []core.Transaction
}

// Document builds the statement tree. Totals are computed from the
// transactions given, so the document is self-consistent.
func Document(s Statement) (*etree.Document, error) {
	totals, err := core.ComputeTotals(s.Transactions, s.UserID, nil)
	if err != nil {
		return nil, err
	}

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("ledger")
	root.CreateAttr("user", s.UserID)
	root.CreateAttr("generated", s.GeneratedAt.UTC().Format(time.RFC3339))

	period := root.CreateElement("period")
	if s.Range != nil {
		if !s.Range.From.IsZero() {
			period.CreateAttr("from", s.Range.From.UTC().Format(time.RFC3339))
		}
		if !s.Range.To.IsZero() {
			period.CreateAttr("to", s.Range.To.UTC().Format(time.RFC3339))
		}
	}

	sum := root.CreateElement("totals")
	sum.CreateElement("income").SetText(totals.Income.String())
	sum.CreateElement("expense").SetText(totals.Expense.String())
	sum.CreateElement("balance").SetText(totals.Balance.String())

	list := root.CreateElement("transactions")
	list.CreateAttr("count", strconv.Itoa(len(s.Transactions)))
	for _, t := range s.Transactions {
		el := list.CreateElement("transaction")
		el.CreateAttr("id", t.ID)
		el.CreateAttr("type", string(t.Type))
		el.CreateAttr("bucket", string(t.Bucket))
		el.CreateElement("date").SetText(t.Date.UTC().Format(time.RFC3339))
		el.CreateElement("amount").SetText(t.Amount.String())
		el.CreateElement("category").SetText(t.Category)
		if t.Note != "" {
			el.CreateElement("note").SetText(t.Note)
		}
	}
	return doc, nil
}

// WriteLedger writes the indented statement to w.
func WriteLedger(w io.Writer, s Statement) error {
	doc, err := Document(s)
	if err != nil {
		return err
	}
	doc.Indent(2)
	if _, err := doc.WriteTo(w); err != nil {
		return fmt.Errorf("write ledger xml: %w", err)
	}
	return nil
}
