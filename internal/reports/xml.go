package reports

import (
	"fmt"
	"time"

	"github.com/beevik/etree"

	"github.com/punchamoorthee/expensemanager/internal/domain"
)

// StatementXML renders an account statement as an XML document.
func StatementXML(account *domain.Account, lines []domain.StatementLine, generatedAt time.Time) ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("Statement")
	root.CreateAttr("generated", generatedAt.UTC().Format(time.RFC3339))

	acct := root.CreateElement("Account")
	acct.CreateAttr("id", account.ID.String())
	acct.CreateElement("Name").SetText(account.Name)
	acct.CreateElement("Type").SetText(string(account.Type))
	acct.CreateElement("InitialBalance").SetText(account.InitialBalance.StringFixed(2))
	acct.CreateElement("CurrentBalance").SetText(account.CurrentBalance.StringFixed(2))

	txs := root.CreateElement("Transactions")
	txs.CreateAttr("count", fmt.Sprint(len(lines)))
	for _, l := range lines {
		tx := txs.CreateElement("Transaction")
		tx.CreateAttr("id", l.TransactionID.String())
		tx.CreateElement("Date").SetText(l.TransactionDate.Format("2006-01-02"))
		tx.CreateElement("Type").SetText(string(l.Type))
		tx.CreateElement("Amount").SetText(l.Amount.StringFixed(2))
		if l.Category != "" {
			tx.CreateElement("Category").SetText(l.Category)
		}
		if l.Description != "" {
			tx.CreateElement("Description").SetText(l.Description)
		}
	}

	doc.Indent(2)
	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("failed to render statement: %w", err)
	}
	return out, nil
}
