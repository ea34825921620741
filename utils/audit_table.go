package utils

import (
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// AuditSummary is one row of the per-kind console summary drawn after an
// audit pass.
type AuditSummary struct {
	Kind           string
	Total          int
	Active         int
	MonthlyCost    float64
	DueToStop      int
	DueToTerminate int
}

// DrawAuditTable displays the per-kind audit outcome on the console.
func DrawAuditTable(accountID string, summaries []AuditSummary) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetTitle("Audit summary for account %s", accountID)
	tw.AppendHeader(table.Row{"Kind", "Total", "Active", "Est. Monthly Cost", "Due To Stop", "Due To Terminate"})
	tw.SetStyle(table.StyleRounded)

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
	})

	var totalCost float64
	for _, s := range summaries {
		tw.AppendRow(table.Row{s.Kind, s.Total, s.Active, MoneyToString(s.MonthlyCost), s.DueToStop, s.DueToTerminate})
		totalCost += s.MonthlyCost
	}
	tw.AppendFooter(table.Row{"", "", "", text.FgHiYellow.Sprint(MoneyToString(totalCost)), "", ""})

	tw.Render()
}
