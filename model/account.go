package model

// AccountInfo identifies the AWS account a run is auditing.
type AccountInfo struct {
	AccountID   string
	AccountName string
}

// ReportSheet is one worksheet of the audit report: a named header plus rows.
type ReportSheet struct {
	Name   string
	Header []string
	Rows   [][]string
}
