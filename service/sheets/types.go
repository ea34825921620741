package sheetsreport

import (
	"context"

	"github.com/elC0mpa/aws-reaper/model"
	sheets "google.golang.org/api/sheets/v4"
)

type service struct {
	client        *sheets.Service
	spreadsheetID string
}

type ReportService interface {
	WriteReport(ctx context.Context, title string, reportSheets []model.ReportSheet) (string, error)
}
