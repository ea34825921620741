package sheetsreport

import (
	"context"
	"fmt"

	"github.com/elC0mpa/aws-reaper/model"
	"google.golang.org/api/option"
	sheets "google.golang.org/api/sheets/v4"
)

func NewService(ctx context.Context, spreadsheetID, credentialsFile string) (*service, error) {
	client, err := sheets.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets client: %w", err)
	}

	return &service{
		client:        client,
		spreadsheetID: spreadsheetID,
	}, nil
}

// WriteReport adds one worksheet per report sheet to the configured
// spreadsheet and fills it with the header and rows. Worksheet names are
// prefixed with the report title so repeated runs on different days coexist.
func (s *service) WriteReport(ctx context.Context, title string, reportSheets []model.ReportSheet) (string, error) {
	var requests []*sheets.Request
	for _, sheet := range reportSheets {
		requests = append(requests, &sheets.Request{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{
					Title: s.worksheetName(title, sheet.Name),
					GridProperties: &sheets.GridProperties{
						FrozenRowCount: 1,
					},
				},
			},
		})
	}

	_, err := s.client.Spreadsheets.BatchUpdate(s.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: requests,
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to add report worksheets: %w", err)
	}

	for _, sheet := range reportSheets {
		values := make([][]interface{}, 0, len(sheet.Rows)+1)
		header := make([]interface{}, len(sheet.Header))
		for i, cell := range sheet.Header {
			header[i] = cell
		}
		values = append(values, header)

		for _, row := range sheet.Rows {
			cells := make([]interface{}, len(row))
			for i, cell := range row {
				cells[i] = cell
			}
			values = append(values, cells)
		}

		rangeName := fmt.Sprintf("'%s'!A1", s.worksheetName(title, sheet.Name))
		_, err := s.client.Spreadsheets.Values.Update(s.spreadsheetID, rangeName, &sheets.ValueRange{
			Values: values,
		}).ValueInputOption("RAW").Context(ctx).Do()
		if err != nil {
			return "", fmt.Errorf("failed to write worksheet %s: %w", sheet.Name, err)
		}
	}

	return fmt.Sprintf("https://docs.google.com/spreadsheets/d/%s", s.spreadsheetID), nil
}

func (s *service) worksheetName(title, name string) string {
	return title + " " + name
}
