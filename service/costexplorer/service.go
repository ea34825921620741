package awscostexplorer

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer/types"
)

func NewService(awsconfig aws.Config) *service {
	client := costexplorer.NewFromConfig(awsconfig)
	return &service{
		client: client,
	}
}

// GetCurrentMonthTotalCosts returns the billed month-to-date spend, rendered
// as "amount unit".
func (s *service) GetCurrentMonthTotalCosts(ctx context.Context) (*string, error) {
	return s.getMonthTotalCosts(ctx, time.Now())
}

func (s *service) getMonthTotalCosts(ctx context.Context, endDate time.Time) (*string, error) {
	firstOfMonth := s.getFirstDayOfMonth(endDate)
	costsAggregation := "UnblendedCost"

	input := &costexplorer.GetCostAndUsageInput{
		Granularity: types.GranularityMonthly,
		TimePeriod: &types.DateInterval{
			Start: aws.String(firstOfMonth.Format("2006-01-02")),
			End:   aws.String(endDate.Format("2006-01-02")),
		},
		Metrics: []string{costsAggregation},
	}

	output, err := s.client.GetCostAndUsage(ctx, input)
	if err != nil {
		return nil, err
	}
	if len(output.ResultsByTime) == 0 {
		return nil, fmt.Errorf("no cost results for period starting %s", firstOfMonth.Format("2006-01-02"))
	}

	totalInfo := output.ResultsByTime[0].Total[costsAggregation]
	amount, err := strconv.ParseFloat(aws.ToString(totalInfo.Amount), 64)
	if err != nil {
		return nil, fmt.Errorf("could not parse total amount %q: %w", aws.ToString(totalInfo.Amount), err)
	}

	total := fmt.Sprintf("%.2f %s", amount, aws.ToString(totalInfo.Unit))
	return &total, nil
}

func (s *service) getFirstDayOfMonth(month time.Time) time.Time {
	return time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, month.Location())
}
