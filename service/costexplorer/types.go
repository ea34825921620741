package awscostexplorer

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
)

type service struct {
	client *costexplorer.Client
}

type CostService interface {
	GetCurrentMonthTotalCosts(ctx context.Context) (*string, error)
}
