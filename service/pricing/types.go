package awspricing

import (
	"context"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/pricing"
)

type service struct {
	client *pricing.Client

	mu    sync.Mutex
	cache map[string]float64
}

type PricingService interface {
	MonthlyInstancePrice(ctx context.Context, region, instanceType, operatingSystem string) (float64, error)
}
