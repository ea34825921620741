package awsec2

import (
	"context"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/elC0mpa/aws-reaper/model"
)

// PricingService is the slice of the price catalog the enumerator needs to
// price instances while building them.
type PricingService interface {
	MonthlyInstancePrice(ctx context.Context, region, instanceType, operatingSystem string) (float64, error)
}

type service struct {
	cfg     aws.Config
	pricing PricingService

	mu      sync.Mutex
	clients map[string]*ec2.Client
}

type EC2Service interface {
	ListRegions(ctx context.Context) ([]string, error)
	ListResources(ctx context.Context, region string, kind model.Kind) ([]model.Resource, error)
	SetTag(ctx context.Context, region, resourceID, tagName, tagValue string, dryrun bool) error
	StopInstance(ctx context.Context, region, instanceID string, dryrun bool) error
	TerminateResource(ctx context.Context, resource *model.Resource, dryrun bool) error
}
