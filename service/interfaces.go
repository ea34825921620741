package service

import (
	"context"

	"github.com/elC0mpa/aws-reaper/model"
)

// ResourceService enumerates and mutates the EC2-backed resources under audit
type ResourceService interface {
	ListRegions(ctx context.Context) ([]string, error)
	ListResources(ctx context.Context, region string, kind model.Kind) ([]model.Resource, error)
	SetTag(ctx context.Context, region, resourceID, tagName, tagValue string, dryrun bool) error
	StopInstance(ctx context.Context, region, instanceID string, dryrun bool) error
	TerminateResource(ctx context.Context, resource *model.Resource, dryrun bool) error
}

// PricingService looks up on-demand compute prices from the price catalog
type PricingService interface {
	MonthlyInstancePrice(ctx context.Context, region, instanceType, operatingSystem string) (float64, error)
}

// IdentityService provides account identity information
type IdentityService interface {
	GetAccountInfo(ctx context.Context) (*model.AccountInfo, error)
}

// SpendService provides actual billed spend for the audit summary
type SpendService interface {
	GetCurrentMonthTotalCosts(ctx context.Context) (*string, error)
}

// NotifierService delivers outgoing messages and resolves owner contacts
type NotifierService interface {
	SendMessage(ctx context.Context, channel, text string) error
	LookupUserByEmail(ctx context.Context, email string) string
}

// ReportService writes the tabular audit report and returns its URL
type ReportService interface {
	WriteReport(ctx context.Context, title string, sheets []model.ReportSheet) (string, error)
}
