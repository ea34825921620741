package orchestrator

import (
	"context"

	"github.com/elC0mpa/aws-reaper/service"
)

type orchestratorService struct {
	resourceService service.ResourceService
	identityService service.IdentityService
	spendService    service.SpendService
	notifierService service.NotifierService
	reportService   service.ReportService
}

type OrchestratorService interface {
	Notify(ctx context.Context, channel string, dryrun bool) error
	Execute(ctx context.Context, channel string, dryrun bool) error
}
