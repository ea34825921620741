package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/elC0mpa/aws-reaper/logger"
	"github.com/elC0mpa/aws-reaper/model"
	"github.com/elC0mpa/aws-reaper/policy"
	"github.com/elC0mpa/aws-reaper/schedule"
	"github.com/elC0mpa/aws-reaper/service"
	"github.com/elC0mpa/aws-reaper/utils"
)

// maxConcurrentScans bounds the region x kind enumeration fan-out.
const maxConcurrentScans = 8

func NewService(resourceService service.ResourceService, identityService service.IdentityService,
	spendService service.SpendService, notifierService service.NotifierService,
	reportService service.ReportService) *orchestratorService {
	return &orchestratorService{
		resourceService: resourceService,
		identityService: identityService,
		spendService:    spendService,
		notifierService: notifierService,
		reportService:   reportService,
	}
}

// Notify runs the warning phase: audit everything, write warning markers into
// the schedule tags, publish the report and post the summary. A fatal error
// is announced on the channel before being returned.
func (s *orchestratorService) Notify(ctx context.Context, channel string, dryrun bool) error {
	if err := s.notifyInternal(ctx, channel, dryrun); err != nil {
		s.announceFailure(ctx, channel, "notify", err)
		return err
	}
	return nil
}

// Execute runs the action phase: stop or terminate every resource that is
// both due and was warned with enough lead time. A fatal error is announced
// on the channel before being returned.
func (s *orchestratorService) Execute(ctx context.Context, channel string, dryrun bool) error {
	if err := s.executeInternal(ctx, channel, dryrun); err != nil {
		s.announceFailure(ctx, channel, "execute", err)
		return err
	}
	return nil
}

func (s *orchestratorService) announceFailure(ctx context.Context, channel, command string, err error) {
	text := fmt.Sprintf("aws-reaper failed to run the '%s' command: %v", command, err)
	if sendErr := s.notifierService.SendMessage(ctx, channel, text); sendErr != nil {
		logger.GetLogger().Error("could not announce failure", "channel", channel, "error", sendErr)
	}
}

// collectResources enumerates every audited kind across every region with a
// bounded worker pool. Enumeration failure is fatal for the run: without
// complete resource lists no further progress is possible.
func (s *orchestratorService) collectResources(ctx context.Context) (map[model.Kind][]model.Resource, error) {
	regions, err := s.resourceService.ListRegions(ctx)
	if err != nil {
		return nil, err
	}

	byKind := make(map[model.Kind][]model.Resource)
	sem := make(chan struct{}, maxConcurrentScans)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for _, region := range regions {
		for _, kind := range model.Kinds {
			wg.Add(1)
			go func(region string, kind model.Kind) {
				defer wg.Done()
				sem <- struct{}{}
				defer func() { <-sem }()

				resources, err := s.resourceService.ListResources(ctx, region, kind)

				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					if firstErr == nil {
						firstErr = err
					}
					return
				}
				byKind[kind] = append(byKind[kind], resources...)
			}(region, kind)
		}
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}

	// Deterministic ordering for messages and reports.
	for _, resources := range byKind {
		sort.Slice(resources, func(i, j int) bool {
			if resources[i].RegionName != resources[j].RegionName {
				return resources[i].RegionName < resources[j].RegionName
			}
			return resources[i].ID < resources[j].ID
		})
	}
	return byKind, nil
}

func (s *orchestratorService) notifyInternal(ctx context.Context, channel string, dryrun bool) error {
	clock := policy.NewClock(time.Now())

	account, err := s.identityService.GetAccountInfo(ctx)
	if err != nil {
		logger.GetLogger().Warn("could not resolve account identity", "error", err)
		account = &model.AccountInfo{}
	}

	byKind, err := s.collectResources(ctx)
	utils.StopSpinner()
	if err != nil {
		return err
	}

	var summary strings.Builder
	summary.WriteString("Hi, I'm Nagbot :wink: ")
	summary.WriteString("My job is to make sure we don't forget about unwanted AWS resources and waste money!\n")
	if spend, err := s.spendService.GetCurrentMonthTotalCosts(ctx); err != nil {
		logger.GetLogger().Warn("could not fetch month-to-date spend", "error", err)
	} else if account.AccountID != "" {
		fmt.Fprintf(&summary, "Account %s has been billed %s so far this month.\n", account.AccountID, *spend)
	}

	var reportSheets []model.ReportSheet
	var auditRows []utils.AuditSummary
	var totalsRows [][]string

	for _, kind := range model.Kinds {
		resources := byKind[kind]

		numActive := 0
		var monthlyCost float64
		for i := range resources {
			if resources[i].IsActive() {
				numActive++
			}
			if resources[i].IncludedInMonthlyPrice() {
				monthlyCost += resources[i].MonthlyPrice
			}
		}

		fmt.Fprintf(&summary, "\n*%s:*\nWe have %d %s %ss right now and %d total.\n",
			kind.ConsoleSection(), numActive, kind.ActiveState(), kind, len(resources))
		fmt.Fprintf(&summary, "The estimated monthly cost of these %ss is %s.\n",
			kind, utils.MoneyToString(monthlyCost))

		toTerminate := filterResources(resources, func(r *model.Resource) bool { return r.CanBeTerminated(clock) })
		toStop := filterResources(resources, func(r *model.Resource) bool { return r.CanBeStopped(clock) })

		if len(toTerminate) > 0 {
			fmt.Fprintf(&summary, "The following %d %ss are due to be *TERMINATED*, based on the \"Terminate after\" tag:\n",
				len(toTerminate), kind)
			for _, r := range toTerminate {
				contact := s.notifierService.LookupUserByEmail(ctx, r.Contact)
				fmt.Fprintf(&summary, "%s, \"Terminate after\"=%s, \"Monthly Price\"=%s, Contact=%s\n",
					r.Summary(), r.TerminateAfter, utils.MoneyToString(r.MonthlyPrice), contact)

				warned := schedule.AddWarning(r.TerminateAfter, clock.Today, false)
				if err := s.resourceService.SetTag(ctx, r.RegionName, r.ID, r.TerminateAfterTagName, warned, dryrun); err != nil {
					fmt.Fprintf(&summary, "Error when attempting to tag %s: %v\n", r.Summary(), err)
				}
			}
		} else {
			fmt.Fprintf(&summary, "No %ss are due to be terminated at this time.\n", kind)
		}

		if kind.SupportsStop() {
			if len(toStop) > 0 {
				fmt.Fprintf(&summary, "The following %d running %ss are due to be *STOPPED*, based on the \"Stop after\" tag:\n",
					len(toStop), kind)
				for _, r := range toStop {
					contact := s.notifierService.LookupUserByEmail(ctx, r.Contact)
					fmt.Fprintf(&summary, "%s, \"Stop after\"=%s, \"Monthly Price\"=%s, Contact=%s\n",
						r.Summary(), r.StopAfter, utils.MoneyToString(r.MonthlyPrice), contact)

					// Keep the first warning date, otherwise daily notify runs
					// would reset the warning clock and the stop would never
					// become safe.
					warned := schedule.AddWarning(r.StopAfter, clock.Today, false)
					if err := s.resourceService.SetTag(ctx, r.RegionName, r.ID, r.StopAfterTagName, warned, dryrun); err != nil {
						fmt.Fprintf(&summary, "Error when attempting to tag %s: %v\n", r.Summary(), err)
					}
				}
			} else {
				fmt.Fprintf(&summary, "No %ss are due to be stopped at this time.\n", kind)
			}
		}

		if len(resources) > 0 {
			sheet := model.ReportSheet{
				Name:   kind.Plural(),
				Header: resources[0].TabularHeader(),
			}
			for i := range resources {
				sheet.Rows = append(sheet.Rows, resources[i].TabularRow())
			}
			reportSheets = append(reportSheets, sheet)
		}

		totalsRows = append(totalsRows, []string{kind.Plural(), utils.MoneyToString(monthlyCost)})
		auditRows = append(auditRows, utils.AuditSummary{
			Kind:           kind.Plural(),
			Total:          len(resources),
			Active:         numActive,
			MonthlyCost:    monthlyCost,
			DueToStop:      len(toStop),
			DueToTerminate: len(toTerminate),
		})
	}

	reportSheets = append(reportSheets, model.ReportSheet{
		Name:   "totals",
		Header: []string{"Kind", "Estimated Monthly Cost"},
		Rows:   totalsRows,
	})

	reportURL, err := s.reportService.WriteReport(ctx, schedule.FormatDate(clock.Today), reportSheets)
	if err != nil {
		return err
	}
	fmt.Fprintf(&summary, "\nIf you want to see all the details, I wrote them to a spreadsheet at %s\n", reportURL)

	if err := s.notifierService.SendMessage(ctx, channel, summary.String()); err != nil {
		return err
	}

	utils.DrawAuditTable(account.AccountID, auditRows)
	return nil
}

func (s *orchestratorService) executeInternal(ctx context.Context, channel string, dryrun bool) error {
	clock := policy.NewClock(time.Now())

	byKind, err := s.collectResources(ctx)
	utils.StopSpinner()
	if err != nil {
		return err
	}

	for _, kind := range model.Kinds {
		resources := byKind[kind]

		// Only act on resources which still meet the criteria AND carry a
		// warning recorded with enough lead time.
		toTerminate := filterResources(resources, func(r *model.Resource) bool {
			return r.CanBeTerminated(clock) && r.IsSafeToTerminate(clock)
		})
		toStop := filterResources(resources, func(r *model.Resource) bool {
			return r.IsSafeToStop(clock)
		})

		if len(toTerminate) > 0 {
			var message strings.Builder
			fmt.Fprintf(&message, "I terminated the following %ss:\n", kind)
			for _, r := range toTerminate {
				if err := s.resourceService.TerminateResource(ctx, &r, dryrun); err != nil {
					fmt.Fprintf(&message, "Error when attempting to terminate %s: %v\n", r.Summary(), err)
					continue
				}
				contact := s.notifierService.LookupUserByEmail(ctx, r.Contact)
				fmt.Fprintf(&message, "%s, \"Terminate after\"=%s, \"Monthly Price\"=%s, Contact=%s\n",
					r.Summary(), r.TerminateAfter, utils.MoneyToString(r.MonthlyPrice), contact)
			}
			if err := s.notifierService.SendMessage(ctx, channel, message.String()); err != nil {
				return err
			}
		} else if err := s.notifierService.SendMessage(ctx, channel, fmt.Sprintf("No %ss were terminated today.", kind)); err != nil {
			return err
		}

		if !kind.SupportsStop() {
			continue
		}

		if len(toStop) > 0 {
			var message strings.Builder
			fmt.Fprintf(&message, "I stopped the following %ss:\n", kind)
			for _, r := range toStop {
				if err := s.resourceService.StopInstance(ctx, r.RegionName, r.ID, dryrun); err != nil {
					fmt.Fprintf(&message, "Error when attempting to stop %s: %v\n", r.Summary(), err)
					continue
				}
				stoppedOn := "Stopped on " + schedule.FormatDate(clock.Today)
				if err := s.resourceService.SetTag(ctx, r.RegionName, r.ID, r.ReaperStateTagName, stoppedOn, dryrun); err != nil {
					fmt.Fprintf(&message, "Error when attempting to tag %s: %v\n", r.Summary(), err)
				}
				contact := s.notifierService.LookupUserByEmail(ctx, r.Contact)
				fmt.Fprintf(&message, "%s, \"Stop after\"=%s, \"Monthly Price\"=%s, Contact=%s\n",
					r.Summary(), r.StopAfter, utils.MoneyToString(r.MonthlyPrice), contact)
			}
			if err := s.notifierService.SendMessage(ctx, channel, message.String()); err != nil {
				return err
			}
		} else if err := s.notifierService.SendMessage(ctx, channel, fmt.Sprintf("No %ss were stopped today.", kind)); err != nil {
			return err
		}
	}

	return nil
}

func filterResources(resources []model.Resource, keep func(*model.Resource) bool) []model.Resource {
	var filtered []model.Resource
	for i := range resources {
		if keep(&resources[i]) {
			filtered = append(filtered, resources[i])
		}
	}
	return filtered
}
