package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elC0mpa/aws-reaper/model"
	"github.com/elC0mpa/aws-reaper/policy"
	"github.com/elC0mpa/aws-reaper/schedule"
)

type tagWrite struct {
	region     string
	resourceID string
	tagName    string
	tagValue   string
}

type fakeResourceService struct {
	mu           sync.Mutex
	regions      []string
	resources    map[model.Kind][]model.Resource
	listErr      error
	terminateErr map[string]error
	stopErr      map[string]error

	terminated []string
	stopped    []string
	tagWrites  []tagWrite
}

func (f *fakeResourceService) ListRegions(ctx context.Context) ([]string, error) {
	if len(f.regions) == 0 {
		return []string{"us-east-1"}, nil
	}
	return f.regions, nil
}

func (f *fakeResourceService) ListResources(ctx context.Context, region string, kind model.Kind) ([]model.Resource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var matching []model.Resource
	for _, r := range f.resources[kind] {
		if r.RegionName == region {
			matching = append(matching, r)
		}
	}
	return matching, nil
}

func (f *fakeResourceService) SetTag(ctx context.Context, region, resourceID, tagName, tagValue string, dryrun bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tagWrites = append(f.tagWrites, tagWrite{region, resourceID, tagName, tagValue})
	return nil
}

func (f *fakeResourceService) StopInstance(ctx context.Context, region, instanceID string, dryrun bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.stopErr[instanceID]; err != nil {
		return err
	}
	f.stopped = append(f.stopped, instanceID)
	return nil
}

func (f *fakeResourceService) TerminateResource(ctx context.Context, resource *model.Resource, dryrun bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.terminateErr[resource.ID]; err != nil {
		return err
	}
	f.terminated = append(f.terminated, resource.ID)
	return nil
}

type fakeIdentityService struct{}

func (fakeIdentityService) GetAccountInfo(ctx context.Context) (*model.AccountInfo, error) {
	return &model.AccountInfo{AccountID: "123456789012", AccountName: "test"}, nil
}

type fakeSpendService struct{}

func (fakeSpendService) GetCurrentMonthTotalCosts(ctx context.Context) (*string, error) {
	spend := "1234.56 USD"
	return &spend, nil
}

type sentMessage struct {
	channel string
	text    string
}

type fakeNotifierService struct {
	mu       sync.Mutex
	sendErr  error
	messages []sentMessage
}

func (f *fakeNotifierService) SendMessage(ctx context.Context, channel, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.messages = append(f.messages, sentMessage{channel, text})
	return nil
}

func (f *fakeNotifierService) LookupUserByEmail(ctx context.Context, email string) string {
	return email
}

type fakeReportService struct {
	sheets []model.ReportSheet
	title  string
}

func (f *fakeReportService) WriteReport(ctx context.Context, title string, sheets []model.ReportSheet) (string, error) {
	f.title = title
	f.sheets = sheets
	return "https://docs.google.com/spreadsheets/d/fake", nil
}

func newTestService(resources *fakeResourceService, notifier *fakeNotifierService, report *fakeReportService) *orchestratorService {
	return NewService(resources, fakeIdentityService{}, fakeSpendService{}, notifier, report)
}

func todayString() string {
	return schedule.FormatDate(policy.NewClock(time.Now()).Today)
}

func TestExecute_PartialTerminationFailureContinues(t *testing.T) {
	resources := &fakeResourceService{
		resources: map[model.Kind][]model.Resource{
			model.KindVolume: {
				{Kind: model.KindVolume, RegionName: "us-east-1", ID: "vol-1", Name: "a", State: "available",
					TerminateAfter: "2020-01-01 (Nagbot: Warned on 2020-01-02)", TerminateAfterTagName: "TerminateAfter"},
				{Kind: model.KindVolume, RegionName: "us-east-1", ID: "vol-2", Name: "b", State: "available",
					TerminateAfter: "2020-01-01 (Nagbot: Warned on 2020-01-02)", TerminateAfterTagName: "TerminateAfter"},
				{Kind: model.KindVolume, RegionName: "us-east-1", ID: "vol-3", Name: "c", State: "available",
					TerminateAfter: "2020-01-01 (Nagbot: Warned on 2020-01-02)", TerminateAfterTagName: "TerminateAfter"},
			},
		},
		terminateErr: map[string]error{"vol-2": errors.New("DependencyViolation")},
	}
	notifier := &fakeNotifierService{}

	err := newTestService(resources, notifier, &fakeReportService{}).Execute(context.Background(), "#bot-testing", false)
	require.NoError(t, err)

	assert.Equal(t, []string{"vol-1", "vol-3"}, resources.terminated)

	var volumeMessage string
	for _, m := range notifier.messages {
		if strings.Contains(m.text, "I terminated the following volumes") {
			volumeMessage = m.text
		}
	}
	require.NotEmpty(t, volumeMessage)
	assert.Contains(t, volumeMessage, "Error when attempting to terminate")
	assert.Contains(t, volumeMessage, "DependencyViolation")
}

func TestExecute_NothingToDoAnnouncesPerKind(t *testing.T) {
	resources := &fakeResourceService{resources: map[model.Kind][]model.Resource{}}
	notifier := &fakeNotifierService{}

	err := newTestService(resources, notifier, &fakeReportService{}).Execute(context.Background(), "#bot-testing", false)
	require.NoError(t, err)

	var texts []string
	for _, m := range notifier.messages {
		assert.Equal(t, "#bot-testing", m.channel)
		texts = append(texts, m.text)
	}
	assert.Contains(t, texts, "No instances were terminated today.")
	assert.Contains(t, texts, "No volumes were terminated today.")
	assert.Contains(t, texts, "No amis were terminated today.")
	assert.Contains(t, texts, "No snapshots were terminated today.")
	assert.Contains(t, texts, "No instances were stopped today.")
	assert.Len(t, texts, 5)
}

func TestExecute_StopWritesStateTag(t *testing.T) {
	resources := &fakeResourceService{
		resources: map[model.Kind][]model.Resource{
			model.KindInstance: {
				// Running past its stop date, warned long ago.
				{Kind: model.KindInstance, RegionName: "us-east-1", ID: "i-1", Name: "web-1", State: "running",
					StopAfter:        "2020-01-01 (Nagbot: Warned on 2020-01-02)",
					StopAfterTagName: "StopAfter", TerminateAfterTagName: "TerminateAfter", ReaperStateTagName: "ReaperState"},
			},
		},
	}
	notifier := &fakeNotifierService{}

	err := newTestService(resources, notifier, &fakeReportService{}).Execute(context.Background(), "#bot-testing", false)
	require.NoError(t, err)

	assert.Equal(t, []string{"i-1"}, resources.stopped)
	require.Len(t, resources.tagWrites, 1)
	assert.Equal(t, "ReaperState", resources.tagWrites[0].tagName)
	assert.Equal(t, "Stopped on "+todayString(), resources.tagWrites[0].tagValue)
}

func TestExecute_DueButUnwarnedIsLeftAlone(t *testing.T) {
	resources := &fakeResourceService{
		resources: map[model.Kind][]model.Resource{
			model.KindVolume: {
				{Kind: model.KindVolume, RegionName: "us-east-1", ID: "vol-1", Name: "a", State: "available",
					TerminateAfter: "2020-01-01"},
			},
		},
	}
	notifier := &fakeNotifierService{}

	err := newTestService(resources, notifier, &fakeReportService{}).Execute(context.Background(), "#bot-testing", false)
	require.NoError(t, err)

	assert.Empty(t, resources.terminated)
}

func TestExecute_EnumerationFailureIsAnnounced(t *testing.T) {
	resources := &fakeResourceService{listErr: errors.New("UnauthorizedOperation")}
	notifier := &fakeNotifierService{}

	err := newTestService(resources, notifier, &fakeReportService{}).Execute(context.Background(), "#bot-testing", false)
	require.Error(t, err)

	require.Len(t, notifier.messages, 1)
	assert.Contains(t, notifier.messages[0].text, "failed to run the 'execute' command")
	assert.Contains(t, notifier.messages[0].text, "UnauthorizedOperation")
}

func TestNotify_WarnsDueResourcesAndPostsSummary(t *testing.T) {
	resources := &fakeResourceService{
		resources: map[model.Kind][]model.Resource{
			model.KindInstance: {
				{Kind: model.KindInstance, RegionName: "us-east-1", ID: "i-1", Name: "web-1", State: "running",
					StopAfter: "2020-01-01", StopAfterTagName: "StopAfter",
					TerminateAfterTagName: "TerminateAfter", ReaperStateTagName: "ReaperState"},
			},
			model.KindVolume: {
				{Kind: model.KindVolume, RegionName: "us-east-1", ID: "vol-1", Name: "data", State: "available",
					TerminateAfter: "2020-01-01 (Nagbot: Warned on 2020-01-02)",
					TerminateAfterTagName: "TerminateAfter", MonthlyPrice: 10},
			},
		},
	}
	notifier := &fakeNotifierService{}
	report := &fakeReportService{}

	err := newTestService(resources, notifier, report).Notify(context.Background(), "#bot-testing", false)
	require.NoError(t, err)

	today := todayString()

	require.Len(t, resources.tagWrites, 2)
	writesByID := map[string]tagWrite{}
	for _, w := range resources.tagWrites {
		writesByID[w.resourceID] = w
	}
	// First warning on the instance: stamped with today's date.
	assert.Equal(t, "2020-01-01 (Nagbot: Warned on "+today+")", writesByID["i-1"].tagValue)
	assert.Equal(t, "StopAfter", writesByID["i-1"].tagName)
	// The volume was already warned; the existing date is kept.
	assert.Equal(t, "2020-01-01 (Nagbot: Warned on 2020-01-02)", writesByID["vol-1"].tagValue)

	require.Len(t, notifier.messages, 1)
	summary := notifier.messages[0].text
	assert.Contains(t, summary, "Hi, I'm Nagbot")
	assert.Contains(t, summary, "Account 123456789012 has been billed 1234.56 USD")
	assert.Contains(t, summary, "due to be *STOPPED*")
	assert.Contains(t, summary, "due to be *TERMINATED*")
	assert.Contains(t, summary, "No amis are due to be terminated at this time.")
	assert.Contains(t, summary, "https://docs.google.com/spreadsheets/d/fake")

	assert.Equal(t, today, report.title)
	// One sheet per kind with resources, plus the totals sheet.
	require.Len(t, report.sheets, 3)
	assert.Equal(t, "totals", report.sheets[len(report.sheets)-1].Name)
}

func TestNotify_EnumerationFailureIsAnnounced(t *testing.T) {
	resources := &fakeResourceService{listErr: errors.New("RequestLimitExceeded")}
	notifier := &fakeNotifierService{}

	err := newTestService(resources, notifier, &fakeReportService{}).Notify(context.Background(), "#bot-testing", false)
	require.Error(t, err)

	require.Len(t, notifier.messages, 1)
	assert.Contains(t, notifier.messages[0].text, "failed to run the 'notify' command")
}

func TestCollectResources_MergesRegionsAndSorts(t *testing.T) {
	resources := &fakeResourceService{
		regions: []string{"us-west-2", "us-east-1"},
		resources: map[model.Kind][]model.Resource{
			model.KindVolume: {
				{Kind: model.KindVolume, RegionName: "us-west-2", ID: "vol-b", State: "available"},
				{Kind: model.KindVolume, RegionName: "us-east-1", ID: "vol-c", State: "available"},
				{Kind: model.KindVolume, RegionName: "us-east-1", ID: "vol-a", State: "available"},
			},
		},
	}

	byKind, err := newTestService(resources, &fakeNotifierService{}, &fakeReportService{}).collectResources(context.Background())
	require.NoError(t, err)

	var ids []string
	for _, r := range byKind[model.KindVolume] {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"vol-a", "vol-c", "vol-b"}, ids)
}
