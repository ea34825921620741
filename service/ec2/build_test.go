package awsec2

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/stretchr/testify/assert"

	"github.com/elC0mpa/aws-reaper/model"
)

func TestTagsToMap(t *testing.T) {
	tags := []types.Tag{
		{Key: aws.String("Name"), Value: aws.String("web-1")},
		{Key: aws.String("Contact"), Value: aws.String("owner@example.com")},
	}

	got := tagsToMap(tags)
	assert.Equal(t, map[string]string{
		"Name":    "web-1",
		"Contact": "owner@example.com",
	}, got)
}

func TestTagNames_Defaults(t *testing.T) {
	stopAfter, terminateAfter, reaperState := tagNames(map[string]string{"Name": "web-1"})

	assert.Equal(t, "StopAfter", stopAfter)
	assert.Equal(t, "TerminateAfter", terminateAfter)
	assert.Equal(t, "ReaperState", reaperState)
}

func TestTagNames_CaseInsensitiveVariants(t *testing.T) {
	cases := []struct {
		tags           map[string]string
		stopAfter      string
		terminateAfter string
	}{
		{map[string]string{"stop_after": "", "terminate_after": ""}, "stop_after", "terminate_after"},
		{map[string]string{"Stop After": "", "Terminate After": ""}, "Stop After", "Terminate After"},
		{map[string]string{"STOPAFTER": "", "TERMINATEAFTER": ""}, "STOPAFTER", "TERMINATEAFTER"},
	}
	for _, c := range cases {
		stopAfter, terminateAfter, _ := tagNames(c.tags)
		assert.Equal(t, c.stopAfter, stopAfter)
		assert.Equal(t, c.terminateAfter, terminateAfter)
	}
}

func TestTagNames_StateVariant(t *testing.T) {
	_, _, reaperState := tagNames(map[string]string{"reaper-state": "Stopped on 2024-12-20"})
	assert.Equal(t, "reaper-state", reaperState)
}

func TestBaseResource_ReadsScheduleFromOwnersTagKeys(t *testing.T) {
	tags := map[string]string{
		"Name":            "web-1",
		"stop_after":      "2024-12-31",
		"terminate_after": "2025-01-31",
	}

	resource := baseResource(model.KindInstance, "us-east-1", "i-0123", "t3.micro", tags)

	assert.Equal(t, "2024-12-31", resource.StopAfter)
	assert.Equal(t, "2025-01-31", resource.TerminateAfter)
	assert.Equal(t, "stop_after", resource.StopAfterTagName)
	assert.Equal(t, "terminate_after", resource.TerminateAfterTagName)
	assert.Equal(t, "ReaperState", resource.ReaperStateTagName)
}

func TestBaseResource_NameFallsBackToNodegroup(t *testing.T) {
	tags := map[string]string{"eks:nodegroup-name": "prod-workers"}

	resource := baseResource(model.KindInstance, "us-east-1", "i-0123", "t3.micro", tags)

	assert.Equal(t, "prod-workers", resource.Name)
	assert.Equal(t, "prod-workers", resource.EKSNodegroup)
}

func TestClassifySnapshot_AWSBackup(t *testing.T) {
	isBackup, isAMI := classifySnapshot("This snapshot is created by the AWS Backup service.", nil)
	assert.True(t, isBackup)
	assert.False(t, isAMI)
}

func TestClassifySnapshot_RegisteredAMI(t *testing.T) {
	registered := map[string]bool{"ami-0abc123": true}

	isBackup, isAMI := classifySnapshot("Created by CreateImage(i-0123) for ami-0abc123", registered)
	assert.False(t, isBackup)
	assert.True(t, isAMI)

	isBackup, isAMI = classifySnapshot("Copied for DestinationAmi ami-0abc123 from SourceAmi ami-0def456", registered)
	assert.False(t, isBackup)
	assert.True(t, isAMI)
}

func TestClassifySnapshot_DeregisteredAMIIsReapable(t *testing.T) {
	isBackup, isAMI := classifySnapshot("Created by CreateImage(i-0123) for ami-0gone", map[string]bool{})
	assert.False(t, isBackup)
	assert.False(t, isAMI)
}

func TestClassifySnapshot_PlainDescription(t *testing.T) {
	isBackup, isAMI := classifySnapshot("manual backup before upgrade", nil)
	assert.False(t, isBackup)
	assert.False(t, isAMI)
}
