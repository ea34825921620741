package awsec2

import (
	"context"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/elC0mpa/aws-reaper/model"
)

// Default tag keys, used when the owner has not created their own variant.
const (
	defaultStopAfterTag      = "StopAfter"
	defaultTerminateAfterTag = "TerminateAfter"
	defaultReaperStateTag    = "ReaperState"
)

var amiIDRegex = regexp.MustCompile(`ami-\S*`)

func tagsToMap(tags []types.Tag) map[string]string {
	result := make(map[string]string, len(tags))
	for _, tag := range tags {
		result[aws.ToString(tag.Key)] = aws.ToString(tag.Value)
	}
	return result
}

// tagNames finds the tag keys the owner actually used for the schedule tags,
// matching case-insensitively so "stop_after", "Stop After" and "StopAfter"
// all work. Updates are written back to the key that was found.
func tagNames(tags map[string]string) (stopAfter, terminateAfter, reaperState string) {
	stopAfter = defaultStopAfterTag
	terminateAfter = defaultTerminateAfterTag
	reaperState = defaultReaperStateTag

	for key := range tags {
		lower := strings.ToLower(key)
		if strings.HasPrefix(lower, "stop") && strings.Contains(lower, "after") {
			stopAfter = key
		}
		if strings.HasPrefix(lower, "terminate") && strings.Contains(lower, "after") {
			terminateAfter = key
		}
		if strings.HasPrefix(lower, "reaper") && strings.Contains(lower, "state") {
			reaperState = key
		}
	}
	return stopAfter, terminateAfter, reaperState
}

// baseResource fills the fields shared by every kind from the tag map.
func baseResource(kind model.Kind, region, id, resourceType string, tags map[string]string) model.Resource {
	stopAfterTag, terminateAfterTag, reaperStateTag := tagNames(tags)

	nodegroup := tags["eks:nodegroup-name"]
	name := tags["Name"]
	if name == "" {
		name = nodegroup
	}

	return model.Resource{
		Kind:                  kind,
		RegionName:            region,
		ID:                    id,
		Name:                  name,
		ResourceType:          resourceType,
		OperatingSystem:       "Linux",
		Contact:               tags["Contact"],
		EKSNodegroup:          nodegroup,
		StopAfter:             tags[stopAfterTag],
		TerminateAfter:        tags[terminateAfterTag],
		ReaperState:           tags[reaperStateTag],
		StopAfterTagName:      stopAfterTag,
		TerminateAfterTagName: terminateAfterTag,
		ReaperStateTagName:    reaperStateTag,
	}
}

func (s *service) buildInstance(ctx context.Context, region string, instance types.Instance, sizeByVolumeID map[string]float64) (model.Resource, error) {
	tags := tagsToMap(instance.Tags)
	resource := baseResource(model.KindInstance, region, aws.ToString(instance.InstanceId), string(instance.InstanceType), tags)

	resource.State = string(instance.State.Name)
	resource.Reason = aws.ToString(instance.StateTransitionReason)
	if instance.Platform == types.PlatformValuesWindows {
		resource.OperatingSystem = "Windows"
	}

	serverPrice, err := s.pricing.MonthlyInstancePrice(ctx, region, resource.ResourceType, resource.OperatingSystem)
	if err != nil {
		return model.Resource{}, err
	}

	var attachedGB float64
	for _, mapping := range instance.BlockDeviceMappings {
		if mapping.Ebs != nil {
			attachedGB += sizeByVolumeID[aws.ToString(mapping.Ebs.VolumeId)]
		}
	}
	storagePrice := model.EstimateAttachedStoragePrice(attachedGB)

	resource.MonthlyServerPrice = serverPrice
	resource.MonthlyStoragePrice = storagePrice
	// A stopped instance only pays for its storage.
	if resource.State == "running" {
		resource.MonthlyPrice = serverPrice + storagePrice
	} else {
		resource.MonthlyPrice = storagePrice
	}
	resource.SizeGB = attachedGB

	return resource, nil
}

func buildVolume(region string, volume types.Volume) model.Resource {
	tags := tagsToMap(volume.Tags)
	resource := baseResource(model.KindVolume, region, aws.ToString(volume.VolumeId), string(volume.VolumeType), tags)

	resource.State = string(volume.State)
	resource.SizeGB = float64(aws.ToInt32(volume.Size))
	resource.IOPS = float64(aws.ToInt32(volume.Iops))
	resource.Throughput = float64(aws.ToInt32(volume.Throughput))
	resource.MonthlyPrice = model.EstimateVolumeStoragePrice(resource.ResourceType, resource.SizeGB, resource.IOPS, resource.Throughput)

	return resource
}

func buildImage(region string, image types.Image) model.Resource {
	tags := tagsToMap(image.Tags)
	resource := baseResource(model.KindImage, region, aws.ToString(image.ImageId), string(image.ImageType), tags)

	resource.State = string(image.State)
	if resource.Name == "" {
		resource.Name = aws.ToString(image.Name)
	}
	if image.Platform == types.PlatformValuesWindows {
		resource.OperatingSystem = "Windows"
	}

	return resource
}

func buildSnapshot(region string, snapshot types.Snapshot, registeredImages map[string]bool) model.Resource {
	tags := tagsToMap(snapshot.Tags)
	resource := baseResource(model.KindSnapshot, region, aws.ToString(snapshot.SnapshotId), string(snapshot.StorageTier), tags)

	resource.State = string(snapshot.State)
	resource.SizeGB = float64(aws.ToInt32(snapshot.VolumeSize))
	resource.MonthlyPrice = model.EstimateSnapshotStoragePrice(resource.ResourceType, resource.SizeGB)
	resource.IsAWSBackupSnapshot, resource.IsAMISnapshot = classifySnapshot(aws.ToString(snapshot.Description), registeredImages)

	return resource
}

// classifySnapshot inspects the snapshot description to decide whether the
// snapshot belongs to AWS Backup or to a still-registered AMI. A snapshot
// whose AMI has been deregistered is not counted as an AMI snapshot, so the
// leftover can be cleaned up.
func classifySnapshot(description string, registeredImages map[string]bool) (isBackup, isAMI bool) {
	if strings.Contains(description, "AWS Backup service") {
		return true, false
	}

	if strings.Contains(description, "Copied for DestinationAmi") || strings.Contains(description, "Created by CreateImage") {
		if amiID := amiIDRegex.FindString(description); amiID != "" && registeredImages[amiID] {
			return false, true
		}
	}
	return false, false
}
