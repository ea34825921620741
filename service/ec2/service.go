package awsec2

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/elC0mpa/aws-reaper/logger"
	"github.com/elC0mpa/aws-reaper/model"
)

func NewService(awsconfig aws.Config, pricing PricingService) *service {
	return &service{
		cfg:     awsconfig,
		pricing: pricing,
		clients: make(map[string]*ec2.Client),
	}
}

// regionClient returns a cached EC2 client bound to the given region.
func (s *service) regionClient(region string) *ec2.Client {
	s.mu.Lock()
	defer s.mu.Unlock()

	if client, ok := s.clients[region]; ok {
		return client
	}
	client := ec2.NewFromConfig(s.cfg, func(o *ec2.Options) {
		o.Region = region
	})
	s.clients[region] = client
	return client
}

func (s *service) ListRegions(ctx context.Context) ([]string, error) {
	client := ec2.NewFromConfig(s.cfg)
	output, err := client.DescribeRegions(ctx, &ec2.DescribeRegionsInput{})
	if err != nil {
		return nil, fmt.Errorf("failed to describe regions: %w", err)
	}

	var regions []string
	for _, region := range output.Regions {
		regions = append(regions, aws.ToString(region.RegionName))
	}
	return regions, nil
}

func (s *service) ListResources(ctx context.Context, region string, kind model.Kind) ([]model.Resource, error) {
	switch kind {
	case model.KindInstance:
		return s.listInstances(ctx, region)
	case model.KindVolume:
		return s.listVolumes(ctx, region)
	case model.KindImage:
		return s.listImages(ctx, region)
	case model.KindSnapshot:
		return s.listSnapshots(ctx, region)
	default:
		return nil, fmt.Errorf("unknown resource kind %q", kind)
	}
}

func (s *service) listInstances(ctx context.Context, region string) ([]model.Resource, error) {
	client := s.regionClient(region)

	var instances []types.Instance
	paginator := ec2.NewDescribeInstancesPaginator(client, &ec2.DescribeInstancesInput{})
	for paginator.HasMorePages() {
		output, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to describe instances in %s: %w", region, err)
		}
		for _, reservation := range output.Reservations {
			instances = append(instances, reservation.Instances...)
		}
	}

	sizeByVolumeID, err := s.attachedVolumeSizes(ctx, region, instances)
	if err != nil {
		return nil, err
	}

	var resources []model.Resource
	for _, instance := range instances {
		resource, err := s.buildInstance(ctx, region, instance, sizeByVolumeID)
		if err != nil {
			return nil, err
		}
		resources = append(resources, resource)
	}
	return resources, nil
}

// attachedVolumeSizes resolves the size of every EBS volume attached to the
// given instances with a single describe call, so attached-storage estimates
// do not need one round trip per instance.
func (s *service) attachedVolumeSizes(ctx context.Context, region string, instances []types.Instance) (map[string]float64, error) {
	var volumeIDs []string
	for _, instance := range instances {
		for _, mapping := range instance.BlockDeviceMappings {
			if mapping.Ebs != nil {
				volumeIDs = append(volumeIDs, aws.ToString(mapping.Ebs.VolumeId))
			}
		}
	}

	sizes := make(map[string]float64)
	if len(volumeIDs) == 0 {
		return sizes, nil
	}

	client := s.regionClient(region)
	paginator := ec2.NewDescribeVolumesPaginator(client, &ec2.DescribeVolumesInput{
		VolumeIds: volumeIDs,
	})
	for paginator.HasMorePages() {
		output, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to describe attached volumes in %s: %w", region, err)
		}
		for _, volume := range output.Volumes {
			sizes[aws.ToString(volume.VolumeId)] = float64(aws.ToInt32(volume.Size))
		}
	}
	return sizes, nil
}

func (s *service) listVolumes(ctx context.Context, region string) ([]model.Resource, error) {
	client := s.regionClient(region)

	var resources []model.Resource
	paginator := ec2.NewDescribeVolumesPaginator(client, &ec2.DescribeVolumesInput{})
	for paginator.HasMorePages() {
		output, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to describe volumes in %s: %w", region, err)
		}
		for _, volume := range output.Volumes {
			resources = append(resources, buildVolume(region, volume))
		}
	}
	return resources, nil
}

func (s *service) listImages(ctx context.Context, region string) ([]model.Resource, error) {
	client := s.regionClient(region)

	output, err := client.DescribeImages(ctx, &ec2.DescribeImagesInput{
		Owners: []string{"self"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to describe images in %s: %w", region, err)
	}

	var resources []model.Resource
	for _, image := range output.Images {
		resources = append(resources, buildImage(region, image))
	}
	return resources, nil
}

func (s *service) listSnapshots(ctx context.Context, region string) ([]model.Resource, error) {
	registered, err := s.registeredImageIDs(ctx, region)
	if err != nil {
		return nil, err
	}

	client := s.regionClient(region)
	var resources []model.Resource
	paginator := ec2.NewDescribeSnapshotsPaginator(client, &ec2.DescribeSnapshotsInput{
		OwnerIds: []string{"self"},
	})
	for paginator.HasMorePages() {
		output, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to describe snapshots in %s: %w", region, err)
		}
		for _, snapshot := range output.Snapshots {
			resources = append(resources, buildSnapshot(region, snapshot, registered))
		}
	}
	return resources, nil
}

// registeredImageIDs returns the set of AMI IDs still registered in the
// region. Snapshots backing a deregistered AMI fall out of this set and
// become reclaimable.
func (s *service) registeredImageIDs(ctx context.Context, region string) (map[string]bool, error) {
	client := s.regionClient(region)
	output, err := client.DescribeImages(ctx, &ec2.DescribeImagesInput{
		Owners: []string{"self"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to describe images in %s: %w", region, err)
	}

	registered := make(map[string]bool, len(output.Images))
	for _, image := range output.Images {
		registered[aws.ToString(image.ImageId)] = true
	}
	return registered, nil
}

func (s *service) SetTag(ctx context.Context, region, resourceID, tagName, tagValue string, dryrun bool) error {
	logger.GetLogger().Info("setting tag", "resource", resourceID, "region", region, "tag", tagName, "value", tagValue, "dryrun", dryrun)
	if dryrun {
		return nil
	}

	client := s.regionClient(region)
	_, err := client.CreateTags(ctx, &ec2.CreateTagsInput{
		Resources: []string{resourceID},
		Tags: []types.Tag{
			{
				Key:   aws.String(tagName),
				Value: aws.String(tagValue),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to set tag %s on %s: %w", tagName, resourceID, err)
	}
	return nil
}

func (s *service) StopInstance(ctx context.Context, region, instanceID string, dryrun bool) error {
	logger.GetLogger().Info("stopping instance", "instance", instanceID, "region", region, "dryrun", dryrun)
	if dryrun {
		return nil
	}

	client := s.regionClient(region)
	_, err := client.StopInstances(ctx, &ec2.StopInstancesInput{
		InstanceIds: []string{instanceID},
	})
	if err != nil {
		return fmt.Errorf("failed to stop instance %s: %w", instanceID, err)
	}
	return nil
}

func (s *service) TerminateResource(ctx context.Context, resource *model.Resource, dryrun bool) error {
	logger.GetLogger().Info("terminating resource", "kind", resource.Kind, "id", resource.ID, "region", resource.RegionName, "dryrun", dryrun)
	if dryrun {
		return nil
	}

	client := s.regionClient(resource.RegionName)
	var err error
	switch resource.Kind {
	case model.KindInstance:
		_, err = client.TerminateInstances(ctx, &ec2.TerminateInstancesInput{
			InstanceIds: []string{resource.ID},
		})
	case model.KindVolume:
		_, err = client.DeleteVolume(ctx, &ec2.DeleteVolumeInput{
			VolumeId: aws.String(resource.ID),
		})
	case model.KindImage:
		_, err = client.DeregisterImage(ctx, &ec2.DeregisterImageInput{
			ImageId: aws.String(resource.ID),
		})
	case model.KindSnapshot:
		_, err = client.DeleteSnapshot(ctx, &ec2.DeleteSnapshotInput{
			SnapshotId: aws.String(resource.ID),
		})
	default:
		return fmt.Errorf("unknown resource kind %q", resource.Kind)
	}

	if err != nil {
		return fmt.Errorf("failed to terminate %s %s: %w", resource.Kind, resource.ID, err)
	}
	return nil
}
