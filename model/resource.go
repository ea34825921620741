package model

import (
	"fmt"

	"github.com/elC0mpa/aws-reaper/policy"
	"github.com/elC0mpa/aws-reaper/schedule"
	"github.com/elC0mpa/aws-reaper/utils"
)

// Kind discriminates the four EC2-backed resource kinds the audit covers.
type Kind string

const (
	KindInstance Kind = "instance"
	KindVolume   Kind = "volume"
	KindImage    Kind = "ami"
	KindSnapshot Kind = "snapshot"
)

// Kinds lists every audited kind in report order.
var Kinds = []Kind{KindInstance, KindVolume, KindImage, KindSnapshot}

// SupportsStop reports whether the kind has a reversible stop action.
// Only instances do; everything else is terminate-only.
func (k Kind) SupportsStop() bool {
	return k == KindInstance
}

// ActiveState is the state in which a resource of this kind is considered
// in use (and showing up in the "right now" counts).
func (k Kind) ActiveState() string {
	switch k {
	case KindInstance:
		return "running"
	case KindSnapshot:
		return "completed"
	default:
		return "available"
	}
}

// TerminatableState is the base state a resource must be in before the
// terminate schedule is even considered.
func (k Kind) TerminatableState() string {
	switch k {
	case KindInstance:
		return "stopped"
	case KindSnapshot:
		return "completed"
	default:
		return "available"
	}
}

// ConsoleSection is the EC2 console anchor used to deep-link a resource.
func (k Kind) ConsoleSection() string {
	switch k {
	case KindInstance:
		return "Instances"
	case KindVolume:
		return "Volumes"
	case KindImage:
		return "Images"
	default:
		return "Snapshots"
	}
}

// Plural is the kind name used in outgoing messages.
func (k Kind) Plural() string {
	return string(k) + "s"
}

// Resource is the unified model for every audited EC2-backed object. It is
// built once per run from a DescribeX snapshot and read-only afterwards.
type Resource struct {
	Kind       Kind
	RegionName string
	ID         string
	Name       string
	State      string
	Reason     string

	// ResourceType is the kind-specific subtype: instance type for
	// instances, volume type for volumes, storage tier for snapshots,
	// image type for AMIs.
	ResourceType    string
	OperatingSystem string
	Contact         string
	EKSNodegroup    string

	// Raw schedule tag values plus the tag keys the owner actually used,
	// so warnings are written back to the same tag.
	StopAfter             string
	TerminateAfter        string
	ReaperState           string
	StopAfterTagName      string
	TerminateAfterTagName string
	ReaperStateTagName    string

	MonthlyPrice        float64
	MonthlyServerPrice  float64
	MonthlyStoragePrice float64

	SizeGB     float64
	IOPS       float64
	Throughput float64

	IsAMISnapshot       bool
	IsAWSBackupSnapshot bool
}

// StopSchedule parses the "Stop after" tag value.
func (r *Resource) StopSchedule() schedule.Tag {
	return schedule.Parse(r.StopAfter)
}

// TerminateSchedule parses the "Terminate after" tag value.
func (r *Resource) TerminateSchedule() schedule.Tag {
	return schedule.Parse(r.TerminateAfter)
}

// isManaged reports whether the resource belongs to infrastructure that owns
// its lifecycle: EKS nodegroup members, AMI-backed snapshots, and AWS Backup
// snapshots are never stopped or destroyed out from under their manager.
func (r *Resource) isManaged() bool {
	return r.EKSNodegroup != "" || r.IsAMISnapshot || r.IsAWSBackupSnapshot
}

// CanBeStopped reports whether the stop schedule is due.
func (r *Resource) CanBeStopped(clock policy.Clock) bool {
	if !r.Kind.SupportsStop() || r.isManaged() {
		return false
	}
	return policy.Stoppable(r.State, r.StopSchedule(), clock)
}

// IsSafeToStop reports whether the instance may actually be stopped now.
func (r *Resource) IsSafeToStop(clock policy.Clock) bool {
	if !r.Kind.SupportsStop() || r.isManaged() {
		return false
	}
	return policy.SafeToStop(r.State, r.StopSchedule(), clock)
}

// CanBeTerminated reports whether the terminate schedule is due.
func (r *Resource) CanBeTerminated(clock policy.Clock) bool {
	if r.isManaged() {
		return false
	}
	return policy.Terminatable(r.State, r.Kind.TerminatableState(), r.TerminateSchedule(), clock)
}

// IsSafeToTerminate reports whether the resource may actually be destroyed
// now: due, plus a warning recorded with enough lead time.
func (r *Resource) IsSafeToTerminate(clock policy.Clock) bool {
	if r.isManaged() {
		return false
	}
	return policy.SafeToTerminate(r.State, r.Kind.TerminatableState(), r.TerminateSchedule(), clock)
}

// IsActive reports whether the resource is in its kind's active state.
func (r *Resource) IsActive() bool {
	return r.State == r.Kind.ActiveState()
}

// IncludedInMonthlyPrice reports whether the resource counts towards the
// estimated monthly cost total. Attached volumes are priced into their
// instance, AMI-backed snapshots into their image, and AMIs themselves carry
// no estimate.
func (r *Resource) IncludedInMonthlyPrice() bool {
	switch r.Kind {
	case KindInstance:
		return true
	case KindVolume:
		return r.State == "available"
	case KindSnapshot:
		return r.State == "completed" && !r.IsAMISnapshot
	default:
		return false
	}
}

// ConsoleURL is a deep link to the resource in the EC2 console.
func (r *Resource) ConsoleURL() string {
	return fmt.Sprintf("https://%s.console.aws.amazon.com/ec2/v2/home?region=%s#%s:search=%s",
		r.RegionName, r.RegionName, r.Kind.ConsoleSection(), r.ID)
}

// Summary renders the one-line Slack representation of the resource.
func (r *Resource) Summary() string {
	link := fmt.Sprintf("<%s|%s>", r.ConsoleURL(), r.Name)
	state := fmt.Sprintf("State=%s", r.State)
	if r.Kind == KindInstance && r.Reason != "" {
		state = fmt.Sprintf("State=(%s, %q)", r.State, r.Reason)
	}
	return fmt.Sprintf("%s, %s, Type=%s", link, state, r.ResourceType)
}

// TabularHeader returns the report column names for the resource's kind.
func (r *Resource) TabularHeader() []string {
	switch r.Kind {
	case KindInstance:
		return []string{"Instance ID", "Name", "State", "Stop After", "Terminate After",
			"Contact", "Reaper State", "Monthly Price", "Monthly Server Price",
			"Monthly Storage Price", "Region Name", "Instance Type", "Reason", "OS",
			"EKS Nodegroup"}
	case KindVolume:
		return []string{"Volume ID", "Name", "State", "Terminate After", "Contact",
			"Monthly Price", "Region Name", "Volume Type", "OS", "Size", "IOPS",
			"Throughput"}
	case KindSnapshot:
		return []string{"Snapshot ID", "Name", "State", "Terminate After", "Contact",
			"Monthly Price", "Region Name", "Storage Tier", "OS", "Size",
			"Is AMI Snapshot", "Is AWS Backup Snapshot"}
	default:
		return []string{"Image ID", "Name", "State", "Terminate After", "Contact",
			"Region Name", "Image Type", "OS", "EKS Nodegroup"}
	}
}

// TabularRow returns the report row for the resource, aligned with
// TabularHeader.
func (r *Resource) TabularRow() []string {
	switch r.Kind {
	case KindInstance:
		return []string{r.ID, r.Name, r.State, r.StopAfter, r.TerminateAfter,
			r.Contact, r.ReaperState, utils.MoneyToString(r.MonthlyPrice),
			utils.MoneyToString(r.MonthlyServerPrice),
			utils.MoneyToString(r.MonthlyStoragePrice), r.RegionName,
			r.ResourceType, r.Reason, r.OperatingSystem, r.EKSNodegroup}
	case KindVolume:
		return []string{r.ID, r.Name, r.State, r.TerminateAfter, r.Contact,
			utils.MoneyToString(r.MonthlyPrice), r.RegionName, r.ResourceType,
			r.OperatingSystem, utils.FloatToString(r.SizeGB),
			utils.FloatToString(r.IOPS), utils.FloatToString(r.Throughput)}
	case KindSnapshot:
		return []string{r.ID, r.Name, r.State, r.TerminateAfter, r.Contact,
			utils.MoneyToString(r.MonthlyPrice), r.RegionName, r.ResourceType,
			r.OperatingSystem, utils.FloatToString(r.SizeGB),
			utils.BoolToString(r.IsAMISnapshot), utils.BoolToString(r.IsAWSBackupSnapshot)}
	default:
		return []string{r.ID, r.Name, r.State, r.TerminateAfter, r.Contact,
			r.RegionName, r.ResourceType, r.OperatingSystem, r.EKSNodegroup}
	}
}
