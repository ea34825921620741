package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

// HoursInMonth is the flat month length used for on-demand price estimates.
const HoursInMonth = 730

// EBS price constants, USD per month. gp3 charges separately for provisioned
// IOPS and throughput above the free baseline; everything else is estimated
// at the flat gp2 rate.
var (
	gp3PerGB         = decimal.NewFromFloat(0.08)
	gp3PerIOPS       = decimal.NewFromFloat(0.005)
	gp3PerThroughput = decimal.NewFromFloat(0.04)
	flatPerGB        = decimal.NewFromFloat(0.1)

	snapshotStandardPerGB = decimal.NewFromFloat(0.0525)
	snapshotArchivePerGB  = decimal.NewFromFloat(0.0131)
)

const (
	gp3FreeIOPS       = 3000
	gp3FreeThroughput = 125
)

// EstimateVolumeStoragePrice estimates the monthly cost of a standalone EBS
// volume from its provisioned attributes.
func EstimateVolumeStoragePrice(volumeType string, sizeGB, iops, throughput float64) float64 {
	size := decimal.NewFromFloat(sizeGB)

	if !strings.Contains(volumeType, "gp3") {
		price, _ := size.Mul(flatPerGB).Float64()
		return price
	}

	cost := size.Mul(gp3PerGB)
	if iops > gp3FreeIOPS {
		provisioned := decimal.NewFromFloat(iops - gp3FreeIOPS)
		cost = cost.Add(provisioned.Mul(gp3PerIOPS))
	}
	if throughput > gp3FreeThroughput {
		provisioned := decimal.NewFromFloat(throughput - gp3FreeThroughput)
		cost = cost.Add(provisioned.Mul(gp3PerThroughput))
	}
	price, _ := cost.Float64()
	return price
}

// EstimateAttachedStoragePrice estimates the monthly cost of the volumes
// attached to an instance. Attached storage is priced at the flat per-GB rate
// regardless of volume type.
func EstimateAttachedStoragePrice(totalGB float64) float64 {
	price, _ := decimal.NewFromFloat(totalGB).Mul(flatPerGB).Float64()
	return price
}

// EstimateSnapshotStoragePrice estimates the monthly cost of an EBS snapshot
// from its storage tier and size.
func EstimateSnapshotStoragePrice(storageTier string, sizeGB float64) float64 {
	rate := snapshotStandardPerGB
	if storageTier == "archive" {
		rate = snapshotArchivePerGB
	}
	price, _ := decimal.NewFromFloat(sizeGB).Mul(rate).Float64()
	return price
}
