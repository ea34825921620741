package awspricing

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/pricing"
	"github.com/aws/aws-sdk-go-v2/service/pricing/types"
	"github.com/elC0mpa/aws-reaper/logger"
	"github.com/elC0mpa/aws-reaper/model"
)

// The price list API is only served from us-east-1.
const pricingRegion = "us-east-1"

func NewService(awsconfig aws.Config) *service {
	client := pricing.NewFromConfig(awsconfig, func(o *pricing.Options) {
		o.Region = pricingRegion
	})
	return &service{
		client: client,
		cache:  make(map[string]float64),
	}
}

// priceListEntry is the slice of the price list document the lookup needs:
// one on-demand term with one price dimension priced in USD.
type priceListEntry struct {
	Terms struct {
		OnDemand map[string]struct {
			PriceDimensions map[string]struct {
				PricePerUnit struct {
					USD string `json:"USD"`
				} `json:"pricePerUnit"`
			} `json:"priceDimensions"`
		} `json:"OnDemand"`
	} `json:"terms"`
}

// MonthlyInstancePrice estimates the monthly on-demand price of an instance
// type, assuming it runs all month, hourly billed, shared tenancy, no
// pre-installed software and no reservations. Results are cached per run
// since the same instance type shows up many times in a fleet.
func (s *service) MonthlyInstancePrice(ctx context.Context, region, instanceType, operatingSystem string) (float64, error) {
	cacheKey := region + "|" + instanceType + "|" + operatingSystem

	s.mu.Lock()
	if price, ok := s.cache[cacheKey]; ok {
		s.mu.Unlock()
		return price, nil
	}
	s.mu.Unlock()

	hourly, err := s.lookupHourlyPrice(ctx, region, instanceType, operatingSystem)
	if err != nil {
		return 0, fmt.Errorf("failed to look up price for %s/%s/%s: %w", region, instanceType, operatingSystem, err)
	}
	monthly := hourly * model.HoursInMonth

	logger.GetLogger().Debug("priced instance type", "region", region, "type", instanceType, "os", operatingSystem, "hourly", hourly)

	s.mu.Lock()
	s.cache[cacheKey] = monthly
	s.mu.Unlock()

	return monthly, nil
}

func (s *service) lookupHourlyPrice(ctx context.Context, region, instanceType, operatingSystem string) (float64, error) {
	termMatch := func(field, value string) types.Filter {
		return types.Filter{
			Type:  types.FilterTypeTermMatch,
			Field: aws.String(field),
			Value: aws.String(value),
		}
	}

	output, err := s.client.GetProducts(ctx, &pricing.GetProductsInput{
		ServiceCode:   aws.String("AmazonEC2"),
		FormatVersion: aws.String("aws_v1"),
		MaxResults:    aws.Int32(1),
		Filters: []types.Filter{
			termMatch("ServiceCode", "AmazonEC2"),
			termMatch("licenseModel", "No License required"),
			termMatch("preInstalledSw", "NA"),
			termMatch("capacitystatus", "Used"),
			termMatch("tenancy", "Shared"),
			termMatch("regionCode", region),
			termMatch("instanceType", instanceType),
			termMatch("operatingSystem", operatingSystem),
		},
	})
	if err != nil {
		return 0, err
	}
	if len(output.PriceList) == 0 {
		return 0, fmt.Errorf("no price list entry found")
	}

	var entry priceListEntry
	if err := json.Unmarshal([]byte(output.PriceList[0]), &entry); err != nil {
		return 0, fmt.Errorf("failed to decode price list entry: %w", err)
	}

	for _, term := range entry.Terms.OnDemand {
		for _, dimension := range term.PriceDimensions {
			hourly, err := strconv.ParseFloat(dimension.PricePerUnit.USD, 64)
			if err != nil {
				return 0, fmt.Errorf("failed to parse price %q: %w", dimension.PricePerUnit.USD, err)
			}
			return hourly, nil
		}
	}
	return 0, fmt.Errorf("price list entry has no on-demand price dimension")
}
