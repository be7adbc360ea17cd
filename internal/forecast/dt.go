package forecast

import (
	"context"
	"fmt"
	"log"
	"time"

	"shipment-forecast-service/internal/stats"
)

// DTInput selects how the dispatch time is derived: from the site's
// historical dispatch distribution while the order has not shipped, or
// from the known shipment time once it has.
type DTInput interface {
	isDTInput()
	InputSiteID() int
}

// DTDistributionInput estimates the dispatch time from the historical
// distribution.
type DTDistributionInput struct {
	SiteID       int
	Distribution stats.Distribution
}

func (DTDistributionInput) isDTInput() {}
func (i DTDistributionInput) InputSiteID() int { return i.SiteID }

// DTShipmentTimeInput computes the dispatch time from the observed
// shipment start.
type DTShipmentTimeInput struct {
	SiteID       int
	ShipmentTime time.Time
}

func (DTShipmentTimeInput) isDTInput() {}
func (i DTShipmentTimeInput) InputSiteID() int { return i.SiteID }

// DT is the dispatch time estimate: elapsed hours so far, the bounds on
// the hours still to come, and the holiday adjustments applied to each.
type DT struct {
	Confidence float64

	ElapsedTime        float64
	ElapsedWorkingTime float64
	ElapsedHolidays    HolidayResult

	RemainingTimeLower float64
	RemainingTime      float64
	RemainingTimeUpper float64

	RemainingWorkingTimeLower float64
	RemainingWorkingTime      float64
	RemainingWorkingTimeUpper float64

	RemainingHolidays HolidayResult
}

func (dt DT) TotalTimeLower() float64 { return dt.ElapsedTime + dt.RemainingTimeLower }
func (dt DT) TotalTime() float64      { return dt.ElapsedTime + dt.RemainingTime }
func (dt DT) TotalTimeUpper() float64 { return dt.ElapsedTime + dt.RemainingTimeUpper }

func (dt DT) TotalWorkingTimeLower() float64 {
	return dt.ElapsedWorkingTime + dt.RemainingWorkingTimeLower
}

func (dt DT) TotalWorkingTime() float64 {
	return dt.ElapsedWorkingTime + dt.RemainingWorkingTime
}

func (dt DT) TotalWorkingTimeUpper() float64 {
	return dt.ElapsedWorkingTime + dt.RemainingWorkingTimeUpper
}

// TotalHolidays merges the elapsed and remaining holiday results.
func (dt DT) TotalHolidays() HolidayResult {
	merged := emptyHolidayResult()
	merged.ConsiderClosureHolidays = dt.ElapsedHolidays.ConsiderClosureHolidays || dt.RemainingHolidays.ConsiderClosureHolidays
	merged.ConsiderWorkingHolidays = dt.ElapsedHolidays.ConsiderWorkingHolidays || dt.RemainingHolidays.ConsiderWorkingHolidays
	merged.ConsiderWeekendHolidays = dt.ElapsedHolidays.ConsiderWeekendHolidays || dt.RemainingHolidays.ConsiderWeekendHolidays
	merged.ClosureHolidays = append(merged.ClosureHolidays, dt.ElapsedHolidays.ClosureHolidays...)
	merged.ClosureHolidays = append(merged.ClosureHolidays, dt.RemainingHolidays.ClosureHolidays...)
	merged.WorkingHolidays = append(merged.WorkingHolidays, dt.ElapsedHolidays.WorkingHolidays...)
	merged.WorkingHolidays = append(merged.WorkingHolidays, dt.RemainingHolidays.WorkingHolidays...)
	merged.WeekendHolidays = append(merged.WeekendHolidays, dt.ElapsedHolidays.WeekendHolidays...)
	merged.WeekendHolidays = append(merged.WeekendHolidays, dt.RemainingHolidays.WeekendHolidays...)
	return merged
}

// DTCalculator estimates the dispatch time at a supplier site, folding
// site closure days out of the elapsed time and back into the
// remaining bounds.
type DTCalculator struct {
	holidays   *HolidayCalculator
	confidence float64
}

func NewDTCalculator(holidays *HolidayCalculator, confidence float64) *DTCalculator {
	return &DTCalculator{holidays: holidays, confidence: confidence}
}

func clampNonNegative(v float64, what string) float64 {
	if v < 0 {
		log.Printf("dt: negative %s hours=%f clamped to 0", what, v)
		return 0
	}
	return v
}

func (c *DTCalculator) calculateDistributionDT(ctx context.Context, input DTDistributionInput, tsInput TimeSequenceInput) (DT, error) {
	adt, err := stats.Mean(input.Distribution)
	if err != nil {
		return DT{}, fmt.Errorf("dt: dispatch distribution mean: %w", err)
	}
	dispatchLower, dispatchUpper, err := stats.CI(input.Distribution, c.confidence)
	if err != nil {
		return DT{}, fmt.Errorf("dt: dispatch distribution ci: %w", err)
	}

	elapsed := hoursBetween(tsInput.OrderTime, tsInput.EstimationTime)

	elapsedHolidays, err := c.holidays.Period(ctx, input.SiteID, tsInput.OrderTime, tsInput.EstimationTime)
	if err != nil {
		return DT{}, fmt.Errorf("dt: elapsed holidays: %w", err)
	}

	elapsedWorking := elapsed - float64(elapsedHolidays.NClosureDays())*24.0
	if elapsedWorking < 0 {
		elapsedWorking = 0
	}

	remainingWorkingLower := clampNonNegative(dispatchLower-elapsedWorking, "remaining working time lower")
	remainingWorking := clampNonNegative(adt-elapsedWorking, "remaining working time")
	remainingWorkingUpper := clampNonNegative(dispatchUpper-elapsedWorking, "remaining working time upper")

	remainingHolidays, err := c.holidays.FromADT(ctx, input.SiteID, tsInput.EstimationTime, remainingWorking)
	if err != nil {
		return DT{}, fmt.Errorf("dt: remaining holidays: %w", err)
	}
	closureHours := float64(remainingHolidays.NClosureDays()) * 24.0

	return DT{
		Confidence:                c.confidence,
		ElapsedTime:               elapsed,
		ElapsedWorkingTime:        elapsedWorking,
		ElapsedHolidays:           elapsedHolidays,
		RemainingTimeLower:        remainingWorkingLower + closureHours,
		RemainingTime:             remainingWorking + closureHours,
		RemainingTimeUpper:        remainingWorkingUpper + closureHours,
		RemainingWorkingTimeLower: remainingWorkingLower,
		RemainingWorkingTime:      remainingWorking,
		RemainingWorkingTimeUpper: remainingWorkingUpper,
		RemainingHolidays:         remainingHolidays,
	}, nil
}

func (c *DTCalculator) calculateShipmentDT(ctx context.Context, input DTShipmentTimeInput, tsInput TimeSequenceInput) (DT, error) {
	holidays, err := c.holidays.Period(ctx, input.SiteID, tsInput.OrderTime, input.ShipmentTime)
	if err != nil {
		return DT{}, fmt.Errorf("dt: elapsed holidays: %w", err)
	}

	elapsed := hoursBetween(tsInput.OrderTime, input.ShipmentTime)
	elapsedWorking := clampNonNegative(elapsed-float64(holidays.NClosureDays())*24.0, "elapsed working time")

	return DT{
		Confidence:         c.confidence,
		ElapsedTime:        elapsed,
		ElapsedWorkingTime: elapsedWorking,
		ElapsedHolidays:    holidays,
		RemainingHolidays:  emptyHolidayResult(),
	}, nil
}

// Calculate dispatches on the input variant.
func (c *DTCalculator) Calculate(ctx context.Context, input DTInput, tsInput TimeSequenceInput) (DT, error) {
	switch v := input.(type) {
	case DTDistributionInput:
		return c.calculateDistributionDT(ctx, v, tsInput)
	case DTShipmentTimeInput:
		return c.calculateShipmentDT(ctx, v, tsInput)
	default:
		return DT{}, fmt.Errorf("dt: unsupported input type %T", input)
	}
}
