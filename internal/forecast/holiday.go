package forecast

import (
	"context"
	"fmt"
	"math"
	"time"

	"shipment-forecast-service/internal/ports"
)

// Extra days of calendar loaded past the nominal end, so the ADT walk
// never runs out of holiday data.
const holidayDaysWindow = 30

// HolidayResult reports the holidays found over a span, split by
// category, together with the effective consider switches after the
// site configuration was applied.
type HolidayResult struct {
	ConsiderClosureHolidays bool
	ConsiderWorkingHolidays bool
	ConsiderWeekendHolidays bool

	ClosureHolidays []ports.HolidayRow
	WorkingHolidays []ports.HolidayRow
	WeekendHolidays []ports.HolidayRow
}

// NClosureDays counts the days the site was fully closed: closure
// holidays plus weekend days.
func (r HolidayResult) NClosureDays() int {
	return len(r.ClosureHolidays) + len(r.WeekendHolidays)
}

// ClosureDays returns the closed days themselves.
func (r HolidayResult) ClosureDays() []ports.HolidayRow {
	days := make([]ports.HolidayRow, 0, r.NClosureDays())
	days = append(days, r.ClosureHolidays...)
	days = append(days, r.WeekendHolidays...)
	return days
}

// HolidayCalculator counts site closure days over a period or over a
// projected dispatch window, combining the country holiday calendar
// with the site's weekend configuration.
type HolidayCalculator struct {
	params HolidayParams
	repo   ports.HolidayRepository
}

func NewHolidayCalculator(params HolidayParams, repo ports.HolidayRepository) *HolidayCalculator {
	return &HolidayCalculator{params: params, repo: repo}
}

func (c *HolidayCalculator) disabled() bool {
	return !c.params.ConsiderClosureHolidays &&
		!c.params.ConsiderWorkingHolidays &&
		!c.params.ConsiderWeekendHolidays
}

// siteContext resolves the site calendar, loads its country holidays
// over [start, end+window], and intersects the consider switches.
type siteContext struct {
	calendar  ports.SiteCalendar
	byYearDay map[int]ports.HolidayRow

	considerClosure bool
	considerWorking bool
	considerWeekend bool
}

func (c *HolidayCalculator) loadSiteContext(ctx context.Context, siteID int, start, end time.Time) (siteContext, error) {
	calendar, err := c.repo.SiteCalendar(ctx, siteID)
	if err != nil {
		return siteContext{}, fmt.Errorf("holiday: load site calendar for site %d: %w", siteID, err)
	}

	rows, err := c.repo.Holidays(ctx, calendar.CountryCode, start, end.AddDate(0, 0, holidayDaysWindow))
	if err != nil {
		return siteContext{}, fmt.Errorf("holiday: load holidays for country %s: %w", calendar.CountryCode, err)
	}

	byYearDay := make(map[int]ports.HolidayRow, len(rows))
	for _, row := range rows {
		byYearDay[row.Date.YearDay()] = row
	}

	return siteContext{
		calendar:        calendar,
		byYearDay:       byYearDay,
		considerClosure: calendar.ConsiderClosureHolidays && c.params.ConsiderClosureHolidays,
		considerWorking: calendar.ConsiderWorkingHolidays && c.params.ConsiderWorkingHolidays,
		considerWeekend: calendar.ConsiderWeekendHolidays && c.params.ConsiderWeekendHolidays,
	}, nil
}

func (sc siteContext) noneConsidered() bool {
	return !sc.considerClosure && !sc.considerWorking && !sc.considerWeekend
}

func (sc siteContext) holidayOn(day time.Time, category ports.HolidayCategory) (ports.HolidayRow, bool) {
	row, ok := sc.byYearDay[day.YearDay()]
	if !ok || row.Category != category {
		return ports.HolidayRow{}, false
	}
	row.Date = day
	return row, true
}

// ISO weekday number, Monday=1 through Sunday=7.
func isoWeekday(day time.Time) int {
	wd := int(day.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

func (sc siteContext) weekendOn(day time.Time) (ports.HolidayRow, bool) {
	wd := isoWeekday(day)
	if wd < sc.calendar.WeekendStart || wd > sc.calendar.WeekendEnd {
		return ports.HolidayRow{}, false
	}
	name := day.Weekday().String()
	return ports.HolidayRow{
		Name:        "Weekend - " + name,
		CountryCode: sc.calendar.CountryCode,
		Date:        day,
		Category:    ports.HolidayClosure,
		Type:        "Public",
		Description: "Weekend closure on " + name,
	}, true
}

func emptyHolidayResult() HolidayResult {
	return HolidayResult{
		ClosureHolidays: []ports.HolidayRow{},
		WorkingHolidays: []ports.HolidayRow{},
		WeekendHolidays: []ports.HolidayRow{},
	}
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

type dayKind int

const (
	dayOpen dayKind = iota
	dayClosureHoliday
	dayWorkingHoliday
	dayWeekend
)

// classifyDay appends the day to at most one bucket, with closure
// holidays taking precedence over working holidays over weekends.
func classifyDay(sc siteContext, day time.Time, result *HolidayResult) dayKind {
	if sc.considerClosure {
		if row, ok := sc.holidayOn(day, ports.HolidayClosure); ok {
			result.ClosureHolidays = append(result.ClosureHolidays, row)
			return dayClosureHoliday
		}
	}
	if sc.considerWorking {
		if row, ok := sc.holidayOn(day, ports.HolidayWorking); ok {
			result.WorkingHolidays = append(result.WorkingHolidays, row)
			return dayWorkingHoliday
		}
	}
	if sc.considerWeekend {
		if row, ok := sc.weekendOn(day); ok {
			result.WeekendHolidays = append(result.WeekendHolidays, row)
			return dayWeekend
		}
	}
	return dayOpen
}

// Period counts holidays on each calendar day of [start, end],
// inclusive.
func (c *HolidayCalculator) Period(ctx context.Context, siteID int, start, end time.Time) (HolidayResult, error) {
	if c.disabled() {
		return emptyHolidayResult(), nil
	}

	startDay := dateOf(start)
	endDay := dateOf(end)

	sc, err := c.loadSiteContext(ctx, siteID, startDay, endDay)
	if err != nil {
		return HolidayResult{}, err
	}
	if sc.noneConsidered() {
		return emptyHolidayResult(), nil
	}

	result := emptyHolidayResult()
	result.ConsiderClosureHolidays = sc.considerClosure
	result.ConsiderWorkingHolidays = sc.considerWorking
	result.ConsiderWeekendHolidays = sc.considerWeekend

	nDays := int(endDay.Sub(startDay).Hours()/24) + 1
	day := startDay
	for i := 0; i < nDays; i++ {
		classifyDay(sc, day, &result)
		day = day.AddDate(0, 0, 1)
	}
	return result, nil
}

// FromADT projects holidays over the remaining dispatch duration: the
// walk consumes one dispatch day per calendar day unless the site is
// fully closed (closure holiday or weekend), so closures extend the
// window.
func (c *HolidayCalculator) FromADT(ctx context.Context, siteID int, start time.Time, adtHours float64) (HolidayResult, error) {
	if c.disabled() {
		return emptyHolidayResult(), nil
	}

	startDay := dateOf(start)
	dispatchDays := int(math.Ceil(adtHours / 24.0))
	endDay := startDay.AddDate(0, 0, dispatchDays)

	sc, err := c.loadSiteContext(ctx, siteID, startDay, endDay)
	if err != nil {
		return HolidayResult{}, err
	}
	if sc.noneConsidered() {
		return emptyHolidayResult(), nil
	}

	result := emptyHolidayResult()
	result.ConsiderClosureHolidays = sc.considerClosure
	result.ConsiderWorkingHolidays = sc.considerWorking
	result.ConsiderWeekendHolidays = sc.considerWeekend

	day := startDay
	for dispatchDays > 0 {
		switch classifyDay(sc, day, &result) {
		case dayOpen, dayWorkingHoliday:
			// The site works on open days and working holidays, so the
			// day consumes dispatch time. Full closures extend the walk.
			dispatchDays--
		}
		day = day.AddDate(0, 0, 1)
	}
	return result, nil
}
