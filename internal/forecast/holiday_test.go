package forecast

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shipment-forecast-service/internal/ports"
)

type fakeHolidayRepo struct {
	calendar ports.SiteCalendar
	rows     []ports.HolidayRow
}

func (f *fakeHolidayRepo) SiteCalendar(ctx context.Context, siteID int) (ports.SiteCalendar, error) {
	return f.calendar, nil
}

func (f *fakeHolidayRepo) Holidays(ctx context.Context, countryCode string, from, to time.Time) ([]ports.HolidayRow, error) {
	return f.rows, nil
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func allHolidayParams() HolidayParams {
	return HolidayParams{
		ConsiderClosureHolidays: true,
		ConsiderWorkingHolidays: true,
		ConsiderWeekendHolidays: true,
	}
}

func italyCalendar() ports.SiteCalendar {
	return ports.SiteCalendar{
		SiteID:                  1,
		CountryCode:             "IT",
		WeekendStart:            6,
		WeekendEnd:              7,
		ConsiderClosureHolidays: true,
		ConsiderWorkingHolidays: true,
		ConsiderWeekendHolidays: true,
	}
}

func TestHolidayPeriod(t *testing.T) {
	repo := &fakeHolidayRepo{
		calendar: italyCalendar(),
		rows: []ports.HolidayRow{
			{Name: "Factory Closure", CountryCode: "IT", Date: day(2026, time.March, 3), Category: ports.HolidayClosure},
			{Name: "Patron Saint", CountryCode: "IT", Date: day(2026, time.March, 4), Category: ports.HolidayWorking},
		},
	}
	calc := NewHolidayCalculator(allHolidayParams(), repo)

	// Monday through Sunday: one closure, one working holiday, two
	// weekend days.
	result, err := calc.Period(context.Background(), 1, day(2026, time.March, 2), day(2026, time.March, 8))
	require.NoError(t, err)

	require.Len(t, result.ClosureHolidays, 1)
	assert.Equal(t, "Factory Closure", result.ClosureHolidays[0].Name)
	require.Len(t, result.WorkingHolidays, 1)
	assert.Equal(t, "Patron Saint", result.WorkingHolidays[0].Name)
	require.Len(t, result.WeekendHolidays, 2)
	assert.Equal(t, "Weekend - Saturday", result.WeekendHolidays[0].Name)
	assert.Equal(t, "Weekend - Sunday", result.WeekendHolidays[1].Name)

	assert.Equal(t, 3, result.NClosureDays())
	assert.Len(t, result.ClosureDays(), 3)
}

func TestHolidayPeriodSiteSwitchesIntersect(t *testing.T) {
	calendar := italyCalendar()
	calendar.ConsiderWeekendHolidays = false
	repo := &fakeHolidayRepo{calendar: calendar}
	calc := NewHolidayCalculator(allHolidayParams(), repo)

	result, err := calc.Period(context.Background(), 1, day(2026, time.March, 2), day(2026, time.March, 8))
	require.NoError(t, err)

	assert.False(t, result.ConsiderWeekendHolidays)
	assert.Empty(t, result.WeekendHolidays)
	assert.Equal(t, 0, result.NClosureDays())
}

func TestHolidayPeriodDisabled(t *testing.T) {
	calc := NewHolidayCalculator(HolidayParams{}, nil)

	result, err := calc.Period(context.Background(), 1, day(2026, time.March, 2), day(2026, time.March, 8))
	require.NoError(t, err)
	assert.Equal(t, emptyHolidayResult(), result)
}

func TestHolidayFromADTWeekendExtendsWalk(t *testing.T) {
	repo := &fakeHolidayRepo{calendar: italyCalendar()}
	calc := NewHolidayCalculator(allHolidayParams(), repo)

	// Two dispatch days starting Friday: Friday consumes one, the
	// weekend consumes none, Monday consumes the second.
	result, err := calc.FromADT(context.Background(), 1, day(2026, time.March, 6), 48)
	require.NoError(t, err)

	require.Len(t, result.WeekendHolidays, 2)
	assert.Equal(t, 2, result.NClosureDays())
}

func TestHolidayFromADTWorkingHolidayConsumesDispatch(t *testing.T) {
	repo := &fakeHolidayRepo{
		calendar: italyCalendar(),
		rows: []ports.HolidayRow{
			{Name: "Patron Saint", CountryCode: "IT", Date: day(2026, time.March, 2), Category: ports.HolidayWorking},
		},
	}
	calc := NewHolidayCalculator(allHolidayParams(), repo)

	result, err := calc.FromADT(context.Background(), 1, day(2026, time.March, 2), 24)
	require.NoError(t, err)

	require.Len(t, result.WorkingHolidays, 1)
	assert.Equal(t, 0, result.NClosureDays())
}

func TestIsoWeekday(t *testing.T) {
	assert.Equal(t, 1, isoWeekday(day(2026, time.March, 2)))
	assert.Equal(t, 6, isoWeekday(day(2026, time.March, 7)))
	assert.Equal(t, 7, isoWeekday(day(2026, time.March, 8)))
}
