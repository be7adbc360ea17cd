package ports

import (
	"context"
	"time"
)

// HolidayCategory splits site holidays into full closures and days the
// site works at reduced capacity.
type HolidayCategory string

const (
	HolidayClosure HolidayCategory = "CLOSURE"
	HolidayWorking HolidayCategory = "WORKING"
)

// HolidayRow is one holiday of a site's country calendar.
type HolidayRow struct {
	ID          int
	Name        string
	CountryCode string
	Date        time.Time
	Category    HolidayCategory
	Type        string
	Description string
}

// SiteCalendar is the calendar configuration of a supplier site: the
// country it operates in, that country's weekend span (weekday numbers,
// Monday=1), and the site-level switches for which holiday kinds count
// as closure time.
type SiteCalendar struct {
	SiteID                  int
	CountryCode             string
	WeekendStart            int
	WeekendEnd              int
	ConsiderClosureHolidays bool
	ConsiderWorkingHolidays bool
	ConsiderWeekendHolidays bool
}

// HolidayRepository reads site calendars and country holidays from the
// relational store.
type HolidayRepository interface {
	SiteCalendar(ctx context.Context, siteID int) (SiteCalendar, error)
	Holidays(ctx context.Context, countryCode string, from, to time.Time) ([]HolidayRow, error)
}
