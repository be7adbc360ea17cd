package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"shipment-forecast-service/internal/ports"
)

// SQLHolidayRepository reads site calendars and country holidays.
type SQLHolidayRepository struct {
	DB *sql.DB
}

func NewSQLHolidayRepository(db *sql.DB) *SQLHolidayRepository {
	return &SQLHolidayRepository{DB: db}
}

func (r *SQLHolidayRepository) SiteCalendar(ctx context.Context, siteID int) (ports.SiteCalendar, error) {
	q := `
	SELECT site_id, country_code, weekend_start, weekend_end,
		consider_closure_holidays, consider_working_holidays, consider_weekends_holidays
	FROM site_calendars
	WHERE site_id = $1
	`

	var cal ports.SiteCalendar
	err := r.DB.QueryRowContext(ctx, q, siteID).Scan(
		&cal.SiteID, &cal.CountryCode, &cal.WeekendStart, &cal.WeekendEnd,
		&cal.ConsiderClosureHolidays, &cal.ConsiderWorkingHolidays, &cal.ConsiderWeekendHolidays,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return ports.SiteCalendar{}, fmt.Errorf("get site calendar: %w: site %d", ErrNotFound, siteID)
	}
	if err != nil {
		return ports.SiteCalendar{}, fmt.Errorf("get site calendar site=%d: %w", siteID, err)
	}
	return cal, nil
}

func (r *SQLHolidayRepository) Holidays(ctx context.Context, countryCode string, from, to time.Time) ([]ports.HolidayRow, error) {
	q := `
	SELECT id, name, country_code, category, type, description, date
	FROM holidays
	WHERE country_code = $1 AND date >= $2 AND date <= $3
	ORDER BY date
	`

	rows, err := r.DB.QueryContext(ctx, q, countryCode, from, to)
	if err != nil {
		return nil, fmt.Errorf("get holidays country=%s: %w", countryCode, err)
	}
	defer rows.Close()

	var out []ports.HolidayRow
	for rows.Next() {
		var h ports.HolidayRow
		var category string
		var htype, desc sql.NullString
		if err := rows.Scan(&h.ID, &h.Name, &h.CountryCode, &category, &htype, &desc, &h.Date); err != nil {
			return nil, fmt.Errorf("get holidays: scan rows: %w", err)
		}
		h.Category = ports.HolidayCategory(category)
		h.Type = htype.String
		h.Description = desc.String
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get holidays: row iteration: %w", err)
	}

	return out, nil
}
