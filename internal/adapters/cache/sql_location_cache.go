package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"shipment-forecast-service/internal/domain"
	"shipment-forecast-service/internal/platform/obs"
)

// SQLLocationCache is a Postgres-backed cache of resolved locations,
// keyed by canonical name and by (city, country). A cached hit lets
// vertex resolution skip the external geocoding call.
type SQLLocationCache struct {
	DB *sql.DB
}

func NewSQLLocationCache(db *sql.DB) *SQLLocationCache {
	return &SQLLocationCache{DB: db}
}

// FindByCity returns the cached location for a city and optional
// country code. Multiple matches count as a miss: the caller must
// disambiguate through the geocoding backend.
func (s *SQLLocationCache) FindByCity(ctx context.Context, city, countryCode string) (_ domain.Location, _ bool, err error) {
	defer obs.Time(ctx, "location.cache.FindByCity")(&err)

	if s.DB == nil {
		return domain.Location{}, false, errors.New("location cache: db is nil")
	}

	city = strings.TrimSpace(city)
	if city == "" {
		return domain.Location{}, false, errors.New("location cache: city must be non-empty")
	}

	q := `
	SELECT id, name, city, state, country_code, lon, lat
	FROM locations
	WHERE UPPER(city) = UPPER($1)
	`
	args := []any{city}
	if countryCode = strings.TrimSpace(countryCode); countryCode != "" {
		q += ` AND UPPER(country_code) = UPPER($2)`
		args = append(args, countryCode)
	}

	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return domain.Location{}, false, fmt.Errorf("location cache: query locations: %w", err)
	}
	defer rows.Close()

	matches := make([]domain.Location, 0, 1)
	for rows.Next() {
		var loc domain.Location
		if err := rows.Scan(&loc.ID, &loc.Name, &loc.City, &loc.State, &loc.CountryCode,
			&loc.Coordinates.Lon, &loc.Coordinates.Lat); err != nil {
			return domain.Location{}, false, fmt.Errorf("location cache: scan rows: %w", err)
		}
		matches = append(matches, loc)
	}
	if err := rows.Err(); err != nil {
		return domain.Location{}, false, fmt.Errorf("location cache: row iteration: %w", err)
	}

	if len(matches) != 1 {
		return domain.Location{}, false, nil
	}
	return matches[0], true, nil
}

// FindByName returns the cached location with the exact canonical name.
func (s *SQLLocationCache) FindByName(ctx context.Context, name string) (_ domain.Location, _ bool, err error) {
	defer obs.Time(ctx, "location.cache.FindByName")(&err)

	if s.DB == nil {
		return domain.Location{}, false, errors.New("location cache: db is nil")
	}

	q := `
	SELECT id, name, city, state, country_code, lon, lat
	FROM locations
	WHERE name = $1
	`
	var loc domain.Location
	err = s.DB.QueryRowContext(ctx, q, name).Scan(&loc.ID, &loc.Name, &loc.City, &loc.State,
		&loc.CountryCode, &loc.Coordinates.Lon, &loc.Coordinates.Lat)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Location{}, false, nil
	}
	if err != nil {
		return domain.Location{}, false, fmt.Errorf("location cache: query location name=%q: %w", name, err)
	}
	return loc, true, nil
}

// Save stores a resolved location, keeping the existing row when the
// canonical name is already cached.
func (s *SQLLocationCache) Save(ctx context.Context, loc domain.Location) (domain.Location, error) {
	if s.DB == nil {
		return domain.Location{}, errors.New("location cache: db is nil")
	}

	if strings.TrimSpace(loc.Name) == "" {
		return domain.Location{}, errors.New("location cache: empty location name")
	}

	existing, ok, err := s.FindByName(ctx, loc.Name)
	if err != nil {
		return domain.Location{}, err
	}
	if ok {
		return existing, nil
	}

	q := `
	INSERT INTO locations (name, city, state, country_code, lon, lat)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (name) DO UPDATE SET city = EXCLUDED.city
	RETURNING id;
	`
	if err := s.DB.QueryRowContext(ctx, q, loc.Name, loc.City, loc.State, loc.CountryCode,
		loc.Coordinates.Lon, loc.Coordinates.Lat).Scan(&loc.ID); err != nil {
		return domain.Location{}, fmt.Errorf("location cache: insert name=%q: %w", loc.Name, err)
	}

	return loc, nil
}
