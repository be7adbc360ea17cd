package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"shipment-forecast-service/internal/domain"
)

// SQLite-backed cache of resolved locations for local runs. Mirrors
// SQLLocationCache with SQLite placeholder syntax.
type SqliteLocationCache struct {
	DB *sql.DB
}

func NewSqliteLocationCache(db *sql.DB) *SqliteLocationCache {
	return &SqliteLocationCache{DB: db}
}

func (s *SqliteLocationCache) FindByCity(ctx context.Context, city, countryCode string) (domain.Location, bool, error) {
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
	WHERE UPPER(city) = UPPER(?)
	`
	args := []any{city}
	if countryCode = strings.TrimSpace(countryCode); countryCode != "" {
		q += ` AND UPPER(country_code) = UPPER(?)`
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

func (s *SqliteLocationCache) FindByName(ctx context.Context, name string) (domain.Location, bool, error) {
	if s.DB == nil {
		return domain.Location{}, false, errors.New("location cache: db is nil")
	}

	q := `
	SELECT id, name, city, state, country_code, lon, lat
	FROM locations
	WHERE name = ?
	`
	var loc domain.Location
	err := s.DB.QueryRowContext(ctx, q, name).Scan(&loc.ID, &loc.Name, &loc.City, &loc.State,
		&loc.CountryCode, &loc.Coordinates.Lon, &loc.Coordinates.Lat)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Location{}, false, nil
	}
	if err != nil {
		return domain.Location{}, false, fmt.Errorf("location cache: query location name=%q: %w", name, err)
	}
	return loc, true, nil
}

func (s *SqliteLocationCache) Save(ctx context.Context, loc domain.Location) (domain.Location, error) {
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

	res, err := s.DB.ExecContext(ctx, `
	INSERT OR IGNORE INTO locations (name, city, state, country_code, lon, lat)
	VALUES (?, ?, ?, ?, ?, ?);
	`, loc.Name, loc.City, loc.State, loc.CountryCode, loc.Coordinates.Lon, loc.Coordinates.Lat)
	if err != nil {
		return domain.Location{}, fmt.Errorf("location cache: insert name=%q: %w", loc.Name, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return domain.Location{}, fmt.Errorf("location cache: insert id name=%q: %w", loc.Name, err)
	}
	loc.ID = int(id)

	return loc, nil
}
