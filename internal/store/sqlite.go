package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang/glog"
	_ "modernc.org/sqlite"

	"github.com/i474232898/sunshine-wear/internal/weather"
)

const dateLayout = "2006-01-02"

// SQLiteStore implements weather.Store using sqlite (pure Go driver modernc.org/sqlite).
type SQLiteStore struct {
	db      *sql.DB
	maxDays int
}

// NewSQLite opens (or creates) the database at path and applies the schema.
// maxDays <= 0 keeps every day.
func NewSQLite(path string, maxDays int) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		glog.Warningf("store: could not set WAL mode: %v", err)
	}

	schema := `CREATE TABLE IF NOT EXISTS weather (
        location_key TEXT NOT NULL,
        city TEXT,
        country TEXT,
        date TEXT NOT NULL,
        max_temp REAL NOT NULL,
        min_temp REAL NOT NULL,
        weather_id INTEGER NOT NULL,
        updated_at TEXT,
        providers TEXT,
        PRIMARY KEY (location_key, date)
    );`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db, maxDays: maxDays}, nil
}

func (s *SQLiteStore) SaveDay(loc weather.Location, day weather.DayForecast) error {
	providers, err := json.Marshal(day.Providers)
	if err != nil {
		return err
	}
	date := weather.DayOf(day.Date)

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT OR REPLACE INTO weather(location_key, city, country, date, max_temp, min_temp, weather_id, updated_at, providers) VALUES(?,?,?,?,?,?,?,?,?)`,
		loc.Key(), loc.City, loc.Country, date.Format(dateLayout),
		day.MaxTempC, day.MinTempC, int(day.ConditionID),
		day.UpdatedAt.UTC().Format(time.RFC3339), string(providers))
	if err != nil {
		return err
	}

	if s.maxDays > 0 {
		// Keep only the newest maxDays dates for this location.
		_, err = tx.Exec(`DELETE FROM weather WHERE location_key = ? AND date NOT IN (
            SELECT date FROM weather WHERE location_key = ? ORDER BY date DESC LIMIT ?)`,
			loc.Key(), loc.Key(), s.maxDays)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) Day(loc weather.Location, date time.Time) (weather.DayForecast, error) {
	row := s.db.QueryRow(`SELECT date, max_temp, min_temp, weather_id, updated_at, providers FROM weather WHERE location_key = ? AND date = ?`,
		loc.Key(), weather.DayOf(date).Format(dateLayout))
	return scanDay(loc, row)
}

func (s *SQLiteStore) Latest(loc weather.Location) (weather.DayForecast, error) {
	row := s.db.QueryRow(`SELECT date, max_temp, min_temp, weather_id, updated_at, providers FROM weather WHERE location_key = ? ORDER BY date DESC LIMIT 1`,
		loc.Key())
	return scanDay(loc, row)
}

// QueryToday selects the max temperature, min temperature and condition id of today's row.
// The returned cursor owns the underlying *sql.Rows.
func (s *SQLiteStore) QueryToday(ctx context.Context, loc weather.Location, now time.Time) (weather.RowCursor, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT max_temp, min_temp, weather_id FROM weather WHERE location_key = ? AND date = ?`,
		loc.Key(), weather.DayOf(now).Format(dateLayout))
	if err != nil {
		return nil, err
	}
	return &rowsCursor{rows: rows}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanDay(loc weather.Location, row *sql.Row) (weather.DayForecast, error) {
	var (
		day       weather.DayForecast
		date      string
		cond      int
		updatedAt sql.NullString
		providers sql.NullString
	)
	err := row.Scan(&date, &day.MaxTempC, &day.MinTempC, &cond, &updatedAt, &providers)
	if errors.Is(err, sql.ErrNoRows) {
		return weather.DayForecast{}, ErrNotFound
	}
	if err != nil {
		return weather.DayForecast{}, err
	}

	day.Location = loc
	day.ConditionID = weather.ConditionID(cond)
	if day.Date, err = time.Parse(dateLayout, date); err != nil {
		return weather.DayForecast{}, fmt.Errorf("store: bad date %q: %w", date, err)
	}
	if updatedAt.Valid {
		if t, err := time.Parse(time.RFC3339, updatedAt.String); err == nil {
			day.UpdatedAt = t
		}
	}
	if providers.Valid && providers.String != "" && providers.String != "null" {
		if err := json.Unmarshal([]byte(providers.String), &day.Providers); err != nil {
			glog.Warningf("store: ignoring bad providers column for %s: %v", loc.Key(), err)
		}
	}
	return day, nil
}

type rowsCursor struct {
	rows *sql.Rows
}

func (c *rowsCursor) Next() bool { return c.rows.Next() }

func (c *rowsCursor) Scan(row *weather.TodayRow) error {
	return c.rows.Scan(&row.MaxTemp, &row.MinTemp, &row.ConditionID)
}

func (c *rowsCursor) Close() error { return c.rows.Close() }
