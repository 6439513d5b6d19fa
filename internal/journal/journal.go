// Package journal records sweep control-plane events to a sqlite database:
// one session row per analyzer run and one row per retune issued during the
// sweep. Payload samples and spectra are never written here.
package journal

import (
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// SessionData represents one analyzer run
type SessionData struct {
	ID         int64
	StartTime  time.Time
	DeviceType string
	DeviceID   string
	Config     sql.NullString
}

// RetuneEvent represents one retune issued by the sweep controller
type RetuneEvent struct {
	ID        int64
	SessionID int64
	Timestamp time.Time
	Span      uint64  // Span count at the time of the retune
	Segment   int     // Segment index within the span
	Frequency float64 // Segment center frequency in Hz
}

// Journal handles database operations
type Journal struct {
	dbPath string

	writeDB     *sql.DB
	writeDBOnce sync.Once
	writeDBErr  error

	readDB     *sql.DB
	readDBOnce sync.Once
	readDBErr  error

	closeOnce sync.Once
	closeErr  error
}

// New creates a journal backed by the sqlite database at dbPath. Connections
// are opened lazily and the schema is initialized on first write.
func New(dbPath string) (*Journal, error) {
	if dbPath == "" {
		return nil, errors.New("journal: database path is required")
	}
	return &Journal{dbPath: dbPath}, nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(schemaSQL)
	return err
}

func (j *Journal) getWriteDB() (*sql.DB, error) {
	j.writeDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", j.dbPath+"?_journal_mode=WAL&_synchronous=NORMAL")
		if err != nil {
			j.writeDBErr = err
			return
		}

		if err = initSchema(db); err != nil {
			_ = db.Close()
			j.writeDBErr = err
			return
		}

		j.writeDB = db
	})

	return j.writeDB, j.writeDBErr
}

func (j *Journal) getReadDB() (*sql.DB, error) {
	j.readDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", j.dbPath)
		if err != nil {
			j.readDBErr = err
			return
		}
		j.readDB = db
	})

	return j.readDB, j.readDBErr
}

const insertSessionSQL = `
INSERT INTO sessions (start_time, device_type, device_id, config)
VALUES (CURRENT_TIMESTAMP, ?, ?, ?)`

// CreateSession creates a new session and returns its ID. The config is
// stored as JSON unless it is already a string or byte slice.
func (j *Journal) CreateSession(deviceType, deviceID string, config any) (sessionID int64, err error) {
	var configData sql.NullString

	if config != nil {
		switch v := config.(type) {
		case string:
			configData.Valid = true
			configData.String = v

		case []byte:
			configData.Valid = true
			configData.String = string(v)

		default:
			var p []byte
			if p, err = json.Marshal(config); err != nil {
				err = fmt.Errorf("marshaling config: %w", err)
				return
			}

			configData.Valid = true
			configData.String = string(p)
		}
	}

	db, err := j.getWriteDB()
	if err != nil {
		err = fmt.Errorf("getting write connection: %w", err)
		return
	}

	stmt, err := db.Prepare(insertSessionSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer func() {
		if cErr := stmt.Close(); cErr != nil && err == nil {
			err = fmt.Errorf("closing statement: %w", cErr)
		}
	}()

	result, err := stmt.Exec(deviceType, deviceID, configData)
	if err != nil {
		err = fmt.Errorf("inserting session: %w", err)
		return
	}

	return result.LastInsertId()
}

const insertRetuneSQL = `
INSERT INTO retunes (session_id, timestamp, span, segment, frequency)
VALUES (?, ?, ?, ?, ?)`

// InsertRetune records a retune event and returns its ID
func (j *Journal) InsertRetune(e RetuneEvent) (retuneID int64, err error) {
	db, err := j.getWriteDB()
	if err != nil {
		err = fmt.Errorf("getting write connection: %w", err)
		return
	}

	stmt, err := db.Prepare(insertRetuneSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer func() {
		if cErr := stmt.Close(); cErr != nil && err == nil {
			err = fmt.Errorf("closing statement: %w", cErr)
		}
	}()

	result, err := stmt.Exec(e.SessionID, e.Timestamp.UTC(), e.Span, e.Segment, e.Frequency)
	if err != nil {
		err = fmt.Errorf("inserting retune: %w", err)
		return
	}

	return result.LastInsertId()
}

const selectSessionsSQL = `
SELECT
    id,
    start_time,
    device_type,
    device_id,
    config
FROM sessions`

// Sessions returns all recorded sessions
func (j *Journal) Sessions() (sessions []SessionData, err error) {
	db, err := j.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	rows, err := db.Query(selectSessionsSQL)
	if err != nil {
		err = fmt.Errorf("querying sessions: %w", err)
		return
	}
	defer func() {
		if cErr := rows.Close(); cErr != nil && err == nil {
			err = fmt.Errorf("closing rows: %w", cErr)
		}
	}()

	for rows.Next() {
		var sess SessionData
		if err = rows.Scan(&sess.ID, &sess.StartTime, &sess.DeviceType, &sess.DeviceID, &sess.Config); err != nil {
			err = fmt.Errorf("scanning session: %w", err)
			return
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

const selectRetunesSQL = `
SELECT
    id,
    session_id,
    timestamp,
    span,
    segment,
    frequency
FROM retunes
WHERE
    session_id = ?
ORDER BY id`

// Retunes returns the retune events of a session in insertion order
func (j *Journal) Retunes(sessionID int64) (events []RetuneEvent, err error) {
	db, err := j.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	rows, err := db.Query(selectRetunesSQL, sessionID)
	if err != nil {
		err = fmt.Errorf("querying retunes: %w", err)
		return
	}
	defer func() {
		if cErr := rows.Close(); cErr != nil && err == nil {
			err = fmt.Errorf("closing rows: %w", cErr)
		}
	}()

	for rows.Next() {
		var e RetuneEvent
		if err = rows.Scan(&e.ID, &e.SessionID, &e.Timestamp, &e.Span, &e.Segment, &e.Frequency); err != nil {
			err = fmt.Errorf("scanning retune: %w", err)
			return
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Close closes the database connections
func (j *Journal) Close() error {
	j.closeOnce.Do(func() {
		var errs []error
		if j.writeDB != nil {
			if err := j.writeDB.Close(); err != nil {
				errs = append(errs, fmt.Errorf("closing write connection: %w", err))
			}
		}
		if j.readDB != nil {
			if err := j.readDB.Close(); err != nil {
				errs = append(errs, fmt.Errorf("closing read connection: %w", err))
			}
		}
		j.closeErr = errors.Join(errs...)
	})

	return j.closeErr
}
