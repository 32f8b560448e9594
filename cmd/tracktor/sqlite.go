package main

import (
	"database/sql"
	"encoding/json"

	"github.com/LdDl/tracktor-go/mot"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

// sqliteSink stores tracks of one session into SQLite database
type sqliteSink struct {
	db        *sql.DB
	sessionID string
}

func newSQLiteSink(path string, sessionID uuid.UUID, cfg mot.Config) (*sqliteSink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "can't open SQLite database")
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000;"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "can't set busy timeout")
	}
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			session_id        TEXT PRIMARY KEY,
			config_json       TEXT,
			started_at        TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS tracks (
			session_id        TEXT,
			frame             BIGINT,
			track_id          BIGINT,
			xmin              DOUBLE,
			ymin              DOUBLE,
			xmax              DOUBLE,
			ymax              DOUBLE,
			score             DOUBLE,
			PRIMARY KEY (session_id, frame, track_id),
			FOREIGN KEY(session_id) REFERENCES sessions(session_id)
		);
	`)
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "can't create tables")
	}
	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "can't serialize configuration")
	}
	if _, err := db.Exec(`INSERT INTO sessions (session_id, config_json) VALUES (?, ?)`, sessionID.String(), string(cfgJSON)); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "can't register session")
	}
	return &sqliteSink{
		db:        db,
		sessionID: sessionID.String(),
	}, nil
}

func (sink *sqliteSink) WriteFrame(frame int, tracks []mot.TrackOutput) error {
	if len(tracks) == 0 {
		return nil
	}
	tx, err := sink.db.Begin()
	if err != nil {
		return errors.Wrap(err, "can't begin transaction")
	}
	stmt, err := tx.Prepare(`INSERT INTO tracks (session_id, frame, track_id, xmin, ymin, xmax, ymax, score) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return errors.Wrap(err, "can't prepare insert")
	}
	defer stmt.Close()
	for _, track := range tracks {
		xmin, ymin, xmax, ymax := track.BBox.Corners()
		if _, err := stmt.Exec(sink.sessionID, frame, track.ID, xmin, ymin, xmax, ymax, track.Score); err != nil {
			tx.Rollback()
			return errors.Wrapf(err, "can't insert track %d", track.ID)
		}
	}
	return errors.Wrap(tx.Commit(), "can't commit frame")
}

func (sink *sqliteSink) Close() error {
	return sink.db.Close()
}
