/*******************************************************************************
 * Copyright (c) 2026 Genome Research Ltd.
 *
 * Permission is hereby granted, free of charge, to any person obtaining
 * a copy of this software and associated documentation files (the
 * "Software"), to deal in the Software without restriction, including
 * without limitation the rights to use, copy, modify, merge, publish,
 * distribute, sublicense, and/or sell copies of the Software, and to
 * permit persons to whom the Software is furnished to do so, subject to
 * the following conditions:
 *
 * The above copyright notice and this permission notice shall be included
 * in all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
 * EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF
 * MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.
 * IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY
 * CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER IN AN ACTION OF CONTRACT,
 * TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN CONNECTION WITH THE
 * SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
 ******************************************************************************/

package server

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/mattn/go-sqlite3"
	"github.com/wtsi-hgi/calibstore/calib"
	"github.com/wtsi-hgi/calibstore/constants"
)

const (
	errNoLookupLog = calib.Error("lookup log not enabled")

	defaultLookupLimit = 100
	maxLookupLimit     = 10000
)

// InitLookupLog opens (creating if needed) the sqlite database at dbPath and
// records every constants lookup in it.
func (s *Server) InitLookupLog(dbPath string) error {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return err
	}

	db.SetMaxOpenConns(1)

	for _, table := range [...]string{
		`CREATE TABLE IF NOT EXISTS [lookups] (detname TEXT, ctype TEXT, tsec REAL, vnum INTEGER, ` +
			`result TEXT, time INTEGER)`,
		`CREATE INDEX IF NOT EXISTS detname ON [lookups] (detname)`,
		`CREATE INDEX IF NOT EXISTS lookupTime ON [lookups] (time)`,
	} {
		if _, err := db.Exec(table); err != nil {
			return errors.Join(err, db.Close())
		}
	}

	stmt, err := db.Prepare(
		"INSERT INTO [lookups] (detname, ctype, tsec, vnum, result, time) VALUES (?, ?, ?, ?, ?, ?);")
	if err != nil {
		return errors.Join(err, db.Close())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.lookupDB = db
	s.lookupStmt = stmt

	return nil
}

// recordLookup holds the read lock while executing so closeLookupLog cannot
// close the statement underneath it.
func (s *Server) recordLookup(q constants.Query, lookupErr error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.lookupStmt == nil {
		return
	}

	if _, err := s.lookupStmt.Exec(
		q.Detector.Name(),
		string(q.CType),
		q.Time,
		q.VNum,
		resultOf(lookupErr),
		time.Now().Unix(),
	); err != nil {
		s.log.Warn("recording lookup failed", "err", err)
	}
}

// Lookup is one recorded constants lookup.
type Lookup struct {
	DetName string  `json:"detname"`
	CType   string  `json:"ctype"`
	Time    float64 `json:"time"`
	VNum    int     `json:"version"`
	Result  string  `json:"result"`
	At      int64   `json:"at"`
}

// Lookups returns up to limit recorded lookups, most recent first, optionally
// only those for detname.
func (s *Server) Lookups(detname string, limit int) ([]Lookup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.lookupDB == nil {
		return nil, errNoLookupLog
	}

	rows, err := s.lookupDB.Query(
		"SELECT detname, ctype, tsec, vnum, result, time FROM [lookups] "+
			"WHERE ? = '' OR detname = ? ORDER BY time DESC, rowid DESC LIMIT ?;",
		detname, detname, limit)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	lookups := []Lookup{}

	for rows.Next() {
		var l Lookup

		if err := rows.Scan(&l.DetName, &l.CType, &l.Time, &l.VNum, &l.Result, &l.At); err != nil {
			return nil, err
		}

		lookups = append(lookups, l)
	}

	return lookups, rows.Err()
}

func (s *Server) getLookups(c *gin.Context) {
	limit := defaultLookupLimit

	if l := c.Query("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 1 || n > maxLookupLimit {
			s.fail(c, errBadQuery)

			return
		}

		limit = n
	}

	lookups, err := s.Lookups(c.Query("detname"), limit)
	if err != nil {
		s.fail(c, err)

		return
	}

	c.JSON(http.StatusOK, lookups)
}

func (s *Server) closeLookupLog() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lookupDB == nil {
		return nil
	}

	err := errors.Join(s.lookupStmt.Close(), s.lookupDB.Close())
	s.lookupDB, s.lookupStmt = nil, nil

	return err
}
