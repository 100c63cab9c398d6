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

// Package server provides a read-only REST interface to the calibration
// stores under a calibration root.
package server

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/inconshreveable/log15"
	"github.com/wtsi-hgi/calibstore/calib"
	"github.com/wtsi-hgi/calibstore/constants"
	"github.com/wtsi-hgi/calibstore/detector"
)

const (
	EndPointREST      = "/rest/v1"
	EndPointConstants = EndPointREST + "/constants"
	EndPointDetectors = EndPointREST + "/detectors"
	EndPointLookups   = EndPointREST + "/lookups"
	EndPointMetrics   = "/metrics"

	detectorPath = EndPointDetectors + "/:detname"
	historyPath  = detectorPath + "/history"

	shutdownTimeout = 10 * time.Second
)

// Server serves constant lookups from a constants.Manager.
type Server struct {
	router  *gin.Engine
	manager *constants.Manager
	log     log15.Logger
	metrics *metrics

	mu         sync.RWMutex
	httpServer *http.Server
	lookupDB   *sql.DB
	lookupStmt *sql.Stmt
}

// New returns a Server answering from m, logging to logger.
func New(m *constants.Manager, logger log15.Logger) *Server {
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{
		router:  r,
		manager: m,
		log:     logger,
		metrics: newMetrics(),
	}

	r.Use(s.logRequest)

	r.GET(EndPointConstants, s.getConstants)
	r.GET(EndPointDetectors, s.getDetectors)
	r.GET(detectorPath, s.getDetector)
	r.GET(historyPath, s.getHistory)
	r.GET(EndPointLookups, s.getLookups)
	r.GET(EndPointMetrics, gin.WrapH(s.metrics.handler()))

	return s
}

// Router returns the gin engine, for use with httptest.
func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) logRequest(c *gin.Context) {
	start := time.Now()

	c.Next()

	s.log.Debug("request", "method", c.Request.Method, "path", c.Request.URL.Path,
		"status", c.Writer.Status(), "took", time.Since(start))
}

// Start serves on addr until Stop is called.
func (s *Server) Start(addr string) error {
	s.mu.Lock()
	s.httpServer = &http.Server{Addr: addr, Handler: s.router, ReadHeaderTimeout: shutdownTimeout}
	srv := s.httpServer
	s.mu.Unlock()

	s.log.Info("server starting", "addr", addr)

	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}

	return err
}

// Stop gracefully shuts down a started server and closes the lookup log.
func (s *Server) Stop() error {
	s.mu.Lock()
	srv := s.httpServer
	s.httpServer = nil
	s.mu.Unlock()

	var err error

	if srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		err = srv.Shutdown(ctx)
	}

	return errors.Join(err, s.closeLookupLog())
}

// ConstantsResponse is the JSON body of a constants lookup.
type ConstantsResponse struct {
	DetName string    `json:"detname"`
	CType   string    `json:"ctype"`
	Range   string    `json:"range"`
	Begin   float64   `json:"begin"`
	End     string    `json:"end"`
	Version int       `json:"version"`
	TSProd  float64   `json:"tsprod"`
	DType   string    `json:"dtype"`
	Shape   []int     `json:"shape,omitempty"`
	Values  Values    `json:"values,omitempty"`
	Text    string    `json:"text,omitempty"`
}

// Values are array elements that marshal NaN and infinities, which JSON
// cannot represent, as null.
type Values []float64

// MarshalJSON implements json.Marshaler.
func (v Values) MarshalJSON() ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}

	b := make([]byte, 0, 2+len(v)*8) //nolint:mnd
	b = append(b, '[')

	for i, f := range v {
		if i > 0 {
			b = append(b, ',')
		}

		if math.IsNaN(f) || math.IsInf(f, 0) {
			b = append(b, "null"...)

			continue
		}

		b = strconv.AppendFloat(b, f, 'g', -1, 64)
	}

	return append(b, ']'), nil
}

func (s *Server) getConstants(c *gin.Context) {
	start := time.Now()

	q, err := s.parseQuery(c)
	if err != nil {
		s.fail(c, err)

		return
	}

	found, err := s.manager.Get(q)

	s.metrics.observe(string(q.CType), err, time.Since(start))
	s.recordLookup(q, err)

	if err != nil {
		s.fail(c, err)

		return
	}

	c.JSON(http.StatusOK, newConstantsResponse(q.CType, found))
}

func (s *Server) parseQuery(c *gin.Context) (constants.Query, error) {
	var q constants.Query

	id, err := detector.ParseName(c.Query("detname"))
	if err != nil {
		return q, err
	}

	ct, _, err := s.manager.CTypes().Lookup(c.Query("ctype"))
	if err != nil {
		return q, err
	}

	q.Detector, q.CType = id, ct

	if t := c.Query("time"); t != "" {
		if q.Time, err = strconv.ParseFloat(t, 64); err != nil {
			return q, errBadQuery
		}
	}

	if v := c.Query("version"); v != "" {
		if q.VNum, err = strconv.Atoi(v); err != nil || q.VNum < 0 {
			return q, errBadQuery
		}
	}

	return q, nil
}

func newConstantsResponse(ct calib.CType, f *constants.Found) ConstantsResponse {
	resp := ConstantsResponse{
		DetName: f.Store.DetName(),
		CType:   string(ct),
		Range:   f.Range.Key(),
		Begin:   f.Range.Begin(),
		End:     f.Range.End().String(),
		Version: f.Version.VNum(),
		TSProd:  f.Version.TSProd(),
		Text:    f.Version.Text(),
		DType:   calib.DTypeText.String(),
	}

	if a := f.Version.Data(); a != nil {
		resp.DType, resp.Shape, resp.Values = a.DType.String(), a.Shape, a.Values
	}

	return resp
}

// DetectorSummary is the JSON description of a store.
type DetectorSummary struct {
	DetName     string         `json:"detname"`
	Path        string         `json:"path"`
	TSCFile     float64        `json:"tscfile"`
	Predecessor string         `json:"predecessor,omitempty"`
	Successor   string         `json:"successor,omitempty"`
	CTypes      []CTypeSummary `json:"ctypes"`
}

// CTypeSummary describes one calibration type of a store.
type CTypeSummary struct {
	CType  string         `json:"ctype"`
	DType  string         `json:"dtype"`
	Ranges []RangeSummary `json:"ranges"`
}

// RangeSummary describes one validity range.
type RangeSummary struct {
	Key      string `json:"key"`
	VNumDef  int    `json:"versdef"`
	Versions []int  `json:"versions"`
}

func (s *Server) getDetectors(c *gin.Context) {
	ids, err := s.manager.List()
	if err != nil {
		s.fail(c, err)

		return
	}

	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = id.Name()
	}

	c.JSON(http.StatusOK, names)
}

func (s *Server) getDetector(c *gin.Context) {
	st, err := s.manager.LoadName(c.Param("detname"))
	if err != nil {
		s.fail(c, err)

		return
	}

	c.JSON(http.StatusOK, summarise(st))
}

func summarise(st *calib.Store) DetectorSummary {
	sum := DetectorSummary{
		DetName:     st.DetName(),
		Path:        st.Path(),
		TSCFile:     st.TSCFile(),
		Predecessor: st.Predecessor(),
		Successor:   st.Successor(),
		CTypes:      []CTypeSummary{},
	}

	for _, t := range st.CTypes() {
		cs := CTypeSummary{CType: string(t.CType()), DType: t.DType().String(), Ranges: []RangeSummary{}}

		for _, r := range t.Ranges() {
			rs := RangeSummary{Key: r.Key(), VNumDef: r.VNumDef(), Versions: []int{}}

			for _, v := range r.Versions() {
				rs.Versions = append(rs.Versions, v.VNum())
			}

			cs.Ranges = append(cs.Ranges, rs)
		}

		sum.CTypes = append(sum.CTypes, cs)
	}

	return sum
}

// HistoryRecord is the JSON form of a history entry.
type HistoryRecord struct {
	Time time.Time `json:"time"`
	Text string    `json:"text"`
}

func (s *Server) getHistory(c *gin.Context) {
	st, err := s.manager.LoadName(c.Param("detname"))
	if err != nil {
		s.fail(c, err)

		return
	}

	recs := st.History()
	out := make([]HistoryRecord, len(recs))

	for i, r := range recs {
		out[i] = HistoryRecord(r)
	}

	c.JSON(http.StatusOK, out)
}

const errBadQuery = calib.Error("bad query")

func (s *Server) fail(c *gin.Context, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		s.log.Error("request failed", "path", c.Request.URL.Path, "err", err)
	}

	c.AbortWithStatusJSON(code, gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, constants.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errBadQuery),
		errors.Is(err, calib.ErrInvalidDetName),
		errors.Is(err, calib.ErrUnknownCType):
		return http.StatusBadRequest
	case errors.Is(err, errNoLookupLog):
		return http.StatusServiceUnavailable
	}

	return http.StatusInternalServerError
}
