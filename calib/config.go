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

package calib

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/inconshreveable/log15"
)

const (
	// DefaultParametersGroup is the reserved group holding an entity's
	// parameters.
	DefaultParametersGroup = "_parameters"

	// DefaultHistoryGroup is the reserved group holding an entity's history
	// records.
	DefaultHistoryGroup = "_history"
)

// Config configures the stores made by a Factory.
type Config struct {
	// Backend reads and writes container files.
	Backend Container `validate:"required"`

	// Logger receives warnings about stale mark targets and unrecognised
	// container content. Defaults to warnings and above on stderr.
	Logger log15.Logger

	// ParametersGroup and HistoryGroup name the reserved subgroups. They must
	// differ and start with "_" so they can never be a calibration type or
	// range key.
	ParametersGroup string `validate:"required,startswith=_,nefield=HistoryGroup"`
	HistoryGroup    string `validate:"required,startswith=_"`

	// CTypes is the closed table of calibration types. Defaults to
	// DefaultCTypes().
	CTypes CTypeTable `validate:"required,min=1"`

	// Now is the clock used for history records and production times.
	Now func() time.Time
}

func (c Config) withDefaults() Config {
	if c.Logger == nil {
		c.Logger = log15.New("pkg", "calib")
		c.Logger.SetHandler(log15.LvlFilterHandler(log15.LvlWarn, log15.StderrHandler))
	}

	if c.ParametersGroup == "" {
		c.ParametersGroup = DefaultParametersGroup
	}

	if c.HistoryGroup == "" {
		c.HistoryGroup = DefaultHistoryGroup
	}

	if c.CTypes == nil {
		c.CTypes = DefaultCTypes()
	}

	if c.Now == nil {
		c.Now = time.Now
	}

	return c
}

// env is the configuration shared by every entity of the stores one Factory
// makes.
type env struct {
	backend   Container
	log       log15.Logger
	parsGroup string
	histGroup string
	ctypes    CTypeTable
	now       func() time.Time
}

func (e *env) reserved(name string) bool {
	return name == e.parsGroup || name == e.histGroup
}

func (e *env) checkName(name string) error {
	if e.reserved(name) {
		return fmt.Errorf("%w: %q", ErrReservedName, name)
	}

	return nil
}

func (e *env) nowSec() float64 {
	return float64(e.now().UnixMicro()) / 1e6
}

// Factory makes Stores that share one Config.
type Factory struct {
	env *env
}

// NewFactory validates cfg, filling in defaults, and returns a Factory.
func NewFactory(cfg Config) (*Factory, error) {
	cfg = cfg.withDefaults()

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return &Factory{env: &env{
		backend:   cfg.Backend,
		log:       cfg.Logger,
		parsGroup: cfg.ParametersGroup,
		histGroup: cfg.HistoryGroup,
		ctypes:    cfg.CTypes,
		now:       cfg.Now,
	}}, nil
}

// NewStore returns an empty Store that will Save to path by default.
func (f *Factory) NewStore(path string) *Store {
	return newStore(f.env, path)
}

// Load reads the Store saved at path.
func (f *Factory) Load(path string) (*Store, error) {
	s := newStore(f.env, path)

	if err := s.Load(""); err != nil {
		return nil, err
	}

	return s, nil
}

// CTypes returns the configured calibration type table.
func (f *Factory) CTypes() CTypeTable { return f.env.ctypes }

// Logger returns the configured logger.
func (f *Factory) Logger() log15.Logger { return f.env.log } //nolint:ireturn
