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

package cmd

import (
	"github.com/spf13/cobra"
	"github.com/wtsi-hgi/calibstore/calib"
	"github.com/wtsi-hgi/calibstore/constants"
	"github.com/wtsi-hgi/calibstore/detector"
)

// queryFlags are the options that select constants.
type queryFlags struct {
	detName string
	ctype   string
	time    string
	vnum    int
}

func (q *queryFlags) register(cmd *cobra.Command, withVersion bool) {
	cmd.Flags().StringVarP(&q.detName, "detector", "d", "",
		"detector name, <type>-<id>, eg. epix100a-0000000001")
	cmd.Flags().StringVarP(&q.ctype, "ctype", "c", "",
		"calibration type, eg. pixel_mask")
	cmd.Flags().StringVarP(&q.time, "time", "t", "0",
		"event time as epoch seconds, RFC3339 or 'YYYY-MM-DD[THH:MM:SS]' local time")

	if withVersion {
		cmd.Flags().IntVarP(&q.vnum, "version", "v", 0,
			"version number; 0 for the default")
	}
}

// identity returns the --detector as an Identity, dying if it is bad.
func (q *queryFlags) identity() detector.Identity {
	if q.detName == "" {
		die("you must supply a --detector")
	}

	id, err := detector.ParseName(q.detName)
	if err != nil {
		die("%s", err)
	}

	return id
}

// calibType returns the --ctype, dying if it is not known to m.
func (q *queryFlags) calibType(m *constants.Manager) (calib.CType, calib.DType) {
	if q.ctype == "" {
		die("you must supply a --ctype (one of %v)", m.CTypes().Names())
	}

	ct, dt, err := m.CTypes().Lookup(q.ctype)
	if err != nil {
		die("%s (known types are %v)", err, m.CTypes().Names())
	}

	return ct, dt
}

func (q *queryFlags) tsec() float64 {
	t, err := parseTime(q.time)
	if err != nil {
		die("bad --time: %s", err)
	}

	return t
}

func (q *queryFlags) query(m *constants.Manager) constants.Query {
	ct, _ := q.calibType(m)

	if q.vnum < 0 {
		die("--version must not be negative")
	}

	return constants.Query{Detector: q.identity(), CType: ct, Time: q.tsec(), VNum: q.vnum}
}
