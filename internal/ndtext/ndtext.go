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

// Package ndtext reads and writes calibration arrays as whitespace separated
// text, one row of the last dimension per line, optionally gzip compressed.
//
// Files may start with comment lines giving the array's metadata:
//
//	# DTYPE float32
//	# NDIM 3
//	# DIM:0 2
//	# DIM:1 2
//	# DIM:2 3
//
// Without them the shape is rows x columns.
package ndtext

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/pgzip"
	"github.com/wtsi-hgi/calibstore/calib"
)

const gzExt = ".gz"

var (
	ErrRagged  = errors.New("rows have different lengths")
	ErrBadMeta = errors.New("bad metadata line")
)

// Read parses an array from r. dt is used when the text has no DTYPE line.
func Read(r io.Reader, dt calib.DType) (*calib.Array, error) {
	var (
		values []float64
		rows   int
		cols   = -1
		dims   = map[int]int{}
		ndim   = -1
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "#"):
			if err := parseMeta(line, &dt, &ndim, dims); err != nil {
				return nil, err
			}

			continue
		}

		fields := strings.Fields(line)
		if cols >= 0 && len(fields) != cols {
			return nil, fmt.Errorf("%w: line %d has %d values, want %d", ErrRagged, rows+1, len(fields), cols)
		}

		cols = len(fields)
		rows++

		for _, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, err
			}

			values = append(values, v)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return calib.NewArray(dt, shapeOf(ndim, dims, rows, cols), values)
}

func parseMeta(line string, dt *calib.DType, ndim *int, dims map[int]int) error {
	fields := strings.Fields(strings.TrimPrefix(line, "#"))
	if len(fields) != 2 {
		return nil
	}

	key, val := strings.ToUpper(fields[0]), fields[1]

	switch {
	case key == "DTYPE":
		d, err := calib.ParseDType(val)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrBadMeta, line)
		}

		*dt = d
	case key == "NDIM":
		n, err := strconv.Atoi(val)
		if err != nil || n < 0 {
			return fmt.Errorf("%w: %s", ErrBadMeta, line)
		}

		*ndim = n
	case strings.HasPrefix(key, "DIM:"):
		i, erri := strconv.Atoi(strings.TrimPrefix(key, "DIM:"))
		d, errd := strconv.Atoi(val)

		if erri != nil || errd != nil || i < 0 || d < 0 {
			return fmt.Errorf("%w: %s", ErrBadMeta, line)
		}

		dims[i] = d
	}

	return nil
}

func shapeOf(ndim int, dims map[int]int, rows, cols int) []int {
	if ndim >= 0 && len(dims) == ndim {
		shape := make([]int, ndim)
		for i := range shape {
			shape[i] = dims[i]
		}

		return shape
	}

	if rows == 0 {
		return []int{0}
	}

	return []int{rows, cols}
}

// Write writes a with its metadata header.
func Write(w io.Writer, a *calib.Array) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "# DTYPE %s\n# NDIM %d\n", a.DType, len(a.Shape))

	for i, d := range a.Shape {
		fmt.Fprintf(bw, "# DIM:%d %d\n", i, d)
	}

	cols := 1
	if len(a.Shape) > 0 {
		cols = max(a.Shape[len(a.Shape)-1], 1)
	}

	for i, v := range a.Values {
		if i%cols != 0 {
			bw.WriteByte(' ')
		}

		bw.WriteString(strconv.FormatFloat(v, 'g', -1, 64))

		if (i+1)%cols == 0 || i == len(a.Values)-1 {
			bw.WriteByte('\n')
		}
	}

	return bw.Flush()
}

// ReadFile reads an array from path, decompressing it if it ends in ".gz".
func ReadFile(path string, dt calib.DType) (*calib.Array, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	defer f.Close()

	if !strings.HasSuffix(path, gzExt) {
		return Read(f, dt)
	}

	zr, err := pgzip.NewReader(f)
	if err != nil {
		return nil, err
	}

	defer zr.Close()

	return Read(zr, dt)
}

// WriteFile writes a to path, compressing it if path ends in ".gz".
func WriteFile(path string, a *calib.Array) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	defer func() {
		if errc := f.Close(); err == nil {
			err = errc
		}
	}()

	if !strings.HasSuffix(path, gzExt) {
		return Write(f, a)
	}

	zw := pgzip.NewWriter(f)

	if err := Write(zw, a); err != nil {
		return err
	}

	return zw.Close()
}
