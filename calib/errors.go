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

// Error is the custom error type for the calib package.
type Error string

const (
	// ErrInvalidConfig is returned for setup mistakes such as a Store with no
	// path, an unusable backend or bad reserved group names.
	ErrInvalidConfig = Error("invalid configuration")

	// ErrReservedName is returned when a child would be created under one of
	// the reserved parameter/history group names.
	ErrReservedName = Error("name is reserved")

	// ErrInvalidRange is returned when a bounded range does not have
	// begin < end.
	ErrInvalidRange = Error("invalid range")

	// ErrInvalidVersion is returned for negative or zero persisted version
	// numbers.
	ErrInvalidVersion = Error("invalid version number")

	// ErrUnknownCType is returned when a calibration type is not in the
	// configured table.
	ErrUnknownCType = Error("unknown calibration type")

	// ErrInvalidDetName is returned when a detector name or type cannot be
	// split unambiguously.
	ErrInvalidDetName = Error("invalid detector name")

	// ErrInvalidArray is returned when an array's shape, dtype and values
	// disagree.
	ErrInvalidArray = Error("invalid array")

	// ErrUnsupportedValue is returned for parameter or leaf values of a kind
	// the container cannot hold.
	ErrUnsupportedValue = Error("unsupported value kind")
)

func (e Error) Error() string { return string(e) }
