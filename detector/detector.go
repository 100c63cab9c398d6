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

// Package detector names detectors and locates their calibration container
// files.
package detector

import (
	"fmt"
	"strings"

	"github.com/wtsi-hgi/calibstore/calib"
)

const (
	// NoType is the type of a detector whose source could not be resolved.
	NoType = "notype"

	// NoID is the id of a detector without a usable hardware fingerprint.
	NoID = "noid"

	// Epix100a is the only type with a hardware fingerprint.
	Epix100a = "epix100a"
)

// Identity is a detector's type and hardware id.
type Identity struct {
	Type string
	ID   string
}

// New returns a normalised Identity: the type is lowercased with the name
// separator replaced by '_', ':' in the id becomes '-', and empty parts become
// NoType and NoID.
func New(dettype, detid string) Identity {
	dettype = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(dettype)), calib.DetNameSeparator, "_")
	if dettype == "" {
		dettype = NoType
	}

	detid = strings.ReplaceAll(strings.TrimSpace(detid), ":", calib.DetNameSeparator)
	if detid == "" {
		detid = NoID
	}

	return Identity{Type: dettype, ID: detid}
}

// ParseName splits a detector name "<type>-<id>" at the first separator.
func ParseName(name string) (Identity, error) {
	t, id, ok := strings.Cut(name, calib.DetNameSeparator)
	if !ok || t == "" || id == "" {
		return Identity{}, fmt.Errorf("%w: %q", calib.ErrInvalidDetName, name)
	}

	return Identity{Type: t, ID: id}, nil
}

// Name returns "<type>-<id>".
func (i Identity) Name() string {
	return i.Type + calib.DetNameSeparator + i.ID
}

// Apply sets the type and id of s.
func (i Identity) Apply(s *calib.Store) error {
	if err := s.SetDetType(i.Type); err != nil {
		return err
	}

	s.SetDetID(i.ID)

	return nil
}

// EpixConfig holds the hardware serials that fingerprint an epix detector.
type EpixConfig struct {
	Version        uint32
	CarrierID0     uint32
	CarrierID1     uint32
	DigitalCardID0 uint32
	DigitalCardID1 uint32
	AnalogCardID0  uint32
	AnalogCardID1  uint32
}

// ID returns the seven serials as zero-padded decimals joined by '-'.
func (c EpixConfig) ID() string {
	return fmt.Sprintf("%010d-%010d-%010d-%010d-%010d-%010d-%010d",
		c.Version, c.CarrierID0, c.CarrierID1,
		c.DigitalCardID0, c.DigitalCardID1,
		c.AnalogCardID0, c.AnalogCardID1)
}

// Resolver identifies the detector behind a DAQ source name.
type Resolver interface {
	Identify(source string) (Identity, error)
}

// SourceResolver identifies detectors from full source names like
// "XppGon.0:Epix100a.0". Epix detectors listed in Epix get their hardware
// fingerprint as id; everything else uses the source name.
type SourceResolver struct {
	Epix map[string]EpixConfig
}

// Identify implements Resolver.
func (r SourceResolver) Identify(source string) (Identity, error) {
	source = SourceName(source)

	dettype := TypeFromSource(source)
	if dettype == "" {
		return New("", source), nil
	}

	if dettype == Epix100a {
		cfg, ok := r.Epix[source]
		if !ok {
			return Identity{}, fmt.Errorf("%w: no epix config for %q", calib.ErrInvalidDetName, source)
		}

		return New(dettype, cfg.ID()), nil
	}

	return New(dettype, source), nil
}

// SourceName strips a "DetInfo(...)" wrapper from a source name.
func SourceName(source string) string {
	if _, inner, ok := strings.Cut(source, "("); ok {
		source, _, _ = strings.Cut(inner, ")")
	}

	return strings.TrimSpace(source)
}

// TypeFromSource returns the lowercased device family of a full source name,
// eg. "cspad2x2" for "XppGon.0:Cspad2x2.0", or "" if there is none.
func TypeFromSource(source string) string {
	i := strings.LastIndex(source, ":")
	if i < 0 {
		return ""
	}

	dev, _, ok := strings.Cut(source[i+1:], ".")
	if !ok || dev == "" {
		return ""
	}

	return strings.ToLower(dev)
}
