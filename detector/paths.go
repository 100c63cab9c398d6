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

package detector

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/wtsi-hgi/calibstore/calib"
)

const (
	// DefaultExt is the container file extension.
	DefaultExt = "db"

	dirPerms = 0o775
)

// Paths locates container files as <root>/<type>/<type>-<id>.<ext> under a
// calibration root and a central repository root.
type Paths struct {
	CalibRoot string
	RepoRoot  string
	Ext       string
}

// Extension returns the container file extension without a leading dot.
func (p Paths) Extension() string {
	if p.Ext == "" {
		return DefaultExt
	}

	return strings.TrimPrefix(p.Ext, ".")
}

// FileName returns "<type>-<id>.<ext>".
func (p Paths) FileName(id Identity) string {
	return id.Name() + "." + p.Extension()
}

// Dir returns the directory holding id's container under the calib root.
func (p Paths) Dir(id Identity) (string, error) {
	return typeDir(p.CalibRoot, "calib", id)
}

// File returns the path of id's container under the calib root.
func (p Paths) File(id Identity) (string, error) {
	dir, err := p.Dir(id)
	if err != nil {
		return "", err
	}

	return filepath.Join(dir, p.FileName(id)), nil
}

// RepoDir returns the directory holding id's published container.
func (p Paths) RepoDir(id Identity) (string, error) {
	return typeDir(p.RepoRoot, "repository", id)
}

// RepoFile returns the path of id's published container.
func (p Paths) RepoFile(id Identity) (string, error) {
	dir, err := p.RepoDir(id)
	if err != nil {
		return "", err
	}

	return filepath.Join(dir, p.FileName(id)), nil
}

// MakeDir creates the directory for id's container under the calib root.
func (p Paths) MakeDir(id Identity) (string, error) {
	dir, err := p.Dir(id)
	if err != nil {
		return "", err
	}

	return dir, makeDir(dir)
}

// MakeRepoDir creates the directory for id's published container.
func (p Paths) MakeRepoDir(id Identity) (string, error) {
	dir, err := p.RepoDir(id)
	if err != nil {
		return "", err
	}

	return dir, makeDir(dir)
}

func makeDir(dir string) error {
	if err := os.MkdirAll(dir, dirPerms); err != nil {
		return fmt.Errorf("%w: %w", calib.ErrInvalidConfig, err)
	}

	return nil
}

func typeDir(root, what string, id Identity) (string, error) {
	if strings.TrimSpace(root) == "" {
		return "", fmt.Errorf("%w: no %s root directory", calib.ErrInvalidConfig, what)
	}

	if id.Type == "" || strings.ContainsAny(id.Type, `/\`) || id.Type == "." || id.Type == ".." {
		return "", fmt.Errorf("%w: detector type %q", calib.ErrInvalidDetName, id.Type)
	}

	if strings.ContainsAny(id.ID, `/\`) {
		return "", fmt.Errorf("%w: detector id %q", calib.ErrInvalidDetName, id.ID)
	}

	return filepath.Join(root, id.Type), nil
}
