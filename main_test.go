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

package main

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

const app = "calibstore_test"

const onesText = "# DTYPE uint8\n# NDIM 2\n# DIM:0 3\n# DIM:1 3\n1 1 1\n1 1 1\n1 1 1\n"

var appPath string

func TestMain(m *testing.M) {
	d1 := buildSelf()
	if d1 == nil {
		return
	}

	defer os.Exit(m.Run())
	defer d1()
}

func buildSelf() func() {
	cmd := exec.Command(
		"go", "build", "-tags", "netgo",
		"-ldflags=-X github.com/wtsi-hgi/calibstore/cmd.Version=TESTVERSION",
		"-o", app,
	)

	cmd.Env = append(os.Environ(), "CGO_ENABLED=1")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		failMainTest(err.Error())

		return nil
	}

	abs, err := filepath.Abs(app)
	if err != nil {
		failMainTest(err.Error())

		return nil
	}

	appPath = abs

	return func() {
		os.Remove(app)
	}
}

func failMainTest(err string) {
	fmt.Println(err) //nolint:forbidigo
}

func TestVersion(t *testing.T) {
	Convey("calibstore prints the correct version", t, func() {
		output, stderr, err := runCalibstore(nil, "version")
		So(err, ShouldBeNil)
		So(strings.TrimSpace(output), ShouldEqual, "TESTVERSION")
		So(stderr, ShouldBeBlank)
	})
}

func TestConstantsCommands(t *testing.T) {
	Convey("Given a calibration root and a constants file", t, func() {
		tmp := t.TempDir()
		root := filepath.Join(tmp, "calib")
		repo := filepath.Join(tmp, "repo")
		env := []string{"CALIBSTORE_ROOT=" + root, "CALIBSTORE_REPO=" + repo}

		input := filepath.Join(tmp, "mask.txt")
		So(os.WriteFile(input, []byte("1 1 1\n1 1 1\n1 1 1\n"), 0o600), ShouldBeNil)

		det := "epix100a-1234567890"
		storePath := filepath.Join(root, "epix100a", det+".db")

		Convey("commands without a calibration root fail", func() {
			_, stderr, err := runCalibstore(nil, "get", "-d", det, "-c", "pixel_mask")
			So(err, ShouldNotBeNil)
			So(stderr, ShouldContainSubstring, "calibration root is required")
		})

		Convey("add stores constants that get retrieves", func() {
			output, _, err := runCalibstore(env, "add", "-d", det, "-c", "pixel_mask", "-t", "1000",
				"-f", input, "-m", "initial mask")
			So(err, ShouldBeNil)
			So(output, ShouldEqual, "added "+det+" pixel_mask range 1000-end version 1 to "+storePath+"\n")

			output, _, err = runCalibstore(env, "get", "-d", det, "-c", "pixel_mask", "-t", "5000")
			So(err, ShouldBeNil)
			So(output, ShouldEqual, onesText)

			out := filepath.Join(tmp, "out.txt.gz")
			_, _, err = runCalibstore(env, "get", "-d", det, "-c", "pixel_mask", "-t", "5000", "-o", out)
			So(err, ShouldBeNil)
			compareFileContents(t, out, onesText)

			_, stderr, err := runCalibstore(env, "get", "-d", det, "-c", "pixel_mask", "-t", "10")
			So(err, ShouldNotBeNil)
			So(stderr, ShouldContainSubstring, "no constants found")

			_, stderr, err = runCalibstore(env, "get", "-d", det, "-c", "nonsense")
			So(err, ShouldNotBeNil)
			So(stderr, ShouldContainSubstring, "known types are")

			Convey("info and history describe the store", func() {
				output, _, err := runCalibstore(env, "info")
				So(err, ShouldBeNil)
				So(output, ShouldContainSubstring, det)

				output, _, err = runCalibstore(env, "info", "-d", det)
				So(err, ShouldBeNil)
				So(output, ShouldContainSubstring, "1000-end")
				So(output, ShouldContainSubstring, "uint8[3x3]")

				output, _, err = runCalibstore(env, "info", "-d", det, "--dump")
				So(err, ShouldBeNil)
				So(output, ShouldStartWith, "store "+det)

				output, _, err = runCalibstore(env, "history", "-d", det, "-c", "pixel_mask", "--range", "-t", "5000")
				So(err, ShouldBeNil)
				So(output, ShouldContainSubstring, "add constants vers=1: initial mask")
			})

			Convey("delete retires the version", func() {
				_, _, err := runCalibstore(env, "delete", "-d", det, "-c", "pixel_mask", "-t", "5000",
					"-m", "retired")
				So(err, ShouldBeNil)

				_, _, err = runCalibstore(env, "get", "-d", det, "-c", "pixel_mask", "-t", "5000")
				So(err, ShouldNotBeNil)

				output, _, err := runCalibstore(env, "history", "-d", det, "-c", "pixel_mask", "--range", "-t", "5000")
				So(err, ShouldBeNil)
				So(output, ShouldContainSubstring, "mark version v0001: retired")
			})

			Convey("mark retires the calibration type", func() {
				_, _, err := runCalibstore(env, "mark", "-d", det, "-c", "pixel_mask", "-m", "obsolete")
				So(err, ShouldBeNil)

				output, _, err := runCalibstore(env, "history", "-d", det)
				So(err, ShouldBeNil)
				So(output, ShouldContainSubstring, "mark ctype pixel_mask: obsolete")
			})

			Convey("publish copies the store to the repository", func() {
				output, _, err := runCalibstore(env, "publish", "-d", det)
				So(err, ShouldBeNil)

				published := filepath.Join(repo, "epix100a", det+".db")
				So(output, ShouldEqual, published+"\n")

				_, err = os.Stat(published)
				So(err, ShouldBeNil)
			})

			Convey("a later version becomes the default until another is chosen", func() {
				twos := filepath.Join(tmp, "twos.txt")
				So(os.WriteFile(twos, []byte("2 2 2\n2 2 2\n2 2 2\n"), 0o600), ShouldBeNil)

				_, _, err := runCalibstore(env, "add", "-d", det, "-c", "pixel_mask", "-t", "1000", "-f", twos)
				So(err, ShouldBeNil)

				output, _, err := runCalibstore(env, "get", "-d", det, "-c", "pixel_mask", "-t", "5000")
				So(err, ShouldBeNil)
				So(output, ShouldContainSubstring, "2 2 2")

				_, _, err = runCalibstore(env, "default", "-d", det, "-c", "pixel_mask", "-t", "5000", "-v", "1")
				So(err, ShouldBeNil)

				output, _, err = runCalibstore(env, "get", "-d", det, "-c", "pixel_mask", "-t", "5000")
				So(err, ShouldBeNil)
				So(output, ShouldEqual, onesText)
			})
		})
	})
}

func runCalibstore(env []string, args ...string) (string, string, error) {
	var stdout, stderr strings.Builder

	cmd := exec.CommandContext(context.Background(), appPath, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Env = append(cleanEnv(), env...)

	err := cmd.Run()

	return stdout.String(), stderr.String(), err
}

// cleanEnv returns the environment without any of our settings.
func cleanEnv() []string {
	var env []string

	for _, kv := range os.Environ() {
		if !strings.HasPrefix(kv, "CALIBSTORE_") {
			env = append(env, kv)
		}
	}

	return env
}

func compareFileContents(t *testing.T, path, expectation string) {
	t.Helper()

	f, err := os.Open(path)
	So(err, ShouldBeNil)

	defer f.Close()

	var r io.Reader = f

	if strings.HasSuffix(path, ".gz") {
		r, err = gzip.NewReader(f)
		So(err, ShouldBeNil)
	}

	contents, err := io.ReadAll(r)
	So(err, ShouldBeNil)

	So(string(contents), ShouldEqual, expectation)
}
