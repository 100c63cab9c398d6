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
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize" //nolint:misspell
	"github.com/spf13/cobra"
	"github.com/wtsi-hgi/calibstore/internal/ndtext"
)

// options for this cmd.
var (
	getFlags  queryFlags
	getOutput string
)

// getCmd represents the get command.
var getCmd = &cobra.Command{
	Use:   "get",
	Short: "Get calibration constants",
	Long: `Get calibration constants.

Finds the constants of the given --ctype for the --detector that are valid at
--time: the latest starting range that contains the time, and the --version
asked for, or that range's default version.

The constants are written to STDOUT, or to the --output file (compressed if it
ends .gz), in the format 'add' reads. A summary of what was found is logged to
STDERR.`,
	Run: func(_ *cobra.Command, _ []string) {
		m := newManager()

		found, err := m.Get(getFlags.query(m))
		if err != nil {
			die("%s", err)
		}

		v := found.Version

		info("found %s range %s version %d (%s), produced %s", found.Store.DetName(), found.Range.Key(),
			v.VNum(), v.Describe(), humanize.Time(time.Unix(int64(v.TSProd()), 0)))

		if getOutput != "" && !v.IsText() {
			if err := ndtext.WriteFile(getOutput, v.Data()); err != nil {
				die("failed to write --output: %s", err)
			}

			return
		}

		var w io.Writer = os.Stdout

		if getOutput != "" {
			f, err := os.Create(getOutput)
			if err != nil {
				die("failed to create --output: %s", err)
			}

			defer f.Close()

			w = f
		}

		if v.IsText() {
			_, err = fmt.Fprint(w, v.Text())
		} else {
			err = ndtext.Write(w, v.Data())
		}

		if err != nil {
			die("failed to write constants: %s", err)
		}
	},
}

// defaultCmd represents the default command.
var defaultCmd = &cobra.Command{
	Use:   "default",
	Short: "Set the default version of a range",
	Long: `Set the default version of a range.

Makes --version the version 'get' returns when no version is asked for, in the
range of --ctype constants for the --detector valid at --time. --version 0
clears the setting, so the latest version is the default again.`,
	Run: func(_ *cobra.Command, _ []string) {
		m := newManager()
		q := defaultFlags.query(m)

		if err := m.SetDefault(q); err != nil {
			die("%s", err)
		}

		info("default version of %s %s at %v set to %d", q.Detector.Name(), q.CType, q.Time, q.VNum)
	},
}

var defaultFlags queryFlags

func init() {
	RootCmd.AddCommand(getCmd)
	RootCmd.AddCommand(defaultCmd)

	getFlags.register(getCmd, true)
	getCmd.Flags().StringVarP(&getOutput, "output", "o", "",
		"write the constants to this file instead of STDOUT")

	defaultFlags.register(defaultCmd, true)
}
