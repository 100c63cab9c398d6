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
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/wtsi-hgi/calibstore/calib"
	"github.com/wtsi-hgi/calibstore/constants"
	"github.com/wtsi-hgi/calibstore/internal/ndtext"
)

// options for this cmd.
var (
	addFlags       queryFlags
	addEnd         string
	addFile        string
	addComment     string
	addPredecessor string
	addSuccessor   string
)

// addCmd represents the add command.
var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add calibration constants",
	Long: `Add calibration constants.

Stores the constants in --file as a new version for the given --detector and
--ctype, valid from --time until --end (by default open ended). The store and
its directory are created if needed.

For array calibration types the file holds whitespace separated numbers, one
row per line, optionally preceded by '# DTYPE', '# NDIM' and '# DIM:n' comment
lines giving the shape; files ending .gz are decompressed. Values are
converted to the calibration type's element type, and out of range values are
an error. For text types, such as geometry, the file is stored as is.

--version picks the version number; by default it is the next one. --comment
is recorded in the range's history.

--predecessor and --successor record the names of the detectors this one
replaced or was replaced by.`,
	Run: func(_ *cobra.Command, _ []string) {
		if addFile == "" {
			die("you must supply a --file of constants")
		}

		m := newManager()
		ct, dt := addFlags.calibType(m)

		end := calib.Open

		if e := strings.TrimSpace(addEnd); e != "" && e != calib.OpenEnd {
			t, err := parseTime(e)
			if err != nil {
				die("bad --end: %s", err)
			}

			end = calib.Until(t)
		}

		req := constants.AddRequest{
			Detector:    addFlags.identity(),
			CType:       ct,
			Time:        addFlags.tsec(),
			End:         end,
			VNum:        addFlags.vnum,
			Comment:     addComment,
			Predecessor: addPredecessor,
			Successor:   addSuccessor,
		}

		var err error

		if dt == calib.DTypeText {
			text, err := os.ReadFile(addFile)
			if err != nil {
				die("could not read --file: %s", err)
			}

			req.Text = string(text)
		} else {
			req.Data, err = ndtext.ReadFile(addFile, dt)
			if err != nil {
				die("could not read --file: %s", err)
			}
		}

		added, err := m.Add(req)
		if err != nil {
			die("failed to add constants: %s", err)
		}

		cliPrint("added %s %s range %s version %d to %s\n", req.Detector.Name(), ct,
			added.Range.Key(), added.Version.VNum(), added.Path)
	},
}

func init() {
	RootCmd.AddCommand(addCmd)

	addFlags.register(addCmd, true)
	addCmd.Flags().StringVarP(&addEnd, "end", "e", calib.OpenEnd,
		"time the constants are valid until, in the same formats as --time, or 'end'")
	addCmd.Flags().StringVarP(&addFile, "file", "f", "",
		"path to the constants file")
	addCmd.Flags().StringVarP(&addComment, "comment", "m", "",
		"comment for the history")
	addCmd.Flags().StringVar(&addPredecessor, "predecessor", "",
		"name of the detector this one replaced")
	addCmd.Flags().StringVar(&addSuccessor, "successor", "",
		"name of the detector that replaced this one")
}
