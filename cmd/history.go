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

	"github.com/spf13/cobra"
	"github.com/wtsi-hgi/calibstore/calib"
)

// options for this cmd.
var (
	historyFlags  queryFlags
	historyRange  bool
	historyImport string
)

// historyCmd represents the history command.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the history of a store",
	Long: `Show the history of a store.

Prints the history records of the --detector's store, one '<time> <text>' line
each. With --ctype, prints that calibration type's history instead; adding
--range prints the history of the range valid at --time, and adding --version
too prints that version's history.

--import adds the records in the given file, in the format printed, to the
selected history and saves the store.`,
	Run: func(_ *cobra.Command, _ []string) {
		if logPath == "" {
			setCLIFormat()
		}

		m := newManager()

		s, err := m.Load(historyFlags.identity())
		if err != nil {
			die("%s", err)
		}

		b := historyTarget(s)

		if historyImport == "" {
			if err := b.WriteHistory(os.Stdout); err != nil {
				die("%s", err)
			}

			return
		}

		f, err := os.Open(historyImport)
		if err != nil {
			die("%s", err)
		}

		defer f.Close()

		if err := b.ReadHistory(f); err != nil {
			die("%s", err)
		}

		if err := s.Save(""); err != nil {
			die("%s", err)
		}

		info("imported history from %s", historyImport)
	},
}

// historyTarget returns the part of s selected by the history flags.
func historyTarget(s *calib.Store) *calib.Base {
	if historyFlags.ctype == "" {
		return &s.Base
	}

	t := s.CTypeObj(calib.CType(historyFlags.ctype))
	if t == nil {
		die("%s has no %s constants", s.DetName(), historyFlags.ctype)
	}

	if !historyRange && historyFlags.vnum == 0 {
		return &t.Base
	}

	r := t.RangeForTsec(historyFlags.tsec())
	if r == nil {
		die("no %s range for time %s", historyFlags.ctype, historyFlags.time)
	}

	if historyFlags.vnum == 0 {
		return &r.Base
	}

	v := r.Version(historyFlags.vnum)
	if v == nil {
		die("range %s has no version %d", r.Key(), historyFlags.vnum)
	}

	return &v.Base
}

func init() {
	RootCmd.AddCommand(historyCmd)

	historyFlags.register(historyCmd, true)
	historyCmd.Flags().BoolVar(&historyRange, "range", false,
		"show the history of the range valid at --time")
	historyCmd.Flags().StringVar(&historyImport, "import", "",
		"add the history records in this file")
}
