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
)

// options for these cmds.
var (
	deleteFlags   queryFlags
	deleteComment string

	markFlags   queryFlags
	markRange   string
	markComment string
)

// deleteCmd represents the delete command.
var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete a version of calibration constants",
	Long: `Delete a version of calibration constants.

Marks a version of the --ctype constants for the --detector valid at --time as
deleted: --version, or by default the latest one. The version is removed from
the store file when it is saved, and the deletion, with any --comment, is
recorded in the range's history.`,
	Run: func(_ *cobra.Command, _ []string) {
		m := newManager()
		q := deleteFlags.query(m)

		vnum, err := m.Delete(q, deleteComment)
		if err != nil {
			die("%s", err)
		}

		info("deleted %s %s version %d", q.Detector.Name(), q.CType, vnum)
	},
}

// markCmd represents the mark command.
var markCmd = &cobra.Command{
	Use:   "mark",
	Short: "Delete a whole range or calibration type",
	Long: `Delete a whole range or calibration type.

With --range (a key like '1000-end', as shown by 'info'), marks that range of
the --ctype constants for the --detector, and all its versions, as deleted.
Without it, marks the whole calibration type.

Marked entries are removed from the store file when it is saved, and the
deletion, with any --comment, is recorded in the parent's history.`,
	Run: func(_ *cobra.Command, _ []string) {
		m := newManager()
		id := markFlags.identity()
		ct, _ := markFlags.calibType(m)

		if markRange == "" {
			if err := m.MarkCType(id, ct, markComment); err != nil {
				die("%s", err)
			}

			info("deleted %s %s", id.Name(), ct)

			return
		}

		n, err := m.MarkRange(id, ct, markRange, markComment)
		if err != nil {
			die("%s", err)
		}

		info("deleted %s %s range %s with %d versions", id.Name(), ct, markRange, n)
	},
}

func init() {
	RootCmd.AddCommand(deleteCmd)
	RootCmd.AddCommand(markCmd)

	deleteFlags.register(deleteCmd, true)
	deleteCmd.Flags().StringVarP(&deleteComment, "comment", "m", "",
		"comment for the history")

	markCmd.Flags().StringVarP(&markFlags.detName, "detector", "d", "",
		"detector name, <type>-<id>")
	markCmd.Flags().StringVarP(&markFlags.ctype, "ctype", "c", "",
		"calibration type")
	markCmd.Flags().StringVar(&markRange, "range", "",
		"key of the range to delete; by default the whole calibration type")
	markCmd.Flags().StringVarP(&markComment, "comment", "m", "",
		"comment for the history")
}
