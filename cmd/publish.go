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
	"github.com/wtsi-hgi/calibstore/detector"
)

// options for this cmd.
var (
	publishDetName string
	publishAll     bool
)

// publishCmd represents the publish command.
var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Copy stores to the central repository",
	Long: `Copy stores to the central repository.

Copies the --detector's store, or with --all every store under the
calibration root, to the same place under the repository root (--repo),
replacing any earlier copy atomically. Stores that fail to load are not
published.`,
	Run: func(_ *cobra.Command, _ []string) {
		m := newManager()

		var ids []detector.Identity

		switch {
		case publishAll:
			var err error

			ids, err = m.List()
			if err != nil {
				die("%s", err)
			}
		case publishDetName != "":
			id, err := detector.ParseName(publishDetName)
			if err != nil {
				die("%s", err)
			}

			ids = append(ids, id)
		default:
			die("you must supply a --detector or --all")
		}

		failed := 0

		for _, id := range ids {
			path, err := m.Publish(id)
			if err != nil {
				warn("failed to publish %s: %s", id.Name(), err)

				failed++

				continue
			}

			cliPrint("%s\n", path)
		}

		if failed > 0 {
			die("%d of %d stores were not published", failed, len(ids))
		}
	},
}

func init() {
	RootCmd.AddCommand(publishCmd)

	publishCmd.Flags().StringVarP(&publishDetName, "detector", "d", "",
		"detector name, <type>-<id>")
	publishCmd.Flags().BoolVar(&publishAll, "all", false,
		"publish every store")
}
