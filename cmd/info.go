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
	"os"
	"strconv"
	"time"

	"github.com/dustin/go-humanize" //nolint:misspell
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/wtsi-hgi/calibstore/calib"
)

// options for this cmd.
var (
	infoDetName string
	infoDump    bool
)

// infoCmd represents the info command.
var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Describe calibration stores",
	Long: `Describe calibration stores.

Without --detector, lists every store under the calibration root with its
calibration types, file size and modification time.

With --detector, lists each version in that detector's store with its range,
element type, shape and production time. The range key is what 'mark --range'
takes, and a '*' marks the version 'get' returns by default.

--dump instead prints the whole tree, including parameters, as indented text.`,
	Run: func(_ *cobra.Command, _ []string) {
		if logPath == "" {
			setCLIFormat()
		}

		m := newManager()

		if infoDetName == "" {
			stores, err := m.LoadAll()
			if err != nil {
				warn("some stores could not be loaded: %s", err)
			}

			printStoresTable(stores)

			return
		}

		s, err := m.LoadName(infoDetName)
		if err != nil {
			die("%s", err)
		}

		if infoDump {
			if err := s.Dump(os.Stdout); err != nil {
				die("%s", err)
			}

			return
		}

		printStoreTable(s)
	},
}

func init() {
	RootCmd.AddCommand(infoCmd)

	infoCmd.Flags().StringVarP(&infoDetName, "detector", "d", "",
		"detector name, <type>-<id>")
	infoCmd.Flags().BoolVar(&infoDump, "dump", false,
		"print the whole store tree")
}

func printStoresTable(stores []*calib.Store) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Detector", "CTypes", "Size", "Modified"})

	for _, s := range stores {
		size, mtime := "-", "-"

		if st, err := os.Stat(s.Path()); err == nil {
			size = humanize.IBytes(uint64(st.Size())) //nolint:gosec
			mtime = humanize.Time(st.ModTime())
		}

		table.Append([]string{s.DetName(), strconv.Itoa(len(s.CTypes())), size, mtime})
	}

	table.Render()
}

func printStoreTable(s *calib.Store) {
	cliPrint("%s: %s\n", s.DetName(), s.Path())

	if s.Predecessor() != "" {
		cliPrint("predecessor: %s\n", s.Predecessor())
	}

	if s.Successor() != "" {
		cliPrint("successor: %s\n", s.Successor())
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"CType", "Range", "Version", "Payload", "Size", "Produced"})

	for _, t := range s.CTypes() {
		for _, r := range t.Ranges() {
			for _, v := range r.Versions() {
				table.Append(versionColumns(t, r, v))
			}
		}
	}

	table.Render()
}

// versionColumns returns the column data to display for a version.
func versionColumns(t *calib.Type, r *calib.Range, v *calib.Version) []string {
	vnum := strconv.Itoa(v.VNum())
	if v.VNum() == r.VNumDef() {
		vnum += "*"
	}

	size := uint64(len(v.Text())) //nolint:gosec
	if d := v.Data(); d != nil {
		size = uint64(d.Bytes()) //nolint:gosec
	}

	return []string{
		string(t.CType()),
		r.Key(),
		vnum,
		v.Describe(),
		humanize.IBytes(size),
		fmt.Sprintf("%s (%s)", time.Unix(int64(v.TSProd()), 0).Format(time.DateTime), //nolint:gosmopolitan
			humanize.Time(time.Unix(int64(v.TSProd()), 0))),
	}
}
