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
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/wtsi-hgi/calibstore/server"
)

const defaultBind = ":8080"

// options for this cmd.
var (
	serverBind      string
	serverLookupLog string
)

// serverCmd represents the server command.
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the REST server",
	Long: `Start the REST server.

Serves read-only lookups of the stores under the calibration root on --bind:

GET /rest/v1/constants?detname=&ctype=&time=&version=
    the constants valid at time, as JSON; 404 if there are none.
GET /rest/v1/detectors
    the names of every store.
GET /rest/v1/detectors/<detname>
    a summary of a store's calibration types, ranges and versions.
GET /rest/v1/detectors/<detname>/history
    a store's history records.
GET /rest/v1/lookups?detname=&limit=
    recent constants lookups, if --lookup_log is set.
GET /metrics
    prometheus metrics.

--lookup_log (or CALIBSTORE_LOOKUP_LOG) is the path to a sqlite database, created
if needed, that every constants lookup is recorded in.

The server stops gracefully on SIGINT or SIGTERM.`,
	Run: func(_ *cobra.Command, _ []string) {
		gin.SetMode(gin.ReleaseMode)

		m := newManager()
		s := server.New(m, appLogger.New("pkg", "server"))

		if path := flagOrEnv(serverLookupLog, envLookupLog); path != "" {
			if err := s.InitLookupLog(path); err != nil {
				die("failed to open lookup log: %s", err)
			}
		}

		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

		go func() {
			<-sigs

			info("shutting down")

			if err := s.Stop(); err != nil {
				warn("server stop: %s", err)
			}
		}()

		if err := s.Start(serverBind); err != nil {
			die("server failed: %s", err)
		}
	},
}

func init() {
	RootCmd.AddCommand(serverCmd)

	serverCmd.Flags().StringVarP(&serverBind, "bind", "b", defaultBind,
		"address to listen on")
	serverCmd.Flags().StringVar(&serverLookupLog, "lookup_log", "",
		"path to a sqlite database recording lookups [$"+envLookupLog+"]")
}
