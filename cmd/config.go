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
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"code.cloudfoundry.org/bytefmt"
	"github.com/joho/godotenv"
)

const (
	envRoot         = "CALIBSTORE_ROOT"
	envRepo         = "CALIBSTORE_REPO"
	envCompressOver = "CALIBSTORE_COMPRESS_OVER"
	envLookupLog    = "CALIBSTORE_LOOKUP_LOG"

	compressionOff = "off"

	errRootRequired = Error("a calibration root is required; use --root or " + envRoot)
	errBadSize      = Error("invalid size")
	errBadTime      = Error("invalid time")
)

// Error is the error type for the cmd package.
type Error string

func (e Error) Error() string { return string(e) }

var dotEnvKeys = []string{
	envRoot,
	envRepo,
	envCompressOver,
	envLookupLog,
}

// loadDotEnv sets our env vars from .env and .env.local files in the current
// directory, without overriding any already set.
func loadDotEnv() {
	orig := originalEnvKeys(dotEnvKeys)

	loadDotEnvFile(".env", orig)
	loadDotEnvFile(".env.local", orig)
}

func originalEnvKeys(keys []string) map[string]struct{} {
	orig := map[string]struct{}{}

	for _, key := range keys {
		if _, ok := os.LookupEnv(key); ok {
			orig[key] = struct{}{}
		}
	}

	return orig
}

func loadDotEnvFile(path string, orig map[string]struct{}) {
	env, err := godotenv.Read(path)
	if err != nil {
		return
	}

	for _, key := range dotEnvKeys {
		val, ok := env[key]
		if !ok {
			continue
		}

		if _, ok := orig[key]; ok {
			continue
		}

		_ = os.Setenv(key, val)
	}
}

func flagOrEnv(flagValue string, envKey string) string {
	if v := strings.TrimSpace(flagValue); v != "" {
		return v
	}

	return strings.TrimSpace(os.Getenv(envKey))
}

func requiredFlagOrEnv(flagValue string, envKey string, missing error) (string, error) {
	v := flagOrEnv(flagValue, envKey)
	if v == "" {
		return "", missing
	}

	return v, nil
}

// parseSizeFlagOrEnv parses a byte size such as "512K" from the flag or env
// var. "off" gives -1.
func parseSizeFlagOrEnv(flagValue string, envKey string, defaultValue int) (int, error) {
	v := flagOrEnv(flagValue, envKey)

	switch {
	case v == "":
		return defaultValue, nil
	case strings.EqualFold(v, compressionOff):
		return -1, nil
	}

	n, err := bytefmt.ToBytes(v)
	if err != nil {
		return 0, fmt.Errorf("%w for %s: %w", errBadSize, envKey, err)
	}

	if n > math.MaxInt32 {
		return 0, fmt.Errorf("%w for %s: %s is too large", errBadSize, envKey, v)
	}

	return int(n), nil
}

// parseTime parses seconds since the epoch, an RFC3339 time, or a local time
// like "2006-01-02T15:04:05" or "2006-01-02".
func parseTime(s string) (float64, error) {
	s = strings.TrimSpace(s)

	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f, nil
	}

	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return secs(t), nil
	}

	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02 15:04:05", time.DateOnly} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil { //nolint:gosmopolitan
			return secs(t), nil
		}
	}

	return 0, fmt.Errorf("%w: %q", errBadTime, s)
}

func secs(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
