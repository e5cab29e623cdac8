// Package bootstrap parses the device-list config file, assigns output
// session numbers and filenames, and wires a session.Session from the
// result.
package bootstrap

import (
	"bufio"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rom9/multirec/internal/audiocore"
	"github.com/rom9/multirec/internal/audiocore/device"
	"github.com/rom9/multirec/internal/errors"
)

// ParseConfig reads a whitespace/TAB-separated device-record file:
//
//	<driver_name> <invert:0|1> <pref_buffer_time_us> <pref_period_time_us>
//
// one record per line; '#' starts a comment; blank lines are skipped.
// Record order determines device index; index 0 is master. Grounded in
// multirec.c's readConfig().
func ParseConfig(path string) ([]device.Record, error) {
	f, err := os.Open(path) //nolint:gosec // path is an operator-supplied config file
	if err != nil {
		return nil, errors.FileError(err, path, 0).
			Component("bootstrap").
			Category(errors.CategoryConfiguration).
			Build()
	}
	defer f.Close()

	var records []device.Record
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if idx := strings.IndexByte(line, '#'); idx >= 0 {
			line = line[:idx]
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 4 {
			return nil, errors.Newf("config line %d: expected 4 fields, got %d", lineNo, len(fields)).
				Component("bootstrap").
				Category(errors.CategoryConfiguration).
				Context("path", path).
				Build()
		}

		invertInt, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fieldParseError(path, lineNo, "invert", fields[1], err)
		}
		bufUs, err := strconv.Atoi(fields[2])
		if err != nil {
			return nil, fieldParseError(path, lineNo, "pref_buffer_time_us", fields[2], err)
		}
		periodUs, err := strconv.Atoi(fields[3])
		if err != nil {
			return nil, fieldParseError(path, lineNo, "pref_period_time_us", fields[3], err)
		}

		records = append(records, device.Record{
			Name:           fields[0],
			Invert:         invertInt != 0,
			PrefBufferTime: time.Duration(bufUs) * time.Microsecond,
			PrefPeriodTime: time.Duration(periodUs) * time.Microsecond,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.New(err).
			Component("bootstrap").
			Category(errors.CategoryConfiguration).
			Context("path", path).
			Build()
	}
	if len(records) == 0 {
		return nil, errors.New(audiocore.ErrNoDevices).
			Component("bootstrap").
			Category(errors.CategoryConfiguration).
			Context("path", path).
			Build()
	}

	return records, nil
}

func fieldParseError(path string, line int, field, value string, cause error) error {
	return errors.New(cause).
		Component("bootstrap").
		Category(errors.CategoryConfiguration).
		Context("path", path).
		Context("line", line).
		Context("field", field).
		Context("value", value).
		Build()
}
