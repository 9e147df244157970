/*-
 * Copyright © 2016-2017, Jörg Pernfuß <code.jpe@gmail.com>
 * All rights reserved.
 *
 * Use of this source code is governed by a 2-clause BSD license
 * that can be found in the LICENSE file.
 */

package main

import (
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

func itoa(n int) string {
	return strconv.Itoa(n)
}

// resolveTimezone loads name as a time.Location, falling back to UTC
// (with a warning) if it cannot be loaded or is unset.
func resolveTimezone(name string) *time.Location {
	if name == `` {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		logrus.Warnf(`MAIN, unknown syslog timezone %q, falling back to UTC: %s`, name, err)
		return time.UTC
	}
	return loc
}
