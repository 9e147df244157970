/*-
 * Copyright © 2016-2017, Jörg Pernfuß <code.jpe@gmail.com>
 * All rights reserved.
 *
 * Use of this source code is governed by a 2-clause BSD license
 * that can be found in the LICENSE file.
 */

// Package metrics tracks lightweight internal throughput counters for
// udplogd, in the same style cyclone uses go-metrics meters to count
// processed/evaluated/alarmed metrics.
package metrics // import "github.com/mjolnir42/udplogd/internal/metrics"

import (
	gometrics "github.com/rcrowley/go-metrics"
)

// Registry is the process-wide metrics registry.
var Registry = gometrics.NewRegistry()

// Mark increments the named meter by one.
func Mark(path string) {
	gometrics.GetOrRegisterMeter(path, Registry).Mark(1)
}

// MarkN increments the named meter by n.
func MarkN(path string, n int64) {
	gometrics.GetOrRegisterMeter(path, Registry).Mark(n)
}

// Rate1 returns the named meter's one-minute moving average rate.
func Rate1(path string) float64 {
	return gometrics.GetOrRegisterMeter(path, Registry).Rate1()
}
