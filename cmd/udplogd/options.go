/*-
 * Copyright © 2016-2017, Jörg Pernfuß <code.jpe@gmail.com>
 * All rights reserved.
 *
 * Use of this source code is governed by a 2-clause BSD license
 * that can be found in the LICENSE file.
 */

package main

import (
	"flag"
	"strings"
)

// options holds the command-line flags that may override the UCL
// configuration file.
type options struct {
	configFile string
	verbose    bool
	redisHosts string
	kafkaAddrs string
}

// parseOptions registers and parses the daemon's flags.
func parseOptions() *options {
	o := &options{}
	flag.StringVar(&o.configFile, `config`, `udplogd.conf`, `path to the UCL configuration file`)
	flag.BoolVar(&o.verbose, `verbose`, false, `echo every dispatched event to stderr`)
	flag.StringVar(&o.redisHosts, `redis-hosts`, ``, `comma-separated host:port list, overrides config`)
	flag.StringVar(&o.kafkaAddrs, `kafka-brokers`, ``, `comma-separated host:port list, overrides config`)
	flag.Parse()
	return o
}

// splitList splits a comma-separated flag value, dropping empty
// fields so an unset flag yields a nil slice.
func splitList(s string) []string {
	if s == `` {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, `,`) {
		part = strings.TrimSpace(part)
		if part != `` {
			out = append(out, part)
		}
	}
	return out
}
