/*-
 * Copyright © 2016-2017, Jörg Pernfuß <code.jpe@gmail.com>
 * All rights reserved.
 *
 * Use of this source code is governed by a 2-clause BSD license
 * that can be found in the LICENSE file.
 */

// Package config holds the runtime configuration of udplogd, read from
// a UCL formatted file, mirroring the erebos.Config pattern used
// throughout the mjolnir42 daemon family.
package config // import "github.com/mjolnir42/udplogd/internal/config"

import (
	"bytes"
	"encoding/json"
	"io/ioutil"
	"path/filepath"

	"github.com/client9/reopen"
	ucl "github.com/nahanni/go-ucl"
)

// Config holds every namespaced option group from spec §6.
type Config struct {
	// Log is the namespace for logging options.
	Log struct {
		File   string `json:"file"`
		Path   string `json:"path"`
		Rotate bool   `json:"rotate.on.usr2,string"`
		Debug  bool   `json:"debug,string"`
		// FH is the reopenable logfile handle, populated by main once
		// the logfile has been opened; never read from the UCL file.
		FH *reopen.FileWriter `json:"-"`
	} `json:"log"`

	// UDPLog is the namespace for the native ingress listener.
	UDPLog struct {
		Interface string `json:"interface"`
		Port      int    `json:"port,string"`
	} `json:"udplog"`

	// Syslog is the namespace for the syslog ingress listener.
	Syslog struct {
		Interface  string `json:"interface"`
		Port       int    `json:"port,string"`
		UnixSocket string `json:"unix.socket"`
		Timezone   string `json:"timezone"`
	} `json:"syslog"`

	// Scribe is the namespace for the Thrift/Scribe sink.
	Scribe struct {
		Host      string `json:"host"`
		Port      int    `json:"port,string"`
		MinLevel  string `json:"min.level"`
		QueueSize int    `json:"queue.size,string"`
	} `json:"scribe"`

	// RabbitMQ is the namespace for the AMQP sink.
	RabbitMQ struct {
		Host      string `json:"host"`
		Port      int    `json:"port,string"`
		Vhost     string `json:"vhost"`
		Exchange  string `json:"exchange"`
		User      string `json:"user"`
		Password  string `json:"password"`
		QueueSize int    `json:"queue.size,string"`
	} `json:"rabbitmq"`

	// Redis is the namespace for the round-robin Redis pool sink.
	Redis struct {
		// Hosts is a UCL array of host:port endpoints.
		Hosts     []string `json:"hosts"`
		Port      int      `json:"port,string"`
		Key       string   `json:"key"`
		QueueSize int      `json:"queue.size,string"`
	} `json:"redis"`

	// Kafka is the namespace for the Kafka sink.
	Kafka struct {
		// Brokers is a UCL array of host:port endpoints.
		Brokers       []string `json:"brokers"`
		Topic         string   `json:"topic"`
		BufferMaxSize int      `json:"buffer.maxsize,string"`
		SendEveryMsg  int      `json:"send.every.msg,string"`
		SendEverySec  int      `json:"send.every.sec,string"`
	} `json:"kafka"`

	// DataDog is the namespace for the DataDog Events sink.
	DataDog struct {
		APIKey         string `json:"api.key"`
		ApplicationKey string `json:"application.key"`
		QueueSize      int    `json:"queue.size,string"`
	} `json:"datadog"`

	// Verbose mirrors the --verbose flag: echo every event to stderr.
	Verbose bool `json:"verbose,string"`
}

// Default returns a Config populated with the defaults from spec §6.
func Default() *Config {
	c := &Config{}
	c.UDPLog.Interface = `127.0.0.1`
	c.UDPLog.Port = 55647
	c.Scribe.Port = 1463
	c.Scribe.QueueSize = 2500
	c.RabbitMQ.Port = 5672
	c.RabbitMQ.Vhost = `/`
	c.RabbitMQ.Exchange = `logs`
	c.RabbitMQ.QueueSize = 2500
	c.Redis.Port = 6379
	c.Redis.QueueSize = 2500
	c.Kafka.Topic = `udplog`
	c.Kafka.BufferMaxSize = 2500
	c.Kafka.SendEveryMsg = 1000
	c.Kafka.SendEverySec = 5
	c.DataDog.QueueSize = 2500
	return c
}

// FromFile reads and parses a UCL formatted configuration file into c,
// following the erebos.Config.FromFile pattern: UCL is converted to
// JSON and then unmarshaled onto the typed struct.
func (c *Config) FromFile(fname string) error {
	abs, err := filepath.Abs(fname)
	if err != nil {
		return err
	}
	abs, err = filepath.EvalSymlinks(abs)
	if err != nil {
		return err
	}

	raw, err := ioutil.ReadFile(abs)
	if err != nil {
		return err
	}

	parser := ucl.NewParser(bytes.NewBuffer(raw))
	uclData, err := parser.Ucl()
	if err != nil {
		return err
	}

	uclJSON, err := json.Marshal(uclData)
	if err != nil {
		return err
	}
	return json.Unmarshal(uclJSON, c)
}
