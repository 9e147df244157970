/*-
 * Copyright © 2016-2017, Jörg Pernfuß <code.jpe@gmail.com>
 * All rights reserved.
 *
 * Use of this source code is governed by a 2-clause BSD license
 * that can be found in the LICENSE file.
 */

// Command udplogd is the structured-log ingestion and fan-out daemon:
// it accepts events over the native udplog wire format and RFC 3164
// syslog, and forwards them to whichever downstream sinks are
// configured.
package main

import (
	"context"
	"log"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/client9/reopen"
	"github.com/sirupsen/logrus"

	"github.com/mjolnir42/udplogd/internal/config"
	"github.com/mjolnir42/udplogd/internal/dispatch"
	"github.com/mjolnir42/udplogd/internal/event"
	"github.com/mjolnir42/udplogd/internal/ingress"
	"github.com/mjolnir42/udplogd/internal/sink/datadog"
	"github.com/mjolnir42/udplogd/internal/sink/kafka"
	"github.com/mjolnir42/udplogd/internal/sink/rabbitmq"
	"github.com/mjolnir42/udplogd/internal/sink/redis"
	"github.com/mjolnir42/udplogd/internal/sink/scribe"
)

func main() {
	opts := parseOptions()

	conf := config.Default()
	if err := conf.FromFile(opts.configFile); err != nil {
		log.Fatalln(`MAIN ERROR, reading configuration:`, err)
	}
	if opts.verbose {
		conf.Verbose = true
	}
	if hosts := splitList(opts.redisHosts); hosts != nil {
		conf.Redis.Hosts = hosts
	}
	if brokers := splitList(opts.kafkaAddrs); brokers != nil {
		conf.Kafka.Brokers = brokers
	}

	setupLogging(conf)

	d := dispatch.New()
	if conf.Verbose {
		d.Register(dispatch.ConsumerFunc(func(ev event.Event) {
			raw, err := event.Encode(ev)
			if err != nil {
				return
			}
			os.Stderr.Write(raw)
			os.Stderr.Write([]byte("\n"))
		}))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var stops []func()

	if conf.Scribe.Host != `` {
		addr := net.JoinHostPort(conf.Scribe.Host, itoa(conf.Scribe.Port))
		minLevel := event.LogLevel(conf.Scribe.MinLevel)
		if minLevel == `` {
			minLevel = event.Info
		}
		s := scribe.New(`scribe`, addr, minLevel, conf.Scribe.QueueSize, d)
		go s.Run(ctx)
		stops = append(stops, s.Stop)
		logrus.Infof(`MAIN, scribe sink enabled against %s`, addr)
	}

	if conf.RabbitMQ.Host != `` {
		url := rabbitmqURL(conf)
		r := rabbitmq.New(`rabbitmq`, url, conf.RabbitMQ.Exchange, conf.RabbitMQ.QueueSize, d)
		go r.Run(ctx)
		stops = append(stops, r.Stop)
		logrus.Infof(`MAIN, rabbitmq sink enabled against %s`, conf.RabbitMQ.Host)
	}

	if len(conf.Redis.Hosts) > 0 {
		p := redis.New(`redis`, conf.Redis.Key, conf.Redis.Hosts, conf.Redis.QueueSize, d)
		go p.Run(ctx)
		stops = append(stops, p.Stop)
		logrus.Infof(`MAIN, redis sink enabled against %v`, conf.Redis.Hosts)
	}

	if len(conf.Kafka.Brokers) > 0 {
		k, err := kafka.New(kafka.Config{
			Brokers:       conf.Kafka.Brokers,
			Topic:         conf.Kafka.Topic,
			BufferMaxSize: conf.Kafka.BufferMaxSize,
			SendEveryMsg:  conf.Kafka.SendEveryMsg,
			SendEverySec:  conf.Kafka.SendEverySec,
		}, d)
		if err != nil {
			logrus.Errorf(`MAIN, kafka sink not started, connecting failed: %s`, err)
		} else {
			stops = append(stops, k.Stop)
			logrus.Infof(`MAIN, kafka sink enabled against %v`, conf.Kafka.Brokers)
		}
	}

	if conf.DataDog.APIKey != `` {
		dd := datadog.New(conf.DataDog.APIKey, conf.DataDog.ApplicationKey, conf.DataDog.QueueSize, d)
		stops = append(stops, dd.Stop)
		logrus.Infof(`MAIN, datadog events sink enabled`)
	}

	nativeConn, err := net.ListenPacket(`udp`, net.JoinHostPort(conf.UDPLog.Interface, itoa(conf.UDPLog.Port)))
	if err != nil {
		log.Fatalln(`MAIN ERROR, opening native listener:`, err)
	}
	nativeListener := ingress.NewNativeListener(nativeConn, d)
	go func() {
		if err := nativeListener.Serve(); err != nil {
			logrus.Errorf(`MAIN, native listener stopped: %s`, err)
		}
	}()
	logrus.Infof(`MAIN, native udplog listener on %s`, nativeConn.LocalAddr())

	var syslogConn net.PacketConn
	if conf.Syslog.Port != 0 {
		syslogConn, err = net.ListenPacket(`udp`, net.JoinHostPort(conf.Syslog.Interface, itoa(conf.Syslog.Port)))
		if err != nil {
			log.Fatalln(`MAIN ERROR, opening syslog listener:`, err)
		}
		tz := resolveTimezone(conf.Syslog.Timezone)
		syslogListener := ingress.NewSyslogListener(syslogConn, d, tz, nil)
		go func() {
			if err := syslogListener.Serve(); err != nil {
				logrus.Errorf(`MAIN, syslog listener stopped: %s`, err)
			}
		}()
		logrus.Infof(`MAIN, syslog listener on %s`, syslogConn.LocalAddr())
	}

	if conf.Syslog.UnixSocket != `` {
		unixConn, err := net.ListenPacket(`unixgram`, conf.Syslog.UnixSocket)
		if err != nil {
			log.Fatalln(`MAIN ERROR, opening syslog unix socket:`, err)
		}
		defer unixConn.Close()
		unixListener := ingress.NewSyslogListener(unixConn, d, resolveTimezone(conf.Syslog.Timezone), nil)
		go func() {
			if err := unixListener.Serve(); err != nil {
				logrus.Errorf(`MAIN, syslog unix listener stopped: %s`, err)
			}
		}()
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

runloop:
	for s := range sig {
		switch s {
		case syscall.SIGHUP:
			if conf.Log.Rotate && conf.Log.FH != nil {
				if err := conf.Log.FH.Reopen(); err != nil {
					logrus.Errorf(`MAIN, logfile reopen failed: %s`, err)
				}
			}
			continue runloop
		default:
			break runloop
		}
	}

	logrus.Infof(`MAIN, shutting down`)
	cancel()
	nativeConn.Close()
	if syslogConn != nil {
		syslogConn.Close()
	}
	for _, stop := range stops {
		stop()
	}
}

// setupLogging configures logrus's level and output, reopening the
// configured logfile through reopen.FileWriter so SIGHUP-triggered
// log rotation works without restarting the daemon.
func setupLogging(conf *config.Config) {
	if conf.Log.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if conf.Log.File == `` {
		return
	}
	path := filepath.Join(conf.Log.Path, conf.Log.File)
	fh, err := reopen.NewFileWriter(path)
	if err != nil {
		log.Fatalln(`MAIN ERROR, opening logfile:`, err)
	}
	conf.Log.FH = fh
	logrus.SetOutput(fh)
}

func rabbitmqURL(conf *config.Config) string {
	userinfo := ``
	if conf.RabbitMQ.User != `` {
		userinfo = conf.RabbitMQ.User + `:` + conf.RabbitMQ.Password + `@`
	}
	return `amqp://` + userinfo + net.JoinHostPort(conf.RabbitMQ.Host, itoa(conf.RabbitMQ.Port)) + `/` + conf.RabbitMQ.Vhost
}
