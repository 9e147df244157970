package ingress

import (
	"testing"
	"time"
)

func fixedNow(y int, m time.Month, d int) func() time.Time {
	return func() time.Time {
		return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
	}
}

// TestParsePriorityRoundTrip covers testable property 6: known priority
// integers map back to (facility, severity) pairs, e.g. 13 <-> (user,
// notice).
func TestParsePriorityRoundTrip(t *testing.T) {
	facility, severity := ParsePriority(13)
	if facility != `user` || severity != `notice` {
		t.Fatalf(`ParsePriority(13) = (%q, %q), want (user, notice)`, facility, severity)
	}
}

func TestParsePriorityOutOfRange(t *testing.T) {
	facility, severity := ParsePriority(192)
	if facility != `` || severity != `` {
		t.Fatalf(`ParsePriority(192) = (%q, %q), want both empty`, facility, severity)
	}
}

func TestParseSyslogBasic(t *testing.T) {
	restore := syslogNow
	syslogNow = fixedNow(2015, time.January, 20)
	defer func() { syslogNow = restore }()

	tz, err := time.LoadLocation(`Europe/Amsterdam`)
	if err != nil {
		t.Skipf(`tzdata unavailable: %s`, err)
	}

	ev := ParseSyslog(`<13>Jan 15 16:59:26 myhost test: hello`, tz)

	if ev.Facility != `user` {
		t.Errorf(`Facility = %q, want user`, ev.Facility)
	}
	if ev.Severity != `notice` {
		t.Errorf(`Severity = %q, want notice`, ev.Severity)
	}
	if ev.Hostname != `myhost` {
		t.Errorf(`Hostname = %q, want myhost`, ev.Hostname)
	}
	tag, _ := ev.Get(`tag`)
	if tag != `test` {
		t.Errorf(`tag = %v, want test`, tag)
	}
	if ev.Message != `hello` {
		t.Errorf(`Message = %q, want hello`, ev.Message)
	}
	if int64(ev.Timestamp) != 1421337566 {
		t.Errorf(`Timestamp = %v, want 1421337566`, ev.Timestamp)
	}
}

func TestParseSyslogThenNormalize(t *testing.T) {
	restore := syslogNow
	syslogNow = fixedNow(2015, time.January, 20)
	defer func() { syslogNow = restore }()

	tz, err := time.LoadLocation(`Europe/Amsterdam`)
	if err != nil {
		t.Skipf(`tzdata unavailable: %s`, err)
	}

	ev := ParseSyslog(`<13>Jan 15 16:59:26 myhost test: hello`, tz)
	ev = Normalize(ev, nil)

	if ev.Appname != `test` {
		t.Errorf(`Appname = %q, want test`, ev.Appname)
	}
	if ev.LogLevel != `NOTICE` {
		t.Errorf(`LogLevel = %q, want NOTICE`, ev.LogLevel)
	}
	if ev.Category != `syslog` {
		t.Errorf(`Category = %q, want syslog`, ev.Category)
	}
	if ev.Hostname != `myhost` {
		t.Errorf(`Hostname = %q, want myhost`, ev.Hostname)
	}
	if ev.Message != `hello` {
		t.Errorf(`Message = %q, want hello`, ev.Message)
	}
	if int64(ev.Timestamp) != 1421337566 {
		t.Errorf(`Timestamp = %v, want 1421337566`, ev.Timestamp)
	}
	if ev.Facility != `` || ev.Severity != `` {
		t.Errorf(`expected facility/severity cleared after normalization, got %q/%q`, ev.Facility, ev.Severity)
	}
	if _, ok := ev.Get(`tag`); ok {
		t.Errorf(`expected tag removed after normalization`)
	}
}

func TestParseSyslogCEEMerge(t *testing.T) {
	restore := syslogNow
	syslogNow = fixedNow(2015, time.January, 20)
	defer func() { syslogNow = restore }()

	ev := ParseSyslog(`<13>Jan 16 21:00:00 waar ralphm: blah @cee: {"event":"started"}`, time.UTC)

	if ev.Message != `blah` {
		t.Errorf(`Message = %q, want blah`, ev.Message)
	}
	v, ok := ev.Get(`event`)
	if !ok || v != `started` {
		t.Errorf(`event = %v, want started`, v)
	}
}

func TestParseSyslogCEEMalformedJSONKeepsFullMessage(t *testing.T) {
	ev := ParseSyslog(`<13>Jan 16 21:00:00 waar ralphm: blah @cee: {not json}`, time.UTC)

	want := `blah @cee: {not json}`
	if ev.Message != want {
		t.Errorf(`Message = %q, want %q`, ev.Message, want)
	}
}

func TestParseSyslogPriorityOutOfRangeLeavesFieldsAbsent(t *testing.T) {
	ev := ParseSyslog(`<192>Jan 15 16:59:26 myhost test: hello`, time.UTC)

	if ev.Facility != `` {
		t.Errorf(`expected Facility absent, got %q`, ev.Facility)
	}
	if ev.Severity != `` {
		t.Errorf(`expected Severity absent, got %q`, ev.Severity)
	}
}

func TestParseSyslogNoMatchBecomesMessage(t *testing.T) {
	line := `this is not a syslog line at all`
	ev := ParseSyslog(line, time.UTC)

	if ev.Message != line {
		t.Errorf(`Message = %q, want entire line %q`, ev.Message, line)
	}
}

func TestNormalizeDefaultsCategoryAndAppliesHostnameRewrite(t *testing.T) {
	ev := ParseSyslog(`<13>Jan 15 16:59:26 short test: hello`, time.UTC)
	ev = Normalize(ev, map[string]string{`short`: `short.example.com`})

	if ev.Hostname != `short.example.com` {
		t.Errorf(`Hostname = %q, want rewritten fqdn`, ev.Hostname)
	}
	if ev.Category != `syslog` {
		t.Errorf(`Category = %q, want syslog default`, ev.Category)
	}
}
