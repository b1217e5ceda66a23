package parser

import (
	"strings"
	"testing"
	"time"

	"github.com/loglens/loglens/internal/record"
)

const (
	elbLine      = `2015-05-24T19:21:39.218145Z my-loadbalancer 192.168.131.39:2817 10.0.0.1:80 0.000073 0.001048 0.000057 200 200 0 29 "GET http://www.example.com:80/ HTTP/1.1"`
	albLine      = `http 2018-07-02T22:23:00.186641Z app/my-lb/50dc6c495c0c9188 192.168.131.39:2817 10.0.0.1:80 0.000 0.001 0.000 200 200 34 366 "GET http://www.example.com:80/ HTTP/1.1" "curl/7.46.0" - - arn:aws:elasticloadbalancing:us-east-2:123456789012:targetgroup/my-targets/73e2d6bc "Root=1-58337262-36d228ad5d99923122bbe354"`
	mysqlLine    = `2023-11-14T10:30:45.123456Z    42 Query     SELECT * FROM users`
	postgresLine = `2023-11-14 10:30:45.123 UTC [12345] postgres@testdb LOG: connection received`
	rsyslogLine  = `2010-06-24T17:56:32.197716-04:00 combo su: session opened for user root`
	journalLine  = `Feb 09 10:15:30 myhost systemd[1]: Started Session 42.`
	combinedLine = `192.168.1.100 - frank [26/Jan/2025:10:00:01 -0500] "GET /index.html HTTP/1.1" 200 1234 "https://example.com" "Mozilla/5.0"`
	commonLine   = `192.168.1.100 - frank [26/Jan/2025:10:00:01 -0500] "GET /index.html HTTP/1.1" 200 1234`
	syslogLine   = `Jun 14 15:16:01 combo su(pam_unix)[19939]: session opened for user cyrus`
	secureLine   = `Feb 10 04:05:06 host1 sshd[1234]: Failed password for root from 10.0.0.5`
)

func TestRecognizes(t *testing.T) {
	tests := []struct {
		name   string
		parser Parser
		line   string
		want   bool
	}{
		{"ELB accepts ELB line", elbParser{}, elbLine, true},
		{"ELB rejects ALB line", elbParser{}, albLine, false},
		{"ALB accepts ALB line", albParser{}, albLine, true},
		{"ALB rejects ELB line", albParser{}, elbLine, false},
		{"MySQL accepts general log line", mysqlParser{}, mysqlLine, true},
		{"MySQL rejects postgres line", mysqlParser{}, postgresLine, false},
		{"PostgreSQL accepts server log line", postgresParser{}, postgresLine, true},
		{"RSyslog accepts ISO timestamp line", rsyslogParser{}, rsyslogLine, true},
		{"RSyslog rejects classic syslog", rsyslogParser{}, syslogLine, false},
		{"Journalctl accepts bracketed pid daemon", journalParser{}, journalLine, true},
		{"Journalctl rejects parenthesized daemon", journalParser{}, syslogLine, false},
		{"ApacheCombined accepts combined line", apacheCombinedParser{}, combinedLine, true},
		{"ApacheCombined rejects common line", apacheCombinedParser{}, commonLine, false},
		{"ApacheCommon accepts common line", apacheCommonParser{}, commonLine, true},
		{"ApacheCommon rejects combined line", apacheCommonParser{}, combinedLine, false},
		{"Syslog accepts classic line", syslogParser{}, syslogLine, true},
		{"Syslog rejects PAM source", syslogParser{}, `Feb 10 04:05:06 host1 pam_unix(sshd:auth): failure`, false},
		{"SecureLog accepts sshd with pid", secureParser{}, secureLine, true},
		{"SecureLog rejects plain syslog", secureParser{}, journalLine, false},
		{"Raw accepts anything non-blank", rawParser{}, "completely free-form text", true},
		{"Raw rejects blank line", rawParser{}, "   ", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.parser.Recognizes(tt.line); got != tt.want {
				t.Errorf("Recognizes(%q) = %v, want %v", tt.line, got, tt.want)
			}
		})
	}
}

func TestParseFields(t *testing.T) {
	thisYear := time.Now().Year()

	tests := []struct {
		name   string
		parser Parser
		line   string
		want   record.Record
	}{
		{
			name:   "ELB extracts client IP and method",
			parser: elbParser{},
			line:   elbLine,
			want: record.Record{
				Year: 2015, Month: 5, Day: 24, Hour: 19, Minute: 21, Second: 39,
				Host: "192.168.131.39", Daemon: "GET",
				Message: "GET http://www.example.com:80/ HTTP/1.1 elb_status=200 backend_status=200",
			},
		},
		{
			name:   "ALB extracts client IP and method",
			parser: albParser{},
			line:   albLine,
			want: record.Record{
				Year: 2018, Month: 7, Day: 2, Hour: 22, Minute: 23, Second: 0,
				Host: "192.168.131.39", Daemon: "GET",
				Message: "GET http://www.example.com:80/ HTTP/1.1 elb_status=200 target_status=200 protocol=http",
			},
		},
		{
			name:   "MySQL extracts thread and command",
			parser: mysqlParser{},
			line:   mysqlLine,
			want: record.Record{
				Year: 2023, Month: 11, Day: 14, Hour: 10, Minute: 30, Second: 45,
				Host: "thread_42", Daemon: "Query", Message: "SELECT * FROM users",
			},
		},
		{
			name:   "PostgreSQL extracts user@database and level",
			parser: postgresParser{},
			line:   postgresLine,
			want: record.Record{
				Year: 2023, Month: 11, Day: 14, Hour: 10, Minute: 30, Second: 45,
				Host: "postgres@testdb", Daemon: "LOG", Message: "connection received",
			},
		},
		{
			name:   "RSyslog strips timezone and microseconds",
			parser: rsyslogParser{},
			line:   rsyslogLine,
			want: record.Record{
				Year: 2010, Month: 6, Day: 24, Hour: 17, Minute: 56, Second: 32,
				Host: "combo", Daemon: "su:", Message: "session opened for user root",
			},
		},
		{
			name:   "Journalctl trims trailing colon from daemon",
			parser: journalParser{},
			line:   journalLine,
			want: record.Record{
				Year: thisYear, Month: 2, Day: 9, Hour: 10, Minute: 15, Second: 30,
				Host: "myhost", Daemon: "systemd[1]", Message: "Started Session 42.",
			},
		},
		{
			name:   "Apache combined keeps referer and agent in message",
			parser: apacheCombinedParser{},
			line:   combinedLine,
			want: record.Record{
				Year: 2025, Month: 1, Day: 26, Hour: 10, Minute: 0, Second: 1,
				Host: "192.168.1.100", Daemon: "GET",
				Message: `GET /index.html HTTP/1.1 200 1234 "https://example.com" "Mozilla/5.0"`,
			},
		},
		{
			name:   "Apache common",
			parser: apacheCommonParser{},
			line:   commonLine,
			want: record.Record{
				Year: 2025, Month: 1, Day: 26, Hour: 10, Minute: 0, Second: 1,
				Host: "192.168.1.100", Daemon: "GET",
				Message: "GET /index.html HTTP/1.1 200 1234",
			},
		},
		{
			name:   "Syslog assumes current year",
			parser: syslogParser{},
			line:   syslogLine,
			want: record.Record{
				Year: thisYear, Month: 6, Day: 14, Hour: 15, Minute: 16, Second: 1,
				Host: "combo", Daemon: "su(pam_unix)[19939]:", Message: "session opened for user cyrus",
			},
		},
		{
			name:   "SecureLog keeps daemon with pid",
			parser: secureParser{},
			line:   secureLine,
			want: record.Record{
				Year: thisYear, Month: 2, Day: 10, Hour: 4, Minute: 5, Second: 6,
				Host: "host1", Daemon: "sshd[1234]:", Message: "Failed password for root from 10.0.0.5",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.parser.Parse(tt.line)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Parse() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseInvalidMonth(t *testing.T) {
	_, err := syslogParser{}.Parse("Xxx 14 15:16:01 combo su: message")
	if err == nil {
		t.Fatal("expected error for unknown month name")
	}
}

func TestParseShortLineDegrades(t *testing.T) {
	got, err := syslogParser{}.Parse("Jun 14")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !got.IsAbnormal() {
		t.Errorf("short line should degrade to sentinel, got %+v", got)
	}
	if got.Message != "Jun 14" {
		t.Errorf("message = %q, want raw line", got.Message)
	}
}

func TestRawParse(t *testing.T) {
	got, err := rawParser{}.Parse("free-form text")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !got.IsAbnormal() || got.Message != "free-form text" {
		t.Errorf("Parse() = %+v, want sentinel carrying raw line", got)
	}
}

// Printed records are valid RFC-5424 style lines, so normalizing output and
// re-parsing it must reach a fixed point.
func TestPrintReparseFixpoint(t *testing.T) {
	lines := []string{elbLine, mysqlLine, postgresLine, rsyslogLine, journalLine}
	parsers := []Parser{elbParser{}, mysqlParser{}, postgresParser{}, rsyslogParser{}, journalParser{}}

	for i, line := range lines {
		rec, err := parsers[i].Parse(line)
		if err != nil {
			t.Fatalf("%s: Parse() error = %v", parsers[i].Name(), err)
		}

		printed := rec.String()
		again, err := rsyslogParser{}.Parse(printed)
		if err != nil {
			t.Fatalf("%s: reparse error = %v", parsers[i].Name(), err)
		}

		if got := again.String(); got != printed {
			t.Errorf("%s: reparse changed output:\n  first:  %s\n  second: %s", parsers[i].Name(), printed, got)
		}
		if again.Year != rec.Year || again.Month != rec.Month || again.Day != rec.Day ||
			again.Hour != rec.Hour || again.Minute != rec.Minute || again.Second != rec.Second {
			t.Errorf("%s: timestamp drifted on reparse", parsers[i].Name())
		}
		if again.Host != rec.Host {
			t.Errorf("%s: host drifted: %q -> %q", parsers[i].Name(), rec.Host, again.Host)
		}
	}
}

// A record whose daemon keeps its trailing colon prints as a well-formed
// RFC-5424 style line, and parsing that line back must reproduce every
// field exactly.
func TestPrintReparseFields(t *testing.T) {
	tests := []struct {
		name string
		rec  record.Record
	}{
		{
			name: "syslog daemon",
			rec: record.Record{
				Year: 2024, Month: 1, Day: 5, Hour: 10, Minute: 0, Second: 0,
				Host: "host1", Daemon: "sshd:", Message: "failed password",
			},
		},
		{
			name: "daemon with pid",
			rec: record.Record{
				Year: 1999, Month: 12, Day: 31, Hour: 23, Minute: 59, Second: 59,
				Host: "db01", Daemon: "mysqld[204]:", Message: "shutdown complete",
			},
		},
		{
			name: "pam source token",
			rec: record.Record{
				Year: 2025, Month: 6, Day: 7, Hour: 0, Minute: 0, Second: 1,
				Host: "combo", Daemon: "su(pam_unix)[19939]:", Message: "session opened for user cyrus",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := rsyslogParser{}.Parse(tt.rec.String())
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", tt.rec.String(), err)
			}
			if got != tt.rec {
				t.Errorf("reparse changed fields:\n  got  %+v\n  want %+v", got, tt.rec)
			}
		})
	}
}

func TestQuotedRequest(t *testing.T) {
	if got := quotedRequest(`pre "middle" post`); got != "middle" {
		t.Errorf("quotedRequest() = %q, want %q", got, "middle")
	}
	if got := quotedRequest("no quotes"); got != "-" {
		t.Errorf("quotedRequest() = %q, want %q", got, "-")
	}
	if got := firstQuotedRequest(`a "one" b "two"`); got != "one" {
		t.Errorf("firstQuotedRequest() = %q, want %q", got, "one")
	}
}

func TestMonthNumber(t *testing.T) {
	for i, name := range strings.Split("Jan Feb Mar Apr May Jun Jul Aug Sep Oct Nov Dec", " ") {
		got, err := monthNumber(name)
		if err != nil {
			t.Fatalf("monthNumber(%q) error = %v", name, err)
		}
		if got != i+1 {
			t.Errorf("monthNumber(%q) = %d, want %d", name, got, i+1)
		}
	}
	if _, err := monthNumber("Foo"); err == nil {
		t.Error("expected error for unknown month")
	}
}
