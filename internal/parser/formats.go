package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/loglens/loglens/internal/record"
)

// months maps three-letter English month abbreviations to month numbers.
var months = map[string]int{
	"Jan": 1, "Feb": 2, "Mar": 3, "Apr": 4,
	"May": 5, "Jun": 6, "Jul": 7, "Aug": 8,
	"Sep": 9, "Oct": 10, "Nov": 11, "Dec": 12,
}

func monthNumber(s string) (int, error) {
	m, ok := months[s]
	if !ok {
		return 0, fmt.Errorf("invalid month %q", s)
	}
	return m, nil
}

// Shared structural patterns for the syslog-family grammars.
var (
	monthPattern = regexp.MustCompile(`^[A-Z][a-z]{2}$`)
	dayPattern   = regexp.MustCompile(`^[0-9]{1,2}$`)
	timePattern  = regexp.MustCompile(`^[0-9]{1,2}:[0-9]{2}:[0-9]{2}$`)
)

func parseClock(s string) (hour, minute, second int, err error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("invalid time %q", s)
	}
	if hour, err = strconv.Atoi(parts[0]); err != nil {
		return 0, 0, 0, err
	}
	if minute, err = strconv.Atoi(parts[1]); err != nil {
		return 0, 0, 0, err
	}
	if second, err = strconv.Atoi(parts[2]); err != nil {
		return 0, 0, 0, err
	}
	return hour, minute, second, nil
}

// quotedRequest extracts the text between the first and last double quote.
func quotedRequest(line string) string {
	start := strings.IndexByte(line, '"')
	end := strings.LastIndexByte(line, '"')
	if start < 0 || start >= end {
		return "-"
	}
	return line[start+1 : end]
}

// firstQuotedRequest extracts the text between the first pair of double quotes.
func firstQuotedRequest(line string) string {
	start := strings.IndexByte(line, '"')
	if start < 0 {
		return "-"
	}
	end := strings.IndexByte(line[start+1:], '"')
	if end < 0 {
		return "-"
	}
	return line[start+1 : start+1+end]
}

func firstWord(s, fallback string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return fallback
	}
	return fields[0]
}

// elbParser handles AWS classic load balancer access logs.
type elbParser struct{}

var (
	elbLinePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d+Z \S+ \d+\.\d+\.\d+\.\d+:\d+ (\d+\.\d+\.\d+\.\d+:\d+|-) [\d\.-]+ [\d\.-]+ [\d\.-]+ \d+ `)
	isoStampPrefix = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})T(\d{2}):(\d{2}):(\d{2})`)
)

func (elbParser) Name() string { return "AWS-ELB" }

func (elbParser) Recognizes(line string) bool {
	return elbLinePattern.MatchString(line)
}

func (elbParser) Parse(line string) (record.Record, error) {
	parts := strings.Fields(line)
	if len(parts) < 13 {
		return record.Record{}, fmt.Errorf("invalid AWS ELB log line")
	}

	rec, err := stampToRecord(parts[0])
	if err != nil {
		return record.Record{}, err
	}

	client, _, _ := strings.Cut(parts[2], ":")
	request := quotedRequest(line)

	rec.Host = client
	rec.Daemon = firstWord(request, "HTTP")
	rec.Message = fmt.Sprintf("%s elb_status=%s backend_status=%s", request, parts[7], parts[8])
	return rec, nil
}

// albParser handles AWS application load balancer access logs, which lead
// with the connection protocol instead of the timestamp.
type albParser struct{}

var albLinePattern = regexp.MustCompile(`^(http|https|h2|grpc|ws|wss) \d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d+Z`)

func (albParser) Name() string { return "AWS-ALB" }

func (albParser) Recognizes(line string) bool {
	return albLinePattern.MatchString(line)
}

func (albParser) Parse(line string) (record.Record, error) {
	parts := strings.Fields(line)
	if len(parts) < 15 {
		return record.Record{}, fmt.Errorf("invalid AWS ALB log line")
	}

	rec, err := stampToRecord(parts[1])
	if err != nil {
		return record.Record{}, err
	}

	protocol := parts[0]
	client, _, _ := strings.Cut(parts[3], ":")
	request := firstQuotedRequest(line)

	rec.Host = client
	rec.Daemon = firstWord(request, protocol)
	rec.Message = fmt.Sprintf("%s elb_status=%s target_status=%s protocol=%s", request, parts[8], parts[9], protocol)
	return rec, nil
}

// stampToRecord fills the date and time fields from a leading ISO-8601
// timestamp such as 2015-05-24T19:21:39.218145Z.
func stampToRecord(stamp string) (record.Record, error) {
	m := isoStampPrefix.FindStringSubmatch(stamp)
	if m == nil {
		return record.Record{}, fmt.Errorf("invalid timestamp %q", stamp)
	}

	var rec record.Record
	var err error
	for i, dst := range []*int{&rec.Year, &rec.Month, &rec.Day, &rec.Hour, &rec.Minute, &rec.Second} {
		if *dst, err = strconv.Atoi(m[i+1]); err != nil {
			return record.Record{}, err
		}
	}
	return rec, nil
}

// mysqlParser handles the MySQL general query log.
type mysqlParser struct{}

var (
	mysqlLinePattern  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d+Z\s+\d+\s+(Query|Connect|Quit|Init|Execute)`)
	mysqlFieldPattern = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})T(\d{2}):(\d{2}):(\d{2})\.\d+Z\s+(\d+)\s+(\w+)\s*(.*)$`)
)

func (mysqlParser) Name() string { return "MySQL-General" }

func (mysqlParser) Recognizes(line string) bool {
	return mysqlLinePattern.MatchString(line)
}

func (mysqlParser) Parse(line string) (record.Record, error) {
	m := mysqlFieldPattern.FindStringSubmatch(line)
	if m == nil {
		return record.Record{}, fmt.Errorf("invalid MySQL general log line")
	}

	rec, err := numericFields(m[1:7])
	if err != nil {
		return record.Record{}, err
	}

	rec.Host = "thread_" + m[7]
	rec.Daemon = m[8]
	rec.Message = m[9]
	return rec, nil
}

// postgresParser handles the PostgreSQL server log.
type postgresParser struct{}

var (
	postgresLinePattern  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\.\d+ \w+ \[\d+\] \S+@\S+ (LOG|ERROR|WARNING|FATAL|PANIC|DEBUG|INFO|NOTICE|STATEMENT):`)
	postgresFieldPattern = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2}) (\d{2}):(\d{2}):(\d{2})\.\d+ \w+ \[(\d+)\] (\S+)@(\S+) (\w+):\s*(.*)$`)
)

func (postgresParser) Name() string { return "PostgreSQL" }

func (postgresParser) Recognizes(line string) bool {
	return postgresLinePattern.MatchString(line)
}

func (postgresParser) Parse(line string) (record.Record, error) {
	m := postgresFieldPattern.FindStringSubmatch(line)
	if m == nil {
		return record.Record{}, fmt.Errorf("invalid PostgreSQL log line")
	}

	rec, err := numericFields(m[1:7])
	if err != nil {
		return record.Record{}, err
	}

	rec.Host = m[8] + "@" + m[9]
	rec.Daemon = m[10]
	rec.Message = m[11]
	return rec, nil
}

func numericFields(m []string) (record.Record, error) {
	var rec record.Record
	var err error
	for i, dst := range []*int{&rec.Year, &rec.Month, &rec.Day, &rec.Hour, &rec.Minute, &rec.Second} {
		if *dst, err = strconv.Atoi(m[i]); err != nil {
			return record.Record{}, err
		}
	}
	return rec, nil
}

// rsyslogParser handles RFC 5424 style lines with a leading ISO-8601
// timestamp, e.g. "2010-06-24T17:56:32.197716-04:00 host daemon message".
type rsyslogParser struct{}

var rsyslogStampPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T`)

func (rsyslogParser) Name() string { return "RSyslog" }

func (rsyslogParser) Recognizes(line string) bool {
	parts := strings.Fields(line)
	return len(parts) > 0 && rsyslogStampPattern.MatchString(parts[0])
}

func (rsyslogParser) Parse(line string) (record.Record, error) {
	parts := strings.Fields(line)
	if len(parts) < 3 {
		return record.Abnormal(line), nil
	}

	dateStr, timeStr, ok := strings.Cut(parts[0], "T")
	if !ok {
		return record.Record{}, fmt.Errorf("invalid timestamp %q", parts[0])
	}

	dateParts := strings.Split(dateStr, "-")
	if len(dateParts) != 3 {
		return record.Record{}, fmt.Errorf("invalid date %q", dateStr)
	}

	var rec record.Record
	var err error
	if rec.Year, err = strconv.Atoi(dateParts[0]); err != nil {
		return record.Record{}, err
	}
	if rec.Month, err = strconv.Atoi(dateParts[1]); err != nil {
		return record.Record{}, err
	}
	if rec.Day, err = strconv.Atoi(dateParts[2]); err != nil {
		return record.Record{}, err
	}

	// Drop the timezone offset and fractional seconds.
	if i := strings.IndexAny(timeStr, "-+"); i >= 0 {
		timeStr = timeStr[:i]
	}
	if i := strings.IndexByte(timeStr, '.'); i >= 0 {
		timeStr = timeStr[:i]
	}

	if rec.Hour, rec.Minute, rec.Second, err = parseClock(timeStr); err != nil {
		return record.Record{}, err
	}

	rec.Host = parts[1]
	rec.Daemon = parts[2]
	rec.Message = strings.Join(parts[3:], " ")
	return rec, nil
}

// journalParser handles journalctl's default short output, where the source
// token is a daemon name optionally followed by a bracketed PID and colon.
type journalParser struct{}

var journalDaemonPattern = regexp.MustCompile(`^[a-zA-Z0-9_\-\.]+(\[[0-9]+\])?:?$`)

func (journalParser) Name() string { return "Journalctl" }

func (journalParser) Recognizes(line string) bool {
	parts := strings.Fields(line)
	if len(parts) < 5 {
		return false
	}
	return monthPattern.MatchString(parts[0]) &&
		dayPattern.MatchString(parts[1]) &&
		timePattern.MatchString(parts[2]) &&
		journalDaemonPattern.MatchString(parts[4])
}

func (journalParser) Parse(line string) (record.Record, error) {
	return parseSyslogFamily(line, true)
}

// apacheCombinedParser handles the Apache combined access log format.
type apacheCombinedParser struct{}

var (
	apacheCombinedLinePattern  = regexp.MustCompile(`^\S+ \S+ \S+ \[\d{2}/\w{3}/\d{4}:\d{2}:\d{2}:\d{2} [+-]\d{4}\] "\S+ \S+ \S+" \d+ (?:\d+|-) "[^"]*" "[^"]*"$`)
	apacheCombinedFieldPattern = regexp.MustCompile(`^(\S+) (\S+) (\S+) \[(\d{2})/(\w{3})/(\d{4}):(\d{2}):(\d{2}):(\d{2}) ([+-]\d{4})\] "([^"]+)" (\d+) (\S+) "([^"]*)" "([^"]*)"`)
)

func (apacheCombinedParser) Name() string { return "ApacheCombined" }

func (apacheCombinedParser) Recognizes(line string) bool {
	return apacheCombinedLinePattern.MatchString(line)
}

func (apacheCombinedParser) Parse(line string) (record.Record, error) {
	m := apacheCombinedFieldPattern.FindStringSubmatch(line)
	if m == nil {
		return record.Record{}, fmt.Errorf("invalid Apache combined log line")
	}

	rec, err := apacheFields(m)
	if err != nil {
		return record.Record{}, err
	}

	rec.Message = fmt.Sprintf("%s %s %s \"%s\" \"%s\"", m[11], m[12], m[13], m[14], m[15])
	return rec, nil
}

// apacheCommonParser handles the Apache common access log format.
type apacheCommonParser struct{}

var (
	apacheCommonLinePattern  = regexp.MustCompile(`^\S+ \S+ \S+ \[\d{2}/\w{3}/\d{4}:\d{2}:\d{2}:\d{2} [+-]\d{4}\] "\S+ \S+ \S+" \d+ (?:\d+|-)$`)
	apacheCommonFieldPattern = regexp.MustCompile(`^(\S+) (\S+) (\S+) \[(\d{2})/(\w{3})/(\d{4}):(\d{2}):(\d{2}):(\d{2}) ([+-]\d{4})\] "([^"]+)" (\d+) (\S+)`)
)

func (apacheCommonParser) Name() string { return "ApacheCommon" }

func (apacheCommonParser) Recognizes(line string) bool {
	return apacheCommonLinePattern.MatchString(line)
}

func (apacheCommonParser) Parse(line string) (record.Record, error) {
	m := apacheCommonFieldPattern.FindStringSubmatch(line)
	if m == nil {
		return record.Record{}, fmt.Errorf("invalid Apache common log line")
	}

	rec, err := apacheFields(m)
	if err != nil {
		return record.Record{}, err
	}

	rec.Message = fmt.Sprintf("%s %s %s", m[11], m[12], m[13])
	return rec, nil
}

// apacheFields fills the shared leading fields of both Apache formats:
// client IP as host, request method as daemon, bracketed timestamp as date.
func apacheFields(m []string) (record.Record, error) {
	var rec record.Record
	var err error

	if rec.Day, err = strconv.Atoi(m[4]); err != nil {
		return record.Record{}, err
	}
	if rec.Month, err = monthNumber(m[5]); err != nil {
		return record.Record{}, err
	}
	if rec.Year, err = strconv.Atoi(m[6]); err != nil {
		return record.Record{}, err
	}
	if rec.Hour, err = strconv.Atoi(m[7]); err != nil {
		return record.Record{}, err
	}
	if rec.Minute, err = strconv.Atoi(m[8]); err != nil {
		return record.Record{}, err
	}
	if rec.Second, err = strconv.Atoi(m[9]); err != nil {
		return record.Record{}, err
	}

	rec.Host = m[1]
	rec.Daemon = firstWord(m[11], "HTTP")
	return rec, nil
}

// syslogParser handles the classic "Mon DD HH:MM:SS host daemon message"
// format. Lines that look like authentication-log lines are left for
// secureParser.
type syslogParser struct{}

func (syslogParser) Name() string { return "Syslog" }

func (syslogParser) Recognizes(line string) bool {
	parts := strings.Fields(line)
	if len(parts) < 5 {
		return false
	}
	return monthPattern.MatchString(parts[0]) &&
		dayPattern.MatchString(parts[1]) &&
		timePattern.MatchString(parts[2]) &&
		!strings.HasPrefix(parts[4], "pam_") &&
		!strings.HasPrefix(parts[3], "sshd[")
}

func (syslogParser) Parse(line string) (record.Record, error) {
	return parseSyslogFamily(line, false)
}

// secureParser handles authentication logs, which share the classic syslog
// shape but carry a PAM module or sshd-with-pid source token.
type secureParser struct{}

func (secureParser) Name() string { return "SecureLog" }

func (secureParser) Recognizes(line string) bool {
	parts := strings.Fields(line)
	if len(parts) < 6 {
		return false
	}
	return dayPattern.MatchString(parts[1]) &&
		timePattern.MatchString(parts[2]) &&
		(strings.HasPrefix(parts[5], "pam_") || strings.HasPrefix(parts[4], "sshd["))
}

func (secureParser) Parse(line string) (record.Record, error) {
	return parseSyslogFamily(line, false)
}

// parseSyslogFamily parses the shared "Mon DD HH:MM:SS host daemon message"
// shape. The year is not present in the line, so the current year is
// assumed. When trimDaemonColon is set, trailing colons are stripped from
// the daemon token (journalctl writes "systemd[1]:" style sources).
func parseSyslogFamily(line string, trimDaemonColon bool) (record.Record, error) {
	parts := strings.Fields(line)
	if len(parts) < 5 {
		return record.Abnormal(line), nil
	}

	hour, minute, second, err := parseClock(parts[2])
	if err != nil {
		return record.Record{}, err
	}

	month, err := monthNumber(parts[0])
	if err != nil {
		return record.Record{}, err
	}

	day, err := strconv.Atoi(parts[1])
	if err != nil {
		return record.Record{}, err
	}

	daemon := parts[4]
	if trimDaemonColon {
		daemon = strings.TrimRight(daemon, ":")
	}

	return record.Record{
		Year:    time.Now().Year(),
		Month:   month,
		Day:     day,
		Hour:    hour,
		Minute:  minute,
		Second:  second,
		Host:    parts[3],
		Daemon:  daemon,
		Message: strings.Join(parts[5:], " "),
	}, nil
}

// rawParser is the last-resort fallback: any non-blank line is accepted and
// degraded to a sentinel record carrying the raw text.
type rawParser struct{}

func (rawParser) Name() string { return "Raw" }

func (rawParser) Recognizes(line string) bool {
	return strings.TrimSpace(line) != ""
}

func (rawParser) Parse(line string) (record.Record, error) {
	return record.Abnormal(line), nil
}
