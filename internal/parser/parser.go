package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xHacka/logstat/internal/models"
)

// Parser converts a raw log line into a parse result.
type Parser interface {
	Parse(line string) models.Result
}

// Methods is the set of request methods the combined grammar accepts.
var Methods = []string{"GET", "POST", "HEAD", "PUT", "DELETE", "CONNECT", "OPTIONS", "TRACE", "PATCH"}

// TimeLayout is the nginx $time_local layout. Month names are English and
// capitalized.
const TimeLayout = "02/Jan/2006:15:04:05 -0700"

// Combined parses the Apache/Nginx "combined" format:
//
//	<address> - <user> [<time>] "<method> <resource> <protocol>" <status> <bytes> "<referer>" "<user agent>"
//
// Anything after the user agent is ignored.
type Combined struct {
	re *regexp.Regexp
}

// months are matched case-sensitively; time.Parse alone would accept "may".
var months = []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

func NewCombined() *Combined {
	timestamp := `\d{2}/(?:` + strings.Join(months, "|") + `)/\d{4}:\d{2}:\d{2}:\d{2} [+-]\d{4}`
	method := strings.Join(Methods, "|")
	return &Combined{
		re: regexp.MustCompile(`^(\S+) - (\S+) \[(` + timestamp + `)\] "(` + method + `) (\S+) ([^"]+)" ([1-5]\d{2}) (\d+|-) "([^"]*)" "([^"]*)"`),
	}
}

func (p *Combined) Parse(line string) models.Result {
	m := p.re.FindStringSubmatch(line)
	if m == nil {
		return models.Ignored()
	}

	ts, err := time.Parse(TimeLayout, m[3])
	if err != nil {
		return models.Ignored()
	}
	status, err := strconv.Atoi(m[7])
	if err != nil {
		return models.Ignored()
	}
	var bytes int64
	if m[8] != "-" {
		if bytes, err = strconv.ParseInt(m[8], 10, 64); err != nil {
			return models.Ignored()
		}
	}

	return models.Parsed(models.LogRecord{
		RemoteAddr: m[1],
		RemoteUser: m[2],
		TimeLocal:  ts,
		Method:     m[4],
		Resource:   m[5],
		Protocol:   m[6],
		Status:     status,
		BytesSent:  bytes,
		Referer:    dash(m[9]),
		UserAgent:  dash(m[10]),
	})
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
