package tomcat

import (
	"strconv"
	"strings"
)

// Application is one row of the Manager list command.
type Application struct {
	Path     string `json:"path"`
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
	Name     string `json:"name"`
}

// ServerInfo maps the field names printed by the serverinfo command
// ("Tomcat Version", "OS Name", "JVM Version", ...) to their values.
type ServerInfo map[string]string

// SessionBucket is one line of the idle-time histogram printed by the
// sessions command, e.g. "1 - <2 minutes: 3 sessions". It counts sessions
// idle for at least Lower and less than Upper minutes. Upper is 0 for the
// open-ended last bucket.
type SessionBucket struct {
	Lower int `json:"lower"`
	Upper int `json:"upper"`
	Count int `json:"count"`

	// Range is the bucket label as printed, e.g. "<1", "1 - <2", ">30".
	Range string `json:"range"`

	// Unlimited marks sessions that never expire; they have no idle bounds.
	Unlimited bool `json:"unlimited,omitempty"`
}

// SessionStats is the parsed reply of the sessions command.
type SessionStats struct {
	Path string `json:"path"`
	// DefaultMaxInactiveMinutes is the application's default session timeout.
	DefaultMaxInactiveMinutes int             `json:"defaultMaxInactiveMinutes"`
	TotalSessions             int             `json:"totalSessions"`
	Buckets                   []SessionBucket `json:"buckets"`
}

// JMXBean is one MBean from a JMX proxy query.
type JMXBean struct {
	Name       string            `json:"name"`
	Attributes map[string]string `json:"attributes"`
}

// splitReply checks the status line of a text interface reply and returns the
// remaining non-empty lines. A "FAIL - " status becomes a *RequestError.
func splitReply(endpoint, body string) (status string, lines []string, err error) {
	body = strings.ReplaceAll(body, "\r\n", "\n")
	all := strings.Split(body, "\n")

	first := strings.TrimSpace(all[0])
	switch {
	case first == "":
		return "", nil, newFormatError(endpoint, "empty response body")
	case strings.HasPrefix(first, replyFail):
		return "", nil, &RequestError{Endpoint: endpoint, StatusCode: 200, Message: first}
	case strings.HasPrefix(first, replyError):
		return "", nil, &RequestError{Endpoint: endpoint, StatusCode: 200, Message: first}
	case !strings.HasPrefix(first, replyOK):
		return "", nil, newFormatError(endpoint, "missing %q status line, got %q", strings.TrimSpace(replyOK), truncate(first, 80))
	}

	for _, line := range all[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, strings.TrimRight(line, " \t"))
	}
	return first, lines, nil
}

// parseList parses "path:status:sessions:name" lines.
func parseList(endpoint, body string) ([]Application, error) {
	_, lines, err := splitReply(endpoint, body)
	if err != nil {
		return nil, err
	}

	apps := make([]Application, 0, len(lines))
	for _, line := range lines {
		parts := strings.SplitN(line, ":", 4)
		if len(parts) != 4 {
			return nil, newFormatError(endpoint, "malformed application line %q", truncate(line, 80))
		}
		sessions, err := strconv.Atoi(strings.TrimSpace(parts[2]))
		if err != nil {
			return nil, newFormatError(endpoint, "invalid session count in line %q", truncate(line, 80))
		}
		apps = append(apps, Application{
			Path:     parts[0],
			Status:   parts[1],
			Sessions: sessions,
			Name:     parts[3],
		})
	}
	return apps, nil
}

// parseServerInfo parses "Key: value" lines. Keys are kept exactly as
// printed; values lose surrounding whitespace and the square brackets newer
// Tomcat versions put around them.
func parseServerInfo(endpoint, body string) (ServerInfo, error) {
	_, lines, err := splitReply(endpoint, body)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, newFormatError(endpoint, "no server info fields")
	}

	info := make(ServerInfo, len(lines))
	for _, line := range lines {
		key, value, ok := strings.Cut(line, ":")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, newFormatError(endpoint, "malformed server info line %q", truncate(line, 80))
		}
		info[key] = unbracket(strings.TrimSpace(value))
	}
	return info, nil
}

// parseSessions parses the sessions command reply:
//
//	OK - Session information for application at context path [/examples]
//	Default maximum session inactive interval [30] minutes
//	[<1] minutes: [2] sessions
//	[1 - <2] minutes: [1] sessions
func parseSessions(endpoint, path, body string) (*SessionStats, error) {
	_, lines, err := splitReply(endpoint, body)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, newFormatError(endpoint, "missing default session timeout line")
	}

	stats := &SessionStats{Path: path, Buckets: []SessionBucket{}}

	header := stripBrackets(lines[0])
	if !strings.HasPrefix(header, "Default maximum session inactive interval") {
		return nil, newFormatError(endpoint, "unexpected session header %q", truncate(lines[0], 80))
	}
	fields := strings.Fields(header)
	if len(fields) < 2 {
		return nil, newFormatError(endpoint, "unexpected session header %q", truncate(lines[0], 80))
	}
	maxInactive, err := strconv.Atoi(fields[len(fields)-2])
	if err != nil {
		return nil, newFormatError(endpoint, "invalid session timeout in %q", truncate(lines[0], 80))
	}
	stats.DefaultMaxInactiveMinutes = maxInactive

	for _, line := range lines[1:] {
		clean := stripBrackets(line)
		var bucket SessionBucket
		var rest string
		if after, ok := strings.CutPrefix(clean, "Unlimited time:"); ok {
			bucket = SessionBucket{Range: "Unlimited", Unlimited: true}
			rest = after
		} else {
			rng, after, ok := strings.Cut(clean, " minutes:")
			if !ok {
				return nil, newFormatError(endpoint, "malformed session line %q", truncate(line, 80))
			}
			bucket.Range = strings.TrimSpace(rng)
			bucket.Lower, bucket.Upper, ok = parseBucketRange(bucket.Range)
			if !ok {
				return nil, newFormatError(endpoint, "invalid idle time range in %q", truncate(line, 80))
			}
			rest = after
		}

		countFields := strings.Fields(rest)
		if len(countFields) == 0 {
			return nil, newFormatError(endpoint, "missing session count in %q", truncate(line, 80))
		}
		count, err := strconv.Atoi(countFields[0])
		if err != nil {
			return nil, newFormatError(endpoint, "invalid session count in %q", truncate(line, 80))
		}
		bucket.Count = count
		stats.Buckets = append(stats.Buckets, bucket)
		stats.TotalSessions += count
	}
	return stats, nil
}

// parseBucketRange reads the bounds of "<1", "1 - <2", ">30" and ">=30".
func parseBucketRange(rng string) (lower, upper int, ok bool) {
	atoi := func(s string) (int, bool) {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		return n, err == nil && n >= 0
	}

	switch {
	case strings.HasPrefix(rng, ">="):
		lower, ok = atoi(rng[2:])
		return lower, 0, ok
	case strings.HasPrefix(rng, ">"):
		lower, ok = atoi(rng[1:])
		return lower, 0, ok
	case strings.HasPrefix(rng, "<"):
		upper, ok = atoi(rng[1:])
		return 0, upper, ok && upper > 0
	}

	from, to, found := strings.Cut(rng, "-")
	if !found {
		return 0, 0, false
	}
	to = strings.TrimSpace(to)
	if !strings.HasPrefix(to, "<") {
		return 0, 0, false
	}
	if lower, ok = atoi(from); !ok {
		return 0, 0, false
	}
	if upper, ok = atoi(to[1:]); !ok || upper <= lower {
		return 0, 0, false
	}
	return lower, upper, true
}

// checkCommand verifies the confirmation of a mutating command. Tomcat 7
// prints the context path bare, later versions wrap it in square brackets.
func checkCommand(endpoint, body, verb, path string) error {
	status, _, err := splitReply(endpoint, body)
	if err != nil {
		return err
	}
	prefix := replyOK + verb + " application at context path "
	if status == prefix+path || status == prefix+"["+path+"]" {
		return nil
	}
	return newFormatError(endpoint, "unexpected confirmation %q", truncate(status, 120))
}

// parseJMXQuery parses JMX proxy query output: blank-line separated blocks
// starting with "Name: ". Lines without a key continue the previous value.
func parseJMXQuery(endpoint, body string) ([]JMXBean, error) {
	body = strings.ReplaceAll(body, "\r\n", "\n")
	lines := strings.Split(body, "\n")

	first := strings.TrimSpace(lines[0])
	switch {
	case first == "":
		return nil, newFormatError(endpoint, "empty response body")
	case strings.HasPrefix(first, replyError), strings.HasPrefix(first, replyFail):
		return nil, &RequestError{Endpoint: endpoint, StatusCode: 200, Message: first}
	case !strings.HasPrefix(first, replyOK):
		return nil, newFormatError(endpoint, "missing %q status line, got %q", strings.TrimSpace(replyOK), truncate(first, 80))
	}

	beans := []JMXBean{}
	var current *JMXBean
	var lastKey string

	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			current, lastKey = nil, ""
			continue
		}
		key, value, ok := strings.Cut(line, ": ")
		if ok && key == "Name" {
			beans = append(beans, JMXBean{Name: value, Attributes: map[string]string{}})
			current = &beans[len(beans)-1]
			lastKey = ""
			continue
		}
		if current == nil {
			return nil, newFormatError(endpoint, "attribute line outside of an MBean block: %q", truncate(line, 80))
		}
		if ok && !strings.HasPrefix(line, " ") && !strings.HasPrefix(line, "\t") {
			current.Attributes[key] = value
			lastKey = key
			continue
		}
		if lastKey == "" {
			return nil, newFormatError(endpoint, "malformed MBean line %q", truncate(line, 80))
		}
		current.Attributes[lastKey] += "\n" + strings.TrimSpace(line)
	}
	return beans, nil
}

// parseJMXGet parses "OK - Attribute get 'bean' - att = value".
func parseJMXGet(endpoint, body string) (string, error) {
	first := strings.TrimSpace(strings.SplitN(strings.ReplaceAll(body, "\r\n", "\n"), "\n", 2)[0])
	switch {
	case first == "":
		return "", newFormatError(endpoint, "empty response body")
	case strings.HasPrefix(first, replyError), strings.HasPrefix(first, replyFail):
		return "", &RequestError{Endpoint: endpoint, StatusCode: 200, Message: first}
	case !strings.HasPrefix(first, replyOK+"Attribute get"):
		return "", newFormatError(endpoint, "unexpected JMX get reply %q", truncate(first, 80))
	}
	idx := strings.Index(first, " = ")
	if idx < 0 {
		return "", newFormatError(endpoint, "missing attribute value in %q", truncate(first, 80))
	}
	return first[idx+len(" = "):], nil
}

func stripBrackets(s string) string {
	return strings.NewReplacer("[", "", "]", "").Replace(s)
}

func unbracket(s string) string {
	if len(s) >= 2 && s[0] == '[' && s[len(s)-1] == ']' {
		return s[1 : len(s)-1]
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
