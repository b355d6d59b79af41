// Package router decides between semantic and timestamp-anchored retrieval
// for a query. Timestamp detection runs an ordered list of (pattern, parse)
// pairs; clock-style patterns go first because they are the least ambiguous,
// so "4:32" is never misread by a looser pattern.
package router

import (
	"regexp"
	"strconv"
	"strings"
)

// Retrieval modes.
const (
	ModeSemantic  = "semantic"
	ModeTimestamp = "timestamp"
)

// Defaults applied when the caller leaves parameters unset.
const (
	DefaultTopK   = 6
	DefaultWindow = 1
)

// Route describes the retrieval strategy for one query.
type Route struct {
	Mode string

	// TimeSec and Window are set for timestamp mode.
	TimeSec float64
	Window  int

	// TopK is set for semantic mode.
	TopK int
}

// Options carries caller-provided retrieval parameters. TopK <= 0 and
// Window < 0 mean "use the default".
type Options struct {
	TopK   int
	Window int
}

type pattern struct {
	re    *regexp.Regexp
	parse func(groups []string) float64
}

// Patterns in priority order; the first match wins.
var patterns = []pattern{
	// H:MM:SS or M:SS clock style.
	{
		re: regexp.MustCompile(`\b(?:(\d{1,2}):)?(\d{1,2}):(\d{2})\b`),
		parse: func(g []string) float64 {
			return float64(atoi(g[1])*3600 + atoi(g[2])*60 + atoi(g[3]))
		},
	},
	// Compound units: 1h2m3s, 4m 32s, 90s and so on.
	{
		re: regexp.MustCompile(`\b(?:(\d+)\s*h(?:ours?)?\s*)?(?:(\d+)\s*m(?:in(?:ute)?s?)?\s*)?(?:(\d+)\s*s(?:ec(?:ond)?s?)?)\b`),
		parse: func(g []string) float64 {
			return float64(atoi(g[1])*3600 + atoi(g[2])*60 + atoi(g[3]))
		},
	},
	// Natural language: "4 minutes 32 seconds", seconds optional.
	{
		re: regexp.MustCompile(`\b(\d+)\s*min(?:ute)?s?\b(?:\s*(?:and\s*)?(\d+)\s*sec(?:ond)?s?\b)?`),
		parse: func(g []string) float64 {
			return float64(atoi(g[1])*60 + atoi(g[2]))
		},
	},
	// Bare seconds: "90 seconds".
	{
		re: regexp.MustCompile(`\b(\d+)\s*s(?:ec(?:ond)?s?)?\b`),
		parse: func(g []string) float64 {
			return float64(atoi(g[1]))
		},
	},
}

// RouteQuery picks the retrieval strategy for the query and resolves the
// effective parameters.
func RouteQuery(query string, opts Options) Route {
	if ts, ok := ParseTimestamp(query); ok {
		window := opts.Window
		if window < 0 {
			window = DefaultWindow
		}
		return Route{Mode: ModeTimestamp, TimeSec: ts, Window: window}
	}
	topK := opts.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	return Route{Mode: ModeSemantic, TopK: topK}
}

// ParseTimestamp extracts a timestamp from the query, returning it in
// seconds. The second return is false when no pattern matches.
func ParseTimestamp(query string) (float64, bool) {
	q := strings.ToLower(query)
	for _, p := range patterns {
		groups := p.re.FindStringSubmatch(q)
		if groups == nil {
			continue
		}
		if allEmpty(groups[1:]) {
			continue
		}
		return p.parse(groups), true
	}
	return 0, false
}

func allEmpty(groups []string) bool {
	for _, g := range groups {
		if g != "" {
			return false
		}
	}
	return true
}

func atoi(s string) int {
	if s == "" {
		return 0
	}
	n, _ := strconv.Atoi(s)
	return n
}
