package decision

import (
	"strconv"
	"strings"
)

// ParseDecision reads the model's line-oriented answer. Tolerant by
// design: unknown lines are ignored, an unrecognized action falls back to
// a fuzzy keyword scan and finally to ignore, malformed confidence
// becomes the low default, and a completely unparseable response yields
// Default("parse failure"). knownAction reports whether a value is a
// recognized action or tool name.
func ParseDecision(raw string, knownAction func(string) bool) Decision {
	d := Decision{Confidence: -1}
	sawAction := false

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		key, value, ok := splitField(line)
		if !ok {
			continue
		}
		switch key {
		case "ACTION":
			d.Action = strings.ToLower(value)
			sawAction = true
		case "CONFIDENCE":
			if f, err := strconv.ParseFloat(value, 64); err == nil {
				d.Confidence = f
			}
		case "REASONING":
			d.Reasoning = value
		case "EMOJI":
			d.Emoji = value
		case "STATUS":
			d.Status = strings.ToLower(value)
		case "TARGET_USER":
			d.TargetUser = strings.TrimPrefix(value, "@")
		}
	}

	if !sawAction || !knownAction(d.Action) {
		if fuzzy := fuzzyAction(raw); fuzzy != "" && knownAction(fuzzy) {
			d.Action = fuzzy
			sawAction = true
		}
	}
	if !sawAction || !knownAction(d.Action) {
		return Default("parse failure")
	}

	if d.Confidence < 0 || d.Confidence > 1 {
		d.Confidence = defaultConfidence
	}
	if d.Reasoning == "" {
		d.Reasoning = "no reasoning given"
	}
	return d
}

// splitField parses "KEY: value" lines, case-insensitive on the key.
func splitField(line string) (key, value string, ok bool) {
	idx := strings.IndexByte(line, ':')
	if idx <= 0 {
		return "", "", false
	}
	key = strings.ToUpper(strings.TrimSpace(line[:idx]))
	value = strings.TrimSpace(line[idx+1:])
	switch key {
	case "ACTION", "CONFIDENCE", "REASONING", "EMOJI", "STATUS", "TARGET_USER":
		return key, value, value != ""
	}
	return "", "", false
}

// fuzzyAction scans free-form model output for action-ish keywords, a
// last resort against model drift before giving up entirely.
func fuzzyAction(raw string) string {
	lower := strings.ToLower(raw)
	switch {
	case strings.Contains(lower, "profile"):
		return "profile_lookup"
	case strings.Contains(lower, "reply"):
		return ActionReply
	case strings.Contains(lower, "respond"):
		return ActionRespond
	case strings.Contains(lower, "react"):
		return ActionReact
	case strings.Contains(lower, "status"):
		return ActionStatusChange
	case strings.Contains(lower, "ignore"):
		return ActionIgnore
	}
	return ""
}

// Validate is the post-parse safety pass for a terminal decision: tool
// names are pushed back to ignore (tools enrich context, they are never
// terminal), a react without an emoji and a status_change without a
// recognized status fall back rather than crash the action layer.
func Validate(d Decision, isTool func(string) bool) Decision {
	if isTool != nil && isTool(d.Action) {
		return Default("tool action " + d.Action + " is not terminal")
	}
	switch d.Action {
	case ActionReact:
		if d.Emoji == "" {
			return Default("react without emoji")
		}
	case ActionStatusChange:
		if !knownStatuses[d.Status] {
			return Default("unrecognized status " + d.Status)
		}
	}
	return d
}
