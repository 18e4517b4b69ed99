package usecase

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	errNoJSONObject      = errors.New("no json object in oracle output")
	trailingCommaPattern = regexp.MustCompile(`,\s*([}\]])`)
)

// salvageJSONObject isolates the outermost JSON object in free-form oracle text and drops
// trailing commas before a closing brace or bracket. It never fixes anything else.
func salvageJSONObject(raw string) (string, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return "", errNoJSONObject
	}
	return trailingCommaPattern.ReplaceAllString(raw[start:end+1], "$1"), nil
}

// decodeOracleObject salvages and decodes an oracle reply into a generic object.
func decodeOracleObject(raw string) (map[string]any, error) {
	object, err := salvageJSONObject(raw)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(object), &out); err != nil {
		return nil, err
	}
	if out == nil {
		return nil, errNoJSONObject
	}
	return out, nil
}

func truncateRunes(text string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return string(runes[:limit])
}
