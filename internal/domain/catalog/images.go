package catalog

import (
	"bytes"
	"encoding/json"
	"strings"
)

// ParseImageList normalises the image field the API returns in several shapes:
// a JSON array, a string holding a JSON-encoded array, a single plain URL, or
// null. A string that does not parse as JSON is kept as a one-element list.
// Blank entries are dropped.
func ParseImageList(raw json.RawMessage) []string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []string{}
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return compact(list)
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return []string{}
	}
	return ParseImageString(s)
}

// ParseImageString handles the string form on its own.
func ParseImageString(s string) []string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return []string{}
	}
	var list []string
	if err := json.Unmarshal([]byte(trimmed), &list); err == nil {
		return compact(list)
	}
	var single string
	if err := json.Unmarshal([]byte(trimmed), &single); err == nil {
		return compact([]string{single})
	}
	return []string{s}
}

func compact(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if strings.TrimSpace(v) == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}

// ImageList decodes with ParseImageList so callers only ever see a slice.
type ImageList []string

func (l *ImageList) UnmarshalJSON(data []byte) error {
	*l = ParseImageList(data)
	return nil
}

// First returns the first image or "".
func (l ImageList) First() string {
	if len(l) == 0 {
		return ""
	}
	return l[0]
}
