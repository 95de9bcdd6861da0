package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// ProfileInput is the body of a create-or-update request. Social links are
// flat fields, as the clients send them.
type ProfileInput struct {
	Company        *string         `json:"company"`
	Website        string          `json:"website"`
	Location       *string         `json:"location"`
	Bio            *string         `json:"bio"`
	Status         string          `json:"status"`
	GitHubUsername *string         `json:"githubusername"`
	Skills         json.RawMessage `json:"skills"`
	YouTube        string          `json:"youtube"`
	Twitter        string          `json:"twitter"`
	Facebook       string          `json:"facebook"`
	LinkedIn       string          `json:"linkedin"`
	Instagram      string          `json:"instagram"`
}

type ExperienceInput struct {
	Title       string `json:"title"`
	Company     string `json:"company"`
	Location    string `json:"location"`
	From        string `json:"from"`
	To          string `json:"to"`
	Current     bool   `json:"current"`
	Description string `json:"description"`
}

type EducationInput struct {
	School       string `json:"school"`
	Degree       string `json:"degree"`
	FieldOfStudy string `json:"fieldofstudy"`
	From         string `json:"from"`
	To           string `json:"to"`
	Current      bool   `json:"current"`
	Description  string `json:"description"`
}

var errSkillsType = errors.New("skills must be an array of strings or a comma separated string")

// ParseSkills accepts ["a","b"] or "a, b". Elements are trimmed and empty
// ones dropped. Null or missing input yields an empty list.
func ParseSkills(raw json.RawMessage) ([]string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []string{}, nil
	}
	var parts []string
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, errSkillsType
		}
		parts = strings.Split(s, ",")
	case '[':
		if err := json.Unmarshal(raw, &parts); err != nil {
			return nil, errSkillsType
		}
	default:
		return nil, errSkillsType
	}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out, nil
}

var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04", "2006-01-02"}

// parseDate reads the formats date inputs and JSON clients produce.
// Empty input returns (nil, nil).
func parseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var lastErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			t = t.UTC()
			return &t, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// dateRange validates from/to: from is required and must precede to.
func dateRange(fe *fieldErrors, from, to string) (time.Time, *time.Time) {
	const fromMsg = "From date is required and needs to be from the past"
	f, err := parseDate(from)
	if err != nil || f == nil {
		fe.add("from", fromMsg)
		return time.Time{}, nil
	}
	t, err := parseDate(to)
	if err != nil {
		fe.add("to", "To date is invalid")
		return *f, nil
	}
	if t != nil && !f.Before(*t) {
		fe.add("from", fromMsg)
	}
	return *f, t
}

func required(fe *fieldErrors, param, value, msg string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		fe.add(param, msg)
	}
	return value
}
