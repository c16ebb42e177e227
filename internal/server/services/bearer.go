package services

import (
	"encoding/json"
	"errors"
	"net/url"
)

// ErrMalformedBearer is returned when a session value is not a
// {"id": <int>, "token": "<branca>"} object.
var ErrMalformedBearer = errors.New("malformed session bearer")

// ParseBearer decodes a session cookie or metadata value: the JSON object
// {"id": <int>, "token": "<branca>"}, optionally percent-encoded.
func ParseBearer(value string) (int64, string, error) {
	if unescaped, err := url.QueryUnescape(value); err == nil {
		value = unescaped
	}

	var bearer struct {
		ID    *int64  `json:"id"`
		Token *string `json:"token"`
	}
	if err := json.Unmarshal([]byte(value), &bearer); err != nil {
		return 0, "", ErrMalformedBearer
	}
	if bearer.ID == nil || bearer.Token == nil {
		return 0, "", ErrMalformedBearer
	}

	return *bearer.ID, *bearer.Token, nil
}

// Encode renders the token as a percent-encoded JSON bearer. Cookie values
// may not contain double quotes, so the JSON is escaped.
func (t *SessionToken) Encode() string {
	b, _ := json.Marshal(t)
	return url.QueryEscape(string(b))
}
