package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"unicode"
)

// ErrMalformedSession is returned when a stored session is not a JSON object.
var ErrMalformedSession = errors.New("malformed session")

// Session is the identity the backend issued at login. Only name, email and
// avatar are interpreted; every other field is carried through untouched.
type Session struct {
	Name   string
	Email  string
	Avatar string

	// Extra holds the opaque fields of the login payload.
	Extra map[string]json.RawMessage

	// known keeps the received values of name, email and avatar so that an
	// unchanged session encodes back to what was stored.
	known map[string]json.RawMessage
}

var knownSessionKeys = map[string]struct{}{"name": {}, "email": {}, "avatar": {}}

// DecodeSession parses a stored session value. Anything other than a JSON
// object is reported as ErrMalformedSession.
func DecodeSession(data []byte) (Session, error) {
	var s Session
	if err := s.UnmarshalJSON(data); err != nil {
		return Session{}, err
	}
	return s, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Session) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return ErrMalformedSession
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return errors.Join(ErrMalformedSession, err)
	}

	out := Session{}
	for key, val := range raw {
		switch key {
		case "name", "email", "avatar":
			if out.known == nil {
				out.known = make(map[string]json.RawMessage, len(knownSessionKeys))
			}
			out.known[key] = append(json.RawMessage(nil), val...)
		}
		switch key {
		case "name":
			out.Name = decodeLooseString(val)
		case "email":
			out.Email = decodeLooseString(val)
		case "avatar":
			out.Avatar = decodeLooseString(val)
		default:
			if out.Extra == nil {
				out.Extra = make(map[string]json.RawMessage)
			}
			out.Extra[key] = append(json.RawMessage(nil), val...)
		}
	}
	*s = out
	return nil
}

// MarshalJSON implements json.Marshaler.
func (s Session) MarshalJSON() ([]byte, error) {
	obj := make(map[string]json.RawMessage, len(s.Extra)+3)
	for k, v := range s.Extra {
		if _, known := knownSessionKeys[k]; known {
			continue
		}
		obj[k] = v
	}
	// A field still holding its received value is written back verbatim;
	// an empty field that was never received stays absent.
	put := func(key, val string) error {
		if raw, ok := s.known[key]; ok && decodeLooseString(raw) == val {
			obj[key] = raw
			return nil
		}
		if val == "" {
			return nil
		}
		b, err := json.Marshal(val)
		if err != nil {
			return err
		}
		obj[key] = b
		return nil
	}
	for _, f := range []struct{ key, val string }{
		{"name", s.Name},
		{"email", s.Email},
		{"avatar", s.Avatar},
	} {
		if err := put(f.key, f.val); err != nil {
			return nil, err
		}
	}
	return json.Marshal(obj)
}

// decodeLooseString accepts a JSON string and ignores any other type.
func decodeLooseString(raw json.RawMessage) string {
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}
	return v
}

// Initials derives the avatar fallback shown when the session has no avatar.
func (s Session) Initials() string {
	return Initials(s.Name)
}

// Initials returns "U" for an empty name, the first two letters of a single
// word, or the first letters of the first two words, upper-cased.
func Initials(name string) string {
	parts := strings.Fields(name)
	switch len(parts) {
	case 0:
		return "U"
	case 1:
		r := []rune(parts[0])
		if len(r) > 2 {
			r = r[:2]
		}
		return strings.ToUpper(string(r))
	default:
		a := []rune(parts[0])[0]
		b := []rune(parts[1])[0]
		return string([]rune{unicode.ToUpper(a), unicode.ToUpper(b)})
	}
}
