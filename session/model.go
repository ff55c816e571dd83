package session

import (
	"bytes"
	"encoding/binary"
	"sort"
	"time"
)

// Session is the application state carried round-trip through a cookie.
//
// The codec only reads ExpiresAt; Values is an opaque key to bytes map owned by the
// application. A Session is not safe for concurrent mutation.
type Session struct {
	ExpiresAt time.Time
	Values    map[string][]byte
}

// New returns an empty session that expires at expiresAt.
func New(expiresAt time.Time) *Session {
	return &Session{
		ExpiresAt: expiresAt.UTC(),
		Values:    make(map[string][]byte),
	}
}

// GetBytes returns the bytes stored under key.
func (s *Session) GetBytes(key string) ([]byte, bool) {
	if s == nil || s.Values == nil {
		return nil, false
	}
	v, ok := s.Values[key]
	return v, ok
}

// InsertBytes stores value under key and returns the previous value, if any.
func (s *Session) InsertBytes(key string, value []byte) ([]byte, bool) {
	if s.Values == nil {
		s.Values = make(map[string][]byte)
	}
	prev, ok := s.Values[key]
	s.Values[key] = append([]byte{}, value...)
	return prev, ok
}

// RemoveBytes deletes key and returns the removed value, if any.
func (s *Session) RemoveBytes(key string) ([]byte, bool) {
	if s == nil || s.Values == nil {
		return nil, false
	}
	prev, ok := s.Values[key]
	delete(s.Values, key)
	return prev, ok
}

// ContainsKey reports whether key is present.
func (s *Session) ContainsKey(key string) bool {
	_, ok := s.GetBytes(key)
	return ok
}

// Clear removes every value. ExpiresAt is left untouched.
func (s *Session) Clear() {
	if s == nil {
		return
	}
	for k := range s.Values {
		delete(s.Values, k)
	}
}

// Len returns the number of stored values.
func (s *Session) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Values)
}

// Keys returns the stored keys in ascending order.
func (s *Session) Keys() []string {
	if s == nil {
		return nil
	}
	keys := make([]string, 0, len(s.Values))
	for k := range s.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GetString returns the value under key as a string.
func (s *Session) GetString(key string) (string, bool) {
	v, ok := s.GetBytes(key)
	if !ok {
		return "", false
	}
	return string(v), true
}

// InsertString stores a string value under key.
func (s *Session) InsertString(key, value string) {
	s.InsertBytes(key, []byte(value))
}

// GetInt64 returns the value under key decoded as a signed varint.
func (s *Session) GetInt64(key string) (int64, bool) {
	v, ok := s.GetBytes(key)
	if !ok {
		return 0, false
	}
	n, read := binary.Varint(v)
	if read <= 0 || read != len(v) {
		return 0, false
	}
	return n, true
}

// InsertInt64 stores n under key as a signed varint.
func (s *Session) InsertInt64(key string, n int64) {
	buf := make([]byte, binary.MaxVarintLen64)
	s.InsertBytes(key, buf[:binary.PutVarint(buf, n)])
}

// Expired reports whether the session is no longer valid at now.
// A session is valid only while now is strictly before ExpiresAt.
func (s *Session) Expired(now time.Time) bool {
	return s == nil || !now.Before(s.ExpiresAt)
}

// Clone returns a deep copy of s.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := &Session{
		ExpiresAt: s.ExpiresAt,
		Values:    make(map[string][]byte, len(s.Values)),
	}
	for k, v := range s.Values {
		out.Values[k] = append([]byte(nil), v...)
	}
	return out
}

// Equal reports whether two sessions carry the same expiry instant and values.
// A nil Values map equals an empty one.
func (s *Session) Equal(other *Session) bool {
	if s == nil || other == nil {
		return s == other
	}
	if !s.ExpiresAt.Equal(other.ExpiresAt) || len(s.Values) != len(other.Values) {
		return false
	}
	for k, v := range s.Values {
		ov, ok := other.Values[k]
		if !ok || !bytes.Equal(v, ov) {
			return false
		}
	}
	return true
}
