package session

import (
	"bytes"
	"errors"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

const msgpackFormatVersionCurrent = 1

// Msgpack serializes a session as the msgpack array [version, expires, values].
//
// Values are written as a map with keys in ascending order so the output is deterministic.
type Msgpack struct{}

func (Msgpack) Name() string { return EncodingMsgpack }

func (Msgpack) Encode(s *Session) ([]byte, error) {
	if s == nil {
		return nil, errors.New("nil session")
	}

	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)

	if err := enc.EncodeArrayLen(3); err != nil {
		return nil, err
	}
	if err := enc.EncodeUint8(msgpackFormatVersionCurrent); err != nil {
		return nil, err
	}
	if err := enc.EncodeTime(s.ExpiresAt.UTC()); err != nil {
		return nil, err
	}

	keys := s.Keys()
	if err := enc.EncodeMapLen(len(keys)); err != nil {
		return nil, err
	}
	for _, k := range keys {
		if err := enc.EncodeString(k); err != nil {
			return nil, err
		}
		if err := enc.EncodeBytes(s.Values[k]); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}

func (Msgpack) ExpiresAt(data []byte) (time.Time, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	return decodeMsgpackHeader(dec)
}

func (Msgpack) Decode(data []byte) (*Session, error) {
	reader := bytes.NewReader(data)
	dec := msgpack.NewDecoder(reader)

	expiresAt, err := decodeMsgpackHeader(dec)
	if err != nil {
		return nil, err
	}

	n, err := dec.DecodeMapLen()
	if err != nil {
		return nil, malformed("invalid values map")
	}
	if n < 0 {
		n = 0
	}
	// each entry needs at least one byte for the key and one for the value
	if n > reader.Len()/2 {
		return nil, malformed("entry count exceeds payload")
	}

	s := &Session{
		ExpiresAt: expiresAt,
		Values:    make(map[string][]byte, n),
	}

	var prev string
	for i := 0; i < n; i++ {
		k, err := dec.DecodeString()
		if err != nil {
			return nil, malformed("invalid key")
		}
		v, err := dec.DecodeBytes()
		if err != nil {
			return nil, malformed("invalid value")
		}
		if i > 0 && k <= prev {
			return nil, malformed("keys not strictly ascending")
		}
		prev = k
		if v == nil {
			v = []byte{}
		}
		s.Values[k] = v
	}

	if reader.Len() != 0 {
		return nil, malformed("trailing bytes")
	}

	return s, nil
}

func decodeMsgpackHeader(dec *msgpack.Decoder) (time.Time, error) {
	n, err := dec.DecodeArrayLen()
	if err != nil || n != 3 {
		return time.Time{}, malformed("invalid envelope")
	}
	version, err := dec.DecodeUint8()
	if err != nil || version != msgpackFormatVersionCurrent {
		return time.Time{}, malformed("unsupported format version")
	}
	expiresAt, err := dec.DecodeTime()
	if err != nil {
		return time.Time{}, malformed("invalid expiry")
	}
	return expiresAt.UTC(), nil
}
