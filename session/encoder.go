package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"time"
)

const (
	binaryFormatVersionCurrent = 1

	expiryFieldSize  = 12 // int64 seconds + uint32 nanoseconds
	maxNanoseconds   = 999_999_999
	binaryHeaderSize = 1 + expiryFieldSize

	// 9999-12-31T23:59:59Z, the last second RFC 3339 can represent.
	maxExpirySeconds = 253402300799
)

// Binary is the canonical session serializer.
//
// Layout (big-endian):
//
//	version:u8 | expires_sec:i64 | expires_nsec:u32 | count:uvarint |
//	count * (key_len:uvarint key value_len:uvarint value)
//
// Entries are sorted by key. Decode rejects unsorted or duplicate keys and trailing bytes,
// so every session has exactly one encoding.
type Binary struct{}

func (Binary) Name() string { return EncodingBinary }

func (Binary) Encode(s *Session) ([]byte, error) {
	if s == nil {
		return nil, errors.New("nil session")
	}

	keys := s.Keys()
	size := binaryHeaderSize + binary.MaxVarintLen64
	for _, k := range keys {
		size += 2*binary.MaxVarintLen64 + len(k) + len(s.Values[k])
	}

	var buf bytes.Buffer
	buf.Grow(size)

	buf.WriteByte(binaryFormatVersionCurrent)

	exp := s.ExpiresAt.UTC()
	if exp.Unix() < 0 || exp.Unix() > maxExpirySeconds {
		return nil, errors.New("session expiry out of range")
	}
	var fixed [expiryFieldSize]byte
	binary.BigEndian.PutUint64(fixed[0:8], uint64(exp.Unix()))
	binary.BigEndian.PutUint32(fixed[8:12], uint32(exp.Nanosecond()))
	buf.Write(fixed[:])

	var scratch [binary.MaxVarintLen64]byte
	buf.Write(scratch[:binary.PutUvarint(scratch[:], uint64(len(keys)))])
	for _, k := range keys {
		v := s.Values[k]
		buf.Write(scratch[:binary.PutUvarint(scratch[:], uint64(len(k)))])
		buf.WriteString(k)
		buf.Write(scratch[:binary.PutUvarint(scratch[:], uint64(len(v)))])
		buf.Write(v)
	}

	return buf.Bytes(), nil
}

func (Binary) ExpiresAt(data []byte) (time.Time, error) {
	if len(data) < binaryHeaderSize {
		return time.Time{}, malformed("truncated header")
	}
	if data[0] != binaryFormatVersionCurrent {
		return time.Time{}, malformed("unsupported format version")
	}
	return readExpiry(data[1:binaryHeaderSize])
}

func (b Binary) Decode(data []byte) (*Session, error) {
	expiresAt, err := b.ExpiresAt(data)
	if err != nil {
		return nil, err
	}

	reader := bytes.NewReader(data[binaryHeaderSize:])

	count, err := readUvarint(reader)
	if err != nil {
		return nil, err
	}
	// every entry needs at least two length bytes
	if count > uint64(reader.Len())/2 {
		return nil, malformed("entry count exceeds payload")
	}

	s := &Session{
		ExpiresAt: expiresAt,
		Values:    make(map[string][]byte, int(count)),
	}

	var prev string
	for i := uint64(0); i < count; i++ {
		key, err := readChunk(reader)
		if err != nil {
			return nil, err
		}
		value, err := readChunk(reader)
		if err != nil {
			return nil, err
		}
		k := string(key)
		if i > 0 && k <= prev {
			return nil, malformed("keys not strictly ascending")
		}
		prev = k
		s.Values[k] = value
	}

	if reader.Len() != 0 {
		return nil, malformed("trailing bytes")
	}

	return s, nil
}

// readUvarint rejects overlong encodings so that decoding stays canonical.
func readUvarint(reader *bytes.Reader) (uint64, error) {
	before := reader.Len()
	n, err := binary.ReadUvarint(reader)
	if err != nil {
		return 0, malformed("truncated length")
	}
	var scratch [binary.MaxVarintLen64]byte
	if before-reader.Len() != binary.PutUvarint(scratch[:], n) {
		return 0, malformed("non-minimal length")
	}
	return n, nil
}

func readChunk(reader *bytes.Reader) ([]byte, error) {
	n, err := readUvarint(reader)
	if err != nil {
		return nil, err
	}
	if n > uint64(reader.Len()) {
		return nil, malformed("length exceeds payload")
	}
	chunk := make([]byte, n)
	if _, err := io.ReadFull(reader, chunk); err != nil {
		return nil, malformed("truncated data")
	}
	return chunk, nil
}

func readExpiry(field []byte) (time.Time, error) {
	sec := int64(binary.BigEndian.Uint64(field[0:8]))
	nsec := binary.BigEndian.Uint32(field[8:12])
	if sec < 0 || sec > maxExpirySeconds {
		return time.Time{}, malformed("expiry out of range")
	}
	if nsec > maxNanoseconds {
		return time.Time{}, malformed("invalid nanoseconds")
	}
	return time.Unix(sec, int64(nsec)).UTC(), nil
}
