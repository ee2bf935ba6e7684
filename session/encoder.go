package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

const recordFormatVersionCurrent = 1

var (
	errIDTooLong     = errors.New("record id too long")
	errUserIDTooLong = errors.New("userID too long")
	errInvalidFormat = errors.New("invalid record version")
)

// Encode serializes r as: version | idLen id | userLen user | tokenHash | ipHash | uaHash |
// createdAt | updatedAt | expiresAt (big-endian int64s).
func Encode(r *Record) ([]byte, error) {
	if len(r.ID) > 255 {
		return nil, errIDTooLong
	}
	if len(r.UserID) > 255 {
		return nil, errUserIDTooLong
	}

	var buf bytes.Buffer
	buf.Grow(3 + len(r.ID) + len(r.UserID) + 96 + 24)

	buf.WriteByte(recordFormatVersionCurrent)

	buf.WriteByte(byte(len(r.ID)))
	buf.WriteString(r.ID)

	buf.WriteByte(byte(len(r.UserID)))
	buf.WriteString(r.UserID)

	buf.Write(r.TokenHash[:])
	buf.Write(r.IPHash[:])
	buf.Write(r.UserAgentHash[:])

	for _, ts := range [...]int64{r.CreatedAt, r.UpdatedAt, r.ExpiresAt} {
		if err := binary.Write(&buf, binary.BigEndian, ts); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}

// Decode parses a blob produced by [Encode].
func Decode(data []byte) (*Record, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != recordFormatVersionCurrent {
		return nil, errInvalidFormat
	}

	r := &Record{}

	if r.ID, err = readShortString(reader); err != nil {
		return nil, err
	}
	if r.UserID, err = readShortString(reader); err != nil {
		return nil, err
	}

	for _, dst := range []*[32]byte{&r.TokenHash, &r.IPHash, &r.UserAgentHash} {
		if _, err := io.ReadFull(reader, dst[:]); err != nil {
			return nil, err
		}
	}

	for _, dst := range []*int64{&r.CreatedAt, &r.UpdatedAt, &r.ExpiresAt} {
		if err := binary.Read(reader, binary.BigEndian, dst); err != nil {
			return nil, err
		}
	}

	if reader.Len() != 0 {
		return nil, errors.New("trailing bytes in record")
	}

	return r, nil
}

func readShortString(reader *bytes.Reader) (string, error) {
	n, err := reader.ReadByte()
	if err != nil {
		return "", err
	}
	raw := make([]byte, n)
	if _, err := io.ReadFull(reader, raw); err != nil {
		return "", err
	}
	return string(raw), nil
}
