// Package feargreed decodes the fixed-width binary fear-and-greed index format.
//
// Layout (all integers big-endian):
//
//	offset 0   uint32  record count N
//	offset 4   N records of RecordSize bytes:
//	           +0 uint32 UNIX timestamp (seconds)
//	           +4 int8   category code, 1..5
//	           +5 int8   index value
//
// Bytes after the last record are ignored.
package feargreed

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/model"
)

const (
	// HeaderSize is the length of the record count prefix.
	HeaderSize = 4
	// RecordSize is the length of one encoded record.
	RecordSize = 6
)

// ErrTruncated is returned when the buffer is shorter than its declared record count requires.
var ErrTruncated = errors.New("fear and greed buffer truncated")

// UnknownCategory labels codes outside the 1..5 table.
const UnknownCategory = "Unknown"

var categories = map[int8]string{
	1: "Extreme Fear",
	2: "Fear",
	3: "Neutral",
	4: "Greed",
	5: "Extreme Greed",
}

// Category maps a category code to its sentiment label.
func Category(code int8) string {
	if label, ok := categories[code]; ok {
		return label
	}
	return UnknownCategory
}

// Record is one decoded observation.
type Record struct {
	Time     time.Time `json:"time"`
	Code     int8      `json:"code"`
	Category string    `json:"category"`
	Value    int8      `json:"value"`
}

// Decode parses a complete buffer.
func Decode(buf []byte) ([]Record, error) {
	if len(buf) < HeaderSize {
		return nil, fmt.Errorf("%w: %d bytes, need at least %d for header", ErrTruncated, len(buf), HeaderSize)
	}

	count := binary.BigEndian.Uint32(buf[:HeaderSize])
	need := int64(HeaderSize) + int64(count)*RecordSize
	if int64(len(buf)) < need {
		return nil, fmt.Errorf("%w: header declares %d records (%d bytes), got %d bytes", ErrTruncated, count, need, len(buf))
	}

	records := make([]Record, count)
	for i := range records {
		off := HeaderSize + i*RecordSize
		ts := binary.BigEndian.Uint32(buf[off : off+4])
		code := int8(buf[off+4])
		records[i] = Record{
			Time:     time.Unix(int64(ts), 0).UTC(),
			Code:     code,
			Category: Category(code),
			Value:    int8(buf[off+5]),
		}
	}
	return records, nil
}

// Encode serializes records in the wire format. Category labels are not encoded;
// only Code is written.
func Encode(records []Record) []byte {
	buf := make([]byte, HeaderSize+len(records)*RecordSize)
	binary.BigEndian.PutUint32(buf[:HeaderSize], uint32(len(records)))
	for i, r := range records {
		off := HeaderSize + i*RecordSize
		binary.BigEndian.PutUint32(buf[off:off+4], uint32(r.Time.Unix()))
		buf[off+4] = byte(r.Code)
		buf[off+5] = byte(r.Value)
	}
	return buf
}

// ToPoints converts records to time series points, one per record, in input order.
// The sentiment label is kept in Label.
func ToPoints(records []Record) []model.TimeSeriesPoint {
	points := make([]model.TimeSeriesPoint, len(records))
	for i, r := range records {
		points[i] = model.TimeSeriesPoint{
			Time:  r.Time.UTC().Format(time.DateOnly),
			Value: float64(r.Value),
			Label: r.Category,
		}
	}
	return points
}
