package ihex

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// RecordType defines the kind of a record.
type RecordType byte

// Known record types.
const (
	Data RecordType = iota
	EndOfFile
	ExtendedSegmentAddress
	StartSegmentAddress
	ExtendedLinearAddress
	StartLinearAddress
)

func (t RecordType) String() string {
	switch t {
	case Data:
		return "Data"
	case EndOfFile:
		return "End Of File"
	case ExtendedSegmentAddress:
		return "Extended Segment Address"
	case StartSegmentAddress:
		return "Start Segment Address"
	case ExtendedLinearAddress:
		return "Extended Linear Address"
	case StartLinearAddress:
		return "Start Linear Address"
	}
	return fmt.Sprintf("Type %02X", byte(t))
}

// Record defines one line of a HEX image: ":LLAAAATT[DD...]CC".
type Record struct {
	Line     int        // Line number the record was read from, if any.
	Type     RecordType // Record type.
	Address  int        // Load address of the first data byte.
	Data     []byte     // Payload.
	Checksum byte       // Checksum as read. Not verified.
}

// Sum computes the checksum for the record: the two's complement of the
// sum of all other bytes in the record.
func (r *Record) Sum() byte {
	s := byte(len(r.Data)) + byte(r.Address>>8) + byte(r.Address) + byte(r.Type)
	for _, v := range r.Data {
		s += v
	}
	return -s
}

// decode parses a single record. It panics with ErrMalformed on
// anything it can not make sense of.
func (r *Record) decode(line int, text string) {
	if !strings.HasPrefix(text, ":") {
		panic(errors.Wrapf(ErrMalformed, "line %d: missing start code", line))
	}

	// Byte count, address, type and checksum.
	if len(text) < 11 {
		panic(errors.Wrapf(ErrMalformed, "line %d: record too short", line))
	}

	raw, err := hex.DecodeString(text[1:])
	if err != nil {
		panic(errors.Wrapf(ErrMalformed, "line %d: %v", line, err))
	}

	n := int(raw[0])
	if len(raw) != n+5 {
		panic(errors.Wrapf(ErrMalformed, "line %d: byte count %d does not match record length", line, n))
	}

	r.Line = line
	r.Address = int(raw[1])<<8 | int(raw[2])
	r.Type = RecordType(raw[3])
	r.Data = raw[4 : 4+n]
	r.Checksum = raw[4+n]
}

// encode writes the record as a single line.
func (r *Record) encode(w io.Writer) {
	_, err := fmt.Fprintf(w, ":%02X%04X%02X%s%02X\n",
		len(r.Data), r.Address&0xffff, byte(r.Type), strings.ToUpper(hex.EncodeToString(r.Data)), r.Sum())
	check(err)
}
