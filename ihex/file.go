// Package ihex defines the Intel HEX program image, as well as an
// encoder and decoder for its text format.
package ihex

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/pkg/errors"
)

// ErrMalformed is returned for records that can not be decoded.
var ErrMalformed = errors.New("malformed record")

// File defines a complete, decoded HEX image.
type File struct {
	Records []Record // Records in input order, up to and including the end of file record.
}

// New creates a new, empty image.
func New() *File {
	return &File{}
}

// Load decodes a HEX image from the given stream.
func Load(r io.Reader) (*File, error) {
	f := New()
	if err := f.Load(r); err != nil {
		return nil, err
	}
	return f, nil
}

// Load reads records from the given stream, replacing the current contents.
// Decoding stops after the end of file record. Blank lines are skipped;
// checksums are kept but not verified.
func (f *File) Load(r io.Reader) (err error) {
	defer recoverOnPanic(&err)

	f.Records = nil
	s := bufio.NewScanner(r)

	for line := 1; s.Scan(); line++ {
		text := strings.TrimSpace(s.Text())
		if len(text) == 0 {
			continue
		}

		var rec Record
		rec.decode(line, text)
		f.Records = append(f.Records, rec)

		if rec.Type == EndOfFile {
			return
		}
	}

	check(s.Err())
	return
}

// Save writes all records to the given stream, with freshly computed checksums.
func (f *File) Save(w io.Writer) (err error) {
	defer recoverOnPanic(&err)

	bw := bufio.NewWriter(w)
	for i := range f.Records {
		f.Records[i].encode(bw)
	}
	check(bw.Flush())
	return
}

// Byte defines a single data byte and the program address it belongs at.
type Byte struct {
	Address int
	Value   byte
}

// Bytes returns the contents of all data records as one stream, in
// record order. Each byte carries its own address, so the stream jumps
// wherever consecutive records are not contiguous.
func (f *File) Bytes() []Byte {
	var out []Byte
	for _, rec := range f.Records {
		if rec.Type != Data {
			continue
		}
		for i, v := range rec.Data {
			out = append(out, Byte{Address: rec.Address + i, Value: v})
		}
	}
	return out
}

// String returns a human-readable dump of the image's contents.
func (f *File) String() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Records (%d):\n", len(f.Records))
	for _, rec := range f.Records {
		fmt.Fprintf(&sb, " %4d: %-24s %04X %3d bytes, checksum %02X\n",
			rec.Line, rec.Type, rec.Address, len(rec.Data), rec.Checksum)
	}

	for _, rec := range f.Records {
		if rec.Type != Data || len(rec.Data) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "Data at %04X:\n%s", rec.Address, hex.Dump(rec.Data))
	}

	return sb.String()
}

func check(err error) {
	if err != nil {
		panic(err)
	}
}

func recoverOnPanic(err *error) {
	x := recover()
	if x == nil {
		return
	}

	switch tx := x.(type) {
	case runtime.Error:
		panic(tx)
	case error:
		*err = errors.Wrapf(tx, "ihex")
	default:
		*err = fmt.Errorf("ihex: %v", tx)
	}
}
