package importer

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/goodnatureofminers/btpc-node/internal/model"
)

// maxRecordSize bounds a single record so a corrupt length prefix cannot
// force a huge allocation. Oversized blocks still fit and are rejected by
// validation with a reason.
const maxRecordSize = 4 << 20

var ErrRecordTooLarge = errors.New("import record too large")

// StreamSource reads records of a little-endian uint32 length followed by
// that many bytes of serialized block.
type StreamSource struct {
	r   *bufio.Reader
	buf [4]byte
}

func NewStreamSource(r io.Reader) *StreamSource {
	return &StreamSource{r: bufio.NewReaderSize(r, 1<<20)}
}

// Next returns the next record. A stream ending inside a record reports
// io.ErrUnexpectedEOF.
func (s *StreamSource) Next(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(s.r, s.buf[:]); err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint32(s.buf[:])
	if n > maxRecordSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrRecordTooLarge, n)
	}
	record := make([]byte, n)
	if _, err := io.ReadFull(s.r, record); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return record, nil
}

// WriteRecord appends block to w in the format StreamSource reads.
func WriteRecord(w io.Writer, block *model.Block) error {
	raw := block.Bytes()
	var prefix [4]byte
	binary.LittleEndian.PutUint32(prefix[:], uint32(len(raw)))
	if _, err := w.Write(prefix[:]); err != nil {
		return err
	}
	_, err := w.Write(raw)
	return err
}
