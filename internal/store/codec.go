package store

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/hyperjump/vecstore/internal/models"
)

// Collection file record, big-endian, records concatenated without separator:
//
//	record := uri:str index:int32 title:str text:str tokenCount:int32 vecLen:int32 vecLen*float32
//	str    := byteLength:int32 utf8 bytes

// EncodeDocument writes the binary record for doc to w.
func EncodeDocument(w io.Writer, doc *models.VectorDocument) error {
	size := 4*6 + len(doc.URI) + len(doc.Title) + len(doc.Text) + 4*len(doc.Vector)
	buf := make([]byte, 0, size)
	buf = appendString(buf, doc.URI)
	buf = binary.BigEndian.AppendUint32(buf, uint32(doc.Index))
	buf = appendString(buf, doc.Title)
	buf = appendString(buf, doc.Text)
	buf = binary.BigEndian.AppendUint32(buf, uint32(doc.TokenCount))
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(doc.Vector)))
	for _, v := range doc.Vector {
		buf = binary.BigEndian.AppendUint32(buf, math.Float32bits(v))
	}
	_, err := w.Write(buf)
	return err
}

// EncodeDocuments writes the records for docs to w in order.
func EncodeDocuments(w io.Writer, docs []*models.VectorDocument) error {
	for _, doc := range docs {
		if err := EncodeDocument(w, doc); err != nil {
			return fmt.Errorf("encode document %s#%d: %w", doc.URI, doc.Index, err)
		}
	}
	return nil
}

func appendString(buf []byte, s string) []byte {
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(s)))
	return append(buf, s...)
}

// DecodeDocument reads one record from r. It returns io.EOF when r is exhausted
// before the first byte of a record, and ErrTruncated when it ends mid-record.
func DecodeDocument(r io.Reader) (*models.VectorDocument, error) {
	d := decoder{r: r}
	doc := &models.VectorDocument{}
	doc.URI = d.string()
	if d.err != nil {
		if d.read == 0 && errors.Is(d.err, io.EOF) {
			return nil, io.EOF
		}
		return nil, d.finish()
	}
	doc.Index = d.int32()
	doc.Title = d.string()
	doc.Text = d.string()
	doc.TokenCount = d.int32()
	n := d.length()
	if d.err == nil {
		raw := d.bytes(4 * n)
		if d.err == nil {
			doc.Vector = make([]float32, n)
			for i := range doc.Vector {
				doc.Vector[i] = math.Float32frombits(binary.BigEndian.Uint32(raw[4*i:]))
			}
		}
	}
	if d.err != nil {
		return nil, d.finish()
	}
	return doc, nil
}

// DecodeAll reads records until EOF.
func DecodeAll(r io.Reader) ([]*models.VectorDocument, error) {
	br := bufio.NewReaderSize(r, 1<<20)
	var docs []*models.VectorDocument
	for {
		doc, err := DecodeDocument(br)
		if errors.Is(err, io.EOF) {
			return docs, nil
		}
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", len(docs), err)
		}
		docs = append(docs, doc)
	}
}

// maxFieldLength bounds a single string or vector length read from disk.
const maxFieldLength = 1 << 30

// Fields up to directFieldLength are read into an exact-size buffer. Longer
// ones grow with the bytes actually read, so a corrupt length costs no more
// memory than the file holds.
const directFieldLength = 64 << 10

type decoder struct {
	r    io.Reader
	read int
	err  error
	scr  [4]byte
}

func (d *decoder) fill(p []byte) {
	if d.err != nil {
		return
	}
	n, err := io.ReadFull(d.r, p)
	d.read += n
	if err != nil {
		d.err = err
	}
}

func (d *decoder) int32() int32 {
	d.fill(d.scr[:])
	if d.err != nil {
		return 0
	}
	return int32(binary.BigEndian.Uint32(d.scr[:]))
}

func (d *decoder) length() int {
	n := d.int32()
	if d.err == nil && (n < 0 || n > maxFieldLength) {
		d.err = fmt.Errorf("%w: invalid length %d", ErrCorrupt, n)
	}
	return int(n)
}

func (d *decoder) bytes(n int) []byte {
	if d.err != nil {
		return nil
	}
	if n <= directFieldLength {
		p := make([]byte, n)
		d.fill(p)
		return p
	}
	var buf bytes.Buffer
	m, err := io.CopyN(&buf, d.r, int64(n))
	d.read += int(m)
	if err != nil {
		d.err = err
		return nil
	}
	return buf.Bytes()
}

func (d *decoder) string() string {
	n := d.length()
	p := d.bytes(n)
	if d.err != nil {
		return ""
	}
	return string(p)
}

// finish maps short reads to ErrTruncated.
func (d *decoder) finish() error {
	if errors.Is(d.err, io.EOF) || errors.Is(d.err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w after %d bytes", ErrTruncated, d.read)
	}
	return d.err
}
