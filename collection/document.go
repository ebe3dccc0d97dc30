// Package collection implements the document store and collection engine
// wrapping an hnsw.Graph with id allocation, metadata/date post-filters,
// and per-collection binary persistence (spec §4.8).
package collection

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"time"
)

// Document is the unit of storage: a piece of text, its embedding vector,
// optional string metadata, and the two wall-clock timestamps. The index
// holds only Document.Id; the store is the sole owner of the Document
// value itself (spec §3).
type Document struct {
	Id                   int32
	Text                 string
	Metadata             map[string]string
	Vector               []float32
	CreationDateTime     time.Time
	ModificationDateTime time.Time
}

// vectorOf returns d.Vector; it is the accessor passed to hnsw.New/hnsw.Load
// so the graph stays agnostic to the rest of the Document shape.
func vectorOf(d *Document) []float32 {
	return d.Vector
}

func writeString(w io.Writer, s string) error {
	buf := binary.AppendUvarint(nil, uint64(len(s)))
	if _, err := w.Write(buf); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(r io.ByteReader, raw io.Reader) (string, error) {
	n, err := binary.ReadUvarint(r)
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(raw, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func writeMetadata(w io.Writer, m map[string]string) error {
	buf := binary.AppendUvarint(nil, uint64(len(m)))
	if _, err := w.Write(buf); err != nil {
		return err
	}
	for k, v := range m {
		if err := writeString(w, k); err != nil {
			return err
		}
		if err := writeString(w, v); err != nil {
			return err
		}
	}
	return nil
}

func readMetadata(r io.ByteReader, raw io.Reader) (map[string]string, error) {
	n, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return map[string]string{}, nil
	}
	m := make(map[string]string, n)
	for i := uint64(0); i < n; i++ {
		k, err := readString(r, raw)
		if err != nil {
			return nil, err
		}
		v, err := readString(r, raw)
		if err != nil {
			return nil, err
		}
		m[k] = v
	}
	return m, nil
}

func writeVector(w io.Writer, v []float32) error {
	buf := binary.AppendUvarint(nil, uint64(len(v)))
	if _, err := w.Write(buf); err != nil {
		return err
	}
	for _, f := range v {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], math.Float32bits(f))
		if _, err := w.Write(b[:]); err != nil {
			return err
		}
	}
	return nil
}

func readVector(r io.ByteReader, raw io.Reader) ([]float32, error) {
	n, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, err
	}
	v := make([]float32, n)
	var b [4]byte
	for i := range v {
		if _, err := io.ReadFull(raw, b[:]); err != nil {
			return nil, err
		}
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[:]))
	}
	return v, nil
}

// marshal writes d's self-describing binary encoding: {Id, Text, Metadata,
// Vector, CreationDateTime, ModificationDateTime}, timestamps as i64 Unix
// nanosecond ticks (spec §6 "i64-ticks").
func (d *Document) marshal(w io.Writer) error {
	var idBuf [4]byte
	binary.LittleEndian.PutUint32(idBuf[:], uint32(d.Id))
	if _, err := w.Write(idBuf[:]); err != nil {
		return err
	}
	if err := writeString(w, d.Text); err != nil {
		return err
	}
	if err := writeMetadata(w, d.Metadata); err != nil {
		return err
	}
	if err := writeVector(w, d.Vector); err != nil {
		return err
	}
	var tsBuf [16]byte
	binary.LittleEndian.PutUint64(tsBuf[0:8], uint64(d.CreationDateTime.UnixNano()))
	binary.LittleEndian.PutUint64(tsBuf[8:16], uint64(d.ModificationDateTime.UnixNano()))
	_, err := w.Write(tsBuf[:])
	return err
}

type byteAndFullReader interface {
	io.Reader
	io.ByteReader
}

func unmarshalDocument(r byteAndFullReader) (*Document, error) {
	var idBuf [4]byte
	if _, err := io.ReadFull(r, idBuf[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("collection: read document id: %w", err)
	}
	d := &Document{Id: int32(binary.LittleEndian.Uint32(idBuf[:]))}

	text, err := readString(r, r)
	if err != nil {
		return nil, fmt.Errorf("collection: read document text: %w", err)
	}
	d.Text = text

	meta, err := readMetadata(r, r)
	if err != nil {
		return nil, fmt.Errorf("collection: read document metadata: %w", err)
	}
	d.Metadata = meta

	vec, err := readVector(r, r)
	if err != nil {
		return nil, fmt.Errorf("collection: read document vector: %w", err)
	}
	d.Vector = vec

	var tsBuf [16]byte
	if _, err := io.ReadFull(r, tsBuf[:]); err != nil {
		return nil, fmt.Errorf("collection: read document timestamps: %w", err)
	}
	d.CreationDateTime = time.Unix(0, int64(binary.LittleEndian.Uint64(tsBuf[0:8]))).UTC()
	d.ModificationDateTime = time.Unix(0, int64(binary.LittleEndian.Uint64(tsBuf[8:16]))).UTC()

	return d, nil
}
