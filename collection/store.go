package collection

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/pdeschain/unichrome/internal/diskio"
)

// store is the document store contract of spec §4.8: monotonic ID
// allocation, CRUD over Document values, and a stable snapshot in
// insertion order.
type store struct {
	mu sync.RWMutex

	nextID int32
	docs   map[int32]*Document
	order  []int32 // insertion order, for GetDocuments' stable snapshot
	live   *roaring.Bitmap
}

func newStore() *store {
	return &store{
		docs: make(map[int32]*Document),
		live: roaring.New(),
	}
}

// allocate returns the next monotonically increasing ID without inserting
// anything; IDs are never reused even across deletes.
func (s *store) allocate() int32 {
	id := s.nextID
	s.nextID++
	return id
}

// insert adds a fully-formed document, setting both timestamps to now.
func (s *store) insert(d *Document, now time.Time) {
	d.CreationDateTime = now
	d.ModificationDateTime = now
	s.docs[d.Id] = d
	s.order = append(s.order, d.Id)
	s.live.Add(uint32(d.Id))
}

// update rewrites text/metadata for an existing document and bumps
// ModificationDateTime only.
func (s *store) update(id int32, text string, metadata map[string]string, now time.Time) bool {
	d, ok := s.docs[id]
	if !ok {
		return false
	}
	d.Text = text
	if metadata != nil {
		d.Metadata = metadata
	}
	d.ModificationDateTime = now
	return true
}

// delete removes id, returning false if it was already absent.
func (s *store) delete(id int32) bool {
	if _, ok := s.docs[id]; !ok {
		return false
	}
	delete(s.docs, id)
	s.live.Remove(uint32(id))
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

func (s *store) get(id int32) (*Document, bool) {
	d, ok := s.docs[id]
	return d, ok
}

func (s *store) contains(id int32) bool {
	return s.live.Contains(uint32(id))
}

// snapshot returns a stable, insertion-ordered copy of every live document.
func (s *store) snapshot() []*Document {
	out := make([]*Document, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.docs[id])
	}
	return out
}

func (s *store) count() int {
	return len(s.docs)
}

// persist writes the self-describing binary stream of spec §6:
// {NextId:i32, documents in insertion order}.
func (s *store) persist(w io.Writer) error {
	var idBuf [4]byte
	binary.LittleEndian.PutUint32(idBuf[:], uint32(s.nextID))
	if _, err := w.Write(idBuf[:]); err != nil {
		return fmt.Errorf("collection: write NextId: %w", err)
	}

	var countBuf [4]byte
	binary.LittleEndian.PutUint32(countBuf[:], uint32(len(s.order)))
	if _, err := w.Write(countBuf[:]); err != nil {
		return fmt.Errorf("collection: write document count: %w", err)
	}

	for _, id := range s.order {
		if err := s.docs[id].marshal(w); err != nil {
			return fmt.Errorf("collection: write document %d: %w", id, err)
		}
	}
	return nil
}

// deserializeAndPopulate replaces the store's contents with the stream's.
func (s *store) deserializeAndPopulate(r *bufio.Reader) error {
	var idBuf [4]byte
	if _, err := io.ReadFull(r, idBuf[:]); err != nil {
		return fmt.Errorf("collection: read NextId: %w", err)
	}
	nextID := int32(binary.LittleEndian.Uint32(idBuf[:]))

	var countBuf [4]byte
	if _, err := io.ReadFull(r, countBuf[:]); err != nil {
		return fmt.Errorf("collection: read document count: %w", err)
	}
	count := binary.LittleEndian.Uint32(countBuf[:])

	docs := make(map[int32]*Document, count)
	order := make([]int32, 0, count)
	live := roaring.New()

	for i := uint32(0); i < count; i++ {
		d, err := unmarshalDocument(r)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return fmt.Errorf("collection: truncated document stream")
			}
			return err
		}
		docs[d.Id] = d
		order = append(order, d.Id)
		live.Add(uint32(d.Id))
	}

	s.nextID = nextID
	s.docs = docs
	s.order = order
	s.live = live
	return nil
}

// persistFile atomically writes the store to filename.
func (s *store) persistFile(filename string) error {
	return diskio.SaveToFile(filename, func(w *bufio.Writer) error {
		return s.persist(w)
	})
}

// loadFile replaces the store's contents from filename.
func (s *store) loadFile(filename string) error {
	return diskio.LoadFromFile(filename, s.deserializeAndPopulate)
}
