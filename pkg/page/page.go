// Package page implements the 64 KiB page: a fixed-size row region
// that bump-allocates upward, a var-len granule region that
// bump-allocates downward from the top of the page, and the BFLATN
// row-layout computation (layout.go) that tells the page where a
// row's var-len placeholders live.
package page

import (
	"encoding/binary"
	"errors"
	"hash/fnv"

	"github.com/cuemby/warren/pkg/blob"
	"github.com/cuemby/warren/pkg/sats"
	"github.com/cuemby/warren/pkg/types"
	"github.com/cuemby/warren/pkg/varlen"
)

// PageSize is the fixed size of a page in bytes.
const PageSize = 65536

// ErrPageFull is returned when a page has no room for a row or for
// the var-len objects it carries.
var ErrPageFull = errors.New("page: no space for row")

// Page holds rows of exactly one RowTypeLayout. The fixed region
// grows from offset 0 upward; the var-len granule region grows from
// PageSize downward. Both regions share one backing array, so the
// space between the two high-water marks is what remains free.
type Page struct {
	buf   [PageSize]byte
	rowSize uint16

	fixedHigh uint16 // next unallocated fixed offset if no freelist slot is reused
	varLow    uint16 // next unallocated var-len offset (bump down), starts at PageSize

	fixedFreelist   []uint16
	granuleFreelist []types.PageOffset

	liveRows map[types.PageOffset]struct{}
}

// NewPage allocates an empty page for rows of the given fixed size.
func NewPage(rowSize uint16) *Page {
	return &Page{
		rowSize:  rowSize,
		varLow:   PageSize,
		liveRows: make(map[types.PageOffset]struct{}),
	}
}

// NumRows reports how many live rows the page currently holds.
func (p *Page) NumRows() int { return len(p.liveRows) }

// HasSpaceForRow reports whether the page can currently accept a row
// whose var-len columns have the given byte lengths, without actually
// allocating anything.
func (p *Page) HasSpaceForRow(varLens []int) bool {
	fixedOK := len(p.fixedFreelist) > 0 || uint32(p.fixedHigh)+uint32(p.rowSize) <= uint32(p.varLow)
	if !fixedOK {
		return false
	}
	needed := 0
	for _, n := range varLens {
		count, isBlob := varlen.BytesToGranules(n)
		if isBlob {
			needed++
		} else {
			needed += count
		}
	}
	avail := len(p.granuleFreelist) + int(p.varLow-p.fixedHigh)/varlen.GranuleSize
	return needed <= avail
}

func (p *Page) allocFixedSlot() (types.PageOffset, bool) {
	if n := len(p.fixedFreelist); n > 0 {
		off := p.fixedFreelist[n-1]
		p.fixedFreelist = p.fixedFreelist[:n-1]
		return types.PageOffset(off), true
	}
	if uint32(p.fixedHigh)+uint32(p.rowSize) <= uint32(p.varLow) {
		off := p.fixedHigh
		p.fixedHigh += p.rowSize
		return types.PageOffset(off), true
	}
	return 0, false
}

func (p *Page) allocGranule() (types.PageOffset, bool) {
	if n := len(p.granuleFreelist); n > 0 {
		off := p.granuleFreelist[n-1]
		p.granuleFreelist = p.granuleFreelist[:n-1]
		return off, true
	}
	if uint32(p.varLow) >= uint32(p.fixedHigh)+varlen.GranuleSize {
		p.varLow -= varlen.GranuleSize
		return types.PageOffset(p.varLow), true
	}
	return 0, false
}

func (p *Page) writeGranule(off types.PageOffset, hdr varlen.GranuleHeader, chunk []byte) {
	binary.LittleEndian.PutUint16(p.buf[off:], uint16(hdr))
	copy(p.buf[int(off)+2:int(off)+varlen.GranuleSize], chunk)
}

func (p *Page) readGranule(off types.PageOffset) varlen.Granule {
	var g varlen.Granule
	g.Header = varlen.GranuleHeader(binary.LittleEndian.Uint16(p.buf[off:]))
	copy(g.Data[:], p.buf[int(off)+2:int(off)+varlen.GranuleSize])
	return g
}

func readVarLenRef(buf []byte, off int) varlen.VarLenRef {
	return varlen.VarLenRef{
		LengthInBytes: binary.LittleEndian.Uint16(buf[off:]),
		FirstGranule:  types.PageOffset(binary.LittleEndian.Uint16(buf[off+2:])),
	}
}

func writeVarLenRef(buf []byte, off int, ref varlen.VarLenRef) {
	binary.LittleEndian.PutUint16(buf[off:], ref.LengthInBytes)
	binary.LittleEndian.PutUint16(buf[off+2:], uint16(ref.FirstGranule))
}

// allocObject writes data into a fresh granule chain (or, if it
// exceeds the blob threshold, into store and a single hash granule),
// returning the VarLenRef to patch into the row.
func (p *Page) allocObject(data []byte, store blob.Store) (varlen.VarLenRef, error) {
	count, needsBlob := varlen.BytesToGranules(len(data))
	if needsBlob {
		hash, err := store.Put(data)
		if err != nil {
			return varlen.VarLenRef{}, err
		}
		g, ok := p.allocGranule()
		if !ok {
			return varlen.VarLenRef{}, ErrPageFull
		}
		hdr := varlen.EncodeGranuleHeader(uint8(len(hash)), 0, false)
		p.writeGranule(g, hdr, hash[:])
		return varlen.LargeBlob(g), nil
	}
	if count == 0 {
		return varlen.VarLenRef{}, nil
	}
	offs := make([]types.PageOffset, count)
	for i := 0; i < count; i++ {
		g, ok := p.allocGranule()
		if !ok {
			// roll back partially allocated granules for this object
			for _, done := range offs[:i] {
				p.granuleFreelist = append(p.granuleFreelist, done)
			}
			return varlen.VarLenRef{}, ErrPageFull
		}
		offs[i] = g
	}
	for i := 0; i < count; i++ {
		start := i * varlen.GranuleDataSize
		end := start + varlen.GranuleDataSize
		if end > len(data) {
			end = len(data)
		}
		chunk := data[start:end]
		hasNext := i+1 < count
		var next types.PageOffset
		if hasNext {
			next = offs[i+1]
		}
		hdr := varlen.EncodeGranuleHeader(uint8(len(chunk)), next, hasNext)
		p.writeGranule(offs[i], hdr, chunk)
	}
	return varlen.VarLenRef{LengthInBytes: uint16(len(data)), FirstGranule: offs[0]}, nil
}

// freeObject walks ref's granule chain (or blob refcount) and returns
// every granule it occupied to the freelist.
func (p *Page) freeObject(ref varlen.VarLenRef, store blob.Store) error {
	if ref.LengthInBytes == 0 {
		return nil
	}
	if ref.IsLargeBlob() {
		g := p.readGranule(ref.FirstGranule)
		var hash types.BlobHash
		copy(hash[:], g.Data[:len(hash)])
		if _, err := store.Decr(hash); err != nil {
			return err
		}
		p.granuleFreelist = append(p.granuleFreelist, ref.FirstGranule)
		return nil
	}
	off := ref.FirstGranule
	for {
		g := p.readGranule(off)
		p.granuleFreelist = append(p.granuleFreelist, off)
		next, has := g.Header.Next()
		if !has {
			break
		}
		off = next
	}
	return nil
}

// readObject reconstructs the bytes referenced by ref.
func (p *Page) readObject(ref varlen.VarLenRef, store blob.Store) ([]byte, error) {
	if ref.LengthInBytes == 0 {
		return nil, nil
	}
	if ref.IsLargeBlob() {
		g := p.readGranule(ref.FirstGranule)
		var hash types.BlobHash
		copy(hash[:], g.Data[:len(hash)])
		return store.Get(hash)
	}
	out := make([]byte, 0, ref.LengthInBytes)
	remaining := int(ref.LengthInBytes)
	off := ref.FirstGranule
	for remaining > 0 {
		g := p.readGranule(off)
		n := int(g.Header.Len())
		if n > remaining {
			n = remaining
		}
		out = append(out, g.Data[:n]...)
		remaining -= n
		next, has := g.Header.Next()
		if !has {
			break
		}
		off = next
	}
	return out, nil
}

// InsertRow writes fixedBytes (which must be exactly rowSize bytes,
// containing zeroed VarLenRef placeholders at the positions rowType's
// layout calls for) plus its var-len objects (in VisitVarLenRefs
// traversal order) into the page, returning the new row's offset.
func (p *Page) InsertRow(fixedBytes []byte, varObjects [][]byte, rowType sats.AlgebraicType, store blob.Store) (types.PageOffset, error) {
	if len(fixedBytes) != int(p.rowSize) {
		return 0, errors.New("page: fixed row size mismatch")
	}
	lens := make([]int, len(varObjects))
	for i, o := range varObjects {
		lens[i] = len(o)
	}
	if !p.HasSpaceForRow(lens) {
		return 0, ErrPageFull
	}
	off, ok := p.allocFixedSlot()
	if !ok {
		return 0, ErrPageFull
	}
	copy(p.buf[off:int(off)+int(p.rowSize)], fixedBytes)

	idx := 0
	var werr error
	VisitVarLenRefs(p.buf[off:int(off)+int(p.rowSize)], rowType, func(relOff int) {
		if werr != nil || idx >= len(varObjects) {
			return
		}
		obj := varObjects[idx]
		idx++
		ref, err := p.allocObject(obj, store)
		if err != nil {
			werr = err
			return
		}
		writeVarLenRef(p.buf[off:int(off)+int(p.rowSize)], relOff, ref)
	})
	if werr != nil {
		delete(p.liveRows, off)
		p.fixedFreelist = append(p.fixedFreelist, uint16(off))
		return 0, werr
	}
	p.liveRows[off] = struct{}{}
	return off, nil
}

// DeleteRow frees off's var-len objects and returns its fixed slot to
// the freelist.
func (p *Page) DeleteRow(off types.PageOffset, rowType sats.AlgebraicType, store blob.Store) error {
	if _, live := p.liveRows[off]; !live {
		return errors.New("page: delete of non-live row")
	}
	row := p.buf[off : int(off)+int(p.rowSize)]
	var ferr error
	VisitVarLenRefs(row, rowType, func(relOff int) {
		if ferr != nil {
			return
		}
		ref := readVarLenRef(row, relOff)
		if err := p.freeObject(ref, store); err != nil {
			ferr = err
		}
	})
	if ferr != nil {
		return ferr
	}
	delete(p.liveRows, off)
	p.fixedFreelist = append(p.fixedFreelist, uint16(off))
	return nil
}

// GetRowData returns the live fixed-region bytes for off.
func (p *Page) GetRowData(off types.PageOffset) []byte {
	return p.buf[off : int(off)+int(p.rowSize)]
}

// IsLive reports whether off currently holds a live row.
func (p *Page) IsLive(off types.PageOffset) bool {
	_, ok := p.liveRows[off]
	return ok
}

// IterLive calls visit with the offset of every live row, in
// unspecified order.
func (p *Page) IterLive(visit func(types.PageOffset)) {
	for off := range p.liveRows {
		visit(off)
	}
}

// ReadObject reconstructs the full bytes of a var-len object, given
// its VarLenRef as found inline in a row's fixed bytes.
func (p *Page) ReadObject(ref varlen.VarLenRef, store blob.Store) ([]byte, error) {
	return p.readObject(ref, store)
}

// ReadVarLenRef reads the VarLenRef stored at relOff within off's row.
func (p *Page) ReadVarLenRef(off types.PageOffset, relOff int) varlen.VarLenRef {
	return readVarLenRef(p.buf[off:int(off)+int(p.rowSize)], relOff)
}

// ReadVarLenObject reads the VarLenRef stored at relOff within off's
// row and resolves it to the object bytes it refers to.
func (p *Page) ReadVarLenObject(off types.PageOffset, relOff int, store blob.Store) ([]byte, error) {
	ref := p.ReadVarLenRef(off, relOff)
	return p.readObject(ref, store)
}

// EqRowInPage compares the rows at offA (in a) and offB (in b) for
// BFLATN equality: fixed bytes compare directly except at var-len
// positions, where actual referenced content is compared (by hash
// only, for large blobs).
func EqRowInPage(a *Page, offA types.PageOffset, b *Page, offB types.PageOffset, rowType sats.AlgebraicType) bool {
	return eqValue(a.buf[:], b.buf[:], rowType, int(offA), int(offB))
}

func eqValue(bufA, bufB []byte, t sats.AlgebraicType, offA, offB int) bool {
	switch t.Kind {
	case sats.KindString, sats.KindArray:
		refA := readVarLenRef(bufA, offA)
		refB := readVarLenRef(bufB, offB)
		return eqObject(bufA, refA, bufB, refB)
	case sats.KindProduct:
		subA, subB := offA, offB
		for _, elem := range t.Elems {
			l := ComputeLayout(elem.Type)
			subA = int(align(uint16(subA), l.Align))
			subB = int(align(uint16(subB), l.Align))
			if !eqValue(bufA, bufB, elem.Type, subA, subB) {
				return false
			}
			subA += int(l.Size)
			subB += int(l.Size)
		}
		return true
	case sats.KindSum:
		var payloadSize uint16
		for _, v := range t.Variants {
			l := ComputeLayout(v.Type)
			if l.Size > payloadSize {
				payloadSize = l.Size
			}
		}
		tagA := bufA[offA+int(payloadSize)]
		tagB := bufB[offB+int(payloadSize)]
		if tagA != tagB {
			return false
		}
		if int(tagA) >= len(t.Variants) {
			return false
		}
		return eqValue(bufA, bufB, t.Variants[tagA].Type, offA, offB)
	default:
		l := ComputeLayout(t)
		for i := 0; i < int(l.Size); i++ {
			if bufA[offA+i] != bufB[offB+i] {
				return false
			}
		}
		return true
	}
}

// eqObject compares var-len payloads inline (since this helper has no
// access to a Page's granule storage directly, it is only called from
// EqRowInPage which closes over two *Page's backing arrays via bufA/
// bufB capturing the whole page buffer, so granule bytes beyond the
// row's fixed region remain reachable through those same slices).
func eqObject(bufA []byte, refA varlen.VarLenRef, bufB []byte, refB varlen.VarLenRef) bool {
	if refA.IsLargeBlob() != refB.IsLargeBlob() {
		return false
	}
	if refA.LengthInBytes != refB.LengthInBytes {
		return false
	}
	if refA.LengthInBytes == 0 {
		return true
	}
	if refA.IsLargeBlob() {
		hashA := readGranuleDataAt(bufA, refA.FirstGranule, 32)
		hashB := readGranuleDataAt(bufB, refB.FirstGranule, 32)
		return string(hashA) == string(hashB)
	}
	dataA := readChainAt(bufA, refA)
	dataB := readChainAt(bufB, refB)
	return string(dataA) == string(dataB)
}

func readGranuleDataAt(buf []byte, off types.PageOffset, n int) []byte {
	return buf[int(off)+2 : int(off)+2+n]
}

func readChainAt(buf []byte, ref varlen.VarLenRef) []byte {
	out := make([]byte, 0, ref.LengthInBytes)
	remaining := int(ref.LengthInBytes)
	off := ref.FirstGranule
	for remaining > 0 {
		hdr := varlen.GranuleHeader(binary.LittleEndian.Uint16(buf[off:]))
		n := int(hdr.Len())
		if n > remaining {
			n = remaining
		}
		out = append(out, buf[int(off)+2:int(off)+2+n]...)
		remaining -= n
		next, has := hdr.Next()
		if !has {
			break
		}
		off = next
	}
	return out
}

// HashRowInPage computes a stable hash of the row at off, independent
// of allocation order: equal BFLATN values always hash equal.
func HashRowInPage(p *Page, off types.PageOffset, rowType sats.AlgebraicType) types.RowHash {
	h := fnv.New64a()
	hashValue(h, p.buf[:], rowType, int(off))
	return types.RowHash(h.Sum64())
}

func hashValue(h interface{ Write([]byte) (int, error) }, buf []byte, t sats.AlgebraicType, off int) {
	switch t.Kind {
	case sats.KindString, sats.KindArray:
		ref := readVarLenRef(buf, off)
		var lenPrefix [2]byte
		binary.LittleEndian.PutUint16(lenPrefix[:], ref.LengthInBytes)
		h.Write(lenPrefix[:])
		if ref.LengthInBytes == 0 {
			return
		}
		if ref.IsLargeBlob() {
			h.Write(readGranuleDataAt(buf, ref.FirstGranule, 32))
			return
		}
		h.Write(readChainAt(buf, ref))
	case sats.KindProduct:
		sub := off
		for _, elem := range t.Elems {
			l := ComputeLayout(elem.Type)
			sub = int(align(uint16(sub), l.Align))
			hashValue(h, buf, elem.Type, sub)
			sub += int(l.Size)
		}
	case sats.KindSum:
		var payloadSize uint16
		for _, v := range t.Variants {
			l := ComputeLayout(v.Type)
			if l.Size > payloadSize {
				payloadSize = l.Size
			}
		}
		tag := buf[off+int(payloadSize)]
		h.Write([]byte{tag})
		if int(tag) < len(t.Variants) {
			hashValue(h, buf, t.Variants[tag].Type, off)
		}
	default:
		l := ComputeLayout(t)
		h.Write(buf[off : off+int(l.Size)])
	}
}
