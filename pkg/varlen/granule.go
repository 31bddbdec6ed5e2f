package varlen

import "github.com/cuemby/warren/pkg/types"

const (
	// GranuleSize is the total size in bytes of one var-len granule.
	GranuleSize = 64
	// GranuleDataSize is how many payload bytes a granule carries.
	GranuleDataSize = GranuleSize - 2
	// GranuleAlign is the alignment of granule offsets within a page.
	GranuleAlign = 64

	granuleLenBits = 6
	granuleLenMask = 0x3F

	// ObjectMaxGranulesBeforeBlob is the largest number of granules an
	// object may occupy before it is redirected into the blob store.
	ObjectMaxGranulesBeforeBlob = 16
	// ObjectSizeBlobThreshold is the largest byte length an object may
	// have before it is redirected into the blob store.
	ObjectSizeBlobThreshold = GranuleDataSize * ObjectMaxGranulesBeforeBlob

	// LargeBlobSentinel marks a VarLenRef whose data lives in the blob
	// store rather than in an ordinary granule chain.
	LargeBlobSentinel = 0xFFFF
)

// GranuleHeader packs a 6-bit payload length and a 10-bit pointer to
// the next granule in the chain (encoded as offset/GranuleAlign, with
// 0 meaning "no next granule": offset 0 is the start of the page's
// fixed region and never holds a granule). Packing the fields
// independently into disjoint bit ranges means a header's length and
// next-pointer can be set and read back without disturbing one another.
type GranuleHeader uint16

// EncodeGranuleHeader builds a header for a granule holding `length`
// live bytes (0..=GranuleDataSize) and, if hasNext, chained to the
// granule at byte offset `next` (which must be a nonzero multiple of
// GranuleAlign).
func EncodeGranuleHeader(length uint8, next types.PageOffset, hasNext bool) GranuleHeader {
	nextField := uint16(0)
	if hasNext {
		nextField = uint16(next / GranuleAlign)
	}
	return GranuleHeader(uint16(length&granuleLenMask) | (nextField << granuleLenBits))
}

// Len returns the number of live payload bytes in the granule.
func (h GranuleHeader) Len() uint8 {
	return uint8(h) & granuleLenMask
}

// Next returns the offset of the next granule in the chain, and
// whether one exists.
func (h GranuleHeader) Next() (types.PageOffset, bool) {
	nextField := uint16(h) >> granuleLenBits
	if nextField == 0 {
		return 0, false
	}
	return types.PageOffset(nextField * GranuleAlign), true
}

// Granule is one 64-byte node in a var-len object's byte chain.
type Granule struct {
	Header GranuleHeader
	Data   [GranuleDataSize]byte
}

// VarLenRef is the 4-byte inline placeholder stored in a row's fixed
// region for a String or Array column. LengthInBytes is the total
// byte length of the encoded object; FirstGranule is the offset of
// the first granule in its chain (meaningless when LengthInBytes==0).
type VarLenRef struct {
	LengthInBytes uint16
	FirstGranule  types.PageOffset
}

// IsLargeBlob reports whether r redirects through the blob store
// rather than an ordinary granule chain.
func (r VarLenRef) IsLargeBlob() bool {
	return r.LengthInBytes == LargeBlobSentinel
}

// LargeBlob builds a VarLenRef pointing at the single granule holding
// a blob hash for an object stored in the blob store.
func LargeBlob(hashGranule types.PageOffset) VarLenRef {
	return VarLenRef{LengthInBytes: LargeBlobSentinel, FirstGranule: hashGranule}
}

// GranulesUsed returns how many ordinary granules this ref's chain
// occupies. It is meaningless (and unused) for large-blob refs, which
// always occupy exactly one granule (holding the hash).
func (r VarLenRef) GranulesUsed() int {
	count, _ := BytesToGranules(int(r.LengthInBytes))
	return count
}

// BytesToGranules returns how many granules are needed to hold n
// bytes of ordinary (non-blob) payload, and whether n exceeds the
// large-blob threshold and should be redirected into the blob store
// instead.
func BytesToGranules(n int) (count int, needsBlob bool) {
	if n > ObjectSizeBlobThreshold {
		return 1, true
	}
	if n == 0 {
		return 0, false
	}
	return (n + GranuleDataSize - 1) / GranuleDataSize, false
}
