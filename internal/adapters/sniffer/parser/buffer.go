package parser

import (
	"encoding/binary"

	"github.com/lcalzada-xor/dgramsniff/internal/core/domain"
)

// Layout offsets inside the fixed capture buffers.
const (
	headerOffset      = domain.RxControlLen
	largeFrameEnd     = domain.LargeBufferLen - 4 // count + len
	smallHeaderRegion = 36
	smallFrameEnd     = headerOffset + smallHeaderRegion
)

var layouts = [...]domain.BufferLayout{
	domain.VariantUnclassified:     {Variant: domain.VariantUnclassified, HeaderOffset: -1, FrameEnd: -1, TrailerOffset: -1},
	domain.VariantRxControlOnly:    {Variant: domain.VariantRxControlOnly, HeaderOffset: -1, FrameEnd: -1, TrailerOffset: -1},
	domain.VariantSingleFrame:      {Variant: domain.VariantSingleFrame, HeaderOffset: headerOffset, FrameEnd: largeFrameEnd, TrailerOffset: largeFrameEnd, CarriesBody: true},
	domain.VariantAggregatedOrData: {Variant: domain.VariantAggregatedOrData, HeaderOffset: headerOffset, FrameEnd: smallFrameEnd, TrailerOffset: smallFrameEnd},
}

// ClassifyBuffer picks the buffer variant from its length alone.
// It never looks at the bytes.
func ClassifyBuffer(length int) domain.BufferVariant {
	switch length {
	case domain.RxControlLen:
		return domain.VariantRxControlOnly
	case domain.LargeBufferLen:
		return domain.VariantSingleFrame
	case domain.SmallBufferLen:
		return domain.VariantAggregatedOrData
	}
	return domain.VariantUnclassified
}

// LayoutFor returns the fixed offsets of a variant.
func LayoutFor(v domain.BufferVariant) domain.BufferLayout {
	if int(v) >= len(layouts) {
		return layouts[domain.VariantUnclassified]
	}
	return layouts[v]
}

// DecodeTrailer reads the count/len bookkeeping after the frame bytes.
// It returns false when the layout has no trailer or buf does not match it.
func DecodeTrailer(buf []byte, layout domain.BufferLayout) (domain.CaptureTrailer, bool) {
	var t domain.CaptureTrailer
	off := layout.TrailerOffset
	if off < 0 || off+4 > len(buf) {
		return t, false
	}
	t.Count = binary.LittleEndian.Uint16(buf[off:])
	t.Length = binary.LittleEndian.Uint16(buf[off+2:])

	if layout.Variant == domain.VariantAggregatedOrData && off+12 <= len(buf) {
		t.Seq = binary.LittleEndian.Uint16(buf[off+4:])
		copy(t.Address3[:], buf[off+6:off+12])
		t.HasSeq = true
	}
	return t, true
}
