package parser

import (
	"encoding/binary"

	"github.com/lcalzada-xor/dgramsniff/internal/core/domain"
)

// The RxControl block is three little-endian 32-bit words, fields packed
// from the least significant bit up.
//
//	word0: rssi:8 rate:4 is_group:1 -:1 sig_mode:2 legacy_length:12
//	       damatch0:1 damatch1:1 bssidmatch0:1 bssidmatch1:1
//	word1: mcs:7 cwb:1 ht_length:16 smoothing:1 not_sounding:1 -:1
//	       aggregation:1 stbc:2 fec_coding:1 sgi:1
//	word2: rxend_state:8 ampdu_cnt:8 channel:4 -:12

func bits(w uint32, shift, width uint) uint32 {
	return (w >> shift) & (1<<width - 1)
}

func bit(w uint32, shift uint) bool {
	return (w>>shift)&1 == 1
}

// DecodeRxControl reads the radio metadata at the start of buf.
func DecodeRxControl(buf []byte) (domain.RxControl, error) {
	var r domain.RxControl
	if len(buf) < domain.RxControlLen {
		return r, domain.ErrTooShort
	}
	w0 := binary.LittleEndian.Uint32(buf[0:4])
	w1 := binary.LittleEndian.Uint32(buf[4:8])
	w2 := binary.LittleEndian.Uint32(buf[8:12])

	r.RSSI = int8(bits(w0, 0, 8))
	r.Rate = uint8(bits(w0, 8, 4))
	r.IsGroup = bit(w0, 12)
	r.SigMode = uint8(bits(w0, 14, 2))
	r.LegacyLength = uint16(bits(w0, 16, 12))
	r.DAMatch0 = bit(w0, 28)
	r.DAMatch1 = bit(w0, 29)
	r.BSSIDMatch0 = bit(w0, 30)
	r.BSSIDMatch1 = bit(w0, 31)

	r.MCS = uint8(bits(w1, 0, 7))
	r.CWB = bit(w1, 7)
	r.HTLength = uint16(bits(w1, 8, 16))
	r.Smoothing = bit(w1, 24)
	r.NotSounding = bit(w1, 25)
	r.Aggregation = bit(w1, 27)
	r.STBC = uint8(bits(w1, 28, 2))
	r.FECCoding = bit(w1, 30)
	r.SGI = bit(w1, 31)

	r.RxEndState = uint8(bits(w2, 0, 8))
	r.AMPDUCount = uint8(bits(w2, 8, 8))
	r.Channel = uint8(bits(w2, 16, 4))
	return r, nil
}

func put(w *uint32, v uint32, shift, width uint) {
	*w |= (v & (1<<width - 1)) << shift
}

func putBit(w *uint32, v bool, shift uint) {
	if v {
		*w |= 1 << shift
	}
}

// EncodeRxControl packs r into the 12-byte wire form, the inverse of
// DecodeRxControl. Radio adapters that emulate the promiscuous callback use
// it to build capture buffers.
func EncodeRxControl(r domain.RxControl) [domain.RxControlLen]byte {
	var w0, w1, w2 uint32

	put(&w0, uint32(uint8(r.RSSI)), 0, 8)
	put(&w0, uint32(r.Rate), 8, 4)
	putBit(&w0, r.IsGroup, 12)
	put(&w0, uint32(r.SigMode), 14, 2)
	put(&w0, uint32(r.LegacyLength), 16, 12)
	putBit(&w0, r.DAMatch0, 28)
	putBit(&w0, r.DAMatch1, 29)
	putBit(&w0, r.BSSIDMatch0, 30)
	putBit(&w0, r.BSSIDMatch1, 31)

	put(&w1, uint32(r.MCS), 0, 7)
	putBit(&w1, r.CWB, 7)
	put(&w1, uint32(r.HTLength), 8, 16)
	putBit(&w1, r.Smoothing, 24)
	putBit(&w1, r.NotSounding, 25)
	putBit(&w1, r.Aggregation, 27)
	put(&w1, uint32(r.STBC), 28, 2)
	putBit(&w1, r.FECCoding, 30)
	putBit(&w1, r.SGI, 31)

	put(&w2, uint32(r.RxEndState), 0, 8)
	put(&w2, uint32(r.AMPDUCount), 8, 8)
	put(&w2, uint32(r.Channel), 16, 4)

	var out [domain.RxControlLen]byte
	binary.LittleEndian.PutUint32(out[0:4], w0)
	binary.LittleEndian.PutUint32(out[4:8], w1)
	binary.LittleEndian.PutUint32(out[8:12], w2)
	return out
}
