package fat

import (
	"encoding/binary"

	"github.com/noxer/bytewriter"
)

// direntSize is the size in bytes of every directory record, short-name and
// long-name alike.
const direntSize = 32

// lastEntryMarker in byte 0 of a directory record means this slot and every
// one after it in the directory have never been used.
const lastEntryMarker = 0x00

// freeEntryMarker in byte 0 of a directory record means this slot held an
// entry that has since been deleted; the directory may still have live
// entries further on.
const freeEntryMarker = 0xE5

// RawSFN is the on-disk 8.3 short-name directory record.
type RawSFN struct {
	Name             [8]byte
	Extension        [3]byte
	Attr             uint8
	NTReserved       uint8
	CreateTimeTenths uint8
	CreateTime       uint16
	CreateDate       uint16
	LastAccessDate   uint16
	FirstClusterHi   uint16
	WriteTime        uint16
	WriteDate        uint16
	FirstClusterLo   uint16
	FileSize         uint32
}

// FirstCluster reassembles the split cluster number FAT stores across two
// fields of a short-name entry.
func (s RawSFN) FirstCluster() ClusterID {
	return ClusterID(uint32(s.FirstClusterHi)<<16 | uint32(s.FirstClusterLo))
}

// SetFirstCluster splits a cluster number across the two fields FAT expects.
func (s *RawSFN) SetFirstCluster(cluster ClusterID) {
	s.FirstClusterHi = uint16(uint32(cluster) >> 16)
	s.FirstClusterLo = uint16(uint32(cluster) & 0xFFFF)
}

// decodeSFN reads a 32-byte short-name record out of a directory sector.
func decodeSFN(entry []byte) RawSFN {
	var s RawSFN
	copy(s.Name[:], entry[0:8])
	copy(s.Extension[:], entry[8:11])
	s.Attr = entry[11]
	s.NTReserved = entry[12]
	s.CreateTimeTenths = entry[13]
	s.CreateTime = binary.LittleEndian.Uint16(entry[14:16])
	s.CreateDate = binary.LittleEndian.Uint16(entry[16:18])
	s.LastAccessDate = binary.LittleEndian.Uint16(entry[18:20])
	s.FirstClusterHi = binary.LittleEndian.Uint16(entry[20:22])
	s.WriteTime = binary.LittleEndian.Uint16(entry[22:24])
	s.WriteDate = binary.LittleEndian.Uint16(entry[24:26])
	s.FirstClusterLo = binary.LittleEndian.Uint16(entry[26:28])
	s.FileSize = binary.LittleEndian.Uint32(entry[28:32])
	return s
}

// encodeSFN serializes a short-name record into a fresh 32-byte slice, using
// the same bytewriter-plus-binary.Write idiom used elsewhere for other
// fixed-layout on-disk records.
func encodeSFN(s RawSFN) []byte {
	buf := make([]byte, direntSize)
	w := bytewriter.New(buf)
	_, _ = w.Write(s.Name[:])
	_, _ = w.Write(s.Extension[:])
	_ = binary.Write(w, binary.LittleEndian, s.Attr)
	_ = binary.Write(w, binary.LittleEndian, s.NTReserved)
	_ = binary.Write(w, binary.LittleEndian, s.CreateTimeTenths)
	_ = binary.Write(w, binary.LittleEndian, s.CreateTime)
	_ = binary.Write(w, binary.LittleEndian, s.CreateDate)
	_ = binary.Write(w, binary.LittleEndian, s.LastAccessDate)
	_ = binary.Write(w, binary.LittleEndian, s.FirstClusterHi)
	_ = binary.Write(w, binary.LittleEndian, s.WriteTime)
	_ = binary.Write(w, binary.LittleEndian, s.WriteDate)
	_ = binary.Write(w, binary.LittleEndian, s.FirstClusterLo)
	_ = binary.Write(w, binary.LittleEndian, s.FileSize)
	return buf
}

// RawLFN is one 32-byte fragment of a VFAT long-filename record. A long name
// is stored as a run of these immediately preceding the short-name entry
// they describe, in reverse order (highest ordinal first on disk).
type RawLFN struct {
	Ordinal          uint8
	Name1            [5]uint16 // UCS-2 code units 0-4 of this fragment
	Attr             uint8     // always AttrLongName
	Type             uint8     // always 0
	Checksum         uint8     // checksum of the associated short name
	Name2            [6]uint16 // UCS-2 code units 5-10
	FirstClusterZero uint16    // always 0
	Name3            [2]uint16 // UCS-2 code units 11-12
}

// lastLFNOrdinalBit marks the fragment holding the end of the name (the
// highest-numbered fragment, stored first on disk).
const lastLFNOrdinalBit = 0x40

// maxLFNFragments bounds how many 13-character fragments a single long name
// can be split across (ordinal values 1-20, which is already enough for a
// 255-character name).
const maxLFNFragments = 20

// lfnCharsPerFragment is the number of UCS-2 code units packed into each
// fragment record (5 + 6 + 2).
const lfnCharsPerFragment = 13

func decodeLFN(entry []byte) RawLFN {
	var l RawLFN
	l.Ordinal = entry[0]
	for i := 0; i < 5; i++ {
		l.Name1[i] = binary.LittleEndian.Uint16(entry[1+2*i : 3+2*i])
	}
	l.Attr = entry[11]
	l.Type = entry[12]
	l.Checksum = entry[13]
	for i := 0; i < 6; i++ {
		l.Name2[i] = binary.LittleEndian.Uint16(entry[14+2*i : 16+2*i])
	}
	l.FirstClusterZero = binary.LittleEndian.Uint16(entry[26:28])
	for i := 0; i < 2; i++ {
		l.Name3[i] = binary.LittleEndian.Uint16(entry[28+2*i : 30+2*i])
	}
	return l
}

func encodeLFN(l RawLFN) []byte {
	buf := make([]byte, direntSize)
	w := bytewriter.New(buf)
	_ = binary.Write(w, binary.LittleEndian, l.Ordinal)
	_ = binary.Write(w, binary.LittleEndian, l.Name1)
	_ = binary.Write(w, binary.LittleEndian, l.Attr)
	_ = binary.Write(w, binary.LittleEndian, l.Type)
	_ = binary.Write(w, binary.LittleEndian, l.Checksum)
	_ = binary.Write(w, binary.LittleEndian, l.Name2)
	_ = binary.Write(w, binary.LittleEndian, l.FirstClusterZero)
	_ = binary.Write(w, binary.LittleEndian, l.Name3)
	return buf
}

// entryChars returns the 13 UCS-2 code units this fragment encodes, in
// name order.
func (l RawLFN) entryChars() [lfnCharsPerFragment]uint16 {
	var chars [lfnCharsPerFragment]uint16
	copy(chars[0:5], l.Name1[:])
	copy(chars[5:11], l.Name2[:])
	copy(chars[11:13], l.Name3[:])
	return chars
}

func isLastEntry(entry []byte) bool {
	return entry[0] == lastEntryMarker
}

func isFreeEntry(entry []byte) bool {
	return entry[0] == freeEntryMarker
}

func isLFNEntry(entry []byte) bool {
	return entry[11]&AttrLongNameMask == AttrLongName
}

// isSFNEntry reports whether entry is a real file or directory record: in
// use, not a long-name fragment, not the volume label, and carrying the
// directory or archive bit.
func isSFNEntry(entry []byte) bool {
	if isLastEntry(entry) || isFreeEntry(entry) || isLFNEntry(entry) {
		return false
	}
	attr := entry[11]
	return attr != AttrVolumeID && attr&(AttrDirectory|AttrArchive) != 0
}
