package fat

import (
	"strconv"
	"strings"
	"unicode/utf16"

	bitmap "github.com/boljen/go-bitmap"
)

// sfnChecksum computes the checksum VFAT stores in every long-name fragment
// so a directory scanner can tell whether an LFN run actually belongs to the
// short-name entry that follows it, or is an orphan left behind by a program
// that only understands 8.3 names.
func sfnChecksum(name [8]byte, ext [3]byte) uint8 {
	var sum uint8
	for _, b := range append(append([]byte{}, name[:]...), ext[:]...) {
		sum = ((sum & 1) << 7) + (sum >> 1) + b
	}
	return sum
}

// lfnCache accumulates long-name fragments encountered while scanning a
// directory, in whatever order they're read in, and assembles them into a
// full name once the short-name entry terminating the run is reached.
//
// Fragments arrive highest-ordinal-first on disk but the cache stores them by
// ordinal so Get can emit the name in reading order regardless of scan
// direction. presence tracks, one bit per slot, which of the up to
// maxLFNFragments slots have been filled.
type lfnCache struct {
	presence bitmap.Bitmap
	chars    [maxLFNFragments][lfnCharsPerFragment]uint16
	count    int
	checksum uint8
}

func newLFNCache() *lfnCache {
	c := &lfnCache{presence: bitmap.New(maxLFNFragments)}
	c.Reset()
	return c
}

// Reset discards any in-progress long-name assembly. Called whenever a scan
// crosses a last(), free(), or short-name entry that isn't the continuation
// of the run currently being built.
func (c *lfnCache) Reset() {
	for i := 0; i < maxLFNFragments; i++ {
		c.presence.Set(i, false)
	}
	c.count = 0
	c.checksum = 0
}

// Add records one fragment of a long name. ordinal is 1-based; the
// lastLFNOrdinalBit flag is expected to already be masked off by the caller.
func (c *lfnCache) Add(ordinal int, checksum uint8, chars [lfnCharsPerFragment]uint16) {
	if ordinal < 1 || ordinal > maxLFNFragments {
		return
	}
	c.presence.Set(ordinal-1, true)
	c.chars[ordinal-1] = chars
	if ordinal > c.count {
		c.count = ordinal
	}
	c.checksum = checksum
}

// Get assembles the cached fragments into a name, returning false if any
// fragment in the run [1, count] is missing (a torn or corrupted LFN run).
func (c *lfnCache) Get() (string, bool) {
	if c.count == 0 {
		return "", false
	}
	units := make([]uint16, 0, c.count*lfnCharsPerFragment)
	for i := 0; i < c.count; i++ {
		if !c.presence.Get(i) {
			return "", false
		}
		for _, u := range c.chars[i] {
			if u == 0x0000 || u == 0xFFFF {
				return string(utf16.Decode(units)), true
			}
			units = append(units, u)
		}
	}
	return string(utf16.Decode(units)), true
}

// Compare reports whether a short name's checksum matches the one recorded
// against the cached long-name run, i.e. whether the LFN run actually
// belongs to that short entry rather than being an orphan.
func (c *lfnCache) Compare(shortName [8]byte, shortExt [3]byte) bool {
	return c.count > 0 && sfnChecksum(shortName, shortExt) == c.checksum
}

// emitLFN splits name into the RawLFN fragments that must precede its
// short-name entry on disk, in on-disk order (highest ordinal first, with
// the last-fragment bit set on that first record).
func emitLFN(name string, checksum uint8) []RawLFN {
	units := utf16.Encode([]rune(name))

	numFragments := (len(units) + lfnCharsPerFragment - 1) / lfnCharsPerFragment
	if numFragments == 0 {
		numFragments = 1
	}

	fragments := make([]RawLFN, numFragments)
	for i := 0; i < numFragments; i++ {
		start := i * lfnCharsPerFragment
		var chars [lfnCharsPerFragment]uint16
		for j := 0; j < lfnCharsPerFragment; j++ {
			idx := start + j
			switch {
			case idx < len(units):
				chars[j] = units[idx]
			case idx == len(units):
				chars[j] = 0x0000
			default:
				chars[j] = 0xFFFF
			}
		}

		frag := RawLFN{
			Ordinal:  uint8(i + 1),
			Attr:     AttrLongName,
			Checksum: checksum,
		}
		copy(frag.Name1[:], chars[0:5])
		copy(frag.Name2[:], chars[5:11])
		copy(frag.Name3[:], chars[11:13])
		fragments[i] = frag
	}

	fragments[numFragments-1].Ordinal |= lastLFNOrdinalBit

	// Disk order is highest ordinal first.
	for i, j := 0, len(fragments)-1; i < j; i, j = i+1, j-1 {
		fragments[i], fragments[j] = fragments[j], fragments[i]
	}
	return fragments
}

// lfnToSFN derives an 8.3 short name from a long name, uppercasing it and
// stripping characters 8.3 names can't hold. tail, when non-zero, requests
// the "~N" numeric-tail form used to disambiguate a long name from others
// that collapse to the same short name.
//
// This splits the extension at the FIRST '.' in the name rather than the
// last, which is a deliberate departure from the real FAT short-name
// generation algorithm (which uses the last dot) inherited from the
// embedded driver this package is modeled on. "archive.tar.gz" therefore
// becomes "ARCHIVE.TAR", not "ARCHIV~1.GZ".
func lfnToSFN(name string, tail int) (base [8]byte, ext [3]byte) {
	upper := strings.ToUpper(name)

	stem := upper
	extension := ""
	if dot := strings.IndexByte(upper, '.'); dot >= 0 {
		stem = upper[:dot]
		extension = upper[dot+1:]
	}

	stem = stripSFNChars(stem)
	extension = stripSFNChars(extension)

	if len(extension) > 3 {
		extension = extension[:3]
	}

	if len(stem) > 8 {
		stem = stem[:8]
	}

	for i := 0; i < 8; i++ {
		if i < len(stem) {
			base[i] = stem[i]
		} else {
			base[i] = ' '
		}
	}

	// The tail overwrites the last bytes of the 8-byte field regardless of
	// stem length: "AB" with tail 1 becomes "AB    ~1", not "AB~1    ".
	if tail > 0 {
		suffix := "~" + strconv.Itoa(tail)
		copy(base[8-len(suffix):], suffix)
	}
	for i := 0; i < 3; i++ {
		if i < len(extension) {
			ext[i] = extension[i]
		} else {
			ext[i] = ' '
		}
	}
	return base, ext
}

// stripSFNChars removes characters the 8.3 namespace can't represent
// (spaces and the handful of punctuation marks reserved by FAT), leaving
// everything else — including non-ASCII bytes, which the original driver
// passes through uninterpreted — alone.
func stripSFNChars(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case ' ', '.', '"', '*', '/', ':', '<', '>', '?', '\\', '|', '+', ',', ';', '=', '[', ']':
			continue
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
