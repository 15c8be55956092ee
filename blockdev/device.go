// Package blockdev defines the narrow contract between the FAT filesystem
// core and the underlying block device (an SD card accessed through SPI, a
// raw disk image, or anything else that can read and write fixed-size
// sectors), plus the single-sector cache that sits in front of it.
package blockdev

// SectorSize is the fixed size of a logical block the core ever addresses.
// The core never does byte-level addressing; if the underlying media needs
// that (e.g. small SD cards without the CCS bit set), the BlockDevice
// implementation is responsible for the LBA-to-byte-offset multiplication.
const SectorSize = 512

// BlockDevice is the only thing the filesystem core asks of the layer below
// it: read a sector by logical block address into a caller-owned buffer, and
// write a sector from a caller-owned buffer. Everything else — SPI framing,
// CMD0/CMD8/ACMD41 initialization, CSD/CID parsing, pin wiring — lives
// outside this module.
type BlockDevice interface {
	// ReadSector fills out (which must be exactly SectorSize bytes) with the
	// contents of logical block lba.
	ReadSector(lba uint32, out []byte) error

	// WriteSector writes in (which must be exactly SectorSize bytes) to
	// logical block lba.
	WriteSector(lba uint32, in []byte) error

	// IsPresent reports whether the device is currently reachable, e.g.
	// whether an SD card is seated. A device that is not present fails every
	// read and write.
	IsPresent() bool
}
