package blockdev

import (
	"github.com/jhartell/fatfs"
)

// noSector is the "none loaded" sentinel for loadedSector. Sector 0 is a
// legitimate LBA (it holds the MBR), so the sentinel can't be 0.
const noSector = ^uint32(0)

// SectorCache wraps a BlockDevice with the single 512-byte sector buffer the
// rest of the core shares. Every subsystem — the FAT table engine, the
// directory entry engine, file data reads — lands its I/O in this one
// buffer, so the invalidation discipline below is load-bearing: after any
// operation that may have issued an intermediate sector transfer (a FAT
// lookup during chain-extension, for instance), the buffer must either still
// hold what the caller expects, or loadedSector must be reset to "none" so
// the next read doesn't return stale data.
type SectorCache struct {
	dev          BlockDevice
	buffer       [SectorSize]byte
	loadedSector uint32
}

// NewSectorCache creates a cache with nothing loaded.
func NewSectorCache(dev BlockDevice) *SectorCache {
	return &SectorCache{dev: dev, loadedSector: noSector}
}

// Buffer returns the cache's single sector buffer. Callers that mutate it in
// place must follow up with WriteSector (and, if they performed any
// intervening FAT lookup, the save/restore dance described on SaveBuffer).
func (c *SectorCache) Buffer() []byte {
	return c.buffer[:]
}

// LoadedSector reports the LBA currently resident in the buffer, and false if
// nothing is loaded.
func (c *SectorCache) LoadedSector() (uint32, bool) {
	if c.loadedSector == noSector {
		return 0, false
	}
	return c.loadedSector, true
}

// ReadSector returns the cache's buffer populated with sector lba. A read is
// a no-op when lba is already resident (cache hit); otherwise it fetches from
// the device and records lba as loaded.
func (c *SectorCache) ReadSector(lba uint32) ([]byte, error) {
	if !c.dev.IsPresent() {
		return nil, fatfs.ErrIO.WithMessage("device not present")
	}
	if c.loadedSector == lba {
		return c.buffer[:], nil
	}

	if err := c.dev.ReadSector(lba, c.buffer[:]); err != nil {
		c.loadedSector = noSector
		return nil, fatfs.ErrIO.Wrap(err)
	}
	c.loadedSector = lba
	return c.buffer[:], nil
}

// WriteSector writes the cache's current buffer contents to sector lba. A
// write does NOT change loadedSector unless the caller explicitly
// invalidates it first — the buffer may hold data for a different sector
// than the one just written (this happens routinely: a directory write
// reuses the same buffer that a FAT lookup just overwrote, after the caller
// has restored it).
func (c *SectorCache) WriteSector(lba uint32) error {
	if !c.dev.IsPresent() {
		return fatfs.ErrIO.WithMessage("device not present")
	}
	if err := c.dev.WriteSector(lba, c.buffer[:]); err != nil {
		return fatfs.ErrIO.Wrap(err)
	}
	return nil
}

// Invalidate marks the buffer as holding no known sector. Any higher-layer
// operation that writes to a sector other than the one currently loaded
// (most notably a FAT-table lookup performed in the middle of a
// write-chain-sector call) must save the buffer, do the lookup, restore the
// buffer, and call Invalidate before the final WriteSector — the cache must
// never claim to hold a sector it has not re-read since an intervening write
// touched the buffer.
func (c *SectorCache) Invalidate() {
	c.loadedSector = noSector
}

// SaveBuffer returns a copy of the current buffer contents. Use this before
// an operation that might issue its own sector reads into the shared buffer
// (e.g. a FAT-table hop), then pass the result to RestoreBuffer afterward.
func (c *SectorCache) SaveBuffer() [SectorSize]byte {
	return c.buffer
}

// RestoreBuffer overwrites the buffer with previously saved contents and
// invalidates the cache, since the restored contents have not actually been
// re-read from lba.
func (c *SectorCache) RestoreBuffer(saved [SectorSize]byte) {
	c.buffer = saved
	c.Invalidate()
}
