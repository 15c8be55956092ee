package blockdev

import (
	"io"

	"github.com/xaionaro-go/bytesextra"
)

// MemoryDevice is a BlockDevice backed by an in-memory byte slice. It stands
// in for the SD card in tests, where the "device" is just a disk image held
// in memory. (The fatcat CLI tool uses FileDevice instead.)
type MemoryDevice struct {
	stream  io.ReadWriteSeeker
	present bool
}

// NewMemoryDevice wraps image (whose length must be a multiple of
// SectorSize) as a BlockDevice. The returned device reports itself present.
func NewMemoryDevice(image []byte) *MemoryDevice {
	return &MemoryDevice{
		stream:  bytesextra.NewReadWriteSeeker(image),
		present: true,
	}
}

// SetPresent simulates card removal/insertion so callers can exercise the
// device-not-present error path without a real device.
func (m *MemoryDevice) SetPresent(present bool) {
	m.present = present
}

func (m *MemoryDevice) IsPresent() bool {
	return m.present
}

func (m *MemoryDevice) ReadSector(lba uint32, out []byte) error {
	if _, err := m.stream.Seek(int64(lba)*SectorSize, io.SeekStart); err != nil {
		return err
	}
	_, err := io.ReadFull(m.stream, out)
	return err
}

func (m *MemoryDevice) WriteSector(lba uint32, in []byte) error {
	if _, err := m.stream.Seek(int64(lba)*SectorSize, io.SeekStart); err != nil {
		return err
	}
	_, err := m.stream.Write(in)
	return err
}
