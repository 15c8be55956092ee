package fat

import (
	"encoding/binary"
	"fmt"

	"github.com/jhartell/fatfs"
	"github.com/jhartell/fatfs/blockdev"
)

const bootSignature = 0xAA55

// Partition describes the slice of the block device a FAT volume occupies,
// as recovered from the MBR (or inferred, when the device has no partition
// table and the volume starts at LBA 0).
type Partition struct {
	// FirstLBA is the first sector of the partition.
	FirstLBA uint32
	// SectorCount is the number of sectors in the partition.
	SectorCount uint32
	// TypeCode is the MBR partition type byte. It is 0 when the volume was
	// found directly at LBA 0 with no partition table.
	TypeCode uint8
}

// mbrPartitionEntry mirrors the 16-byte on-disk partition table entry.
type mbrPartitionEntry struct {
	Status      uint8
	StartCHS    [3]byte
	TypeCode    uint8
	EndCHS      [3]byte
	FirstLBA    uint32
	SectorCount uint32
}

// ReadMBR reads logical block 0 and locates the FAT partition to mount.
//
// If the first byte of the sector is a short or near jump opcode (0xEB or
// 0xE9), the sector itself is a BPB — there is no partition table, and the
// volume begins at LBA 0. Otherwise only the first of the four 16-byte
// partition table entries at offset 0x1BE is consulted; its type byte must
// be a recognized FAT variant (0x06, 0x0B, 0x0C, 0x0E). The remaining three
// entries are never used as fallbacks.
func ReadMBR(cache *blockdev.SectorCache) (Partition, error) {
	sector, err := cache.ReadSector(0)
	if err != nil {
		return Partition{}, err
	}

	sig := binary.LittleEndian.Uint16(sector[510:512])
	if sig != bootSignature {
		return Partition{}, fatfs.ErrFormatInvalid.WithMessage("bad boot signature at LBA 0")
	}

	if sector[0] == 0xEB || sector[0] == 0xE9 {
		// No partition table; the BPB lives right here.
		return Partition{FirstLBA: 0}, nil
	}

	const partitionTableOffset = 0x1BE
	entry := mbrPartitionEntry{
		Status:      sector[partitionTableOffset],
		TypeCode:    sector[partitionTableOffset+4],
		FirstLBA:    binary.LittleEndian.Uint32(sector[partitionTableOffset+8 : partitionTableOffset+12]),
		SectorCount: binary.LittleEndian.Uint32(sector[partitionTableOffset+12 : partitionTableOffset+16]),
	}
	copy(entry.StartCHS[:], sector[partitionTableOffset+1:partitionTableOffset+4])
	copy(entry.EndCHS[:], sector[partitionTableOffset+5:partitionTableOffset+8])

	if !isFATPartitionType(entry.TypeCode) {
		return Partition{}, fatfs.ErrFormatInvalid.WithMessage(fmt.Sprintf(
			"first partition has non-FAT type 0x%02X (%s)",
			entry.TypeCode, PartitionTypeName(entry.TypeCode)))
	}

	return Partition{
		FirstLBA:    entry.FirstLBA,
		SectorCount: entry.SectorCount,
		TypeCode:    entry.TypeCode,
	}, nil
}
