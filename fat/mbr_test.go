package fat_test

import (
	"encoding/binary"
	"testing"

	"github.com/jhartell/fatfs"
	"github.com/jhartell/fatfs/blockdev"
	"github.com/jhartell/fatfs/fat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadMBRNoPartitionTable(t *testing.T) {
	image := buildFAT32Image()
	dev := newMemDevice(image)
	cache := blockdev.NewSectorCache(dev)

	partition, err := fat.ReadMBR(cache)
	require.NoError(t, err)
	assert.EqualValues(t, 0, partition.FirstLBA)
}

func TestReadMBRWithPartitionTable(t *testing.T) {
	// Build a FAT32 image with an actual partition table: one FAT32 (LBA)
	// partition starting 1 sector in, the BPB shifted there accordingly.
	body := buildImage(32, 65526, 1, 32, 1, 0)
	offsetSectors := uint32(1)

	image := make([]byte, uint32(len(body))+offsetSectors*512)
	copy(image[offsetSectors*512:], body)

	binary.LittleEndian.PutUint16(image[510:512], 0xAA55)
	const partitionTableOffset = 0x1BE
	image[partitionTableOffset] = 0x80 // bootable, irrelevant here
	image[partitionTableOffset+4] = 0x0C
	binary.LittleEndian.PutUint32(image[partitionTableOffset+8:partitionTableOffset+12], offsetSectors)
	binary.LittleEndian.PutUint32(image[partitionTableOffset+12:partitionTableOffset+16], uint32(len(body))/512)

	dev := newMemDevice(image)
	cache := blockdev.NewSectorCache(dev)

	partition, err := fat.ReadMBR(cache)
	require.NoError(t, err)
	assert.EqualValues(t, offsetSectors, partition.FirstLBA)
	assert.EqualValues(t, 0x0C, partition.TypeCode)

	geometry, err := fat.ParseBPB(cache, partition)
	require.NoError(t, err)
	assert.Equal(t, 32, geometry.Variant)
}

func TestReadMBRRejectsNonFATPartitionType(t *testing.T) {
	image := make([]byte, 4*512)
	binary.LittleEndian.PutUint16(image[510:512], 0xAA55)
	const partitionTableOffset = 0x1BE
	image[partitionTableOffset+4] = 0x83 // Linux native, not a FAT type

	dev := newMemDevice(image)
	cache := blockdev.NewSectorCache(dev)

	_, err := fat.ReadMBR(cache)
	assert.ErrorIs(t, err, fatfs.ErrFormatInvalid)
}

func TestReadMBRRejectsBadSignature(t *testing.T) {
	image := make([]byte, 4*512)
	dev := newMemDevice(image)
	cache := blockdev.NewSectorCache(dev)

	_, err := fat.ReadMBR(cache)
	assert.ErrorIs(t, err, fatfs.ErrFormatInvalid)
}

func TestPartitionTypeNameKnownAndUnknown(t *testing.T) {
	assert.NotEqual(t, "unknown", fat.PartitionTypeName(0x06))
	assert.Equal(t, "unknown", fat.PartitionTypeName(0xFE))
}
