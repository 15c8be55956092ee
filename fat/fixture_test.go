package fat_test

import (
	"encoding/binary"

	"github.com/jhartell/fatfs/blockdev"
)

// buildImage assembles a minimal but structurally valid FAT16 or FAT32 image
// entirely in memory: an MBR with no partition table (the BPB lives at LBA
// 0), a BPB matching the requested geometry, an all-free FAT table with
// cluster 0/1 reserved and (for FAT32) the root directory's cluster marked
// allocated, and a zeroed data area. The arithmetic mirrors ParseBPB's own
// layout computation so the fixture and the parser agree on where every
// region starts.
func buildImage(variant int, totalClusters, sectorsPerCluster, reservedSectors, numFATs, rootEntryCount uint32) []byte {
	const bytesPerSector = 512
	entrySize := uint32(2)
	if variant == 32 {
		entrySize = 4
	}

	numFATEntries := totalClusters + 2
	fatBytes := numFATEntries * entrySize
	fatSizeSectors := (fatBytes + bytesPerSector - 1) / bytesPerSector
	fatAreaSectors := numFATs * fatSizeSectors

	rootDirSectors := (rootEntryCount*32 + bytesPerSector - 1) / bytesPerSector
	dataSectors := totalClusters * sectorsPerCluster

	totalSectors := reservedSectors + fatAreaSectors + rootDirSectors + dataSectors
	image := make([]byte, totalSectors*bytesPerSector)

	bpb := image[0:bytesPerSector]
	bpb[0], bpb[1], bpb[2] = 0xEB, 0x00, 0x90 // no partition table; BPB at LBA 0
	copy(bpb[3:11], []byte("MSWIN4.1"))
	binary.LittleEndian.PutUint16(bpb[11:13], bytesPerSector)
	bpb[13] = uint8(sectorsPerCluster)
	binary.LittleEndian.PutUint16(bpb[14:16], uint16(reservedSectors))
	bpb[16] = uint8(numFATs)
	binary.LittleEndian.PutUint16(bpb[17:19], uint16(rootEntryCount))
	bpb[21] = 0xF8
	binary.LittleEndian.PutUint32(bpb[32:36], totalSectors)

	if variant == 32 {
		binary.LittleEndian.PutUint32(bpb[36:40], fatSizeSectors)
		binary.LittleEndian.PutUint32(bpb[44:48], 2) // root directory at cluster 2
	} else {
		binary.LittleEndian.PutUint16(bpb[22:24], uint16(fatSizeSectors))
	}

	binary.LittleEndian.PutUint16(bpb[510:512], 0xAA55)

	fatBegin := reservedSectors * bytesPerSector
	fat := image[fatBegin : fatBegin+fatSizeSectors*bytesPerSector]
	if variant == 32 {
		binary.LittleEndian.PutUint32(fat[0:4], 0x0FFFFFF8)
		binary.LittleEndian.PutUint32(fat[4:8], 0x0FFFFFFF)
		binary.LittleEndian.PutUint32(fat[8:12], 0x0FFFFFFF) // cluster 2: root dir, single-cluster chain
	} else {
		binary.LittleEndian.PutUint16(fat[0:2], 0xFFF8)
		binary.LittleEndian.PutUint16(fat[2:4], 0xFFFF)
	}

	return image
}

func buildFAT32Image() []byte {
	// 65526 one-sector clusters clears the FAT32 threshold (>=65525) by one.
	return buildImage(32, 65526, 1, 32, 1, 0)
}

func buildFAT16Image() []byte {
	return buildImage(16, 5000, 1, 32, 1, 512)
}

func newMemDevice(image []byte) *blockdev.MemoryDevice {
	dev := blockdev.NewMemoryDevice(image)
	dev.SetPresent(true)
	return dev
}

// trimSpaces strips the space padding FAT short-name fields are stored with.
func trimSpaces(b []byte) string {
	end := len(b)
	for end > 0 && b[end-1] == ' ' {
		end--
	}
	return string(b[:end])
}
