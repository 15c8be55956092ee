package fat

import (
	"encoding/binary"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/jhartell/fatfs"
	"github.com/jhartell/fatfs/blockdev"
)

// rawBPB mirrors the fields of the BIOS Parameter Block common to FAT16 and
// FAT32, in on-disk order. The two variants diverge after TotalSectors32
// (FATSize16 is zero on FAT32, whose real FAT size is the 32-bit field at
// offset 36); that divergence is handled in ParseBPB rather than in this
// struct.
type rawBPB struct {
	JumpBoot          [3]byte
	OEMName           [8]byte
	BytesPerSector    uint16
	SectorsPerCluster uint8
	ReservedSectors   uint16
	NumFATs           uint8
	RootEntryCount    uint16
	TotalSectors16    uint16
	Media             uint8
	FATSize16         uint16
	SectorsPerTrack   uint16
	NumHeads          uint16
	HiddenSectors     uint32
	TotalSectors32    uint32
}

const rawBPBSize = 36

// Geometry is the fully-resolved volume layout computed from the MBR and BPB
// (spec data model: "Volume descriptor").
type Geometry struct {
	Variant int // 16 or 32

	BytesPerSector    uint32
	SectorsPerCluster uint32
	BytesPerCluster   uint32
	DirentsPerCluster uint32

	PartitionFirstLBA uint32
	ReservedSectors   uint32
	NumFATs           uint32
	FATSizeSectors    uint32

	FATBeginLBA uint32

	// RootDirBeginLBA and RootDirSectors are only meaningful for FAT16; for
	// FAT32 the root directory is an ordinary cluster chain starting at
	// RootCluster.
	RootDirBeginLBA uint32
	RootDirSectors  uint32
	RootCluster     uint32

	DataBeginLBA  uint32
	DataSectors   uint32
	TotalClusters uint32
}

// ParseBPB reads the BPB at the start of the given partition and computes the
// full volume geometry, classifying the volume as FAT16 or FAT32 per the
// Microsoft cluster-count thresholds. FAT12 volumes are rejected.
//
// The structural checks (bad signature, unsupported sector size,
// non-power-of-two cluster size) are collected rather than returning on the
// first failure, so a caller debugging a bad card sees all of them in one
// error. The FAT12 check runs only after those pass and is reported on its
// own.
func ParseBPB(cache *blockdev.SectorCache, partition Partition) (Geometry, error) {
	sector, err := cache.ReadSector(partition.FirstLBA)
	if err != nil {
		return Geometry{}, err
	}

	var problems *multierror.Error

	sig := binary.LittleEndian.Uint16(sector[510:512])
	if sig != bootSignature {
		problems = multierror.Append(problems, fmt.Errorf("bad boot signature in BPB"))
	}

	raw := decodeRawBPB(sector)

	if raw.BytesPerSector != 512 {
		problems = multierror.Append(problems,
			fmt.Errorf("unsupported BytesPerSector %d (must be 512)", raw.BytesPerSector))
	}

	switch raw.SectorsPerCluster {
	case 1, 2, 4, 8, 16, 32, 64, 128:
	default:
		problems = multierror.Append(problems,
			fmt.Errorf("SectorsPerCluster %d is not a power of two in [1,128]", raw.SectorsPerCluster))
	}

	if problems.ErrorOrNil() != nil {
		return Geometry{}, fatfs.ErrFormatInvalid.Wrap(problems)
	}

	fatSize32 := binary.LittleEndian.Uint32(sector[36:40])
	rootCluster := binary.LittleEndian.Uint32(sector[44:48])

	fatSize := uint32(raw.FATSize16)
	if fatSize == 0 {
		fatSize = fatSize32
	}

	totalSectors := uint32(raw.TotalSectors16)
	if totalSectors == 0 {
		totalSectors = raw.TotalSectors32
	}

	rootDirSectors := (uint32(raw.RootEntryCount)*32 + uint32(raw.BytesPerSector) - 1) / uint32(raw.BytesPerSector)
	fatAreaSectors := uint32(raw.NumFATs) * fatSize
	dataSectors := totalSectors - (uint32(raw.ReservedSectors) + fatAreaSectors + rootDirSectors)
	totalClusters := dataSectors / uint32(raw.SectorsPerCluster)

	variant := classifyVariant(totalClusters)
	if variant == 12 {
		return Geometry{}, fatfs.ErrFormatInvalid.WithMessage("FAT12 volumes are not supported")
	}

	fatBegin := partition.FirstLBA + uint32(raw.ReservedSectors)
	rootDirBegin := fatBegin + fatAreaSectors
	dataBegin := rootDirBegin + rootDirSectors

	bytesPerCluster := uint32(raw.BytesPerSector) * uint32(raw.SectorsPerCluster)

	geometry := Geometry{
		Variant:           variant,
		BytesPerSector:    uint32(raw.BytesPerSector),
		SectorsPerCluster: uint32(raw.SectorsPerCluster),
		BytesPerCluster:   bytesPerCluster,
		DirentsPerCluster: bytesPerCluster / direntSize,
		PartitionFirstLBA: partition.FirstLBA,
		ReservedSectors:   uint32(raw.ReservedSectors),
		NumFATs:           uint32(raw.NumFATs),
		FATSizeSectors:    fatSize,
		FATBeginLBA:       fatBegin,
		RootDirBeginLBA:   rootDirBegin,
		RootDirSectors:    rootDirSectors,
		DataBeginLBA:      dataBegin,
		DataSectors:       dataSectors,
		TotalClusters:     totalClusters,
	}

	if variant == 32 {
		geometry.RootCluster = rootCluster
		geometry.RootDirSectors = 0
	}

	return geometry, nil
}

func decodeRawBPB(sector []byte) rawBPB {
	raw := rawBPB{
		BytesPerSector:    binary.LittleEndian.Uint16(sector[11:13]),
		SectorsPerCluster: sector[13],
		ReservedSectors:   binary.LittleEndian.Uint16(sector[14:16]),
		NumFATs:           sector[16],
		RootEntryCount:    binary.LittleEndian.Uint16(sector[17:19]),
		TotalSectors16:    binary.LittleEndian.Uint16(sector[19:21]),
		Media:             sector[21],
		FATSize16:         binary.LittleEndian.Uint16(sector[22:24]),
		SectorsPerTrack:   binary.LittleEndian.Uint16(sector[24:26]),
		NumHeads:          binary.LittleEndian.Uint16(sector[26:28]),
		HiddenSectors:     binary.LittleEndian.Uint32(sector[28:32]),
		TotalSectors32:    binary.LittleEndian.Uint32(sector[32:36]),
	}
	copy(raw.JumpBoot[:], sector[0:3])
	copy(raw.OEMName[:], sector[3:11])
	return raw
}

// classifyVariant applies the Microsoft-specified, non-negotiable cluster
// count thresholds (FAT spec v1.03 p.14).
func classifyVariant(totalClusters uint32) int {
	if totalClusters < 4085 {
		return 12
	}
	if totalClusters < 65525 {
		return 16
	}
	return 32
}
