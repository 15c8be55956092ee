package fat

import (
	"github.com/jhartell/fatfs"
	"github.com/jhartell/fatfs/blockdev"
)

// firstDataCluster is the lowest valid cluster number; clusters 0 and 1 are
// reserved (cluster 0 means "unused", cluster 1 is a historical leftover).
const firstDataCluster = 2

// Volume is a mounted FAT16 or FAT32 filesystem: the resolved geometry plus
// the single shared sector cache every component reads and writes through.
type Volume struct {
	*blockdev.SectorCache
	Geometry
}

// Mount reads the MBR and BPB off dev and resolves them into a ready-to-use
// Volume. It performs no other I/O: there is no notion of a mount table or
// open-file tracking at this layer, matching the single-volume, single-handle
// model the rest of this package assumes.
func Mount(dev blockdev.BlockDevice) (*Volume, error) {
	if !dev.IsPresent() {
		return nil, fatfs.ErrIO.WithMessage("block device not present")
	}

	cache := blockdev.NewSectorCache(dev)

	partition, err := ReadMBR(cache)
	if err != nil {
		return nil, err
	}

	geometry, err := ParseBPB(cache, partition)
	if err != nil {
		return nil, err
	}

	return &Volume{SectorCache: cache, Geometry: geometry}, nil
}

// ClusterLBA converts a cluster number to the LBA of its first sector.
// Clusters 0 and 1 are not addressable data clusters; callers passing them
// are clamped to cluster 2, matching the original driver's defensive
// behavior rather than panicking on a malformed FAT entry.
func (v *Volume) ClusterLBA(cluster ClusterID) uint32 {
	if cluster < firstDataCluster {
		cluster = firstDataCluster
	}
	return v.DataBeginLBA + (uint32(cluster)-firstDataCluster)*v.SectorsPerCluster
}

// IsFAT32 reports whether the mounted volume uses 32-bit FAT entries and a
// cluster-chain root directory.
func (v *Volume) IsFAT32() bool {
	return v.Variant == 32
}
