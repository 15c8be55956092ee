package fat

import (
	"encoding/binary"

	"github.com/jhartell/fatfs"
)

// ClusterID identifies a cluster in the data area. Values below
// firstDataCluster never denote real data and are reserved by the format.
type ClusterID uint32

// EOC is the canonical end-of-chain marker this package returns from GetNext
// and accepts from callers, regardless of whether the underlying volume is
// FAT16 (native EOC range 0xFFF8-0xFFFF) or FAT32 (0x0FFFFFF8-0x0FFFFFFF in
// the low 28 bits). Normalizing to one sentinel value means chain-walking
// code never needs to know which variant it's on.
const EOC ClusterID = 0xFFFFFFFF

// freeClusterMarker is the FAT entry value for an unallocated cluster.
const freeClusterMarker = 0

func (v *Volume) entrySize() uint32 {
	if v.IsFAT32() {
		return 4
	}
	return 2
}

// fatEntryAddress returns the sector LBA holding cluster's FAT entry and the
// byte offset of that entry within the sector.
func (v *Volume) fatEntryAddress(cluster ClusterID) (lba uint32, offset uint32) {
	byteOffset := uint32(cluster) * v.entrySize()
	sectorsIntoFAT := byteOffset / v.BytesPerSector
	return v.FATBeginLBA + sectorsIntoFAT, byteOffset % v.BytesPerSector
}

func (v *Volume) isEOCRaw(raw uint32) bool {
	if v.IsFAT32() {
		return raw&0x0FFFFFFF >= 0x0FFFFFF8
	}
	return raw >= 0xFFF8
}

// readRawEntry reads the unnormalized on-disk value of a FAT entry. For
// FAT32 this is the full 32-bit word, reserved top bits included, so callers
// that write back can preserve them.
func (v *Volume) readRawEntry(cluster ClusterID) (uint32, error) {
	lba, offset := v.fatEntryAddress(cluster)
	sector, err := v.ReadSector(lba)
	if err != nil {
		return 0, err
	}
	if v.IsFAT32() {
		return binary.LittleEndian.Uint32(sector[offset : offset+4]), nil
	}
	return uint32(binary.LittleEndian.Uint16(sector[offset : offset+2])), nil
}

// writeRawEntry stores value into the low bits of cluster's FAT entry. On
// FAT32 the reserved top 4 bits of the existing entry are preserved, per the
// format's requirement that they not be altered by ordinary cluster chain
// maintenance.
//
// Only the first FAT copy is updated; this core does not maintain mirrored
// FAT copies, matching the embedded driver it's modeled on.
func (v *Volume) writeRawEntry(cluster ClusterID, value uint32) error {
	lba, offset := v.fatEntryAddress(cluster)
	sector, err := v.ReadSector(lba)
	if err != nil {
		return err
	}
	if v.IsFAT32() {
		existing := binary.LittleEndian.Uint32(sector[offset : offset+4])
		merged := (existing & 0xF0000000) | (value & 0x0FFFFFFF)
		binary.LittleEndian.PutUint32(sector[offset:offset+4], merged)
	} else {
		binary.LittleEndian.PutUint16(sector[offset:offset+2], uint16(value))
	}
	return v.WriteSector(lba)
}

// GetNext follows a single link in a cluster chain, returning EOC when
// cluster is the last one.
func (v *Volume) GetNext(cluster ClusterID) (ClusterID, error) {
	raw, err := v.readRawEntry(cluster)
	if err != nil {
		return 0, err
	}
	if v.isEOCRaw(raw) {
		return EOC, nil
	}
	if v.IsFAT32() {
		raw &= 0x0FFFFFFF
	}
	return ClusterID(raw), nil
}

// SetNext links cluster to next. Passing EOC marks cluster as the chain's
// final cluster.
func (v *Volume) SetNext(cluster ClusterID, next ClusterID) error {
	value := uint32(next)
	if next == EOC {
		if v.IsFAT32() {
			value = 0x0FFFFFFF
		} else {
			value = 0xFFFF
		}
	}
	return v.writeRawEntry(cluster, value)
}

// FindNextFree scans the FAT for an unallocated entry, starting at from and
// advancing one cluster at a time until it runs off the end of the data
// area. There is no wraparound: a scan that starts past the last free
// cluster reports the volume as full even if earlier clusters are free.
// Values of from below the first data cluster are clamped to it, so the
// FAT16 root-directory sentinel 0 starts the scan at cluster 2.
func (v *Volume) FindNextFree(from ClusterID) (ClusterID, error) {
	if from < firstDataCluster {
		from = firstDataCluster
	}
	last := ClusterID(firstDataCluster) + ClusterID(v.TotalClusters)
	for c := from; c < last; c++ {
		raw, err := v.readRawEntry(c)
		if err != nil {
			return 0, err
		}
		if v.IsFAT32() {
			raw &= 0x0FFFFFFF
		}
		if raw == freeClusterMarker {
			return c, nil
		}
	}
	return 0, fatfs.ErrOutOfSpace.WithMessage("no free clusters")
}

// Allocate reserves one free cluster at or after from, marks it as a
// (currently single-cluster) chain end, and returns it.
func (v *Volume) Allocate(from ClusterID) (ClusterID, error) {
	cluster, err := v.FindNextFree(from)
	if err != nil {
		return 0, err
	}
	if err := v.SetNext(cluster, EOC); err != nil {
		return 0, err
	}
	return cluster, nil
}

// AllocateAfter allocates a free cluster and appends it to the chain headed
// by linking tail -> new cluster -> EOC. The free-cluster scan starts at
// tail, so an appended cluster tends to land near the chain it extends.
// Used when a write grows a file or directory past its currently allocated
// clusters.
func (v *Volume) AllocateAfter(tail ClusterID) (ClusterID, error) {
	next, err := v.Allocate(tail)
	if err != nil {
		return 0, err
	}
	if err := v.SetNext(tail, next); err != nil {
		return 0, err
	}
	return next, nil
}

// FreeChain walks the cluster chain starting at head and marks every cluster
// in it free. When clearData is true, each cluster's data sectors are
// zeroed before being freed, so stale file content can't be recovered by
// reading newly-allocated clusters.
func (v *Volume) FreeChain(head ClusterID, clearData bool) error {
	cluster := head
	for cluster != EOC && cluster != freeClusterMarker {
		next, err := v.GetNext(cluster)
		if err != nil {
			return err
		}

		if clearData {
			lba := v.ClusterLBA(cluster)
			buf := v.Buffer()
			for i := range buf {
				buf[i] = 0
			}
			for s := uint32(0); s < v.SectorsPerCluster; s++ {
				if err := v.WriteSector(lba + s); err != nil {
					return err
				}
			}
			v.Invalidate()
		}

		if err := v.SetNext(cluster, freeClusterMarker); err != nil {
			return err
		}
		cluster = next
	}
	return nil
}

// rootDirCluster is the sentinel passed as startCluster to ReadChainSector
// and WriteChainSector to mean "the FAT16 fixed-size root directory" rather
// than a real cluster chain. FAT32 has no such special case: its root
// directory is cluster v.RootCluster, an ordinary chain.
const rootDirCluster ClusterID = 0

// chainSectorLBA resolves (startCluster, sectorOffset) to an absolute LBA,
// walking the FAT as many times as needed when sectorOffset reaches past the
// clusters currently in the chain. When allocate is true and the chain runs
// out before sectorOffset is reached, new clusters are appended; otherwise
// running off the end of the chain is reported as ErrOutOfBounds.
//
// This is the cluster-chain addressing scheme every higher-level reader and
// writer in this package (directory scans, file I/O) goes through, so a
// caller never has to walk the FAT by hand.
func (v *Volume) chainSectorLBA(startCluster ClusterID, sectorOffset uint32, allocate bool) (uint32, error) {
	if v.Variant == 16 && startCluster == rootDirCluster {
		if sectorOffset >= v.RootDirSectors {
			return 0, fatfs.ErrOutOfBounds.WithMessage("sector offset past end of FAT16 root directory")
		}
		return v.RootDirBeginLBA + sectorOffset, nil
	}

	cluster := startCluster
	clusterOffset := sectorOffset / v.SectorsPerCluster

	for i := uint32(0); i < clusterOffset; i++ {
		last := cluster
		next, err := v.GetNext(last)
		if err != nil {
			return 0, err
		}

		if next == EOC {
			if !allocate {
				return 0, fatfs.ErrOutOfBounds.WithMessage("sector offset past end of cluster chain")
			}
			next, err = v.AllocateAfter(last)
			if err != nil {
				return 0, err
			}
		}
		cluster = next
	}

	lba := v.ClusterLBA(cluster)
	return lba + (sectorOffset - clusterOffset*v.SectorsPerCluster), nil
}

// ReadChainSector reads the sectorOffset'th sector (0-based, may span
// multiple clusters) of the chain beginning at startCluster.
func (v *Volume) ReadChainSector(startCluster ClusterID, sectorOffset uint32) ([]byte, error) {
	lba, err := v.chainSectorLBA(startCluster, sectorOffset, false)
	if err != nil {
		return nil, err
	}
	return v.ReadSector(lba)
}

// WriteChainSector writes the cache's current buffer to the sectorOffset'th
// sector of the chain beginning at startCluster, allocating new clusters to
// extend the chain if allocate is true and the offset runs past it.
//
// Because resolving the target LBA may itself require FAT lookups that
// clobber the shared buffer, the caller's buffer is saved before the lookup
// and restored immediately before the write.
func (v *Volume) WriteChainSector(startCluster ClusterID, sectorOffset uint32, allocate bool) error {
	saved := v.SaveBuffer()
	lba, err := v.chainSectorLBA(startCluster, sectorOffset, allocate)
	if err != nil {
		return err
	}
	v.RestoreBuffer(saved)
	return v.WriteSector(lba)
}
