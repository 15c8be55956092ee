package fat

import (
	"errors"
	"strings"

	"github.com/jhartell/fatfs"
)

// Dir is an open handle to a directory's entries, walked one record at a
// time by Read.
type Dir struct {
	v      *Volume
	cache  *lfnCache
	cursor EntryLocation
	done   bool
}

// rootDirStart returns the cluster chain start to use when addressing the
// volume's root directory: the rootDirCluster sentinel on FAT16 (the fixed
// root area), or the real first cluster of the root directory on FAT32.
func (v *Volume) rootDirStart() ClusterID {
	if v.Variant == 16 {
		return rootDirCluster
	}
	return ClusterID(v.RootCluster)
}

// OpenDir resolves a '/'-delimited path to a directory and returns a handle
// ready for Read. An empty path (or "/") opens the root directory. Every
// intermediate path component must itself be a directory entry.
func OpenDir(v *Volume, path string) (*Dir, error) {
	cluster := v.rootDirStart()

	for _, part := range strings.Split(path, "/") {
		if part == "" {
			continue
		}
		sfn, _, err := v.FindByLongName(cluster, part)
		if err != nil {
			return nil, err
		}
		if sfn.Attr&AttrDirectory == 0 {
			return nil, fatfs.ErrNotFound.WithMessage(part + " is not a directory")
		}
		cluster = sfn.FirstCluster()
	}

	return &Dir{v: v, cache: newLFNCache(), cursor: EntryLocation{Cluster: cluster}}, nil
}

// Read returns the name of the next live entry in the directory. ok is false
// once every entry has been returned; err is non-nil only on an actual I/O
// or format failure.
func (d *Dir) Read() (name string, ok bool, err error) {
	if d.done {
		return "", false, nil
	}

	for {
		sector, err := d.v.ReadChainSector(d.cursor.Cluster, d.cursor.SectorOffset)
		if err != nil {
			if errors.Is(err, fatfs.ErrOutOfBounds) {
				d.done = true
				return "", false, nil
			}
			return "", false, err
		}

		entry := sector[d.cursor.Index*direntSize : (d.cursor.Index+1)*direntSize]

		if isLastEntry(entry) {
			d.done = true
			return "", false, nil
		}

		if isFreeEntry(entry) {
			d.cache.Reset()
			d.cursor = d.cursor.next()
			continue
		}

		if isLFNEntry(entry) {
			raw := decodeLFN(entry)
			d.cache.Add(int(raw.Ordinal&^lastLFNOrdinalBit), raw.Checksum, raw.entryChars())
			d.cursor = d.cursor.next()
			continue
		}

		if !isSFNEntry(entry) {
			// Volume label or other oddity; not a listable entry.
			d.cursor = d.cursor.next()
			continue
		}

		sfn := decodeSFN(entry)
		result := shortNameString(sfn.Name, sfn.Extension)
		if assembled, ok := d.cache.Get(); ok && d.cache.Compare(sfn.Name, sfn.Extension) {
			result = assembled
		}
		d.cache.Reset()
		d.cursor = d.cursor.next()
		return result, true, nil
	}
}

// Close releases the handle. Directory reads issue no buffering of their
// own beyond the shared sector cache, so there is nothing to flush.
func (d *Dir) Close() error {
	return nil
}
