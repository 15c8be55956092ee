package fat

import (
	"errors"
	"strings"

	"github.com/jhartell/fatfs"
	"github.com/jhartell/fatfs/blockdev"
)

// entriesPerSector is how many 32-byte directory records fit in one sector.
const entriesPerSector = blockdev.SectorSize / direntSize

// EntryLocation pins down exactly where in a directory's cluster chain a
// single 32-byte record lives. Cluster is rootDirCluster for the FAT16 fixed
// root directory, or a real chain-start cluster (the directory's own first
// cluster, or v.RootCluster for a FAT32 root) otherwise.
type EntryLocation struct {
	Cluster      ClusterID
	SectorOffset uint32
	Index        int
}

func (loc EntryLocation) next() EntryLocation {
	loc.Index++
	if loc.Index >= entriesPerSector {
		loc.Index = 0
		loc.SectorOffset++
	}
	return loc
}

func (v *Volume) readEntryAt(loc EntryLocation) ([]byte, error) {
	sector, err := v.ReadChainSector(loc.Cluster, loc.SectorOffset)
	if err != nil {
		return nil, err
	}
	start := loc.Index * direntSize
	out := make([]byte, direntSize)
	copy(out, sector[start:start+direntSize])
	return out, nil
}

func (v *Volume) writeEntryAt(loc EntryLocation, raw []byte) error {
	sector, err := v.ReadChainSector(loc.Cluster, loc.SectorOffset)
	if err != nil {
		return err
	}
	start := loc.Index * direntSize
	copy(sector[start:start+direntSize], raw)
	return v.WriteChainSector(loc.Cluster, loc.SectorOffset, false)
}

// walkDir visits every directory record in the chain starting at
// startCluster, in order, until visit returns stop=true or the last() marker
// is reached. Running off the end of a bounded chain (the FAT16 root, or a
// chain whose final cluster has no successor) ends the walk the same as
// hitting last(), rather than being treated as an error.
func (v *Volume) walkDir(startCluster ClusterID, visit func(loc EntryLocation, entry []byte) (stop bool, err error)) error {
	loc := EntryLocation{Cluster: startCluster}
	for {
		sector, err := v.ReadChainSector(loc.Cluster, loc.SectorOffset)
		if err != nil {
			if errors.Is(err, fatfs.ErrOutOfBounds) {
				return nil
			}
			return err
		}

		for loc.Index = 0; loc.Index < entriesPerSector; loc.Index++ {
			entry := sector[loc.Index*direntSize : (loc.Index+1)*direntSize]
			if isLastEntry(entry) {
				return nil
			}

			stop, err := visit(loc, entry)
			if err != nil {
				return err
			}
			if stop {
				return nil
			}
		}

		loc.SectorOffset++
		loc.Index = 0
	}
}

// shortNameString renders an 8.3 name the way a long-name-unaware comparison
// expects to see it: "STEM.EXT", or just "STEM" with no extension.
func shortNameString(name [8]byte, ext [3]byte) string {
	stem := strings.TrimRight(string(name[:]), " ")
	extension := strings.TrimRight(string(ext[:]), " ")
	if extension == "" {
		return stem
	}
	return stem + "." + extension
}

// FindByLongName scans a directory for an entry matching name, comparing
// against its long name when a valid VFAT long-name run precedes the
// short-name entry, and falling back to the 8.3 name otherwise. The
// comparison is case-insensitive, matching the upper-casing FAT short names
// are always stored in.
func (v *Volume) FindByLongName(startCluster ClusterID, name string) (RawSFN, EntryLocation, error) {
	cache := newLFNCache()
	var found RawSFN
	var foundLoc EntryLocation
	hit := false

	err := v.walkDir(startCluster, func(loc EntryLocation, entry []byte) (bool, error) {
		switch {
		case isFreeEntry(entry):
			cache.Reset()
			return false, nil
		case isLFNEntry(entry):
			raw := decodeLFN(entry)
			cache.Add(int(raw.Ordinal&^lastLFNOrdinalBit), raw.Checksum, raw.entryChars())
			return false, nil
		case !isSFNEntry(entry):
			// Volume label or other oddity; skip without disturbing the
			// long-name run in progress.
			return false, nil
		default:
			sfn := decodeSFN(entry)
			candidate := shortNameString(sfn.Name, sfn.Extension)
			if assembled, ok := cache.Get(); ok && cache.Compare(sfn.Name, sfn.Extension) {
				candidate = assembled
			}
			cache.Reset()

			if strings.EqualFold(candidate, name) {
				found = sfn
				foundLoc = loc
				hit = true
				return true, nil
			}
			return false, nil
		}
	})
	if err != nil {
		return RawSFN{}, EntryLocation{}, err
	}
	if !hit {
		return RawSFN{}, EntryLocation{}, fatfs.ErrNotFound.WithMessage("no entry named " + name)
	}
	return found, foundLoc, nil
}

// FindByShortName scans a directory for an entry whose raw 8.3 name matches
// base/ext exactly, ignoring any long-name records. Used while generating a
// unique short name for a new file.
func (v *Volume) FindByShortName(startCluster ClusterID, base [8]byte, ext [3]byte) bool {
	hit := false
	_ = v.walkDir(startCluster, func(loc EntryLocation, entry []byte) (bool, error) {
		if !isSFNEntry(entry) {
			return false, nil
		}
		sfn := decodeSFN(entry)
		if sfn.Name == base && sfn.Extension == ext {
			hit = true
			return true, nil
		}
		return false, nil
	})
	return hit
}

// FindFreeRun locates count consecutive free or never-used records in a
// directory's chain, returning the location of the first one. It never
// extends the chain to make room — growing a directory past its allocated
// clusters is outside what this core implements — so a full directory
// reports ErrOutOfSpace.
func (v *Volume) FindFreeRun(startCluster ClusterID, count int) (EntryLocation, error) {
	var runStart EntryLocation
	runLen := 0
	var result EntryLocation
	found := false

	loc := EntryLocation{Cluster: startCluster}
	err := func() error {
		for {
			sector, err := v.ReadChainSector(loc.Cluster, loc.SectorOffset)
			if err != nil {
				if errors.Is(err, fatfs.ErrOutOfBounds) {
					return nil
				}
				return err
			}

			for loc.Index = 0; loc.Index < entriesPerSector; loc.Index++ {
				entry := sector[loc.Index*direntSize : (loc.Index+1)*direntSize]
				if isLastEntry(entry) || isFreeEntry(entry) {
					if runLen == 0 {
						runStart = loc
					}
					runLen++
					if runLen == count {
						result = runStart
						found = true
						return nil
					}
				} else {
					runLen = 0
				}
			}
			loc.SectorOffset++
			loc.Index = 0
		}
	}()
	if err != nil {
		return EntryLocation{}, err
	}
	if !found {
		return EntryLocation{}, fatfs.ErrOutOfSpace.WithMessage("directory has no free entry run of that length")
	}
	return result, nil
}

// CreateFile adds a new, empty file named name to the directory chain
// starting at startCluster: it allocates the file's first cluster, picks a
// unique 8.3 short name, writes the long-name run and short-name entry, and
// marks the new cluster as a single-cluster chain.
func (v *Volume) CreateFile(startCluster ClusterID, name string) (RawSFN, EntryLocation, error) {
	if name == "" {
		return RawSFN{}, EntryLocation{}, fatfs.ErrInvalidArgument.WithMessage("empty filename")
	}
	if name[0] == '.' {
		return RawSFN{}, EntryLocation{}, fatfs.ErrInvalidArgument.WithMessage("filename may not begin with '.'")
	}

	if _, _, err := v.FindByLongName(startCluster, name); err == nil {
		return RawSFN{}, EntryLocation{}, fatfs.ErrExists.WithMessage(name)
	}

	// The free-cluster scan starts at the directory's own cluster, so a new
	// file's data lands near the directory that names it.
	cluster, err := v.Allocate(startCluster)
	if err != nil {
		return RawSFN{}, EntryLocation{}, err
	}

	var base [8]byte
	var ext [3]byte
	const maxTail = 9999
	tail := 1
	for ; tail <= maxTail; tail++ {
		base, ext = lfnToSFN(name, tail)
		if !v.FindByShortName(startCluster, base, ext) {
			break
		}
	}
	if tail > maxTail {
		_ = v.FreeChain(cluster, false)
		return RawSFN{}, EntryLocation{}, fatfs.ErrExists.WithMessage("could not derive a unique short name for " + name)
	}

	checksum := sfnChecksum(base, ext)
	fragments := emitLFN(name, checksum)
	if len(fragments) > maxLFNFragments {
		_ = v.FreeChain(cluster, false)
		return RawSFN{}, EntryLocation{}, fatfs.ErrInvalidArgument.WithMessage("name too long for a long-filename run")
	}

	loc, err := v.FindFreeRun(startCluster, len(fragments)+1)
	if err != nil {
		_ = v.FreeChain(cluster, false)
		return RawSFN{}, EntryLocation{}, err
	}

	entry := loc
	for _, frag := range fragments {
		if err := v.writeEntryAt(entry, encodeLFN(frag)); err != nil {
			return RawSFN{}, EntryLocation{}, err
		}
		entry = entry.next()
	}

	sfn := RawSFN{
		Name:      base,
		Extension: ext,
		Attr:      AttrArchive,
		WriteDate: 0x2011,
	}
	sfn.SetFirstCluster(cluster)

	if err := v.writeEntryAt(entry, encodeSFN(sfn)); err != nil {
		return RawSFN{}, EntryLocation{}, err
	}

	if err := v.SetNext(cluster, EOC); err != nil {
		return RawSFN{}, EntryLocation{}, err
	}

	return sfn, entry, nil
}

// TruncateFile resets a file to zero length, freeing its entire cluster
// chain and clearing the freed clusters' data.
//
// The first cluster is freed along with the rest of the chain and then
// immediately re-marked as end-of-chain, rather than being detached from the
// directory entry: a truncated file keeps its FirstCluster pointer valid and
// allocated, ready for the next write to reuse it. This mirrors the
// embedded driver's own truncate routine, not the more common approach of
// deallocating the first cluster too and clearing FirstCluster to 0.
func (v *Volume) TruncateFile(startCluster ClusterID, name string) error {
	sfn, loc, err := v.FindByLongName(startCluster, name)
	if err != nil {
		return err
	}
	if sfn.FileSize == 0 {
		return nil
	}

	cluster := sfn.FirstCluster()
	sfn.FileSize = 0
	if err := v.writeEntryAt(loc, encodeSFN(sfn)); err != nil {
		return err
	}

	if err := v.FreeChain(cluster, true); err != nil {
		return err
	}
	return v.SetNext(cluster, EOC)
}

// UpdateFileSize rewrites the FileSize field of the short-name entry at loc.
// Callers that keep an EntryLocation from the open() call use this instead
// of re-running FindByLongName after every write, the way the original
// driver's write routine did.
func (v *Volume) UpdateFileSize(loc EntryLocation, size uint32) error {
	raw, err := v.readEntryAt(loc)
	if err != nil {
		return err
	}
	sfn := decodeSFN(raw)
	sfn.FileSize = size
	return v.writeEntryAt(loc, encodeSFN(sfn))
}
