package fat

import (
	"errors"
	"io"
	"strings"

	"github.com/jhartell/fatfs"
)

// Whence values for File.Seek, matching io.Seeker.
const (
	SeekStart   = io.SeekStart
	SeekCurrent = io.SeekCurrent
	SeekEnd     = io.SeekEnd
)

// File is an open handle to file data, the stream-oriented counterpart to an
// on-disk short-name directory entry. It tracks everything needed to turn a
// byte offset into a chain-relative sector read or write, and the exact
// directory slot to rewrite when the file's size changes.
type File struct {
	v         *Volume
	flags     OpenFlags
	dataStart ClusterID
	size      uint32
	ptr       uint32
	entryLoc  EntryLocation
}

// Open resolves a '/'-delimited file path against the volume's root and
// opens it, walking intermediate directory components the same way OpenDir
// does. "Hello World.txt" and "/Hello World.txt" both open a root-level
// file; "docs/readme.txt" opens readme.txt inside the docs directory.
func Open(v *Volume, path string, mode string) (*File, error) {
	dirCluster := v.rootDirStart()

	parts := []string{}
	for _, part := range strings.Split(path, "/") {
		if part != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) == 0 {
		return nil, fatfs.ErrInvalidArgument.WithMessage("empty file path")
	}

	for _, part := range parts[:len(parts)-1] {
		sfn, _, err := v.FindByLongName(dirCluster, part)
		if err != nil {
			return nil, err
		}
		if sfn.Attr&AttrDirectory == 0 {
			return nil, fatfs.ErrNotFound.WithMessage(part + " is not a directory")
		}
		dirCluster = sfn.FirstCluster()
	}

	return OpenFile(v, dirCluster, parts[len(parts)-1], mode)
}

// OpenFile opens name inside the directory chain starting at dirCluster,
// applying the fopen-style mode string's semantics: "r" requires the file to
// exist, "w"/"a" create it if missing, "w"/"w+" truncate an existing file to
// zero length, and "a"/"a+" position the stream at end-of-file immediately
// (a position fseek can no longer move, per the capability table the mode
// strings are parsed into).
func OpenFile(v *Volume, dirCluster ClusterID, name string, mode string) (*File, error) {
	flags, err := parseMode(mode)
	if err != nil {
		return nil, err
	}

	sfn, loc, err := v.FindByLongName(dirCluster, name)
	if err != nil {
		if !errors.Is(err, fatfs.ErrNotFound) {
			return nil, err
		}
		if !flags.Create {
			return nil, err
		}
		sfn, loc, err = v.CreateFile(dirCluster, name)
		if err != nil {
			return nil, err
		}
	}

	f := &File{
		v:         v,
		flags:     flags,
		dataStart: sfn.FirstCluster(),
		size:      sfn.FileSize,
		entryLoc:  loc,
	}

	if flags.Truncate && f.size > 0 {
		sfn.FileSize = 0
		if err := v.writeEntryAt(loc, encodeSFN(sfn)); err != nil {
			return nil, err
		}
		if err := v.FreeChain(f.dataStart, true); err != nil {
			return nil, err
		}
		if err := v.SetNext(f.dataStart, EOC); err != nil {
			return nil, err
		}
		f.size = 0
	}

	if flags.Append {
		f.ptr = f.size
	}

	return f, nil
}

// Tell returns the stream's current byte offset.
func (f *File) Tell() uint32 {
	return f.ptr
}

// Seek repositions the stream. It is a no-op when the file was opened in
// append mode, matching the original driver's handling of fseek on an
// append-mode handle: every write always lands at end-of-file regardless of
// where Seek last pointed.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	if f.flags.Append {
		return int64(f.ptr), nil
	}

	var target int64
	switch whence {
	case SeekStart:
		target = offset
	case SeekCurrent:
		target = int64(f.ptr) + offset
	case SeekEnd:
		target = int64(f.size) + offset
	default:
		return 0, fatfs.ErrInvalidArgument.WithMessage("invalid whence")
	}

	if target < 0 || target > int64(f.size) {
		return 0, fatfs.ErrOutOfBounds.WithMessage("seek target outside file bounds")
	}

	f.ptr = uint32(target)
	return target, nil
}

// Read fills buf with file data starting at the stream's current position,
// advancing it by the number of bytes read. It returns io.EOF once the
// stream position has reached the file's size.
func (f *File) Read(buf []byte) (int, error) {
	if !f.flags.Read {
		return 0, fatfs.ErrCapability.WithMessage("file not opened for reading")
	}
	if len(buf) == 0 {
		return 0, nil
	}
	if f.ptr >= f.size {
		return 0, io.EOF
	}

	bytesPerSector := f.v.BytesPerSector
	sectorOffset := f.ptr / bytesPerSector
	offsetInSector := f.ptr % bytesPerSector

	read := 0
	want := len(buf)
	if remaining := f.size - f.ptr; uint32(want) > remaining {
		want = int(remaining)
	}
	for read < want {
		sector, err := f.v.ReadChainSector(f.dataStart, sectorOffset)
		if err != nil {
			return read, err
		}

		chunk := want - read
		if uint32(chunk) > bytesPerSector-offsetInSector {
			chunk = int(bytesPerSector - offsetInSector)
		}
		if f.ptr+uint32(chunk) > f.size {
			chunk = int(f.size - f.ptr)
		}
		if chunk <= 0 {
			break
		}

		copy(buf[read:read+chunk], sector[offsetInSector:])

		read += chunk
		f.ptr += uint32(chunk)
		offsetInSector = 0
		sectorOffset++
	}

	return read, nil
}

// Write stores buf's contents at the stream's current position, allocating
// new clusters as needed when the write extends past the file's currently
// allocated chain, and advances the stream position. The directory entry's
// FileSize is updated in place via the handle's remembered EntryLocation
// whenever the write grows the file past its previous size.
func (f *File) Write(buf []byte) (int, error) {
	if !f.flags.Write {
		return 0, fatfs.ErrCapability.WithMessage("file not opened for writing")
	}
	if len(buf) == 0 {
		return 0, nil
	}

	bytesPerSector := f.v.BytesPerSector
	sectorOffset := f.ptr / bytesPerSector
	offsetInSector := f.ptr % bytesPerSector

	written := 0
	want := len(buf)
	for written < want {
		lba, err := f.v.chainSectorLBA(f.dataStart, sectorOffset, true)
		if err != nil {
			return written, err
		}
		sector, err := f.v.ReadSector(lba)
		if err != nil {
			return written, err
		}

		chunk := want - written
		if uint32(chunk) > bytesPerSector-offsetInSector {
			chunk = int(bytesPerSector - offsetInSector)
		}

		copy(sector[offsetInSector:], buf[written:written+chunk])
		if err := f.v.WriteSector(lba); err != nil {
			return written, err
		}

		written += chunk
		f.ptr += uint32(chunk)
		offsetInSector = 0
		sectorOffset++
	}

	if written > 0 && f.ptr > f.size {
		f.size = f.ptr
		if err := f.v.UpdateFileSize(f.entryLoc, f.size); err != nil {
			return written, err
		}
	}

	return written, nil
}

// Close releases the handle. There is no write-behind buffering in this
// core — every Write call lands on the block device before returning — so
// Close has nothing left to flush.
func (f *File) Close() error {
	return nil
}
