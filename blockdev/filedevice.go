package blockdev

import "os"

// FileDevice is a BlockDevice backed by an ordinary OS file — a raw disk
// image or a path to a physical device node.
type FileDevice struct {
	f *os.File
}

// OpenFileDevice opens path for reading and writing as a block device. The
// file is not created if missing; use os.Create first for a fresh image.
func OpenFileDevice(path string) (*FileDevice, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	return &FileDevice{f: f}, nil
}

func (d *FileDevice) ReadSector(lba uint32, out []byte) error {
	_, err := d.f.ReadAt(out, int64(lba)*SectorSize)
	return err
}

func (d *FileDevice) WriteSector(lba uint32, in []byte) error {
	_, err := d.f.WriteAt(in, int64(lba)*SectorSize)
	return err
}

func (d *FileDevice) IsPresent() bool {
	return d.f != nil
}

// Close closes the backing file.
func (d *FileDevice) Close() error {
	return d.f.Close()
}
