package fat

import (
	"encoding/binary"
	"testing"

	"github.com/jhartell/fatfs/blockdev"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildTestImage32 assembles a minimal FAT32 image for internal (white-box)
// tests, mirroring fixture_test.go's buildImage helper in the external
// fat_test package (the two can't share code across a package boundary).
func buildTestImage32() []byte {
	const bytesPerSector = 512
	const totalClusters = 65526 // clears the FAT32 threshold by one
	const sectorsPerCluster = 1
	const reservedSectors = 32
	const numFATs = 1

	numFATEntries := uint32(totalClusters) + 2
	fatBytes := numFATEntries * 4
	fatSizeSectors := (fatBytes + bytesPerSector - 1) / bytesPerSector
	fatAreaSectors := numFATs * fatSizeSectors
	dataSectors := uint32(totalClusters) * sectorsPerCluster

	totalSectors := reservedSectors + fatAreaSectors + dataSectors
	image := make([]byte, totalSectors*bytesPerSector)

	bpb := image[0:bytesPerSector]
	bpb[0], bpb[1], bpb[2] = 0xEB, 0x00, 0x90
	copy(bpb[3:11], []byte("MSWIN4.1"))
	binary.LittleEndian.PutUint16(bpb[11:13], bytesPerSector)
	bpb[13] = sectorsPerCluster
	binary.LittleEndian.PutUint16(bpb[14:16], reservedSectors)
	bpb[16] = numFATs
	binary.LittleEndian.PutUint32(bpb[32:36], totalSectors)
	binary.LittleEndian.PutUint32(bpb[36:40], fatSizeSectors)
	binary.LittleEndian.PutUint32(bpb[44:48], 2)
	binary.LittleEndian.PutUint16(bpb[510:512], 0xAA55)

	fatBegin := uint32(reservedSectors * bytesPerSector)
	fatArea := image[fatBegin : fatBegin+fatSizeSectors*bytesPerSector]
	binary.LittleEndian.PutUint32(fatArea[0:4], 0x0FFFFFF8)
	binary.LittleEndian.PutUint32(fatArea[4:8], 0x0FFFFFFF)
	binary.LittleEndian.PutUint32(fatArea[8:12], 0x0FFFFFFF) // cluster 2: root dir

	return image
}

// makeSubdirectory turns a freshly created file entry into a directory:
// flips AttrDirectory on, and marks its sole data cluster's first entry as
// last() so it reads as an empty directory. CreateFile itself never
// produces directories (directory creation is out of this core's scope);
// this helper exists purely so tests can exercise path-walking into one.
func makeSubdirectory(t *testing.T, v *Volume, parent ClusterID, name string) (ClusterID, EntryLocation) {
	t.Helper()

	sfn, loc, err := v.CreateFile(parent, name)
	require.NoError(t, err)

	sfn.Attr = AttrDirectory
	require.NoError(t, v.writeEntryAt(loc, encodeSFN(sfn)))

	cluster := sfn.FirstCluster()
	lba := v.ClusterLBA(cluster)
	buf, err := v.ReadSector(lba)
	require.NoError(t, err)
	for i := range buf {
		buf[i] = 0
	}
	require.NoError(t, v.WriteSector(lba))
	v.Invalidate()

	return cluster, loc
}

func testVolume(t *testing.T) *Volume {
	t.Helper()
	image := buildTestImage32()
	dev := blockdev.NewMemoryDevice(image)
	v, err := Mount(dev)
	require.NoError(t, err)
	return v
}

func TestOpenDirWalksSubdirectoryPath(t *testing.T) {
	v := testVolume(t)
	root := v.rootDirStart()

	subCluster, _ := makeSubdirectory(t, v, root, "docs")

	_, _, err := v.CreateFile(subCluster, "readme.txt")
	require.NoError(t, err)

	dir, err := OpenDir(v, "docs")
	require.NoError(t, err)

	name, ok, err := dir.Read()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "readme.txt", name)

	_, ok, err = dir.Read()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOpenWalksSubdirectoryPath(t *testing.T) {
	v := testVolume(t)
	root := v.rootDirStart()

	subCluster, _ := makeSubdirectory(t, v, root, "docs")
	_, _, err := v.CreateFile(subCluster, "readme.txt")
	require.NoError(t, err)

	f, err := Open(v, "docs/readme.txt", "r+")
	require.NoError(t, err)
	defer f.Close()

	n, err := f.Write([]byte("nested content"))
	require.NoError(t, err)
	assert.Equal(t, len("nested content"), n)
}
