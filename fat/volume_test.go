package fat_test

import (
	"testing"

	"github.com/jhartell/fatfs/fat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMountFAT32Geometry(t *testing.T) {
	dev := newMemDevice(buildFAT32Image())
	v, err := fat.Mount(dev)
	require.NoError(t, err)

	assert.Equal(t, 32, v.Variant)
	assert.EqualValues(t, 512, v.BytesPerSector)
	assert.EqualValues(t, 1, v.SectorsPerCluster)
	assert.EqualValues(t, 2, v.RootCluster)
	assert.True(t, v.IsFAT32())
}

func TestMountFAT16Geometry(t *testing.T) {
	dev := newMemDevice(buildFAT16Image())
	v, err := fat.Mount(dev)
	require.NoError(t, err)

	assert.Equal(t, 16, v.Variant)
	assert.False(t, v.IsFAT32())
	assert.Greater(t, v.RootDirSectors, uint32(0))
}

func TestMountFailsWhenDeviceAbsent(t *testing.T) {
	dev := newMemDevice(buildFAT32Image())
	dev.SetPresent(false)

	_, err := fat.Mount(dev)
	require.Error(t, err)
}

func TestMountFailsOnBadBootSignature(t *testing.T) {
	image := buildFAT32Image()
	image[510] = 0x00
	image[511] = 0x00
	dev := newMemDevice(image)

	_, err := fat.Mount(dev)
	require.Error(t, err)
}

func TestClusterLBA(t *testing.T) {
	dev := newMemDevice(buildFAT32Image())
	v, err := fat.Mount(dev)
	require.NoError(t, err)

	// Invariant 1 from the testable-properties list: cluster N maps to
	// data_begin + (N-2)*sectors_per_cluster.
	base := v.ClusterLBA(2)
	assert.Equal(t, v.DataBeginLBA, base)
	assert.Equal(t, v.DataBeginLBA+v.SectorsPerCluster, v.ClusterLBA(3))

	// Clusters below 2 are clamped rather than producing a bogus LBA.
	assert.Equal(t, base, v.ClusterLBA(0))
	assert.Equal(t, base, v.ClusterLBA(1))
}
