package fat

import (
	"testing"

	"github.com/jhartell/fatfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestReadDirFallsBackToShortNameWithoutLFN writes a bare short-name entry
// with no preceding long-name run (as a non-VFAT-aware writer would) and
// checks readdir falls back to the literal 8.3 name.
func TestReadDirFallsBackToShortNameWithoutLFN(t *testing.T) {
	v := testVolume(t)
	root := v.rootDirStart()

	var name [8]byte
	copy(name[:], "README  ")
	var ext [3]byte
	copy(ext[:], "TXT")

	sfn := RawSFN{Name: name, Extension: ext, Attr: AttrArchive}
	require.NoError(t, v.writeEntryAt(EntryLocation{Cluster: root}, encodeSFN(sfn)))

	dir, err := OpenDir(v, "/")
	require.NoError(t, err)

	got, ok, err := dir.Read()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "README.TXT", got)
}

func TestClassifiers(t *testing.T) {
	last := make([]byte, direntSize)
	free := make([]byte, direntSize)
	free[0] = freeEntryMarker
	lfn := make([]byte, direntSize)
	lfn[11] = AttrLongName
	sfn := make([]byte, direntSize)
	sfn[0] = 'A'
	sfn[11] = AttrArchive

	assert.True(t, isLastEntry(last))
	assert.False(t, isFreeEntry(last))

	assert.True(t, isFreeEntry(free))
	assert.False(t, isLastEntry(free))

	assert.True(t, isLFNEntry(lfn))
	assert.False(t, isSFNEntry(lfn))

	assert.True(t, isSFNEntry(sfn))
	assert.False(t, isLFNEntry(sfn))

	// A volume label is in use but is neither a file nor a directory.
	vol := make([]byte, direntSize)
	vol[0] = 'V'
	vol[11] = AttrVolumeID
	assert.False(t, isSFNEntry(vol))
	assert.False(t, isLFNEntry(vol))
}

// TestScansSkipVolumeLabel plants a volume-label record ahead of a real file
// and checks that neither readdir nor the long-name search mistakes the
// label for a file entry.
func TestScansSkipVolumeLabel(t *testing.T) {
	v := testVolume(t)
	root := v.rootDirStart()

	var label [8]byte
	copy(label[:], "SDCARD  ")
	var labelExt [3]byte
	copy(labelExt[:], "   ")
	vol := RawSFN{Name: label, Extension: labelExt, Attr: AttrVolumeID}
	require.NoError(t, v.writeEntryAt(EntryLocation{Cluster: root}, encodeSFN(vol)))

	_, _, err := v.CreateFile(root, "data.bin")
	require.NoError(t, err)

	_, _, err = v.FindByLongName(root, "SDCARD")
	assert.ErrorIs(t, err, fatfs.ErrNotFound)

	dir, err := OpenDir(v, "/")
	require.NoError(t, err)

	name, ok, err := dir.Read()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "data.bin", name)

	_, ok, err = dir.Read()
	require.NoError(t, err)
	assert.False(t, ok)
}
