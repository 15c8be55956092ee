package fat

import (
	"strings"

	"github.com/jhartell/fatfs"
)

// Directory entry attribute flags (DIR_Attr), identical across FAT16/FAT32.
const (
	AttrReadOnly = 1 << iota
	AttrHidden
	AttrSystem
	AttrVolumeID
	AttrDirectory
	AttrArchive
)

// AttrLongName is the attribute byte value VFAT uses to mark a long-name
// directory record: every one of the four "it's definitely not a short name"
// bits set at once, none of the "this is a real file or dir" bits.
const AttrLongName = AttrReadOnly | AttrHidden | AttrSystem | AttrVolumeID

// AttrLongNameMask is the set of bits fat_is_lfn_entry masks against before
// comparing to AttrLongName.
const AttrLongNameMask = AttrLongName | AttrDirectory | AttrArchive

// OpenFlags is the capability set a mode string maps to. Operations check
// these booleans directly rather than re-parsing a mode string at each
// call site.
type OpenFlags struct {
	Read     bool
	Write    bool
	Append   bool
	Create   bool
	Truncate bool
}

// parseMode maps an fopen-style mode string to an OpenFlags capability set.
func parseMode(mode string) (OpenFlags, error) {
	switch strings.TrimSpace(mode) {
	case "r":
		return OpenFlags{Read: true}, nil
	case "w":
		return OpenFlags{Write: true, Create: true, Truncate: true}, nil
	case "a":
		return OpenFlags{Write: true, Create: true, Append: true}, nil
	case "r+":
		return OpenFlags{Read: true, Write: true}, nil
	case "w+":
		return OpenFlags{Read: true, Write: true, Create: true, Truncate: true}, nil
	case "a+":
		return OpenFlags{Read: true, Write: true, Create: true, Append: true}, nil
	default:
		return OpenFlags{}, fatfs.ErrInvalidArgument.WithMessage("unrecognized fopen mode " + mode)
	}
}
