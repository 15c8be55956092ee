package fat

import (
	_ "embed"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/gocarina/gocsv"
)

// partitionTypesCSV lists the MBR partition type bytes this core recognizes
// as FAT variants, plus enough of their common neighbors to produce a useful
// diagnostic when mounting finds something else. Loaded the same way the
// teacher's disk-geometry table is: a go:embed string unmarshaled with gocsv.
//
//go:embed partition_types.csv
var partitionTypesCSV string

type partitionTypeRow struct {
	Code string `csv:"code"`
	Name string `csv:"name"`
}

var (
	partitionTypesOnce sync.Once
	partitionTypeNames map[uint8]string
)

func loadPartitionTypes() {
	var rows []partitionTypeRow
	if err := gocsv.UnmarshalString(partitionTypesCSV, &rows); err != nil {
		// The table is embedded at build time; a parse failure here means
		// the CSV itself is malformed, not a runtime condition callers can
		// recover from.
		panic(fmt.Sprintf("fat: malformed partition_types.csv: %s", err))
	}

	partitionTypeNames = make(map[uint8]string, len(rows))
	for _, row := range rows {
		code, err := strconv.ParseUint(strings.TrimPrefix(row.Code, "0x"), 16, 8)
		if err != nil {
			panic(fmt.Sprintf("fat: malformed partition type code %q: %s", row.Code, err))
		}
		partitionTypeNames[uint8(code)] = row.Name
	}
}

// PartitionTypeName returns a human-readable label for an MBR partition type
// byte, for use in diagnostic messages. Unknown codes return "unknown".
func PartitionTypeName(code uint8) string {
	partitionTypesOnce.Do(loadPartitionTypes)
	if name, ok := partitionTypeNames[code]; ok {
		return name
	}
	return "unknown"
}

// isFATPartitionType reports whether code is one of the partition types
// read_mbr accepts (spec section 4.B): 0x06, 0x0B, 0x0C, 0x0E.
func isFATPartitionType(code uint8) bool {
	switch code {
	case 0x06, 0x0B, 0x0C, 0x0E:
		return true
	default:
		return false
	}
}
