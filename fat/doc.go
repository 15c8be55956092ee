// Package fat implements a FAT16/FAT32 filesystem core layered over a
// 512-byte block device: MBR/BPB parsing and volume classification, a FAT
// table engine for walking and mutating cluster chains, a directory entry
// engine that understands VFAT long filenames, and a stream-oriented
// file/directory API.
//
// The package deliberately has no knowledge of the transport underneath it —
// SPI framing, SD card command sequences, MCU pin wiring — that all lives
// behind the blockdev.BlockDevice contract. It is equally happy mounting a
// real card or an in-memory disk image.
package fat
