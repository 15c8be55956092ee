package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/jhartell/fatfs/blockdev"
	"github.com/jhartell/fatfs/fat"
)

func main() {
	app := cli.App{
		Usage: "Inspect and extract files from a FAT16/FAT32 disk image",
		Commands: []*cli.Command{
			{
				Name:      "ls",
				Usage:     "List the contents of a directory in an image",
				ArgsUsage: "IMAGE [PATH]",
				Action:    listDirectory,
			},
			{
				Name:      "cat",
				Usage:     "Print a file's contents to stdout",
				ArgsUsage: "IMAGE PATH",
				Action:    catFile,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("fatal error: %s", err.Error())
	}
}

func mountArg(context *cli.Context) (*fat.Volume, *blockdev.FileDevice, error) {
	imagePath := context.Args().Get(0)
	if imagePath == "" {
		return nil, nil, cli.Exit("missing IMAGE argument", 1)
	}

	dev, err := blockdev.OpenFileDevice(imagePath)
	if err != nil {
		return nil, nil, err
	}

	volume, err := fat.Mount(dev)
	if err != nil {
		_ = dev.Close()
		return nil, nil, err
	}

	return volume, dev, nil
}

func listDirectory(context *cli.Context) error {
	volume, dev, err := mountArg(context)
	if err != nil {
		return err
	}
	defer dev.Close()

	path := context.Args().Get(1)
	dir, err := fat.OpenDir(volume, path)
	if err != nil {
		return err
	}
	defer dir.Close()

	for {
		name, ok, err := dir.Read()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		fmt.Println(name)
	}
}

func catFile(context *cli.Context) error {
	volume, dev, err := mountArg(context)
	if err != nil {
		return err
	}
	defer dev.Close()

	path := context.Args().Get(1)
	if path == "" {
		return cli.Exit("missing PATH argument", 1)
	}

	f, err := fat.Open(volume, path, "r")
	if err != nil {
		return err
	}
	defer f.Close()

	buf := make([]byte, volume.BytesPerSector)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			if _, werr := os.Stdout.Write(buf[:n]); werr != nil {
				return werr
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
