// Copyright 2025 The fastexif Authors
// SPDX-License-Identifier: MIT

// Command fastexif prints camera metadata in exiftool-like output modes and
// copies metadata between images.
package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/fastexif/fastexif"
	"github.com/karrick/godirwalk"
	"github.com/urfave/cli"
)

var mainOpts = struct {
	short     bool
	veryShort bool
	tab       bool
	table     bool
	json      bool
	quiet     bool
	recursive bool
	workers   int
	exts      cli.StringSlice
}{}

func main() {
	app := cli.NewApp()
	app.Name = "fastexif"
	app.Usage = "fast exiftool-compatible metadata reader and writer"
	app.ArgsUsage = "FILE|DIR ..."
	app.Commands = []cli.Command{
		copyCmd(),
	}
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:        "s, short",
			Usage:       "short output: unpadded TagName: Value",
			Destination: &mainOpts.short,
		},
		cli.BoolFlag{
			Name:        "S, very-short",
			Usage:       "very short output: values only",
			Destination: &mainOpts.veryShort,
		},
		cli.BoolFlag{
			Name:        "t, tab",
			Usage:       "tab-delimited output: TagName<tab>Value",
			Destination: &mainOpts.tab,
		},
		cli.BoolFlag{
			Name:        "T, table",
			Usage:       "table output: tab-delimited values only",
			Destination: &mainOpts.table,
		},
		cli.BoolFlag{
			Name:        "j, json",
			Usage:       "JSON output",
			Destination: &mainOpts.json,
		},
		cli.BoolFlag{
			Name:        "q, quiet",
			Usage:       "suppress per-file error messages",
			Destination: &mainOpts.quiet,
		},
		cli.BoolFlag{
			Name:        "r, recursive",
			Usage:       "process directories recursively",
			Destination: &mainOpts.recursive,
		},
		cli.IntFlag{
			Name:        "workers",
			Usage:       "worker pool size (default: number of CPUs)",
			EnvVar:      "FASTEXIF_WORKERS",
			Destination: &mainOpts.workers,
		},
		cli.StringSliceFlag{
			Name:  "ext",
			Usage: "extensions to process when scanning directories (e.g. --ext jpg --ext cr2)",
			Value: &mainOpts.exts,
		},
	}
	app.Action = read

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func read(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.NewExitError("no files specified", 1)
	}

	paths, err := expandArgs(c.Args())
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	if len(paths) == 0 {
		return cli.NewExitError("no valid files found to process", 1)
	}

	summary := fastexif.ReadBatch(paths, mainOpts.workers)

	var ok []string
	for _, path := range paths {
		r := summary.Results[path]
		if r.Err != nil {
			if !mainOpts.quiet {
				fmt.Fprintf(os.Stderr, "Error processing %s: %v\n", path, r.Err)
			}
			continue
		}
		ok = append(ok, path)
	}

	if mainOpts.json {
		fmt.Println("[")
	}
	for i, path := range ok {
		printFile(path, summary.Results[path].Meta, i == len(ok)-1)
	}
	if mainOpts.json {
		fmt.Println("]")
	}

	if summary.ErrorCount > 0 {
		if !mainOpts.quiet {
			fmt.Fprintf(os.Stderr, "%d error(s) occurred\n", summary.ErrorCount)
		}
		return cli.NewExitError("", 1)
	}
	return nil
}

func printFile(path string, m *fastexif.Metadata, last bool) {
	if mainOpts.json {
		out := fastexif.NewMetadata()
		out.Set("SourceFile", path)
		for _, f := range m.Fields() {
			out.Set(f.Name, f.Value)
		}
		b, err := out.MarshalJSON()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding %s: %v\n", path, err)
			return
		}
		if last {
			fmt.Printf("%s\n", b)
		} else {
			fmt.Printf("%s,\n", b)
		}
		return
	}

	fmt.Printf("======== %s\n", path)
	for _, f := range m.Fields() {
		switch {
		case mainOpts.veryShort:
			fmt.Println(f.Value)
		case mainOpts.table:
			fmt.Printf("\t%s\n", f.Value)
		case mainOpts.tab:
			fmt.Printf("%s\t%s\n", f.Name, f.Value)
		case mainOpts.short:
			fmt.Printf("%s: %s\n", f.Name, f.Value)
		default:
			fmt.Printf("%-32s: %s\n", f.Name, f.Value)
		}
	}
	if !last {
		fmt.Println()
	}
}

// expandArgs resolves file and directory arguments into the list of files to
// process. Directories require -r and are filtered by extension.
func expandArgs(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			// Keep it: the batch records the per-file error.
			paths = append(paths, arg)
			continue
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		if !mainOpts.recursive {
			fmt.Fprintf(os.Stderr, "Warning: %s is a directory, use -r to recurse\n", arg)
			continue
		}
		err = godirwalk.Walk(arg, &godirwalk.Options{
			Callback: func(path string, de *godirwalk.Dirent) error {
				if !de.IsDir() && wantExt(path) {
					paths = append(paths, path)
				}
				return nil
			},
			Unsorted: false,
		})
		if err != nil {
			return nil, err
		}
	}
	return paths, nil
}

var defaultExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".tif": true, ".tiff": true,
	".cr2": true, ".nef": true, ".arw": true, ".dng": true,
	".heic": true, ".heif": true, ".hif": true, ".avif": true,
}

func wantExt(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if len(mainOpts.exts) == 0 {
		return defaultExts[ext]
	}
	for _, e := range mainOpts.exts {
		if ext == "."+strings.ToLower(strings.TrimPrefix(e, ".")) {
			return true
		}
	}
	return false
}

func copyCmd() cli.Command {
	var all bool
	var fields cli.StringSlice
	return cli.Command{
		Name:      "copy",
		Usage:     "copy metadata fields from one image into another",
		ArgsUsage: "SRC TARGET OUT",
		Flags: []cli.Flag{
			cli.BoolFlag{
				Name:        "all",
				Usage:       "copy every supported field, not just the high-priority set",
				Destination: &all,
			},
			cli.StringSliceFlag{
				Name:  "field",
				Usage: "copy only the named field (repeatable)",
				Value: &fields,
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 3 {
				return cli.NewExitError("usage: fastexif copy SRC TARGET OUT", 1)
			}
			src, target, out := c.Args()[0], c.Args()[1], c.Args()[2]

			filter := []string(nil) // high-priority default
			switch {
			case len(fields) > 0:
				filter = fields
			case all:
				srcMeta, err := fastexif.ReadFile(src)
				if err != nil {
					return cli.NewExitError(err.Error(), 1)
				}
				for _, f := range srcMeta.Fields() {
					filter = append(filter, f.Name)
				}
			}

			if err := fastexif.CopyFields(src, target, out, filter); err != nil {
				return cli.NewExitError(err.Error(), 1)
			}
			return nil
		},
	}
}
