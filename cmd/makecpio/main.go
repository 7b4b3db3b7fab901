// Command makecpio packs a directory into a newc_ascii cpio stream
// using pkg/cpio.Writer, for producing test fixtures.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/cpio"
	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/ioutil"
)

func main() {
	var (
		dir    = flag.String("dir", "", "directory to pack")
		output = flag.String("output", "", "path to write the cpio archive")
	)
	flag.Parse()

	if *dir == "" || *output == "" {
		fatalf("--dir and --output are required")
	}

	var names []string
	err := filepath.WalkDir(*dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(*dir, path)
		if err != nil {
			return err
		}
		names = append(names, rel)
		return nil
	})
	if err != nil {
		fatalf("walk %s: %v", *dir, err)
	}
	sort.Strings(names)

	w, err := cpio.NewWriter(cpio.FormatNewCASCII)
	if err != nil {
		fatalf("new cpio writer: %v", err)
	}

	var closers []func() error
	defer func() {
		for _, c := range closers {
			c()
		}
	}()

	inode := uint32(1)
	for _, name := range names {
		r, err := ioutil.NewFileReader(filepath.Join(*dir, name))
		if err != nil {
			fatalf("open %s: %v", name, err)
		}
		if closer, ok := r.(interface{ Close() error }); ok {
			closers = append(closers, closer.Close)
		}
		w.AddFile(filepath.ToSlash(name), inode, r)
		inode++
	}

	out, err := ioutil.NewFileWriter(*output)
	if err != nil {
		fatalf("create output: %v", err)
	}
	defer func() {
		if closer, ok := out.(interface{ Close() error }); ok {
			closer.Close()
		}
	}()

	if err := w.Write(out); err != nil {
		fatalf("write cpio archive: %v", err)
	}
	if err := out.Flush(); err != nil {
		fatalf("flush output: %v", err)
	}
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "makecpio: "+format+"\n", args...)
	os.Exit(1)
}
