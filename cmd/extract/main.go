// Command extract reconstructs a diff's target, which is itself a cpio
// archive, and re-packs it through pkg/cpio.Writer — useful when the
// target's own cpio entries need re-serializing rather than a byte-exact
// copy, mirroring applydiff's load/resolve flow with a cpio write stage
// in place of a plain file write.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/Azure/iot-hub-device-update-delta-sub001/internal/ctxkeys"
	"github.com/Azure/iot-hub-device-update-delta-sub001/internal/obslog"
	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/cpio"
	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/archive"
	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/diffconfig"
	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/ioutil"
	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/kitchen"
	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/prepared"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: extract <diff> <cpio-output>\n")
	}
	var sourcePath = flag.String("source", "", "path to the source file the diff was computed against (if any)")
	var encryptionKey = flag.String("encryption-key", "", "passphrase to decrypt an encrypted inline-assets blob (legacy containers only)")
	flag.Parse()

	if flag.NArg() != 2 {
		flag.Usage()
		os.Exit(1)
	}
	diffPath := flag.Arg(0)
	outputPath := flag.Arg(1)

	diffReader, err := ioutil.NewFileReader(diffPath)
	if err != nil {
		fatalf("open diff: %v", err)
	}
	if closer, ok := diffReader.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	var loadOpts []archive.Option
	if *encryptionKey != "" {
		loadOpts = append(loadOpts, archive.WithEncryptionKey(*encryptionKey))
	}
	a, err := archive.Load(diffReader, loadOpts...)
	if err != nil {
		fatalf("load diff: %v", err)
	}

	_, corrID := ctxkeys.EnsureCorrelationID(context.Background())
	logger := obslog.New("info").With("correlation_id", corrID)

	cfg, err := diffconfig.FromEnv()
	if err != nil {
		fatalf("load config: %v", err)
	}

	k := kitchen.NewWith(a.Pantry, a.Cookbook)
	k.SetLogger(logger)
	k.SetConfig(cfg)

	if a.Source != nil {
		if *sourcePath == "" {
			fatalf("diff was computed against a source; pass --source")
		}
		sourceReader, err := ioutil.NewFileReader(*sourcePath)
		if err != nil {
			fatalf("open source: %v", err)
		}
		if closer, ok := sourceReader.(interface{ Close() error }); ok {
			defer closer.Close()
		}
		sourceItem := *a.Source
		k.StoreItem(sourceItem, prepared.NewReader(sourceItem, func() (ioutil.Reader, error) {
			return sourceReader, nil
		}))
	}

	k.RequestItem(a.Target)
	ok, err := k.ProcessRequestedItems()
	if err != nil {
		fatalf("resolve target: %v", err)
	}
	if !ok {
		fatalf("target could not be fully resolved")
	}

	if err := k.ResumeSlicing(); err != nil {
		fatalf("resume slicing: %v", err)
	}
	defer k.CancelSlicing()

	target, err := k.FetchItem(a.Target)
	if err != nil {
		fatalf("fetch target: %v", err)
	}

	targetReader, err := target.MakeReader()
	if err != nil {
		fatalf("open target reader: %v", err)
	}

	source, err := cpio.Load(targetReader)
	if err != nil {
		fatalf("target is not a cpio archive: %v", err)
	}

	w, err := cpio.NewWriter(source.Format())
	if err != nil {
		fatalf("new cpio writer: %v", err)
	}
	for _, entry := range source.Entries() {
		payload, ok := source.PayloadReader(entry.Name)
		if !ok {
			fatalf("missing payload for %q", entry.Name)
		}
		w.AddFile(entry.Name, entry.Inode, payload)
	}

	out, err := ioutil.NewFileWriter(outputPath)
	if err != nil {
		fatalf("create output: %v", err)
	}
	defer func() {
		if closer, ok := out.(interface{ Close() error }); ok {
			closer.Close()
		}
	}()

	if err := w.Write(out); err != nil {
		fatalf("write cpio output: %v", err)
	}
	if err := out.Flush(); err != nil {
		fatalf("flush output: %v", err)
	}
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "extract: "+format+"\n", args...)
	os.Exit(1)
}
