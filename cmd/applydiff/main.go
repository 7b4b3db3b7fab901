// Command applydiff reconstructs a diff's target bytes to a file,
// optionally against a declared source file, mirroring
// partition-plan's flag.String/fatalf CLI shape.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/Azure/iot-hub-device-update-delta-sub001/internal/ctxkeys"
	"github.com/Azure/iot-hub-device-update-delta-sub001/internal/obslog"
	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/archive"
	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/diffconfig"
	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/ioutil"
	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/kitchen"
	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/prepared"
)

func main() {
	var (
		diffPath      = flag.String("diff", "", "path to the diff archive to apply")
		sourcePath    = flag.String("source", "", "path to the source file the diff was computed against (if any)")
		outputPath    = flag.String("output", "", "path to write the reconstructed target")
		encryptionKey = flag.String("encryption-key", "", "passphrase to decrypt an encrypted inline-assets blob (legacy containers only)")
	)
	flag.Parse()

	if *diffPath == "" || *outputPath == "" {
		fatalf("--diff and --output are required")
	}

	diffReader, err := ioutil.NewFileReader(*diffPath)
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

	targetReader, err := target.MakeSequentialReader()
	if err != nil {
		fatalf("open target reader: %v", err)
	}

	out, err := ioutil.NewFileWriter(*outputPath)
	if err != nil {
		fatalf("create output: %v", err)
	}
	defer func() {
		if closer, ok := out.(interface{ Close() error }); ok {
			closer.Close()
		}
	}()

	if err := ioutil.CopyAll(out, targetReader); err != nil {
		fatalf("write target: %v", err)
	}
	if err := out.Flush(); err != nil {
		fatalf("flush output: %v", err)
	}
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "applydiff: "+format+"\n", args...)
	os.Exit(1)
}
