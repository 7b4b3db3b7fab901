// Command dumpdiff loads a diff archive and prints its item graph:
// the target, the optional source, and every cookbook recipe with its
// type and parameters, mirroring partition-plan's -output-style format
// flag. -trace additionally records each resolution step to a SQLite
// database via internal/tracedb and prints a summary afterward.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/Azure/iot-hub-device-update-delta-sub001/internal/ctxkeys"
	"github.com/Azure/iot-hub-device-update-delta-sub001/internal/obslog"
	"github.com/Azure/iot-hub-device-update-delta-sub001/internal/tracedb"
	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/archive"
	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/diffconfig"
	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/ioutil"
	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/kitchen"
)

type recipeDump struct {
	Name         string   `json:"name"`
	Result       string   `json:"result"`
	NumberParams []uint64 `json:"number_params,omitempty"`
	ItemParams   []string `json:"item_params,omitempty"`
}

type archiveDump struct {
	Target  string       `json:"target"`
	Source  string       `json:"source,omitempty"`
	Recipes []recipeDump `json:"recipes"`
}

func main() {
	var (
		diffPath      = flag.String("diff", "", "path to the diff archive to inspect")
		format        = flag.String("format", "text", "output format: text or json")
		trace         = flag.String("trace", "", "path to a SQLite database to record resolution steps into")
		encryptionKey = flag.String("encryption-key", "", "passphrase to decrypt an encrypted inline-assets blob (legacy containers only)")
	)
	flag.Parse()

	if *diffPath == "" {
		fatalf("--diff is required")
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

	tracePath := *trace
	if tracePath == "" && cfg.TraceEnabled {
		tracePath = cfg.TracePath
	}

	var recorder *tracedb.Recorder
	var runID string
	if tracePath != "" {
		runID = corrID
		recorder, err = tracedb.New(tracePath, runID)
		if err != nil {
			fatalf("open trace database: %v", err)
		}
		defer recorder.Close()
		if err := recorder.Migrate(context.Background()); err != nil {
			fatalf("migrate trace database: %v", err)
		}

		k := kitchen.NewWith(a.Pantry, a.Cookbook)
		k.SetLogger(logger)
		k.SetConfig(cfg)
		k.SetTracer(recorder)
		k.RequestItem(a.Target)
		if _, err := k.ProcessRequestedItems(); err != nil {
			fatalf("resolve target for trace: %v", err)
		}
	}

	dump := archiveDump{Target: a.Target.SortKey()}
	if a.Source != nil {
		dump.Source = a.Source.SortKey()
	}
	for _, r := range a.Cookbook.Entries() {
		rd := recipeDump{
			Name:         r.Name(),
			Result:       r.Result().SortKey(),
			NumberParams: r.NumberParams(),
		}
		for _, item := range r.ItemParams() {
			rd.ItemParams = append(rd.ItemParams, item.SortKey())
		}
		dump.Recipes = append(dump.Recipes, rd)
	}

	switch *format {
	case "text":
		printText(dump)
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(dump); err != nil {
			fatalf("encode json: %v", err)
		}
	default:
		fatalf("unknown output format %q", *format)
	}

	if recorder != nil {
		steps, err := recorder.Summary(context.Background(), runID)
		if err != nil {
			fatalf("read trace summary: %v", err)
		}
		fmt.Printf("\nresolution trace (%d steps):\n", len(steps))
		for _, s := range steps {
			fmt.Printf("  %-8s %-20s %-6s %dms\n", s.Outcome, s.RecipeName, truncate(s.ItemSortKey, 20), s.DurationMs)
		}
	}
}

func printText(dump archiveDump) {
	fmt.Printf("target: %s\n", dump.Target)
	if dump.Source != "" {
		fmt.Printf("source: %s\n", dump.Source)
	}
	fmt.Printf("recipes (%d):\n", len(dump.Recipes))
	for _, r := range dump.Recipes {
		fmt.Printf("  %s -> %s  params=%v items=%v\n", r.Name, r.Result, r.NumberParams, r.ItemParams)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "dumpdiff: "+format+"\n", args...)
	os.Exit(1)
}
