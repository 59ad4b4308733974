// Command kvtool is an offline inspection/migration CLI for the KV
// engine's on-disk directory (spec.md §1's "data-migration CLI",
// supplemented from original_source/src/tools/migrate_data.cpp).
package main

import (
	"fmt"
	"os"

	"github.com/trappedfunction/reactorkv/internal/kv"
)

func main() {
	if len(os.Args) < 3 {
		usage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	dir := os.Args[2]

	switch cmd {
	case "inspect":
		os.Exit(inspect(dir))
	case "migrate":
		if len(os.Args) < 4 {
			usage()
			os.Exit(1)
		}
		os.Exit(migrate(dir, os.Args[3]))
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: kvtool inspect <dir> | kvtool migrate <src-dir> <dst-dir>")
}

// inspect opens dir, replays it, and prints the resulting key count —
// the read-only half of migrate_data.cpp's behaviour.
func inspect(dir string) int {
	engine, err := kv.Open(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "kvtool: open %s: %v\n", dir, err)
		return 1
	}
	defer engine.Close()

	fmt.Printf("keys: %d\n", engine.Index().Size())
	return 0
}

// migrate replays src and rewrites every live key into a fresh engine
// at dst, compacting away tombstones and superseded records — the
// rewrite half of migrate_data.cpp's behaviour, expressed against
// internal/kv's public Open/Put/Close API rather than the raw file
// format.
func migrate(src, dst string) int {
	srcEngine, err := kv.Open(src)
	if err != nil {
		fmt.Fprintf(os.Stderr, "kvtool: open src %s: %v\n", src, err)
		return 1
	}
	defer srcEngine.Close()

	dstEngine, err := kv.Open(dst)
	if err != nil {
		fmt.Fprintf(os.Stderr, "kvtool: open dst %s: %v\n", dst, err)
		return 1
	}
	defer dstEngine.Close()

	migrated := 0
	for _, key := range liveKeys(srcEngine) {
		value, err := srcEngine.Get([]byte(key))
		if err != nil {
			fmt.Fprintf(os.Stderr, "kvtool: read %q: %v\n", key, err)
			continue
		}
		if err := dstEngine.Put([]byte(key), value); err != nil {
			fmt.Fprintf(os.Stderr, "kvtool: write %q: %v\n", key, err)
			continue
		}
		migrated++
	}

	fmt.Printf("migrated %d keys\n", migrated)
	return 0
}

func liveKeys(engine *kv.Engine) []string {
	// Engine.Keys snapshots the replayed Index's live keys; scanning
	// segment files directly would duplicate the engine's replay logic.
	return engine.Keys()
}
