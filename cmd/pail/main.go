// Copyright 2026 The pail Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// pail is a simple CLI for inspecting and modifying pail stores.
//
// Usage:
//
//	pail [opts]
//
// Options:
//
//	-d, --dir        Store directory (default: current directory)
//	-c, --config     Path to a HuJSON config file
//	-b, --buckets    Initial bucket count for new stores
//	    --sync       Fsync after every write
//	-v, --verbose    Log store internals to stderr
//
// Commands (in REPL):
//
//	put <key> [value]   Insert or update an entry
//	get <key>           Retrieve a value by key
//	del <key>           Delete an entry
//	info                Show store shape
//	stats               Show operation counters
//	compact             Rewrite the data log, dropping orphaned records
//	bench <count>       Benchmark put+get performance
//	help                Show this help
//	exit / quit / q     Exit
package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pailkv/pail"
	"github.com/peterh/liner"
	flag "github.com/spf13/pflag"
)

func main() {
	err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flagSet := flag.NewFlagSet("pail", flag.ContinueOnError)
	dir := flagSet.StringP("dir", "d", ".", "Store directory")
	configPath := flagSet.StringP("config", "c", "", "Path to a HuJSON config file")
	buckets := flagSet.IntP("buckets", "b", pail.DefaultBucketCount, "Initial bucket count for new stores")
	syncWrites := flagSet.Bool("sync", false, "Fsync after every write")
	verbose := flagSet.BoolP("verbose", "v", false, "Log store internals to stderr")

	err := flagSet.Parse(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}

		return err
	}

	var opts []pail.Option

	if *configPath != "" {
		cfg, err := pail.LoadConfig(*configPath)
		if err != nil {
			return err
		}

		opts = append(opts, pail.WithConfig(cfg))
	}

	// Explicit flags win over the config file.
	if flagSet.Changed("buckets") {
		opts = append(opts, pail.WithBucketCount(*buckets))
	}

	if flagSet.Changed("sync") {
		opts = append(opts, pail.WithSyncWrites(*syncWrites))
	}

	if *verbose {
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		opts = append(opts, pail.WithLogger(logger))
	}

	store, err := pail.Open(*dir, opts...)
	if err != nil {
		return fmt.Errorf("opening store in %s: %w", *dir, err)
	}

	repl := &REPL{store: store, dir: *dir}

	replErr := repl.Run()

	closeErr := store.Close()
	if replErr != nil {
		return replErr
	}

	return closeErr
}

// REPL is the interactive command loop.
type REPL struct {
	store *pail.Store
	dir   string
	liner *liner.State
}

// historyFile returns the path to the history file.
func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".pail_history")
}

// Run starts the REPL loop.
func (r *REPL) Run() error {
	r.liner = liner.NewLiner()
	defer r.liner.Close()

	r.liner.SetCtrlCAborts(true)
	r.liner.SetCompleter(r.completer)

	// Load history
	if f, err := os.Open(historyFile()); err == nil {
		r.liner.ReadHistory(f)
		f.Close()
	}

	st := r.store.Stats()
	fmt.Printf("pail - bucket key-value store (dir=%s, buckets=%d, entries=%d)\n", r.dir, st.BucketCount, st.UsedSlots)
	fmt.Println("Type 'help' for available commands.")
	fmt.Println()

	for {
		line, err := r.liner.Prompt("pail> ")
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				fmt.Println("\nBye!")
				r.saveHistory()

				break
			}

			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		r.liner.AppendHistory(line)

		parts := strings.Fields(line)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "exit", "quit", "q":
			fmt.Println("Bye!")

			r.saveHistory()

			return nil

		case "help", "?":
			r.printHelp()

		case "put":
			r.cmdPut(args)

		case "get":
			r.cmdGet(args)

		case "del", "delete":
			r.cmdDelete(args)

		case "info":
			r.cmdInfo()

		case "stats":
			r.cmdStats()

		case "compact":
			r.cmdCompact()

		case "bench":
			r.cmdBench(args)

		case "clear", "cls":
			fmt.Print("\033[H\033[2J")

		default:
			fmt.Printf("Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}

	return nil
}

// saveHistory persists command history to disk.
func (r *REPL) saveHistory() {
	if path := historyFile(); path != "" {
		if f, err := os.Create(path); err == nil {
			r.liner.WriteHistory(f)
			f.Close()
		}
	}
}

// completer provides tab completion for commands.
func (r *REPL) completer(line string) []string {
	commands := []string{
		"put", "get", "del", "delete",
		"info", "stats", "compact", "bench",
		"clear", "cls",
		"help", "exit", "quit", "q",
	}

	var completions []string

	lower := strings.ToLower(line)
	for _, cmd := range commands {
		if strings.HasPrefix(cmd, lower) {
			completions = append(completions, cmd)
		}
	}

	return completions
}

func (r *REPL) printHelp() {
	fmt.Println("Commands:")
	fmt.Println("  put <key> [value]   Insert or update an entry (value may contain spaces)")
	fmt.Println("  get <key>           Retrieve a value by key")
	fmt.Println("  del <key>           Delete an entry")
	fmt.Println("  info                Show store shape")
	fmt.Println("  stats               Show operation counters")
	fmt.Println("  compact             Rewrite the data log, dropping orphaned records")
	fmt.Println("  bench <count>       Benchmark put+get performance")
	fmt.Println("  help                Show this help")
	fmt.Println("  exit / quit / q     Exit")
	fmt.Println()
	fmt.Println("Keys and values are plain text. Keys that hash to the same bucket")
	fmt.Println("replace each other; pick distinct keys or grow --buckets.")
}

// formatValue formats a stored value for display.
// Shows text when printable, hex otherwise.
func formatValue(v []byte) string {
	if len(v) == 0 {
		return "(empty)"
	}

	printable := true

	for _, b := range v {
		if b < 32 || b > 126 {
			printable = false

			break
		}
	}

	if printable {
		return string(v)
	}

	if len(v) > 64 {
		return fmt.Sprintf("%s... (%d bytes)", hex.EncodeToString(v[:64]), len(v))
	}

	return hex.EncodeToString(v)
}

func (r *REPL) cmdPut(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: put <key> [value]")

		return
	}

	key := args[0]
	value := strings.Join(args[1:], " ")

	err := r.store.Put(key, []byte(value))
	if err != nil {
		fmt.Printf("Error: %v\n", err)

		return
	}

	fmt.Printf("OK: put %q (%d bytes)\n", key, len(value))
}

func (r *REPL) cmdGet(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: get <key>")

		return
	}

	value, err := r.store.Get(args[0])
	if err != nil {
		if errors.Is(err, pail.ErrKeyNotFound) {
			fmt.Println("(not found)")

			return
		}

		fmt.Printf("Error: %v\n", err)

		return
	}

	fmt.Println(formatValue(value))
}

func (r *REPL) cmdDelete(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: del <key>")

		return
	}

	existed, err := r.store.Delete(args[0])
	if err != nil {
		fmt.Printf("Error: %v\n", err)

		return
	}

	if existed {
		fmt.Printf("OK: deleted %q\n", args[0])
	} else {
		fmt.Printf("OK: %q did not exist\n", args[0])
	}
}

func (r *REPL) cmdInfo() {
	st := r.store.Stats()

	fmt.Printf("Store Info:\n")
	fmt.Printf("  Directory:      %s\n", r.dir)
	fmt.Printf("  Buckets:        %d\n", st.BucketCount)
	fmt.Printf("  Used slots:     %d\n", st.UsedSlots)
	fmt.Printf("  Load factor:    %.3f\n", st.LoadFactor)
	fmt.Printf("  Log bytes:      %d\n", st.LogBytes)
	fmt.Printf("  Pending dels:   %d\n", st.PendingDeletions)
}

func (r *REPL) cmdStats() {
	st := r.store.Stats()

	fmt.Printf("Operation counters:\n")
	fmt.Printf("  Puts:         %d\n", st.Puts)
	fmt.Printf("  Gets:         %d\n", st.Gets)
	fmt.Printf("  Misses:       %d\n", st.Misses)
	fmt.Printf("  Deletes:      %d\n", st.Deletes)
	fmt.Printf("  Compactions:  %d\n", st.Compactions)
	fmt.Printf("  Resizes:      %d\n", st.Resizes)
}

func (r *REPL) cmdCompact() {
	before := r.store.Stats().LogBytes

	start := time.Now()

	err := r.store.Compact()
	if err != nil {
		fmt.Printf("Error: %v\n", err)

		return
	}

	after := r.store.Stats().LogBytes
	fmt.Printf("OK: compacted in %v (%d -> %d bytes, reclaimed %d)\n",
		time.Since(start).Round(time.Millisecond), before, after, before-after)
}

func (r *REPL) cmdBench(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: bench <count>")

		return
	}

	count, err := strconv.Atoi(args[0])
	if err != nil || count < 1 {
		fmt.Printf("Error: count must be a positive integer\n")

		return
	}

	// Distinct keys per run so repeated benches don't just overwrite.
	nonce := time.Now().UnixNano()

	keys := make([]string, count)
	for i := 0; i < count; i++ {
		keys[i] = fmt.Sprintf("bench:%d:%06d", nonce, i)
	}

	fmt.Printf("Benchmarking %d operations...\n", count)

	putStart := time.Now()

	for i, key := range keys {
		err = r.store.Put(key, []byte(fmt.Sprintf("value-%06d", i)))
		if err != nil {
			fmt.Printf("Error at put %d: %v\n", i+1, err)

			return
		}
	}

	putElapsed := time.Since(putStart)

	getStart := time.Now()
	hits := 0

	for _, key := range keys {
		_, err := r.store.Get(key)
		if err != nil {
			if errors.Is(err, pail.ErrKeyNotFound) {
				continue
			}

			fmt.Printf("Error on get: %v\n", err)

			return
		}

		hits++
	}

	getElapsed := time.Since(getStart)

	fmt.Printf("\nResults:\n")
	fmt.Printf("  Puts:  %d ops in %v (%.0f ops/sec)\n",
		count, putElapsed.Round(time.Millisecond), float64(count)/putElapsed.Seconds())
	fmt.Printf("  Gets:  %d ops in %v (%.0f ops/sec), %d hits\n",
		count, getElapsed.Round(time.Millisecond), float64(count)/getElapsed.Seconds(), hits)
}
