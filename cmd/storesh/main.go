// Command storesh is an interactive shell over an in-process Store: an
// external collaborator exercising only the library's public API, the way
// the teacher's docdbsh talks to docdb only through its client package.
// There is no server process here to dial into — storesh embeds a Store
// directly, since the store this repo implements is an in-process library,
// not a service.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/peterh/liner"

	"github.com/indexedstore/store"
	"github.com/indexedstore/store/internal/config"
	"github.com/indexedstore/store/internal/types"
)

func main() {
	delim := flag.String("delim", "|", "composite index delimiter")
	key := flag.String("key", "", "record field used to derive an id on set")
	versioning := flag.Bool("versioning", false, "enable per-id version history")
	index := flag.String("index", "", "comma-separated initial descriptors, e.g. status,team|tier")
	flag.Parse()

	var descriptors []string
	if *index != "" {
		descriptors = strings.Split(*index, ",")
	}

	s := store.New(&config.Config{
		Delimiter:  *delim,
		Key:        *key,
		Versioning: *versioning,
		Index:      descriptors,
		RawDefault: true,
	})
	defer s.Close()

	fmt.Println("store shell. Type .help for commands, .exit to quit.")

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	for {
		input, err := line.Prompt("> ")
		if err != nil {
			if err == io.EOF || err == liner.ErrPromptAborted {
				fmt.Println()
				return
			}
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if exit := dispatch(s, input); exit {
			return
		}
	}
}

func dispatch(s *store.Store, input string) (exit bool) {
	fields := strings.SplitN(input, " ", 2)
	cmd := fields[0]
	var rest string
	if len(fields) > 1 {
		rest = strings.TrimSpace(fields[1])
	}

	switch cmd {
	case ".exit", ".quit":
		return true
	case ".help":
		printHelp()
	case ".set":
		runSet(s, rest)
	case ".get":
		runGet(s, rest)
	case ".del":
		runDel(s, rest)
	case ".find":
		runFind(s, rest)
	case ".index":
		runCreateIndex(s, rest)
	case ".reindex":
		if err := s.Reindex(context.Background()); err != nil {
			fmt.Println("error:", err)
			return
		}
		fmt.Println("ok")
	case ".stats":
		runStats(s)
	case ".dump":
		runDump(s, rest)
	default:
		fmt.Printf("unknown command: %s (try .help)\n", cmd)
	}
	return false
}

func printHelp() {
	fmt.Print(`commands:
  .set <id|-> <json>     set a record; id "-" auto-generates one
  .get <id>               fetch a record
  .del <id>               delete a record
  .find <json>            exact-match lookup via a declared index
  .index <descriptor>     declare a secondary index (e.g. team|tier)
  .reindex                rebuild every declared index
  .stats                  print store-wide cardinality
  .dump records|indexes   print a stable snapshot
  .exit                   leave the shell
`)
}

func runSet(s *store.Store, rest string) {
	parts := strings.SplitN(rest, " ", 2)
	if len(parts) != 2 {
		fmt.Println("usage: .set <id|-> <json>")
		return
	}
	id := parts[0]
	if id == "-" {
		id = ""
	}
	var record store.Record
	if err := json.Unmarshal([]byte(parts[1]), &record); err != nil {
		fmt.Println("invalid json:", err)
		return
	}
	out, err := s.Set(id, record, true, true)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	printJSON(out)
}

func runGet(s *store.Store, id string) {
	if id == "" {
		fmt.Println("usage: .get <id>")
		return
	}
	record, err := s.Get(id, true)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	printJSON(record)
}

func runDel(s *store.Store, id string) {
	if id == "" {
		fmt.Println("usage: .del <id>")
		return
	}
	if err := s.Del(id); err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Println("ok")
}

func runFind(s *store.Store, jsonMatch string) {
	if jsonMatch == "" {
		fmt.Println("usage: .find <json>")
		return
	}
	var match map[string]interface{}
	if err := json.Unmarshal([]byte(jsonMatch), &match); err != nil {
		fmt.Println("invalid json:", err)
		return
	}
	found, err := s.Find(match, true)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	for _, record := range found {
		printJSON(record)
	}
	fmt.Printf("%s matched\n", humanize.Comma(int64(len(found))))
}

func runCreateIndex(s *store.Store, descriptor string) {
	if descriptor == "" {
		fmt.Println("usage: .index <descriptor>")
		return
	}
	if err := s.CreateIndex(descriptor); err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Println("ok")
}

func runStats(s *store.Store) {
	stats := s.Stats()
	fmt.Printf("records:    %s\n", humanize.Comma(int64(stats.Size)))
	fmt.Printf("descriptors: %d\n", stats.Descriptors)
	fmt.Printf("versioned ids: %s\n", humanize.Comma(int64(stats.VersionedIDs)))
	fmt.Printf("history entries: %s\n", humanize.Comma(int64(stats.VersionEntries)))
	for _, descriptor := range s.Descriptors() {
		idxStats := s.IndexStats(descriptor)
		fmt.Printf("  %s: %d keys, %d ids\n", descriptor, idxStats.KeyCount, idxStats.IDCount)
	}
}

func runDump(s *store.Store, kind string) {
	var dumpKind types.DumpKind
	switch kind {
	case "records":
		dumpKind = types.DumpRecords
	case "indexes":
		dumpKind = types.DumpIndexes
	default:
		fmt.Println("usage: .dump records|indexes")
		return
	}
	data, err := s.Dump(dumpKind)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	printJSON(data)
}

func printJSON(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Println(string(data))
}
