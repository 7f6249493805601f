// Command dsmprobe inspects a settlement file without writing anything.
//
// It reads the file, reports how source headers map onto canonical columns
// (with fuzzy suggestions for unmapped ones), runs validation on the cleaned
// table, and — when a storage backend is configured — previews which rows
// would collide with already-persisted (site, month) keys.
//
// Typical uses:
//
//	dsmprobe -file settlement.xlsx
//	dsmprobe -file settlement.xlsx -config configs/pipelines/prod.json -limit 20
//
// The exit code is 0 when the file would validate, 1 otherwise, so the
// command also works as a pre-flight check in scripts.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"dsmetl/internal/clean"
	"dsmetl/internal/config"
	"dsmetl/internal/enrich"
	"dsmetl/internal/loader"
	"dsmetl/internal/pipeline"
	"dsmetl/internal/schema"
	"dsmetl/internal/storage"
	"dsmetl/internal/table"

	_ "dsmetl/internal/storage/all"
)

func main() {
	var (
		filePath string
		cfgPath  string
		sheet    string
		limit    int
	)

	flag.StringVar(&filePath, "file", "", "settlement file to inspect (csv, xlsx, xls, html)")
	flag.StringVar(&cfgPath, "config", "", "optional pipeline config; enables the store-duplicate preview")
	flag.StringVar(&sheet, "sheet", "", "worksheet to read from spreadsheet inputs")
	flag.IntVar(&limit, "limit", 10, "max duplicate keys to print")
	flag.Parse()

	if filePath == "" {
		fmt.Fprintln(os.Stderr, "usage: dsmprobe -file <path> [-config <path>] [-sheet <name>] [-limit n]")
		os.Exit(2)
	}

	src, err := loader.Load(filePath, loader.Options{Sheet: sheet})
	if err != nil {
		fatalf("%v", err)
	}
	fmt.Printf("file: %s (%d rows, %d columns)\n", filepath.Base(filePath), src.NumRows(), src.NumColumns())

	aliases := clean.DefaultAliases()
	var store storage.Store
	if cfgPath != "" {
		p, err := config.Load(cfgPath)
		if err != nil {
			fatalf("%v", err)
		}
		if p.Aliases.Path != "" {
			if aliases, err = clean.LoadAliases(p.Aliases.Path); err != nil {
				fatalf("load aliases: %v", err)
			}
		}
		ctx := context.Background()
		if store, err = storage.New(ctx, storage.Config(p.Storage)); err != nil {
			fatalf("open storage: %v", err)
		}
		defer store.Close()
		if err := store.Init(ctx); err != nil {
			fatalf("init storage: %v", err)
		}
	}

	pl := pipeline.New(store, aliases, nil)
	prep, verr := pl.Validate(src)
	printMapping(prep.Report)
	if prep.Dropped > 0 {
		fmt.Printf("\ndropped rows: %d (unresolvable site or month)\n", prep.Dropped)
	}

	if verr != nil {
		fmt.Printf("\nvalidation: FAILED\n  %v\n", verr)
		os.Exit(1)
	}
	fmt.Printf("\nvalidation: OK (%d rows)\n", prep.Table.NumRows())
	if store != nil {
		printDuplicatePreview(pl, prep.Table, limit)
	}
}

func printMapping(rep schema.MappingReport) {
	fmt.Println("\ncolumn mapping:")
	for _, m := range rep.Matched {
		fmt.Printf("  %-30s -> %s\n", m.Source, m.Canonical)
	}
	if len(rep.Unmatched) > 0 {
		fmt.Println("unmapped headers:")
		suggestions := schema.Suggest(rep.Unmatched)
		for _, h := range rep.Unmatched {
			if s, ok := suggestions[h]; ok {
				fmt.Printf("  %-30s (did you mean %s?)\n", h, s)
			} else {
				fmt.Printf("  %s\n", h)
			}
		}
	}
	if len(rep.Missing) > 0 {
		fmt.Println("missing canonical columns:")
		for _, c := range rep.Missing {
			fmt.Printf("  %s\n", c)
		}
	}
}

func printDuplicatePreview(pl *pipeline.Pipeline, t *table.Table, limit int) {
	recs, err := schema.Align(t)
	if err != nil {
		fatalf("align: %v", err)
	}
	dups, err := pl.DetectDuplicates(context.Background(), recs)
	if err != nil {
		fatalf("detect duplicates: %v", err)
	}

	fmt.Printf("\nstore overlap: %d existing, %d new\n", len(dups.Existing), len(dups.New))
	for i, r := range dups.Existing {
		if i == limit {
			fmt.Printf("  ... and %d more\n", len(dups.Existing)-limit)
			break
		}
		fmt.Printf("  %s / %s (%s %s)\n", r.Site, r.Month.Format("2006-01"),
			enrich.FinancialYear(r.Month), enrich.FinancialQuarter(r.Month))
	}
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
