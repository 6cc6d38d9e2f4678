// Command catalogctl is the offline CLI over the catalog generator
// (§6): generate | update | validate | compare, each reading snapshots
// or catalogs from disk and writing plain JSON back out.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/gigcatalog/ingestor/catalog"
	"github.com/gigcatalog/ingestor/dedup"
	"github.com/gigcatalog/ingestor/errs"
	"github.com/gigcatalog/ingestor/eventmodel"
	"github.com/gigcatalog/ingestor/trust"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	flag "github.com/spf13/pflag"
)

const (
	exitOK       = 0
	exitFailure  = 1
	exitUsageErr = 2
)

type flags struct {
	sourcesDir    string
	output        string
	oldCatalog    string
	minConfidence float64
	dateTolerance int
	sameDay       bool
	noValidate    bool
	maxAge        time.Duration
	trustScores   string
	verbose       bool
	dryRun        bool
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		usage()
		return exitUsageErr
	}
	sub := args[0]

	fs := flag.NewFlagSet(sub, flag.ContinueOnError)
	f := flags{}
	fs.StringVar(&f.sourcesDir, "sources-dir", "./data/normalized", "directory of per-source snapshot JSON files")
	fs.StringVar(&f.output, "output", "./data/catalog.json", "catalog output path")
	fs.StringVar(&f.oldCatalog, "old-catalog", "", "previous catalog path, for diffing")
	fs.Float64Var(&f.minConfidence, "min-confidence", 0.7, "fuzzy-match minimum confidence")
	fs.IntVar(&f.dateTolerance, "date-tolerance", 2, "fuzzy-match date tolerance, in hours")
	fs.BoolVar(&f.sameDay, "same-day", false, "require same calendar day for a fuzzy match")
	fs.BoolVar(&f.noValidate, "no-validate", false, "skip record validation before generation")
	var maxAgeHours int
	fs.IntVar(&maxAgeHours, "max-age", 24, "maximum snapshot age, in hours, before it's skipped with a warning")
	fs.StringVar(&f.trustScores, "trust-scores", "", "comma-separated source=score overrides, e.g. venueA=90,venueB=60")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "verbose output")
	fs.BoolVar(&f.dryRun, "dry-run", false, "compute but do not write output")

	if err := fs.Parse(args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitUsageErr
	}
	f.maxAge = time.Duration(maxAgeHours) * time.Hour

	switch sub {
	case "generate":
		return cmdGenerate(f, "")
	case "update":
		if f.oldCatalog == "" {
			f.oldCatalog = f.output
		}
		return cmdGenerate(f, f.oldCatalog)
	case "validate":
		return cmdValidate(f)
	case "compare":
		return cmdCompare(fs.Args())
	default:
		usage()
		return exitUsageErr
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: catalogctl <generate|update|validate|compare> [flags]")
}

func cmdGenerate(f flags, previousCatalogPath string) int {
	snapshots, err := loadSnapshots(f.sourcesDir)
	if err != nil {
		printErr(err)
		return exitFailure
	}
	if len(snapshots) == 0 {
		printErr(fmt.Errorf("no snapshots found under %s", f.sourcesDir))
		return exitFailure
	}

	if !f.noValidate {
		if code := validateSnapshots(snapshots, f.verbose); code != exitOK {
			return code
		}
	}

	scores := trust.NewScores(parseTrustScores(f.trustScores), 50)
	opts := catalog.Options{
		Dedup: dedupOptionsFrom(f),
		TrustScores:    scores,
		MaxSnapshotAge: f.maxAge,
	}

	previousVersion := "0.0.0"
	var previousGigs []eventmodel.Event
	if previousCatalogPath != "" {
		if prev, ok, err := readCatalog(previousCatalogPath); err == nil && ok {
			previousVersion = prev.Metadata.Version
			previousGigs = prev.Gigs
		}
	}

	bar := newProgressBar(len(snapshots), f.verbose)
	for range snapshots {
		bar.Add(1)
	}

	cat, warnings := catalog.Generate(snapshots, opts, time.Now(), previousVersion)
	for _, w := range warnings {
		printWarn(fmt.Sprintf("skipped stale snapshot %q (age %s)", w.Source, w.Age.Round(time.Second)))
	}

	if previousGigs != nil {
		d := catalog.ComputeDiff(previousGigs, cat.Gigs)
		printDiffSummary(d)
	}

	if f.dryRun {
		printInfo(fmt.Sprintf("dry run: would write %d gigs to %s", len(cat.Gigs), f.output))
		return exitOK
	}

	if err := writeAtomicJSON(f.output, cat); err != nil {
		printErr(err)
		return exitFailure
	}
	printInfo(fmt.Sprintf("wrote %d gigs (version %s) to %s", len(cat.Gigs), cat.Metadata.Version, f.output))
	return exitOK
}

func cmdValidate(f flags) int {
	snapshots, err := loadSnapshots(f.sourcesDir)
	if err != nil {
		printErr(err)
		return exitFailure
	}
	return validateSnapshots(snapshots, f.verbose)
}

func cmdCompare(args []string) int {
	if len(args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: catalogctl compare <old-catalog.json> <new-catalog.json>")
		return exitUsageErr
	}
	oldCat, ok, err := readCatalog(args[0])
	if err != nil || !ok {
		printErr(fmt.Errorf("read %s: %w", args[0], err))
		return exitFailure
	}
	newCat, ok, err := readCatalog(args[1])
	if err != nil || !ok {
		printErr(fmt.Errorf("read %s: %w", args[1], err))
		return exitFailure
	}
	d := catalog.ComputeDiff(oldCat.Gigs, newCat.Gigs)
	printDiffSummary(d)
	return exitOK
}

func validateSnapshots(snapshots []catalog.Snapshot, verbose bool) int {
	sanitizer := errs.Sanitizer{AutoFix: false}
	totalInvalid := 0
	for _, snap := range snapshots {
		batch := errs.ValidateBatch(snap.Events, sanitizer)
		if len(batch.Invalid) == 0 {
			continue
		}
		totalInvalid += len(batch.Invalid)
		for _, inv := range batch.Invalid {
			for _, e := range inv.Errors {
				if verbose {
					printWarn(fmt.Sprintf("%s: %s: %s", snap.Source, inv.Record.Title, e.Error()))
				}
			}
		}
	}
	if totalInvalid > 0 {
		printErr(fmt.Errorf("%d invalid record(s) across %d snapshot(s)", totalInvalid, len(snapshots)))
		return exitFailure
	}
	printInfo("all snapshots valid")
	return exitOK
}

func loadSnapshots(dir string) ([]catalog.Snapshot, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read sources dir: %w", err)
	}
	var snapshots []catalog.Snapshot
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		b, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", e.Name(), err)
		}
		var snap catalog.Snapshot
		if err := json.Unmarshal(b, &snap); err != nil {
			return nil, fmt.Errorf("decode %s: %w", e.Name(), err)
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots, nil
}

func readCatalog(path string) (catalog.Catalog, bool, error) {
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return catalog.Catalog{}, false, nil
	}
	if err != nil {
		return catalog.Catalog{}, false, err
	}
	var cat catalog.Catalog
	if err := json.Unmarshal(b, &cat); err != nil {
		return catalog.Catalog{}, false, err
	}
	return cat, true, nil
}

func writeAtomicJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func dedupOptionsFrom(f flags) dedup.Options {
	return dedup.Options{
		MinConfidence:      f.minConfidence,
		DateToleranceHours: f.dateTolerance,
		RequireSameDay:     f.sameDay,
	}
}

func parseTrustScores(spec string) map[string]int {
	if spec == "" {
		return nil
	}
	out := make(map[string]int)
	for _, pair := range strings.Split(spec, ",") {
		kv := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(kv) != 2 {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(kv[1]))
		if err != nil {
			continue
		}
		out[strings.TrimSpace(kv[0])] = n
	}
	return out
}

func newProgressBar(total int, verbose bool) *progressbar.ProgressBar {
	if !verbose && !isatty.IsTerminal(os.Stdout.Fd()) {
		return progressbar.DefaultSilent(int64(total))
	}
	return progressbar.Default(int64(total), "processing sources")
}

func printDiffSummary(d catalog.Diff) {
	printInfo(fmt.Sprintf("added=%d updated=%d removed=%d unchanged=%d", len(d.Added), len(d.Updated), len(d.Removed), len(d.Unchanged)))
}

func printInfo(msg string) {
	color.New(color.FgGreen).Fprintln(os.Stdout, msg)
}

func printWarn(msg string) {
	color.New(color.FgYellow).Fprintln(os.Stderr, "warn: "+msg)
}

func printErr(err error) {
	color.New(color.FgRed).Fprintln(os.Stderr, "error: "+err.Error())
}
