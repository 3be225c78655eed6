package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"hybridsearch/internal/search"
)

var (
	namePattern    string
	extensions     []string
	contentPattern string
	caseSensitive  bool
	minSizeStr     string
	maxSizeStr     string
	modifiedAfter  string
	modifiedBefore string
	maxScanStr     string
	useGPU         bool
	workers        int
	excludeDirs    []string
	includeHidden  bool
	sortByPath     bool
	showMatches    bool
)

func main() {
	defer search.CloseLogger()

	rootCmd := &cobra.Command{
		Use:   "hybridsearch <root>",
		Short: "Hybrid CPU/GPU file search",
		Long: `Searches a directory tree by name pattern and/or content regex.
Content matching runs on a CPU worker pool, or on a CUDA device for
literal patterns when built with -tags cuda and --gpu is given.
Example: hybridsearch -n "*.go" -c "func main" --gpu ~/src`,
		Args: cobra.ExactArgs(1),
		RunE: run,
	}

	rootCmd.Flags().StringVarP(&namePattern, "name", "n", "", "name glob or literal substring")
	rootCmd.Flags().StringSliceVarP(&extensions, "ext", "e", nil, "file extensions without dot (repeatable)")
	rootCmd.Flags().StringVarP(&contentPattern, "content", "c", "", "content regular expression")
	rootCmd.Flags().BoolVarP(&caseSensitive, "case-sensitive", "C", false, "match case exactly")
	rootCmd.Flags().StringVar(&minSizeStr, "min-size", "", "minimum file size (e.g. 10KB)")
	rootCmd.Flags().StringVar(&maxSizeStr, "max-size", "", "maximum file size (e.g. 1GB)")
	rootCmd.Flags().StringVar(&modifiedAfter, "after", "", "only files modified after this date (2006-01-02)")
	rootCmd.Flags().StringVar(&modifiedBefore, "before", "", "only files modified before this date (2006-01-02)")
	rootCmd.Flags().StringVar(&maxScanStr, "max-scan", "", "per-file content scan cap (default 100MB)")
	rootCmd.Flags().BoolVar(&useGPU, "gpu", false, "offload eligible batches to the GPU")
	rootCmd.Flags().IntVarP(&workers, "workers", "w", 0, "CPU matcher workers (default: number of cores)")
	rootCmd.Flags().StringSliceVarP(&excludeDirs, "exclude", "x", nil, "directory names to skip (repeatable)")
	rootCmd.Flags().BoolVar(&includeHidden, "hidden", false, "include dot files and directories")
	rootCmd.Flags().BoolVar(&sortByPath, "sorted", false, "sort output by path instead of discovery order")
	rootCmd.Flags().BoolVarP(&showMatches, "matches", "m", true, "print matching lines")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	req := search.Request{
		Root:           args[0],
		NamePattern:    namePattern,
		Extensions:     extensions,
		ContentPattern: contentPattern,
		CaseSensitive:  caseSensitive,
		EnableGPU:      useGPU,
		Workers:        workers,
		ExcludeDirs:    excludeDirs,
		IncludeHidden:  includeHidden,
	}

	var err error
	if req.MinSize, err = parseSize(minSizeStr); err != nil {
		return fmt.Errorf("--min-size: %w", err)
	}
	if req.MaxSize, err = parseSize(maxSizeStr); err != nil {
		return fmt.Errorf("--max-size: %w", err)
	}
	if req.MaxScanBytes, err = parseSize(maxScanStr); err != nil {
		return fmt.Errorf("--max-scan: %w", err)
	}
	if modifiedAfter != "" {
		t, err := time.Parse("2006-01-02", modifiedAfter)
		if err != nil {
			return fmt.Errorf("--after: %w", err)
		}
		req.ModifiedAfter = t
	}
	if modifiedBefore != "" {
		t, err := time.Parse("2006-01-02", modifiedBefore)
		if err != nil {
			return fmt.Errorf("--before: %w", err)
		}
		req.ModifiedBefore = t
	}

	bar := progressbar.Default(-1, "searching")

	engine := search.New(search.WithOnResult(func(r search.Result) {
		bar.Add(1)
	}))

	session, err := engine.Start(req)
	if err != nil {
		return err
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\ninterrupted, finishing in-flight batches...")
		session.Cancel()
	}()

	status := session.Wait()
	bar.Finish()
	fmt.Println()

	results := session.Results()
	if sortByPath {
		results = session.ResultsByPath()
	}
	for _, r := range results {
		fmt.Printf("%s (%s)\n", r.Path, humanize.Bytes(uint64(r.Size)))
		if showMatches {
			for _, m := range r.Matches {
				fmt.Printf("  %d: %s\n", m.Line, m.Excerpt)
			}
		}
	}

	p := session.Poll()
	if p.GPUUnavailable {
		fmt.Fprintln(os.Stderr, "note: GPU was requested but unavailable, search ran on CPU")
	}
	fmt.Printf("\n%s: %d matched, %d scanned", status, p.Matched, p.Scanned)
	if p.SkippedDirs+p.SkippedFiles > 0 {
		fmt.Printf(", %d dirs and %d files skipped", p.SkippedDirs, p.SkippedFiles)
	}
	if p.TooLarge > 0 {
		fmt.Printf(", %d above scan cap", p.TooLarge)
	}
	if p.GPUBatches > 0 {
		fmt.Printf(", %d gpu / %d cpu batches", p.GPUBatches, p.CPUBatches)
	}
	fmt.Println()

	if status == search.StatusFailed {
		return fmt.Errorf("search failed: %s", p.FailReason)
	}
	return nil
}

func parseSize(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, err
	}
	return int64(n), nil
}
