package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/PurpleMyst/akuli-hashtable/internal/hashtable"
	"github.com/PurpleMyst/akuli-hashtable/internal/kv"
)

var cmdBench = &cobra.Command{
	Use:   "bench",
	Short: "Measure insert and lookup throughput",
	Long: `
The "bench" command fills independent tables with sequential integer keys,
one goroutine per table, looks every key up again and reports timings and
growth statistics per table.

EXIT STATUS
===========

Exit status is 0 if the command was successful, and non-zero if there was any error.
`,
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBench(cmd.Context(), cmd.OutOrStdout(), benchOptions, globalOptions)
	},
}

// BenchOptions bundles all options for the bench command.
type BenchOptions struct {
	Tables  uint
	Entries uint
}

var benchOptions = BenchOptions{Tables: 4, Entries: 100000}

func init() {
	cmdRoot.AddCommand(cmdBench)

	f := cmdBench.Flags()
	f.UintVar(&benchOptions.Tables, "tables", benchOptions.Tables, "build `n` tables concurrently")
	f.UintVar(&benchOptions.Entries, "entries", benchOptions.Entries, "insert `n` entries into each table")
}

// BenchResult holds the measurements for one table.
type BenchResult struct {
	Insert time.Duration
	Lookup time.Duration
	Stats  hashtable.Stats
}

func benchTable(ctx context.Context, n uint, gopts GlobalOptions) (BenchResult, error) {
	var res BenchResult

	m, err := kv.New[uint64, uint64](kv.Uint64Hasher, gopts.tableOptions()...)
	if err != nil {
		return res, err
	}
	defer m.Close()

	start := time.Now()
	for i := uint64(0); i < uint64(n); i++ {
		if i%4096 == 0 && ctx.Err() != nil {
			return res, ctx.Err()
		}
		if err := m.Set(i, i*2); err != nil {
			return res, errors.Wrapf(err, "set %d", i)
		}
	}
	res.Insert = time.Since(start)

	start = time.Now()
	for i := uint64(0); i < uint64(n); i++ {
		if i%4096 == 0 && ctx.Err() != nil {
			return res, ctx.Err()
		}
		v, ok := m.Get(i)
		if !ok || v != i*2 {
			return res, errors.Errorf("lookup of %d returned %d, %v", i, v, ok)
		}
	}
	res.Lookup = time.Since(start)
	res.Stats = m.Stats()
	return res, nil
}

func runBench(ctx context.Context, out io.Writer, opts BenchOptions, gopts GlobalOptions) error {
	if opts.Tables == 0 {
		return errors.New("--tables must be at least 1")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	results := make([]BenchResult, opts.Tables)
	wg, wgCtx := errgroup.WithContext(ctx)
	for i := range results {
		i := i
		wg.Go(func() error {
			res, err := benchTable(wgCtx, opts.Entries, gopts)
			if err != nil {
				return errors.Wrapf(err, "table %d", i)
			}
			results[i] = res
			log.WithFields(log.Fields{
				"table":   i,
				"entries": res.Stats.Entries,
				"grows":   res.Stats.Grows,
			}).Debug("table done")
			return nil
		})
	}
	if err := wg.Wait(); err != nil {
		return err
	}

	for i, res := range results {
		perOp := func(d time.Duration) time.Duration {
			if opts.Entries == 0 {
				return 0
			}
			return d / time.Duration(opts.Entries)
		}
		fmt.Fprintf(out, "table %d: %d entries, %d buckets, %d grows, longest chain %d, insert %v/op, lookup %v/op\n",
			i, res.Stats.Entries, res.Stats.Buckets, res.Stats.Grows, res.Stats.LongestChain,
			perOp(res.Insert), perOp(res.Lookup))
	}
	return nil
}
