package main

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/PurpleMyst/akuli-hashtable/internal/kv"
)

var cmdDemo = &cobra.Command{
	Use:   "demo",
	Short: "Run the basic insert and lookup scenario",
	Long: `
The "demo" command stores the pair (3, 8) and prints the lookup result, then
inserts 51 sequential keys starting at 0xDEAD with values starting at 0xBEEF,
forcing the table to grow, and verifies every key.

EXIT STATUS
===========

Exit status is 0 if every lookup returned the expected value, and non-zero
otherwise.
`,
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDemo(cmd.OutOrStdout(), demoOptions, globalOptions)
	},
}

// DemoOptions bundles all options for the demo command.
type DemoOptions struct {
	Elements int
}

var demoOptions = DemoOptions{Elements: 51}

func init() {
	cmdRoot.AddCommand(cmdDemo)

	f := cmdDemo.Flags()
	f.IntVar(&demoOptions.Elements, "elements", demoOptions.Elements, "number of sequential keys to insert")
}

func runDemo(out io.Writer, opts DemoOptions, gopts GlobalOptions) error {
	small, err := kv.New[uint8, uint8](func(k uint8) uint32 { return kv.Uint64Hasher(uint64(k)) }, gopts.tableOptions()...)
	if err != nil {
		return err
	}
	defer small.Close()

	if err := small.Set(3, 8); err != nil {
		return errors.Wrap(err, "set")
	}
	v, ok := small.Get(3)
	fmt.Fprintf(out, "get(3) = %v, %v\n", v, ok)

	m, err := kv.New[int, int](kv.IntHasher, gopts.tableOptions()...)
	if err != nil {
		return err
	}
	defer m.Close()

	for i := 0; i < opts.Elements; i++ {
		if err := m.Set(0xDEAD+i, 0xBEEF+i); err != nil {
			return errors.Wrapf(err, "set %#x", 0xDEAD+i)
		}
	}

	for i := 0; i < opts.Elements; i++ {
		v, ok := m.Get(0xDEAD + i)
		if !ok {
			return errors.Errorf("key %#x not found", 0xDEAD+i)
		}
		if v != 0xBEEF+i {
			return errors.Errorf("key %#x: got %#x, want %#x", 0xDEAD+i, v, 0xBEEF+i)
		}
	}

	st := m.Stats()
	fmt.Fprintf(out, "%d keys retrievable, %d buckets after %d grows, load %.2f\n",
		st.Entries, st.Buckets, st.Grows, st.LoadFactor())
	return nil
}
