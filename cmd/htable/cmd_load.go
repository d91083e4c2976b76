package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/PurpleMyst/akuli-hashtable/internal/kv"
)

var cmdLoad = &cobra.Command{
	Use:   "load [flags] FILE",
	Short: "Load key/value pairs from a file into a table",
	Long: `
The "load" command reads lines of the form "key<TAB>value" from FILE and
inserts them into a table. Lines without a tab store an empty value. Files
ending in ".zst" are decompressed with zstd. Keys given with --get are looked
up afterwards; duplicate keys print every stored value.

EXIT STATUS
===========

Exit status is 0 if the command was successful, and non-zero if there was any error.
`,
	Args:              cobra.ExactArgs(1),
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLoad(cmd.OutOrStdout(), args[0], loadOptions, globalOptions)
	},
}

// LoadOptions bundles all options for the load command.
type LoadOptions struct {
	Hasher string
	Get    []string
}

var loadOptions = LoadOptions{Hasher: "xxhash"}

func init() {
	cmdRoot.AddCommand(cmdLoad)

	f := cmdLoad.Flags()
	f.StringVar(&loadOptions.Hasher, "hasher", loadOptions.Hasher, "key hash `function` (xxhash, sha256)")
	f.StringArrayVar(&loadOptions.Get, "get", nil, "look up `key` after loading (can be specified multiple times)")
}

func stringHasher(name string) (kv.Hasher[string], error) {
	switch name {
	case "xxhash":
		return kv.StringHasher, nil
	case "sha256":
		return kv.SHA256Hasher, nil
	}
	return nil, errors.Errorf("unknown hasher %q", name)
}

// openInput opens filename, transparently decompressing zstd files.
func openInput(filename string) (io.ReadCloser, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if !strings.HasSuffix(filename, ".zst") {
		return f, nil
	}

	dec, err := zstd.NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, errors.Wrap(err, "zstd.NewReader")
	}
	return &zstdFile{Decoder: dec, f: f}, nil
}

type zstdFile struct {
	*zstd.Decoder
	f *os.File
}

func (z *zstdFile) Close() error {
	z.Decoder.Close()
	return z.f.Close()
}

func runLoad(out io.Writer, filename string, opts LoadOptions, gopts GlobalOptions) error {
	hasher, err := stringHasher(opts.Hasher)
	if err != nil {
		return err
	}

	rd, err := openInput(filename)
	if err != nil {
		return err
	}
	defer rd.Close()

	m, err := kv.New[string, string](hasher, gopts.tableOptions()...)
	if err != nil {
		return err
	}
	defer m.Close()

	sc := bufio.NewScanner(rd)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	lines := 0
	for sc.Scan() {
		lines++
		line := sc.Text()
		if line == "" {
			continue
		}
		key, value, _ := strings.Cut(line, "\t")
		if err := m.Set(key, value); err != nil {
			return errors.Wrapf(err, "%s:%d", filename, lines)
		}
	}
	if err := sc.Err(); err != nil {
		return errors.Wrapf(err, "read %s", filename)
	}

	st := m.Stats()
	log.WithFields(log.Fields{
		"file":    filename,
		"lines":   lines,
		"entries": st.Entries,
		"buckets": st.Buckets,
		"grows":   st.Grows,
	}).Info("file loaded")

	fmt.Fprintf(out, "entries: %d\nduplicates: %d\nbuckets: %d (%d used)\nlongest chain: %d\nload factor: %.3f\n",
		st.Entries, st.Duplicates, st.Buckets, st.UsedBuckets, st.LongestChain, st.LoadFactor())

	for _, key := range opts.Get {
		values := m.GetAll(key)
		if len(values) == 0 {
			fmt.Fprintf(out, "%s: not found\n", key)
			continue
		}
		fmt.Fprintf(out, "%s: %s\n", key, strings.Join(values, ", "))
	}
	return nil
}
