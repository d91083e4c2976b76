package main

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/minio/sha256-simd"
	"github.com/pkg/errors"
	"github.com/restic/chunker"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/PurpleMyst/akuli-hashtable/internal/kv"
)

var cmdDedup = &cobra.Command{
	Use:   "dedup [flags] FILE",
	Short: "Find duplicate content-defined chunks in a file",
	Long: `
The "dedup" command splits FILE into content-defined chunks, keys every chunk
by its SHA-256 ID and stores all chunk positions in a table. Chunks that
occur more than once are reported together with all of their offsets.

EXIT STATUS
===========

Exit status is 0 if the command was successful, and non-zero if there was any error.
`,
	Args:              cobra.ExactArgs(1),
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDedup(cmd.OutOrStdout(), args[0], dedupOptions, globalOptions)
	},
}

// DedupOptions bundles all options for the dedup command.
type DedupOptions struct {
	Polynomial string
	Verbose    bool
}

var dedupOptions DedupOptions

func init() {
	cmdRoot.AddCommand(cmdDedup)

	f := cmdDedup.Flags()
	f.StringVar(&dedupOptions.Polynomial, "polynomial", "", "chunker polynomial as hex, random if empty")
	f.BoolVarP(&dedupOptions.Verbose, "verbose", "v", false, "list every duplicate chunk")
}

// chunkID identifies a chunk by the SHA-256 of its content.
type chunkID [sha256.Size]byte

func (id chunkID) Str() string {
	return hex.EncodeToString(id[:4])
}

// hashChunkID uses the leading bytes of the already uniformly distributed
// digest as the table hash.
func hashChunkID(id chunkID) uint32 {
	return binary.LittleEndian.Uint32(id[:4])
}

type chunkPos struct {
	Offset uint
	Length uint
}

// DedupResult summarises a dedup run.
type DedupResult struct {
	Chunks          int
	UniqueChunks    int
	Bytes           uint64
	DuplicateBytes  uint64
	DuplicateChunks []chunkID
}

func parsePolynomial(s string) (chunker.Pol, error) {
	if s == "" {
		pol, err := chunker.RandomPolynomial()
		if err != nil {
			return 0, errors.Wrap(err, "chunker.RandomPolynomial")
		}
		return pol, nil
	}

	var pol chunker.Pol
	if err := pol.UnmarshalJSON([]byte(`"` + s + `"`)); err != nil {
		return 0, errors.Wrapf(err, "invalid polynomial %q", s)
	}
	if !pol.Irreducible() {
		return 0, errors.Errorf("polynomial %v is not irreducible", pol)
	}
	return pol, nil
}

func dedup(rd io.Reader, pol chunker.Pol, gopts GlobalOptions) (*kv.Map[chunkID, chunkPos], DedupResult, error) {
	var res DedupResult

	m, err := kv.New[chunkID, chunkPos](hashChunkID, gopts.tableOptions()...)
	if err != nil {
		return nil, res, err
	}

	chnker := chunker.New(rd, pol)
	buf := make([]byte, chunker.MaxSize)
	for {
		chunk, err := chnker.Next(buf)
		if err == io.EOF {
			break
		}
		if err != nil {
			m.Close()
			return nil, res, errors.Wrap(err, "chunker.Next")
		}

		id := chunkID(sha256.Sum256(chunk.Data))
		res.Chunks++
		res.Bytes += uint64(chunk.Length)

		if _, known := m.Get(id); known {
			res.DuplicateBytes += uint64(chunk.Length)
			if len(m.GetAll(id)) == 1 {
				res.DuplicateChunks = append(res.DuplicateChunks, id)
			}
		} else {
			res.UniqueChunks++
		}

		if err := m.Set(id, chunkPos{Offset: chunk.Start, Length: chunk.Length}); err != nil {
			m.Close()
			return nil, res, errors.Wrapf(err, "store chunk %v", id.Str())
		}
		buf = chunk.Data
	}

	return m, res, nil
}

func runDedup(out io.Writer, filename string, opts DedupOptions, gopts GlobalOptions) error {
	pol, err := parsePolynomial(opts.Polynomial)
	if err != nil {
		return err
	}

	rd, err := openInput(filename)
	if err != nil {
		return err
	}
	defer rd.Close()

	m, res, err := dedup(rd, pol, gopts)
	if err != nil {
		return err
	}
	defer m.Close()

	log.WithFields(log.Fields{
		"file":       filename,
		"polynomial": pol.String(),
		"chunks":     res.Chunks,
	}).Debug("file chunked")

	fmt.Fprintf(out, "chunks: %d (%d unique)\nbytes: %d (%d duplicate)\n",
		res.Chunks, res.UniqueChunks, res.Bytes, res.DuplicateBytes)

	if !opts.Verbose {
		return nil
	}
	for _, id := range res.DuplicateChunks {
		positions := m.GetAll(id)
		fmt.Fprintf(out, "%v: %d bytes at", id.Str(), positions[0].Length)
		for _, p := range positions {
			fmt.Fprintf(out, " %d", p.Offset)
		}
		fmt.Fprintln(out)
	}
	return nil
}
