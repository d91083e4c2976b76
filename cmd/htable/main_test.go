package main

import (
	"bytes"
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PurpleMyst/akuli-hashtable/internal/hashtable"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	filename := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(filename, data, 0600))
	return filename
}

func TestRunDemo(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, runDemo(&out, DemoOptions{Elements: 51}, GlobalOptions{}))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "get(3) = 8, true", lines[0])
	assert.Contains(t, lines[1], "51 keys retrievable")
}

func TestRunDemoCapacityLimit(t *testing.T) {
	var out bytes.Buffer
	err := runDemo(&out, DemoOptions{Elements: 51}, GlobalOptions{MaxCapacity: 16})
	require.ErrorIs(t, err, hashtable.ErrNoMem)
}

func TestRunLoad(t *testing.T) {
	input := "a\t1\nb\t2\n\na\t3\nc\n"
	filename := writeFile(t, "pairs.txt", []byte(input))

	for _, hasher := range []string{"xxhash", "sha256"} {
		var out bytes.Buffer
		opts := LoadOptions{Hasher: hasher, Get: []string{"a", "c", "missing"}}
		require.NoError(t, runLoad(&out, filename, opts, GlobalOptions{}))

		s := out.String()
		assert.Contains(t, s, "entries: 4\n")
		assert.Contains(t, s, "duplicates: 1\n")
		assert.Contains(t, s, "a: 1, 3\n")
		assert.Contains(t, s, "c: \n")
		assert.Contains(t, s, "missing: not found\n")
	}
}

func TestRunLoadZstd(t *testing.T) {
	var plain strings.Builder
	for i := 0; i < 500; i++ {
		plain.WriteString("key")
		plain.WriteString(strings.Repeat("x", i%7))
		plain.WriteString(string(rune('a' + i%26)))
		plain.WriteString("\tv\n")
	}

	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	compressed := enc.EncodeAll([]byte(plain.String()), nil)
	require.NoError(t, enc.Close())

	filename := writeFile(t, "pairs.txt.zst", compressed)

	var out bytes.Buffer
	require.NoError(t, runLoad(&out, filename, LoadOptions{Hasher: "xxhash"}, GlobalOptions{}))
	assert.Contains(t, out.String(), "entries: 500\n")
}

func TestRunLoadErrors(t *testing.T) {
	filename := writeFile(t, "pairs.txt", []byte("a\t1\n"))

	err := runLoad(&bytes.Buffer{}, filename, LoadOptions{Hasher: "md5"}, GlobalOptions{})
	require.Error(t, err)

	err = runLoad(&bytes.Buffer{}, filename+".missing", LoadOptions{Hasher: "xxhash"}, GlobalOptions{})
	require.Error(t, err)
}

func TestDedup(t *testing.T) {
	rnd := rand.New(rand.NewSource(23))
	block := make([]byte, 16*1024*1024)
	_, _ = rnd.Read(block)

	// the same random data twice yields every chunk twice, except those
	// spanning the seam
	data := append(append([]byte{}, block...), block...)

	pol, err := parsePolynomial("3da3358b4dc173")
	require.NoError(t, err)

	m, res, err := dedup(bytes.NewReader(data), pol, GlobalOptions{})
	require.NoError(t, err)
	defer m.Close()

	assert.Equal(t, uint64(len(data)), res.Bytes)
	assert.Equal(t, res.Chunks, m.Len())
	assert.Greater(t, res.DuplicateBytes, uint64(0))
	assert.NotEmpty(t, res.DuplicateChunks)
	assert.Less(t, res.UniqueChunks, res.Chunks)

	for _, id := range res.DuplicateChunks {
		positions := m.GetAll(id)
		require.GreaterOrEqual(t, len(positions), 2)
		assert.Less(t, positions[0].Offset, positions[1].Offset, "positions are kept in insertion order")
	}
}

func TestParsePolynomial(t *testing.T) {
	_, err := parsePolynomial("zz")
	require.Error(t, err)

	_, err = parsePolynomial("4")
	require.Error(t, err, "x^2 is reducible")

	pol, err := parsePolynomial("")
	require.NoError(t, err)
	assert.True(t, pol.Irreducible())
}

func TestRunBench(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, runBench(context.Background(), &out, BenchOptions{Tables: 3, Entries: 1000}, GlobalOptions{}))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	for _, line := range lines {
		assert.Contains(t, line, "1000 entries")
	}

	require.Error(t, runBench(context.Background(), &out, BenchOptions{Tables: 0}, GlobalOptions{}))
}

func TestRunBenchMemoryLimit(t *testing.T) {
	err := runBench(context.Background(), &bytes.Buffer{}, BenchOptions{Tables: 2, Entries: 10000}, GlobalOptions{MemoryLimit: 4096})
	require.ErrorIs(t, err, hashtable.ErrNoMem)
}

func TestTableOptions(t *testing.T) {
	assert.Len(t, GlobalOptions{}.tableOptions(), 2)
	assert.Len(t, GlobalOptions{MaxCapacity: 64, MemoryLimit: 1 << 20}.tableOptions(), 4)
}

func TestSetupLogging(t *testing.T) {
	require.NoError(t, setupLogging(GlobalOptions{LogLevel: "debug"}))
	require.Error(t, setupLogging(GlobalOptions{LogLevel: "loud"}))
	require.NoError(t, setupLogging(GlobalOptions{LogLevel: "info"}))
}

func TestEnvInt(t *testing.T) {
	t.Setenv("HTABLE_TEST_INT", "")
	assert.Equal(t, 7, envInt("HTABLE_TEST_INT", 7))
	t.Setenv("HTABLE_TEST_INT", "128")
	assert.Equal(t, 128, envInt("HTABLE_TEST_INT", 7))
	t.Setenv("HTABLE_TEST_INT", "x")
	assert.Equal(t, 7, envInt("HTABLE_TEST_INT", 7))
}
