package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/PurpleMyst/akuli-hashtable/internal/hashtable"
)

var version = "0.1.0"

// cmdRoot is the base command when no other command has been specified.
var cmdRoot = &cobra.Command{
	Use:   "htable",
	Short: "Exercise the chained hash table engine",
	Long: `
htable drives the hash table engine from the command line: it reproduces
the basic insert/lookup scenario, loads key/value files, finds duplicate
chunks in files and benchmarks table growth.
`,
	Version:           version,
	SilenceErrors:     true,
	SilenceUsage:      true,
	DisableAutoGenTag: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogging(globalOptions)
	},

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
		os.Exit(0)
	},
}

// GlobalOptions hold options shared by all commands.
type GlobalOptions struct {
	LogLevel        string
	LogJSON         bool
	InitialCapacity int
	MaxCapacity     int
	MemoryLimit     int
}

var globalOptions = GlobalOptions{
	LogLevel: "info",
}

func init() {
	f := cmdRoot.PersistentFlags()
	f.StringVar(&globalOptions.LogLevel, "log-level", globalOptions.LogLevel, "log `level` (debug, info, warn, error)")
	f.BoolVar(&globalOptions.LogJSON, "log-json", false, "write log output as JSON")
	f.IntVar(&globalOptions.InitialCapacity, "initial-capacity", hashtable.DefaultCapacity, "initial number of buckets")
	f.IntVar(&globalOptions.MaxCapacity, "max-capacity", envInt("HTABLE_MAX_CAPACITY", 0), "maximum number of buckets, 0 for no limit (default: $HTABLE_MAX_CAPACITY)")
	f.IntVar(&globalOptions.MemoryLimit, "memory-limit", 0, "limit table storage to `bytes`, 0 for no limit")
}

func envInt(name string, def int) int {
	s := os.Getenv(name)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		log.Warnf("ignoring invalid %s=%q: %v", name, s, err)
		return def
	}
	return v
}

func setupLogging(opts GlobalOptions) error {
	level, err := log.ParseLevel(opts.LogLevel)
	if err != nil {
		return errors.Wrap(err, "--log-level")
	}
	log.SetLevel(level)
	log.SetOutput(os.Stderr)
	if opts.LogJSON {
		log.SetFormatter(&log.JSONFormatter{})
	}
	return nil
}

// tableOptions translates the global options into options for a new table.
func (opts GlobalOptions) tableOptions() []hashtable.Option {
	o := []hashtable.Option{
		hashtable.WithInitialCapacity(opts.InitialCapacity),
		hashtable.WithLogger(log.StandardLogger()),
	}
	if opts.MaxCapacity > 0 {
		o = append(o, hashtable.WithMaxCapacity(opts.MaxCapacity))
	}
	if opts.MemoryLimit > 0 {
		o = append(o, hashtable.WithAllocator(hashtable.NewBudget(opts.MemoryLimit)))
	}
	return o
}

func main() {
	if err := cmdRoot.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
