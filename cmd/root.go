package cmd

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/x86emu/tieredjit/jit"
)

var (
	// CLI flags for the tiering engine
	logLevel       string // Log verbosity level
	hotThreshold   uint64 // Execution count before a block is compiled
	cacheMaxBlocks int    // Compiled-block cache capacity
	tuningName     string // Named tuning profile from tunings.yaml (overrides the two above)

	// CLI flags for the synthetic guest workload
	seed           int64 // Seed for guest control-flow generation
	guestBlocks    int   // Number of basic blocks in the synthetic guest
	slices         int   // Number of run slices (compiler drains between slices)
	blocksPerSlice int   // Basic blocks executed per slice
	smcInterval    int   // Interpreted blocks between self-modifying stores (0 = never)
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "tieredjit",
	Short: "Tiered JIT engine core with a synthetic guest workload driver",
}

// runCmd drives a synthetic self-modifying guest through the tiered
// dispatcher and reports the engine statistics.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the synthetic guest workload through the tiering engine",
	Run: func(cmd *cobra.Command, args []string) {
		// Set up logging
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		if tuningName != "" {
			threshold, maxBlocks, ok := GetTuning(tuningName)
			if !ok {
				logrus.Fatalf("Could not find tuning profile %q in %s", tuningName, tuningsFilepath)
			}
			hotThreshold, cacheMaxBlocks = threshold, maxBlocks
		}

		logrus.Infof("Starting run: threshold=%d, cache=%d blocks, guest=%d blocks, %d slices x %d blocks, smc-interval=%d",
			hotThreshold, cacheMaxBlocks, guestBlocks, slices, blocksPerSlice, smcInterval)

		startTime := time.Now()

		result := runSyntheticGuest(guestConfig{
			Seed:           seed,
			GuestBlocks:    guestBlocks,
			Slices:         slices,
			BlocksPerSlice: blocksPerSlice,
			SMCInterval:    smcInterval,
			Engine: jit.Config{
				HotThreshold:   hotThreshold,
				CacheMaxBlocks: cacheMaxBlocks,
			},
		})

		result.Stats.Print()
		logrus.Infof("Executed %d interpreted / %d compiled blocks (cache: %d entries) in %v",
			result.InterpBlocks, result.JITBlocks, result.CacheLen, time.Since(startTime))
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	runCmd.Flags().StringVar(&logLevel, "log", "info", "Log level (trace, debug, info, warn, error, fatal, panic)")

	// Engine configs
	runCmd.Flags().Uint64Var(&hotThreshold, "hot-threshold", 16, "Execution count before a block is compiled")
	runCmd.Flags().IntVar(&cacheMaxBlocks, "cache-max-blocks", 1024, "Compiled-block cache capacity")
	runCmd.Flags().StringVar(&tuningName, "tuning", "", "Named tuning profile from tunings.yaml")

	// Synthetic guest configs
	runCmd.Flags().Int64Var(&seed, "seed", 42, "Seed for guest control-flow generation")
	runCmd.Flags().IntVar(&guestBlocks, "guest-blocks", 256, "Number of basic blocks in the synthetic guest")
	runCmd.Flags().IntVar(&slices, "slices", 100, "Number of run slices (compiler drains between slices)")
	runCmd.Flags().IntVar(&blocksPerSlice, "blocks-per-slice", 1000, "Basic blocks executed per slice")
	runCmd.Flags().IntVar(&smcInterval, "smc-interval", 0, "Interpreted blocks between self-modifying stores (0 = never)")

	// Attach `run` as a subcommand to `root`
	rootCmd.AddCommand(runCmd)
}
