package client

import (
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ValentinKolb/qKV/cmd/util"
	"github.com/ValentinKolb/qKV/lib/quorum"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for qKV replicas",
		Long:    "Runs put, put-large, get and mixed benchmarks against the configured replicas. Concurrent puts on the same key are denied by the write locks, denials are counted and not treated as errors.",
		Args:    cobra.NoArgs,
		RunE:    runPerf,
		PreRunE: processPerfConfig,
	}
	perfKeyPrefix        = "__test"
	perfLargeValueSizeKB = 100
	perfNumThreads       = 10
	perfKeySpread        = 100
	perfSkip             = make([]string, 0)
)

func init() {
	// add flags
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. put,get)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of threads to use for the benchmark"))
	key = "large-value-size"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How large the value for the put-large test should be (in KB)"))
	key = "keys"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How many different keys to use for the tests"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfLargeValueSizeKB = viper.GetInt("large-value-size")
	perfKeySpread = viper.GetInt("keys")
	perfNumThreads = viper.GetInt("threads")
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	if perfKeySpread <= 0 || perfNumThreads <= 0 || perfLargeValueSizeKB <= 0 {
		return fmt.Errorf("keys, threads and large-value-size must be positive")
	}
	return nil
}

// benchStats counts the outcomes of the operations of one benchmark
type benchStats struct {
	denied atomic.Int64
	failed atomic.Int64
}

func (s *benchStats) record(err error) {
	switch {
	case err == nil, errors.Is(err, quorum.ErrKeyNotFound):
	case errors.Is(err, quorum.ErrLockNotAcquired):
		s.denied.Add(1)
	default:
		s.failed.Add(1)
	}
}

type perfResult struct {
	testing.BenchmarkResult
	denied int64
	failed int64
}

func runPerf(_ *cobra.Command, _ []string) error {

	fmt.Println("Performance testing tool for qKV replicas")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(clientConfig.String())
	fmt.Printf("Threads: %d\n", perfNumThreads)
	fmt.Println()

	fmt.Println("starting tests...")

	results := make(map[string]perfResult)
	bench := func(test string, prepare func(getKey func(int) string, iter func(func(string))), op func(key string) error) {
		stats := &benchStats{}
		result := testing.Benchmark(func(b *testing.B) {
			if shouldSkip(test) {
				return
			}

			// prepare keys
			getKey, iter := getKeys(test)
			if prepare != nil {
				prepare(getKey, iter)
			}

			b.SetParallelism(perfNumThreads)

			b.ResetTimer()

			b.RunParallel(func(pb *testing.PB) {
				counter := 0
				for pb.Next() {
					stats.record(op(getKey(counter)))
					counter++
				}
			})
		})

		res := perfResult{BenchmarkResult: result, denied: stats.denied.Load(), failed: stats.failed.Load()}
		results[test] = res
		printResult(test, res)
	}

	// write all keys once so reads find a value
	fill := func(_ func(int) string, iter func(func(string))) {
		iter(func(k string) {
			if _, err := coordinator.Put(k, "test"); err != nil {
				fmt.Printf("(prepare) - error putting key %s: %v\n", k, err)
			}
		})
	}

	bench("put", nil, func(key string) error {
		_, err := coordinator.Put(key, "test")
		return err
	})

	largeValue := strings.Repeat("x", perfLargeValueSizeKB*1024)
	bench("put-large", nil, func(key string) error {
		_, err := coordinator.Put(key, largeValue)
		return err
	})

	bench("get", fill, func(key string) error {
		_, err := coordinator.Get(key)
		return err
	})

	bench("get-missing", nil, func(key string) error {
		_, err := coordinator.Get(key)
		return err
	})

	var mixedCounter atomic.Int64
	bench("mixed", fill, func(key string) error {
		if mixedCounter.Add(1)%2 == 0 {
			_, err := coordinator.Put(key, "test")
			return err
		}
		_, err := coordinator.Get(key)
		return err
	})

	// Write results to csv is specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func shouldSkip(test string) bool {
	return slices.Contains(perfSkip, test)
}

// creates an array of test keys and functions to work with them
func getKeys(prefix string) (func(int) string, func(func(string))) {
	keys := make([]string, perfKeySpread)
	for i := 0; i < perfKeySpread; i++ {
		keys[i] = fmt.Sprintf("%s-%s-%d", perfKeyPrefix, prefix, i)
	}

	// Function to get a key by index (with wraparound)
	getKey := func(i int) string {
		return keys[i%perfKeySpread]
	}

	// Function to iterate over all keys and apply a function to each
	iterateKeys := func(fn func(string)) {
		for _, key := range keys {
			fn(key)
		}
	}

	return getKey, iterateKeys
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(test string, result perfResult) {
	if result.NsPerOp() == 0 {
		fmt.Printf("%-20sskipped\n", test)
		return
	}

	nsPerOp := math.Max(float64(result.NsPerOp()), 1) // prevent division by zero
	opsPerSec := 1.0 / (nsPerOp / 1e9)

	// Print the formatted result
	fmt.Printf("%-20s%.0fns/op (%s/op)\t%.0f ops/sec\tlock denied: %d\tfailed: %d\n",
		test, nsPerOp, time.Duration(nsPerOp), opsPerSec, result.denied, result.failed)
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results map[string]perfResult) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	header := []string{
		"Test", "NsPerOp", "DurationPerOp", "OpsPerSec", "Skipped", "LockDenied", "Failed",
		"Replicas", "ReadQuorum", "WriteQuorum", "QuorumPolicy", "TimeoutSec", "Serializer",
		"Threads", "LargeValueSizeKB", "Keys Count",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	// Write test results
	for test, result := range results {
		var nsPerOp float64
		var opsPerSec float64
		var skipped string

		if result.NsPerOp() == 0 {
			skipped = "true"
		} else {
			skipped = "false"
			nsPerOp = math.Max(float64(result.NsPerOp()), 1)
			opsPerSec = 1.0 / (nsPerOp / 1e9)
		}

		row := []string{
			test,
			fmt.Sprintf("%.0f", nsPerOp),
			time.Duration(nsPerOp).String(),
			fmt.Sprintf("%.0f", opsPerSec),
			skipped,
			strconv.FormatInt(result.denied, 10),
			strconv.FormatInt(result.failed, 10),
			strings.Join(clientConfig.Quorum.Replicas, ";"),
			strconv.Itoa(clientConfig.Quorum.ReadQuorum),
			strconv.Itoa(clientConfig.Quorum.WriteQuorum),
			string(clientConfig.Quorum.Policy),
			strconv.Itoa(clientConfig.TimeoutSecond),
			viper.GetString("serializer"),
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfLargeValueSizeKB),
			strconv.Itoa(perfKeySpread),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", test, err)
		}
	}

	return nil
}
