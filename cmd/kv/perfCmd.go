package kv

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ValentinKolb/shKV/cmd/util"
	"github.com/ValentinKolb/shKV/rpc/client"
	"github.com/ValentinKolb/shKV/rpc/common"
	"github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	perfTestCmd = &cobra.Command{
		Use:   "perf",
		Short: "Performance testing tool for shKV servers",
		Long: `Runs a set of load tests against a shKV server. Every worker owns one client
connection and sends one request at a time, the reported latencies are round trips.`,
		RunE:    runPerf,
		PreRunE: processPerfConfig,
	}
	perfKeyPrefix    = "__perf"
	perfValueSize    = 16
	perfNumThreads   = 10
	perfKeySpread    = 100
	perfOpsPerWorker = 10000
	perfSkip         = make([]string, 0)

	// perfTests are run in this order, each worker runs op(i) perfOpsPerWorker times
	perfTests = []perfTest{
		{name: "set", op: func(s client.IRPCStore, key string, value []byte) error {
			_, _, err := s.Set(key, value)
			return err
		}},
		{name: "get", prefill: true, op: func(s client.IRPCStore, key string, _ []byte) error {
			_, _, err := s.Get(key)
			return err
		}},
		{name: "get-miss", op: func(s client.IRPCStore, key string, _ []byte) error {
			_, _, err := s.Get(key + "-missing")
			return err
		}},
		{name: "delete", prefill: true, op: func(s client.IRPCStore, key string, _ []byte) error {
			_, _, err := s.Delete(key)
			return err
		}},
		{name: "queue-put", op: func(s client.IRPCStore, key string, value []byte) error {
			return s.QueuePut(key, value)
		}},
		{name: "queue-get", op: func(s client.IRPCStore, key string, _ []byte) error {
			_, _, err := s.QueueGet(key)
			return err
		}},
		{name: "queue-size", op: func(s client.IRPCStore, key string, _ []byte) error {
			_, err := s.QueueSize(key)
			return err
		}},
	}
)

type perfTest struct {
	name    string
	prefill bool
	op      func(s client.IRPCStore, key string, value []byte) error
}

// perfResult is the outcome of one test across all workers
type perfResult struct {
	name     string
	timer    metrics.Timer
	errors   metrics.Counter
	duration time.Duration
}

func init() {
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Tests to skip (comma separated - e.g. set,queue-get)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of workers, each with its own connection"))
	key = "ops"
	perfTestCmd.Flags().Int(key, 10000, util.WrapString("Requests per worker and test"))
	key = "value-size"
	perfTestCmd.Flags().Int(key, 16, util.WrapString("Size of the written values in bytes"))
	key = "keys"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How many different keys to use for the tests"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	perfValueSize = viper.GetInt("value-size")
	perfKeySpread = viper.GetInt("keys")
	perfNumThreads = viper.GetInt("threads")
	perfOpsPerWorker = viper.GetInt("ops")
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	if perfNumThreads <= 0 || perfKeySpread <= 0 || perfOpsPerWorker <= 0 {
		return fmt.Errorf("threads, keys and ops must be positive")
	}
	return nil
}

func runPerf(_ *cobra.Command, _ []string) error {
	config := util.GetClientConfig()

	fmt.Println("Performance testing tool for shKV servers")
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(config.String())
	fmt.Printf("Threads: %d, Ops per worker: %d\n", perfNumThreads, perfOpsPerWorker)
	fmt.Println()

	// one connection per worker, requests on a connection are never pipelined
	stores := make([]client.IRPCStore, perfNumThreads)
	defer func() {
		for _, s := range stores {
			if s != nil {
				s.Close()
			}
		}
	}()
	for i := range stores {
		s, err := util.ConnectStore()
		if err != nil {
			return fmt.Errorf("worker %d failed to connect: %w", i, err)
		}
		stores[i] = s
	}

	fmt.Println("starting tests...")

	registry := metrics.NewRegistry()
	var results []perfResult
	value := make([]byte, perfValueSize)

	for _, test := range perfTests {
		if shouldSkip(test.name) {
			fmt.Printf("%-14sskipped\n", test.name)
			continue
		}

		keys := getKeys(test.name)
		if test.prefill {
			for _, k := range keys {
				if _, _, err := stores[0].Set(k, value); err != nil {
					return fmt.Errorf("(%s) - error preparing key: %w", test.name, err)
				}
			}
		}

		result := perfResult{
			name:   test.name,
			timer:  metrics.GetOrRegisterTimer(test.name+".latency", registry),
			errors: metrics.GetOrRegisterCounter(test.name+".errors", registry),
		}

		start := time.Now()
		var wg sync.WaitGroup
		for w, s := range stores {
			wg.Add(1)
			go func(w int, s client.IRPCStore) {
				defer wg.Done()
				for i := 0; i < perfOpsPerWorker; i++ {
					key := keys[(w+i)%len(keys)]
					t := time.Now()
					err := test.op(s, key, value)
					result.timer.UpdateSince(t)
					if err != nil {
						result.errors.Inc(1)
					}
				}
			}(w, s)
		}
		wg.Wait()
		result.duration = time.Since(start)

		// cleanup
		for _, k := range keys {
			stores[0].Delete(k)
			for {
				if _, found, err := stores[0].QueueGet(k); err != nil || !found {
					break
				}
			}
		}

		printResult(result)
		results = append(results, result)
	}

	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results, config); err != nil {
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
	for _, skip := range perfSkip {
		if test == strings.TrimSpace(skip) {
			return true
		}
	}
	return false
}

// getKeys creates the key set of one test
func getKeys(prefix string) []string {
	keys := make([]string, perfKeySpread)
	for i := range keys {
		keys[i] = fmt.Sprintf("%s-%s-%d", perfKeyPrefix, prefix, i)
	}
	return keys
}

func opsPerSec(r perfResult) float64 {
	if r.duration <= 0 {
		return 0
	}
	return float64(r.timer.Count()) / r.duration.Seconds()
}

// printResult prints the result of a test in a formatted way
func printResult(r perfResult) {
	ps := r.timer.Percentiles([]float64{0.5, 0.99})
	fmt.Printf("%-14s%10.0f ops/sec\tmean %-12s p50 %-12s p99 %-12s errors %d\n",
		r.name,
		opsPerSec(r),
		time.Duration(r.timer.Mean()),
		time.Duration(ps[0]),
		time.Duration(ps[1]),
		r.errors.Count(),
	)
}

// writeResultsToCSV writes test results to a CSV file
func writeResultsToCSV(csvPath string, results []perfResult, config common.ClientConfig) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{
		"Test", "Count", "Errors", "OpsPerSec", "MeanNs", "P50Ns", "P99Ns", "MaxNs",
		"Endpoint", "Serializer", "Transport",
		"Threads", "ValueSize", "KeysCount",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	for _, r := range results {
		ps := r.timer.Percentiles([]float64{0.5, 0.99})
		row := []string{
			r.name,
			strconv.FormatInt(r.timer.Count(), 10),
			strconv.FormatInt(r.errors.Count(), 10),
			fmt.Sprintf("%.0f", opsPerSec(r)),
			fmt.Sprintf("%.0f", r.timer.Mean()),
			fmt.Sprintf("%.0f", ps[0]),
			fmt.Sprintf("%.0f", ps[1]),
			strconv.FormatInt(r.timer.Max(), 10),
			config.Endpoint,
			config.Serializer,
			config.Transport,
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfValueSize),
			strconv.Itoa(perfKeySpread),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", r.name, err)
		}
	}

	return nil
}
