// Replay tool for measuring Heron's symptom ranking against labelled cases.
//
// Usage:
//
//	go run ./cmd/replay -csv cases.csv -url http://localhost:8080
//
// The CSV needs a header with case_id, symptoms and expected columns.
// Symptoms are symptom IDs separated by ";" and expected is the condition
// ID a clinician assigned. Each case is posted to /symptoms/analyze and
// scored on whether the expected condition ranks first or in the top three.
package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Case is one labelled symptom set.
type Case struct {
	ID       string
	Symptoms []string
	Expected string
}

// analyzeRequest mirrors the API request body.
type analyzeRequest struct {
	Symptoms []string `json:"symptoms"`
}

// analyzeResponse is the subset of the API response the replay reads.
type analyzeResponse struct {
	Findings []struct {
		ConditionID string `json:"conditionId"`
		Score       int    `json:"score"`
		Severity    string `json:"severity"`
	} `json:"findings"`
}

// Metrics tracks replay results.
type Metrics struct {
	Top1      int64 // expected condition ranked first
	Top3      int64 // expected condition in the first three
	NoFinding int64 // nothing scored above the threshold

	TotalProcessed int64
	TotalErrors    int64

	ProcessingTimeMs int64
}

func main() {
	csvPath := flag.String("csv", "", "Path to labelled cases CSV")
	baseURL := flag.String("url", "http://localhost:8080", "Heron base URL")
	limit := flag.Int("limit", 0, "Maximum cases to replay (0 = all)")
	workers := flag.Int("workers", 4, "Number of concurrent workers")
	verbose := flag.Bool("verbose", false, "Print each case result")
	flag.Parse()

	if *csvPath == "" {
		fmt.Println("Usage: replay -csv cases.csv [-url http://localhost:8080]")
		fmt.Println("\nFlags:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	fmt.Println("==============================================")
	fmt.Println("   HERON REPLAY - symptom ranking accuracy")
	fmt.Println("==============================================")
	fmt.Printf("\nCSV File:   %s\n", *csvPath)
	fmt.Printf("Heron URL:  %s\n", *baseURL)
	fmt.Printf("Workers:    %d\n", *workers)
	fmt.Println()

	if err := checkHealth(*baseURL); err != nil {
		fmt.Printf("ERROR: Heron not reachable at %s: %v\n", *baseURL, err)
		fmt.Println("\nMake sure Heron is running:")
		fmt.Println("  go run ./cmd/heron serve")
		os.Exit(1)
	}
	fmt.Println("Heron is healthy")

	file, err := os.Open(*csvPath)
	if err != nil {
		fmt.Printf("ERROR: %v\n", err)
		os.Exit(1)
	}
	cases, err := readCases(file, *limit)
	file.Close()
	if err != nil {
		fmt.Printf("ERROR: Failed to read CSV: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Loaded %d cases\n", len(cases))

	fmt.Printf("\nReplaying with %d workers...\n", *workers)
	startTime := time.Now()
	metrics := runReplay(cases, *baseURL, *workers, *verbose)
	duration := time.Since(startTime)

	printResults(metrics, duration)
}

func checkHealth(baseURL string) error {
	resp, err := http.Get(baseURL + "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

// readCases parses labelled cases. Rows missing a column are skipped.
func readCases(r io.Reader, limit int) ([]Case, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	colIndex := make(map[string]int)
	for i, col := range header {
		colIndex[strings.ToLower(strings.TrimSpace(col))] = i
	}
	for _, col := range []string{"case_id", "symptoms", "expected"} {
		if _, ok := colIndex[col]; !ok {
			return nil, fmt.Errorf("missing column %q", col)
		}
	}

	var cases []Case
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			continue
		}

		field := func(name string) string {
			i := colIndex[name]
			if i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		c := Case{ID: field("case_id"), Expected: field("expected")}
		for _, s := range strings.Split(field("symptoms"), ";") {
			if s = strings.TrimSpace(s); s != "" {
				c.Symptoms = append(c.Symptoms, s)
			}
		}
		if c.Expected == "" || len(c.Symptoms) == 0 {
			continue
		}

		cases = append(cases, c)
		if limit > 0 && len(cases) >= limit {
			break
		}
	}

	return cases, nil
}

func runReplay(cases []Case, baseURL string, numWorkers int, verbose bool) *Metrics {
	metrics := &Metrics{}
	if numWorkers < 1 {
		numWorkers = 1
	}

	work := make(chan Case, 100)
	var wg sync.WaitGroup

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := &http.Client{Timeout: 10 * time.Second}

			for c := range work {
				start := time.Now()
				result, err := analyze(client, baseURL, c)
				atomic.AddInt64(&metrics.ProcessingTimeMs, time.Since(start).Milliseconds())
				atomic.AddInt64(&metrics.TotalProcessed, 1)

				if err != nil {
					atomic.AddInt64(&metrics.TotalErrors, 1)
					if verbose {
						fmt.Printf("ERROR: %s -> %v\n", c.ID, err)
					}
					continue
				}

				rank := rankOf(result, c.Expected)
				switch {
				case len(result.Findings) == 0:
					atomic.AddInt64(&metrics.NoFinding, 1)
				case rank == 1:
					atomic.AddInt64(&metrics.Top1, 1)
					atomic.AddInt64(&metrics.Top3, 1)
				case rank > 1 && rank <= 3:
					atomic.AddInt64(&metrics.Top3, 1)
				}

				if verbose {
					status := "ok"
					if rank != 1 {
						status = "--"
					}
					top := "none"
					if len(result.Findings) > 0 {
						top = result.Findings[0].ConditionID
					}
					fmt.Printf("%s %-10s | expected: %-22s | top: %-22s | rank: %d\n",
						status, c.ID, c.Expected, top, rank)
				}
			}
		}()
	}

	for _, c := range cases {
		work <- c
	}
	close(work)

	wg.Wait()

	return metrics
}

// rankOf returns the 1-based rank of condition in the findings, or 0.
func rankOf(resp *analyzeResponse, condition string) int {
	for i, f := range resp.Findings {
		if f.ConditionID == condition {
			return i + 1
		}
	}
	return 0
}

func analyze(client *http.Client, baseURL string, c Case) (*analyzeResponse, error) {
	body, err := json.Marshal(analyzeRequest{Symptoms: c.Symptoms})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequest(http.MethodPost, baseURL+"/symptoms/analyze", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Trace-ID", "replay-"+c.ID)

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var result analyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	return &result, nil
}

func printResults(m *Metrics, duration time.Duration) {
	fmt.Println("\n==============================================")
	fmt.Println("                REPLAY RESULTS")
	fmt.Println("==============================================")

	scored := m.TotalProcessed - m.TotalErrors

	fmt.Printf("\nCASES\n")
	fmt.Printf("   Total Processed:  %d\n", m.TotalProcessed)
	fmt.Printf("   Errors:           %d\n", m.TotalErrors)
	fmt.Printf("   No Finding:       %d\n", m.NoFinding)

	fmt.Printf("\nRANKING\n")
	fmt.Printf("   Top-1 Accuracy:   %.4f  (%d / %d)\n", ratio(m.Top1, scored), m.Top1, scored)
	fmt.Printf("   Top-3 Accuracy:   %.4f  (%d / %d)\n", ratio(m.Top3, scored), m.Top3, scored)

	fmt.Printf("\nPERFORMANCE\n")
	fmt.Printf("   Total Duration:   %v\n", duration.Round(time.Millisecond))
	if m.TotalProcessed > 0 {
		avgMs := float64(m.ProcessingTimeMs) / float64(m.TotalProcessed)
		rps := float64(m.TotalProcessed) / duration.Seconds()
		fmt.Printf("   Avg Latency:      %.2f ms\n", avgMs)
		fmt.Printf("   Throughput:       %.2f cases/sec\n", rps)
	}

	fmt.Println()
}

func ratio(n, d int64) float64 {
	if d <= 0 {
		return 0
	}
	return float64(n) / float64(d)
}
