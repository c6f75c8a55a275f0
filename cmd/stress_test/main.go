package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/apex/log"

	"github.com/rl1809/catalog/internal/core/domain"
	"github.com/rl1809/catalog/internal/logging"
)

const (
	defaultBaseURL = "http://localhost:4001"
	totalRequests  = 500
	concurrency    = 50
	requestTimeout = 5 * time.Second
)

// Hammers /api/stats and checks every response agrees. Set STORE_PATH to
// have the store's mtime bumped halfway through, forcing a refresh under
// load.
func main() {
	logging.InitLogger("info")

	baseURL := os.Getenv("CATALOG_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	storePath := os.Getenv("STORE_PATH")

	client := &http.Client{Timeout: requestTimeout}

	var (
		successCount atomic.Int32
		failCount    atomic.Int32
		mu           sync.Mutex
		seen         = make(map[domain.Stats]int)
	)

	jobs := make(chan int)
	var wg sync.WaitGroup

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range jobs {
				stats, err := fetchStats(context.Background(), client, baseURL)
				if err != nil {
					failCount.Add(1)
					log.WithError(err).Warn("request failed")
					continue
				}
				successCount.Add(1)
				mu.Lock()
				seen[stats]++
				mu.Unlock()
			}
		}()
	}

	for i := 0; i < totalRequests; i++ {
		if i == totalRequests/2 && storePath != "" {
			now := time.Now()
			if err := os.Chtimes(storePath, now, now); err != nil {
				log.WithError(err).Warn("touch store")
			}
		}
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	elapsed := time.Since(start)

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Successful:       %d\n", successCount.Load())
	fmt.Printf("Failed:           %d\n", failCount.Load())
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Printf("Requests/sec:     %.0f\n", float64(totalRequests)/elapsed.Seconds())
	fmt.Printf("Distinct results: %d\n", len(seen))
	for stats, n := range seen {
		fmt.Printf("  total=%d averagePrice=%.4f  x%d\n", stats.Total, stats.AveragePrice, n)
	}
	fmt.Println("==========================================")

	if failCount.Load() > 0 || len(seen) != 1 {
		fmt.Println("FAIL: responses disagree or requests failed")
		os.Exit(1)
	}
	fmt.Println("PASS: every response returned the same stats")
}

func fetchStats(ctx context.Context, client *http.Client, baseURL string) (domain.Stats, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/stats", nil)
	if err != nil {
		return domain.Stats{}, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return domain.Stats{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.Stats{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var stats domain.Stats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return domain.Stats{}, err
	}
	return stats, nil
}
