package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "Base URL of the string analyzer API")
	concurrency := flag.Int("c", 10, "Number of concurrent workers")
	duration := flag.Duration("d", 30*time.Second, "Duration of the load test")
	rps := flag.Int("rps", 1000, "Requests per second limit")
	readRatio := flag.Float64("read-ratio", 0.2, "Fraction of requests that are filtered list queries")
	dupRatio := flag.Float64("dup-ratio", 0.1, "Fraction of creates that repeat an earlier value")
	flag.Parse()

	log.Printf("Starting load test on %s", *baseURL)
	log.Printf("Concurrency: %d, Duration: %s, RPS: %d", *concurrency, *duration, *rps)

	var wg sync.WaitGroup
	var created, conflicts, reads, errorCount atomic.Int64
	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	limiter := rate.NewLimiter(rate.Limit(*rps), 100) // Allow bursts up to 100

	queries := []string{
		"/strings?is_palindrome=true",
		"/strings?min_length=10&max_length=40",
		"/strings?word_count=1",
		"/strings/filter-by-natural-language?query=" + url.QueryEscape("single word palindromic strings"),
		"/strings/filter-by-natural-language?query=" + url.QueryEscape("strings longer than 20 characters"),
	}

	for i := 0; i < *concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			client := &http.Client{
				Timeout: 5 * time.Second,
			}
			var lastValue string

			for {
				if err := limiter.Wait(ctx); err != nil {
					return // Deadline reached
				}

				var req *http.Request
				var err error
				isRead := rand.Float64() < *readRatio
				if isRead {
					target := *baseURL + queries[rand.IntN(len(queries))]
					req, err = http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
				} else {
					value := fmt.Sprintf("worker %d says %s", workerID, uuid.NewString())
					if lastValue != "" && rand.Float64() < *dupRatio {
						value = lastValue
					}
					lastValue = value
					payload := fmt.Sprintf(`{"value": %q}`, value)
					req, err = http.NewRequestWithContext(ctx, http.MethodPost, *baseURL+"/strings", bytes.NewBufferString(payload))
					if err == nil {
						req.Header.Set("Content-Type", "application/json")
					}
				}
				if err != nil {
					continue // Should not happen
				}

				resp, err := client.Do(req)
				if err != nil {
					if ctx.Err() == nil {
						errorCount.Add(1)
					}
					continue
				}
				resp.Body.Close()

				switch {
				case isRead && resp.StatusCode == http.StatusOK:
					reads.Add(1)
				case resp.StatusCode == http.StatusCreated:
					created.Add(1)
				case resp.StatusCode == http.StatusConflict:
					conflicts.Add(1)
				default:
					errorCount.Add(1)
				}
			}
		}(i)
	}

	wg.Wait()

	totalRequests := created.Load() + conflicts.Load() + reads.Load() + errorCount.Load()
	actualRPS := float64(totalRequests) / duration.Seconds()

	log.Println("Load test finished.")
	log.Printf("Total Requests: %d", totalRequests)
	log.Printf("Created (201): %d", created.Load())
	log.Printf("Duplicates (409): %d", conflicts.Load())
	log.Printf("Queries (200): %d", reads.Load())
	log.Printf("Errors: %d", errorCount.Load())
	log.Printf("Actual RPS: %.2f", actualRPS)
}
