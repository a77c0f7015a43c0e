package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/fatih/color"
	"github.com/spf13/viper"
	"golang.org/x/time/rate"

	"github.com/erain9/otcbook/pkg/core"
	"github.com/erain9/otcbook/pkg/server"
)

// loadConfig holds the load test parameters, read from environment variables
type loadConfig struct {
	ServerAddr        string
	NumWorkers        int
	OrdersPerWorker   int
	MaxConcurrentReqs int
	AcceptorCount     int
	RequestTimeout    time.Duration
}

func loadTestConfig() *loadConfig {
	v := viper.New()
	v.SetDefault("OTCBOOK_ADDR", "http://localhost:8080")
	v.SetDefault("NUM_WORKERS", 50)
	v.SetDefault("ORDERS_PER_WORKER", 100)
	v.SetDefault("MAX_CONCURRENT_REQS", 100)
	v.SetDefault("ACCEPTOR_COUNT", 100)
	v.SetDefault("REQUEST_TIMEOUT_SECONDS", 5)
	v.AutomaticEnv()

	return &loadConfig{
		ServerAddr:        v.GetString("OTCBOOK_ADDR"),
		NumWorkers:        v.GetInt("NUM_WORKERS"),
		OrdersPerWorker:   v.GetInt("ORDERS_PER_WORKER"),
		MaxConcurrentReqs: v.GetInt("MAX_CONCURRENT_REQS"),
		AcceptorCount:     v.GetInt("ACCEPTOR_COUNT"),
		RequestTimeout:    time.Duration(v.GetInt("REQUEST_TIMEOUT_SECONDS")) * time.Second,
	}
}

func main() {
	cfg := loadTestConfig()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	go func() {
		<-sigChan
		log.Println("Received interrupt signal, cleaning up...")
		cancel()
	}()

	client := &http.Client{Timeout: cfg.RequestTimeout}
	token, _ := core.GenerateFakeERC20Address()

	// Register the test token
	if err := postJSON(ctx, client, cfg.ServerAddr+"/api/registry/tokens", server.AddTokenRequest{
		ChainID: 1,
		Token:   token,
		Symbol:  "LOAD",
	}, nil); err != nil {
		log.Fatalf("Failed to register token: %v", err)
	}
	log.Printf("Registered load test token: %s", token)

	// Latencies recorded in microseconds, up to 1 minute
	hist := hdrhistogram.New(1, int64(time.Minute/time.Microsecond), 3)
	var histMu sync.Mutex

	// Set up rate limiter and wait group
	limiter := rate.NewLimiter(rate.Limit(cfg.MaxConcurrentReqs), cfg.MaxConcurrentReqs)
	var wg sync.WaitGroup
	errChan := make(chan error, cfg.NumWorkers*cfg.OrdersPerWorker)

	// Start submit workers
	start := time.Now()
	log.Printf("Starting %d workers, %d orders per worker...", cfg.NumWorkers, cfg.OrdersPerWorker)

	for i := 0; i < cfg.NumWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			owner, _ := core.GenerateFakeERC20Address()
			for j := 0; j < cfg.OrdersPerWorker; j++ {
				if err := limiter.Wait(ctx); err != nil {
					errChan <- fmt.Errorf("rate limiter error: %v", err)
					return
				}

				side := "sell"
				if (workerID+j)%2 == 0 {
					side = "buy"
				}

				reqStart := time.Now()
				err := postJSON(ctx, client, cfg.ServerAddr+"/api/orders", server.SubmitOrderRequest{
					Token:  token,
					Owner:  owner,
					Side:   side,
					Price:  "100.00",
					Amount: "1000",
				}, nil)
				elapsed := time.Since(reqStart)

				if err != nil {
					errChan <- fmt.Errorf("failed to submit order: %v", err)
					continue
				}

				histMu.Lock()
				hist.RecordValue(elapsed.Microseconds())
				histMu.Unlock()
			}
		}(i)
	}

	// Wait for all workers to finish
	wg.Wait()
	duration := time.Since(start)
	close(errChan)

	// Process errors
	var errs []error
	for err := range errChan {
		errs = append(errs, err)
	}

	// Concurrent-accept phase: many takers race for one order's quantity.
	// The fill arithmetic guarantees the total filled never exceeds the
	// order amount, however many accepts land at once.
	accepted, rejected := acceptStorm(ctx, client, cfg, token)

	// Print results
	green := color.New(color.FgGreen).SprintfFunc()
	red := color.New(color.FgRed).SprintfFunc()
	cyan := color.New(color.FgCyan).SprintfFunc()

	total := cfg.NumWorkers * cfg.OrdersPerWorker
	fmt.Println(cyan("\n=== Load test results ==="))
	fmt.Printf("Submit phase completed in %v\n", duration)
	fmt.Printf("Total orders attempted: %d\n", total)
	fmt.Printf("Throughput: %.0f orders/sec\n", float64(total-len(errs))/duration.Seconds())
	fmt.Printf("Submit latency: p50=%v p95=%v p99=%v max=%v\n",
		time.Duration(hist.ValueAtQuantile(50))*time.Microsecond,
		time.Duration(hist.ValueAtQuantile(95))*time.Microsecond,
		time.Duration(hist.ValueAtQuantile(99))*time.Microsecond,
		time.Duration(hist.Max())*time.Microsecond)
	fmt.Printf("Accept storm: %s accepted, %s rejected\n",
		green("%d", accepted), red("%d", rejected))

	if len(errs) > 0 {
		fmt.Println(red("Errors encountered: %d", len(errs)))
		log.Printf("First error: %v", errs[0])
		os.Exit(1)
	}
	fmt.Println(green("No errors encountered"))
}

// acceptStorm submits one order and races cfg.AcceptorCount accepts of
// a fifth of it each. At most five can succeed.
func acceptStorm(ctx context.Context, client *http.Client, cfg *loadConfig, token string) (accepted, rejected int) {
	owner, _ := core.GenerateFakeERC20Address()

	var order struct {
		ID string `json:"id"`
	}
	err := postJSON(ctx, client, cfg.ServerAddr+"/api/orders", server.SubmitOrderRequest{
		Token:  token,
		Owner:  owner,
		Side:   "sell",
		Price:  "100.00",
		Amount: "1000",
	}, &order)
	if err != nil {
		log.Printf("Failed to submit storm order: %v", err)
		return 0, 0
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	for i := 0; i < cfg.AcceptorCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			taker, _ := core.GenerateFakeERC20Address()
			err := postJSON(ctx, client, cfg.ServerAddr+"/api/orders/"+order.ID+"/accept",
				server.AcceptOrderRequest{Taker: taker, Amount: "200"}, nil)
			mu.Lock()
			if err != nil {
				rejected++
			} else {
				accepted++
			}
			mu.Unlock()
		}()
	}
	wg.Wait()
	return accepted, rejected
}

func postJSON(ctx context.Context, client *http.Client, url string, body, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr server.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return fmt.Errorf("%s (HTTP %d)", apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
