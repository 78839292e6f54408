package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Benchmark settings
var (
	targetURL   string
	concurrency int
	perWorker   int
	amount      string
)

// Metrics
var (
	totalRequests uint64
	success201    uint64
	failOther     uint64
)

func init() {
	flag.StringVar(&targetURL, "url", "http://localhost:8080", "API Base URL")
	flag.IntVar(&concurrency, "workers", 20, "Number of concurrent workers")
	flag.IntVar(&perWorker, "requests", 50, "Transactions posted by each worker")
	flag.StringVar(&amount, "amount", "1.00", "Income amount per transaction")
}

// The benchmark registers a throwaway user, opens one account, and has every
// worker post income to it at once. Under the atomic balance mode the final
// balance equals the sum of the accepted amounts; under read-modify-write
// the difference is the number of lost updates.
func main() {
	flag.Parse()
	each, err := decimal.NewFromString(amount)
	if err != nil || !each.IsPositive() {
		log.Fatalf("amount must be a positive decimal, got %q", amount)
	}
	c := &client{http: &http.Client{Timeout: 5 * time.Second}}

	token, err := c.signUp()
	if err != nil {
		log.Fatalf("sign up: %v", err)
	}
	c.token = token

	accountID, err := c.openAccount()
	if err != nil {
		log.Fatalf("open account: %v", err)
	}

	log.Printf("Starting Benchmark | Workers: %d | Requests/worker: %d | Account: %s", concurrency, perWorker, accountID)

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go worker(&wg, c, accountID, each)
	}
	wg.Wait()
	elapsed := time.Since(start)

	balance, err := c.balance(accountID)
	if err != nil {
		log.Fatalf("read balance: %v", err)
	}
	printResults(elapsed, each, balance)
}

func worker(wg *sync.WaitGroup, c *client, accountID uuid.UUID, each decimal.Decimal) {
	defer wg.Done()
	payload := map[string]any{
		"account_id":       accountID,
		"type":             "income",
		"amount":           each,
		"transaction_date": time.Now().UTC().Format("2006-01-02"),
	}
	for i := 0; i < perWorker; i++ {
		resp, err := c.post("/api/v1/transactions", payload)
		atomic.AddUint64(&totalRequests, 1)
		if err != nil {
			atomic.AddUint64(&failOther, 1)
			continue
		}
		if resp.StatusCode == http.StatusCreated {
			atomic.AddUint64(&success201, 1)
		} else {
			atomic.AddUint64(&failOther, 1)
		}
		resp.Body.Close()
	}
}

type client struct {
	http  *http.Client
	token string
}

func (c *client) post(path string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequest(http.MethodPost, targetURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return c.http.Do(req)
}

// call posts payload and decodes a response with the wanted status into out.
func (c *client) call(path string, payload any, want int, out any) error {
	resp, err := c.post(path, payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != want {
		return fmt.Errorf("%s: status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *client) signUp() (string, error) {
	creds := map[string]string{
		"email":    fmt.Sprintf("bench-%d@example.com", time.Now().UnixNano()),
		"password": "benchmark-password",
	}
	var user map[string]any
	if err := c.call("/api/v1/auth/register", creds, http.StatusCreated, &user); err != nil {
		return "", err
	}
	var tok struct {
		Token string `json:"token"`
	}
	if err := c.call("/api/v1/auth/login", creds, http.StatusOK, &tok); err != nil {
		return "", err
	}
	return tok.Token, nil
}

func (c *client) openAccount() (uuid.UUID, error) {
	var acct struct {
		ID uuid.UUID `json:"id"`
	}
	err := c.call("/api/v1/accounts", map[string]any{"name": "Benchmark", "type": "bank"}, http.StatusCreated, &acct)
	return acct.ID, err
}

func (c *client) balance(accountID uuid.UUID) (decimal.Decimal, error) {
	req, err := http.NewRequest(http.MethodGet, targetURL+"/api/v1/accounts/"+accountID.String(), nil)
	if err != nil {
		return decimal.Zero, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	resp, err := c.http.Do(req)
	if err != nil {
		return decimal.Zero, err
	}
	defer resp.Body.Close()
	var acct struct {
		CurrentBalance decimal.Decimal `json:"current_balance"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&acct); err != nil {
		return decimal.Zero, err
	}
	return acct.CurrentBalance, nil
}

func printResults(d time.Duration, each, balance decimal.Decimal) {
	total := atomic.LoadUint64(&totalRequests)
	s201 := atomic.LoadUint64(&success201)
	fErr := atomic.LoadUint64(&failOther)

	expected := each.Mul(decimal.NewFromInt(int64(s201)))
	lost := expected.Sub(balance).Div(each)

	results := map[string]any{
		"duration_sec":     d.Seconds(),
		"total_requests":   total,
		"throughput_tps":   float64(total) / d.Seconds(),
		"success_created":  s201,
		"errors":           fErr,
		"expected_balance": expected.StringFixed(2),
		"actual_balance":   balance.StringFixed(2),
		"lost_updates":     lost.IntPart(),
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(results)

	file, err := os.Create("results_balance.json")
	if err != nil {
		log.Printf("saving results: %v", err)
		return
	}
	defer file.Close()
	json.NewEncoder(file).Encode(results)
}
