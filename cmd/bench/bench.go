package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"time"

	vegeta "github.com/tsenart/vegeta/v12/lib"
)

const mockPort = 9091

var unaryResp = []byte(`{"id":"bench-123","choices":[{"message":{"role":"assistant","content":"Hello"}}]}`)

// Load generator against a running relay instance. Start the server with a
// virtual model whose first entry points at the mock provider below, e.g.
//
//	providers:
//	  - name: openai
//	    api_key: bench-key
//	    base_url: http://localhost:9091/v1
func main() {
	target := flag.String("target", "http://localhost:8080", "Base URL of the relay under test")
	duration := flag.Duration("duration", 10*time.Second, "Duration of the test")
	rate := flag.Int("rate", 50, "Requests per second")
	model := flag.String("model", "bench-model", "Virtual model name to dispatch")
	apiKey := flag.String("api-key", "", "Relay API key, if auth is enabled")
	mock := flag.Bool("mock", true, "Serve a mock OpenAI-compatible provider on :9091")
	flag.Parse()

	if *mock {
		go startMockProvider()
	}

	body := fmt.Sprintf(`{"model": %q, "messages": [{"role": "user", "content": "Hello"}]}`, *model)

	targeter := func(t *vegeta.Target) error {
		t.Method = "POST"
		t.URL = *target + "/v1/chat/completions"
		t.Body = []byte(body)
		t.Header = http.Header{
			"Content-Type": []string{"application/json"},
		}
		if *apiKey != "" {
			t.Header.Set("Authorization", "Bearer "+*apiKey)
		}
		return nil
	}

	fmt.Printf("Running benchmark: %s duration, %d req/s against %s\n", *duration, *rate, *target)

	attacker := vegeta.NewAttacker(vegeta.KeepAlive(true))
	var metrics vegeta.Metrics

	for res := range attacker.Attack(targeter, vegeta.Rate{Freq: *rate, Per: time.Second}, *duration, "Benchmark") {
		metrics.Add(res)
	}
	metrics.Close()

	fmt.Println("--------------------------------------------------")
	fmt.Println("99th percentile: ", metrics.Latencies.P99)
	fmt.Println("Mean:            ", metrics.Latencies.Mean)
	fmt.Println("Max:             ", metrics.Latencies.Max)
	fmt.Printf("Success:         %.2f%%\n", metrics.Success*100)
	fmt.Printf("Throughput:      %.2f req/s\n", metrics.Throughput)
	fmt.Println("--------------------------------------------------")

	if len(metrics.Errors) > 0 {
		fmt.Println("Error set (first 5 unique):")
		seen := make(map[string]bool)
		count := 0
		for _, msg := range metrics.Errors {
			if !seen[msg] && count < 5 {
				fmt.Println(msg)
				seen[msg] = true
				count++
			}
		}
	}
}

// startMockProvider serves a minimal OpenAI-compatible endpoint so the
// relay has somewhere real to dispatch to.
func startMockProvider() {
	mux := http.NewServeMux()

	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&req)

		time.Sleep(10 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(unaryResp)
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", mockPort),
		Handler: mux,
	}
	_ = server.ListenAndServe()
}
