package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"
)

var baseURL = "http://localhost:8080"

func main() {
	if u := os.Getenv("E2E_BASE_URL"); u != "" {
		baseURL = u
	}

	// 1. Health Check
	checkEndpoint("GET", "/health", nil, 200)

	// 2. Wait for the first ticker snapshot
	waitForSnapshot(30 * time.Second)

	// 3. Search tickers
	checkEndpoint("GET", "/tickers?q=btc", nil, 200)

	// 4. Add a holding, then add it again to hit the update path
	checkEndpoint("POST", "/portfolio", map[string]interface{}{"symbol": "ETHUSDT", "unit": "4"}, 201)
	checkEndpoint("POST", "/portfolio", map[string]interface{}{"symbol": "ETHUSDT", "unit": 6}, 200)

	// 5. Unknown symbols are rejected
	checkEndpoint("POST", "/portfolio", map[string]interface{}{"symbol": "NOTACOIN", "unit": 1}, 404)

	// 6. Update and read back
	checkEndpoint("PUT", "/portfolio/ETHUSDT", map[string]interface{}{"unit": 250000}, 200)
	checkEndpoint("GET", "/portfolio", nil, 200)
	checkEndpoint("GET", "/portfolio/chart", nil, 200)

	// 7. Manual refresh, 200 when a fetch is already running
	refresh()

	// 8. Remove
	checkEndpoint("DELETE", "/portfolio/ETHUSDT", nil, 200)
	checkEndpoint("PUT", "/portfolio/ETHUSDT", map[string]interface{}{"unit": 1}, 404)

	fmt.Println("ALL TESTS PASSED")
}

func checkEndpoint(method, path string, body interface{}, expectedStatus int) []byte {
	fmt.Printf("Testing %s %s...\n", method, path)
	var bodyReader io.Reader
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, _ := http.NewRequest(method, baseURL+path, bodyReader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != expectedStatus {
		log.Fatalf("Expected status %d, got %d. Body: %s", expectedStatus, resp.StatusCode, string(respBody))
	}
	if len(respBody) > 300 {
		fmt.Printf("Response: %s...\n", string(respBody[:300]))
	} else {
		fmt.Printf("Response: %s\n", string(respBody))
	}
	return respBody
}

func waitForSnapshot(timeout time.Duration) {
	fmt.Println("Waiting for ticker snapshot...")
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		var st struct {
			Size      int    `json:"snapshot_size"`
			LastError string `json:"last_error"`
		}
		raw := checkEndpoint("GET", "/status", nil, 200)
		if err := json.Unmarshal(raw, &st); err == nil && st.Size > 0 {
			return
		}
		time.Sleep(time.Second)
	}
	log.Fatal("no ticker snapshot before timeout")
}

func refresh() {
	fmt.Println("Testing POST /refresh...")
	resp, err := http.Post(baseURL+"/refresh", "application/json", nil)
	if err != nil {
		log.Fatalf("Refresh failed: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != 202 && resp.StatusCode != 200 {
		log.Fatalf("Refresh failed with status %d: %s", resp.StatusCode, string(body))
	}
	fmt.Printf("Response: %s\n", string(body))
}
