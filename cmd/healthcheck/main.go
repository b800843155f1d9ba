// Package main is a minimal HTTP health check binary for use in distroless
// containers. It exits 0 when the humanizer's /health endpoint returns HTTP
// 200, and 1 otherwise. The target defaults to localhost on HUMANIZER_PORT.
// Compile with CGO_ENABLED=0 for a fully static binary.
package main

import (
	"flag"
	"net/http"
	"os"
	"time"
)

func main() {
	url := flag.String("url", defaultURL(), "Health endpoint to probe")
	timeout := flag.Duration("timeout", 3*time.Second, "Request timeout")
	flag.Parse()

	client := &http.Client{Timeout: *timeout}
	resp, err := client.Get(*url)
	if err != nil {
		os.Exit(1)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		os.Exit(1)
	}
}

func defaultURL() string {
	port := os.Getenv("HUMANIZER_PORT")
	if port == "" {
		port = "8080"
	}
	return "http://localhost:" + port + "/health"
}
