// Command mock-endpoints simulates webhook subscribers for local testing of
// the dispatcher: always-succeed, slow, always-fail, and flaky routes, plus
// signature verification when SECRET is set.
package main

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"sync/atomic"
	"time"
)

var requestCount atomic.Int64

func main() {
	port := "9090"
	if p := os.Getenv("PORT"); p != "" {
		port = p
	}
	secret := os.Getenv("SECRET")

	// Successful endpoint — always returns 200
	http.HandleFunc("/webhook/success", func(w http.ResponseWriter, r *http.Request) {
		count := requestCount.Add(1)
		logRequest(r, count, 200, verify(r, secret))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "received"})
	})

	// Slow endpoint — delays 3 seconds before responding
	http.HandleFunc("/webhook/slow", func(w http.ResponseWriter, r *http.Request) {
		count := requestCount.Add(1)
		time.Sleep(3 * time.Second)
		logRequest(r, count, 200, verify(r, secret))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "received (slow)"})
	})

	// Failing endpoint — always returns 500
	http.HandleFunc("/webhook/fail", func(w http.ResponseWriter, r *http.Request) {
		count := requestCount.Add(1)
		logRequest(r, count, 500, verify(r, secret))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "internal server error"})
	})

	// Flaky endpoint — fails every other request
	http.HandleFunc("/webhook/flaky", func(w http.ResponseWriter, r *http.Request) {
		count := requestCount.Add(1)
		status := http.StatusOK
		if count%2 == 0 {
			status = http.StatusServiceUnavailable
		}
		logRequest(r, count, status, verify(r, secret))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]int{"status": status})
	})

	// Stats endpoint — shows request count
	http.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]int64{"total_requests": requestCount.Load()})
	})

	log.Printf("Mock endpoint server starting on :%s", port)
	log.Printf("  POST /webhook/success  -> 200 OK")
	log.Printf("  POST /webhook/slow     -> 200 OK (3s delay)")
	log.Printf("  POST /webhook/fail     -> 500 Error")
	log.Printf("  POST /webhook/flaky    -> alternates 200/503")
	log.Printf("  GET  /stats            -> request count")

	if err := http.ListenAndServe(":"+port, nil); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

// verify checks the X-Webhook-Signature header against the shared secret.
// Returns "-" when no secret is configured.
func verify(r *http.Request, secret string) string {
	if secret == "" {
		return "-"
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return "read-error"
	}

	sig := strings.TrimPrefix(r.Header.Get("X-Webhook-Signature"), "sha256=")
	raw, err := hex.DecodeString(sig)
	if err != nil {
		return "bad-hex"
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	if hmac.Equal(mac.Sum(nil), raw) {
		return "valid"
	}
	return "INVALID"
}

func logRequest(r *http.Request, count int64, status int, sigCheck string) {
	fmt.Printf("[#%d] %s %s -> %d | sig=%s check=%s webhook=%s ts=%s\n",
		count,
		r.Method,
		r.URL.Path,
		status,
		truncate(r.Header.Get("X-Webhook-Signature"), 16),
		sigCheck,
		truncate(r.Header.Get("X-Webhook-ID"), 8),
		r.Header.Get("X-Webhook-Timestamp"),
	)
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
