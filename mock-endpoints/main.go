package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"sync/atomic"
)

var requestCount atomic.Int64

type apiResponse struct {
	Msg  string `json:"msg"`
	Code string `json:"code"`
}

type listResponse struct {
	SuccessCount int `json:"successCount"`
	FailCount    int `json:"failCount"`
}

func main() {
	port := "9090"
	if p := os.Getenv("PORT"); p != "" {
		port = p
	}

	// Tracking endpoints — always accept
	for _, path := range []string{
		"/api/users/update",
		"/api/users/updateEmail",
		"/api/users/updateSubscriptions",
		"/api/users/registerDeviceToken",
		"/api/events/track",
		"/api/events/trackPushOpen",
		"/api/commerce/trackPurchase",
	} {
		http.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			count := requestCount.Add(1)
			logRequest(r, count, 200)

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(apiResponse{Code: "Success"})
		})
	}

	// List endpoints — count the subscribers in the request body
	listHandler := func(w http.ResponseWriter, r *http.Request) {
		count := requestCount.Add(1)
		logRequest(r, count, 200)

		var req struct {
			Subscribers []json.RawMessage `json:"subscribers"`
		}
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &req)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(listResponse{SuccessCount: len(req.Subscribers)})
	}
	http.HandleFunc("/api/lists/subscribe", listHandler)
	http.HandleFunc("/api/lists/unsubscribe", listHandler)

	// Rejecting endpoint — 200 with an application-level failure
	http.HandleFunc("/reject/", func(w http.ResponseWriter, r *http.Request) {
		count := requestCount.Add(1)
		logRequest(r, count, 200)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(apiResponse{Code: "BadParams", Msg: "rejected by mock"})
	})

	// Failing endpoint — always returns 500
	http.HandleFunc("/fail/", func(w http.ResponseWriter, r *http.Request) {
		count := requestCount.Add(1)
		logRequest(r, count, 500)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "internal server error"})
	})

	// Stats endpoint — shows request count
	http.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]int64{"total_requests": requestCount.Load()})
	})

	log.Printf("Mock Iterable API starting on :%s", port)
	log.Printf("  POST /api/...             -> 200 Success")
	log.Printf("  POST /api/lists/...       -> 200 with subscriber counts")
	log.Printf("  POST /reject/...          -> 200 with application failure")
	log.Printf("  POST /fail/...            -> 500 Error")
	log.Printf("  GET  /stats               -> request count")

	if err := http.ListenAndServe(":"+port, nil); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func logRequest(r *http.Request, count int64, status int) {
	fmt.Printf("[#%d] %s %s -> %d | api-key=%s\n",
		count,
		r.Method,
		r.URL.Path,
		status,
		truncate(r.Header.Get("Api-Key"), 8),
	)
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
