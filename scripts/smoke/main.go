package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"

	"github.com/fatih/color"
)

// Smoke test against a running server: go run ./scripts/smoke [video_url]
var baseURL = envOr("SMOKE_BASE_URL", "http://localhost:3000/api/video/v1")

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Pretty print JSON helper
func prettyPrint(v interface{}) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("%v\n", v)
		return
	}
	fmt.Println(string(b))
}

// Request helper
func sendRequest(method, path string, body interface{}) (*http.Response, map[string]interface{}, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, baseURL+path, bodyReader)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	// Analysis can take minutes, so no client timeout.
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp, nil, err
	}
	var decoded map[string]interface{}
	_ = json.Unmarshal(raw, &decoded)
	return resp, decoded, nil
}

func step(title, method, path string, body interface{}) map[string]interface{} {
	color.Yellow("\n%s", title)
	resp, decoded, err := sendRequest(method, path, body)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	if resp.StatusCode >= 400 {
		color.Red("Status: %s", resp.Status)
	} else {
		color.Green("Status: %s", resp.Status)
	}
	prettyPrint(decoded["data"])
	return decoded
}

func firstVideoURL(listing map[string]interface{}) string {
	videos, _ := listing["data"].([]interface{})
	if len(videos) == 0 {
		return ""
	}
	first, _ := videos[0].(map[string]interface{})
	s, _ := first["video_url"].(string)
	return s
}

func main() {
	color.Cyan("🚀 Video companion API smoke test (%s)\n", baseURL)

	listing := step("1. List uploaded videos", http.MethodGet, "/videos", nil)

	videoURL := firstVideoURL(listing)
	if len(os.Args) > 1 {
		videoURL = os.Args[1]
	}
	if videoURL == "" {
		color.Red("No video available; pass a video URL as the first argument")
		os.Exit(1)
	}
	video := map[string]interface{}{"video_url": videoURL}
	query := "?video_url=" + url.QueryEscape(videoURL)

	step("2. Select video", http.MethodPost, "/select", video)
	step("3. Restore stored analysis", http.MethodPost, "/restore", video)
	step("4. Cached analysis", http.MethodGet, "/analysis"+query, nil)
	step("5. Restore conversation", http.MethodPost, "/rag/restore", video)
	step("6. Setup conversation", http.MethodPost, "/rag/setup", video)
	step("7. Ask a question", http.MethodPost, "/rag/ask", map[string]interface{}{
		"video_url": videoURL,
		"question":  "What is this video about?",
	})
	step("8. Session transcript", http.MethodGet, "/rag/session"+query, nil)
	step("9. Final state", http.MethodGet, "/state", nil)

	color.Cyan("\n✅ Done")
}
