// Package main uploads a network, watches a planning run over the
// websocket stream and prints every event it receives.
//
//	go run ./scripts path/to/network.yaml
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type wsMessage struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: ws_client NETWORK_FILE")
	}
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	base := fmt.Sprintf("http://localhost:%s", port)

	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		log.Fatal(err)
	}
	contentType := "application/json"
	if ext := strings.ToLower(filepath.Ext(os.Args[1])); ext == ".yaml" || ext == ".yml" {
		contentType = "application/yaml"
	}
	name := strings.TrimSuffix(filepath.Base(os.Args[1]), filepath.Ext(os.Args[1]))
	resp, err := http.Post(base+"/v1/networks?name="+url.QueryEscape(name), contentType, bytes.NewReader(data))
	if err != nil {
		log.Fatal(err)
	}
	var netResp struct {
		ID       string `json:"id"`
		Segments int    `json:"segments"`
	}
	err = json.NewDecoder(resp.Body).Decode(&netResp)
	_ = resp.Body.Close()
	if err != nil || netResp.ID == "" {
		log.Fatalf("upload failed (%s): %v", resp.Status, err)
	}
	log.Printf("Network %s: %d segments", netResp.ID, netResp.Segments)

	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/v1/runs/ws"}
	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer func() { _ = c.Close() }()

	runID := uuid.New().String()
	if err := c.WriteJSON(wsMessage{Type: "connection_init"}); err != nil {
		log.Fatal(err)
	}
	pl, _ := json.Marshal(map[string]string{"runId": runID})
	if err := c.WriteJSON(wsMessage{Type: "subscribe", ID: "1", Payload: pl}); err != nil {
		log.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var m wsMessage
			if err := c.ReadJSON(&m); err != nil {
				log.Printf("read: %v", err)
				return
			}
			log.Printf("WS <- %s: %s", m.Type, string(m.Payload))
			if m.Type == "complete" {
				return
			}
		}
	}()

	time.Sleep(200 * time.Millisecond)
	body, _ := json.Marshal(map[string]any{"runId": runID, "networkId": netResp.ID})
	planResp, err := http.Post(base+"/v1/plan", "application/json", bytes.NewReader(body))
	if err != nil {
		log.Fatal(err)
	}
	_ = planResp.Body.Close()
	log.Printf("Plan request: %s", planResp.Status)

	select {
	case <-time.After(30 * time.Second):
	case <-done:
	}
}
