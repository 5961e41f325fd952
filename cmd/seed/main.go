package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"
)

// Drives a running server with demo traffic so the dashboard has content:
// one login, a deposit, and a couple of trades. Sessions are in-memory, so
// this must run against a live server and its effects vanish on restart.
func main() {
	base := os.Getenv("SEED_BASE_URL")
	if base == "" {
		base = "http://localhost:8080"
	}

	client := &http.Client{Timeout: 30 * time.Second}

	token, err := login(client, base, "demo@aurex.io", "password123")
	if err != nil {
		log.Fatalf("Failed to log in: %v", err)
	}

	if err := post(client, base, token, "/deposit", map[string]interface{}{
		"amount": 500,
	}); err != nil {
		log.Fatalf("Failed to deposit: %v", err)
	}

	if err := post(client, base, token, "/trade", map[string]interface{}{
		"symbol": "BTC",
		"side":   "buy",
		"amount": 0.01,
	}); err != nil {
		log.Fatalf("Failed to buy: %v", err)
	}

	if err := post(client, base, token, "/trade", map[string]interface{}{
		"symbol": "ETH",
		"side":   "sell",
		"amount": 0.5,
	}); err != nil {
		log.Fatalf("Failed to sell: %v", err)
	}

	fmt.Println("Successfully seeded a demo session!")
	fmt.Printf("Token: %s\n", token)
}

func login(client *http.Client, base, email, password string) (string, error) {
	body, _ := json.Marshal(map[string]string{"email": email, "password": password})
	resp, err := client.Post(base+"/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login returned status %d", resp.StatusCode)
	}

	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.Token, nil
}

func post(client *http.Client, base, token, path string, payload map[string]interface{}) error {
	body, _ := json.Marshal(payload)
	req, err := http.NewRequest(http.MethodPost, base+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("%s returned status %d", path, resp.StatusCode)
	}
	log.Printf("seeded %s: %v", path, payload)
	return nil
}
