// Package main implements a standalone seed script that populates a running
// dropstore instance with realistic catalog data through the public API, then
// builds a demo cart so the storefront has something to render.
//
// Run: go run ./scripts/seed
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"time"
)

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func httpPost(url string, body any) (map[string]any, error) {
	return doJSON(http.MethodPost, url, body)
}

func doJSON(method, url string, body any) (map[string]any, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	var result map[string]any
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return result, nil
}

var categories = []string{"hoodies", "tees", "caps", "pants", "accessories"}

var adjectives = []string{"Heavyweight", "Oversized", "Washed", "Garment-Dyed", "Boxy", "Cropped", "Vintage", "Corduroy"}

var nouns = map[string][]string{
	"hoodies":     {"Hoodie", "Zip Hoodie", "Pullover"},
	"tees":        {"Tee", "Longsleeve", "Pocket Tee"},
	"caps":        {"Cap", "Beanie", "Bucket Hat"},
	"pants":       {"Cargo Pants", "Sweatpants", "Denim"},
	"accessories": {"Tote", "Belt", "Socks"},
}

func main() {
	base := getEnv("DROPSTORE_URL", "http://localhost:8080")
	count := 40
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	log.Printf("seeding %d products against %s", count, base)

	var productIDs []string
	for i := 0; i < count; i++ {
		category := categories[rng.Intn(len(categories))]
		name := fmt.Sprintf("%s %s",
			adjectives[rng.Intn(len(adjectives))],
			nouns[category][rng.Intn(len(nouns[category]))],
		)
		drop := float64(1 + rng.Intn(4))

		result, err := httpPost(base+"/api/products", map[string]any{
			"title":       name,
			"description": fmt.Sprintf("%s from drop %.0f", name, drop),
			"code":        fmt.Sprintf("SEED-%04d", i),
			"price":       float64(1500+rng.Intn(8500)) / 100,
			"status":      true,
			"stock":       rng.Intn(50),
			"category":    category,
			"drop":        drop,
		})
		if err != nil {
			// Re-running the script hits the unique code constraint; skip.
			log.Printf("skip product %d: %v", i, err)
			continue
		}

		if producto, ok := result["producto"].(map[string]any); ok {
			if id, ok := producto["id"].(string); ok {
				productIDs = append(productIDs, id)
			}
		}
	}
	log.Printf("created %d products", len(productIDs))

	if len(productIDs) == 0 {
		log.Println("no products created, skipping demo cart")
		return
	}

	// Demo cart with a handful of items.
	result, err := httpPost(base+"/api/carts", nil)
	if err != nil {
		log.Fatalf("create demo cart: %v", err)
	}
	carrito, ok := result["carrito"].(map[string]any)
	if !ok {
		log.Fatalf("unexpected cart response: %v", result)
	}
	cartID, _ := carrito["id"].(string)

	for i := 0; i < 3 && i < len(productIDs); i++ {
		pid := productIDs[rng.Intn(len(productIDs))]
		if _, err := httpPost(base+"/api/carts/"+cartID+"/product/"+pid, nil); err != nil {
			log.Printf("add product to demo cart: %v", err)
		}
	}

	log.Printf("demo cart ready: %s/api/carts/%s", base, cartID)
}
