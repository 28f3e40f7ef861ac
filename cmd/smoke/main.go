package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/ludwingperezt/mobileappws/internal/ids"
)

func main() {
	base := envOr("MOBILEAPP_SMOKE_URL", "http://localhost:8080")
	grpcAddr := envOr("MOBILEAPP_SMOKE_GRPC_ADDR", "localhost:9090")
	client := &http.Client{Timeout: 5 * time.Second}

	email := fmt.Sprintf("smoke-%s@example.com", ids.New())
	password := "smoke-password"

	var created struct {
		UserID string `json:"userId"`
	}
	status := call(client, http.MethodPost, base+"/users", "", map[string]any{
		"firstName": "Smoke",
		"lastName":  "Test",
		"email":     email,
		"password":  password,
	}, &created)
	if status != http.StatusOK || created.UserID == "" {
		log.Fatalf("signup: status %d, user id %q", status, created.UserID)
	}

	req, _ := http.NewRequest(http.MethodPost, base+"/users/login", jsonBody(map[string]string{"email": email, "password": password}))
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		log.Fatalf("login: %v", err)
	}
	resp.Body.Close()
	authz := resp.Header.Get("Authorization")
	if resp.StatusCode != http.StatusOK || authz == "" {
		log.Fatalf("login: status %d", resp.StatusCode)
	}
	if got := resp.Header.Get("UserID"); got != created.UserID {
		log.Fatalf("login: UserID header %q, want %q", got, created.UserID)
	}

	if status := call(client, http.MethodGet, base+"/users/"+created.UserID, "", nil, nil); status != http.StatusUnauthorized {
		log.Fatalf("anonymous get: status %d, want 401", status)
	}
	if status := call(client, http.MethodGet, base+"/users/"+created.UserID, authz, nil, nil); status != http.StatusOK {
		log.Fatalf("owner get: status %d, want 200", status)
	}
	if status := call(client, http.MethodGet, base+"/user-security/roles/admin", authz, nil, nil); status != http.StatusForbidden {
		log.Fatalf("admin route: status %d, want 403", status)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, err := grpc.NewClient(grpcAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Fatalf("grpc dial %s: %v", grpcAddr, err)
	}
	defer conn.Close()
	health, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		log.Fatalf("grpc health: %v", err)
	}
	if health.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		log.Fatalf("grpc health: %s", health.GetStatus())
	}

	fmt.Printf("smoke test passed: user=%s\n", created.UserID)
}

func call(client *http.Client, method, url, authz string, body, out any) int {
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequest(method, url, jsonBody(body))
	} else {
		req, err = http.NewRequest(method, url, nil)
	}
	if err != nil {
		log.Fatalf("%s %s: %v", method, url, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	resp, err := client.Do(req)
	if err != nil {
		log.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			log.Fatalf("%s %s: decode: %v", method, url, err)
		}
	}
	return resp.StatusCode
}

func jsonBody(v any) *bytes.Reader {
	raw, err := json.Marshal(v)
	if err != nil {
		log.Fatalf("marshal: %v", err)
	}
	return bytes.NewReader(raw)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
