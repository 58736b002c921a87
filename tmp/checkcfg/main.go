package main

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"time"

	"fieldline/internal/app"
	"fieldline/internal/server"
)

// Smoke-checks a fresh workspace end to end: open, migrate, seed, then create
// a task and submit a report over the HTTP API.
func main() {
	workspace, err := os.MkdirTemp("", "fieldline-check")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(workspace)

	a, err := app.Open(context.Background(), workspace)
	if err != nil {
		panic(err)
	}
	defer a.Close()

	jwtSecret := "test-secret"
	h, err := server.New(server.Config{Engine: a.Engine, BasePath: "/v0", Auth: server.AuthConfig{JWTSecret: jwtSecret}})
	if err != nil {
		panic(err)
	}
	ts := httptest.NewServer(h)
	defer ts.Close()

	dispatcherToken := signToken(jwtSecret, "dispatcher", "dispatcher", time.Now().Add(time.Hour))
	brigadeToken := signToken(jwtSecret, "brigade1", "brigade", time.Now().Add(time.Hour))

	var task struct {
		ID int64 `json:"id"`
	}
	post(ts.URL+"/v0/tasks", dispatcherToken, map[string]any{
		"address":          "Lenina 12",
		"work_type":        "house-wiring",
		"assigned_brigade": "brigade1",
	}, &task)
	fmt.Printf("created task %d\n", task.ID)

	var result struct {
		Complete bool   `json:"complete"`
		Status   string `json:"status"`
	}
	post(fmt.Sprintf("%s/v0/tasks/%d/reports", ts.URL, task.ID), brigadeToken, map[string]any{
		"comment":   "done",
		"access":    "key under the mat",
		"photos":    []string{"p1.jpg"},
		"materials": []map[string]any{{"name": "Cable VOK 4", "quantity": 10}},
	}, &result)
	fmt.Printf("report complete=%v status=%s\n", result.Complete, result.Status)
}

func post(url, token string, body, out any) {
	b, _ := json.Marshal(body)
	req, _ := http.NewRequest(http.MethodPost, url, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		panic(err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		var raw any
		_ = json.NewDecoder(res.Body).Decode(&raw)
		panic(fmt.Sprintf("status=%d resp=%v", res.StatusCode, raw))
	}
	_ = json.NewDecoder(res.Body).Decode(out)
}

func signToken(secret, subject, role string, expiresAt time.Time) string {
	claims := map[string]any{
		"sub":  subject,
		"role": role,
		"exp":  expiresAt.Unix(),
		"nbf":  time.Now().Unix(),
		"iat":  time.Now().Unix(),
	}
	header := map[string]any{"alg": "HS256", "typ": "JWT"}
	enc := func(v any) string {
		b, _ := json.Marshal(v)
		return base64RawURLEncode(b)
	}
	sig := hmacSHA256(enc(header)+"."+enc(claims), secret)
	return enc(header) + "." + enc(claims) + "." + sig
}

func base64RawURLEncode(b []byte) string {
	const enc = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"
	out := make([]byte, 0, (len(b)*4+2)/3)
	var val uint
	var valb int
	for _, c := range b {
		val = (val << 8) | uint(c)
		valb += 8
		for valb >= 6 {
			out = append(out, enc[(val>>(valb-6))&0x3f])
			valb -= 6
		}
	}
	if valb > 0 {
		out = append(out, enc[(val<<(6-valb))&0x3f])
	}
	return string(out)
}

func hmacSHA256(data, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	_, _ = h.Write([]byte(data))
	return base64RawURLEncode(h.Sum(nil))
}
