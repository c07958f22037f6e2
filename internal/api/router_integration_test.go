//go:build integration
// +build integration

package api_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	_ "github.com/lib/pq"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/guttosm/tickerql/config"
	"github.com/guttosm/tickerql/db"
	"github.com/guttosm/tickerql/internal/app"
)

func startPG(t *testing.T) (dsn string, host string, port nat.Port, terminate func()) {
	t.Helper()
	ctx := context.Background()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       "tickerql",
			"POSTGRES_USER":     "postgres",
			"POSTGRES_PASSWORD": "postgres",
		},
		WaitingFor: wait.ForSQL("5432/tcp", "postgres", func(h string, p nat.Port) string {
			return fmt.Sprintf("host=%s port=%s user=postgres password=postgres dbname=tickerql sslmode=disable", h, p.Port())
		}).WithStartupTimeout(60 * time.Second),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Fatalf("container: %v", err)
	}
	h, err := c.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	mp, err := c.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn = fmt.Sprintf("postgres://postgres:postgres@%s:%s/tickerql?sslmode=disable", h, mp.Port())
	terminate = func() { _ = c.Terminate(context.Background()) }
	return dsn, h, mp, terminate
}

type gqlResult struct {
	Data   map[string]json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func post(t *testing.T, h http.Handler, token, query string) gqlResult {
	t.Helper()
	raw, _ := json.Marshal(map[string]string{"query": query})
	req := httptest.NewRequest(http.MethodPost, "/graphql", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d body=%s", w.Code, w.Body.String())
	}
	var out gqlResult
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("json: %v", err)
	}
	return out
}

func TestAPI_E2E_LoginAddAndQuery(t *testing.T) {
	dsn, host, port, term := startPG(t)
	defer term()

	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer conn.Close()
	if err := db.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	cfg := config.Config{
		Server: config.ServerConfig{Port: "0"},
		Postgres: config.PostgresConfig{
			Host: host, Port: port.Int(), User: "postgres", Password: "postgres",
			DBName: "tickerql", SSLMode: "disable", ConnectRetries: 3,
		},
		Auth:      config.AuthConfig{JWTSecret: "e2e-secret", TokenTTL: time.Minute, DemoUser: "admin"},
		RateLimit: config.RateLimitConfig{Requests: 100, Window: time.Minute, Backend: "memory"},
	}
	router, cleanup, err := app.InitializeApp(cfg)
	if err != nil {
		t.Fatalf("init app: %v", err)
	}
	defer cleanup()

	login := post(t, router, "", `mutation { login(username: "admin") { accessToken } }`)
	var tok struct{ AccessToken string }
	if err := json.Unmarshal(login.Data["login"], &tok); err != nil || tok.AccessToken == "" {
		t.Fatalf("login: %s %+v", login.Data["login"], login.Errors)
	}

	denied := post(t, router, "", `mutation { addMarketData(symbol: "E2E", name: "E2E Co", sector: "Test", prices: []) { symbol } }`)
	if len(denied.Errors) != 1 || denied.Errors[0].Message != "not authorized" {
		t.Fatalf("expected denial, got %+v", denied)
	}

	prices := ""
	for d := 1; d <= 10; d++ {
		prices += fmt.Sprintf(`{date: "2024-01-%02d", closePrice: %d, volume: %d},`, d, d, d*10)
	}
	added := post(t, router, tok.AccessToken, `mutation { addMarketData(symbol: "E2E", name: "E2E Co", sector: "Test", prices: [`+prices+`]) { symbol prices { date } } }`)
	if len(added.Errors) > 0 {
		t.Fatalf("addMarketData: %+v", added.Errors)
	}

	got := post(t, router, "", `{ getTicker(symbol: "E2E") { name simpleMovingAverage long: simpleMovingAverage(period: 20) } }`)
	if len(got.Errors) > 0 {
		t.Fatalf("getTicker: %+v", got.Errors)
	}
	var ticker struct {
		Name                string
		SimpleMovingAverage *float64
		Long                *float64
	}
	if err := json.Unmarshal(got.Data["getTicker"], &ticker); err != nil {
		t.Fatalf("json: %v", err)
	}
	if ticker.Name != "E2E Co" || ticker.SimpleMovingAverage == nil || *ticker.SimpleMovingAverage != 8.0 || ticker.Long != nil {
		t.Fatalf("unexpected ticker: %+v", ticker)
	}

	big := post(t, router, tok.AccessToken, `mutation { addMarketData(symbol: "BIG", name: "Big Volume", sector: "Finance", prices: [{date: "2024-01-02", closePrice: 10, volume: 3000000000}]) { symbol } }`)
	if len(big.Errors) > 0 {
		t.Fatalf("addMarketData BIG: %+v", big.Errors)
	}
	all := post(t, router, "", `{ getAllTickers { symbol prices { volume } } }`)
	if len(all.Errors) > 0 {
		t.Fatalf("getAllTickers: %+v", all.Errors)
	}
	var tickers []struct {
		Symbol string
		Prices []struct{ Volume int64 }
	}
	if err := json.Unmarshal(all.Data["getAllTickers"], &tickers); err != nil || len(tickers) != 2 {
		t.Fatalf("getAllTickers: %v %s", err, all.Data["getAllTickers"])
	}
	for _, tk := range tickers {
		if tk.Symbol == "BIG" && tk.Prices[0].Volume != 3_000_000_000 {
			t.Fatalf("BIG volume=%d", tk.Prices[0].Volume)
		}
	}

	missing := post(t, router, "", `{ getTicker(symbol: "e2e") { name } }`)
	if string(missing.Data["getTicker"]) != "null" {
		t.Fatalf("lookup is case sensitive, got %s", missing.Data["getTicker"])
	}
}
