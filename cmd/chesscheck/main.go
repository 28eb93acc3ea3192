package main

import (
	"context"
	"log"
	"os"
	"strings"
	"time"

	"github.com/park285/cheese-teamchess/internal/notify"
	"github.com/park285/cheese-teamchess/internal/pvpchess"
)

// chesscheck checks the backing services the chess server depends on and
// exits non-zero when a required one is unreachable.
func main() {
	redisURL := strings.TrimSpace(os.Getenv("REDIS_URL"))
	databaseURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	notifyURL := strings.TrimSpace(os.Getenv("NOTIFY_BASE_URL"))
	wsURL := strings.TrimSpace(os.Getenv("NOTIFY_WS_URL"))
	headers := notify.APIKeyHeader(os.Getenv("NOTIFY_API_KEY"))

	if redisURL == "" {
		log.Fatal("REDIS_URL is required")
	}

	failed := false
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rdb, err := pvpchess.OpenRedis(ctx, redisURL)
	if err != nil {
		log.Printf("redis error: %v", err)
		failed = true
	} else {
		log.Printf("redis ok: %s", rdb.Options().Addr)
		_ = rdb.Close()
	}

	if databaseURL == "" {
		log.Println("DATABASE_URL not set; skipping postgres check")
	} else if db, err := pvpchess.OpenPostgres(ctx, databaseURL); err != nil {
		log.Printf("postgres error: %v", err)
		failed = true
	} else {
		log.Println("postgres ok")
		_ = db.Close()
	}

	if notifyURL == "" {
		log.Println("NOTIFY_BASE_URL not set; skipping notify HTTP check")
	} else {
		client := notify.NewClient(notifyURL,
			notify.WithHeaderProvider(headers),
			notify.WithTimeout(5*time.Second),
		)
		if err := client.Health(ctx); err != nil {
			log.Printf("notify /healthz error: %v", err)
			failed = true
		} else {
			log.Println("notify /healthz ok")
		}
	}

	if wsURL == "" {
		log.Println("NOTIFY_WS_URL not set; skipping WS check")
	} else {
		ws := notify.NewWebSocket(wsURL, 0, nil)
		ws.SetHeaderProvider(headers)
		ws.OnStateChange(func(state notify.WebSocketState) {
			log.Printf("WS state: %s", state)
		})
		cctx, ccancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := ws.Connect(cctx); err != nil {
			log.Printf("WS connect error: %v", err)
			failed = true
		}
		ccancel()
		_ = ws.Close(context.Background())
	}

	if failed {
		os.Exit(1)
	}
}
