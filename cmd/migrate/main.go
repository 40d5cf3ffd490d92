package main

import (
	"context"
	"database/sql"
	"flag"
	"os"
	"time"

	"qrclock/internal/db"

	"github.com/joho/godotenv"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

func main() {
	logger := zap.Must(zap.NewProduction()).Sugar()
	defer logger.Sync()

	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found, using environment")
	}

	addr := flag.String("db", os.Getenv("DB_ADDR"), "postgres connection string")
	timeout := flag.Duration("timeout", 30*time.Second, "migration timeout")
	flag.Parse()

	if *addr == "" {
		logger.Fatal("DB_ADDR is not set")
	}

	conn, err := sql.Open("postgres", *addr)
	if err != nil {
		logger.Fatalw("open database", "error", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := conn.PingContext(ctx); err != nil {
		logger.Fatalw("ping database", "error", err)
	}

	if _, err := conn.ExecContext(ctx, db.Schema); err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			logger.Fatalw("apply schema", "code", pqErr.Code, "detail", pqErr.Detail, "error", pqErr.Message)
		}
		logger.Fatalw("apply schema", "error", err)
	}

	logger.Info("schema applied")
}
