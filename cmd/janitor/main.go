package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

// purges corre en orden; cada una es independiente de las demas.
var purges = []struct {
	name string
	sql  string
}{
	{"blacklist", `DELETE FROM blacklist WHERE expires_at IS NOT NULL AND expires_at < now();`},
	// el bot borra los canales; esto limpia filas que quedaron si el bot estuvo caido
	{"match_rooms", `DELETE FROM match_rooms WHERE expires_at IS NOT NULL AND expires_at < now() - INTERVAL '1 day';`},
	{"lobby_panels", `DELETE FROM lobby_panels WHERE updated_at < now() - INTERVAL '30 days';`},
}

var log = logrus.WithField("component", "janitor")

func handler(ctx context.Context) (string, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		return "no DATABASE_URL", nil
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return fmt.Sprintf("parse: %v", err), nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return fmt.Sprintf("pool: %v", err), nil
	}
	defer pool.Close()

	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var out []string
	for _, p := range purges {
		tag, err := pool.Exec(cctx, p.sql)
		if err != nil {
			log.WithError(err).WithField("table", p.name).Warn("purge failed")
			out = append(out, p.name+"=err")
			continue
		}
		log.WithFields(logrus.Fields{"table": p.name, "rows": tag.RowsAffected()}).Info("purged")
		out = append(out, fmt.Sprintf("%s=%d", p.name, tag.RowsAffected()))
	}
	return strings.Join(out, " "), nil
}

func main() {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	lambda.Start(handler)
}
