package source

import (
	"context"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/paper-index-builder/pkg/postgres"
)

// Postgres reads one JSON document per row of a query. Row order is the
// query's ORDER BY.
type Postgres struct {
	client *postgres.Client
	query  string
	logger *slog.Logger
}

func NewPostgres(client *postgres.Client, query string) *Postgres {
	return &Postgres{
		client: client,
		query:  query,
		logger: slog.Default().With("component", "postgres-source"),
	}
}

func (p *Postgres) Each(ctx context.Context, fn func(raw []byte) error) error {
	n, err := p.client.Stream(ctx, p.query, fn)
	if err != nil {
		return err
	}
	p.logger.Info("records read", "rows", n)
	return nil
}

func (p *Postgres) Close() error {
	return p.client.Close()
}
