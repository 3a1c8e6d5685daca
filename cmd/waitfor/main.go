package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/go-pg/pg/v10"
	"github.com/rbroggi/gatherly/internal/config"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

func init() {
	log.SetFormatter(&log.JSONFormatter{})
	log.SetOutput(os.Stdout)
}

var (
	attempts = flag.Int("attempts", 20, "maximum number of pings per store")
	interval = flag.Duration("interval", time.Second, "delay between two pings")
	timeout  = flag.Duration("timeout", 2*time.Second, "timeout of a single ping")
)

type target struct {
	name string
	ping func(ctx context.Context) error
}

// waitFor pings until the target answers or the attempts are exhausted.
func waitFor(ctx context.Context, t target, attempts int, interval, timeout time.Duration) error {
	var err error
	for i := 1; i <= attempts; i++ {
		pingCtx, cancel := context.WithTimeout(ctx, timeout)
		err = t.ping(pingCtx)
		cancel()
		if err == nil {
			log.WithField("store", t.name).Info("store available")
			return nil
		}
		log.WithError(err).WithField("store", t.name).WithField("attempt", i).Info("store not yet available")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
	return fmt.Errorf("%s not available after %d attempts: %w", t.name, attempts, err)
}

func targets(ctx context.Context, cfg *config.Config) ([]target, func(), error) {
	var ts []target
	var closers []func()
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}

	if cfg.UsesPostgres() {
		opts, err := pg.ParseURL(cfg.PostgresURL)
		if err != nil {
			return nil, closeAll, fmt.Errorf("error parsing POSTGRESQL_URL: %w", err)
		}
		db := pg.Connect(opts)
		closers = append(closers, func() { _ = db.Close() })
		ts = append(ts, target{name: config.BackendPostgres, ping: db.Ping})
	}
	if cfg.IdentityBackend == config.BackendMongo {
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURL))
		if err != nil {
			return nil, closeAll, fmt.Errorf("error connecting to mongo: %w", err)
		}
		closers = append(closers, func() { _ = client.Disconnect(context.Background()) })
		ts = append(ts, target{name: config.BackendMongo, ping: func(ctx context.Context) error {
			return client.Ping(ctx, readpref.Primary())
		}})
	}
	return ts, closeAll, nil
}

// waitfor blocks until the stores selected by the server environment accept connections.
func main() {
	flag.Parse()
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("could not load configuration")
	}
	ts, closeAll, err := targets(ctx, cfg)
	defer closeAll()
	if err != nil {
		log.WithError(err).Fatal("could not build store clients")
	}
	for _, t := range ts {
		if err := waitFor(ctx, t, *attempts, *interval, *timeout); err != nil {
			closeAll()
			log.WithError(err).Fatal("giving up")
		}
	}
}
