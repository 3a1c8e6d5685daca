package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-pg/pg/v10"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	grpcactor "github.com/rbroggi/gatherly/internal/actors/grpc"
	"github.com/rbroggi/gatherly/internal/actors/memory"
	mongoactor "github.com/rbroggi/gatherly/internal/actors/mongo"
	"github.com/rbroggi/gatherly/internal/actors/postgres"
	"github.com/rbroggi/gatherly/internal/actors/rest"
	"github.com/rbroggi/gatherly/internal/actors/token"
	"github.com/rbroggi/gatherly/internal/config"
	"github.com/rbroggi/gatherly/internal/core/ports"
	"github.com/rbroggi/gatherly/internal/core/usecase"
	log "github.com/sirupsen/logrus"
)

func init() {
	// Log as JSON instead of the default ASCII formatter.
	log.SetFormatter(&log.JSONFormatter{})

	// Output to stdout instead of the default stderr
	log.SetOutput(os.Stdout)
}

var (
	grpcServerEndpoint = flag.String("grpc-server-endpoint", "localhost:50051", "gRPC server endpoint")
	httpServerEndpoint = flag.String("http-server-endpoint", "localhost:8080", "HTTP server endpoint")
)

// stores gathers the adapters selected by the configuration.
type stores struct {
	users      ports.UserRepository
	categories ports.CategoryRepository
	events     ports.EventRepository
	ledger     ports.AttendanceLedger
	pingers    []ports.Pinger
	closers    []func(ctx context.Context) error
}

func (s *stores) close(ctx context.Context) {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](ctx); err != nil {
			log.WithError(err).Warn("error closing store")
		}
	}
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	s := new(stores)
	var memDB *memory.MemoryDB
	inMemory := func() *memory.MemoryDB {
		if memDB == nil {
			memDB = memory.NewMemoryDB()
			s.pingers = append(s.pingers, memDB)
		}
		return memDB
	}

	var pgDB *postgres.PostgresDB
	if cfg.UsesPostgres() {
		opts, err := pg.ParseURL(cfg.PostgresURL)
		if err != nil {
			return s, fmt.Errorf("error parsing POSTGRESQL_URL: %w", err)
		}
		db := pg.Connect(opts)
		s.closers = append(s.closers, func(context.Context) error { return db.Close() })
		if err := db.Ping(ctx); err != nil {
			return s, fmt.Errorf("postgres does not appear to be reachable: %w", err)
		}
		if pgDB, err = postgres.NewPostgresDB(postgres.PostgresDBArgs{DB: db}); err != nil {
			return s, err
		}
		s.pingers = append(s.pingers, pgDB)
	}

	switch cfg.StoreBackend {
	case config.BackendPostgres:
		s.categories, s.events, s.ledger = pgDB, pgDB, pgDB
	case config.BackendMemory:
		db := inMemory()
		s.categories, s.events, s.ledger = db, db, db
	}

	switch cfg.IdentityBackend {
	case config.BackendPostgres:
		s.users = pgDB
	case config.BackendMemory:
		s.users = inMemory()
	case config.BackendMongo:
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURL))
		if err != nil {
			return s, fmt.Errorf("error connecting to mongo: %w", err)
		}
		s.closers = append(s.closers, client.Disconnect)
		collection := client.Database(cfg.MongoDatabase).Collection(cfg.MongoCollection)
		mongoDB, err := mongoactor.NewMongoDB(mongoactor.MongoDBArgs{UserCollection: collection})
		if err != nil {
			return s, err
		}
		if err := mongoDB.Ping(ctx); err != nil {
			return s, fmt.Errorf("mongo does not appear to be reachable: %w", err)
		}
		if err := mongoDB.EnsureIndexes(ctx); err != nil {
			return s, err
		}
		s.users = mongoDB
		s.pingers = append(s.pingers, mongoDB)
	}

	if memDB != nil {
		log.Warn("in-memory store selected: data is lost on restart")
	}
	return s, nil
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	log.SetLevel(level)
	if level < log.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	defer stop()

	st, err := openStores(ctx, cfg)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		st.close(closeCtx)
	}()
	if err != nil {
		log.WithError(err).Error("could not open stores")
		return err
	}

	categories, err := usecase.LoadCategoryRegistry(ctx, st.categories)
	if err != nil {
		log.WithError(err).Error("could not load categories")
		return err
	}
	issuer, err := token.NewJWTIssuer(token.JWTIssuerArgs{Secret: cfg.JWTSecret, TTL: cfg.TokenTTL})
	if err != nil {
		return err
	}

	restServer, err := rest.NewServer(rest.ServerArgs{
		Catalog: usecase.NewCatalogService(usecase.CatalogServiceArgs{
			Events:     st.events,
			Ledger:     st.ledger,
			Users:      st.users,
			Categories: categories,
		}),
		Attendance: usecase.NewAttendanceService(usecase.AttendanceServiceArgs{
			Ledger: st.ledger,
			Events: st.events,
			Users:  st.users,
		}),
		Identity:   usecase.NewIdentityService(usecase.IdentityServiceArgs{Users: st.users, Tokens: issuer}),
		Categories: categories,
		Stores:     st.pingers,
	})
	if err != nil {
		return err
	}
	httpServer := &http.Server{
		Addr:              *httpServerEndpoint,
		Handler:           restServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	lis, err := net.Listen("tcp", *grpcServerEndpoint)
	if err != nil {
		return err
	}
	grpcServer := grpc.NewServer()
	healthpb.RegisterHealthServer(grpcServer, grpcactor.NewHealthService(grpcactor.HealthServiceArgs{Stores: st.pingers}))

	// Register reflection service on gRPC server.
	reflection.Register(grpcServer)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := grpcServer.Serve(lis); err != nil {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down servers")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		grpcServer.GracefulStop()
		return httpServer.Shutdown(shutdownCtx)
	})

	log.
		WithField("http-server-addr", *httpServerEndpoint).
		WithField("grpc-server-addr", *grpcServerEndpoint).
		WithField("store-backend", cfg.StoreBackend).
		WithField("identity-backend", cfg.IdentityBackend).
		Info("servers up or soon to be up. listening to SIGTERM, SIGINT, SIGQUIT for stoping the server")

	return g.Wait()
}

func main() {
	flag.Parse()

	if err := run(); err != nil {
		log.WithError(err).Fatal("server stopped with error")
	}
}
