package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"gorm.io/gorm"

	"github.com/JasonKing5/ifs/internal/auth"
	"github.com/JasonKing5/ifs/internal/catalog"
	"github.com/JasonKing5/ifs/internal/config"
	"github.com/JasonKing5/ifs/internal/db"
	"github.com/JasonKing5/ifs/internal/httpapi"
	"github.com/JasonKing5/ifs/internal/mail"
	"github.com/JasonKing5/ifs/internal/migrate"
	"github.com/JasonKing5/ifs/internal/obs"
	"github.com/JasonKing5/ifs/internal/probe"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	if err := run(); err != nil {
		obs.Logger().WithError(err).Fatal("ifs-api stopped")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := obs.ConfigureLogger(obs.LogOptions{Level: cfg.Logging.Level, Format: cfg.Logging.Format}); err != nil {
		return fmt.Errorf("configure logger: %w", err)
	}
	log := obs.Logger()
	obs.Init()
	obs.InitBuildInfo(version, commit)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := obs.SetupTracing(ctx, cfg.OTel.ServiceName, cfg.OTel.Endpoint)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	var (
		pg     *sql.DB
		users  auth.UserStore
		store  catalog.Store
		checks []probe.Check
	)
	if cfg.Database.DSN != "" {
		pg, err = sql.Open("pgx", cfg.Database.DSN)
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer pg.Close()
		pg.SetMaxOpenConns(10)
		pg.SetMaxIdleConns(10)
		pg.SetConnMaxLifetime(30 * time.Minute)
		checks = append(checks, probe.PingDB("postgres", pg))

		if cfg.Database.Migrate {
			mctx, cancel := context.WithTimeout(ctx, 30*time.Second)
			mgr := migrate.NewManager(pg, migrate.Migrations(), migrate.Seeds())
			err := mgr.Up(mctx)
			if err == nil {
				err = mgr.Seed(mctx)
			}
			cancel()
			if err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			log.Info("migrations applied")
		}
		users = auth.NewPGStore(pg)
	} else {
		log.Warn("database.dsn not set, users are kept in memory")
		users = auth.NewMemoryStore()
	}

	gdb, err := openCatalogDB(cfg, pg)
	if err != nil {
		return err
	}
	if gdb != nil {
		gs := catalog.NewGormStore(gdb)
		if err := gs.AutoMigrate(ctx); err != nil {
			return fmt.Errorf("catalog automigrate: %w", err)
		}
		if cfg.Catalog.Driver != "" {
			sqlDB, err := gdb.DB()
			if err != nil {
				return err
			}
			defer sqlDB.Close()
			checks = append(checks, probe.PingDB("catalog", sqlDB))
		}
		store = gs
	} else {
		store = catalog.NewMemoryStore()
	}

	sender, err := newMailSender(cfg, log)
	if err != nil {
		return err
	}
	signer, err := auth.NewTokenSigner(cfg.Auth.AccessSecret, cfg.Auth.RefreshSecret,
		auth.WithIssuer(cfg.Auth.Issuer),
		auth.WithAccessTTL(cfg.Auth.AccessTTL),
		auth.WithRefreshTTL(cfg.Auth.RefreshTTL),
	)
	if err != nil {
		return err
	}
	authSvc, err := auth.NewService(users, signer, auth.WithMailer(sender))
	if err != nil {
		return err
	}
	catalogSvc, err := catalog.NewService(store)
	if err != nil {
		return err
	}

	pr := probe.New(checks...)
	api := httpapi.New(httpapi.Options{
		Version:        version,
		Auth:           authSvc,
		Catalog:        catalogSvc,
		Probe:          pr,
		SecureCookies:  cfg.Auth.SecureCookies,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		RateBurst:      cfg.RateLimit.Burst,
		RatePerSecond:  cfg.RateLimit.PerSecond,
		MaxBodyBytes:   cfg.Server.MaxBodySize,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithFields(logrus.Fields{"addr": srv.Addr, "version": version}).Info("starting ifs-api")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		pr.Watch(gctx, 10*time.Second)
		return nil
	})

	var gs *grpc.Server
	if addr := cfg.GRPCAddr(); addr != "" {
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("grpc listen: %w", err)
		}
		gs = grpc.NewServer()
		pr.Register(gs)
		g.Go(func() error {
			log.WithField("addr", addr).Info("starting grpc health")
			return gs.Serve(lis)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		pr.Shutdown()
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if gs != nil {
			gs.GracefulStop()
		}
		return srv.Shutdown(sctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("stopped")
	return nil
}

// openCatalogDB returns nil when the catalog should stay in memory. Without a
// dedicated catalog driver the catalog shares the users pool.
func openCatalogDB(cfg *config.Config, pg *sql.DB) (*gorm.DB, error) {
	switch {
	case cfg.Catalog.Driver != "":
		gdb, err := db.Open(cfg.Catalog.Driver, cfg.Catalog.DSN)
		if err != nil {
			return nil, fmt.Errorf("open catalog db: %w", err)
		}
		return gdb, nil
	case pg != nil:
		return db.Wrap(pg)
	default:
		return nil, nil
	}
}

func newMailSender(cfg *config.Config, log *logrus.Logger) (mail.Sender, error) {
	switch strings.ToLower(cfg.Mail.Driver) {
	case "smtp":
		return mail.NewSMTPSender(mail.SMTPConfig{
			Host:     cfg.Mail.Host,
			Port:     cfg.Mail.Port,
			Username: cfg.Mail.Username,
			Password: cfg.Mail.Password,
			From:     cfg.Mail.From,
			ResetURL: cfg.Mail.ResetURL,
		})
	case "", "log":
		return mail.LogSender{Logger: log, ResetURL: cfg.Mail.ResetURL}, nil
	default:
		return nil, fmt.Errorf("unknown mail driver %q", cfg.Mail.Driver)
	}
}
