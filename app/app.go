package app

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/JaePyJs/CLMS-sub014/config"
	"github.com/JaePyJs/CLMS-sub014/internal/audit"
	"github.com/JaePyJs/CLMS-sub014/internal/broadcast"
	"github.com/JaePyJs/CLMS-sub014/internal/handler"
	"github.com/JaePyJs/CLMS-sub014/internal/policy"
	"github.com/JaePyJs/CLMS-sub014/internal/repository"
	"github.com/JaePyJs/CLMS-sub014/internal/server"
	"github.com/JaePyJs/CLMS-sub014/internal/service"
	"github.com/JaePyJs/CLMS-sub014/migrations"
	"github.com/JaePyJs/CLMS-sub014/pkg/kafka"
	"github.com/JaePyJs/CLMS-sub014/pkg/logger"
	"github.com/JaePyJs/CLMS-sub014/pkg/postgres"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func Run(cfg *config.Config) {
	log := logger.NewLogger(cfg.Log, "circulation")
	db, err := postgres.NewPostgresDB(context.Background(), &cfg.Database, migrations.MigrationFiles)
	if err != nil {
		log.Fatal("db init", zap.Error(err))
	}
	repo, err := repository.NewRepository(db, log)
	if err != nil {
		log.Fatal("repo", zap.Error(err))
	}

	events := broadcast.New(log, cfg.Circulation.EventBuffer)
	policies := policy.New(cfg.Circulation.LoanDays, cfg.Circulation.SessionMinutes)

	auditSink := audit.NewNop()
	producer, err := kafka.NewAsyncProducer(cfg.Kafka)
	if err != nil {
		log.Error("kafka producer unavailable, audit logging disabled", zap.Error(err))
	} else {
		auditSink = audit.NewRecorder(producer, cfg.Kafka.AuditTopic, log)
	}

	svc := service.NewService(repo, policies, events, auditSink, service.Config{
		MaxOpenSessions: cfg.Circulation.MaxOpenSessions,
		FineCapCents:    cfg.Circulation.FineCapCents,
		RequestTimeout:  cfg.Circulation.RequestTimeout,
	}, log)

	monitor := service.NewExpiryMonitor(svc, cfg.Circulation.SweepInterval, cfg.Circulation.GracePeriod, log)

	h := handler.New(svc, events, log)
	srv := server.NewServer(cfg.Server, h.NewRouter())
	log.Info("http server start ON: ",
		zap.String("addr",
			net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)))

	ctx, cancel := context.WithCancel(context.Background())
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return monitor.Run(gCtx)
	})
	go func() {
		if err := srv.Run(); err != nil {
			log.Error("server run", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	termSig := <-sig

	log.Debug("Graceful shutdown", zap.Any("signal", termSig))

	closeCtx, closeCancel := context.WithTimeout(context.Background(), time.Second*5)
	defer closeCancel()

	if err = srv.Stop(closeCtx); err != nil {
		log.Error("srv.Stop", zap.Error(err))
	}
	cancel()
	if err := g.Wait(); err != nil && err != context.Canceled {
		log.Error("background workers", zap.Error(err))
	}
	if producer != nil {
		if err := producer.Close(); err != nil {
			log.Error("producer close", zap.Error(err))
		}
	}
	db.Close()
	log.Info("Graceful shutdown finished")
}
