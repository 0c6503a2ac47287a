// Command auth-server runs the identity service: registration, email
// confirmation, login, password reset and account administration.
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/ecommerce-backend/internal/auth"
	"github.com/iliyamo/ecommerce-backend/internal/config"
	"github.com/iliyamo/ecommerce-backend/internal/database"
	"github.com/iliyamo/ecommerce-backend/internal/handler"
	"github.com/iliyamo/ecommerce-backend/internal/logging"
	"github.com/iliyamo/ecommerce-backend/internal/metrics"
	"github.com/iliyamo/ecommerce-backend/internal/model"
	"github.com/iliyamo/ecommerce-backend/internal/queue"
	"github.com/iliyamo/ecommerce-backend/internal/repository"
	"github.com/iliyamo/ecommerce-backend/internal/router"
)

func main() {
	_ = godotenv.Load() // a missing .env is fine; real env wins anyway
	cfg := config.Load()
	log := logging.New(cfg.LogLevel, cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName, log)
	if err != nil {
		log.WithError(err).Fatal("database")
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		log.WithError(err).Fatal("migrate")
	}

	codec, err := auth.NewCodec(cfg.TokenConfig())
	if err != nil {
		log.WithError(err).Fatal("token codec")
	}

	rdb := config.NewRedisClient(config.LoadRedisConfig(), log)
	if rdb != nil {
		defer rdb.Close()
	}

	m := metrics.NewMetrics(prometheus.NewRegistry())

	users := repository.NewUserRepo(db, cfg.BcryptCost, cfg.ConfirmationTTL, cfg.ResetCodeTTL)
	roles := repository.NewRoleRepo(db)
	notifier := queue.WithTimeout(queue.NewPublisher(cfg.RabbitMQURL, log), cfg.NotifyTimeout)
	svc := auth.NewService(users, roles, codec, notifier, log)

	queue.StartMailConsumer(ctx, cfg.RabbitMQURL, "logs", log)

	if cfg.AdminEmail != "" {
		bootstrapAdmin(ctx, svc, cfg.AdminEmail, log)
	}

	e := router.New(log, m)
	router.RegisterRoutes(e, db, m)
	router.RegisterAuth(e, handler.NewAuthHandler(svc, m, cfg.PublicBaseURL), config.LoadRateLimitConfig(), rdb, log)
	router.RegisterUsers(e, handler.NewUserHandler(svc, m), codec)

	addr := ":" + cfg.Port
	go func() {
		log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env}).Info("auth-server listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("listen")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("shutdown")
	}
}

// bootstrapAdmin grants ADMIN to an existing account.  An account that
// has not registered yet is skipped; the next start retries.
func bootstrapAdmin(ctx context.Context, svc *auth.Service, email string, log logrus.FieldLogger) {
	found, err := svc.GetUserByEmail(ctx, email)
	if err != nil {
		log.WithError(err).Warn("admin bootstrap: lookup failed")
		return
	}
	if !found.Succeeded() {
		log.WithField("email", email).Info("admin bootstrap: account not registered yet")
		return
	}
	view := found.Data.(auth.UserView)
	res, err := svc.AssignRole(ctx, view.ID, model.RoleAdmin)
	if err != nil || !res.Succeeded() {
		log.WithError(err).WithField("code", res.Code).Warn("admin bootstrap: assign failed")
		return
	}
	log.WithField("account_id", view.ID).Info("admin bootstrap: ADMIN granted")
}
