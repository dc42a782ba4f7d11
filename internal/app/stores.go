package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"shopauth/internal/config"
	"shopauth/internal/handlers"
	"shopauth/internal/repositories"
)

type stores struct {
	users repositories.UserRepository
	otps  repositories.OTPRepository
	ping  handlers.PingFunc
	close func()
}

// openStores выбирает хранилище по database.driver.
func openStores(ctx context.Context, cfg config.DatabaseConfig, log *zap.Logger) (*stores, error) {
	switch cfg.Driver {
	case "memory":
		log.Warn("using in-memory store, data is lost on restart")
		return &stores{
			users: repositories.NewMemoryUserRepository(),
			otps:  repositories.NewMemoryOTPRepository(),
			close: func() {},
		}, nil

	case "postgres":
		db, err := repositories.OpenPostgres(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		log.Info("postgres connected, migrations applied")
		return &stores{
			users: repositories.NewUserRepository(db),
			otps:  repositories.NewOTPRepository(db),
			ping:  db.PingContext,
			close: func() {
				if err := db.Close(); err != nil {
					log.Warn("close postgres", zap.Error(err))
				}
			},
		}, nil

	case "mongo":
		client, err := repositories.OpenMongo(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		db := client.Database(cfg.Name)
		if err := repositories.EnsureIndexes(ctx, db, cfg.OTPRetention); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, err
		}
		log.Info("mongo connected", zap.String("db", cfg.Name))
		return &stores{
			users: repositories.NewMongoUserRepository(db.Collection(repositories.UsersCollection)),
			otps:  repositories.NewMongoOTPRepository(db.Collection(repositories.OTPsCollection)),
			ping: func(ctx context.Context) error {
				return client.Ping(ctx, nil)
			},
			close: func() {
				if err := client.Disconnect(context.Background()); err != nil {
					log.Warn("close mongo", zap.Error(err))
				}
			},
		}, nil
	}
	return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
}
