package integration_test

import (
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/cinebook/cinema-booking-system/internal/app"
	"github.com/cinebook/cinema-booking-system/internal/mailer"
	"github.com/cinebook/cinema-booking-system/internal/payment"
	"github.com/cinebook/cinema-booking-system/internal/repository"
)

type TestApp struct {
	App     *app.Application
	DB      *pgxpool.Pool
	Redis   redis.UniversalClient
	Mailer  *mailer.MockMailer
	Gateway *payment.MockGateway
}

func newTestApp(cfg app.Config) (*TestApp, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	db, err := app.NewDatabasePool(cfg)
	if err != nil {
		return nil, err
	}

	redisClient, err := app.NewRedisClient(cfg)
	if err != nil {
		db.Close()
		return nil, err
	}

	mockMailer := mailer.NewMockMailer()
	gateway := payment.NewMockGateway()
	userRepo := repository.NewPostgresUserRepository(db)

	application := app.NewApp(
		cfg,
		logger,
		db,
		redisClient,
		app.NewSessionManager(redisClient),
		userRepo,
		app.NewBookingService(cfg, db, gateway, logger),
		mailer.NewBookingNotifier(mockMailer, userRepo),
	)

	return &TestApp{
		App:     application,
		DB:      db,
		Redis:   redisClient,
		Mailer:  mockMailer,
		Gateway: gateway,
	}, nil
}
