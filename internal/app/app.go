package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexedwards/scs/goredisstore"
	"github.com/alexedwards/scs/v2"
	"github.com/exaring/otelpgx"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"github.com/riandyrn/otelchi"
	"github.com/stripe/stripe-go/v82"

	"github.com/cinebook/cinema-booking-system/internal/booking"
	"github.com/cinebook/cinema-booking-system/internal/domain"
	"github.com/cinebook/cinema-booking-system/internal/mailer"
	"github.com/cinebook/cinema-booking-system/internal/payment"
	"github.com/cinebook/cinema-booking-system/internal/repository"
	appvalidator "github.com/cinebook/cinema-booking-system/internal/validator"
	"github.com/cinebook/cinema-booking-system/internal/vcs"
	"github.com/cinebook/cinema-booking-system/migrations"
)

var (
	version = vcs.Version()
)

type Application struct {
	config         Config
	logger         *slog.Logger
	db             *pgxpool.Pool
	redis          redis.UniversalClient
	validator      *validator.Validate
	sessionManager *scs.SessionManager

	userRepo       domain.UserRepository
	bookingService *booking.Service
	notifier       domain.NotificationService
}

type Config struct {
	Port               int
	Env                string
	AutoMigrate        bool
	OtelCollectorUrl   string
	AuthExchangeSecret string
	DB                 DBConfig
	Redis              RedisConfig
	SMTP               SMTPConfig
	Stripe             StripeConfig
	Booking            BookingConfig
}

type DBConfig struct {
	DSN          string
	MaxOpenConns int
	MaxIdleTime  time.Duration
}

type RedisConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
	MaxIdleTime  time.Duration
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Sender   string
}

type StripeConfig struct {
	SecretKey string
}

type BookingConfig struct {
	CancellationWindow time.Duration
	SeatHoldTTL        time.Duration
	CaptureOnCreate    bool
	Currency           string
}

func Run() error {
	var cfg Config

	flag.IntVar(&cfg.Port, "port", 3000, "server port")
	flag.StringVar(&cfg.Env, "env", "dev", "Environment (dev|staging|prod)")
	flag.BoolVar(&cfg.AutoMigrate, "db-automigrate", false, "Run database migrations on startup")
	flag.StringVar(&cfg.OtelCollectorUrl, "otel-collector-url", "", "OpenTelemetry collector URL")
	flag.StringVar(&cfg.AuthExchangeSecret, "auth-exchange-secret", "", "Shared secret for the session exchange endpoint")

	flag.StringVar(&cfg.DB.DSN, "db-dsn", "", "PostgreSQL DSN")
	flag.IntVar(&cfg.DB.MaxOpenConns, "db-max-open-conns", 25, "PostgreSQL max open connections")
	flag.DurationVar(&cfg.DB.MaxIdleTime, "db-max-idle-time", 15*time.Minute, "PostgreSQL max idle time for connections")

	flag.StringVar(&cfg.Redis.URL, "redis-url", "", "Redis URL")
	flag.IntVar(&cfg.Redis.MaxOpenConns, "redis-max-open-conns", 25, "Redis max open connections")
	flag.IntVar(&cfg.Redis.MaxIdleConns, "redis-max-idle-conns", 10, "Redis max idle connections")
	flag.DurationVar(&cfg.Redis.MaxIdleTime, "redis-max-idle-time", 2*time.Minute, "Redis max idle time for connections")

	flag.StringVar(&cfg.SMTP.Host, "smtp-host", "sandbox.smtp.mailtrap.io", "SMTP host")
	flag.IntVar(&cfg.SMTP.Port, "smtp-port", 2525, "SMTP port")
	flag.StringVar(&cfg.SMTP.Username, "smtp-username", "", "SMTP username")
	flag.StringVar(&cfg.SMTP.Password, "smtp-password", "", "SMTP password")
	flag.StringVar(&cfg.SMTP.Sender, "smtp-sender", "CineBook <no-reply@cinebook.example.com>", "SMTP sender")

	flag.StringVar(&cfg.Stripe.SecretKey, "stripe-key", "", "Stripe secret key")

	flag.DurationVar(&cfg.Booking.CancellationWindow, "cancellation-window", 30*time.Minute, "Minimum time before screening start that a booking can still be cancelled")
	flag.DurationVar(&cfg.Booking.SeatHoldTTL, "seat-hold-ttl", 10*time.Minute, "TTL of advisory seat holds")
	flag.BoolVar(&cfg.Booking.CaptureOnCreate, "capture-on-create", true, "Capture payment when the booking is created")
	flag.StringVar(&cfg.Booking.Currency, "currency", "usd", "Payment currency")

	displayVersion := flag.Bool("version", false, "Display version and exit")

	flag.Parse()

	if *displayVersion {
		fmt.Printf("Version:\t%s\n", version)
		os.Exit(0)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	app, err := New(cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	shutdownTelemetry, err := app.InitTelemetry()
	if err != nil {
		return err
	}
	defer shutdownTelemetry(context.Background())

	return app.run()
}

// New wires the application from an already-populated Config. It is split out
// from Run so integration tests can stand up an Application against
// containerized backing services.
func New(cfg Config, logger *slog.Logger) (*Application, error) {
	stripe.Key = cfg.Stripe.SecretKey

	db, err := NewDatabasePool(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.AutoMigrate {
		if err := migrateDatabase(cfg.DB.DSN); err != nil {
			db.Close()
			return nil, err
		}
	}

	redisClient, err := NewRedisClient(cfg)
	if err != nil {
		db.Close()
		return nil, err
	}

	userRepo := repository.NewPostgresUserRepository(db)

	bookingService := NewBookingService(cfg, db, payment.NewStripeGateway(), logger)

	smtpMailer := mailer.NewSMTPMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.Sender)

	return NewApp(
		cfg,
		logger,
		db,
		redisClient,
		NewSessionManager(redisClient),
		userRepo,
		bookingService,
		mailer.NewBookingNotifier(smtpMailer, userRepo),
	), nil
}

// NewApp assembles an Application from explicit dependencies.
func NewApp(
	cfg Config,
	logger *slog.Logger,
	db *pgxpool.Pool,
	redisClient redis.UniversalClient,
	sessionManager *scs.SessionManager,
	userRepo domain.UserRepository,
	bookingService *booking.Service,
	notifier domain.NotificationService) *Application {

	return &Application{
		config:         cfg,
		logger:         logger,
		db:             db,
		redis:          redisClient,
		validator:      appvalidator.NewValidator(),
		sessionManager: sessionManager,
		userRepo:       userRepo,
		bookingService: bookingService,
		notifier:       notifier,
	}
}

// NewBookingService builds the booking service on the Postgres repositories.
func NewBookingService(cfg Config, db *pgxpool.Pool, gateway domain.PaymentGateway, logger *slog.Logger) *booking.Service {
	return booking.NewService(
		booking.ServiceConfig{
			CancellationWindow: cfg.Booking.CancellationWindow,
			CaptureOnCreate:    cfg.Booking.CaptureOnCreate,
			Currency:           cfg.Booking.Currency,
		},
		repository.NewPostgresCatalogReader(db),
		repository.NewPostgresBookingRepository(db),
		repository.NewPostgresCouponRepository(db),
		gateway,
		logger,
	)
}

// Close releases the database and Redis connections.
func (app *Application) Close() {
	app.db.Close()

	if err := app.redis.Close(); err != nil {
		app.logger.Error("failed to close redis client", "error", err)
	}
}

func NewSessionManager(client *redis.Client) *scs.SessionManager {
	sessionManager := scs.New()

	sessionManager.Store = goredisstore.New(client)
	sessionManager.IdleTimeout = 20 * time.Minute
	sessionManager.Cookie.Name = "session_id"

	return sessionManager
}

func NewRedisClient(cfg Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:            cfg.Redis.URL,
		MaxIdleConns:    cfg.Redis.MaxIdleConns,
		MaxActiveConns:  cfg.Redis.MaxOpenConns,
		ConnMaxIdleTime: cfg.Redis.MaxIdleTime,
	})

	if err := redisotel.InstrumentTracing(rdb); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err := rdb.Ping(ctx).Err()
	if err != nil {
		return nil, err
	}

	return rdb, nil
}

func NewDatabasePool(cfg Config) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(cfg.DB.DSN)
	if err != nil {
		return nil, err
	}

	config.MaxConnIdleTime = cfg.DB.MaxIdleTime
	config.MaxConns = int32(cfg.DB.MaxOpenConns)
	config.ConnConfig.Tracer = otelpgx.NewTracer()

	db, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err = db.Ping(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func migrateDatabase(dsn string) error {
	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return err
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, dsn)
	if err != nil {
		return err
	}

	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	return nil
}

func (app *Application) run() error {
	srv := &http.Server{
		Addr:         fmt.Sprintf("0.0.0.0:%d", app.config.Port),
		Handler:      app.Routes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorLog:     slog.NewLogLogger(app.logger.Handler(), slog.LevelDebug),
	}

	shutdownError := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		app.logger.Info("shutting down server", "signal", s.String())

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		err := srv.Shutdown(ctx)
		if err != nil {
			shutdownError <- err
		}

		shutdownError <- nil
	}()

	app.logger.Info("starting server", "addr", srv.Addr, "env", app.config.Env)

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdownError
	if err != nil {
		return err
	}

	app.logger.Info("stopped server", "addr", srv.Addr)

	return nil
}

func (app *Application) Routes() http.Handler {
	r := chi.NewRouter()

	r.NotFound(app.notFoundResponse)

	r.Use(middleware.RequestID)
	r.Use(otelchi.Middleware("cinema-booking-api", otelchi.WithChiRoutes(r)))
	r.Use(app.logRequest)
	r.Use(app.recoverPanic)
	r.Use(app.sessionManager.LoadAndSave)

	r.Get("/health", app.GetHealthHandler)

	r.Route("/auth/sessions", func(r chi.Router) {
		r.Post("/", app.CreateSessionHandler)
		r.Delete("/", app.DeleteSessionHandler)
	})

	r.Route("/screenings/{screeningId}", func(r chi.Router) {
		r.Get("/seats", app.GetSeatAvailabilityHandler)

		r.With(app.requireAuthentication).Route("/holds", func(r chi.Router) {
			r.Post("/", app.HoldSeatsHandler)
			r.Delete("/", app.ReleaseSeatHoldsHandler)
		})
	})

	r.With(app.requireAuthentication).Route("/bookings", func(r chi.Router) {
		r.Post("/", app.CreateBookingHandler)
		r.Get("/{bookingId}", app.GetBookingHandler)
		r.Delete("/{bookingId}", app.CancelBookingHandler)
	})

	r.With(app.requireAuthentication).Get("/users/me/bookings", app.GetUserBookingsHandler)

	return r
}
