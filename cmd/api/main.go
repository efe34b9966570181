package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	_ "github.com/jhoicas/Muestras-api/docs"
	"github.com/jhoicas/Muestras-api/internal/application/auth"
	"github.com/jhoicas/Muestras-api/internal/application/inventory"
	"github.com/jhoicas/Muestras-api/internal/domain/entity"
	"github.com/jhoicas/Muestras-api/internal/domain/repository"
	"github.com/jhoicas/Muestras-api/internal/infrastructure/events"
	"github.com/jhoicas/Muestras-api/internal/infrastructure/memory"
	"github.com/jhoicas/Muestras-api/internal/infrastructure/metrics"
	infrapdf "github.com/jhoicas/Muestras-api/internal/infrastructure/pdf"
	"github.com/jhoicas/Muestras-api/internal/infrastructure/postgres"
	infraredis "github.com/jhoicas/Muestras-api/internal/infrastructure/redis"
	httpRouter "github.com/jhoicas/Muestras-api/internal/interfaces/http"
	"github.com/jhoicas/Muestras-api/pkg/config"
	"github.com/jhoicas/Muestras-api/pkg/logger"
)

// storage repositorios y transacciones del backend elegido con STORAGE.
type storage struct {
	tx         inventory.TxRunner
	snapshots  inventory.SnapshotReader
	products   repository.ProductRepository
	movements  repository.MovementRepository
	countries  repository.CountryRepository
	categories repository.CategoryRepository
	users      repository.UserRepository
	close      func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	appLog := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
		App:   cfg.App.Name,
	})
	log := appLog.Zerolog()
	log.Info().
		Str("env", cfg.App.Env).
		Str("storage", cfg.App.Storage).
		Str("timezone", cfg.App.Timezone).
		Msg("iniciando aplicación")

	if cfg.JWT.Secret == "" {
		log.Fatal().Msg("JWT_SECRET es requerido")
	}

	ctx := context.Background()
	location := cfg.App.Location()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	ledgerMetrics := metrics.New(reg)

	var st *storage
	if cfg.App.Storage == "memory" {
		st, err = openMemory(cfg.Seed, log)
	} else {
		st, err = openPostgres(ctx, cfg, log)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar almacenamiento")
	}
	defer st.close()

	// Contador de intentos de login: Redis si está configurado (compartido entre réplicas).
	var attempts auth.AttemptStore = memory.NewAttemptStore()
	if cfg.Redis.Addr != "" {
		client, err := infraredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a Redis")
		}
		defer client.Close()
		attempts = infraredis.NewAttemptStore(client)
	}

	var publisher inventory.EventPublisher = inventory.NopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaPub := events.NewKafkaPublisher(events.NewWriter(cfg.Kafka.Brokers, cfg.Kafka.MovementsTopic), log)
		defer func() {
			if err := kafkaPub.Close(); err != nil {
				log.Error().Err(err).Msg("cerrar publisher de eventos")
			}
		}()
		publisher = kafkaPub
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.MovementsTopic).Msg("publicación de movimientos habilitada")
	}

	ledgerCfg := inventory.DefaultConfig()
	ledgerCfg.MaxAttempts = cfg.Ledger.MaxAttempts
	ledgerCfg.Location = location

	recorder := inventory.NewMovementRecorder(st.tx, publisher, ledgerMetrics, log, ledgerCfg)
	allocator := inventory.NewCodeAllocator(st.tx, ledgerMetrics, log, ledgerCfg)
	productUC := inventory.NewProductUseCase(st.tx, st.products, st.countries, st.categories, allocator, recorder)
	kardex := inventory.NewKardexReconstructor(st.snapshots, ledgerMetrics, log)
	query := inventory.NewMovementQuery(st.movements, ledgerCfg)

	authUC := auth.NewAuthUseCase(st.users, attempts, auth.JWTConfig{
		Secret:     cfg.JWT.Secret,
		ExpMinutes: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	}, auth.LoginGuard{
		MaxAttempts: cfg.Login.MaxAttempts,
		Window:      cfg.Login.BlockWindow(),
	}, log)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 30,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())
	app.Use(httpRouter.RequestLogger(log))
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.HTTP.CORSOrigins,
		AllowHeaders: strings.Join([]string{fiber.HeaderOrigin, fiber.HeaderContentType, fiber.HeaderAccept, fiber.HeaderAuthorization, httpRouter.HeaderRequestID}, ","),
	}))

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Muestras API",
	}))

	httpRouter.Router(app, httpRouter.RouterDeps{
		AuthUC:         authUC,
		ScopeResolver:  auth.NewScopeResolver(st.users),
		Recorder:       recorder,
		Query:          query,
		Kardex:         kardex,
		ProductUC:      productUC,
		PDF:            infrapdf.NewKardexPDFGenerator(location),
		Metrics:        ledgerMetrics,
		Gatherer:       reg,
		Location:       location,
		JWTSecret:      cfg.JWT.Secret,
		RateLimitRPS:   float64(cfg.RateLimit.RPS),
		RateLimitBurst: cfg.RateLimit.Burst,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}

func openPostgres(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*storage, error) {
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return nil, err
	}
	if err := postgres.RunMigrations(ctx, pool, postgres.Migrations(), log); err != nil {
		pool.Close()
		return nil, err
	}
	txRunner := postgres.NewTxRunner(pool, time.Duration(cfg.Ledger.LockTimeoutMS)*time.Millisecond)
	return &storage{
		tx:         txRunner,
		snapshots:  txRunner,
		products:   postgres.NewProductRepository(pool),
		movements:  postgres.NewMovementRepository(pool),
		countries:  postgres.NewCountryRepository(pool),
		categories: postgres.NewCategoryRepository(pool),
		users:      postgres.NewUserRepository(pool),
		close:      pool.Close,
	}, nil
}

// openMemory arranca sin base de datos: datos de referencia y, si se configuró, un administrador.
func openMemory(seed config.SeedConfig, log zerolog.Logger) (*storage, error) {
	store := memory.NewStore()
	store.SeedReference()
	if seed.AdminEmail != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(seed.AdminPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		admin := store.AddUser(entity.User{
			Email:        seed.AdminEmail,
			PasswordHash: string(hash),
			FullName:     "Administrador",
			Role:         entity.RoleAdmin,
			Active:       true,
		})
		log.Info().Int64("user_id", admin.ID).Str("email", admin.Email).Msg("administrador inicial creado")
	}
	log.Warn().Msg("almacenamiento en memoria: los datos se pierden al reiniciar")
	return &storage{
		tx:         store,
		snapshots:  store,
		products:   store.Products(),
		movements:  store.Movements(),
		countries:  store.Countries(),
		categories: store.Categories(),
		users:      store.Users(),
		close:      func() {},
	}, nil
}
