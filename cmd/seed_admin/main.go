// seed_admin crea un usuario en PostgreSQL (típicamente el primer administrador).
// Aplica las migraciones pendientes antes de insertar.
//
// Uso: go run ./cmd/seed_admin -email admin@empresa.com -password 'Secreta123' [-role user -countries 1,2]
// La contraseña también puede venir de SEED_ADMIN_PASSWORD.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/Muestras-api/internal/domain"
	"github.com/jhoicas/Muestras-api/internal/domain/entity"
	"github.com/jhoicas/Muestras-api/internal/infrastructure/postgres"
	"github.com/jhoicas/Muestras-api/pkg/config"
	"github.com/jhoicas/Muestras-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cargar configuración: %v\n", err)
		os.Exit(1)
	}

	email := flag.String("email", cfg.Seed.AdminEmail, "email del usuario")
	password := flag.String("password", cfg.Seed.AdminPassword, "contraseña (mínimo 8 caracteres)")
	name := flag.String("name", "Administrador", "nombre completo")
	role := flag.String("role", string(entity.RoleAdmin), "administrador | user | comercial")
	countries := flag.String("countries", "", "IDs de países separados por coma (user y comercial)")
	category := flag.Int64("category", 0, "ID de categoría (comercial)")
	flag.Parse()

	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, App: "seed_admin"}).Zerolog()

	u, err := buildUser(*email, *password, *name, *role, *countries, *category)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Datos inválidos: %v\n", err)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool, postgres.Migrations(), log); err != nil {
		log.Fatal().Err(err).Msg("migraciones")
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("iniciar transacción")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := postgres.NewUserRepository(tx).Create(ctx, u); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			log.Warn().Str("email", u.Email).Msg("el usuario ya existe, no se modifica")
			return
		}
		log.Fatal().Err(err).Msg("crear usuario")
	}
	if err := tx.Commit(ctx); err != nil {
		log.Fatal().Err(err).Msg("confirmar transacción")
	}
	log.Info().Int64("user_id", u.ID).Str("email", u.Email).Str("role", string(u.Role)).Msg("usuario creado")
}

func buildUser(email, password, name, role, countries string, category int64) (*entity.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("email inválido %q", email)
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("la contraseña debe tener al menos 8 caracteres")
	}
	r, ok := entity.ParseRole(role)
	if !ok {
		return nil, fmt.Errorf("rol desconocido %q", role)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u := &entity.User{
		Email:        email,
		PasswordHash: string(hash),
		FullName:     name,
		Role:         r,
		Active:       true,
	}
	for _, part := range strings.Split(countries, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("id de país inválido %q", part)
		}
		u.CountryIDs = append(u.CountryIDs, id)
	}
	if r.Capabilities().FilterByCountry && len(u.CountryIDs) == 0 {
		return nil, fmt.Errorf("el rol %s requiere al menos un país", r)
	}
	if r == entity.RoleCommercial {
		if category <= 0 {
			return nil, fmt.Errorf("el rol comercial requiere categoría")
		}
		u.CategoryID = &category
	}
	return u, nil
}
