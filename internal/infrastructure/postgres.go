package infrastructure

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

type PostgresClient struct {
	Pool *pgxpool.Pool
}

func NewPostgresClient(ctx context.Context, connString string) (*PostgresClient, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	// Pool configuration
	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return &PostgresClient{Pool: pool}, nil
}

// schema is applied in order; every statement is idempotent
var schema = []struct {
	name string
	ddl  string
}{
	{"vector extension", `CREATE EXTENSION IF NOT EXISTS vector`},
	{"users", `
		CREATE TABLE IF NOT EXISTS users (
			id SERIAL PRIMARY KEY,
			email VARCHAR(255) UNIQUE NOT NULL,
			phone VARCHAR(32) NOT NULL DEFAULT '',
			full_name VARCHAR(255) NOT NULL DEFAULT '',
			password_hash VARCHAR(255) NOT NULL,
			role VARCHAR(20) NOT NULL DEFAULT 'broker',
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			telegram_chat_id BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`},
	{"users phone index", `CREATE INDEX IF NOT EXISTS idx_users_phone ON users (phone)`},
	{"areas", `
		CREATE TABLE IF NOT EXISTS areas (
			id SERIAL PRIMARY KEY,
			name VARCHAR(255) UNIQUE NOT NULL,
			name_ar VARCHAR(255) NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`},
	{"user_areas", `
		CREATE TABLE IF NOT EXISTS user_areas (
			user_id INT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			area_id INT NOT NULL REFERENCES areas(id) ON DELETE CASCADE,
			PRIMARY KEY (user_id, area_id)
		)`},
	{"unit_types", `
		CREATE TABLE IF NOT EXISTS unit_types (
			id SERIAL PRIMARY KEY,
			name VARCHAR(255) UNIQUE NOT NULL,
			name_ar VARCHAR(255) NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`},
	{"units", `
		CREATE TABLE IF NOT EXISTS units (
			id SERIAL PRIMARY KEY,
			area_id INT NOT NULL REFERENCES areas(id),
			unit_type_id INT NOT NULL REFERENCES unit_types(id),
			title VARCHAR(255) NOT NULL,
			price DECIMAL(15, 2) NOT NULL DEFAULT 0,
			bedrooms INT NOT NULL DEFAULT 0,
			bathrooms INT NOT NULL DEFAULT 0,
			size_sqm DECIMAL(10, 2) NOT NULL DEFAULT 0,
			status VARCHAR(20) NOT NULL DEFAULT 'available',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`},
	{"customers", `
		CREATE TABLE IF NOT EXISTS customers (
			id SERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL DEFAULT '',
			phone VARCHAR(32) UNIQUE NOT NULL,
			email VARCHAR(255) NOT NULL DEFAULT '',
			notes TEXT NOT NULL DEFAULT '',
			created_by INT REFERENCES users(id),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`},
	{"requests", `
		CREATE TABLE IF NOT EXISTS requests (
			id SERIAL PRIMARY KEY,
			customer_id INT NOT NULL REFERENCES customers(id),
			area_id INT NOT NULL REFERENCES areas(id),
			unit_type_id INT REFERENCES unit_types(id),
			budget_min DECIMAL(15, 2) NOT NULL DEFAULT 0,
			budget_max DECIMAL(15, 2) NOT NULL DEFAULT 0,
			bedrooms INT NOT NULL DEFAULT 0,
			notes TEXT NOT NULL DEFAULT '',
			status VARCHAR(20) NOT NULL DEFAULT 'new',
			source VARCHAR(20) NOT NULL DEFAULT 'manual',
			assigned_broker_id INT REFERENCES users(id),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`},
	{"requests broker index", `CREATE INDEX IF NOT EXISTS idx_requests_broker ON requests (assigned_broker_id, status)`},
	{"request_history", `
		CREATE TABLE IF NOT EXISTS request_history (
			id SERIAL PRIMARY KEY,
			request_id INT NOT NULL REFERENCES requests(id) ON DELETE CASCADE,
			action VARCHAR(20) NOT NULL,
			from_value VARCHAR(64) NOT NULL DEFAULT '',
			to_value VARCHAR(64) NOT NULL DEFAULT '',
			actor_id INT REFERENCES users(id),
			note TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`},
	{"broker_applications", `
		CREATE TABLE IF NOT EXISTS broker_applications (
			id SERIAL PRIMARY KEY,
			user_id INT UNIQUE NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			final_score DECIMAL(5, 2),
			decided_by INT REFERENCES users(id),
			decision_note TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			decided_at TIMESTAMPTZ
		)`},
	{"interview_sessions", `
		CREATE TABLE IF NOT EXISTS interview_sessions (
			id UUID PRIMARY KEY,
			application_id INT NOT NULL REFERENCES broker_applications(id) ON DELETE CASCADE,
			user_id INT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			current_phase INT NOT NULL DEFAULT 1,
			phase_question_index INT NOT NULL DEFAULT 0,
			phase1_score DECIMAL(5, 2) NOT NULL DEFAULT 0,
			phase2_score DECIMAL(5, 2) NOT NULL DEFAULT 0,
			phase3_score DECIMAL(5, 2) NOT NULL DEFAULT 0,
			phase4_score DECIMAL(5, 2) NOT NULL DEFAULT 0,
			phase5_score DECIMAL(5, 2) NOT NULL DEFAULT 0,
			phase6_score DECIMAL(5, 2) NOT NULL DEFAULT 0,
			total_score DECIMAL(5, 2) NOT NULL DEFAULT 0,
			is_complete BOOLEAN NOT NULL DEFAULT FALSE,
			passed BOOLEAN NOT NULL DEFAULT FALSE,
			transcript JSONB NOT NULL DEFAULT '[]',
			started_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			completed_at TIMESTAMPTZ
		)`},
	{"interview_sessions application index", `CREATE INDEX IF NOT EXISTS idx_interview_sessions_application ON interview_sessions (application_id)`},
	{"area_embeddings", `
		CREATE TABLE IF NOT EXISTS area_embeddings (
			area_id INT PRIMARY KEY REFERENCES areas(id) ON DELETE CASCADE,
			name VARCHAR(255) NOT NULL,
			name_ar VARCHAR(255) NOT NULL DEFAULT '',
			embedding vector(1024),
			embedding_en vector(1024),
			embedding_ar vector(1024),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`},
	{"unit_type_embeddings", `
		CREATE TABLE IF NOT EXISTS unit_type_embeddings (
			unit_type_id INT PRIMARY KEY REFERENCES unit_types(id) ON DELETE CASCADE,
			name VARCHAR(255) UNIQUE NOT NULL,
			name_ar VARCHAR(255) NOT NULL DEFAULT '',
			embedding vector(1024),
			embedding_en vector(1024),
			embedding_ar vector(1024),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`},
	{"conversation_embeddings", `
		CREATE TABLE IF NOT EXISTS conversation_embeddings (
			id SERIAL PRIMARY KEY,
			phone_number VARCHAR(32) NOT NULL,
			message_type VARCHAR(20) NOT NULL,
			message_text TEXT NOT NULL,
			embedding vector(1024),
			metadata JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`},
	{"conversation_embeddings phone index", `CREATE INDEX IF NOT EXISTS idx_conversation_embeddings_phone ON conversation_embeddings (phone_number)`},
	{"conversation_embeddings vector index", `
		CREATE INDEX IF NOT EXISTS idx_conversation_embeddings_vector
		ON conversation_embeddings USING hnsw (embedding vector_cosine_ops)`},
	{"customer_sessions", `
		CREATE TABLE IF NOT EXISTS customer_sessions (
			session_id UUID PRIMARY KEY,
			phone_number VARCHAR(32) UNIQUE NOT NULL,
			extracted_requirements JSONB NOT NULL DEFAULT '{}',
			last_intent VARCHAR(32) NOT NULL DEFAULT '',
			is_complete BOOLEAN NOT NULL DEFAULT FALSE,
			confirmed BOOLEAN NOT NULL DEFAULT FALSE,
			awaiting_confirmation BOOLEAN NOT NULL DEFAULT FALSE,
			confirmation_attempt INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`},
	{"bot_config", `
		CREATE TABLE IF NOT EXISTS bot_config (
			key VARCHAR(64) PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`},
}

// Migrate creates the schema if it does not exist yet
func (p *PostgresClient) Migrate(ctx context.Context) error {
	for _, step := range schema {
		if _, err := p.Pool.Exec(ctx, step.ddl); err != nil {
			return fmt.Errorf("migrate %s: %w", step.name, err)
		}
	}
	log.Info().Int("steps", len(schema)).Msg("database schema up to date")
	return nil
}

func (p *PostgresClient) Close() {
	p.Pool.Close()
}
