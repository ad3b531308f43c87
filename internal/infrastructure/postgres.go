package infrastructure

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresClient struct {
	Pool *pgxpool.Pool
}

func NewPostgresClient(connString string) (*PostgresClient, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	// Pool configuration
	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	client := &PostgresClient{Pool: pool}

	if err := client.Migrate(); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return client, nil
}

func (p *PostgresClient) Migrate() error {
	ctx := context.Background()

	// Dashboard users
	_, err := p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id SERIAL PRIMARY KEY,
			username VARCHAR(50) UNIQUE NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			role VARCHAR(20) DEFAULT 'user',
			company_id INT DEFAULT 0,
			is_active BOOLEAN DEFAULT TRUE,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("create users table: %w", err)
	}

	// Registered bots (credentials + delivery config)
	_, err = p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS bots (
			id SERIAL PRIMARY KEY,
			company_id INT NOT NULL,
			username VARCHAR(100),
			token VARCHAR(255) NOT NULL,
			channel_id VARCHAR(100),
			delivery_mode VARCHAR(20) DEFAULT 'polling',
			is_active BOOLEAN DEFAULT TRUE,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("create bots table: %w", err)
	}

	// Scenario graphs, nodes as JSONB (editor output)
	_, err = p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS scenarios (
			id SERIAL PRIMARY KEY,
			name VARCHAR(100) NOT NULL,
			trigger_command VARCHAR(50),
			keywords JSONB DEFAULT '[]',
			is_active BOOLEAN DEFAULT TRUE,
			entry_node_id VARCHAR(64) NOT NULL,
			nodes JSONB NOT NULL,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("create scenarios table: %w", err)
	}

	// One session per (bot, chat)
	_, err = p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS bot_sessions (
			bot_id INT NOT NULL,
			chat_id VARCHAR(64) NOT NULL,
			platform VARCHAR(20) NOT NULL,
			scenario_id INT DEFAULT 0,
			state VARCHAR(64) NOT NULL,
			variables JSONB DEFAULT '{}',
			history JSONB DEFAULT '[]',
			last_active TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			message_count INT DEFAULT 0,
			PRIMARY KEY (bot_id, chat_id)
		);
	`)
	if err != nil {
		return fmt.Errorf("create bot_sessions table: %w", err)
	}

	// Published channel cards (append-only lifecycle, never deleted)
	_, err = p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS channel_posts (
			id SERIAL PRIMARY KEY,
			request_id INT NOT NULL,
			bot_id INT NOT NULL,
			channel_id VARCHAR(100) NOT NULL,
			message_id INT DEFAULT 0,
			status VARCHAR(20) NOT NULL DEFAULT 'ACTIVE',
			payload TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("create channel_posts table: %w", err)
	}

	// Dealership requests
	_, err = p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS requests (
			id SERIAL PRIMARY KEY,
			title VARCHAR(255) NOT NULL,
			budget VARCHAR(50),
			city VARCHAR(100),
			year VARCHAR(20),
			contact VARCHAR(100),
			status VARCHAR(20) DEFAULT 'open',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("create requests table: %w", err)
	}

	// Captured leads
	_, err = p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS leads (
			id SERIAL PRIMARY KEY,
			name VARCHAR(100),
			phone VARCHAR(50),
			source VARCHAR(20),
			bot_id INT,
			chat_id VARCHAR(64),
			scenario_id INT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("create leads table: %w", err)
	}

	// Car inventory
	_, err = p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS cars (
			id SERIAL PRIMARY KEY,
			brand VARCHAR(100) NOT NULL,
			model VARCHAR(100) NOT NULL,
			year INT,
			price INT,
			currency VARCHAR(10) DEFAULT 'USD',
			city VARCHAR(100),
			status VARCHAR(20) DEFAULT 'in_stock',
			mileage INT DEFAULT 0,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("create cars table: %w", err)
	}

	// Best-effort message audit log
	_, err = p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS message_log (
			id SERIAL PRIMARY KEY,
			bot_id INT NOT NULL,
			chat_id VARCHAR(64) NOT NULL,
			direction VARCHAR(3) NOT NULL,
			content TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("create message_log table: %w", err)
	}

	// Durable per-bot dedup watermark, reloaded on startup
	_, err = p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS update_cursors (
			bot_id INT NOT NULL,
			platform VARCHAR(20) NOT NULL DEFAULT 'telegram',
			last_update_id BIGINT NOT NULL DEFAULT 0,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (bot_id, platform)
		);
	`)
	if err != nil {
		return fmt.Errorf("create update_cursors table: %w", err)
	}

	// Columns added after the initial schema shipped
	p.Pool.Exec(ctx, "ALTER TABLE bots ADD COLUMN IF NOT EXISTS delivery_mode VARCHAR(20) DEFAULT 'polling';")
	p.Pool.Exec(ctx, "ALTER TABLE cars ADD COLUMN IF NOT EXISTS mileage INT DEFAULT 0;")

	return nil
}

func (p *PostgresClient) Close() {
	p.Pool.Close()
}
