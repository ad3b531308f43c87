package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dealerhub/internal/entities"
)

// ScenarioRepository loads scenario graphs. The editor writes them as
// loosely-typed JSONB; they are decoded, validated and cached here once per
// version, so the interpreter never re-checks graph invariants per step.
// Graphs are read-only at runtime and shared freely across workers.
type ScenarioRepository struct {
	db *pgxpool.Pool

	mu    sync.RWMutex
	cache map[int]*entities.Scenario
}

func NewScenarioRepository(db *pgxpool.Pool) *ScenarioRepository {
	return &ScenarioRepository{
		db:    db,
		cache: make(map[int]*entities.Scenario),
	}
}

// GetByID returns a validated scenario, from cache when the stored version
// has not moved.
func (r *ScenarioRepository) GetByID(ctx context.Context, id int) (*entities.Scenario, error) {
	sc, err := r.scanOne(ctx, "SELECT id, name, trigger_command, keywords, is_active, entry_node_id, nodes, updated_at FROM scenarios WHERE id=$1", id)
	if err != nil {
		return nil, err
	}
	return r.cached(sc)
}

// GetActive returns all active, validated scenarios.
func (r *ScenarioRepository) GetActive(ctx context.Context) ([]*entities.Scenario, error) {
	rows, err := r.db.Query(ctx, "SELECT id, name, trigger_command, keywords, is_active, entry_node_id, nodes, updated_at FROM scenarios WHERE is_active=TRUE")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*entities.Scenario
	for rows.Next() {
		sc, err := scanScenario(rows)
		if err != nil {
			return nil, err
		}
		valid, err := r.cached(sc)
		if err != nil {
			// A broken graph must not take down the rest; the editor owns
			// fixing it.
			continue
		}
		out = append(out, valid)
	}
	return out, rows.Err()
}

// Match picks the scenario for a fresh conversation: exact trigger command
// first, then keyword containment, case-insensitive.
func (r *ScenarioRepository) Match(ctx context.Context, command, text string) (*entities.Scenario, error) {
	active, err := r.GetActive(ctx)
	if err != nil {
		return nil, err
	}

	if command != "" {
		for _, sc := range active {
			if strings.TrimPrefix(sc.TriggerCommand, "/") == command {
				return sc, nil
			}
		}
	}

	lower := strings.ToLower(text)
	for _, sc := range active {
		for _, kw := range sc.Keywords {
			if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
				return sc, nil
			}
		}
	}
	return nil, entities.ErrNoScenario
}

// Upsert stores an editor-produced scenario after validating it. Invalid
// graphs are rejected outright rather than failing later mid-chat.
func (r *ScenarioRepository) Upsert(ctx context.Context, sc *entities.Scenario) error {
	if err := sc.Validate(); err != nil {
		return err
	}

	nodes, err := json.Marshal(sc.Nodes)
	if err != nil {
		return err
	}
	keywords, err := json.Marshal(sc.Keywords)
	if err != nil {
		return err
	}

	if sc.ID == 0 {
		err = r.db.QueryRow(ctx, `
			INSERT INTO scenarios (name, trigger_command, keywords, is_active, entry_node_id, nodes, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, NOW())
			RETURNING id
		`, sc.Name, sc.TriggerCommand, keywords, sc.IsActive, sc.EntryNodeID, nodes).Scan(&sc.ID)
	} else {
		_, err = r.db.Exec(ctx, `
			UPDATE scenarios SET name=$1, trigger_command=$2, keywords=$3, is_active=$4, entry_node_id=$5, nodes=$6, updated_at=NOW()
			WHERE id=$7
		`, sc.Name, sc.TriggerCommand, keywords, sc.IsActive, sc.EntryNodeID, nodes, sc.ID)
	}
	if err != nil {
		return err
	}

	r.mu.Lock()
	delete(r.cache, sc.ID)
	r.mu.Unlock()
	return nil
}

// cached returns the cache entry when UpdatedAt matches, otherwise validates
// the fresh copy and swaps it in.
func (r *ScenarioRepository) cached(sc *entities.Scenario) (*entities.Scenario, error) {
	r.mu.RLock()
	hit, ok := r.cache[sc.ID]
	r.mu.RUnlock()
	if ok && hit.UpdatedAt.Equal(sc.UpdatedAt) {
		return hit, nil
	}

	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario graph: %w", err)
	}

	r.mu.Lock()
	r.cache[sc.ID] = sc
	r.mu.Unlock()
	return sc, nil
}

func (r *ScenarioRepository) scanOne(ctx context.Context, query string, args ...interface{}) (*entities.Scenario, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, pgx.ErrNoRows
	}
	return scanScenario(rows)
}

func scanScenario(rows pgx.Rows) (*entities.Scenario, error) {
	var sc entities.Scenario
	var keywords, nodes []byte
	if err := rows.Scan(&sc.ID, &sc.Name, &sc.TriggerCommand, &keywords, &sc.IsActive, &sc.EntryNodeID, &nodes, &sc.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(keywords, &sc.Keywords); err != nil {
		return nil, fmt.Errorf("decode scenario %d keywords: %w", sc.ID, err)
	}
	if err := json.Unmarshal(nodes, &sc.Nodes); err != nil {
		return nil, fmt.Errorf("decode scenario %d nodes: %w", sc.ID, err)
	}
	return &sc, nil
}
