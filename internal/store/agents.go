package store

import (
	"context"
	"fmt"

	"github.com/morrigan/wyrmhold/internal/runner"
)

// RegisterAgent upserts an agent's wallet pairing. New agents start
// disabled with an idle focus so a deploy is an explicit operator act.
func (s *Store) RegisterAgent(ctx context.Context, wallet, custodialWallet string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO agents (wallet, custodial_wallet, enabled, focus, strategy, created_at, updated_at)
		VALUES ($1, $2, false, 'idle', 'balanced', NOW(), NOW())
		ON CONFLICT (wallet) DO UPDATE SET
			custodial_wallet = EXCLUDED.custodial_wallet,
			updated_at = NOW()`,
		wallet, custodialWallet,
	)
	if err != nil {
		return fmt.Errorf("register agent %s: %w", wallet, err)
	}
	return nil
}

// AgentConfig reads one agent's live configuration. Callers re-read it
// every tick; nothing here is cached.
func (s *Store) AgentConfig(ctx context.Context, wallet string) (*runner.AgentConfig, error) {
	row := s.db.QueryRow(ctx, `
		SELECT wallet, custodial_wallet, enabled, focus, strategy, COALESCE(target_zone,'')
		FROM agents WHERE wallet = $1`, wallet)

	var cfg runner.AgentConfig
	err := row.Scan(&cfg.Wallet, &cfg.CustodialWallet, &cfg.Enabled,
		&cfg.Focus, &cfg.Strategy, &cfg.TargetZone)
	if err != nil {
		return nil, fmt.Errorf("get agent config %s: %w", wallet, err)
	}
	return &cfg, nil
}

// ListAgents returns every registered agent's configuration.
func (s *Store) ListAgents(ctx context.Context) ([]*runner.AgentConfig, error) {
	rows, err := s.db.Query(ctx, `
		SELECT wallet, custodial_wallet, enabled, focus, strategy, COALESCE(target_zone,'')
		FROM agents ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()

	var agents []*runner.AgentConfig
	for rows.Next() {
		var cfg runner.AgentConfig
		if err := rows.Scan(&cfg.Wallet, &cfg.CustodialWallet, &cfg.Enabled,
			&cfg.Focus, &cfg.Strategy, &cfg.TargetZone); err != nil {
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		agents = append(agents, &cfg)
	}
	return agents, nil
}

// SetEnabled flips the agent's enabled flag.
func (s *Store) SetEnabled(ctx context.Context, wallet string, enabled bool) error {
	_, err := s.db.Exec(ctx,
		`UPDATE agents SET enabled = $1, updated_at = NOW() WHERE wallet = $2`,
		enabled, wallet)
	if err != nil {
		return fmt.Errorf("set enabled %s: %w", wallet, err)
	}
	return nil
}

// SetFocus updates the agent's focus.
func (s *Store) SetFocus(ctx context.Context, wallet string, focus runner.Focus) error {
	_, err := s.db.Exec(ctx,
		`UPDATE agents SET focus = $1, updated_at = NOW() WHERE wallet = $2`,
		string(focus), wallet)
	if err != nil {
		return fmt.Errorf("set focus %s: %w", wallet, err)
	}
	return nil
}

// SetStrategy updates the agent's risk posture.
func (s *Store) SetStrategy(ctx context.Context, wallet string, strategy runner.Strategy) error {
	_, err := s.db.Exec(ctx,
		`UPDATE agents SET strategy = $1, updated_at = NOW() WHERE wallet = $2`,
		string(strategy), wallet)
	if err != nil {
		return fmt.Errorf("set strategy %s: %w", wallet, err)
	}
	return nil
}

// SetTargetZone updates (or clears, with "") the travel target.
func (s *Store) SetTargetZone(ctx context.Context, wallet, zone string) error {
	_, err := s.db.Exec(ctx,
		`UPDATE agents SET target_zone = $1, updated_at = NOW() WHERE wallet = $2`,
		zone, wallet)
	if err != nil {
		return fmt.Errorf("set target zone %s: %w", wallet, err)
	}
	return nil
}

// EntityRef reads the cached entity location hint. An unresolved agent
// yields a zero ref, not an error.
func (s *Store) EntityRef(ctx context.Context, wallet string) (runner.EntityRef, error) {
	row := s.db.QueryRow(ctx, `
		SELECT COALESCE(entity_id,''), COALESCE(zone_id,'')
		FROM agents WHERE wallet = $1`, wallet)

	var ref runner.EntityRef
	if err := row.Scan(&ref.EntityID, &ref.ZoneID); err != nil {
		return runner.EntityRef{}, fmt.Errorf("get entity ref %s: %w", wallet, err)
	}
	return ref, nil
}

// SetEntityRef persists a corrected entity location hint.
func (s *Store) SetEntityRef(ctx context.Context, wallet string, ref runner.EntityRef) error {
	_, err := s.db.Exec(ctx,
		`UPDATE agents SET entity_id = $1, zone_id = $2, updated_at = NOW() WHERE wallet = $3`,
		ref.EntityID, ref.ZoneID, wallet)
	if err != nil {
		return fmt.Errorf("set entity ref %s: %w", wallet, err)
	}
	return nil
}

// AppendActivity appends one activity log entry.
func (s *Store) AppendActivity(ctx context.Context, wallet, role, text string) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO activity_log (wallet, role, body) VALUES ($1, $2, $3)`,
		wallet, role, text)
	if err != nil {
		return fmt.Errorf("append activity %s: %w", wallet, err)
	}
	return nil
}

// RecentActivity returns the newest entries first.
func (s *Store) RecentActivity(ctx context.Context, wallet string, limit int) ([]runner.ActivityEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(ctx, `
		SELECT role, body, created_at
		FROM activity_log WHERE wallet = $1
		ORDER BY created_at DESC LIMIT $2`, wallet, limit)
	if err != nil {
		return nil, fmt.Errorf("recent activity %s: %w", wallet, err)
	}
	defer rows.Close()

	var entries []runner.ActivityEntry
	for rows.Next() {
		var e runner.ActivityEntry
		if err := rows.Scan(&e.Role, &e.Text, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
