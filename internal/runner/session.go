package runner

import (
	"context"
	"crypto/ed25519"
	"time"

	"go.uber.org/zap"
)

// tokenReuseWindow is how long before expiry a cached token stops being
// trusted. Fresh sessions are issued with roughly a 23h lifetime, so an
// agent re-authenticates about once a day.
const (
	tokenReuseWindow = time.Hour
	sessionLifetime  = 23 * time.Hour
)

// ensureAuthenticated makes sure the runner holds a usable bearer token.
// Returns false when the agent cannot act: no custodial wallet is
// registered, or signing/authentication was rejected. Failures are never
// raised; the loop decides fatal-vs-retry by phase.
func (r *Runner) ensureAuthenticated(ctx context.Context, cfg *AgentConfig) bool {
	if cfg.CustodialWallet == "" {
		r.logger.Warn("no custodial wallet registered",
			zap.String("wallet", r.wallet))
		return false
	}

	r.mu.Lock()
	r.id.custodial = cfg.CustodialWallet
	cached := r.id.token != "" && r.now().Add(tokenReuseWindow).Before(r.id.expiry)
	r.mu.Unlock()
	if cached {
		return true
	}

	key, err := r.signer.ExportKey(ctx, cfg.CustodialWallet)
	if err != nil {
		r.logger.Warn("signing material export failed",
			zap.String("wallet", r.wallet),
			zap.Error(err))
		return false
	}

	challenge, err := r.world.AuthChallenge(ctx, cfg.CustodialWallet)
	if err != nil {
		r.logger.Warn("auth challenge failed",
			zap.String("wallet", r.wallet),
			zap.Error(err))
		return false
	}

	sess, err := r.world.CreateSession(ctx, cfg.CustodialWallet, ed25519.Sign(key, challenge))
	if err != nil {
		r.logger.Warn("session creation rejected",
			zap.String("wallet", r.wallet),
			zap.Error(err))
		return false
	}

	expiry := sess.ExpiresAt
	if expiry.IsZero() {
		expiry = r.now().Add(sessionLifetime)
	}

	r.mu.Lock()
	r.id.token = sess.Token
	r.id.expiry = expiry
	r.mu.Unlock()

	r.logger.Info("session refreshed",
		zap.String("wallet", r.wallet),
		zap.Time("expiry", expiry))
	return true
}
