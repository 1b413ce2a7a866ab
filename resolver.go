package courier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/courierkit/courier/cache"
	"github.com/courierkit/courier/directory"
)

// broadcastCacheKey is the resolution scope for "every directory user".
// Targeted resolutions use the target user ID as their scope key.
const broadcastCacheKey = "all-broadcast-users"

// directoryService is the token audience for directory calls.
const directoryService = "directory"

// recipientResolver turns a (notification, send options) pair into a
// deduplicated set of email addresses. It holds no per-call state; the
// cache and directory are shared, externally owned collaborators.
type recipientResolver struct {
	cfg    Config
	cache  cache.Cache
	dir    directory.Directory
	tokens directory.TokenSource
	logger *slog.Logger
	otel   *instrumentation
}

// resolve returns the recipient set for the notification.
//
// The broadcast path is taken when the send options request it OR when the
// notification carries no user. The second condition mirrors the historical
// behavior of the system this library replaces; see the package
// documentation for the caveat.
func (r *recipientResolver) resolve(ctx context.Context, n Notification, opts SendOptions) ([]string, error) {
	if opts.Recipients.Type == RecipientBroadcast || n.UserID == "" {
		return r.resolveBroadcast(ctx)
	}
	return r.resolveTarget(ctx, n.UserID)
}

// resolveBroadcast dispatches on the configured broadcast receiver mode.
func (r *recipientResolver) resolveBroadcast(ctx context.Context) ([]string, error) {
	switch r.cfg.Receiver {
	case ReceiverNone:
		return nil, nil

	case ReceiverConfig:
		// The static list is config-owned; no cache or directory involved.
		return dedupe(r.cfg.ReceiverEmails), nil

	case ReceiverUsers:
		if set, ok := r.cacheGet(ctx, broadcastCacheKey); ok {
			return set, nil
		}

		token, err := r.serviceToken(ctx)
		if err != nil {
			return nil, err
		}
		users, err := r.dir.QueryUsersWithEmail(ctx, token)
		if err != nil {
			return nil, resolutionErr("query", err)
		}

		emails := make([]string, 0, len(users))
		for _, u := range users {
			if u.Email != "" {
				emails = append(emails, u.Email)
			}
		}
		set := dedupe(emails)
		r.cacheSet(ctx, broadcastCacheKey, set)
		return set, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedReceiver, r.cfg.Receiver)
	}
}

// resolveTarget resolves the single user named by the notification.
// A missing user or a user without a profile email yields an empty set,
// which is cached like any other answer.
func (r *recipientResolver) resolveTarget(ctx context.Context, userID string) ([]string, error) {
	if set, ok := r.cacheGet(ctx, userID); ok {
		return set, nil
	}

	token, err := r.serviceToken(ctx)
	if err != nil {
		return nil, err
	}

	set := []string{}
	u, err := r.dir.Lookup(ctx, userID, token)
	switch {
	case err == nil:
		if u.Email != "" {
			set = []string{u.Email}
		}
	case errors.Is(err, directory.ErrNotFound):
		// Absent user resolves to nobody; cache the negative answer.
	default:
		return nil, resolutionErr("lookup", err)
	}

	r.cacheSet(ctx, userID, set)
	return set, nil
}

// serviceToken acquires a short-lived directory credential.
// Requires a directory to be configured; the token source defaults to a
// static empty token when none was supplied.
func (r *recipientResolver) serviceToken(ctx context.Context) (string, error) {
	if r.dir == nil {
		return "", resolutionErr("credential", ErrDirectoryRequired)
	}
	token, err := r.tokens.ServiceToken(ctx, directoryService)
	if err != nil {
		return "", resolutionErr("credential", err)
	}
	return token, nil
}

// cacheGet consults the cache. Any cache failure is logged and treated as a
// miss; the cache is best-effort by contract.
func (r *recipientResolver) cacheGet(ctx context.Context, key string) ([]string, bool) {
	if r.cache == nil {
		return nil, false
	}
	set, ok, err := r.cache.Get(ctx, key)
	if err != nil {
		r.logger.Warn("recipient cache read failed", "key", key, "error", err)
		r.otel.recordCacheMiss(ctx)
		return nil, false
	}
	if !ok {
		r.otel.recordCacheMiss(ctx)
		return nil, false
	}
	r.otel.recordCacheHit(ctx)
	return set, true
}

// cacheSet writes through to the cache after a successful upstream
// resolution. Empty sets are written too (negative caching). Failures are
// logged and ignored.
func (r *recipientResolver) cacheSet(ctx context.Context, key string, set []string) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Set(ctx, key, set, r.cfg.CacheTTL); err != nil {
		r.logger.Warn("recipient cache write failed", "key", key, "error", err)
	}
}

// dedupe returns vals with duplicates removed, first occurrence wins.
func dedupe(vals []string) []string {
	seen := make(map[string]struct{}, len(vals))
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
