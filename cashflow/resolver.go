package cashflow

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/meridian-fin/meridian/ledger"
	"github.com/meridian-fin/meridian/observability"
)

// defaultCashPrefixes applies when no rule groups are configured at all.
// The value is a behavioral default inherited from the deployed rule set;
// deployments should configure rules explicitly.
var defaultCashPrefixes = []string{"110", "111"}

// AccountResolver resolves which accounts count as cash or cash
// equivalents. Resolution never fails: a gateway error logs, counts as a
// degraded read, and yields an empty or incomplete set for this call only
// (degraded results are not cached, so a later call can recover).
type AccountResolver struct {
	reader  *ledger.Reader
	rules   []CashAccountRule
	cache   AccountSetCache
	ttl     time.Duration
	logger  *slog.Logger
	metrics *observability.Metrics
	group   singleflight.Group
	key     string
}

// NewAccountResolver builds a resolver for one rule set. The cache is
// caller-owned; passing the same cache to resolvers with different rules is
// safe because the key embeds the rule set.
func NewAccountResolver(reader *ledger.Reader, rules []CashAccountRule, cache AccountSetCache, ttl time.Duration, logger *slog.Logger, metrics *observability.Metrics) *AccountResolver {
	if logger == nil {
		logger = slog.Default()
	}
	if cache == nil {
		cache = NewMemoryAccountSetCache()
	}
	return &AccountResolver{
		reader:  reader,
		rules:   rules,
		cache:   cache,
		ttl:     ttl,
		logger:  logger,
		metrics: metrics,
		key:     cacheKey(rules),
	}
}

func cacheKey(rules []CashAccountRule) string {
	payload, _ := json.Marshal(rules)
	sum := sha256.Sum256(payload)
	return "meridian:cashset:" + hex.EncodeToString(sum[:8])
}

// Resolve returns the sorted cash-account id set. The degraded flag marks
// an empty or incomplete set caused by source failure rather than
// configuration.
func (r *AccountResolver) Resolve(ctx context.Context) ([]int64, bool) {
	if ids, ok := r.cache.Get(ctx, r.key); ok {
		return ids, false
	}
	type result struct {
		ids      []int64
		degraded bool
	}
	v, _, _ := r.group.Do(r.key, func() (any, error) {
		ids, degraded := r.resolve(ctx)
		if !degraded {
			r.cache.Set(ctx, r.key, ids, r.ttl)
		}
		return result{ids: ids, degraded: degraded}, nil
	})
	res := v.(result)
	return res.ids, res.degraded
}

// Invalidate drops the cached set for this resolver's rules.
func (r *AccountResolver) Invalidate(ctx context.Context) {
	r.cache.Delete(ctx, r.key)
}

func (r *AccountResolver) resolve(ctx context.Context) ([]int64, bool) {
	rules := r.rules
	if len(rules) == 0 {
		rules = []CashAccountRule{{Prefixes: defaultCashPrefixes}}
	}
	var prefixes, includes []string
	excluded := make(map[string]struct{})
	for _, rule := range rules {
		prefixes = append(prefixes, rule.Prefixes...)
		includes = append(includes, rule.IncludeCodes...)
		for _, code := range rule.ExcludeCodes {
			excluded[code] = struct{}{}
		}
	}

	byID := make(map[int64]struct{})
	seenCodes := make(map[string]struct{})
	if len(prefixes) > 0 {
		conds := make([]ledger.Expr, len(prefixes))
		for i, p := range prefixes {
			conds[i] = ledger.Prefix("code", p)
		}
		accounts, err := r.reader.SearchAccounts(ctx, ledger.Or(conds...))
		if err != nil {
			r.logger.Error("cash account resolution failed", "error", err)
			r.metrics.DegradedRead("resolver")
			return nil, true
		}
		for _, acc := range accounts {
			if _, drop := excluded[acc.Code]; drop {
				continue
			}
			byID[acc.ID] = struct{}{}
			seenCodes[acc.Code] = struct{}{}
		}
	}

	// Include codes missed by every prefix are fetched one by one;
	// exclusion still wins over an explicit include. A failed lookup
	// leaves the set incomplete, so it marks this resolution degraded
	// and keeps it out of the cache.
	degraded := false
	for _, code := range includes {
		if _, drop := excluded[code]; drop {
			continue
		}
		if _, ok := seenCodes[code]; ok {
			continue
		}
		accounts, err := r.reader.SearchAccounts(ctx, ledger.Eq("code", code))
		if err != nil {
			r.logger.Warn("include code lookup failed", "code", code, "error", err)
			r.metrics.DegradedRead("resolver")
			degraded = true
			continue
		}
		for _, acc := range accounts {
			byID[acc.ID] = struct{}{}
			seenCodes[acc.Code] = struct{}{}
		}
	}

	ids := make([]int64, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, degraded
}
