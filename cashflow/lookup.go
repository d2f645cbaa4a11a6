package cashflow

import (
	"context"

	"github.com/meridian-fin/meridian/ledger"
)

// AccountInfoLookup batch-resolves account code and name for display.
// Pure read, no caching.
type AccountInfoLookup struct {
	reader *ledger.Reader
}

// NewAccountInfoLookup builds a lookup.
func NewAccountInfoLookup(reader *ledger.Reader) *AccountInfoLookup {
	return &AccountInfoLookup{reader: reader}
}

// BatchInfo resolves metadata for the given account ids.
func (l *AccountInfoLookup) BatchInfo(ctx context.Context, ids []int64) (map[int64]AccountInfo, error) {
	if len(ids) == 0 {
		return map[int64]AccountInfo{}, nil
	}
	accounts, err := l.reader.ReadAccounts(ctx, ids)
	if err != nil {
		return nil, err
	}
	infos := make(map[int64]AccountInfo, len(accounts))
	for _, acc := range accounts {
		infos[acc.ID] = AccountInfo{Code: acc.Code, Name: acc.Name}
	}
	return infos, nil
}
