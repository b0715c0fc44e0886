package pipeline

import (
	"context"

	"github.com/Projekt-Grupowy-51/ProjektGrupowy-sub004/libs/db"
)

// TransactionScope wraps command handlers in a database transaction carried on
// the context. Queries pass through untouched. The handler's error comes back
// unmodified: commit on nil, rollback on anything else, and a failed rollback
// never masks the original error.
type TransactionScope struct {
	txm db.TxManager
}

func NewTransactionScope(txm db.TxManager) *TransactionScope {
	return &TransactionScope{txm: txm}
}

func (s *TransactionScope) Handle(ctx context.Context, req Request, next HandlerFunc) (any, error) {
	if !IsCommand(req) {
		return next(ctx, req)
	}

	var res any
	err := s.txm.WithinTx(ctx, func(ctx context.Context) error {
		r, err := next(ctx, req)
		if err != nil {
			return err
		}
		res = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
