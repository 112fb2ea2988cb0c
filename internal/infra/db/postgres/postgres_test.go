package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"hoteldesk/internal/domain/availability"
)

func TestMapWriteError(t *testing.T) {
	err := mapWriteError(&pq.Error{Code: exclusionViolation, Constraint: overlapConstraint})
	assert.ErrorIs(t, err, availability.ErrRangeUnavailable)
	assert.Contains(t, err.Error(), overlapConstraint)

	other := &pq.Error{Code: "23505"}
	assert.Same(t, other, mapWriteError(other))

	assert.NoError(t, mapWriteError(nil))

	plain := errors.New("connection refused")
	assert.Equal(t, plain, mapWriteError(plain))
}

func TestConnPrefersContextTransaction(t *testing.T) {
	db := &sql.DB{}
	assert.Equal(t, querier(db), conn(context.Background(), db))

	tx := &sql.Tx{}
	assert.Equal(t, querier(tx), conn(withTx(context.Background(), tx), db))
}
