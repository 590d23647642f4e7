package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func serializationErr() error {
	return fmt.Errorf("exec: %w", &pgconn.PgError{Code: "40001", Message: "could not serialize access due to concurrent update"})
}

func TestSerializationFailure(t *testing.T) {
	require.True(t, SerializationFailure(serializationErr()))
	require.True(t, SerializationFailure(&pgconn.PgError{Code: "40P01"}))

	require.False(t, SerializationFailure(nil))
	require.False(t, SerializationFailure(errors.New("plain")))
	require.False(t, SerializationFailure(&pgconn.PgError{Code: "23505"}))
}

func TestRetrySerializationRecoversWithinBudget(t *testing.T) {
	attempts := 0
	err := retrySerialization(func() error {
		attempts++
		if attempts < 3 {
			return serializationErr()
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, attempts)
}

func TestRetrySerializationGivesUpAfterBudget(t *testing.T) {
	attempts := 0
	err := retrySerialization(func() error {
		attempts++
		return serializationErr()
	})
	require.True(t, SerializationFailure(err))
	require.Equal(t, txAttempts, attempts)
}

func TestRetrySerializationDoesNotRetryOtherErrors(t *testing.T) {
	attempts := 0
	sentinel := errors.New("constraint")
	err := retrySerialization(func() error {
		attempts++
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)
	require.Equal(t, 1, attempts)
}
