package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyFrom_EmptyRows(t *testing.T) {
	n, err := CopyFrom(context.TODO(), nil, "incident_details", []string{"latitude", "longitude"}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestCopyFrom_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"incident_details"}, []string{"latitude", "longitude"}).WillReturnResult(3)

	rows := [][]any{{28.61, 77.20}, {28.70, 77.10}, {28.55, 77.25}}
	n, err := CopyFrom(context.Background(), mock, "incident_details", []string{"latitude", "longitude"}, rows)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyFrom_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"incident_details"}, []string{"latitude"}).WillReturnError(fmt.Errorf("copy failed"))

	rows := [][]any{{28.61}}
	_, err = CopyFrom(context.Background(), mock, "incident_details", []string{"latitude"}, rows)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY INTO incident_details")
	assert.NoError(t, mock.ExpectationsWereMet())
}
