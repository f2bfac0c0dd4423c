package database

import (
	"context"
	"database/sql"
	"testing"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/nexpharm/pharmacy-intel/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapQueryError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"undefined table", &pq.Error{Code: "42P01", Message: `relation "sales" does not exist`}, "FEED_SCHEMA_ERROR"},
		{"connection failure", &pq.Error{Code: "08006", Message: "connection failure"}, "NETWORK_FAILURE"},
		{"sqlite generic error", sqlite3.Error{Code: sqlite3.ErrError}, "FEED_SCHEMA_ERROR"},
		{"sqlite busy", sqlite3.Error{Code: sqlite3.ErrBusy}, "NETWORK_FAILURE"},
		{"driver closed", sql.ErrConnDone, "NETWORK_FAILURE"},
		{"timeout", context.DeadlineExceeded, "NETWORK_FAILURE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := MapQueryError("inventory", tt.err)
			require.NotNil(t, appErr)
			assert.Equal(t, tt.wantCode, appErr.Code)
		})
	}

	assert.Nil(t, MapQueryError("inventory", nil))
	assert.True(t, errors.Is(MapQueryError("expiry", sql.ErrConnDone), errors.ErrNetworkFailure))
}
