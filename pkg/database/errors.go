package database

import (
	stderrors "errors"
	"net/http"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/nexpharm/pharmacy-intel/pkg/errors"
)

// MapQueryError converts a feed query failure into an AppError.
// Schema problems (missing table or column, bad SQL) are internal errors;
// anything else means the feed store could not be reached.
func MapQueryError(feed string, err error) *errors.AppError {
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if stderrors.As(err, &pqErr) {
		// class 42: syntax error or access rule violation
		if pqErr.Code.Class() == "42" {
			return errors.Wrap(err, "FEED_SCHEMA_ERROR", "feed schema error: "+pqErr.Message, http.StatusInternalServerError)
		}
		return errors.NetworkFailure(feed, err)
	}

	var liteErr sqlite3.Error
	if stderrors.As(err, &liteErr) && liteErr.Code == sqlite3.ErrError {
		return errors.Wrap(err, "FEED_SCHEMA_ERROR", "feed schema error: "+liteErr.Error(), http.StatusInternalServerError)
	}

	return errors.NetworkFailure(feed, err)
}
