package db

import (
	"errors"
	"fmt"
	"strings"

	"github.com/surrealdb/surrealdb.go"

	"github.com/iris-analytics/iris/internal/models"
)

// wrapQueryError inspects a SurrealDB error and maps known query failures
// onto the engine's sentinel errors. Anything unrecognized is wrapped as a
// storage error so callers never see raw driver errors.
func wrapQueryError(err error) error {
	if err == nil {
		return nil
	}

	var queryErr *surrealdb.QueryError
	if errors.As(err, &queryErr) {
		msg := queryErr.Message
		if strings.Contains(msg, "already exists") {
			return fmt.Errorf("%w: %s", models.ErrAlreadyExists, msg)
		}
	}

	return fmt.Errorf("%w: %v", models.ErrStorage, err)
}
