package services

import (
	"errors"

	"github.com/inkpress/apiserver/internal/apperr"
	"github.com/inkpress/apiserver/internal/store"
)

// lookupError translates a repository failure for a single record.
func lookupError(err error, what string) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound(what + " not found")
	}
	return apperr.Storage(err)
}

func requireCaller(callerID string) error {
	if callerID == "" {
		return apperr.Authentication("authentication required")
	}
	return nil
}
