package handlers

import (
	"errors"

	"spiresync/internal/inventory"
	"spiresync/internal/progress"
	"spiresync/internal/repository"
	"spiresync/internal/services/spire"
)

// userMessage returns the wording the admin UI shows for err.
func userMessage(err error) string {
	var verr *repository.ValidationError
	switch {
	case errors.Is(err, inventory.ErrMissingCredentials):
		return "Missing required Spire API credentials."
	case errors.Is(err, inventory.ErrMissingRunKey):
		return "No brand selected"
	case errors.Is(err, progress.ErrNotFound):
		return "No progress found"
	case errors.Is(err, repository.ErrSettingsNotFound):
		return "No settings found."
	case errors.Is(err, spire.ErrInvalidFilter):
		return "Invalid filter JSON format"
	case errors.As(err, &verr):
		return "Missing required fields: " + verr.FieldList()
	default:
		return err.Error()
	}
}
