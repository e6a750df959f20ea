package policies

import (
	"errors"

	"daloamarket-backend/internal/pkg/constants"
)

var (
	ErrSelfAction  = errors.New("Action impossible sur votre propre compte")
	ErrInvalidRole = errors.New("Rôle invalide")
)

// ValidateRoleAssignment checks an admin role change. Admins cannot change their own role.
func ValidateRoleAssignment(actorUserID, targetUserID, targetRole string) error {
	if !constants.IsValidRole(targetRole) {
		return ErrInvalidRole
	}
	if actorUserID == targetUserID {
		return ErrSelfAction
	}
	return nil
}

// ValidateBan checks an admin ban toggle. Admins cannot ban themselves.
func ValidateBan(actorUserID, targetUserID string) error {
	if actorUserID == targetUserID {
		return ErrSelfAction
	}
	return nil
}
