package auth

import "errors"

var (
	ErrInvalidEmail          = errors.New("Adresse e-mail invalide")
	ErrWeakPassword          = errors.New("Mot de passe trop faible (8 caractères minimum, avec lettres et chiffres)")
	ErrFullNameRequired      = errors.New("Nom complet requis")
	ErrInvalidPhone          = errors.New("Numéro de téléphone invalide")
	ErrInvalidDistrict       = errors.New("Quartier invalide")
	ErrEmailTaken            = errors.New("Cet e-mail est déjà utilisé")
	ErrEmailPasswordRequired = errors.New("E-mail et mot de passe requis")
	ErrInvalidCredentials    = errors.New("Identifiants invalides")
	ErrBanned                = errors.New("Compte suspendu")
	ErrNoAccount             = errors.New("Aucun compte associé à cet e-mail")
	ErrInvalidCode           = errors.New("Code invalide ou expiré")
	ErrTooManyAttempts       = errors.New("Trop de tentatives, demandez un nouveau code")
	ErrNotAuthenticated      = errors.New("Non authentifié")
)
