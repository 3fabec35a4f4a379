package handlers

import (
	"strings"

	"scoredeck/services/scoreboard"
)

// signupForm carries the raw signup submission.
type signupForm struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
}

// validateSignup applies the local checks before any request is sent.
// Returns per-field error messages; an empty map means the form may be
// submitted.
func validateSignup(f signupForm) map[string]string {
	errs := make(map[string]string)

	if len(strings.TrimSpace(f.Username)) < 3 {
		errs["username"] = "username must be at least 3 characters"
	}
	if !looksLikeEmail(f.Email) {
		errs["email"] = "enter a valid email address"
	}
	if len(f.Password) < 8 {
		errs["password"] = "password must be at least 8 characters"
	}
	if f.ConfirmPassword != f.Password {
		errs["confirmPassword"] = "passwords do not match"
	}

	return errs
}

// looksLikeEmail checks the mailbox shape only; real validation is the
// backend's job.
func looksLikeEmail(s string) bool {
	at := strings.Index(s, "@")
	if at <= 0 || at == len(s)-1 {
		return false
	}
	domain := s[at+1:]
	return strings.Contains(domain, ".") && !strings.ContainsAny(s, " \t")
}

func (f signupForm) request() scoreboard.SignupRequest {
	return scoreboard.SignupRequest{
		Username: strings.TrimSpace(f.Username),
		Email:    strings.TrimSpace(f.Email),
		Password: f.Password,
	}
}
