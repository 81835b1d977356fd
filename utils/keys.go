package utils

import "github.com/sethvargo/go-password/password"

// GeneratePIN returns a 6-digit access PIN.
func GeneratePIN() (string, error) {
	return password.Generate(6, 6, 0, false, true)
}

// GenerateAPIKey returns a random alphanumeric API key.
func GenerateAPIKey() (string, error) {
	return password.Generate(32, 10, 0, false, true)
}
