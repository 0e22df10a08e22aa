package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateEmail(t *testing.T) {
	for email, ok := range map[string]bool{
		"dev@example.com":     true,
		" Dev@Example.COM ":   true,
		"":                    false,
		"no-at.example.com":   false,
		"a@b@example.com":     false,
		"dev@localhost":       false,
		"de v@example.com":    false,
		strings.Repeat("a", 65) + "@example.com": false,
	} {
		err := ValidateEmail(email)
		if ok {
			assert.NoError(t, err, email)
		} else {
			assert.Error(t, err, email)
		}
	}
}

func TestValidateUsername(t *testing.T) {
	assert.NoError(t, ValidateUsername("anna_dev"))
	assert.Error(t, ValidateUsername("ab"))
	assert.Error(t, ValidateUsername("1anna"))
	assert.Error(t, ValidateUsername("анна"))
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("Secret123"))
	assert.ErrorContains(t, ValidatePassword("Sec1"), "8")
	assert.ErrorContains(t, ValidatePassword("secret123"), "заглавную")
	assert.ErrorContains(t, ValidatePassword("SECRET123"), "строчную")
	assert.ErrorContains(t, ValidatePassword("SecretPass"), "цифру")
}

func TestValidateSkills(t *testing.T) {
	assert.NoError(t, ValidateSkills([]string{"Go", "PostgreSQL"}))
	assert.ErrorContains(t, ValidateSkills([]string{"Go", "go"}), "дважды")
	assert.Error(t, ValidateSkills([]string{" "}))
	assert.Error(t, ValidateSkills(make([]string, MaxSkillsCount+1)))
}

func TestValidateBio(t *testing.T) {
	assert.NoError(t, ValidateBio(nil))
	long := strings.Repeat("б", MaxBioLength+1)
	assert.Error(t, ValidateBio(&long))
}
