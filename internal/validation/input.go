package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	MinUsernameLength = 3
	MaxUsernameLength = 30
	MaxBioLength      = 1000
	MaxSkillLength    = 50
	MaxSkillsCount    = 50
)

var (
	emailLocalRe  = regexp.MustCompile(`^[a-z0-9._+-]+$`)
	emailDomainRe = regexp.MustCompile(`^[a-z0-9.-]+\.[a-z]{2,}$`)
	usernameRe    = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
)

// ValidateLength проверяет длину строки в символах. Нулевая граница не проверяется.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return fmt.Errorf("%s должен быть не менее %d символов", fieldName, min)
	}
	if max > 0 && length > max {
		return fmt.Errorf("%s должен быть не более %d символов", fieldName, max)
	}
	return nil
}

// ValidateEmail проверяет формат email.
func ValidateEmail(email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return fmt.Errorf("email обязателен")
	}

	local, domain, ok := strings.Cut(email, "@")
	if !ok || strings.Contains(domain, "@") {
		return fmt.Errorf("некорректный формат email")
	}
	if len(local) == 0 || len(local) > 64 {
		return fmt.Errorf("локальная часть email должна быть от 1 до 64 символов")
	}
	if len(domain) > 255 {
		return fmt.Errorf("доменная часть email должна быть не длиннее 255 символов")
	}
	if !emailLocalRe.MatchString(local) {
		return fmt.Errorf("локальная часть email содержит недопустимые символы")
	}
	if !emailDomainRe.MatchString(domain) {
		return fmt.Errorf("доменная часть email имеет некорректный формат")
	}
	return nil
}

// ValidateUsername проверяет имя пользователя: латиница, цифры и подчёркивание, не с цифры.
func ValidateUsername(username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return fmt.Errorf("имя пользователя обязательно")
	}
	if err := ValidateLength("имя пользователя", username, MinUsernameLength, MaxUsernameLength); err != nil {
		return err
	}
	if !usernameRe.MatchString(username) {
		return fmt.Errorf("имя пользователя может содержать только буквы, цифры и подчеркивание")
	}
	if unicode.IsDigit(rune(username[0])) {
		return fmt.Errorf("имя пользователя не может начинаться с цифры")
	}
	return nil
}

// ValidateSkills проверяет список навыков: без пустых, длинных и повторяющихся.
func ValidateSkills(skills []string) error {
	if len(skills) > MaxSkillsCount {
		return fmt.Errorf("количество навыков не может превышать %d", MaxSkillsCount)
	}

	seen := make(map[string]bool, len(skills))
	for _, skill := range skills {
		skill = strings.TrimSpace(skill)
		if skill == "" {
			return fmt.Errorf("навык не может быть пустым")
		}
		if utf8.RuneCountInString(skill) > MaxSkillLength {
			return fmt.Errorf("навык не может быть длиннее %d символов", MaxSkillLength)
		}

		// Дубликаты без учета регистра
		key := strings.ToLower(skill)
		if seen[key] {
			return fmt.Errorf("навык '%s' указан дважды", skill)
		}
		seen[key] = true
	}
	return nil
}

// ValidateBio проверяет биографию.
func ValidateBio(bio *string) error {
	if bio == nil {
		return nil
	}
	return ValidateLength("биография", strings.TrimSpace(*bio), 0, MaxBioLength)
}
