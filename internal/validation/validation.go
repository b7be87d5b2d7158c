// Package validation содержит локальную проверку пользовательского ввода.
// Проверка выполняется до любого сетевого вызова; ошибки привязаны к
// конкретным полям формы.
package validation

import (
	"regexp"
	"sort"
	"strings"

	"github.com/jemi-market/storefront-core/internal/model"
)

var (
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneRe = regexp.MustCompile(`^(\+234|0)[789][01]\d{8}$`)
)

// Fields содержит ошибки валидации по именам полей.
type Fields map[string]string

// Error возвращает все сообщения одной строкой в стабильном порядке полей.
func (f Fields) Error() string {
	if len(f) == 0 {
		return "validation failed"
	}

	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+f[k])
	}
	return strings.Join(parts, "; ")
}

// IsValidEmail проверяет формат адреса электронной почты.
func IsValidEmail(email string) bool {
	return emailRe.MatchString(email)
}

// IsValidPhone проверяет формат нигерийского номера телефона.
func IsValidPhone(phone string) bool {
	return phoneRe.MatchString(phone)
}

// IsValidPassword проверяет минимальную стойкость пароля: не короче
// шести символов, содержит строчную и заглавную буквы и цифру.
func IsValidPassword(password string) bool {
	if len(password) < 6 {
		return false
	}

	var lower, upper, digit bool
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		}
	}
	return lower && upper && digit
}

// ValidateRegistration проверяет данные регистрации покупателя.
// Возвращает nil, если все поля корректны.
func ValidateRegistration(reg model.Registration) Fields {
	errs := Fields{}

	name := strings.TrimSpace(reg.Name)
	switch {
	case name == "":
		errs["name"] = "Name is required"
	case len([]rune(name)) < 2:
		errs["name"] = "Name must be at least 2 characters"
	}

	switch {
	case reg.Email == "":
		errs["email"] = "Email is required"
	case !IsValidEmail(reg.Email):
		errs["email"] = "Please enter a valid email address"
	}

	switch {
	case reg.Phone == "":
		errs["phone"] = "Phone number is required"
	case !IsValidPhone(reg.Phone):
		errs["phone"] = "Please enter a valid Nigerian phone number"
	}

	switch {
	case reg.Password == "":
		errs["password"] = "Password is required"
	case len(reg.Password) < 6:
		errs["password"] = "Password must be at least 6 characters"
	case !IsValidPassword(reg.Password):
		errs["password"] = "Password must contain at least one uppercase letter, one lowercase letter, and one number"
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// ValidateShipping проверяет данные доставки перед переходом к оплате.
// Возвращает nil, если все поля корректны.
func ValidateShipping(info model.ShippingInfo) Fields {
	errs := Fields{}

	name := strings.TrimSpace(info.FullName)
	switch {
	case name == "":
		errs["full_name"] = "Full name is required"
	case len([]rune(name)) < 2:
		errs["full_name"] = "Name must be at least 2 characters"
	}

	switch {
	case info.Email == "":
		errs["email"] = "Email is required"
	case !IsValidEmail(info.Email):
		errs["email"] = "Please enter a valid email address"
	}

	switch {
	case info.Phone == "":
		errs["phone"] = "Phone number is required"
	case !IsValidPhone(info.Phone):
		errs["phone"] = "Please enter a valid Nigerian phone number"
	}

	address := strings.TrimSpace(info.Address)
	switch {
	case address == "":
		errs["address"] = "Address is required"
	case len([]rune(address)) < 10:
		errs["address"] = "Please enter a complete address"
	}

	if strings.TrimSpace(info.City) == "" {
		errs["city"] = "City is required"
	}
	if strings.TrimSpace(info.State) == "" {
		errs["state"] = "State is required"
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}
