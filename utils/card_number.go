package utils

import (
	"regexp"
	"strings"
)

// maskedPrefix заменяет первые двенадцать цифр номера
const maskedPrefix = "**** **** **** "

var cardNumberRegex = regexp.MustCompile(`^\d{4}\s?\d{4}\s?\d{4}\s?\d{4}$`)

// IsValidCardNumber проверяет формат номера: 16 цифр, группы по четыре
// могут разделяться одиночными пробелами
func IsValidCardNumber(number string) bool {
	return cardNumberRegex.MatchString(number)
}

// NormalizeCardNumber убирает пробельные символы между группами цифр
func NormalizeCardNumber(number string) string {
	return strings.Join(strings.Fields(number), "")
}

// MaskCardNumber маскирует номер карты, оставляя только последние четыре цифры
func MaskCardNumber(number string) string {
	digits := NormalizeCardNumber(number)
	if len(digits) < 4 {
		return maskedPrefix + digits
	}
	return maskedPrefix + digits[len(digits)-4:]
}
