package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type sample struct {
	Email    string   `json:"email" validate:"required,email"`
	Phone    string   `json:"phone_number" validate:"required,et_phone"`
	Photo    string   `json:"photo" validate:"required,url"`
	Courts   []string `json:"courts" validate:"min=1"`
	Nickname string   `json:"nickname" validate:"min=3"`
}

func TestStruct(t *testing.T) {
	valid := sample{
		Email:    "abebe@example.com",
		Phone:    "+251911223344",
		Photo:    "https://files.example.com/me.png",
		Courts:   []string{"administrative_court"},
		Nickname: "abe",
	}
	assert.Nil(t, Struct(valid))

	errs := Struct(sample{Email: "not-an-email", Phone: "12345", Photo: "nope", Nickname: "ab"})
	assert.Equal(t, "Invalid email address", errs["email"])
	assert.Equal(t, "Invalid phone number format", errs["phone_number"])
	assert.Equal(t, "Photo must be a valid URL", errs["photo"])
	assert.Equal(t, "You have to select at least one court.", errs["courts"])
	assert.Equal(t, "nickname must be at least 3 characters", errs["nickname"])
}

func TestPhonePattern(t *testing.T) {
	for phone, ok := range map[string]bool{
		"0911223344":    true,
		"+251911223344": true,
		"0811223344":    false,
		"091122334":     false,
		"+25191122334":  false,
		"251911223344":  false,
	} {
		assert.Equal(t, ok, PhonePattern.MatchString(phone), phone)
	}
}

func TestFormatValidationError(t *testing.T) {
	err := Instance().Struct(sample{Email: "abebe@example.com", Phone: "0911223344", Photo: "https://x.example.com/a.png", Courts: []string{"c"}, Nickname: "ab"})
	assert.Equal(t, "nickname must be at least 3 characters", FormatValidationError(err))
}
