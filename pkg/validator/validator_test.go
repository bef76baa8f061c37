package validator

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
)

type testPayload struct {
	FullName string `json:"fullName" validate:"required,notblank"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"min=8"`
}

func TestValidateStructSuccess(t *testing.T) {
	payload := testPayload{
		FullName: "Alice Doe",
		Email:    "alice@example.com",
		Password: "correct-horse",
	}
	require.NoError(t, ValidateStruct(payload))
}

func TestValidateStructFailures(t *testing.T) {
	payload := testPayload{
		FullName: "   ",
		Email:    "invalid",
		Password: "short",
	}

	err := ValidateStruct(payload)
	require.Error(t, err)

	vErrs, ok := err.(ValidationErrors)
	require.True(t, ok, "expected ValidationErrors, got %T", err)
	require.Len(t, vErrs, 3)

	fields := map[string]string{}
	for _, v := range vErrs {
		fields[v.Field] = v.Tag
	}
	require.Equal(t, "notblank", fields["fullName"])
	require.Equal(t, "email", fields["email"])
	require.Equal(t, "min", fields["password"])
	require.Contains(t, err.Error(), "password failed on min=8")
}

func TestLongLatRule(t *testing.T) {
	type location struct {
		LongLat []float64 `json:"longLat" validate:"longlat"`
	}

	require.NoError(t, ValidateStruct(location{}))
	require.NoError(t, ValidateStruct(location{LongLat: []float64{106.8, -6.2}}))
	require.Error(t, ValidateStruct(location{LongLat: []float64{106.8}}))
	require.Error(t, ValidateStruct(location{LongLat: []float64{200, 0}}))
}

func TestRegisterValidation(t *testing.T) {
	require.NoError(t, RegisterValidation("is_goout", func(fl validator.FieldLevel) bool {
		return fl.Field().String() == "goout"
	}))

	type payload struct {
		Name string `json:"name" validate:"is_goout"`
	}
	require.NoError(t, ValidateStruct(payload{Name: "goout"}))
	require.Error(t, ValidateStruct(payload{Name: "other"}))
}
