package core

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testBody struct {
	Name  string   `json:"name" validate:"required,notblank"`
	Tags  []string `json:"tags" validate:"required,min=1,dive,notblank"`
	Note  string   `json:"note" validate:"required_with=Name"`
	Skip  string   `json:"-" validate:"max=1"`
	Inner struct {
		Level int `json:"level" validate:"max=5"`
	} `json:"inner"`
}

func TestTranslateValidationErrors(t *testing.T) {
	translator := NewTranslator()
	validate := validator.New()
	InitValidators(validate, translator)

	tests := []struct {
		name string
		body testBody
		want []string
	}{
		{
			name: "missing",
			want: []string{"name is required", "tags is required"},
		},
		{
			name: "blank",
			body: testBody{Name: "  ", Tags: []string{"go", " "}, Note: "n"},
			want: []string{"name cannot be blank", "tags[1] cannot be blank"},
		},
		{
			name: "required with",
			body: testBody{Name: "Ada", Tags: []string{"go"}},
			want: []string{"note is required"},
		},
		{
			name: "empty list",
			body: testBody{Name: "Ada", Tags: []string{}, Note: "n"},
			want: []string{"tags must contain at least 1 item"},
		},
		{
			name: "nested",
			body: func() testBody {
				b := testBody{Name: "Ada", Tags: []string{"go"}, Note: "n"}
				b.Inner.Level = 6
				return b
			}(),
			want: []string{"level must be 5 or less"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate.Struct(tt.body)
			var verrs validator.ValidationErrors
			require.ErrorAs(t, err, &verrs)
			assert.Equal(t, tt.want, TranslateValidationErrors(verrs, translator))
		})
	}

	assert.NoError(t, validate.Struct(testBody{Name: "Ada", Tags: []string{"go"}, Note: "n"}))
}

func TestCleanStrings(t *testing.T) {
	assert.Nil(t, CleanStrings(nil))
	assert.Equal(t, []string{"a", "b"}, CleanStrings([]string{" A ", "", "  ", "b"}, true))
	assert.Equal(t, []string{"a", "b"}, UniqueStrings([]string{"a", "b", "a"}))
}
