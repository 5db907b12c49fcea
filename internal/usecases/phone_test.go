package usecases

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cobrazap/internal/entities"
)

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"bare 11 digits", "11999998888", "5511999998888"},
		{"already prefixed", "5511999998888", "5511999998888"},
		{"formatted", "(11) 99999-8888", "5511999998888"},
		{"international format", "+55 11 99999-8888", "5511999998888"},
		{"landline 10 digits", "1133334444", "551133334444"},
		{"dots and spaces", "11 9.9999.8888", "5511999998888"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NormalizePhone(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNormalizePhoneIdempotent(t *testing.T) {
	once, err := NormalizePhone("(11) 99999-8888")
	require.NoError(t, err)

	twice, err := NormalizePhone(once)
	require.NoError(t, err)
	assert.Equal(t, once, twice)
}

func TestNormalizePhoneRejectsEmpty(t *testing.T) {
	for _, in := range []string{"", "   ", "()- ", "abc"} {
		_, err := NormalizePhone(in)
		assert.True(t, errors.Is(err, entities.ErrInvalidPhone), "input %q", in)
	}
}
