package validation

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name     string   `json:"name" validate:"required,max=10"`
	Color    string   `json:"color" validate:"habitcolor"`
	Start    string   `json:"start" validate:"hhmm"`
	Timezone string   `json:"timezone" validate:"timezone"`
	Date     string   `json:"date" validate:"omitempty,isodate"`
	Times    []string `json:"times" validate:"dive,hhmm"`
}

func valid() sample {
	return sample{
		Name:     "Read",
		Color:    "#6366F1",
		Start:    "07:30",
		Timezone: "Europe/Berlin",
		Date:     "2024-06-01",
		Times:    []string{"08:00", "21:45"},
	}
}

func TestStruct_Valid(t *testing.T) {
	v := New()
	require.NoError(t, v.Struct(valid()))
}

func TestStruct_FieldErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*sample)
		field  string
	}{
		{"missing name", func(s *sample) { s.Name = "" }, "name"},
		{"name too long", func(s *sample) { s.Name = "abcdefghijk" }, "name"},
		{"short color", func(s *sample) { s.Color = "#fff" }, "color"},
		{"color without hash", func(s *sample) { s.Color = "6366f1" }, "color"},
		{"bad time", func(s *sample) { s.Start = "24:00" }, "start"},
		{"unknown timezone", func(s *sample) { s.Timezone = "Mars/Olympus" }, "timezone"},
		{"empty timezone", func(s *sample) { s.Timezone = "" }, "timezone"},
		{"bad date", func(s *sample) { s.Date = "06/01/2024" }, "date"},
		{"bad reminder", func(s *sample) { s.Times = []string{"8am"} }, "times[0]"},
	}

	v := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid()
			tt.mutate(&s)

			err := v.Struct(s)
			require.Error(t, err)

			var verr *Error
			require.True(t, errors.As(err, &verr), "expected *Error, got %T", err)
			assert.Contains(t, verr.Fields, tt.field)
			assert.ErrorAs(t, fmt.Errorf("wrapped: %w", err), new(*Error))
		})
	}
}

func TestError_MessageIsStable(t *testing.T) {
	err := &Error{Fields: map[string]string{"b": "is required", "a": "is invalid"}}
	assert.Equal(t, "invalid input: a is invalid; b is required", err.Error())
}

func TestFieldError(t *testing.T) {
	err := FieldError("notes", "must be at most 500 characters")
	assert.Equal(t, map[string]string{"notes": "must be at most 500 characters"}, err.Fields)
	assert.Equal(t, "invalid input: notes must be at most 500 characters", err.Error())
}
