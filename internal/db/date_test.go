package db

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDate_UsesLocalCalendarDay(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	// 2024-06-01 23:30 UTC is already June 2nd in Tokyo.
	instant := time.Date(2024, 6, 1, 23, 30, 0, 0, time.UTC)

	assert.Equal(t, "2024-06-01", NewDate(instant).String())
	assert.Equal(t, "2024-06-02", NewDate(instant.In(tokyo)).String())
	assert.Equal(t, time.UTC, NewDate(instant.In(tokyo)).Location())
}

func TestDate_JSON(t *testing.T) {
	d, err := ParseDate("2024-06-01")
	require.NoError(t, err)

	b, err := json.Marshal(struct {
		D Date `json:"d"`
	}{d})
	require.NoError(t, err)
	assert.JSONEq(t, `{"d":"2024-06-01"}`, string(b))

	var back Date
	require.NoError(t, json.Unmarshal([]byte(`"2024-06-01"`), &back))
	assert.True(t, back.Equal(d.Time))

	assert.Error(t, json.Unmarshal([]byte(`"06/01/2024"`), &back))
}

func TestDate_Postgres(t *testing.T) {
	var d Date
	require.NoError(t, d.ScanDate(pgtype.Date{Time: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), Valid: true}))
	assert.Equal(t, "2024-06-01", d.String())

	v, err := d.DateValue()
	require.NoError(t, err)
	assert.True(t, v.Valid)

	require.NoError(t, d.ScanDate(pgtype.Date{}))
	assert.True(t, d.IsZero())

	v, err = d.DateValue()
	require.NoError(t, err)
	assert.False(t, v.Valid, "zero date encodes as NULL")
}
