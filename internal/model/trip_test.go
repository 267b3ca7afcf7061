package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBusLayout(t *testing.T) {
	assert.Equal(t, Layout2Plus1, ParseBusLayout("2+1"))
	assert.Equal(t, Layout3Plus2, ParseBusLayout("3+2"))
	assert.Equal(t, Layout2Plus2, ParseBusLayout(""))
	assert.Equal(t, Layout2Plus2, ParseBusLayout("4+4"))
}

func TestLayoutGrids(t *testing.T) {
	assert.Equal(t, LayoutGrid{Rows: 12, Columns: 3, AisleAfter: 2}, Layout2Plus1.Grid())
	assert.Equal(t, LayoutGrid{Rows: 11, Columns: 4, AisleAfter: 2}, Layout2Plus2.Grid())
	assert.Equal(t, LayoutGrid{Rows: 9, Columns: 5, AisleAfter: 3}, Layout3Plus2.Grid())
}

func TestDepartureIn(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Istanbul")
	require.NoError(t, err)

	tr := Trip{DepartDate: "2026-09-10", DepartTime: "12:00"}
	got, err := tr.DepartureIn(loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 9, 10, 12, 0, 0, 0, loc), got)

	tr.DepartTime = "25:99"
	_, err = tr.DepartureIn(loc)
	assert.Error(t, err)
}

func TestParseRole(t *testing.T) {
	for _, valid := range []string{"ADMIN", "FIRM_ADMIN", "CUSTOMER"} {
		r, ok := ParseRole(valid)
		assert.True(t, ok)
		assert.Equal(t, Role(valid), r)
	}
	_, ok := ParseRole("customer")
	assert.False(t, ok)
}
