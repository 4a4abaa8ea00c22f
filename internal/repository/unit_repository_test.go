package repository

import (
	"testing"

	"estate_crm/internal/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUnitRow(t *testing.T) {
	cols := map[string]int{"area": 0, "unit_type": 1, "title": 2, "price": 3, "bedrooms": 4, "status": 5}
	areas := map[string]int{"new cairo": 1, "1": 1}
	types := map[string]int{"villa": 2, "2": 2}

	tests := []struct {
		name    string
		row     []string
		want    *entities.Unit
		wantErr string
	}{
		{
			name: "names resolved case-insensitively",
			row:  []string{"New Cairo", "Villa", "Villa 12", "4500000", "4", "reserved"},
			want: &entities.Unit{AreaID: 1, UnitTypeID: 2, Title: "Villa 12", Price: 4500000, Bedrooms: 4, Status: entities.UnitReserved},
		},
		{
			name: "ids accepted and status defaults to available",
			row:  []string{"1", "2", "Villa 13", "", "", ""},
			want: &entities.Unit{AreaID: 1, UnitTypeID: 2, Title: "Villa 13", Status: entities.UnitAvailable},
		},
		{name: "unknown area", row: []string{"Zamalek", "Villa", "x", "1", "1", ""}, wantErr: "unknown area"},
		{name: "empty title", row: []string{"1", "2", " ", "1", "1", ""}, wantErr: "title is empty"},
		{name: "bad price", row: []string{"1", "2", "x", "cheap", "1", ""}, wantErr: "bad price"},
		{name: "negative bedrooms", row: []string{"1", "2", "x", "1", "-2", ""}, wantErr: "bad bedrooms"},
		{name: "bad status", row: []string{"1", "2", "x", "1", "1", "rented"}, wantErr: "bad status"},
		{name: "short row", row: []string{"1", "2"}, wantErr: "title is empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseUnitRow(tt.row, cols, areas, types)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPageBounds(t *testing.T) {
	l, o := pageBounds(0, -5)
	assert.Equal(t, 50, l)
	assert.Equal(t, 0, o)

	l, o = pageBounds(500, 10)
	assert.Equal(t, 50, l)
	assert.Equal(t, 10, o)

	l, _ = pageBounds(20, 0)
	assert.Equal(t, 20, l)
}

func TestWordPattern(t *testing.T) {
	assert.Equal(t,
		`'(^|\W)' || regexp_replace(lower(name), '([!$()*+.:<=>?[\\\]^{|}-])', '\\\1', 'g') || '(\W|$)'`,
		wordPattern("name", ""))
	assert.Contains(t, wordPattern("name", "(e?s)?"), `|| '(e?s)?(\W|$)'`)
}
