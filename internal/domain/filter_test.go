package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseFilter_Sentinels(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want FilterKind
	}{
		{"empty means all", nil, FilterAll},
		{"all sentinel", []string{"all"}, FilterAll},
		{"default sentinel", []string{"default"}, FilterDefault},
		{"sentinel wins over ids", []string{"tas", "all"}, FilterAll},
		{"default wins over ids", []string{"ssp126", "default"}, FilterDefault},
		{"explicit ids", []string{"tas", "pr"}, FilterExplicit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseFilter(tt.args).Kind())
		})
	}
}

func TestNewExplicitFilter_DeduplicatesAndSorts(t *testing.T) {
	// duplicate ids on the command line are silently deduplicated
	f := NewExplicitFilter("tas", "pr", "tas", "pr", "hurs")
	assert.Equal(t, FilterExplicit, f.Kind())
	assert.Equal(t, []string{"hurs", "pr", "tas"}, f.IDs())
}

func TestFilter_ZeroValueIsAll(t *testing.T) {
	var f Filter
	assert.Equal(t, FilterAll, f.Kind())
	assert.Empty(t, f.IDs())
}

func TestFilter_String(t *testing.T) {
	assert.Equal(t, "all", NewAllFilter().String())
	assert.Equal(t, "default", NewDefaultFilter().String())
	assert.Equal(t, "pr,tas", NewExplicitFilter("tas", "pr").String())
}
