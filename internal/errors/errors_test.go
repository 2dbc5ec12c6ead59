package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseMissingModules(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []string
		wantHit bool
	}{
		{name: "single module", input: "MISSING_MODULE: jinja2", want: []string{"jinja2"}, wantHit: true},
		{name: "list", input: "MISSING_MODULE: impala, jinja2\n", want: []string{"impala", "jinja2"}, wantHit: true},
		{name: "after traceback noise", input: "Traceback...\n  MISSING_MODULE: impala", want: []string{"impala"}, wantHit: true},
		{name: "not present", input: "SyntaxError: bad", wantHit: false},
		{name: "prefix must start the line", input: "error MISSING_MODULE: x", wantHit: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseMissingModules(tt.input)
			assert.Equal(t, tt.wantHit, ok)
			if tt.wantHit {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestKindOfThroughWrapping(t *testing.T) {
	base := New(ConnectionError, "python not found")
	wrapped := fmt.Errorf("exec: %w", base)

	assert.Equal(t, ConnectionError, KindOf(wrapped))
	assert.True(t, Is(wrapped, ConnectionError))
	assert.False(t, Is(wrapped, ImpalaError))
	assert.Equal(t, Kind(""), KindOf(fmt.Errorf("plain")))
	assert.False(t, Is(nil, ConnectionError))
}

func TestErrorString(t *testing.T) {
	assert.Equal(t, "ImpalaError: query failed", New(ImpalaError, "query failed").Error())
	assert.Equal(t, "ImpalaError: query failed: boom", Wrap(ImpalaError, "query failed", fmt.Errorf("boom")).Error())
}
