package cli

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vogtb/go-spreadsheet/packages/position"
	"github.com/vogtb/go-spreadsheet/packages/spreadsheet"
)

func TestParseScript(t *testing.T) {
	script := strings.Join([]string{
		"# totals",
		"set A1 5",
		"",
		"  set B1 =A1 * 2",
		"set C1 hello world",
		"set D1",
		"set E1 ",
		"clear A1\r",
	}, "\n")

	stmts, err := parseScript(strings.NewReader(script))
	require.NoError(t, err)
	require.Len(t, stmts, 6)

	assert.Equal(t, statement{line: 2, verb: verbSet, pos: position.MustParse("A1"), text: "5"}, stmts[0])
	assert.Equal(t, "=A1 * 2", stmts[1].text)
	assert.Equal(t, 4, stmts[1].line)
	assert.Equal(t, "hello world", stmts[2].text)
	assert.Equal(t, "", stmts[3].text)
	assert.Equal(t, "", stmts[4].text)
	assert.Equal(t, statement{line: 8, verb: verbClear, pos: position.MustParse("A1")}, stmts[5])
}

func TestParseScriptErrors(t *testing.T) {
	tests := []struct {
		name    string
		script  string
		wantErr string
	}{
		{"unknown verb", "put A1 5", `line 1: unknown statement "put"`},
		{"bad position", "# x\nset 1A 5", "line 2"},
		{"position off grid", "clear ZZZZ1", "line 1"},
		{"missing position", "clear", "line 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseScript(strings.NewReader(tt.script))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestApplyScript(t *testing.T) {
	stmts, err := parseScript(strings.NewReader("set A1 =B1\nset B1 =A1\nset B1 4\n"))
	require.NoError(t, err)

	t.Run("StopsAtFirstRejection", func(t *testing.T) {
		s := spreadsheet.New()
		_, err := applyScript(context.Background(), s, stmts, false)
		require.ErrorIs(t, err, spreadsheet.ErrCircularDependency)
		assert.Contains(t, err.Error(), "line 2")

		text, _ := s.GetText(position.MustParse("B1"))
		assert.Equal(t, "", text)
	})

	t.Run("KeepGoing", func(t *testing.T) {
		s := spreadsheet.New()
		rejected, err := applyScript(context.Background(), s, stmts, true)
		require.NoError(t, err)
		assert.Equal(t, 1, rejected)

		v, _ := s.GetValue(position.MustParse("A1"))
		assert.Equal(t, spreadsheet.NumberValue(4), v)
	})
}
