package search

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompilePatterns(t *testing.T) {
	t.Run("glob name pattern", func(t *testing.T) {
		cp, err := compilePatterns(Request{NamePattern: "*.txt"})
		require.NoError(t, err)
		assert.True(t, cp.matchName("notes.txt", "txt"))
		assert.True(t, cp.matchName("NOTES.TXT", "txt"))
		assert.False(t, cp.matchName("notes.log", "log"))
		assert.False(t, cp.matchName("txt", "")) // glob is anchored
	})

	t.Run("literal pattern matches as substring", func(t *testing.T) {
		cp, err := compilePatterns(Request{NamePattern: "report"})
		require.NoError(t, err)
		assert.True(t, cp.matchName("monthly_report_v2.xlsx", "xlsx"))
		assert.False(t, cp.matchName("summary.xlsx", "xlsx"))
	})

	t.Run("case-sensitive literal skips the regexp", func(t *testing.T) {
		cp, err := compilePatterns(Request{NamePattern: "report", CaseSensitive: true})
		require.NoError(t, err)
		assert.Equal(t, "report", cp.litName)
		assert.Nil(t, cp.name)
		assert.True(t, cp.matchName("monthly_report_v2.xlsx", "xlsx"))
		assert.False(t, cp.matchName("monthly_Report_v2.xlsx", "xlsx"))
	})

	t.Run("case-insensitive literal stays on the regexp", func(t *testing.T) {
		cp, err := compilePatterns(Request{NamePattern: "report"})
		require.NoError(t, err)
		assert.Empty(t, cp.litName)
		require.NotNil(t, cp.name)
		assert.True(t, cp.matchName("monthly_Report_v2.xlsx", "xlsx"))
	})

	t.Run("case sensitivity applied at compile time", func(t *testing.T) {
		cp, err := compilePatterns(Request{NamePattern: "*.TXT", CaseSensitive: true})
		require.NoError(t, err)
		assert.False(t, cp.matchName("notes.txt", "txt"))
		assert.True(t, cp.matchName("notes.TXT", "txt"))
	})

	t.Run("question mark and class", func(t *testing.T) {
		cp, err := compilePatterns(Request{NamePattern: "file?.[ch]", CaseSensitive: true})
		require.NoError(t, err)
		assert.True(t, cp.matchName("file1.c", "c"))
		assert.True(t, cp.matchName("file2.h", "h"))
		assert.False(t, cp.matchName("file10.c", "c"))
		assert.False(t, cp.matchName("file1.go", "go"))
	})

	t.Run("extension set normalized", func(t *testing.T) {
		cp, err := compilePatterns(Request{Extensions: []string{".TXT", " log "}})
		require.NoError(t, err)
		assert.True(t, cp.matchName("a.txt", "txt"))
		assert.True(t, cp.matchName("a.log", "log"))
		assert.False(t, cp.matchName("a.go", "go"))
	})

	t.Run("invalid content regex fails before any IO", func(t *testing.T) {
		_, err := compilePatterns(Request{ContentPattern: "(["})
		require.Error(t, err)
		var perr *PatternError
		require.True(t, errors.As(err, &perr))
		assert.Equal(t, "([", perr.Pattern)
	})

	t.Run("empty content pattern compiles to nil", func(t *testing.T) {
		cp, err := compilePatterns(Request{})
		require.NoError(t, err)
		assert.Nil(t, cp.content)
		assert.Nil(t, cp.needle)
	})
}

func TestDeviceNeedle(t *testing.T) {
	needleFor := func(t *testing.T, req Request) []byte {
		t.Helper()
		cp, err := compilePatterns(req)
		require.NoError(t, err)
		return cp.needle
	}

	t.Run("case-sensitive literal is eligible", func(t *testing.T) {
		assert.Equal(t, []byte("foo bar"),
			needleFor(t, Request{ContentPattern: "foo bar", CaseSensitive: true}))
	})

	t.Run("case-insensitive stays on cpu", func(t *testing.T) {
		assert.Nil(t, needleFor(t, Request{ContentPattern: "foo"}))
	})

	t.Run("non-literal regex stays on cpu", func(t *testing.T) {
		assert.Nil(t, needleFor(t, Request{ContentPattern: `foo\d+`, CaseSensitive: true}))
		assert.Nil(t, needleFor(t, Request{ContentPattern: "foo|bar", CaseSensitive: true}))
	})
}

func TestPatternComplexity(t *testing.T) {
	assert.Equal(t, 0, patternComplexity("plain text"))
	assert.Equal(t, 2, patternComplexity(`(ab)[cd]`))
	assert.Equal(t, 1, patternComplexity(`\d\w`))
	assert.Greater(t, patternComplexity(`((((((((((((a))))))))))))`), maxGPUPatternComplexity)
}
