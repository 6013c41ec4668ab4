package renderer

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/adblock-filter-compiler/internal/models"
)

var fixedClock = func() time.Time {
	return time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC)
}

func TestRender(t *testing.T) {
	rules := models.NewRuleSet("||zeta.example.com^", "||alpha.example.com^", "||203.0.113.7^")
	stats := models.CompilationStats{
		TotalParsed:         10,
		DuplicatesRemoved:   4,
		DomainsCompressed:   2,
		InvalidLinesSkipped: 1,
		WhitelistRemoved:    1,
	}

	r := New(WithClock(fixedClock))
	got := string(r.Format(r.Render(rules, stats)))

	expected := `# Title: AdBlock Filter Compiler
# Description: AdBlock syntax filter compiled from multiple blocklists, hosts files and domain lists.
# Created: 2024-05-01 08:30:00
# Domain Count: 3
# Total Parsed: 10
# Duplicates Removed: 4
# Domains Compressed: 2
# Invalid Lines Skipped: 1
# Whitelisted Removed: 1
#===============================================================

||203.0.113.7^
||alpha.example.com^
||zeta.example.com^
`
	assert.Equal(t, expected, got)
}

func TestRenderWhitelist(t *testing.T) {
	rules := models.NewRuleSet("||b.example.com^", "||a.example.com^")

	r := New(WithClock(fixedClock))
	doc := r.RenderWhitelist(rules, models.CompilationStats{TotalParsed: 3, DuplicatesRemoved: 1})

	assert.Equal(t, []string{"@@||a.example.com^", "@@||b.example.com^"}, doc.Rules)
	assert.Contains(t, doc.Header, "# Title: AdBlock Filter Compiler Whitelist")
	assert.Contains(t, doc.Header, "# Domain Count: 2")
	assert.Contains(t, doc.Header, "# Duplicates Removed: 1")
}

func TestFormatLayout(t *testing.T) {
	tests := []struct {
		name       string
		terminator string
	}{
		{name: "lf", terminator: "\n"},
		{name: "crlf", terminator: "\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(WithClock(fixedClock), WithLineTerminator(tt.terminator))
			out := string(r.Format(r.Render(models.NewRuleSet("||b.example.com^", "||a.example.com^"), models.CompilationStats{})))

			lines := strings.Split(out, tt.terminator)
			// trailing terminator leaves one empty element at the end
			require.Equal(t, "", lines[len(lines)-1])
			lines = lines[:len(lines)-1]

			blank := 0
			for _, l := range lines {
				if l == "" {
					blank++
				}
			}
			assert.Equal(t, 1, blank, "exactly one blank line between header and rules")
			assert.Equal(t, []string{"||a.example.com^", "||b.example.com^"}, lines[len(lines)-2:])
			assert.True(t, strings.HasSuffix(out, "||b.example.com^"+tt.terminator))
		})
	}
}

func TestRenderUsesCurrentTime(t *testing.T) {
	doc := New().Render(models.NewRuleSet("||a.example.com^"), models.CompilationStats{})
	assert.True(t, strings.HasPrefix(doc.Header[2], "# Created: "))
	assert.NotEqual(t, "# Created: ", doc.Header[2])
}

func TestWriter(t *testing.T) {
	fs := afero.NewMemMapFs()
	r := New(WithClock(fixedClock))
	w := NewWriter(fs, r)

	doc := r.Render(models.NewRuleSet("||a.example.com^"), models.CompilationStats{TotalParsed: 1})
	require.NoError(t, w.Write("out/lists/blocklist.txt", doc))

	data, err := afero.ReadFile(fs, "out/lists/blocklist.txt")
	require.NoError(t, err)
	assert.Equal(t, r.Format(doc), data)

	exists, err := afero.Exists(fs, "out/lists/blocklist.txt.tmp")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestWriterReadOnlyFs(t *testing.T) {
	w := NewWriter(afero.NewReadOnlyFs(afero.NewMemMapFs()), New())
	err := w.Write("out/blocklist.txt", Document{})
	assert.Error(t, err)
}
