package compiler

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/adblock-filter-compiler/internal/models"
	"github.com/bnema/adblock-filter-compiler/internal/parser"
)

func doc(source string, lines ...string) models.SourceDocument {
	return models.SourceDocument{Source: source, Text: strings.Join(lines, "\n")}
}

func TestBuildMixedFormats(t *testing.T) {
	docs := []models.SourceDocument{
		doc("hosts", "0.0.0.0 ads.example.com", "# comment"),
		doc("adblock", "||ads.example.com^", "tracker.example.com"),
	}

	res := NewBuilder().Build(docs)

	assert.Equal(t, []models.Rule{"||ads.example.com^", "||tracker.example.com^"}, res.Rules.Sorted())
	assert.Equal(t, 3, res.Stats.TotalParsed)
	assert.Equal(t, 1, res.Stats.DuplicatesRemoved)
	assert.Equal(t, 0, res.Stats.InvalidLinesSkipped)
	require.Len(t, res.Sources, 2)
	assert.Equal(t, "hosts", res.Sources[0].Source)
	assert.Equal(t, 1, res.Sources[0].Rules)
	assert.Equal(t, "adblock", res.Sources[1].Source)
	assert.Equal(t, 2, res.Sources[1].Rules)
}

func TestBuildDuplicateCount(t *testing.T) {
	for _, n := range []int{1, 2, 5, 17} {
		t.Run(fmt.Sprintf("%d sources", n), func(t *testing.T) {
			docs := make([]models.SourceDocument, n)
			for i := range docs {
				docs[i] = doc(fmt.Sprintf("src-%d", i), "||shared.example.com^", fmt.Sprintf("unique-%d.example.org", i))
			}

			res := NewBuilder(WithWorkers(3)).Build(docs)

			assert.Equal(t, n+1, res.Rules.Len())
			assert.True(t, res.Rules.Contains("||shared.example.com^"))
			assert.Equal(t, n-1, res.Stats.DuplicatesRemoved)
			assert.Equal(t, 2*n, res.Stats.TotalParsed)
		})
	}
}

func TestBuildOrderIndependent(t *testing.T) {
	a := doc("a", "example.com", "0.0.0.0 ads.example.net", "bad..name")
	b := doc("b", "||example.com^", "other.org")
	c := doc("c", "127.0.0.1 tracker.example.io")

	first := NewBuilder().Build([]models.SourceDocument{a, b, c})
	second := NewBuilder(WithWorkers(1)).Build([]models.SourceDocument{c, b, a})

	assert.Equal(t, first.Rules.Sorted(), second.Rules.Sorted())
	assert.Equal(t, first.Stats, second.Stats)
}

func TestBuildInvalidLines(t *testing.T) {
	docs := []models.SourceDocument{
		doc("first", "good.example.com", "bad..example.com"),
		doc("second", "", "-bad.example.com", "127.0.0.1 localhost"),
	}

	res := NewBuilder().Build(docs)

	assert.Equal(t, 1, res.Rules.Len())
	assert.Equal(t, 3, res.Stats.InvalidLinesSkipped)
	require.Len(t, res.Invalid, 3)
	assert.Equal(t, "first", res.Invalid[0].Source)
	assert.Equal(t, 2, res.Invalid[0].Line)
	assert.Equal(t, "second", res.Invalid[1].Source)
	assert.Equal(t, 2, res.Invalid[1].Line)
	assert.Equal(t, 3, res.Invalid[2].Line)
}

func TestBuildNoDocuments(t *testing.T) {
	res := NewBuilder().Build(nil)
	assert.Equal(t, 0, res.Rules.Len())
	assert.Equal(t, models.CompilationStats{}, res.Stats)
}

func TestBuildWhitelistSyntax(t *testing.T) {
	docs := []models.SourceDocument{doc("wl", "@@||allowed.example.com^", "also.example.com")}

	res := NewBuilder(WithWhitelistSyntax()).Build(docs)
	assert.Equal(t, []models.Rule{"||allowed.example.com^", "||also.example.com^"}, res.Rules.Sorted())
}

func TestBuildSkipReasons(t *testing.T) {
	docs := []models.SourceDocument{
		doc("mixed", "# header", "", "good.example.com", "bad..example.com", "nodot", "also..bad.org"),
	}

	res := NewBuilder().Build(docs)
	require.Len(t, res.Sources, 1)

	src := res.Sources[0]
	assert.Equal(t, 6, src.Lines)
	assert.Equal(t, 2, src.Blank)
	assert.Equal(t, 1, src.Rules)
	assert.Equal(t, 3, src.Invalid)
	assert.Equal(t, map[string]int{
		parser.ReasonEmptyLabel: 2,
		parser.ReasonNoDot:      1,
	}, src.SkipReasons)
	assert.NoError(t, src.Err)
}

func TestBuildOversizedLine(t *testing.T) {
	huge := strings.Repeat("a", 2<<20) + ".com"
	docs := []models.SourceDocument{
		doc("broken-mirror", "first.example.com", huge, "last.example.com"),
		doc("valid", "0.0.0.0 ads.example.org"),
	}

	res := NewBuilder().Build(docs)

	assert.Equal(t, []models.Rule{
		"||ads.example.org^",
		"||first.example.com^",
		"||last.example.com^",
	}, res.Rules.Sorted())
	assert.Equal(t, 1, res.Stats.InvalidLinesSkipped)
	require.Len(t, res.Invalid, 1)
	assert.Equal(t, "broken-mirror", res.Invalid[0].Source)
	assert.Equal(t, 2, res.Invalid[0].Line)
	assert.Equal(t, parser.ReasonLineTooLong, res.Invalid[0].Reason)
	assert.Equal(t, 1, res.Sources[0].SkipReasons[parser.ReasonLineTooLong])
}

func TestBuildUnreadableSource(t *testing.T) {
	readErr := errors.New("connection reset")
	b := NewBuilder()
	b.reader = func(d models.SourceDocument) io.Reader {
		if d.Source == "flaky" {
			return iotest.ErrReader(readErr)
		}
		return strings.NewReader(d.Text)
	}

	res := b.Build([]models.SourceDocument{
		doc("flaky", "dropped.example.com"),
		doc("valid", "kept.example.com"),
	})

	assert.Equal(t, []models.Rule{"||kept.example.com^"}, res.Rules.Sorted())
	assert.Equal(t, 1, res.Stats.TotalParsed)
	require.Len(t, res.Sources, 2)
	assert.ErrorIs(t, res.Sources[0].Err, readErr)
	assert.NoError(t, res.Sources[1].Err)
}
