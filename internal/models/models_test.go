package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuleDomain(t *testing.T) {
	tests := []struct {
		name   string
		rule   Rule
		domain string
	}{
		{name: "canonical", rule: "||ads.example.com^", domain: "ads.example.com"},
		{name: "ipv4", rule: "||203.0.113.7^", domain: "203.0.113.7"},
		{name: "missing suffix", rule: "||ads.example.com", domain: ""},
		{name: "missing prefix", rule: "ads.example.com^", domain: ""},
		{name: "empty domain", rule: "||^", domain: ""},
		{name: "too short", rule: "|^", domain: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.domain, tt.rule.Domain())
		})
	}
}

func TestRuleForms(t *testing.T) {
	r := NewRule("ads.example.com")
	assert.Equal(t, "||ads.example.com^", r.String())
	assert.Equal(t, "@@||ads.example.com^", r.Exception())
}

func TestRuleSet(t *testing.T) {
	s := NewRuleSet("||b.example.com^", "||a.example.com^")

	assert.Equal(t, 2, s.Len())
	assert.False(t, s.Add("||a.example.com^"), "duplicate insert must report false")
	assert.True(t, s.Add("||c.example.com^"))
	assert.True(t, s.Contains("||c.example.com^"))

	assert.True(t, s.Remove("||c.example.com^"))
	assert.False(t, s.Remove("||c.example.com^"))
	assert.False(t, s.Contains("||c.example.com^"))

	assert.Equal(t, []Rule{"||a.example.com^", "||b.example.com^"}, s.Sorted())
	assert.ElementsMatch(t, []Rule{"||a.example.com^", "||b.example.com^"}, s.Rules())
}

func TestEnabledLists(t *testing.T) {
	cfg := Config{
		Lists: []FilterList{
			{Name: "a", URL: "https://example.com/a.txt", Enabled: true},
			{Name: "b", URL: "https://example.com/b.txt", Kind: KindBlocklist, Enabled: false},
			{Name: "c", URL: "https://example.com/c.txt", Kind: KindWhitelist, Enabled: true},
			{Name: "d", Path: "lists/d.txt", Kind: KindBlocklist, Enabled: true},
		},
	}

	var block []string
	for _, l := range cfg.EnabledLists(KindBlocklist) {
		block = append(block, l.Name)
	}
	assert.Equal(t, []string{"a", "d"}, block)

	white := cfg.EnabledLists(KindWhitelist)
	require.Len(t, white, 1)
	assert.Equal(t, "c", white[0].Name)
	assert.Equal(t, "lists/d.txt", cfg.Lists[3].Location())
	assert.Equal(t, KindBlocklist, cfg.Lists[0].ListKind())
}

func TestConfigValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			HTTP:   HTTPConfig{Timeout: 30 * time.Second, Retries: 3},
			Output: OutputConfig{Blocklist: "out/blocklist.txt", LineEnding: "lf"},
			Lists: []FilterList{
				{Name: "remote", URL: "https://example.com/list.txt", Enabled: true},
				{Name: "local", Path: "lists/local.txt", Enabled: true},
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing blocklist output", mutate: func(c *Config) { c.Output.Blocklist = "" }, wantErr: true},
		{name: "bad line ending", mutate: func(c *Config) { c.Output.LineEnding = "cr" }, wantErr: true},
		{name: "list without name", mutate: func(c *Config) { c.Lists[0].Name = "" }, wantErr: true},
		{name: "list without location", mutate: func(c *Config) { c.Lists[1].Path = "" }, wantErr: true},
		{name: "list with bad url", mutate: func(c *Config) { c.Lists[0].URL = "not a url" }, wantErr: true},
		{name: "unknown kind", mutate: func(c *Config) { c.Lists[0].Kind = "greylist" }, wantErr: true},
		{name: "negative retries", mutate: func(c *Config) { c.HTTP.Retries = -1 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLineTerminator(t *testing.T) {
	assert.Equal(t, "\n", OutputConfig{}.LineTerminator())
	assert.Equal(t, "\n", OutputConfig{LineEnding: "lf"}.LineTerminator())
	assert.Equal(t, "\r\n", OutputConfig{LineEnding: "crlf"}.LineTerminator())
}
