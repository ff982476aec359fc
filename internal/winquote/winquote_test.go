package winquote

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoin(t *testing.T) {
	cases := []struct {
		name string
		args []string
		want string
	}{
		{"plain", []string{"foo", "bar"}, `foo bar`},
		{"empty argument stays visible", []string{"a", "", "b"}, `a "" b`},
		{"embedded space", []string{"hello world"}, `"hello world"`},
		{"embedded tab", []string{"a\tb"}, "\"a\tb\""},
		{"embedded quote", []string{`say "hi"`}, `"say \"hi\""`},
		{"quote without space", []string{`a"b`}, `"a\"b"`},
		{"backslashes not before quote are literal", []string{`C:\Program Files\x`}, `"C:\Program Files\x"`},
		{"backslash before quote doubles", []string{`a\"b c`}, `"a\\\"b c"`},
		{"backslash before space is literal", []string{`end\ `}, `"end\ "`},
		{"trailing backslash doubles", []string{`a b\`}, `"a b\\"`},
		{"only trailing backslashes", []string{`a b\\`}, `"a b\\\\"`},
		{"bare path untouched", []string{`C:\tools\app.exe`}, `C:\tools\app.exe`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Join(tc.args))
		})
	}
}

func TestJoinSplitRoundTrip(t *testing.T) {
	corpus := [][]string{
		{"simple"},
		{"two", "args"},
		{""},
		{"", "", ""},
		{"with space", "and\ttab"},
		{`"quoted"`},
		{`mix "of \ every\thing\`},
		{`trailing\`},
		{`trailing\\`},
		{`\\leading`},
		{`\"`, `\\"`, `\\\"`},
		{`a b`, ``, `c"d`, `e\`},
		{"unicode \u00e9\u00e8", "\u4e16 \u754c"},
	}
	for _, args := range corpus {
		got := Split(Join(args))
		require.Equal(t, args, got, "round-trip of %q via %q", args, Join(args))
	}
}

func TestSplitMatchesNativeConvention(t *testing.T) {
	// Hand-checked against CommandLineToArgvW behaviour.
	cases := []struct {
		cmdline string
		want    []string
	}{
		{`a b c`, []string{"a", "b", "c"}},
		{`"a b" c`, []string{"a b", "c"}},
		{`a\\b`, []string{`a\\b`}},
		{`a\\\"b`, []string{`a\"b`}},
		{`"a\\"`, []string{`a\`}},
		{`""`, []string{""}},
		{`a  b`, []string{"a", "b"}},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Split(tc.cmdline), "split %q", tc.cmdline)
	}
}
