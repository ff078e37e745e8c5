package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{name: "empty", in: "", want: []string{}},
		{name: "only spaces", in: "   \t ", want: []string{}},
		{name: "quoting", in: `a "b c" 'd e' f`, want: []string{"a", "b c", "d e", "f"}},
		{name: "command", in: `>perms ping allow <@123> true`, want: []string{">perms", "ping", "allow", "<@123>", "true"}},
		{name: "repeated spaces", in: "a   b", want: []string{"a", "b"}},
		{name: "quote inside other quote", in: `"it's here" 'say "hi"'`, want: []string{"it's here", `say "hi"`}},
		{name: "adjacent quote splits word", in: `ab"cd"ef`, want: []string{"ab", "cd", "ef"}},
		{name: "empty quotes", in: `a "" b`, want: []string{"a", "", "b"}},
		{name: "unterminated double", in: `a "b c`, want: []string{"a", "b", "c"}},
		{name: "unterminated single", in: `it's`, want: []string{"it", "s"}},
		{name: "no escapes", in: `"a\"b"`, want: []string{`a\`, "b"}},
		{name: "unicode", in: `héllo "wörld ✅"`, want: []string{"héllo", "wörld ✅"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Tokenize(tt.in))
		})
	}
}

func TestSplit(t *testing.T) {
	name, args, ok := Split(`>alias add "p" ping`, ">")
	assert.True(t, ok)
	assert.Equal(t, "alias", name)
	assert.Equal(t, []string{"add", "p", "ping"}, args)

	name, args, ok = Split(">ping", ">")
	assert.True(t, ok)
	assert.Equal(t, "ping", name)
	assert.Empty(t, args)

	for _, in := range []string{"ping", "", ">", "> ping", "!ping"} {
		_, _, ok := Split(in, ">")
		assert.False(t, ok, in)
	}

	_, _, ok = Split("ping", "")
	assert.False(t, ok)
}
