package scanner_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mna/glade/lang/scanner"
	"github.com/mna/glade/lang/token"
)

type scanResult struct {
	tok token.Token
	lit string
}

func scanAll(t *testing.T, src string) []scanResult {
	t.Helper()
	fset := token.NewFileSet()
	s := scanner.New(fset, "test.glade", src)
	var out []scanResult
	for {
		tok, lit, _ := s.Scan()
		out = append(out, scanResult{tok, lit})
		if tok == token.EOF {
			break
		}
	}
	return out
}

func TestScanBasicTokens(t *testing.T) {
	toks := scanAll(t, `let x = 1 + 2.5 * "hi"`)
	require.True(t, len(toks) > 0)
	assert.Equal(t, token.LET, toks[0].tok)
	assert.Equal(t, token.IDENT, toks[1].tok)
	assert.Equal(t, "x", toks[1].lit)
	assert.Equal(t, token.EQ, toks[2].tok)
	assert.Equal(t, token.INT, toks[3].tok)
	assert.Equal(t, "1", toks[3].lit)
	assert.Equal(t, token.PLUS, toks[4].tok)
	assert.Equal(t, token.FLOAT, toks[5].tok)
	assert.Equal(t, token.STAR, toks[6].tok)
	assert.Equal(t, token.STRING, toks[7].tok)
	assert.Equal(t, token.EOF, toks[len(toks)-1].tok)
}

func TestScanKeywordsAndOperators(t *testing.T) {
	toks := scanAll(t, `fun class if else while for in return break continue assert nil true false ... <= >= == != << >>`)
	want := []token.Token{
		token.FUN, token.CLASS, token.IF, token.ELSE, token.WHILE, token.FOR,
		token.IN, token.RETURN, token.BREAK, token.CONTINUE, token.ASSERT,
		token.NIL, token.TRUE, token.FALSE, token.DOTDOTDOT,
		token.LE, token.GE, token.EQEQ, token.NOTEQ, token.LTLT, token.GTGT,
		token.EOF,
	}
	require.Len(t, toks, len(want))
	for i, w := range want {
		assert.Equalf(t, w, toks[i].tok, "token %d", i)
	}
}

func TestParseIntAndFloatLiteral(t *testing.T) {
	n, err := scanner.ParseIntLiteral("42")
	require.NoError(t, err)
	assert.EqualValues(t, 42, n)

	f, err := scanner.ParseFloatLiteral("3.5")
	require.NoError(t, err)
	assert.InDelta(t, 3.5, f, 0.0001)
}
