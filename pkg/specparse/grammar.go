package specparse

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// The register-spec token is flat enough that one word class plus the five
// punctuation marks covers it. Whether a word is a register name, a hex
// address, a width letter or a value is decided by position and resolved
// after the structural parse.
var specLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Word", Pattern: `[0-9A-Za-z_]+`},
	{Name: "Plus", Pattern: `\+`},
	{Name: "Dot", Pattern: `\.`},
	{Name: "Eq", Pattern: `=`},
	{Name: "Comma", Pattern: `,`},
	{Name: "Colon", Pattern: `:`},
})

// specNode mirrors the grammar base[+offset][.width][=value[:mask],...].
type specNode struct {
	Base   string      `parser:"@Word"`
	Offset *string     `parser:"(Plus @Word)?"`
	Width  *string     `parser:"(Dot @Word)?"`
	Values []valueNode `parser:"(Eq @@ (Comma @@)*)?"`
}

type valueNode struct {
	Value string  `parser:"@Word"`
	Mask  *string `parser:"(Colon @Word)?"`
}

var specParser = participle.MustBuild[specNode](
	participle.Lexer(specLexer),
)
