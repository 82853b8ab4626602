package grammar

import "fmt"

// TokenKind classifies a lexical token.
type TokenKind int

const (
	TokEOF      TokenKind = iota
	TokWord               // unquoted word: identifiers, keywords, bare values
	TokString             // 'quoted' or "quoted"
	TokNumber             // 42, -1.5, 2e10
	TokDate               // 2024-03-15, 15/03/2024 10:30
	TokTyped              // |int|42|
	TokLParen             // (
	TokRParen             // )
	TokLBracket           // [
	TokRBracket           // ]
	TokComma              // ,
	TokOp                 // = == != <> < <= > >=
)

// Token is a single lexical token produced by the lexer.
type Token struct {
	Kind TokenKind
	Lit  string // token text; unescaped contents for strings, the value for typed literals
	Type string // declared type of a typed literal
	Pos  int    // rune offset in input
	End  int    // rune offset just past the token
}

func (t Token) String() string {
	if t.Lit != "" {
		return fmt.Sprintf("%s(%q)", t.Kind, t.Lit)
	}
	return t.Kind.String()
}

var kindNames = map[TokenKind]string{
	TokEOF:      "EOF",
	TokWord:     "word",
	TokString:   "string",
	TokNumber:   "number",
	TokDate:     "date",
	TokTyped:    "typed value",
	TokLParen:   "(",
	TokRParen:   ")",
	TokLBracket: "[",
	TokRBracket: "]",
	TokComma:    ",",
	TokOp:       "operator",
}

func (k TokenKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("TokenKind(%d)", int(k))
}

// symbolOps are the comparison operators spelled with symbols, longest first.
var symbolOps = []string{"==", "!=", "<>", "<=", ">=", "=", "<", ">"}

// wordOps are the comparison operators spelled as words. Matching ignores case.
var wordOps = map[string]bool{
	"not":       true,
	"like":      true,
	"contains":  true,
	"has":       true,
	"ilike":     true,
	"icontains": true,
	"ihas":      true,
	"is":        true,
}

// aggregates is the closed set of aggregate functions.
var aggregates = map[string]bool{
	"sum":   true,
	"min":   true,
	"max":   true,
	"count": true,
}
