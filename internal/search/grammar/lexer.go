package grammar

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	dateRe   = regexp.MustCompile(`^\d{1,4}[/.-]\d{1,2}[/.-]\d{1,4}(?:[T ]\d{1,2}:\d{2}(?::\d{2}(?:\.\d+)?)?(?:Z|[+-]\d{2}:?\d{2})?)?`)
	numberRe = regexp.MustCompile(`^-?(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?`)
)

// Lexer tokenizes search text.
type Lexer struct {
	input  []rune
	pos    int
	peeked *Token
}

// NewLexer creates a lexer for the given input.
func NewLexer(input string) *Lexer {
	return &Lexer{input: []rune(input)}
}

// Tokenize returns every token of input, ending with TokEOF.
func Tokenize(input string) ([]Token, error) {
	l := NewLexer(input)
	var toks []Token
	for {
		tok, err := l.Next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		if tok.Kind == TokEOF {
			return toks, nil
		}
	}
}

// Peek returns the next token without consuming it.
func (l *Lexer) Peek() (Token, error) {
	if l.peeked != nil {
		return *l.peeked, nil
	}
	tok, err := l.next()
	if err != nil {
		return Token{}, err
	}
	l.peeked = &tok
	return tok, nil
}

// Next consumes and returns the next token.
func (l *Lexer) Next() (Token, error) {
	if l.peeked != nil {
		tok := *l.peeked
		l.peeked = nil
		return tok, nil
	}
	return l.next()
}

func (l *Lexer) next() (Token, error) {
	l.skipWhitespace()
	pos := l.pos
	if pos >= len(l.input) {
		return Token{Kind: TokEOF, Pos: pos, End: pos}, nil
	}

	switch ch := l.input[pos]; ch {
	case '"', '\'':
		return l.readString(pos, ch)
	case '(':
		return l.single(TokLParen), nil
	case ')':
		return l.single(TokRParen), nil
	case '[':
		return l.single(TokLBracket), nil
	case ']':
		return l.single(TokRBracket), nil
	case ',':
		return l.single(TokComma), nil
	case '|':
		return l.readTyped(pos)
	case '=', '!', '<', '>':
		rest := string(l.input[pos:])
		for _, op := range symbolOps {
			if strings.HasPrefix(rest, op) {
				l.pos += len(op)
				return Token{Kind: TokOp, Lit: op, Pos: pos, End: l.pos}, nil
			}
		}
		return Token{}, errorf(pos, "unexpected %q", ch)
	}

	rest := string(l.input[pos:])
	if tok, ok := l.match(dateRe, rest, TokDate); ok {
		return tok, nil
	}
	if tok, ok := l.match(numberRe, rest, TokNumber); ok {
		return tok, nil
	}
	for l.pos < len(l.input) && isWordChar(l.input[l.pos]) {
		l.pos++
	}
	if l.pos == pos {
		return Token{}, errorf(pos, "unexpected %q", l.input[pos])
	}
	return Token{Kind: TokWord, Lit: string(l.input[pos:l.pos]), Pos: pos, End: l.pos}, nil
}

func (l *Lexer) single(kind TokenKind) Token {
	pos := l.pos
	l.pos++
	return Token{Kind: kind, Lit: string(l.input[pos]), Pos: pos, End: l.pos}
}

// match consumes a regexp match at the current position when it ends on a
// word boundary.
func (l *Lexer) match(re *regexp.Regexp, rest string, kind TokenKind) (Token, bool) {
	m := re.FindString(rest)
	if m == "" {
		return Token{}, false
	}
	n := len([]rune(m))
	end := l.pos + n
	if end < len(l.input) && isWordChar(l.input[end]) {
		return Token{}, false
	}
	tok := Token{Kind: kind, Lit: m, Pos: l.pos, End: end}
	l.pos = end
	return tok, true
}

func (l *Lexer) readString(pos int, quote rune) (Token, error) {
	l.pos++ // opening quote
	var sb strings.Builder
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if ch == '\\' && l.pos+1 < len(l.input) {
			sb.WriteRune(l.input[l.pos+1])
			l.pos += 2
			continue
		}
		if ch == quote {
			l.pos++
			return Token{Kind: TokString, Lit: sb.String(), Pos: pos, End: l.pos}, nil
		}
		sb.WriteRune(ch)
		l.pos++
	}
	return Token{}, errorf(pos, "unterminated string literal")
}

// readTyped reads |type|value|.
func (l *Lexer) readTyped(pos int) (Token, error) {
	l.pos++
	typ, ok := l.readUntilPipe()
	if !ok || typ == "" {
		return Token{}, errorf(pos, "malformed typed value")
	}
	val, ok := l.readUntilPipe()
	if !ok {
		return Token{}, errorf(pos, "malformed typed value")
	}
	return Token{Kind: TokTyped, Lit: val, Type: strings.ToLower(strings.TrimSpace(typ)), Pos: pos, End: l.pos}, nil
}

func (l *Lexer) readUntilPipe() (string, bool) {
	start := l.pos
	for l.pos < len(l.input) {
		if l.input[l.pos] == '|' {
			s := string(l.input[start:l.pos])
			l.pos++
			return s, true
		}
		l.pos++
	}
	return "", false
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.input) && unicode.IsSpace(l.input[l.pos]) {
		l.pos++
	}
}

// isWordChar reports whether ch may appear in an unquoted word.
func isWordChar(ch rune) bool {
	if unicode.IsLetter(ch) || unicode.IsDigit(ch) {
		return true
	}
	return strings.ContainsRune("%.-_*;:", ch)
}

func isIdentStart(ch rune) bool {
	return unicode.IsLetter(ch) || ch == '_'
}

func isIdentCont(ch rune) bool {
	return unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_'
}

// isIdent reports whether s is a single identifier segment.
func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, ch := range s {
		if i == 0 && !isIdentStart(ch) {
			return false
		}
		if !isIdentCont(ch) {
			return false
		}
	}
	return true
}

// splitPath splits a dotted identifier path, reporting false when any
// segment is not an identifier.
func splitPath(s string) ([]string, bool) {
	parts := strings.Split(s, ".")
	for _, p := range parts {
		if !isIdent(p) {
			return nil, false
		}
	}
	return parts, true
}
