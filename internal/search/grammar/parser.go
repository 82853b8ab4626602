package grammar

import (
	"strconv"
	"strings"
)

// ParseQuery parses the full grammar: <domain> WHERE <expression>.
func ParseQuery(text string) (*Query, error) {
	p, err := newParser(text)
	if err != nil {
		return nil, err
	}
	domain, err := p.parseDomain()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); !isKeyword(tok, "where") {
		return nil, errorf(tok.Pos, "expected WHERE, found %s", describe(tok))
	}
	p.advance()
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if err := p.expectEOF(); err != nil {
		return nil, err
	}
	return &Query{Domain: domain, Expr: expr}, nil
}

// ParseDomainExpr parses the shorthand grammar: <domain> <op> (* | values).
func ParseDomainExpr(text string) (*DomainExpr, error) {
	p, err := newParser(text)
	if err != nil {
		return nil, err
	}
	domain, err := p.parseDomain()
	if err != nil {
		return nil, err
	}
	op, err := p.parseBinop()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.Kind == TokWord && tok.Lit == "*" {
		p.advance()
		if err := p.expectEOF(); err != nil {
			return nil, err
		}
		return &DomainExpr{Domain: domain, Op: op, Star: true}, nil
	}
	values, err := p.parseValueSeq()
	if err != nil {
		return nil, err
	}
	return &DomainExpr{Domain: domain, Op: op, Values: values}, nil
}

// ParseValueList parses a bare list of values separated by commas or spaces.
func ParseValueList(text string) (*ValueList, error) {
	p, err := newParser(text)
	if err != nil {
		return nil, err
	}
	values, err := p.parseValueSeq()
	if err != nil {
		return nil, err
	}
	return &ValueList{Values: values}, nil
}

type parser struct {
	toks []Token
	pos  int
}

func newParser(text string) (*parser, error) {
	toks, err := Tokenize(text)
	if err != nil {
		return nil, err
	}
	return &parser{toks: toks}, nil
}

func (p *parser) peek() Token {
	return p.toks[p.pos]
}

func (p *parser) peekAt(n int) Token {
	if i := p.pos + n; i < len(p.toks) {
		return p.toks[i]
	}
	return p.toks[len(p.toks)-1]
}

func (p *parser) advance() Token {
	tok := p.toks[p.pos]
	if tok.Kind != TokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) expect(kind TokenKind) (Token, error) {
	tok := p.peek()
	if tok.Kind != kind {
		return tok, errorf(tok.Pos, "expected %s, found %s", kind, describe(tok))
	}
	return p.advance(), nil
}

func (p *parser) expectEOF() error {
	if tok := p.peek(); tok.Kind != TokEOF {
		return errorf(tok.Pos, "unexpected %s, expected end of input", describe(tok))
	}
	return nil
}

func (p *parser) parseDomain() (string, error) {
	tok := p.peek()
	if tok.Kind != TokWord || !isIdent(tok.Lit) {
		return "", errorf(tok.Pos, "expected domain name, found %s", describe(tok))
	}
	p.advance()
	return tok.Lit, nil
}

// parseOr: and { OR and }
func (p *parser) parseOr() (Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	operands := []Node{left}
	for isKeyword(p.peek(), "or") {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		operands = append(operands, right)
	}
	if len(operands) == 1 {
		return left, nil
	}
	return &Or{Operands: operands}, nil
}

// parseAnd: not { AND not }
func (p *parser) parseAnd() (Node, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	operands := []Node{left}
	for isKeyword(p.peek(), "and") {
		p.advance()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		operands = append(operands, right)
	}
	if len(operands) == 1 {
		return left, nil
	}
	return &And{Operands: operands}, nil
}

// parseNot: NOT not | atom
func (p *parser) parseNot() (Node, error) {
	if isKeyword(p.peek(), "not") {
		p.advance()
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &Not{Operand: operand}, nil
	}
	return p.parseAtom()
}

// parseAtom: "(" or ")" | aggregate | identifier condition
func (p *parser) parseAtom() (Node, error) {
	tok := p.peek()
	switch {
	case tok.Kind == TokLParen:
		p.advance()
		expr, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokRParen); err != nil {
			return nil, err
		}
		return &Paren{Expr: expr}, nil
	case tok.Kind == TokWord && aggregates[strings.ToLower(tok.Lit)] && p.peekAt(1).Kind == TokLParen:
		return p.parseAggregate()
	case tok.Kind == TokWord:
		ident, err := p.parseIdentifier()
		if err != nil {
			return nil, err
		}
		return p.parseCondition(ident)
	default:
		return nil, errorf(tok.Pos, "expected identifier, found %s", describe(tok))
	}
}

// parseAggregate: func "(" identifier ")" op value
func (p *parser) parseAggregate() (Node, error) {
	fn := strings.ToLower(p.advance().Lit)
	p.advance() // (
	ident, err := p.parseIdentifier()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokRParen); err != nil {
		return nil, err
	}
	op, err := p.parseBinop()
	if err != nil {
		return nil, err
	}
	val, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	return &Aggregate{Func: fn, Ident: ident, Op: op, Value: val}, nil
}

func (p *parser) parseCondition(ident Identifier) (Node, error) {
	tok := p.peek()
	switch {
	case isKeyword(tok, "between"):
		p.advance()
		low, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		if tok := p.peek(); !isKeyword(tok, "and") {
			return nil, errorf(tok.Pos, "expected AND, found %s", describe(tok))
		}
		p.advance()
		high, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		return &Between{Ident: ident, Low: low, High: high}, nil
	case isKeyword(tok, "in"):
		p.advance()
		values, err := p.parseInList()
		if err != nil {
			return nil, err
		}
		return &In{Ident: ident, Values: values}, nil
	case isKeyword(tok, "on"):
		p.advance()
		val, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		return &On{Ident: ident, Value: val}, nil
	}

	op, err := p.parseBinop()
	if err != nil {
		return nil, err
	}
	val, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	return &Comparison{Ident: ident, Op: op, Value: val}, nil
}

// parseIdentifier reads a dotted path, optionally followed by an inline
// [attr op value] filter and the rest of the path: genera[name = x].species.epithet
func (p *parser) parseIdentifier() (Identifier, error) {
	tok := p.peek()
	if tok.Kind != TokWord {
		return nil, errorf(tok.Pos, "expected identifier, found %s", describe(tok))
	}
	segs, ok := splitPath(tok.Lit)
	if !ok {
		return nil, errorf(tok.Pos, "invalid identifier %q", tok.Lit)
	}
	p.advance()

	if next := p.peek(); next.Kind != TokLBracket || next.Pos != tok.End {
		return &Ident{Path: segs[:len(segs)-1], Leaf: segs[len(segs)-1]}, nil
	}
	p.advance() // [

	attr := p.peek()
	if attr.Kind != TokWord || !isIdent(attr.Lit) {
		return nil, errorf(attr.Pos, "expected filter attribute, found %s", describe(attr))
	}
	p.advance()
	op, err := p.parseBinop()
	if err != nil {
		return nil, err
	}
	val, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	rb, err := p.expect(TokRBracket)
	if err != nil {
		return nil, err
	}

	rest := p.peek()
	if rest.Kind != TokWord || rest.Pos != rb.End || !strings.HasPrefix(rest.Lit, ".") {
		return nil, errorf(rest.Pos, "expected .attribute after filter, found %s", describe(rest))
	}
	restSegs, ok := splitPath(rest.Lit[1:])
	if !ok {
		return nil, errorf(rest.Pos+1, "invalid identifier %q", rest.Lit[1:])
	}
	p.advance()

	return &FilteredIdent{
		Path:   segs,
		Filter: Filter{Attr: attr.Lit, Op: op, Value: val},
		Rest:   &Ident{Path: restSegs[:len(restSegs)-1], Leaf: restSegs[len(restSegs)-1]},
	}, nil
}

func (p *parser) parseBinop() (string, error) {
	tok := p.peek()
	switch {
	case tok.Kind == TokOp:
		p.advance()
		return tok.Lit, nil
	case tok.Kind == TokWord && wordOps[strings.ToLower(tok.Lit)]:
		p.advance()
		return strings.ToLower(tok.Lit), nil
	}
	return "", errorf(tok.Pos, "expected operator, found %s", describe(tok))
}

// parseInList: "(" value { "," value } ")" | value { "," value }
func (p *parser) parseInList() ([]Value, error) {
	paren := p.peek().Kind == TokLParen
	if paren {
		p.advance()
	}
	var values []Value
	for {
		v, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		values = append(values, v)
		if p.peek().Kind != TokComma {
			break
		}
		p.advance()
	}
	if paren {
		if _, err := p.expect(TokRParen); err != nil {
			return nil, err
		}
	}
	return values, nil
}

// parseValueSeq reads values separated by commas or whitespace up to the end of input.
func (p *parser) parseValueSeq() ([]Value, error) {
	var values []Value
	for {
		v, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		values = append(values, v)
		if p.peek().Kind == TokComma {
			p.advance()
			continue
		}
		if p.peek().Kind == TokEOF {
			return values, nil
		}
	}
}

func (p *parser) parseValue() (Value, error) {
	tok := p.peek()
	switch tok.Kind {
	case TokString:
		p.advance()
		return StringValue{Text: tok.Lit, Quoted: true}, nil
	case TokNumber:
		f, err := strconv.ParseFloat(tok.Lit, 64)
		if err != nil {
			return nil, errorf(tok.Pos, "invalid number %q", tok.Lit)
		}
		p.advance()
		return NumericValue{Float: f, Raw: tok.Lit}, nil
	case TokDate:
		p.advance()
		return StringValue{Text: tok.Lit}, nil
	case TokTyped:
		v, err := NewTypedValue(tok.Type, tok.Lit)
		if err != nil {
			return nil, errorf(tok.Pos, "%v", err)
		}
		p.advance()
		return v, nil
	case TokWord:
		p.advance()
		switch tok.Lit {
		case "None":
			return NoneValue{}, nil
		case "Empty":
			return EmptyValue{}, nil
		}
		return StringValue{Text: tok.Lit}, nil
	}
	return nil, errorf(tok.Pos, "expected value, found %s", describe(tok))
}

// isKeyword matches a case-insensitive keyword word.
func isKeyword(tok Token, kw string) bool {
	return tok.Kind == TokWord && strings.EqualFold(tok.Lit, kw)
}

func describe(tok Token) string {
	if tok.Kind == TokEOF {
		return "end of input"
	}
	return strconv.Quote(tok.Lit)
}
