package types

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseError reports where a type string stopped making sense.
type ParseError struct {
	Input  string
	Offset int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid type %q at offset %d: %s", e.Input, e.Offset, e.Reason)
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokNumber
	tokPunct
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

// lexer splits a type string into identifiers, numbers and the punctuation
// <>(),:; keeping byte offsets for error reporting.
type lexer struct {
	input string
	pos   int
}

func (l *lexer) next() (token, error) {
	for l.pos < len(l.input) && isSpace(l.input[l.pos]) {
		l.pos++
	}
	if l.pos >= len(l.input) {
		return token{kind: tokEOF, pos: l.pos}, nil
	}

	start := l.pos
	c := l.input[l.pos]
	switch {
	case strings.IndexByte("<>(),:;", c) >= 0:
		l.pos++
		return token{kind: tokPunct, text: string(c), pos: start}, nil
	case c == '`':
		end := strings.IndexByte(l.input[start+1:], '`')
		if end < 0 {
			return token{}, &ParseError{Input: l.input, Offset: start, Reason: "unterminated quoted name"}
		}
		l.pos = start + 1 + end + 1
		return token{kind: tokIdent, text: l.input[start+1 : start+1+end], pos: start}, nil
	case c >= '0' && c <= '9':
		for l.pos < len(l.input) && l.input[l.pos] >= '0' && l.input[l.pos] <= '9' {
			l.pos++
		}
		return token{kind: tokNumber, text: l.input[start:l.pos], pos: start}, nil
	case isIdentStart(c):
		for l.pos < len(l.input) && isIdentPart(l.input[l.pos]) {
			l.pos++
		}
		return token{kind: tokIdent, text: l.input[start:l.pos], pos: start}, nil
	}
	return token{}, &ParseError{Input: l.input, Offset: start, Reason: fmt.Sprintf("unexpected character %q", c)}
}

func isSpace(c byte) bool { return c == ' ' || c == '\t' || c == '\n' || c == '\r' }

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

type parser struct {
	lex lexer
	tok token
}

func newParser(input string) (*parser, error) {
	p := &parser{lex: lexer{input: input}}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *parser) advance() error {
	t, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = t
	return nil
}

func (p *parser) fail(reason string) error {
	return &ParseError{Input: p.lex.input, Offset: p.tok.pos, Reason: reason}
}

func (p *parser) expect(punct string) error {
	if p.tok.kind != tokPunct || p.tok.text != punct {
		return p.fail(fmt.Sprintf("expected %q", punct))
	}
	return p.advance()
}

func (p *parser) accept(punct string) (bool, error) {
	if p.tok.kind == tokPunct && p.tok.text == punct {
		return true, p.advance()
	}
	return false, nil
}

func (p *parser) number() (int, error) {
	if p.tok.kind != tokNumber {
		return 0, p.fail("expected a number")
	}
	n, err := strconv.Atoi(p.tok.text)
	if err != nil {
		return 0, p.fail("number out of range")
	}
	return n, p.advance()
}

var primitiveKeywords = map[string]Kind{
	"boolean":   KindBoolean,
	"tinyint":   KindTinyInt,
	"smallint":  KindSmallInt,
	"int":       KindInt,
	"integer":   KindInt,
	"bigint":    KindBigInt,
	"float":     KindFloat,
	"real":      KindFloat,
	"double":    KindDouble,
	"string":    KindString,
	"binary":    KindBinary,
	"date":      KindDate,
	"timestamp": KindTimestamp,
	"void":      KindVoid,
}

var unsupportedKeywords = map[string]bool{
	"interval_year_month": true,
	"interval_day_time":   true,
	"timestamplocaltz":    true,
}

func (p *parser) parseType() (*ColumnType, error) {
	if p.tok.kind != tokIdent {
		return nil, p.fail("expected a type name")
	}
	start := p.tok.pos
	name := strings.ToLower(p.tok.text)
	if err := p.advance(); err != nil {
		return nil, err
	}

	switch name {
	case "double":
		// "double precision" is an alias of double
		if p.tok.kind == tokIdent && strings.EqualFold(p.tok.text, "precision") {
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		return Primitive(KindDouble), nil
	case "decimal", "numeric", "dec":
		return p.parseDecimal()
	case "char", "varchar":
		return p.parseCharLike(name)
	case "array":
		return p.parseArray()
	case "map":
		return p.parseMap()
	case "struct":
		return p.parseStruct()
	case "uniontype":
		return p.parseUnion(start)
	}

	if k, ok := primitiveKeywords[name]; ok {
		return Primitive(k), nil
	}
	if unsupportedKeywords[name] {
		return &ColumnType{Kind: KindUnsupported, raw: name}, nil
	}
	return nil, &ParseError{Input: p.lex.input, Offset: start, Reason: fmt.Sprintf("unknown type %q", name)}
}

func (p *parser) parseDecimal() (*ColumnType, error) {
	precision, scale := DefaultDecimalPrecision, DefaultDecimalScale
	open, err := p.accept("(")
	if err != nil {
		return nil, err
	}
	if open {
		if precision, err = p.number(); err != nil {
			return nil, err
		}
		comma, err := p.accept(",")
		if err != nil {
			return nil, err
		}
		if comma {
			if scale, err = p.number(); err != nil {
				return nil, err
			}
		}
		if err := p.expect(")"); err != nil {
			return nil, err
		}
	}
	if precision < 1 || precision > MaxDecimalPrecision {
		return nil, p.fail(fmt.Sprintf("decimal precision %d out of range 1..%d", precision, MaxDecimalPrecision))
	}
	if scale > precision {
		return nil, p.fail(fmt.Sprintf("decimal scale %d exceeds precision %d", scale, precision))
	}
	return Decimal(int32(precision), int32(scale)), nil
}

func (p *parser) parseCharLike(name string) (*ColumnType, error) {
	if err := p.expect("("); err != nil {
		return nil, err
	}
	length, err := p.number()
	if err != nil {
		return nil, err
	}
	if err := p.expect(")"); err != nil {
		return nil, err
	}
	if length < 1 {
		return nil, p.fail(fmt.Sprintf("%s length must be positive", name))
	}
	kind := KindChar
	if name == "varchar" {
		kind = KindVarchar
	}
	return &ColumnType{Kind: kind, Length: length}, nil
}

func (p *parser) parseArray() (*ColumnType, error) {
	if err := p.expect("<"); err != nil {
		return nil, err
	}
	elem, err := p.parseType()
	if err != nil {
		return nil, err
	}
	if err := p.expect(">"); err != nil {
		return nil, err
	}
	return ArrayOf(elem), nil
}

func (p *parser) parseMap() (*ColumnType, error) {
	if err := p.expect("<"); err != nil {
		return nil, err
	}
	key, err := p.parseType()
	if err != nil {
		return nil, err
	}
	if !key.Kind.IsPrimitive() {
		return nil, p.fail("map key must be a primitive type")
	}
	if err := p.expect(","); err != nil {
		return nil, err
	}
	value, err := p.parseType()
	if err != nil {
		return nil, err
	}
	if err := p.expect(">"); err != nil {
		return nil, err
	}
	return MapOf(key, value), nil
}

func (p *parser) parseStruct() (*ColumnType, error) {
	if err := p.expect("<"); err != nil {
		return nil, err
	}
	var fields []Field
	seen := make(map[string]bool)
	for {
		// field names may collide with type keywords, any identifier works
		if p.tok.kind != tokIdent && p.tok.kind != tokNumber {
			return nil, p.fail("expected a struct field name")
		}
		name := p.tok.text
		if seen[strings.ToLower(name)] {
			return nil, p.fail(fmt.Sprintf("duplicate struct field %q", name))
		}
		seen[strings.ToLower(name)] = true
		if err := p.advance(); err != nil {
			return nil, err
		}
		if err := p.expect(":"); err != nil {
			return nil, err
		}
		ft, err := p.parseType()
		if err != nil {
			return nil, err
		}
		fields = append(fields, Field{Name: name, Type: ft})

		more, err := p.accept(",")
		if err != nil {
			return nil, err
		}
		if !more {
			break
		}
	}
	if err := p.expect(">"); err != nil {
		return nil, err
	}
	return StructOf(fields...), nil
}

func (p *parser) parseUnion(start int) (*ColumnType, error) {
	if err := p.expect("<"); err != nil {
		return nil, err
	}
	for {
		if _, err := p.parseType(); err != nil {
			return nil, err
		}
		more, err := p.accept(",")
		if err != nil {
			return nil, err
		}
		if !more {
			break
		}
	}
	end := p.tok.pos + 1
	if err := p.expect(">"); err != nil {
		return nil, err
	}
	return &ColumnType{Kind: KindUnsupported, raw: p.lex.input[start:end]}, nil
}

// Parse parses a single Hive type string such as "decimal(10,2)" or
// "map<string,array<int>>".
func Parse(s string) (*ColumnType, error) {
	p, err := newParser(s)
	if err != nil {
		return nil, err
	}
	t, err := p.parseType()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokEOF {
		return nil, p.fail("unexpected trailing input")
	}
	return t, nil
}

// ParseList parses a list of types separated by ',', ':' or ';' at the top
// level, the way Hive stores "columns.types". An empty string yields no types.
func ParseList(s string) ([]*ColumnType, error) {
	p, err := newParser(s)
	if err != nil {
		return nil, err
	}
	var out []*ColumnType
	for p.tok.kind != tokEOF {
		t, err := p.parseType()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
		if p.tok.kind == tokEOF {
			break
		}
		if p.tok.kind != tokPunct || strings.IndexByte(",:;", p.tok.text[0]) < 0 {
			return nil, p.fail("expected a type separator")
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.tok.kind == tokEOF {
			return nil, p.fail("trailing type separator")
		}
	}
	return out, nil
}

// MustParse is Parse for literals known to be valid; it panics otherwise.
func MustParse(s string) *ColumnType {
	t, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return t
}
