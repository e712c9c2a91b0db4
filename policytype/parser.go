package policytype

import (
	"fmt"
	"strconv"
	"strings"
)

// Parse parses a type declaration in the schema DSL and returns the
// resulting PolicyType, minting fresh field identifiers.
//
//	type EmailPolicy {
//	    unread: bool = true,
//	    priority: ["low","medium","high"] @ highest wins,
//	    category: ["ai","distributed systems","other"] @ agreement = "other",
//	    labels: [string],
//	}
func Parse(text string) (*PolicyType, error) {
	l := newLexer(text)
	tokens, err := l.tokenize()
	if err != nil {
		return nil, wrapParseError(err)
	}

	p := &parser{tokens: tokens}
	name, fields, err := p.parseTypeDecl()
	if err != nil {
		return nil, wrapParseError(err)
	}

	return New(name, fields)
}

func wrapParseError(err error) error {
	if _, ok := err.(*SchemaError); ok {
		return err
	}
	return newSchemaError(ParseFailure, "", err.Error())
}

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) advance() token {
	t := p.tokens[p.pos]
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return t
}

func (p *parser) expectKind(k tokenKind, what string) (token, error) {
	t := p.peek()
	if t.kind != k {
		return token{}, fmt.Errorf("expected %s at position %d, got %q", what, t.pos, t.text)
	}
	return p.advance(), nil
}

func (p *parser) expectIdent(text string) error {
	t := p.peek()
	if t.kind != tokIdent || t.text != text {
		return fmt.Errorf("expected %q at position %d, got %q", text, t.pos, t.text)
	}
	p.advance()
	return nil
}

func (p *parser) parseTypeDecl() (string, []Field, error) {
	if err := p.expectIdent("type"); err != nil {
		return "", nil, err
	}

	name, err := p.parseQualifiedName()
	if err != nil {
		return "", nil, err
	}

	if _, err := p.expectKind(tokLBrace, "'{'"); err != nil {
		return "", nil, err
	}

	var fields []Field
	for p.peek().kind != tokRBrace {
		f, err := p.parseField()
		if err != nil {
			return "", nil, err
		}
		fields = append(fields, f)

		switch p.peek().kind {
		case tokComma, tokSemicolon:
			p.advance()
		case tokRBrace:
			// trailing separator omitted, fine
		default:
			return "", nil, fmt.Errorf("expected ',' ';' or '}' at position %d, got %q", p.peek().pos, p.peek().text)
		}
	}

	if _, err := p.expectKind(tokRBrace, "'}'"); err != nil {
		return "", nil, err
	}

	return name, fields, nil
}

func (p *parser) parseQualifiedName() (string, error) {
	first, err := p.expectKind(tokIdent, "type name")
	if err != nil {
		return "", err
	}
	sb := strings.Builder{}
	sb.WriteString(first.text)
	for p.peek().kind == tokDot {
		p.advance()
		part, err := p.expectKind(tokIdent, "qualified name segment")
		if err != nil {
			return "", err
		}
		sb.WriteByte('.')
		sb.WriteString(part.text)
	}
	return sb.String(), nil
}

func (p *parser) parseField() (Field, error) {
	nameTok, err := p.expectKind(tokIdent, "field name")
	if err != nil {
		return Field{}, err
	}
	if _, err := p.expectKind(tokColon, "':'"); err != nil {
		return Field{}, err
	}

	kind, values, err := p.parseFieldType()
	if err != nil {
		return Field{}, err
	}

	var strategy OnConflict
	hasStrategy := false
	if p.peek().kind == tokAt {
		p.advance()
		strategy, err = p.parseStrategy()
		if err != nil {
			return Field{}, err
		}
		hasStrategy = true
	}

	if kind.IsArray() && hasStrategy {
		return Field{}, newSchemaError(StrategyOnArray, nameTok.text, "array fields cannot declare a strategy")
	}

	var defaultLit any
	hasDefault := false
	if p.peek().kind == tokEquals {
		p.advance()
		defaultLit, err = p.parseLiteral(kind)
		if err != nil {
			return Field{}, err
		}
		hasDefault = true
	}

	return p.buildField(nameTok.text, kind, values, strategy, hasDefault, defaultLit)
}

func (p *parser) buildField(name string, kind FieldKind, values []string, strategy OnConflict, hasDefault bool, defaultLit any) (Field, error) {
	switch kind {
	case KindBool:
		var d *bool
		if hasDefault {
			v, ok := defaultLit.(bool)
			if !ok {
				return Field{}, newSchemaError(DefaultTypeMismatch, name, "expected bool default")
			}
			d = &v
		}
		return NewBool(name, strategy, d)
	case KindNumber:
		var d *float64
		if hasDefault {
			v, ok := defaultLit.(float64)
			if !ok {
				return Field{}, newSchemaError(DefaultTypeMismatch, name, "expected number default")
			}
			d = &v
		}
		return NewNumber(name, strategy, d)
	case KindString:
		var d *string
		if hasDefault {
			v, ok := defaultLit.(string)
			if !ok {
				return Field{}, newSchemaError(DefaultTypeMismatch, name, "expected string default")
			}
			d = &v
		}
		return NewString(name, strategy, d)
	case KindStringEnum:
		var d *string
		if hasDefault {
			v, ok := defaultLit.(string)
			if !ok {
				return Field{}, newSchemaError(DefaultTypeMismatch, name, "expected string default")
			}
			d = &v
		}
		return NewStringEnum(name, values, strategy, d)
	case KindStringArray:
		return NewStringArray(name)
	case KindNumberArray:
		return NewNumberArray(name)
	default:
		return Field{}, newSchemaError(ParseFailure, name, "unknown field type")
	}
}

// parseFieldType parses the field_type production, returning the kind and,
// for enums, the declared values in order.
func (p *parser) parseFieldType() (FieldKind, []string, error) {
	t := p.peek()

	if t.kind == tokIdent {
		switch t.text {
		case "bool":
			p.advance()
			return KindBool, nil, nil
		case "number":
			p.advance()
			return KindNumber, nil, nil
		case "string":
			p.advance()
			return KindString, nil, nil
		}
		return "", nil, fmt.Errorf("unknown field type %q at position %d", t.text, t.pos)
	}

	if t.kind != tokLBracket {
		return "", nil, fmt.Errorf("expected field type at position %d, got %q", t.pos, t.text)
	}
	p.advance()

	// Array of scalar: "[" ("string"|"number") "]"
	if p.peek().kind == tokIdent {
		scalar := p.advance()
		if _, err := p.expectKind(tokRBracket, "']'"); err != nil {
			return "", nil, err
		}
		switch scalar.text {
		case "string":
			return KindStringArray, nil, nil
		case "number":
			return KindNumberArray, nil, nil
		default:
			return "", nil, fmt.Errorf("unsupported array element type %q at position %d", scalar.text, scalar.pos)
		}
	}

	// Enum: "[" string_literal ("," string_literal)* "]"
	var values []string
	for {
		v, err := p.expectKind(tokString, "enum value")
		if err != nil {
			return "", nil, err
		}
		values = append(values, v.text)

		if p.peek().kind == tokComma {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expectKind(tokRBracket, "']'"); err != nil {
		return "", nil, err
	}
	return KindStringEnum, values, nil
}

func (p *parser) parseStrategy() (OnConflict, error) {
	t := p.peek()
	if t.kind != tokIdent {
		return "", fmt.Errorf("expected strategy at position %d, got %q", t.pos, t.text)
	}
	switch t.text {
	case "agreement":
		p.advance()
		return Agreement, nil
	case "default":
		p.advance()
		return Default, nil
	case "highest":
		p.advance()
		if err := p.expectIdent("wins"); err != nil {
			return "", err
		}
		return LargestValue, nil
	default:
		return "", fmt.Errorf("unknown strategy %q at position %d", t.text, t.pos)
	}
}

func (p *parser) parseLiteral(kind FieldKind) (any, error) {
	t := p.peek()
	switch t.kind {
	case tokString:
		p.advance()
		return t.text, nil
	case tokNumber:
		p.advance()
		f, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed number literal %q at position %d", t.text, t.pos)
		}
		return f, nil
	case tokIdent:
		if t.text == "true" || t.text == "false" {
			p.advance()
			return t.text == "true", nil
		}
		return nil, fmt.Errorf("unexpected identifier %q in literal position %d", t.text, t.pos)
	default:
		return nil, fmt.Errorf("expected literal at position %d, got %q", t.pos, t.text)
	}
}
