package respcache

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

type Method string

const (
	MethodBasicInfo     Method = "BASIC_INFO"
	MethodAttributeInfo Method = "ATTRIBUTE_INFO"
)

// Key identifies one cached answer. Basic-info keys leave Attribute empty.
type Key struct {
	Entity    string
	Attribute string
	Method    Method
}

func AttributeKey(entity, attribute string) Key {
	return Key{Entity: entity, Attribute: attribute, Method: MethodAttributeInfo}
}

func BasicInfoKey(entity string) Key {
	return Key{Entity: entity, Method: MethodBasicInfo}
}

// String renders the key as the tuple text the cache file stores, either
// ('MIT', 'BASIC_INFO') or (('MIT', 'website'), 'GPT_BASIC').
func (k Key) String() string {
	if k.Attribute == "" {
		return fmt.Sprintf("(%s, %s)", quote(k.Entity), quote(string(k.Method)))
	}
	return fmt.Sprintf("((%s, %s), %s)", quote(k.Entity), quote(k.Attribute), quote(string(k.Method)))
}

// quote follows python's str repr: single quotes unless the text has a
// single quote and no double quote.
func quote(s string) string {
	delim := '\''
	if strings.ContainsRune(s, '\'') && !strings.ContainsRune(s, '"') {
		delim = '"'
	}
	var out strings.Builder
	out.WriteRune(delim)
	for _, r := range s {
		switch {
		case r == delim || r == '\\':
			out.WriteRune('\\')
			out.WriteRune(r)
		case r == '\n':
			out.WriteString(`\n`)
		case r == '\r':
			out.WriteString(`\r`)
		case r == '\t':
			out.WriteString(`\t`)
		case r < 0x20 || r == 0x7f:
			fmt.Fprintf(&out, `\x%02x`, r)
		case !unicode.IsPrint(r):
			if r <= 0xffff {
				fmt.Fprintf(&out, `\u%04x`, r)
			} else {
				fmt.Fprintf(&out, `\U%08x`, r)
			}
		default:
			out.WriteRune(r)
		}
	}
	out.WriteRune(delim)
	return out.String()
}

// ParseKey reads the nested and flat tuple forms, including method tags
// written as enum reprs like <GPTMethodType.BASIC_INFO: 1>.
func ParseKey(s string) (Key, error) {
	p := &tupleParser{input: []rune(strings.TrimSpace(s))}
	value, err := p.parse()
	if err != nil {
		return Key{}, fmt.Errorf("parse key %q: %w", s, err)
	}
	p.skipSpace()
	if p.pos != len(p.input) {
		return Key{}, fmt.Errorf("parse key %q: trailing input at %d", s, p.pos)
	}

	items, ok := value.([]any)
	if !ok {
		return Key{}, fmt.Errorf("parse key %q: not a tuple", s)
	}
	str := func(v any) (string, bool) {
		s, ok := v.(string)
		return s, ok
	}

	switch len(items) {
	case 2:
		method, ok := str(items[1])
		if !ok {
			break
		}
		if entity, ok := str(items[0]); ok {
			return Key{Entity: entity, Method: Method(method)}, nil
		}
		inner, ok := items[0].([]any)
		if !ok || len(inner) != 2 {
			break
		}
		entity, ok1 := str(inner[0])
		attribute, ok2 := str(inner[1])
		if ok1 && ok2 {
			return Key{Entity: entity, Attribute: attribute, Method: Method(method)}, nil
		}
	case 3:
		entity, ok1 := str(items[0])
		attribute, ok2 := str(items[1])
		method, ok3 := str(items[2])
		if ok1 && ok2 && ok3 {
			return Key{Entity: entity, Attribute: attribute, Method: Method(method)}, nil
		}
	}
	return Key{}, fmt.Errorf("parse key %q: unexpected tuple shape", s)
}

type tupleParser struct {
	input []rune
	pos   int
}

func (p *tupleParser) skipSpace() {
	for p.pos < len(p.input) && unicode.IsSpace(p.input[p.pos]) {
		p.pos++
	}
}

func (p *tupleParser) parse() (any, error) {
	p.skipSpace()
	if p.pos >= len(p.input) {
		return nil, fmt.Errorf("unexpected end of input")
	}
	switch c := p.input[p.pos]; c {
	case '(':
		return p.tuple()
	case '\'', '"':
		return p.quoted(c)
	case '<':
		return p.enumRepr()
	default:
		return p.bare()
	}
}

func (p *tupleParser) tuple() (any, error) {
	p.pos++
	var items []any
	for {
		p.skipSpace()
		if p.pos >= len(p.input) {
			return nil, fmt.Errorf("unterminated tuple")
		}
		if p.input[p.pos] == ')' {
			p.pos++
			return items, nil
		}
		item, err := p.parse()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		p.skipSpace()
		if p.pos < len(p.input) && p.input[p.pos] == ',' {
			p.pos++
		}
	}
}

func (p *tupleParser) quoted(delim rune) (any, error) {
	p.pos++
	var out strings.Builder
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		p.pos++
		if c == delim {
			return out.String(), nil
		}
		if c != '\\' {
			out.WriteRune(c)
			continue
		}
		if p.pos >= len(p.input) {
			break
		}
		escaped := p.input[p.pos]
		p.pos++
		switch escaped {
		case 'n':
			out.WriteRune('\n')
		case 'r':
			out.WriteRune('\r')
		case 't':
			out.WriteRune('\t')
		case 'x', 'u', 'U':
			width := map[rune]int{'x': 2, 'u': 4, 'U': 8}[escaped]
			if p.pos+width > len(p.input) {
				return nil, fmt.Errorf("short \\%c escape", escaped)
			}
			code, err := strconv.ParseUint(string(p.input[p.pos:p.pos+width]), 16, 32)
			if err != nil {
				return nil, fmt.Errorf("bad \\%c escape: %w", escaped, err)
			}
			out.WriteRune(rune(code))
			p.pos += width
		default:
			out.WriteRune(escaped)
		}
	}
	return nil, fmt.Errorf("unterminated string")
}

// enumRepr reads <Enum.NAME: 1> as NAME.
func (p *tupleParser) enumRepr() (any, error) {
	end := p.pos
	for end < len(p.input) && p.input[end] != '>' {
		end++
	}
	if end >= len(p.input) {
		return nil, fmt.Errorf("unterminated enum repr")
	}
	body := string(p.input[p.pos+1 : end])
	p.pos = end + 1
	if colon := strings.IndexByte(body, ':'); colon >= 0 {
		body = body[:colon]
	}
	return enumName(body), nil
}

// bare reads an unquoted token such as GPTMethodType.BASIC_INFO.
func (p *tupleParser) bare() (any, error) {
	start := p.pos
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if c == ',' || c == ')' || unicode.IsSpace(c) {
			break
		}
		p.pos++
	}
	if start == p.pos {
		return nil, fmt.Errorf("unexpected %q at %d", p.input[p.pos], p.pos)
	}
	return enumName(string(p.input[start:p.pos])), nil
}

func enumName(s string) string {
	s = strings.TrimSpace(s)
	if dot := strings.LastIndexByte(s, '.'); dot >= 0 {
		s = s[dot+1:]
	}
	return s
}
