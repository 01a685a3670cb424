package engine

import (
	"fmt"
	"strconv"
	"strings"
)

// parseCall parses one statement of the form env.<op>(arg, …). Arguments are
// literals only: quoted strings (single or double, backslash escapes),
// numbers, and booleans (true/false, Python casing accepted).
func parseCall(line string, lineNo int) (call, *ExecutionError) {
	if !strings.HasPrefix(line, "env.") {
		return call{}, rejectf(lineNo, "statement must be a single env call, got %q", line)
	}

	p := &lineParser{input: line, pos: len("env.")}

	op := p.scanIdent()
	if op == "" {
		return call{}, rejectf(lineNo, "missing operation name after env.")
	}

	p.skipSpace()
	if !p.consume('(') {
		return call{}, rejectf(lineNo, "expected '(' after env.%s", op)
	}

	var args []value
	p.skipSpace()
	if !p.consume(')') {
		for {
			arg, err := p.parseValue(lineNo)
			if err != nil {
				return call{}, err
			}
			args = append(args, arg)

			p.skipSpace()
			if p.consume(',') {
				p.skipSpace()
				continue
			}
			if p.consume(')') {
				break
			}
			return call{}, rejectf(lineNo, "expected ',' or ')' in env.%s arguments", op)
		}
	}

	p.skipSpace()
	if !p.eof() {
		return call{}, rejectf(lineNo, "unexpected text after env.%s call: %q", op, p.rest())
	}

	return call{op: op, args: args, line: lineNo, raw: line}, nil
}

type lineParser struct {
	input string
	pos   int
}

func (p *lineParser) eof() bool {
	return p.pos >= len(p.input)
}

func (p *lineParser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.input[p.pos]
}

func (p *lineParser) next() byte {
	c := p.input[p.pos]
	p.pos++
	return c
}

func (p *lineParser) consume(c byte) bool {
	if !p.eof() && p.input[p.pos] == c {
		p.pos++
		return true
	}
	return false
}

func (p *lineParser) skipSpace() {
	for !p.eof() && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t') {
		p.pos++
	}
}

func (p *lineParser) rest() string {
	return p.input[p.pos:]
}

func (p *lineParser) scanIdent() string {
	start := p.pos
	for !p.eof() {
		c := p.input[p.pos]
		isAlpha := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
		isDigit := c >= '0' && c <= '9'
		if !isAlpha && !(isDigit && p.pos > start) {
			break
		}
		p.pos++
	}
	return p.input[start:p.pos]
}

func (p *lineParser) parseValue(lineNo int) (value, *ExecutionError) {
	if p.eof() {
		return value{}, rejectf(lineNo, "unterminated argument list")
	}

	switch c := p.peek(); {
	case c == '"' || c == '\'':
		s, err := p.parseString()
		if err != nil {
			return value{}, rejectf(lineNo, "%v", err)
		}
		return value{kind: kindString, str: s}, nil

	case c == '-' || c == '+' || c == '.' || (c >= '0' && c <= '9'):
		token := p.scanNumberToken()
		f, err := strconv.ParseFloat(token, 64)
		if err != nil {
			return value{}, rejectf(lineNo, "invalid number %q", token)
		}
		return value{kind: kindNumber, num: f}, nil

	default:
		token := p.scanIdent()
		switch token {
		case "true", "True":
			return value{kind: kindBool, boolean: true}, nil
		case "false", "False":
			return value{kind: kindBool, boolean: false}, nil
		case "":
			return value{}, rejectf(lineNo, "unexpected character %q in arguments", string(c))
		default:
			return value{}, rejectf(lineNo, "unquoted argument %q (strings must be quoted)", token)
		}
	}
}

func (p *lineParser) parseString() (string, error) {
	quote := p.next()
	var b strings.Builder
	for !p.eof() {
		c := p.next()
		if c == '\\' {
			if p.eof() {
				break
			}
			switch e := p.next(); e {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			default:
				b.WriteByte(e)
			}
			continue
		}
		if c == quote {
			return b.String(), nil
		}
		b.WriteByte(c)
	}
	return "", fmt.Errorf("unterminated string literal")
}

func (p *lineParser) scanNumberToken() string {
	start := p.pos
	for !p.eof() {
		c := p.input[p.pos]
		isDigit := c >= '0' && c <= '9'
		if !isDigit && c != '.' && c != 'e' && c != 'E' && c != '+' && c != '-' {
			break
		}
		p.pos++
	}
	return p.input[start:p.pos]
}
