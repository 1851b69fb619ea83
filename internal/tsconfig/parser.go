package tsconfig

import (
	"bytes"

	"github.com/knadh/koanf/parsers/yaml"
)

// jsoncParser accepts JSON with comments and trailing commas by cleaning
// the input and handing it to the YAML parser, which reads plain JSON.
type jsoncParser struct {
	yaml *yaml.YAML
}

func newParser() *jsoncParser {
	return &jsoncParser{yaml: yaml.Parser()}
}

func (p *jsoncParser) Unmarshal(b []byte) (map[string]any, error) {
	return p.yaml.Unmarshal(stripJSONC(b))
}

func (p *jsoncParser) Marshal(m map[string]any) ([]byte, error) {
	return p.yaml.Marshal(m)
}

// stripJSONC removes // and /* */ comments and trailing commas outside of
// string literals and turns tabs outside strings into spaces.
func stripJSONC(src []byte) []byte {
	out := make([]byte, 0, len(src))
	inString := false
	for i := 0; i < len(src); i++ {
		c := src[i]
		if inString {
			out = append(out, c)
			switch c {
			case '\\':
				if i+1 < len(src) {
					i++
					out = append(out, src[i])
				}
			case '"':
				inString = false
			}
			continue
		}
		switch {
		case c == '"':
			inString = true
			out = append(out, c)
		case c == '/' && i+1 < len(src) && src[i+1] == '/':
			for i < len(src) && src[i] != '\n' {
				i++
			}
			if i < len(src) {
				out = append(out, '\n')
			}
		case c == '/' && i+1 < len(src) && src[i+1] == '*':
			i += 2
			for i+1 < len(src) && (src[i] != '*' || src[i+1] != '/') {
				if src[i] == '\n' {
					out = append(out, '\n')
				}
				i++
			}
			i++
		case c == ',':
			j := skipInsignificant(src, i+1)
			if j < len(src) && (src[j] == '}' || src[j] == ']') {
				continue
			}
			out = append(out, c)
		case c == '\t':
			out = append(out, ' ')
		default:
			out = append(out, c)
		}
	}
	return bytes.TrimSpace(out)
}

// skipInsignificant returns the index of the next byte that is neither
// whitespace nor part of a comment.
func skipInsignificant(src []byte, j int) int {
	for j < len(src) {
		switch {
		case isSpace(src[j]):
			j++
		case src[j] == '/' && j+1 < len(src) && src[j+1] == '/':
			for j < len(src) && src[j] != '\n' {
				j++
			}
		case src[j] == '/' && j+1 < len(src) && src[j+1] == '*':
			j += 2
			for j+1 < len(src) && (src[j] != '*' || src[j+1] != '/') {
				j++
			}
			j += 2
		default:
			return j
		}
	}
	return j
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
