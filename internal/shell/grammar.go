// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 flagdeck Contributors

package shell

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/samber/oops"
)

// CodeParse is the error code for lines that do not match the grammar.
const CodeParse = "SHELL_PARSE"

// lineLexer splits a command line. Key tokens end in "=" and are only
// recognised at the start of a bare word, so flags like flag{a=b} stay whole.
var lineLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "String", Pattern: `"(?:\\.|[^"\\])*"`},
	{Name: "Key", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*=`},
	{Name: "Word", Pattern: `[^\s"]+`},
	{Name: "whitespace", Pattern: `\s+`},
})

// Line is one parsed command.
//
// Grammar: verb { [ key "=" ] ( word | quoted ) }
type Line struct {
	Pos  lexer.Position `parser:""`
	Verb string         `parser:"@Word"`
	Args []*Arg         `parser:"@@*"`
}

// Arg is a positional or key=value argument.
type Arg struct {
	Key   string `parser:"@Key?"`
	Value string `parser:"@(String | Word)"`
}

// Text returns the argument as typed, with its key if it had one.
func (a *Arg) Text() string {
	if a.Key == "" {
		return a.Value
	}
	return a.Key + "=" + a.Value
}

// Positional returns every argument as plain text.
func (l *Line) Positional() []string {
	out := make([]string, len(l.Args))
	for i, a := range l.Args {
		out[i] = a.Text()
	}
	return out
}

var lineParser = participle.MustBuild[Line](
	participle.Lexer(lineLexer),
	participle.Unquote("String"),
	participle.Map(func(t lexer.Token) (lexer.Token, error) {
		t.Value = strings.TrimSuffix(t.Value, "=")
		return t, nil
	}, "Key"),
)

// ParseLine parses one command line. Blank lines return (nil, nil).
func ParseLine(input string) (*Line, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, nil
	}
	line, err := lineParser.ParseString("", input)
	if err != nil {
		return nil, oops.Code(CodeParse).With("input", input).Wrapf(err, "parsing command")
	}
	line.Verb = strings.ToLower(line.Verb)
	return line, nil
}

// String renders the line back in canonical form.
func (l *Line) String() string {
	var b strings.Builder
	b.WriteString(l.Verb)
	for _, a := range l.Args {
		b.WriteByte(' ')
		if a.Key != "" {
			b.WriteString(a.Key)
			b.WriteByte('=')
		}
		if strings.ContainsAny(a.Value, " \t\"") || a.Value == "" {
			fmt.Fprintf(&b, "%q", a.Value)
		} else {
			b.WriteString(a.Value)
		}
	}
	return b.String()
}
