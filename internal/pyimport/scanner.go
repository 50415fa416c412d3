package pyimport

import (
	"bytes"
	"fmt"
	"strings"
)

// Import is one module reference made by an import statement.
//
// "import a.b as c, d" yields two Imports ("a.b" and "d"). A from-import
// yields a single Import whose Names hold the imported names, so
// "from ..pkg import x, y" has Level 2, Module "pkg" and Names [x y].
type Import struct {
	// Line is the 1-based line where the statement starts.
	Line int

	// Module is the dotted module name. It is empty for "from . import x".
	Module string

	// Level is the number of leading dots of a relative from-import.
	Level int

	// Names lists the names of a from-import ("*" for a star import).
	// It is nil for plain import statements.
	Names []string
}

// IsFrom reports whether the import came from a from-import statement.
func (i Import) IsFrom() bool {
	return i.Names != nil
}

// String renders the import in source form.
func (i Import) String() string {
	if !i.IsFrom() {
		return "import " + i.Module
	}
	return "from " + strings.Repeat(".", i.Level) + i.Module + " import " + strings.Join(i.Names, ", ")
}

// SyntaxError reports source the scanner cannot tokenize or an import
// statement it cannot parse. File is filled in by the Finder.
type SyntaxError struct {
	File string
	Line int
	Msg  string
}

func (e *SyntaxError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Msg)
	}
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

// ScanImports returns the import statements of a Python source file in
// source order.
//
// On a *SyntaxError the imports of the logical lines before the failure
// are returned alongside the error.
func ScanImports(src []byte) ([]Import, error) {
	toks, lexErr := tokenize(normalizeSource(src))
	if lexErr != nil {
		toks = toks[:completeLines(toks)]
	}

	p := &parser{toks: toks}
	imports, err := p.parse()
	if err != nil {
		return imports, err
	}
	return imports, lexErr
}

var utf8BOM = []byte("\xef\xbb\xbf")

// normalizeSource drops a leading UTF-8 byte order mark and turns "\r\n"
// and lone "\r" line endings into "\n".
func normalizeSource(src []byte) []byte {
	src = bytes.TrimPrefix(src, utf8BOM)
	if bytes.IndexByte(src, '\r') < 0 {
		return src
	}
	src = bytes.ReplaceAll(src, []byte("\r\n"), []byte("\n"))
	return bytes.ReplaceAll(src, []byte("\r"), []byte("\n"))
}

type tokenKind int

const (
	tokName tokenKind = iota
	tokNumber
	tokString
	tokOp
	tokNewline
)

type token struct {
	kind tokenKind
	text string
	line int
	// depth is the bracket nesting level outside the token.
	depth int
}

// completeLines returns the length of the token prefix that ends with a
// logical newline.
func completeLines(toks []token) int {
	for i := len(toks) - 1; i >= 0; i-- {
		if toks[i].kind == tokNewline {
			return i + 1
		}
	}
	return 0
}

type lexer struct {
	src  []byte
	pos  int
	line int
	open []token
	toks []token
}

func tokenize(src []byte) ([]token, error) {
	lx := &lexer{src: src, line: 1}
	err := lx.run()
	return lx.toks, err
}

func (lx *lexer) run() error {
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\f':
			lx.pos++
		case c == '#':
			for lx.pos < len(lx.src) && lx.src[lx.pos] != '\n' {
				lx.pos++
			}
		case c == '\n':
			lx.pos++
			lx.endLine()
			lx.line++
		case c == '\\':
			if err := lx.continuation(); err != nil {
				return err
			}
		case isIdentStart(c):
			if err := lx.identifier(); err != nil {
				return err
			}
		case isDigit(c) || (c == '.' && lx.pos+1 < len(lx.src) && isDigit(lx.src[lx.pos+1])):
			lx.number()
		case c == '\'' || c == '"':
			if err := lx.str(lx.pos); err != nil {
				return err
			}
		case c == '(' || c == '[' || c == '{':
			lx.emit(tokOp, string(c), lx.line)
			lx.open = append(lx.open, lx.toks[len(lx.toks)-1])
			lx.pos++
		case c == ')' || c == ']' || c == '}':
			if err := lx.closeBracket(c); err != nil {
				return err
			}
		case c == '`' || c == '$' || c == '?':
			return lx.errorf("invalid character '%c'", c)
		default:
			lx.emit(tokOp, string(c), lx.line)
			lx.pos++
		}
	}

	if len(lx.open) > 0 {
		o := lx.open[len(lx.open)-1]
		return &SyntaxError{Line: o.line, Msg: fmt.Sprintf("'%s' was never closed", o.text)}
	}
	lx.endLine()
	return nil
}

func (lx *lexer) emit(kind tokenKind, text string, line int) {
	lx.toks = append(lx.toks, token{kind: kind, text: text, line: line, depth: len(lx.open)})
}

// endLine terminates the current logical line. Newlines inside brackets
// and blank lines do not produce tokens.
func (lx *lexer) endLine() {
	if len(lx.open) > 0 || len(lx.toks) == 0 {
		return
	}
	if lx.toks[len(lx.toks)-1].kind == tokNewline {
		return
	}
	lx.emit(tokNewline, "", lx.line)
}

func (lx *lexer) continuation() error {
	rest := lx.src[lx.pos+1:]
	switch {
	case len(rest) == 0:
		return lx.errorf("unexpected EOF while parsing")
	case rest[0] == '\n':
		lx.pos += 2
	default:
		return lx.errorf("unexpected character after line continuation character")
	}
	lx.line++
	return nil
}

func (lx *lexer) identifier() error {
	start := lx.pos
	for lx.pos < len(lx.src) && isIdentChar(lx.src[lx.pos]) {
		lx.pos++
	}
	word := string(lx.src[start:lx.pos])
	if lx.pos < len(lx.src) && (lx.src[lx.pos] == '\'' || lx.src[lx.pos] == '"') && isStringPrefix(word) {
		return lx.str(start)
	}
	lx.emit(tokName, word, lx.line)
	return nil
}

func (lx *lexer) number() {
	start := lx.pos
	for lx.pos < len(lx.src) && (isIdentChar(lx.src[lx.pos]) || lx.src[lx.pos] == '.') {
		lx.pos++
	}
	lx.emit(tokNumber, string(lx.src[start:lx.pos]), lx.line)
}

// str consumes a string literal whose opening quote is at lx.pos. start
// is where the literal begins, including any prefix letters.
func (lx *lexer) str(start int) error {
	q := lx.src[lx.pos]
	startLine := lx.line
	triple := lx.pos+2 < len(lx.src) && lx.src[lx.pos+1] == q && lx.src[lx.pos+2] == q
	if triple {
		lx.pos += 3
	} else {
		lx.pos++
	}

	for {
		if lx.pos >= len(lx.src) {
			if triple {
				return &SyntaxError{Line: startLine, Msg: "unterminated triple-quoted string literal"}
			}
			return &SyntaxError{Line: startLine, Msg: "unterminated string literal"}
		}
		c := lx.src[lx.pos]
		switch {
		case c == '\\':
			lx.pos++
			if lx.pos < len(lx.src) {
				if lx.src[lx.pos] == '\n' {
					lx.line++
				}
				lx.pos++
			}
		case c == '\n':
			if !triple {
				return &SyntaxError{Line: startLine, Msg: "unterminated string literal"}
			}
			lx.line++
			lx.pos++
		case c == q && !triple:
			lx.pos++
			lx.emit(tokString, string(lx.src[start:lx.pos]), startLine)
			return nil
		case c == q && lx.pos+2 < len(lx.src) && lx.src[lx.pos+1] == q && lx.src[lx.pos+2] == q:
			lx.pos += 3
			lx.emit(tokString, string(lx.src[start:lx.pos]), startLine)
			return nil
		default:
			lx.pos++
		}
	}
}

func (lx *lexer) closeBracket(c byte) error {
	if len(lx.open) == 0 {
		return lx.errorf("unmatched '%c'", c)
	}
	top := lx.open[len(lx.open)-1]
	if top.text != string(openerOf(c)) {
		return lx.errorf("closing parenthesis '%c' does not match opening parenthesis '%s'", c, top.text)
	}
	lx.open = lx.open[:len(lx.open)-1]
	lx.emit(tokOp, string(c), lx.line)
	lx.pos++
	return nil
}

func (lx *lexer) errorf(format string, args ...interface{}) error {
	return &SyntaxError{Line: lx.line, Msg: fmt.Sprintf(format, args...)}
}

func openerOf(c byte) byte {
	switch c {
	case ')':
		return '('
	case ']':
		return '['
	default:
		return '{'
	}
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// isIdentStart accepts any non-ASCII byte so identifiers written in other
// scripts are consumed whole.
func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

func isStringPrefix(word string) bool {
	switch strings.ToLower(word) {
	case "r", "u", "b", "f", "t", "br", "rb", "fr", "rf", "tr", "rt":
		return true
	}
	return false
}

// parser finds import statements in a token stream. A statement starts at
// the beginning of a logical line or after a top-level ';' or ':'.
type parser struct {
	toks    []token
	pos     int
	imports []Import
}

func (p *parser) parse() ([]Import, error) {
	atStart := true
	for p.pos < len(p.toks) {
		t := p.toks[p.pos]
		if atStart && t.kind == tokName {
			switch t.text {
			case "import":
				if err := p.importStmt(); err != nil {
					return p.imports, err
				}
				atStart = false
				continue
			case "from":
				if err := p.fromStmt(); err != nil {
					return p.imports, err
				}
				atStart = false
				continue
			case "print", "exec":
				if p.legacyStatement() {
					return p.imports, &SyntaxError{
						Line: t.line,
						Msg:  fmt.Sprintf("missing parentheses in call to '%s'", t.text),
					}
				}
			}
		}

		atStart = false
		if t.depth == 0 {
			if t.kind == tokNewline || (t.kind == tokOp && (t.text == ";" || t.text == ":")) {
				atStart = true
			}
		}
		p.pos++
	}
	return p.imports, nil
}

// importStmt parses "import a.b [as c], d ..." starting at the keyword.
func (p *parser) importStmt() error {
	line := p.toks[p.pos].line
	p.pos++
	for {
		name, err := p.dottedName()
		if err != nil {
			return err
		}
		if p.isName("as") {
			p.pos++
			if _, err := p.name(); err != nil {
				return err
			}
		}
		p.imports = append(p.imports, Import{Line: line, Module: name})

		if p.isOp(",") {
			p.pos++
			continue
		}
		if p.atEnd() {
			return nil
		}
		return p.errorf("invalid syntax in import statement")
	}
}

// fromStmt parses "from [.]*[module] import names" starting at the keyword.
func (p *parser) fromStmt() error {
	line := p.toks[p.pos].line
	p.pos++

	level := 0
	for p.isOp(".") {
		level++
		p.pos++
	}

	module := ""
	if p.cur().kind == tokName && !p.isName("import") {
		name, err := p.dottedName()
		if err != nil {
			return err
		}
		module = name
	}
	if level == 0 && module == "" {
		return p.errorf("invalid syntax: missing module name after 'from'")
	}
	if !p.isName("import") {
		return p.errorf("invalid syntax: expected 'import'")
	}
	p.pos++

	var names []string
	if p.isOp("*") {
		p.pos++
		names = []string{"*"}
	} else {
		paren := p.isOp("(")
		if paren {
			p.pos++
		}
		for {
			if paren && p.isOp(")") && len(names) > 0 {
				break
			}
			n, err := p.name()
			if err != nil {
				return err
			}
			if p.isName("as") {
				p.pos++
				if _, err := p.name(); err != nil {
					return err
				}
			}
			names = append(names, n)
			if !p.isOp(",") {
				break
			}
			p.pos++
			if !paren && p.atEnd() {
				return p.errorf("trailing comma not allowed without surrounding parentheses")
			}
		}
		if paren {
			if !p.isOp(")") {
				return p.errorf("invalid syntax: expected ')'")
			}
			p.pos++
		}
	}

	if !p.atEnd() {
		return p.errorf("invalid syntax in import statement")
	}
	p.imports = append(p.imports, Import{Line: line, Module: module, Level: level, Names: names})
	return nil
}

// legacyStatement reports whether the name at p.pos starts a statement form
// that only exists in the older dialect ("print x", "exec code").
func (p *parser) legacyStatement() bool {
	next := p.pos + 1
	if next >= len(p.toks) {
		return false
	}
	n := p.toks[next]
	switch n.kind {
	case tokString, tokNumber:
		return true
	case tokName:
		return !isExpressionKeyword(n.text)
	case tokOp:
		return n.text == ">" && next+1 < len(p.toks) && p.toks[next+1].text == ">"
	}
	return false
}

func isExpressionKeyword(word string) bool {
	switch word {
	case "if", "else", "and", "or", "in", "is", "not", "for":
		return true
	}
	return false
}

func (p *parser) dottedName() (string, error) {
	first, err := p.name()
	if err != nil {
		return "", err
	}
	parts := []string{first}
	for p.isOp(".") {
		p.pos++
		part, err := p.name()
		if err != nil {
			return "", err
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, "."), nil
}

func (p *parser) name() (string, error) {
	t := p.cur()
	if t.kind != tokName {
		return "", p.errorf("invalid syntax: expected a name")
	}
	p.pos++
	return t.text, nil
}

// cur returns the current token. Past the end it returns a newline token so
// callers never index out of range.
func (p *parser) cur() token {
	if p.pos >= len(p.toks) {
		line := 1
		if len(p.toks) > 0 {
			line = p.toks[len(p.toks)-1].line
		}
		return token{kind: tokNewline, line: line}
	}
	return p.toks[p.pos]
}

func (p *parser) isName(word string) bool {
	t := p.cur()
	return t.kind == tokName && t.text == word
}

func (p *parser) isOp(op string) bool {
	t := p.cur()
	return t.kind == tokOp && t.text == op
}

// atEnd reports whether the current token terminates a simple statement.
func (p *parser) atEnd() bool {
	t := p.cur()
	return t.kind == tokNewline || (t.kind == tokOp && t.text == ";" && t.depth == 0)
}

func (p *parser) errorf(format string, args ...interface{}) error {
	return &SyntaxError{Line: p.cur().line, Msg: fmt.Sprintf(format, args...)}
}
