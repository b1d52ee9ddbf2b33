package parser

import (
	"gard/internal/ast"
	"gard/internal/diag"
	"gard/internal/lexer"
	"gard/internal/source"
	"gard/internal/token"
)

// Parser: состояние разбора одного файла (или одной дырки шаблона).
type Parser struct {
	file *source.File
	toks []token.Token
	pos  int
	prev source.Span // span последнего съеденного токена

	// noArrow запрещает `x => ...` и `(..) => ...` на верхнем уровне
	// образца match, где `=>` разделяет образец и тело.
	noArrow bool
}

// Parse builds the AST of one file from its tokens. The error is a
// *SyntaxError; a trailing EOF token is synthesized when missing.
func Parse(file *source.File, toks []token.Token) (f *ast.File, err error) {
	p := newParser(file, toks)
	defer func() {
		if r := recover(); r != nil {
			b, ok := r.(bailout)
			if !ok {
				panic(r)
			}
			f, err = nil, b.err
		}
	}()
	f = p.parseFile()
	if serr := checkNamedArgs(f); serr != nil {
		return nil, serr
	}
	return f, nil
}

// ParseFile lexes and parses a file from the set. Lexing failures are
// returned as the original *lexer.LexError.
func ParseFile(fs *source.FileSet, id source.FileID) (*ast.File, error) {
	file := fs.Get(id)
	toks, err := lexer.Tokenize(file, lexer.Options{})
	if err != nil {
		return nil, err
	}
	return Parse(file, toks)
}

func newParser(file *source.File, toks []token.Token) *Parser {
	if len(toks) == 0 || toks[len(toks)-1].Kind != token.EOF {
		var end source.Span
		if len(toks) > 0 {
			last := toks[len(toks)-1].Span
			end = source.Span{File: last.File, Start: last.End, End: last.End}
		} else if file != nil {
			end = source.Span{File: file.ID}
		}
		toks = append(toks[:len(toks):len(toks)], token.Token{Kind: token.EOF, Span: end})
	}
	return &Parser{file: file, toks: toks}
}

func (p *Parser) parseFile() *ast.File {
	start := p.peek().Span
	f := &ast.File{}
	if p.file != nil {
		f.Path = p.file.Path
	}
	for !p.at(token.EOF) {
		if p.accept(token.Semicolon) {
			continue
		}
		f.Items = append(f.Items, p.parseItem())
	}
	f.Loc = ast.At(start.Cover(p.peek().Span))
	return f
}

// ===== Работа с потоком токенов =====

func (p *Parser) peek() token.Token { return p.toks[p.pos] }

func (p *Parser) peekAt(n int) token.Token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}

func (p *Parser) at(k token.Kind) bool { return p.toks[p.pos].Kind == k }

func (p *Parser) advance() token.Token {
	tok := p.toks[p.pos]
	if tok.Kind != token.EOF {
		p.pos++
		p.prev = tok.Span
	}
	return tok
}

func (p *Parser) accept(k token.Kind) bool {
	if p.at(k) {
		p.advance()
		return true
	}
	return false
}

// expect съедает токен вида k или завершает разбор ошибкой.
func (p *Parser) expect(k token.Kind) token.Token {
	if p.at(k) {
		return p.advance()
	}
	p.failExpected(k.String())
	return token.Token{}
}

// expectWord принимает идентификатор или ключевое слово (имена членов).
func (p *Parser) expectWord(what string) token.Token {
	if p.peek().IsWord() {
		return p.advance()
	}
	p.failExpected(what)
	return token.Token{}
}

func (p *Parser) expectIdent(what string) token.Token {
	if p.at(token.Ident) {
		return p.advance()
	}
	p.failExpected(what)
	return token.Token{}
}

// span покрывает всё от start до последнего съеденного токена.
func (p *Parser) span(start source.Span) source.Span {
	return start.Cover(p.prev)
}

// ===== Ошибки =====

func (p *Parser) failExpected(expected ...string) {
	tok := p.peek()
	panic(bailout{&SyntaxError{
		Code:     diag.SynUnexpectedToken,
		Expected: expected,
		Found:    tok,
		Span:     tok.Span,
	}})
}

func (p *Parser) failAt(code diag.Code, tok token.Token, sp source.Span, msg string) {
	panic(bailout{&SyntaxError{Code: code, Found: tok, Span: sp, Msg: msg}})
}

// allowArrows снимает noArrow внутри скобок; вызывать через defer.
func (p *Parser) allowArrows() func() {
	saved := p.noArrow
	p.noArrow = false
	return func() { p.noArrow = saved }
}
