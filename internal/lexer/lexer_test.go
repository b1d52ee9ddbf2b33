package lexer_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"gard/internal/diag"
	"gard/internal/lexer"
	"gard/internal/source"
	"gard/internal/token"
)

// messages форматирует диагностики для сообщений об ошибках теста.
func messages(bag *diag.Bag) []string {
	out := make([]string, 0, bag.Len())
	for _, d := range bag.Items() {
		out = append(out, d.String())
	}
	return out
}

func makeTestLexer(input string) (*lexer.Lexer, *diag.Bag) {
	fs := source.NewFileSet()
	file := fs.Get(fs.AddVirtual("test.gard", []byte(input)))
	bag := diag.NewBag(16)
	return lexer.New(file, lexer.Options{Reporter: bag}), bag
}

// collectAllTokens собирает все токены до EOF или Invalid
func collectAllTokens(lx *lexer.Lexer) []token.Token {
	tokens := make([]token.Token, 0)
	for {
		tok := lx.Next()
		tokens = append(tokens, tok)
		if tok.Kind == token.EOF || tok.Kind == token.Invalid {
			break
		}
	}
	return tokens
}

// expectTokens проверяет последовательность токенов
func expectTokens(t *testing.T, input string, expected []token.Kind) {
	t.Helper()
	lx, reporter := makeTestLexer(input)
	tokens := collectAllTokens(lx)

	// убираем EOF из сравнения
	if len(tokens) > 0 && tokens[len(tokens)-1].Kind == token.EOF {
		tokens = tokens[:len(tokens)-1]
	}

	if len(tokens) != len(expected) {
		t.Fatalf("Expected %d tokens, got %d\nInput: %q\nTokens: %v\nErrors: %v",
			len(expected), len(tokens), input, tokensToString(tokens), messages(reporter))
	}
	for i, tok := range tokens {
		if tok.Kind != expected[i] {
			t.Errorf("Token %d: expected %v, got %v (text: %q)", i, expected[i], tok.Kind, tok.Text)
		}
	}
}

// expectSingleToken проверяет первый токен входа
func expectSingleToken(t *testing.T, input string, expectedKind token.Kind, expectedText string) {
	t.Helper()
	lx, reporter := makeTestLexer(input)
	tok := lx.Next()

	if tok.Kind != expectedKind {
		t.Errorf("Expected kind %v, got %v (errors: %v)", expectedKind, tok.Kind, messages(reporter))
	}
	if tok.Text != expectedText {
		t.Errorf("Expected text %q, got %q", expectedText, tok.Text)
	}
}

// expectLexError проверяет, что вход приводит к фатальной ошибке нужного вида
func expectLexError(t *testing.T, input string, kind lexer.ErrorKind) {
	t.Helper()
	fs := source.NewFileSet()
	file := fs.Get(fs.AddVirtual("test.gd", []byte(input)))
	_, err := lexer.Tokenize(file, lexer.Options{})
	if err == nil {
		t.Fatalf("expected %v for %q, got no error", kind, input)
	}
	var le *lexer.LexError
	if !errors.As(err, &le) {
		t.Fatalf("expected *LexError, got %T", err)
	}
	if le.Kind != kind {
		t.Errorf("input %q: expected %v, got %v (%s)", input, kind, le.Kind, le.Msg)
	}
}

func tokensToString(tokens []token.Token) string {
	parts := make([]string, len(tokens))
	for i, tok := range tokens {
		parts[i] = fmt.Sprintf("%v(%q)", tok.Kind, tok.Text)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// ====== Идентификаторы и ключевые слова ======

func TestIdentifiers(t *testing.T) {
	tests := []struct {
		input string
		text  string
	}{
		{"foo", "foo"},
		{"_bar", "_bar"},
		{"x123", "x123"},
		{"camelCase", "camelCase"},
		{"переменная", "переменная"},
		{"from", "from"},
		{"as", "as"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			expectSingleToken(t, tt.input, token.Ident, tt.text)
		})
	}
}

func TestUnderscore_Single(t *testing.T) {
	expectSingleToken(t, "_", token.Underscore, "_")
}

func TestKeywords(t *testing.T) {
	tests := []struct {
		input string
		kind  token.Kind
	}{
		{"let", token.KwLet},
		{"const", token.KwConst},
		{"function", token.KwFunction},
		{"class", token.KwClass},
		{"async", token.KwAsync},
		{"await", token.KwAwait},
		{"foreach", token.KwForeach},
		{"match", token.KwMatch},
		{"contract", token.KwContract},
		{"ledger", token.KwLedger},
		{"transaction", token.KwTransaction},
		{"validate", token.KwValidate},
		{"lock", token.KwLock},
		{"unlock", token.KwUnlock},
		{"null", token.KwNull},
		{"true", token.KwTrue},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			expectSingleToken(t, tt.input, tt.kind, tt.input)
		})
	}
}

func TestKeywords_CaseSensitive(t *testing.T) {
	expectSingleToken(t, "Let", token.Ident, "Let")
	expectSingleToken(t, "CLASS", token.Ident, "CLASS")
}

// ====== Числа ======

func TestNumbers(t *testing.T) {
	tests := []struct {
		input string
		kind  token.Kind
	}{
		{"0", token.IntLit},
		{"123", token.IntLit},
		{"1_000_000", token.IntLit},
		{"0xFF", token.IntLit},
		{"0b1010", token.IntLit},
		{"0o17", token.IntLit},
		{"7L", token.IntLit},
		{"3s", token.IntLit},
		{"0xFFL", token.IntLit},
		{"1.5", token.FloatLit},
		{".5", token.FloatLit},
		{"2e10", token.FloatLit},
		{"1.5e-3", token.FloatLit},
		{"1.5f", token.FloatLit},
		{"2d", token.FloatLit},
		{"2f", token.FloatLit},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			expectSingleToken(t, tt.input, tt.kind, tt.input)
		})
	}
}

func TestNumbers_MemberAccessAfterInt(t *testing.T) {
	expectTokens(t, "1.toString()", []token.Kind{
		token.IntLit, token.Dot, token.Ident, token.LParen, token.RParen,
	})
}

func TestNumbers_Invalid(t *testing.T) {
	for _, input := range []string{"12abc", "0x", "1.5L", "0b102"} {
		t.Run(input, func(t *testing.T) {
			expectLexError(t, input, lexer.InvalidCharacter)
		})
	}
}

// ====== Строки, символы, шаблоны ======

func TestStrings(t *testing.T) {
	expectSingleToken(t, `"hello"`, token.StringLit, `"hello"`)
	expectSingleToken(t, `"a\nb\t\"q\""`, token.StringLit, `"a\nb\t\"q\""`)
	expectSingleToken(t, `'x'`, token.CharLit, `'x'`)
	expectSingleToken(t, `'\n'`, token.CharLit, `'\n'`)
}

func TestUnquote(t *testing.T) {
	tests := map[string]string{
		`"plain"`:       "plain",
		`"a\nb"`:        "a\nb",
		`"\x41\u{42}"`:  "AB",
		`"q\"uote"`:     `q"uote`,
		`'\t'`:          "\t",
		`"\$notahole"`:  "$notahole",
		`"юникод"`:      "юникод",
		`"back\\slash"`: `back\slash`,
	}
	for raw, want := range tests {
		if got := lexer.Unquote(raw); got != want {
			t.Errorf("Unquote(%s) = %q, want %q", raw, got, want)
		}
	}
}

func TestStrings_Errors(t *testing.T) {
	expectLexError(t, `"never closed`, lexer.UnterminatedString)
	expectLexError(t, "\"line\nbreak\"", lexer.UnterminatedString)
	expectLexError(t, `"bad \q escape"`, lexer.InvalidCharacter)
	expectLexError(t, `''`, lexer.InvalidCharacter)
	expectLexError(t, `'ab'`, lexer.InvalidCharacter)
	expectLexError(t, "`open ${x", lexer.UnterminatedString)
}

func TestTemplate_Parts(t *testing.T) {
	lx, reporter := makeTestLexer("`Hello, ${user.name}! You have ${ {a: 1}.a + n } items`")
	tok := lx.Next()
	if tok.Kind != token.TemplateLit {
		t.Fatalf("expected template, got %v: %v", tok.Kind, messages(reporter))
	}
	if len(tok.Template) != 3 {
		t.Fatalf("expected 3 parts, got %d", len(tok.Template))
	}

	p0 := tok.Template[0]
	if p0.Text != "Hello, " || !p0.HasExpr {
		t.Errorf("part 0: %+v", p0)
	}
	if p0.ExprSpan.Start != 10 || p0.ExprSpan.End <= p0.ExprSpan.Start {
		t.Errorf("part 0 expr span: %+v", p0.ExprSpan)
	}
	wantKinds := []token.Kind{token.Ident, token.Dot, token.Ident, token.EOF}
	if len(p0.Expr) != len(wantKinds) {
		t.Fatalf("part 0 expr: %s", tokensToString(p0.Expr))
	}
	for i, k := range wantKinds {
		if p0.Expr[i].Kind != k {
			t.Errorf("part 0 expr[%d]: expected %v, got %v", i, k, p0.Expr[i].Kind)
		}
	}

	// вложенные скобки внутри дырки не закрывают её
	p1 := tok.Template[1]
	if p1.Text != "! You have " || !p1.HasExpr {
		t.Errorf("part 1: %+v", p1)
	}
	if last := p1.Expr[len(p1.Expr)-1]; last.Kind != token.EOF {
		t.Errorf("part 1 expr must end with EOF, got %v", last.Kind)
	}

	p2 := tok.Template[2]
	if p2.Text != " items" || p2.HasExpr {
		t.Errorf("part 2: %+v", p2)
	}

	if next := lx.Next(); next.Kind != token.EOF {
		t.Errorf("expected EOF after template, got %v", next.Kind)
	}
}

// ====== Операторы ======

func TestOperators_Greedy(t *testing.T) {
	expectTokens(t, "a += b ?? c?.d => ...e", []token.Kind{
		token.Ident, token.PlusAssign, token.Ident, token.QuestionQuestion,
		token.Ident, token.QuestionDot, token.Ident, token.FatArrow,
		token.DotDotDot, token.Ident,
	})
	expectTokens(t, "x++ - --y", []token.Kind{
		token.Ident, token.PlusPlus, token.Minus, token.MinusMinus, token.Ident,
	})
	expectTokens(t, "a -> b : 10", []token.Kind{
		token.Ident, token.Arrow, token.Ident, token.Colon, token.IntLit,
	})
	expectTokens(t, "#{1} @event", []token.Kind{
		token.Hash, token.LBrace, token.IntLit, token.RBrace, token.At, token.Ident,
	})
}

func TestOperators_TernaryWithFraction(t *testing.T) {
	expectTokens(t, "c?.5:1", []token.Kind{
		token.Ident, token.Question, token.FloatLit, token.Colon, token.IntLit,
	})
}

func TestOperators_UnknownCharacter(t *testing.T) {
	expectLexError(t, "let a = 1 ^ 2;", lexer.InvalidCharacter)
	lx, reporter := makeTestLexer("a $ b")
	toks := collectAllTokens(lx)
	if toks[len(toks)-1].Kind != token.Invalid {
		t.Fatalf("expected Invalid, got %s", tokensToString(toks))
	}
	if reporter.Len() != 1 || reporter.Items()[0].Code != diag.LexInvalidCharacter {
		t.Errorf("expected one LEX diagnostic, got %v", messages(reporter))
	}
	// после ошибки лексер больше ничего не выдаёт
	if lx.Next().Kind != token.Invalid {
		t.Errorf("lexer must stay in error state")
	}
}

// ====== Trivia ======

func TestTrivia_Comments(t *testing.T) {
	lx, _ := makeTestLexer("/// doc\n/* a /* nested */ b */ // tail\nlet")
	tok := lx.Next()
	if tok.Kind != token.KwLet {
		t.Fatalf("expected let, got %v", tok.Kind)
	}
	if got := tok.Doc(); got != "doc" {
		t.Errorf("Doc() = %q", got)
	}
	var kinds []token.TriviaKind
	for _, tv := range tok.Leading {
		kinds = append(kinds, tv.Kind)
	}
	want := []token.TriviaKind{
		token.TriviaDocLine, token.TriviaNewline, token.TriviaBlockComment,
		token.TriviaSpace, token.TriviaLineComment, token.TriviaNewline,
	}
	if len(kinds) != len(want) {
		t.Fatalf("trivia kinds = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("trivia %d: got %v, want %v", i, kinds[i], want[i])
		}
	}
}

func TestTrivia_UnterminatedComment(t *testing.T) {
	expectLexError(t, "let a /* oops", lexer.UnterminatedComment)
}

func TestSpans(t *testing.T) {
	lx, _ := makeTestLexer("let  total")
	_ = lx.Next()
	tok := lx.Next()
	if tok.Span.Start != 5 || tok.Span.End != 10 {
		t.Errorf("span = %v", tok.Span)
	}
}

func TestPeek_DoesNotConsume(t *testing.T) {
	lx, _ := makeTestLexer("a b")
	if p := lx.Peek(); p.Text != "a" {
		t.Fatalf("peek = %q", p.Text)
	}
	if n := lx.Next(); n.Text != "a" {
		t.Fatalf("next = %q", n.Text)
	}
	if n := lx.Next(); n.Text != "b" {
		t.Fatalf("next = %q", n.Text)
	}
}
