package token

// Kind represents the category of a source token.
type Kind uint8

const (
	// Invalid marks an erroneous token; the lexer stops producing anything else after it.
	Invalid Kind = iota
	// EOF marks the end of the source input.
	EOF
	// Ident represents an identifier token.
	Ident

	kwBegin
	KwLet
	KwVar
	KwConst
	KwReadonly
	KwFunction
	KwClass
	KwExtends
	KwImplements
	KwInterface
	KwAbstract
	KwStatic
	KwPublic
	KwPrivate
	KwProtected
	KwAsync
	KwAwait
	KwSpawn
	KwReturn
	KwIf
	KwElse
	KwWhile
	KwFor
	KwForeach
	KwIn
	KwDo
	KwBreak
	KwContinue
	KwMatch
	KwSwitch
	KwCase
	KwDefault
	KwTry
	KwCatch
	KwFinally
	KwThrow
	KwNew
	KwThis
	KwSuper
	KwNull
	KwTrue
	KwFalse
	KwImport
	KwExport
	KwBlockchain
	KwContract
	KwLedger
	KwTransaction
	KwValidate
	KwEmit
	KwConstructor
	KwLock
	KwUnlock
	KwIs
	KwTypeof
	KwPayable
	KwView
	KwPure
	kwEnd

	// IntLit is an integer literal, suffix included in Text (10, 0xff, 7L, 3s).
	IntLit
	// FloatLit is a floating literal, suffix included in Text (1.5, 2e3, 1.5f, 2d).
	FloatLit
	// StringLit is a double-quoted string literal; Text keeps quotes and escapes.
	StringLit
	// CharLit is a single-quoted char literal.
	CharLit
	// TemplateLit is a backtick template; its parts are in Token.Template.
	TemplateLit

	Plus             // +
	Minus            // -
	Star             // *
	Slash            // /
	Percent          // %
	Assign           // =
	PlusAssign       // +=
	MinusAssign      // -=
	StarAssign       // *=
	SlashAssign      // /=
	PercentAssign    // %=
	PlusPlus         // ++
	MinusMinus       // --
	EqEq             // ==
	BangEq           // !=
	Lt               // <
	LtEq             // <=
	Gt               // >
	GtEq             // >=
	AndAnd           // &&
	OrOr             // ||
	Bang             // !
	Question         // ?
	QuestionQuestion // ??
	QuestionDot      // ?.
	Colon            // :
	Semicolon        // ;
	Comma            // ,
	Dot              // .
	DotDotDot        // ...
	Arrow            // ->
	FatArrow         // =>
	LParen           // (
	RParen           // )
	LBrace           // {
	RBrace           // }
	LBracket         // [
	RBracket         // ]
	At               // @
	Hash             // #
	Underscore       // _
)

// IsKeyword reports whether k is a reserved word.
func (k Kind) IsKeyword() bool { return k > kwBegin && k < kwEnd }

// IsLiteral reports whether k is a literal kind (keywords true/false/null are not included).
func (k Kind) IsLiteral() bool { return k >= IntLit && k <= TemplateLit }

// IsAssignOp reports whether k is '=' or a compound assignment.
func (k Kind) IsAssignOp() bool { return k >= Assign && k <= PercentAssign }

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return "Kind(?)"
}

var kindNames = [...]string{
	Invalid:          "invalid",
	EOF:              "end of file",
	Ident:            "identifier",
	IntLit:           "integer literal",
	FloatLit:         "float literal",
	StringLit:        "string literal",
	CharLit:          "char literal",
	TemplateLit:      "template string",
	Plus:             "'+'",
	Minus:            "'-'",
	Star:             "'*'",
	Slash:            "'/'",
	Percent:          "'%'",
	Assign:           "'='",
	PlusAssign:       "'+='",
	MinusAssign:      "'-='",
	StarAssign:       "'*='",
	SlashAssign:      "'/='",
	PercentAssign:    "'%='",
	PlusPlus:         "'++'",
	MinusMinus:       "'--'",
	EqEq:             "'=='",
	BangEq:           "'!='",
	Lt:               "'<'",
	LtEq:             "'<='",
	Gt:               "'>'",
	GtEq:             "'>='",
	AndAnd:           "'&&'",
	OrOr:             "'||'",
	Bang:             "'!'",
	Question:         "'?'",
	QuestionQuestion: "'??'",
	QuestionDot:      "'?.'",
	Colon:            "':'",
	Semicolon:        "';'",
	Comma:            "','",
	Dot:              "'.'",
	DotDotDot:        "'...'",
	Arrow:            "'->'",
	FatArrow:         "'=>'",
	LParen:           "'('",
	RParen:           "')'",
	LBrace:           "'{'",
	RBrace:           "'}'",
	LBracket:         "'['",
	RBracket:         "']'",
	At:               "'@'",
	Hash:             "'#'",
	Underscore:       "'_'",
}

func init() {
	for word, k := range keywords {
		kindNames[k] = "'" + word + "'"
	}
}

// Lexeme returns the source spelling of operators and keywords
// ("+", "let"); other kinds return "".
func (k Kind) Lexeme() string {
	s := k.String()
	if len(s) >= 3 && s[0] == '\'' && s[len(s)-1] == '\'' {
		return s[1 : len(s)-1]
	}
	return ""
}
