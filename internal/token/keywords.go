package token

var keywords = map[string]Kind{
	"let":         KwLet,
	"var":         KwVar,
	"const":       KwConst,
	"readonly":    KwReadonly,
	"function":    KwFunction,
	"class":       KwClass,
	"extends":     KwExtends,
	"implements":  KwImplements,
	"interface":   KwInterface,
	"abstract":    KwAbstract,
	"static":      KwStatic,
	"public":      KwPublic,
	"private":     KwPrivate,
	"protected":   KwProtected,
	"async":       KwAsync,
	"await":       KwAwait,
	"spawn":       KwSpawn,
	"return":      KwReturn,
	"if":          KwIf,
	"else":        KwElse,
	"while":       KwWhile,
	"for":         KwFor,
	"foreach":     KwForeach,
	"in":          KwIn,
	"do":          KwDo,
	"break":       KwBreak,
	"continue":    KwContinue,
	"match":       KwMatch,
	"switch":      KwSwitch,
	"case":        KwCase,
	"default":     KwDefault,
	"try":         KwTry,
	"catch":       KwCatch,
	"finally":     KwFinally,
	"throw":       KwThrow,
	"new":         KwNew,
	"this":        KwThis,
	"super":       KwSuper,
	"null":        KwNull,
	"true":        KwTrue,
	"false":       KwFalse,
	"import":      KwImport,
	"export":      KwExport,
	"blockchain":  KwBlockchain,
	"contract":    KwContract,
	"ledger":      KwLedger,
	"transaction": KwTransaction,
	"validate":    KwValidate,
	"emit":        KwEmit,
	"constructor": KwConstructor,
	"lock":        KwLock,
	"unlock":      KwUnlock,
	"is":          KwIs,
	"typeof":      KwTypeof,
	"payable":     KwPayable,
	"view":        KwView,
	"pure":        KwPure,
}

// LookupKeyword возвращает Kind ключевого слова. Регистр важен.
func LookupKeyword(ident string) (Kind, bool) {
	k, ok := keywords[ident]
	return k, ok
}

// Keywords returns every reserved word; order is unspecified.
func Keywords() []string {
	out := make([]string, 0, len(keywords))
	for w := range keywords {
		out = append(out, w)
	}
	return out
}
