package diag

import "fmt"

type Code uint16

const (
	UnknownCode Code = 0

	// Лексические
	LexInfo                Code = 1000
	LexInvalidCharacter    Code = 1001
	LexUnterminatedString  Code = 1002
	LexUnterminatedComment Code = 1003

	// Парсерные
	SynInfo             Code = 2000
	SynUnexpectedToken  Code = 2001
	SynLiteralOverflow  Code = 2002
	SynCatchAllNotLast  Code = 2003
	SynUnknownNamedArg  Code = 2004
	SynInvalidTarget    Code = 2005
	SynDuplicateDefault Code = 2006

	// Исполнение
	RunInfo          Code = 3000
	RunUncaught      Code = 3001
	RunStalled       Code = 3002
	RunImport        Code = 3003
	RunEntrypoint    Code = 3004
	RunDeadlineHit   Code = 3005
	RunTaskCancelled Code = 3006

	// Леджер
	LedInfo             Code = 4000
	LedValidationFailed Code = 4001
	LedConflict         Code = 4002
	LedConservation     Code = 4003
	LedChainBroken      Code = 4004

	// Конфигурация
	CfgInfo    Code = 5000
	CfgInvalid Code = 5001
)

var codeDescription = map[Code]string{
	UnknownCode:            "Unknown error",
	LexInfo:                "Lexical information",
	LexInvalidCharacter:    "Invalid character",
	LexUnterminatedString:  "Unterminated string literal",
	LexUnterminatedComment: "Unterminated block comment",
	SynInfo:                "Syntax information",
	SynUnexpectedToken:     "Unexpected token",
	SynLiteralOverflow:     "Numeric literal out of range",
	SynCatchAllNotLast:     "Catch-all arm must be last",
	SynUnknownNamedArg:     "Unknown named argument",
	SynInvalidTarget:       "Invalid assignment target",
	SynDuplicateDefault:    "Duplicate default arm",
	RunInfo:                "Runtime information",
	RunUncaught:            "Uncaught error",
	RunStalled:             "Scheduler stalled",
	RunImport:              "Import failed",
	RunEntrypoint:          "Entrypoint failed",
	RunDeadlineHit:         "Deadline exceeded",
	RunTaskCancelled:       "Task cancelled",
	LedInfo:                "Ledger information",
	LedValidationFailed:    "Validation failed",
	LedConflict:            "Concurrency conflict",
	LedConservation:        "Balance conservation violated",
	LedChainBroken:         "Block chain verification failed",
	CfgInfo:                "Configuration information",
	CfgInvalid:             "Invalid configuration",
}

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("LEX%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("SYN%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("RUN%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("LED%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("CFG%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
