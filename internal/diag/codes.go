package diag

import "fmt"

type Code uint16

const (
	UnknownCode Code = 0

	// Grammar declarations
	GrmInfo                Code = 1000
	GrmSymbolRedeclared    Code = 1001
	GrmUnknownSymbol       Code = 1002
	GrmUnknownSort         Code = 1003
	GrmIndexedHead         Code = 1004
	GrmDuplicateOccurrence Code = 1005
	GrmConditionNotBool    Code = 1006
	GrmAssignSortMismatch  Code = 1007
	GrmBadAssignTarget     Code = 1008
	GrmDoubleAssignment    Code = 1009
	GrmForwardReference    Code = 1010
	GrmMissingAssignment   Code = 1011
	GrmDuplicateRuleName   Code = 1012
	GrmTerminalCycle       Code = 1013
	GrmSealed              Code = 1014
	GrmHeadIsTerminalRule  Code = 1015
	GrmLookaheadConflict   Code = 1016
	GrmBadTerm             Code = 1017

	// Priorities
	PriInfo          Code = 2000
	PriNotTerminal   Code = 2001
	PriSelf          Code = 2002
	PriDuplicate     Code = 2003
	PriConditionSort Code = 2004
	PriCycle         Code = 2005

	// Lexers
	LexInfo           Code = 3000
	LexUnknownSymbol  Code = 3001
	LexNotTerminal    Code = 3002
	LexSortMismatch   Code = 3003
	LexDuplicate      Code = 3004
	LexLookahead      Code = 3005
	LexMissing        Code = 3006
	LexUnknownGrammar Code = 3007
	LexBadPosition    Code = 3008

	// Encoding
	EncInfo      Code = 4000
	EncNoCodec   Code = 4001
	EncMalformed Code = 4002
	EncSchema    Code = 4003

	// Syntax tree conversion
	SynInfo               Code = 5000
	SynNestedAlternatives Code = 5001
	SynUnknownRule        Code = 5002
	SynUnknownSymbol      Code = 5003

	// Configuration
	CfgInfo     Code = 6000
	CfgDecode   Code = 6001
	CfgUnknown  Code = 6002
	CfgValidate Code = 6003
)

var codeDescription = map[Code]string{
	UnknownCode:            "Unknown error",
	GrmInfo:                "Grammar information",
	GrmSymbolRedeclared:    "Symbol redeclared with a different kind",
	GrmUnknownSymbol:       "Unknown symbol",
	GrmUnknownSort:         "Unknown sort",
	GrmIndexedHead:         "Rule head must not carry an index",
	GrmDuplicateOccurrence: "Symbol occurrence appears twice in a rule",
	GrmConditionNotBool:    "Condition is not BOOL",
	GrmAssignSortMismatch:  "Assignment sides have different sorts",
	GrmBadAssignTarget:     "Assignment target is not assignable",
	GrmDoubleAssignment:    "Attribute assigned twice",
	GrmForwardReference:    "Term references an attribute that is not yet available",
	GrmMissingAssignment:   "Attribute is never assigned",
	GrmDuplicateRuleName:   "Duplicate rule name for symbol",
	GrmTerminalCycle:       "Terminal depends on itself",
	GrmSealed:              "Grammar is sealed",
	GrmHeadIsTerminalRule:  "Rule head is unknown or malformed",
	GrmLookaheadConflict:   "Conflicting lookahead declaration",
	GrmBadTerm:             "Malformed term",
	PriInfo:                "Priority information",
	PriNotTerminal:         "Priority relates a non-terminal",
	PriSelf:                "Terminal prioritized against itself",
	PriDuplicate:           "Duplicate priority",
	PriConditionSort:       "Priority condition is not BOOL",
	PriCycle:               "Unconditional priorities form a cycle",
	LexInfo:                "Lexer information",
	LexUnknownSymbol:       "Lexer for unknown symbol",
	LexNotTerminal:         "Lexer for a non-terminal",
	LexSortMismatch:        "Lexer sorts do not match terminal",
	LexDuplicate:           "Two lexers for one terminal",
	LexLookahead:           "Lexer for a lookahead terminal",
	LexMissing:             "Terminal has neither lexer nor rules",
	LexUnknownGrammar:      "Unknown grammar",
	LexBadPosition:         "Start position outside the input",
	EncInfo:                "Encoding information",
	EncNoCodec:             "Attribute sort has no codec",
	EncMalformed:           "Malformed encoded forest",
	EncSchema:              "Unsupported forest schema version",
	SynInfo:                "Syntax tree information",
	SynNestedAlternatives:  "Alternative carries nested alternatives",
	SynUnknownRule:         "Forest references an unknown rule",
	SynUnknownSymbol:       "Forest references a symbol missing from the grammar",
	CfgInfo:                "Configuration information",
	CfgDecode:              "Cannot decode configuration",
	CfgUnknown:             "Unknown configuration key",
	CfgValidate:            "Invalid configuration value",
}

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("GRM%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("PRI%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("LEX%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("ENC%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("SYN%04d", ic)
	case ic >= 6000 && ic < 7000:
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
