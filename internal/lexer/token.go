// Package lexer turns SPARQL text into positioned tokens.
//
// Parsers consume tokens through the Queue interface, so any token source
// (this tokenizer, a pre-tokenised fixture, a sub-range of another queue)
// can drive them without touching grammar logic.
package lexer

import "fmt"

// Kind identifies the lexical class of a token.
type Kind int

const (
	Unknown Kind = iota

	// Terms
	URI
	QName
	Variable
	BlankNodeWithID
	Literal
	LongLiteral
	PlainLiteral
	LangSpec
	Datatype
	KeywordA

	// Punctuation
	LeftBracket
	RightBracket
	LeftCurlyBracket
	RightCurlyBracket
	LeftSquareBracket
	RightSquareBracket
	Comma
	Semicolon
	Dot
	HatHat
	Assignment

	// Operators
	Or
	And
	Equals
	NotEquals
	LessThan
	GreaterThan
	LessThanOrEqual
	GreaterThanOrEqual
	Plus
	Minus
	Multiply
	Divide
	Negation
	Hat
	Pipe
	QuestionMark

	// Query and update keywords
	Base
	Prefix
	Select
	Ask
	Construct
	Describe
	Where
	From
	Named
	Distinct
	Reduced
	All
	Optional
	Union
	MinusPattern
	Graph
	Filter
	Bind
	Let
	As
	Service
	Silent
	Order
	By
	Asc
	Desc
	Group
	Having
	Limit
	Offset
	Insert
	Delete
	Data
	With
	Using
	Load
	Into
	Clear
	Create
	Drop
	Default

	// Built-in functions
	Bound
	Coalesce
	DatatypeFunc
	Exists
	NotExists
	If
	IRIFunc
	IsBlank
	IsIRI
	IsLiteral
	IsURI
	Lang
	LangMatches
	SameTerm
	Str
	StrDT
	StrLang
	Regex
	URIFunc
	In
	NotIn

	// Aggregates
	Avg
	Count
	GroupConcat
	Max
	Median
	Min
	Mode
	NMax
	NMin
	Sample
	Sum
	Separator
)

var kindNames = map[Kind]string{
	Unknown:            "UNKNOWN",
	URI:                "URI",
	QName:              "QNAME",
	Variable:           "VARIABLE",
	BlankNodeWithID:    "BLANKNODEWITHID",
	Literal:            "LITERAL",
	LongLiteral:        "LONGLITERAL",
	PlainLiteral:       "PLAINLITERAL",
	LangSpec:           "LANGSPEC",
	Datatype:           "DATATYPE",
	KeywordA:           "KEYWORDA",
	LeftBracket:        "LEFTBRACKET",
	RightBracket:       "RIGHTBRACKET",
	LeftCurlyBracket:   "LEFTCURLYBRACKET",
	RightCurlyBracket:  "RIGHTCURLYBRACKET",
	LeftSquareBracket:  "LEFTSQBRACKET",
	RightSquareBracket: "RIGHTSQBRACKET",
	Comma:              "COMMA",
	Semicolon:          "SEMICOLON",
	Dot:                "DOT",
	HatHat:             "HATHAT",
	Assignment:         "ASSIGNMENT",
	Or:                 "OR",
	And:                "AND",
	Equals:             "EQUALS",
	NotEquals:          "NOTEQUALS",
	LessThan:           "LESSTHAN",
	GreaterThan:        "GREATERTHAN",
	LessThanOrEqual:    "LESSTHANOREQUALTO",
	GreaterThanOrEqual: "GREATERTHANOREQUALTO",
	Plus:               "PLUS",
	Minus:              "MINUS",
	Multiply:           "MULTIPLY",
	Divide:             "DIVIDE",
	Negation:           "NEGATION",
	Hat:                "HAT",
	Pipe:               "PIPE",
	QuestionMark:       "QUESTIONMARK",
	Base:               "BASE",
	Prefix:             "PREFIX",
	Select:             "SELECT",
	Ask:                "ASK",
	Construct:          "CONSTRUCT",
	Describe:           "DESCRIBE",
	Where:              "WHERE",
	From:               "FROM",
	Named:              "NAMED",
	Distinct:           "DISTINCT",
	Reduced:            "REDUCED",
	All:                "ALL",
	Optional:           "OPTIONAL",
	Union:              "UNION",
	MinusPattern:       "MINUS_P",
	Graph:              "GRAPH",
	Filter:             "FILTER",
	Bind:               "BIND",
	Let:                "LET",
	As:                 "AS",
	Service:            "SERVICE",
	Silent:             "SILENT",
	Order:              "ORDER",
	By:                 "BY",
	Asc:                "ASC",
	Desc:               "DESC",
	Group:              "GROUP",
	Having:             "HAVING",
	Limit:              "LIMIT",
	Offset:             "OFFSET",
	Insert:             "INSERT",
	Delete:             "DELETE",
	Data:               "DATA",
	With:               "WITH",
	Using:              "USING",
	Load:               "LOAD",
	Into:               "INTO",
	Clear:              "CLEAR",
	Create:             "CREATE",
	Drop:               "DROP",
	Default:            "DEFAULT",
	Bound:              "BOUND",
	Coalesce:           "COALESCE",
	DatatypeFunc:       "DATATYPEFUNC",
	Exists:             "EXISTS",
	NotExists:          "NOTEXISTS",
	If:                 "IF",
	IRIFunc:            "IRI",
	IsBlank:            "ISBLANK",
	IsIRI:              "ISIRI",
	IsLiteral:          "ISLITERAL",
	IsURI:              "ISURI",
	Lang:               "LANG",
	LangMatches:        "LANGMATCHES",
	SameTerm:           "SAMETERM",
	Str:                "STR",
	StrDT:              "STRDT",
	StrLang:            "STRLANG",
	Regex:              "REGEX",
	URIFunc:            "URIFUNC",
	In:                 "IN",
	NotIn:              "NOTIN",
	Avg:                "AVG",
	Count:              "COUNT",
	GroupConcat:        "GROUPCONCAT",
	Max:                "MAX",
	Median:             "MEDIAN",
	Min:                "MIN",
	Mode:               "MODE",
	NMax:               "NMAX",
	NMin:               "NMIN",
	Sample:             "SAMPLE",
	Sum:                "SUM",
	Separator:          "SEPARATOR",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// keywords maps upper-cased words to their keyword kinds.
// "a" is handled separately because it is case-sensitive.
var keywords = map[string]Kind{
	"BASE":         Base,
	"PREFIX":       Prefix,
	"SELECT":       Select,
	"ASK":          Ask,
	"CONSTRUCT":    Construct,
	"DESCRIBE":     Describe,
	"WHERE":        Where,
	"FROM":         From,
	"NAMED":        Named,
	"DISTINCT":     Distinct,
	"REDUCED":      Reduced,
	"ALL":          All,
	"OPTIONAL":     Optional,
	"UNION":        Union,
	"MINUS":        MinusPattern,
	"GRAPH":        Graph,
	"FILTER":       Filter,
	"BIND":         Bind,
	"LET":          Let,
	"AS":           As,
	"SERVICE":      Service,
	"SILENT":       Silent,
	"ORDER":        Order,
	"BY":           By,
	"ASC":          Asc,
	"DESC":         Desc,
	"GROUP":        Group,
	"HAVING":       Having,
	"LIMIT":        Limit,
	"OFFSET":       Offset,
	"INSERT":       Insert,
	"DELETE":       Delete,
	"DATA":         Data,
	"WITH":         With,
	"USING":        Using,
	"LOAD":         Load,
	"INTO":         Into,
	"CLEAR":        Clear,
	"CREATE":       Create,
	"DROP":         Drop,
	"DEFAULT":      Default,
	"BOUND":        Bound,
	"COALESCE":     Coalesce,
	"DATATYPE":     DatatypeFunc,
	"EXISTS":       Exists,
	"IF":           If,
	"IRI":          IRIFunc,
	"ISBLANK":      IsBlank,
	"ISIRI":        IsIRI,
	"ISLITERAL":    IsLiteral,
	"ISURI":        IsURI,
	"LANG":         Lang,
	"LANGMATCHES":  LangMatches,
	"SAMETERM":     SameTerm,
	"STR":          Str,
	"STRDT":        StrDT,
	"STRLANG":      StrLang,
	"REGEX":        Regex,
	"URI":          URIFunc,
	"IN":           In,
	"AVG":          Avg,
	"COUNT":        Count,
	"GROUP_CONCAT": GroupConcat,
	"MAX":          Max,
	"MEDIAN":       Median,
	"MIN":          Min,
	"MODE":         Mode,
	"NMAX":         NMax,
	"NMIN":         NMin,
	"SAMPLE":       Sample,
	"SUM":          Sum,
	"SEPARATOR":    Separator,
}

// Token is a lexical token with its source span (1-based lines and columns,
// end column inclusive).
type Token struct {
	Kind        Kind
	Value       string
	StartLine   int
	StartColumn int
	EndLine     int
	EndColumn   int
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q)@%d:%d", t.Kind, t.Value, t.StartLine, t.StartColumn)
}

// IsAggregate reports whether the kind is an aggregate keyword.
func (k Kind) IsAggregate() bool {
	switch k {
	case Avg, Count, GroupConcat, Max, Median, Min, Mode, NMax, NMin, Sample, Sum:
		return true
	}
	return false
}

// IsBuiltIn reports whether the kind starts a built-in function call.
func (k Kind) IsBuiltIn() bool {
	switch k {
	case Bound, Coalesce, DatatypeFunc, Exists, NotExists, If, IRIFunc, IsBlank, IsIRI,
		IsLiteral, IsURI, Lang, LangMatches, SameTerm, Str, StrDT, StrLang, Regex, URIFunc:
		return true
	}
	return false
}
