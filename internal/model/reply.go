package model

type Command int

const (
	CmdText Command = iota
	CmdStart
	CmdBuy
	CmdSell
	CmdPrice
	CmdPortfolio
	CmdSurrender
	CmdExport
	CmdUnknown
)

// Input is one inbound user message. Args holds the text after a command,
// Text holds free-form replies. FromMenu marks commands picked from the menu
// buttons rather than typed.
type Input struct {
	Command  Command
	Args     string
	Text     string
	FromMenu bool
}

type ReplyKind int

const (
	ReplyChooseCommand ReplyKind = iota
	ReplyWelcome
	ReplyPromptSymbol
	ReplyPromptAmount
	ReplyQuote
	ReplyTrade
	ReplyPortfolio
	ReplySurrendered
	ReplyStatement
	ReplyError
)

// Reply is the plain result of handling an Input. Only the fields relevant to
// Kind are set; Err is set for ReplyError.
type Reply struct {
	Kind       ReplyKind
	Intent     Intent
	Quote      *Quote
	Series     []PricePoint
	Trade      *TradeResult
	Portfolio  *PortfolioReport
	Statement  *Statement
	HadAccount bool
	Err        error
	ShowMenu   bool
}
