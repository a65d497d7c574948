package tgCallback

// Callbacks buttons uniques
const (
	Buy       string = "buy"
	Sell      string = "sell"
	Portfolio string = "portfolio"
	Price     string = "price"
	Surrender string = "surrender"
	Export    string = "export"
)
