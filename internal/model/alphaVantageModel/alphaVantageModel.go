package alphaVantageModel

type RawIntraday struct {
	MetaData     *MetaData            `json:"Meta Data"`
	TimeSeries   map[string]RawCandle `json:"Time Series (1min)"`
	ErrorMessage string               `json:"Error Message"`
	Note         string               `json:"Note"`
	Information  string               `json:"Information"`
}

type MetaData struct {
	Information   string `json:"1. Information"`
	Symbol        string `json:"2. Symbol"`
	LastRefreshed string `json:"3. Last Refreshed"`
	Interval      string `json:"4. Interval"`
	OutputSize    string `json:"5. Output Size"`
	TimeZone      string `json:"6. Time Zone"`
}

type RawCandle struct {
	Open   string `json:"1. open"`
	High   string `json:"2. high"`
	Low    string `json:"3. low"`
	Close  string `json:"4. close"`
	Volume string `json:"5. volume"`
}
