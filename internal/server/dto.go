package server

// Request payloads

// AnalyzeRow mirrors the raw feed columns; every field arrives as text and
// goes through the same normalization as file input.
type AnalyzeRow struct {
	Name               string `json:"name"`
	Quantity           string `json:"quant"`
	MeanDailyDepletion string `json:"mdd"`
	ManufactureDate    string `json:"data_fab"`
	ExpiryDate         string `json:"data_val"`
}

type AnalyzeRequest struct {
	AsOf string       `json:"as_of,omitempty" doc:"Evaluation instant (RFC 3339 or feed date format); defaults to now"`
	Rows []AnalyzeRow `json:"rows"`
}

// Response payloads

type PolicyResponse struct {
	HighMaxDays   int     `json:"high_max_days"`
	MediumMaxDays int     `json:"medium_max_days"`
	Normalization string  `json:"normalization" enum:"strip-grouping,comma-decimal"`
	DateOrder     string  `json:"date_order" enum:"dmy,mdy,ymd"`
	BinWidth      float64 `json:"bin_width"`
}
