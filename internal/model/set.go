package model

// SetSummary is the public view of a set (or any product) served by the read API.
type SetSummary struct {
	Code        string `json:"code" db:"code" bigquery:"code"`
	Name        string `json:"name" db:"name" bigquery:"name"`
	URL         string `json:"url" db:"url" bigquery:"url"`
	ImgURL      string `json:"imgUrl" db:"img_url" bigquery:"imgUrl"`
	Description string `json:"description" db:"description" bigquery:"description"`
}

// SetItem is a product contained in a set, joined with its catalog data.
type SetItem struct {
	Code         string  `json:"code" db:"code" bigquery:"code"`
	Amount       float64 `json:"amount" db:"amount" bigquery:"amount"`
	Name         string  `json:"name" db:"name" bigquery:"name"`
	URL          string  `json:"url" db:"url" bigquery:"url"`
	ImgURL       string  `json:"imgUrl" db:"img_url" bigquery:"imgUrl"`
	Description  string  `json:"description" db:"description" bigquery:"description"`
	Availability string  `json:"availability" db:"availability" bigquery:"availability"`
}
