package model

import "time"

// ProductRow is one catalog item of the products feed, shaped for the
// products table.
type ProductRow struct {
	ProductCode      string    `json:"product_code"`
	ProductID        *int64    `json:"product_id"`
	Name             string    `json:"name"`
	URL              string    `json:"url"`
	ImgURL           string    `json:"img_url"`
	ShortDescription string    `json:"short_description"`
	DescriptionHTML  string    `json:"description_html"`
	Visibility       string    `json:"visibility"`
	Availability     string    `json:"availability"`
	CategoryIDs      []string  `json:"category_ids"`
	RawXML           string    `json:"raw_xml"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Values returns the columns in products table order.
func (p ProductRow) Values() []any {
	var productID any
	if p.ProductID != nil {
		productID = *p.ProductID
	}

	categories := p.CategoryIDs
	if categories == nil {
		categories = []string{}
	}

	return []any{
		p.ProductCode,
		productID,
		p.Name,
		p.URL,
		p.ImgURL,
		p.ShortDescription,
		p.DescriptionHTML,
		p.Visibility,
		p.Availability,
		categories,
		p.RawXML,
		p.UpdatedAt,
	}
}

// SetItemRow links a set (parent product) to one of the products it contains.
type SetItemRow struct {
	SetCode   string    `json:"set_code"`
	ItemCode  string    `json:"item_code"`
	Amount    float64   `json:"amount"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Values returns the columns in set_items table order.
func (s SetItemRow) Values() []any {
	return []any{s.SetCode, s.ItemCode, s.Amount, s.UpdatedAt}
}
