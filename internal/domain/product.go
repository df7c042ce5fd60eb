package domain

// Product is one sellable catalog item. The catalog is owned by the admin
// side of the shop; the conversation core only ever reads it, and always
// reads it live so that price edits apply to the very next message.
type Product struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Currency    string  `json:"currency"`
	Description string  `json:"description,omitempty"`
}
