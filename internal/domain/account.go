package domain

// Account is a billable legal entity the bot can retrieve documents for.
type Account struct {
	ID       string    `json:"id"`
	LegalID  string    `json:"legalId"` // CPF (11 digits) or CNPJ (14 digits)
	Name     string    `json:"name"`
	Blocked  bool      `json:"blocked"`
	Contacts []Contact `json:"contacts"`
}

// Contact is a person associated with an account, optionally authorized to
// request billing documents.
type Contact struct {
	Name              string `json:"name"`
	Phone             string `json:"phone"`
	BillingAuthorized bool   `json:"billingAuthorized"`
}
