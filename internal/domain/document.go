package domain

import "time"

// Document is one open billing document listed by the document gateway.
type Document struct {
	ID      string    `json:"id"`
	Number  string    `json:"number"`
	Kind    string    `json:"kind"` // "boleto" | "nfe"
	Amount  float64   `json:"amount"`
	DueDate time.Time `json:"dueDate"`
}

// Binary is a document rendition: PDF or XML container, base64-encoded.
type Binary struct {
	Filename string `json:"filename"`
	MimeType string `json:"mimeType"`
	Base64   string `json:"base64"`
}
