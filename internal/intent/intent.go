// Package intent maps free text, menu codes and keyword aliases to canonical
// conversation actions. Resolution is stateless: the caller passes the
// current stage.
package intent

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"billbot/internal/domain"
	"billbot/internal/normalize"

	"gopkg.in/yaml.v3"
)

// Intent is a canonical conversation action.
type Intent string

const (
	Documents    Intent = "documents"
	ChangeID     Intent = "change_identifier"
	Human        Intent = "human"
	Menu         Intent = "menu"
	Exit         Intent = "exit"
	IdentifierIn Intent = "identifier_submitted"
	Unknown      Intent = "unknown"
)

// Legal identifier lengths accepted as identifier-submitted: CPF and CNPJ.
var identifierLengths = map[int]bool{11: true, 14: true}

//go:embed aliases.yaml
var defaultAliases []byte

// aliasTable maps a canonical intent to its accepted surface forms.
type aliasTable map[Intent][]string

// Resolver resolves inbound text against the alias table and stage-scoped
// menu codes.
type Resolver struct {
	aliases aliasTable
}

// NewResolver builds a resolver from the embedded alias table.
func NewResolver() *Resolver {
	r, err := newFromYAML(defaultAliases)
	if err != nil {
		// The embedded table is validated by tests; this is unreachable.
		panic(fmt.Sprintf("intent: embedded alias table: %v", err))
	}
	return r
}

// NewResolverFromFile builds a resolver from a YAML alias file, letting
// deployments extend the accepted surface forms without a rebuild.
func NewResolverFromFile(path string) (*Resolver, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read alias table %s: %w", path, err)
	}
	return newFromYAML(raw)
}

func newFromYAML(raw []byte) (*Resolver, error) {
	var table aliasTable
	if err := yaml.Unmarshal(raw, &table); err != nil {
		return nil, fmt.Errorf("parse alias table: %w", err)
	}
	// Normalize surface forms once so Resolve only folds the input.
	for intent, forms := range table {
		folded := make([]string, 0, len(forms))
		for _, f := range forms {
			if f = fold(f); f != "" {
				folded = append(folded, f)
			}
		}
		table[intent] = folded
	}
	return &Resolver{aliases: table}, nil
}

// Resolve maps text to an intent given the current stage. Order: exit
// keywords always win; while awaiting an identifier, a digit string of
// accepted length wins regardless of other matches; then stage-scoped exact
// menu codes; then alias substring matching.
func (r *Resolver) Resolve(text string, stage domain.Stage) Intent {
	folded := fold(text)
	if folded == "" {
		return Unknown
	}

	if r.matches(Exit, folded) {
		return Exit
	}

	awaiting := stage == domain.StageAwaitingID || stage == domain.StageAwaitingNewID
	if awaiting && identifierLengths[len(normalize.Digits(folded))] {
		return IdentifierIn
	}

	if stage == domain.StageMenu {
		switch folded {
		case "1":
			return Documents
		case "2":
			return ChangeID
		case "3":
			return Human
		case "0":
			return Exit
		}
	}

	// The blocked and no-permission advisories offer "3" for a human agent
	// and "0" to end, so those codes must resolve there too.
	if stage == domain.StageBlocked || stage == domain.StageNoPermission {
		switch folded {
		case "3":
			return Human
		case "0":
			return Exit
		}
	}

	for _, intent := range []Intent{Documents, Human, Menu} {
		if r.matches(intent, folded) {
			return intent
		}
	}
	return Unknown
}

// NormalizeIdentifier returns the digit form of an identifier-submitted text.
func NormalizeIdentifier(text string) string {
	return normalize.Digits(text)
}

func (r *Resolver) matches(intent Intent, folded string) bool {
	for _, form := range r.aliases[intent] {
		if strings.Contains(folded, form) {
			return true
		}
	}
	return false
}

// accentFolder maps the accented runes customers type to their base letters.
var accentFolder = strings.NewReplacer(
	"á", "a", "à", "a", "ã", "a", "â", "a",
	"é", "e", "ê", "e",
	"í", "i",
	"ó", "o", "õ", "o", "ô", "o",
	"ú", "u", "ü", "u",
	"ç", "c",
)

// fold lower-cases, trims and strips accents for matching.
func fold(s string) string {
	return accentFolder.Replace(strings.ToLower(strings.TrimSpace(s)))
}
