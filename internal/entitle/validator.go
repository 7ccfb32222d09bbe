// Package entitle interprets entitlement gateway results into conversation
// outcomes: blocked, authorized, no billing permission, unknown identity, or
// gateway unavailable.
package entitle

import (
	"billbot/internal/domain"
)

// Outcome is the validator's verdict for one lookup.
type Outcome string

const (
	// OutcomeUnavailable means the gateway call itself failed after retries.
	OutcomeUnavailable Outcome = "unavailable"
	// OutcomeUnknown means no account matches the phone or identifier.
	OutcomeUnknown Outcome = "unknown"
	// OutcomeBlocked means every matched account is blocked.
	OutcomeBlocked Outcome = "blocked"
	// OutcomeNoPermission means the identity is known but the caller's phone
	// has no billing authorization on any unblocked account.
	OutcomeNoPermission Outcome = "no_permission"
	// OutcomeAuthorized means at least one account is unblocked with a
	// billing-authorized contact for the caller's phone.
	OutcomeAuthorized Outcome = "authorized"
)

// Evaluation is the collapsed result: the eligible account subset and the
// contact the caller is acting as.
type Evaluation struct {
	Outcome  Outcome
	Accounts []domain.Account
	Contact  *domain.Contact
}

// EvaluatePhone interprets a lookup-by-phone result. Each account is
// validated independently; the evaluation collapses to the subset that is
// both unblocked and has an authorized contact for the phone.
func EvaluatePhone(phone string, res domain.Result[[]domain.Account]) Evaluation {
	if !res.Success {
		return Evaluation{Outcome: OutcomeUnavailable}
	}
	return evaluate(phone, res.Data)
}

// EvaluateAccount interprets a lookup-by-identifier result: exactly one
// account or not-found.
func EvaluateAccount(phone string, res domain.Result[*domain.Account]) Evaluation {
	if !res.Success {
		return Evaluation{Outcome: OutcomeUnavailable}
	}
	if res.Data == nil {
		return Evaluation{Outcome: OutcomeUnknown}
	}
	return evaluate(phone, []domain.Account{*res.Data})
}

func evaluate(phone string, accounts []domain.Account) Evaluation {
	if len(accounts) == 0 {
		return Evaluation{Outcome: OutcomeUnknown}
	}

	var (
		eligible []domain.Account
		contact  *domain.Contact
		blocked  int
	)
	for _, acc := range accounts {
		if acc.Blocked {
			blocked++
			continue
		}
		c := authorizedContact(acc, phone)
		if c == nil {
			continue
		}
		eligible = append(eligible, acc)
		if contact == nil {
			contact = c
		}
	}

	switch {
	case len(eligible) > 0:
		return Evaluation{Outcome: OutcomeAuthorized, Accounts: eligible, Contact: contact}
	case blocked == len(accounts):
		return Evaluation{Outcome: OutcomeBlocked}
	default:
		return Evaluation{Outcome: OutcomeNoPermission}
	}
}

// authorizedContact returns the account's first billing-authorized contact
// matching the phone. When several authorized contacts share the phone the
// first array element wins: an arbitrary but deterministic tie-break.
func authorizedContact(acc domain.Account, phone string) *domain.Contact {
	for i := range acc.Contacts {
		c := &acc.Contacts[i]
		if c.Phone == phone && c.BillingAuthorized {
			return c
		}
	}
	return nil
}
