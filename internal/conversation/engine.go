// Package conversation drives the per-turn state machine: normalize output of
// one inbound message into exactly one reply, mutating the identity's session
// along the way.
package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"billbot/internal/domain"
	"billbot/internal/entitle"
	"billbot/internal/gateway"
	"billbot/internal/intent"
	"billbot/internal/session"
)

// EntitlementGateway answers phone and identifier lookups.
type EntitlementGateway interface {
	LookupByPhone(ctx context.Context, phone string) domain.Result[[]domain.Account]
	LookupByLegalID(ctx context.Context, legalID string) domain.Result[*domain.Account]
}

// DocumentGateway lists and fetches open billing documents.
type DocumentGateway interface {
	ListOpen(ctx context.Context, accountID string) domain.Result[[]domain.Document]
	Fetch(ctx context.Context, accountID, documentID string) domain.Result[*domain.Binary]
}

// Engine orchestrates normalizer output, session store, intent resolver,
// gateways and validator into per-turn transitions.
type Engine struct {
	sessions     domain.SessionRepository
	locks        *session.Locker
	entitlements EntitlementGateway
	documents    DocumentGateway
	audit        domain.AuditStore
	caller       *gateway.Caller
	intents      *intent.Resolver
	logger       *slog.Logger
	now          func() time.Time
}

// Config holds the engine's injected collaborators.
type Config struct {
	Sessions     domain.SessionRepository
	Locks        *session.Locker
	Entitlements EntitlementGateway
	Documents    DocumentGateway
	Audit        domain.AuditStore
	Caller       *gateway.Caller
	Intents      *intent.Resolver
	Logger       *slog.Logger
}

func New(cfg Config) *Engine {
	if cfg.Locks == nil {
		cfg.Locks = session.NewLocker()
	}
	if cfg.Intents == nil {
		cfg.Intents = intent.NewResolver()
	}
	return &Engine{
		sessions:     cfg.Sessions,
		locks:        cfg.Locks,
		entitlements: cfg.Entitlements,
		documents:    cfg.Documents,
		audit:        cfg.Audit,
		caller:       cfg.Caller,
		intents:      cfg.Intents,
		logger:       cfg.Logger,
		now:          time.Now,
	}
}

// Process runs one full turn for an inbound message and returns exactly one
// reply. Processing for the same identity is serialized; a panic anywhere in
// the turn is recovered into a generic retry-later reply so a batch of
// messages keeps going.
func (e *Engine) Process(ctx context.Context, msg domain.Inbound) (reply *domain.Reply) {
	release := e.locks.Acquire(msg.Identity)
	defer release()

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("turn panicked", "identity", msg.Identity, "message_id", msg.MessageID, "panic", r)
			reply = &domain.Reply{}
			reply.AddText(msgInternal)
		}
	}()

	e.logger.Info("processing message",
		"identity", msg.Identity,
		"message_id", msg.MessageID,
		"provider", msg.Provider,
		"text_len", len(msg.Text),
	)

	s := e.loadSession(ctx, msg.Identity)
	if s == nil {
		return e.initialTurn(ctx, msg)
	}

	it := e.intents.Resolve(msg.Text, s.Stage)
	if it == intent.Exit {
		return e.exitTurn(ctx, msg, s)
	}

	switch s.Stage {
	case domain.StageBlocked, domain.StageNoPermission:
		// The advisory offers a human agent; honor that before restarting.
		if it == intent.Human {
			return e.handoffTurn(ctx, msg, s)
		}
		// Any other message restarts the conversation.
		e.deleteSession(ctx, msg.Identity)
		return e.initialTurn(ctx, msg)
	case domain.StageAwaitingID, domain.StageAwaitingNewID:
		return e.identifierTurn(ctx, msg, s, it)
	case domain.StageMenu:
		return e.menuTurn(ctx, msg, s, it)
	default:
		e.deleteSession(ctx, msg.Identity)
		return e.initialTurn(ctx, msg)
	}
}

// loadSession returns the identity's live session, removing a stale one so
// the current message is re-processed as a fresh initial turn.
func (e *Engine) loadSession(ctx context.Context, id domain.Identity) *domain.Session {
	expired, err := e.sessions.IsExpired(ctx, id)
	if err != nil {
		e.logger.Warn("session expiry check failed", "identity", id, "err", err)
		return nil
	}
	if expired {
		e.deleteSession(ctx, id)
		return nil
	}
	s, err := e.sessions.Get(ctx, id)
	if err != nil {
		e.logger.Warn("session load failed", "identity", id, "err", err)
		return nil
	}
	return s
}

// initialTurn handles a message with no live session: look the phone up and
// branch on the entitlement verdict.
func (e *Engine) initialTurn(ctx context.Context, msg domain.Inbound) *domain.Reply {
	reply := &domain.Reply{}
	ev := entitle.EvaluatePhone(string(msg.Identity), e.entitlements.LookupByPhone(ctx, string(msg.Identity)))

	switch ev.Outcome {
	case entitle.OutcomeUnavailable:
		reply.AddText(msgUnavailable)
		return reply

	case entitle.OutcomeUnknown:
		reply.AddText(msgAskIdentifier)
		e.saveTurn(ctx, e.newSession(msg, domain.StageAwaitingID, ev), msg, reply)
		return reply

	case entitle.OutcomeBlocked:
		reply.AddText(msgBlocked)
		e.saveTurn(ctx, e.newSession(msg, domain.StageBlocked, ev), msg, reply)
		return reply

	case entitle.OutcomeNoPermission:
		reply.AddText(msgNoPermission)
		e.saveTurn(ctx, e.newSession(msg, domain.StageNoPermission, ev), msg, reply)
		return reply

	default: // authorized
		reply.AddText(msgGreeting(ev.Contact))
		reply.AddMenu(msgMenuTitle, menuOptions())
		e.saveTurn(ctx, e.newSession(msg, domain.StageMenu, ev), msg, reply)
		return reply
	}
}

// identifierTurn handles the awaiting_identifier and awaiting_new_identifier
// stages. Invalid or unknown identifiers stay in the stage: retries are
// unlimited.
func (e *Engine) identifierTurn(ctx context.Context, msg domain.Inbound, s *domain.Session, it intent.Intent) *domain.Reply {
	reply := &domain.Reply{}

	switch it {
	case intent.Human:
		return e.handoffTurn(ctx, msg, s)

	case intent.IdentifierIn:
		legalID := intent.NormalizeIdentifier(msg.Text)
		ev := entitle.EvaluateAccount(string(msg.Identity), e.entitlements.LookupByLegalID(ctx, legalID))

		switch ev.Outcome {
		case entitle.OutcomeUnavailable:
			reply.AddText(msgUnavailable)
		case entitle.OutcomeUnknown:
			reply.AddText(msgIdentifierNotFound)
		case entitle.OutcomeBlocked:
			s.Stage = domain.StageBlocked
			reply.AddText(msgBlocked)
		case entitle.OutcomeNoPermission:
			reply.AddText(msgIdentifierNoAccess)
		default: // authorized
			s.Stage = domain.StageMenu
			s.Accounts = ev.Accounts
			s.Contact = ev.Contact
			s.PendingID = ""
			reply.AddText(msgGreeting(ev.Contact))
			reply.AddMenu(msgMenuTitle, menuOptions())
		}

	default:
		reply.AddText(msgIdentifierInvalid)
	}

	e.saveTurn(ctx, s, msg, reply)
	return reply
}

// menuTurn handles the menu stage, including the synchronous document
// retrieval action.
func (e *Engine) menuTurn(ctx context.Context, msg domain.Inbound, s *domain.Session, it intent.Intent) *domain.Reply {
	reply := &domain.Reply{}

	switch it {
	case intent.Documents:
		return e.documentsTurn(ctx, msg, s)

	case intent.ChangeID:
		s.Stage = domain.StageAwaitingNewID
		reply.AddText(msgAskNewIdentifier)

	case intent.Human:
		return e.handoffTurn(ctx, msg, s)

	case intent.Menu:
		reply.AddMenu(msgMenuTitle, menuOptions())

	default:
		reply.AddText(msgMenuUnrecognized)
		reply.AddMenu(msgMenuTitle, menuOptions())
	}

	e.saveTurn(ctx, s, msg, reply)
	return reply
}

// documentsTurn re-validates entitlement (a block may have landed
// mid-session), then retrieves open documents for every eligible account,
// sequentially, and audits the retrieval.
func (e *Engine) documentsTurn(ctx context.Context, msg domain.Inbound, s *domain.Session) *domain.Reply {
	reply := &domain.Reply{}
	ev := entitle.EvaluatePhone(string(msg.Identity), e.entitlements.LookupByPhone(ctx, string(msg.Identity)))

	switch ev.Outcome {
	case entitle.OutcomeUnavailable:
		reply.AddText(msgUnavailable)
		e.saveTurn(ctx, s, msg, reply)
		return reply
	case entitle.OutcomeBlocked:
		s.Stage = domain.StageBlocked
		s.Accounts = nil
		reply.AddText(msgBlocked)
		e.saveTurn(ctx, s, msg, reply)
		return reply
	case entitle.OutcomeNoPermission:
		s.Stage = domain.StageNoPermission
		s.Accounts = nil
		reply.AddText(msgNoPermission)
		e.saveTurn(ctx, s, msg, reply)
		return reply
	case entitle.OutcomeUnknown:
		s.Stage = domain.StageAwaitingID
		s.Accounts = nil
		reply.AddText(msgAskIdentifier)
		e.saveTurn(ctx, s, msg, reply)
		return reply
	}

	s.Accounts = ev.Accounts
	s.Contact = ev.Contact

	delivered := 0
	for _, acc := range ev.Accounts {
		delivered += e.retrieveAccountDocuments(ctx, msg, s, acc, reply)
	}
	if delivered == 0 && reply.Empty() {
		reply.AddText(msgNoOpenDocuments)
	}

	reply.AddMenu(msgMenuTitle, menuOptions())
	s.Stage = domain.StageMenu
	e.saveTurn(ctx, s, msg, reply)
	return reply
}

// retrieveAccountDocuments lists and fetches one account's open documents
// into the reply and writes the audit record. Returns how many binaries made
// it into the reply.
func (e *Engine) retrieveAccountDocuments(ctx context.Context, msg domain.Inbound, s *domain.Session, acc domain.Account, reply *domain.Reply) int {
	listed := e.documents.ListOpen(ctx, acc.ID)
	if !listed.Success {
		e.logger.Warn("document listing failed", "account", acc.ID, "err", listed.Err)
		reply.AddText(msgDocumentFetchFailed)
		return 0
	}
	if len(listed.Data) == 0 {
		return 0
	}

	reply.AddText(msgAccountHeader(acc))
	delivered := 0
	for _, doc := range listed.Data {
		fetched := e.documents.Fetch(ctx, acc.ID, doc.ID)
		if !fetched.Success {
			e.logger.Warn("document fetch failed", "account", acc.ID, "document", doc.ID, "err", fetched.Err)
			reply.AddText(msgDocumentFetchFailed)
			continue
		}
		reply.AddDocument(msgDocumentCaption(doc), fetched.Data)
		delivered++
	}

	e.appendAudit(ctx, msg, s, acc)
	return delivered
}

// appendAudit writes the retrieval record through the resilient caller; the
// persistence layer's stale-statement condition is retried there.
func (e *Engine) appendAudit(ctx context.Context, msg domain.Inbound, s *domain.Session, acc domain.Account) {
	if e.audit == nil {
		return
	}
	entry := domain.AuditEntry{
		MessageID:  msg.MessageID,
		AccountID:  acc.ID,
		LegalID:    acc.LegalID,
		Transcript: append(append([]string(nil), s.Transcript...), "user: "+msg.Text),
	}

	write := func(ctx context.Context) error { return e.audit.Append(ctx, entry) }
	var err error
	if e.caller != nil {
		err = e.caller.Do(ctx, "audit.append", write, nil)
	} else {
		err = write(ctx)
	}
	if err != nil {
		e.logger.Error("audit append failed", "message_id", msg.MessageID, "account", acc.ID, "err", err)
	}
}

// exitTurn deletes the session from any stage and says goodbye.
func (e *Engine) exitTurn(ctx context.Context, msg domain.Inbound, s *domain.Session) *domain.Reply {
	e.deleteSession(ctx, msg.Identity)
	reply := &domain.Reply{}
	reply.AddText(msgFarewell)
	e.logger.Info("session ended by user", "identity", msg.Identity, "stage", s.Stage)
	return reply
}

// handoffTurn ends the bot conversation and hands the user to a human agent.
func (e *Engine) handoffTurn(ctx context.Context, msg domain.Inbound, s *domain.Session) *domain.Reply {
	e.deleteSession(ctx, msg.Identity)
	reply := &domain.Reply{}
	reply.AddText(msgHandoff)
	e.logger.Info("handoff to human agent", "identity", msg.Identity, "stage", s.Stage)
	return reply
}

func (e *Engine) newSession(msg domain.Inbound, stage domain.Stage, ev entitle.Evaluation) *domain.Session {
	return &domain.Session{
		Identity: msg.Identity,
		Stage:    stage,
		Accounts: ev.Accounts,
		Contact:  ev.Contact,
	}
}

// saveTurn stamps the interaction time, extends the transcript with this
// turn's exchange and persists the session.
func (e *Engine) saveTurn(ctx context.Context, s *domain.Session, msg domain.Inbound, reply *domain.Reply) {
	s.Touch(e.now())
	s.Log("user: " + msg.Text)
	for _, item := range reply.Items {
		if item.Text != "" {
			s.Log("bot: " + item.Text)
		}
	}
	if err := e.sessions.Put(ctx, s); err != nil {
		e.logger.Error("session save failed", "identity", s.Identity, "err", err)
	}
}

func (e *Engine) deleteSession(ctx context.Context, id domain.Identity) {
	if err := e.sessions.Delete(ctx, id); err != nil {
		e.logger.Warn("session delete failed", "identity", id, "err", err)
	}
}

// Describe returns a short operator-facing summary of a turn for logs.
func Describe(msg domain.Inbound, reply *domain.Reply) string {
	return fmt.Sprintf("identity=%s message=%s items=%d", msg.Identity, msg.MessageID, len(reply.Items))
}
