package outbound

import (
	"context"
	"fmt"

	"github.com/hull-connectors/planhat/internal/domain/hull"
	"github.com/hull-connectors/planhat/internal/domain/integration"
	"github.com/hull-connectors/planhat/internal/domain/planhat"
	"github.com/hull-connectors/planhat/internal/domain/shared"
	"github.com/hull-connectors/planhat/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

const anonymousIDPrefix = "planhat:"

// Agent drives the outbound synchronization of one connector. Records are
// processed sequentially in notification order; an error returned by any
// Send method is a transport fault and aborts the rest of the batch.
type Agent struct {
	settings    *integration.ConnectorSettings
	service     integration.ServiceClient
	platform    integration.PlatformClient
	filter      *FilterEngine
	mapper      *Mapper
	patch       *PatchDetector
	journal     integration.SyncJournal
	connectorID string
	metrics     *telemetry.SyncMetrics
	logger      *zap.Logger
}

// AgentOption configures optional Agent collaborators
type AgentOption func(*Agent)

// WithJournal records every routed outcome of the connector in journal.
func WithJournal(connectorID string, journal integration.SyncJournal) AgentOption {
	return func(a *Agent) {
		a.connectorID = connectorID
		a.journal = journal
	}
}

// WithMetrics counts routed outcomes.
func WithMetrics(metrics *telemetry.SyncMetrics) AgentOption {
	return func(a *Agent) {
		a.metrics = metrics
	}
}

// NewAgent creates an Agent
func NewAgent(
	settings *integration.ConnectorSettings,
	service integration.ServiceClient,
	platform integration.PlatformClient,
	logger *zap.Logger,
	opts ...AgentOption,
) *Agent {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Agent{
		settings: settings,
		service:  service,
		platform: platform,
		filter:   NewFilterEngine(settings),
		mapper:   NewMapper(settings),
		patch:    NewPatchDetector(settings),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ---------------------------------------------------------------------------
// User pipeline
// ---------------------------------------------------------------------------

// SendUserMessages synchronizes users to contacts and forwards their events.
// isBatch disables the segment and change filters.
func (a *Agent) SendUserMessages(ctx context.Context, messages []*hull.UserUpdateMessage, isBatch bool) error {
	if !a.settings.CanCommunicateWithAPI() {
		a.logger.Debug("skipping user messages, no personal access token configured",
			zap.Int("messages", len(messages)))
		return nil
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "outbound", "send_user_messages")
	defer span.End()
	telemetry.SetAttributes(span, "messages.count", len(messages), "messages.is_batch", isBatch)

	envelopes := a.filter.FilterUserMessages(messages, isBatch)
	toProcess, filtered := integration.Partition(envelopes)
	for _, e := range filtered {
		a.record(ctx, userRef(e.Message), outcome{op: integration.OperationSkip, status: integration.SyncStatusSkipped, reason: e.Reason})
	}
	telemetry.SetAttributes(span, "messages.filtered", len(filtered))
	if len(toProcess) == 0 {
		return nil
	}

	dict := a.mapper.MapUserEnvelopesToAccountDict(toProcess)
	if err := a.resolveCompanies(ctx, dict); err != nil {
		telemetry.RecordError(span, err)
		return err
	}

	for _, e := range toProcess {
		e.ServiceObject = a.mapper.MapUserToContact(e.Message)
		if e.ServiceObject.CompanyID() != "" || !e.Message.HasAccount() {
			continue
		}
		if entry, ok := dict.Get(e.Message.Account.ID()); ok && entry.IsResolved() {
			e.ServiceObject[planhat.FieldCompanyID] = entry.RemoteCompanyID
		}
	}

	valid, invalid := integration.Partition(a.filter.FilterContactEnvelopes(toProcess))
	for _, e := range invalid {
		a.logSkip(ctx, userRef(e.Message), e.Reason)
	}

	for _, e := range valid {
		if err := a.syncContact(ctx, e); err != nil {
			telemetry.RecordError(span, err)
			return err
		}
	}

	if err := a.trackEvents(ctx, valid); err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	return nil
}

// resolveCompanies fills the remote company id of every dictionary entry,
// looking companies up by external id and creating the missing ones. Entries
// whose lookup fails stay unresolved.
func (a *Agent) resolveCompanies(ctx context.Context, dict *integration.AccountDictionary) error {
	for _, entry := range dict.Entries() {
		if entry.IsResolved() || entry.AccountExternalID == "" {
			continue
		}

		lookup, err := a.service.FindCompanyByExternalID(ctx, entry.AccountExternalID)
		if err != nil {
			return fmt.Errorf("resolve company %q: %w", entry.AccountExternalID, err)
		}
		if !lookup.Success {
			a.logger.Warn("company lookup failed, contacts stay unlinked",
				zap.String("account_id", entry.AccountID),
				zap.String("error", lookup.Error))
			continue
		}
		if len(lookup.Data) > 0 && lookup.Data[0].RemoteID() != "" {
			entry.Resolve(lookup.Data[0].RemoteID())
			continue
		}

		ref := recordRef{kind: integration.ObjectKindAccount, profile: entry.AccountProfile}
		company := a.mapper.MapAccountProfileToCompany(entry.AccountProfile)
		if missing := a.filter.MissingCompanyField(company); missing != "" {
			a.logSkip(ctx, ref, MissingFieldReason("company", missing))
			continue
		}

		result, err := a.service.CreateCompany(ctx, company)
		if err != nil {
			return fmt.Errorf("create company %q: %w", entry.AccountExternalID, err)
		}
		handleOutgoingResult(ctx, a, ref, integration.OperationInsert, result)
		if result.Success {
			entry.Resolve(result.Data.RemoteID())
		}
	}
	return nil
}

func (a *Agent) syncContact(ctx context.Context, e *integration.UserEnvelope) error {
	ref := userRef(e.Message)

	lookup, err := a.service.FindContactByEmail(ctx, e.ServiceObject.Email())
	if err != nil {
		return fmt.Errorf("find contact: %w", err)
	}

	if lookup.Success && len(lookup.Data) > 0 && lookup.Data[0].RemoteID() != "" {
		existing := lookup.Data[0]
		e.ServiceObject[planhat.FieldID] = existing.RemoteID()
		e.Operation = integration.OperationUpdate

		if !a.patch.HasChanges(integration.ObjectKindUser, e.ServiceObject, existing) {
			e.Skip(ReasonAlreadyInSync)
			a.logSkip(ctx, ref, e.Reason)
			return nil
		}

		result, err := a.service.UpdateContact(ctx, e.ServiceObject)
		if err != nil {
			return fmt.Errorf("update contact: %w", err)
		}
		handleOutgoingResult(ctx, a, ref, e.Operation, result)
		return nil
	}

	e.Operation = integration.OperationInsert
	result, err := a.service.CreateContact(ctx, e.ServiceObject)
	if err != nil {
		return fmt.Errorf("create contact: %w", err)
	}
	handleOutgoingResult(ctx, a, ref, e.Operation, result)
	return nil
}

// trackEvents forwards the allow-listed events of the given envelopes. Event
// outcomes never change the contact outcome of the same message.
func (a *Agent) trackEvents(ctx context.Context, envelopes []*integration.UserEnvelope) error {
	messages := make([]*hull.UserUpdateMessage, 0, len(envelopes))
	for _, e := range envelopes {
		messages = append(messages, e.Message)
	}

	for _, msg := range a.filter.FilterMessagesWithEvent(messages) {
		for _, event := range a.filter.FilterEvents(msg.Events) {
			mapped := a.mapper.MapUserEventToEvent(msg, event)

			result, err := a.service.TrackEvent(ctx, mapped)
			if err != nil {
				return fmt.Errorf("track event %q: %w", event.Event, err)
			}

			ref := recordRef{
				kind:      integration.ObjectKindUserEvent,
				messageID: msg.MessageID,
				profile:   hull.Profile{"email": mapped.Email, "external_id": mapped.ExternalID},
			}
			logger := ref.scoped(a.platform, "").Logger()
			if result.Success {
				logger.Info(outgoingEvent(ref.kind, "success"), result)
				a.record(ctx, ref, resultOutcome(integration.OperationInsert, integration.SyncStatusSuccess, result))
			} else {
				logger.Error(outgoingEvent(ref.kind, "error"), result)
				failed := resultOutcome(integration.OperationInsert, integration.SyncStatusFailed, result)
				failed.reason = result.Error
				a.record(ctx, ref, failed)
			}
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Account pipeline
// ---------------------------------------------------------------------------

// SendAccountMessages synchronizes accounts to companies and upserts their
// licenses. isBatch disables the segment and change filters.
func (a *Agent) SendAccountMessages(ctx context.Context, messages []*hull.AccountUpdateMessage, isBatch bool) error {
	if !a.settings.CanCommunicateWithAPI() {
		a.logger.Debug("skipping account messages, no personal access token configured",
			zap.Int("messages", len(messages)))
		return nil
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "outbound", "send_account_messages")
	defer span.End()
	telemetry.SetAttributes(span, "messages.count", len(messages), "messages.is_batch", isBatch)

	envelopes := a.filter.FilterAccountMessages(messages, isBatch)
	toProcess, filtered := integration.Partition(envelopes)
	for _, e := range filtered {
		a.record(ctx, accountRef(e.Message), outcome{op: integration.OperationSkip, status: integration.SyncStatusSkipped, reason: e.Reason})
	}
	telemetry.SetAttributes(span, "messages.filtered", len(filtered))
	if len(toProcess) == 0 {
		return nil
	}

	for _, e := range toProcess {
		e.ServiceObject = a.mapper.MapAccountToCompany(e.Message)
	}

	valid, invalid := integration.Partition(a.filter.FilterCompanyEnvelopes(toProcess))
	for _, e := range invalid {
		a.logSkip(ctx, accountRef(e.Message), e.Reason)
	}

	for i, e := range valid {
		if err := a.syncCompany(ctx, e, valid[i+1:]); err != nil {
			telemetry.RecordError(span, err)
			return err
		}
	}
	return nil
}

// findCompany looks the company up by external id. The lookup by remote id is
// only attempted when the first lookup was not successful.
func (a *Agent) findCompany(ctx context.Context, company planhat.Company) (planhat.Company, error) {
	byExternalID := planhat.NotAttempted[[]planhat.Company]()
	if externalID := company.ExternalID(); externalID != "" {
		result, err := a.service.FindCompanyByExternalID(ctx, externalID)
		if err != nil {
			return nil, fmt.Errorf("find company by external id: %w", err)
		}
		byExternalID = result
	}

	if byExternalID.Success {
		if len(byExternalID.Data) > 0 {
			return byExternalID.Data[0], nil
		}
		return nil, nil
	}

	id := company.ID()
	if id == "" {
		return nil, nil
	}
	byID, err := a.service.GetCompanyByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get company by id: %w", err)
	}
	if byID.Success {
		return byID.Data, nil
	}
	return nil, nil
}

func (a *Agent) syncCompany(ctx context.Context, e *integration.AccountEnvelope, pending []*integration.AccountEnvelope) error {
	ref := accountRef(e.Message)

	existing, err := a.findCompany(ctx, e.ServiceObject)
	if err != nil {
		return err
	}

	var result *planhat.ApiResult[planhat.Company]
	if remoteID := existing.RemoteID(); remoteID != "" {
		e.ServiceObject[planhat.FieldID] = remoteID
		e.Operation = integration.OperationUpdate

		if !a.patch.HasChanges(integration.ObjectKindAccount, e.ServiceObject, existing) {
			e.Skip(ReasonAlreadyInSync)
			a.logSkip(ctx, ref, e.Reason)
			return a.syncLicenses(ctx, e.Message.Account, remoteID)
		}

		result, err = a.service.UpdateCompany(ctx, e.ServiceObject)
		if err != nil {
			return fmt.Errorf("update company: %w", err)
		}
	} else {
		e.Operation = integration.OperationInsert
		result, err = a.service.CreateCompany(ctx, e.ServiceObject)
		if err != nil {
			return fmt.Errorf("create company: %w", err)
		}
	}

	handleOutgoingResult(ctx, a, ref, e.Operation, result)
	if !result.Success {
		return nil
	}

	remoteID := result.Data.RemoteID()
	if n := a.mapper.ApplyCompanyIDToSameAccount(pending, e, remoteID); n > 0 {
		a.logger.Debug("propagated company id to pending envelopes",
			zap.String("account_id", e.Message.Account.ID()),
			zap.Int("envelopes", n))
	}
	return a.syncLicenses(ctx, e.Message.Account, remoteID)
}

// syncLicenses upserts the mapped licenses of an account once its company id
// is known. License outcomes are logged on the account.
func (a *Agent) syncLicenses(ctx context.Context, account hull.Profile, companyID string) error {
	if companyID == "" {
		return nil
	}
	licenses := a.mapper.MapAccountToLicenses(companyID, account)
	if len(licenses) == 0 {
		return nil
	}

	result, err := a.service.UpsertLicenses(ctx, licenses)
	if err != nil {
		return fmt.Errorf("upsert licenses: %w", err)
	}

	logger := a.platform.AsAccount(account.AccountClaims()).Logger()
	if result.Success {
		logger.Info("outgoing.account.licenses.success", result)
		return nil
	}
	logger.Error("outgoing.account.licenses.error", result)
	return nil
}

// ---------------------------------------------------------------------------
// Outcome routing
// ---------------------------------------------------------------------------

// recordRef identifies the platform record an outcome is attributed to.
type recordRef struct {
	kind      integration.ObjectKind
	messageID string
	profile   hull.Profile
}

func userRef(msg *hull.UserUpdateMessage) recordRef {
	return recordRef{kind: integration.ObjectKindUser, messageID: msg.MessageID, profile: msg.User}
}

func accountRef(msg *hull.AccountUpdateMessage) recordRef {
	return recordRef{kind: integration.ObjectKindAccount, messageID: msg.MessageID, profile: msg.Account}
}

// scoped returns the platform handle of the record. A non-empty anonymousID
// is added to the identity claims.
func (r recordRef) scoped(platform integration.PlatformClient, anonymousID string) integration.ScopedClient {
	if r.kind == integration.ObjectKindAccount {
		claims := r.profile.AccountClaims()
		if anonymousID != "" {
			claims.AnonymousID = anonymousID
		}
		return platform.AsAccount(claims)
	}

	claims := r.profile.UserClaims()
	if r.kind == integration.ObjectKindUserEvent {
		claims = hull.UserClaims{Email: r.profile.Email(), ExternalID: r.profile.ExternalID()}
	}
	if anonymousID != "" {
		claims.AnonymousID = anonymousID
	}
	return platform.AsUser(claims)
}

func outgoingEvent(kind integration.ObjectKind, outcome string) string {
	return "outgoing." + kind.String() + "." + outcome
}

// handleOutgoingResult routes the result of a contact or company write. On
// success the record is tagged with the remote id and the returned object is
// written back as attributes; on failure the result is logged as an error.
func handleOutgoingResult[T ~map[string]any](ctx context.Context, a *Agent, ref recordRef, op integration.Operation, result *planhat.ApiResult[T]) {
	if !result.Success {
		ref.scoped(a.platform, "").Logger().Error(outgoingEvent(ref.kind, "error"), result)
		failed := resultOutcome(op, integration.SyncStatusFailed, result)
		failed.reason = result.Error
		a.record(ctx, ref, failed)
		return
	}

	data := map[string]any(result.Data)
	remoteID := shared.GetString(data, planhat.FieldRemoteID)
	anonymousID := ""
	if remoteID != "" {
		anonymousID = anonymousIDPrefix + remoteID
	}

	scoped := ref.scoped(a.platform, anonymousID)
	scoped.Logger().Info(outgoingEvent(ref.kind, "success"), result)

	var attributes hull.Attributes
	if ref.kind == integration.ObjectKindAccount {
		attributes = a.mapper.MapCompanyToAccountAttributes(planhat.Company(data))
	} else {
		attributes = a.mapper.MapContactToUserAttributes(planhat.Contact(data))
	}
	if err := scoped.Traits(ctx, attributes); err != nil {
		a.logger.Warn("failed to write attributes back to the platform",
			zap.String("kind", ref.kind.String()),
			zap.String("planhat_id", remoteID),
			zap.Error(err))
	}

	succeeded := resultOutcome(op, integration.SyncStatusSuccess, result)
	succeeded.planhatID = remoteID
	a.record(ctx, ref, succeeded)
}

// outcome is what gets counted and journaled for one routed record.
type outcome struct {
	op        integration.Operation
	status    integration.SyncStatus
	planhatID string
	reason    string
	endpoint  string
	method    string
}

func resultOutcome[T any](op integration.Operation, status integration.SyncStatus, result *planhat.ApiResult[T]) outcome {
	return outcome{op: op, status: status, endpoint: result.Endpoint, method: result.Method}
}

func (a *Agent) logSkip(ctx context.Context, ref recordRef, reason string) {
	ref.scoped(a.platform, "").Logger().Info(outgoingEvent(ref.kind, "skip"), map[string]any{"reason": reason})
	a.record(ctx, ref, outcome{op: integration.OperationSkip, status: integration.SyncStatusSkipped, reason: reason})
}

// record counts the outcome and writes it to the journal, if any. Journal
// failures are logged and never affect synchronization.
func (a *Agent) record(ctx context.Context, ref recordRef, o outcome) {
	a.metrics.RecordOutcome(ctx, ref.kind.String(), o.status.String())
	if a.journal == nil {
		return
	}

	rec, err := integration.NewSyncRecord(a.connectorID, ref.kind, o.status)
	if err != nil {
		a.logger.Warn("invalid sync record", zap.Error(err))
		return
	}
	rec.MessageID = ref.messageID
	rec.HullID = ref.profile.ID()
	rec.PlanhatID = o.planhatID
	rec.Operation = o.op
	rec.Reason = o.reason
	rec.Endpoint = o.endpoint
	rec.Method = o.method

	if err := a.journal.Record(ctx, rec); err != nil {
		a.logger.Warn("failed to journal sync outcome",
			zap.String("kind", ref.kind.String()),
			zap.String("message_id", ref.messageID),
			zap.Error(err))
	}
}
