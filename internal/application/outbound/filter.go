package outbound

import (
	"fmt"
	"strings"

	"github.com/hull-connectors/planhat/internal/domain/hull"
	"github.com/hull-connectors/planhat/internal/domain/integration"
	"github.com/hull-connectors/planhat/internal/domain/planhat"
)

// Skip reasons
const (
	ReasonUserNotInSegment         = "User doesn't belong to any of the synchronized segments."
	ReasonAccountNotInSegment      = "Account doesn't belong to any of the synchronized segments."
	ReasonUserMissingEmail         = "User has no email address."
	ReasonAccountMissingExternalID = "Account has no external_id, which is required by the connector settings."
	ReasonAccountMissingIdentifier = "Account has neither a domain nor an external_id."
	ReasonNoRelevantChanges        = "None of the mapped attributes or segments changed."
	ReasonAlreadyInSync            = "All mapped attributes are already in sync between Hull and Planhat."
	reasonMissingRequiredFieldFmt  = "Mapped %s is missing the required field '%s'."
)

// FilterEngine decides per message whether a record is inserted, updated or
// skipped. It holds no state besides the connector settings.
type FilterEngine struct {
	settings  *integration.ConnectorSettings
	contacts  *planhat.PropertyTable
	companies *planhat.PropertyTable
}

// NewFilterEngine creates a FilterEngine for the given settings
func NewFilterEngine(settings *integration.ConnectorSettings) *FilterEngine {
	return &FilterEngine{
		settings:  settings,
		contacts:  planhat.ContactProperties(),
		companies: planhat.CompanyProperties(),
	}
}

// ---------------------------------------------------------------------------
// Message-level filtering
// ---------------------------------------------------------------------------

// FilterUserMessages returns one envelope per message with the operation
// pre-assigned. The first failing rule sets the skip reason.
func (f *FilterEngine) FilterUserMessages(messages []*hull.UserUpdateMessage, isBatch bool) []*integration.UserEnvelope {
	envelopes := make([]*integration.UserEnvelope, 0, len(messages))
	for _, msg := range messages {
		envelope := &integration.UserEnvelope{
			Message:   msg,
			Operation: operationFor(msg.User),
		}

		switch {
		case !isBatch && !inSegments(hull.SegmentIDs(msg.Segments), f.settings.ContactSynchronizedSegments):
			envelope.Skip(ReasonUserNotInSegment)
		case msg.User.Email() == "":
			envelope.Skip(ReasonUserMissingEmail)
		case !isBatch && !f.userChanged(msg):
			envelope.Skip(ReasonNoRelevantChanges)
		}

		envelopes = append(envelopes, envelope)
	}
	return envelopes
}

// FilterAccountMessages returns one envelope per message with the operation
// pre-assigned. The first failing rule sets the skip reason.
func (f *FilterEngine) FilterAccountMessages(messages []*hull.AccountUpdateMessage, isBatch bool) []*integration.AccountEnvelope {
	envelopes := make([]*integration.AccountEnvelope, 0, len(messages))
	for _, msg := range messages {
		envelope := &integration.AccountEnvelope{
			Message:   msg,
			Operation: operationFor(msg.Account),
		}

		switch {
		case !isBatch && !inSegments(hull.SegmentIDs(msg.AccountSegments), f.settings.AccountSynchronizedSegments):
			envelope.Skip(ReasonAccountNotInSegment)
		case f.settings.AccountRequireExternalID && msg.Account.ExternalID() == "":
			envelope.Skip(ReasonAccountMissingExternalID)
		case msg.Account.ExternalID() == "" && msg.Account.Domain() == "":
			envelope.Skip(ReasonAccountMissingIdentifier)
		case !isBatch && !f.accountChanged(msg):
			envelope.Skip(ReasonNoRelevantChanges)
		}

		envelopes = append(envelopes, envelope)
	}
	return envelopes
}

func operationFor(profile hull.Profile) integration.Operation {
	if profile.PlanhatID() != "" {
		return integration.OperationUpdate
	}
	return integration.OperationInsert
}

func inSegments(memberOf, synchronized []string) bool {
	for _, id := range memberOf {
		for _, allowed := range synchronized {
			if id == allowed {
				return true
			}
		}
	}
	return false
}

// userChanged reports whether a real-time notification touches anything the
// connector forwards. A notification without a changes block is treated as changed.
func (f *FilterEngine) userChanged(msg *hull.UserUpdateMessage) bool {
	c := msg.Changes
	if c.IsNew || !c.Segments.IsEmpty() || !c.AccountSegments.IsEmpty() {
		return true
	}
	if len(c.User) == 0 && len(c.Account) == 0 {
		return true
	}

	mappings := concatMappings(f.settings.ContactAttributesOutbound, f.settings.ContactCustomAttributesOutbound)
	for _, m := range mappings {
		if accountAttr, ok := strings.CutPrefix(m.HullFieldName, "account."); ok {
			if _, changed := c.Account[accountAttr]; changed {
				return true
			}
			continue
		}
		if _, changed := c.User[m.HullFieldName]; changed {
			return true
		}
	}
	return false
}

// accountChanged is userChanged for account notifications.
func (f *FilterEngine) accountChanged(msg *hull.AccountUpdateMessage) bool {
	c := msg.Changes
	if c.IsNew || !c.AccountSegments.IsEmpty() || len(c.Account) == 0 {
		return true
	}

	mappings := concatMappings(f.settings.AccountAttributesOutbound, f.settings.AccountCustomAttributesOutbound)
	if f.settings.AccountLicensesAttribute != "" {
		mappings = append(mappings, integration.MappingEntry{HullFieldName: f.settings.AccountLicensesAttribute})
	}
	for _, m := range mappings {
		if _, changed := c.Account[m.HullFieldName]; changed {
			return true
		}
	}
	return false
}

func concatMappings(lists ...[]integration.MappingEntry) []integration.MappingEntry {
	var out []integration.MappingEntry
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}

// ---------------------------------------------------------------------------
// Mapped object filtering
// ---------------------------------------------------------------------------

// FilterContactEnvelopes validates mapped contacts and marks invalid ones as
// skipped. Already skipped envelopes are left untouched.
func (f *FilterEngine) FilterContactEnvelopes(envelopes []*integration.UserEnvelope) []*integration.UserEnvelope {
	for _, e := range envelopes {
		if e.IsSkipped() {
			continue
		}
		if missing := missingRequired(f.contacts, e.ServiceObject); missing != "" {
			e.Skip(MissingFieldReason("contact", missing))
		}
	}
	return envelopes
}

// FilterCompanyEnvelopes validates mapped companies and marks invalid ones as
// skipped. Already skipped envelopes are left untouched.
func (f *FilterEngine) FilterCompanyEnvelopes(envelopes []*integration.AccountEnvelope) []*integration.AccountEnvelope {
	for _, e := range envelopes {
		if e.IsSkipped() {
			continue
		}
		if missing := f.MissingCompanyField(e.ServiceObject); missing != "" {
			e.Skip(MissingFieldReason("company", missing))
		}
	}
	return envelopes
}

// MissingCompanyField returns the first required company field the object
// lacks, or an empty string.
func (f *FilterEngine) MissingCompanyField(company planhat.Company) string {
	return missingRequired(f.companies, company)
}

// MissingFieldReason formats the skip reason for a missing required field.
func MissingFieldReason(object, field string) string {
	return fmt.Sprintf(reasonMissingRequiredFieldFmt, object, field)
}

func missingRequired(table *planhat.PropertyTable, object map[string]any) string {
	for _, key := range table.Required() {
		value, ok := object[key]
		if !ok || value == nil {
			return key
		}
		if s, isString := value.(string); isString && strings.TrimSpace(s) == "" {
			return key
		}
	}
	return ""
}

// ---------------------------------------------------------------------------
// Event filtering
// ---------------------------------------------------------------------------

// FilterMessagesWithEvent keeps messages that carry at least one event.
func (f *FilterEngine) FilterMessagesWithEvent(messages []*hull.UserUpdateMessage) []*hull.UserUpdateMessage {
	var out []*hull.UserUpdateMessage
	for _, msg := range messages {
		if len(msg.Events) > 0 {
			out = append(out, msg)
		}
	}
	return out
}

// FilterEvents keeps events whose name is on the allow-list.
func (f *FilterEngine) FilterEvents(events []hull.Event) []hull.Event {
	if f.settings.AllowsAllEvents() {
		return append([]hull.Event(nil), events...)
	}
	var out []hull.Event
	for _, e := range events {
		for _, allowed := range f.settings.ContactEvents {
			if e.Event == allowed {
				out = append(out, e)
				break
			}
		}
	}
	return out
}
