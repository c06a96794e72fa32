package outbound

import (
	"fmt"
	"strings"

	"github.com/hull-connectors/planhat/internal/domain/hull"
	"github.com/hull-connectors/planhat/internal/domain/integration"
	"github.com/hull-connectors/planhat/internal/domain/planhat"
	"github.com/hull-connectors/planhat/internal/domain/shared"
)

const (
	attributeNamespace = "planhat"
	accountPathPrefix  = "account."
	userPathPrefix     = "user."
	customFieldPrefix  = planhat.FieldCustom + "."
)

// Mapper translates platform messages into remote payloads and remote
// responses back into platform attributes. It is stateless apart from the
// settings it was created with.
type Mapper struct {
	settings  *integration.ConnectorSettings
	contacts  *planhat.PropertyTable
	companies *planhat.PropertyTable
}

// NewMapper creates a Mapper for the given settings
func NewMapper(settings *integration.ConnectorSettings) *Mapper {
	return &Mapper{
		settings:  settings,
		contacts:  planhat.ContactProperties(),
		companies: planhat.CompanyProperties(),
	}
}

// ---------------------------------------------------------------------------
// Platform -> remote
// ---------------------------------------------------------------------------

// MapUserToContact maps a user notification to a contact. Only recognized
// contact fields are written; custom mappings land under "custom.<name>".
// companyId is always taken from the account's remote id and is the only key
// kept when its value is unknown.
func (m *Mapper) MapUserToContact(msg *hull.UserUpdateMessage) planhat.Contact {
	contact := planhat.Contact{}

	for _, entry := range m.settings.ContactAttributesOutbound {
		if entry.ServiceFieldName == "" || !m.contacts.Has(entry.ServiceFieldName) {
			continue
		}
		if value, ok := definedValue(msg.Get(userSourcePath(entry.HullFieldName))); ok {
			contact.Set(entry.ServiceFieldName, value)
		}
	}

	for _, entry := range m.settings.ContactCustomAttributesOutbound {
		name := entry.TrimmedServiceField()
		if name == "" {
			continue
		}
		if value, ok := definedValue(msg.Get(userSourcePath(entry.HullFieldName))); ok {
			contact.Set(customFieldPrefix+name, value)
		}
	}

	if remoteID := msg.Account.PlanhatID(); remoteID != "" {
		contact[planhat.FieldCompanyID] = remoteID
	} else {
		contact[planhat.FieldCompanyID] = nil
	}

	return contact
}

// MapAccountToCompany maps an account notification to a company. name is
// kept even when unknown; externalId falls back to the platform external id.
func (m *Mapper) MapAccountToCompany(msg *hull.AccountUpdateMessage) planhat.Company {
	company := planhat.Company{planhat.FieldName: nil}

	for _, entry := range m.settings.AccountAttributesOutbound {
		if entry.ServiceFieldName == "" || !m.companies.Has(entry.ServiceFieldName) {
			continue
		}
		if value, ok := definedValue(msg.Get(accountPathPrefix + entry.HullFieldName)); ok {
			company.Set(entry.ServiceFieldName, value)
		}
	}

	m.mapCompanyCustomAttributes(company, msg.Account)
	completeCompanyIdentity(company, msg.Account)

	return company
}

// MapAccountProfileToCompany maps a bare account profile to a company. The
// recognized-field check runs against the inverted field table: a mapping is
// only applied when its service field matches a field label, and the value
// is written under the key that label belongs to.
func (m *Mapper) MapAccountProfileToCompany(account hull.Profile) planhat.Company {
	company := planhat.Company{planhat.FieldName: nil}

	for _, entry := range m.settings.AccountAttributesOutbound {
		if entry.ServiceFieldName == "" {
			continue
		}
		key, ok := m.companies.KeyForLabel(entry.ServiceFieldName)
		if !ok {
			continue
		}
		if value, ok := definedValue(account.Get(entry.HullFieldName)); ok {
			company.Set(key, value)
		}
	}

	m.mapCompanyCustomAttributes(company, account)
	completeCompanyIdentity(company, account)

	return company
}

func (m *Mapper) mapCompanyCustomAttributes(company planhat.Company, account hull.Profile) {
	for _, entry := range m.settings.AccountCustomAttributesOutbound {
		name := entry.TrimmedServiceField()
		if name == "" {
			continue
		}
		if value, ok := definedValue(account.Get(entry.HullFieldName)); ok {
			company.Set(customFieldPrefix+name, value)
		}
	}
}

func completeCompanyIdentity(company planhat.Company, account hull.Profile) {
	if _, ok := shared.GetDefined(company, planhat.FieldExternalID); !ok {
		if externalID := account.ExternalID(); externalID != "" {
			company[planhat.FieldExternalID] = externalID
		}
	}
	if remoteID := account.PlanhatID(); remoteID != "" {
		company[planhat.FieldID] = remoteID
	}
}

// MapUserEventToEvent maps one platform event. Name, externalId and email are
// read through the first contact mapping targeting each of them.
func (m *Mapper) MapUserEventToEvent(msg *hull.UserUpdateMessage, event hull.Event) planhat.Event {
	out := planhat.Event{
		Action: event.Event,
		Date:   event.CreatedAt,
		Info:   event.Properties,
	}

	if entry, ok := firstMappingFor(m.settings.ContactAttributesOutbound, planhat.FieldName); ok {
		out.Name = stringValue(msg.Get(userPathPrefix + entry.HullFieldName))
	}
	if entry, ok := firstMappingFor(m.settings.ContactAttributesOutbound, planhat.FieldExternalID); ok {
		out.ExternalID = stringValue(msg.Get(userPathPrefix + entry.HullFieldName))
	}
	if entry, ok := firstMappingFor(m.settings.ContactAttributesOutbound, planhat.FieldEmail); ok {
		out.Email = stringValue(msg.Get(userPathPrefix + entry.HullFieldName))
	}
	if externalID := msg.Account.ExternalID(); externalID != "" {
		out.CompanyExternalID = externalID
	}

	return out
}

// MapAccountToLicenses maps the configured license attribute of an account.
// It returns an empty slice when license mapping is not configured, the
// attribute is absent, or its value is not a list.
func (m *Mapper) MapAccountToLicenses(companyID string, account hull.Profile) []planhat.License {
	licenses := []planhat.License{}
	if !m.settings.HasLicenseMapping() {
		return licenses
	}

	raw, ok := shared.GetDefined(account, m.settings.AccountLicensesAttribute)
	if !ok {
		return licenses
	}
	items, ok := raw.([]any)
	if !ok {
		return licenses
	}

	for _, item := range items {
		fields, _ := item.(map[string]any)
		license := planhat.License{planhat.FieldCompanyID: companyID}
		for _, entry := range m.settings.AccountLicensesAttributesOutbound {
			if entry.ServiceFieldName == "" {
				continue
			}
			if value, ok := shared.GetDefined(fields, entry.HullFieldName); ok {
				shared.SetPath(license, entry.ServiceFieldName, value)
			}
		}
		licenses = append(licenses, license)
	}
	return licenses
}

// ---------------------------------------------------------------------------
// Remote -> platform
// ---------------------------------------------------------------------------

// MapContactToUserAttributes maps a contact response to user attributes.
func (m *Mapper) MapContactToUserAttributes(contact planhat.Contact) hull.Attributes {
	attributes := hull.Attributes{}
	for key, value := range contact {
		switch {
		case key == planhat.FieldRemoteID:
			attributes[namespaced("id")] = value
		case strings.HasPrefix(key, "_"):
			continue
		default:
			attributes[namespaced(snakeCase(key))] = value
		}
	}
	setNameIfNull(attributes, contact)
	return attributes
}

// MapCompanyToAccountAttributes maps a company response to account attributes.
// The sharing configuration is never written back.
func (m *Mapper) MapCompanyToAccountAttributes(company planhat.Company) hull.Attributes {
	attributes := hull.Attributes{}
	for key, value := range company {
		switch {
		case key == planhat.FieldRemoteID:
			attributes[namespaced("id")] = value
		case key == planhat.FieldLastUpdated:
			attributes[namespaced("last_updated_at")] = value
		case strings.HasPrefix(key, "_"), key == planhat.FieldShareable:
			continue
		default:
			attributes[namespaced(snakeCase(key))] = value
		}
	}
	setNameIfNull(attributes, company)
	return attributes
}

func setNameIfNull(attributes hull.Attributes, object map[string]any) {
	if name, ok := shared.GetDefined(object, planhat.FieldName); ok {
		attributes[planhat.FieldName] = hull.SetIfNull(name)
	}
}

func namespaced(name string) string {
	return attributeNamespace + "/" + name
}

// ---------------------------------------------------------------------------
// Batch helpers
// ---------------------------------------------------------------------------

// MapUserEnvelopesToAccountDict builds the account resolution dictionary of a
// user batch: one entry per distinct referenced account, first reference wins.
func (m *Mapper) MapUserEnvelopesToAccountDict(envelopes []*integration.UserEnvelope) *integration.AccountDictionary {
	dict := integration.NewAccountDictionary()
	for _, e := range envelopes {
		if !e.Message.HasAccount() || e.Message.Account.ID() == "" {
			continue
		}
		dict.Add(e.Message.Account)
	}
	return dict
}

// ApplyCompanyIDToSameAccount writes remoteID into every envelope of pending
// that references the same platform account as current but belongs to a
// different message. Messages without an id are told apart by envelope only.
// It returns the number of envelopes updated.
func (m *Mapper) ApplyCompanyIDToSameAccount(pending []*integration.AccountEnvelope, current *integration.AccountEnvelope, remoteID string) int {
	accountID := current.Message.Account.ID()
	if remoteID == "" || accountID == "" {
		return 0
	}

	messageID := current.Message.MessageID
	updated := 0
	for _, e := range pending {
		if e == current || (messageID != "" && e.Message.MessageID == messageID) {
			continue
		}
		if e.Message.Account.ID() != accountID {
			continue
		}
		if e.ServiceObject == nil {
			e.ServiceObject = planhat.Company{}
		}
		e.ServiceObject[planhat.FieldID] = remoteID
		updated++
	}
	return updated
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// userSourcePath resolves a configured user mapping path against the message:
// account paths are absolute, everything else is relative to the user.
func userSourcePath(hullField string) string {
	if strings.HasPrefix(hullField, accountPathPrefix) {
		return hullField
	}
	return userPathPrefix + hullField
}

func definedValue(value any, ok bool) (any, bool) {
	if !ok || value == nil {
		return nil, false
	}
	return value, true
}

func firstMappingFor(entries []integration.MappingEntry, target string) (integration.MappingEntry, bool) {
	for _, e := range entries {
		if e.ServiceFieldName == target {
			return e, true
		}
	}
	return integration.MappingEntry{}, false
}

func stringValue(value any, ok bool) string {
	if !ok || value == nil {
		return ""
	}
	if s, isString := value.(string); isString {
		return s
	}
	return fmt.Sprint(value)
}
