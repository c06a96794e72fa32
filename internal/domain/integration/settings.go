package integration

import "strings"

// DefaultAPIPrefix is the subdomain used when no api_prefix is configured
const DefaultAPIPrefix = "api"

// AllEventsValue in the event allow-list forwards every event
const AllEventsValue = "all_events"

// MappingEntry maps one platform attribute path to one remote field name.
type MappingEntry struct {
	// HullFieldName is the source path, relative to the user (or account) profile,
	// or absolute when prefixed with "account."
	HullFieldName string `json:"hull_field_name" yaml:"hull_field_name" validate:"required"`
	// ServiceFieldName is the remote field name
	ServiceFieldName string `json:"service_field_name" yaml:"service_field_name"`
}

// TrimmedServiceField returns the remote field name without surrounding whitespace.
func (e MappingEntry) TrimmedServiceField() string {
	return strings.TrimSpace(e.ServiceFieldName)
}

// ConnectorSettings holds the private settings of one connector instance.
// Field names follow the platform manifest, including the misspelled token key.
type ConnectorSettings struct {
	PersonalAccessToken string `json:"personal_acccess_token,omitempty" yaml:"personal_acccess_token"`
	APIPrefix           string `json:"api_prefix,omitempty" yaml:"api_prefix" validate:"omitempty,alphanum"`
	TenantID            string `json:"tenant_id,omitempty" yaml:"tenant_id"`

	ContactAttributesOutbound       []MappingEntry `json:"contact_attributes_outbound,omitempty" yaml:"contact_attributes_outbound" validate:"dive"`
	ContactCustomAttributesOutbound []MappingEntry `json:"contact_custom_attributes_outbound,omitempty" yaml:"contact_custom_attributes_outbound" validate:"dive"`
	AccountAttributesOutbound       []MappingEntry `json:"account_attributes_outbound,omitempty" yaml:"account_attributes_outbound" validate:"dive"`
	AccountCustomAttributesOutbound []MappingEntry `json:"account_custom_attributes_outbound,omitempty" yaml:"account_custom_attributes_outbound" validate:"dive"`

	ContactSynchronizedSegments []string `json:"contact_synchronized_segments,omitempty" yaml:"contact_synchronized_segments"`
	AccountSynchronizedSegments []string `json:"account_synchronized_segments,omitempty" yaml:"account_synchronized_segments"`
	ContactEvents               []string `json:"contact_events,omitempty" yaml:"contact_events"`

	AccountRequireExternalID bool `json:"account_require_external_id,omitempty" yaml:"account_require_external_id"`

	AccountLicensesAttribute          string         `json:"account_licenses_attribute,omitempty" yaml:"account_licenses_attribute"`
	AccountLicensesAttributesOutbound []MappingEntry `json:"account_licenses_attributes_outbound,omitempty" yaml:"account_licenses_attributes_outbound" validate:"dive"`
}

// CanCommunicateWithAPI reports whether an access credential is configured.
func (s *ConnectorSettings) CanCommunicateWithAPI() bool {
	return s != nil && s.PersonalAccessToken != ""
}

// ResolvedAPIPrefix returns the configured api prefix or the default.
func (s *ConnectorSettings) ResolvedAPIPrefix() string {
	if s == nil || s.APIPrefix == "" {
		return DefaultAPIPrefix
	}
	return s.APIPrefix
}

// HasLicenseMapping reports whether license synchronization is configured.
func (s *ConnectorSettings) HasLicenseMapping() bool {
	return s.AccountLicensesAttribute != "" && len(s.AccountLicensesAttributesOutbound) > 0
}

// AllowsAllEvents reports whether the event allow-list forwards every event.
func (s *ConnectorSettings) AllowsAllEvents() bool {
	for _, name := range s.ContactEvents {
		if name == AllEventsValue {
			return true
		}
	}
	return false
}

// MappedTargets returns the remote field paths compared by the patch detector
// for the given object kind: standard targets as-is, custom targets under "custom.".
func (s *ConnectorSettings) MappedTargets(kind ObjectKind) []string {
	var standard, custom []MappingEntry
	switch kind {
	case ObjectKindUser:
		standard, custom = s.ContactAttributesOutbound, s.ContactCustomAttributesOutbound
	case ObjectKindAccount:
		standard, custom = s.AccountAttributesOutbound, s.AccountCustomAttributesOutbound
	default:
		return nil
	}

	seen := make(map[string]bool, len(standard)+len(custom))
	targets := make([]string, 0, len(standard)+len(custom))
	add := func(path string) {
		if path == "" || seen[path] {
			return
		}
		seen[path] = true
		targets = append(targets, path)
	}
	for _, m := range standard {
		add(m.ServiceFieldName)
	}
	for _, m := range custom {
		if name := m.TrimmedServiceField(); name != "" {
			add("custom." + name)
		}
	}
	return targets
}
