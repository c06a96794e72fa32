package integration

import "github.com/hull-connectors/planhat/internal/domain/hull"

// AccountDictionaryEntry resolves one platform account to its remote company.
type AccountDictionaryEntry struct {
	// AccountID is the platform account id
	AccountID string
	// AccountExternalID is the platform external id, used for the remote lookup
	AccountExternalID string
	// RemoteCompanyID is empty until resolved by lookup or create
	RemoteCompanyID string
	// AccountProfile is the account as delivered with the first referencing message
	AccountProfile hull.Profile
}

// IsResolved reports whether the remote company id is known.
func (e *AccountDictionaryEntry) IsResolved() bool {
	return e.RemoteCompanyID != ""
}

// Resolve records the remote company id. Only the first call has an effect.
func (e *AccountDictionaryEntry) Resolve(remoteID string) bool {
	if e.IsResolved() || remoteID == "" {
		return false
	}
	e.RemoteCompanyID = remoteID
	return true
}

// AccountDictionary is the batch-local account resolution table. Entries keep
// the insertion order of their first reference so traversal is deterministic.
type AccountDictionary struct {
	entries map[string]*AccountDictionaryEntry
	order   []string
}

// NewAccountDictionary creates an empty dictionary.
func NewAccountDictionary() *AccountDictionary {
	return &AccountDictionary{entries: make(map[string]*AccountDictionaryEntry)}
}

// Add inserts an entry for an account unless one already exists.
// It returns the entry stored under the account id.
func (d *AccountDictionary) Add(account hull.Profile) *AccountDictionaryEntry {
	id := account.ID()
	if existing, ok := d.entries[id]; ok {
		return existing
	}
	entry := &AccountDictionaryEntry{
		AccountID:         id,
		AccountExternalID: account.ExternalID(),
		RemoteCompanyID:   account.PlanhatID(),
		AccountProfile:    account,
	}
	d.entries[id] = entry
	d.order = append(d.order, id)
	return entry
}

// Get returns the entry for an account id.
func (d *AccountDictionary) Get(accountID string) (*AccountDictionaryEntry, bool) {
	entry, ok := d.entries[accountID]
	return entry, ok
}

// Entries returns all entries in insertion order.
func (d *AccountDictionary) Entries() []*AccountDictionaryEntry {
	out := make([]*AccountDictionaryEntry, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, d.entries[id])
	}
	return out
}

// Len returns the number of distinct accounts.
func (d *AccountDictionary) Len() int {
	return len(d.order)
}
