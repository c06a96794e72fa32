package planhat

// PropertyType is the wire type of a remote field
type PropertyType string

const (
	PropertyTypeString  PropertyType = "string"
	PropertyTypeNumber  PropertyType = "number"
	PropertyTypeBoolean PropertyType = "boolean"
	PropertyTypeDate    PropertyType = "date"
	PropertyTypeArray   PropertyType = "array"
	PropertyTypeObject  PropertyType = "object"
)

// Property describes one standard field of a remote entity.
type Property struct {
	// Key is the field name on the wire
	Key string
	// Label is the human readable field name
	Label string
	// Type is the wire type
	Type PropertyType
	// Required fields must be present before a record is sent
	Required bool
}

// contactProperties lists the standard end user fields.
var contactProperties = []Property{
	{Key: "name", Label: "Name", Type: PropertyTypeString},
	{Key: "firstName", Label: "First Name", Type: PropertyTypeString},
	{Key: "lastName", Label: "Last Name", Type: PropertyTypeString},
	{Key: "email", Label: "Email", Type: PropertyTypeString, Required: true},
	{Key: "externalId", Label: "External ID", Type: PropertyTypeString},
	{Key: "companyId", Label: "Company ID", Type: PropertyTypeString},
	{Key: "phone", Label: "Phone", Type: PropertyTypeString},
	{Key: "position", Label: "Position", Type: PropertyTypeString},
	{Key: "featured", Label: "Featured", Type: PropertyTypeBoolean},
	{Key: "primary", Label: "Primary Contact", Type: PropertyTypeBoolean},
	{Key: "tags", Label: "Tags", Type: PropertyTypeArray},
	{Key: "otherEmails", Label: "Other Emails", Type: PropertyTypeArray},
	{Key: "beats", Label: "Beats", Type: PropertyTypeNumber},
	{Key: "convs", Label: "Conversations", Type: PropertyTypeNumber},
	{Key: "experience", Label: "Experience", Type: PropertyTypeNumber},
}

// companyProperties lists the standard company fields.
var companyProperties = []Property{
	{Key: "name", Label: "Name", Type: PropertyTypeString, Required: true},
	{Key: "externalId", Label: "External ID", Type: PropertyTypeString},
	{Key: "sourceId", Label: "Source ID", Type: PropertyTypeString},
	{Key: "domains", Label: "Domains", Type: PropertyTypeArray},
	{Key: "owner", Label: "Owner", Type: PropertyTypeString},
	{Key: "coOwner", Label: "Co-Owner", Type: PropertyTypeString},
	{Key: "phase", Label: "Phase", Type: PropertyTypeString},
	{Key: "status", Label: "Status", Type: PropertyTypeString},
	{Key: "description", Label: "Description", Type: PropertyTypeString},
	{Key: "address", Label: "Address", Type: PropertyTypeString},
	{Key: "city", Label: "City", Type: PropertyTypeString},
	{Key: "zip", Label: "Zip Code", Type: PropertyTypeString},
	{Key: "country", Label: "Country", Type: PropertyTypeString},
	{Key: "phonePrimary", Label: "Phone", Type: PropertyTypeString},
	{Key: "web", Label: "Website", Type: PropertyTypeString},
	{Key: "customerFrom", Label: "Customer From", Type: PropertyTypeDate},
	{Key: "customerTo", Label: "Customer To", Type: PropertyTypeDate},
	{Key: "tags", Label: "Tags", Type: PropertyTypeArray},
}

// PropertyTable indexes the standard fields of one entity kind by key, and
// inversely by label.
type PropertyTable struct {
	properties []Property
	byKey      map[string]Property
	byLabel    map[string]string
}

// NewPropertyTable builds a table from a property list.
func NewPropertyTable(properties []Property) *PropertyTable {
	t := &PropertyTable{
		properties: properties,
		byKey:      make(map[string]Property, len(properties)),
		byLabel:    make(map[string]string, len(properties)),
	}
	for _, p := range properties {
		t.byKey[p.Key] = p
		t.byLabel[p.Label] = p.Key
	}
	return t
}

var (
	contactTable = NewPropertyTable(contactProperties)
	companyTable = NewPropertyTable(companyProperties)
)

// ContactProperties returns the end user field table.
func ContactProperties() *PropertyTable { return contactTable }

// CompanyProperties returns the company field table.
func CompanyProperties() *PropertyTable { return companyTable }

// Has reports whether key is a standard field.
func (t *PropertyTable) Has(key string) bool {
	_, ok := t.byKey[key]
	return ok
}

// KeyForLabel resolves a label back to its field key.
func (t *PropertyTable) KeyForLabel(label string) (string, bool) {
	key, ok := t.byLabel[label]
	return key, ok
}

// Required returns the keys of required fields in table order.
func (t *PropertyTable) Required() []string {
	var keys []string
	for _, p := range t.properties {
		if p.Required {
			keys = append(keys, p.Key)
		}
	}
	return keys
}
