package integration

import (
	"context"

	"github.com/hull-connectors/planhat/internal/domain/hull"
	"github.com/hull-connectors/planhat/internal/domain/planhat"
)

// ---------------------------------------------------------------------------
// ServiceClient Port
// ---------------------------------------------------------------------------

// ServiceClient is the port to the remote CRM API. Every call returns a result
// envelope; remote 4xx/5xx responses are reported with Success false. A non-nil
// error means a transport fault and terminates the batch.
type ServiceClient interface {
	FindContactByEmail(ctx context.Context, email string) (*planhat.ApiResult[[]planhat.Contact], error)
	CreateContact(ctx context.Context, contact planhat.Contact) (*planhat.ApiResult[planhat.Contact], error)
	UpdateContact(ctx context.Context, contact planhat.Contact) (*planhat.ApiResult[planhat.Contact], error)

	FindCompanyByExternalID(ctx context.Context, externalID string) (*planhat.ApiResult[[]planhat.Company], error)
	GetCompanyByID(ctx context.Context, id string) (*planhat.ApiResult[planhat.Company], error)
	CreateCompany(ctx context.Context, company planhat.Company) (*planhat.ApiResult[planhat.Company], error)
	UpdateCompany(ctx context.Context, company planhat.Company) (*planhat.ApiResult[planhat.Company], error)

	TrackEvent(ctx context.Context, event planhat.Event) (*planhat.ApiResult[planhat.Event], error)
	UpsertLicenses(ctx context.Context, licenses []planhat.License) (*planhat.ApiResult[planhat.BulkUpsertResponse], error)
}

// ServiceClientFactory builds a ServiceClient for the settings of one connector.
type ServiceClientFactory interface {
	NewServiceClient(settings *ConnectorSettings) (ServiceClient, error)
}

// ---------------------------------------------------------------------------
// PlatformClient Port
// ---------------------------------------------------------------------------

// ScopedLogger writes connector log lines attributed to one platform record.
type ScopedLogger interface {
	Info(event string, payload any)
	Error(event string, payload any)
}

// ScopedClient is a platform handle scoped to one user or account identity.
type ScopedClient interface {
	Logger() ScopedLogger
	Traits(ctx context.Context, attributes hull.Attributes) error
}

// PlatformClient is the port to the customer-data platform.
type PlatformClient interface {
	AsUser(claims hull.UserClaims) ScopedClient
	AsAccount(claims hull.AccountClaims) ScopedClient
}

// PlatformClientFactory builds the PlatformClient of one connector instance.
type PlatformClientFactory interface {
	NewPlatformClient(connector *Connector) (PlatformClient, error)
}
