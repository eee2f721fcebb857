package waldur

import "errors"

var (
	// ErrUnknownEntity is returned when an entity type has no known endpoint.
	ErrUnknownEntity = errors.New("unrecognized entity type")

	// ErrNotFound is returned when a lookup matches no entity.
	ErrNotFound = errors.New("entity not found")

	// ErrNoUUIDField is returned when a matched entity has no uuid attribute.
	ErrNoUUIDField = errors.New("entity has no uuid field")
)

// EndpointMap maps entity names accepted by the tools to their API resource
// segments. Keys are the spellings documented for the model; some differ
// from the resource name (e.g. "invoice" vs "invoices/").
var EndpointMap = map[string]string{
	"projects":                         "projects/",
	"users":                            "users/",
	"customers":                        "customers/",
	"customer-credits":                 "customer-credits/",
	"project-credits":                  "project-credits/",
	"roles":                            "roles/",
	"slurm-allocations":                "slurm-allocations/",
	"slurm-jobs":                       "slurm-jobs/",
	"user-invitations":                 "user-invitations/",
	"invoice":                          "invoices/",
	"marketplace-service-providers":    "marketplace-service-providers/",
	"marketplace-offerings":            "marketplace-offerings/",
	"marketplace-orders":               "marketplace-orders/",
	"marketplace-resource":             "marketplace-resources/",
	"marketplace-plans":                "marketplace-plans/",
	"marketplace-provider-offerings":   "marketplace-provider-offerings/",
	"marketplace-offering-permissions": "marketplace-offering-permissions/",
}

// EssentialFields lists the fields injected into GET requests when the
// caller did not ask for specific fields. Trimming responses to essentials
// keeps token usage down for the model consuming the results.
var EssentialFields = map[string][]string{
	"customers":             {"uuid", "name", "abbreviation", "projects_count", "users_count", "email"},
	"projects":              {"uuid", "name", "short_name", "customer_name", "created", "start_date", "end_date"},
	"users":                 {"uuid", "username", "email", "full_name", "is_staff"},
	"user-invitations":      {"email", "created", "state"},
	"marketplace-resources": {"uuid", "name", "state", "project_name", "customer_name", "offering_name", "plan_name"},
	"marketplace-orders":    {"uuid", "state", "type", "resource_name", "offering_name", "project_name", "created"},
	"roles":                 {"uuid", "name", "description", "is_active"},
}
