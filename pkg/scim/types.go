package scim

// SCIM 2.0 schema URIs used by the bridge.
const (
	SchemaUser                  = "urn:ietf:params:scim:schemas:core:2.0:User"
	SchemaGroup                 = "urn:ietf:params:scim:schemas:core:2.0:Group"
	SchemaListResponse          = "urn:ietf:params:scim:api:messages:2.0:ListResponse"
	SchemaPatchOp               = "urn:ietf:params:scim:api:messages:2.0:PatchOp"
	SchemaError                 = "urn:ietf:params:scim:api:messages:2.0:Error"
	SchemaServiceProviderConfig = "urn:ietf:params:scim:schemas:core:2.0:ServiceProviderConfig"
)

// Name carries the decomposed user name attribute. Only the parts Authentik
// actually sends are modeled.
type Name struct {
	Formatted  string `json:"formatted,omitempty"`
	GivenName  string `json:"givenName,omitempty"`
	FamilyName string `json:"familyName,omitempty"`
}

type Email struct {
	Value   string `json:"value"`
	Type    string `json:"type,omitempty"`
	Primary bool   `json:"primary,omitempty"`
}

// UserCreate is the minimal payload accepted on POST /Users and PUT /Users/{id}.
type UserCreate struct {
	Schemas    []string `json:"schemas,omitempty"`
	UserName   string   `json:"userName"`
	Name       Name     `json:"name,omitempty"`
	Emails     []Email  `json:"emails,omitempty"`
	ExternalID string   `json:"externalId,omitempty"`
	Active     *bool    `json:"active,omitempty"`
}

// User is the full resource returned from /Users endpoints.
type User struct {
	Schemas    []string `json:"schemas"`
	ID         string   `json:"id"`
	UserName   string   `json:"userName"`
	Name       Name     `json:"name"`
	Emails     []Email  `json:"emails"`
	ExternalID string   `json:"externalId,omitempty"`
	Active     bool     `json:"active"`
}

type GroupMember struct {
	Value   string `json:"value"`
	Display string `json:"display,omitempty"`
	Ref     string `json:"$ref,omitempty"`
}

// GroupCreate is the payload accepted on POST /Groups and PUT /Groups/{id}.
type GroupCreate struct {
	Schemas     []string      `json:"schemas,omitempty"`
	DisplayName string        `json:"displayName"`
	Members     []GroupMember `json:"members,omitempty"`
	ExternalID  string        `json:"externalId,omitempty"`
}

// Group is the full resource returned from /Groups endpoints.
type Group struct {
	Schemas     []string      `json:"schemas"`
	ID          string        `json:"id"`
	DisplayName string        `json:"displayName"`
	Members     []GroupMember `json:"members"`
}

// ListResponse is the SCIM list envelope. Resources stays a concrete slice of
// User or Group set by the caller.
type ListResponse struct {
	Schemas      []string `json:"schemas"`
	TotalResults int      `json:"totalResults"`
	ItemsPerPage int      `json:"itemsPerPage"`
	StartIndex   int      `json:"startIndex"`
	Resources    any      `json:"Resources"`
}

func NewListResponse(resources any, total, startIndex, count int) *ListResponse {
	return &ListResponse{
		Schemas:      []string{SchemaListResponse},
		TotalResults: total,
		ItemsPerPage: count,
		StartIndex:   startIndex,
		Resources:    resources,
	}
}

// ErrorResponse is the SCIM error body (RFC 7644 section 3.12).
type ErrorResponse struct {
	Schemas  []string `json:"schemas"`
	Status   string   `json:"status"`
	Detail   string   `json:"detail,omitempty"`
	ScimType string   `json:"scimType,omitempty"`
}

type Capability struct {
	Supported bool `json:"supported"`
}

// ServiceProviderConfig is the static capability document served on
// GET /ServiceProviderConfig.
type ServiceProviderConfig struct {
	Schemas          []string   `json:"schemas"`
	ID               string     `json:"id"`
	DocumentationURI string     `json:"documentationUri,omitempty"`
	Patch            Capability `json:"patch"`
	Bulk             Capability `json:"bulk"`
	Filter           Capability `json:"filter"`
	ChangePassword   Capability `json:"changePassword"`
	Sort             Capability `json:"sort"`
	Etag             Capability `json:"etag"`
}

func DefaultServiceProviderConfig() *ServiceProviderConfig {
	return &ServiceProviderConfig{
		Schemas: []string{SchemaServiceProviderConfig},
		ID:      "scim-bridge",
		Patch:   Capability{Supported: true},
	}
}
