// Package openapi describes form submissions as OpenAPI 3 documents. Each
// form gets a request schema derived from its fields plus the registration
// and listing operations served by the HTTP application.
package openapi
