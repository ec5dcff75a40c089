// Package tree holds the immutable Redfish resource tree served by the
// service root. Nodes are constructed once at startup; lookups are
// read-only and safe for concurrent use without locking.
package tree

import (
	"encoding/json"
	"fmt"
	"path"
	"strings"
)

// Node is a single addressable Redfish resource.
type Node interface {
	// URI returns the normalized resource URI (no trailing slash).
	URI() string
	// Body returns the resource document as compact JSON.
	Body() []byte
}

// Tree maps normalized URIs to resources.
type Tree struct {
	nodes map[string]Node
}

// New creates an empty resource tree.
func New() *Tree {
	return &Tree{
		nodes: make(map[string]Node),
	}
}

// Add registers a node under its URI. The last node added for a URI wins.
func (t *Tree) Add(n Node) {
	t.nodes[n.URI()] = n
}

// Get looks up a node by normalized URI.
func (t *Tree) Get(uri string) (Node, bool) {
	n, ok := t.nodes[uri]
	return n, ok
}

// Normalize trims the trailing slash from a request path so that
// "/redfish/v1/" and "/redfish/v1" resolve to the same resource.
func Normalize(p string) string {
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		return p[:len(p)-1]
	}
	return p
}

// Resource is a static Redfish resource with a body precomputed at
// construction time.
type Resource struct {
	uri  string
	id   string
	body []byte
}

// NewResource builds a resource document in the standard Redfish shape:
// @odata.id is the URI, @odata.type is "#<Type>.<version>.<Type>", Id is
// derived from the URI (the ServiceRoot is always "RootService"), and Name
// is as given. Extra properties are merged into the same document.
func NewResource(uri, resourceType, schemaVersion, name string, extra map[string]any) (*Resource, error) {
	id := "RootService"
	if resourceType != "ServiceRoot" {
		id = path.Base(uri)
	}

	doc := map[string]any{
		"@odata.id":   uri,
		"@odata.type": fmt.Sprintf("#%s.%s.%s", resourceType, schemaVersion, resourceType),
		"Id":          id,
		"Name":        name,
	}
	for k, v := range extra {
		doc[k] = v
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", uri, err)
	}

	return &Resource{uri: uri, id: id, body: body}, nil
}

// NewServiceDocument builds the OData service document at uri: a list
// of Singleton entries, one per service URL, each named after the last
// segment of its URL. Unlike NewResource it carries no Id or Name of
// its own, per the OData service-document format.
func NewServiceDocument(uri string, serviceURLs []string) (*Resource, error) {
	values := make([]map[string]string, 0, len(serviceURLs))
	for _, u := range serviceURLs {
		values = append(values, map[string]string{
			"kind": "Singleton",
			"name": path.Base(u),
			"url":  u,
		})
	}

	doc := map[string]any{
		"@odata.id":      uri,
		"@odata.context": "/redfish/v1/$metadata",
		"value":          values,
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", uri, err)
	}

	return &Resource{uri: uri, id: path.Base(uri), body: body}, nil
}

// URI returns the resource URI.
func (r *Resource) URI() string {
	return r.uri
}

// ID returns the derived Id field of the resource.
func (r *Resource) ID() string {
	return r.id
}

// Body returns the precomputed document bytes.
func (r *Resource) Body() []byte {
	return r.body
}
