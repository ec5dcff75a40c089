package redfish

import (
	"fmt"

	"redfishd/services/session"
	"redfishd/services/tree"
)

// ServiceRootURI is the canonical service root, no trailing slash.
const ServiceRootURI = "/redfish/v1"

// sessionServiceURI is the session service resource.
const sessionServiceURI = "/redfish/v1/SessionService"

// odataServiceDocURI is the OData service document for root discovery.
const odataServiceDocURI = "/redfish/v1/odata"

// NewServiceTree builds the resource tree served by this service: the
// service root, the OData service document, the session service, and
// the dynamic session collection.
// Static documents are marshaled once here and shared read-only by every
// handler.
func NewServiceTree(sessions *session.Service) (*tree.Tree, error) {
	t := tree.New()

	root, err := tree.NewResource(ServiceRootURI, "ServiceRoot", "v1_15_0", "Root Service", map[string]any{
		"Links": map[string]any{
			"Sessions": map[string]any{"@odata.id": session.CollectionURI},
		},
		"SessionService": map[string]any{"@odata.id": sessionServiceURI},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build service root: %w", err)
	}
	t.Add(root)

	svc, err := tree.NewResource(sessionServiceURI, "SessionService", "v1_1_9", "Session Service", map[string]any{
		"Sessions": map[string]any{"@odata.id": session.CollectionURI},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build session service: %w", err)
	}
	t.Add(svc)

	odata, err := tree.NewServiceDocument(odataServiceDocURI, []string{
		ServiceRootURI,
		session.CollectionURI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build odata service document: %w", err)
	}
	t.Add(odata)

	t.Add(session.NewCollection(sessions))

	return t, nil
}
