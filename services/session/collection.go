package session

import (
	"encoding/json"
)

// Collection is the SessionCollection resource. Unlike static tree nodes
// its body is rebuilt per request from the live session set.
type Collection struct {
	service *Service
}

// NewCollection creates the session collection node backed by svc.
func NewCollection(svc *Service) *Collection {
	return &Collection{service: svc}
}

// URI returns the collection URI.
func (c *Collection) URI() string {
	return CollectionURI
}

// Body returns the collection document with one member per live session.
func (c *Collection) Body() []byte {
	sessions := c.service.List()

	members := make([]map[string]string, 0, len(sessions))
	for _, sess := range sessions {
		members = append(members, map[string]string{"@odata.id": sess.URI()})
	}

	// Marshal cannot fail: the value holds only strings, string maps
	// and an int.
	body, _ := json.Marshal(map[string]any{
		"@odata.id":           CollectionURI,
		"@odata.type":         "#SessionCollection.SessionCollection",
		"Name":                "Session Collection",
		"Members":             members,
		"Members@odata.count": len(members),
	})
	return body
}
