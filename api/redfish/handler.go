// Package redfish serves the Redfish protocol surface: the version map at
// /redfish, the resource tree under /redfish/v1, and the session
// endpoints.
package redfish

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"redfishd/services/account"
	"redfishd/services/session"
	"redfishd/services/tree"
)

// contentTypeJSON is the exact Content-Type on every 200 response.
const contentTypeJSON = "application/json"

// versionMap is the document served at /redfish, byte-for-byte.
var versionMap = []byte(`{"v1":"/redfish/v1/"}`)

// Handler resolves Redfish request paths against the resource tree
type Handler struct {
	tree     *tree.Tree
	accounts *account.Service
	sessions *session.Service
}

// NewHandler creates a new Redfish handler
func NewHandler(t *tree.Tree, accounts *account.Service, sessions *session.Service) *Handler {
	return &Handler{
		tree:     t,
		accounts: accounts,
		sessions: sessions,
	}
}

// RegisterRoutes registers the Redfish endpoints on the /redfish group.
// All paths below the root go through a single wildcard dispatcher so that
// trailing-slash variants resolve identically and unmatched paths fall
// through to 404 instead of redirects.
func (h *Handler) RegisterRoutes(router gin.IRouter) {
	router.GET("", h.handleVersionMap)
	router.GET("/*path", h.handleGet)
	router.POST("/*path", h.handlePost)
	router.DELETE("/*path", h.handleDelete)
}

// handleVersionMap serves the version map at /redfish.
func (h *Handler) handleVersionMap(c *gin.Context) {
	c.Data(http.StatusOK, contentTypeJSON, versionMap)
}

// handleGet resolves a GET below /redfish to a resource document.
func (h *Handler) handleGet(c *gin.Context) {
	uri := tree.Normalize("/redfish" + c.Param("path"))

	// /redfish/ resolves to the version map, same as /redfish
	if uri == "/redfish" {
		h.handleVersionMap(c)
		return
	}

	if node, ok := h.tree.Get(uri); ok {
		c.Data(http.StatusOK, contentTypeJSON, node.Body())
		return
	}

	if sess, ok := h.sessionForURI(uri); ok {
		c.Data(http.StatusOK, contentTypeJSON, sess.Body())
		return
	}

	// Unmatched paths are a terminal NotFound: empty body, no redirect
	c.Status(http.StatusNotFound)
}

// handlePost dispatches POST requests; session creation is the only
// supported create operation.
func (h *Handler) handlePost(c *gin.Context) {
	uri := tree.Normalize("/redfish" + c.Param("path"))

	if uri == session.CollectionURI {
		h.createSession(c)
		return
	}

	if _, ok := h.tree.Get(uri); ok {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "method not allowed"})
		return
	}
	c.Status(http.StatusNotFound)
}

// handleDelete dispatches DELETE requests; only sessions can be deleted.
func (h *Handler) handleDelete(c *gin.Context) {
	uri := tree.Normalize("/redfish" + c.Param("path"))

	if id, ok := sessionID(uri); ok {
		if err := h.sessions.Delete(id); err != nil {
			c.Status(http.StatusNotFound)
			return
		}
		c.Status(http.StatusNoContent)
		return
	}

	if _, ok := h.tree.Get(uri); ok {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "method not allowed"})
		return
	}
	c.Status(http.StatusNotFound)
}

// createSessionRequest is the login payload per the Redfish Session schema.
type createSessionRequest struct {
	UserName string `json:"UserName"`
	Password string `json:"Password"`
}

// createSession verifies the credentials in the body and opens a session.
func (h *Handler) createSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session request"})
		return
	}

	if err := h.accounts.Verify(req.UserName, req.Password); err != nil {
		if !errors.Is(err, account.ErrInvalidCredentials) {
			log.Printf("Account store error during login: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "authentication unavailable"})
			return
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	sess, err := h.sessions.Create(req.UserName)
	if err != nil {
		log.Printf("Failed to create session for %s: %v", req.UserName, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		return
	}

	c.Header("X-Auth-Token", sess.Token)
	c.Header("Location", sess.URI())
	c.Data(http.StatusCreated, contentTypeJSON, sess.Body())
}

// sessionForURI resolves a URI below the session collection to a live
// session.
func (h *Handler) sessionForURI(uri string) (*session.Session, bool) {
	id, ok := sessionID(uri)
	if !ok {
		return nil, false
	}
	sess, err := h.sessions.Get(id)
	if err != nil {
		return nil, false
	}
	return sess, true
}

// sessionID extracts the session id from a member URI of the collection.
func sessionID(uri string) (string, bool) {
	id := strings.TrimPrefix(uri, session.CollectionURI+"/")
	if id == uri || id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}
