package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type roleRequest struct {
	Role string `json:"role" binding:"required"`
}

// GET /api/users
func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.Users.ListUsers(requestContext(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users, "total": len(users)})
}

// PUT /api/users/:id/role
func (h *Handler) SetUserRole(c *gin.Context) {
	actor, ok := caller(c)
	if !ok {
		return
	}
	uid, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req roleRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	u, err := h.Users.SetRole(requestContext(c), actor, uid, req.Role)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u})
}

// DELETE /api/users/:id
func (h *Handler) DeleteUser(c *gin.Context) {
	actor, ok := caller(c)
	if !ok {
		return
	}
	uid, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.Users.DeleteUser(requestContext(c), actor, uid); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user deleted", "id": uid})
}
