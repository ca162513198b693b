package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rollbook/internal/account"
	"rollbook/internal/auth"
	"rollbook/internal/model"
)

type registerRequest struct {
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required,max=72"`
	InstitutionType string `json:"institutionType"`
	model.Profile
}

// loginRequest has no required fields: missing credentials fail the lookup
// and answer 401 like a wrong password.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type resetPasswordRequest struct {
	EmailOrPhone string `json:"emailOrPhone" binding:"required"`
	NewPassword  string `json:"newPassword" binding:"required,max=72"`
}

func (h *handler) register(c *gin.Context) {
	var req registerRequest
	if !h.bindJSON(c, &req) {
		return
	}
	id, err := h.accounts.Register(c.Request.Context(), account.RegisterInput{
		Email:           req.Email,
		Password:        req.Password,
		InstitutionType: req.InstitutionType,
		Profile:         req.Profile,
	})
	if err != nil {
		h.fail(c, err, "Failed to register user")
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id})
}

func (h *handler) login(c *gin.Context) {
	var req loginRequest
	if !h.bindJSON(c, &req) {
		return
	}
	res, err := h.accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, err, "Invalid email or password")
		return
	}
	body := gin.H{"userId": res.UserID, "institutionType": res.InstitutionType}
	if res.Tokens.AccessToken != "" {
		body["accessToken"] = res.Tokens.AccessToken
		body["refreshToken"] = res.Tokens.RefreshToken
		body["expiresAt"] = res.Tokens.AccessExp.Unix()
	}
	c.JSON(http.StatusOK, body)
}

func (h *handler) resetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if !h.bindJSON(c, &req) {
		return
	}
	if err := h.accounts.ResetPassword(c.Request.Context(), req.EmailOrPhone, req.NewPassword); err != nil {
		h.fail(c, err, "Failed to reset password")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password reset successful"})
}

func (h *handler) getProfile(c *gin.Context) {
	id, ok := h.pathUser(c)
	if !ok {
		return
	}
	u, err := h.accounts.Profile(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "Failed to load profile")
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *handler) updateProfile(c *gin.Context) {
	id, ok := h.pathUser(c)
	if !ok {
		return
	}
	var p model.Profile
	if !h.bindJSON(c, &p) {
		return
	}
	if err := h.accounts.UpdateProfile(c.Request.Context(), id, p); err != nil {
		h.fail(c, err, "Failed to update profile")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Profile updated"})
}

// pathUser parses :userId and checks the caller may act on it.
func (h *handler) pathUser(c *gin.Context) (model.ID, bool) {
	id, err := model.ParseID(c.Param("userId"))
	if err != nil {
		h.badRequest(c, "Invalid userId", nil)
		return 0, false
	}
	if !auth.SubjectAllowed(c, id.String()) {
		h.forbidden(c)
		return 0, false
	}
	return id, true
}

// bodyUser checks the caller may act on a userId taken from a request body.
func (h *handler) bodyUser(c *gin.Context, id model.ID) bool {
	if id > 0 && !auth.SubjectAllowed(c, id.String()) {
		h.forbidden(c)
		return false
	}
	return true
}
