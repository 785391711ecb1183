package httpapi

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lmoretti/birchside/internal/auth"
	"github.com/lmoretti/birchside/internal/models"
	"github.com/lmoretti/birchside/internal/workflow"
	"github.com/lmoretti/birchside/internal/ws"
)

const stateCookie = "oauth_state"

// Env holds every dependency the handlers need, constructed once at
// startup.
type Env struct {
	Identity     *workflow.IdentityService
	Endorsements *workflow.EndorsementService
	Requests     *workflow.RequestService
	Google       *auth.GoogleVerifier
	Tokens       *auth.TokenIssuer
	Hub          *ws.Hub
	Log          *zap.Logger
}

func currentResident(c *gin.Context) *models.Resident {
	if v, ok := c.Get(residentKey); ok {
		if r, ok := v.(*models.Resident); ok {
			return r
		}
	}
	return nil
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return uint(id), true
}

// respondError maps the workflow error taxonomy onto HTTP statuses.
// Anything unrecognized is a 500 with the detail kept out of the response.
func (e *Env) respondError(c *gin.Context, err error) {
	var (
		validation   *workflow.ValidationError
		precondition *workflow.PreconditionError
		authn        *workflow.AuthenticationError
		authz        *workflow.AuthorizationError
		notFound     *workflow.NotFoundError
	)
	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": validation.Msg})
	case errors.As(err, &authn):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "please sign in"})
	case errors.As(err, &authz):
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed"})
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.As(err, &precondition):
		c.JSON(http.StatusPreconditionFailed, gin.H{"error": precondition.Msg, "code": precondition.Code})
	default:
		e.Log.Error("request failed",
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", c.GetString("request_id")),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (e *Env) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// --- Auth ---

func (e *Env) GoogleLogin(c *gin.Context) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		e.respondError(c, err)
		return
	}
	state := hex.EncodeToString(buf)
	c.SetCookie(stateCookie, state, 600, "/", "", false, true)
	c.Redirect(http.StatusFound, e.Google.AuthCodeURL(state))
}

func (e *Env) GoogleCallback(c *gin.Context) {
	state, err := c.Cookie(stateCookie)
	if err != nil || state == "" || c.Query("state") != state {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid oauth state"})
		return
	}
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing code"})
		return
	}

	principal, err := e.Google.Exchange(c.Request.Context(), code)
	if err != nil {
		e.respondError(c, err)
		return
	}
	resident, err := e.Identity.Resolve(c.Request.Context(), principal)
	if err != nil {
		e.respondError(c, err)
		return
	}
	token, err := e.Tokens.Issue(resident.ID)
	if err != nil {
		e.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "resident": resident})
}

// --- Profile ---

func (e *Env) GetProfile(c *gin.Context) {
	c.JSON(http.StatusOK, currentResident(c))
}

type updateProfileInput struct {
	Name    string `json:"name" binding:"required"`
	Address string `json:"address"`
}

func (e *Env) UpdateProfile(c *gin.Context) {
	var input updateProfileInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input: " + err.Error()})
		return
	}
	resident, err := e.Identity.UpdateProfile(c.Request.Context(), currentResident(c), input.Name, input.Address)
	if err != nil {
		e.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resident)
}

// --- Endorsements ---

func (e *Env) ListEndorsements(c *gin.Context) {
	endorsements, err := e.Endorsements.ListPublic(c.Request.Context())
	if err != nil {
		e.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, endorsements)
}

type createEndorsementInput struct {
	Message string `json:"message" binding:"required"`
}

func (e *Env) CreateEndorsement(c *gin.Context) {
	var input createEndorsementInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input: " + err.Error()})
		return
	}
	endorsement, err := e.Endorsements.Submit(c.Request.Context(), currentResident(c), input.Message)
	if err != nil {
		e.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, endorsement)
}

func (e *Env) ListMyEndorsements(c *gin.Context) {
	endorsements, err := e.Endorsements.ListMine(c.Request.Context(), currentResident(c).ID)
	if err != nil {
		e.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, endorsements)
}

func (e *Env) DeleteEndorsement(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := e.Endorsements.Remove(c.Request.Context(), currentResident(c), id); err != nil {
		e.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "endorsement removed"})
}

func (e *Env) ListModerationEndorsements(c *gin.Context) {
	endorsements, err := e.Endorsements.ListAllForModeration(c.Request.Context(), currentResident(c))
	if err != nil {
		e.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, endorsements)
}

func (e *Env) ApproveEndorsement(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := e.Endorsements.Approve(c.Request.Context(), currentResident(c), id); err != nil {
		e.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "endorsement approved"})
}

// --- Requests ---

type createRequestInput struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description" binding:"required"`
}

func (e *Env) CreateRequest(c *gin.Context) {
	var input createRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input: " + err.Error()})
		return
	}
	request, err := e.Requests.Create(c.Request.Context(), currentResident(c), input.Title, input.Description)
	if err != nil {
		e.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, request)
}

func (e *Env) ListMyRequests(c *gin.Context) {
	requests, err := e.Requests.ListMine(c.Request.Context(), currentResident(c).ID)
	if err != nil {
		e.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, requests)
}

type addReplyInput struct {
	Content string `json:"content" binding:"required"`
}

func (e *Env) AddReply(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var input addReplyInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input: " + err.Error()})
		return
	}
	reply, err := e.Requests.AddReply(c.Request.Context(), currentResident(c), id, input.Content)
	if err != nil {
		e.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, reply)
}

func (e *Env) ListAllRequests(c *gin.Context) {
	requests, err := e.Requests.ListAllForAdmin(c.Request.Context(), currentResident(c))
	if err != nil {
		e.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, requests)
}

type setStatusInput struct {
	Status models.RequestStatus `json:"status" binding:"required"`
}

func (e *Env) SetRequestStatus(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var input setStatusInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input: " + err.Error()})
		return
	}
	request, err := e.Requests.SetStatus(c.Request.Context(), currentResident(c), id, input.Status)
	if err != nil {
		e.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, request)
}

func (e *Env) DeleteRequest(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := e.Requests.DeleteRequest(c.Request.Context(), currentResident(c), id); err != nil {
		e.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "request deleted"})
}

func (e *Env) DeleteReply(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := e.Requests.DeleteReply(c.Request.Context(), currentResident(c), id); err != nil {
		e.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "reply deleted"})
}

// --- Residents (admin) ---

type setRoleInput struct {
	IsAdmin *bool `json:"isAdmin" binding:"required"`
}

func (e *Env) SetResidentRole(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var input setRoleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input: " + err.Error()})
		return
	}
	resident, err := e.Identity.SetAdmin(c.Request.Context(), currentResident(c), id, *input.IsAdmin)
	if err != nil {
		e.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resident)
}

func (e *Env) DeleteResident(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := e.Identity.DeleteResident(c.Request.Context(), currentResident(c), id); err != nil {
		e.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "resident deleted"})
}

// AdminFeed upgrades the connection to the event websocket.
func (e *Env) AdminFeed(c *gin.Context) {
	ws.ServeWs(e.Hub, c.Writer, c.Request)
}
