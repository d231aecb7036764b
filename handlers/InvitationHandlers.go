package handlers

import (
	"net/http"
	"time"

	"portal/models"
	"portal/services"
	"portal/utils"

	"github.com/gin-gonic/gin"
)

// GetInvitations lists the calling supplier's tender invitations.
// @Summary List tender invitations
// @Description Lists invitations for the supplier organization on the session. Requires Authorization header.
// @Tags Invitations
// @Produce json
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} models.ResponseEnvelope
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /api/tender-invitations [get]
func GetInvitations() gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := requireSession(c)
		if !ok {
			return
		}
		if !session.SupplierScoped() {
			c.JSON(http.StatusForbidden, models.ErrorResponse{Error: "forbidden", Message: "session has no supplier organization"})
			return
		}
		params := parseListParams(c)

		raw, fallback := fetchOrFallback(c, resourceInvitations, map[string]string{
			"supplier_id": session.ThirdPartyID,
			"status":      params.Status,
		}, session, utils.FastUpstreamTimeout, func() []services.RawRecord {
			return services.FallbackInvitations(session.ThirdPartyID)
		})

		ids := services.NewSlugSet()
		invitations := make([]models.TenderInvitation, 0, len(raw))
		for _, r := range raw {
			invitations = append(invitations, services.NormalizeInvitation(r, ids))
		}

		page, pagination := services.Paginate(invitations, params.Page, params.Limit)
		c.JSON(http.StatusOK, models.ResponseEnvelope{
			Data:       page,
			Pagination: pagination,
			Fallback:   fallback,
		})
	}
}

// RespondInvitation records the supplier's accept/decline on an invitation.
// @Summary Respond to invitation
// @Description Accept or decline a restricted tender invitation. Declining requires decline_reason.
// @Tags Invitations
// @Accept json
// @Produce json
// @Param invitation_id path string true "Invitation ID"
// @Param body body models.InvitationResponseRequest true "Response"
// @Success 200 {object} models.ResponseEnvelope
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /api/tender-invitations/{invitation_id}/respond [put]
func RespondInvitation() gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := requireSession(c)
		if !ok {
			return
		}
		invitationID := c.Param("invitation_id")

		var req models.InvitationResponseRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "validation", Message: "invalid JSON body"})
			return
		}

		// Input validation happens before any upstream work.
		switch req.ResponseStatus {
		case models.InvitationAccepted:
		case models.InvitationDeclined:
			if req.DeclineReason == "" {
				c.JSON(http.StatusBadRequest, models.ErrorResponse{
					Error:   "validation",
					Message: "decline_reason is required when declining an invitation",
					Fields:  map[string]string{"decline_reason": "required"},
				})
				return
			}
		default:
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:   "validation",
				Message: "response_status must be accepted or declined",
				Fields:  map[string]string{"response_status": "must be accepted or declined"},
			})
			return
		}

		body := map[string]interface{}{
			"response_status": req.ResponseStatus,
			"decline_reason":  req.DeclineReason,
			"supplier_id":     session.ThirdPartyID,
		}

		res, ok := writeUpstream(c, http.MethodPut, resourceInvitations+"/"+invitationID+"/respond", body, session,
			func() services.RawRecord {
				return services.RawRecord{
					"invitation_id":   invitationID,
					"supplier_id":     session.ThirdPartyID,
					"response_status": req.ResponseStatus,
					"decline_reason":  req.DeclineReason,
					"response_date":   time.Now().UTC().Format(time.RFC3339),
				}
			})
		if !ok {
			return
		}

		respondWrite(c, http.StatusOK,
			services.NormalizeInvitation(res.Record, services.NewSlugSet()), res, "invitation response recorded")
	}
}
