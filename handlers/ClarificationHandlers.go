package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"portal/models"
	"portal/services"
	"portal/utils"

	"github.com/gin-gonic/gin"
)

// GetClarifications lists the Q&A thread for one tender.
// @Summary List tender clarifications
// @Description Lists clarifications for a tender. Private questions are only visible to the asking supplier; answered public ones are visible to everyone.
// @Tags Clarifications
// @Produce json
// @Param tender_id query int true "Tender ID"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} models.ResponseEnvelope
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /api/tender-clarifications [get]
func GetClarifications() gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := requireSession(c)
		if !ok {
			return
		}

		tenderIDStr := c.Query("tender_id")
		if tenderIDStr == "" {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:   "validation",
				Message: "tender_id query parameter is required",
				Fields:  map[string]string{"tender_id": "required"},
			})
			return
		}
		tenderID, err := strconv.Atoi(tenderIDStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:   "validation",
				Message: "tender_id must be numeric",
				Fields:  map[string]string{"tender_id": "must be numeric"},
			})
			return
		}
		params := parseListParams(c)

		raw, fallback := fetchOrFallback(c, resourceClarifications, map[string]string{
			"tender_id":   tenderIDStr,
			"supplier_id": session.ThirdPartyID,
		}, session, utils.FastUpstreamTimeout, func() []services.RawRecord {
			return services.FallbackClarifications(tenderID, session.ThirdPartyID)
		})

		ids := services.NewSlugSet()
		clarifications := make([]models.TenderClarification, 0, len(raw))
		for _, r := range raw {
			item := services.NormalizeClarification(r, ids)
			if item.TenderID != 0 && item.TenderID != tenderID {
				continue
			}
			// Non-public questions are visible to the asking supplier only.
			if !item.IsPublic && (item.SupplierID == "" || item.SupplierID != session.ThirdPartyID) {
				continue
			}
			clarifications = append(clarifications, item)
		}

		page, pagination := services.Paginate(clarifications, params.Page, params.Limit)
		c.JSON(http.StatusOK, models.ResponseEnvelope{
			Data:       page,
			Pagination: pagination,
			Fallback:   fallback,
		})
	}
}

// CreateClarification posts a new question on a tender.
// @Summary Ask clarification
// @Tags Clarifications
// @Accept json
// @Produce json
// @Param body body models.ClarificationRequest true "Question"
// @Success 201 {object} models.ResponseEnvelope
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /api/tender-clarifications [post]
func CreateClarification() gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := requireSession(c)
		if !ok {
			return
		}

		var req models.ClarificationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "validation", Message: "invalid JSON body"})
			return
		}
		fields := map[string]string{}
		if req.TenderID == 0 {
			fields["tender_id"] = "required"
		}
		if strings.TrimSpace(req.Question) == "" {
			fields["question"] = "required"
		}
		if len(fields) > 0 {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "validation", Message: "clarification validation failed", Fields: fields})
			return
		}

		body := map[string]interface{}{
			"tender_id":   req.TenderID,
			"question":    req.Question,
			"is_public":   req.IsPublic,
			"supplier_id": session.ThirdPartyID,
		}

		res, ok := writeUpstream(c, http.MethodPost, resourceClarifications, body, session,
			func() services.RawRecord {
				return services.RawRecord{
					"tender_id":   req.TenderID,
					"supplier_id": session.ThirdPartyID,
					"question":    req.Question,
					"is_public":   req.IsPublic,
					"status":      models.ClarificationPending,
					"asked_at":    time.Now().UTC().Format(time.RFC3339),
				}
			})
		if !ok {
			return
		}

		respondWrite(c, http.StatusCreated,
			services.NormalizeClarification(res.Record, services.NewSlugSet()), res, "clarification submitted")
	}
}

// PublishClarification makes an answered clarification visible to all suppliers.
// @Summary Publish clarification
// @Tags Clarifications
// @Produce json
// @Param clarification_id path string true "Clarification ID"
// @Success 200 {object} models.ResponseEnvelope
// @Failure 401 {object} models.ErrorResponse
// @Router /api/tender-clarifications/{clarification_id}/publish [patch]
func PublishClarification() gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := requireSession(c)
		if !ok {
			return
		}
		clarificationID := c.Param("clarification_id")
		if clarificationID == "" {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "validation", Message: "clarification_id is required"})
			return
		}

		res, ok := writeUpstream(c, http.MethodPatch, resourceClarifications+"/"+clarificationID+"/publish",
			map[string]interface{}{}, session,
			func() services.RawRecord {
				return services.RawRecord{"id": clarificationID, "is_public": true, "status": models.ClarificationAnswered}
			})
		if !ok {
			return
		}

		respondWrite(c, http.StatusOK,
			services.NormalizeClarification(res.Record, services.NewSlugSet()), res, "clarification published")
	}
}
