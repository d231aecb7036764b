package handlers

import (
	"net/http"

	"portal/models"
	"portal/services"
	"portal/utils"

	"github.com/gin-gonic/gin"
)

// GetRounds lists prequalification rounds with the supplier's per-category
// application status.
// @Summary List prequalification rounds
// @Tags Prequalification
// @Produce json
// @Param status query string false "Round status filter (open/closed)"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} models.ResponseEnvelope
// @Failure 401 {object} models.ErrorResponse
// @Router /api/prequalification-rounds [get]
func GetRounds() gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := requireSession(c)
		if !ok {
			return
		}
		params := parseListParams(c)

		raw, fallback := fetchOrFallback(c, resourceRounds, map[string]string{
			"status":      params.Status,
			"supplier_id": session.ThirdPartyID,
		}, session, utils.DefaultUpstreamTimeout, services.FallbackRounds)

		ids := services.NewSlugSet()
		rounds := make([]models.PrequalificationRound, 0, len(raw))
		for _, r := range raw {
			round := services.NormalizeRound(r, ids)
			if params.Status != "" && round.Status != params.Status {
				continue
			}
			rounds = append(rounds, round)
		}

		page, pagination := services.Paginate(rounds, params.Page, params.Limit)
		c.JSON(http.StatusOK, models.ResponseEnvelope{
			Data:       page,
			Pagination: pagination,
			Fallback:   fallback,
		})
	}
}

// ApplyToRound submits the supplier's application for one or more categories
// of an open round.
// @Summary Apply to prequalification round
// @Tags Prequalification
// @Accept json
// @Produce json
// @Param round_id path string true "Round ID"
// @Param body body models.RoundApplicationRequest true "Category codes"
// @Success 200 {object} models.ResponseEnvelope
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /api/prequalification-rounds/{round_id}/apply [post]
func ApplyToRound() gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := requireSession(c)
		if !ok {
			return
		}
		if !session.SupplierScoped() {
			c.JSON(http.StatusForbidden, models.ErrorResponse{Error: "forbidden", Message: "session has no supplier organization"})
			return
		}
		roundID := c.Param("round_id")

		var req models.RoundApplicationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "validation", Message: "invalid JSON body"})
			return
		}
		if len(req.CategoryCodes) == 0 {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:   "validation",
				Message: "at least one category code is required",
				Fields:  map[string]string{"category_codes": "required"},
			})
			return
		}

		body := map[string]interface{}{
			"supplier_id":    session.ThirdPartyID,
			"category_codes": req.CategoryCodes,
		}

		res, ok := writeUpstream(c, http.MethodPost, resourceRounds+"/"+roundID+"/apply", body, session,
			func() services.RawRecord {
				cats := make([]interface{}, 0, len(req.CategoryCodes))
				for _, code := range req.CategoryCodes {
					cats = append(cats, map[string]interface{}{
						"code":               code,
						"application_status": "submitted",
					})
				}
				return services.RawRecord{"id": roundID, "status": models.RoundOpen, "categories": cats}
			})
		if !ok {
			return
		}

		respondWrite(c, http.StatusOK,
			services.NormalizeRound(res.Record, services.NewSlugSet()), res, "application submitted")
	}
}
