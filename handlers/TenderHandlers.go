package handlers

import (
	"net/http"
	"sync"

	"portal/models"
	"portal/services"
	"portal/storage"
	"portal/utils"

	"github.com/gin-gonic/gin"
)

// GetTenders lists tenders, merged with the supplier's invitations.
// @Summary List tenders
// @Description Lists tenders with status/type/category/search filters. For supplier sessions each tender carries the supplier's invitation when one exists. Requires Authorization header.
// @Tags Tenders
// @Produce json
// @Param status query string false "Tender status filter"
// @Param tender_type query string false "open or restricted"
// @Param category query string false "Category filter"
// @Param search query string false "Title or tender number search"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} models.ResponseEnvelope
// @Failure 401 {object} models.ErrorResponse
// @Router /api/tenders [get]
func GetTenders() gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := requireSession(c)
		if !ok {
			return
		}
		params := parseListParams(c)

		upstreamParams := map[string]string{
			"status":      params.Status,
			"tender_type": params.Type,
			"category":    params.Category,
			"search":      params.Search,
		}

		// Tenders and invitations are independent upstream collections;
		// fetch them concurrently and let each settle on its own. The
		// invitation fetch is best-effort: the tender listing must never
		// depend on it succeeding.
		var (
			wg            sync.WaitGroup
			rawTenders    []services.RawRecord
			tendersFB     bool
			rawInvitation []services.RawRecord
		)

		wg.Add(1)
		go func() {
			defer wg.Done()
			rawTenders, tendersFB = fetchOrFallback(c, resourceTenders, upstreamParams, session,
				utils.DefaultUpstreamTimeout, services.FallbackTenders)
		}()

		if session.SupplierScoped() {
			wg.Add(1)
			go func() {
				defer wg.Done()
				rawInvitation = fetchInvitationsBestEffort(c, session)
			}()
		}
		wg.Wait()

		ids := services.NewSlugSet()
		tenders := make([]models.Tender, 0, len(rawTenders))
		for _, r := range rawTenders {
			tenders = append(tenders, services.NormalizeTender(r, ids))
		}
		tenders = services.FilterTenders(tenders, params)
		services.SortTenders(tenders)

		if tendersFB && session.SupplierScoped() && len(rawInvitation) == 0 {
			// Demo tenders come with demo invitations, so the restricted
			// tender flows stay demonstrable offline.
			rawInvitation = services.FallbackInvitations(session.ThirdPartyID)
		}

		invIDs := services.NewSlugSet()
		invitations := make([]models.TenderInvitation, 0, len(rawInvitation))
		for _, r := range rawInvitation {
			invitations = append(invitations, services.NormalizeInvitation(r, invIDs))
		}

		merged := services.MergeTendersWithInvitations(tenders, invitations)
		page, pagination := services.Paginate(merged, params.Page, params.Limit)

		c.JSON(http.StatusOK, models.ResponseEnvelope{
			Data:       page,
			Pagination: pagination,
			Fallback:   tendersFB,
		})
	}
}

// fetchInvitationsBestEffort fetches the supplier's invitations for the
// merge. Any failure degrades to an empty collection.
func fetchInvitationsBestEffort(c *gin.Context, session *models.Session) []services.RawRecord {
	erp := storage.GetERP()
	if !erp.Configured() {
		return nil
	}
	svc := services.NewERPService(erp)
	ctx, cancel := utils.GetFastUpstreamContext(c.Request.Context())
	defer cancel()

	payload, err := svc.FetchList(ctx, resourceInvitations, map[string]string{
		"supplier_id": session.ThirdPartyID,
	}, session.Token)
	if err != nil {
		services.LogFallback(resourceInvitations, svc.BuildListURL(resourceInvitations, nil), err)
		return nil
	}
	return payload.Data
}

// GetTender fetches one tender by id.
// @Summary Get tender
// @Tags Tenders
// @Produce json
// @Param tender_id path string true "Tender ID"
// @Success 200 {object} models.ResponseEnvelope
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/tenders/{tender_id} [get]
func GetTender() gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := requireSession(c)
		if !ok {
			return
		}
		tenderID := c.Param("tender_id")
		if tenderID == "" {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "validation", Message: "tender_id is required"})
			return
		}

		erp := storage.GetERP()
		if erp.Configured() {
			svc := services.NewERPService(erp)
			ctx, cancel := utils.GetDefaultUpstreamContext(c.Request.Context())
			defer cancel()

			record, err := svc.FetchOne(ctx, resourceTenders, tenderID, session.Token)
			if err == nil {
				c.JSON(http.StatusOK, models.ResponseEnvelope{
					Data: services.NormalizeTender(record, services.NewSlugSet()),
				})
				return
			}
			services.LogFallback(resourceTenders, erp.BaseURL+"/api/"+resourceTenders+"/"+tenderID, err)
		} else {
			services.LogFallback(resourceTenders, "", nil)
		}

		ids := services.NewSlugSet()
		for _, r := range services.FallbackTenders() {
			tender := services.NormalizeTender(r, ids)
			if tender.ID == tenderID || tender.TenderNo == tenderID {
				c.JSON(http.StatusOK, models.ResponseEnvelope{Data: tender, Fallback: true})
				return
			}
		}
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "not found", Message: "tender not found"})
	}
}
