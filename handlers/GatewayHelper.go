package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"portal/models"
	"portal/services"
	"portal/storage"
	"portal/utils"

	"github.com/gin-gonic/gin"
)

// Upstream resource paths. One gateway pipeline serves all of them; only the
// path, timeout, alias table and fallback seed differ per resource.
const (
	resourceTenders        = "tenders"
	resourceInvitations    = "tender-invitations"
	resourceBids           = "tender-bids"
	resourceClarifications = "tender-clarifications"
	resourceRounds         = "prequalification-rounds"
	resourceProfile        = "supplier-profile"
)

// parseListParams reads the common list filters off the query string.
func parseListParams(c *gin.Context) services.ListParams {
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	tenderID, _ := strconv.Atoi(c.Query("tender_id"))
	return services.ListParams{
		Status:   c.Query("status"),
		Type:     c.Query("tender_type"),
		Category: c.Query("category"),
		Search:   c.Query("search"),
		TenderID: tenderID,
		Page:     page,
		Limit:    limit,
	}
}

// fetchOrFallback is the Acquire→Fallback step for one list resource: a
// single upstream attempt, then the deterministic seed. The bool reports
// whether the seed won, so the envelope can carry fallback=true.
func fetchOrFallback(c *gin.Context, resource string, params map[string]string, session *models.Session,
	timeout time.Duration, seeds func() []services.RawRecord) ([]services.RawRecord, bool) {

	erp := storage.GetERP()
	if !erp.Configured() {
		services.LogFallback(resource, "", nil)
		return seeds(), true
	}

	svc := services.NewERPService(erp)
	ctx, cancel := utils.GetUpstreamContext(c.Request.Context(), timeout)
	defer cancel()

	payload, err := svc.FetchList(ctx, resource, params, session.Token)
	if err != nil {
		services.LogFallback(resource, svc.BuildListURL(resource, params), err)
		return seeds(), true
	}
	return payload.Data, false
}

// writeResult is what writeUpstream hands back to the calling handler.
type writeResult struct {
	Record   services.RawRecord
	Fallback bool
}

// writeUpstream performs one mutating upstream call and applies the write
// fallback policy. Returns ok=false when it already wrote the HTTP response
// (upstream rejection, or strict mode with the ERP down).
func writeUpstream(c *gin.Context, method, path string, body interface{}, session *models.Session,
	synthesize func() services.RawRecord) (writeResult, bool) {

	erp := storage.GetERP()
	if !erp.Configured() {
		return acknowledgeLocally(c, path, nil, synthesize)
	}

	svc := services.NewERPService(erp)
	ctx, cancel := utils.GetDefaultUpstreamContext(c.Request.Context())
	defer cancel()

	record, err := svc.Write(ctx, method, path, body, session.Token)
	if err == nil {
		return writeResult{Record: record}, true
	}

	var rejection *services.UpstreamRejection
	if errors.As(err, &rejection) {
		// The ERP understood and refused; that is the caller's problem,
		// never the fallback supplier's.
		status := http.StatusUnprocessableEntity
		if rejection.StatusCode == http.StatusForbidden {
			status = http.StatusForbidden
		}
		c.JSON(status, models.ErrorResponse{
			Error:   "upstream rejected",
			Message: rejection.Message,
			Fields:  rejection.Fields,
		})
		return writeResult{}, false
	}

	return acknowledgeLocally(c, path, err, synthesize)
}

// acknowledgeLocally resolves a write the ERP never processed. Demo mode
// fabricates the acknowledgement and tags it; strict mode fails loudly.
func acknowledgeLocally(c *gin.Context, path string, cause error, synthesize func() services.RawRecord) (writeResult, bool) {
	erp := storage.GetERP()
	attemptedURL := ""
	if erp.Configured() {
		attemptedURL = erp.BaseURL + "/api/" + path
	}
	services.LogFallback(path, attemptedURL, cause)

	if erp.StrictWrites() {
		c.JSON(http.StatusBadGateway, models.ErrorResponse{
			Error:   "upstream unavailable",
			Message: "the procurement system is unreachable and this portal is configured to not accept writes while it is down",
		})
		return writeResult{}, false
	}
	return writeResult{Record: services.SynthesizeWriteRecord(synthesize()), Fallback: true}, true
}

// respondWrite wraps a write result in the canonical envelope. Degraded
// mirrors Fallback on writes: the record was never persisted upstream.
func respondWrite(c *gin.Context, status int, data interface{}, res writeResult, message string) {
	env := models.ResponseEnvelope{Data: data, Message: message}
	if res.Fallback {
		env.Fallback = true
		env.Degraded = true
		if env.Message == "" {
			env.Message = "saved locally; the procurement system is currently unreachable"
		}
	}
	c.JSON(status, env)
}
