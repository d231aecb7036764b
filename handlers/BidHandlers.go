package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"portal/models"
	"portal/services"
	"portal/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// BidRequest is the JSON body for creating or updating a bid. Document
// entries carry metadata only; on multipart submissions the metadata is
// derived from the uploaded parts instead.
type BidRequest struct {
	TenderID       int                  `json:"tender_id"`
	BidAmount      float64              `json:"bid_amount"`
	Currency       string               `json:"currency"`
	ValidityPeriod int                  `json:"validity_period"`
	DeliveryPeriod int                  `json:"delivery_period"`
	Documents      []models.BidDocument `json:"documents"`
}

// GetBids lists the supplier's bids, optionally for one tender.
// @Summary List bids
// @Tags Bids
// @Produce json
// @Param tender_id query int false "Tender ID filter"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} models.ResponseEnvelope
// @Failure 401 {object} models.ErrorResponse
// @Router /api/tender-bids [get]
func GetBids() gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := requireSession(c)
		if !ok {
			return
		}
		params := parseListParams(c)

		upstreamParams := map[string]string{
			"supplier_id": session.ThirdPartyID,
		}
		if params.TenderID != 0 {
			upstreamParams["tender_id"] = strconv.Itoa(params.TenderID)
		}

		raw, fallback := fetchOrFallback(c, resourceBids, upstreamParams, session,
			utils.SlowUpstreamTimeout, func() []services.RawRecord {
				return services.FallbackBids(session.ThirdPartyID)
			})

		ids := services.NewSlugSet()
		bids := make([]models.TenderBid, 0, len(raw))
		for _, r := range raw {
			bid := services.NormalizeBid(r, ids)
			if params.TenderID != 0 && bid.TenderID != params.TenderID {
				continue
			}
			bids = append(bids, bid)
		}

		page, pagination := services.Paginate(bids, params.Page, params.Limit)
		c.JSON(http.StatusOK, models.ResponseEnvelope{
			Data:       page,
			Pagination: pagination,
			Fallback:   fallback,
		})
	}
}

// CreateBid creates a draft bid.
// @Summary Create bid
// @Description Creates a draft bid. Accepts JSON, or multipart form data when attaching documents; file content is forwarded to the document service separately, only metadata passes through here.
// @Tags Bids
// @Accept json
// @Produce json
// @Param body body BidRequest true "Bid data"
// @Success 201 {object} models.ResponseEnvelope
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /api/tender-bids [post]
func CreateBid() gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := requireSession(c)
		if !ok {
			return
		}

		req, errMsg, fields := readBidRequest(c)
		if errMsg != "" {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "validation", Message: errMsg, Fields: fields})
			return
		}

		body := bidWriteBody(req, session.ThirdPartyID)
		res, ok := writeUpstream(c, http.MethodPost, resourceBids, body, session, func() services.RawRecord {
			rec := services.RawRecord(body)
			rec["status"] = models.BidStatusDraft
			return rec
		})
		if !ok {
			return
		}

		respondWrite(c, http.StatusCreated,
			services.NormalizeBid(res.Record, services.NewSlugSet()), res, "bid created")
	}
}

// UpdateBid updates a draft bid. Submitted bids are immutable for the
// supplier; the ERP enforces that and its rejection is passed through.
// @Summary Update bid
// @Tags Bids
// @Accept json
// @Produce json
// @Param bid_id path string true "Bid ID"
// @Param body body BidRequest true "Bid data"
// @Success 200 {object} models.ResponseEnvelope
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /api/tender-bids/{bid_id} [put]
func UpdateBid() gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := requireSession(c)
		if !ok {
			return
		}
		bidID := c.Param("bid_id")

		req, errMsg, fields := readBidRequest(c)
		if errMsg != "" {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "validation", Message: errMsg, Fields: fields})
			return
		}

		body := bidWriteBody(req, session.ThirdPartyID)
		res, ok := writeUpstream(c, http.MethodPut, resourceBids+"/"+bidID, body, session, func() services.RawRecord {
			rec := services.RawRecord(body)
			rec["id"] = bidID
			rec["status"] = models.BidStatusDraft
			return rec
		})
		if !ok {
			return
		}

		respondWrite(c, http.StatusOK,
			services.NormalizeBid(res.Record, services.NewSlugSet()), res, "bid updated")
	}
}

// SubmitBid submits a draft bid.
// @Summary Submit bid
// @Tags Bids
// @Produce json
// @Param bid_id path string true "Bid ID"
// @Success 200 {object} models.ResponseEnvelope
// @Failure 401 {object} models.ErrorResponse
// @Router /api/tender-bids/{bid_id}/submit [patch]
func SubmitBid() gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := requireSession(c)
		if !ok {
			return
		}
		bidID := c.Param("bid_id")
		if bidID == "" {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "validation", Message: "bid_id is required"})
			return
		}

		res, ok := writeUpstream(c, http.MethodPatch, resourceBids+"/"+bidID+"/submit",
			map[string]interface{}{"supplier_id": session.ThirdPartyID}, session,
			func() services.RawRecord {
				return services.RawRecord{"id": bidID, "status": models.BidStatusSubmitted}
			})
		if !ok {
			return
		}

		respondWrite(c, http.StatusOK,
			services.NormalizeBid(res.Record, services.NewSlugSet()), res, "bid submitted")
	}
}

// readBidRequest parses a bid from either a JSON body or a multipart form
// and validates the required fields. Returns a message and field map on
// validation failure.
func readBidRequest(c *gin.Context) (BidRequest, string, map[string]string) {
	var req BidRequest

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		if err := c.Request.ParseMultipartForm(32 << 20); err != nil {
			return req, "invalid multipart form", nil
		}
		req.TenderID, _ = strconv.Atoi(c.PostForm("tender_id"))
		req.BidAmount, _ = strconv.ParseFloat(c.PostForm("bid_amount"), 64)
		req.Currency = c.PostForm("currency")
		req.ValidityPeriod, _ = strconv.Atoi(c.PostForm("validity_period"))
		req.DeliveryPeriod, _ = strconv.Atoi(c.PostForm("delivery_period"))

		// Each uploaded part becomes a metadata entry; document_types lines
		// up with the files by position, defaulting to "other".
		form := c.Request.MultipartForm
		docTypes := form.Value["document_types"]
		for i, fh := range form.File["documents"] {
			doc := models.BidDocument{
				ID:           uuid.NewString(),
				DocumentType: "other",
				FileName:     fh.Filename,
			}
			if i < len(docTypes) {
				doc.DocumentType = strings.ToLower(strings.TrimSpace(docTypes[i]))
			}
			if f, err := fh.Open(); err == nil {
				doc.Checksum = hashPart(f)
				f.Close()
			}
			req.Documents = append(req.Documents, doc)
		}
	} else {
		if err := c.ShouldBindJSON(&req); err != nil {
			return req, "invalid JSON body", nil
		}
	}

	fields := map[string]string{}
	if req.TenderID == 0 {
		fields["tender_id"] = "required"
	}
	if req.BidAmount <= 0 {
		fields["bid_amount"] = "must be positive"
	}
	for _, d := range req.Documents {
		if !models.ValidBidDocumentType(d.DocumentType) {
			fields["documents"] = fmt.Sprintf("unknown document_type %q", d.DocumentType)
		}
	}
	if len(fields) > 0 {
		return req, "bid validation failed", fields
	}
	if req.Currency == "" {
		req.Currency = "USD"
	}
	return req, "", nil
}

// hashPart checksums an uploaded part so the metadata can be cross-checked
// against what the document service stored.
func hashPart(r io.Reader) string {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return ""
	}
	return hex.EncodeToString(h.Sum(nil))
}

func bidWriteBody(req BidRequest, supplierID string) map[string]interface{} {
	docs := make([]interface{}, 0, len(req.Documents))
	for _, d := range req.Documents {
		if d.ID == "" {
			d.ID = uuid.NewString()
		}
		docs = append(docs, map[string]interface{}{
			"id":                d.ID,
			"document_type":     d.DocumentType,
			"file_name":         d.FileName,
			"checksum":          d.Checksum,
			"encryption_key_id": d.EncryptionKeyID,
		})
	}
	return map[string]interface{}{
		"tender_id":       req.TenderID,
		"bid_amount":      req.BidAmount,
		"currency":        req.Currency,
		"validity_period": req.ValidityPeriod,
		"delivery_period": req.DeliveryPeriod,
		"supplier_id":     supplierID,
		"documents":       docs,
	}
}
