package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"portal/models"
	"portal/services"
	"portal/storage"
	"portal/utils"

	"github.com/gin-gonic/gin"
	"github.com/jung-kurt/gofpdf"
	"github.com/skip2/go-qrcode"
)

// BidReceiptPDF generates a printable acknowledgement for a bid, with a QR
// code linking back to the tender page on the portal.
// @Summary      Generate bid receipt PDF
// @Tags         Bids
// @Param        bid_id   path  string  true  "Bid ID"
// @Success      200  "PDF file"
// @Failure      401  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /api/tender-bids/{bid_id}/receipt [get]
func BidReceiptPDF() gin.HandlerFunc {
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

		bid, fallback, found := loadBid(c, session, bidID)
		if !found {
			c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "not found", Message: "bid not found"})
			return
		}

		tenderURL := fmt.Sprintf("%s/tenders/%d", storage.GetERP().PortalURL(), bid.TenderID)

		pdf := gofpdf.New("P", "mm", "A4", "")
		pdf.AddPage()
		pdf.SetFont("Arial", "B", 16)
		pdf.Cell(0, 10, "Bid Acknowledgement")
		pdf.Ln(12)

		pdf.SetFont("Arial", "", 11)
		writeReceiptRow(pdf, "Bid ID", bid.ID)
		writeReceiptRow(pdf, "Tender ID", fmt.Sprintf("%d", bid.TenderID))
		writeReceiptRow(pdf, "Supplier", session.ThirdPartyID)
		writeReceiptRow(pdf, "Bid Amount", fmt.Sprintf("%.2f %s", bid.BidAmount, bid.Currency))
		writeReceiptRow(pdf, "Validity Period", fmt.Sprintf("%d days", bid.ValidityPeriod))
		writeReceiptRow(pdf, "Delivery Period", fmt.Sprintf("%d days", bid.DeliveryPeriod))
		writeReceiptRow(pdf, "Status", bid.Status)
		writeReceiptRow(pdf, "Documents", fmt.Sprintf("%d attached", len(bid.Documents)))
		writeReceiptRow(pdf, "Generated", time.Now().UTC().Format(time.RFC3339))
		if fallback {
			pdf.Ln(4)
			pdf.SetFont("Arial", "I", 9)
			pdf.Cell(0, 8, "Generated from offline demo data; not an upstream record.")
		}

		// QR code bottom-right linking to the tender page
		if png, err := qrcode.Encode(tenderURL, qrcode.Medium, 256); err == nil {
			opts := gofpdf.ImageOptions{ImageType: "PNG"}
			pdf.RegisterImageOptionsReader("tender-qr", opts, bytes.NewReader(png))
			pdf.ImageOptions("tender-qr", 160, 240, 35, 35, false, opts, 0, "")
			pdf.SetY(278)
			pdf.SetFont("Arial", "", 8)
			pdf.CellFormat(0, 5, tenderURL, "", 0, "R", false, 0, "")
		}

		var buf bytes.Buffer
		if err := pdf.Output(&buf); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error generating PDF", "details": err.Error()})
			return
		}

		c.Header("Content-Type", "application/pdf")
		c.Header("Content-Disposition", fmt.Sprintf("attachment;filename=bid_receipt_%s.pdf", bid.ID))
		c.Data(http.StatusOK, "application/pdf", buf.Bytes())
	}
}

func writeReceiptRow(pdf *gofpdf.Fpdf, label, value string) {
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(50, 8, label, "", 0, "L", false, 0, "")
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(0, 8, value, "", 1, "L", false, 0, "")
}

// loadBid resolves one bid through the usual fetch-then-fallback path.
func loadBid(c *gin.Context, session *models.Session, bidID string) (models.TenderBid, bool, bool) {
	erp := storage.GetERP()
	if erp.Configured() {
		svc := services.NewERPService(erp)
		ctx, cancel := utils.GetDefaultUpstreamContext(c.Request.Context())
		defer cancel()

		record, err := svc.FetchOne(ctx, resourceBids, bidID, session.Token)
		if err == nil {
			return services.NormalizeBid(record, services.NewSlugSet()), false, true
		}
		services.LogFallback(resourceBids, erp.BaseURL+"/api/"+resourceBids+"/"+bidID, err)
	} else {
		services.LogFallback(resourceBids, "", nil)
	}

	ids := services.NewSlugSet()
	for _, r := range services.FallbackBids(session.ThirdPartyID) {
		bid := services.NormalizeBid(r, ids)
		if bid.ID == bidID {
			return bid, true, true
		}
	}
	return models.TenderBid{}, true, false
}
