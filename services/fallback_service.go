package services

import (
	"log"
	"sort"
	"strings"
	"time"

	"portal/models"
	"portal/repository"

	"github.com/google/uuid"
)

// The fallback supplier keeps the portal usable when the ERP is down or not
// configured. Seeds are fixed realistic records, deliberately written in the
// mixed key conventions the live ERP produces, so they flow through exactly
// the same normalize/filter/paginate pipeline as live data. Only deadline
// fields are derived from the wall clock.

// ListParams are the recognized list filters after input validation.
type ListParams struct {
	Status   string
	Type     string
	Category string
	Search   string
	TenderID int
	Page     int
	Limit    int
}

const DefaultPageLimit = 10

// LogFallback records why the live path lost. Operability signal only.
func LogFallback(resource, attemptedURL string, err error) {
	if err == nil {
		log.Printf("WARNING: serving fallback data for %s: upstream not configured", resource)
		return
	}
	log.Printf("WARNING: serving fallback data for %s: %v (url: %s)", resource, err, attemptedURL)
}

// FallbackTenders returns the demo tender seed.
func FallbackTenders() []RawRecord {
	deadline := func(days int) string {
		return time.Now().AddDate(0, 0, days).UTC().Format(time.RFC3339)
	}
	return []RawRecord{
		{
			"TenderId":           "1",
			"TenderNo":           "TND-2024-001",
			"Title":              "Supply of Office Furniture",
			"Description":        "Framework supply of office furniture for the new headquarters building.",
			"TenderType":         "open",
			"Category":           "goods",
			"Status":             "pb",
			"SubmissionDeadline": deadline(21),
			"EstimatedValue":     "150000",
			"Currency":           "USD",
		},
		{
			"tender_id":           "2",
			"tender_no":           "TND-2024-002",
			"title":               "Road Maintenance Services - Northern Region",
			"description":         "Annual road maintenance and pothole repair for the northern district network.",
			"tender_type":         "restricted",
			"category":            "works",
			"status":              "published",
			"submission_deadline": deadline(14),
			"estimated_value":     2750000,
			"currency":            "USD",
		},
		{
			"tenderId":           "3",
			"tenderNo":           "TND-2024-003",
			"title":              "IT Infrastructure Upgrade",
			"tenderType":         "open",
			"category":           "services",
			"status":             "cl",
			"submissionDeadline": deadline(-7),
			"estimatedValue":     480000.50,
			"currency":           "USD",
		},
	}
}

func FallbackInvitations(supplierID string) []RawRecord {
	if supplierID == "" {
		supplierID = "SUP-0001"
	}
	return []RawRecord{
		{
			"InvitationId":   "inv-2001",
			"TenderId":       "2",
			"SupplierId":     supplierID,
			"ResponseStatus": "pending",
		},
		{
			"invitation_id":   "inv-2002",
			"tender_id":       3,
			"supplier_id":     supplierID,
			"response_status": "accepted",
			"response_date":   "2024-05-11T09:30:00Z",
		},
	}
}

func FallbackBids(supplierID string) []RawRecord {
	return []RawRecord{
		{
			"BidId":          "bid-3001",
			"TenderId":       "1",
			"BidAmount":      "139500",
			"Currency":       "USD",
			"ValidityPeriod": 90,
			"DeliveryPeriod": 45,
			"Status":         "draft",
			"Documents": []interface{}{
				map[string]interface{}{
					"DocumentId":   "doc-5001",
					"DocumentType": "technical",
					"FileName":     "technical-proposal.pdf",
					"Checksum":     "9f2c1a7e",
				},
			},
		},
		{
			"bid_id":          "bid-3002",
			"tender_id":       3,
			"bid_amount":      455000,
			"currency":        "USD",
			"validity_period": "120",
			"delivery_period": "60",
			"status":          "submitted",
		},
	}
}

func FallbackClarifications(tenderID int, supplierID string) []RawRecord {
	if supplierID == "" {
		supplierID = "SUP-0001"
	}
	all := []RawRecord{
		{
			"Id":         "clr-4001",
			"TenderId":   "1",
			"SupplierId": "SUP-0315",
			"Question":   "Is partial delivery acceptable for the furniture lots?",
			"Response":   "Yes, delivery may be staged per floor as long as lot 1 completes first.",
			"Status":     "answered",
			"IsPublic":   true,
			"AskedAt":    "2024-05-02T10:15:00Z",
		},
		{
			"clarification_id": "clr-4002",
			"tender_id":        1,
			"supplier_id":      supplierID,
			"question":         "Can the submission deadline be extended by one week?",
			"status":           "pending",
			"is_public":        false,
			"asked_at":         "2024-05-06T14:40:00Z",
		},
		{
			"clarificationId": "clr-4003",
			"tenderId":        "2",
			"supplierId":      "SUP-0315",
			"question":        "Which asphalt grade is required for rural segments?",
			"response":        "Grade AC-20 per the attached technical annex.",
			"status":          "answered",
			"isPublic":        "true",
			"askedAt":         "2024-05-04T08:05:00Z",
		},
		{
			// Another supplier's unanswered private question; the visibility
			// filter must keep it out of everyone else's listing.
			"Id":         "clr-4004",
			"TenderId":   "1",
			"SupplierId": "SUP-0777",
			"Question":   "Can we substitute an equivalent fabric for the seating line?",
			"Status":     "pending",
			"IsPublic":   false,
			"AskedAt":    "2024-05-07T11:20:00Z",
		},
	}
	if tenderID == 0 {
		return all
	}
	filtered := make([]RawRecord, 0, len(all))
	for _, r := range all {
		if asInt(firstDefined(r, "TenderId", "tenderId", "tender_id"), 0) == tenderID {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

func FallbackRounds() []RawRecord {
	return []RawRecord{
		{
			"RoundId":   "rnd-2024-q3",
			"Status":    "open",
			"StartDate": "2024-07-01",
			"EndDate":   "2024-09-30",
			"Categories": []interface{}{
				map[string]interface{}{"Code": "CIV", "Name": "Civil Works", "ApplicationStatus": "not_applied"},
				map[string]interface{}{"code": "ICT", "name": "ICT Services", "application_status": "submitted"},
			},
		},
		{
			"round_id":   "rnd-2024-q1",
			"status":     "closed",
			"start_date": "2024-01-01",
			"end_date":   "2024-03-31",
			"categories": []interface{}{
				map[string]interface{}{"code": "GDS", "name": "General Goods", "application_status": "approved"},
			},
		},
	}
}

func FallbackProfile(supplierID, email string) RawRecord {
	if supplierID == "" {
		supplierID = "SUP-0001"
	}
	return RawRecord{
		"SupplierId":    supplierID,
		"CompanyName":   "Acme Trading LLC",
		"ContactPerson": "Jordan Mensah",
		"Email":         email,
		"Phone":         "+1-555-0147",
		"Address":       "12 Harbour Road, Springfield",
		"BankDetails": []interface{}{
			map[string]interface{}{
				"BankName":      "First National Bank",
				"AccountName":   "Acme Trading LLC",
				"AccountNumber": "0011223344",
				"SwiftCode":     "FNBKUS33",
				"Currency":      "USD",
				"IsPrimary":     true,
			},
		},
	}
}

// SynthesizeWriteRecord fabricates the acknowledgement record for a write
// that could not reach the ERP (demo write mode). The caller tags the
// envelope fallback+degraded so the UI can tell the user nothing was
// persisted upstream.
func SynthesizeWriteRecord(input RawRecord) RawRecord {
	out := make(RawRecord, len(input)+1)
	for k, v := range input {
		out[k] = v
	}
	if firstDefined(out, "Id", "id") == nil {
		out["id"] = uuid.NewString()
	}
	if firstDefined(out, "ReferenceNo", "reference_no") == nil {
		out["reference_no"] = repository.GenerateReferenceCode("LCL")
	}
	return out
}

// FilterTenders applies the list filters on normalized records, so live and
// fallback payloads behave identically. Status and type accept the same raw
// aliases the normalizer accepts.
func FilterTenders(tenders []models.Tender, p ListParams) []models.Tender {
	out := make([]models.Tender, 0, len(tenders))
	status := ""
	if p.Status != "" {
		status = NormalizeTenderStatus(p.Status)
	}
	search := strings.ToLower(strings.TrimSpace(p.Search))
	for _, t := range tenders {
		if status != "" && t.Status != status {
			continue
		}
		if p.Type != "" && t.TenderType != normalizeTenderType(p.Type) {
			continue
		}
		if p.Category != "" && !strings.EqualFold(t.Category, p.Category) {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(t.Title), search) &&
			!strings.Contains(strings.ToLower(t.TenderNo), search) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// SortTenders orders by submission deadline, then id, for a stable listing.
func SortTenders(tenders []models.Tender) {
	sort.SliceStable(tenders, func(i, j int) bool {
		if tenders[i].SubmissionDeadline != tenders[j].SubmissionDeadline {
			return tenders[i].SubmissionDeadline < tenders[j].SubmissionDeadline
		}
		return tenders[i].ID < tenders[j].ID
	})
}

// Paginate slices one page out of items and computes the pagination block.
// pages = ceil(total/limit).
func Paginate[T any](items []T, page, limit int) ([]T, *models.Pagination) {
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if page <= 0 {
		page = 1
	}
	total := len(items)
	pages := (total + limit - 1) / limit

	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	return items[start:end], &models.Pagination{
		Total: total,
		Page:  page,
		Limit: limit,
		Pages: pages,
	}
}
