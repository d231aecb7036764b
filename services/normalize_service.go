package services

import (
	"fmt"
	"strconv"
	"strings"

	"portal/models"
)

// The ERP has gone through several backend generations and the same logical
// field arrives under PascalCase, camelCase or snake_case depending on which
// subsystem served it. Each normalizer below resolves one ordered alias list
// per field: first defined value wins, PascalCase (the oldest convention)
// checked first. Normalizers are total: any input map, however broken,
// produces a structurally valid canonical record. Inputs are never mutated.

// firstDefined returns the first non-nil value among the listed keys.
func firstDefined(r map[string]interface{}, keys ...string) interface{} {
	for _, k := range keys {
		if v, ok := r[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func asString(v interface{}, def string) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	}
	return def
}

func asFloat(v interface{}, def float64) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return f
		}
	}
	return def
}

func asInt(v interface{}, def int) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
			return i
		}
		// Some ERP exports send integer keys as "12.0"
		if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return int(f)
		}
	}
	return def
}

func asBool(v interface{}, def bool) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "yes", "1", "y":
			return true
		case "false", "no", "0", "n":
			return false
		}
	case float64:
		return b != 0
	}
	return def
}

// SlugSet issues batch-unique identifiers for records the upstream sent
// without one. Collisions get a numeric suffix.
type SlugSet struct {
	issued map[string]int
}

func NewSlugSet() *SlugSet {
	return &SlugSet{issued: make(map[string]int)}
}

// Claim returns base unchanged the first time, then base-2, base-3, ...
func (s *SlugSet) Claim(base string) string {
	if base == "" {
		base = "record"
	}
	n, seen := s.issued[base]
	s.issued[base] = n + 1
	if !seen {
		return base
	}
	return fmt.Sprintf("%s-%d", base, n+1)
}

// Slugify derives an identifier from a human-readable field.
func Slugify(title string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

// NormalizeTenderStatus collapses every historical status code to the
// canonical value. Anything unrecognized is treated as draft, which keeps it
// out of action-bearing UI states.
func NormalizeTenderStatus(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "pb", "published", "publish", "active", "open":
		return models.TenderStatusPublished
	case "cl", "closed", "close", "expired", "archived":
		return models.TenderStatusClosed
	case "dr", "draft", "created", "new":
		return models.TenderStatusDraft
	default:
		return models.TenderStatusDraft
	}
}

func normalizeTenderType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "restricted", "invited", "closed_invite", "limited":
		return models.TenderTypeRestricted
	default:
		return models.TenderTypeOpen
	}
}

func normalizeInvitationStatus(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "accepted", "accept":
		return models.InvitationAccepted
	case "declined", "decline", "rejected":
		return models.InvitationDeclined
	case "submitted", "responded":
		return models.InvitationSubmitted
	default:
		return models.InvitationPending
	}
}

func normalizeBidStatus(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "submitted", "sb":
		return models.BidStatusSubmitted
	case "evaluated", "under_evaluation", "ev":
		return models.BidStatusEvaluated
	case "awarded", "aw", "won":
		return models.BidStatusAwarded
	case "rejected", "rj", "lost":
		return models.BidStatusRejected
	default:
		return models.BidStatusDraft
	}
}

func normalizeClarificationStatus(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "answered", "responded":
		return models.ClarificationAnswered
	case "closed":
		return models.ClarificationClosed
	default:
		return models.ClarificationPending
	}
}

// Unrecognized round status collapses to closed so a garbled upstream value
// can never present an application window that does not exist.
func normalizeRoundStatus(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "open", "active", "accepting":
		return models.RoundOpen
	default:
		return models.RoundClosed
	}
}

// NormalizeTender maps one raw upstream record to the canonical tender shape.
// ids must be shared across the whole batch so synthesized ids stay unique.
func NormalizeTender(r RawRecord, ids *SlugSet) models.Tender {
	title := asString(firstDefined(r, "Title", "title", "TenderTitle", "tender_title", "Name", "name"), "Untitled Tender")

	id := asString(firstDefined(r, "Id", "id", "ID", "TenderId", "tenderId", "tender_id"), "")
	if id == "" {
		id = ids.Claim(Slugify(title))
	}

	return models.Tender{
		ID:                 id,
		TenderNo:           asString(firstDefined(r, "TenderNo", "tenderNo", "tender_no", "ReferenceNo", "referenceNo", "reference_no"), id),
		Title:              title,
		Description:        asString(firstDefined(r, "Description", "description", "Details", "details"), ""),
		TenderType:         normalizeTenderType(asString(firstDefined(r, "TenderType", "tenderType", "tender_type", "Type", "type"), "")),
		Category:           asString(firstDefined(r, "Category", "category", "CategoryName", "category_name"), ""),
		Status:             NormalizeTenderStatus(asString(firstDefined(r, "Status", "status", "TenderStatus", "tender_status"), "")),
		SubmissionDeadline: asString(firstDefined(r, "SubmissionDeadline", "submissionDeadline", "submission_deadline", "Deadline", "deadline", "ClosingDate", "closing_date"), ""),
		EstimatedValue:     asFloat(firstDefined(r, "EstimatedValue", "estimatedValue", "estimated_value", "Value", "value"), 0),
		Currency:           asString(firstDefined(r, "Currency", "currency", "CurrencyCode", "currency_code"), "USD"),
	}
}

func NormalizeInvitation(r RawRecord, ids *SlugSet) models.TenderInvitation {
	id := asString(firstDefined(r, "InvitationId", "invitationId", "invitation_id", "Id", "id"), "")
	if id == "" {
		id = ids.Claim("invitation")
	}
	status := normalizeInvitationStatus(asString(firstDefined(r, "ResponseStatus", "responseStatus", "response_status", "Status", "status"), ""))

	inv := models.TenderInvitation{
		InvitationID:   id,
		TenderID:       asInt(firstDefined(r, "TenderId", "tenderId", "tender_id", "TenderID"), 0),
		SupplierID:     asString(firstDefined(r, "SupplierId", "supplierId", "supplier_id", "ThirdPartyId", "thirdPartyId", "third_party_id"), ""),
		ResponseStatus: status,
		ResponseDate:   asString(firstDefined(r, "ResponseDate", "responseDate", "response_date"), ""),
	}
	if status == models.InvitationDeclined {
		inv.DeclineReason = asString(firstDefined(r, "DeclineReason", "declineReason", "decline_reason", "Reason", "reason"), "")
	}
	return inv
}

func NormalizeBid(r RawRecord, ids *SlugSet) models.TenderBid {
	id := asString(firstDefined(r, "Id", "id", "BidId", "bidId", "bid_id"), "")
	if id == "" {
		id = ids.Claim("bid")
	}

	bid := models.TenderBid{
		ID:             id,
		TenderID:       asInt(firstDefined(r, "TenderId", "tenderId", "tender_id", "TenderID"), 0),
		BidAmount:      asFloat(firstDefined(r, "BidAmount", "bidAmount", "bid_amount", "Amount", "amount"), 0),
		Currency:       asString(firstDefined(r, "Currency", "currency"), "USD"),
		ValidityPeriod: asInt(firstDefined(r, "ValidityPeriod", "validityPeriod", "validity_period"), 0),
		DeliveryPeriod: asInt(firstDefined(r, "DeliveryPeriod", "deliveryPeriod", "delivery_period"), 0),
		Status:         normalizeBidStatus(asString(firstDefined(r, "Status", "status", "BidStatus", "bid_status"), "")),
		Documents:      []models.BidDocument{},
	}

	if docs, ok := firstDefined(r, "Documents", "documents", "Attachments", "attachments").([]interface{}); ok {
		for _, d := range docs {
			if rec, ok := d.(map[string]interface{}); ok {
				bid.Documents = append(bid.Documents, NormalizeDocument(rec, ids))
			}
		}
	}
	return bid
}

func NormalizeDocument(r RawRecord, ids *SlugSet) models.BidDocument {
	id := asString(firstDefined(r, "Id", "id", "DocumentId", "documentId", "document_id"), "")
	if id == "" {
		id = ids.Claim("document")
	}
	docType := strings.ToLower(asString(firstDefined(r, "DocumentType", "documentType", "document_type", "Type", "type"), ""))
	if !models.ValidBidDocumentType(docType) {
		docType = "other"
	}
	return models.BidDocument{
		ID:              id,
		DocumentType:    docType,
		FileName:        asString(firstDefined(r, "FileName", "fileName", "file_name", "Name", "name"), ""),
		Checksum:        asString(firstDefined(r, "Checksum", "checksum", "Hash", "hash"), ""),
		EncryptionKeyID: asString(firstDefined(r, "EncryptionKeyId", "encryptionKeyId", "encryption_key_id"), ""),
	}
}

func NormalizeClarification(r RawRecord, ids *SlugSet) models.TenderClarification {
	id := asString(firstDefined(r, "Id", "id", "ClarificationId", "clarificationId", "clarification_id"), "")
	if id == "" {
		id = ids.Claim("clarification")
	}
	return models.TenderClarification{
		ID:         id,
		TenderID:   asInt(firstDefined(r, "TenderId", "tenderId", "tender_id"), 0),
		SupplierID: asString(firstDefined(r, "SupplierId", "supplierId", "supplier_id"), ""),
		Question:   asString(firstDefined(r, "Question", "question", "Query", "query"), ""),
		Response:   asString(firstDefined(r, "Response", "response", "Answer", "answer"), ""),
		Status:     normalizeClarificationStatus(asString(firstDefined(r, "Status", "status"), "")),
		IsPublic:   asBool(firstDefined(r, "IsPublic", "isPublic", "is_public", "Public", "public"), false),
		AskedAt:    asString(firstDefined(r, "AskedAt", "askedAt", "asked_at", "CreatedAt", "createdAt", "created_at"), ""),
	}
}

func NormalizeRound(r RawRecord, ids *SlugSet) models.PrequalificationRound {
	id := asString(firstDefined(r, "Id", "id", "RoundId", "roundId", "round_id"), "")
	if id == "" {
		id = ids.Claim("round")
	}

	round := models.PrequalificationRound{
		ID:         id,
		Status:     normalizeRoundStatus(asString(firstDefined(r, "Status", "status", "RoundStatus", "round_status"), "")),
		StartDate:  asString(firstDefined(r, "StartDate", "startDate", "start_date"), ""),
		EndDate:    asString(firstDefined(r, "EndDate", "endDate", "end_date"), ""),
		Categories: []models.RoundCategory{},
	}

	if cats, ok := firstDefined(r, "Categories", "categories").([]interface{}); ok {
		for _, c := range cats {
			if rec, ok := c.(map[string]interface{}); ok {
				round.Categories = append(round.Categories, models.RoundCategory{
					Code:              asString(firstDefined(rec, "Code", "code", "CategoryCode", "category_code"), ""),
					Name:              asString(firstDefined(rec, "Name", "name", "CategoryName", "category_name"), ""),
					ApplicationStatus: asString(firstDefined(rec, "ApplicationStatus", "applicationStatus", "application_status"), "not_applied"),
				})
			}
		}
	}
	return round
}

func NormalizeProfile(r RawRecord) models.SupplierProfile {
	profile := models.SupplierProfile{
		SupplierID:    asString(firstDefined(r, "SupplierId", "supplierId", "supplier_id", "ThirdPartyId", "thirdPartyId", "third_party_id", "Id", "id"), ""),
		CompanyName:   asString(firstDefined(r, "CompanyName", "companyName", "company_name", "Name", "name"), ""),
		ContactPerson: asString(firstDefined(r, "ContactPerson", "contactPerson", "contact_person"), ""),
		Email:         asString(firstDefined(r, "Email", "email"), ""),
		Phone:         asString(firstDefined(r, "Phone", "phone", "PhoneNumber", "phone_number"), ""),
		Address:       asString(firstDefined(r, "Address", "address"), ""),
		BankDetails:   []models.BankDetail{},
	}

	if banks, ok := firstDefined(r, "BankDetails", "bankDetails", "bank_details", "BankAccounts", "bank_accounts").([]interface{}); ok {
		for _, b := range banks {
			if rec, ok := b.(map[string]interface{}); ok {
				profile.BankDetails = append(profile.BankDetails, models.BankDetail{
					BankName:      asString(firstDefined(rec, "BankName", "bankName", "bank_name"), ""),
					AccountName:   asString(firstDefined(rec, "AccountName", "accountName", "account_name"), ""),
					AccountNumber: asString(firstDefined(rec, "AccountNumber", "accountNumber", "account_number"), ""),
					IBAN:          asString(firstDefined(rec, "Iban", "IBAN", "iban"), ""),
					SwiftCode:     asString(firstDefined(rec, "SwiftCode", "swiftCode", "swift_code", "BIC", "bic"), ""),
					Currency:      asString(firstDefined(rec, "Currency", "currency"), ""),
					IsPrimary:     asBool(firstDefined(rec, "IsPrimary", "isPrimary", "is_primary"), false),
				})
			}
		}
	}
	return profile
}

// MergeTendersWithInvitations left-joins tenders with the supplier's
// invitations on the tender id. Every tender is retained; at most one
// invitation attaches. The join key is coerced to an integer on both sides
// because the ERP sends it as a number on one endpoint and a numeric string
// on the other.
func MergeTendersWithInvitations(tenders []models.Tender, invitations []models.TenderInvitation) []models.TenderWithInvitation {
	byTender := make(map[int]*models.TenderInvitation, len(invitations))
	for i := range invitations {
		key := invitations[i].TenderID
		if key == 0 {
			continue
		}
		if _, exists := byTender[key]; !exists {
			byTender[key] = &invitations[i]
		}
	}

	merged := make([]models.TenderWithInvitation, 0, len(tenders))
	for _, t := range tenders {
		entry := models.TenderWithInvitation{Tender: t}
		if key := asInt(t.ID, 0); key != 0 {
			entry.Invitation = byTender[key]
		}
		merged = append(merged, entry)
	}
	return merged
}
