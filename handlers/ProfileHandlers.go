package handlers

import (
	"net/http"
	"regexp"
	"strings"

	"portal/models"
	"portal/services"
	"portal/storage"
	"portal/utils"

	"github.com/gin-gonic/gin"
)

var ibanPattern = regexp.MustCompile(`^[A-Z]{2}[0-9]{2}[A-Z0-9]{10,30}$`)

// GetProfile returns the supplier organization profile with bank details.
// @Summary Get supplier profile
// @Tags Profile
// @Produce json
// @Success 200 {object} models.ResponseEnvelope
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /api/supplier-profile [get]
func GetProfile() gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := requireSession(c)
		if !ok {
			return
		}
		if !session.SupplierScoped() {
			c.JSON(http.StatusForbidden, models.ErrorResponse{Error: "forbidden", Message: "session has no supplier organization"})
			return
		}

		erp := storage.GetERP()
		if erp.Configured() {
			svc := services.NewERPService(erp)
			ctx, cancel := utils.GetDefaultUpstreamContext(c.Request.Context())
			defer cancel()

			record, err := svc.FetchOne(ctx, resourceProfile, session.ThirdPartyID, session.Token)
			if err == nil {
				c.JSON(http.StatusOK, models.ResponseEnvelope{Data: services.NormalizeProfile(record)})
				return
			}
			services.LogFallback(resourceProfile, erp.BaseURL+"/api/"+resourceProfile+"/"+session.ThirdPartyID, err)
		} else {
			services.LogFallback(resourceProfile, "", nil)
		}

		profile := services.NormalizeProfile(services.FallbackProfile(session.ThirdPartyID, session.Email))
		c.JSON(http.StatusOK, models.ResponseEnvelope{Data: profile, Fallback: true})
	}
}

// UpdateProfile updates the supplier profile and bank details.
// @Summary Update supplier profile
// @Tags Profile
// @Accept json
// @Produce json
// @Param body body models.SupplierProfile true "Profile"
// @Success 200 {object} models.ResponseEnvelope
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /api/supplier-profile [put]
func UpdateProfile() gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := requireSession(c)
		if !ok {
			return
		}
		if !session.SupplierScoped() {
			c.JSON(http.StatusForbidden, models.ErrorResponse{Error: "forbidden", Message: "session has no supplier organization"})
			return
		}

		var req models.SupplierProfile
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "validation", Message: "invalid JSON body"})
			return
		}
		if fields := validateProfile(&req); len(fields) > 0 {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "validation", Message: "profile validation failed", Fields: fields})
			return
		}
		// The profile can only be edited for the organization on the session.
		req.SupplierID = session.ThirdPartyID

		res, ok := writeUpstream(c, http.MethodPut, resourceProfile+"/"+session.ThirdPartyID, req, session,
			func() services.RawRecord {
				return services.RawRecord{
					"supplier_id":    session.ThirdPartyID,
					"company_name":   req.CompanyName,
					"contact_person": req.ContactPerson,
					"email":          req.Email,
					"phone":          req.Phone,
					"address":        req.Address,
				}
			})
		if !ok {
			return
		}

		profile := services.NormalizeProfile(res.Record)
		if res.Fallback {
			// The synthesized record is flat; echo the validated bank
			// details back so the UI state stays coherent.
			profile.BankDetails = req.BankDetails
		}
		respondWrite(c, http.StatusOK, profile, res, "profile updated")
	}
}

func validateProfile(p *models.SupplierProfile) map[string]string {
	fields := map[string]string{}
	if strings.TrimSpace(p.CompanyName) == "" {
		fields["company_name"] = "required"
	}
	if strings.TrimSpace(p.Email) == "" || !strings.Contains(p.Email, "@") {
		fields["email"] = "a valid email is required"
	}
	for _, b := range p.BankDetails {
		if strings.TrimSpace(b.BankName) == "" {
			fields["bank_details"] = "bank_name is required"
		}
		if strings.TrimSpace(b.AccountNumber) == "" && strings.TrimSpace(b.IBAN) == "" {
			fields["bank_details"] = "account_number or iban is required"
		}
		if b.IBAN != "" && !ibanPattern.MatchString(strings.ToUpper(strings.ReplaceAll(b.IBAN, " ", ""))) {
			fields["bank_details"] = "iban is not valid"
		}
	}
	return fields
}
