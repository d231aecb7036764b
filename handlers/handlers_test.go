package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"portal/models"
	"portal/storage"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testSecret = "supplier-portal-dev"

func TestMain(m *testing.M) {
	os.Setenv("SESSION_SECRET", testSecret)
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func supplierToken(t *testing.T) string {
	return signToken(t, jwt.MapClaims{
		"sub":          "user-1",
		"email":        "supplier@example.com",
		"thirdPartyId": "SUP-0042",
		"exp":          time.Now().Add(time.Hour).Unix(),
	})
}

func buyerToken(t *testing.T) string {
	return signToken(t, jwt.MapClaims{
		"sub":   "buyer-1",
		"email": "buyer@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
}

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/validate-session", ValidateSession())
	r.GET("/api/tenders", GetTenders())
	r.GET("/api/tenders/:tender_id", GetTender())
	r.GET("/api/tender-invitations", GetInvitations())
	r.PUT("/api/tender-invitations/:invitation_id/respond", RespondInvitation())
	r.GET("/api/tender-clarifications", GetClarifications())
	r.POST("/api/tender-clarifications", CreateClarification())
	return r
}

func perform(r *gin.Engine, method, target, token string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// envelope mirrors models.ResponseEnvelope with Data left raw so each test
// decodes it into the shape it expects.
type envelope struct {
	Data       json.RawMessage    `json:"data"`
	Pagination *models.Pagination `json:"pagination"`
	Fallback   bool               `json:"fallback"`
	Degraded   bool               `json:"degraded"`
	Message    string             `json:"message"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

// useDemoERP points the gateway at no upstream at all: every read serves the
// demo seed and writes follow the given fallback mode.
func useDemoERP(t *testing.T, writeMode string) {
	t.Helper()
	storage.SetERP(&storage.ERPConfig{WriteMode: writeMode, Client: http.DefaultClient})
	t.Cleanup(func() { storage.SetERP(nil) })
}

func useLiveERP(t *testing.T, ts *httptest.Server, writeMode string) {
	t.Helper()
	storage.SetERP(&storage.ERPConfig{
		BaseURL:   ts.URL,
		WriteMode: writeMode,
		Client:    ts.Client(),
	})
	t.Cleanup(func() { storage.SetERP(nil) })
}

func listBody(t *testing.T, records []map[string]interface{}) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{"data": records, "total": len(records)})
	require.NoError(t, err)
	return body
}

func TestEndpointsRequireSession(t *testing.T) {
	useDemoERP(t, storage.WriteModeDemo)
	r := newRouter()

	for _, target := range []string{"/api/tenders", "/api/tender-invitations", "/api/tender-clarifications?tender_id=1"} {
		w := perform(r, http.MethodGet, target, "", nil)
		require.Equal(t, http.StatusUnauthorized, w.Code, target)
	}

	// Garbage token is rejected the same way.
	w := perform(r, http.MethodGet, "/api/tenders", "not-a-jwt", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	// Expired token too.
	expired := signToken(t, jwt.MapClaims{"sub": "user-1", "exp": time.Now().Add(-time.Hour).Unix()})
	w = perform(r, http.MethodGet, "/api/tenders", expired, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestValidateSession(t *testing.T) {
	r := newRouter()

	w := perform(r, http.MethodPost, "/api/validate-session", supplierToken(t), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.ValidateSessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "user-1", resp.UserID)
	require.Equal(t, "supplier@example.com", resp.Email)
	require.Equal(t, "SUP-0042", resp.ThirdPartyID)
}

func TestGetTendersFallsBackWhenUnconfigured(t *testing.T) {
	useDemoERP(t, storage.WriteModeDemo)
	r := newRouter()

	w := perform(r, http.MethodGet, "/api/tenders", supplierToken(t), nil)
	require.Equal(t, http.StatusOK, w.Code)

	env := decodeEnvelope(t, w)
	require.True(t, env.Fallback)
	require.Equal(t, 3, env.Pagination.Total)

	var page []models.TenderWithInvitation
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.Len(t, page, 3)

	// Demo invitations join the demo tenders so restricted flows work offline.
	withInvitation := 0
	for _, item := range page {
		if item.Invitation != nil {
			withInvitation++
			require.Equal(t, "SUP-0042", item.Invitation.SupplierID)
		}
	}
	require.Equal(t, 2, withInvitation)
}

func TestGetTendersFallsBackWhenUpstreamDown(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ts.Close()
	useLiveERP(t, ts, storage.WriteModeDemo)
	r := newRouter()

	w := perform(r, http.MethodGet, "/api/tenders", supplierToken(t), nil)
	require.Equal(t, http.StatusOK, w.Code)

	env := decodeEnvelope(t, w)
	require.True(t, env.Fallback)
	require.Equal(t, 3, env.Pagination.Total)
}

func TestGetTendersLiveStatusFilter(t *testing.T) {
	// The upstream still speaks its legacy status codes and mixed key casings.
	upstream := []map[string]interface{}{
		{"TenderId": "10", "Title": "Alpha", "Status": "pb"},
		{"tender_id": "11", "title": "Bravo", "status": "published"},
		{"tenderId": "12", "title": "Charlie", "status": "cl"},
		{"TenderId": "13", "Title": "Delta", "Status": "dr"},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tenders", func(w http.ResponseWriter, r *http.Request) {
		w.Write(listBody(t, upstream))
	})
	mux.HandleFunc("/api/tender-invitations", func(w http.ResponseWriter, r *http.Request) {
		w.Write(listBody(t, []map[string]interface{}{
			{"InvitationId": "inv-77", "TenderId": "11", "SupplierId": "SUP-0042", "ResponseStatus": "pending"},
		}))
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()
	useLiveERP(t, ts, storage.WriteModeDemo)
	r := newRouter()

	// "pb" in the query matches both legacy spellings in the data.
	w := perform(r, http.MethodGet, "/api/tenders?status=pb", supplierToken(t), nil)
	require.Equal(t, http.StatusOK, w.Code)

	env := decodeEnvelope(t, w)
	require.False(t, env.Fallback)
	require.Equal(t, 2, env.Pagination.Total)

	var page []models.TenderWithInvitation
	require.NoError(t, json.Unmarshal(env.Data, &page))
	for _, item := range page {
		require.Equal(t, models.TenderStatusPublished, item.Status)
	}

	// The live invitation joined tender 11.
	byID := map[string]*models.TenderInvitation{}
	for _, item := range page {
		byID[item.ID] = item.Invitation
	}
	require.Nil(t, byID["10"])
	require.NotNil(t, byID["11"])
	require.Equal(t, "inv-77", byID["11"].InvitationID)
}

func TestGetTendersLivePagination(t *testing.T) {
	records := make([]map[string]interface{}, 23)
	for i := range records {
		records[i] = map[string]interface{}{
			"TenderId":           fmt.Sprintf("%d", i+1),
			"Title":              fmt.Sprintf("Tender %02d", i+1),
			"Status":             "published",
			"SubmissionDeadline": fmt.Sprintf("2024-07-%02dT00:00:00Z", (i%28)+1),
		}
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tenders", func(w http.ResponseWriter, r *http.Request) {
		w.Write(listBody(t, records))
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()
	useLiveERP(t, ts, storage.WriteModeDemo)
	r := newRouter()

	w := perform(r, http.MethodGet, "/api/tenders?page=3&limit=10", buyerToken(t), nil)
	require.Equal(t, http.StatusOK, w.Code)

	env := decodeEnvelope(t, w)
	require.Equal(t, 23, env.Pagination.Total)
	require.Equal(t, 3, env.Pagination.Pages)
	require.Equal(t, 3, env.Pagination.Page)

	var page []models.TenderWithInvitation
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.Len(t, page, 3)
}

func TestGetTenderFallbackByID(t *testing.T) {
	useDemoERP(t, storage.WriteModeDemo)
	r := newRouter()

	w := perform(r, http.MethodGet, "/api/tenders/2", supplierToken(t), nil)
	require.Equal(t, http.StatusOK, w.Code)

	env := decodeEnvelope(t, w)
	require.True(t, env.Fallback)

	var tender models.Tender
	require.NoError(t, json.Unmarshal(env.Data, &tender))
	require.Equal(t, "2", tender.ID)
	require.Equal(t, "TND-2024-002", tender.TenderNo)

	w = perform(r, http.MethodGet, "/api/tenders/does-not-exist", supplierToken(t), nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetInvitationsRequiresSupplierScope(t *testing.T) {
	useDemoERP(t, storage.WriteModeDemo)
	r := newRouter()

	w := perform(r, http.MethodGet, "/api/tender-invitations", buyerToken(t), nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = perform(r, http.MethodGet, "/api/tender-invitations", supplierToken(t), nil)
	require.Equal(t, http.StatusOK, w.Code)

	env := decodeEnvelope(t, w)
	require.True(t, env.Fallback)

	var invitations []models.TenderInvitation
	require.NoError(t, json.Unmarshal(env.Data, &invitations))
	require.Len(t, invitations, 2)
	for _, inv := range invitations {
		require.Equal(t, "SUP-0042", inv.SupplierID)
	}
}

func TestRespondInvitationValidation(t *testing.T) {
	// The upstream must never see a request that fails local validation.
	upstreamCalls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upstreamCalls++
		w.Write([]byte(`{"invitation_id":"inv-1","response_status":"declined"}`))
	}))
	defer ts.Close()
	useLiveERP(t, ts, storage.WriteModeDemo)
	r := newRouter()

	body := strings.NewReader(`{"response_status":"declined"}`)
	w := perform(r, http.MethodPut, "/api/tender-invitations/inv-1/respond", supplierToken(t), body)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "required", resp.Fields["decline_reason"])
	require.Zero(t, upstreamCalls)

	body = strings.NewReader(`{"response_status":"maybe"}`)
	w = perform(r, http.MethodPut, "/api/tender-invitations/inv-1/respond", supplierToken(t), body)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Zero(t, upstreamCalls)

	body = strings.NewReader(`{"response_status":"declined","decline_reason":"no capacity this quarter"}`)
	w = perform(r, http.MethodPut, "/api/tender-invitations/inv-1/respond", supplierToken(t), body)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 1, upstreamCalls)
}

func TestRespondInvitationUpstreamRejection(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"message":"invitation already answered","fields":{"response_status":"already recorded"}}`))
	}))
	defer ts.Close()
	useLiveERP(t, ts, storage.WriteModeDemo)
	r := newRouter()

	body := strings.NewReader(`{"response_status":"accepted"}`)
	w := perform(r, http.MethodPut, "/api/tender-invitations/inv-1/respond", supplierToken(t), body)

	// A rejection the ERP produced is surfaced, never absorbed by the
	// fallback path.
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "invitation already answered", resp.Message)
}

func TestGetClarificationsRequiresTenderID(t *testing.T) {
	useDemoERP(t, storage.WriteModeDemo)
	r := newRouter()

	w := perform(r, http.MethodGet, "/api/tender-clarifications", supplierToken(t), nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "required", resp.Fields["tender_id"])

	w = perform(r, http.MethodGet, "/api/tender-clarifications?tender_id=abc", supplierToken(t), nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = perform(r, http.MethodGet, "/api/tender-clarifications?tender_id=1", supplierToken(t), nil)
	require.Equal(t, http.StatusOK, w.Code)

	env := decodeEnvelope(t, w)
	var items []models.TenderClarification
	require.NoError(t, json.Unmarshal(env.Data, &items))
	require.Len(t, items, 2)
	for _, item := range items {
		require.Equal(t, 1, item.TenderID)
	}
}

func TestGetClarificationsHidePrivateQuestions(t *testing.T) {
	useDemoERP(t, storage.WriteModeDemo)
	r := newRouter()

	outsider := signToken(t, jwt.MapClaims{
		"sub":          "user-9",
		"email":        "other@example.com",
		"thirdPartyId": "SUP-9999",
		"exp":          time.Now().Add(time.Hour).Unix(),
	})
	w := perform(r, http.MethodGet, "/api/tender-clarifications?tender_id=1", outsider, nil)
	require.Equal(t, http.StatusOK, w.Code)

	env := decodeEnvelope(t, w)
	var items []models.TenderClarification
	require.NoError(t, json.Unmarshal(env.Data, &items))
	require.NotEmpty(t, items)
	for _, item := range items {
		if !item.IsPublic {
			require.Equal(t, "SUP-9999", item.SupplierID,
				"another supplier's private question %q must not be listed", item.ID)
		}
	}
}

func TestGetClarificationsLiveVisibility(t *testing.T) {
	var gotSupplier string
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tender-clarifications", func(w http.ResponseWriter, r *http.Request) {
		gotSupplier = r.URL.Query().Get("supplier_id")
		w.Write(listBody(t, []map[string]interface{}{
			{"Id": "c1", "TenderId": 1, "SupplierId": "SUP-0315", "Question": "public q", "IsPublic": true},
			{"Id": "c2", "TenderId": 1, "SupplierId": "SUP-0042", "Question": "own private q", "IsPublic": false},
			{"Id": "c3", "TenderId": 1, "SupplierId": "SUP-0315", "Question": "foreign private q", "IsPublic": false},
			{"Id": "c4", "TenderId": 1, "Question": "unattributed private q", "IsPublic": false},
		}))
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()
	useLiveERP(t, ts, storage.WriteModeDemo)
	r := newRouter()

	w := perform(r, http.MethodGet, "/api/tender-clarifications?tender_id=1", supplierToken(t), nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "SUP-0042", gotSupplier)

	env := decodeEnvelope(t, w)
	require.False(t, env.Fallback)

	var items []models.TenderClarification
	require.NoError(t, json.Unmarshal(env.Data, &items))
	require.Len(t, items, 2)
	ids := []string{items[0].ID, items[1].ID}
	require.ElementsMatch(t, []string{"c1", "c2"}, ids)
}

func TestCreateClarificationDemoWrite(t *testing.T) {
	useDemoERP(t, storage.WriteModeDemo)
	r := newRouter()

	body := strings.NewReader(`{"tender_id":1,"question":"Is a site visit mandatory?","is_public":true}`)
	w := perform(r, http.MethodPost, "/api/tender-clarifications", supplierToken(t), body)
	require.Equal(t, http.StatusCreated, w.Code)

	env := decodeEnvelope(t, w)
	require.True(t, env.Fallback)
	require.True(t, env.Degraded)
	require.NotEmpty(t, env.Message)

	var item models.TenderClarification
	require.NoError(t, json.Unmarshal(env.Data, &item))
	require.NotEmpty(t, item.ID)
	require.Equal(t, 1, item.TenderID)
	require.Equal(t, models.ClarificationPending, item.Status)
	require.True(t, item.IsPublic)
}

func TestCreateClarificationWithoutConfig(t *testing.T) {
	// Nothing initialized at all: the write is still acknowledged locally.
	storage.SetERP(nil)
	t.Cleanup(func() { storage.SetERP(nil) })
	r := newRouter()

	body := strings.NewReader(`{"tender_id":1,"question":"Is a site visit mandatory?"}`)
	w := perform(r, http.MethodPost, "/api/tender-clarifications", supplierToken(t), body)
	require.Equal(t, http.StatusCreated, w.Code)

	env := decodeEnvelope(t, w)
	require.True(t, env.Fallback)
	require.True(t, env.Degraded)
}

func TestCreateClarificationStrictWrite(t *testing.T) {
	useDemoERP(t, storage.WriteModeStrict)
	r := newRouter()

	body := strings.NewReader(`{"tender_id":1,"question":"Is a site visit mandatory?"}`)
	w := perform(r, http.MethodPost, "/api/tender-clarifications", supplierToken(t), body)
	require.Equal(t, http.StatusBadGateway, w.Code)
}

func TestCreateClarificationValidation(t *testing.T) {
	useDemoERP(t, storage.WriteModeDemo)
	r := newRouter()

	body := strings.NewReader(`{"question":"   "}`)
	w := perform(r, http.MethodPost, "/api/tender-clarifications", supplierToken(t), body)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "required", resp.Fields["tender_id"])
	require.Equal(t, "required", resp.Fields["question"])
}
