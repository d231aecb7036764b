package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"portal/models"
	"portal/storage"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func bidRouter() *gin.Engine {
	r := gin.New()
	r.GET("/api/tender-bids", GetBids())
	r.POST("/api/tender-bids", CreateBid())
	r.PUT("/api/tender-bids/:bid_id", UpdateBid())
	r.PATCH("/api/tender-bids/:bid_id/submit", SubmitBid())
	return r
}

func TestGetBidsFallbackAndTenderFilter(t *testing.T) {
	useDemoERP(t, storage.WriteModeDemo)
	r := bidRouter()

	w := perform(r, http.MethodGet, "/api/tender-bids", supplierToken(t), nil)
	require.Equal(t, http.StatusOK, w.Code)

	env := decodeEnvelope(t, w)
	require.True(t, env.Fallback)

	var bids []models.TenderBid
	require.NoError(t, json.Unmarshal(env.Data, &bids))
	require.Len(t, bids, 2)

	w = perform(r, http.MethodGet, "/api/tender-bids?tender_id=1", supplierToken(t), nil)
	env = decodeEnvelope(t, w)
	require.NoError(t, json.Unmarshal(env.Data, &bids))
	for _, b := range bids {
		require.Equal(t, 1, b.TenderID)
	}
}

func TestCreateBidValidation(t *testing.T) {
	useDemoERP(t, storage.WriteModeDemo)
	r := bidRouter()

	body := strings.NewReader(`{"tender_id":0,"bid_amount":-5}`)
	w := perform(r, http.MethodPost, "/api/tender-bids", supplierToken(t), body)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "required", resp.Fields["tender_id"])
	require.Equal(t, "must be positive", resp.Fields["bid_amount"])

	body = strings.NewReader(`{"tender_id":1,"bid_amount":100,"documents":[{"document_type":"screenplay"}]}`)
	w = perform(r, http.MethodPost, "/api/tender-bids", supplierToken(t), body)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Contains(t, resp.Fields["documents"], "screenplay")
}

func TestCreateBidDemoWrite(t *testing.T) {
	useDemoERP(t, storage.WriteModeDemo)
	r := bidRouter()

	body := strings.NewReader(`{"tender_id":2,"bid_amount":125000,"validity_period":90}`)
	w := perform(r, http.MethodPost, "/api/tender-bids", supplierToken(t), body)
	require.Equal(t, http.StatusCreated, w.Code)

	env := decodeEnvelope(t, w)
	require.True(t, env.Fallback)
	require.True(t, env.Degraded)

	var bid models.TenderBid
	require.NoError(t, json.Unmarshal(env.Data, &bid))
	require.NotEmpty(t, bid.ID)
	require.Equal(t, 2, bid.TenderID)
	require.Equal(t, 125000.0, bid.BidAmount)
	require.Equal(t, "USD", bid.Currency)
	require.Equal(t, models.BidStatusDraft, bid.Status)
}

func TestCreateBidMultipart(t *testing.T) {
	var got map[string]interface{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"BidId":"bid-900","TenderId":3,"BidAmount":480000,"Status":"draft"}`))
	}))
	defer ts.Close()
	useLiveERP(t, ts, storage.WriteModeDemo)
	r := bidRouter()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("tender_id", "3"))
	require.NoError(t, mw.WriteField("bid_amount", "480000"))
	require.NoError(t, mw.WriteField("document_types", "technical"))
	part, err := mw.CreateFormFile("documents", "proposal.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("pdf bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/tender-bids", &buf)
	req.Header.Set("Authorization", "Bearer "+supplierToken(t))
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	// File content stays behind; only metadata went upstream.
	docs, ok := got["documents"].([]interface{})
	require.True(t, ok)
	require.Len(t, docs, 1)
	doc := docs[0].(map[string]interface{})
	require.Equal(t, "proposal.pdf", doc["file_name"])
	require.Equal(t, "technical", doc["document_type"])
	require.NotEmpty(t, doc["checksum"])
}

func TestSubmitBidDemoWrite(t *testing.T) {
	useDemoERP(t, storage.WriteModeDemo)
	r := bidRouter()

	w := perform(r, http.MethodPatch, "/api/tender-bids/bid-3001/submit", supplierToken(t), nil)
	require.Equal(t, http.StatusOK, w.Code)

	env := decodeEnvelope(t, w)
	require.True(t, env.Degraded)

	var bid models.TenderBid
	require.NoError(t, json.Unmarshal(env.Data, &bid))
	require.Equal(t, "bid-3001", bid.ID)
	require.Equal(t, models.BidStatusSubmitted, bid.Status)
}

func TestUpdateBidPassesThroughRejection(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"message":"submitted bids cannot be edited"}`))
	}))
	defer ts.Close()
	useLiveERP(t, ts, storage.WriteModeDemo)
	r := bidRouter()

	body := strings.NewReader(`{"tender_id":1,"bid_amount":999}`)
	w := perform(r, http.MethodPut, "/api/tender-bids/bid-3002", supplierToken(t), body)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "submitted bids cannot be edited", resp.Message)
}
