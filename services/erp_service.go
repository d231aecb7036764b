package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"portal/storage"
)

// RawRecord is one upstream record before normalization. The ERP emits a mix
// of PascalCase, camelCase and snake_case keys, so nothing beyond "it is a
// JSON object" is assumed here.
type RawRecord = map[string]interface{}

// RawPayload is a parsed upstream list response.
type RawPayload struct {
	Data  []RawRecord
	Total int
	Page  int
	Limit int
}

// Fetch failure classification. The gateway never retries; any of these sends
// the read path to the fallback supplier.
const (
	ErrKindUnreachable = "unreachable"
	ErrKindTimeout     = "timeout"
	ErrKindStatus      = "upstream_status"
	ErrKindBadPayload  = "bad_payload"
)

type FetchError struct {
	Kind       string
	URL        string
	StatusCode int
	Body       string
	Err        error
}

func (e *FetchError) Error() string {
	if e.Kind == ErrKindStatus {
		return fmt.Sprintf("upstream %s returned status %d: %s", e.URL, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("upstream %s %s: %v", e.URL, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// UpstreamRejection is a 4xx the ERP produced on a write (validation or
// permission). Unlike a FetchError it is propagated to the caller with the
// upstream's field messages, never papered over by the fallback path.
type UpstreamRejection struct {
	StatusCode int
	Message    string
	Fields     map[string]string
}

func (e *UpstreamRejection) Error() string {
	return fmt.Sprintf("upstream rejected request (status %d): %s", e.StatusCode, e.Message)
}

// ERPService executes upstream calls for every portal resource.
type ERPService struct {
	cfg *storage.ERPConfig
}

func NewERPService(cfg *storage.ERPConfig) *ERPService {
	return &ERPService{cfg: cfg}
}

// BuildListURL joins the configured base URL with the resource path and a
// query string. Empty values and the literal "all" are UI placeholders, not
// filters, and are skipped.
func (s *ERPService) BuildListURL(resource string, params map[string]string) string {
	values := url.Values{}
	for k, v := range params {
		if v == "" || strings.EqualFold(v, "all") {
			continue
		}
		values.Set(k, v)
	}
	u := s.cfg.BaseURL + "/api/" + resource
	if enc := values.Encode(); enc != "" {
		u += "?" + enc
	}
	return u
}

// FetchList performs a single GET for a resource collection.
func (s *ERPService) FetchList(ctx context.Context, resource string, params map[string]string, token string) (*RawPayload, error) {
	endpoint := s.BuildListURL(resource, params)
	body, err := s.do(ctx, http.MethodGet, endpoint, nil, token)
	if err != nil {
		return nil, err
	}
	return parseListPayload(endpoint, body)
}

// FetchOne performs a single GET for one record.
func (s *ERPService) FetchOne(ctx context.Context, resource, id, token string) (RawRecord, error) {
	endpoint := s.cfg.BaseURL + "/api/" + resource + "/" + url.PathEscape(id)
	body, err := s.do(ctx, http.MethodGet, endpoint, nil, token)
	if err != nil {
		return nil, err
	}
	return parseRecordPayload(endpoint, body)
}

// Write performs a mutating call (POST/PUT/PATCH) and returns the updated
// record. 403 and 422 come back as *UpstreamRejection; everything else that
// fails is a *FetchError for the caller's fallback policy to handle.
func (s *ERPService) Write(ctx context.Context, method, path string, payload interface{}, token string) (RawRecord, error) {
	endpoint := s.cfg.BaseURL + "/api/" + path
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, &FetchError{Kind: ErrKindBadPayload, URL: endpoint, Err: err}
	}
	body, err := s.do(ctx, method, endpoint, jsonData, token)
	if err != nil {
		var fe *FetchError
		if errors.As(err, &fe) && fe.Kind == ErrKindStatus &&
			(fe.StatusCode == http.StatusForbidden || fe.StatusCode == http.StatusUnprocessableEntity) {
			return nil, parseRejection(fe)
		}
		return nil, err
	}
	return parseRecordPayload(endpoint, body)
}

// do executes one HTTP call and classifies the failure. One attempt only;
// resilience is the fallback supplier's job, not retry/backoff.
func (s *ERPService) do(ctx context.Context, method, endpoint string, jsonData []byte, token string) ([]byte, error) {
	var reqBody io.Reader
	if jsonData != nil {
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, &FetchError{Kind: ErrKindUnreachable, URL: endpoint, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))

	resp, err := s.cfg.Client.Do(req)
	if err != nil {
		kind := ErrKindUnreachable
		var uerr *url.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &uerr) && uerr.Timeout()) {
			kind = ErrKindTimeout
		}
		return nil, &FetchError{Kind: kind, URL: endpoint, Err: err}
	}
	defer resp.Body.Close()

	// Cap the body read so a misbehaving upstream cannot balloon memory
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, &FetchError{Kind: ErrKindUnreachable, URL: endpoint, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{
			Kind:       ErrKindStatus,
			URL:        endpoint,
			StatusCode: resp.StatusCode,
			Body:       truncate(string(body), 1024),
		}
	}
	return body, nil
}

// parseListPayload accepts the documented {data, total, page, limit} wrapper
// as well as the older shapes still seen in the wild: a PascalCase wrapper or
// a bare array.
func parseListPayload(endpoint string, body []byte) (*RawPayload, error) {
	var wrapper map[string]interface{}
	if err := json.Unmarshal(body, &wrapper); err == nil {
		records, ok := recordSlice(firstDefined(wrapper, "data", "Data", "items", "Items"))
		if !ok {
			return nil, &FetchError{Kind: ErrKindBadPayload, URL: endpoint, Err: errors.New("no data field in list response")}
		}
		payload := &RawPayload{
			Data:  records,
			Total: asInt(firstDefined(wrapper, "total", "Total", "totalCount", "total_count"), len(records)),
			Page:  asInt(firstDefined(wrapper, "page", "Page"), 1),
			Limit: asInt(firstDefined(wrapper, "limit", "Limit", "pageSize", "page_size"), 0),
		}
		return payload, nil
	}

	var bare []interface{}
	if err := json.Unmarshal(body, &bare); err != nil {
		return nil, &FetchError{Kind: ErrKindBadPayload, URL: endpoint, Err: err}
	}
	records, _ := recordSlice(bare)
	return &RawPayload{Data: records, Total: len(records), Page: 1}, nil
}

func parseRecordPayload(endpoint string, body []byte) (RawRecord, error) {
	var record map[string]interface{}
	if err := json.Unmarshal(body, &record); err != nil {
		return nil, &FetchError{Kind: ErrKindBadPayload, URL: endpoint, Err: err}
	}
	// Some ERP endpoints wrap the record in {data: {...}}
	if inner, ok := firstDefined(record, "data", "Data").(map[string]interface{}); ok {
		return inner, nil
	}
	return record, nil
}

// parseRejection lifts upstream field-level messages out of a 403/422 body.
func parseRejection(fe *FetchError) *UpstreamRejection {
	rej := &UpstreamRejection{StatusCode: fe.StatusCode, Message: "request rejected by upstream"}
	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(fe.Body), &parsed); err != nil {
		return rej
	}
	if msg := asString(firstDefined(parsed, "message", "Message", "error", "Error"), ""); msg != "" {
		rej.Message = msg
	}
	if raw, ok := firstDefined(parsed, "fields", "Fields", "errors", "Errors").(map[string]interface{}); ok {
		rej.Fields = make(map[string]string, len(raw))
		for k, v := range raw {
			rej.Fields[k] = asString(v, "")
		}
	}
	return rej
}

func recordSlice(v interface{}) ([]RawRecord, bool) {
	items, ok := v.([]interface{})
	if !ok {
		return nil, false
	}
	records := make([]RawRecord, 0, len(items))
	for _, item := range items {
		if rec, ok := item.(map[string]interface{}); ok {
			records = append(records, rec)
		}
	}
	return records, true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
