package inbound

import (
	"net/http"
	"strconv"
)

const (
	HeaderSessionID = "X-Session-ID"
	CookieSessionID = "session_id"

	HeaderMatched   = "X-Rows-Matched"
	HeaderUnmatched = "X-Rows-Unmatched"
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	SessionID string `json:"session_id"`
	Username  string `json:"username"`
}

func (LoginResponse) StatusCode() int {
	return http.StatusCreated
}

func (LoginResponse) Message() string {
	return "session opened"
}

func (r LoginResponse) Headers() map[string]string {
	cookie := &http.Cookie{
		Name:     CookieSessionID,
		Value:    r.SessionID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return map[string]string{
		HeaderSessionID: r.SessionID,
		"Set-Cookie":    cookie.String(),
	}
}

type IngestResponse struct {
	BatchID     string `json:"batch_id"`
	RowsRead    int    `json:"rows_read"`
	RowsDropped int    `json:"rows_dropped"`
	Upserted    int    `json:"upserted"`
	MappingSize int    `json:"mapping_size"`
}

func (IngestResponse) Message() string {
	return "mapping file uploaded and master mapping updated"
}

type MappingEntry struct {
	Code       string `json:"code_norm"`
	BuyLine    any    `json:"buy_line"`
	VendorName string `json:"vendor_name"`
	BatchID    string `json:"batch_id"`
	UpdatedAt  int64  `json:"updated_at"`
}

type MappingResponse struct {
	Entries []MappingEntry `json:"entries"`
	total   int
	limit   int
}

func (r MappingResponse) Meta() map[string]any {
	return map[string]any{
		"total": r.total,
		"limit": r.limit,
	}
}

type ApplyResponse struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
	matched int
	missed  int
}

func (ApplyResponse) Message() string {
	return "mapping applied"
}

func (r ApplyResponse) Meta() map[string]any {
	return map[string]any{
		"rows":      len(r.Rows),
		"matched":   r.matched,
		"unmatched": r.missed,
	}
}

type FileResponse struct {
	filename    string
	contentType string
	data        []byte
	headers     map[string]string
}

func (r FileResponse) Download() (string, string, []byte) {
	return r.filename, r.contentType, r.data
}

func (r FileResponse) Headers() map[string]string {
	return r.headers
}

func matchHeaders(matched, unmatched int) map[string]string {
	return map[string]string{
		HeaderMatched:   strconv.Itoa(matched),
		HeaderUnmatched: strconv.Itoa(unmatched),
	}
}
