package inbound

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/shandysiswandi/gobuyline/internal/mapping/entity"
	"github.com/shandysiswandi/gobuyline/internal/mapping/tabular"
	"github.com/shandysiswandi/gobuyline/internal/pkg/pkgerror"
)

const maxPreviewLimit = 1000

type HTTPEndpoint struct {
	uc             uc
	maxUploadBytes int64
}

func (h *HTTPEndpoint) Login(ctx context.Context, r *http.Request) (any, error) {
	var req LoginRequest
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			return nil, pkgerror.NewInvalidFormat()
		}
	}

	result, err := h.uc.Login(ctx, req.Username, req.Password)
	if err != nil {
		return nil, err
	}

	return LoginResponse{SessionID: result.SessionID, Username: result.Username}, nil
}

func (h *HTTPEndpoint) Logout(ctx context.Context, r *http.Request) (any, error) {
	sessionID, err := h.authorize(ctx, r)
	if err != nil {
		return nil, err
	}

	if err := h.uc.Logout(ctx, sessionID); err != nil {
		return nil, err
	}

	return nil, nil
}

func (h *HTTPEndpoint) IngestMapping(ctx context.Context, r *http.Request) (any, error) {
	sessionID, err := h.authorize(ctx, r)
	if err != nil {
		return nil, err
	}

	table, err := h.readUpload(r)
	if err != nil {
		return nil, err
	}

	result, err := h.uc.Ingest(ctx, sessionID, table)
	if err != nil {
		return nil, err
	}

	return IngestResponse{
		BatchID:     strconv.FormatInt(result.BatchID, 10),
		RowsRead:    result.RowsRead,
		RowsDropped: result.RowsDropped,
		Upserted:    result.Upserted,
		MappingSize: result.MappingSize,
	}, nil
}

func (h *HTTPEndpoint) Mapping(ctx context.Context, r *http.Request) (any, error) {
	sessionID, err := h.authorize(ctx, r)
	if err != nil {
		return nil, err
	}

	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		return nil, err
	}

	result, err := h.uc.Mapping(ctx, sessionID, limit)
	if err != nil {
		return nil, err
	}

	entries := make([]MappingEntry, 0, len(result.Entries))
	for _, e := range result.Entries {
		entries = append(entries, toHTTPMappingEntry(e))
	}

	return MappingResponse{
		Entries: entries,
		total:   result.Total,
		limit:   len(entries),
	}, nil
}

func (h *HTTPEndpoint) ExportMapping(ctx context.Context, r *http.Request) (any, error) {
	sessionID, err := h.authorize(ctx, r)
	if err != nil {
		return nil, err
	}

	file, err := h.uc.ExportMapping(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	return FileResponse{
		filename:    file.FileName,
		contentType: file.ContentType,
		data:        file.Data,
	}, nil
}

func (h *HTTPEndpoint) ApplyMapping(ctx context.Context, r *http.Request) (any, error) {
	sessionID, err := h.authorize(ctx, r)
	if err != nil {
		return nil, err
	}

	query := r.URL.Query()
	lookupColumn := strings.TrimSpace(query.Get("lookup_column"))

	table, err := h.readUpload(r)
	if err != nil {
		return nil, err
	}

	if strings.EqualFold(query.Get("format"), "json") {
		result, err := h.uc.Apply(ctx, sessionID, table, lookupColumn)
		if err != nil {
			return nil, err
		}

		return ApplyResponse{
			Columns: result.Table.Columns,
			Rows:    result.Table.Rows,
			matched: result.Matched,
			missed:  result.Unmatched,
		}, nil
	}

	file, err := h.uc.ApplyWorkbook(ctx, sessionID, table, lookupColumn)
	if err != nil {
		return nil, err
	}

	return FileResponse{
		filename:    file.FileName,
		contentType: file.ContentType,
		data:        file.Data,
		headers:     matchHeaders(file.Matched, file.Unmatched),
	}, nil
}

func (h *HTTPEndpoint) authorize(ctx context.Context, r *http.Request) (string, error) {
	sessionID := strings.TrimSpace(r.Header.Get(HeaderSessionID))
	if sessionID == "" {
		if c, err := r.Cookie(CookieSessionID); err == nil {
			sessionID = strings.TrimSpace(c.Value)
		}
	}

	if _, err := h.uc.Authorize(ctx, sessionID); err != nil {
		return "", err
	}

	return sessionID, nil
}

func (h *HTTPEndpoint) readUpload(r *http.Request) (entity.Table, error) {
	if r.Body != nil && h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(nil, r.Body, h.maxUploadBytes)
	}

	upload, err := extractUpload(r)
	if err != nil {
		return entity.Table{}, err
	}
	defer upload.cleanup()

	format := tabular.DetectFormat(upload.filename, upload.contentType)
	if format == tabular.FormatUnknown {
		return entity.Table{}, pkgerror.WrapBusiness(tabular.ErrUnsupportedFormat, tabular.ErrUnsupportedFormat.Error(), pkgerror.CodeUnsupportedMedia)
	}

	table, err := tabular.Decode(format, upload.body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return entity.Table{}, pkgerror.WrapInvalidInput(err, "uploaded file is too large")
		}
		return entity.Table{}, pkgerror.WrapInvalidInput(err, "failed to read uploaded file: "+err.Error())
	}

	return table, nil
}

type upload struct {
	body        io.Reader
	filename    string
	contentType string
	cleanup     func()
}

func extractUpload(r *http.Request) (upload, error) {
	contentType := r.Header.Get("Content-Type")
	if contentType != "" {
		mediaType, _, err := mime.ParseMediaType(contentType)
		if err == nil && strings.EqualFold(mediaType, "multipart/form-data") {
			return extractMultipartFile(r)
		}
	}

	if r.Body == nil || r.Body == http.NoBody {
		return upload{}, pkgerror.NewInvalidInput(errors.New("empty request body"))
	}

	return upload{
		body:        r.Body,
		filename:    r.URL.Query().Get("filename"),
		contentType: contentType,
		cleanup:     func() {},
	}, nil
}

func extractMultipartFile(r *http.Request) (upload, error) {
	reader, err := r.MultipartReader()
	if err != nil {
		return upload{}, pkgerror.NewInvalidFormat()
	}

	for {
		part, err := reader.NextPart()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return upload{}, pkgerror.NewInvalidInput(errors.New("file part is required"))
			}
			return upload{}, pkgerror.NewInvalidFormat()
		}

		if part.FormName() == "file" {
			return upload{
				body:        part,
				filename:    part.FileName(),
				contentType: part.Header.Get("Content-Type"),
				cleanup:     func() { _ = part.Close() },
			}, nil
		}
		_ = part.Close()
	}
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}

	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return 0, pkgerror.NewInvalidInput(errors.New("invalid limit"))
	}
	if value > maxPreviewLimit {
		value = maxPreviewLimit
	}

	return value, nil
}

func toHTTPMappingEntry(e entity.MappingEntry) MappingEntry {
	return MappingEntry{
		Code:       string(e.Code),
		BuyLine:    e.RawCode,
		VendorName: e.Name,
		BatchID:    strconv.FormatInt(e.BatchID, 10),
		UpdatedAt:  e.UpdatedAt,
	}
}
