package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shandysiswandi/gobuyline/internal/mapping/entity"
	"github.com/shandysiswandi/gobuyline/internal/mapping/tabular"
	"github.com/shandysiswandi/gobuyline/internal/pkg/pkgerror"
	"github.com/xuri/excelize/v2"
)

type testStore struct {
	mu       sync.Mutex
	sessions map[string]entity.Session
	mappings map[string]*entity.Mapping
}

func newTestStore() *testStore {
	return &testStore{
		sessions: make(map[string]entity.Session),
		mappings: make(map[string]*entity.Mapping),
	}
}

func (s *testStore) CreateSession(ctx context.Context, meta entity.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[meta.ID] = meta
	s.mappings[meta.ID] = entity.NewMapping()
	return nil
}

func (s *testStore) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return pkgerror.ErrNotFound
	}
	delete(s.sessions, sessionID)
	delete(s.mappings, sessionID)
	return nil
}

func (s *testStore) TouchSession(ctx context.Context, sessionID string, seenAt int64) (entity.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	meta, ok := s.sessions[sessionID]
	if !ok {
		return entity.Session{}, pkgerror.ErrNotFound
	}
	meta.LastSeenAt = seenAt
	s.sessions[sessionID] = meta
	return meta, nil
}

func (s *testStore) Mapping(ctx context.Context, sessionID string) (*entity.Mapping, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.mappings[sessionID]
	if !ok {
		return nil, pkgerror.ErrNotFound
	}
	return m, nil
}

func (s *testStore) UpdateMapping(ctx context.Context, sessionID string, fn func(current *entity.Mapping) (*entity.Mapping, error)) (*entity.Mapping, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.mappings[sessionID]
	if !ok {
		return nil, pkgerror.ErrNotFound
	}
	next, err := fn(m)
	if err != nil {
		return m, err
	}
	s.mappings[sessionID] = next
	return next, nil
}

func (s *testStore) EvictIdle(ctx context.Context, before int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, meta := range s.sessions {
		if meta.LastSeenAt < before {
			delete(s.sessions, id)
			delete(s.mappings, id)
			n++
		}
	}
	return n, nil
}

type testID struct {
	mu sync.Mutex
	n  int
}

func (t *testID) Generate() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.n++
	return fmt.Sprintf("id-%d", t.n)
}

type testBatchID struct {
	mu sync.Mutex
	n  int64
}

func (t *testBatchID) Generate() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.n++
	return t.n
}

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time {
	return c.now
}

func newTestUsecase(t *testing.T, store *testStore) (*Usecase, string) {
	t.Helper()

	uc := New(Dependency{
		Store:     store,
		Clock:     fixedClock{now: time.Unix(1_700_000_000, 0)},
		SessionID: &testID{},
		BatchID:   &testBatchID{},
	})

	login, err := uc.Login(context.Background(), "", "")
	if err != nil {
		t.Fatalf("Login() err = %v", err)
	}

	return uc, login.SessionID
}

func mappingUpload(rows ...[2]any) entity.Table {
	table := entity.Table{Columns: []string{"Buy Line", "Vendor Name"}}
	for _, r := range rows {
		table.Rows = append(table.Rows, []any{r[0], r[1]})
	}
	return table
}

func dataUpload(codes ...any) entity.Table {
	table := entity.Table{Columns: []string{"order_id", "manufacturer_Name"}}
	for i, c := range codes {
		table.Rows = append(table.Rows, []any{fmt.Sprintf("o-%d", i+1), c})
	}
	return table
}

func lookupColumn(table entity.Table) []any {
	col := table.ColumnIndex("manufacturer_Name")
	out := make([]any, len(table.Rows))
	for i, row := range table.Rows {
		out[i] = row[col]
	}
	return out
}

func lookupName(t *testing.T, store *testStore, sessionID string, code entity.Code) (string, bool) {
	t.Helper()
	m, err := store.Mapping(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("Mapping() err = %v", err)
	}
	e, ok := m.Lookup(code)
	return e.Name, ok
}

func TestIngest_LastWriteWinsAcrossBatches(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore()
	uc, sid := newTestUsecase(t, store)

	if _, err := uc.Ingest(ctx, sid, mappingUpload(
		[2]any{"996539.0", "Acme"},
		[2]any{"046135", "Globex"},
	)); err != nil {
		t.Fatalf("Ingest(A) err = %v", err)
	}

	res, err := uc.Ingest(ctx, sid, mappingUpload(
		[2]any{"46135", "Globex Corporation"},
		[2]any{"12,945", "Initech"},
	))
	if err != nil {
		t.Fatalf("Ingest(B) err = %v", err)
	}

	if res.MappingSize != 3 {
		t.Fatalf("MappingSize = %d, want 3", res.MappingSize)
	}
	if res.BatchID != 2 {
		t.Fatalf("BatchID = %d, want 2", res.BatchID)
	}

	want := map[entity.Code]string{
		"996539": "Acme",
		"46135":  "Globex Corporation",
		"12945":  "Initech",
	}
	for code, name := range want {
		got, ok := lookupName(t, store, sid, code)
		if !ok || got != name {
			t.Fatalf("lookup %q = %q (%v), want %q", code, got, ok, name)
		}
	}
}

func TestIngest_DuplicateCodesInBatch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore()
	uc, sid := newTestUsecase(t, store)

	res, err := uc.Ingest(ctx, sid, mappingUpload(
		[2]any{"100", "first"},
		[2]any{"0100", "second"},
		[2]any{"100.0", "third"},
	))
	if err != nil {
		t.Fatalf("Ingest() err = %v", err)
	}
	if res.Upserted != 3 || res.MappingSize != 1 {
		t.Fatalf("Ingest() = %+v, want 3 upserted into 1 code", res)
	}

	if got, _ := lookupName(t, store, sid, "100"); got != "third" {
		t.Fatalf("lookup 100 = %q, want third", got)
	}
}

func TestIngest_DropsRowsWithoutCode(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore()
	uc, sid := newTestUsecase(t, store)

	res, err := uc.Ingest(ctx, sid, mappingUpload(
		[2]any{nil, "orphan"},
		[2]any{"  ", "blank"},
		[2]any{"ABC-12", "Acme"},
	))
	if err != nil {
		t.Fatalf("Ingest() err = %v", err)
	}

	want := IngestResult{BatchID: 1, RowsRead: 3, RowsDropped: 2, Upserted: 1, MappingSize: 1}
	if diff := cmp.Diff(want, res); diff != "" {
		t.Fatalf("Ingest() mismatch (-want +got):\n%s", diff)
	}
}

func TestIngest_MissingColumnLeavesStoreUnchanged(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore()
	uc, sid := newTestUsecase(t, store)

	if _, err := uc.Ingest(ctx, sid, mappingUpload([2]any{"1", "Acme"})); err != nil {
		t.Fatalf("Ingest() err = %v", err)
	}

	bad := entity.Table{
		Columns: []string{"Buy Line", "Vendor"},
		Rows:    [][]any{{"1", "Other"}},
	}
	_, err := uc.Ingest(ctx, sid, bad)
	if err == nil {
		t.Fatal("Ingest() expected error, got nil")
	}

	var schemaErr *entity.SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("Ingest() err = %T, want *entity.SchemaError", err)
	}
	if diff := cmp.Diff([]string{"Vendor Name"}, schemaErr.Missing); diff != "" {
		t.Fatalf("missing columns mismatch (-want +got):\n%s", diff)
	}

	var perr *pkgerror.Error
	if !errors.As(err, &perr) || perr.Code() != pkgerror.CodeInvalidInput {
		t.Fatalf("Ingest() err = %v, want invalid input", err)
	}

	if got, _ := lookupName(t, store, sid, "1"); got != "Acme" {
		t.Fatalf("lookup 1 = %q, want Acme", got)
	}
}

func TestIngest_UnknownSession(t *testing.T) {
	t.Parallel()

	uc, _ := newTestUsecase(t, newTestStore())

	_, err := uc.Ingest(context.Background(), "nope", mappingUpload([2]any{"1", "Acme"}))

	var perr *pkgerror.Error
	if !errors.As(err, &perr) || perr.Code() != pkgerror.CodeUnauthorized {
		t.Fatalf("Ingest() err = %v, want unauthorized", err)
	}
}

func TestApply_MixedMatches(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore()
	uc, sid := newTestUsecase(t, store)

	if _, err := uc.Ingest(ctx, sid, mappingUpload(
		[2]any{"1", "Acme"},
		[2]any{"2", nil},
		[2]any{"ABC", "Letters Inc"},
	)); err != nil {
		t.Fatalf("Ingest() err = %v", err)
	}

	input := dataUpload("0001", "2", nil, "abc", "ABC", 1.0, "xyz")
	before := input.Clone()

	res, err := uc.Apply(ctx, sid, input, "")
	if err != nil {
		t.Fatalf("Apply() err = %v", err)
	}

	want := []any{"Acme", "2", nil, "abc", "Letters Inc", "Acme", "xyz"}
	if diff := cmp.Diff(want, lookupColumn(res.Table)); diff != "" {
		t.Fatalf("Apply() column mismatch (-want +got):\n%s", diff)
	}
	if res.Matched != 3 || res.Unmatched != 4 {
		t.Fatalf("Apply() matched/unmatched = %d/%d, want 3/4", res.Matched, res.Unmatched)
	}

	for i, row := range res.Table.Rows {
		if row[0] != before.Rows[i][0] {
			t.Fatalf("row %d order changed: %v", i, row[0])
		}
	}
	if diff := cmp.Diff(before, input); diff != "" {
		t.Fatalf("Apply() mutated its input (-want +got):\n%s", diff)
	}
}

func TestApply_EmptyMapping(t *testing.T) {
	t.Parallel()

	uc, sid := newTestUsecase(t, newTestStore())

	res, err := uc.Apply(context.Background(), sid, dataUpload("1"), "")
	if !errors.Is(err, entity.ErrEmptyMapping) {
		t.Fatalf("Apply() err = %v, want ErrEmptyMapping", err)
	}
	if res.Table.Rows != nil {
		t.Fatalf("Apply() returned a partial table: %+v", res.Table)
	}
}

func TestApply_MissingLookupColumn(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	uc, sid := newTestUsecase(t, newTestStore())

	table := entity.Table{Columns: []string{"manufacturer"}, Rows: [][]any{{"1"}}}
	_, err := uc.Apply(ctx, sid, table, "")

	var colErr *entity.MissingColumnError
	if !errors.As(err, &colErr) {
		t.Fatalf("Apply() err = %v, want *entity.MissingColumnError", err)
	}
	if colErr.Column != "manufacturer_Name" {
		t.Fatalf("missing column = %q, want manufacturer_Name", colErr.Column)
	}
}

func TestApply_EndToEnd(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	uc, sid := newTestUsecase(t, newTestStore())

	if _, err := uc.Ingest(ctx, sid, mappingUpload(
		[2]any{"996539.0", "Acme"},
		[2]any{"046135", "Globex"},
	)); err != nil {
		t.Fatalf("Ingest() err = %v", err)
	}

	res, err := uc.Apply(ctx, sid, dataUpload("996539", "46135", "999999"), "manufacturer_Name")
	if err != nil {
		t.Fatalf("Apply() err = %v", err)
	}

	want := []any{"Acme", "Globex", "999999"}
	if diff := cmp.Diff(want, lookupColumn(res.Table)); diff != "" {
		t.Fatalf("Apply() mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyWorkbook(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	uc, sid := newTestUsecase(t, newTestStore())

	if _, err := uc.Ingest(ctx, sid, mappingUpload([2]any{"7", "Acme"})); err != nil {
		t.Fatalf("Ingest() err = %v", err)
	}

	file, err := uc.ApplyWorkbook(ctx, sid, dataUpload("7", "8"), "")
	if err != nil {
		t.Fatalf("ApplyWorkbook() err = %v", err)
	}
	if file.FileName != FileUpdatedData || file.ContentType != tabular.ContentTypeWorkbook {
		t.Fatalf("ApplyWorkbook() file = %s (%s)", file.FileName, file.ContentType)
	}

	table, err := tabular.Decode(tabular.FormatWorkbook, bytes.NewReader(file.Data))
	if err != nil {
		t.Fatalf("decode workbook: %v", err)
	}
	if diff := cmp.Diff([]any{"Acme", "8"}, lookupColumn(table)); diff != "" {
		t.Fatalf("workbook mismatch (-want +got):\n%s", diff)
	}

	f, err := excelize.OpenReader(bytes.NewReader(file.Data))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer func() {
		_ = f.Close()
	}()

	col := table.ColumnIndex(DefaultLookupColumn)
	matched, _ := excelize.CoordinatesToCellName(col+1, 2)
	unmatched, _ := excelize.CoordinatesToCellName(col+1, 3)
	if typ, _ := f.GetCellType(SheetUpdatedData, matched); typ != excelize.CellTypeSharedString {
		t.Fatalf("matched cell type = %v, want shared string", typ)
	}
	if typ, _ := f.GetCellType(SheetUpdatedData, unmatched); typ == excelize.CellTypeSharedString {
		t.Fatalf("unmatched numeric code cell type = %v, want number", typ)
	}
}

func TestMappingAndExport(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	uc, sid := newTestUsecase(t, newTestStore())

	if _, err := uc.ExportMapping(ctx, sid); !errors.Is(err, entity.ErrEmptyMapping) {
		t.Fatalf("ExportMapping() on empty err = %v, want ErrEmptyMapping", err)
	}

	if _, err := uc.Ingest(ctx, sid, mappingUpload(
		[2]any{"046135", "Globex"},
		[2]any{"996539.0", "Acme"},
		[2]any{"ZZ", "Zed"},
	)); err != nil {
		t.Fatalf("Ingest() err = %v", err)
	}

	view, err := uc.Mapping(ctx, sid, 2)
	if err != nil {
		t.Fatalf("Mapping() err = %v", err)
	}
	if view.Total != 3 || len(view.Entries) != 2 {
		t.Fatalf("Mapping() total/len = %d/%d, want 3/2", view.Total, len(view.Entries))
	}

	file, err := uc.ExportMapping(ctx, sid)
	if err != nil {
		t.Fatalf("ExportMapping() err = %v", err)
	}

	table, err := tabular.Decode(tabular.FormatWorkbook, bytes.NewReader(file.Data))
	if err != nil {
		t.Fatalf("decode workbook: %v", err)
	}

	want := entity.Table{
		Columns: []string{"code_norm", "Buy Line", "Vendor Name"},
		Rows: [][]any{
			{"46135", "046135", "Globex"},
			{"996539", "996539", "Acme"},
			{"ZZ", "ZZ", "Zed"},
		},
	}
	if diff := cmp.Diff(want, table); diff != "" {
		t.Fatalf("export mismatch (-want +got):\n%s", diff)
	}

	f, err := excelize.OpenReader(bytes.NewReader(file.Data))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer func() {
		_ = f.Close()
	}()

	// code_norm stays text.
	if typ, _ := f.GetCellType(SheetMasterMapping, "A2"); typ != excelize.CellTypeSharedString {
		t.Fatalf("code_norm cell type = %v, want shared string", typ)
	}
	if typ, _ := f.GetCellType(SheetMasterMapping, "B3"); typ == excelize.CellTypeSharedString {
		t.Fatalf("numeric Buy Line cell type = %v, want number", typ)
	}
}

func TestLogin(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	uc := New(Dependency{
		Store:       newTestStore(),
		SessionID:   &testID{},
		BatchID:     &testBatchID{},
		AuthEnabled: true,
		Credentials: map[string]string{"admin": "s3cret"},
	})

	tests := []struct {
		name     string
		username string
		password string
		wantErr  bool
	}{
		{name: "valid", username: "admin", password: "s3cret"},
		{name: "wrong password", username: "admin", password: "nope", wantErr: true},
		{name: "unknown user", username: "root", password: "s3cret", wantErr: true},
		{name: "empty", wantErr: true},
	}

	for _, tt := range tests {
		res, err := uc.Login(ctx, tt.username, tt.password)
		if tt.wantErr {
			var perr *pkgerror.Error
			if !errors.As(err, &perr) || perr.Code() != pkgerror.CodeUnauthorized {
				t.Fatalf("%s: Login() err = %v, want unauthorized", tt.name, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s: Login() err = %v", tt.name, err)
		}
		if res.SessionID == "" || res.Username != "admin" {
			t.Fatalf("%s: Login() = %+v", tt.name, res)
		}
	}
}

func TestAuthorizeAndLogout(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	uc, sid := newTestUsecase(t, newTestStore())

	meta, err := uc.Authorize(ctx, sid)
	if err != nil {
		t.Fatalf("Authorize() err = %v", err)
	}
	if meta.Username != anonymousUser {
		t.Fatalf("Authorize() username = %q, want %q", meta.Username, anonymousUser)
	}

	if err := uc.Logout(ctx, sid); err != nil {
		t.Fatalf("Logout() err = %v", err)
	}

	for _, id := range []string{sid, ""} {
		_, err := uc.Authorize(ctx, id)
		var perr *pkgerror.Error
		if !errors.As(err, &perr) || perr.Code() != pkgerror.CodeUnauthorized {
			t.Fatalf("Authorize(%q) err = %v, want unauthorized", id, err)
		}
	}
}

func TestEvictIdle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore()
	uc, sid := newTestUsecase(t, store)

	if n, err := uc.EvictIdle(ctx, time.Hour); err != nil || n != 0 {
		t.Fatalf("EvictIdle(1h) = %d, %v, want 0", n, err)
	}

	store.mu.Lock()
	meta := store.sessions[sid]
	meta.LastSeenAt -= 7200
	store.sessions[sid] = meta
	store.mu.Unlock()

	if n, err := uc.EvictIdle(ctx, time.Hour); err != nil || n != 1 {
		t.Fatalf("EvictIdle(1h) = %d, %v, want 1", n, err)
	}
}

func TestSweepIdleSessionsStopsOnCancel(t *testing.T) {
	t.Parallel()

	uc, _ := newTestUsecase(t, newTestStore())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- uc.SweepIdleSessions(ctx, time.Millisecond, time.Hour)
	}()

	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("SweepIdleSessions() err = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("SweepIdleSessions() did not stop")
	}
}
