package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"aether-backend/internal/flows"
	"aether-backend/internal/middleware"
	"aether-backend/internal/models"
	"aether-backend/internal/services"
)

// ─── Helpers ───

func authedRequest(method, target string, body string, userID string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req.WithContext(context.WithValue(req.Context(), middleware.UserIDKey, userID))
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) models.APIError {
	t.Helper()
	var resp models.ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("invalid error body: %v", err)
	}
	return resp.Error
}

// ─── Stubs ───

type stubFlows struct {
	studyReq  models.StudyAssistantRequest
	studyResp models.StudyAssistantResult
	chatReqs  []models.ChatRequest
	chatResp  models.ChatResponse
	err       error
}

func (s *stubFlows) StudyAssistant(ctx context.Context, req models.StudyAssistantRequest) (models.StudyAssistantResult, error) {
	s.studyReq = req
	return s.studyResp, s.err
}

func (s *stubFlows) IntelligentChatMemory(ctx context.Context, req models.ChatRequest) (models.ChatResponse, error) {
	s.chatReqs = append(s.chatReqs, req)
	return s.chatResp, s.err
}

func (s *stubFlows) AutomateTask(ctx context.Context, req models.AutomationRequest) (models.AutomationResult, error) {
	return models.AutomationResult{AutomationScript: "echo " + req.TaskDescription, Explanation: "prints"}, s.err
}

func (s *stubFlows) GenerateCodeSnippet(ctx context.Context, req models.CodeGenRequest) (models.CodeGenResult, error) {
	return models.CodeGenResult{CodeSnippet: "// " + req.VoiceCommand}, s.err
}

type stubSessions struct {
	sessions   map[uuid.UUID]*models.ChatSession
	listFilter string
	listSearch string
	err        error
}

func newStubSessions(owner string, ids ...uuid.UUID) *stubSessions {
	s := &stubSessions{sessions: map[uuid.UUID]*models.ChatSession{}}
	for i, id := range ids {
		s.sessions[id] = &models.ChatSession{ID: id, UserID: owner, SessionName: "Chat " + string(rune('1'+i)), StartTime: time.Now()}
	}
	return s
}

func (s *stubSessions) find(id uuid.UUID, userID string) (*models.ChatSession, error) {
	if s.err != nil {
		return nil, s.err
	}
	session, ok := s.sessions[id]
	if !ok || session.UserID != userID {
		return nil, pgx.ErrNoRows
	}
	return session, nil
}

func (s *stubSessions) Create(ctx context.Context, userID string) (*models.ChatSession, error) {
	if s.err != nil {
		return nil, s.err
	}
	session := &models.ChatSession{ID: uuid.New(), UserID: userID, SessionName: "Chat 1", StartTime: time.Now()}
	s.sessions[session.ID] = session
	return session, nil
}

func (s *stubSessions) ListByUser(ctx context.Context, userID, filter, search string) ([]models.ChatSession, error) {
	s.listFilter, s.listSearch = filter, search
	var out []models.ChatSession
	for _, session := range s.sessions {
		if session.UserID == userID {
			out = append(out, *session)
		}
	}
	return out, s.err
}

func (s *stubSessions) GetByID(ctx context.Context, id uuid.UUID, userID string) (*models.ChatSession, error) {
	return s.find(id, userID)
}

func (s *stubSessions) Rename(ctx context.Context, id uuid.UUID, userID, name string) (*models.ChatSession, error) {
	session, err := s.find(id, userID)
	if err != nil {
		return nil, err
	}
	session.SessionName = name
	return session, nil
}

func (s *stubSessions) ToggleStar(ctx context.Context, id uuid.UUID, userID string) (*models.ChatSession, error) {
	session, err := s.find(id, userID)
	if err != nil {
		return nil, err
	}
	session.IsStarred = !session.IsStarred
	return session, nil
}

func (s *stubSessions) ToggleArchive(ctx context.Context, id uuid.UUID, userID string) (*models.ChatSession, error) {
	session, err := s.find(id, userID)
	if err != nil {
		return nil, err
	}
	session.IsArchived = !session.IsArchived
	return session, nil
}

func (s *stubSessions) Delete(ctx context.Context, id uuid.UUID, userID string) error {
	if _, err := s.find(id, userID); err != nil {
		return err
	}
	delete(s.sessions, id)
	return nil
}

type stubMessages struct {
	stored    []models.StoredMessage
	appendErr error
}

func (s *stubMessages) Append(ctx context.Context, userID string, m *models.StoredMessage) error {
	if s.appendErr != nil {
		return s.appendErr
	}
	m.ID = uuid.New()
	m.CreatedAt = time.Now()
	s.stored = append(s.stored, *m)
	return nil
}

func (s *stubMessages) ListBySession(ctx context.Context, sessionID uuid.UUID, userID string) ([]models.StoredMessage, error) {
	var out []models.StoredMessage
	for _, m := range s.stored {
		if m.SessionID == sessionID {
			out = append(out, m)
		}
	}
	return out, nil
}

// ─── AI Handler Tests ───

func TestAIHandler_Study(t *testing.T) {
	fl := &stubFlows{studyResp: models.StudyAssistantResult{Answer: "Paris", RequiresSummary: false}}
	h := NewAIHandler(fl)

	body := `{"query":"What is the capital of France?","document":"France ... Paris is its capital."}`
	rr := httptest.NewRecorder()
	h.Study(rr, authedRequest(http.MethodPost, "/api/v1/ai/study", body, "u1"))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if fl.studyReq.Query != "What is the capital of France?" {
		t.Errorf("query not forwarded: %+v", fl.studyReq)
	}

	var raw map[string]interface{}
	json.NewDecoder(rr.Body).Decode(&raw)
	if raw["answer"] != "Paris" || raw["requiresSummary"] != false {
		t.Errorf("unexpected body %v", raw)
	}
	if _, present := raw["summary"]; present {
		t.Error("summary must be omitted when absent")
	}
}

func TestAIHandler_ValidationErrorIs400(t *testing.T) {
	fl := &stubFlows{err: &flows.ValidationError{Fields: map[string]string{"message": "is required"}}}
	h := NewAIHandler(fl)

	rr := httptest.NewRecorder()
	h.Chat(rr, authedRequest(http.MethodPost, "/api/v1/ai/chat", `{"message":""}`, "u1"))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	apiErr := decodeError(t, rr)
	if apiErr.Code != "VALIDATION_ERROR" || apiErr.Fields["message"] != "is required" {
		t.Fatalf("unexpected error %+v", apiErr)
	}
}

func TestAIHandler_MalformedBody(t *testing.T) {
	h := NewAIHandler(&stubFlows{})

	for name, handler := range map[string]http.HandlerFunc{
		"study": h.Study, "chat": h.Chat, "automate": h.Automate, "code": h.Code,
	} {
		rr := httptest.NewRecorder()
		handler(rr, authedRequest(http.MethodPost, "/", `{not json`, "u1"))
		if rr.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", name, rr.Code)
		}
	}
}

func TestAIHandler_AutomateAndCode(t *testing.T) {
	h := NewAIHandler(&stubFlows{})

	rr := httptest.NewRecorder()
	h.Automate(rr, authedRequest(http.MethodPost, "/", `{"taskDescription":"backup"}`, "u1"))
	var auto models.AutomationResult
	json.NewDecoder(rr.Body).Decode(&auto)
	if rr.Code != http.StatusOK || auto.AutomationScript != "echo backup" {
		t.Fatalf("unexpected automate response %d %+v", rr.Code, auto)
	}

	rr = httptest.NewRecorder()
	h.Code(rr, authedRequest(http.MethodPost, "/", `{"voiceCommand":"reverse a string"}`, "u1"))
	var code models.CodeGenResult
	json.NewDecoder(rr.Body).Decode(&code)
	if rr.Code != http.StatusOK || code.CodeSnippet != "// reverse a string" {
		t.Fatalf("unexpected code response %d %+v", rr.Code, code)
	}
}

// ─── Session Handler Tests ───

func TestSessionHandler_ListDefaultsToRecent(t *testing.T) {
	store := newStubSessions("u1", uuid.New())
	h := NewSessionHandler(store)

	rr := httptest.NewRecorder()
	h.List(rr, authedRequest(http.MethodGet, "/api/v1/sessions?q=chem", "", "u1"))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if store.listFilter != models.SessionFilterRecent || store.listSearch != "chem" {
		t.Fatalf("unexpected filter/search %q/%q", store.listFilter, store.listSearch)
	}

	var body struct {
		Sessions []models.ChatSession `json:"sessions"`
	}
	json.NewDecoder(rr.Body).Decode(&body)
	if len(body.Sessions) != 1 {
		t.Fatalf("expected 1 session, got %d", len(body.Sessions))
	}
}

func TestSessionHandler_ListRejectsUnknownFilter(t *testing.T) {
	h := NewSessionHandler(newStubSessions("u1"))

	rr := httptest.NewRecorder()
	h.List(rr, authedRequest(http.MethodGet, "/api/v1/sessions?filter=deleted", "", "u1"))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestSessionHandler_Create(t *testing.T) {
	h := NewSessionHandler(newStubSessions("u1"))

	rr := httptest.NewRecorder()
	h.Create(rr, authedRequest(http.MethodPost, "/api/v1/sessions", "", "u1"))

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "u1") {
		t.Fatal("owner id must not be serialized")
	}
}

func TestSessionHandler_Rename(t *testing.T) {
	id := uuid.New()
	store := newStubSessions("u1", id)
	h := NewSessionHandler(store)

	tests := []struct {
		name   string
		id     string
		user   string
		body   string
		status int
	}{
		{"renames", id.String(), "u1", `{"sessionName":"  Organic chemistry  "}`, http.StatusOK},
		{"blank name", id.String(), "u1", `{"sessionName":"   "}`, http.StatusBadRequest},
		{"too long", id.String(), "u1", `{"sessionName":"` + strings.Repeat("x", 101) + `"}`, http.StatusBadRequest},
		{"unknown field", id.String(), "u1", `{"sessionName":"ok","extra":1}`, http.StatusBadRequest},
		{"bad id", "not-a-uuid", "u1", `{"sessionName":"ok"}`, http.StatusBadRequest},
		{"other user", id.String(), "u2", `{"sessionName":"mine now"}`, http.StatusNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := withURLParam(authedRequest(http.MethodPut, "/", tc.body, tc.user), "id", tc.id)
			rr := httptest.NewRecorder()
			h.Rename(rr, req)
			if rr.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, rr.Code, rr.Body.String())
			}
		})
	}

	if store.sessions[id].SessionName != "Organic chemistry" {
		t.Fatalf("expected trimmed name, got %q", store.sessions[id].SessionName)
	}
}

func TestSessionHandler_TogglesAndDelete(t *testing.T) {
	id := uuid.New()
	store := newStubSessions("u1", id)
	h := NewSessionHandler(store)

	rr := httptest.NewRecorder()
	h.ToggleStar(rr, withURLParam(authedRequest(http.MethodPut, "/", "", "u1"), "id", id.String()))
	if rr.Code != http.StatusOK || !store.sessions[id].IsStarred {
		t.Fatalf("expected starred session, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.ToggleArchive(rr, withURLParam(authedRequest(http.MethodPut, "/", "", "u1"), "id", id.String()))
	if rr.Code != http.StatusOK || !store.sessions[id].IsArchived {
		t.Fatalf("expected archived session, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.Delete(rr, withURLParam(authedRequest(http.MethodDelete, "/", "", "u1"), "id", id.String()))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if _, ok := store.sessions[id]; ok {
		t.Fatal("session should be deleted")
	}

	rr = httptest.NewRecorder()
	h.Delete(rr, withURLParam(authedRequest(http.MethodDelete, "/", "", "u1"), "id", id.String()))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for second delete, got %d", rr.Code)
	}
}

func TestSessionHandler_StoreFailureIs500(t *testing.T) {
	store := newStubSessions("u1")
	store.err = errors.New("db unavailable")
	h := NewSessionHandler(store)

	rr := httptest.NewRecorder()
	h.Create(rr, authedRequest(http.MethodPost, "/", "", "u1"))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if apiErr := decodeError(t, rr); strings.Contains(apiErr.Message, "db unavailable") {
		t.Fatal("internal errors must not leak")
	}
}

// ─── Chat Handler Tests ───

func TestChatHandler_SendMessage(t *testing.T) {
	id := uuid.New()
	sessions := newStubSessions("u1", id)
	messages := &stubMessages{stored: []models.StoredMessage{
		{SessionID: id, Content: "What is ATP?", IsUserMessage: true},
		{SessionID: id, Content: "The energy currency of the cell.", IsUserMessage: false},
	}}
	fl := &stubFlows{chatResp: models.ChatResponse{Response: "Mitochondria make it."}}
	h := NewChatHandler(sessions, messages, fl)

	req := withURLParam(authedRequest(http.MethodPost, "/", `{"content":"Where is it made?","mode":"knowledge"}`, "u1"), "id", id.String())
	rr := httptest.NewRecorder()
	h.SendMessage(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	if len(fl.chatReqs) != 1 {
		t.Fatalf("expected one chat call, got %d", len(fl.chatReqs))
	}
	sent := fl.chatReqs[0]
	if sent.Message != "Where is it made?" || sent.Mode != models.ModeKnowledge {
		t.Errorf("unexpected chat request %+v", sent)
	}
	if len(sent.ChatHistory) != 2 {
		t.Fatalf("history must hold only prior turns, got %d", len(sent.ChatHistory))
	}
	if sent.ChatHistory[0].Role != models.RoleUser || sent.ChatHistory[1].Role != models.RoleAssistant {
		t.Errorf("unexpected history roles %+v", sent.ChatHistory)
	}

	if len(messages.stored) != 4 {
		t.Fatalf("expected user message and reply appended, got %d stored", len(messages.stored))
	}
	if !messages.stored[2].IsUserMessage || messages.stored[3].IsUserMessage {
		t.Fatal("user message must be stored before the reply")
	}
	if messages.stored[3].Content != "Mitochondria make it." {
		t.Errorf("unexpected stored reply %q", messages.stored[3].Content)
	}

	var resp models.SendMessageResponse
	json.NewDecoder(rr.Body).Decode(&resp)
	if resp.AssistantMessage.Content != "Mitochondria make it." || resp.UserMessage.Content != "Where is it made?" {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestChatHandler_SendMessageRejections(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		name   string
		user   string
		body   string
		status int
	}{
		{"blank content", "u1", `{"content":"  "}`, http.StatusBadRequest},
		{"bad mode", "u1", `{"content":"hi","mode":"poetry"}`, http.StatusBadRequest},
		{"foreign session", "intruder", `{"content":"hi"}`, http.StatusNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			messages := &stubMessages{}
			fl := &stubFlows{}
			h := NewChatHandler(newStubSessions("u1", id), messages, fl)

			req := withURLParam(authedRequest(http.MethodPost, "/", tc.body, tc.user), "id", id.String())
			rr := httptest.NewRecorder()
			h.SendMessage(rr, req)

			if rr.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rr.Code)
			}
			if len(messages.stored) != 0 || len(fl.chatReqs) != 0 {
				t.Fatal("nothing may be stored or sent on rejection")
			}
		})
	}
}

func TestChatHandler_ListMessages(t *testing.T) {
	id := uuid.New()
	messages := &stubMessages{stored: []models.StoredMessage{{SessionID: id, Content: "hello", IsUserMessage: true}}}
	h := NewChatHandler(newStubSessions("u1", id), messages, &stubFlows{})

	rr := httptest.NewRecorder()
	h.ListMessages(rr, withURLParam(authedRequest(http.MethodGet, "/", "", "u1"), "id", id.String()))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var body struct {
		Messages []models.StoredMessage `json:"messages"`
	}
	json.NewDecoder(rr.Body).Decode(&body)
	if len(body.Messages) != 1 || body.Messages[0].Content != "hello" {
		t.Fatalf("unexpected messages %+v", body.Messages)
	}
}

// ─── Ingest Handler Tests ───

type stubExtractor struct {
	filename string
	text     string
	err      error
}

func (s *stubExtractor) ExtractText(filename string, data []byte) (string, error) {
	s.filename = filename
	return s.text, s.err
}

func (s *stubExtractor) MaxBytes() int64 { return 1 << 20 }

type stubFetcher struct {
	content *models.ExtractedContent
	err     error
}

func (s *stubFetcher) Fetch(ctx context.Context, rawURL string) (*models.ExtractedContent, error) {
	return s.content, s.err
}

func multipartBody(t *testing.T, field, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	fw.Write([]byte(content))
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestIngestHandler_UploadFile(t *testing.T) {
	extractor := &stubExtractor{text: "chapter one"}
	h := NewIngestHandler(extractor, &stubFetcher{})

	body, contentType := multipartBody(t, "file", "notes.txt", "chapter one")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ingest/file", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	h.UploadFile(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp models.ExtractedContent
	json.NewDecoder(rr.Body).Decode(&resp)
	if resp.Content != "chapter one" || resp.Title != "notes.txt" || resp.Source != "file" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestIngestHandler_UploadFileErrors(t *testing.T) {
	h := NewIngestHandler(&stubExtractor{}, &stubFetcher{})

	body, contentType := multipartBody(t, "attachment", "notes.txt", "x")
	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	h.UploadFile(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without a file field, got %d", rr.Code)
	}

	h = NewIngestHandler(&stubExtractor{err: &services.UnsupportedMediaError{Message: "corrupt"}}, &stubFetcher{})
	body, contentType = multipartBody(t, "file", "broken.pdf", "x")
	req = httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set("Content-Type", contentType)
	rr = httptest.NewRecorder()
	h.UploadFile(rr, req)
	if rr.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415, got %d", rr.Code)
	}
}

func TestIngestHandler_UploadFileRejectsUnsupportedExtension(t *testing.T) {
	extractor := &stubExtractor{text: "never"}
	h := NewIngestHandler(extractor, &stubFetcher{})

	body, contentType := multipartBody(t, "file", "slides.pptx", "x")
	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	h.UploadFile(rr, req)

	if rr.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415, got %d", rr.Code)
	}
	if code := decodeError(t, rr).Code; code != "UNSUPPORTED_MEDIA" {
		t.Fatalf("expected UNSUPPORTED_MEDIA, got %q", code)
	}
	if extractor.filename != "" {
		t.Fatal("extractor should not run for unsupported files")
	}
}

func TestIngestHandler_FetchURL(t *testing.T) {
	tests := []struct {
		name    string
		fetcher *stubFetcher
		status  int
	}{
		{"ok", &stubFetcher{content: &models.ExtractedContent{Content: "text", Source: "web"}}, http.StatusOK},
		{"invalid url", &stubFetcher{err: &services.ValidationError{Fields: map[string]string{"url": "bad"}}}, http.StatusBadRequest},
		{"upstream", &stubFetcher{err: &services.UpstreamError{Message: "Page returned HTTP 404"}}, http.StatusBadGateway},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := NewIngestHandler(&stubExtractor{}, tc.fetcher)
			rr := httptest.NewRecorder()
			h.FetchURL(rr, authedRequest(http.MethodPost, "/", `{"url":"https://example.com"}`, "u1"))
			if rr.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rr.Code)
			}
		})
	}
}

// ─── Auth Bridge Tests ───

type stubMinter struct {
	configErr error
	mintErr   error
	mintedFor string
}

func (s *stubMinter) CheckConfig() error { return s.configErr }

func (s *stubMinter) Mint(userID string) (string, error) {
	s.mintedFor = userID
	return "custom-token", s.mintErr
}

type stubParser struct{}

func (stubParser) ParseUserID(token string) (string, error) {
	if token == "valid" {
		return "user_2abc", nil
	}
	return "", errors.New("invalid")
}

func TestAuthBridge_FirebaseToken(t *testing.T) {
	minter := &stubMinter{}
	h := NewAuthBridgeHandler(minter, stubParser{}, "production")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/firebase-token", nil)
	req.Header.Set("Authorization", "Bearer valid")
	rr := httptest.NewRecorder()
	h.FirebaseToken(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp models.FirebaseTokenResponse
	json.NewDecoder(rr.Body).Decode(&resp)
	if resp.FirebaseToken != "custom-token" || minter.mintedFor != "user_2abc" {
		t.Fatalf("unexpected response %+v for %q", resp, minter.mintedFor)
	}
}

func TestAuthBridge_MissingConfigReportedFirst(t *testing.T) {
	minter := &stubMinter{configErr: &services.ConfigError{Missing: []string{"FIREBASE_PRIVATE_KEY"}}}
	h := NewAuthBridgeHandler(minter, stubParser{}, "production")

	// No Authorization header: configuration is still checked first.
	rr := httptest.NewRecorder()
	h.FirebaseToken(rr, httptest.NewRequest(http.MethodPost, "/", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	apiErr := decodeError(t, rr)
	if apiErr.Code != "CONFIG_ERROR" || apiErr.Message != "Server configuration error" || !strings.Contains(apiErr.Details, "FIREBASE_PRIVATE_KEY") {
		t.Fatalf("unexpected error %+v", apiErr)
	}
}

func TestAuthBridge_Unauthorized(t *testing.T) {
	h := NewAuthBridgeHandler(&stubMinter{}, stubParser{}, "production")

	for _, header := range []string{"", "valid", "Bearer expired"} {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rr := httptest.NewRecorder()
		h.FirebaseToken(rr, req)
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("header %q: expected 401, got %d", header, rr.Code)
		}
	}
}

func TestAuthBridge_MintFailureHidesDetailsOutsideDevelopment(t *testing.T) {
	for env, wantDetails := range map[string]bool{"production": false, "development": true} {
		h := NewAuthBridgeHandler(&stubMinter{mintErr: errors.New("bad key")}, stubParser{}, env)

		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("Authorization", "Bearer valid")
		rr := httptest.NewRecorder()
		h.FirebaseToken(rr, req)

		if rr.Code != http.StatusInternalServerError {
			t.Fatalf("%s: expected 500, got %d", env, rr.Code)
		}
		if got := decodeError(t, rr).Details != ""; got != wantDetails {
			t.Errorf("%s: details exposed = %v, want %v", env, got, wantDetails)
		}
	}
}

// ─── Settings Handler Tests ───

type stubSettings struct {
	saved  *models.UserSettings
	getErr error
}

func (s *stubSettings) Get(ctx context.Context, userID string) (*models.UserSettings, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	if s.saved != nil {
		snapshot := *s.saved
		return &snapshot, nil
	}
	return models.DefaultUserSettings(userID), nil
}

func (s *stubSettings) Upsert(ctx context.Context, settings *models.UserSettings) error {
	s.saved = settings
	return nil
}

func TestSettingsHandler_GetDefaults(t *testing.T) {
	h := NewSettingsHandler(&stubSettings{})

	rr := httptest.NewRecorder()
	h.Get(rr, authedRequest(http.MethodGet, "/api/v1/user/settings", "", "u1"))

	var body struct {
		Settings models.UserSettings `json:"settings"`
	}
	json.NewDecoder(rr.Body).Decode(&body)
	if body.Settings.Theme != "dark" || body.Settings.DefaultMode != models.ModeGeneral {
		t.Fatalf("unexpected defaults %+v", body.Settings)
	}
}

func TestSettingsHandler_UpdateMergesFields(t *testing.T) {
	store := &stubSettings{}
	h := NewSettingsHandler(store)

	rr := httptest.NewRecorder()
	h.Update(rr, authedRequest(http.MethodPut, "/", `{"theme":"light","notifications":{"push":true}}`, "u1"))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if store.saved.Theme != "light" || store.saved.Language != "en" {
		t.Fatalf("unexpected saved settings %+v", store.saved)
	}
	if !store.saved.Notifications["push"] || !store.saved.Notifications["email"] {
		t.Fatalf("notifications must merge, got %v", store.saved.Notifications)
	}
}

func TestSettingsHandler_UpdateValidation(t *testing.T) {
	for _, body := range []string{
		`{"theme":"neon"}`,
		`{"defaultMode":"poetry"}`,
		`{"language":"x"}`,
		`{"fontSize":12}`,
	} {
		store := &stubSettings{}
		rr := httptest.NewRecorder()
		NewSettingsHandler(store).Update(rr, authedRequest(http.MethodPut, "/", body, "u1"))
		if rr.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", body, rr.Code)
		}
		if store.saved != nil {
			t.Errorf("%s: nothing may be saved", body)
		}
	}
}
