package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yunseo-dev/go-care-backend/internal/extract"
	"github.com/yunseo-dev/go-care-backend/internal/services"
	"github.com/yunseo-dev/go-care-backend/internal/store"
)

// stubService scripts the VoiceService responses.
type stubService struct {
	out services.Outcome
	id  string
	err error

	gotRequester string
	gotPending   string
	gotAudio     []byte
}

func (s *stubService) SubmitInitial(_ context.Context, requesterID string, audio []byte) (services.Outcome, error) {
	s.gotRequester = requesterID
	s.gotAudio = audio
	return s.out, s.err
}

func (s *stubService) SubmitFollowUp(_ context.Context, requesterID, pendingID string, audio []byte) (services.Outcome, error) {
	s.gotRequester = requesterID
	s.gotPending = pendingID
	s.gotAudio = audio
	return s.out, s.err
}

func (s *stubService) UndoLast(context.Context) (string, error) {
	return s.id, s.err
}

func newRouter(svc VoiceService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := New(svc)
	r.POST("/request/voice", h.SubmitVoice)
	r.POST("/request/voice/continue", h.ContinueVoice)
	r.DELETE("/request/last", h.DeleteLastRequest)
	return r
}

// multipartBody builds a multipart form with the given fields plus an
// audio_file part containing audio (skipped when audio is nil).
func multipartBody(t *testing.T, fields map[string]string, audio []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("WriteField(%s): %v", k, err)
		}
	}
	if audio != nil {
		fw, err := mw.CreateFormFile("audio_file", "voice.wav")
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		if _, err := fw.Write(audio); err != nil {
			t.Fatalf("write audio: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func postForm(t *testing.T, r *gin.Engine, url string, fields map[string]string, audio []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, ctype := multipartBody(t, fields, audio)
	req := httptest.NewRequest(http.MethodPost, url, body)
	req.Header.Set("Content-Type", ctype)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
	return m
}

func TestSubmitVoice_Finalized(t *testing.T) {
	svc := &stubService{out: services.Outcome{RequestID: "req001"}}
	r := newRouter(svc)

	w := postForm(t, r, "/request/voice", map[string]string{"requester_id": "elder-1"}, []byte("RIFF"))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	got := decode(t, w)
	if got["status"] != "success" || got["request_id"] != "req001" {
		t.Fatalf("body = %v", got)
	}
	if _, present := got["pending_request_id"]; present {
		t.Fatalf("finalized response should omit pending fields: %v", got)
	}
	if svc.gotRequester != "elder-1" || string(svc.gotAudio) != "RIFF" {
		t.Fatalf("service got requester=%q audio=%q", svc.gotRequester, svc.gotAudio)
	}
}

func TestSubmitVoice_Incomplete(t *testing.T) {
	svc := &stubService{out: services.Outcome{
		PendingID:     "pend-1",
		Missing:       []string{"destination", "method"},
		Clarification: "어디로 가야 하나요? 차로 모셔다드릴까요, 아니면 걸어서 함께 가드릴까요?",
	}}
	r := newRouter(svc)

	w := postForm(t, r, "/request/voice", map[string]string{"requester_id": "elder-1"}, []byte("RIFF"))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	got := decode(t, w)
	if got["status"] != "incomplete" || got["pending_request_id"] != "pend-1" {
		t.Fatalf("body = %v", got)
	}
	missing, _ := got["missing_fields"].([]any)
	if len(missing) != 2 || missing[0] != "destination" || missing[1] != "method" {
		t.Fatalf("missing_fields = %v", got["missing_fields"])
	}
	if got["clarification_prompt_text"] == "" {
		t.Fatalf("clarification missing: %v", got)
	}
}

func TestSubmitVoice_UserIDQueryFallback(t *testing.T) {
	svc := &stubService{out: services.Outcome{RequestID: "req002"}}
	r := newRouter(svc)

	w := postForm(t, r, "/request/voice?user_id=elder-2", nil, []byte("RIFF"))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if svc.gotRequester != "elder-2" {
		t.Fatalf("requester = %q, want elder-2", svc.gotRequester)
	}
}

func TestSubmitVoice_BadRequests(t *testing.T) {
	cases := []struct {
		name   string
		fields map[string]string
		audio  []byte
	}{
		{"missing requester", nil, []byte("RIFF")},
		{"missing audio", map[string]string{"requester_id": "elder-1"}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newRouter(&stubService{})
			w := postForm(t, r, "/request/voice", tc.fields, tc.audio)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", w.Code)
			}
			if got := decode(t, w); got["code"] != ErrCodeBadRequest {
				t.Fatalf("code = %v", got["code"])
			}
		})
	}
}

func TestSubmitVoice_ErrorMapping(t *testing.T) {
	parseErr := fmt.Errorf("field extraction: %w",
		&extract.ParseError{Raw: "not json", Err: errors.New("invalid character")})

	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"empty audio", services.ErrEmptyAudio, http.StatusBadRequest, ErrCodeBadRequest},
		{"no speech", services.ErrNoSpeech, http.StatusBadRequest, ErrCodeBadRequest},
		{"parse error", parseErr, http.StatusBadGateway, ErrCodeExtractionFailed},
		{"provider down", errors.New("rpc error: unavailable"), http.StatusBadGateway, ErrCodeUpstream},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newRouter(&stubService{err: tc.err})
			w := postForm(t, r, "/request/voice", map[string]string{"requester_id": "elder-1"}, []byte("RIFF"))
			if w.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tc.wantStatus)
			}
			if got := decode(t, w); got["code"] != tc.wantCode {
				t.Fatalf("code = %v, want %s", got["code"], tc.wantCode)
			}
		})
	}
}

func TestContinueVoice_Finalized(t *testing.T) {
	svc := &stubService{out: services.Outcome{RequestID: "req003"}}
	r := newRouter(svc)

	w := postForm(t, r, "/request/voice/continue", map[string]string{
		"requester_id":       "elder-1",
		"pending_request_id": "pend-7",
	}, []byte("RIFF"))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if got := decode(t, w); got["request_id"] != "req003" {
		t.Fatalf("body = %v", got)
	}
	if svc.gotPending != "pend-7" {
		t.Fatalf("pending = %q", svc.gotPending)
	}
}

func TestContinueVoice_MissingPendingID(t *testing.T) {
	r := newRouter(&stubService{})
	w := postForm(t, r, "/request/voice/continue", map[string]string{"requester_id": "elder-1"}, []byte("RIFF"))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestContinueVoice_PendingNotFound(t *testing.T) {
	svc := &stubService{err: fmt.Errorf("pending request pend-9: %w", store.ErrPendingNotFound)}
	r := newRouter(svc)

	w := postForm(t, r, "/request/voice/continue", map[string]string{
		"requester_id":       "elder-1",
		"pending_request_id": "pend-9",
	}, []byte("RIFF"))

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if got := decode(t, w); got["code"] != ErrCodeNotFound {
		t.Fatalf("code = %v", got["code"])
	}
}

func TestDeleteLastRequest(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		r := newRouter(&stubService{id: "req005"})
		req := httptest.NewRequest(http.MethodDelete, "/request/last", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		got := decode(t, w)
		if got["status"] != "success" || got["message"] == "" {
			t.Fatalf("body = %v", got)
		}
	})

	conflicts := []struct {
		name string
		err  error
	}{
		{"nothing to delete", store.ErrNothingToDelete},
		{"counter repaired", fmt.Errorf("request req004: %w", store.ErrInconsistentCounter)},
	}
	for _, tc := range conflicts {
		t.Run(tc.name, func(t *testing.T) {
			r := newRouter(&stubService{err: tc.err})
			req := httptest.NewRequest(http.MethodDelete, "/request/last", nil)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != http.StatusConflict {
				t.Fatalf("status = %d, want 409", w.Code)
			}
			if got := decode(t, w); got["code"] != ErrCodeInvalidState {
				t.Fatalf("code = %v", got["code"])
			}
		})
	}
}
