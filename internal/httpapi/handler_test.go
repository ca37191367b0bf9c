package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hackohio/quizd/internal/quiz"
	"hackohio/quizd/pkg/worker"
	"hackohio/quizd/pkg/worker/workertest"
)

const validQuiz = `{"questions":[{"prompt":"Q1","options":["A","B"],"answer_index":0}]}`

type fixedMetrics worker.Metrics

func (m fixedMetrics) Metrics() worker.Metrics { return worker.Metrics(m) }

func newTestHandler(inv worker.Invoker) http.Handler {
	return NewHandler(quiz.NewService(inv, quiz.DefaultConfig(), nil), fixedMetrics{Launches: 7}, nil).Routes()
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var e ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	return e
}

func TestGenerateQuiz_EndToEnd(t *testing.T) {
	ch := workertest.NewChannel(map[string]workertest.Outcome{
		"python": {Completion: worker.Completion{Stdout: validQuiz}},
	})
	orch := worker.NewOrchestrator(worker.Config{
		Candidates: worker.NewCandidates("python", "py"),
		WorkerPath: "ai_worker.py",
	}, ch, nil)

	rec := do(t, newTestHandler(orch), http.MethodPost, "/generate-quiz", `{"topic":"Tech Trends"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, validQuiz, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	calls := ch.Calls()
	require.Len(t, calls, 1)
	assert.JSONEq(t, `{"topic":"Tech Trends","count":5}`, string(calls[0].Input))
	assert.Equal(t, []string{"ai_worker.py", "generate_quiz"}, calls[0].Args)
}

func TestGenerateQuiz_ReturnsWorkerDocumentUnchanged(t *testing.T) {
	raw := `{"questions":[{"prompt":"Q1","options":["A","B"],"answer_index":0,"explanation":"because"}],"topic":"x"}`
	inv := workertest.NewInvoker(workertest.Reply{Raw: raw})

	rec := do(t, newTestHandler(inv), http.MethodPost, "/generate-quiz", `{"topic":"x"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, raw, rec.Body.String())
}

func TestGenerateQuiz_CaseFoldedReplyIsRejected(t *testing.T) {
	inv := workertest.NewInvoker(
		workertest.Reply{Raw: `{"QUESTIONS":[{"Prompt":"Q1","OPTIONS":["A","B"],"Answer_Index":0}]}`},
		workertest.Reply{Raw: `{"questions":[{"prompt":"Q1","options":[null,null],"answer_index":0}]}`},
	)

	rec := do(t, newTestHandler(inv), http.MethodPost, "/generate-quiz", `{"topic":"x"}`)
	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "Failed to generate quiz", decodeError(t, rec).Error)
	assert.Equal(t, 3, inv.Count())
}

func TestGenerateQuiz_NoExecutable(t *testing.T) {
	ch := workertest.NewChannel(nil)
	orch := worker.NewOrchestrator(worker.Config{Candidates: worker.NewCandidates("python", "py")}, ch, nil)

	rec := do(t, newTestHandler(orch), http.MethodPost, "/generate-quiz", `{"topic":"Tech Trends"}`)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	e := decodeError(t, rec)
	assert.Equal(t, "Failed to generate quiz", e.Error)
	assert.Contains(t, e.Details, "no worker executable found")
	// Three attempts, each trying both candidates.
	assert.Equal(t, []string{"python", "py", "python", "py", "python", "py"}, ch.Executables())
}

func TestGenerateQuiz_WorkerStderrStaysInLogs(t *testing.T) {
	inv := workertest.NewInvoker(workertest.Reply{Err: &worker.ProcessExitError{Executable: "python", ExitCode: 1, Stderr: "Traceback: secret"}})

	rec := do(t, newTestHandler(inv), http.MethodPost, "/generate-quiz", `{}`)
	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret")
	assert.Equal(t, "worker exited with code 1", decodeError(t, rec).Details)
	assert.Equal(t, 3, inv.Count())
}

func TestGenerateQuiz_BadBody(t *testing.T) {
	inv := workertest.NewInvoker(workertest.Reply{Raw: validQuiz})
	rec := do(t, newTestHandler(inv), http.MethodPost, "/generate-quiz", `{topic`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, inv.Count())
}

func TestGenerateQuiz_BodyTooLarge(t *testing.T) {
	inv := workertest.NewInvoker(workertest.Reply{Raw: validQuiz})
	body := `{"topic":"` + strings.Repeat("x", MaxRequestBodySize) + `"}`
	rec := do(t, newTestHandler(inv), http.MethodPost, "/generate-quiz", body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestGenerateFeedback(t *testing.T) {
	inv := workertest.NewInvoker(workertest.Reply{Raw: `{"feedback":"Not bad"}`})

	rec := do(t, newTestHandler(inv), http.MethodPost, "/generate-feedback", `{"topic":"Tech Trends","score":3,"total":5}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"feedback":"Not bad"}`, rec.Body.String())

	action, payload := inv.Last()
	assert.Equal(t, quiz.ActionGenerateFeedback, action)
	assert.Equal(t, worker.Payload{"topic": "Tech Trends", "score": 3.0, "total": 5.0}, payload)
}

func TestGenerateFeedback_KeepsExtraFields(t *testing.T) {
	raw := `{"feedback":"Not bad","tone":"warm"}`
	inv := workertest.NewInvoker(workertest.Reply{Raw: raw})

	rec := do(t, newTestHandler(inv), http.MethodPost, "/generate-feedback", `{"score":"3","total":5}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, raw, rec.Body.String())

	_, payload := inv.Last()
	assert.Equal(t, worker.Payload{"score": "3", "total": 5.0}, payload)
}

func TestGenerateFeedback_Invalid(t *testing.T) {
	inv := workertest.NewInvoker(workertest.Reply{Raw: `{"feedback":null}`})

	rec := do(t, newTestHandler(inv), http.MethodPost, "/generate-feedback", `{"topic":"x","score":1,"total":5}`)
	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "Invalid feedback from AI", decodeError(t, rec).Error)
}

func TestGenerateFeedback_Timeout(t *testing.T) {
	inv := workertest.NewInvoker(workertest.Reply{Err: &worker.AbortError{Executable: "python", Cause: context.DeadlineExceeded}})

	rec := do(t, newTestHandler(inv), http.MethodPost, "/generate-feedback", `{}`)
	require.Equal(t, http.StatusGatewayTimeout, rec.Code)
	assert.Equal(t, "worker timed out", decodeError(t, rec).Details)
}

func TestHealthIgnoresWorker(t *testing.T) {
	inv := workertest.NewInvoker(workertest.Reply{Err: worker.ErrNoExecutableFound})
	rec := do(t, newTestHandler(inv), http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.Zero(t, inv.Count())
}

func TestStats(t *testing.T) {
	rec := do(t, newTestHandler(workertest.NewInvoker()), http.MethodGet, "/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var m worker.Metrics
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	assert.Equal(t, uint64(7), m.Launches)
}

func TestCORS(t *testing.T) {
	h := newTestHandler(workertest.NewInvoker())

	req := httptest.NewRequest(http.MethodOptions, "/generate-quiz", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "content-type")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
	assert.Equal(t, "content-type", rec.Header().Get("Access-Control-Allow-Headers"))

	rec = do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestUnknownMethod(t *testing.T) {
	rec := do(t, newTestHandler(workertest.NewInvoker()), http.MethodGet, "/generate-quiz", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
