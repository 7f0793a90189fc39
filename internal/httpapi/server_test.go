package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/agentd/internal/contextmgr"
	"github.com/fyrsmithlabs/agentd/internal/engine"
	"github.com/fyrsmithlabs/agentd/internal/llm"
	"github.com/fyrsmithlabs/agentd/internal/security"
	"github.com/fyrsmithlabs/agentd/internal/tools"
)

// staticClient answers every completion with fixed text.
type staticClient struct {
	text string
}

func (c *staticClient) CompleteWithTools(ctx context.Context, messages []llm.Message, toolDefs []llm.ToolDefinition, opts llm.Options) (*llm.Completion, error) {
	return &llm.Completion{Text: c.text}, nil
}

func (c *staticClient) CheckConnection(ctx context.Context) error {
	return nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	workspace := t.TempDir()
	policy, err := security.NewPolicy(security.DefaultConfig(workspace))
	require.NoError(t, err)

	registry := tools.NewRegistry(zap.NewNop())
	require.NoError(t, registry.Register(tools.NewFilesTool()))

	cm, err := contextmgr.NewManager(contextmgr.DefaultSizeConfig(), nil, zap.NewNop())
	require.NoError(t, err)

	eng, err := engine.New(engine.DefaultConfig(workspace), registry,
		&staticClient{text: "the answer"}, policy, cm, zap.NewNop())
	require.NoError(t, err)

	srv, err := NewServer(eng, zap.NewNop(), nil)
	require.NoError(t, err)
	return srv
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	srv.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
}

func TestQuery(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/query",
		strings.NewReader(`{"query": "what is this project?"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	srv.echo.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body QueryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Complete)
	assert.Equal(t, "the answer", body.ResponseText)
	assert.GreaterOrEqual(t, body.ProcessingTimeMS, int64(0))
}

func TestQuery_MissingQuery(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/query",
		strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	srv.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQuery_EngineContainsValidationFailure(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/query",
		strings.NewReader(`{"query": "   "}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	srv.echo.ServeHTTP(rec, req)

	// Whitespace-only queries pass the transport check but fail engine
	// validation; that is still a 200 with complete=false.
	require.Equal(t, http.StatusOK, rec.Code)

	var body QueryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Complete)
	assert.Len(t, body.Errors, 1)
}

func TestNewServer_Validation(t *testing.T) {
	_, err := NewServer(nil, zap.NewNop(), nil)
	require.Error(t, err)
}
