package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/flowmesh/controlplane/internal/authz"
	"github.com/flowmesh/controlplane/internal/filters"
	"github.com/flowmesh/controlplane/internal/model"
	"github.com/flowmesh/controlplane/internal/ops"
	"github.com/flowmesh/controlplane/internal/store/memory"
)

func discardLog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestServer wires a Server over a fresh in-memory store and returns
// its router alongside a bearer token plaintext already carrying
// admin:all, for handlers that need an authenticated caller.
func newTestServer(t *testing.T) (http.Handler, string) {
	t.Helper()
	st := memory.New()
	d := ops.NewDispatcher(st, filters.NewSchemaRegistry(), discardLog())
	s := NewServer(d, st, discardLog())

	const plaintext = "test-admin-token-0123456789abcdef"
	hash, err := authz.HashToken(plaintext)
	require.NoError(t, err)
	tok := &model.PersonalAccessToken{
		ID: model.NewTokenID(), Name: "test-admin", TokenHash: hash,
		Scopes: []string{authz.ScopeAdminAll},
	}
	require.NoError(t, st.Tokens().Create(t.Context(), tok))

	return s.Router(), plaintext
}

func TestRouter_Healthz(t *testing.T) {
	router, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_RejectsMissingAuthorization(t *testing.T) {
	router, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/clusters/", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_RejectsUnknownToken(t *testing.T) {
	router, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/clusters/", nil)
	req.Header.Set("Authorization", "Bearer not-a-real-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_CreateAndListCluster(t *testing.T) {
	router, token := newTestServer(t)

	body, err := json.Marshal(ops.CreateClusterRequest{
		Name:        "svc",
		ServiceName: "svc",
		Spec: model.ClusterSpec{
			Endpoints:       []model.Endpoint{{Kind: model.EndpointAddress, Address: "10.0.0.1", Port: 80, Weight: 1}},
			ConnectTimeout:  5 * time.Second,
			DNSLookupFamily: model.DNSAuto,
			LBPolicy:        model.LBRoundRobin,
		},
	})
	require.NoError(t, err)

	createReq := httptest.NewRequest(http.MethodPost, "/api/v1/clusters/", bytes.NewReader(body))
	createReq.Header.Set("Authorization", "Bearer "+token)
	createReq.Header.Set("Content-Type", "application/json")
	createRec := httptest.NewRecorder()
	router.ServeHTTP(createRec, createReq)
	require.Equal(t, http.StatusCreated, createRec.Code)
	require.NotEmpty(t, createRec.Header().Get("X-Operation-Message"))

	var created model.Cluster
	require.NoError(t, json.Unmarshal(createRec.Body.Bytes(), &created))
	require.Equal(t, "svc", created.Name)

	listReq := httptest.NewRequest(http.MethodGet, "/api/v1/clusters/", nil)
	listReq.Header.Set("Authorization", "Bearer "+token)
	listRec := httptest.NewRecorder()
	router.ServeHTTP(listRec, listReq)
	require.Equal(t, http.StatusOK, listRec.Code)

	var clusters []*model.Cluster
	require.NoError(t, json.Unmarshal(listRec.Body.Bytes(), &clusters))
	require.Len(t, clusters, 1)
}

func TestRouter_GetClusterNotFoundReturns404(t *testing.T) {
	router, token := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/clusters/"+string(model.NewClusterID()), nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_InvalidJSONBodyReturns400(t *testing.T) {
	router, token := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/clusters/", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
