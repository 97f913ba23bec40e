package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"zap-backend/internal/clients"
	"zap-backend/internal/models"
	"zap-backend/internal/orchestrator"
	"zap-backend/internal/zap"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeEngine struct {
	depositReq    *orchestrator.DepositRequest
	withdrawalReq *orchestrator.WithdrawalRequest
	startErr      error
	operation     *models.Operation
	operationErr  error
}

func (f *fakeEngine) StartDeposit(req orchestrator.DepositRequest) (*models.Operation, error) {
	f.depositReq = &req
	if f.startErr != nil {
		return nil, f.startErr
	}
	return &models.Operation{ID: "op-1", Status: models.OperationStatusPending}, nil
}

func (f *fakeEngine) StartWithdrawal(req orchestrator.WithdrawalRequest) (*models.Operation, error) {
	f.withdrawalReq = &req
	if f.startErr != nil {
		return nil, f.startErr
	}
	return &models.Operation{ID: "op-2", Status: models.OperationStatusPending}, nil
}

func (f *fakeEngine) Operation(string) (*models.Operation, error) {
	return f.operation, f.operationErr
}

func (f *fakeEngine) RequeryAttestation(context.Context, string, string) (*clients.Attestation, error) {
	return nil, nil
}

func newTestHandler(engine *fakeEngine) *ZapHandler {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewZapHandler(engine, logger)
}

func performJSON(t *testing.T, handler gin.HandlerFunc, method, route, reqPath, body string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Handle(method, route, handler)

	req := httptest.NewRequest(method, reqPath, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

const testUserAddr = "0x00000000000000000000000000000000000000Aa"

func TestDepositHandlerAccepts(t *testing.T) {
	engine := &fakeEngine{}
	rec := performJSON(t, newTestHandler(engine).DepositHandler, http.MethodPost, "/api/zap/deposit", "/api/zap/deposit",
		`{"vault_id":"base-weth","source_network":"arbitrum","amount":"1000000","user_address":"`+testUserAddr+`"}`)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "op-1", body["operation_id"])
	assert.Equal(t, "pending", body["status"])

	require.NotNil(t, engine.depositReq)
	assert.Equal(t, "base-weth", engine.depositReq.VaultID)
	assert.Equal(t, "arbitrum", engine.depositReq.SourceNetwork)
	assert.Equal(t, "1000000", engine.depositReq.Amount.String())
	assert.Zero(t, engine.depositReq.MinFinality, "unset fast_transfer keeps the fast default")
}

func TestDepositHandlerSlowTransferRequestsFinalized(t *testing.T) {
	engine := &fakeEngine{}
	rec := performJSON(t, newTestHandler(engine).DepositHandler, http.MethodPost, "/api/zap/deposit", "/api/zap/deposit",
		`{"vault_id":"base-weth","source_network":"arbitrum","amount":"5","user_address":"`+testUserAddr+`","fast_transfer":false}`)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	require.NotNil(t, engine.depositReq)
	assert.Equal(t, zap.FinalityThresholdFinalized, engine.depositReq.MinFinality)
}

func TestDepositHandlerRejectsBadPayloads(t *testing.T) {
	cases := []struct {
		name string
		body string
		code string
	}{
		{"missing fields", `{"vault_id":"base-weth"}`, "INVALID_REQUEST"},
		{"zero amount", `{"vault_id":"v","source_network":"base","amount":"0","user_address":"` + testUserAddr + `"}`, "INVALID_AMOUNT"},
		{"negative amount", `{"vault_id":"v","source_network":"base","amount":"-5","user_address":"` + testUserAddr + `"}`, "INVALID_AMOUNT"},
		{"decimal amount", `{"vault_id":"v","source_network":"base","amount":"1.5","user_address":"` + testUserAddr + `"}`, "INVALID_AMOUNT"},
		{"bad address", `{"vault_id":"v","source_network":"base","amount":"10","user_address":"nobody"}`, "INVALID_ADDRESS"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			engine := &fakeEngine{}
			rec := performJSON(t, newTestHandler(engine).DepositHandler, http.MethodPost, "/api/zap/deposit", "/api/zap/deposit", tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tc.code, decodeBody(t, rec)["code"])
			assert.Nil(t, engine.depositReq, "the engine is never reached")
		})
	}
}

func TestDepositHandlerMapsValidationErrorToConflict(t *testing.T) {
	engine := &fakeEngine{startErr: &orchestrator.ValidationError{Reason: "operation op-0 is already in progress"}}
	rec := performJSON(t, newTestHandler(engine).DepositHandler, http.MethodPost, "/api/zap/deposit", "/api/zap/deposit",
		`{"vault_id":"base-weth","source_network":"base","amount":"10","user_address":"`+testUserAddr+`"}`)

	assert.Equal(t, http.StatusConflict, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "REJECTED", body["code"])
	assert.Contains(t, body["error"], "already in progress")
}

func TestWithdrawHandlerAccepts(t *testing.T) {
	engine := &fakeEngine{}
	rec := performJSON(t, newTestHandler(engine).WithdrawHandler, http.MethodPost, "/api/zap/withdraw", "/api/zap/withdraw",
		`{"vault_id":"base-weth","shares":"1000","user_address":"`+testUserAddr+`","destination_network":"arbitrum"}`)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "op-2", body["operation_id"])

	require.NotNil(t, engine.withdrawalReq)
	assert.Equal(t, "1000", engine.withdrawalReq.Shares.String())
	assert.Equal(t, "arbitrum", engine.withdrawalReq.DestinationNetwork)
}

func TestGetOperationHandler(t *testing.T) {
	engine := &fakeEngine{operation: &models.Operation{ID: "op-9", Status: models.OperationStatusCompleted}}
	rec := performJSON(t, newTestHandler(engine).GetOperationHandler, http.MethodGet, "/api/zap/operations/:id", "/api/zap/operations/op-9", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	op, ok := body["operation"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "op-9", op["id"])
}

func TestGetOperationHandlerNotFound(t *testing.T) {
	engine := &fakeEngine{operationErr: gorm.ErrRecordNotFound}
	rec := performJSON(t, newTestHandler(engine).GetOperationHandler, http.MethodGet, "/api/zap/operations/:id", "/api/zap/operations/op-9", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeBody(t, rec)["code"])
}
