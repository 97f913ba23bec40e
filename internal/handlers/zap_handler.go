package handlers

import (
	"context"
	"errors"
	"math/big"
	"net/http"

	"zap-backend/internal/clients"
	"zap-backend/internal/models"
	"zap-backend/internal/orchestrator"
	"zap-backend/internal/zap"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ZapEngine is the orchestration surface the HTTP layer drives.
type ZapEngine interface {
	StartDeposit(req orchestrator.DepositRequest) (*models.Operation, error)
	StartWithdrawal(req orchestrator.WithdrawalRequest) (*models.Operation, error)
	Operation(id string) (*models.Operation, error)
	RequeryAttestation(ctx context.Context, network, txHash string) (*clients.Attestation, error)
}

// ZapHandler exposes the deposit and withdrawal flows. Operations are
// accepted asynchronously: the handler returns 202 with the operation id
// and the state machine runs in the background.
type ZapHandler struct {
	engine ZapEngine
	logger *logrus.Logger
}

// NewZapHandler creates the zap operation handler.
func NewZapHandler(engine ZapEngine, logger *logrus.Logger) *ZapHandler {
	return &ZapHandler{engine: engine, logger: logger}
}

// DepositRequest is the POST /api/zap/deposit body.
type DepositRequest struct {
	VaultID       string `json:"vault_id" binding:"required"`
	SourceNetwork string `json:"source_network" binding:"required"`
	Amount        string `json:"amount" binding:"required"`
	UserAddress   string `json:"user_address" binding:"required"`
	Recipient     string `json:"recipient"`
	MaxFee        string `json:"max_fee"`
	FastTransfer  *bool  `json:"fast_transfer"`
}

// WithdrawRequest is the POST /api/zap/withdraw body.
type WithdrawRequest struct {
	VaultID            string `json:"vault_id" binding:"required"`
	Shares             string `json:"shares" binding:"required"`
	UserAddress        string `json:"user_address" binding:"required"`
	Recipient          string `json:"recipient"`
	DestinationNetwork string `json:"destination_network"`
	MaxFee             string `json:"max_fee"`
	FastTransfer       *bool  `json:"fast_transfer"`
}

// DepositHandler starts a deposit operation.
// POST /api/zap/deposit
func (h *ZapHandler) DepositHandler(c *gin.Context) {
	var req DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   err.Error(),
			"code":    "INVALID_REQUEST",
		})
		return
	}

	amount, ok := parsePositiveAmount(req.Amount)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "amount must be a positive integer in the token's smallest unit",
			"code":    "INVALID_AMOUNT",
		})
		return
	}
	user, ok := parseAddress(req.UserAddress)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "user_address is not a valid address",
			"code":    "INVALID_ADDRESS",
		})
		return
	}

	depositReq := orchestrator.DepositRequest{
		VaultID:       req.VaultID,
		SourceNetwork: req.SourceNetwork,
		Amount:        amount,
		User:          user,
		MinFinality:   finalityFromFlag(req.FastTransfer),
	}
	if recipient, ok := parseAddress(req.Recipient); ok {
		depositReq.Recipient = recipient
	}
	if maxFee, ok := parsePositiveAmount(req.MaxFee); ok {
		depositReq.MaxFee = maxFee
	}

	op, err := h.engine.StartDeposit(depositReq)
	if err != nil {
		h.respondStartError(c, "deposit", err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"operation_id": op.ID,
		"vault_id":     req.VaultID,
		"user":         user.Hex(),
	}).Info("Deposit accepted")

	c.JSON(http.StatusAccepted, gin.H{
		"success":      true,
		"operation_id": op.ID,
		"status":       op.Status,
	})
}

// WithdrawHandler starts a withdrawal operation.
// POST /api/zap/withdraw
func (h *ZapHandler) WithdrawHandler(c *gin.Context) {
	var req WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   err.Error(),
			"code":    "INVALID_REQUEST",
		})
		return
	}

	shares, ok := parsePositiveAmount(req.Shares)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "shares must be a positive integer",
			"code":    "INVALID_AMOUNT",
		})
		return
	}
	user, ok := parseAddress(req.UserAddress)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "user_address is not a valid address",
			"code":    "INVALID_ADDRESS",
		})
		return
	}

	withdrawalReq := orchestrator.WithdrawalRequest{
		VaultID:            req.VaultID,
		Shares:             shares,
		User:               user,
		DestinationNetwork: req.DestinationNetwork,
		MinFinality:        finalityFromFlag(req.FastTransfer),
	}
	if recipient, ok := parseAddress(req.Recipient); ok {
		withdrawalReq.Recipient = recipient
	}
	if maxFee, ok := parsePositiveAmount(req.MaxFee); ok {
		withdrawalReq.MaxFee = maxFee
	}

	op, err := h.engine.StartWithdrawal(withdrawalReq)
	if err != nil {
		h.respondStartError(c, "withdrawal", err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"operation_id": op.ID,
		"vault_id":     req.VaultID,
		"user":         user.Hex(),
	}).Info("Withdrawal accepted")

	c.JSON(http.StatusAccepted, gin.H{
		"success":      true,
		"operation_id": op.ID,
		"status":       op.Status,
	})
}

// GetOperationHandler returns one operation with its legs.
// GET /api/zap/operations/:id
func (h *ZapHandler) GetOperationHandler(c *gin.Context) {
	id := c.Param("id")
	op, err := h.engine.Operation(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error":   "operation not found",
				"code":    "NOT_FOUND",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   err.Error(),
			"code":    "QUERY_FAILED",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"operation": op,
	})
}

func (h *ZapHandler) respondStartError(c *gin.Context, kind string, err error) {
	var validationErr *orchestrator.ValidationError
	if errors.As(err, &validationErr) {
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"error":   validationErr.Reason,
			"code":    "REJECTED",
		})
		return
	}
	h.logger.WithField("kind", kind).WithError(err).Error("Failed to start operation")
	c.JSON(http.StatusInternalServerError, gin.H{
		"success": false,
		"error":   err.Error(),
		"code":    "START_FAILED",
	})
}

func parsePositiveAmount(value string) (*big.Int, bool) {
	if value == "" {
		return nil, false
	}
	amount, ok := new(big.Int).SetString(value, 10)
	if !ok || amount.Sign() <= 0 {
		return nil, false
	}
	return amount, true
}

func parseAddress(value string) (common.Address, bool) {
	if !common.IsHexAddress(value) {
		return common.Address{}, false
	}
	return common.HexToAddress(value), true
}

// finalityFromFlag maps the request's fast_transfer flag onto a finality
// threshold. Unset means fast, matching the builder default.
func finalityFromFlag(fast *bool) uint32 {
	if fast != nil && !*fast {
		return zap.FinalityThresholdFinalized
	}
	return 0
}
