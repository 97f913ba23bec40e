package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"time"

	"zap-backend/internal/metrics"
	"zap-backend/internal/utils"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/sirupsen/logrus"
)

// SwapClient queries the external swap aggregator for a route and the
// fully-encoded calldata to execute it through a designated executor
// contract. Both calls are plain request/response with no internal retry;
// transient failures propagate to the caller, which owns the retry policy.
type SwapClient struct {
	baseURL    string
	clientID   string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewSwapClient creates a new swap aggregator client
func NewSwapClient(baseURL, clientID string, timeout time.Duration, logger *logrus.Logger) *SwapClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &SwapClient{
		baseURL:  baseURL,
		clientID: clientID,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// SwapParams describes one swap to build calldata for.
type SwapParams struct {
	ChainTag        string
	TokenIn         common.Address
	TokenOut        common.Address
	AmountIn        *big.Int
	Executor        common.Address
	SlippageBps     int
	DeadlineSeconds int64
}

// SwapCall is the built swap: the aggregator's router contract, the encoded
// calldata, and the native value to attach.
type SwapCall struct {
	Router common.Address
	Data   []byte
	Value  *big.Int
}

// routesResponse mirrors GET /routes
type routesResponse struct {
	Data struct {
		RouteSummary  json.RawMessage `json:"routeSummary"`
		RouterAddress string          `json:"routerAddress"`
	} `json:"data"`
}

// routeSummaryAmounts is the subset of the opaque route summary we read.
type routeSummaryAmounts struct {
	AmountOut string `json:"amountOut"`
}

// buildRequest mirrors POST /route/build
type buildRequest struct {
	RouteSummary        json.RawMessage `json:"routeSummary"`
	Sender              string          `json:"sender"`
	Recipient           string          `json:"recipient"`
	SlippageTolerance   int             `json:"slippageTolerance"`
	Deadline            int64           `json:"deadline"`
	EnableGasEstimation bool            `json:"enableGasEstimation"`
	Source              string          `json:"source"`
}

// buildResponse mirrors POST /route/build
type buildResponse struct {
	Data struct {
		Data             string `json:"data"`
		RouterAddress    string `json:"routerAddress"`
		TransactionValue string `json:"transactionValue"`
	} `json:"data"`
}

// BuildSwap fetches a route and builds executable calldata for it. The
// executor contract is both sender and recipient so the swap output lands
// where the next route step expects it.
func (c *SwapClient) BuildSwap(ctx context.Context, p SwapParams) (*SwapCall, error) {
	if p.AmountIn == nil || p.AmountIn.Sign() <= 0 {
		return nil, fmt.Errorf("swap amountIn must be positive, got %v", p.AmountIn)
	}

	summary, routerAddress, err := c.fetchRoute(ctx, p.ChainTag, p.TokenIn, p.TokenOut, p.AmountIn)
	if err != nil {
		return nil, err
	}

	slippage := p.SlippageBps
	if slippage == 0 {
		slippage = 50
	}
	deadline := p.DeadlineSeconds
	if deadline == 0 {
		deadline = time.Now().Add(20 * time.Minute).Unix()
	}

	reqBody := buildRequest{
		RouteSummary:        summary,
		Sender:              p.Executor.Hex(),
		Recipient:           p.Executor.Hex(),
		SlippageTolerance:   slippage,
		Deadline:            deadline,
		EnableGasEstimation: false,
		Source:              c.clientID,
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal route build request: %w", err)
	}

	buildURL := fmt.Sprintf("%s/%s/api/v1/route/build", c.baseURL, p.ChainTag)
	start := time.Now()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, buildURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create route build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-client-id", c.clientID)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		metrics.SwapQuoteErrors.WithLabelValues("route_build").Inc()
		return nil, fmt.Errorf("route build request failed: %w", err)
	}
	defer resp.Body.Close()
	metrics.SwapQuoteDuration.WithLabelValues("route_build").Observe(time.Since(start).Seconds())

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read route build response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.SwapQuoteErrors.WithLabelValues("route_build").Inc()
		return nil, fmt.Errorf("route build returned status %d: %s", resp.StatusCode, string(body))
	}

	var built buildResponse
	if err := json.Unmarshal(body, &built); err != nil {
		return nil, fmt.Errorf("failed to parse route build response: %w", err)
	}
	if built.Data.Data == "" {
		return nil, fmt.Errorf("route build response missing encoded calldata")
	}

	calldata, err := hexutil.Decode(utils.EnsureHexPrefix(built.Data.Data))
	if err != nil {
		return nil, fmt.Errorf("route build returned invalid calldata: %w", err)
	}

	value := big.NewInt(0)
	if built.Data.TransactionValue != "" {
		parsed, ok := new(big.Int).SetString(built.Data.TransactionValue, 10)
		if !ok {
			return nil, fmt.Errorf("route build returned invalid transaction value %q", built.Data.TransactionValue)
		}
		value = parsed
	}

	router := routerAddress
	if built.Data.RouterAddress != "" {
		router = built.Data.RouterAddress
	}

	c.logger.WithFields(logrus.Fields{
		"chain":     p.ChainTag,
		"token_in":  p.TokenIn.Hex(),
		"token_out": p.TokenOut.Hex(),
		"amount_in": p.AmountIn.String(),
		"router":    router,
	}).Info("Built swap route calldata")

	return &SwapCall{
		Router: common.HexToAddress(router),
		Data:   calldata,
		Value:  value,
	}, nil
}

// EstimateSwapOutput fetches a route and returns only its estimated output
// amount, without building calldata.
func (c *SwapClient) EstimateSwapOutput(ctx context.Context, chainTag string, tokenIn, tokenOut common.Address, amountIn *big.Int) (*big.Int, error) {
	summary, _, err := c.fetchRoute(ctx, chainTag, tokenIn, tokenOut, amountIn)
	if err != nil {
		return nil, err
	}

	var amounts routeSummaryAmounts
	if err := json.Unmarshal(summary, &amounts); err != nil {
		return nil, fmt.Errorf("failed to parse route summary: %w", err)
	}
	if amounts.AmountOut == "" {
		return nil, fmt.Errorf("route summary missing amountOut")
	}
	out, ok := new(big.Int).SetString(amounts.AmountOut, 10)
	if !ok {
		return nil, fmt.Errorf("route summary has invalid amountOut %q", amounts.AmountOut)
	}
	return out, nil
}

// fetchRoute performs GET /routes and returns the opaque route summary plus
// the aggregator's router address.
func (c *SwapClient) fetchRoute(ctx context.Context, chainTag string, tokenIn, tokenOut common.Address, amountIn *big.Int) (json.RawMessage, string, error) {
	params := url.Values{}
	params.Add("tokenIn", tokenIn.Hex())
	params.Add("tokenOut", tokenOut.Hex())
	params.Add("amountIn", amountIn.String())

	reqURL := fmt.Sprintf("%s/%s/api/v1/routes?%s", c.baseURL, chainTag, params.Encode())
	start := time.Now()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create routes request: %w", err)
	}
	httpReq.Header.Set("x-client-id", c.clientID)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		metrics.SwapQuoteErrors.WithLabelValues("routes").Inc()
		return nil, "", fmt.Errorf("routes request failed: %w", err)
	}
	defer resp.Body.Close()
	metrics.SwapQuoteDuration.WithLabelValues("routes").Observe(time.Since(start).Seconds())

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read routes response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.SwapQuoteErrors.WithLabelValues("routes").Inc()
		return nil, "", fmt.Errorf("routes returned status %d: %s", resp.StatusCode, string(body))
	}

	var routes routesResponse
	if err := json.Unmarshal(body, &routes); err != nil {
		return nil, "", fmt.Errorf("failed to parse routes response: %w", err)
	}
	if len(routes.Data.RouteSummary) == 0 || string(routes.Data.RouteSummary) == "null" {
		return nil, "", fmt.Errorf("routes response missing routeSummary")
	}
	if routes.Data.RouterAddress == "" {
		return nil, "", fmt.Errorf("routes response missing routerAddress")
	}
	return routes.Data.RouteSummary, routes.Data.RouterAddress, nil
}
