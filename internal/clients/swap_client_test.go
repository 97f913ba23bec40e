package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	swapTokenIn  = common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913")
	swapTokenOut = common.HexToAddress("0x4200000000000000000000000000000000000006")
	swapExecutor = common.HexToAddress("0x2222222222222222222222222222222222222222")
	aggRouter    = "0x6131B5fae19EA4f9D964eAc0408E4408b66337b5"
)

func TestBuildSwapRequestFlow(t *testing.T) {
	var routesReq, buildReq *http.Request
	var buildBody buildRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/base/api/v1/routes":
			routesReq = r
			fmt.Fprintf(w, `{"data":{"routeSummary":{"amountOut":"990"},"routerAddress":%q}}`, aggRouter)
		case "/base/api/v1/route/build":
			buildReq = r
			require.NoError(t, json.NewDecoder(r.Body).Decode(&buildBody))
			fmt.Fprintf(w, `{"data":{"data":"0xdeadbeef","routerAddress":%q,"transactionValue":"7"}}`, aggRouter)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)

	client := NewSwapClient(srv.URL, "zap-backend", time.Second, testLogger())
	call, err := client.BuildSwap(context.Background(), SwapParams{
		ChainTag:    "base",
		TokenIn:     swapTokenIn,
		TokenOut:    swapTokenOut,
		AmountIn:    big.NewInt(1_000),
		Executor:    swapExecutor,
		SlippageBps: 50,
	})
	require.NoError(t, err)

	require.NotNil(t, routesReq)
	q := routesReq.URL.Query()
	assert.Equal(t, swapTokenIn.Hex(), q.Get("tokenIn"))
	assert.Equal(t, swapTokenOut.Hex(), q.Get("tokenOut"))
	assert.Equal(t, "1000", q.Get("amountIn"))
	assert.Equal(t, "zap-backend", routesReq.Header.Get("x-client-id"))

	require.NotNil(t, buildReq)
	assert.Equal(t, "application/json", buildReq.Header.Get("Content-Type"))
	assert.Equal(t, swapExecutor.Hex(), buildBody.Sender, "executor sends the swap")
	assert.Equal(t, swapExecutor.Hex(), buildBody.Recipient, "and receives its output")
	assert.Equal(t, 50, buildBody.SlippageTolerance)
	assert.Equal(t, "zap-backend", buildBody.Source)
	assert.JSONEq(t, `{"amountOut":"990"}`, string(buildBody.RouteSummary))

	assert.Equal(t, common.HexToAddress(aggRouter), call.Router)
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, call.Data)
	assert.Equal(t, int64(7), call.Value.Int64())
}

func TestBuildSwapRejectsNonPositiveAmount(t *testing.T) {
	client := NewSwapClient("http://unused", "zap-backend", time.Second, testLogger())
	_, err := client.BuildSwap(context.Background(), SwapParams{AmountIn: big.NewInt(0)})
	assert.Error(t, err)
	_, err = client.BuildSwap(context.Background(), SwapParams{})
	assert.Error(t, err)
}

func TestBuildSwapSurfacesAggregatorErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, "rate limited")
	}))
	t.Cleanup(srv.Close)

	client := NewSwapClient(srv.URL, "zap-backend", time.Second, testLogger())
	_, err := client.BuildSwap(context.Background(), SwapParams{
		ChainTag: "base",
		TokenIn:  swapTokenIn,
		TokenOut: swapTokenOut,
		AmountIn: big.NewInt(10),
		Executor: swapExecutor,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Contains(t, err.Error(), "rate limited")
}

func TestBuildSwapRequiresRouteSummary(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"data":{"routeSummary":null,"routerAddress":%q}}`, aggRouter)
	}))
	t.Cleanup(srv.Close)

	client := NewSwapClient(srv.URL, "zap-backend", time.Second, testLogger())
	_, err := client.BuildSwap(context.Background(), SwapParams{
		ChainTag: "base",
		TokenIn:  swapTokenIn,
		TokenOut: swapTokenOut,
		AmountIn: big.NewInt(10),
		Executor: swapExecutor,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "routeSummary")
}

func TestEstimateSwapOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/arbitrum/api/v1/routes", r.URL.Path)
		fmt.Fprintf(w, `{"data":{"routeSummary":{"amountOut":"123456"},"routerAddress":%q}}`, aggRouter)
	}))
	t.Cleanup(srv.Close)

	client := NewSwapClient(srv.URL, "zap-backend", time.Second, testLogger())
	out, err := client.EstimateSwapOutput(context.Background(), "arbitrum", swapTokenIn, swapTokenOut, big.NewInt(500))
	require.NoError(t, err)
	assert.Equal(t, int64(123_456), out.Int64())
}

func TestEstimateSwapOutputRequiresAmountOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"data":{"routeSummary":{"gas":"1"},"routerAddress":%q}}`, aggRouter)
	}))
	t.Cleanup(srv.Close)

	client := NewSwapClient(srv.URL, "zap-backend", time.Second, testLogger())
	_, err := client.EstimateSwapOutput(context.Background(), "base", swapTokenIn, swapTokenOut, big.NewInt(500))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "amountOut")
}
