package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"cosmossdk.io/log"
	"github.com/cosmos/cosmos-sdk/crypto/keys/ed25519"
	cryptotypes "github.com/cosmos/cosmos-sdk/crypto/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zkchannel/zkchannel/api"
	"github.com/zkchannel/zkchannel/app"
	"github.com/zkchannel/zkchannel/testutil/zkmock"
	"github.com/zkchannel/zkchannel/x/channel/client"
	"github.com/zkchannel/zkchannel/x/channel/types"
)

const testImageID = "4d4d4d4d4d4d4d4d4d4d4d4d4d4d4d4d4d4d4d4d4d4d4d4d4d4d4d4d4d4d4d4d"

type testEnv struct {
	server *api.Server
	ledger *app.Ledger
	key    cryptotypes.PrivKey
}

func (e *testEnv) addr() types.Address { return types.AddressFromPubKey(e.key.PubKey()) }

// setupTestServer creates a server backed by a fresh in-memory ledger with
// one funded account.
func setupTestServer(t *testing.T) *testEnv {
	t.Helper()
	verifier, err := zkmock.NewVerifier()
	require.NoError(t, err)

	ledger, err := app.NewLedger(app.DefaultConfig(), verifier, log.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = ledger.Close() })

	key := ed25519.GenPrivKey()
	require.NoError(t, ledger.InitChain(*app.NewDefaultGenesisState(1_000_000_000, types.AddressFromPubKey(key.PubKey()))))

	config := api.DefaultConfig()
	config.RateLimitRPS = 0
	return &testEnv{server: api.NewServer(ledger, config, log.NewNopLogger()), ledger: ledger, key: key}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		bz, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(bz)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(w, req)
	return w
}

func (e *testEnv) signedTx(t *testing.T, ixs ...types.Instruction) []byte {
	t.Helper()
	blockhash, _ := e.ledger.LatestBlockhash()
	tx := types.NewTransaction(e.addr(), blockhash, ixs...)
	require.NoError(t, tx.Sign(e.key))
	bz, err := types.EncodeTransaction(tx)
	require.NoError(t, err)
	return bz
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestBlockhashAndHeight(t *testing.T) {
	env := setupTestServer(t)

	w := env.do(t, http.MethodGet, "/v1/blockhash", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[api.BlockhashResponse](t, w)
	hash, lastValid := env.ledger.LatestBlockhash()
	assert.Equal(t, hash, resp.Blockhash)
	assert.Equal(t, lastValid, resp.LastValidBlockHeight)

	w = env.do(t, http.MethodGet, "/v1/height", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, env.ledger.Height(), decode[api.HeightResponse](t, w).Height)

	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}

func TestSubmitTransaction(t *testing.T) {
	env := setupTestServer(t)
	recipient := types.AddressFromPubKey(ed25519.GenPrivKey().PubKey())

	tx := env.signedTx(t, types.NewSystemTransferInstruction(env.addr(), recipient, 777))
	w := env.do(t, http.MethodPost, "/v1/transactions", api.SubmitTxRequest{Tx: tx})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[app.TxResult](t, w)
	assert.True(t, res.Success)

	w = env.do(t, http.MethodGet, "/v1/transactions/"+res.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, res.ID, decode[app.TxResult](t, w).ID)

	w = env.do(t, http.MethodGet, "/v1/accounts/"+recipient.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	acct := decode[api.AccountResponse](t, w)
	assert.Equal(t, recipient, acct.Address)
	assert.Equal(t, uint64(777), acct.Lamports)

	// resubmitting the same signed bytes is a duplicate
	w = env.do(t, http.MethodPost, "/v1/transactions", api.SubmitTxRequest{Tx: tx})
	require.Equal(t, http.StatusConflict, w.Code)
	errResp := decode[api.ErrorResponse](t, w)
	assert.Equal(t, app.Codespace, errResp.Codespace)
	assert.Equal(t, app.ErrDuplicateTransaction.ABCICode(), errResp.Code)
}

func TestSubmitTransactionErrors(t *testing.T) {
	env := setupTestServer(t)

	t.Run("undecodable", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/v1/transactions", api.SubmitTxRequest{Tx: []byte{0xff, 0x00}})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing body", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/v1/transactions", map[string]string{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("program failure carries the result", func(t *testing.T) {
		ix, err := client.ExecuteInstruction(env.addr(), env.addr(), &types.ExecuteV1{
			ExecutionID:    "never-deployed",
			ImageID:        testImageID,
			Tip:            1,
			MaxBlockHeight: env.ledger.Height() + 10,
		})
		require.NoError(t, err)
		w := env.do(t, http.MethodPost, "/v1/transactions", api.SubmitTxRequest{Tx: env.signedTx(t, ix)})
		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		resp := decode[api.ErrorResponse](t, w)
		require.NotNil(t, resp.Result)
		assert.False(t, resp.Result.Success)
		assert.Equal(t, types.ModuleName, resp.Codespace)
		assert.Equal(t, types.ErrInvalidDeploymentAccount.ABCICode(), resp.Code)
	})
}

func TestGetTransactionNotFound(t *testing.T) {
	env := setupTestServer(t)
	w := env.do(t, http.MethodGet, "/v1/transactions/unknown", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, app.ErrTxNotFound.ABCICode(), decode[api.ErrorResponse](t, w).Code)
}

func TestExecutions(t *testing.T) {
	env := setupTestServer(t)

	deploy, err := client.DeployInstruction(env.addr(), env.addr(), &types.DeployV1{
		ImageID:            testImageID,
		ImageSize:          1024,
		ProgramName:        "api-test",
		URL:                "https://images.example.com/api-test",
		AcceptedInputTypes: []types.InputType{types.InputTypePublicData},
	})
	require.NoError(t, err)
	execute, err := client.ExecuteInstruction(env.addr(), env.addr(), &types.ExecuteV1{
		ExecutionID:    "api-exec",
		ImageID:        testImageID,
		Tip:            500,
		MaxBlockHeight: env.ledger.Height() + 50,
		Inputs:         []types.Input{{Type: types.InputTypePublicData, Data: []byte("hello")}},
	})
	require.NoError(t, err)
	w := env.do(t, http.MethodPost, "/v1/transactions", api.SubmitTxRequest{Tx: env.signedTx(t, deploy, execute)})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(t, http.MethodGet, "/v1/executions/pending?limit=10", nil)
	require.Equal(t, http.StatusOK, w.Code)
	pending := decode[api.PendingExecutionsResponse](t, w)
	require.Len(t, pending.Executions, 1)
	execAddr, _, err := types.ExecutionAddress(env.addr(), "api-exec")
	require.NoError(t, err)
	assert.Equal(t, execAddr, pending.Executions[0].Address)

	w = env.do(t, http.MethodGet, "/v1/executions/"+execAddr.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	exec := decode[api.ExecutionResponse](t, w)
	require.NotNil(t, exec.Pending)
	assert.Nil(t, exec.Settled)
	assert.Equal(t, uint64(500), exec.Pending.Tip)

	w = env.do(t, http.MethodGet, "/v1/executions/pending?limit=0", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/v1/executions/not-base58!", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	missing := types.AddressFromPubKey(ed25519.GenPrivKey().PubKey())
	w = env.do(t, http.MethodGet, "/v1/executions/"+missing.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAirdrop(t *testing.T) {
	env := setupTestServer(t)
	target := types.AddressFromPubKey(ed25519.GenPrivKey().PubKey())

	w := env.do(t, http.MethodPost, "/v1/airdrop", api.AirdropRequest{Address: target, Lamports: 5000})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	acct, err := env.ledger.GetAccount(target)
	require.NoError(t, err)
	assert.Equal(t, uint64(5000), acct.Lamports)

	w = env.do(t, http.MethodPost, "/v1/airdrop", api.AirdropRequest{Address: target, Lamports: app.DefaultMaxAirdrop + 1})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAirdropRouteDisabled(t *testing.T) {
	env := setupTestServer(t)
	config := api.DefaultConfig()
	config.EnableAirdrop = false
	server := api.NewServer(env.ledger, config, log.NewNopLogger())

	req := httptest.NewRequest(http.MethodPost, "/v1/airdrop", bytes.NewReader([]byte(`{}`)))
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRequestSizeLimit(t *testing.T) {
	env := setupTestServer(t)
	big := api.SubmitTxRequest{Tx: make([]byte, api.MaxRequestSize)}
	w := env.do(t, http.MethodPost, "/v1/transactions", big)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}
