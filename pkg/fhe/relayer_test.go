package fhe

import (
	"context"
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/grexie/secretchat/pkg/api/interop"
	"github.com/grexie/secretchat/pkg/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testContract = common.HexToAddress("0x1F1B4D5D42caFc496E81DBfbbF7285075be3a8FF")
	testUser     = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	testHandle   = Handle{0x01, 0x02, 0x03}
)

type relayerStub struct {
	t        *testing.T
	auth     auth.Auth
	requests map[string]json.RawMessage
	failWith   string
	failStatus int
}

func (s *relayerStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	require.NoError(s.t, err)
	s.requests[r.URL.Path] = body

	w.Header().Set("Content-Type", "application/json")

	if s.auth != nil {
		k, err := s.auth.Keys().GetKeyMatchingHash(r.Header.Get(auth.HeaderKeyHash))
		if err == nil {
			err = k.Verify(time.Now(), body, auth.Signature(r.Header.Get(auth.HeaderSignature)))
		}
		if err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(interop.NewErrorResponse(err))
			return
		}
	}

	if s.failWith != "" {
		status := s.failStatus
		if status == 0 {
			status = http.StatusBadRequest
		}
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(interop.NewErrorResponse(s.failWith))
		return
	}

	switch r.URL.Path {
	case "/v1/input-proof":
		json.NewEncoder(w).Encode(interop.NewResponse(map[string]any{
			"handles":    []string{testHandle.Hex()},
			"inputProof": "0xdeadbeef",
		}))
	case "/v1/keypair":
		json.NewEncoder(w).Encode(interop.NewResponse(map[string]any{
			"publicKey":  "0x0102",
			"privateKey": "0x0304",
		}))
	case "/v1/user-decrypt":
		json.NewEncoder(w).Encode(interop.NewResponse(map[string]any{
			"results": map[string]string{testHandle.Hex(): "12345678"},
		}))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTestRelayer(t *testing.T, stub *relayerStub, a auth.Auth) *RelayerClient {
	server := httptest.NewServer(stub)
	t.Cleanup(server.Close)

	r, err := NewRelayerClient(RelayerConfig{BaseURL: server.URL, ChainID: big.NewInt(11155111)}, a)
	require.NoError(t, err)
	return r
}

func TestRelayerClient_EncryptUint32(t *testing.T) {
	stub := &relayerStub{t: t, requests: map[string]json.RawMessage{}}
	r := newTestRelayer(t, stub, nil)

	input, err := r.EncryptUint32(context.Background(), testContract, testUser, 12345678)
	require.NoError(t, err)
	assert.Equal(t, []Handle{testHandle}, input.Handles)
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, input.InputProof)

	var sent inputProofRequest
	require.NoError(t, json.Unmarshal(stub.requests["/v1/input-proof"], &sent))
	assert.Equal(t, testContract, sent.ContractAddress)
	assert.Equal(t, testUser, sent.UserAddress)
	assert.Equal(t, []inputValue{{Type: "euint32", Value: "12345678"}}, sent.Values)
}

func TestRelayerClient_KeypairAndUserDecrypt(t *testing.T) {
	a := auth.NewAuth([]string{"relayer-key-relayer-key-relayer-key-0001"})
	stub := &relayerStub{t: t, requests: map[string]json.RawMessage{}, auth: a}
	r := newTestRelayer(t, stub, a)
	ctx := context.Background()

	keypair, err := r.GenerateKeypair(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, keypair.PublicKey)
	assert.Equal(t, []byte{3, 4}, keypair.PrivateKey)

	values, err := r.UserDecrypt(ctx, UserDecryptRequest{
		Pairs:             []HandleContractPair{{Handle: testHandle, ContractAddress: testContract}},
		Keypair:           keypair,
		Signature:         "0xabcdef",
		ContractAddresses: []common.Address{testContract},
		UserAddress:       testUser,
		StartTimestamp:    1700000000,
		DurationDays:      7,
	})
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(12345678), values[testHandle])

	var sent userDecryptRequest
	require.NoError(t, json.Unmarshal(stub.requests["/v1/user-decrypt"], &sent))
	assert.Equal(t, "abcdef", sent.Signature)
	assert.Equal(t, "1700000000", sent.StartTimestamp)
	assert.Equal(t, "7", sent.DurationDays)
	assert.Equal(t, testHandle.Hex(), sent.HandleContractPairs[0].Handle)
}

func TestRelayerClient_UserDecryptMissingHandle(t *testing.T) {
	stub := &relayerStub{t: t, requests: map[string]json.RawMessage{}}
	r := newTestRelayer(t, stub, nil)

	_, err := r.UserDecrypt(context.Background(), UserDecryptRequest{
		Pairs: []HandleContractPair{{Handle: Handle{0xff}, ContractAddress: testContract}},
	})
	assert.ErrorIs(t, err, ErrMissingResult)

	_, err = r.UserDecrypt(context.Background(), UserDecryptRequest{})
	assert.ErrorIs(t, err, ErrEmptyHandleList)
}

func TestRelayerClient_ErrorEnvelope(t *testing.T) {
	stub := &relayerStub{t: t, requests: map[string]json.RawMessage{}, failWith: "proof rejected"}
	r := newTestRelayer(t, stub, nil)

	_, err := r.EncryptUint32(context.Background(), testContract, testUser, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "proof rejected")
}

func TestRelayerClient_RefusalStatuses(t *testing.T) {
	req := UserDecryptRequest{
		Pairs: []HandleContractPair{{Handle: testHandle, ContractAddress: testContract}},
	}

	stub := &relayerStub{t: t, requests: map[string]json.RawMessage{}, failWith: "user is not allowed to decrypt handle", failStatus: http.StatusForbidden}
	_, err := newTestRelayer(t, stub, nil).UserDecrypt(context.Background(), req)
	assert.ErrorIs(t, err, ErrNotAuthorized)
	assert.Contains(t, err.Error(), "user is not allowed to decrypt handle")

	stub = &relayerStub{t: t, requests: map[string]json.RawMessage{}, failWith: "handle not found", failStatus: http.StatusNotFound}
	_, err = newTestRelayer(t, stub, nil).UserDecrypt(context.Background(), req)
	assert.ErrorIs(t, err, ErrUnknownHandle)

	stub = &relayerStub{t: t, requests: map[string]json.RawMessage{}, failWith: "proof rejected"}
	_, err = newTestRelayer(t, stub, nil).UserDecrypt(context.Background(), req)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotAuthorized)
	assert.NotErrorIs(t, err, ErrUnknownHandle)
}

func TestRelayerClient_UnsignedRequestRejected(t *testing.T) {
	a := auth.NewAuth([]string{"relayer-key-relayer-key-relayer-key-0001"})
	stub := &relayerStub{t: t, requests: map[string]json.RawMessage{}, auth: a}
	r := newTestRelayer(t, stub, nil)

	_, err := r.GenerateKeypair(context.Background())
	assert.Error(t, err)
}

func TestNewRelayerClient_RequiresURL(t *testing.T) {
	_, err := NewRelayerClient(RelayerConfig{ChainID: big.NewInt(1)}, nil)
	assert.Error(t, err)
}

func TestHandleFromHex(t *testing.T) {
	h, err := HandleFromHex(testHandle.Hex())
	require.NoError(t, err)
	assert.Equal(t, testHandle, h)

	_, err = HandleFromHex("0x1234")
	assert.Error(t, err)
	_, err = HandleFromHex("zz")
	assert.Error(t, err)
}
