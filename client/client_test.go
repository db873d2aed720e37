package client

import (
	"context"
	"crypto/ed25519"
	"net/http"
	"net/http/httptest"
	"testing"

	goerrors "github.com/goliatone/go-errors"

	"github.com/vaspnet/go-offchain/core"
	"github.com/vaspnet/go-offchain/jws"
)

type staticResolver struct {
	baseURL   string
	publicKey ed25519.PublicKey
}

func (r staticResolver) Resolve(_ context.Context, _ string) (string, ed25519.PublicKey, error) {
	return r.baseURL, r.publicKey, nil
}

func keyPair(fill byte) (ed25519.PublicKey, ed25519.PrivateKey) {
	seed := make([]byte, ed25519.SeedSize)
	for i := range seed {
		seed[i] = fill
	}
	private := ed25519.NewKeyFromSeed(seed)
	return private.Public().(ed25519.PublicKey), private
}

func testCommand() core.FundsPullPreApprovalCommand {
	return core.FundsPullPreApprovalCommand{
		CorrelationID:  "cid-1",
		MyActorAddress: "payer-id",
		FundPullPreApproval: core.FundPullPreApprovalObject{
			FundsPullPreApprovalID: "fppa-1",
			Address:                "payer-id",
			BillerAddress:          "biller-id",
			Status:                 core.FundPullPreApprovalStatusValid,
			Scope: core.FundPullPreApprovalScope{
				Type:                core.FundPullPreApprovalTypeConsent,
				ExpirationTimestamp: 1900000000,
			},
		},
	}
}

func newTestClient(t *testing.T, serverURL string, serverKey ed25519.PublicKey) *Client {
	t.Helper()
	c, err := New(Config{Resolver: staticResolver{baseURL: serverURL, publicKey: serverKey}})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestSendCommand_Success(t *testing.T) {
	_, senderPrivate := keyPair(1)
	serverPublic, serverPrivate := keyPair(2)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != CommandPath {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.Header.Get(HeaderRequestID) == "" {
			t.Errorf("missing request id header")
		}
		if got := r.Header.Get(HeaderRequestSenderAddress); got != "payer-id" {
			t.Errorf("unexpected sender address header %q", got)
		}
		envelope, err := jws.Serialize(core.ReplySuccess("cid-1"), jws.Ed25519Signer(serverPrivate))
		if err != nil {
			t.Errorf("sign response: %v", err)
		}
		_, _ = w.Write(envelope)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL, serverPublic)
	response, err := c.SendCommand(context.Background(), testCommand(), jws.Ed25519Signer(senderPrivate))
	if err != nil {
		t.Fatalf("send command: %v", err)
	}
	if response.Status != core.CommandResponseStatusSuccess {
		t.Fatalf("unexpected response status %q", response.Status)
	}
	if response.CID != "cid-1" {
		t.Fatalf("unexpected cid %q", response.CID)
	}
}

func TestSendCommand_CounterpartyRejection(t *testing.T) {
	_, senderPrivate := keyPair(1)
	serverPublic, serverPrivate := keyPair(2)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		failure := core.ReplyFailure("cid-1", core.OffChainErrorObject{
			Type: core.ErrorTypeCommand,
			Code: core.ErrorCodeInvalidFieldValue,
		})
		envelope, err := jws.Serialize(failure, jws.Ed25519Signer(serverPrivate))
		if err != nil {
			t.Errorf("sign response: %v", err)
		}
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write(envelope)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL, serverPublic)
	_, err := c.SendCommand(context.Background(), testCommand(), jws.Ed25519Signer(senderPrivate))
	if err == nil {
		t.Fatalf("expected rejection error")
	}
	var responseErr *CommandResponseError
	if !goerrors.As(err, &responseErr) {
		t.Fatalf("expected CommandResponseError, got %T (%v)", err, err)
	}
	if responseErr.Response.Error == nil || responseErr.Response.Error.Code != core.ErrorCodeInvalidFieldValue {
		t.Fatalf("expected structured error in response, got %+v", responseErr.Response)
	}
}

func TestSendCommand_TransportFault(t *testing.T) {
	_, senderPrivate := keyPair(1)
	serverPublic, _ := keyPair(2)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL, serverPublic)
	_, err := c.SendCommand(context.Background(), testCommand(), jws.Ed25519Signer(senderPrivate))
	if err == nil {
		t.Fatalf("expected transport fault")
	}
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors type, got %T", err)
	}
	if rich.TextCode != TextCodeTransportFault {
		t.Fatalf("expected %q, got %q", TextCodeTransportFault, rich.TextCode)
	}
	if rich.Code != http.StatusBadGateway {
		t.Fatalf("expected status 502 on fault, got %d", rich.Code)
	}
}

func TestSendCommand_RejectsForgedResponse(t *testing.T) {
	_, senderPrivate := keyPair(1)
	serverPublic, _ := keyPair(2)
	_, forgedPrivate := keyPair(3)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		envelope, err := jws.Serialize(core.ReplySuccess("cid-1"), jws.Ed25519Signer(forgedPrivate))
		if err != nil {
			t.Errorf("sign response: %v", err)
		}
		_, _ = w.Write(envelope)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL, serverPublic)
	_, err := c.SendCommand(context.Background(), testCommand(), jws.Ed25519Signer(senderPrivate))
	if err == nil {
		t.Fatalf("expected signature failure")
	}
	if code := core.ErrorCodeOf(err); code != core.ErrorCodeInvalidJWSSignature {
		t.Fatalf("expected %q, got %q", core.ErrorCodeInvalidJWSSignature, code)
	}
}
