package handler

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// Request signing headers. The signature is a 65-byte secp256k1
// signature (r ‖ s ‖ v) over SigningHash.
const (
	HeaderSignature = "X-Signature"
	HeaderTimestamp = "X-Timestamp"
)

const maxBodyBytes = 1 << 20

type callerKey struct{}

// SigningHash is the digest a client signs: keccak256 of method, path,
// unix timestamp and body separated by newlines.
func SigningHash(method, path string, ts int64, body []byte) common.Hash {
	return crypto.Keccak256Hash(
		[]byte(method), []byte{'\n'},
		[]byte(path), []byte{'\n'},
		[]byte(strconv.FormatInt(ts, 10)), []byte{'\n'},
		body,
	)
}

// SignRequest sets the signing headers on r for the given body. r.Body is
// not read; callers pass the same bytes they send.
func SignRequest(r *http.Request, key *ecdsa.PrivateKey, body []byte, ts time.Time) error {
	unix := ts.Unix()
	sig, err := crypto.Sign(SigningHash(r.Method, r.URL.Path, unix, body).Bytes(), key)
	if err != nil {
		return err
	}
	r.Header.Set(HeaderTimestamp, strconv.FormatInt(unix, 10))
	r.Header.Set(HeaderSignature, hexutil.Encode(sig))
	return nil
}

// CallerFrom returns the authenticated caller stored by the auth
// middleware.
func CallerFrom(ctx context.Context) (common.Address, bool) {
	addr, ok := ctx.Value(callerKey{}).(common.Address)
	return addr, ok
}

// Authenticator recovers the caller of signed requests.
type Authenticator struct {
	maxSkew time.Duration
	now     func() time.Time
}

// NewAuthenticator creates an Authenticator accepting timestamps within
// maxSkew of now. now defaults to time.Now.
func NewAuthenticator(maxSkew time.Duration, now func() time.Time) *Authenticator {
	if now == nil {
		now = time.Now
	}
	return &Authenticator{maxSkew: maxSkew, now: now}
}

// Require rejects requests without a valid signature.
func (a *Authenticator) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, ok := a.authenticate(w, r)
		if !ok {
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), callerKey{}, caller)))
	})
}

// Optional authenticates signed requests and passes unsigned ones
// through without a caller.
func (a *Authenticator) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(HeaderSignature) == "" {
			next.ServeHTTP(w, r)
			return
		}
		a.Require(next).ServeHTTP(w, r)
	})
}

func (a *Authenticator) authenticate(w http.ResponseWriter, r *http.Request) (common.Address, bool) {
	sigHex := r.Header.Get(HeaderSignature)
	tsStr := r.Header.Get(HeaderTimestamp)
	if sigHex == "" || tsStr == "" {
		WriteError(w, http.StatusUnauthorized, "unauthenticated",
			"X-Signature and X-Timestamp headers are required")
		return common.Address{}, false
	}

	ts, err := strconv.ParseInt(tsStr, 10, 64)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "unauthenticated", "X-Timestamp must be unix seconds")
		return common.Address{}, false
	}
	skew := a.now().Sub(time.Unix(ts, 0))
	if skew < 0 {
		skew = -skew
	}
	if skew > a.maxSkew {
		WriteError(w, http.StatusUnauthorized, "stale_signature", "X-Timestamp is outside the accepted window")
		return common.Address{}, false
	}

	sig, err := hexutil.Decode(sigHex)
	if err != nil || len(sig) != crypto.SignatureLength {
		WriteError(w, http.StatusUnauthorized, "invalid_signature", "X-Signature must be a 65-byte hex signature")
		return common.Address{}, false
	}
	// Accept the 27/28 recovery ids produced by most wallets.
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "could not read request body")
		return common.Address{}, false
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	pub, err := crypto.SigToPub(SigningHash(r.Method, r.URL.Path, ts, body).Bytes(), sig)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "invalid_signature", "signature does not recover to a key")
		return common.Address{}, false
	}
	return crypto.PubkeyToAddress(*pub), true
}
