package apperrors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewAndErrorMessage(t *testing.T) {
	err := New(KindNotFound, "championship not found")
	require.Equal(t, "not_found: championship not found", err.Error())
}

func TestWrapPreservesUnderlying(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(cause, KindExternalRepository, "fetching record")
	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "boom")
}

func TestAttrClassifiesPlainErrorAsUnknown(t *testing.T) {
	plain := errors.New("plain failure")
	withAttr := Attr(plain, "championship_id", int32(7))
	require.Equal(t, KindUnknown, withAttr.Kind)
	require.Equal(t, int32(7), withAttr.Attributes["championship_id"])
}

func TestAttrAddsToExistingClassifiedError(t *testing.T) {
	base := New(KindAlreadyExists, "already started")
	withAttr := Attr(base, "championship_id", int32(42))
	require.Same(t, base, withAttr)
	require.Equal(t, int32(42), withAttr.Attributes["championship_id"])
}

func TestGetKindWalksUnwrapChain(t *testing.T) {
	err := Wrapf(errors.New("x"), KindFirewall, "opening rule for %d", 9)
	wrapped := errors.Join(err)
	require.Equal(t, KindFirewall, GetKind(wrapped))
	require.Equal(t, KindUnknown, GetKind(errors.New("untyped")))
}

func TestKindStatusCode(t *testing.T) {
	cases := map[Kind]int{
		KindValidation:         http.StatusBadRequest,
		KindNotFound:           http.StatusNotFound,
		KindAlreadyExists:      http.StatusConflict,
		KindFirewall:           http.StatusInternalServerError,
		KindTimeout:            http.StatusGatewayTimeout,
		KindPeerChange:         http.StatusForbidden,
		KindExternalRepository: http.StatusInternalServerError,
		KindUnknown:            http.StatusInternalServerError,
	}
	for kind, want := range cases {
		require.Equal(t, want, kind.StatusCode(), "kind %s", kind)
	}
}
