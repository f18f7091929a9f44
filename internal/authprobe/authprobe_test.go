package authprobe

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/suite"
)

type fakeVerifier struct {
	principalID string
	err         error
	calls       int
}

func (f *fakeVerifier) Verify(_ context.Context, _ string) (string, error) {
	f.calls++
	return f.principalID, f.err
}

type ProbeSuite struct {
	suite.Suite
	verifier *fakeVerifier
	probe    *Probe
}

func TestProbeSuite(t *testing.T) {
	suite.Run(t, new(ProbeSuite))
}

func (s *ProbeSuite) SetupTest() {
	s.verifier = &fakeVerifier{principalID: "user-123"}
	s.probe = New(s.verifier, slog.New(slog.DiscardHandler))
}

func (s *ProbeSuite) request(authorization string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/notify/contact", nil)
	if authorization != "" {
		r.Header.Set("Authorization", authorization)
	}
	return r
}

func (s *ProbeSuite) signedToken() string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-123",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	s.Require().NoError(err)
	return signed
}

func (s *ProbeSuite) TestMissingHeaderIsAnonymous() {
	result := s.probe.Probe(context.Background(), s.request(""))

	s.False(result.Authenticated)
	s.Empty(result.PrincipalID)
	s.Zero(s.verifier.calls, "no header should not reach the identity provider")
}

func (s *ProbeSuite) TestNonBearerSchemeIsAnonymous() {
	result := s.probe.Probe(context.Background(), s.request("Basic dXNlcjpwYXNz"))

	s.False(result.Authenticated)
	s.Zero(s.verifier.calls)
}

func (s *ProbeSuite) TestMalformedTokenSkipsVerification() {
	result := s.probe.Probe(context.Background(), s.request("Bearer not-a-jwt"))

	s.False(result.Authenticated)
	s.Zero(s.verifier.calls, "garbage tokens should not cost a network call")
}

func (s *ProbeSuite) TestValidTokenIsAuthenticated() {
	result := s.probe.Probe(context.Background(), s.request("Bearer "+s.signedToken()))

	s.True(result.Authenticated)
	s.Equal("user-123", result.PrincipalID)
	s.Equal(1, s.verifier.calls)
}

func (s *ProbeSuite) TestVerifierErrorDowngradesToAnonymous() {
	s.verifier.err = errors.New("provider unreachable")

	result := s.probe.Probe(context.Background(), s.request("Bearer "+s.signedToken()))

	s.False(result.Authenticated)
	s.Empty(result.PrincipalID)
}

func (s *ProbeSuite) TestEmptyPrincipalIsAnonymous() {
	s.verifier.principalID = ""

	result := s.probe.Probe(context.Background(), s.request("Bearer "+s.signedToken()))

	s.False(result.Authenticated)
}

func (s *ProbeSuite) TestNilVerifierIsAlwaysAnonymous() {
	probe := New(nil, slog.New(slog.DiscardHandler))

	result := probe.Probe(context.Background(), s.request("Bearer "+s.signedToken()))

	s.False(result.Authenticated)
}

func TestHTTPVerifier(t *testing.T) {
	t.Run("returns principal id on 200", func(t *testing.T) {
		var gotAuth string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"user-456"}`))
		}))
		defer srv.Close()

		v := NewHTTPVerifier(srv.URL)
		id, err := v.Verify(context.Background(), "tok")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if id != "user-456" {
			t.Fatalf("expected user-456, got %q", id)
		}
		if gotAuth != "Bearer tok" {
			t.Fatalf("expected caller token forwarded, got %q", gotAuth)
		}
	})

	t.Run("non-200 is an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer srv.Close()

		if _, err := NewHTTPVerifier(srv.URL).Verify(context.Background(), "tok"); err == nil {
			t.Fatal("expected error for 401 response")
		}
	})

	t.Run("malformed body is an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{`))
		}))
		defer srv.Close()

		if _, err := NewHTTPVerifier(srv.URL).Verify(context.Background(), "tok"); err == nil {
			t.Fatal("expected error for malformed response")
		}
	})
}
